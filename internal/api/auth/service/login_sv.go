package authService

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"FaceAuthIdP/internal/api/auth"
	authRepository "FaceAuthIdP/internal/api/auth/repository"
	"FaceAuthIdP/internal/entity"
	"FaceAuthIdP/internal/pipeline"
	"FaceAuthIdP/pkg/cognito"
	"FaceAuthIdP/pkg/rekognition"

	"github.com/sirupsen/logrus"
)

func (s *authService) Login(c context.Context, req auth.LoginRequest, meta auth.RequestMeta) (auth.LoginResponse, error) {
	budget := pipeline.NewBudget(s.cfg.OverallTimeout, s.cfg.DirectoryTimeout)

	faceImage, err := decodeImage(req.FaceImage)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"error":      err.Error(),
		}).Warn("Failed to decode face image")
		return auth.LoginResponse{}, auth.ErrInvalidImageEncoding
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return auth.LoginResponse{}, err
	}

	var (
		thumbnail []byte
		match     rekognition.FaceMatch
		bundle    cognito.TokenBundle
		session   entity.AuthSession
	)

	stages := []pipeline.Stage{
		{
			Name: "liveness_check",
			Cost: pipeline.CostLivenessCheck,
			Run: func(ctx context.Context) error {
				return s.checkLiveness(ctx, repo, meta.RequestID, req.LivenessSessionID)
			},
		},
		{
			Name: "thumbnail_build",
			Cost: pipeline.CostStorageWrite,
			Run: func(ctx context.Context) error {
				var err error
				thumbnail, err = s.utils.BuildThumbnail(faceImage)
				if err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "thumbnail_build", err)
				}
				return nil
			},
		},
		{
			Name: "face_search",
			Cost: pipeline.CostFaceSearch,
			Run: func(ctx context.Context) error {
				matches, err := s.faces.SearchFaces(ctx, thumbnail, s.cfg.FaceMatchThreshold)
				if err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "face_search", err)
				}

				// Similarity exactly at the threshold does not qualify.
				for _, m := range matches {
					if m.Similarity > s.cfg.FaceMatchThreshold {
						match = m
						return nil
					}
				}

				key := s.storeFailedLoginProbe(ctx, faceImage, meta)
				return pipeline.FailWithContext(pipeline.KindFaceNotFound, "face_search",
					fmt.Errorf("no match above %.1f", s.cfg.FaceMatchThreshold),
					map[string]interface{}{"failed_login_key": key})
			},
		},
		{
			Name: "enrollment_lookup",
			Cost: pipeline.CostStorageWrite,
			Run: func(ctx context.Context) error {
				record, err := repo.Enrollments.GetByEmployeeID(ctx, match.ExternalID)
				if errors.Is(err, auth.ErrEnrollmentNotFound) {
					return pipeline.Fail(pipeline.KindAccountDisabled, "enrollment_lookup", err)
				}
				if err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "enrollment_lookup", err)
				}
				if !record.IsActive {
					return pipeline.Fail(pipeline.KindAccountDisabled, "enrollment_lookup", nil)
				}
				return nil
			},
		},
		{
			Name: "issue_session",
			Cost: pipeline.CostSessionIssue,
			Run: func(ctx context.Context) error {
				var err error
				bundle, err = s.issuer.IssueToken(ctx, match.ExternalID)
				if err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "issue_session", err)
				}

				now := time.Now().UTC()
				session = entity.AuthSession{
					SessionID:   s.utils.NewSessionID(),
					EmployeeID:  match.ExternalID,
					AuthMethod:  entity.AuthMethodFace,
					CreatedAt:   now,
					ExpiresAt:   now.Add(s.cfg.SessionTimeout),
					AccessToken: bundle.AccessToken,
					IPAddress:   meta.ClientIP,
					UserAgent:   meta.UserAgent,
				}
				if err := repo.Sessions.Create(ctx, session); err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "issue_session", err)
				}
				return nil
			},
		},
	}

	runner := pipeline.NewRunner(budget, s.log)
	if err := runner.Execute(c, meta.RequestID, stages); err != nil {
		return auth.LoginResponse{}, err
	}

	s.sweepExpiredSessions(c, repo, meta.RequestID)

	// Best effort: the token is already issued, a failed touch does not
	// invalidate the login.
	if err := repo.Enrollments.UpdateLastLogin(c, match.ExternalID, time.Now().UTC()); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id":  meta.RequestID,
			"employee_id": match.ExternalID,
			"error":       err.Error(),
		}).Warn("Failed to touch last login")
	}

	s.audit(entity.AuditEvent{
		Event:      entity.EventFaceLogin,
		EmployeeID: match.ExternalID,
		RequestID:  meta.RequestID,
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Details: map[string]interface{}{
			"session_id": session.SessionID,
			"similarity": match.Similarity,
		},
	})

	return auth.LoginResponse{
		Success:        true,
		EmployeeID:     match.ExternalID,
		SessionID:      session.SessionID,
		AccessToken:    bundle.AccessToken,
		ExpiresAt:      session.ExpiresAt,
		Similarity:     match.Similarity,
		ProcessingTime: budget.ProcessingTime(),
	}, nil
}

// checkLiveness resolves the liveness handle: unknown sessions are a client
// error (404), expired ones a timeout (410), completed ones must be live and
// strictly above the confidence threshold. The stored row tracks the outcome.
func (s *authService) checkLiveness(ctx context.Context, repo authRepository.Client, requestID, sessionID string) error {
	stored, err := repo.Liveness.GetByID(ctx, sessionID)
	if errors.Is(err, auth.ErrLivenessSessionNotFound) {
		return &pipeline.Error{Kind: pipeline.KindInvalidRequest, Op: "liveness_check", Err: err, Status: http.StatusNotFound}
	}
	if err != nil {
		return pipeline.Fail(pipeline.KindGenericError, "liveness_check", err)
	}

	if stored.Expired(time.Now()) {
		s.expireLivenessRow(ctx, repo, requestID, sessionID)
		return &pipeline.Error{
			Kind:   pipeline.KindTimeoutExceeded,
			Op:     "liveness_check",
			Err:    errors.New("liveness session expired"),
			Status: http.StatusGone,
		}
	}

	result, err := s.faces.GetLivenessResult(ctx, sessionID)
	if errors.Is(err, rekognition.ErrSessionNotFound) {
		return &pipeline.Error{Kind: pipeline.KindInvalidRequest, Op: "liveness_check", Err: err, Status: http.StatusNotFound}
	}
	if err != nil {
		return pipeline.Fail(pipeline.KindGenericError, "liveness_check", err)
	}

	switch result.Status {
	case rekognition.LivenessStatusExpired:
		s.expireLivenessRow(ctx, repo, requestID, sessionID)
		return &pipeline.Error{
			Kind:   pipeline.KindTimeoutExceeded,
			Op:     "liveness_check",
			Err:    errors.New("liveness session expired upstream"),
			Status: http.StatusGone,
		}
	case rekognition.LivenessStatusSucceeded:
		// fall through to the confidence gate
	default:
		s.recordLivenessRow(ctx, repo, requestID, sessionID, entity.LivenessStatusFailed, result)
		return pipeline.FailWithContext(pipeline.KindLivenessFailed, "liveness_check", nil,
			map[string]interface{}{"status": result.Status})
	}

	if result.Confidence <= s.cfg.LivenessConfidenceThreshold {
		s.recordLivenessRow(ctx, repo, requestID, sessionID, entity.LivenessStatusFailed, result)
		return pipeline.FailWithContext(pipeline.KindLivenessFailed, "liveness_check", nil,
			map[string]interface{}{"confidence": result.Confidence})
	}

	s.recordLivenessRow(ctx, repo, requestID, sessionID, entity.LivenessStatusSuccess, result)
	return nil
}

func (s *authService) recordLivenessRow(ctx context.Context, repo authRepository.Client, requestID, sessionID, status string, result rekognition.LivenessResult) {
	if err := repo.Liveness.RecordResult(ctx, sessionID, status, result.Confidence, result.ReferenceImageKey); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Failed to record liveness outcome")
	}
}

func (s *authService) expireLivenessRow(ctx context.Context, repo authRepository.Client, requestID, sessionID string) {
	if err := repo.Liveness.MarkExpired(ctx, sessionID); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Failed to mark liveness session expired")
	}
}

// storeFailedLoginProbe keeps the unmatched capture for the security team.
func (s *authService) storeFailedLoginProbe(ctx context.Context, faceImage []byte, meta auth.RequestMeta) string {
	key := s.utils.FailedLoginKey(time.Now().UTC())
	metadata := map[string]string{
		"request_id": meta.RequestID,
		"client_ip":  meta.ClientIP,
		"image_type": "failed_login",
	}

	if err := s.store.PutObject(ctx, key, faceImage, "image/jpeg", metadata); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"key":        key,
			"error":      err.Error(),
		}).Warn("Failed to store unmatched login probe")
		return ""
	}

	return key
}
