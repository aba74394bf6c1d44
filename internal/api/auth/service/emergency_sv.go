package authService

import (
	"context"
	"time"

	"FaceAuthIdP/internal/api/auth"
	"FaceAuthIdP/internal/entity"
	"FaceAuthIdP/internal/pipeline"
	"FaceAuthIdP/pkg/cognito"
	"FaceAuthIdP/pkg/directory"

	"github.com/sirupsen/logrus"
)

func (s *authService) Emergency(c context.Context, req auth.EmergencyRequest, meta auth.RequestMeta) (auth.EmergencyResponse, error) {
	budget := pipeline.NewBudget(s.cfg.OverallTimeout, s.cfg.DirectoryTimeout)

	identifier := meta.ClientIP
	if identifier == "" {
		identifier = meta.RequestID
	}

	// The window check is the single point that counts an attempt; a denied
	// request does no further work and never reaches the directory.
	allowed, count, err := s.limiter.CheckAndTick(c, identifier, s.cfg.RateLimitMaxAttempts, s.cfg.RateLimitWindow)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"error":      err.Error(),
		}).Warn("Rate limiter unavailable, admitting attempt")
	} else if !allowed {
		return auth.EmergencyResponse{}, pipeline.FailWithContext(pipeline.KindRateLimited, "rate_limit", nil,
			map[string]interface{}{"attempts": count})
	}

	cardImage, err := decodeImage(req.IDCardImage)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"error":      err.Error(),
		}).Warn("Failed to decode card image")
		return auth.EmergencyResponse{}, auth.ErrInvalidImageEncoding
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return auth.EmergencyResponse{}, err
	}

	var (
		info    entity.EmployeeInfo
		bundle  cognito.TokenBundle
		session entity.AuthSession
	)

	stages := []pipeline.Stage{
		{
			Name: "ocr_extract",
			Cost: pipeline.CostOCR,
			Run: func(ctx context.Context) error {
				var err error
				info, err = s.resolveCard(ctx, repo, meta.RequestID, cardImage)
				return err
			},
		},
		{
			// Any directory error aborts here. Emergency auth trades
			// biometrics for a password, so the directory's answer is the
			// only proof of identity left.
			Name: "directory_authenticate",
			Cost: pipeline.CostDirectory,
			Run: func(ctx context.Context) error {
				result, err := s.dir.Authenticate(directory.DeadlineCtx{Deadline: budget.RemainingDirectory()}, info.EmployeeID, req.Password)
				if err != nil {
					return pipeline.Fail(pipeline.KindDirectoryConnectionFailed, "directory_authenticate", err)
				}
				if result.Disabled {
					return pipeline.Fail(pipeline.KindAccountDisabled, "directory_authenticate", nil)
				}
				if !result.OK {
					return pipeline.FailWithContext(pipeline.KindRegistrationInfoMismatch, "directory_authenticate", nil,
						map[string]interface{}{"reason": result.Reason, "employee_id": info.EmployeeID})
				}
				return nil
			},
		},
		{
			Name: "ensure_subject",
			Cost: pipeline.CostSessionIssue,
			Run: func(ctx context.Context) error {
				if err := s.issuer.EnsureSubject(ctx, info.EmployeeID, info.Name); err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "ensure_subject", err)
				}
				return nil
			},
		},
		{
			Name: "issue_session",
			Cost: pipeline.CostSessionIssue,
			Run: func(ctx context.Context) error {
				var err error
				bundle, err = s.issuer.IssueToken(ctx, info.EmployeeID)
				if err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "issue_session", err)
				}

				now := time.Now().UTC()
				session = entity.AuthSession{
					SessionID:   s.utils.NewSessionID(),
					EmployeeID:  info.EmployeeID,
					AuthMethod:  entity.AuthMethodEmergency,
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
		return auth.EmergencyResponse{}, err
	}

	s.sweepExpiredSessions(c, repo, meta.RequestID)

	if err := s.limiter.Reset(c, identifier); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"error":      err.Error(),
		}).Warn("Failed to reset attempt counter")
	}

	s.audit(entity.AuditEvent{
		Event:      entity.EventEmergencyAuth,
		EmployeeID: info.EmployeeID,
		RequestID:  meta.RequestID,
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Details: map[string]interface{}{
			"session_id": session.SessionID,
		},
	})

	return auth.EmergencyResponse{
		Success:        true,
		EmployeeID:     info.EmployeeID,
		EmployeeName:   info.Name,
		SessionID:      session.SessionID,
		AccessToken:    bundle.AccessToken,
		ExpiresAt:      session.ExpiresAt,
		ProcessingTime: budget.ProcessingTime(),
	}, nil
}
