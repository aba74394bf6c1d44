package livenessService

import (
	"context"
	"errors"
	"net/http"
	"time"

	"FaceAuthIdP/internal/api/auth"
	authRepository "FaceAuthIdP/internal/api/auth/repository"
	"FaceAuthIdP/internal/api/liveness"
	"FaceAuthIdP/internal/entity"
	"FaceAuthIdP/internal/pipeline"
	"FaceAuthIdP/pkg/rekognition"

	"github.com/sirupsen/logrus"
)

type LivenessService interface {
	CreateSession(c context.Context, req liveness.CreateSessionRequest, requestID string) (liveness.CreateSessionResponse, error)
	GetResult(c context.Context, sessionID, requestID string) (liveness.ResultResponse, error)
}

type livenessService struct {
	log   *logrus.Logger
	cfg   auth.Config
	repo  authRepository.Repository
	faces rekognition.ItfRekognition
}

func New(log *logrus.Logger, cfg auth.Config, repo authRepository.Repository, faces rekognition.ItfRekognition) LivenessService {
	return &livenessService{
		log:   log,
		cfg:   cfg,
		repo:  repo,
		faces: faces,
	}
}

func (s *livenessService) CreateSession(c context.Context, req liveness.CreateSessionRequest, requestID string) (liveness.CreateSessionResponse, error) {
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return liveness.CreateSessionResponse{}, err
	}

	upstream, err := s.faces.CreateLivenessSession(c)
	if err != nil {
		return liveness.CreateSessionResponse{}, pipeline.Fail(pipeline.KindGenericError, "liveness_create", err)
	}

	now := time.Now().UTC()
	session := entity.LivenessSession{
		SessionID:  upstream.SessionID,
		EmployeeID: req.EmployeeID,
		Status:     entity.LivenessStatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(s.cfg.LivenessSessionTimeout),
	}
	if err := repo.Liveness.Create(c, session); err != nil {
		return liveness.CreateSessionResponse{}, pipeline.Fail(pipeline.KindGenericError, "liveness_create", err)
	}

	s.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"session_id":  session.SessionID,
		"employee_id": req.EmployeeID,
	}).Info("Liveness session created")

	return liveness.CreateSessionResponse{
		LivenessSessionID: session.SessionID,
		ExpiresAt:         session.ExpiresAt,
	}, nil
}

func (s *livenessService) GetResult(c context.Context, sessionID, requestID string) (liveness.ResultResponse, error) {
	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return liveness.ResultResponse{}, err
	}

	stored, err := repo.Liveness.GetByID(c, sessionID)
	if errors.Is(err, auth.ErrLivenessSessionNotFound) {
		return liveness.ResultResponse{}, &pipeline.Error{
			Kind:   pipeline.KindInvalidRequest,
			Op:     "liveness_result",
			Err:    err,
			Status: http.StatusNotFound,
		}
	}
	if err != nil {
		return liveness.ResultResponse{}, pipeline.Fail(pipeline.KindGenericError, "liveness_result", err)
	}

	if stored.Expired(time.Now()) {
		if err := repo.Liveness.MarkExpired(c, sessionID); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Failed to mark liveness session expired")
		}
		return liveness.ResultResponse{}, &pipeline.Error{
			Kind:   pipeline.KindTimeoutExceeded,
			Op:     "liveness_result",
			Err:    errors.New("liveness session expired"),
			Status: http.StatusGone,
		}
	}

	result, err := s.faces.GetLivenessResult(c, sessionID)
	if errors.Is(err, rekognition.ErrSessionNotFound) {
		return liveness.ResultResponse{}, &pipeline.Error{
			Kind:   pipeline.KindInvalidRequest,
			Op:     "liveness_result",
			Err:    err,
			Status: http.StatusNotFound,
		}
	}
	if err != nil {
		return liveness.ResultResponse{}, pipeline.Fail(pipeline.KindGenericError, "liveness_result", err)
	}

	res := liveness.ResultResponse{
		SessionID:  sessionID,
		Confidence: result.Confidence,
	}

	switch result.Status {
	case rekognition.LivenessStatusSucceeded:
		res.IsLive = result.Confidence > s.cfg.LivenessConfidenceThreshold
		if res.IsLive {
			res.Status = entity.LivenessStatusSuccess
		} else {
			res.Status = entity.LivenessStatusFailed
		}
		s.recordResult(c, repo, requestID, sessionID, res.Status, result)
	case rekognition.LivenessStatusFailed:
		res.Status = entity.LivenessStatusFailed
		s.recordResult(c, repo, requestID, sessionID, res.Status, result)
	case rekognition.LivenessStatusExpired:
		res.Status = entity.LivenessStatusExpired
		if err := repo.Liveness.MarkExpired(c, sessionID); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"session_id": sessionID,
				"error":      err.Error(),
			}).Warn("Failed to mark liveness session expired")
		}
	default:
		res.Status = entity.LivenessStatusPending
	}

	return res, nil
}

func (s *livenessService) recordResult(c context.Context, repo authRepository.Client, requestID, sessionID, status string, result rekognition.LivenessResult) {
	if err := repo.Liveness.RecordResult(c, sessionID, status, result.Confidence, result.ReferenceImageKey); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"session_id": sessionID,
			"error":      err.Error(),
		}).Warn("Failed to record liveness outcome")
	}
}
