package authService

import (
	"context"
	"errors"
	"time"

	"FaceAuthIdP/internal/api/auth"
	authRepository "FaceAuthIdP/internal/api/auth/repository"
	"FaceAuthIdP/internal/entity"
	"FaceAuthIdP/internal/pipeline"
	"FaceAuthIdP/pkg/rekognition"

	"github.com/sirupsen/logrus"
)

func (s *authService) Enroll(c context.Context, req auth.EnrollRequest, meta auth.RequestMeta) (auth.EnrollResponse, error) {
	budget := pipeline.NewBudget(s.cfg.OverallTimeout, s.cfg.DirectoryTimeout)

	cardImage, err := decodeImage(req.IDCardImage)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"error":      err.Error(),
		}).Warn("Failed to decode card image")
		return auth.EnrollResponse{}, auth.ErrInvalidImageEncoding
	}

	faceImage, err := decodeImage(req.FaceImage)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"error":      err.Error(),
		}).Warn("Failed to decode face image")
		return auth.EnrollResponse{}, auth.ErrInvalidImageEncoding
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return auth.EnrollResponse{}, err
	}

	var (
		info      entity.EmployeeInfo
		detail    rekognition.FaceDetail
		thumbnail []byte
		thumbKey  string
		indexed   rekognition.IndexedFace
		converged bool
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
			Name: "directory_verify",
			Cost: pipeline.CostDirectory,
			Run: func(ctx context.Context) error {
				return s.verifyAgainstDirectory(budget, info)
			},
		},
		{
			Name: "face_detection",
			Cost: pipeline.CostFaceDetection,
			Run: func(ctx context.Context) error {
				var err error
				detail, err = s.detectSingleFace(ctx, faceImage)
				return err
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
			Name: "thumbnail_store",
			Cost: pipeline.CostStorageWrite,
			Run: func(ctx context.Context) error {
				thumbKey = s.utils.ThumbnailKey(info.EmployeeID)
				if err := s.store.PutObject(ctx, thumbKey, thumbnail, "image/jpeg", thumbnailMetadata(info.EmployeeID, len(thumbnail))); err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "thumbnail_store", err)
				}
				return nil
			},
			Rollback: func(ctx context.Context) {
				if err := s.store.DeleteObject(ctx, thumbKey); err != nil {
					s.log.WithFields(logrus.Fields{
						"request_id": meta.RequestID,
						"key":        thumbKey,
						"error":      err.Error(),
					}).Warn("Failed to roll back stored thumbnail")
				}
			},
		},
		{
			Name: "face_index",
			Cost: pipeline.CostFaceIndex,
			Run: func(ctx context.Context) error {
				var err error
				indexed, err = s.faces.IndexFace(ctx, thumbnail, info.EmployeeID)
				if err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "face_index", err)
				}
				return nil
			},
			Rollback: func(ctx context.Context) {
				if _, err := s.faces.DeleteFace(ctx, indexed.FaceID); err != nil {
					s.log.WithFields(logrus.Fields{
						"request_id": meta.RequestID,
						"face_id":    indexed.FaceID,
						"error":      err.Error(),
					}).Warn("Failed to roll back indexed face")
				}
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
			Name: "persist_record",
			Cost: pipeline.CostStorageWrite,
			Run: func(ctx context.Context) error {
				record := entity.EnrollmentRecord{
					EmployeeID:     info.EmployeeID,
					FaceID:         indexed.FaceID,
					EnrollmentDate: time.Now().UTC(),
					ThumbnailS3Key: thumbKey,
					IsActive:       true,
					FaceData:       faceMetadata(detail),
				}

				err := repo.Enrollments.Create(ctx, record)
				if errors.Is(err, auth.ErrEnrollmentExists) {
					converged = true
					return s.convergeToReEnroll(ctx, repo, record, meta)
				}
				if err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "persist_record", err)
				}
				return nil
			},
		},
	}

	runner := pipeline.NewRunner(budget, s.log)
	if err := runner.Execute(c, meta.RequestID, stages); err != nil {
		return auth.EnrollResponse{}, err
	}

	s.audit(entity.AuditEvent{
		Event:      entity.EventEnrollment,
		EmployeeID: info.EmployeeID,
		RequestID:  meta.RequestID,
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Details: map[string]interface{}{
			"face_id":   indexed.FaceID,
			"card_type": info.CardType,
			"converged": converged,
		},
	})

	return auth.EnrollResponse{
		Success:        true,
		EmployeeID:     info.EmployeeID,
		EmployeeName:   info.Name,
		FaceHandle:     indexed.FaceID,
		RequestID:      meta.RequestID,
		ProcessingTime: budget.ProcessingTime(),
	}, nil
}

// convergeToReEnroll resolves the enrollment-create conflict: the employee is
// already enrolled, so the freshly indexed face supersedes the stored one and
// the record converges to re-enroll semantics.
func (s *authService) convergeToReEnroll(ctx context.Context, repo authRepository.Client, record entity.EnrollmentRecord, meta auth.RequestMeta) error {
	existing, err := repo.Enrollments.GetByEmployeeID(ctx, record.EmployeeID)
	if err != nil {
		return pipeline.Fail(pipeline.KindGenericError, "persist_record", err)
	}
	if !existing.IsActive {
		return pipeline.Fail(pipeline.KindAccountDisabled, "persist_record", nil)
	}

	if _, err := s.faces.DeleteFace(ctx, existing.FaceID); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"face_id":    existing.FaceID,
			"error":      err.Error(),
		}).Warn("Failed to delete superseded face")
	}

	affected, err := repo.Enrollments.Update(ctx, record)
	if err != nil {
		return pipeline.Fail(pipeline.KindGenericError, "persist_record", err)
	}
	if affected == 0 {
		return pipeline.Fail(pipeline.KindAccountDisabled, "persist_record", nil)
	}

	return nil
}
