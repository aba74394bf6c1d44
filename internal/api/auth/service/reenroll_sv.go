package authService

import (
	"context"
	"errors"
	"net/http"

	"FaceAuthIdP/internal/api/auth"
	"FaceAuthIdP/internal/entity"
	"FaceAuthIdP/internal/pipeline"
	"FaceAuthIdP/pkg/directory"
	"FaceAuthIdP/pkg/rekognition"

	"github.com/sirupsen/logrus"
)

func (s *authService) ReEnroll(c context.Context, req auth.ReEnrollRequest, meta auth.RequestMeta) (auth.ReEnrollResponse, error) {
	budget := pipeline.NewBudget(s.cfg.OverallTimeout, s.cfg.DirectoryTimeout)

	cardImage, err := decodeImage(req.IDCardImage)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"error":      err.Error(),
		}).Warn("Failed to decode card image")
		return auth.ReEnrollResponse{}, auth.ErrInvalidImageEncoding
	}

	faceImage, err := decodeImage(req.FaceImage)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"error":      err.Error(),
		}).Warn("Failed to decode face image")
		return auth.ReEnrollResponse{}, auth.ErrInvalidImageEncoding
	}

	repo, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": meta.RequestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return auth.ReEnrollResponse{}, err
	}

	var (
		info      entity.EmployeeInfo
		existing  entity.EnrollmentRecord
		detail    rekognition.FaceDetail
		thumbnail []byte
		thumbKey  string
		indexed   rekognition.IndexedFace
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
			// Directory verification degrades gracefully here: a transport
			// failure is logged and the flow proceeds, while an explicit
			// disabled or mismatch verdict still aborts.
			Name: "directory_verify",
			Cost: pipeline.CostDirectory,
			Run: func(ctx context.Context) error {
				result, err := s.dir.Verify(directory.DeadlineCtx{Deadline: budget.RemainingDirectory()}, info.EmployeeID, info.Name)
				if err != nil {
					s.log.WithFields(logrus.Fields{
						"request_id":  meta.RequestID,
						"employee_id": info.EmployeeID,
						"error":       err.Error(),
					}).Warn("Directory unreachable during re-enroll, proceeding")
					return nil
				}
				if result.Disabled {
					return pipeline.Fail(pipeline.KindAccountDisabled, "directory_verify", nil)
				}
				if !result.OK {
					return pipeline.FailWithContext(pipeline.KindRegistrationInfoMismatch, "directory_verify", nil,
						map[string]interface{}{"reason": result.Reason, "employee_id": info.EmployeeID})
				}
				return nil
			},
		},
		{
			Name: "enrollment_check",
			Cost: pipeline.CostStorageWrite,
			Run: func(ctx context.Context) error {
				var err error
				existing, err = repo.Enrollments.GetByEmployeeID(ctx, info.EmployeeID)
				if errors.Is(err, auth.ErrEnrollmentNotFound) {
					return &pipeline.Error{
						Kind:   pipeline.KindInvalidRequest,
						Op:     "enrollment_check",
						Err:    err,
						Status: http.StatusNotFound,
					}
				}
				if err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "enrollment_check", err)
				}
				if !existing.IsActive {
					return pipeline.Fail(pipeline.KindAccountDisabled, "enrollment_check", nil)
				}
				return nil
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
			// The old face goes first so a crash between delete and index
			// never leaves two faces for one employee. The record still
			// carries the old handle until the final update.
			Name: "delete_old_face",
			Cost: pipeline.CostStorageWrite,
			Run: func(ctx context.Context) error {
				if _, err := s.faces.DeleteFace(ctx, existing.FaceID); err != nil {
					s.log.WithFields(logrus.Fields{
						"request_id": meta.RequestID,
						"face_id":    existing.FaceID,
						"error":      err.Error(),
					}).Warn("Failed to delete old face, new face will supersede")
				}
				return nil
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
			Name: "thumbnail_store",
			Cost: pipeline.CostStorageWrite,
			Run: func(ctx context.Context) error {
				thumbKey = s.utils.ThumbnailKey(info.EmployeeID)
				if err := s.store.PutObject(ctx, thumbKey, thumbnail, "image/jpeg", thumbnailMetadata(info.EmployeeID, len(thumbnail))); err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "thumbnail_store", err)
				}
				return nil
			},
		},
		{
			Name: "update_record",
			Cost: pipeline.CostStorageWrite,
			Run: func(ctx context.Context) error {
				record := entity.EnrollmentRecord{
					EmployeeID:     info.EmployeeID,
					FaceID:         indexed.FaceID,
					ThumbnailS3Key: thumbKey,
					FaceData:       faceMetadata(detail),
				}

				affected, err := repo.Enrollments.Update(ctx, record)
				if err != nil {
					return pipeline.Fail(pipeline.KindGenericError, "update_record", err)
				}
				if affected == 0 {
					return pipeline.Fail(pipeline.KindAccountDisabled, "update_record", nil)
				}
				return nil
			},
		},
	}

	runner := pipeline.NewRunner(budget, s.log)
	if err := runner.Execute(c, meta.RequestID, stages); err != nil {
		return auth.ReEnrollResponse{}, err
	}

	newCount := existing.ReEnrollmentCount + 1

	s.audit(entity.AuditEvent{
		Event:      entity.EventReEnrollment,
		EmployeeID: info.EmployeeID,
		RequestID:  meta.RequestID,
		ClientIP:   meta.ClientIP,
		UserAgent:  meta.UserAgent,
		Details: map[string]interface{}{
			"old_face_id":         existing.FaceID,
			"new_face_id":         indexed.FaceID,
			"re_enrollment_count": newCount,
		},
	})

	return auth.ReEnrollResponse{
		Success:           true,
		EmployeeID:        info.EmployeeID,
		OldFaceHandle:     existing.FaceID,
		NewFaceHandle:     indexed.FaceID,
		ReEnrollmentCount: newCount,
		ProcessingTime:    budget.ProcessingTime(),
	}, nil
}
