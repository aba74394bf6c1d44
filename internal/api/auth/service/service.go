package authService

import (
	"context"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"FaceAuthIdP/internal/api/auth"
	authRepository "FaceAuthIdP/internal/api/auth/repository"
	"FaceAuthIdP/internal/entity"
	"FaceAuthIdP/internal/pipeline"
	"FaceAuthIdP/pkg/cognito"
	"FaceAuthIdP/pkg/directory"
	"FaceAuthIdP/pkg/redis"
	"FaceAuthIdP/pkg/rekognition"
	"FaceAuthIdP/pkg/s3"
	"FaceAuthIdP/pkg/textract"
	"FaceAuthIdP/pkg/utils"

	"github.com/sirupsen/logrus"
)

// Face-detection quality gates for enroll and re-enroll probes.
const (
	faceDetectionMinConfidence = 90
	faceDetectionMinBrightness = 40
	faceDetectionMinSharpness  = 40
)

type AuthService interface {
	Enroll(c context.Context, req auth.EnrollRequest, meta auth.RequestMeta) (auth.EnrollResponse, error)
	Login(c context.Context, req auth.LoginRequest, meta auth.RequestMeta) (auth.LoginResponse, error)
	ReEnroll(c context.Context, req auth.ReEnrollRequest, meta auth.RequestMeta) (auth.ReEnrollResponse, error)
	Emergency(c context.Context, req auth.EmergencyRequest, meta auth.RequestMeta) (auth.EmergencyResponse, error)
	Status(c context.Context, req auth.StatusRequest) (auth.StatusResponse, error)
}

type authService struct {
	log     *logrus.Logger
	cfg     auth.Config
	repo    authRepository.Repository
	faces   rekognition.ItfRekognition
	ocr     textract.ItfTextract
	dir     directory.ItfDirectory
	issuer  cognito.ItfCognito
	store   s3.ItfS3
	limiter redis.IRedis
	utils   utils.IUtils
}

func New(
	log *logrus.Logger,
	cfg auth.Config,
	repo authRepository.Repository,
	faces rekognition.ItfRekognition,
	ocr textract.ItfTextract,
	dir directory.ItfDirectory,
	issuer cognito.ItfCognito,
	store s3.ItfS3,
	limiter redis.IRedis,
	utilsInstance utils.IUtils,
) AuthService {
	return &authService{
		log:     log,
		cfg:     cfg,
		repo:    repo,
		faces:   faces,
		ocr:     ocr,
		dir:     dir,
		issuer:  issuer,
		store:   store,
		limiter: limiter,
		utils:   utilsInstance,
	}
}

func decodeImage(encoded string) ([]byte, error) {
	if strings.HasPrefix(encoded, "data:") {
		if i := strings.IndexByte(encoded, ','); i >= 0 {
			encoded = encoded[i+1:]
		}
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
}

func faceMetadata(detail rekognition.FaceDetail) entity.FaceMetadata {
	return entity.FaceMetadata{
		Confidence: detail.Confidence,
		BoundingBox: entity.FaceBoundingBox{
			Width:  detail.BoundingBox.Width,
			Height: detail.BoundingBox.Height,
			Left:   detail.BoundingBox.Left,
			Top:    detail.BoundingBox.Top,
		},
		Brightness: detail.Brightness,
		Sharpness:  detail.Sharpness,
	}
}

func thumbnailMetadata(employeeID string, size int) map[string]string {
	return map[string]string{
		"employee_id":  employeeID,
		"image_type":   "face_thumbnail",
		"processed_at": time.Now().UTC().Format(time.RFC3339),
		"size":         strconv.Itoa(size),
	}
}

// detectSingleFace enforces the probe quality gates shared by enroll and
// re-enroll: exactly one face, bright and sharp enough to index.
func (s *authService) detectSingleFace(ctx context.Context, image []byte) (rekognition.FaceDetail, error) {
	detail, err := s.faces.DetectSingleFace(ctx, image)
	if err != nil {
		return rekognition.FaceDetail{}, pipeline.Fail(pipeline.KindGenericError, "face_detection", err)
	}

	if detail.FaceCount != 1 ||
		detail.Confidence < faceDetectionMinConfidence ||
		detail.Brightness < faceDetectionMinBrightness ||
		detail.Sharpness < faceDetectionMinSharpness {
		return rekognition.FaceDetail{}, pipeline.FailWithContext(pipeline.KindLivenessFailed, "face_detection", nil,
			map[string]interface{}{
				"face_count": detail.FaceCount,
				"confidence": detail.Confidence,
				"brightness": detail.Brightness,
				"sharpness":  detail.Sharpness,
			})
	}

	return detail, nil
}

// sweepExpiredSessions lazily reclaims rows whose expiry has passed. Reads
// already filter on expiry, so the sweep only frees storage; it piggybacks on
// session issuance and a failure never affects the login.
func (s *authService) sweepExpiredSessions(ctx context.Context, repo authRepository.Client, requestID string) {
	swept, err := repo.Sessions.DeleteExpired(ctx)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to sweep expired auth sessions")
		return
	}

	if swept > 0 {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"swept":      swept,
		}).Info("Removed expired auth sessions")
	}
}

func (s *authService) verifyAgainstDirectory(budget *pipeline.Budget, info entity.EmployeeInfo) error {
	result, err := s.dir.Verify(directory.DeadlineCtx{Deadline: budget.RemainingDirectory()}, info.EmployeeID, info.Name)
	if err != nil {
		return pipeline.Fail(pipeline.KindDirectoryConnectionFailed, "directory_verify", err)
	}
	if result.Disabled {
		return pipeline.Fail(pipeline.KindAccountDisabled, "directory_verify", nil)
	}
	if !result.OK {
		return pipeline.FailWithContext(pipeline.KindRegistrationInfoMismatch, "directory_verify", nil,
			map[string]interface{}{"reason": result.Reason, "employee_id": info.EmployeeID})
	}
	return nil
}
