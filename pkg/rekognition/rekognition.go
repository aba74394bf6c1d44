package rekognition

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/rekognition"
)

type FaceDetail struct {
	FaceCount   int
	Confidence  float64
	Brightness  float64
	Sharpness   float64
	BoundingBox BoundingBox
}

type BoundingBox struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
}

type IndexedFace struct {
	FaceID      string
	Confidence  float64
	BoundingBox BoundingBox
}

type FaceMatch struct {
	FaceID     string
	ExternalID string
	Similarity float64
}

type LivenessSession struct {
	SessionID string
}

type LivenessResult struct {
	Status            string
	Confidence        float64
	ReferenceImageKey string
	AuditImageKeys    []string
}

type ItfRekognition interface {
	DetectSingleFace(ctx context.Context, image []byte) (FaceDetail, error)
	IndexFace(ctx context.Context, image []byte, externalID string) (IndexedFace, error)
	SearchFaces(ctx context.Context, image []byte, threshold float64) ([]FaceMatch, error)
	DeleteFace(ctx context.Context, faceID string) (bool, error)
	DeleteFacesByExternalID(ctx context.Context, externalID string) (int, error)
	CreateLivenessSession(ctx context.Context) (LivenessSession, error)
	GetLivenessResult(ctx context.Context, sessionID string) (LivenessResult, error)
}

type rekognitionClient struct {
	client       *rekognition.Rekognition
	collectionID string
	auditBucket  string
}

func New() (ItfRekognition, error) {
	sess, err := newSession()
	if err != nil {
		return nil, err
	}

	return &rekognitionClient{
		client:       rekognition.New(sess),
		collectionID: os.Getenv("FACE_COLLECTION_ID"),
		auditBucket:  os.Getenv("AWS_BUCKET_NAME"),
	}, nil
}

func newSession() (*session.Session, error) {
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "ap-northeast-2"
	}

	cfg := aws.NewConfig().WithRegion(region)
	if os.Getenv("AWS_ACCESS_KEY_ID") != "" {
		cfg = cfg.WithCredentials(credentials.NewStaticCredentials(
			os.Getenv("AWS_ACCESS_KEY_ID"),
			os.Getenv("AWS_SECRET_ACCESS_KEY"),
			"",
		))
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return sess, nil
}

func (r *rekognitionClient) DetectSingleFace(ctx context.Context, image []byte) (FaceDetail, error) {
	out, err := r.client.DetectFacesWithContext(ctx, &rekognition.DetectFacesInput{
		Image:      &rekognition.Image{Bytes: image},
		Attributes: aws.StringSlice([]string{rekognition.AttributeAll}),
	})
	if err != nil {
		return FaceDetail{}, fmt.Errorf("failed to detect faces: %w", err)
	}

	detail := FaceDetail{FaceCount: len(out.FaceDetails)}
	if len(out.FaceDetails) == 0 {
		return detail, nil
	}

	fd := out.FaceDetails[0]
	detail.Confidence = aws.Float64Value(fd.Confidence)
	if fd.Quality != nil {
		detail.Brightness = aws.Float64Value(fd.Quality.Brightness)
		detail.Sharpness = aws.Float64Value(fd.Quality.Sharpness)
	}
	if fd.BoundingBox != nil {
		detail.BoundingBox = BoundingBox{
			Width:  aws.Float64Value(fd.BoundingBox.Width),
			Height: aws.Float64Value(fd.BoundingBox.Height),
			Left:   aws.Float64Value(fd.BoundingBox.Left),
			Top:    aws.Float64Value(fd.BoundingBox.Top),
		}
	}

	return detail, nil
}

func (r *rekognitionClient) IndexFace(ctx context.Context, image []byte, externalID string) (IndexedFace, error) {
	out, err := r.client.IndexFacesWithContext(ctx, &rekognition.IndexFacesInput{
		CollectionId:    aws.String(r.collectionID),
		Image:           &rekognition.Image{Bytes: image},
		ExternalImageId: aws.String(externalID),
		MaxFaces:        aws.Int64(1),
		QualityFilter:   aws.String(rekognition.QualityFilterAuto),
	})
	if err != nil {
		return IndexedFace{}, fmt.Errorf("failed to index face: %w", err)
	}

	if len(out.FaceRecords) == 0 {
		return IndexedFace{}, fmt.Errorf("no face indexed for %s", externalID)
	}

	face := out.FaceRecords[0].Face
	indexed := IndexedFace{
		FaceID:     aws.StringValue(face.FaceId),
		Confidence: aws.Float64Value(face.Confidence),
	}
	if face.BoundingBox != nil {
		indexed.BoundingBox = BoundingBox{
			Width:  aws.Float64Value(face.BoundingBox.Width),
			Height: aws.Float64Value(face.BoundingBox.Height),
			Left:   aws.Float64Value(face.BoundingBox.Left),
			Top:    aws.Float64Value(face.BoundingBox.Top),
		}
	}

	return indexed, nil
}

// SearchFaces runs a 1:N probe against the collection. Matches come back
// sorted by similarity, best first.
func (r *rekognitionClient) SearchFaces(ctx context.Context, image []byte, threshold float64) ([]FaceMatch, error) {
	out, err := r.client.SearchFacesByImageWithContext(ctx, &rekognition.SearchFacesByImageInput{
		CollectionId:       aws.String(r.collectionID),
		Image:              &rekognition.Image{Bytes: image},
		FaceMatchThreshold: aws.Float64(threshold),
		MaxFaces:           aws.Int64(5),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == rekognition.ErrCodeInvalidParameterException {
			// No face found in the probe image.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to search faces: %w", err)
	}

	matches := make([]FaceMatch, 0, len(out.FaceMatches))
	for _, m := range out.FaceMatches {
		if m.Face == nil {
			continue
		}
		matches = append(matches, FaceMatch{
			FaceID:     aws.StringValue(m.Face.FaceId),
			ExternalID: aws.StringValue(m.Face.ExternalImageId),
			Similarity: aws.Float64Value(m.Similarity),
		})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })

	return matches, nil
}

func (r *rekognitionClient) DeleteFace(ctx context.Context, faceID string) (bool, error) {
	out, err := r.client.DeleteFacesWithContext(ctx, &rekognition.DeleteFacesInput{
		CollectionId: aws.String(r.collectionID),
		FaceIds:      aws.StringSlice([]string{faceID}),
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete face %s: %w", faceID, err)
	}

	return len(out.DeletedFaces) > 0, nil
}

func (r *rekognitionClient) DeleteFacesByExternalID(ctx context.Context, externalID string) (int, error) {
	var faceIDs []*string

	input := &rekognition.ListFacesInput{CollectionId: aws.String(r.collectionID)}
	for {
		out, err := r.client.ListFacesWithContext(ctx, input)
		if err != nil {
			return 0, fmt.Errorf("failed to list faces: %w", err)
		}

		for _, f := range out.Faces {
			if aws.StringValue(f.ExternalImageId) == externalID {
				faceIDs = append(faceIDs, f.FaceId)
			}
		}

		if out.NextToken == nil {
			break
		}
		input.NextToken = out.NextToken
	}

	if len(faceIDs) == 0 {
		return 0, nil
	}

	out, err := r.client.DeleteFacesWithContext(ctx, &rekognition.DeleteFacesInput{
		CollectionId: aws.String(r.collectionID),
		FaceIds:      faceIDs,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to delete faces for %s: %w", externalID, err)
	}

	return len(out.DeletedFaces), nil
}

func (r *rekognitionClient) CreateLivenessSession(ctx context.Context) (LivenessSession, error) {
	input := &rekognition.CreateFaceLivenessSessionInput{}
	if r.auditBucket != "" {
		input.Settings = &rekognition.CreateFaceLivenessSessionRequestSettings{
			OutputConfig: &rekognition.LivenessOutputConfig{
				S3Bucket:    aws.String(r.auditBucket),
				S3KeyPrefix: aws.String("liveness-audit/"),
			},
			AuditImagesLimit: aws.Int64(2),
		}
	}

	out, err := r.client.CreateFaceLivenessSessionWithContext(ctx, input)
	if err != nil {
		return LivenessSession{}, fmt.Errorf("failed to create liveness session: %w", err)
	}

	return LivenessSession{SessionID: aws.StringValue(out.SessionId)}, nil
}

func (r *rekognitionClient) GetLivenessResult(ctx context.Context, sessionID string) (LivenessResult, error) {
	out, err := r.client.GetFaceLivenessSessionResultsWithContext(ctx, &rekognition.GetFaceLivenessSessionResultsInput{
		SessionId: aws.String(sessionID),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == rekognition.ErrCodeSessionNotFoundException {
			return LivenessResult{}, ErrSessionNotFound
		}
		return LivenessResult{}, fmt.Errorf("failed to get liveness result: %w", err)
	}

	result := LivenessResult{
		Status:     aws.StringValue(out.Status),
		Confidence: aws.Float64Value(out.Confidence),
	}
	if out.ReferenceImage != nil && out.ReferenceImage.S3Object != nil {
		result.ReferenceImageKey = aws.StringValue(out.ReferenceImage.S3Object.Name)
	}
	for _, img := range out.AuditImages {
		if img.S3Object != nil {
			result.AuditImageKeys = append(result.AuditImageKeys, aws.StringValue(img.S3Object.Name))
		}
	}

	return result, nil
}
