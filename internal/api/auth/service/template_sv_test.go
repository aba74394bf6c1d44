package authService

import (
	"context"
	"testing"

	"FaceAuthIdP/internal/api/auth"
	"FaceAuthIdP/internal/entity"
	"FaceAuthIdP/internal/pipeline"
	"FaceAuthIdP/pkg/textract"
)

func TestResolveCardSkipsMalformedTemplate(t *testing.T) {
	env := newTestEnv()
	broken := standardTemplate()
	broken.PatternID = "broken_v1"
	broken.Fields = entity.TemplateFields{
		{FieldName: "note", QueryPhrase: "비고"}, // no required fields
	}
	env.templates.templates = []entity.CardTemplate{broken, standardTemplate()}
	svc := env.service()

	res, err := svc.Enroll(context.Background(), auth.EnrollRequest{
		IDCardImage: b64("card-image"),
		FaceImage:   b64("face-image"),
	}, testMeta())
	if err != nil {
		t.Fatalf("expected fallback to the valid template, got %v", err)
	}
	if res.EmployeeID != "1234567" {
		t.Fatalf("unexpected employee %s", res.EmployeeID)
	}
}

func TestResolveCardNoActiveTemplates(t *testing.T) {
	env := newTestEnv()
	env.templates.templates = nil
	svc := env.service()

	_, err := svc.Enroll(context.Background(), auth.EnrollRequest{
		IDCardImage: b64("card-image"),
		FaceImage:   b64("face-image"),
	}, testMeta())
	assertKind(t, err, pipeline.KindCardFormatMismatch)
}

func TestResolveCardLowFieldConfidenceDisqualifies(t *testing.T) {
	env := newTestEnv()
	env.ocr.results = map[string]textract.FieldResult{
		"employee_id": {Text: "1234567", Confidence: 0.6}, // below per-field gate
		"name":        {Text: "김철수", Confidence: 0.95},
	}
	svc := env.service()

	_, err := svc.Enroll(context.Background(), auth.EnrollRequest{
		IDCardImage: b64("card-image"),
		FaceImage:   b64("face-image"),
	}, testMeta())
	assertKind(t, err, pipeline.KindCardFormatMismatch)
}

func TestResolveCardUnsupportedDocumentTriesNextTemplate(t *testing.T) {
	env := newTestEnv()
	env.ocr.err = textract.ErrUnsupportedDocument
	svc := env.service()

	_, err := svc.Enroll(context.Background(), auth.EnrollRequest{
		IDCardImage: b64("card-image"),
		FaceImage:   b64("face-image"),
	}, testMeta())
	assertKind(t, err, pipeline.KindCardFormatMismatch)

	if env.ocr.calls != 1 {
		t.Fatalf("expected one OCR attempt, got %d", env.ocr.calls)
	}
}

func TestBuildEmployeeInfoOptionalFieldBonus(t *testing.T) {
	env := newTestEnv()
	env.ocr.results = map[string]textract.FieldResult{
		"employee_id": {Text: "1234567", Confidence: 0.95},
		"name":        {Text: "김철수", Confidence: 0.93},
		"department":  {Text: "정보보안팀", Confidence: 0.91},
	}
	svc := env.service().(*authService)

	info, ok := svc.buildEmployeeInfo(standardTemplate(), env.ocr.results)
	if !ok {
		t.Fatal("expected template to match")
	}
	if info.Department != "정보보안팀" {
		t.Fatalf("unexpected department %s", info.Department)
	}
	if info.ExtractionConfidence != 1 {
		t.Fatalf("expected capped confidence 1.0, got %f", info.ExtractionConfidence)
	}
}
