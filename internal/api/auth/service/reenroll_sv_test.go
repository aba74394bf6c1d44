package authService

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"FaceAuthIdP/internal/api/auth"
	"FaceAuthIdP/internal/pipeline"
)

func TestReEnrollHappyPath(t *testing.T) {
	env := newTestEnv()
	env.enrollments.records["1234567"] = enrolledRecord("1234567", "face-old")
	svc := env.service()

	res, err := svc.ReEnroll(context.Background(), auth.ReEnrollRequest{
		IDCardImage: b64("card-image"),
		FaceImage:   b64("face-image"),
	}, testMeta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.OldFaceHandle != "face-old" || res.NewFaceHandle != "face-new" {
		t.Fatalf("unexpected handles %s -> %s", res.OldFaceHandle, res.NewFaceHandle)
	}
	if res.ReEnrollmentCount != 1 {
		t.Fatalf("expected count 1, got %d", res.ReEnrollmentCount)
	}

	record := env.enrollments.records["1234567"]
	if record.FaceID != "face-new" {
		t.Fatalf("expected record to carry new face, got %s", record.FaceID)
	}
	if record.ReEnrollmentCount != 1 {
		t.Fatalf("expected stored count 1, got %d", record.ReEnrollmentCount)
	}
	if !record.EnrollmentDate.Equal(time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)) {
		t.Fatal("expected original enrollment date to be preserved")
	}

	deletedOld := false
	for _, id := range env.faces.deleted {
		if id == "face-old" {
			deletedOld = true
		}
	}
	if !deletedOld {
		t.Fatal("expected old face to be deleted")
	}
}

func TestReEnrollProceedsWhenDirectoryUnreachable(t *testing.T) {
	env := newTestEnv()
	env.enrollments.records["1234567"] = enrolledRecord("1234567", "face-old")
	env.dir.verifyErr = errors.New("dial tcp: timeout")
	svc := env.service()

	res, err := svc.ReEnroll(context.Background(), auth.ReEnrollRequest{
		IDCardImage: b64("card-image"),
		FaceImage:   b64("face-image"),
	}, testMeta())
	if err != nil {
		t.Fatalf("expected lenient directory handling, got %v", err)
	}
	if !res.Success {
		t.Fatal("expected success")
	}
}

func TestReEnrollStillAbortsOnDirectoryMismatch(t *testing.T) {
	env := newTestEnv()
	env.enrollments.records["1234567"] = enrolledRecord("1234567", "face-old")
	env.dir.verifyResult.OK = false
	env.dir.verifyResult.Reason = "mismatch"
	svc := env.service()

	_, err := svc.ReEnroll(context.Background(), auth.ReEnrollRequest{
		IDCardImage: b64("card-image"),
		FaceImage:   b64("face-image"),
	}, testMeta())
	assertKind(t, err, pipeline.KindRegistrationInfoMismatch)
}

func TestReEnrollWithoutExistingEnrollment(t *testing.T) {
	env := newTestEnv()
	svc := env.service()

	_, err := svc.ReEnroll(context.Background(), auth.ReEnrollRequest{
		IDCardImage: b64("card-image"),
		FaceImage:   b64("face-image"),
	}, testMeta())
	pErr := assertKind(t, err, pipeline.KindInvalidRequest)
	if pErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 override, got %d", pErr.Status)
	}
}

func TestReEnrollDisabledAccount(t *testing.T) {
	env := newTestEnv()
	record := enrolledRecord("1234567", "face-old")
	record.IsActive = false
	env.enrollments.records["1234567"] = record
	svc := env.service()

	_, err := svc.ReEnroll(context.Background(), auth.ReEnrollRequest{
		IDCardImage: b64("card-image"),
		FaceImage:   b64("face-image"),
	}, testMeta())
	assertKind(t, err, pipeline.KindAccountDisabled)
}

func TestReEnrollIndexFailureKeepsFlowAborted(t *testing.T) {
	env := newTestEnv()
	env.enrollments.records["1234567"] = enrolledRecord("1234567", "face-old")
	env.faces.indexErr = errors.New("collection unavailable")
	svc := env.service()

	_, err := svc.ReEnroll(context.Background(), auth.ReEnrollRequest{
		IDCardImage: b64("card-image"),
		FaceImage:   b64("face-image"),
	}, testMeta())
	assertKind(t, err, pipeline.KindGenericError)

	record := env.enrollments.records["1234567"]
	if record.FaceID != "face-old" {
		t.Fatalf("expected record untouched, got %s", record.FaceID)
	}
	if record.ReEnrollmentCount != 0 {
		t.Fatal("expected count untouched")
	}
}
