package authService

import (
	"context"
	"errors"
	"testing"
	"time"

	"FaceAuthIdP/internal/api/auth"
	"FaceAuthIdP/internal/entity"
	"FaceAuthIdP/pkg/cognito"
)

func TestStatusRequiresAnIdentifier(t *testing.T) {
	env := newTestEnv()
	svc := env.service()

	_, err := svc.Status(context.Background(), auth.StatusRequest{})
	if !errors.Is(err, auth.ErrMissingIdentifier) {
		t.Fatalf("expected missing identifier error, got %v", err)
	}
}

func TestStatusWithValidSession(t *testing.T) {
	env := newTestEnv()
	env.enrollments.records["1234567"] = enrolledRecord("1234567", "face-old")

	now := time.Now().UTC()
	env.sessions.sessions["sess-1"] = entity.AuthSession{
		SessionID:  "sess-1",
		EmployeeID: "1234567",
		AuthMethod: entity.AuthMethodFace,
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}
	svc := env.service()

	res, err := svc.Status(context.Background(), auth.StatusRequest{SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.SessionValid || !res.AccountActive || !res.Authenticated {
		t.Fatalf("unexpected status %+v", res)
	}
	if res.EmployeeID != "1234567" {
		t.Fatalf("unexpected employee %s", res.EmployeeID)
	}
	if res.AuthMethod != entity.AuthMethodFace {
		t.Fatalf("unexpected auth method %s", res.AuthMethod)
	}
	if res.SessionExpiresAt == nil {
		t.Fatal("expected session expiry to be reported")
	}
}

func TestStatusExpiredSessionIsNotAuthenticated(t *testing.T) {
	env := newTestEnv()
	env.enrollments.records["1234567"] = enrolledRecord("1234567", "face-old")

	now := time.Now().UTC()
	env.sessions.sessions["sess-old"] = entity.AuthSession{
		SessionID:  "sess-old",
		EmployeeID: "1234567",
		ExpiresAt:  now.Add(-time.Minute),
	}
	svc := env.service()

	res, err := svc.Status(context.Background(), auth.StatusRequest{SessionID: "sess-old"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.SessionValid || res.Authenticated {
		t.Fatalf("expected unauthenticated status, got %+v", res)
	}
}

func TestStatusWithValidToken(t *testing.T) {
	env := newTestEnv()
	env.enrollments.records["1234567"] = enrolledRecord("1234567", "face-old")
	env.issuer.claims = cognito.Claims{
		Subject:   "1234567",
		ExpiresAt: time.Now().Add(time.Hour),
	}
	svc := env.service()

	res, err := svc.Status(context.Background(), auth.StatusRequest{AccessToken: "token-abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.TokenValid || !res.Authenticated {
		t.Fatalf("unexpected status %+v", res)
	}
	if res.TokenExpiresAt == nil {
		t.Fatal("expected token expiry to be reported")
	}
}

func TestStatusInvalidTokenTolerated(t *testing.T) {
	env := newTestEnv()
	env.issuer.validateErr = cognito.ErrInvalidToken
	svc := env.service()

	res, err := svc.Status(context.Background(), auth.StatusRequest{AccessToken: "garbage"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.TokenValid || res.Authenticated {
		t.Fatalf("expected invalid token status, got %+v", res)
	}
}

func TestStatusDisabledAccountBlocksAuthentication(t *testing.T) {
	env := newTestEnv()
	record := enrolledRecord("1234567", "face-old")
	record.IsActive = false
	env.enrollments.records["1234567"] = record

	now := time.Now().UTC()
	env.sessions.sessions["sess-1"] = entity.AuthSession{
		SessionID:  "sess-1",
		EmployeeID: "1234567",
		ExpiresAt:  now.Add(time.Hour),
	}
	svc := env.service()

	res, err := svc.Status(context.Background(), auth.StatusRequest{SessionID: "sess-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !res.SessionValid {
		t.Fatal("expected session to be valid")
	}
	if res.AccountActive || res.Authenticated {
		t.Fatalf("expected disabled account to block authentication, got %+v", res)
	}
}

func TestStatusEmployeeIDOnly(t *testing.T) {
	env := newTestEnv()
	record := enrolledRecord("1234567", "face-old")
	record.ReEnrollmentCount = 2
	env.enrollments.records["1234567"] = record
	svc := env.service()

	res, err := svc.Status(context.Background(), auth.StatusRequest{EmployeeID: "1234567"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Authenticated {
		t.Fatal("expected no authentication from employee id alone")
	}
	if !res.AccountActive {
		t.Fatal("expected account to be active")
	}
	if res.ReEnrollmentCount != 2 {
		t.Fatalf("unexpected count %d", res.ReEnrollmentCount)
	}
	if res.EnrollmentDate == nil {
		t.Fatal("expected enrollment date to be reported")
	}
}
