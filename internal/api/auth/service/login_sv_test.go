package authService

import (
	"context"
	"net/http"
	"testing"
	"time"

	"FaceAuthIdP/internal/api/auth"
	"FaceAuthIdP/internal/entity"
	"FaceAuthIdP/internal/pipeline"
	"FaceAuthIdP/pkg/rekognition"
)

func pendingLivenessRow(sessionID string) entity.LivenessSession {
	now := time.Now().UTC()
	return entity.LivenessSession{
		SessionID:  sessionID,
		EmployeeID: "1234567",
		Status:     entity.LivenessStatusPending,
		CreatedAt:  now,
		ExpiresAt:  now.Add(10 * time.Minute),
	}
}

func TestLoginHappyPath(t *testing.T) {
	env := newTestEnv()
	env.enrollments.records["1234567"] = enrolledRecord("1234567", "face-old")
	env.liveness.rows["lv-1"] = pendingLivenessRow("lv-1")
	env.faces.matches = []rekognition.FaceMatch{
		{FaceID: "face-old", ExternalID: "1234567", Similarity: 98.4},
	}
	svc := env.service()

	res, err := svc.Login(context.Background(), auth.LoginRequest{
		FaceImage:         b64("face-probe"),
		LivenessSessionID: "lv-1",
	}, testMeta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.EmployeeID != "1234567" {
		t.Fatalf("unexpected employee %s", res.EmployeeID)
	}
	if res.AccessToken != "token-abc" {
		t.Fatalf("unexpected token %s", res.AccessToken)
	}
	if res.Similarity != 98.4 {
		t.Fatalf("unexpected similarity %f", res.Similarity)
	}

	if _, ok := env.sessions.sessions[res.SessionID]; !ok {
		t.Fatal("expected session to be persisted")
	}
	if env.liveness.recorded["lv-1"] != entity.LivenessStatusSuccess {
		t.Fatal("expected liveness outcome to be recorded as success")
	}
	if _, ok := env.enrollments.lastLoginSet["1234567"]; !ok {
		t.Fatal("expected last login to be touched")
	}
}

func TestLoginNoMatchStoresFailedProbe(t *testing.T) {
	env := newTestEnv()
	env.liveness.rows["lv-1"] = pendingLivenessRow("lv-1")
	env.faces.matches = nil
	svc := env.service()

	_, err := svc.Login(context.Background(), auth.LoginRequest{
		FaceImage:         b64("face-probe"),
		LivenessSessionID: "lv-1",
	}, testMeta())
	assertKind(t, err, pipeline.KindFaceNotFound)

	key := fakeUtils{}.FailedLoginKey(time.Now())
	if _, ok := env.store.objects[key]; !ok {
		t.Fatal("expected unmatched probe to be stored")
	}
	if len(env.sessions.sessions) != 0 {
		t.Fatal("expected no session")
	}
}

func TestLoginSimilarityExactlyAtThresholdRejected(t *testing.T) {
	env := newTestEnv()
	env.liveness.rows["lv-1"] = pendingLivenessRow("lv-1")
	env.faces.matches = []rekognition.FaceMatch{
		{FaceID: "face-old", ExternalID: "1234567", Similarity: 90},
	}
	svc := env.service()

	_, err := svc.Login(context.Background(), auth.LoginRequest{
		FaceImage:         b64("face-probe"),
		LivenessSessionID: "lv-1",
	}, testMeta())
	assertKind(t, err, pipeline.KindFaceNotFound)
}

func TestLoginLivenessConfidenceExactlyAtThresholdRejected(t *testing.T) {
	env := newTestEnv()
	env.liveness.rows["lv-1"] = pendingLivenessRow("lv-1")
	env.faces.livenessResult = rekognition.LivenessResult{
		Status:     rekognition.LivenessStatusSucceeded,
		Confidence: 90,
	}
	svc := env.service()

	_, err := svc.Login(context.Background(), auth.LoginRequest{
		FaceImage:         b64("face-probe"),
		LivenessSessionID: "lv-1",
	}, testMeta())
	assertKind(t, err, pipeline.KindLivenessFailed)

	if env.liveness.recorded["lv-1"] != entity.LivenessStatusFailed {
		t.Fatal("expected liveness outcome to be recorded as failed")
	}
}

func TestLoginUnknownLivenessSession(t *testing.T) {
	env := newTestEnv()
	svc := env.service()

	_, err := svc.Login(context.Background(), auth.LoginRequest{
		FaceImage:         b64("face-probe"),
		LivenessSessionID: "lv-missing",
	}, testMeta())
	pErr := assertKind(t, err, pipeline.KindInvalidRequest)
	if pErr.Status != http.StatusNotFound {
		t.Fatalf("expected 404 override, got %d", pErr.Status)
	}
}

func TestLoginExpiredLivenessSession(t *testing.T) {
	env := newTestEnv()
	row := pendingLivenessRow("lv-old")
	row.ExpiresAt = time.Now().Add(-time.Minute)
	env.liveness.rows["lv-old"] = row
	svc := env.service()

	_, err := svc.Login(context.Background(), auth.LoginRequest{
		FaceImage:         b64("face-probe"),
		LivenessSessionID: "lv-old",
	}, testMeta())
	pErr := assertKind(t, err, pipeline.KindTimeoutExceeded)
	if pErr.Status != http.StatusGone {
		t.Fatalf("expected 410 override, got %d", pErr.Status)
	}

	if len(env.liveness.expired) != 1 {
		t.Fatal("expected row to be marked expired")
	}
}

func TestLoginMatchedButDisabledAccount(t *testing.T) {
	env := newTestEnv()
	record := enrolledRecord("1234567", "face-old")
	record.IsActive = false
	env.enrollments.records["1234567"] = record
	env.liveness.rows["lv-1"] = pendingLivenessRow("lv-1")
	env.faces.matches = []rekognition.FaceMatch{
		{FaceID: "face-old", ExternalID: "1234567", Similarity: 97},
	}
	svc := env.service()

	_, err := svc.Login(context.Background(), auth.LoginRequest{
		FaceImage:         b64("face-probe"),
		LivenessSessionID: "lv-1",
	}, testMeta())
	assertKind(t, err, pipeline.KindAccountDisabled)
}

func TestLoginSweepsExpiredSessions(t *testing.T) {
	env := newTestEnv()
	env.enrollments.records["1234567"] = enrolledRecord("1234567", "face-old")
	env.liveness.rows["lv-1"] = pendingLivenessRow("lv-1")
	env.faces.matches = []rekognition.FaceMatch{
		{FaceID: "face-old", ExternalID: "1234567", Similarity: 98.4},
	}

	// A stale row from an earlier login; its token must not outlive the
	// expiry once someone logs in again.
	now := time.Now().UTC()
	env.sessions.sessions["sess-stale"] = entity.AuthSession{
		SessionID:   "sess-stale",
		EmployeeID:  "7654321",
		AuthMethod:  entity.AuthMethodFace,
		AccessToken: "token-stale",
		CreatedAt:   now.Add(-9 * time.Hour),
		ExpiresAt:   now.Add(-time.Hour),
	}
	svc := env.service()

	res, err := svc.Login(context.Background(), auth.LoginRequest{
		FaceImage:         b64("face-probe"),
		LivenessSessionID: "lv-1",
	}, testMeta())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if env.sessions.sweepCalls == 0 {
		t.Fatal("expected the expired-session sweep to run")
	}
	if _, ok := env.sessions.sessions["sess-stale"]; ok {
		t.Fatal("expected the stale session to be removed")
	}
	if _, ok := env.sessions.sessions[res.SessionID]; !ok {
		t.Fatal("expected the fresh session to survive the sweep")
	}
}
