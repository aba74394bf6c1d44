package authService

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"testing"
	"time"

	"FaceAuthIdP/internal/api/auth"
	authRepository "FaceAuthIdP/internal/api/auth/repository"
	"FaceAuthIdP/internal/entity"
	"FaceAuthIdP/internal/pipeline"
	"FaceAuthIdP/pkg/cognito"
	"FaceAuthIdP/pkg/directory"
	"FaceAuthIdP/pkg/rekognition"
	"FaceAuthIdP/pkg/s3"
	"FaceAuthIdP/pkg/textract"

	"github.com/sirupsen/logrus"
)

// --- repository fakes ---

type fakeTemplates struct {
	templates []entity.CardTemplate
	err       error
}

func (f *fakeTemplates) GetActive(_ context.Context) ([]entity.CardTemplate, error) {
	return f.templates, f.err
}

type fakeEnrollments struct {
	records       map[string]entity.EnrollmentRecord
	createErr     error
	updateErr     error
	lastLoginErr  error
	lastLoginSet  map[string]time.Time
	setActiveArgs map[string]bool
}

func newFakeEnrollments() *fakeEnrollments {
	return &fakeEnrollments{
		records:       make(map[string]entity.EnrollmentRecord),
		lastLoginSet:  make(map[string]time.Time),
		setActiveArgs: make(map[string]bool),
	}
}

func (f *fakeEnrollments) Create(_ context.Context, record entity.EnrollmentRecord) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, exists := f.records[record.EmployeeID]; exists {
		return auth.ErrEnrollmentExists
	}
	f.records[record.EmployeeID] = record
	return nil
}

func (f *fakeEnrollments) GetByEmployeeID(_ context.Context, employeeID string) (entity.EnrollmentRecord, error) {
	record, ok := f.records[employeeID]
	if !ok {
		return entity.EnrollmentRecord{}, auth.ErrEnrollmentNotFound
	}
	return record, nil
}

func (f *fakeEnrollments) Update(_ context.Context, record entity.EnrollmentRecord) (int, error) {
	if f.updateErr != nil {
		return 0, f.updateErr
	}
	existing, ok := f.records[record.EmployeeID]
	if !ok || !existing.IsActive {
		return 0, nil
	}
	existing.FaceID = record.FaceID
	existing.ThumbnailS3Key = record.ThumbnailS3Key
	existing.FaceData = record.FaceData
	existing.ReEnrollmentCount++
	f.records[record.EmployeeID] = existing
	return 1, nil
}

func (f *fakeEnrollments) UpdateLastLogin(_ context.Context, employeeID string, at time.Time) error {
	if f.lastLoginErr != nil {
		return f.lastLoginErr
	}
	f.lastLoginSet[employeeID] = at
	return nil
}

func (f *fakeEnrollments) SetActive(_ context.Context, employeeID string, active bool) error {
	f.setActiveArgs[employeeID] = active
	return nil
}

type fakeSessions struct {
	sessions   map[string]entity.AuthSession
	createErr  error
	sweepCalls int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: make(map[string]entity.AuthSession)}
}

func (f *fakeSessions) Create(_ context.Context, session entity.AuthSession) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.sessions[session.SessionID] = session
	return nil
}

func (f *fakeSessions) GetByID(_ context.Context, sessionID string) (entity.AuthSession, error) {
	session, ok := f.sessions[sessionID]
	if !ok || !session.Valid(time.Now()) {
		return entity.AuthSession{}, auth.ErrSessionNotFound
	}
	return session, nil
}

func (f *fakeSessions) Delete(_ context.Context, sessionID string) error {
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeSessions) DeleteExpired(_ context.Context) (int64, error) {
	f.sweepCalls++

	var swept int64
	now := time.Now()
	for id, session := range f.sessions {
		if !session.Valid(now) {
			delete(f.sessions, id)
			swept++
		}
	}
	return swept, nil
}

type fakeLiveness struct {
	rows     map[string]entity.LivenessSession
	recorded map[string]string
	expired  []string
}

func newFakeLiveness() *fakeLiveness {
	return &fakeLiveness{
		rows:     make(map[string]entity.LivenessSession),
		recorded: make(map[string]string),
	}
}

func (f *fakeLiveness) Create(_ context.Context, session entity.LivenessSession) error {
	f.rows[session.SessionID] = session
	return nil
}

func (f *fakeLiveness) GetByID(_ context.Context, sessionID string) (entity.LivenessSession, error) {
	row, ok := f.rows[sessionID]
	if !ok {
		return entity.LivenessSession{}, auth.ErrLivenessSessionNotFound
	}
	return row, nil
}

func (f *fakeLiveness) RecordResult(_ context.Context, sessionID, status string, _ float64, _ string) error {
	f.recorded[sessionID] = status
	return nil
}

func (f *fakeLiveness) MarkExpired(_ context.Context, sessionID string) error {
	f.expired = append(f.expired, sessionID)
	return nil
}

type fakeRepo struct {
	client authRepository.Client
	err    error
}

func (f *fakeRepo) NewClient(_ bool) (authRepository.Client, error) {
	return f.client, f.err
}

// --- upstream fakes ---

type fakeFaces struct {
	detail    rekognition.FaceDetail
	detectErr error

	indexed  rekognition.IndexedFace
	indexErr error

	matches   []rekognition.FaceMatch
	searchErr error

	deleted   []string
	deleteErr error

	livenessResult rekognition.LivenessResult
	livenessErr    error
	created        rekognition.LivenessSession
	createErr      error
}

func (f *fakeFaces) DetectSingleFace(_ context.Context, _ []byte) (rekognition.FaceDetail, error) {
	return f.detail, f.detectErr
}

func (f *fakeFaces) IndexFace(_ context.Context, _ []byte, _ string) (rekognition.IndexedFace, error) {
	return f.indexed, f.indexErr
}

func (f *fakeFaces) SearchFaces(_ context.Context, _ []byte, _ float64) ([]rekognition.FaceMatch, error) {
	return f.matches, f.searchErr
}

func (f *fakeFaces) DeleteFace(_ context.Context, faceID string) (bool, error) {
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	f.deleted = append(f.deleted, faceID)
	return true, nil
}

func (f *fakeFaces) DeleteFacesByExternalID(_ context.Context, _ string) (int, error) {
	return 0, nil
}

func (f *fakeFaces) CreateLivenessSession(_ context.Context) (rekognition.LivenessSession, error) {
	return f.created, f.createErr
}

func (f *fakeFaces) GetLivenessResult(_ context.Context, _ string) (rekognition.LivenessResult, error) {
	return f.livenessResult, f.livenessErr
}

type fakeOCR struct {
	results map[string]textract.FieldResult
	err     error
	calls   int
}

func (f *fakeOCR) AnalyzeCard(_ context.Context, _ []byte, _ []textract.Query) (map[string]textract.FieldResult, error) {
	f.calls++
	return f.results, f.err
}

type fakeDirectory struct {
	verifyResult directory.Result
	verifyErr    error
	verifyCalls  int

	authResult directory.Result
	authErr    error
	authCalls  int
}

func (f *fakeDirectory) Verify(_ directory.DeadlineCtx, _, _ string) (directory.Result, error) {
	f.verifyCalls++
	return f.verifyResult, f.verifyErr
}

func (f *fakeDirectory) Authenticate(_ directory.DeadlineCtx, _, _ string) (directory.Result, error) {
	f.authCalls++
	return f.authResult, f.authErr
}

type fakeIssuer struct {
	bundle      cognito.TokenBundle
	issueErr    error
	ensureErr   error
	claims      cognito.Claims
	validateErr error
}

func (f *fakeIssuer) EnsureSubject(_ context.Context, _, _ string) error {
	return f.ensureErr
}

func (f *fakeIssuer) IssueToken(_ context.Context, _ string) (cognito.TokenBundle, error) {
	return f.bundle, f.issueErr
}

func (f *fakeIssuer) ValidateToken(_ context.Context, _ string) (cognito.Claims, error) {
	if f.validateErr != nil {
		return cognito.Claims{}, f.validateErr
	}
	return f.claims, nil
}

func (f *fakeIssuer) RevokeAll(_ context.Context, _ string) error { return nil }

func (f *fakeIssuer) SetSubjectEnabled(_ context.Context, _ string, _ bool) error { return nil }

type fakeStore struct {
	objects map[string][]byte
	deleted []string
	putErr  map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects: make(map[string][]byte),
		putErr:  make(map[string]error),
	}
}

func (f *fakeStore) PutObject(_ context.Context, key string, body []byte, _ string, _ map[string]string) error {
	if err := f.putErr[key]; err != nil {
		return err
	}
	f.objects[key] = body
	return nil
}

func (f *fakeStore) DeleteObject(_ context.Context, key string) error {
	delete(f.objects, key)
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeStore) HeadObject(_ context.Context, _ string) (*s3.ObjectMeta, error) {
	return nil, nil
}

type fakeLimiter struct {
	allowed bool
	count   int64
	err     error
	calls   int
	resets  []string
}

func (f *fakeLimiter) CheckAndTick(_ context.Context, _ string, _ int64, _ time.Duration) (bool, int64, error) {
	f.calls++
	return f.allowed, f.count, f.err
}

func (f *fakeLimiter) Reset(_ context.Context, identifier string) error {
	f.resets = append(f.resets, identifier)
	return nil
}

type fakeUtils struct{}

func (fakeUtils) NewULIDFromTimestamp(_ time.Time) (string, error) {
	return "01JTESTULID0000000000000000", nil
}

func (fakeUtils) NewSessionID() string { return "session-0001" }

func (fakeUtils) BuildThumbnail(_ []byte) ([]byte, error) {
	return []byte("thumbnail-bytes"), nil
}

func (fakeUtils) ThumbnailKey(employeeID string) string {
	return "enroll/" + employeeID + "/face_thumbnail.jpg"
}

func (fakeUtils) FailedLoginKey(_ time.Time) string {
	return "logins/2026-01-01/20260101_000000_unknown_deadbeef.jpg"
}

// --- test environment ---

type testEnv struct {
	templates   *fakeTemplates
	enrollments *fakeEnrollments
	sessions    *fakeSessions
	liveness    *fakeLiveness
	faces       *fakeFaces
	ocr         *fakeOCR
	dir         *fakeDirectory
	issuer      *fakeIssuer
	store       *fakeStore
	limiter     *fakeLimiter
	cfg         auth.Config
}

func newTestEnv() *testEnv {
	return &testEnv{
		templates:   &fakeTemplates{templates: []entity.CardTemplate{standardTemplate()}},
		enrollments: newFakeEnrollments(),
		sessions:    newFakeSessions(),
		liveness:    newFakeLiveness(),
		faces: &fakeFaces{
			detail: rekognition.FaceDetail{
				FaceCount:  1,
				Confidence: 99.5,
				Brightness: 80,
				Sharpness:  75,
			},
			indexed:        rekognition.IndexedFace{FaceID: "face-new", Confidence: 99.5},
			livenessResult: rekognition.LivenessResult{Status: rekognition.LivenessStatusSucceeded, Confidence: 97.2},
		},
		ocr: &fakeOCR{results: map[string]textract.FieldResult{
			"employee_id": {Text: "1234567", Confidence: 0.95},
			"name":        {Text: "김철수", Confidence: 0.93},
		}},
		dir:     &fakeDirectory{verifyResult: directory.Result{OK: true}, authResult: directory.Result{OK: true}},
		issuer:  &fakeIssuer{bundle: cognito.TokenBundle{AccessToken: "token-abc"}},
		store:   newFakeStore(),
		limiter: &fakeLimiter{allowed: true, count: 1},
		cfg: auth.Config{
			SessionTimeout:              8 * time.Hour,
			LivenessSessionTimeout:      10 * time.Minute,
			LivenessConfidenceThreshold: 90,
			FaceMatchThreshold:          90,
			OCRConfidenceThreshold:      0.8,
			DirectoryTimeout:            10 * time.Second,
			OverallTimeout:              15 * time.Second,
			RateLimitMaxAttempts:        5,
			RateLimitWindow:             15 * time.Minute,
		},
	}
}

func (e *testEnv) service() AuthService {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	repo := &fakeRepo{client: authRepository.Client{
		Templates:   e.templates,
		Enrollments: e.enrollments,
		Sessions:    e.sessions,
		Liveness:    e.liveness,
		Commit:      func() error { return nil },
		Rollback:    func() error { return nil },
	}}

	return New(logger, e.cfg, repo, e.faces, e.ocr, e.dir, e.issuer, e.store, e.limiter, fakeUtils{})
}

func standardTemplate() entity.CardTemplate {
	return entity.CardTemplate{
		PatternID: "standard_v1",
		CardType:  "standard",
		IsActive:  true,
		Fields: entity.TemplateFields{
			{FieldName: "employee_id", QueryPhrase: "사번은 무엇입니까?", ExpectedFormat: `^[0-9]{7}$`, Required: true},
			{FieldName: "name", QueryPhrase: "성명은 무엇입니까?", Required: true},
			{FieldName: "department", QueryPhrase: "부서는 무엇입니까?"},
		},
		ConfidenceThreshold: 0.8,
	}
}

func enrolledRecord(employeeID, faceID string) entity.EnrollmentRecord {
	return entity.EnrollmentRecord{
		EmployeeID:     employeeID,
		FaceID:         faceID,
		EnrollmentDate: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC),
		ThumbnailS3Key: "enroll/" + employeeID + "/face_thumbnail.jpg",
		IsActive:       true,
	}
}

func b64(data string) string {
	return base64.StdEncoding.EncodeToString([]byte(data))
}

func testMeta() auth.RequestMeta {
	return auth.RequestMeta{RequestID: "req-0001", ClientIP: "10.0.0.9", UserAgent: "test-agent"}
}

func assertKind(t *testing.T, err error, kind pipeline.Kind) *pipeline.Error {
	t.Helper()
	var pErr *pipeline.Error
	if !errors.As(err, &pErr) {
		t.Fatalf("expected pipeline error, got %v", err)
	}
	if pErr.Kind != kind {
		t.Fatalf("expected kind %s, got %s", kind, pErr.Kind)
	}
	return pErr
}
