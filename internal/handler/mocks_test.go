package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/medconfirm/internal/auth"
	"github.com/hitoshi/medconfirm/internal/confirmation"
	"github.com/hitoshi/medconfirm/internal/medication"
	"github.com/hitoshi/medconfirm/internal/middleware"
	"github.com/hitoshi/medconfirm/internal/model"
)

// --- モック定義 ---

type mockVerifier struct{}

func (mockVerifier) VerifyToken(token string) (*model.Principal, error) {
	switch token {
	case "carer-token":
		return &model.Principal{UserID: "carer-1", Role: model.RoleCarer}, nil
	case "dependant-token":
		return &model.Principal{UserID: "dep-1", Role: model.RoleDependant}, nil
	}
	return nil, errors.New("invalid token")
}

type mockAuthService struct {
	registerFn func(ctx context.Context, in auth.RegisterInput) (*auth.Result, error)
	loginFn    func(ctx context.Context, email, password string) (*auth.Result, error)
}

func (m *mockAuthService) Register(ctx context.Context, in auth.RegisterInput) (*auth.Result, error) {
	if m.registerFn != nil {
		return m.registerFn(ctx, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Result, error) {
	if m.loginFn != nil {
		return m.loginFn(ctx, email, password)
	}
	return nil, errors.New("not implemented")
}

type mockMedicationService struct {
	createFn       func(ctx context.Context, carerID string, in medication.CreateInput) (*medication.Detail, error)
	replaceFn      func(ctx context.Context, carerID, medicationID string, schedules []model.ScheduleInput) error
	listMineFn     func(ctx context.Context, dependantID string) ([]medication.ScheduleView, error)
	listForCarerFn func(ctx context.Context, carerID, dependantID string) ([]medication.ScheduleView, error)
}

func (m *mockMedicationService) Create(ctx context.Context, carerID string, in medication.CreateInput) (*medication.Detail, error) {
	if m.createFn != nil {
		return m.createFn(ctx, carerID, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockMedicationService) ReplaceSchedule(ctx context.Context, carerID, medicationID string, schedules []model.ScheduleInput) error {
	if m.replaceFn != nil {
		return m.replaceFn(ctx, carerID, medicationID, schedules)
	}
	return errors.New("not implemented")
}

func (m *mockMedicationService) ListMine(ctx context.Context, dependantID string) ([]medication.ScheduleView, error) {
	if m.listMineFn != nil {
		return m.listMineFn(ctx, dependantID)
	}
	return nil, nil
}

func (m *mockMedicationService) ListForCarer(ctx context.Context, carerID, dependantID string) ([]medication.ScheduleView, error) {
	if m.listForCarerFn != nil {
		return m.listForCarerFn(ctx, carerID, dependantID)
	}
	return nil, nil
}

type mockRelationshipService struct {
	listFn func(ctx context.Context, carerID string) ([]*model.User, error)
	addFn  func(ctx context.Context, carerID, email string) (*model.User, error)
}

func (m *mockRelationshipService) ListDependants(ctx context.Context, carerID string) ([]*model.User, error) {
	if m.listFn != nil {
		return m.listFn(ctx, carerID)
	}
	return nil, nil
}

func (m *mockRelationshipService) AddDependantByEmail(ctx context.Context, carerID, email string) (*model.User, error) {
	if m.addFn != nil {
		return m.addFn(ctx, carerID, email)
	}
	return nil, errors.New("not implemented")
}

type mockConfirmationService struct {
	submitFn  func(ctx context.Context, dependantID string, in confirmation.SubmitInput) (*model.MedicationConfirmation, error)
	confirmFn func(ctx context.Context, carerID, confirmationID string, notes *string) (*model.MedicationConfirmation, error)
	pendingFn func(ctx context.Context, carerID string) ([]model.PendingConfirmation, error)
	recentFn  func(ctx context.Context, dependantID string) ([]model.RecentConfirmation, error)
}

func (m *mockConfirmationService) Submit(ctx context.Context, dependantID string, in confirmation.SubmitInput) (*model.MedicationConfirmation, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, dependantID, in)
	}
	return nil, errors.New("not implemented")
}

func (m *mockConfirmationService) Confirm(ctx context.Context, carerID, confirmationID string, notes *string) (*model.MedicationConfirmation, error) {
	if m.confirmFn != nil {
		return m.confirmFn(ctx, carerID, confirmationID, notes)
	}
	return nil, errors.New("not implemented")
}

func (m *mockConfirmationService) ListPendingForCarer(ctx context.Context, carerID string) ([]model.PendingConfirmation, error) {
	if m.pendingFn != nil {
		return m.pendingFn(ctx, carerID)
	}
	return nil, nil
}

func (m *mockConfirmationService) ListRecentForDependant(ctx context.Context, dependantID string) ([]model.RecentConfirmation, error) {
	if m.recentFn != nil {
		return m.recentFn(ctx, dependantID)
	}
	return nil, nil
}

type mockPhotoSaver struct {
	saveFn func(ctx context.Context, dependantID string, r io.Reader, size int64, contentType string) (string, error)
}

func (m *mockPhotoSaver) Save(ctx context.Context, dependantID string, r io.Reader, size int64, contentType string) (string, error) {
	return m.saveFn(ctx, dependantID, r, size, contentType)
}

type mockHealthChecker struct {
	err error
}

func (m *mockHealthChecker) PingContext(_ context.Context) error {
	return m.err
}

// --- ルーター構築ヘルパー ---

type testServices struct {
	auth          *mockAuthService
	medication    *mockMedicationService
	relationship  *mockRelationshipService
	confirmation  *mockConfirmationService
	photos        PhotoSaver
	healthChecker HealthChecker
}

func newTestServices() *testServices {
	return &testServices{
		auth:          &mockAuthService{},
		medication:    &mockMedicationService{},
		relationship:  &mockRelationshipService{},
		confirmation:  &mockConfirmationService{},
		healthChecker: &mockHealthChecker{},
	}
}

func (s *testServices) router(t *testing.T) http.Handler {
	t.Helper()
	rl := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rl.Stop)

	return NewRouter(&RouterDeps{
		Logger:              discardLogger(),
		TokenVerifier:       mockVerifier{},
		CORSAllowedOrigin:   "*",
		RateLimiter:         rl,
		HealthChecker:       s.healthChecker,
		AuthService:         s.auth,
		MedicationService:   s.medication,
		RelationshipService: s.relationship,
		ConfirmationService: s.confirmation,
		PhotoStore:          s.photos,
		PhotoMaxBytes:       1 << 20,
	})
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeBodyMap(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &m); err != nil {
		t.Fatalf("failed to decode body %q: %v", w.Body.String(), err)
	}
	return m
}

func assertStatusMessage(t *testing.T, w *httptest.ResponseRecorder, status int, message string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", w.Code, status, w.Body.String())
	}
	if message == "" {
		return
	}
	if got := decodeBodyMap(t, w)["message"]; got != message {
		t.Errorf("message = %v, want %q", got, message)
	}
}
