package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/medconfirm/internal/model"
)

// mockVerifier は固定のトークン表で検証するTokenVerifier。
type mockVerifier struct {
	tokens map[string]*model.Principal
}

func (m *mockVerifier) VerifyToken(token string) (*model.Principal, error) {
	if p, ok := m.tokens[token]; ok {
		return p, nil
	}
	return nil, errors.New("invalid token")
}

func testVerifier() *mockVerifier {
	return &mockVerifier{tokens: map[string]*model.Principal{
		"carer-token":     {UserID: "carer-1", Role: model.RoleCarer},
		"dependant-token": {UserID: "dep-1", Role: model.RoleDependant},
	}}
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func withPrincipal(req *http.Request, userID string, role model.Role) *http.Request {
	return req.WithContext(ContextWithPrincipal(req.Context(), &model.Principal{UserID: userID, Role: role}))
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body ErrorResponseBody
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return body.Message
}
