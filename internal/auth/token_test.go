package auth

import (
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/medconfirm/internal/model"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	token, err := m.Issue(&model.User{ID: "user-1", Role: model.RoleDependant})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	p, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if p.UserID != "user-1" || p.Role != model.RoleDependant {
		t.Errorf("Principal = %+v", p)
	}
}

func TestTokenManager_RejectsWrongSecret(t *testing.T) {
	token, _ := NewTokenManager("one", time.Hour).Issue(&model.User{ID: "u", Role: model.RoleCarer})
	if _, err := NewTokenManager("two", time.Hour).Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_RejectsExpired(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	issued := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }
	token, err := m.Issue(&model.User{ID: "u", Role: model.RoleCarer})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	m.now = func() time.Time { return issued.Add(time.Hour) }
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_RejectsUnknownRole(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	now := time.Now()
	claims := Claims{
		UserID: "u",
		Role:   "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaultIssuer,
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("SignedString failed: %v", err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify error = %v, want ErrInvalidToken", err)
	}
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	m := NewTokenManager("secret", time.Hour)
	for _, tok := range []string{"", "   ", "not.a.jwt"} {
		if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Verify(%q) error = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("pw123456")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	if ok, err := CheckPassword(hash, "pw123456"); !ok || err != nil {
		t.Errorf("CheckPassword(correct) = %v, %v", ok, err)
	}
	if ok, err := CheckPassword(hash, "nope"); ok || err != nil {
		t.Errorf("CheckPassword(wrong) = %v, %v", ok, err)
	}
	if _, err := CheckPassword("not-a-hash", "pw"); err == nil {
		t.Error("CheckPassword with malformed hash should error")
	}
}
