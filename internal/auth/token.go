package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/hitoshi/medconfirm/internal/model"
)

const defaultIssuer = "medconfirm"

// ErrInvalidToken はトークンの検証に失敗したことを表す。
var ErrInvalidToken = errors.New("invalid token")

// Claims はアクセストークンに含めるクレーム。
type Claims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenManager はHS256署名のアクセストークンを発行・検証する。
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	issuer string
	leeway time.Duration
	now    func() time.Time
}

// NewTokenManager はTokenManagerを生成する。
func NewTokenManager(secret string, ttl time.Duration) *TokenManager {
	return &TokenManager{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: defaultIssuer,
		leeway: 30 * time.Second,
		now:    time.Now,
	}
}

// Issue はユーザーのアクセストークンを発行する。
func (m *TokenManager) Issue(user *model.User) (string, error) {
	if len(m.secret) == 0 {
		return "", errors.New("token secret not configured")
	}
	now := m.now().UTC()
	claims := Claims{
		UserID: user.ID,
		Role:   string(user.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify はトークンを検証し、認証主体を返す。
// 署名・有効期限・発行者・ロールのいずれかが不正な場合は ErrInvalidToken を返す。
func (m *TokenManager) Verify(token string) (*model.Principal, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(m.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.leeway),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	role, err := model.ParseRole(claims.Role)
	if err != nil || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return &model.Principal{UserID: claims.UserID, Role: role}, nil
}
