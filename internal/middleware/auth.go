// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/hitoshi/medconfirm/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// principalContextKey はリクエストコンテキストに認証主体を格納するためのキー。
var principalContextKey = contextKey("principal")

// TokenVerifier はアクセストークンを検証し、認証主体を返す。
type TokenVerifier interface {
	VerifyToken(token string) (*model.Principal, error)
}

// NewAuthMiddleware は Authorization: Bearer ヘッダーのトークンを検証し、
// 認証主体をリクエストコンテキストに注入するミドルウェアを返す。
// トークンが無ければ401、無効なら403を返す。
func NewAuthMiddleware(verifier TokenVerifier) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				WriteErrorResponse(w, http.StatusUnauthorized, "Access token required")
				return
			}

			principal, err := verifier.VerifyToken(token)
			if err != nil || principal == nil {
				WriteErrorResponse(w, http.StatusForbidden, "Invalid token")
				return
			}

			setLogPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// RequireRole は認証主体が指定ロールであることを要求するミドルウェアを返す。
// NewAuthMiddleware の後に配置する。
func RequireRole(role model.Role) func(next http.Handler) http.Handler {
	switch role {
	case model.RoleCarer, model.RoleDependant:
	default:
		panic(fmt.Sprintf("middleware: unknown role %q", role))
	}
	denied := fmt.Sprintf("Access denied. %s role required.", role)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, err := PrincipalFromContext(r.Context())
			if err != nil {
				WriteErrorResponse(w, http.StatusUnauthorized, "Access token required")
				return
			}
			if p.Role != role {
				WriteErrorResponse(w, http.StatusForbidden, denied)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext はリクエストコンテキストから認証主体を取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func PrincipalFromContext(ctx context.Context) (*model.Principal, error) {
	p, ok := ctx.Value(principalContextKey).(*model.Principal)
	if !ok || p == nil || p.UserID == "" {
		return nil, fmt.Errorf("principal not found in context")
	}
	return p, nil
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	p, err := PrincipalFromContext(ctx)
	if err != nil {
		return "", err
	}
	return p.UserID, nil
}

// ContextWithPrincipal はコンテキストに認証主体を注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey, p)
}
