// Package auth はアカウント登録、ログイン、アクセストークンの発行と検証を提供する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/medconfirm/internal/model"
	"github.com/hitoshi/medconfirm/internal/repository"
)

// MinPasswordLength はパスワードの最小文字数。
const MinPasswordLength = 6

// RegisterInput はアカウント登録の入力。
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	Role     string
}

// Result は登録・ログイン成功時の結果。
type Result struct {
	Token string
	User  *model.User
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	userRepo repository.UserRepository
	tokens   *TokenManager
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, tokens *TokenManager) *Service {
	return &Service{
		userRepo: userRepo,
		tokens:   tokens,
		now:      time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register はアカウントを作成し、アクセストークンを発行する。
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Result, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	if email == "" || in.Password == "" || name == "" || in.Role == "" {
		return nil, model.NewValidationError("Email, password, name and role are required")
	}
	if !strings.Contains(email, "@") {
		return nil, model.NewValidationError("Email is invalid")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, model.NewValidationError(fmt.Sprintf("Password must be at least %d characters", MinPasswordLength))
	}
	role, err := model.ParseRole(in.Role)
	if err != nil {
		return nil, model.NewValidationError("Role must be either carer or dependant")
	}

	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if existing != nil {
		return nil, model.NewUserExistsError()
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	user := &model.User{
		ID:           uuid.New().String(),
		Email:        email,
		Name:         name,
		Role:         role,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewUserExistsError()
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}

	slog.Info("user registered",
		slog.String("user_id", user.ID),
		slog.String("role", string(user.Role)),
	)

	return &Result{Token: token, User: user}, nil
}

// Login はメールアドレスとパスワードを検証し、アクセストークンを発行する。
// ユーザーが存在しない場合とパスワード不一致は同じエラーになる。
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, model.NewValidationError("Email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	if user == nil {
		return nil, model.NewInvalidCredentialsError()
	}

	ok, err := CheckPassword(user.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.NewInvalidCredentialsError()
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	return &Result{Token: token, User: user}, nil
}

// VerifyToken はアクセストークンを検証する。ミドルウェアから利用される。
func (s *Service) VerifyToken(token string) (*model.Principal, error) {
	return s.tokens.Verify(token)
}
