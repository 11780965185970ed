// Package relationship は介護者と被介護者の紐付けを扱うサービスを提供する。
package relationship

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

// Service は介護関係のサービス層。
type Service struct {
	userRepo repository.UserRepository
	relRepo  repository.RelationshipRepository
	now      func() time.Time
}

// NewService はServiceを生成する。
func NewService(userRepo repository.UserRepository, relRepo repository.RelationshipRepository) *Service {
	return &Service{userRepo: userRepo, relRepo: relRepo, now: time.Now}
}

// ListDependants は介護者に紐付く被介護者を名前順で返す。
func (s *Service) ListDependants(ctx context.Context, carerID string) ([]*model.User, error) {
	users, err := s.relRepo.ListDependants(ctx, carerID)
	if err != nil {
		return nil, fmt.Errorf("被介護者一覧の取得に失敗しました: %w", err)
	}
	return users, nil
}

// AddDependantByEmail はメールアドレスで被介護者を探し、介護者に紐付ける。
// 該当ユーザーがいない場合や介護者アカウントの場合は NotFound となる。
func (s *Service) AddDependantByEmail(ctx context.Context, carerID, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, model.NewValidationError("Dependant email is required")
	}

	dependant, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの検索に失敗しました: %w", err)
	}
	if dependant == nil || dependant.Role != model.RoleDependant {
		return nil, model.NewDependantNotFoundError()
	}

	exists, err := s.relRepo.Exists(ctx, carerID, dependant.ID)
	if err != nil {
		return nil, fmt.Errorf("介護関係の確認に失敗しました: %w", err)
	}
	if exists {
		return nil, model.NewRelationshipExistsError()
	}

	rel := &model.Relationship{
		ID:          uuid.New().String(),
		CarerID:     carerID,
		DependantID: dependant.ID,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.relRepo.Create(ctx, rel); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.NewRelationshipExistsError()
		}
		return nil, fmt.Errorf("介護関係の作成に失敗しました: %w", err)
	}

	slog.Info("dependant linked",
		slog.String("carer_id", carerID),
		slog.String("dependant_id", dependant.ID),
	)
	return dependant, nil
}
