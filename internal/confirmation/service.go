// Package confirmation は服薬写真の提出と介護者による承認のドメインロジックを提供する。
//
// 服薬確認は「未承認」から「承認済み」への一方向にのみ遷移する。
package confirmation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/medconfirm/internal/metrics"
	"github.com/hitoshi/medconfirm/internal/model"
	"github.com/hitoshi/medconfirm/internal/repository"
	"github.com/hitoshi/medconfirm/internal/security"
	"github.com/hitoshi/medconfirm/internal/storage"
)

// RecentWindow は直近の承認済み服薬として返す期間。
const RecentWindow = 24 * time.Hour

// PhotoURLSigner は保存済み写真の閲覧用URLを発行する。
type PhotoURLSigner interface {
	// OwnsPath は写真参照がこのストレージで管理されているかを返す。
	OwnsPath(photoPath string) bool
	// PresignGet は写真参照に対する期限付きURLを返す。
	PresignGet(ctx context.Context, photoPath string) (string, error)
}

// SubmitInput は服薬写真の提出内容。
type SubmitInput struct {
	MedicationID string
	ScheduleID   *string
	PhotoPath    string
}

// Service は服薬確認のサービス層。
type Service struct {
	confirmRepo repository.ConfirmationRepository
	medRepo     repository.MedicationRepository
	signer      PhotoURLSigner
	sanitizer   security.TextSanitizer
	metrics     metrics.MetricsCollector
	now         func() time.Time
}

// NewService はServiceを生成する。signerはnilでもよい（写真参照をそのまま返す）。
func NewService(
	confirmRepo repository.ConfirmationRepository,
	medRepo repository.MedicationRepository,
	signer PhotoURLSigner,
	sanitizer security.TextSanitizer,
	m metrics.MetricsCollector,
) *Service {
	if m == nil {
		m = metrics.Noop{}
	}
	return &Service{
		confirmRepo: confirmRepo,
		medRepo:     medRepo,
		signer:      signer,
		sanitizer:   sanitizer,
		metrics:     m,
		now:         time.Now,
	}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// Submit は被介護者の服薬写真を未承認の服薬確認として記録する。
// 同じ薬・同じ日の提出が既にあっても受け付ける。
func (s *Service) Submit(ctx context.Context, dependantID string, in SubmitInput) (*model.MedicationConfirmation, error) {
	photoPath := strings.TrimSpace(in.PhotoPath)
	if in.MedicationID == "" || photoPath == "" {
		return nil, model.NewValidationError("Medication ID and photo path are required")
	}
	if !validID(in.MedicationID) {
		return nil, model.NewMedicationNotFoundError()
	}

	med, err := s.medRepo.FindByID(ctx, in.MedicationID)
	if err != nil {
		return nil, fmt.Errorf("薬の取得に失敗しました: %w", err)
	}
	if med == nil || med.DependantID != dependantID {
		return nil, model.NewMedicationNotFoundError()
	}
	// 写真ストレージの参照は提出者自身の区間にあるものに限る。
	if strings.HasPrefix(photoPath, storage.KeyPrefix) {
		if owner, ok := storage.KeyOwner(photoPath); !ok || owner != dependantID {
			return nil, model.NewValidationError("Photo does not belong to this dependant")
		}
	}

	var scheduleID *string
	if in.ScheduleID != nil && *in.ScheduleID != "" {
		if !validID(*in.ScheduleID) {
			return nil, model.NewValidationError("Schedule ID is invalid")
		}
		ok, err := s.medRepo.ScheduleBelongsTo(ctx, med.ID, *in.ScheduleID)
		if err != nil {
			return nil, fmt.Errorf("スケジュールの確認に失敗しました: %w", err)
		}
		if !ok {
			return nil, model.NewValidationError("Schedule does not belong to this medication")
		}
		scheduleID = in.ScheduleID
	}

	now := s.now().UTC()
	c := &model.MedicationConfirmation{
		ID:           uuid.New().String(),
		DependantID:  dependantID,
		MedicationID: med.ID,
		ScheduleID:   scheduleID,
		PhotoPath:    photoPath,
		TakenAt:      now,
		CreatedAt:    now,
	}
	if err := s.confirmRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("服薬確認の作成に失敗しました: %w", err)
	}

	s.metrics.RecordConfirmationSubmitted()
	slog.Info("confirmation submitted",
		slog.String("confirmation_id", c.ID),
		slog.String("medication_id", c.MedicationID),
		slog.String("dependant_id", dependantID),
	)
	return c, nil
}

// Confirm は介護者が自分の薬に対する服薬確認を承認する。
// 存在しない場合と他の介護者の薬の場合は区別せず NotFound を返す。
// 承認済みのものを再度承認すると承認日時とメモが上書きされる。
func (s *Service) Confirm(ctx context.Context, carerID, confirmationID string, notes *string) (*model.MedicationConfirmation, error) {
	if !validID(confirmationID) {
		return nil, model.NewConfirmationNotFoundError()
	}

	c, err := s.confirmRepo.ConfirmByCarer(ctx, confirmationID, carerID, security.SanitizeOptional(s.sanitizer, notes), s.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("服薬確認の承認に失敗しました: %w", err)
	}
	if c == nil {
		return nil, model.NewConfirmationNotFoundError()
	}

	s.metrics.RecordConfirmationApproved()
	slog.Info("confirmation approved",
		slog.String("confirmation_id", c.ID),
		slog.String("carer_id", carerID),
	)
	return c, nil
}

// ListPendingForCarer は介護者の薬に対する未承認の服薬確認を新しい順で返す。
// 写真がストレージ管理下にある場合は閲覧用URLを付ける。
func (s *Service) ListPendingForCarer(ctx context.Context, carerID string) ([]model.PendingConfirmation, error) {
	pending, err := s.confirmRepo.ListPendingByCarer(ctx, carerID)
	if err != nil {
		return nil, fmt.Errorf("承認待ち一覧の取得に失敗しました: %w", err)
	}

	for i := range pending {
		pending[i].PhotoURL = s.photoURL(ctx, pending[i].PhotoPath)
	}
	return pending, nil
}

func (s *Service) photoURL(ctx context.Context, photoPath string) string {
	if s.signer == nil || !s.signer.OwnsPath(photoPath) {
		return photoPath
	}
	url, err := s.signer.PresignGet(ctx, photoPath)
	if err != nil {
		slog.Warn("failed to presign photo URL",
			slog.String("photo_path", photoPath),
			slog.String("error", err.Error()),
		)
		return photoPath
	}
	return url
}

// ListRecentForDependant は被介護者の直近24時間に承認された服薬を返す。
func (s *Service) ListRecentForDependant(ctx context.Context, dependantID string) ([]model.RecentConfirmation, error) {
	recent, err := s.confirmRepo.ListConfirmedSince(ctx, dependantID, s.now().Add(-RecentWindow))
	if err != nil {
		return nil, fmt.Errorf("直近の服薬記録の取得に失敗しました: %w", err)
	}
	return recent, nil
}
