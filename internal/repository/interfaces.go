// Package repository はデータ永続化のインターフェースとPostgreSQL実装を提供する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/medconfirm/internal/model"
)

// ErrDuplicate は一意制約違反を表す。
var ErrDuplicate = errors.New("duplicate record")

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// FindByEmail はメールアドレスでユーザーを検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// Create はユーザーを作成する。メールアドレスが重複する場合は ErrDuplicate を返す。
	Create(ctx context.Context, user *model.User) error
}

// RelationshipRepository は介護者と被介護者の関係の永続化インターフェース。
type RelationshipRepository interface {
	// Exists は関係が存在するかを返す。
	Exists(ctx context.Context, carerID, dependantID string) (bool, error)

	// Create は関係を作成する。既に存在する場合は ErrDuplicate を返す。
	Create(ctx context.Context, rel *model.Relationship) error

	// ListDependants は介護者に紐付く被介護者を名前順で返す。
	ListDependants(ctx context.Context, carerID string) ([]*model.User, error)
}

// MedicationRepository は薬とスケジュールの永続化インターフェース。
type MedicationRepository interface {
	// FindByID は指定IDの薬を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Medication, error)

	// CreateWithSchedules は薬・スケジュール・通知を同一トランザクションで作成する。
	// いずれかの挿入に失敗した場合は何も残さない。
	CreateWithSchedules(ctx context.Context, med *model.Medication, schedules []*model.MedicationSchedule, notification *model.Notification) error

	// ReplaceSchedules は薬のスケジュールをすべて削除して入れ替え、通知を記録する。
	// 同一トランザクションで実行する。
	ReplaceSchedules(ctx context.Context, medicationID string, schedules []*model.MedicationSchedule, notification *model.Notification) error

	// ScheduleBelongsTo はスケジュールが指定の薬のものかを返す。
	ScheduleBelongsTo(ctx context.Context, medicationID, scheduleID string) (bool, error)

	// ListScheduleRowsByDependant は被介護者の薬をスケジュールと外部結合して返す。
	// 薬名・時刻の順に並ぶ。
	ListScheduleRowsByDependant(ctx context.Context, dependantID string) ([]model.MedicationScheduleRow, error)

	// ListDependantIDsWithSchedules は有効なスケジュールを持つ被介護者のIDを返す。
	ListDependantIDsWithSchedules(ctx context.Context) ([]string, error)
}

// ConfirmationRepository は服薬確認の永続化インターフェース。
type ConfirmationRepository interface {
	// Create は服薬確認を作成する。
	Create(ctx context.Context, c *model.MedicationConfirmation) error

	// ConfirmByCarer は介護者が所有する薬の服薬確認を承認済みにする。
	// 対象が存在しないか別の介護者の薬である場合はnilを返す。
	ConfirmByCarer(ctx context.Context, confirmationID, carerID string, notes *string, at time.Time) (*model.MedicationConfirmation, error)

	// ListPendingByCarer は介護者の薬に対する未承認の服薬確認を新しい順で返す。
	ListPendingByCarer(ctx context.Context, carerID string) ([]model.PendingConfirmation, error)

	// ListConfirmedSince は被介護者の since 以降の承認済み服薬を返す。
	ListConfirmedSince(ctx context.Context, dependantID string, since time.Time) ([]model.RecentConfirmation, error)
}
