package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/medconfirm/internal/model"
)

// PostgresRelationshipRepo はPostgreSQLを使用した介護関係リポジトリ。
type PostgresRelationshipRepo struct {
	db *sql.DB
}

// NewPostgresRelationshipRepo はPostgresRelationshipRepoを生成する。
func NewPostgresRelationshipRepo(db *sql.DB) *PostgresRelationshipRepo {
	return &PostgresRelationshipRepo{db: db}
}

// Exists は関係が存在するかを返す。
func (r *PostgresRelationshipRepo) Exists(ctx context.Context, carerID, dependantID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM carer_dependant_relationships WHERE carer_id = $1 AND dependant_id = $2
		)`,
		carerID, dependantID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check relationship: %w", err)
	}
	return exists, nil
}

// Create は関係を作成する。既に存在する場合は ErrDuplicate を返す。
func (r *PostgresRelationshipRepo) Create(ctx context.Context, rel *model.Relationship) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO carer_dependant_relationships (id, carer_id, dependant_id, created_at)
		 VALUES ($1, $2, $3, $4)`,
		rel.ID, rel.CarerID, rel.DependantID, rel.CreatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("failed to insert relationship: %w", err)
	}
	return nil
}

// ListDependants は介護者に紐付く被介護者を名前順で返す。
func (r *PostgresRelationshipRepo) ListDependants(ctx context.Context, carerID string) ([]*model.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.name, u.role, u.created_at
		 FROM users u
		 JOIN carer_dependant_relationships cdr ON u.id = cdr.dependant_id
		 WHERE cdr.carer_id = $1
		 ORDER BY u.name`,
		carerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependants: %w", err)
	}
	defer rows.Close()

	var users []*model.User
	for rows.Next() {
		u := &model.User{}
		var role string
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &role, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan dependant: %w", err)
		}
		u.Role = model.Role(role)
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate dependants: %w", err)
	}
	return users, nil
}

var _ RelationshipRepository = (*PostgresRelationshipRepo)(nil)
