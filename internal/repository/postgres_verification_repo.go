package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pitwall/internal/model"
)

// PostgresVerificationRepo はPostgreSQLを使用した検証リクエストリポジトリ。
type PostgresVerificationRepo struct {
	db *sql.DB
}

// NewPostgresVerificationRepo はPostgresVerificationRepoを生成する。
func NewPostgresVerificationRepo(db *sql.DB) *PostgresVerificationRepo {
	return &PostgresVerificationRepo{db: db}
}

// Create は検証リクエストを作成する。
func (r *PostgresVerificationRepo) Create(ctx context.Context, req *model.VerificationRequest) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO verification_requests (id, identifier, value, expires_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		req.ID, req.Identifier, req.Value, req.ExpiresAt, req.CreatedAt, req.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create verification request: %w", err)
	}
	return nil
}

// FindByIdentifier はidentifierで未期限切れの検証リクエストを検索する。
// 複数存在する場合は最新の1件を返す。見つからない場合はnilを返す。
func (r *PostgresVerificationRepo) FindByIdentifier(ctx context.Context, identifier string) (*model.VerificationRequest, error) {
	req := &model.VerificationRequest{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, identifier, value, expires_at, created_at, updated_at
		 FROM verification_requests
		 WHERE identifier = $1 AND expires_at > now()
		 ORDER BY created_at DESC
		 LIMIT 1`,
		identifier,
	).Scan(&req.ID, &req.Identifier, &req.Value, &req.ExpiresAt, &req.CreatedAt, &req.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find verification request: %w", err)
	}

	return req, nil
}

// DeleteByID は指定IDの検証リクエストを削除する。
func (r *PostgresVerificationRepo) DeleteByID(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM verification_requests WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete verification request: %w", err)
	}
	return nil
}

// compile-time interface check
var _ VerificationRepository = (*PostgresVerificationRepo)(nil)
