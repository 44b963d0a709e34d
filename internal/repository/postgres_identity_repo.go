package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/pitwall/internal/model"
)

// PostgresIdentityRepo はPostgreSQLを使用したidentityリポジトリ。
type PostgresIdentityRepo struct {
	db *sql.DB
}

// NewPostgresIdentityRepo はPostgresIdentityRepoを生成する。
func NewPostgresIdentityRepo(db *sql.DB) *PostgresIdentityRepo {
	return &PostgresIdentityRepo{db: db}
}

// FindByProviderAndAccountID はproviderとprovider_account_idでidentityを検索する。
// 見つからない場合はnilを返す。
func (r *PostgresIdentityRepo) FindByProviderAndAccountID(ctx context.Context, provider, providerAccountID string) (*model.Identity, error) {
	identity := &model.Identity{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, provider, provider_account_id, access_token, refresh_token, token_expires_at, created_at, updated_at
		 FROM identities
		 WHERE provider = $1 AND provider_account_id = $2`,
		provider, providerAccountID,
	).Scan(&identity.ID, &identity.UserID, &identity.Provider, &identity.ProviderAccountID,
		&identity.AccessToken, &identity.RefreshToken, &identity.TokenExpiresAt,
		&identity.CreatedAt, &identity.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	return identity, nil
}

// UpdateTokens はidentityのアクセストークン・リフレッシュトークンを更新する。
func (r *PostgresIdentityRepo) UpdateTokens(ctx context.Context, id string, identity *model.Identity) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE identities
		 SET access_token = $2, refresh_token = $3, token_expires_at = $4, updated_at = $5
		 WHERE id = $1`,
		id, identity.AccessToken, identity.RefreshToken, identity.TokenExpiresAt, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to update identity tokens: %w", err)
	}
	return nil
}

// compile-time interface check
var _ IdentityRepository = (*PostgresIdentityRepo)(nil)
