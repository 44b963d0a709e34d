// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"

	"github.com/hitoshi/pitwall/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateProfile はユーザーの表示名とアバターURLを更新する。
	UpdateProfile(ctx context.Context, id, name, avatarURL string) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連するidentities、sessions、race_reviewsはCASCADE削除される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndAccountID はproviderとprovider_account_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndAccountID(ctx context.Context, provider, providerAccountID string) (*model.Identity, error)

	// UpdateTokens はidentityのアクセストークン・リフレッシュトークンを更新する。
	UpdateTokens(ctx context.Context, id string, identity *model.Identity) error
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByToken は指定トークンのセッションを取得する。期限切れの場合はnilを返す。
	FindByToken(ctx context.Context, token string) (*model.Session, error)
	// DeleteByToken は指定トークンのセッションを削除する。
	DeleteByToken(ctx context.Context, token string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
}

// VerificationRepository は検証リクエストの永続化インターフェース。
type VerificationRepository interface {
	// Create は検証リクエストを作成する。
	Create(ctx context.Context, req *model.VerificationRequest) error
	// FindByIdentifier はidentifierで未期限切れの検証リクエストを検索する。
	// 見つからない場合はnilを返す。
	FindByIdentifier(ctx context.Context, identifier string) (*model.VerificationRequest, error)
	// DeleteByID は指定IDの検証リクエストを削除する。
	DeleteByID(ctx context.Context, id string) error
}

// RaceRepository はレースカタログの永続化インターフェース。
type RaceRepository interface {
	// List は全レースを返す。順序は挿入順。
	List(ctx context.Context) ([]*model.Race, error)

	// FindByID は指定IDのレースを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Race, error)

	// FindBySlug は指定slugのレースを取得する。見つからない場合はnilを返す。
	FindBySlug(ctx context.Context, slug string) (*model.Race, error)

	// Create はレースを作成する。slug重複はエラーを返す。
	Create(ctx context.Context, race *model.Race) error

	// SetLatest は指定レースのみをlatest_race=trueにする。
	// 既存のlatestフラグのクリアと新規設定を同一トランザクションで行い、
	// 部分一意インデックス（latest高々1件）との整合を保つ。
	SetLatest(ctx context.Context, id string) error
}

// ReviewRepository はレビュー台帳の永続化インターフェース。
// 一意制約（user, race, review_number）とCHECK制約（番号・評価の範囲）は
// ストレージ層が単一INSERT内でアトミックに強制し、
// 違反はmodel.APIError（REVIEW_SLOT_TAKEN等）として返される。
type ReviewRepository interface {
	// Create はレビューを作成する。
	// 制約違反の場合は対応するAPIErrorを返す。
	Create(ctx context.Context, review *model.Review) error

	// UpdateBySlot は指定スロットのレビューの評価とコメントを更新する。
	// review_numberは変更しない。対象が存在しない場合はnilを返す。
	UpdateBySlot(ctx context.Context, userID, raceID string, reviewNumber int, rating int, comment string) (*model.Review, error)

	// ListByRaceID はレースのレビュー一覧を投稿者情報付きで新しい順に返す。
	ListByRaceID(ctx context.Context, raceID string) ([]model.ReviewWithAuthor, error)

	// ListByUserAndRace はユーザーの特定レースへのレビュー一覧をスロット番号順に返す。
	ListByUserAndRace(ctx context.Context, userID, raceID string) ([]*model.Review, error)

	// ListByUserID はユーザーの全レビューを新しい順に返す。
	ListByUserID(ctx context.Context, userID string) ([]*model.Review, error)
}
