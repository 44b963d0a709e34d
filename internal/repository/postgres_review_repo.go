package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/pitwall/internal/model"
)

// race_reviewsテーブルの制約名。マイグレーションSQLと一致させること。
const (
	constraintUserRaceNumber = "ux_race_reviews_user_race_number"
	constraintReviewNumber   = "ck_race_reviews_review_number"
	constraintRating         = "ck_race_reviews_rating"
)

// PostgreSQLのエラークラス。
const (
	pqUniqueViolation     = pq.ErrorCode("23505")
	pqForeignKeyViolation = pq.ErrorCode("23503")
	pqCheckViolation      = pq.ErrorCode("23514")
)

// PostgresReviewRepo はPostgreSQLを使用したレビュー台帳リポジトリ。
//
// 「1ユーザーあたり1レース最大5件・スロット番号1〜5」の不変条件は
// このリポジトリのアプリケーションコードではなく、race_reviewsテーブルの
// 一意制約とCHECK制約が単一INSERT内で強制する。並行する同一スロットへの
// 投稿は必ず片方だけが成功し、もう片方には制約違反が返る。
type PostgresReviewRepo struct {
	db *sql.DB
}

// NewPostgresReviewRepo はPostgresReviewRepoを生成する。
func NewPostgresReviewRepo(db *sql.DB) *PostgresReviewRepo {
	return &PostgresReviewRepo{db: db}
}

// Create はレビューを作成する。
// ストレージ層の制約違反は呼び出し元が区別できる安定したエラーコード
// （REVIEW_SLOT_TAKEN、REVIEW_NUMBER_OUT_OF_RANGE等）に変換して返す。
func (r *PostgresReviewRepo) Create(ctx context.Context, review *model.Review) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO race_reviews (id, user_id, race_id, review_number, rating, comment, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		review.ID, review.UserID, review.RaceID, review.ReviewNumber, review.Rating, review.Comment,
		review.CreatedAt, review.UpdatedAt,
	)
	if err != nil {
		if apiErr := translateConstraintError(err, review); apiErr != nil {
			return apiErr
		}
		return fmt.Errorf("failed to insert review: %w", err)
	}
	return nil
}

// translateConstraintError はPostgreSQLの制約違反をAPIErrorに変換する。
// 制約違反でないエラーの場合はnilを返す。
func translateConstraintError(err error, review *model.Review) *model.APIError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	case pqUniqueViolation:
		if pqErr.Constraint == constraintUserRaceNumber {
			return model.NewReviewSlotTakenError(review.ReviewNumber)
		}
	case pqCheckViolation:
		switch pqErr.Constraint {
		case constraintReviewNumber:
			return model.NewReviewNumberOutOfRangeError(review.ReviewNumber)
		case constraintRating:
			return model.NewRatingOutOfRangeError(review.Rating)
		}
	case pqForeignKeyViolation:
		// 参照先のレースまたはユーザーが並行して削除された場合
		return model.NewRaceNotFoundError(review.RaceID)
	}

	return nil
}

// UpdateBySlot は指定スロットのレビューの評価とコメントを更新する。
// review_numberは変更できないため、スロットの3つ組一意制約に触れる
// 書き込み経路はINSERTのみに限定される。対象が存在しない場合はnilを返す。
func (r *PostgresReviewRepo) UpdateBySlot(ctx context.Context, userID, raceID string, reviewNumber int, rating int, comment string) (*model.Review, error) {
	review := &model.Review{}
	err := r.db.QueryRowContext(ctx,
		`UPDATE race_reviews
		 SET rating = $4, comment = $5, updated_at = now()
		 WHERE user_id = $1 AND race_id = $2 AND review_number = $3
		 RETURNING id, user_id, race_id, review_number, rating, comment, created_at, updated_at`,
		userID, raceID, reviewNumber, rating, comment,
	).Scan(&review.ID, &review.UserID, &review.RaceID, &review.ReviewNumber,
		&review.Rating, &review.Comment, &review.CreatedAt, &review.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		if apiErr := translateConstraintError(err, &model.Review{ReviewNumber: reviewNumber, Rating: rating}); apiErr != nil {
			return nil, apiErr
		}
		return nil, fmt.Errorf("failed to update review: %w", err)
	}

	return review, nil
}

// ListByRaceID はレースのレビュー一覧を投稿者情報付きで新しい順に返す。
func (r *PostgresReviewRepo) ListByRaceID(ctx context.Context, raceID string) ([]model.ReviewWithAuthor, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rr.id, rr.user_id, rr.race_id, rr.review_number, rr.rating, rr.comment,
		        rr.created_at, rr.updated_at, u.name, u.avatar_url
		 FROM race_reviews rr
		 JOIN users u ON u.id = rr.user_id
		 WHERE rr.race_id = $1
		 ORDER BY rr.created_at DESC, rr.review_number DESC`,
		raceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews by race: %w", err)
	}
	defer rows.Close()

	var reviews []model.ReviewWithAuthor
	for rows.Next() {
		var rv model.ReviewWithAuthor
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.RaceID, &rv.ReviewNumber, &rv.Rating, &rv.Comment,
			&rv.CreatedAt, &rv.UpdatedAt, &rv.AuthorName, &rv.AuthorAvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}

	return reviews, nil
}

// ListByUserAndRace はユーザーの特定レースへのレビュー一覧をスロット番号順に返す。
func (r *PostgresReviewRepo) ListByUserAndRace(ctx context.Context, userID, raceID string) ([]*model.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, race_id, review_number, rating, comment, created_at, updated_at
		 FROM race_reviews
		 WHERE user_id = $1 AND race_id = $2
		 ORDER BY review_number ASC`,
		userID, raceID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews by user and race: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

// ListByUserID はユーザーの全レビューを新しい順に返す。
func (r *PostgresReviewRepo) ListByUserID(ctx context.Context, userID string) ([]*model.Review, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, race_id, review_number, rating, comment, created_at, updated_at
		 FROM race_reviews
		 WHERE user_id = $1
		 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews by user: %w", err)
	}
	defer rows.Close()

	return scanReviews(rows)
}

// scanReviews は行セットをReviewスライスに変換する。
func scanReviews(rows *sql.Rows) ([]*model.Review, error) {
	var reviews []*model.Review
	for rows.Next() {
		review := &model.Review{}
		if err := rows.Scan(&review.ID, &review.UserID, &review.RaceID, &review.ReviewNumber,
			&review.Rating, &review.Comment, &review.CreatedAt, &review.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reviews: %w", err)
	}
	return reviews, nil
}

// compile-time interface check
var _ ReviewRepository = (*PostgresReviewRepo)(nil)
