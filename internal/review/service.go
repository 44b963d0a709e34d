// Package review はレビュー台帳のドメインロジックを提供する。
//
// 「1ユーザーあたり1レース最大5件・番号1〜5」の不変条件の最終的な番人は
// ストレージ層の制約（一意制約とCHECK制約）であり、サービス層の事前検証は
// 早期リターンのための補助にすぎない。並行投稿の競合は単一INSERTの
// 制約違反として必ず検出される。
package review

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pitwall/internal/metrics"
	"github.com/hitoshi/pitwall/internal/model"
	"github.com/hitoshi/pitwall/internal/repository"
)

// maxCommentLength はレビューコメントの最大文字数。
const maxCommentLength = 2000

// CommentSanitizer はコメントのサニタイズインターフェース。
// security.CommentSanitizerServiceの部分集合として定義する。
type CommentSanitizer interface {
	Sanitize(comment string) string
}

// SubmitInput はレビュー投稿の入力。
type SubmitInput struct {
	RaceSlug     string
	ReviewNumber int
	Rating       int
	Comment      string
}

// EditInput はレビュー編集の入力。
// レビュー番号は編集対象の指定にのみ使用され、変更はできない。
type EditInput struct {
	RaceSlug     string
	ReviewNumber int
	Rating       int
	Comment      string
}

// Service はレビュー台帳のサービス層。
type Service struct {
	reviewRepo repository.ReviewRepository
	raceRepo   repository.RaceRepository
	sanitizer  CommentSanitizer
	collector  metrics.MetricsCollector
}

// NewService はServiceの新しいインスタンスを生成する。
// collectorはnil可（テスト用）。
func NewService(
	reviewRepo repository.ReviewRepository,
	raceRepo   repository.RaceRepository,
	sanitizer  CommentSanitizer,
	collector  metrics.MetricsCollector,
) *Service {
	return &Service{
		reviewRepo: reviewRepo,
		raceRepo:   raceRepo,
		sanitizer:  sanitizer,
		collector:  collector,
	}
}

// SubmitReview はレビューを投稿する。
// 範囲の事前検証は無駄なDBアクセスを省くためのもので、
// 同一スロットへの並行投稿はストレージの一意制約が単一INSERT内で
// アトミックに解決する（勝者は1件のみ）。
func (s *Service) SubmitReview(ctx context.Context, userID string, input SubmitInput) (*model.Review, error) {
	start := time.Now()

	review, err := s.submitReview(ctx, userID, input)

	if s.collector != nil {
		s.collector.RecordReviewSubmitLatency(time.Since(start))
		if err == nil {
			s.collector.RecordReviewSubmitSuccess()
		} else if apiErr, ok := err.(*model.APIError); ok {
			switch apiErr.Code {
			case model.ErrCodeReviewSlotTaken, model.ErrCodeReviewNumberOutOfRange, model.ErrCodeRatingOutOfRange:
				s.collector.RecordConstraintViolation(apiErr.Code)
			}
		}
	}

	return review, err
}

func (s *Service) submitReview(ctx context.Context, userID string, input SubmitInput) (*model.Review, error) {
	if userID == "" {
		return nil, model.NewUnauthorizedError()
	}
	if err := validateReviewNumber(input.ReviewNumber); err != nil {
		return nil, err
	}
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}

	comment := s.sanitizer.Sanitize(input.Comment)
	if len([]rune(comment)) > maxCommentLength {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("コメントは%d文字以内で入力してください", maxCommentLength))
	}

	race, err := s.findRace(ctx, input.RaceSlug)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	review := &model.Review{
		ID:           uuid.New().String(),
		UserID:       userID,
		RaceID:       race.ID,
		ReviewNumber: input.ReviewNumber,
		Rating:       input.Rating,
		Comment:      comment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		// 制約違反はリポジトリがAPIErrorに変換済み
		if apiErr, ok := err.(*model.APIError); ok {
			return nil, apiErr
		}
		return nil, fmt.Errorf("レビューの作成に失敗しました: %w", err)
	}

	return review, nil
}

// EditReview は既存レビューの評価とコメントを更新する。
// レビュー番号（スロット）は変更できない。
// 所有者の特定はWHERE句のuser_idで行うため、他人のレビューを
// 指定した場合は対象なしとしてREVIEW_NOT_FOUNDになる。
func (s *Service) EditReview(ctx context.Context, userID string, input EditInput) (*model.Review, error) {
	if userID == "" {
		return nil, model.NewUnauthorizedError()
	}
	if err := validateReviewNumber(input.ReviewNumber); err != nil {
		return nil, err
	}
	if err := validateRating(input.Rating); err != nil {
		return nil, err
	}

	comment := s.sanitizer.Sanitize(input.Comment)
	if len([]rune(comment)) > maxCommentLength {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("コメントは%d文字以内で入力してください", maxCommentLength))
	}

	race, err := s.findRace(ctx, input.RaceSlug)
	if err != nil {
		return nil, err
	}

	review, err := s.reviewRepo.UpdateBySlot(ctx, userID, race.ID, input.ReviewNumber, input.Rating, comment)
	if err != nil {
		if apiErr, ok := err.(*model.APIError); ok {
			return nil, apiErr
		}
		return nil, fmt.Errorf("レビューの更新に失敗しました: %w", err)
	}
	if review == nil {
		return nil, model.NewReviewNotFoundError(input.ReviewNumber)
	}

	return review, nil
}

// ListForRace は指定レースのレビュー一覧を投稿者情報付きで返す。
func (s *Service) ListForRace(ctx context.Context, slug string) ([]model.ReviewWithAuthor, error) {
	race, err := s.findRace(ctx, slug)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviewRepo.ListByRaceID(ctx, race.ID)
	if err != nil {
		return nil, fmt.Errorf("レビュー一覧の取得に失敗しました: %w", err)
	}

	return reviews, nil
}

// ListMine は自分のレビュー一覧を返す。
// raceSlugを指定した場合はそのレースのレビューのみをスロット番号順に、
// 未指定の場合は全レビューを新しい順に返す。
func (s *Service) ListMine(ctx context.Context, userID, raceSlug string) ([]*model.Review, error) {
	if userID == "" {
		return nil, model.NewUnauthorizedError()
	}

	if raceSlug == "" {
		reviews, err := s.reviewRepo.ListByUserID(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("レビュー一覧の取得に失敗しました: %w", err)
		}
		return reviews, nil
	}

	race, err := s.findRace(ctx, raceSlug)
	if err != nil {
		return nil, err
	}

	reviews, err := s.reviewRepo.ListByUserAndRace(ctx, userID, race.ID)
	if err != nil {
		return nil, fmt.Errorf("レビュー一覧の取得に失敗しました: %w", err)
	}

	return reviews, nil
}

// findRace はslugでレースを検索する。見つからない場合はRACE_NOT_FOUNDを返す。
func (s *Service) findRace(ctx context.Context, slug string) (*model.Race, error) {
	if slug == "" {
		return nil, model.NewInvalidRequestError("レースのslugは必須です")
	}

	race, err := s.raceRepo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("レースの取得に失敗しました: %w", err)
	}
	if race == nil {
		return nil, model.NewRaceNotFoundError(slug)
	}

	return race, nil
}

// validateReviewNumber はレビュー番号の範囲を検証する。
func validateReviewNumber(n int) error {
	if n < model.ReviewNumberMin || n > model.ReviewNumberMax {
		return model.NewReviewNumberOutOfRangeError(n)
	}
	return nil
}

// validateRating は評価値の範囲を検証する。
func validateRating(r int) error {
	if r < model.RatingMin || r > model.RatingMax {
		return model.NewRatingOutOfRangeError(r)
	}
	return nil
}
