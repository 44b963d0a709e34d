package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pitwall/internal/middleware"
	"github.com/hitoshi/pitwall/internal/model"
	"github.com/hitoshi/pitwall/internal/review"
)

// ReviewServiceInterface はレビューハンドラーが必要とするサービスインターフェース。
type ReviewServiceInterface interface {
	// SubmitReview はレビューを投稿する。
	SubmitReview(ctx context.Context, userID string, input review.SubmitInput) (*model.Review, error)
	// EditReview は既存レビューの評価とコメントを更新する。
	EditReview(ctx context.Context, userID string, input review.EditInput) (*model.Review, error)
	// ListForRace は指定レースのレビュー一覧を投稿者情報付きで返す。
	ListForRace(ctx context.Context, slug string) ([]model.ReviewWithAuthor, error)
	// ListMine は自分のレビュー一覧を返す。
	ListMine(ctx context.Context, userID, raceSlug string) ([]*model.Review, error)
}

// ReviewHandler はレビュー台帳のHTTPハンドラー。
type ReviewHandler struct {
	service ReviewServiceInterface
}

// NewReviewHandler はReviewHandlerを生成する。
func NewReviewHandler(service ReviewServiceInterface) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// submitReviewRequest はレビュー投稿リクエストのボディ。
type submitReviewRequest struct {
	ReviewNumber int    `json:"review_number"`
	Rating       int    `json:"rating"`
	Comment      string `json:"comment"`
}

// editReviewRequest はレビュー編集リクエストのボディ。
// レビュー番号はURLパスで指定され、変更できない。
type editReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// reviewResponse はレビュー情報のAPIレスポンス。
type reviewResponse struct {
	ID           string    `json:"id"`
	ReviewNumber int       `json:"review_number"`
	Rating       int       `json:"rating"`
	Comment      string    `json:"comment"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// reviewWithAuthorResponse は投稿者情報付きレビューのAPIレスポンス。
type reviewWithAuthorResponse struct {
	reviewResponse
	AuthorName      string `json:"author_name"`
	AuthorAvatarURL string `json:"author_avatar_url"`
}

// SubmitReview はレビュー投稿を処理する。
// POST /api/races/:slug/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	var req submitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	created, err := h.service.SubmitReview(r.Context(), userID, review.SubmitInput{
		RaceSlug:     chi.URLParam(r, "slug"),
		ReviewNumber: req.ReviewNumber,
		Rating:       req.Rating,
		Comment:      req.Comment,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toReviewResponse(created))
}

// EditReview はレビュー編集を処理する。
// PATCH /api/races/:slug/reviews/:number
func (h *ReviewHandler) EditReview(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	reviewNumber, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("レビュー番号は整数で指定してください"))
		return
	}

	var req editReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, model.NewInvalidRequestError("リクエストボディの解析に失敗しました"))
		return
	}

	updated, err := h.service.EditReview(r.Context(), userID, review.EditInput{
		RaceSlug:     chi.URLParam(r, "slug"),
		ReviewNumber: reviewNumber,
		Rating:       req.Rating,
		Comment:      req.Comment,
	})
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toReviewResponse(updated))
}

// ListForRace はレースのレビュー一覧を返す。
// GET /api/races/:slug/reviews
func (h *ReviewHandler) ListForRace(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.service.ListForRace(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]reviewWithAuthorResponse, len(reviews))
	for i, rv := range reviews {
		results[i] = reviewWithAuthorResponse{
			reviewResponse:  toReviewResponse(&rv.Review),
			AuthorName:      rv.AuthorName,
			AuthorAvatarURL: rv.AuthorAvatarURL,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"reviews": results,
	})
}

// ListMine は自分のレビュー一覧を返す。
// GET /api/reviews/mine?race=:slug
func (h *ReviewHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthorizedError())
		return
	}

	raceSlug := r.URL.Query().Get("race")

	reviews, err := h.service.ListMine(r.Context(), userID, raceSlug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]reviewResponse, len(reviews))
	for i, rv := range reviews {
		results[i] = toReviewResponse(rv)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"reviews": results,
	})
}

// toReviewResponse はmodel.ReviewからAPIレスポンスに変換する。
func toReviewResponse(rv *model.Review) reviewResponse {
	return reviewResponse{
		ID:           rv.ID,
		ReviewNumber: rv.ReviewNumber,
		Rating:       rv.Rating,
		Comment:      rv.Comment,
		CreatedAt:    rv.CreatedAt,
		UpdatedAt:    rv.UpdatedAt,
	}
}
