package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pitwall/internal/model"
)

// RaceServiceInterface はレースハンドラーが必要とするサービスインターフェース。
type RaceServiceInterface interface {
	// ListRaces は全レースの一覧を返す。
	ListRaces(ctx context.Context) ([]*model.Race, error)
	// GetRaceBySlug はslugでレースを検索する。
	GetRaceBySlug(ctx context.Context, slug string) (*model.Race, error)
}

// RaceHandler はレースカタログのHTTPハンドラー。
type RaceHandler struct {
	service RaceServiceInterface
}

// NewRaceHandler はRaceHandlerを生成する。
func NewRaceHandler(service RaceServiceInterface) *RaceHandler {
	return &RaceHandler{service: service}
}

// raceResponse はレース情報のAPIレスポンス。
type raceResponse struct {
	Slug       string `json:"slug"`
	Name       string `json:"name"`
	LatestRace bool   `json:"latest_race"`
}

// apiErrorResponse は統一エラーフォーマットのレスポンス。
type apiErrorResponse struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// ListRaces はレース一覧を返す。
// GET /api/races
func (h *RaceHandler) ListRaces(w http.ResponseWriter, r *http.Request) {
	races, err := h.service.ListRaces(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	results := make([]raceResponse, len(races))
	for i, race := range races {
		results[i] = toRaceResponse(race)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"races": results,
	})
}

// GetRace はレース詳細を返す。
// GET /api/races/:slug
func (h *RaceHandler) GetRace(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")

	race, err := h.service.GetRaceBySlug(r.Context(), slug)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toRaceResponse(race))
}

// --- ヘルパー関数 ---

// toRaceResponse はmodel.RaceからAPIレスポンスに変換する。
// 内部UUIDは公開APIに露出させない。
func toRaceResponse(race *model.Race) raceResponse {
	return raceResponse{
		Slug:       race.Slug,
		Name:       race.Name,
		LatestRace: race.LatestRace,
	}
}

// writeJSONResponse はJSONレスポンスを書き込む。
func writeJSONResponse(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// writeAPIErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(apiErrorResponse{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		statusCode := mapAPIErrorToHTTPStatus(apiErr)
		writeAPIErrorResponse(w, statusCode, apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	writeAPIErrorResponse(w, http.StatusInternalServerError, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	})
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeInvalidRequest:
		return http.StatusBadRequest
	case model.ErrCodeReviewNumberOutOfRange, model.ErrCodeRatingOutOfRange:
		return http.StatusBadRequest
	case model.ErrCodeReviewSlotTaken:
		return http.StatusConflict
	case model.ErrCodeRaceNotFound, model.ErrCodeReviewNotFound, model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeAvatarUnavailable:
		return http.StatusNotFound
	case model.ErrCodeStorageUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
