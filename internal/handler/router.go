package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/pitwall/internal/middleware"
)

// DBPinger はヘルスチェック用にDB接続を確認するインターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	SessionFinder     middleware.SessionFinder
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	CSRFConfig        middleware.CSRFConfig

	// 認証
	AuthService AuthServiceInterface
	AuthConfig  AuthHandlerConfig

	// レース
	RaceService RaceServiceInterface

	// レビュー
	ReviewService ReviewServiceInterface

	// ユーザー
	UserService UserServiceInterface

	// 運用系
	DB             DBPinger
	MetricsHandler http.Handler
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → SecurityHeaders → CORS → (認証ルート外)
//	認証必須グループ: Session → CSRF → RateLimit(General)
//
// レース一覧・レース詳細・レースのレビュー一覧は認証不要で公開する。
// レビューの投稿・編集、自分のレビュー一覧、ユーザー管理は認証必須。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware())
	if deps.Logger != nil {
		r.Use(middleware.NewLoggingMiddleware(deps.Logger))
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	authHandler := NewAuthHandler(deps.AuthService, deps.AuthConfig)
	raceHandler := NewRaceHandler(deps.RaceService)
	reviewHandler := NewReviewHandler(deps.ReviewService)
	userHandler := NewUserHandler(deps.UserService)

	// --- 認証不要のルート ---

	// ヘルスチェック（DB接続の確認を含む）
	r.Get("/health", newHealthHandler(deps.DB))

	// Prometheusメトリクス
	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	// CSRFトークン取得
	r.Method(http.MethodGet, "/api/csrf-token", middleware.NewCSRFTokenHandler(deps.CSRFConfig))

	// 認証ルート（OAuthフロー）
	r.Route("/auth", func(r chi.Router) {
		r.Get("/google/login", authHandler.Login)
		r.Get("/google/callback", authHandler.Callback)
		r.Post("/logout", authHandler.Logout)
		r.Get("/me", authHandler.Me)
	})

	// レースカタログとレビュー閲覧は公開
	r.Get("/api/races", raceHandler.ListRaces)
	r.Get("/api/races/{slug}", raceHandler.GetRace)
	r.Get("/api/races/{slug}/reviews", reviewHandler.ListForRace)

	// --- 認証が必要なルート ---
	// ミドルウェアスタック: Session → CSRF → RateLimit(General)
	r.Group(func(r chi.Router) {
		r.Use(middleware.NewSessionMiddleware(deps.SessionFinder))
		r.Use(middleware.NewCSRFMiddleware(deps.CSRFConfig))
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// レビュー台帳
		// POST - レビュー投稿（投稿専用レート制限を追加）
		r.With(deps.RateLimiter.ReviewSubmissionMiddleware()).Post("/api/races/{slug}/reviews", reviewHandler.SubmitReview)

		// PATCH - レビュー編集（スロット番号は変更不可）
		r.Patch("/api/races/{slug}/reviews/{number}", reviewHandler.EditReview)

		// 自分のレビュー一覧
		r.Get("/api/reviews/mine", reviewHandler.ListMine)

		// ユーザー管理
		r.Route("/api/users", func(r chi.Router) {
			r.Get("/{id}", userHandler.GetProfile)
			r.Get("/{id}/avatar", userHandler.GetAvatar)
			r.Delete("/me", userHandler.Withdraw)
		})
	})

	return r
}

// newHealthHandler はヘルスチェックハンドラーを返す。
// DB接続が失敗した場合は503を返す。
func newHealthHandler(db DBPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
			defer cancel()

			if err := db.PingContext(ctx); err != nil {
				slog.Error("health check failed", slog.String("error", err.Error()))
				w.WriteHeader(http.StatusServiceUnavailable)
				json.NewEncoder(w).Encode(map[string]string{
					"status": "unavailable",
				})
				return
			}
		}

		json.NewEncoder(w).Encode(map[string]string{
			"status": "ok",
		})
	}
}
