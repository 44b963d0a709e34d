// Package auth はOAuth認証フロー、セッション管理を提供する。
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/pitwall/internal/model"
	"github.com/hitoshi/pitwall/internal/repository"
)

// OAuthUserInfo はOAuthプロバイダーから取得したユーザー情報を表す。
// プロバイダー発行のトークン類はidentityレコードに保存される。
type OAuthUserInfo struct {
	ProviderAccountID string
	Email             string
	EmailVerified     bool
	Name              string
	AvatarURL         string
	Provider          string // "google" 等
	AccessToken       string
	RefreshToken      string
	TokenExpiresAt    *time.Time
}

// OAuthProvider はOAuth認証プロバイダーのインターフェース。
// 将来的に複数IdP（Google, GitHub等）に対応するための抽象化。
type OAuthProvider interface {
	// GetLoginURL はOAuth認証URLを生成する。
	GetLoginURL(state string) string
	// ExchangeCode は認可コードをトークンに交換し、ユーザー情報を取得する。
	ExchangeCode(ctx context.Context, code string) (*OAuthUserInfo, error)
}

// AvatarURLValidator はアバターURLの安全性検証のインターフェース。
// security.AvatarGuardServiceの部分集合として定義する。
type AvatarURLValidator interface {
	ValidateURL(rawURL string) error
}

// ServiceConfig は認証サービスの設定。
type ServiceConfig struct {
	SessionMaxAge int // セッション有効期間（秒）
}

// Service は認証に関するビジネスロジックを提供する。
type Service struct {
	oauth            OAuthProvider
	userRepo         repository.UserRepository
	identRepo        repository.IdentityRepository
	sessionRepo      repository.SessionRepository
	verificationRepo repository.VerificationRepository
	avatarGuard      AvatarURLValidator
	config           ServiceConfig
}

// NewService はServiceを生成する。
// verificationRepoはnilを許容し、その場合メール確認リクエストの記録をスキップする。
func NewService(
	oauth OAuthProvider,
	userRepo repository.UserRepository,
	identRepo repository.IdentityRepository,
	sessionRepo repository.SessionRepository,
	verificationRepo repository.VerificationRepository,
	avatarGuard AvatarURLValidator,
	config ServiceConfig,
) *Service {
	return &Service{
		oauth:            oauth,
		userRepo:         userRepo,
		identRepo:        identRepo,
		sessionRepo:      sessionRepo,
		verificationRepo: verificationRepo,
		avatarGuard:      avatarGuard,
		config:           config,
	}
}

// GetLoginURL はOAuth認証URLを生成する。
func (s *Service) GetLoginURL(state string) string {
	return s.oauth.GetLoginURL(state)
}

// HandleCallback はOAuthコールバックを処理し、セッションを発行する。
// 未登録ユーザーの場合はusersレコードとidentitiesレコードを同時に自動作成する。
// 登録済みユーザーの場合はidentitiesテーブルで既存ユーザーを特定し、
// プロバイダートークンを更新してログインする。
func (s *Service) HandleCallback(ctx context.Context, code, ipAddress, userAgent string) (*model.Session, error) {
	// 1. 認可コードをトークンに交換し、ユーザー情報を取得
	userInfo, err := s.oauth.ExchangeCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange oauth code: %w", err)
	}

	// 2. identitiesテーブルで既存ユーザーを検索
	identity, err := s.identRepo.FindByProviderAndAccountID(ctx, userInfo.Provider, userInfo.ProviderAccountID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	var userID string

	if identity != nil {
		// 3a. 既存ユーザー: identityからユーザーIDを取得し、トークンを更新
		userID = identity.UserID

		identity.AccessToken = userInfo.AccessToken
		identity.RefreshToken = userInfo.RefreshToken
		identity.TokenExpiresAt = userInfo.TokenExpiresAt
		if err := s.identRepo.UpdateTokens(ctx, identity.ID, identity); err != nil {
			return nil, fmt.Errorf("failed to update identity tokens: %w", err)
		}

		slog.Info("existing user logged in",
			slog.String("user_id", userID),
			slog.String("provider", userInfo.Provider),
		)
	} else {
		// 3b. 新規ユーザー: usersレコードとidentitiesレコードを同時に作成
		newUserID := uuid.New().String()
		newIdentityID := uuid.New().String()
		now := time.Now()

		// アバターURLは外部入力のため、危険なURLは保存せず空にする
		avatarURL := userInfo.AvatarURL
		if avatarURL != "" {
			if err := s.avatarGuard.ValidateURL(avatarURL); err != nil {
				slog.Warn("rejected unsafe avatar URL",
					slog.String("provider", userInfo.Provider),
					slog.String("error", err.Error()),
				)
				avatarURL = ""
			}
		}

		newUser := &model.User{
			ID:            newUserID,
			Email:         userInfo.Email,
			Name:          userInfo.Name,
			AvatarURL:     avatarURL,
			EmailVerified: userInfo.EmailVerified,
			CreatedAt:     now,
			UpdatedAt:     now,
		}

		newIdentity := &model.Identity{
			ID:                newIdentityID,
			UserID:            newUserID,
			Provider:          userInfo.Provider,
			ProviderAccountID: userInfo.ProviderAccountID,
			AccessToken:       userInfo.AccessToken,
			RefreshToken:      userInfo.RefreshToken,
			TokenExpiresAt:    userInfo.TokenExpiresAt,
			CreatedAt:         now,
			UpdatedAt:         now,
		}

		if err := s.userRepo.CreateWithIdentity(ctx, newUser, newIdentity); err != nil {
			return nil, fmt.Errorf("failed to create user and identity: %w", err)
		}

		userID = newUserID
		slog.Info("new user created",
			slog.String("user_id", userID),
			slog.String("email", userInfo.Email),
			slog.String("provider", userInfo.Provider),
		)

		// プロバイダーがメール未確認を報告した場合は確認リクエストを記録する。
		// 記録の失敗はログインを妨げない。
		if !userInfo.EmailVerified {
			if err := s.recordEmailVerification(ctx, userInfo.Email); err != nil {
				slog.Warn("failed to record email verification request",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
			}
		}
	}

	// 4. セッションを発行
	session, err := s.createSession(ctx, userID, ipAddress, userAgent)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// Logout はセッションを破棄する。
func (s *Service) Logout(ctx context.Context, sessionToken string) error {
	if sessionToken == "" {
		return fmt.Errorf("session token is required")
	}

	if err := s.sessionRepo.DeleteByToken(ctx, sessionToken); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}

	slog.Info("user logged out")
	return nil
}

// GetCurrentUser はセッショントークンから現在のユーザーを取得する。
func (s *Service) GetCurrentUser(ctx context.Context, sessionToken string) (*model.User, error) {
	if sessionToken == "" {
		return nil, fmt.Errorf("session token is required")
	}

	session, err := s.sessionRepo.FindByToken(ctx, sessionToken)
	if err != nil {
		return nil, fmt.Errorf("failed to find session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("session not found or expired")
	}

	user, err := s.userRepo.FindByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	return user, nil
}

// verificationMaxAge はメール確認リクエストの有効期間。
// 期限切れのリクエストはクリーンアップワーカーが削除する。
const verificationMaxAge = 24 * time.Hour

// recordEmailVerification はメールアドレス確認リクエストを永続化する。
// verificationRepoが未設定の場合は何もしない。
func (s *Service) recordEmailVerification(ctx context.Context, email string) error {
	if s.verificationRepo == nil {
		return nil
	}

	token, err := generateSessionToken()
	if err != nil {
		return fmt.Errorf("failed to generate verification token: %w", err)
	}

	now := time.Now()
	req := &model.VerificationRequest{
		ID:         uuid.New().String(),
		Identifier: email,
		Value:      token,
		ExpiresAt:  now.Add(verificationMaxAge),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	return s.verificationRepo.Create(ctx, req)
}

// createSession はセッションを作成し永続化する。
func (s *Service) createSession(ctx context.Context, userID, ipAddress, userAgent string) (*model.Session, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &model.Session{
		ID:        uuid.New().String(),
		UserID:    userID,
		Token:     token,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		ExpiresAt: time.Now().Add(time.Duration(s.config.SessionMaxAge) * time.Second),
		CreatedAt: time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	return session, nil
}

// generateSessionToken は暗号的に安全なセッショントークンを生成する。
func generateSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
