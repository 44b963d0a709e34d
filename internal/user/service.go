// Package user はユーザー管理のドメインロジックを提供する。
package user

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/pitwall/internal/model"
	"github.com/hitoshi/pitwall/internal/repository"
)

// Service はユーザー管理のサービス層。
// プロフィール参照、アバター中継、退会処理のビジネスロジックを提供する。
type Service struct {
	userRepo      repository.UserRepository
	sessionRepo   repository.SessionRepository
	avatarFetcher AvatarFetcherService
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	userRepo repository.UserRepository,
	sessionRepo repository.SessionRepository,
	avatarFetcher AvatarFetcherService,
) *Service {
	return &Service{
		userRepo:      userRepo,
		sessionRepo:   sessionRepo,
		avatarFetcher: avatarFetcher,
	}
}

// GetProfile は指定ユーザーのプロフィールを取得する。
// 認可判定は存在確認より先に行う: 他人のIDを指定した場合は
// レコードの有無を確かめる前にFORBIDDENを返し、存在情報を漏らさない。
// 自分自身のレコードが見つからない場合（退会直後の残存セッション等）は
// USER_NOT_FOUNDを返す。
func (s *Service) GetProfile(ctx context.Context, requesterID, targetID string) (*model.User, error) {
	if requesterID != targetID {
		return nil, model.NewForbiddenError()
	}

	user, err := s.userRepo.FindByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return nil, model.NewUserNotFoundError()
	}

	return user, nil
}

// GetAvatar は指定ユーザーのアバター画像を取得して返す。
// プロフィールと同じ認可規則を適用する。
// アバター未設定または取得失敗時はAVATAR_UNAVAILABLEを返す。
func (s *Service) GetAvatar(ctx context.Context, requesterID, targetID string) ([]byte, string, error) {
	user, err := s.GetProfile(ctx, requesterID, targetID)
	if err != nil {
		return nil, "", err
	}

	if user.AvatarURL == "" {
		return nil, "", model.NewAvatarUnavailableError()
	}

	data, mimeType, err := s.avatarFetcher.FetchAvatar(ctx, user.AvatarURL)
	if err != nil {
		return nil, "", fmt.Errorf("アバターの取得に失敗しました: %w", err)
	}
	if data == nil {
		return nil, "", model.NewAvatarUnavailableError()
	}

	return data, mimeType, nil
}

// Withdraw はユーザーの退会処理を実行する。
// 削除順序: sessions → user（+ CASCADE: identities, race_reviews）
// racesはカタログデータとして残す。
func (s *Service) Withdraw(ctx context.Context, userID string) error {
	// ユーザー存在確認
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("ユーザーの取得に失敗しました: %w", err)
	}
	if user == nil {
		return model.NewUserNotFoundError()
	}

	slog.Info("退会処理を開始します",
		slog.String("user_id", userID),
	)

	// 1. セッションを削除
	if s.sessionRepo != nil {
		if err := s.sessionRepo.DeleteByUserID(ctx, userID); err != nil {
			return fmt.Errorf("セッションの削除に失敗しました: %w", err)
		}
	}

	// 2. ユーザーを削除（identities, race_reviewsはCASCADE削除）
	if err := s.userRepo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("ユーザーの削除に失敗しました: %w", err)
	}

	slog.Info("退会処理が完了しました",
		slog.String("user_id", userID),
	)

	return nil
}
