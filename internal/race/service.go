// Package race はレースカタログのドメインロジックを提供する。
package race

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/hitoshi/pitwall/internal/model"
	"github.com/hitoshi/pitwall/internal/repository"
)

// Service はレースカタログのサービス層。
type Service struct {
	raceRepo repository.RaceRepository
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(raceRepo repository.RaceRepository) *Service {
	return &Service{raceRepo: raceRepo}
}

// ListRaces は全レースの一覧を返す。
func (s *Service) ListRaces(ctx context.Context) ([]*model.Race, error) {
	races, err := s.raceRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("レース一覧の取得に失敗しました: %w", err)
	}
	return races, nil
}

// GetRaceBySlug はslugでレースを検索する。
// slugはレースの唯一の公開識別子であり、内部UUIDはURLに露出しない。
// 見つからない場合はRACE_NOT_FOUNDを返す。
func (s *Service) GetRaceBySlug(ctx context.Context, slug string) (*model.Race, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, model.NewInvalidRequestError("slugは必須です")
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

// CreateRace はレースを作成する。シードコマンドから使用される。
func (s *Service) CreateRace(ctx context.Context, slug, name string) (*model.Race, error) {
	slug = strings.TrimSpace(slug)
	name = strings.TrimSpace(name)
	if slug == "" {
		return nil, model.NewInvalidRequestError("slugは必須です")
	}
	if name == "" {
		return nil, model.NewInvalidRequestError("nameは必須です")
	}

	race := &model.Race{
		ID:         uuid.New().String(),
		Slug:       slug,
		Name:       name,
		LatestRace: false,
	}

	if err := s.raceRepo.Create(ctx, race); err != nil {
		return nil, fmt.Errorf("レースの作成に失敗しました: %w", err)
	}

	slog.Info("race created",
		slog.String("race_id", race.ID),
		slog.String("slug", race.Slug),
	)

	return race, nil
}

// MarkLatest は指定slugのレースを「最新レース」に設定する。
// 最新フラグが立つレースは常に高々1件であり、切り替えはリポジトリが
// 同一トランザクションで行う。
func (s *Service) MarkLatest(ctx context.Context, slug string) error {
	race, err := s.GetRaceBySlug(ctx, slug)
	if err != nil {
		return err
	}

	if err := s.raceRepo.SetLatest(ctx, race.ID); err != nil {
		return fmt.Errorf("最新レースの設定に失敗しました: %w", err)
	}

	slog.Info("latest race updated",
		slog.String("race_id", race.ID),
		slog.String("slug", race.Slug),
	)

	return nil
}
