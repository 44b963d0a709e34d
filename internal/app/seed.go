package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/hitoshi/pitwall/internal/config"
	"github.com/hitoshi/pitwall/internal/database"
	"github.com/hitoshi/pitwall/internal/race"
	"github.com/hitoshi/pitwall/internal/repository"
)

// calendarEntry はシードファイル内の1レース分のエントリ。
type calendarEntry struct {
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Latest bool   `json:"latest"`
}

// loadCalendar はJSONファイルからレースカレンダーを読み込む。
// latestフラグの立つエントリは高々1件でなければならない。
func loadCalendar(path string) ([]calendarEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("カレンダーファイルの読み込みに失敗しました: %w", err)
	}

	var entries []calendarEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("カレンダーファイルの解析に失敗しました: %w", err)
	}

	latestCount := 0
	for i, e := range entries {
		if e.Slug == "" {
			return nil, fmt.Errorf("カレンダーの%d番目のエントリにslugがありません", i+1)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("カレンダーの%d番目のエントリにnameがありません", i+1)
		}
		if e.Latest {
			latestCount++
		}
	}
	if latestCount > 1 {
		return nil, fmt.Errorf("latestフラグの立つレースは1件までです（%d件指定）", latestCount)
	}

	return entries, nil
}

// runSeed はレースカレンダーをデータベースに投入する。
// slug重複のレースはスキップし、既存データは変更しない。
// latestフラグの立つレースを最後に「最新レース」に設定する。
func runSeed(cfg *config.Config, path string) error {
	entries, err := loadCalendar(path)
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	raceRepo := repository.NewPostgresRaceRepo(db)
	raceService := race.NewService(raceRepo)

	ctx := context.Background()

	var latestSlug string
	created := 0
	skipped := 0

	for _, e := range entries {
		existing, err := raceRepo.FindBySlug(ctx, e.Slug)
		if err != nil {
			return fmt.Errorf("レースの確認に失敗しました: %w", err)
		}
		if existing != nil {
			skipped++
		} else {
			if _, err := raceService.CreateRace(ctx, e.Slug, e.Name); err != nil {
				return fmt.Errorf("レース %q の作成に失敗しました: %w", e.Slug, err)
			}
			created++
		}

		if e.Latest {
			latestSlug = e.Slug
		}
	}

	if latestSlug != "" {
		if err := raceService.MarkLatest(ctx, latestSlug); err != nil {
			return fmt.Errorf("最新レースの設定に失敗しました: %w", err)
		}
	}

	slog.Info("レースカレンダーの投入が完了しました",
		slog.Int("created", created),
		slog.Int("skipped", skipped),
		slog.String("latest", latestSlug),
	)

	return nil
}
