package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/pitwall/internal/model"
)

// PostgresRaceRepo はPostgreSQLを使用したレースカタログリポジトリ。
type PostgresRaceRepo struct {
	db *sql.DB
}

// NewPostgresRaceRepo はPostgresRaceRepoを生成する。
func NewPostgresRaceRepo(db *sql.DB) *PostgresRaceRepo {
	return &PostgresRaceRepo{db: db}
}

// List は全レースを返す。順序は挿入順。
func (r *PostgresRaceRepo) List(ctx context.Context) ([]*model.Race, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, slug, name, latest_race FROM races`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list races: %w", err)
	}
	defer rows.Close()

	var races []*model.Race
	for rows.Next() {
		race := &model.Race{}
		if err := rows.Scan(&race.ID, &race.Slug, &race.Name, &race.LatestRace); err != nil {
			return nil, fmt.Errorf("failed to scan race: %w", err)
		}
		races = append(races, race)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate races: %w", err)
	}

	return races, nil
}

// FindByID は指定IDのレースを取得する。見つからない場合はnilを返す。
func (r *PostgresRaceRepo) FindByID(ctx context.Context, id string) (*model.Race, error) {
	race := &model.Race{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, slug, name, latest_race FROM races WHERE id = $1`,
		id,
	).Scan(&race.ID, &race.Slug, &race.Name, &race.LatestRace)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find race by ID: %w", err)
	}

	return race, nil
}

// FindBySlug は指定slugのレースを取得する。見つからない場合はnilを返す。
func (r *PostgresRaceRepo) FindBySlug(ctx context.Context, slug string) (*model.Race, error) {
	race := &model.Race{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, slug, name, latest_race FROM races WHERE slug = $1`,
		slug,
	).Scan(&race.ID, &race.Slug, &race.Name, &race.LatestRace)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find race by slug: %w", err)
	}

	return race, nil
}

// Create はレースを作成する。slug重複はエラーを返す。
func (r *PostgresRaceRepo) Create(ctx context.Context, race *model.Race) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO races (id, slug, name, latest_race)
		 VALUES ($1, $2, $3, $4)`,
		race.ID, race.Slug, race.Name, race.LatestRace,
	)
	if err != nil {
		return fmt.Errorf("failed to insert race: %w", err)
	}
	return nil
}

// SetLatest は指定レースのみをlatest_race=trueにする。
// クリアと設定を同一トランザクションで行うため、部分一意インデックス
// （latest高々1件）の違反は発生しない。
func (r *PostgresRaceRepo) SetLatest(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`UPDATE races SET latest_race = FALSE WHERE latest_race`,
	); err != nil {
		return fmt.Errorf("failed to clear latest race flag: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE races SET latest_race = TRUE WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("failed to set latest race flag: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("race not found: %s", id)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ RaceRepository = (*PostgresRaceRepo)(nil)
