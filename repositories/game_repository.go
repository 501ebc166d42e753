package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bolekz/riffa-games/models"
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrMiniGameNotFound = errors.New("mini game not found")
)

type GameRepository interface {
	GetByID(ctx context.Context, id string) (*models.Game, error)
	GetMiniGameByID(ctx context.Context, exec SQLExecutor, id string) (*models.MiniGame, error)
	UpdateLogoKey(ctx context.Context, gameID string, logoKey *string) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresGameRepository) GetByID(ctx context.Context, id string) (*models.Game, error) {
	query := `SELECT id, name, created_at, logo_key FROM games WHERE id = $1`

	g := &models.Game{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.CreatedAt, &g.LogoKey)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return g, nil
}

func (r *postgresGameRepository) GetMiniGameByID(ctx context.Context, exec SQLExecutor, id string) (*models.MiniGame, error) {
	executor := r.getExecutor(exec)
	query := `SELECT id, game_id, name, min_score, max_score, score_order FROM mini_games WHERE id = $1`

	m := &models.MiniGame{}
	err := executor.QueryRowContext(ctx, query, id).Scan(&m.ID, &m.GameID, &m.Name, &m.MinScore, &m.MaxScore, &m.ScoreOrder)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMiniGameNotFound
		}
		return nil, fmt.Errorf("failed to get mini game: %w", err)
	}
	return m, nil
}

func (r *postgresGameRepository) UpdateLogoKey(ctx context.Context, gameID string, logoKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE games SET logo_key = $1 WHERE id = $2`, logoKey, gameID)
	if err != nil {
		return fmt.Errorf("failed to update game logo key: %w", err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}
