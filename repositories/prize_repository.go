package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bolekz/riffa-games/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrPrizeNotFound     = errors.New("tournament prize not found")
	ErrPrizeRankConflict = errors.New("prize rank already taken for this tournament")
)

type PrizeRepository interface {
	Create(ctx context.Context, prize *models.TournamentPrize) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.TournamentPrize, error)
	// ListByTournament возвращает призы по возрастанию ранга — порядок,
	// в котором финализация назначает победителей.
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.TournamentPrize, error)
}

type postgresPrizeRepository struct {
	db *sql.DB
}

func NewPostgresPrizeRepository(db *sql.DB) PrizeRepository {
	return &postgresPrizeRepository{db: db}
}

func (r *postgresPrizeRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresPrizeRepository) Create(ctx context.Context, p *models.TournamentPrize) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	query := `
		INSERT INTO tournament_prizes (id, tournament_id, rank, item_id, rc_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, p.ID, p.TournamentID, p.Rank, p.ItemID, p.RCAmount).Scan(&p.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrPrizeRankConflict
		}
		return fmt.Errorf("failed to create tournament prize: %w", err)
	}
	return nil
}

func (r *postgresPrizeRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.TournamentPrize, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT p.id, p.tournament_id, p.rank, p.item_id, p.rc_amount, p.created_at,
		       i.id, i.name, i.description
		FROM tournament_prizes p
		LEFT JOIN items i ON i.id = p.item_id
		WHERE p.id = $1`

	p := &models.TournamentPrize{}
	var itemID, itemName, itemDescription sql.NullString
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.TournamentID, &p.Rank, &p.ItemID, &p.RCAmount, &p.CreatedAt,
		&itemID, &itemName, &itemDescription,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPrizeNotFound
		}
		return nil, fmt.Errorf("failed to get tournament prize: %w", err)
	}
	if itemID.Valid {
		item := &models.Item{ID: itemID.String, Name: itemName.String}
		if itemDescription.Valid {
			item.Description = &itemDescription.String
		}
		p.Item = item
	}
	return p, nil
}

func (r *postgresPrizeRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.TournamentPrize, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, tournament_id, rank, item_id, rc_amount, created_at
		FROM tournament_prizes
		WHERE tournament_id = $1
		ORDER BY rank ASC`

	rows, err := executor.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournament prizes: %w", err)
	}
	defer rows.Close()

	prizes := []models.TournamentPrize{}
	for rows.Next() {
		p := models.TournamentPrize{}
		if err := rows.Scan(&p.ID, &p.TournamentID, &p.Rank, &p.ItemID, &p.RCAmount, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prize row: %w", err)
		}
		prizes = append(prizes, p)
	}
	return prizes, rows.Err()
}
