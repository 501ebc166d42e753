package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/bolekz/riffa-games/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

var (
	ErrClaimNotFound         = errors.New("prize claim not found")
	ErrClaimInvalidReference = errors.New("prize claim references missing user or prize")
)

type ClaimRepository interface {
	Create(ctx context.Context, exec SQLExecutor, claim *models.PrizeClaim) error
	// GetByIDForUpdate блокирует строку заявки; используется при обработке
	// запроса на получение приза внутри транзакции.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.PrizeClaim, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id string, status models.PrizeClaimStatus, claimedAt time.Time) error
	ListByUser(ctx context.Context, userID string) ([]models.PrizeClaim, error)
	DeleteByUser(ctx context.Context, exec SQLExecutor, userID string) error
}

type postgresClaimRepository struct {
	db *sql.DB
}

func NewPostgresClaimRepository(db *sql.DB) ClaimRepository {
	return &postgresClaimRepository{db: db}
}

func (r *postgresClaimRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

func (r *postgresClaimRepository) Create(ctx context.Context, exec SQLExecutor, c *models.PrizeClaim) error {
	executor := r.getExecutor(exec)
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = models.ClaimPending
	}
	query := `
		INSERT INTO prize_claims (id, user_id, tournament_prize_id, status)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query, c.ID, c.UserID, c.TournamentPrizeID, c.Status).Scan(&c.CreatedAt)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrClaimInvalidReference
		}
		return fmt.Errorf("failed to create prize claim: %w", err)
	}
	return nil
}

func (r *postgresClaimRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.PrizeClaim, error) {
	executor := r.getExecutor(exec)
	query := `
		SELECT id, user_id, tournament_prize_id, status, claimed_at, created_at
		FROM prize_claims
		WHERE id = $1
		FOR UPDATE`

	c := &models.PrizeClaim{}
	err := executor.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.UserID, &c.TournamentPrizeID, &c.Status, &c.ClaimedAt, &c.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrClaimNotFound
		}
		return nil, fmt.Errorf("failed to get prize claim for update: %w", err)
	}
	return c, nil
}

func (r *postgresClaimRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id string, status models.PrizeClaimStatus, claimedAt time.Time) error {
	executor := r.getExecutor(exec)
	query := `UPDATE prize_claims SET status = $1, claimed_at = $2 WHERE id = $3`

	result, err := executor.ExecContext(ctx, query, status, claimedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update prize claim status: %w", err)
	}
	return checkAffectedRows(result, ErrClaimNotFound)
}

func (r *postgresClaimRepository) ListByUser(ctx context.Context, userID string) ([]models.PrizeClaim, error) {
	query := `
		SELECT c.id, c.user_id, c.tournament_prize_id, c.status, c.claimed_at, c.created_at,
		       p.id, p.tournament_id, p.rank, p.item_id, p.rc_amount, p.created_at,
		       i.id, i.name, i.description,
		       t.id, t.name
		FROM prize_claims c
		JOIN tournament_prizes p ON p.id = c.tournament_prize_id
		LEFT JOIN items i ON i.id = p.item_id
		JOIN tournaments t ON t.id = p.tournament_id
		WHERE c.user_id = $1
		ORDER BY c.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list prize claims: %w", err)
	}
	defer rows.Close()

	claims := []models.PrizeClaim{}
	for rows.Next() {
		c := models.PrizeClaim{}
		p := models.TournamentPrize{}
		var itemID, itemName, itemDescription sql.NullString
		var tournamentID, tournamentName string
		err := rows.Scan(
			&c.ID, &c.UserID, &c.TournamentPrizeID, &c.Status, &c.ClaimedAt, &c.CreatedAt,
			&p.ID, &p.TournamentID, &p.Rank, &p.ItemID, &p.RCAmount, &p.CreatedAt,
			&itemID, &itemName, &itemDescription,
			&tournamentID, &tournamentName,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan prize claim row: %w", err)
		}
		if itemID.Valid {
			item := &models.Item{ID: itemID.String, Name: itemName.String}
			if itemDescription.Valid {
				item.Description = &itemDescription.String
			}
			p.Item = item
		}
		p.Tournament = &models.Tournament{ID: tournamentID, Name: tournamentName}
		c.TournamentPrize = &p
		claims = append(claims, c)
	}
	return claims, rows.Err()
}

func (r *postgresClaimRepository) DeleteByUser(ctx context.Context, exec SQLExecutor, userID string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM prize_claims WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete prize claims for user: %w", err)
	}
	return nil
}
