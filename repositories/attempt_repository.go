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
	ErrAttemptNotFound         = errors.New("tournament attempt not found")
	ErrAttemptAlreadyScored    = errors.New("tournament attempt already has a score")
	ErrAttemptInvalidReference = errors.New("attempt references missing tournament, competitor or transaction")
)

type AttemptRepository interface {
	Create(ctx context.Context, exec SQLExecutor, attempt *models.TournamentAttempt) error
	CountByCompetitor(ctx context.Context, exec SQLExecutor, tournamentID, competitorID string) (int, error)
	// FindOldestUnscored возвращает самую раннюю попытку без счёта:
	// попытки расходуются в порядке покупки.
	FindOldestUnscored(ctx context.Context, exec SQLExecutor, tournamentID, competitorID string) (*models.TournamentAttempt, error)
	// SetScore выставляет счёт ровно один раз; повторная запись не затрагивает строк.
	SetScore(ctx context.Context, exec SQLExecutor, attemptID string, score int) (*models.TournamentAttempt, error)
	ListScored(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.TournamentAttempt, error)
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.TournamentAttempt, error)
	DeleteByCompetitor(ctx context.Context, exec SQLExecutor, competitorID string) error
}

type postgresAttemptRepository struct {
	db *sql.DB
}

func NewPostgresAttemptRepository(db *sql.DB) AttemptRepository {
	return &postgresAttemptRepository{db: db}
}

func (r *postgresAttemptRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const attemptColumns = `id, tournament_id, competitor_id, amount_paid_in_rc, score, transaction_id, created_at`

func scanAttempt(scanner interface{ Scan(dest ...interface{}) error }) (*models.TournamentAttempt, error) {
	a := &models.TournamentAttempt{}
	err := scanner.Scan(&a.ID, &a.TournamentID, &a.CompetitorID, &a.AmountPaidInRC, &a.Score, &a.TransactionID, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAttemptNotFound
		}
		return nil, err
	}
	return a, nil
}

func (r *postgresAttemptRepository) Create(ctx context.Context, exec SQLExecutor, a *models.TournamentAttempt) error {
	executor := r.getExecutor(exec)
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	query := `
		INSERT INTO tournament_attempts (id, tournament_id, competitor_id, amount_paid_in_rc, transaction_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query,
		a.ID, a.TournamentID, a.CompetitorID, a.AmountPaidInRC, a.TransactionID,
	).Scan(&a.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			return ErrAttemptInvalidReference
		}
		return fmt.Errorf("failed to create tournament attempt: %w", err)
	}
	return nil
}

func (r *postgresAttemptRepository) CountByCompetitor(ctx context.Context, exec SQLExecutor, tournamentID, competitorID string) (int, error) {
	executor := r.getExecutor(exec)
	query := `SELECT COUNT(*) FROM tournament_attempts WHERE tournament_id = $1 AND competitor_id = $2`

	var count int
	if err := executor.QueryRowContext(ctx, query, tournamentID, competitorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

func (r *postgresAttemptRepository) FindOldestUnscored(ctx context.Context, exec SQLExecutor, tournamentID, competitorID string) (*models.TournamentAttempt, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + attemptColumns + `
		FROM tournament_attempts
		WHERE tournament_id = $1 AND competitor_id = $2 AND score IS NULL
		ORDER BY created_at ASC
		LIMIT 1`

	return scanAttempt(executor.QueryRowContext(ctx, query, tournamentID, competitorID))
}

func (r *postgresAttemptRepository) SetScore(ctx context.Context, exec SQLExecutor, attemptID string, score int) (*models.TournamentAttempt, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournament_attempts
		SET score = $1
		WHERE id = $2 AND score IS NULL
		RETURNING ` + attemptColumns

	a, err := scanAttempt(executor.QueryRowContext(ctx, query, score, attemptID))
	if err != nil {
		if errors.Is(err, ErrAttemptNotFound) {
			return nil, ErrAttemptAlreadyScored
		}
		return nil, fmt.Errorf("failed to set attempt score: %w", err)
	}
	return a, nil
}

func (r *postgresAttemptRepository) ListScored(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.TournamentAttempt, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + attemptColumns + `
		FROM tournament_attempts
		WHERE tournament_id = $1 AND score IS NOT NULL
		ORDER BY created_at ASC`

	return r.queryAttempts(ctx, executor, query, tournamentID)
}

func (r *postgresAttemptRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID string) ([]models.TournamentAttempt, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + attemptColumns + `
		FROM tournament_attempts
		WHERE tournament_id = $1
		ORDER BY created_at ASC`

	return r.queryAttempts(ctx, executor, query, tournamentID)
}

func (r *postgresAttemptRepository) queryAttempts(ctx context.Context, executor SQLExecutor, query string, args ...interface{}) ([]models.TournamentAttempt, error) {
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	attempts := []models.TournamentAttempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attempt row: %w", err)
		}
		attempts = append(attempts, *a)
	}
	return attempts, rows.Err()
}

func (r *postgresAttemptRepository) DeleteByCompetitor(ctx context.Context, exec SQLExecutor, competitorID string) error {
	executor := r.getExecutor(exec)
	if _, err := executor.ExecContext(ctx, `DELETE FROM tournament_attempts WHERE competitor_id = $1`, competitorID); err != nil {
		return fmt.Errorf("failed to delete attempts for competitor: %w", err)
	}
	return nil
}
