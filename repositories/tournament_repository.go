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
	ErrTournamentNotFound       = errors.New("tournament not found")
	ErrTournamentInvalidGame    = errors.New("invalid game or mini game reference")
	ErrTournamentInvalidOwner   = errors.New("invalid owner reference")
	ErrTournamentTargetExceeded = errors.New("tickets sold would exceed ticket target")
)

type ListTournamentsFilter struct {
	Status      *models.TournamentStatus
	GameID      *string
	OnlyVisible bool // только PUBLIC/SUBSCRIBERS_ONLY с открытой продажей
	Limit       int
	Offset      int
}

type TournamentRepository interface {
	Create(ctx context.Context, t *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error)
	// GetByIDForUpdate блокирует строку турнира (SELECT ... FOR UPDATE) до конца
	// транзакции. Обязателен для Join/Finalize/Cancel: два конкурентных Join не
	// должны оба увидеть tickets_sold = target-1.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	// IncrementTicketsSold увеличивает счётчик на 1 строго в пределах цели.
	IncrementTicketsSold(ctx context.Context, exec SQLExecutor, id string) (int, error)
	UpdateStatus(ctx context.Context, exec SQLExecutor, id string, status models.TournamentStatus) error
	SetCompleted(ctx context.Context, exec SQLExecutor, id string, winnerID string) error
	ListDueForFinalization(ctx context.Context, now time.Time) ([]models.Tournament, error)
	NullifyUserRefs(ctx context.Context, exec SQLExecutor, userID string) error
	UpdateBannerKey(ctx context.Context, tournamentID string, bannerKey *string) error
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

func (r *postgresTournamentRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const tournamentColumns = `
	id, name, description, game_id, mini_game_id, owner_id, winner_id,
	status, visibility, price_per_ticket, ticket_target, tickets_sold,
	max_attempts_per_user, selling_ends_at, competition_starts_at,
	competition_ends_at, banner_key, created_at`

func scanTournament(scanner interface{ Scan(dest ...interface{}) error }) (*models.Tournament, error) {
	t := &models.Tournament{}
	err := scanner.Scan(
		&t.ID, &t.Name, &t.Description, &t.GameID, &t.MiniGameID, &t.OwnerID, &t.WinnerID,
		&t.Status, &t.Visibility, &t.PricePerTicket, &t.TicketTarget, &t.TicketsSold,
		&t.MaxAttemptsPerUser, &t.SellingEndsAt, &t.CompetitionStartsAt,
		&t.CompetitionEndsAt, &t.BannerKey, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
		INSERT INTO tournaments (
			id, name, description, game_id, mini_game_id, owner_id,
			status, visibility, price_per_ticket, ticket_target,
			max_attempts_per_user, selling_ends_at, competition_starts_at, competition_ends_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING tickets_sold, created_at`

	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.Name, t.Description, t.GameID, t.MiniGameID, t.OwnerID,
		t.Status, t.Visibility, t.PricePerTicket, t.TicketTarget,
		t.MaxAttemptsPerUser, t.SellingEndsAt, t.CompetitionStartsAt, t.CompetitionEndsAt,
	).Scan(&t.TicketsSold, &t.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23503" {
			switch pqErr.Constraint {
			case "tournaments_game_id_fkey", "tournaments_mini_game_id_fkey":
				return ErrTournamentInvalidGame
			case "tournaments_owner_id_fkey":
				return ErrTournamentInvalidOwner
			}
		}
		return fmt.Errorf("failed to create tournament: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1`
	return scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Tournament, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE id = $1 FOR UPDATE`
	return scanTournament(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + ` FROM tournaments WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}
	if filter.GameID != nil {
		query += fmt.Sprintf(" AND game_id = $%d", argID)
		args = append(args, *filter.GameID)
		argID++
	}
	if filter.OnlyVisible {
		query += fmt.Sprintf(" AND visibility IN ('PUBLIC', 'SUBSCRIBERS_ONLY') AND selling_ends_at > $%d", argID)
		args = append(args, time.Now())
		argID++
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	defer rows.Close()

	tournaments := []models.Tournament{}
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

func (r *postgresTournamentRepository) IncrementTicketsSold(ctx context.Context, exec SQLExecutor, id string) (int, error) {
	executor := r.getExecutor(exec)
	query := `
		UPDATE tournaments
		SET tickets_sold = tickets_sold + 1
		WHERE id = $1 AND status = 'SELLING' AND tickets_sold < ticket_target
		RETURNING tickets_sold`

	var ticketsSold int
	err := executor.QueryRowContext(ctx, query, id).Scan(&ticketsSold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrTournamentTargetExceeded
		}
		return 0, fmt.Errorf("failed to increment tickets sold: %w", err)
	}
	return ticketsSold, nil
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id string, status models.TournamentStatus) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `UPDATE tournaments SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to update tournament status: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) SetCompleted(ctx context.Context, exec SQLExecutor, id string, winnerID string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx,
		`UPDATE tournaments SET status = 'COMPLETED', winner_id = $1 WHERE id = $2`, winnerID, id)
	if err != nil {
		return fmt.Errorf("failed to complete tournament: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) ListDueForFinalization(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments
		WHERE status = 'SELLING' AND competition_ends_at <= $1
		ORDER BY competition_ends_at ASC`

	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments due for finalization: %w", err)
	}
	defer rows.Close()

	tournaments := []models.Tournament{}
	for rows.Next() {
		t, err := scanTournament(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tournament row: %w", err)
		}
		tournaments = append(tournaments, *t)
	}
	return tournaments, rows.Err()
}

// NullifyUserRefs отвязывает удаляемого пользователя от турниров,
// где он владелец или победитель (owner optional по модели данных).
func (r *postgresTournamentRepository) NullifyUserRefs(ctx context.Context, exec SQLExecutor, userID string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `
		UPDATE tournaments
		SET owner_id = CASE WHEN owner_id = $1 THEN NULL ELSE owner_id END,
		    winner_id = CASE WHEN winner_id = $1 THEN NULL ELSE winner_id END
		WHERE owner_id = $1 OR winner_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to nullify tournament user refs: %w", err)
	}
	return nil
}

func (r *postgresTournamentRepository) UpdateBannerKey(ctx context.Context, tournamentID string, bannerKey *string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE tournaments SET banner_key = $1 WHERE id = $2`, bannerKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament banner key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}
