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
	ErrUserNotFound         = errors.New("user not found")
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserNicknameConflict = errors.New("nickname is already in use")

	// Попытка увести баланс в минус: сработала защита riffa_coins_available + delta >= 0.
	ErrInsufficientBalance = errors.New("insufficient riffa coins balance")
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// AdjustBalance атомарно изменяет баланс на delta. Отрицательный итог
	// невозможен: такие обновления не затрагивают строк.
	AdjustBalance(ctx context.Context, exec SQLExecutor, userID string, delta int64) error
	Delete(ctx context.Context, exec SQLExecutor, id string) error
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const userColumns = `id, nickname, email, password_hash, role, riffa_coins_available, created_at`

func scanUser(row *sql.Row) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Nickname, &u.Email, &u.PasswordHash, &u.Role, &u.RiffaCoinsAvailable, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return u, nil
}

func (r *postgresUserRepository) Create(ctx context.Context, u *models.User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	query := `
		INSERT INTO users (id, nickname, email, password_hash, role, riffa_coins_available)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		u.ID, u.Nickname, u.Email, u.PasswordHash, u.Role, u.RiffaCoinsAvailable,
	).Scan(&u.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case "users_email_key":
				return ErrUserEmailConflict
			case "users_nickname_key":
				return ErrUserNicknameConflict
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.User, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(executor.QueryRowContext(ctx, query, id))
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *postgresUserRepository) AdjustBalance(ctx context.Context, exec SQLExecutor, userID string, delta int64) error {
	executor := r.getExecutor(exec)
	query := `
		UPDATE users
		SET riffa_coins_available = riffa_coins_available + $1
		WHERE id = $2 AND riffa_coins_available + $1 >= 0`

	result, err := executor.ExecContext(ctx, query, delta, userID)
	if err != nil {
		return fmt.Errorf("failed to adjust balance for user %s: %w", userID, err)
	}
	if delta < 0 {
		// Строка не затронута: либо пользователя нет, либо не хватает монет.
		// Вызывающий уже проверил существование внутри той же транзакции.
		return checkAffectedRows(result, ErrInsufficientBalance)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}

func (r *postgresUserRepository) Delete(ctx context.Context, exec SQLExecutor, id string) error {
	executor := r.getExecutor(exec)
	result, err := executor.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return checkAffectedRows(result, ErrUserNotFound)
}
