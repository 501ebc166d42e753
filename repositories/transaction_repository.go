package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/bolekz/riffa-games/models"
	"github.com/google/uuid"
)

var ErrTransactionNotFound = errors.New("transaction not found")

type TransactionRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tx *models.Transaction) error
	GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Transaction, error)
	// GetByIDForUpdate блокирует строку транзакции на время обработки
	// вебхука, чтобы повторные уведомления шлюза не задвоили зачисление.
	GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Transaction, error)
	SetGatewayID(ctx context.Context, exec SQLExecutor, id string, gatewayID string) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id string, status models.TransactionStatus, details models.TransactionDetails) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error)
	DeleteByUser(ctx context.Context, exec SQLExecutor, userID string) error
}

type postgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) TransactionRepository {
	return &postgresTransactionRepository{db: db}
}

func (r *postgresTransactionRepository) getExecutor(exec SQLExecutor) SQLExecutor {
	if exec != nil {
		return exec
	}
	return r.db
}

const transactionColumns = `id, user_id, type, status, amount_rc, amount_brl_cents, gateway_transaction_id, details, created_at`

func scanTransaction(scanner interface{ Scan(dest ...any) error }, t *models.Transaction) error {
	return scanner.Scan(
		&t.ID, &t.UserID, &t.Type, &t.Status, &t.AmountRC, &t.AmountBRLCents,
		&t.GatewayTransactionID, &t.Details, &t.CreatedAt,
	)
}

func (r *postgresTransactionRepository) Create(ctx context.Context, exec SQLExecutor, t *models.Transaction) error {
	executor := r.getExecutor(exec)
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	query := `
		INSERT INTO transactions (id, user_id, type, status, amount_rc, amount_brl_cents, gateway_transaction_id, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at`

	err := executor.QueryRowContext(ctx, query,
		t.ID, t.UserID, t.Type, t.Status, t.AmountRC, t.AmountBRLCents, t.GatewayTransactionID, t.Details,
	).Scan(&t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

func (r *postgresTransactionRepository) GetByID(ctx context.Context, exec SQLExecutor, id string) (*models.Transaction, error) {
	return r.getOne(ctx, exec, id, "")
}

func (r *postgresTransactionRepository) GetByIDForUpdate(ctx context.Context, exec SQLExecutor, id string) (*models.Transaction, error) {
	return r.getOne(ctx, exec, id, " FOR UPDATE")
}

func (r *postgresTransactionRepository) getOne(ctx context.Context, exec SQLExecutor, id, suffix string) (*models.Transaction, error) {
	executor := r.getExecutor(exec)
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1` + suffix

	t := &models.Transaction{}
	if err := scanTransaction(executor.QueryRowContext(ctx, query, id), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTransactionNotFound
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	return t, nil
}

func (r *postgresTransactionRepository) SetGatewayID(ctx context.Context, exec SQLExecutor, id string, gatewayID string) error {
	executor := r.getExecutor(exec)
	query := `UPDATE transactions SET gateway_transaction_id = $1 WHERE id = $2`

	result, err := executor.ExecContext(ctx, query, gatewayID, id)
	if err != nil {
		return fmt.Errorf("failed to set gateway transaction id: %w", err)
	}
	return checkAffectedRows(result, ErrTransactionNotFound)
}

func (r *postgresTransactionRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id string, status models.TransactionStatus, details models.TransactionDetails) error {
	executor := r.getExecutor(exec)
	query := `UPDATE transactions SET status = $1, details = $2 WHERE id = $3`

	result, err := executor.ExecContext(ctx, query, status, details, id)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return checkAffectedRows(result, ErrTransactionNotFound)
}

func (r *postgresTransactionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	transactions := []models.Transaction{}
	for rows.Next() {
		t := models.Transaction{}
		if err := scanTransaction(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan transaction row: %w", err)
		}
		transactions = append(transactions, t)
	}
	return transactions, rows.Err()
}

func (r *postgresTransactionRepository) DeleteByUser(ctx context.Context, exec SQLExecutor, userID string) error {
	executor := r.getExecutor(exec)
	_, err := executor.ExecContext(ctx, `DELETE FROM transactions WHERE user_id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete transactions for user: %w", err)
	}
	return nil
}
