package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/bolekz/riffa-games/models"
	"github.com/google/uuid"
)

type EventRepository interface {
	Create(ctx context.Context, event *models.UserEvent) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.UserEvent, error)
}

type postgresEventRepository struct {
	db *sql.DB
}

func NewPostgresEventRepository(db *sql.DB) EventRepository {
	return &postgresEventRepository{db: db}
}

func (r *postgresEventRepository) Create(ctx context.Context, e *models.UserEvent) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `
		INSERT INTO user_events (id, user_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query, e.ID, e.UserID, e.EventType, []byte(e.Payload)).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user event: %w", err)
	}
	return nil
}

func (r *postgresEventRepository) ListByUser(ctx context.Context, userID string, limit int) ([]models.UserEvent, error) {
	query := `
		SELECT id, user_id, event_type, payload, created_at
		FROM user_events
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list user events: %w", err)
	}
	defer rows.Close()

	events := []models.UserEvent{}
	for rows.Next() {
		e := models.UserEvent{}
		var payload []byte
		if err := rows.Scan(&e.ID, &e.UserID, &e.EventType, &payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan user event row: %w", err)
		}
		e.Payload = payload
		events = append(events, e)
	}
	return events, rows.Err()
}
