package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/bolekz/riffa-games/models"
	"github.com/bolekz/riffa-games/repositories"
)

// EventRecorder — неблокирующая запись событий аудита.
// Ошибки записи только логируются и никогда не влияют на вызвавшую операцию.
type EventRecorder interface {
	Record(userID string, eventType models.UserEventType, payload any)
	Close()
}

type asyncEventRecorder struct {
	repo   repositories.EventRepository
	logger *slog.Logger
	queue  chan models.UserEvent
	done   chan struct{}
}

func NewAsyncEventRecorder(repo repositories.EventRepository, logger *slog.Logger) EventRecorder {
	r := &asyncEventRecorder{
		repo:   repo,
		logger: logger,
		queue:  make(chan models.UserEvent, 256),
		done:   make(chan struct{}),
	}
	go r.run()
	return r
}

func (r *asyncEventRecorder) Record(userID string, eventType models.UserEventType, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		r.logger.Warn("failed to marshal event payload",
			slog.String("event_type", string(eventType)),
			slog.Any("error", err))
		raw = []byte("{}")
	}

	event := models.UserEvent{
		UserID:    userID,
		EventType: eventType,
		Payload:   raw,
	}

	select {
	case r.queue <- event:
	default:
		// Очередь переполнена: событие теряется, операция не блокируется.
		r.logger.Warn("event queue full, dropping event",
			slog.String("event_type", string(eventType)),
			slog.String("user_id", userID))
	}
}

func (r *asyncEventRecorder) run() {
	defer close(r.done)
	for event := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := r.repo.Create(ctx, &event); err != nil {
			r.logger.Warn("failed to record user event",
				slog.String("event_type", string(event.EventType)),
				slog.String("user_id", event.UserID),
				slog.Any("error", err))
		}
		cancel()
	}
}

// Close дожидается записи уже поставленных в очередь событий.
func (r *asyncEventRecorder) Close() {
	close(r.queue)
	<-r.done
}
