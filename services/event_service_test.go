package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/bolekz/riffa-games/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEventRepo struct {
	mu     sync.Mutex
	events []models.UserEvent
}

func (f *fakeEventRepo) Create(ctx context.Context, e *models.UserEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, *e)
	return nil
}

func (f *fakeEventRepo) ListByUser(ctx context.Context, userID string, limit int) ([]models.UserEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	result := []models.UserEvent{}
	for _, e := range f.events {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	return result, nil
}

func TestAsyncEventRecorderPersistsBeforeClose(t *testing.T) {
	repo := &fakeEventRepo{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := NewAsyncEventRecorder(repo, logger)

	recorder.Record("user-1", models.EventUserRegistered, map[string]string{"email": "a@b.c"})
	recorder.Record("user-1", models.EventUserLoginSuccess, map[string]string{"email": "a@b.c"})
	recorder.Close()

	events, err := repo.ListByUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, models.EventUserRegistered, events[0].EventType)
	assert.Equal(t, models.EventUserLoginSuccess, events[1].EventType)
	assert.JSONEq(t, `{"email":"a@b.c"}`, string(events[0].Payload))
}

func TestAsyncEventRecorderUnmarshalablePayload(t *testing.T) {
	repo := &fakeEventRepo{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	recorder := NewAsyncEventRecorder(repo, logger)

	recorder.Record("user-1", models.EventUserDeleted, make(chan int))
	recorder.Close()

	events, err := repo.ListByUser(context.Background(), "user-1", 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.JSONEq(t, `{}`, string(events[0].Payload))
}
