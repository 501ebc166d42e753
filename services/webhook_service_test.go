package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/bolekz/riffa-games/models"
	"github.com/bolekz/riffa-games/payments"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type webhookFixture struct {
	service      *WebhookService
	users        *fakeUserRepo
	transactions *fakeTransactionRepo
	gateway      *fakeGateway
	events       *fakeEventRecorder
}

func newWebhookFixture() *webhookFixture {
	f := &webhookFixture{
		users:        newFakeUserRepo(),
		transactions: newFakeTransactionRepo(),
		gateway:      newFakeGateway(),
		events:       &fakeEventRecorder{},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f.service = NewWebhookService(f.users, f.transactions, &fakeTxRunner{}, f.gateway, f.events, logger)
	return f
}

func (f *webhookFixture) pendingDeposit(userID string, amountRC int64) *models.Transaction {
	tx := &models.Transaction{
		UserID:   userID,
		Type:     models.TransactionDeposit,
		Status:   models.TransactionPending,
		AmountRC: amountRC,
	}
	_ = f.transactions.Create(context.Background(), nil, tx)
	return tx
}

func TestWebhookApprovedPaymentCreditsBalance(t *testing.T) {
	f := newWebhookFixture()
	user := f.users.addUser("alice", 100)
	tx := f.pendingDeposit(user.ID, 500)
	f.gateway.payments["mp-1"] = &payments.PaymentInfo{
		ID:                "mp-1",
		Status:            "approved",
		ExternalReference: tx.ID,
		PaymentMethodID:   "visa",
		CardLastFour:      "4242",
	}

	err := f.service.ProcessPaymentNotification(context.Background(), "mp-1")
	require.NoError(t, err)

	assert.Equal(t, int64(600), f.users.balance(user.ID))

	stored := f.transactions.get(tx.ID)
	assert.Equal(t, models.TransactionCompleted, stored.Status)
	require.NotNil(t, stored.GatewayTransactionID)
	assert.Equal(t, "mp-1", *stored.GatewayTransactionID)
	assert.Equal(t, "approved", stored.Details.GatewayStatus)
	assert.Equal(t, "visa", stored.Details.PaymentMethod)
	assert.Equal(t, "4242", stored.Details.CardLastFour)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, models.EventPaymentSuccess, f.events.events[0].EventType)
}

func TestWebhookDuplicateNotificationIsNoOp(t *testing.T) {
	f := newWebhookFixture()
	user := f.users.addUser("alice", 0)
	tx := f.pendingDeposit(user.ID, 500)
	f.gateway.payments["mp-1"] = &payments.PaymentInfo{
		ID:                "mp-1",
		Status:            "approved",
		ExternalReference: tx.ID,
	}

	require.NoError(t, f.service.ProcessPaymentNotification(context.Background(), "mp-1"))
	require.NoError(t, f.service.ProcessPaymentNotification(context.Background(), "mp-1"))

	// Зачисление ровно один раз, сколько бы уведомлений ни пришло.
	assert.Equal(t, int64(500), f.users.balance(user.ID))
	assert.Len(t, f.events.events, 1)
}

func TestWebhookRejectedPaymentMarksFailed(t *testing.T) {
	f := newWebhookFixture()
	user := f.users.addUser("alice", 0)
	tx := f.pendingDeposit(user.ID, 500)
	f.gateway.payments["mp-1"] = &payments.PaymentInfo{
		ID:                "mp-1",
		Status:            "rejected",
		ExternalReference: tx.ID,
	}

	require.NoError(t, f.service.ProcessPaymentNotification(context.Background(), "mp-1"))

	assert.Equal(t, int64(0), f.users.balance(user.ID))
	stored := f.transactions.get(tx.ID)
	assert.Equal(t, models.TransactionFailed, stored.Status)
	assert.Equal(t, "rejected", stored.Details.GatewayStatus)
	assert.Empty(t, f.events.events)
}

func TestWebhookUnknownReferenceIsAcknowledged(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.payments["mp-1"] = &payments.PaymentInfo{
		ID:                "mp-1",
		Status:            "approved",
		ExternalReference: uuid.NewString(),
	}

	assert.NoError(t, f.service.ProcessPaymentNotification(context.Background(), "mp-1"))
}

func TestWebhookEmptyReferenceIsAcknowledged(t *testing.T) {
	f := newWebhookFixture()
	f.gateway.payments["mp-1"] = &payments.PaymentInfo{ID: "mp-1", Status: "approved"}

	assert.NoError(t, f.service.ProcessPaymentNotification(context.Background(), "mp-1"))
}

func TestWebhookGatewayFetchFailure(t *testing.T) {
	f := newWebhookFixture()

	err := f.service.ProcessPaymentNotification(context.Background(), "unknown")
	assert.ErrorIs(t, err, ErrPaymentGatewayFailure)
}
