package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bolekz/riffa-games/models"
	"github.com/bolekz/riffa-games/payments"
	"github.com/bolekz/riffa-games/repositories"
)

// PaymentService создаёт платёжные сессии для покупки RiffaCoins.
type PaymentService struct {
	userRepo        repositories.UserRepository
	transactionRepo repositories.TransactionRepository
	gateway         payments.Gateway
	frontendURL     string
	backendURL      string
	logger          *slog.Logger
}

func NewPaymentService(
	userRepo repositories.UserRepository,
	transactionRepo repositories.TransactionRepository,
	gateway payments.Gateway,
	frontendURL string,
	backendURL string,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		gateway:         gateway,
		frontendURL:     frontendURL,
		backendURL:      backendURL,
		logger:          logger,
	}
}

type CreatePreferenceInput struct {
	Quantity       int64 `json:"quantity"`
	UnitPriceCents int64 `json:"unit_price_cents"`
}

// CreateRiffaCoinPreference создаёт локальную PENDING-транзакцию и платёжную
// сессию в шлюзе. ID локальной транзакции уходит шлюзу как external reference
// и связывает будущее уведомление с этой записью леджера.
func (s *PaymentService) CreateRiffaCoinPreference(ctx context.Context, userID string, input CreatePreferenceInput) (*payments.Preference, error) {
	if input.Quantity <= 0 || input.UnitPriceCents <= 0 {
		return nil, ErrInvalidAmount
	}

	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	totalBRLCents := input.Quantity * input.UnitPriceCents

	transaction := &models.Transaction{
		UserID:         userID,
		Type:           models.TransactionDeposit,
		Status:         models.TransactionPending,
		AmountRC:       input.Quantity,
		AmountBRLCents: &totalBRLCents,
		Details: models.TransactionDetails{
			Description: fmt.Sprintf("Purchase of %d RiffaCoins", input.Quantity),
		},
	}
	if err := s.transactionRepo.Create(ctx, nil, transaction); err != nil {
		return nil, err
	}

	s.logger.Info("pending deposit transaction created",
		slog.String("transaction_id", transaction.ID),
		slog.String("user_id", userID))

	pref, err := s.gateway.CreatePreference(ctx, payments.PreferenceRequest{
		Title:             fmt.Sprintf("Package of %d RiffaCoins", input.Quantity),
		PayerEmail:        user.Email,
		AmountBRLCents:    totalBRLCents,
		ExternalReference: transaction.ID,
		SuccessURL:        s.frontendURL + "/payment/success",
		FailureURL:        s.frontendURL + "/payment/failure",
		PendingURL:        s.frontendURL + "/payment/pending",
		NotificationURL:   s.backendURL + "/api/webhooks/mercadopago",
	})
	if err != nil {
		// Шлюз недоступен: транзакция не должна висеть в PENDING.
		if markErr := s.transactionRepo.UpdateStatus(ctx, nil, transaction.ID, models.TransactionFailed, transaction.Details); markErr != nil {
			s.logger.Error("failed to mark transaction FAILED after gateway error",
				slog.String("transaction_id", transaction.ID),
				slog.Any("error", markErr))
		}
		s.logger.Error("failed to create gateway preference",
			slog.String("transaction_id", transaction.ID),
			slog.Any("error", err))
		return nil, ErrPaymentGatewayFailure
	}

	if err := s.transactionRepo.SetGatewayID(ctx, nil, transaction.ID, pref.ID); err != nil {
		s.logger.Error("failed to store gateway preference id",
			slog.String("transaction_id", transaction.ID),
			slog.Any("error", err))
	}

	return pref, nil
}

// ListUserTransactions возвращает историю леджера пользователя.
func (s *PaymentService) ListUserTransactions(ctx context.Context, userID string, limit, offset int) ([]models.Transaction, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.transactionRepo.ListByUser(ctx, userID, limit, offset)
}
