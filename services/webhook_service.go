package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bolekz/riffa-games/models"
	"github.com/bolekz/riffa-games/payments"
	"github.com/bolekz/riffa-games/repositories"
)

// WebhookService обрабатывает уведомления платёжного шлюза. Это единственный
// путь, которым в леджер попадают новые RiffaCoins извне системы.
type WebhookService struct {
	userRepo        repositories.UserRepository
	transactionRepo repositories.TransactionRepository
	txRunner        repositories.TxRunner
	gateway         payments.Gateway
	events          EventRecorder
	logger          *slog.Logger
}

func NewWebhookService(
	userRepo repositories.UserRepository,
	transactionRepo repositories.TransactionRepository,
	txRunner repositories.TxRunner,
	gateway payments.Gateway,
	events EventRecorder,
	logger *slog.Logger,
) *WebhookService {
	return &WebhookService{
		userRepo:        userRepo,
		transactionRepo: transactionRepo,
		txRunner:        txRunner,
		gateway:         gateway,
		events:          events,
		logger:          logger,
	}
}

// ProcessPaymentNotification сверяет платёж со шлюзом и завершает локальную
// транзакцию. Повторные уведомления по уже обработанной транзакции — no-op:
// зачисление происходит ровно один раз.
func (s *WebhookService) ProcessPaymentNotification(ctx context.Context, paymentID string) error {
	s.logger.Info("processing payment notification", slog.String("payment_id", paymentID))

	payment, err := s.gateway.GetPayment(ctx, paymentID)
	if err != nil {
		s.logger.Error("failed to fetch payment from gateway",
			slog.String("payment_id", paymentID), slog.Any("error", err))
		return ErrPaymentGatewayFailure
	}
	if payment.ExternalReference == "" {
		s.logger.Error("payment carries no external reference", slog.String("payment_id", paymentID))
		return nil
	}

	return s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		transaction, err := s.transactionRepo.GetByIDForUpdate(ctx, exec, payment.ExternalReference)
		if err != nil {
			if errors.Is(err, repositories.ErrTransactionNotFound) {
				// Неизвестная ссылка — проблема целостности на стороне шлюза, не наша.
				s.logger.Error("local transaction not found for payment",
					slog.String("payment_id", paymentID),
					slog.String("external_reference", payment.ExternalReference))
				return nil
			}
			return err
		}

		if transaction.Status != models.TransactionPending {
			s.logger.Warn("transaction already processed, skipping",
				slog.String("transaction_id", transaction.ID),
				slog.String("status", string(transaction.Status)))
			return nil
		}

		if !payment.Approved() {
			details := transaction.Details
			details.GatewayStatus = payment.Status
			if err := s.transactionRepo.UpdateStatus(ctx, exec, transaction.ID, models.TransactionFailed, details); err != nil {
				return err
			}
			s.logger.Warn("payment not approved, transaction marked FAILED",
				slog.String("transaction_id", transaction.ID),
				slog.String("gateway_status", payment.Status))
			return nil
		}

		if err := s.userRepo.AdjustBalance(ctx, exec, transaction.UserID, transaction.AmountRC); err != nil {
			return err
		}

		details := transaction.Details
		details.GatewayStatus = payment.Status
		details.PaymentMethod = payment.PaymentMethodID
		details.CardLastFour = payment.CardLastFour
		if err := s.transactionRepo.UpdateStatus(ctx, exec, transaction.ID, models.TransactionCompleted, details); err != nil {
			return err
		}
		if err := s.transactionRepo.SetGatewayID(ctx, exec, transaction.ID, payment.ID); err != nil {
			return err
		}

		var amountBRL int64
		if transaction.AmountBRLCents != nil {
			amountBRL = *transaction.AmountBRLCents
		}
		s.events.Record(transaction.UserID, models.EventPaymentSuccess, models.PaymentSuccessPayload{
			TransactionID:  transaction.ID,
			AmountRC:       transaction.AmountRC,
			AmountBRLCents: amountBRL,
		})

		s.logger.Info("deposit completed",
			slog.String("transaction_id", transaction.ID),
			slog.String("user_id", transaction.UserID),
			slog.Int64("amount_rc", transaction.AmountRC))
		return nil
	})
}
