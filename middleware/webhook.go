package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/bolekz/riffa-games/payments"
)

const maxWebhookBodySize = 64 * 1024

// ValidateWebhookSignature проверяет HMAC-подпись уведомления платёжного
// шлюза до того, как запрос попадёт в обработчик. Тело запроса
// восстанавливается для дальнейшего чтения.
func ValidateWebhookSignature(secret string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				logger.Error("webhook secret is not configured, rejecting notification")
				http.Error(w, "Server configuration error", http.StatusInternalServerError)
				return
			}

			body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodySize))
			if err != nil {
				http.Error(w, "Failed to read request body", http.StatusBadRequest)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			var notification struct {
				Data struct {
					ID string `json:"id"`
				} `json:"data"`
			}
			if err := json.Unmarshal(body, &notification); err != nil || notification.Data.ID == "" {
				logger.Warn("webhook notification without data.id")
				http.Error(w, "Invalid notification payload", http.StatusBadRequest)
				return
			}

			err = payments.ValidateWebhookSignature(
				secret,
				r.Header.Get("x-signature"),
				r.Header.Get("x-request-id"),
				notification.Data.ID,
			)
			if err != nil {
				logger.Warn("webhook signature validation failed",
					slog.String("payment_id", notification.Data.ID),
					slog.Any("error", err))
				http.Error(w, "Invalid webhook signature", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
