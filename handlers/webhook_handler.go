package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bolekz/riffa-games/services"
)

type WebhookHandler struct {
	webhookService *services.WebhookService
}

func NewWebhookHandler(webhookService *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// MercadoPago принимает уведомление шлюза. Подпись уже проверена
// в middleware; сюда приходит только аутентичное тело.
func (h *WebhookHandler) MercadoPago(w http.ResponseWriter, r *http.Request) {
	var notification struct {
		Type string `json:"type"`
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&notification); err != nil || notification.Data.ID == "" {
		badRequestResponse(w, r, services.ErrWebhookInvalidPayload)
		return
	}

	if notification.Type != "" && notification.Type != "payment" {
		// Другие типы уведомлений подтверждаем без обработки.
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.webhookService.ProcessPaymentNotification(r.Context(), notification.Data.ID); err != nil {
		// Не-200 заставит шлюз повторить доставку позже.
		serverErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusOK)
}
