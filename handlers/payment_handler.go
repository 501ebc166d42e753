package handlers

import (
	"net/http"
	"strconv"

	"github.com/bolekz/riffa-games/middleware"
	"github.com/bolekz/riffa-games/services"
)

type PaymentHandler struct {
	paymentService *services.PaymentService
}

func NewPaymentHandler(paymentService *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreatePreference создаёт платёжную сессию для покупки RiffaCoins.
func (h *PaymentHandler) CreatePreference(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}

	var input services.CreatePreferenceInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	pref, err := h.paymentService.CreateRiffaCoinPreference(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, jsonResponse{"preference": pref}, nil)
}

// ListTransactions возвращает историю леджера текущего пользователя.
func (h *PaymentHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}

	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	transactions, err := h.paymentService.ListUserTransactions(r.Context(), userID, limit, offset)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"transactions": transactions}, nil)
}
