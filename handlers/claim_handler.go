package handlers

import (
	"net/http"

	"github.com/bolekz/riffa-games/middleware"
	"github.com/bolekz/riffa-games/services"
	"github.com/go-chi/chi/v5"
)

type ClaimHandler struct {
	claimService *services.ClaimService
}

func NewClaimHandler(claimService *services.ClaimService) *ClaimHandler {
	return &ClaimHandler{claimService: claimService}
}

func (h *ClaimHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}

	claims, err := h.claimService.ListUserClaims(r.Context(), userID)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"claims": claims}, nil)
}

// Resolve переводит заявку в терминальный статус от имени владельца.
func (h *ClaimHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}
	claimID := chi.URLParam(r, "claimID")

	claim, err := h.claimService.ResolveClaim(r.Context(), userID, claimID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"claim": claim}, nil)
}
