package handlers

import (
	"net/http"

	"github.com/bolekz/riffa-games/middleware"
	"github.com/bolekz/riffa-games/services"
	"github.com/go-chi/chi/v5"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// Me возвращает профиль текущего пользователя.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}

	user, err := h.userService.GetProfile(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"user": user}, nil)
}

// PublicProfile возвращает публичный профиль по идентификатору.
func (h *UserHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	profile, err := h.userService.GetPublicProfile(r.Context(), userID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"user": profile}, nil)
}

// DeleteAccount удаляет аккаунт текущего пользователя со всеми зависимостями.
func (h *UserHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}

	if err := h.userService.DeleteAccount(r.Context(), userID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
