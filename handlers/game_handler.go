package handlers

import (
	"net/http"

	"github.com/bolekz/riffa-games/services"
	"github.com/go-chi/chi/v5"
)

type GameHandler struct {
	gameService *services.GameService
}

func NewGameHandler(gameService *services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

func (h *GameHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	game, err := h.gameService.GetGameByID(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil)
}

// UploadLogo принимает multipart-форму с файлом логотипа (админ).
func (h *GameHandler) UploadLogo(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	file, header, err := r.FormFile("logo")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	game, err := h.gameService.UpdateLogo(r.Context(), gameID, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil)
}
