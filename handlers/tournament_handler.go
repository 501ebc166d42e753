package handlers

import (
	"net/http"
	"strconv"

	"github.com/bolekz/riffa-games/middleware"
	"github.com/bolekz/riffa-games/models"
	"github.com/bolekz/riffa-games/repositories"
	"github.com/bolekz/riffa-games/services"
	"github.com/go-chi/chi/v5"
)

type TournamentHandler struct {
	tournamentService *services.TournamentService
}

func NewTournamentHandler(tournamentService *services.TournamentService) *TournamentHandler {
	return &TournamentHandler{tournamentService: tournamentService}
}

func (h *TournamentHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}

	var input services.CreateTournamentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), userID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil)
}

func (h *TournamentHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repositories.ListTournamentsFilter{
		OnlyVisible: true,
		Limit:       20,
		Offset:      0,
	}
	if gameID := q.Get("game_id"); gameID != "" {
		filter.GameID = &gameID
	}
	if status := q.Get("status"); status != "" {
		s := models.TournamentStatus(status)
		filter.Status = &s
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 && limit <= 100 {
		filter.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset >= 0 {
		filter.Offset = offset
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), filter)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil)
}

func (h *TournamentHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")

	tournament, err := h.tournamentService.GetTournamentByID(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

// Join покупает билет текущему пользователю.
func (h *TournamentHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}
	tournamentID := chi.URLParam(r, "tournamentID")

	result, err := h.tournamentService.Join(r.Context(), userID, tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, result, nil)
}

func (h *TournamentHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}
	tournamentID := chi.URLParam(r, "tournamentID")

	var input struct {
		Score int `json:"score"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	attempt, err := h.tournamentService.SubmitScore(r.Context(), userID, tournamentID, input.Score)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"attempt": attempt}, nil)
}

// Finalize — ручной запуск финализации (админ).
func (h *TournamentHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")

	tournament, err := h.tournamentService.Finalize(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}

// Cancel отменяет турнир с возвратами (админ).
func (h *TournamentHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")

	result, err := h.tournamentService.Cancel(r.Context(), tournamentID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result, nil)
}

// UploadBanner принимает multipart-форму с файлом баннера.
func (h *TournamentHandler) UploadBanner(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "invalid authentication token")
		return
	}
	tournamentID := chi.URLParam(r, "tournamentID")

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	file, header, err := r.FormFile("banner")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	tournament, err := h.tournamentService.UpdateBanner(r.Context(), userID, tournamentID, header.Header.Get("Content-Type"), file)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil)
}
