package handlers

import (
	"log/slog"
	"net/http"

	"github.com/bolekz/riffa-games/live"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: ограничить Origin доменом фронтенда перед продакшеном.
		return true
	},
}

type WebSocketHandler struct {
	hub    *live.Hub
	logger *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, logger: logger}
}

// ServeWs подписывает клиента на live-обновления турнира.
// Подключение: /ws/tournaments/{tournamentID}.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	tournamentID := chi.URLParam(r, "tournamentID")
	if tournamentID == "" {
		http.Error(w, "Missing tournamentID", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("failed to upgrade websocket connection",
			slog.String("tournament_id", tournamentID),
			slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn, tournamentID)
	h.hub.Register <- client

	go client.WritePump(h.logger)
	go client.ReadPump(h.logger)
}
