package live

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Message — конверт для сообщений, рассылаемых в комнату турнира.
type Message struct {
	Type         string `json:"type"`
	Payload      any    `json:"payload"`
	TournamentID string `json:"tournament_id,omitempty"`
}

// Hub держит WebSocket-подписчиков по комнатам (одна комната — один турнир)
// и рассылает им обновления: продажи билетов, результаты, финализацию.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	rooms  map[string]map[*Client]bool
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.logger.Debug("websocket client joined room",
				slog.String("room", client.Room),
				slog.Int("clients", len(h.rooms[client.Room])))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.Room]; ok {
				if _, okClient := clients[client]; okClient {
					client.closeSend()
					delete(clients, client)
					if len(clients) == 0 {
						delete(h.rooms, client.Room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// BroadcastTournamentUpdate отправляет событие всем подписчикам турнира.
// Реализует services.TournamentBroadcaster; сбой доставки одному клиенту
// не задерживает остальных.
func (h *Hub) BroadcastTournamentUpdate(tournamentID string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.rooms[tournamentID]
	if !ok {
		return
	}

	message, err := json.Marshal(Message{
		Type:         "tournament_update",
		Payload:      payload,
		TournamentID: tournamentID,
	})
	if err != nil {
		h.logger.Error("failed to marshal broadcast message",
			slog.String("tournament_id", tournamentID),
			slog.Any("error", err))
		return
	}

	for client := range clients {
		client.trySend(message)
	}
}
