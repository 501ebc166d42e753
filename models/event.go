package models

import (
	"encoding/json"
	"time"
)

// UserEventType задаёт фиксированный словарь типов аудита.
type UserEventType string

const (
	EventUserRegistered    UserEventType = "USER_REGISTERED"
	EventUserLoginSuccess  UserEventType = "USER_LOGIN_SUCCESS"
	EventUserLoginFailure  UserEventType = "USER_LOGIN_FAILURE"
	EventUserDeleted       UserEventType = "USER_DELETED"
	EventTournamentCreated UserEventType = "TOURNAMENT_CREATED"
	EventPaymentSuccess    UserEventType = "PAYMENT_SUCCESS"
	EventPrizeClaimed      UserEventType = "PRIZE_CLAIMED"
)

// UserEvent — best-effort запись аудита; её потеря не влияет на леджер.
type UserEvent struct {
	ID        string          `json:"id" db:"id"`
	UserID    string          `json:"user_id" db:"user_id"`
	EventType UserEventType   `json:"event_type" db:"event_type"`
	Payload   json.RawMessage `json:"payload" db:"payload"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Типизированные полезные нагрузки аудита (сериализуются в Payload).

type TournamentCreatedPayload struct {
	TournamentID   string `json:"tournament_id"`
	TournamentName string `json:"tournament_name"`
}

type PaymentSuccessPayload struct {
	TransactionID  string `json:"transaction_id"`
	AmountRC       int64  `json:"amount_rc"`
	AmountBRLCents int64  `json:"amount_brl_cents"`
}

type PrizeClaimedPayload struct {
	PrizeClaimID   string `json:"prize_claim_id"`
	NewStatus      string `json:"new_status"`
	TournamentName string `json:"tournament_name"`
}
