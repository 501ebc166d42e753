package models

import "time"

// TournamentAttempt — одна купленная попытка участника.
// amount_paid_in_rc фиксируется в момент покупки: возвраты считаются по
// уплаченной цене, даже если цена турнира позже изменилась.
type TournamentAttempt struct {
	ID             string    `json:"id" db:"id"`
	TournamentID   string    `json:"tournament_id" db:"tournament_id"`
	CompetitorID   string    `json:"competitor_id" db:"competitor_id"`
	AmountPaidInRC int64     `json:"amount_paid_in_rc" db:"amount_paid_in_rc"`
	Score          *int      `json:"score,omitempty" db:"score"`
	TransactionID  *string   `json:"transaction_id,omitempty" db:"transaction_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`

	Competitor *UserSummary `json:"competitor,omitempty" db:"-"`
}
