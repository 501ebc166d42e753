package models

import "time"

// PrizeClaimStatus переходит из PENDING_CLAIM ровно один раз.
type PrizeClaimStatus string

const (
	ClaimPending       PrizeClaimStatus = "PENDING_CLAIM"
	ClaimItemClaimed   PrizeClaimStatus = "ITEM_CLAIMED"
	ClaimConvertedToRC PrizeClaimStatus = "CONVERTED_TO_RC"
)

type PrizeClaim struct {
	ID                string           `json:"id" db:"id"`
	UserID            string           `json:"user_id" db:"user_id"`
	TournamentPrizeID string           `json:"tournament_prize_id" db:"tournament_prize_id"`
	Status            PrizeClaimStatus `json:"status" db:"status"`
	ClaimedAt         *time.Time       `json:"claimed_at,omitempty" db:"claimed_at"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`

	TournamentPrize *TournamentPrize `json:"tournament_prize,omitempty" db:"-"`
}
