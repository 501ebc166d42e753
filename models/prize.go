package models

import "time"

type Item struct {
	ID          string  `json:"id" db:"id"`
	Name        string  `json:"name" db:"name"`
	Description *string `json:"description,omitempty" db:"description"`
}

// TournamentPrize — приз за место rank (1-based, уникален внутри турнира).
// RCAmount и ItemID могут быть заданы одновременно; при начислении монетный
// эквивалент имеет приоритет.
type TournamentPrize struct {
	ID           string    `json:"id" db:"id"`
	TournamentID string    `json:"tournament_id" db:"tournament_id"`
	Rank         int       `json:"rank" db:"rank"`
	ItemID       *string   `json:"item_id,omitempty" db:"item_id"`
	RCAmount     *int64    `json:"rc_amount,omitempty" db:"rc_amount"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`

	Item       *Item       `json:"item,omitempty" db:"-"`
	Tournament *Tournament `json:"tournament,omitempty" db:"-"`
}

// HasRCValue reports whether the prize converts to currency on claim.
func (p *TournamentPrize) HasRCValue() bool {
	return p.RCAmount != nil && *p.RCAmount > 0
}
