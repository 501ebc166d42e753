package models

import "time"

// ScoreOrder определяет, какой счёт считается лучшим в мини-игре.
type ScoreOrder string

const (
	ScoreOrderAsc  ScoreOrder = "ASC"  // меньший счёт выигрывает
	ScoreOrderDesc ScoreOrder = "DESC" // больший счёт выигрывает
)

type Game struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	LogoKey *string `json:"-" db:"logo_key"`
	LogoURL *string `json:"logo_url,omitempty" db:"-"`
}

// MiniGame — конкретная игровая дисциплина внутри Game.
// Nil-границы счёта означают отсутствие ограничения с этой стороны.
type MiniGame struct {
	ID         string     `json:"id" db:"id"`
	GameID     string     `json:"game_id" db:"game_id"`
	Name       string     `json:"name" db:"name"`
	MinScore   *int       `json:"min_score,omitempty" db:"min_score"`
	MaxScore   *int       `json:"max_score,omitempty" db:"max_score"`
	ScoreOrder ScoreOrder `json:"score_order" db:"score_order"`
}

// ScoreInBounds reports whether the submitted score satisfies the configured
// bounds. A nil bound is unbounded on that side.
func (m *MiniGame) ScoreInBounds(score int) bool {
	if m.MinScore != nil && score < *m.MinScore {
		return false
	}
	if m.MaxScore != nil && score > *m.MaxScore {
		return false
	}
	return true
}
