package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
// Статус терминален после COMPLETED или CANCELED.
type TournamentStatus string

const (
	StatusSelling   TournamentStatus = "SELLING"
	StatusCompleted TournamentStatus = "COMPLETED"
	StatusCanceled  TournamentStatus = "CANCELED"
)

type TournamentVisibility string

const (
	VisibilityPublic          TournamentVisibility = "PUBLIC"
	VisibilitySubscribersOnly TournamentVisibility = "SUBSCRIBERS_ONLY"
	VisibilityPrivate         TournamentVisibility = "PRIVATE"
)

// Tournament представляет турнир.
type Tournament struct {
	ID                  string               `json:"id" db:"id"`
	Name                string               `json:"name" db:"name"`
	Description         *string              `json:"description,omitempty" db:"description"`
	GameID              string               `json:"game_id" db:"game_id"`
	MiniGameID          string               `json:"mini_game_id" db:"mini_game_id"`
	OwnerID             *string              `json:"owner_id,omitempty" db:"owner_id"`
	WinnerID            *string              `json:"winner_id,omitempty" db:"winner_id"`
	Status              TournamentStatus     `json:"status" db:"status"`
	Visibility          TournamentVisibility `json:"visibility" db:"visibility"`
	PricePerTicket      int64                `json:"price_per_ticket" db:"price_per_ticket"`
	TicketTarget        int                  `json:"ticket_target" db:"ticket_target"`
	TicketsSold         int                  `json:"tickets_sold" db:"tickets_sold"`
	MaxAttemptsPerUser  int                  `json:"max_attempts_per_user" db:"max_attempts_per_user"`
	SellingEndsAt       time.Time            `json:"selling_ends_at" db:"selling_ends_at"`
	CompetitionStartsAt time.Time            `json:"competition_starts_at" db:"competition_starts_at"`
	CompetitionEndsAt   time.Time            `json:"competition_ends_at" db:"competition_ends_at"`
	CreatedAt           time.Time            `json:"created_at" db:"created_at"`

	BannerKey *string `json:"-" db:"banner_key"`
	BannerURL *string `json:"banner_url,omitempty" db:"-"`

	// Опциональные связанные сущности (не мапятся напрямую)
	Game     *Game               `json:"game,omitempty" db:"-"`
	MiniGame *MiniGame           `json:"mini_game,omitempty" db:"-"`
	Owner    *UserSummary        `json:"owner,omitempty" db:"-"`
	Prizes   []TournamentPrize   `json:"prizes,omitempty" db:"-"`
	Attempts []TournamentAttempt `json:"attempts,omitempty" db:"-"`
}

// IsTerminal reports whether the tournament can no longer change state.
func (t *Tournament) IsTerminal() bool {
	return t.Status == StatusCompleted || t.Status == StatusCanceled
}
