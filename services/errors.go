package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	// Ресурс не найден (универсальная)
	ErrNotFound = errors.New("requested resource not found")

	// Ошибки валидации и бизнес-правил
	ErrValidationFailed       = errors.New("validation failed")
	ErrPasswordTooShort       = errors.New("password is too short")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrTournamentUnavailable  = errors.New("tournament is not selling tickets")
	ErrTicketsSoldOut         = errors.New("all tickets for this tournament are sold")
	ErrInsufficientBalance    = errors.New("insufficient RC balance")
	ErrAttemptLimitReached    = errors.New("attempt limit reached for this tournament")
	ErrOutOfCompetitionWindow = errors.New("competition window is not active")
	ErrScoreOutOfBounds       = errors.New("score is outside the mini-game bounds")
	ErrNoAvailableAttempt     = errors.New("no unscored attempt available")
	ErrFinalizeTooEarly       = errors.New("competition has not ended yet")
	ErrTournamentNotActive    = errors.New("tournament is not in an active state")
	ErrInvalidAmount          = errors.New("amount must be positive")

	// Ошибки конфликтов
	ErrUserEmailConflict    = errors.New("email address is already in use")
	ErrUserNicknameConflict = errors.New("nickname is already in use")
	ErrPrizeRankConflict    = errors.New("prize rank already taken for this tournament")

	// Ошибки аутентификации и авторизации
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Ошибки призов и заявок на призы
	ErrClaimAccessDenied    = errors.New("prize claim belongs to another user")
	ErrClaimAlreadyResolved = errors.New("prize claim has already been resolved")
	ErrPrizeMisconfigured   = errors.New("prize has neither RC value nor item")

	// Ошибки платежей
	ErrPaymentGatewayFailure = errors.New("payment gateway request failed")
	ErrWebhookInvalidPayload = errors.New("webhook payload is invalid")

	// Ошибки, специфичные для сущностей
	ErrUserNotFound       = errors.New("user not found")
	ErrGameNotFound       = errors.New("game not found")
	ErrMiniGameNotFound   = errors.New("mini-game not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrAttemptNotFound    = errors.New("tournament attempt not found")
	ErrPrizeNotFound      = errors.New("tournament prize not found")
	ErrClaimNotFound      = errors.New("prize claim not found")

	// Ошибки создания турниров
	ErrTournamentInvalidDates    = errors.New("tournament dates must be ordered: selling, competition start, competition end")
	ErrTournamentInvalidPrice    = errors.New("ticket price must not be negative")
	ErrTournamentInvalidTarget   = errors.New("ticket target must be positive")
	ErrTournamentInvalidAttempts = errors.New("max attempts per user must be positive")
)
