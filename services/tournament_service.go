package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/bolekz/riffa-games/models"
	"github.com/bolekz/riffa-games/repositories"
	"github.com/bolekz/riffa-games/storage"
	"golang.org/x/sync/errgroup"
)

// TournamentBroadcaster рассылают обновления турнира подключённым клиентам.
// Реализация живёт в пакете live; ошибки рассылки не влияют на операции.
type TournamentBroadcaster interface {
	BroadcastTournamentUpdate(tournamentID string, payload any)
}

// TournamentService инкапсулирует жизненный цикл турнира: продажу билетов,
// приём результатов, финализацию и отмену с возвратами.
type TournamentService struct {
	tournamentRepo  repositories.TournamentRepository
	attemptRepo     repositories.AttemptRepository
	prizeRepo       repositories.PrizeRepository
	claimRepo       repositories.ClaimRepository
	userRepo        repositories.UserRepository
	gameRepo        repositories.GameRepository
	transactionRepo repositories.TransactionRepository
	txRunner        repositories.TxRunner
	events          EventRecorder
	broadcaster     TournamentBroadcaster
	uploader        storage.FileUploader
	logger          *slog.Logger
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	attemptRepo repositories.AttemptRepository,
	prizeRepo repositories.PrizeRepository,
	claimRepo repositories.ClaimRepository,
	userRepo repositories.UserRepository,
	gameRepo repositories.GameRepository,
	transactionRepo repositories.TransactionRepository,
	txRunner repositories.TxRunner,
	events EventRecorder,
	broadcaster TournamentBroadcaster,
	uploader storage.FileUploader,
	logger *slog.Logger,
) *TournamentService {
	return &TournamentService{
		tournamentRepo:  tournamentRepo,
		attemptRepo:     attemptRepo,
		prizeRepo:       prizeRepo,
		claimRepo:       claimRepo,
		userRepo:        userRepo,
		gameRepo:        gameRepo,
		transactionRepo: transactionRepo,
		txRunner:        txRunner,
		events:          events,
		broadcaster:     broadcaster,
		uploader:        uploader,
		logger:          logger,
	}
}

type CreateTournamentInput struct {
	Name                string                      `json:"name"`
	Description         *string                     `json:"description"`
	GameID              string                      `json:"game_id"`
	MiniGameID          string                      `json:"mini_game_id"`
	Visibility          models.TournamentVisibility `json:"visibility"`
	PricePerTicket      int64                       `json:"price_per_ticket"`
	TicketTarget        int                         `json:"ticket_target"`
	MaxAttemptsPerUser  int                         `json:"max_attempts_per_user"`
	SellingEndsAt       time.Time                   `json:"selling_ends_at"`
	CompetitionStartsAt time.Time                   `json:"competition_starts_at"`
	CompetitionEndsAt   time.Time                   `json:"competition_ends_at"`
}

// JoinResult — результат покупки билета.
type JoinResult struct {
	Attempt     *models.TournamentAttempt `json:"attempt"`
	Balance     int64                     `json:"balance"`
	TicketsSold int                       `json:"tickets_sold"`
}

// CancelResult — результат отмены турнира.
type CancelResult struct {
	Tournament       *models.Tournament `json:"tournament"`
	RefundsProcessed int                `json:"refunds_processed"`
}

func (s *TournamentService) CreateTournament(ctx context.Context, ownerID string, input CreateTournamentInput) (*models.Tournament, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidationFailed)
	}
	if input.PricePerTicket < 0 {
		return nil, ErrTournamentInvalidPrice
	}
	if input.TicketTarget <= 0 {
		return nil, ErrTournamentInvalidTarget
	}
	if input.MaxAttemptsPerUser <= 0 {
		return nil, ErrTournamentInvalidAttempts
	}
	if input.SellingEndsAt.IsZero() || input.CompetitionStartsAt.IsZero() || input.CompetitionEndsAt.IsZero() {
		return nil, fmt.Errorf("%w: all dates are required", ErrTournamentInvalidDates)
	}
	if !input.CompetitionStartsAt.Before(input.CompetitionEndsAt) {
		return nil, ErrTournamentInvalidDates
	}
	if input.SellingEndsAt.After(input.CompetitionEndsAt) {
		return nil, ErrTournamentInvalidDates
	}

	game, err := s.gameRepo.GetByID(ctx, input.GameID)
	if err != nil {
		return nil, mapGameRepoError(err)
	}
	miniGame, err := s.gameRepo.GetMiniGameByID(ctx, nil, input.MiniGameID)
	if err != nil {
		return nil, mapGameRepoError(err)
	}
	if miniGame.GameID != game.ID {
		return nil, fmt.Errorf("%w: mini-game does not belong to the game", ErrValidationFailed)
	}

	visibility := input.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}

	tournament := &models.Tournament{
		Name:                input.Name,
		Description:         input.Description,
		GameID:              input.GameID,
		MiniGameID:          input.MiniGameID,
		OwnerID:             &ownerID,
		Status:              models.StatusSelling,
		Visibility:          visibility,
		PricePerTicket:      input.PricePerTicket,
		TicketTarget:        input.TicketTarget,
		MaxAttemptsPerUser:  input.MaxAttemptsPerUser,
		SellingEndsAt:       input.SellingEndsAt,
		CompetitionStartsAt: input.CompetitionStartsAt,
		CompetitionEndsAt:   input.CompetitionEndsAt,
	}

	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		switch {
		case errors.Is(err, repositories.ErrTournamentInvalidGame):
			return nil, ErrGameNotFound
		case errors.Is(err, repositories.ErrTournamentInvalidOwner):
			return nil, ErrUserNotFound
		default:
			return nil, fmt.Errorf("failed to create tournament: %w", err)
		}
	}

	s.events.Record(ownerID, models.EventTournamentCreated, models.TournamentCreatedPayload{
		TournamentID:   tournament.ID,
		TournamentName: tournament.Name,
	})

	return tournament, nil
}

func (s *TournamentService) ListTournaments(ctx context.Context, filter repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	for i := range tournaments {
		s.populateBannerURL(&tournaments[i])
	}
	return tournaments, nil
}

// GetTournamentByID собирает турнир со связанными сущностями параллельно.
func (s *TournamentService) GetTournamentByID(ctx context.Context, id string) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		game, err := s.gameRepo.GetByID(gctx, tournament.GameID)
		if err != nil {
			return fmt.Errorf("failed to load game: %w", err)
		}
		if game.LogoKey != nil && *game.LogoKey != "" && s.uploader != nil {
			url := s.uploader.GetPublicURL(*game.LogoKey)
			game.LogoURL = &url
		}
		tournament.Game = game
		return nil
	})

	g.Go(func() error {
		miniGame, err := s.gameRepo.GetMiniGameByID(gctx, nil, tournament.MiniGameID)
		if err != nil {
			return fmt.Errorf("failed to load mini-game: %w", err)
		}
		tournament.MiniGame = miniGame
		return nil
	})

	g.Go(func() error {
		prizes, err := s.prizeRepo.ListByTournament(gctx, nil, tournament.ID)
		if err != nil {
			return fmt.Errorf("failed to load prizes: %w", err)
		}
		tournament.Prizes = prizes
		return nil
	})

	g.Go(func() error {
		attempts, err := s.attemptRepo.ListByTournament(gctx, nil, tournament.ID)
		if err != nil {
			return fmt.Errorf("failed to load attempts: %w", err)
		}
		tournament.Attempts = attempts
		return nil
	})

	if tournament.OwnerID != nil {
		ownerID := *tournament.OwnerID
		g.Go(func() error {
			owner, err := s.userRepo.GetByID(gctx, nil, ownerID)
			if err != nil {
				if errors.Is(err, repositories.ErrUserNotFound) {
					return nil
				}
				return fmt.Errorf("failed to load owner: %w", err)
			}
			tournament.Owner = &models.UserSummary{ID: owner.ID, Nickname: owner.Nickname}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.populateBannerURL(tournament)
	return tournament, nil
}

// Join покупает билет: все четыре записи (списание, транзакция, попытка,
// счётчик билетов) фиксируются в одной транзакции или не фиксируются вовсе.
func (s *TournamentService) Join(ctx context.Context, userID, tournamentID string) (*JoinResult, error) {
	result := &JoinResult{}

	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status != models.StatusSelling {
			return ErrTournamentUnavailable
		}
		if tournament.TicketsSold >= tournament.TicketTarget {
			return ErrTicketsSoldOut
		}

		count, err := s.attemptRepo.CountByCompetitor(ctx, exec, tournamentID, userID)
		if err != nil {
			return err
		}
		if count >= tournament.MaxAttemptsPerUser {
			return ErrAttemptLimitReached
		}

		if err := s.userRepo.AdjustBalance(ctx, exec, userID, -tournament.PricePerTicket); err != nil {
			switch {
			case errors.Is(err, repositories.ErrInsufficientBalance):
				return ErrInsufficientBalance
			case errors.Is(err, repositories.ErrUserNotFound):
				return ErrUserNotFound
			default:
				return err
			}
		}

		transaction := &models.Transaction{
			UserID:   userID,
			Type:     models.TransactionPurchaseTicket,
			Status:   models.TransactionCompleted,
			AmountRC: -tournament.PricePerTicket,
			Details: models.TransactionDetails{
				Description: fmt.Sprintf("Ticket for tournament %q", tournament.Name),
			},
		}
		if err := s.transactionRepo.Create(ctx, exec, transaction); err != nil {
			return err
		}

		attempt := &models.TournamentAttempt{
			TournamentID:   tournamentID,
			CompetitorID:   userID,
			AmountPaidInRC: tournament.PricePerTicket,
			TransactionID:  &transaction.ID,
		}
		if err := s.attemptRepo.Create(ctx, exec, attempt); err != nil {
			return err
		}

		sold, err := s.tournamentRepo.IncrementTicketsSold(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentTargetExceeded) {
				return ErrTicketsSoldOut
			}
			return err
		}

		user, err := s.userRepo.GetByID(ctx, exec, userID)
		if err != nil {
			return err
		}

		result.Attempt = attempt
		result.Balance = user.RiffaCoinsAvailable
		result.TicketsSold = sold
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(tournamentID, map[string]any{
		"type":          "ticket_sold",
		"tournament_id": tournamentID,
		"tickets_sold":  result.TicketsSold,
	})

	return result, nil
}

// SubmitScore записывает результат в самую раннюю попытку без счёта.
func (s *TournamentService) SubmitScore(ctx context.Context, userID, tournamentID string, score int) (*models.TournamentAttempt, error) {
	var updated *models.TournamentAttempt

	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status != models.StatusSelling {
			return ErrTournamentNotActive
		}

		now := time.Now()
		if now.Before(tournament.CompetitionStartsAt) || now.After(tournament.CompetitionEndsAt) {
			return ErrOutOfCompetitionWindow
		}

		miniGame, err := s.gameRepo.GetMiniGameByID(ctx, exec, tournament.MiniGameID)
		if err != nil {
			return mapGameRepoError(err)
		}
		if !miniGame.ScoreInBounds(score) {
			return ErrScoreOutOfBounds
		}

		attempt, err := s.attemptRepo.FindOldestUnscored(ctx, exec, tournamentID, userID)
		if err != nil {
			if errors.Is(err, repositories.ErrAttemptNotFound) {
				return ErrNoAvailableAttempt
			}
			return err
		}

		updated, err = s.attemptRepo.SetScore(ctx, exec, attempt.ID, score)
		if err != nil {
			if errors.Is(err, repositories.ErrAttemptAlreadyScored) {
				return ErrNoAvailableAttempt
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(tournamentID, map[string]any{
		"type":          "score_submitted",
		"tournament_id": tournamentID,
		"attempt_id":    updated.ID,
		"competitor_id": userID,
		"score":         *updated.Score,
	})

	return updated, nil
}

// Finalize ранжирует попытки со счётом, создаёт заявки на призы и переводит
// турнир в терминальный статус. Нулевое число результатов — не ошибка:
// турнир отменяется без победителя.
func (s *TournamentService) Finalize(ctx context.Context, tournamentID string) (*models.Tournament, error) {
	var finalized *models.Tournament
	var winnerID string

	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status != models.StatusSelling {
			return ErrTournamentNotActive
		}
		if time.Now().Before(tournament.CompetitionEndsAt) {
			return ErrFinalizeTooEarly
		}

		scored, err := s.attemptRepo.ListScored(ctx, exec, tournamentID)
		if err != nil {
			return err
		}

		if len(scored) == 0 {
			if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.StatusCanceled); err != nil {
				return err
			}
			tournament.Status = models.StatusCanceled
			finalized = tournament
			return nil
		}

		miniGame, err := s.gameRepo.GetMiniGameByID(ctx, exec, tournament.MiniGameID)
		if err != nil {
			return mapGameRepoError(err)
		}
		rankAttempts(scored, miniGame.ScoreOrder)

		prizes, err := s.prizeRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}
		for _, prize := range prizes {
			idx := prize.Rank - 1
			if idx < 0 || idx >= len(scored) {
				// Призов может быть больше, чем результатов: лишние ранги пропускаются.
				continue
			}
			claim := &models.PrizeClaim{
				UserID:            scored[idx].CompetitorID,
				TournamentPrizeID: prize.ID,
				Status:            models.ClaimPending,
			}
			if err := s.claimRepo.Create(ctx, exec, claim); err != nil {
				return fmt.Errorf("failed to create claim for rank %d: %w", prize.Rank, err)
			}
		}

		winnerID = scored[0].CompetitorID
		if err := s.tournamentRepo.SetCompleted(ctx, exec, tournamentID, winnerID); err != nil {
			return err
		}
		tournament.Status = models.StatusCompleted
		tournament.WinnerID = &winnerID
		finalized = tournament
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"type":          "tournament_finalized",
		"tournament_id": tournamentID,
		"status":        finalized.Status,
	}
	if finalized.WinnerID != nil {
		payload["winner_id"] = *finalized.WinnerID
	}
	s.broadcast(tournamentID, payload)

	return finalized, nil
}

// Cancel отменяет продающийся турнир и возвращает оплату по каждой попытке.
func (s *TournamentService) Cancel(ctx context.Context, tournamentID string) (*CancelResult, error) {
	result := &CancelResult{}

	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		tournament, err := s.tournamentRepo.GetByIDForUpdate(ctx, exec, tournamentID)
		if err != nil {
			if errors.Is(err, repositories.ErrTournamentNotFound) {
				return ErrTournamentNotFound
			}
			return err
		}
		if tournament.Status != models.StatusSelling {
			return ErrTournamentNotActive
		}

		attempts, err := s.attemptRepo.ListByTournament(ctx, exec, tournamentID)
		if err != nil {
			return err
		}

		refunds := 0
		for _, attempt := range attempts {
			if attempt.AmountPaidInRC <= 0 {
				continue
			}
			// Возврат по цене, уплаченной на момент покупки.
			if err := s.userRepo.AdjustBalance(ctx, exec, attempt.CompetitorID, attempt.AmountPaidInRC); err != nil {
				return fmt.Errorf("failed to refund attempt %s: %w", attempt.ID, err)
			}
			refunds++
		}

		if err := s.tournamentRepo.UpdateStatus(ctx, exec, tournamentID, models.StatusCanceled); err != nil {
			return err
		}

		tournament.Status = models.StatusCanceled
		result.Tournament = tournament
		result.RefundsProcessed = refunds
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.broadcast(tournamentID, map[string]any{
		"type":          "tournament_canceled",
		"tournament_id": tournamentID,
	})

	return result, nil
}

// FinalizeDueTournaments — периодическая зачистка: финализирует все турниры,
// у которых окно соревнования закончилось, изолируя сбои по каждому.
func (s *TournamentService) FinalizeDueTournaments(ctx context.Context) (finalized, failed int) {
	due, err := s.tournamentRepo.ListDueForFinalization(ctx, time.Now())
	if err != nil {
		s.logger.Error("failed to list tournaments due for finalization", slog.Any("error", err))
		return 0, 0
	}

	for _, tournament := range due {
		if _, err := s.Finalize(ctx, tournament.ID); err != nil {
			failed++
			s.logger.Error("failed to finalize tournament",
				slog.String("tournament_id", tournament.ID),
				slog.Any("error", err))
			continue
		}
		finalized++
		s.logger.Info("tournament finalized by sweep", slog.String("tournament_id", tournament.ID))
	}
	return finalized, failed
}

// UpdateBanner загружает баннер турнира в объектное хранилище.
func (s *TournamentService) UpdateBanner(ctx context.Context, userID, tournamentID, contentType string, file io.Reader) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: media storage is not configured", ErrValidationFailed)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	if tournament.OwnerID == nil || *tournament.OwnerID != userID {
		return nil, ErrForbiddenOperation
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	oldKey := tournament.BannerKey
	key := fmt.Sprintf("tournaments/%s/banner%s", tournamentID, ext)

	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload tournament banner: %w", err)
	}

	if err := s.tournamentRepo.UpdateBannerKey(ctx, tournamentID, &result.Key); err != nil {
		return nil, err
	}

	if oldKey != nil && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.Warn("failed to delete previous banner",
				slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	tournament.BannerKey = &result.Key
	s.populateBannerURL(tournament)
	return tournament, nil
}

func (s *TournamentService) populateBannerURL(t *models.Tournament) {
	if t != nil && t.BannerKey != nil && *t.BannerKey != "" && s.uploader != nil {
		url := s.uploader.GetPublicURL(*t.BannerKey)
		if url != "" {
			t.BannerURL = &url
		}
	}
}

func (s *TournamentService) broadcast(tournamentID string, payload any) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastTournamentUpdate(tournamentID, payload)
	}
}

// rankAttempts сортирует попытки от лучшей к худшей согласно порядку
// мини-игры. Равные счёта упорядочиваются по времени создания попытки:
// более ранняя попытка занимает более высокий ранг.
func rankAttempts(attempts []models.TournamentAttempt, order models.ScoreOrder) {
	sort.SliceStable(attempts, func(i, j int) bool {
		si, sj := *attempts[i].Score, *attempts[j].Score
		if si != sj {
			if order == models.ScoreOrderAsc {
				return si < sj
			}
			return si > sj
		}
		return attempts[i].CreatedAt.Before(attempts[j].CreatedAt)
	})
}

func mapGameRepoError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrGameNotFound):
		return ErrGameNotFound
	case errors.Is(err, repositories.ErrMiniGameNotFound):
		return ErrMiniGameNotFound
	default:
		return err
	}
}
