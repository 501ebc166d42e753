package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bolekz/riffa-games/models"
	"github.com/bolekz/riffa-games/repositories"
)

// ClaimService разрешает заявки на призы: зачисление RC-эквивалента
// или отметка о выдаче предмета.
type ClaimService struct {
	claimRepo repositories.ClaimRepository
	prizeRepo repositories.PrizeRepository
	userRepo  repositories.UserRepository
	txRunner  repositories.TxRunner
	events    EventRecorder
	logger    *slog.Logger
}

func NewClaimService(
	claimRepo repositories.ClaimRepository,
	prizeRepo repositories.PrizeRepository,
	userRepo repositories.UserRepository,
	txRunner repositories.TxRunner,
	events EventRecorder,
	logger *slog.Logger,
) *ClaimService {
	return &ClaimService{
		claimRepo: claimRepo,
		prizeRepo: prizeRepo,
		userRepo:  userRepo,
		txRunner:  txRunner,
		events:    events,
		logger:    logger,
	}
}

// ListUserClaims возвращает заявки пользователя с деталями призов.
func (s *ClaimService) ListUserClaims(ctx context.Context, userID string) ([]models.PrizeClaim, error) {
	return s.claimRepo.ListByUser(ctx, userID)
}

// ResolveClaim переводит заявку из PENDING_CLAIM в терминальный статус
// ровно один раз. RC-эквивалент приза имеет приоритет над предметом.
func (s *ClaimService) ResolveClaim(ctx context.Context, userID, claimID string) (*models.PrizeClaim, error) {
	var resolved *models.PrizeClaim

	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		claim, err := s.claimRepo.GetByIDForUpdate(ctx, exec, claimID)
		if err != nil {
			if errors.Is(err, repositories.ErrClaimNotFound) {
				return ErrClaimNotFound
			}
			return err
		}
		if claim.UserID != userID {
			return ErrClaimAccessDenied
		}
		if claim.Status != models.ClaimPending {
			return fmt.Errorf("%w: current status %s", ErrClaimAlreadyResolved, claim.Status)
		}

		prize, err := s.prizeRepo.GetByID(ctx, exec, claim.TournamentPrizeID)
		if err != nil {
			if errors.Is(err, repositories.ErrPrizeNotFound) {
				return ErrPrizeNotFound
			}
			return err
		}

		now := time.Now()
		switch {
		case prize.HasRCValue():
			if err := s.userRepo.AdjustBalance(ctx, exec, userID, *prize.RCAmount); err != nil {
				return fmt.Errorf("failed to credit prize RC: %w", err)
			}
			claim.Status = models.ClaimConvertedToRC
		case prize.ItemID != nil:
			claim.Status = models.ClaimItemClaimed
		default:
			// Приз без RC-суммы и без предмета — дефект настройки данных.
			return ErrPrizeMisconfigured
		}

		if err := s.claimRepo.UpdateStatus(ctx, exec, claim.ID, claim.Status, now); err != nil {
			return err
		}
		claim.ClaimedAt = &now
		claim.TournamentPrize = prize
		resolved = claim
		return nil
	})
	if err != nil {
		return nil, err
	}

	tournamentName := ""
	if resolved.TournamentPrize != nil && resolved.TournamentPrize.Tournament != nil {
		tournamentName = resolved.TournamentPrize.Tournament.Name
	}
	s.events.Record(userID, models.EventPrizeClaimed, models.PrizeClaimedPayload{
		PrizeClaimID:   resolved.ID,
		NewStatus:      string(resolved.Status),
		TournamentName: tournamentName,
	})

	return resolved, nil
}
