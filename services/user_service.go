package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bolekz/riffa-games/models"
	"github.com/bolekz/riffa-games/repositories"
)

// UserService — профиль и удаление аккаунта.
type UserService struct {
	userRepo        repositories.UserRepository
	attemptRepo     repositories.AttemptRepository
	claimRepo       repositories.ClaimRepository
	transactionRepo repositories.TransactionRepository
	tournamentRepo  repositories.TournamentRepository
	txRunner        repositories.TxRunner
	events          EventRecorder
	logger          *slog.Logger
}

func NewUserService(
	userRepo repositories.UserRepository,
	attemptRepo repositories.AttemptRepository,
	claimRepo repositories.ClaimRepository,
	transactionRepo repositories.TransactionRepository,
	tournamentRepo repositories.TournamentRepository,
	txRunner repositories.TxRunner,
	events EventRecorder,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		userRepo:        userRepo,
		attemptRepo:     attemptRepo,
		claimRepo:       claimRepo,
		transactionRepo: transactionRepo,
		tournamentRepo:  tournamentRepo,
		txRunner:        txRunner,
		events:          events,
		logger:          logger,
	}
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetPublicProfile возвращает публичную проекцию без email и баланса.
func (s *UserService) GetPublicProfile(ctx context.Context, userID string) (*models.UserSummary, error) {
	user, err := s.userRepo.GetByID(ctx, nil, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &models.UserSummary{ID: user.ID, Nickname: user.Nickname}, nil
}

// DeleteAccount удаляет пользователя и зависимые записи одной транзакцией.
// Турниры, где пользователь был владельцем или победителем, остаются,
// но ссылки на него обнуляются.
func (s *UserService) DeleteAccount(ctx context.Context, userID string) error {
	err := s.txRunner.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if _, err := s.userRepo.GetByID(ctx, exec, userID); err != nil {
			if errors.Is(err, repositories.ErrUserNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		if err := s.claimRepo.DeleteByUser(ctx, exec, userID); err != nil {
			return err
		}
		if err := s.attemptRepo.DeleteByCompetitor(ctx, exec, userID); err != nil {
			return err
		}
		if err := s.transactionRepo.DeleteByUser(ctx, exec, userID); err != nil {
			return err
		}
		if err := s.tournamentRepo.NullifyUserRefs(ctx, exec, userID); err != nil {
			return err
		}
		return s.userRepo.Delete(ctx, exec, userID)
	})
	if err != nil {
		return err
	}

	s.events.Record(userID, models.EventUserDeleted, map[string]string{})
	s.logger.Info("user account deleted", slog.String("user_id", userID))
	return nil
}
