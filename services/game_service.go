package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/bolekz/riffa-games/models"
	"github.com/bolekz/riffa-games/repositories"
	"github.com/bolekz/riffa-games/storage"
)

// GameService — справочник игр и загрузка логотипов.
type GameService struct {
	gameRepo repositories.GameRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewGameService(gameRepo repositories.GameRepository, uploader storage.FileUploader, logger *slog.Logger) *GameService {
	return &GameService{gameRepo: gameRepo, uploader: uploader, logger: logger}
}

func (s *GameService) GetGameByID(ctx context.Context, gameID string) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, mapGameRepoError(err)
	}
	s.populateLogoURL(game)
	return game, nil
}

// UpdateLogo загружает логотип игры в объектное хранилище (админ).
func (s *GameService) UpdateLogo(ctx context.Context, gameID, contentType string, file io.Reader) (*models.Game, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: media storage is not configured", ErrValidationFailed)
	}
	game, err := s.gameRepo.GetByID(ctx, gameID)
	if err != nil {
		return nil, mapGameRepoError(err)
	}

	ext, err := GetExtensionFromContentType(contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidationFailed, err)
	}

	oldKey := game.LogoKey
	key := fmt.Sprintf("games/%s/logo%s", gameID, ext)

	result, err := s.uploader.Upload(ctx, key, contentType, file)
	if err != nil {
		return nil, fmt.Errorf("failed to upload game logo: %w", err)
	}

	if err := s.gameRepo.UpdateLogoKey(ctx, gameID, &result.Key); err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}

	if oldKey != nil && *oldKey != result.Key {
		if delErr := s.uploader.Delete(ctx, *oldKey); delErr != nil {
			s.logger.Warn("failed to delete previous game logo",
				slog.String("key", *oldKey), slog.Any("error", delErr))
		}
	}

	game.LogoKey = &result.Key
	s.populateLogoURL(game)
	return game, nil
}

func (s *GameService) populateLogoURL(g *models.Game) {
	if g != nil && g.LogoKey != nil && *g.LogoKey != "" && s.uploader != nil {
		url := s.uploader.GetPublicURL(*g.LogoKey)
		if url != "" {
			g.LogoURL = &url
		}
	}
}
