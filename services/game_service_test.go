package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/bolekz/riffa-games/models"
	"github.com/bolekz/riffa-games/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUploader struct {
	uploads map[string][]byte
	deleted []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploads: map[string][]byte{}}
}

func (f *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	f.uploads[key] = data
	return &storage.UploadResult{Key: key, Location: "https://cdn.riffa.test/" + key}, nil
}

func (f *fakeUploader) Delete(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.uploads, key)
	return nil
}

func (f *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.riffa.test/" + key
}

type gameFixture struct {
	games    *fakeGameRepo
	uploader *fakeUploader
	service  *GameService
}

func newGameFixture(t *testing.T) *gameFixture {
	t.Helper()
	games := newFakeGameRepo()
	uploader := newFakeUploader()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &gameFixture{
		games:    games,
		uploader: uploader,
		service:  NewGameService(games, uploader, logger),
	}
}

func TestUpdateLogoStoresKey(t *testing.T) {
	fx := newGameFixture(t)
	game, _ := fx.games.addMiniGame(models.ScoreOrderDesc, nil, nil)

	updated, err := fx.service.UpdateLogo(context.Background(), game.ID, "image/png", strings.NewReader("png-bytes"))
	require.NoError(t, err)

	wantKey := fmt.Sprintf("games/%s/logo.png", game.ID)
	require.NotNil(t, updated.LogoKey)
	assert.Equal(t, wantKey, *updated.LogoKey)
	require.NotNil(t, updated.LogoURL)
	assert.Equal(t, "https://cdn.riffa.test/"+wantKey, *updated.LogoURL)
	assert.Equal(t, []byte("png-bytes"), fx.uploader.uploads[wantKey])
	assert.Empty(t, fx.uploader.deleted)
}

func TestUpdateLogoDeletesPreviousKey(t *testing.T) {
	fx := newGameFixture(t)
	game, _ := fx.games.addMiniGame(models.ScoreOrderDesc, nil, nil)

	oldKey := fmt.Sprintf("games/%s/logo.jpg", game.ID)
	game.LogoKey = &oldKey

	updated, err := fx.service.UpdateLogo(context.Background(), game.ID, "image/webp", strings.NewReader("webp-bytes"))
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("games/%s/logo.webp", game.ID), *updated.LogoKey)
	assert.Equal(t, []string{oldKey}, fx.uploader.deleted)
}

func TestUpdateLogoRejectsNonImageContentType(t *testing.T) {
	fx := newGameFixture(t)
	game, _ := fx.games.addMiniGame(models.ScoreOrderDesc, nil, nil)

	_, err := fx.service.UpdateLogo(context.Background(), game.ID, "application/pdf", strings.NewReader("nope"))
	require.ErrorIs(t, err, ErrValidationFailed)
	assert.Empty(t, fx.uploader.uploads)
}

func TestUpdateLogoUnknownGame(t *testing.T) {
	fx := newGameFixture(t)

	_, err := fx.service.UpdateLogo(context.Background(), "missing", "image/png", strings.NewReader("png"))
	require.ErrorIs(t, err, ErrGameNotFound)
}

func TestGetGameByIDPopulatesLogoURL(t *testing.T) {
	fx := newGameFixture(t)
	game, _ := fx.games.addMiniGame(models.ScoreOrderAsc, nil, nil)
	key := fmt.Sprintf("games/%s/logo.png", game.ID)
	game.LogoKey = &key

	got, err := fx.service.GetGameByID(context.Background(), game.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LogoURL)
	assert.Equal(t, "https://cdn.riffa.test/"+key, *got.LogoURL)
}
