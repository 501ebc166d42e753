package services

import (
	"context"
	"testing"
	"time"

	"github.com/bolekz/riffa-games/models"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "unit-test-secret"

func newAuthFixture() (AuthService, *fakeUserRepo, *fakeEventRecorder) {
	users := newFakeUserRepo()
	events := &fakeEventRecorder{}
	return NewAuthService(users, events, testJWTSecret, time.Hour), users, events
}

func TestRegisterIssuesToken(t *testing.T) {
	svc, _, events := newAuthFixture()

	user, token, err := svc.Register(context.Background(), RegisterInput{
		Nickname: "alice",
		Email:    "alice@example.com",
		Password: "correct horse battery",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, user.Role)
	assert.NotEqual(t, "correct horse battery", user.PasswordHash)

	parsed, err := jwt.Parse(token, func(tk *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsed.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, user.ID, claims["user_id"])
	assert.Equal(t, string(models.RoleUser), claims["role"])

	require.Len(t, events.events, 1)
	assert.Equal(t, models.EventUserRegistered, events.events[0].EventType)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc, _, _ := newAuthFixture()

	_, _, err := svc.Register(context.Background(), RegisterInput{
		Nickname: "alice",
		Email:    "alice@example.com",
		Password: "short",
	})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _, _ := newAuthFixture()

	input := RegisterInput{Nickname: "alice", Email: "alice@example.com", Password: "long enough password"}
	_, _, err := svc.Register(context.Background(), input)
	require.NoError(t, err)

	input.Nickname = "alice2"
	_, _, err = svc.Register(context.Background(), input)
	assert.ErrorIs(t, err, ErrUserEmailConflict)
}

func TestLogin(t *testing.T) {
	svc, _, events := newAuthFixture()

	registered, _, err := svc.Register(context.Background(), RegisterInput{
		Nickname: "alice",
		Email:    "alice@example.com",
		Password: "long enough password",
	})
	require.NoError(t, err)

	user, token, err := svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "long enough password",
	})
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login(context.Background(), LoginInput{
		Email:    "alice@example.com",
		Password: "wrong password!!",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login(context.Background(), LoginInput{
		Email:    "nobody@example.com",
		Password: "whatever password",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	types := []models.UserEventType{}
	for _, e := range events.events {
		types = append(types, e.EventType)
	}
	assert.Contains(t, types, models.EventUserLoginSuccess)
	assert.Contains(t, types, models.EventUserLoginFailure)
}
