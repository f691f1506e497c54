package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bedtime-server/internal/mocks"
	"bedtime-server/internal/models"
)

func newTestService(users *mocks.UserRepository, tokens *mocks.TokenRepository) *Service {
	return NewService(users, tokens, "test-secret", 15*time.Minute, 720*time.Hour, zap.NewNop())
}

func hashedPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestService_Register(t *testing.T) {
	users := new(mocks.UserRepository)
	tokens := new(mocks.TokenRepository)
	svc := newTestService(users, tokens)

	var created *models.User
	users.On("CreateUser", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { created = args.Get(1).(*models.User) }).
		Return(nil).Once()

	user, err := svc.Register(context.Background(), "alice", "Alice@Example.com", "supersecret")
	require.NoError(t, err)
	require.NotNil(t, created)

	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "alice@example.com", user.Email, "email is normalized")
	assert.Equal(t, []string{models.RoleUser}, user.Roles)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("supersecret")))
	users.AssertExpectations(t)
}

func TestService_RegisterValidation(t *testing.T) {
	svc := newTestService(new(mocks.UserRepository), new(mocks.TokenRepository))

	_, err := svc.Register(context.Background(), "", "a@b.c", "supersecret")
	require.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.Register(context.Background(), "alice", "not-an-email", "supersecret")
	require.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.Register(context.Background(), "alice", "a@b.c", "short")
	require.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestService_LoginAndValidate(t *testing.T) {
	users := new(mocks.UserRepository)
	tokens := new(mocks.TokenRepository)
	svc := newTestService(users, tokens)

	userID := uuid.New()
	users.On("GetUserByEmail", mock.Anything, "alice@example.com").
		Return(&models.User{
			ID:           userID,
			Email:        "alice@example.com",
			PasswordHash: hashedPassword(t, "supersecret"),
			Roles:        []string{models.RoleUser, models.RoleAdmin},
		}, nil).Once()
	tokens.On("SaveRefreshToken", mock.Anything, userID, mock.Anything, 720*time.Hour).
		Return(nil).Once()

	pair, err := svc.Login(context.Background(), "alice@example.com", "supersecret")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	claims, err := svc.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Contains(t, claims.Roles, models.RoleAdmin)
}

func TestService_LoginWrongPassword(t *testing.T) {
	users := new(mocks.UserRepository)
	svc := newTestService(users, new(mocks.TokenRepository))

	users.On("GetUserByEmail", mock.Anything, "alice@example.com").
		Return(&models.User{PasswordHash: hashedPassword(t, "supersecret")}, nil).Once()

	_, err := svc.Login(context.Background(), "alice@example.com", "wrong")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestService_LoginUnknownEmailIsIndistinguishable(t *testing.T) {
	users := new(mocks.UserRepository)
	svc := newTestService(users, new(mocks.TokenRepository))

	users.On("GetUserByEmail", mock.Anything, "ghost@example.com").
		Return(nil, models.ErrUserNotFound).Once()

	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever")
	require.ErrorIs(t, err, models.ErrInvalidCredentials)
}

func TestService_LoginBannedUser(t *testing.T) {
	users := new(mocks.UserRepository)
	svc := newTestService(users, new(mocks.TokenRepository))

	users.On("GetUserByEmail", mock.Anything, mock.Anything).
		Return(&models.User{
			PasswordHash: hashedPassword(t, "supersecret"),
			IsBanned:     true,
		}, nil).Once()

	_, err := svc.Login(context.Background(), "alice@example.com", "supersecret")
	require.ErrorIs(t, err, models.ErrForbidden)
}

func TestService_RefreshRotatesToken(t *testing.T) {
	users := new(mocks.UserRepository)
	tokens := new(mocks.TokenRepository)
	svc := newTestService(users, tokens)

	userID := uuid.New()
	tokens.On("GetUserIDByRefreshToken", mock.Anything, "old-token").
		Return(userID, nil).Once()
	tokens.On("DeleteRefreshToken", mock.Anything, "old-token").
		Return(nil).Once()
	users.On("GetUserByID", mock.Anything, userID).
		Return(&models.User{ID: userID, Roles: []string{models.RoleUser}}, nil).Once()
	tokens.On("SaveRefreshToken", mock.Anything, userID, mock.Anything, mock.Anything).
		Return(nil).Once()

	pair, err := svc.Refresh(context.Background(), "old-token")
	require.NoError(t, err)
	assert.NotEqual(t, "old-token", pair.RefreshToken)
	tokens.AssertExpectations(t)
}

func TestService_RefreshUnknownToken(t *testing.T) {
	tokens := new(mocks.TokenRepository)
	svc := newTestService(new(mocks.UserRepository), tokens)

	tokens.On("GetUserIDByRefreshToken", mock.Anything, "stale").
		Return(uuid.Nil, models.ErrTokenNotFound).Once()

	_, err := svc.Refresh(context.Background(), "stale")
	require.ErrorIs(t, err, models.ErrTokenNotFound)
}

func TestService_ValidateAccessToken_Garbage(t *testing.T) {
	svc := newTestService(new(mocks.UserRepository), new(mocks.TokenRepository))

	_, err := svc.ValidateAccessToken("not.a.jwt")
	require.ErrorIs(t, err, models.ErrTokenInvalid)
}

func TestService_ValidateAccessToken_WrongSecret(t *testing.T) {
	users := new(mocks.UserRepository)
	tokens := new(mocks.TokenRepository)
	svc := newTestService(users, tokens)

	userID := uuid.New()
	users.On("GetUserByEmail", mock.Anything, mock.Anything).
		Return(&models.User{ID: userID, PasswordHash: hashedPassword(t, "supersecret")}, nil).Once()
	tokens.On("SaveRefreshToken", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Once()

	pair, err := svc.Login(context.Background(), "a@b.c", "supersecret")
	require.NoError(t, err)

	other := NewService(users, tokens, "different-secret", time.Minute, time.Hour, zap.NewNop())
	_, err = other.ValidateAccessToken(pair.AccessToken)
	require.ErrorIs(t, err, models.ErrTokenInvalid)
}
