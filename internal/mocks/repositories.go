package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"bedtime-server/internal/models"
)

// StoryRepository is a mock implementation of interfaces.StoryRepository.
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Save(ctx context.Context, story *models.Story) error {
	args := m.Called(ctx, story)
	return args.Error(0)
}

func (m *StoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, id)
	if story, ok := args.Get(0).(*models.Story); ok {
		return story, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *StoryRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Story, error) {
	args := m.Called(ctx, userID, limit, offset)
	if stories, ok := args.Get(0).([]models.Story); ok {
		return stories, args.Error(1)
	}
	return nil, args.Error(1)
}

// APIKeyRepository is a mock implementation of interfaces.APIKeyRepository.
type APIKeyRepository struct {
	mock.Mock
}

func (m *APIKeyRepository) GetActiveByName(ctx context.Context, name string) (*models.APIKey, error) {
	args := m.Called(ctx, name)
	if key, ok := args.Get(0).(*models.APIKey); ok {
		return key, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *APIKeyRepository) Upsert(ctx context.Context, key *models.APIKey) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *APIKeyRepository) List(ctx context.Context) ([]models.APIKey, error) {
	args := m.Called(ctx)
	if keys, ok := args.Get(0).([]models.APIKey); ok {
		return keys, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *APIKeyRepository) SetActive(ctx context.Context, name string, active bool) error {
	args := m.Called(ctx, name, active)
	return args.Error(0)
}

// UserRepository is a mock implementation of interfaces.UserRepository.
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) CreateUser(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if user, ok := args.Get(0).(*models.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *UserRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if user, ok := args.Get(0).(*models.User); ok {
		return user, args.Error(1)
	}
	return nil, args.Error(1)
}

// TokenRepository is a mock implementation of interfaces.TokenRepository.
type TokenRepository struct {
	mock.Mock
}

func (m *TokenRepository) SaveRefreshToken(ctx context.Context, userID uuid.UUID, token string, ttl time.Duration) error {
	args := m.Called(ctx, userID, token, ttl)
	return args.Error(0)
}

func (m *TokenRepository) GetUserIDByRefreshToken(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *TokenRepository) DeleteRefreshToken(ctx context.Context, token string) error {
	args := m.Called(ctx, token)
	return args.Error(0)
}

// AudioStore is a mock implementation of interfaces.AudioStore.
type AudioStore struct {
	mock.Mock
}

func (m *AudioStore) Save(ctx context.Context, storyID uuid.UUID, data []byte) (string, error) {
	args := m.Called(ctx, storyID, data)
	return args.String(0), args.Error(1)
}
