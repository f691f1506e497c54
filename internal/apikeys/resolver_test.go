package apikeys

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bedtime-server/internal/mocks"
	"bedtime-server/internal/models"
)

func TestResolver_CachesAfterFirstLookup(t *testing.T) {
	repo := new(mocks.APIKeyRepository)
	repo.On("GetActiveByName", mock.Anything, models.APIKeyTextProvider).
		Return(&models.APIKey{Name: models.APIKeyTextProvider, Value: "sk-test", IsActive: true}, nil).
		Once()

	resolver := NewResolver(repo, zap.NewNop())

	for i := 0; i < 3; i++ {
		value, err := resolver.Resolve(context.Background(), models.APIKeyTextProvider)
		require.NoError(t, err)
		assert.Equal(t, "sk-test", value)
	}

	repo.AssertExpectations(t)
}

func TestResolver_FailureIsNotCached(t *testing.T) {
	repo := new(mocks.APIKeyRepository)
	repo.On("GetActiveByName", mock.Anything, "missing").
		Return(nil, models.ErrConfiguration).Once()
	repo.On("GetActiveByName", mock.Anything, "missing").
		Return(&models.APIKey{Name: "missing", Value: "late", IsActive: true}, nil).Once()

	resolver := NewResolver(repo, zap.NewNop())

	_, err := resolver.Resolve(context.Background(), "missing")
	require.ErrorIs(t, err, models.ErrConfiguration)

	value, err := resolver.Resolve(context.Background(), "missing")
	require.NoError(t, err)
	assert.Equal(t, "late", value)

	repo.AssertExpectations(t)
}

func TestResolver_ConcurrentLookupsCollapse(t *testing.T) {
	repo := new(mocks.APIKeyRepository)
	started := make(chan struct{})
	release := make(chan struct{})
	repo.On("GetActiveByName", mock.Anything, models.APIKeySpeechProvider).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(&models.APIKey{Name: models.APIKeySpeechProvider, Value: "sk-speech", IsActive: true}, nil).
		Once()

	resolver := NewResolver(repo, zap.NewNop())

	var wg sync.WaitGroup
	results := make([]string, 5)
	errs := make([]error, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = resolver.Resolve(context.Background(), models.APIKeySpeechProvider)
	}()
	<-started
	for i := 1; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = resolver.Resolve(context.Background(), models.APIKeySpeechProvider)
		}(i)
	}
	close(release)
	wg.Wait()

	for i := 0; i < 5; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, "sk-speech", results[i])
	}
	repo.AssertExpectations(t)
}

func TestResolver_InvalidateForcesRefetch(t *testing.T) {
	repo := new(mocks.APIKeyRepository)
	repo.On("GetActiveByName", mock.Anything, models.APIKeyTextProvider).
		Return(&models.APIKey{Name: models.APIKeyTextProvider, Value: "v1", IsActive: true}, nil).Once()
	repo.On("GetActiveByName", mock.Anything, models.APIKeyTextProvider).
		Return(&models.APIKey{Name: models.APIKeyTextProvider, Value: "v2", IsActive: true}, nil).Once()

	resolver := NewResolver(repo, zap.NewNop())

	value, err := resolver.Resolve(context.Background(), models.APIKeyTextProvider)
	require.NoError(t, err)
	assert.Equal(t, "v1", value)

	resolver.Invalidate(models.APIKeyTextProvider)

	value, err = resolver.Resolve(context.Background(), models.APIKeyTextProvider)
	require.NoError(t, err)
	assert.Equal(t, "v2", value)

	repo.AssertExpectations(t)
}
