package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bedtime-server/internal/models"
)

func storySettings() models.StorySettings {
	return models.StorySettings{
		AgeGroup: "6-8",
		Duration: 5,
		Theme:    "space",
		Voice:    "alloy",
		Music:    models.MusicNone,
		Language: "en",
	}
}

func TestStoryGenerator_AssemblesStreamedStory(t *testing.T) {
	client := &fakeTextClient{
		streamScript: [][]string{{
			"TITLE: Tiny", " Fox\n", "CONTENT: Once upon", " a time...",
		}},
	}
	gen := NewStoryGenerator(client, DefaultRetryPolicy(), nil)

	var sawTitleEarly bool
	var progress []Progress
	story, err := gen.Generate(context.Background(), storySettings(), func(p Progress) {
		progress = append(progress, p)
		if p.Title != "" && p.Content == "" {
			sawTitleEarly = true
		}
	})

	require.NoError(t, err)
	assert.Equal(t, "Tiny Fox", story.Title)
	assert.Equal(t, "Once upon a time...", story.Content)

	// Первые чанки не должны отдавать заголовок до маркера CONTENT:
	require.NotEmpty(t, progress)
	assert.Empty(t, progress[0].Title)
	assert.Empty(t, progress[1].Title)
	assert.Equal(t, "Tiny Fox", progress[len(progress)-1].Title)
	assert.False(t, sawTitleEarly)
}

func TestStoryGenerator_MissingMarkersFailsWithParseError(t *testing.T) {
	client := &fakeTextClient{
		streamScript: [][]string{{"Once upon a time without any markers."}},
	}
	gen := NewStoryGenerator(client, DefaultRetryPolicy(), nil)

	story, err := gen.Generate(context.Background(), storySettings(), nil)
	require.ErrorIs(t, err, models.ErrParse)
	assert.Nil(t, story)
	assert.Equal(t, 1, client.streamCalls, "parse errors must not be retried")
}

func TestStoryGenerator_RateLimitRetriedWithFreshBuffer(t *testing.T) {
	client := &fakeTextClient{
		// Первая попытка обрывается rate limit'ом посреди потока,
		// вторая приходит целиком
		streamScript: [][]string{
			{"TITLE: Half"},
			{"TITLE: Tiny Fox\nCONTENT: Once upon a time..."},
		},
		streamErrs: []error{models.ErrRateLimit, nil},
	}
	gen := NewStoryGenerator(client, RetryPolicy{MaxRetries: 3, BaseDelay: 0}, nil)

	story, err := gen.Generate(context.Background(), storySettings(), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, client.streamCalls)
	assert.Equal(t, "Tiny Fox", story.Title)
	assert.Equal(t, "Once upon a time...", story.Content)
}

func TestStoryGenerator_NotifierReceivesTerminalFailure(t *testing.T) {
	client := &fakeTextClient{
		streamErrs: []error{models.ErrRateLimit, models.ErrRateLimit, models.ErrRateLimit, models.ErrRateLimit},
	}
	notifier := &recordingNotifier{}
	gen := NewStoryGenerator(client, RetryPolicy{MaxRetries: 3, BaseDelay: 0}, notifier)

	_, err := gen.Generate(context.Background(), storySettings(), nil)
	require.ErrorIs(t, err, models.ErrRateLimit)
	assert.Len(t, notifier.retries, 3)
	assert.Len(t, notifier.failures, 1)
}
