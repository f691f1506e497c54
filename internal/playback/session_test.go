package playback

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bedtime-server/internal/models"
)

func newTestSession(words int) *Session {
	text := ""
	for i := 0; i < words; i++ {
		text += "word "
	}
	return NewSession(uuid.New(), text, 60*time.Second, 3*time.Minute)
}

func TestHighlightIndex(t *testing.T) {
	// 30s into a 60s narration of 120 words -> word 60
	assert.Equal(t, 60, HighlightIndex(30*time.Second, 60*time.Second, 120))
	assert.Equal(t, 0, HighlightIndex(0, 60*time.Second, 120))
	// Конец дорожки упирается в последнее слово
	assert.Equal(t, 119, HighlightIndex(60*time.Second, 60*time.Second, 120))
	assert.Equal(t, 119, HighlightIndex(90*time.Second, 60*time.Second, 120))
	// Вырожденные входы
	assert.Equal(t, 0, HighlightIndex(30*time.Second, 0, 120))
	assert.Equal(t, 0, HighlightIndex(30*time.Second, 60*time.Second, 0))
}

func TestSession_HighlightFollowsSeek(t *testing.T) {
	session := newTestSession(120)
	require.NoError(t, session.Play(TrackNarration))
	require.NoError(t, session.Seek(TrackNarration, 30*time.Second))
	assert.Equal(t, 60, session.HighlightedWord())

	require.NoError(t, session.Seek(TrackNarration, 15*time.Second))
	assert.Equal(t, 30, session.HighlightedWord())
}

func TestTrack_StateMachine(t *testing.T) {
	session := newTestSession(10)

	// Пауза без воспроизведения невалидна
	err := session.Pause(TrackNarration)
	require.ErrorIs(t, err, models.ErrInvalidInput)

	require.NoError(t, session.Play(TrackNarration))
	assert.Equal(t, StatePlaying, session.Narration.State)

	require.NoError(t, session.Pause(TrackNarration))
	assert.Equal(t, StatePaused, session.Narration.State)

	require.NoError(t, session.Play(TrackNarration))
	require.NoError(t, session.Finish(TrackNarration))
	assert.Equal(t, StateEnded, session.Narration.State)
	assert.Equal(t, session.Narration.Duration, session.Narration.Position)

	// Повторный Play после конца начинает сначала
	require.NoError(t, session.Play(TrackNarration))
	assert.Equal(t, StatePlaying, session.Narration.State)
	assert.Equal(t, time.Duration(0), session.Narration.Position)
}

func TestTracksAreIndependent(t *testing.T) {
	session := newTestSession(10)

	require.NoError(t, session.Play(TrackNarration))
	require.NoError(t, session.Play(TrackMusic))
	require.NoError(t, session.Pause(TrackMusic))

	assert.Equal(t, StatePlaying, session.Narration.State)
	assert.Equal(t, StatePaused, session.Music.State)

	require.NoError(t, session.SetVolume(TrackMusic, 0.3))
	require.NoError(t, session.SetMuted(TrackNarration, true))
	assert.Equal(t, 0.3, session.Music.Volume)
	assert.Equal(t, 1.0, session.Narration.Volume)
	assert.True(t, session.Narration.Muted)
	assert.False(t, session.Music.Muted)
}

func TestTrack_Validation(t *testing.T) {
	session := newTestSession(10)

	require.ErrorIs(t, session.SetVolume(TrackMusic, 1.5), models.ErrInvalidInput)
	require.ErrorIs(t, session.SetVolume(TrackMusic, -0.1), models.ErrInvalidInput)
	require.ErrorIs(t, session.Seek(TrackNarration, -time.Second), models.ErrInvalidInput)
	require.ErrorIs(t, session.Seek(TrackNarration, 2*time.Minute), models.ErrInvalidInput)
	require.ErrorIs(t, session.Play(TrackKind("subtitles")), models.ErrInvalidInput)
}

func TestManager(t *testing.T) {
	manager := NewManager()
	session := newTestSession(10)
	manager.Add(session)

	got, err := manager.Get(session.ID)
	require.NoError(t, err)
	assert.Same(t, session, got)

	manager.Remove(session.ID)
	_, err = manager.Get(session.ID)
	require.ErrorIs(t, err, models.ErrNotFound)
}
