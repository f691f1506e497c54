package playback

import (
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"bedtime-server/internal/models"
)

// State is the lifecycle of one audio track.
type State string

const (
	StateIdle    State = "idle"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
)

// TrackKind names the two independent tracks of a session.
type TrackKind string

const (
	TrackNarration TrackKind = "narration"
	TrackMusic     TrackKind = "music"
)

// Track holds the transport state of a single audio track. Each track is
// controlled independently of the other.
type Track struct {
	State    State         `json:"state"`
	Position time.Duration `json:"position"`
	Duration time.Duration `json:"duration"`
	Volume   float64       `json:"volume"`
	Muted    bool          `json:"muted"`
}

func newTrack(duration time.Duration) *Track {
	return &Track{State: StateIdle, Duration: duration, Volume: 1.0}
}

func (t *Track) play() error {
	switch t.State {
	case StateIdle, StatePaused:
		t.State = StatePlaying
		return nil
	case StateEnded:
		// Повторный запуск начинается с начала
		t.Position = 0
		t.State = StatePlaying
		return nil
	case StatePlaying:
		return nil
	}
	return fmt.Errorf("%w: cannot play from state %q", models.ErrInvalidInput, t.State)
}

func (t *Track) pause() error {
	if t.State != StatePlaying {
		return fmt.Errorf("%w: cannot pause from state %q", models.ErrInvalidInput, t.State)
	}
	t.State = StatePaused
	return nil
}

func (t *Track) seek(position time.Duration) error {
	if position < 0 || (t.Duration > 0 && position > t.Duration) {
		return fmt.Errorf("%w: seek position out of range", models.ErrInvalidInput)
	}
	t.Position = position
	if t.State == StateEnded {
		t.State = StatePaused
	}
	return nil
}

func (t *Track) setVolume(volume float64) error {
	if volume < 0 || volume > 1 {
		return fmt.Errorf("%w: volume must be within [0, 1]", models.ErrInvalidInput)
	}
	t.Volume = volume
	return nil
}

func (t *Track) finish() {
	t.State = StateEnded
	t.Position = t.Duration
}

// Session coordinates narration audio, background music and derived text
// highlighting for one story being listened to.
type Session struct {
	mu sync.Mutex

	ID        uuid.UUID `json:"id"`
	StoryID   uuid.UUID `json:"storyId"`
	WordCount int       `json:"wordCount"`

	Narration *Track `json:"narration"`
	Music     *Track `json:"music"`
}

// NewSession creates a playback session for a story. The music track is
// created even when the story has no background music; it simply stays idle.
func NewSession(storyID uuid.UUID, storyText string, narrationDuration, musicDuration time.Duration) *Session {
	return &Session{
		ID:        uuid.New(),
		StoryID:   storyID,
		WordCount: len(strings.Fields(storyText)),
		Narration: newTrack(narrationDuration),
		Music:     newTrack(musicDuration),
	}
}

func (s *Session) track(kind TrackKind) (*Track, error) {
	switch kind {
	case TrackNarration:
		return s.Narration, nil
	case TrackMusic:
		return s.Music, nil
	}
	return nil, fmt.Errorf("%w: unknown track %q", models.ErrInvalidInput, kind)
}

// Play starts or resumes a track.
func (s *Session) Play(kind TrackKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, err := s.track(kind)
	if err != nil {
		return err
	}
	return track.play()
}

// Pause pauses a playing track.
func (s *Session) Pause(kind TrackKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, err := s.track(kind)
	if err != nil {
		return err
	}
	return track.pause()
}

// Seek moves a track to the given position. The derived highlight index
// follows the new position automatically since it is recomputed on read.
func (s *Session) Seek(kind TrackKind, position time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, err := s.track(kind)
	if err != nil {
		return err
	}
	return track.seek(position)
}

// SetVolume sets a track's volume within [0, 1].
func (s *Session) SetVolume(kind TrackKind, volume float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, err := s.track(kind)
	if err != nil {
		return err
	}
	return track.setVolume(volume)
}

// SetMuted toggles a track's mute flag without touching its volume.
func (s *Session) SetMuted(kind TrackKind, muted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, err := s.track(kind)
	if err != nil {
		return err
	}
	track.Muted = muted
	return nil
}

// Finish marks a track as ended.
func (s *Session) Finish(kind TrackKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	track, err := s.track(kind)
	if err != nil {
		return err
	}
	track.finish()
	return nil
}

// HighlightedWord returns the index of the currently highlighted word,
// derived from the narration position. No cursor is stored.
func (s *Session) HighlightedWord() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return HighlightIndex(s.Narration.Position, s.Narration.Duration, s.WordCount)
}

// SessionView is a lock-free copy of the session state safe to serialize.
type SessionView struct {
	ID        uuid.UUID `json:"id"`
	StoryID   uuid.UUID `json:"storyId"`
	WordCount int       `json:"wordCount"`
	Narration Track     `json:"narration"`
	Music     Track     `json:"music"`
}

// Snapshot returns a copy of the session state safe to serialize.
func (s *Session) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return SessionView{
		ID:        s.ID,
		StoryID:   s.StoryID,
		WordCount: s.WordCount,
		Narration: *s.Narration,
		Music:     *s.Music,
	}
}

// HighlightIndex computes floor(elapsed * words / duration), clamped to the
// valid word range. Deterministic in its inputs.
func HighlightIndex(elapsed, duration time.Duration, words int) int {
	if words <= 0 || duration <= 0 || elapsed <= 0 {
		return 0
	}
	idx := int(math.Floor(elapsed.Seconds() * float64(words) / duration.Seconds()))
	if idx >= words {
		idx = words - 1
	}
	return idx
}

// Manager keeps live playback sessions in memory, keyed by session id.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewManager creates an empty session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[uuid.UUID]*Session)}
}

// Add registers a session.
func (m *Manager) Add(session *Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = session
}

// Get finds a session by id.
func (m *Manager) Get(id uuid.UUID) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: playback session %s", models.ErrNotFound, id)
	}
	return session, nil
}

// Remove drops a session, e.g. when the listener disconnects.
func (m *Manager) Remove(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
}
