package models

import (
	"time"

	"github.com/google/uuid"
)

// VoiceNone disables narration synthesis for a story.
const VoiceNone = "none"

// MusicNone selects no background track for a story.
const MusicNone = "no-music"

// StorySettings describes the parameters a story is generated from.
// The structure is immutable once submitted to the generation pipeline.
type StorySettings struct {
	AgeGroup string `json:"ageGroup"`
	Duration int    `json:"duration"` // minutes
	Theme    string `json:"theme"`
	Voice    string `json:"voice"` // narrator voice id, or "none"
	Music    string `json:"music"` // background track id, or "no-music"
	Language string `json:"language"` // ISO-639-1
}

// GeneratedStory is the in-flight result of a generation run. Title and
// Content are filled by the marker parser once the stream carries both
// markers; AudioRef and MusicRef are attached afterwards.
type GeneratedStory struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	AudioRef string `json:"audioRef,omitempty"`
	MusicRef string `json:"musicRef,omitempty"`
}

// Story is the persisted form of a completed generation.
type Story struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	UserID             uuid.UUID     `json:"userId" db:"user_id"`
	Title              string        `json:"title" db:"title"`
	Content            string        `json:"content" db:"content"`
	AudioURL           string        `json:"audioUrl" db:"audio_url"`
	BackgroundMusicURL string        `json:"backgroundMusicUrl" db:"background_music_url"`
	Settings           StorySettings `json:"settings" db:"-"`
	CreatedAt          time.Time     `json:"createdAt" db:"created_at"`
}
