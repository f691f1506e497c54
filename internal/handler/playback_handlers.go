package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bedtime-server/internal/models"
	"bedtime-server/internal/playback"
)

type createPlaybackRequest struct {
	StoryID             uuid.UUID `json:"storyId" binding:"required"`
	NarrationDurationMs int64     `json:"narrationDurationMs"`
	MusicDurationMs     int64     `json:"musicDurationMs"`
}

type playbackActionRequest struct {
	PositionMs int64    `json:"positionMs"`
	Volume     *float64 `json:"volume"`
	Muted      *bool    `json:"muted"`
}

type playbackView struct {
	Session         playback.SessionView `json:"session"`
	HighlightedWord int                  `json:"highlightedWord"`
}

// handleCreatePlayback создает сессию прослушивания для истории.
// Длительности дорожек сообщает клиент после загрузки аудио.
func (h *Handler) handleCreatePlayback(c *gin.Context) {
	var req createPlaybackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput.Error()})
		return
	}

	story, ok := h.ownedStoryByID(c, req.StoryID)
	if !ok {
		return
	}

	session := playback.NewSession(
		story.ID,
		story.Content,
		time.Duration(req.NarrationDurationMs)*time.Millisecond,
		time.Duration(req.MusicDurationMs)*time.Millisecond,
	)
	h.sessions.Add(session)
	c.JSON(http.StatusCreated, h.playbackView(session))
}

func (h *Handler) handleGetPlayback(c *gin.Context) {
	session, ok := h.playbackSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, h.playbackView(session))
}

// handlePlaybackAction применяет транспортную команду к одной дорожке.
func (h *Handler) handlePlaybackAction(c *gin.Context) {
	session, ok := h.playbackSession(c)
	if !ok {
		return
	}
	track := playback.TrackKind(c.Param("track"))

	var req playbackActionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput.Error()})
			return
		}
	}

	var err error
	switch c.Param("action") {
	case "play":
		err = session.Play(track)
	case "pause":
		err = session.Pause(track)
	case "seek":
		err = session.Seek(track, time.Duration(req.PositionMs)*time.Millisecond)
	case "volume":
		if req.Volume == nil {
			err = models.ErrInvalidInput
		} else {
			err = session.SetVolume(track, *req.Volume)
		}
	case "mute":
		if req.Muted == nil {
			err = models.ErrInvalidInput
		} else {
			err = session.SetMuted(track, *req.Muted)
		}
	case "finish":
		err = session.Finish(track)
	default:
		err = models.ErrInvalidInput
	}
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.playbackView(session))
}

func (h *Handler) playbackSession(c *gin.Context) (*playback.Session, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput.Error()})
		return nil, false
	}
	session, err := h.sessions.Get(sessionID)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	return session, true
}

func (h *Handler) playbackView(session *playback.Session) playbackView {
	return playbackView{
		Session:         session.Snapshot(),
		HighlightedWord: session.HighlightedWord(),
	}
}
