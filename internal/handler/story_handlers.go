package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bedtime-server/internal/messaging"
	"bedtime-server/internal/models"
)

type createStoryRequest struct {
	Settings models.StorySettings `json:"settings" binding:"required"`
}

type createStoryResponse struct {
	TaskID string `json:"taskId"`
}

// handleCreateStory ставит задачу генерации в очередь. Сама генерация
// идёт в воркере, прогресс приходит клиенту по WebSocket.
func (h *Handler) handleCreateStory(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrUnauthorized.Error()})
		return
	}

	var req createStoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput.Error()})
		return
	}
	if err := validateSettings(req.Settings); err != nil {
		h.respondError(c, err)
		return
	}

	payload := messaging.GenerationTaskPayload{
		TaskID:   uuid.NewString(),
		UserID:   userID,
		Settings: req.Settings,
	}
	if err := h.publisher.PublishGenerationTask(c.Request.Context(), payload); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, createStoryResponse{TaskID: payload.TaskID})
}

func validateSettings(s models.StorySettings) error {
	if s.Theme == "" || s.AgeGroup == "" || s.Language == "" {
		return models.ErrInvalidInput
	}
	if s.Duration <= 0 || s.Duration > 60 {
		return models.ErrInvalidInput
	}
	return nil
}

func (h *Handler) handleListStories(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrUnauthorized.Error()})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	stories, err := h.storyRepo.ListByUser(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stories": stories})
}

func (h *Handler) handleGetStory(c *gin.Context) {
	story, ok := h.ownedStory(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, story)
}

// ownedStory загружает историю по path-параметру :id.
func (h *Handler) ownedStory(c *gin.Context) (*models.Story, bool) {
	storyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput.Error()})
		return nil, false
	}
	return h.ownedStoryByID(c, storyID)
}

// ownedStoryByID загружает историю и проверяет, что она принадлежит
// аутентифицированному пользователю. Чужая история для клиента
// неотличима от несуществующей.
func (h *Handler) ownedStoryByID(c *gin.Context, storyID uuid.UUID) (*models.Story, bool) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": models.ErrUnauthorized.Error()})
		return nil, false
	}

	story, err := h.storyRepo.GetByID(c.Request.Context(), storyID)
	if err != nil {
		h.respondError(c, err)
		return nil, false
	}
	if story.UserID != userID {
		c.JSON(http.StatusNotFound, gin.H{"error": models.ErrStoryNotFound.Error()})
		return nil, false
	}
	return story, true
}

func (h *Handler) handleListMusic(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tracks": h.musicLib.List()})
}
