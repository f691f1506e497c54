package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleGenerateQuiz генерирует викторину по тексту готовой истории.
// Повторный вызов заменяет предыдущий набор вопросов у клиента.
func (h *Handler) handleGenerateQuiz(c *gin.Context) {
	story, ok := h.ownedStory(c)
	if !ok {
		return
	}

	questions, err := h.quizGen.Generate(c.Request.Context(), story.Content, story.Settings.Language)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"questions": questions})
}
