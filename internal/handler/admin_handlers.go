package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bedtime-server/internal/models"
)

type upsertKeyRequest struct {
	Value    string `json:"value" binding:"required"`
	IsActive *bool  `json:"isActive"`
}

type setKeyActiveRequest struct {
	IsActive bool `json:"isActive"`
}

type apiKeyView struct {
	Name      string `json:"name"`
	IsActive  bool   `json:"isActive"`
	UpdatedAt string `json:"updatedAt"`
	// Секрет наружу не отдаётся, только факт его наличия
	HasValue bool `json:"hasValue"`
}

func (h *Handler) handleListKeys(c *gin.Context) {
	keys, err := h.keyRepo.List(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	views := make([]apiKeyView, 0, len(keys))
	for _, key := range keys {
		views = append(views, apiKeyView{
			Name:      key.Name,
			IsActive:  key.IsActive,
			UpdatedAt: key.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z"),
			HasValue:  key.Value != "",
		})
	}
	c.JSON(http.StatusOK, gin.H{"keys": views})
}

func (h *Handler) handleUpsertKey(c *gin.Context) {
	name := c.Param("name")

	var req upsertKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput.Error()})
		return
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	key := &models.APIKey{Name: name, Value: req.Value, IsActive: active}
	if err := h.keyRepo.Upsert(c.Request.Context(), key); err != nil {
		h.respondError(c, err)
		return
	}

	// Кэш резолвера в этом процессе сбрасываем сразу; воркер подхватит
	// новое значение после рестарта
	h.keyResolver.Invalidate(name)
	c.Status(http.StatusNoContent)
}

func (h *Handler) handleSetKeyActive(c *gin.Context) {
	name := c.Param("name")

	var req setKeyActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": models.ErrInvalidInput.Error()})
		return
	}

	if err := h.keyRepo.SetActive(c.Request.Context(), name, req.IsActive); err != nil {
		h.respondError(c, err)
		return
	}
	h.keyResolver.Invalidate(name)
	c.Status(http.StatusNoContent)
}
