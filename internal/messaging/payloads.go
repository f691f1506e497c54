package messaging

import (
	"github.com/google/uuid"

	"bedtime-server/internal/models"
)

// Имена очередей и dead-letter сущностей
const (
	TaskQueueName         = "story_generation_tasks"
	NotificationQueueName = "story_notifications"

	DLXName       = "story_generation_tasks_dlx"
	DLQName       = "story_generation_tasks_dlq"
	DLQRoutingKey = "dlq"
)

// NotificationStatus - статус задачи в уведомлении для клиента.
type NotificationStatus string

const (
	NotificationStatusSuccess  NotificationStatus = "success"
	NotificationStatusError    NotificationStatus = "error"
	NotificationStatusRetrying NotificationStatus = "retrying"
	// Промежуточный фрагмент текста во время стриминга
	NotificationStatusChunk NotificationStatus = "chunk"
)

// GenerationTaskPayload - задача генерации истории, публикуется API
// сервером и обрабатывается воркером.
type GenerationTaskPayload struct {
	TaskID   string               `json:"taskId"`
	UserID   uuid.UUID            `json:"userId"`
	Settings models.StorySettings `json:"settings"`
}

// NotificationPayload - уведомление о ходе или результате генерации.
// Доставляется клиенту через WebSocket.
type NotificationPayload struct {
	TaskID string             `json:"taskId"`
	UserID uuid.UUID          `json:"userId"`
	Status NotificationStatus `json:"status"`

	// Заполнены для status=chunk и status=success
	Title   string `json:"title,omitempty"`
	Content string `json:"content,omitempty"`

	// Заполнены только для status=success
	StoryID  string `json:"storyId,omitempty"`
	AudioURL string `json:"audioUrl,omitempty"`
	MusicURL string `json:"musicUrl,omitempty"`

	// Заполнены для status=retrying
	RetryAttempt int   `json:"retryAttempt,omitempty"`
	RetryDelayMs int64 `json:"retryDelayMs,omitempty"`

	// Заполнено для status=error
	ErrorMessage string `json:"errorMessage,omitempty"`
}
