package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// TaskPublisher публикует задачи генерации в очередь воркера.
type TaskPublisher interface {
	PublishGenerationTask(ctx context.Context, payload GenerationTaskPayload) error
}

type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	appID     string
	logger    *zap.Logger
}

// NewTaskPublisher создает паблишера задач генерации.
// Важно: предполагается, что канал уже открыт и топология объявлена.
func NewTaskPublisher(ch *amqp.Channel, appID string, logger *zap.Logger) TaskPublisher {
	return &rabbitMQPublisher{
		channel:   ch,
		queueName: TaskQueueName,
		appID:     appID,
		logger:    logger.Named("TaskPublisher"),
	}
}

// PublishGenerationTask сериализует задачу и кладёт её в очередь.
func (p *rabbitMQPublisher) PublishGenerationTask(ctx context.Context, payload GenerationTaskPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.logger.Error("Ошибка сериализации GenerationTaskPayload",
			zap.String("taskID", payload.TaskID), zap.Error(err))
		return fmt.Errorf("ошибка сериализации задачи генерации для TaskID %s: %w", payload.TaskID, err)
	}

	if err := p.publishMessage(ctx, body, payload.TaskID); err != nil {
		p.logger.Error("Ошибка публикации GenerationTask",
			zap.String("taskID", payload.TaskID), zap.Error(err))
		return fmt.Errorf("ошибка публикации задачи генерации для TaskID %s: %w", payload.TaskID, err)
	}
	p.logger.Info("Задача генерации опубликована",
		zap.String("taskID", payload.TaskID), zap.String("userID", payload.UserID.String()))
	return nil
}

func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte, messageID string) error {
	if p.channel == nil {
		return errors.New("канал RabbitMQ не инициализирован")
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	// Несколько коротких попыток на случай моргнувшего канала
	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (default)
			p.queueName, // routing key
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        p.appID,
				MessageId:    messageID,
			},
		)
		if err == nil {
			return nil
		}
		p.logger.Warn("Ошибка публикации, повтор",
			zap.Int("attempt", attempt), zap.String("queue", p.queueName), zap.Error(err))
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return fmt.Errorf("ошибка публикации в очередь %s после retries: %w", p.queueName, err)
}
