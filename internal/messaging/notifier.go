package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Notifier отправляет уведомления о ходе генерации. Воркер публикует их
// в очередь, API сервер доставляет клиенту по WebSocket.
type Notifier interface {
	Notify(ctx context.Context, payload NotificationPayload) error
}

type rabbitMQNotifier struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQNotifier создает нотификатора поверх уже открытого канала.
func NewRabbitMQNotifier(ch *amqp.Channel, logger *zap.Logger) Notifier {
	return &rabbitMQNotifier{
		channel:   ch,
		queueName: NotificationQueueName,
		logger:    logger.Named("Notifier"),
	}
}

// Notify публикует уведомление в очередь уведомлений.
func (n *rabbitMQNotifier) Notify(ctx context.Context, payload NotificationPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		n.logger.Error("Ошибка сериализации NotificationPayload",
			zap.String("taskID", payload.TaskID), zap.Error(err))
		return fmt.Errorf("ошибка сериализации уведомления для TaskID %s: %w", payload.TaskID, err)
	}

	err = n.channel.PublishWithContext(ctx,
		"",
		n.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
			AppId:        "bedtime-worker",
			MessageId:    payload.TaskID + "-notif",
		},
	)
	if err != nil {
		n.logger.Error("Ошибка публикации уведомления",
			zap.String("taskID", payload.TaskID), zap.Error(err))
		return fmt.Errorf("ошибка публикации уведомления для TaskID %s: %w", payload.TaskID, err)
	}

	n.logger.Debug("Уведомление отправлено",
		zap.String("taskID", payload.TaskID), zap.String("status", string(payload.Status)))
	return nil
}
