package messaging

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// NotificationSink получает уведомления для доставки конкретному
// пользователю. Реализуется WebSocket менеджером API сервера.
type NotificationSink interface {
	SendToUser(userID string, message []byte) bool
}

// NotificationConsumer читает уведомления воркера из очереди и передаёт
// их в sink. Работает на стороне API сервера.
type NotificationConsumer struct {
	channel *amqp.Channel
	sink    NotificationSink
	logger  *zap.Logger
}

// NewNotificationConsumer создает консьюмера уведомлений.
func NewNotificationConsumer(ch *amqp.Channel, sink NotificationSink, logger *zap.Logger) *NotificationConsumer {
	return &NotificationConsumer{
		channel: ch,
		sink:    sink,
		logger:  logger.Named("NotificationConsumer"),
	}
}

// Run потребляет очередь уведомлений до отмены контекста или закрытия
// канала. Оффлайн пользователь не повод возвращать сообщение в очередь:
// итоговое состояние он увидит в списке историй.
func (c *NotificationConsumer) Run(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		NotificationQueueName,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,   // args
	)
	if err != nil {
		return err
	}
	c.logger.Info("Консьюмер уведомлений запущен", zap.String("queue", NotificationQueueName))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warn("Канал уведомлений закрыт")
				return nil
			}
			c.deliver(msg)
		}
	}
}

func (c *NotificationConsumer) deliver(msg amqp.Delivery) {
	var payload NotificationPayload
	if err := json.Unmarshal(msg.Body, &payload); err != nil {
		c.logger.Error("Невалидное уведомление, отбрасываем", zap.Error(err))
		_ = msg.Nack(false, false)
		return
	}

	delivered := c.sink.SendToUser(payload.UserID.String(), msg.Body)
	if !delivered {
		c.logger.Debug("Пользователь оффлайн, уведомление пропущено",
			zap.String("userID", payload.UserID.String()),
			zap.String("status", string(payload.Status)))
	}
	_ = msg.Ack(false)
}
