package messaging

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConnectRabbitMQ подключается к RabbitMQ с несколькими попытками
// (брокер может стартовать дольше сервиса).
func ConnectRabbitMQ(url string, logger *zap.Logger) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	maxRetries := 5
	retryDelay := 5 * time.Second

	for i := 0; i < maxRetries; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		logger.Warn("Не удалось подключиться к RabbitMQ",
			zap.Int("attempt", i+1), zap.Int("max_retries", maxRetries), zap.Error(err))
		time.Sleep(retryDelay)
	}
	return nil, fmt.Errorf("не удалось подключиться к RabbitMQ после %d попыток: %w", maxRetries, err)
}

// SetupTopology объявляет DLX, DLQ и рабочие очереди. Вызывается и
// сервером, и воркером, чтобы система не зависела от порядка запуска.
// Параметры очередей обязаны совпадать у всех объявляющих сторон.
func SetupTopology(ch *amqp.Channel, logger *zap.Logger) error {
	err := ch.ExchangeDeclare(
		DLXName,  // name
		"direct", // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		return fmt.Errorf("не удалось объявить DLX '%s': %w", DLXName, err)
	}

	_, err = ch.QueueDeclare(DLQName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("не удалось объявить DLQ '%s': %w", DLQName, err)
	}

	if err = ch.QueueBind(DLQName, DLQRoutingKey, DLXName, false, nil); err != nil {
		return fmt.Errorf("не удалось связать DLQ '%s' с DLX '%s': %w", DLQName, DLXName, err)
	}

	// Очередь задач: lazy для экономии памяти, упавшие задачи уходят в DLQ
	taskArgs := amqp.Table{
		"x-queue-mode":              "lazy",
		"x-dead-letter-exchange":    DLXName,
		"x-dead-letter-routing-key": DLQRoutingKey,
	}
	_, err = ch.QueueDeclare(TaskQueueName, true, false, false, false, taskArgs)
	if err != nil {
		return fmt.Errorf("не удалось объявить очередь '%s': %w", TaskQueueName, err)
	}

	_, err = ch.QueueDeclare(NotificationQueueName, true, false, false, false,
		amqp.Table{"x-queue-mode": "lazy"})
	if err != nil {
		return fmt.Errorf("не удалось объявить очередь '%s': %w", NotificationQueueName, err)
	}

	logger.Info("Топология RabbitMQ настроена",
		zap.String("task_queue", TaskQueueName),
		zap.String("notification_queue", NotificationQueueName),
		zap.String("dlx", DLXName))
	return nil
}
