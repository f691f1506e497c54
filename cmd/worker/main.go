package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bedtime-server/internal/ai"
	"bedtime-server/internal/apikeys"
	"bedtime-server/internal/config"
	"bedtime-server/internal/database"
	"bedtime-server/internal/logger"
	"bedtime-server/internal/messaging"
	"bedtime-server/internal/music"
	"bedtime-server/internal/storage"
	"bedtime-server/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	zapLogger, err := logger.New(cfg.LogLevel, cfg.LogEncoding)
	if err != nil {
		log.Fatalf("Не удалось инициализировать логгер: %v", err)
	}
	defer zapLogger.Sync()
	zapLogger.Info("Запуск воркера генерации историй")

	// Метрики и health отдаются на отдельном порту
	go startMetricsServer(cfg.MetricsPort, zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- PostgreSQL ---
	dbPool, err := database.NewPool(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к базе данных", zap.Error(err))
	}
	defer dbPool.Close()

	// --- RabbitMQ ---
	rabbitConn, err := messaging.ConnectRabbitMQ(cfg.RabbitMQURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к RabbitMQ", zap.Error(err))
	}
	defer rabbitConn.Close()

	rabbitCh, err := rabbitConn.Channel()
	if err != nil {
		zapLogger.Fatal("Не удалось открыть канал RabbitMQ", zap.Error(err))
	}
	defer rabbitCh.Close()

	if err := messaging.SetupTopology(rabbitCh, zapLogger); err != nil {
		zapLogger.Fatal("Не удалось настроить топологию RabbitMQ", zap.Error(err))
	}

	// Воркер берёт задачи по одной: конвейер и так строго последовательный
	if err := rabbitCh.Qos(1, 0, false); err != nil {
		zapLogger.Fatal("Не удалось установить QoS", zap.Error(err))
	}

	// --- Зависимости конвейера ---
	storyRepo := database.NewPgStoryRepository(dbPool, zapLogger)
	keyRepo := database.NewPgAPIKeyRepository(dbPool, zapLogger)
	keyResolver := apikeys.NewResolver(keyRepo, zapLogger)

	audioStore, err := storage.NewFSAudioStore(cfg.AudioDir, cfg.AudioBaseURL, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось создать хранилище аудио", zap.Error(err))
	}

	policy := ai.RetryPolicy{MaxRetries: cfg.AIMaxRetries, BaseDelay: cfg.AIBaseRetryDelay}
	textClient, err := buildTextClient(cfg, keyResolver)
	if err != nil {
		zapLogger.Fatal("Не удалось создать текстового AI клиента", zap.Error(err))
	}
	// Синтез речи всегда идёт через OpenAI-совместимый API
	speechClient, err := ai.NewOpenAIClient(ai.ClientConfig{
		BaseURL:     cfg.AIBaseURL,
		Model:       cfg.AIModel,
		SpeechModel: cfg.AISpeechModel,
		Timeout:     cfg.AITimeout,
		KeyName:     cfg.SpeechKeyName,
	}, keyResolver)
	if err != nil {
		zapLogger.Fatal("Не удалось создать речевого AI клиента", zap.Error(err))
	}

	notifier := messaging.NewRabbitMQNotifier(rabbitCh, zapLogger)
	taskHandler := worker.NewTaskHandler(
		textClient, speechClient, policy, cfg.SpeechChunkLimit,
		storyRepo, audioStore, music.NewLibrary("/media/music"), notifier, zapLogger)

	// --- Потребление очереди задач ---
	msgs, err := rabbitCh.Consume(
		messaging.TaskQueueName, "", false, false, false, false, nil)
	if err != nil {
		zapLogger.Fatal("Не удалось зарегистрировать консьюмера", zap.Error(err))
	}
	zapLogger.Info("Ожидание задач генерации", zap.String("queue", messaging.TaskQueueName))

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range msgs {
			worker.IncTaskReceived()

			var payload messaging.GenerationTaskPayload
			if err := json.Unmarshal(msg.Body, &payload); err != nil {
				zapLogger.Error("Невалидная задача, отклоняем без requeue", zap.Error(err))
				_ = msg.Nack(false, false)
				continue
			}

			// Задача выполняется на отвязанном контексте: SIGTERM закрывает
			// канал и останавливает выдачу новых сообщений, а текущая
			// задача дорабатывает до конца, не улетая в DLQ.
			if err := taskHandler.Handle(context.Background(), payload); err != nil {
				// Упавшая задача уходит в DLQ, не зацикливаем её
				zapLogger.Error("Задача завершилась ошибкой",
					zap.String("taskID", payload.TaskID), zap.Error(err))
				_ = msg.Nack(false, false)
			} else {
				_ = msg.Ack(false)
			}
			worker.PushMetrics(cfg.PushgatewayURL, zapLogger)
		}
		zapLogger.Info("Канал сообщений закрыт, обработка завершена")
	}()

	<-ctx.Done()
	zapLogger.Info("Получен сигнал завершения, дорабатываем текущую задачу")

	// Закрытие канала останавливает выдачу новых сообщений
	_ = rabbitCh.Close()
	<-done
	zapLogger.Info("Воркер остановлен")
}

func startMetricsServer(port string, zapLogger *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status": "ok"}`))
	})

	zapLogger.Info("Сервер метрик запущен", zap.String("port", port))
	if err := http.ListenAndServe(":"+port, mux); err != nil {
		zapLogger.Error("Сервер метрик остановился", zap.Error(err))
	}
}

// buildTextClient выбирает провайдера генерации текста по конфигурации.
func buildTextClient(cfg *config.Config, resolver *apikeys.Resolver) (ai.TextClient, error) {
	if cfg.AIClientType == "ollama" {
		return ai.NewOllamaClient(cfg.AIBaseURL, cfg.AIModel, cfg.AITimeout)
	}
	return ai.NewOpenAIClient(ai.ClientConfig{
		BaseURL: cfg.AIBaseURL,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
		KeyName: cfg.TextKeyName,
	}, resolver)
}
