package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"bedtime-server/internal/ai"
	"bedtime-server/internal/apikeys"
	"bedtime-server/internal/auth"
	"bedtime-server/internal/config"
	"bedtime-server/internal/database"
	"bedtime-server/internal/handler"
	"bedtime-server/internal/logger"
	"bedtime-server/internal/messaging"
	"bedtime-server/internal/music"
	"bedtime-server/internal/playback"
)

func main() {
	// .env опционален, в контейнерах конфигурация приходит из окружения
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
	zapLogger.Info("Запуск API сервера")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- PostgreSQL ---
	dbPool, err := database.NewPool(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("Не удалось подключиться к базе данных", zap.Error(err))
	}
	defer dbPool.Close()

	if err := database.RunMigrations(dbPool, zapLogger); err != nil {
		zapLogger.Fatal("Не удалось применить миграции", zap.Error(err))
	}

	// --- Redis (refresh-токены) ---
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		zapLogger.Fatal("Не удалось подключиться к Redis", zap.Error(err))
	}

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

	// --- Репозитории и сервисы ---
	storyRepo := database.NewPgStoryRepository(dbPool, zapLogger)
	keyRepo := database.NewPgAPIKeyRepository(dbPool, zapLogger)
	userRepo := database.NewPgUserRepository(dbPool, zapLogger)
	tokenRepo := database.NewRedisTokenRepository(redisClient, zapLogger)

	keyResolver := apikeys.NewResolver(keyRepo, zapLogger)
	policy := ai.RetryPolicy{MaxRetries: cfg.AIMaxRetries, BaseDelay: cfg.AIBaseRetryDelay}

	textClient, err := buildTextClient(cfg, keyResolver)
	if err != nil {
		zapLogger.Fatal("Не удалось создать AI клиента", zap.Error(err))
	}
	quizGen := ai.NewQuizGenerator(textClient, policy, ai.NopNotifier{})

	authService := auth.NewService(
		userRepo, tokenRepo, cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, zapLogger)
	musicLib := music.NewLibrary("/media/music")
	sessions := playback.NewManager()
	publisher := messaging.NewTaskPublisher(rabbitCh, "bedtime-server", zapLogger)
	wsManager := handler.NewConnectionManager(zapLogger)

	// --- Консьюмер уведомлений воркера -> WebSocket ---
	notifCh, err := rabbitConn.Channel()
	if err != nil {
		zapLogger.Fatal("Не удалось открыть канал для уведомлений", zap.Error(err))
	}
	defer notifCh.Close()
	consumer := messaging.NewNotificationConsumer(notifCh, wsManager, zapLogger)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zapLogger.Error("Консьюмер уведомлений остановился", zap.Error(err))
		}
	}()

	// --- HTTP сервер ---
	h := handler.New(cfg, zapLogger, authService, storyRepo, keyRepo, keyResolver,
		quizGen, musicLib, sessions, publisher, wsManager)
	router := handler.NewRouter(h, cfg, zapLogger)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		zapLogger.Info("HTTP сервер запущен", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLogger.Fatal("Ошибка HTTP сервера", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("Получен сигнал завершения, останавливаем сервер")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Ошибка при остановке HTTP сервера", zap.Error(err))
	}
	zapLogger.Info("Сервер остановлен")
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
