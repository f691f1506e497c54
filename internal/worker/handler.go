package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bedtime-server/internal/ai"
	"bedtime-server/internal/interfaces"
	"bedtime-server/internal/messaging"
	"bedtime-server/internal/models"
	"bedtime-server/internal/music"
)

// Минимальный интервал между chunk-уведомлениями во время стриминга
const progressInterval = 500 * time.Millisecond

// TaskHandler выполняет полный конвейер генерации для одной задачи:
// текст -> озвучка (если выбран голос) -> музыка -> сохранение.
// Конвейер строго последовательный, шаги не перекрываются.
type TaskHandler struct {
	textClient   ai.TextClient
	speechClient ai.SpeechClient
	policy       ai.RetryPolicy
	chunkLimit   int

	storyRepo  interfaces.StoryRepository
	audioStore interfaces.AudioStore
	musicLib   *music.Library
	notifier   messaging.Notifier
	logger     *zap.Logger
}

// NewTaskHandler создает обработчик задач генерации.
func NewTaskHandler(
	textClient ai.TextClient,
	speechClient ai.SpeechClient,
	policy ai.RetryPolicy,
	chunkLimit int,
	storyRepo interfaces.StoryRepository,
	audioStore interfaces.AudioStore,
	musicLib *music.Library,
	notifier messaging.Notifier,
	logger *zap.Logger,
) *TaskHandler {
	return &TaskHandler{
		textClient:   textClient,
		speechClient: speechClient,
		policy:       policy,
		chunkLimit:   chunkLimit,
		storyRepo:    storyRepo,
		audioStore:   audioStore,
		musicLib:     musicLib,
		notifier:     notifier,
		logger:       logger.Named("TaskHandler"),
	}
}

// Handle обрабатывает одну задачу. Возврат ошибки означает nack без
// requeue - сообщение уйдёт в DLQ.
func (h *TaskHandler) Handle(ctx context.Context, payload messaging.GenerationTaskPayload) error {
	start := time.Now()
	logger := h.logger.With(
		zap.String("taskID", payload.TaskID),
		zap.String("userID", payload.UserID.String()))
	logger.Info("Начало обработки задачи генерации",
		zap.String("theme", payload.Settings.Theme),
		zap.String("voice", payload.Settings.Voice))

	retryNotifier := &taskRetryNotifier{
		notifier: h.notifier,
		taskID:   payload.TaskID,
		userID:   payload.UserID,
		logger:   logger,
	}

	// ID истории фиксируется до синтеза, чтобы аудиофайл лег под него
	storyID := uuid.New()

	// --- Шаг 1: генерация текста со стримингом прогресса ---
	generator := ai.NewStoryGenerator(h.textClient, h.policy, retryNotifier)
	var lastProgress time.Time
	story, err := generator.Generate(ctx, payload.Settings, func(p ai.Progress) {
		if p.Title == "" || time.Since(lastProgress) < progressInterval {
			return
		}
		lastProgress = time.Now()
		// Прогресс не критичен, ошибки доставки не прерывают генерацию
		_ = h.notifier.Notify(ctx, messaging.NotificationPayload{
			TaskID:  payload.TaskID,
			UserID:  payload.UserID,
			Status:  messaging.NotificationStatusChunk,
			Title:   p.Title,
			Content: p.Content,
		})
	})
	if err != nil {
		return h.fail(ctx, payload, logger, "генерация текста", err)
	}

	// --- Шаг 2: озвучка, только если выбран голос ---
	var audioURL string
	if payload.Settings.Voice != models.VoiceNone && payload.Settings.Voice != "" {
		synthesizer := ai.NewSynthesizer(h.speechClient, h.policy, retryNotifier, h.chunkLimit)
		audio, synthErr := synthesizer.Synthesize(ctx, story.Content, payload.Settings.Voice)
		if synthErr != nil {
			return h.fail(ctx, payload, logger, "синтез речи", synthErr)
		}
		audioURL, synthErr = h.audioStore.Save(ctx, storyID, audio)
		if synthErr != nil {
			return h.fail(ctx, payload, logger, "сохранение аудио", synthErr)
		}
	}

	// --- Шаг 3: фоновая музыка, локальный справочник ---
	musicURL, err := h.musicLib.ResolveURL(payload.Settings.Music)
	if err != nil {
		return h.fail(ctx, payload, logger, "выбор музыки", err)
	}

	// --- Шаг 4: сохранение, одна попытка без повторов ---
	record := &models.Story{
		ID:                 storyID,
		UserID:             payload.UserID,
		Title:              story.Title,
		Content:            story.Content,
		AudioURL:           audioURL,
		BackgroundMusicURL: musicURL,
		Settings:           payload.Settings,
		CreatedAt:          time.Now().UTC(),
	}
	if err := h.storyRepo.Save(ctx, record); err != nil {
		return h.fail(ctx, payload, logger, "сохранение истории", err)
	}

	// --- Шаг 5: финальное уведомление ---
	err = h.notifier.Notify(ctx, messaging.NotificationPayload{
		TaskID:   payload.TaskID,
		UserID:   payload.UserID,
		Status:   messaging.NotificationStatusSuccess,
		StoryID:  storyID.String(),
		Title:    story.Title,
		Content:  story.Content,
		AudioURL: audioURL,
		MusicURL: musicURL,
	})
	if err != nil {
		// История уже сохранена, клиент увидит её в списке
		logger.Warn("История сохранена, но уведомление не доставлено", zap.Error(err))
	}

	tasksProcessed.WithLabelValues("success").Inc()
	taskDuration.Observe(time.Since(start).Seconds())
	logger.Info("Задача генерации завершена",
		zap.String("storyID", storyID.String()),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

// fail отправляет терминальное уведомление об ошибке и возвращает её
// наверх для nack.
func (h *TaskHandler) fail(ctx context.Context, payload messaging.GenerationTaskPayload, logger *zap.Logger, stage string, err error) error {
	logger.Error("Ошибка обработки задачи", zap.String("stage", stage), zap.Error(err))
	tasksProcessed.WithLabelValues("error").Inc()

	notifyErr := h.notifier.Notify(ctx, messaging.NotificationPayload{
		TaskID:       payload.TaskID,
		UserID:       payload.UserID,
		Status:       messaging.NotificationStatusError,
		ErrorMessage: err.Error(),
	})
	if notifyErr != nil {
		logger.Warn("Не удалось доставить уведомление об ошибке", zap.Error(notifyErr))
	}
	return err
}

// taskRetryNotifier транслирует повторы retry-политики в уведомления
// конкретной задачи. Терминальные ошибки публикует сам обработчик,
// поэтому NotifyFailure здесь молчит - иначе клиент получит дубль.
type taskRetryNotifier struct {
	notifier messaging.Notifier
	taskID   string
	userID   uuid.UUID
	logger   *zap.Logger
}

func (n *taskRetryNotifier) NotifyRetry(attempt int, delay time.Duration) {
	err := n.notifier.Notify(context.Background(), messaging.NotificationPayload{
		TaskID:       n.taskID,
		UserID:       n.userID,
		Status:       messaging.NotificationStatusRetrying,
		RetryAttempt: attempt,
		RetryDelayMs: delay.Milliseconds(),
	})
	if err != nil {
		n.logger.Warn("Не удалось доставить уведомление о повторе", zap.Error(err))
	}
}

func (n *taskRetryNotifier) NotifyFailure(error) {}
