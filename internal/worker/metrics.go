package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

var (
	tasksReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "worker_tasks_received_total",
		Help: "Количество задач генерации, полученных из очереди.",
	})

	tasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "worker_tasks_processed_total",
		Help: "Количество обработанных задач по результату.",
	}, []string{"status"})

	taskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "worker_task_duration_seconds",
		Help:    "Полное время обработки одной задачи генерации.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})
)

// IncTaskReceived учитывает принятую из очереди задачу.
func IncTaskReceived() {
	tasksReceived.Inc()
}

// PushMetrics отправляет накопленные метрики воркера в Pushgateway.
// Пустой URL отключает пуш, метрики остаются доступны на /metrics.
func PushMetrics(pushgatewayURL string, logger *zap.Logger) {
	if pushgatewayURL == "" {
		return
	}
	err := push.New(pushgatewayURL, "bedtime_worker").
		Gatherer(prometheus.DefaultGatherer).
		Push()
	if err != nil {
		logger.Warn("Не удалось отправить метрики в Pushgateway", zap.Error(err))
	}
}
