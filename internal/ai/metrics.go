package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	generationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "story_generation_duration_seconds",
		Help:    "Длительность генерации истории от промпта до готового текста.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"outcome"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ai_rate_limit_retries_total",
		Help: "Количество повторов запросов к провайдеру из-за rate limit.",
	})

	speechChunksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "speech_synthesis_chunks_total",
		Help: "Количество фрагментов текста, отправленных на синтез речи.",
	})

	speechDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "speech_synthesis_duration_seconds",
		Help:    "Длительность полного синтеза озвучки истории.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	}, []string{"outcome"})

	quizGenerationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_generations_total",
		Help: "Количество генераций викторин по результату.",
	}, []string{"outcome"})
)
