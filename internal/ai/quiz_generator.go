package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"bedtime-server/internal/models"
)

// QuizGenerator строит викторину по готовому тексту истории.
type QuizGenerator struct {
	client   TextClient
	policy   RetryPolicy
	notifier RetryNotifier
}

// NewQuizGenerator создаёт генератор викторин поверх текстового клиента.
func NewQuizGenerator(client TextClient, policy RetryPolicy, notifier RetryNotifier) *QuizGenerator {
	return &QuizGenerator{client: client, policy: policy, notifier: notifier}
}

// Generate запрашивает у модели викторину в чистом JSON и валидирует её.
// Невалидный JSON или вопрос с нарушенной структурой - ошибка разбора,
// эвристического восстановления нет.
func (q *QuizGenerator) Generate(ctx context.Context, storyText, language string) ([]models.QuizQuestion, error) {
	systemPrompt := buildQuizSystemPrompt(language)

	var raw string
	executor := NewExecutor(q.policy, q.notifier)
	err := executor.Execute(ctx, func(ctx context.Context) error {
		var callErr error
		raw, callErr = q.client.Complete(ctx, systemPrompt, storyText)
		return callErr
	})
	if err != nil {
		quizGenerationsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	questions, err := parseQuizResponse(raw)
	if err != nil {
		quizGenerationsTotal.WithLabelValues("parse_error").Inc()
		log.Error().Err(err).Str("response_excerpt", excerpt(raw, 200)).Msg("Не удалось разобрать викторину")
		return nil, err
	}

	quizGenerationsTotal.WithLabelValues("success").Inc()
	log.Info().Int("questions", len(questions)).Msg("Викторина сгенерирована")
	return questions, nil
}

func buildQuizSystemPrompt(language string) string {
	return fmt.Sprintf(
		"You create comprehension quizzes for children based on a bedtime story. "+
			"Respond ONLY in the language with ISO 639-1 code %q. "+
			"Return ONLY a JSON array of 5 to 7 objects, no markdown, no commentary. "+
			"Each object: {\"question\": string, \"options\": [4 strings], \"correctAnswer\": integer 0-3}.", language)
}

// parseQuizResponse разбирает и валидирует JSON викторины. Выход за
// границы correctAnswer или неверное число вариантов считаются ошибкой
// формата, а не поводом для подгонки.
func parseQuizResponse(raw string) ([]models.QuizQuestion, error) {
	cleaned := stripCodeFences(raw)

	var questions []models.QuizQuestion
	if err := json.Unmarshal([]byte(cleaned), &questions); err != nil {
		return nil, fmt.Errorf("%w: failed to parse quiz questions: %v", models.ErrParse, err)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: quiz is empty", models.ErrParse)
	}
	for i, question := range questions {
		if strings.TrimSpace(question.Question) == "" {
			return nil, fmt.Errorf("%w: question %d has no text", models.ErrParse, i)
		}
		if len(question.Options) != models.QuizOptionCount {
			return nil, fmt.Errorf("%w: question %d has %d options, want %d",
				models.ErrParse, i, len(question.Options), models.QuizOptionCount)
		}
		if question.CorrectAnswer < 0 || question.CorrectAnswer >= models.QuizOptionCount {
			return nil, fmt.Errorf("%w: question %d has out-of-range answer index %d",
				models.ErrParse, i, question.CorrectAnswer)
		}
	}
	return questions, nil
}

// stripCodeFences убирает обёртку ```json ... ```, которую модели любят
// добавлять вопреки инструкции.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
