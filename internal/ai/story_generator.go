package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"bedtime-server/internal/models"
)

// Примерный темп чтения вслух для пересчёта минут в объём текста
const wordsPerMinute = 120

// StoryGenerator собирает историю из потокового ответа модели.
type StoryGenerator struct {
	client   TextClient
	policy   RetryPolicy
	notifier RetryNotifier
}

// NewStoryGenerator создаёт генератор историй поверх текстового клиента.
func NewStoryGenerator(client TextClient, policy RetryPolicy, notifier RetryNotifier) *StoryGenerator {
	return &StoryGenerator{client: client, policy: policy, notifier: notifier}
}

// Progress передаётся наружу после каждого чанка потока. Title остаётся
// пустым до тех пор, пока в буфере не появится маркер CONTENT:.
type Progress struct {
	Title   string
	Content string
}

// Generate выполняет потоковую генерацию истории по настройкам.
// Rate-limit ошибки повторяются по политике, при повторе поток начинается
// заново с чистым буфером. Ошибка формата ответа не повторяется.
func (g *StoryGenerator) Generate(ctx context.Context, settings models.StorySettings, onProgress func(Progress)) (*models.GeneratedStory, error) {
	systemPrompt := buildStorySystemPrompt(settings.Language)
	userPrompt := buildStoryUserPrompt(settings)

	start := time.Now()
	var story models.GeneratedStory

	executor := NewExecutor(g.policy, g.notifier)
	err := executor.Execute(ctx, func(ctx context.Context) error {
		parser := NewStoryParser()
		streamErr := g.client.Stream(ctx, systemPrompt, userPrompt, func(delta string) {
			parser.Feed(delta)
			if onProgress != nil {
				title, _ := parser.Title()
				onProgress(Progress{Title: title, Content: parser.ContentSoFar()})
			}
		})
		if streamErr != nil {
			return streamErr
		}

		title, content, parseErr := parser.Finalize()
		if parseErr != nil {
			return parseErr
		}
		story.Title = title
		story.Content = content
		return nil
	})
	if err != nil {
		generationDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
		log.Error().Err(err).Str("theme", settings.Theme).Msg("Генерация истории завершилась ошибкой")
		return nil, err
	}

	generationDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	log.Info().
		Str("title", story.Title).
		Int("content_tokens", countTokens(story.Content)).
		Dur("elapsed", time.Since(start)).
		Msg("История сгенерирована")
	return &story, nil
}

func buildStorySystemPrompt(language string) string {
	return fmt.Sprintf(
		"You are a children's bedtime storyteller. Respond ONLY in the language with ISO 639-1 code %q. "+
			"Your entire response must follow this exact format with no extra text before or after:\n"+
			"TITLE: <story title>\n"+
			"CONTENT: <full story text>", language)
}

func buildStoryUserPrompt(settings models.StorySettings) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Write a calm bedtime story for a child in the %s age group.\n", settings.AgeGroup)
	fmt.Fprintf(&sb, "Theme: %s.\n", settings.Theme)
	fmt.Fprintf(&sb, "The story should take about %d minutes to read aloud, roughly %d words.\n",
		settings.Duration, settings.Duration*wordsPerMinute)
	sb.WriteString("The story must be gentle, soothing and end peacefully so the child can fall asleep.")
	return sb.String()
}
