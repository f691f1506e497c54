package ai

import (
	"bytes"
	"context"
	"fmt"
	"time"
	"unicode"
	"unicode/utf8"
)

// Synthesizer озвучивает текст истории по фрагментам, не превышающим
// лимит провайдера, и склеивает результат в один файл.
type Synthesizer struct {
	client     SpeechClient
	policy     RetryPolicy
	notifier   RetryNotifier
	chunkLimit int
}

// NewSynthesizer создаёт синтезатор с лимитом символов на фрагмент.
func NewSynthesizer(client SpeechClient, policy RetryPolicy, notifier RetryNotifier, chunkLimit int) *Synthesizer {
	if chunkLimit <= 0 {
		chunkLimit = 3000
	}
	return &Synthesizer{client: client, policy: policy, notifier: notifier, chunkLimit: chunkLimit}
}

// Synthesize озвучивает текст целиком. Фрагменты отправляются строго по
// одному и в исходном порядке. Ошибка на любом фрагменте прерывает весь
// синтез, частичный результат не возвращается.
func (s *Synthesizer) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	chunks := ChunkText(text, s.chunkLimit)
	start := time.Now()

	var combined bytes.Buffer
	for i, chunk := range chunks {
		speechChunksTotal.Inc()

		var audio []byte
		executor := NewExecutor(s.policy, s.notifier)
		err := executor.Execute(ctx, func(ctx context.Context) error {
			var callErr error
			audio, callErr = s.client.Synthesize(ctx, chunk, voice)
			return callErr
		})
		if err != nil {
			speechDuration.WithLabelValues("error").Observe(time.Since(start).Seconds())
			return nil, fmt.Errorf("failed to generate audio for chunk %d: %w", i, err)
		}
		combined.Write(audio)

		log.Debug().
			Int("chunk", i).
			Int("chunk_chars", utf8.RuneCountInString(chunk)).
			Int("audio_bytes", len(audio)).
			Msg("Фрагмент озвучен")
	}

	speechDuration.WithLabelValues("success").Observe(time.Since(start).Seconds())
	log.Info().
		Int("chunks", len(chunks)).
		Int("total_bytes", combined.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("Озвучка истории собрана")
	return combined.Bytes(), nil
}

// ChunkText разбивает текст на фрагменты не длиннее limit символов,
// никогда не разрезая предложение посередине. Предложения жадно
// накапливаются в текущий фрагмент, пока он помещается в лимит.
// Единственное предложение длиннее лимита остаётся целым фрагментом.
// Конкатенация фрагментов восстанавливает исходный текст без потерь.
func ChunkText(text string, limit int) []string {
	if text == "" {
		return nil
	}
	sentences := splitSentences(text)

	var chunks []string
	var current bytes.Buffer
	currentLen := 0
	for _, sentence := range sentences {
		sentenceLen := utf8.RuneCountInString(sentence)
		if currentLen > 0 && currentLen+sentenceLen > limit {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		current.WriteString(sentence)
		currentLen += sentenceLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}

// splitSentences режет текст на предложения, включая завершающие знаки и
// следующие за ними пробелы в само предложение, так что объединение
// кусков даёт ровно исходную строку.
func splitSentences(text string) []string {
	runes := []rune(text)
	var sentences []string
	start := 0
	i := 0
	for i < len(runes) {
		if isSentenceTerminator(runes[i]) {
			j := i + 1
			// Поглощаем повторные знаки и закрывающие кавычки/скобки
			for j < len(runes) && (isSentenceTerminator(runes[j]) || isClosingQuote(runes[j])) {
				j++
			}
			// И пробелы после предложения
			for j < len(runes) && unicode.IsSpace(runes[j]) {
				j++
			}
			sentences = append(sentences, string(runes[start:j]))
			start = j
			i = j
			continue
		}
		i++
	}
	if start < len(runes) {
		sentences = append(sentences, string(runes[start:]))
	}
	return sentences
}

func isSentenceTerminator(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isClosingQuote(r rune) bool {
	return r == '"' || r == '\'' || r == ')' || r == '»' || r == '”'
}
