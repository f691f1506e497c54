package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	ollama "github.com/ollama/ollama/api"
	"github.com/pkoukk/tiktoken-go"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"bedtime-server/internal/apikeys"
	"bedtime-server/internal/models"
)

var log = zerolog.New(zerolog.NewConsoleWriter()).With().Timestamp().Str("component", "ai").Logger()

// TextClient - клиент генерации текста. Stream отдаёт дельты токенов по мере
// прихода, Complete возвращает весь ответ целиком.
type TextClient interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Stream(ctx context.Context, systemPrompt, userPrompt string, onChunk func(delta string)) error
}

// SpeechClient синтезирует аудио для одного фрагмента текста.
type SpeechClient interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

// ClientConfig содержит конфигурацию для клиентов нейросети.
type ClientConfig struct {
	BaseURL     string
	Model       string
	SpeechModel string
	Timeout     time.Duration
	// Имя ключа в таблице api_keys, разрешается лениво при первом запросе
	KeyName string
}

// OpenAIClient работает с любым OpenAI-совместимым провайдером.
// API ключ разрешается через Resolver при первом обращении и кэшируется
// на всё время жизни процесса.
type OpenAIClient struct {
	cfg      ClientConfig
	resolver *apikeys.Resolver

	mu     sync.Mutex
	client *openai.Client
}

// NewOpenAIClient создаёт клиента. Сетевых вызовов здесь нет, ключ
// запрашивается только при первом использовании.
func NewOpenAIClient(cfg ClientConfig, resolver *apikeys.Resolver) (*OpenAIClient, error) {
	if cfg.Model == "" {
		return nil, errors.New("не указана модель генерации текста")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &OpenAIClient{cfg: cfg, resolver: resolver}, nil
}

// api возвращает инициализированный SDK клиент, создавая его при первом
// вызове после разрешения ключа.
func (c *OpenAIClient) api(ctx context.Context) (*openai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client != nil {
		return c.client, nil
	}
	key, err := c.resolver.Resolve(ctx, c.cfg.KeyName)
	if err != nil {
		return nil, err
	}
	config := openai.DefaultConfig(key)
	if c.cfg.BaseURL != "" {
		config.BaseURL = c.cfg.BaseURL
	}
	c.client = openai.NewClientWithConfig(config)
	return c.client, nil
}

// Complete выполняет одиночный запрос без стриминга.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	client, err := c.api(ctx)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.7,
		TopP:        0.95,
	})
	if err != nil {
		return "", classifyProviderError(err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: пустой ответ от API", models.ErrProvider)
	}
	return resp.Choices[0].Message.Content, nil
}

// Stream выполняет потоковый запрос, передавая каждую дельту в onChunk.
func (c *OpenAIClient) Stream(ctx context.Context, systemPrompt, userPrompt string, onChunk func(delta string)) error {
	client, err := c.api(ctx)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	log.Debug().
		Str("model", c.cfg.Model).
		Int("prompt_tokens", countTokens(systemPrompt)+countTokens(userPrompt)).
		Msg("Отправка потокового запроса к AI")

	stream, err := client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
		Temperature: 0.7,
		TopP:        0.95,
		Stream:      true,
	})
	if err != nil {
		return classifyProviderError(err)
	}
	defer stream.Close()

	for {
		resp, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return classifyProviderError(err)
		}
		if len(resp.Choices) == 0 {
			continue
		}
		if delta := resp.Choices[0].Delta.Content; delta != "" {
			onChunk(delta)
		}
	}
}

// Synthesize запрашивает озвучку одного фрагмента. Формат ответа всегда
// mp3, чтобы конкатенация фрагментов давала один согласованный файл.
func (c *OpenAIClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	client, err := c.api(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(c.cfg.SpeechModel),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, classifyProviderError(err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка чтения аудио ответа: %v", models.ErrProvider, err)
	}
	return data, nil
}

// OllamaClient - локальный провайдер генерации текста без API ключа.
// Синтез речи он не поддерживает, озвучка при этом типе клиента идёт
// через OpenAI-совместимого провайдера.
type OllamaClient struct {
	client  *ollama.Client
	model   string
	timeout time.Duration
}

// NewOllamaClient создаёт клиента для локального Ollama сервера.
func NewOllamaClient(baseURL, model string, timeout time.Duration) (*OllamaClient, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("некорректный адрес Ollama сервера: %w", err)
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OllamaClient{
		client:  ollama.NewClient(parsed, http.DefaultClient),
		model:   model,
		timeout: timeout,
	}, nil
}

func (c *OllamaClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	var sb strings.Builder
	if err := c.Stream(ctx, systemPrompt, userPrompt, func(delta string) { sb.WriteString(delta) }); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func (c *OllamaClient) Stream(ctx context.Context, systemPrompt, userPrompt string, onChunk func(delta string)) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	stream := true
	req := &ollama.ChatRequest{
		Model: c.model,
		Messages: []ollama.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Stream: &stream,
	}
	err := c.client.Chat(ctx, req, func(resp ollama.ChatResponse) error {
		if resp.Message.Content != "" {
			onChunk(resp.Message.Content)
		}
		return nil
	})
	if err != nil {
		return classifyProviderError(err)
	}
	return nil
}

// classifyProviderError переводит ошибки SDK в доменную таксономию:
// 429 - повторяемый rate limit, остальные не-2xx - ошибка провайдера.
func classifyProviderError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", models.ErrRateLimit, err)
		}
		return fmt.Errorf("%w: %v", models.ErrProvider, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", models.ErrRateLimit, err)
		}
		return fmt.Errorf("%w: %v", models.ErrProvider, err)
	}
	var ollamaErr ollama.StatusError
	if errors.As(err, &ollamaErr) {
		if ollamaErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", models.ErrRateLimit, err)
		}
		return fmt.Errorf("%w: %v", models.ErrProvider, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrProvider, err)
}

var (
	tokenizerOnce sync.Once
	tokenizer     *tiktoken.Tiktoken
)

// countTokens оценивает размер промпта для логов и метрик. При недоступном
// словаре возвращает 0, генерацию это не блокирует.
func countTokens(text string) int {
	tokenizerOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			log.Warn().Err(err).Msg("Не удалось загрузить словарь токенизатора")
			return
		}
		tokenizer = enc
	})
	if tokenizer == nil {
		return 0
	}
	return len(tokenizer.Encode(text, nil, nil))
}
