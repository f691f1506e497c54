package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"bedtime-server/internal/messaging"
)

// TextClient is a mock implementation of ai.TextClient.
type TextClient struct {
	mock.Mock
}

func (m *TextClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt)
	return args.String(0), args.Error(1)
}

func (m *TextClient) Stream(ctx context.Context, systemPrompt, userPrompt string, onChunk func(delta string)) error {
	args := m.Called(ctx, systemPrompt, userPrompt, onChunk)
	return args.Error(0)
}

// SpeechClient is a mock implementation of ai.SpeechClient.
type SpeechClient struct {
	mock.Mock
}

func (m *SpeechClient) Synthesize(ctx context.Context, text, voice string) ([]byte, error) {
	args := m.Called(ctx, text, voice)
	if audio, ok := args.Get(0).([]byte); ok {
		return audio, args.Error(1)
	}
	return nil, args.Error(1)
}

// Notifier is a mock implementation of messaging.Notifier.
type Notifier struct {
	mock.Mock
}

func (m *Notifier) Notify(ctx context.Context, payload messaging.NotificationPayload) error {
	args := m.Called(ctx, payload)
	return args.Error(0)
}
