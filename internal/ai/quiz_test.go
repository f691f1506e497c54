package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bedtime-server/internal/models"
)

func validQuizJSON(n int) string {
	questions := make([]models.QuizQuestion, n)
	for i := range questions {
		questions[i] = models.QuizQuestion{
			Question:      fmt.Sprintf("Q%d", i+1),
			Options:       []string{"A", "B", "C", "D"},
			CorrectAnswer: i % 4,
		}
	}
	data, _ := json.Marshal(questions)
	return string(data)
}

func TestParseQuizResponse_ValidFiveQuestions(t *testing.T) {
	questions, err := parseQuizResponse(validQuizJSON(5))
	require.NoError(t, err)
	require.Len(t, questions, 5)
	// Порядок сохраняется
	for i, q := range questions {
		assert.Equal(t, fmt.Sprintf("Q%d", i+1), q.Question)
	}
}

func TestParseQuizResponse_CodeFencesStripped(t *testing.T) {
	raw := "```json\n" + validQuizJSON(6) + "\n```"
	questions, err := parseQuizResponse(raw)
	require.NoError(t, err)
	assert.Len(t, questions, 6)
}

func TestParseQuizResponse_NonJSON(t *testing.T) {
	_, err := parseQuizResponse("Sure! Here are some questions for you:")
	require.ErrorIs(t, err, models.ErrParse)
	assert.Contains(t, err.Error(), "failed to parse quiz questions")
}

func TestParseQuizResponse_EmptyArray(t *testing.T) {
	_, err := parseQuizResponse("[]")
	require.ErrorIs(t, err, models.ErrParse)
}

func TestParseQuizResponse_WrongOptionCount(t *testing.T) {
	raw := `[{"question":"Q1","options":["A","B","C"],"correctAnswer":0}]`
	_, err := parseQuizResponse(raw)
	require.ErrorIs(t, err, models.ErrParse)
}

func TestParseQuizResponse_AnswerIndexOutOfRange(t *testing.T) {
	raw := `[{"question":"Q1","options":["A","B","C","D"],"correctAnswer":4}]`
	_, err := parseQuizResponse(raw)
	require.ErrorIs(t, err, models.ErrParse)

	raw = `[{"question":"Q1","options":["A","B","C","D"],"correctAnswer":-1}]`
	_, err = parseQuizResponse(raw)
	require.ErrorIs(t, err, models.ErrParse)
}

type fakeTextClient struct {
	completeResponses []string
	completeErrs      []error
	completeCalls     int

	streamScript [][]string // дельты на каждый вызов Stream
	streamErrs   []error
	streamCalls  int
}

func (f *fakeTextClient) Complete(context.Context, string, string) (string, error) {
	i := f.completeCalls
	f.completeCalls++
	var err error
	if i < len(f.completeErrs) {
		err = f.completeErrs[i]
	}
	if err != nil {
		return "", err
	}
	if i < len(f.completeResponses) {
		return f.completeResponses[i], nil
	}
	return "", fmt.Errorf("unexpected Complete call %d", i)
}

func (f *fakeTextClient) Stream(_ context.Context, _, _ string, onChunk func(string)) error {
	i := f.streamCalls
	f.streamCalls++
	if i < len(f.streamScript) {
		for _, delta := range f.streamScript[i] {
			onChunk(delta)
		}
	}
	if i < len(f.streamErrs) {
		return f.streamErrs[i]
	}
	return nil
}

func TestQuizGenerator_RetriesRateLimitThenSucceeds(t *testing.T) {
	client := &fakeTextClient{
		completeErrs:      []error{models.ErrRateLimit, nil},
		completeResponses: []string{"", validQuizJSON(5)},
	}
	gen := NewQuizGenerator(client, RetryPolicy{MaxRetries: 3, BaseDelay: 0}, nil)

	questions, err := gen.Generate(context.Background(), "story text", "en")
	require.NoError(t, err)
	assert.Len(t, questions, 5)
	assert.Equal(t, 2, client.completeCalls)
}

func TestQuizGenerator_ParseFailureIsTerminal(t *testing.T) {
	client := &fakeTextClient{completeResponses: []string{"not json"}}
	gen := NewQuizGenerator(client, DefaultRetryPolicy(), nil)

	_, err := gen.Generate(context.Background(), "story text", "en")
	require.ErrorIs(t, err, models.ErrParse)
	assert.Equal(t, 1, client.completeCalls, "parse errors must not be retried")
}
