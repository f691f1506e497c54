package ai

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bedtime-server/internal/models"
)

type fakeSpeechClient struct {
	calls []string
	fail  map[int]error
}

func (f *fakeSpeechClient) Synthesize(_ context.Context, text, voice string) ([]byte, error) {
	idx := len(f.calls)
	f.calls = append(f.calls, text)
	if err, ok := f.fail[idx]; ok {
		return nil, err
	}
	return []byte(fmt.Sprintf("<audio %d>", idx)), nil
}

func TestChunkText_RespectsLimit(t *testing.T) {
	text := strings.Repeat("One two three four five. ", 40) // ~1000 chars
	chunks := ChunkText(text, 200)

	require.NotEmpty(t, chunks)
	for i, chunk := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(chunk), 200, "chunk %d over limit", i)
	}
}

func TestChunkText_Lossless(t *testing.T) {
	texts := []string{
		"One. Two! Three? Four.",
		"Hello there. This is a longer sentence with some words in it. And a short one.",
		"No terminator at all, just one run of text",
		"Trailing spaces after the end.   ",
		"A question? \"Quoted end!\" (Parens.) Done.",
	}
	for _, text := range texts {
		chunks := ChunkText(text, 30)
		assert.Equal(t, text, strings.Join(chunks, ""), "chunks must reassemble the input exactly")
	}
}

func TestChunkText_NeverSplitsMidSentence(t *testing.T) {
	text := "First sentence is here. Second sentence is a bit longer than the first. Third one."
	chunks := ChunkText(text, 40)

	for _, chunk := range chunks {
		trimmed := strings.TrimSpace(chunk)
		require.NotEmpty(t, trimmed)
		last, _ := utf8.DecodeLastRuneInString(trimmed)
		assert.Contains(t, []rune{'.', '!', '?', '…'}, last, "chunk %q ends mid-sentence", chunk)
	}
}

func TestChunkText_OversizedSentenceKeptWhole(t *testing.T) {
	long := strings.Repeat("word ", 100) + "end."
	text := "Short one. " + long
	chunks := ChunkText(text, 50)

	require.Len(t, chunks, 2)
	assert.Equal(t, "Short one. ", chunks[0])
	assert.Equal(t, long, chunks[1])
}

func TestChunkText_Idempotent(t *testing.T) {
	text := strings.Repeat("A sentence here. ", 30)
	first := ChunkText(text, 100)
	second := ChunkText(text, 100)
	assert.Equal(t, first, second)
}

func TestChunkText_Empty(t *testing.T) {
	assert.Nil(t, ChunkText("", 100))
}

func TestSynthesizer_ConcatenatesChunksInOrder(t *testing.T) {
	client := &fakeSpeechClient{}
	synth := NewSynthesizer(client, DefaultRetryPolicy(), nil, 30)

	text := "First sentence here. Second sentence here. Third sentence here."
	audio, err := synth.Synthesize(context.Background(), text, "alloy")
	require.NoError(t, err)

	require.Greater(t, len(client.calls), 1, "text should have been chunked")
	assert.Equal(t, text, strings.Join(client.calls, ""))

	var want strings.Builder
	for i := range client.calls {
		fmt.Fprintf(&want, "<audio %d>", i)
	}
	assert.Equal(t, want.String(), string(audio))
}

func TestSynthesizer_ShortTextSingleCall(t *testing.T) {
	client := &fakeSpeechClient{}
	synth := NewSynthesizer(client, DefaultRetryPolicy(), nil, 3000)

	_, err := synth.Synthesize(context.Background(), "A tiny story.", "alloy")
	require.NoError(t, err)
	assert.Equal(t, []string{"A tiny story."}, client.calls)
}

func TestSynthesizer_ChunkFailureAbortsWithIndexedError(t *testing.T) {
	client := &fakeSpeechClient{fail: map[int]error{1: models.ErrProvider}}
	synth := NewSynthesizer(client, DefaultRetryPolicy(), nil, 30)

	text := "First sentence here. Second sentence here. Third sentence here."
	audio, err := synth.Synthesize(context.Background(), text, "alloy")

	require.Error(t, err)
	assert.Nil(t, audio, "no partial asset on failure")
	assert.ErrorIs(t, err, models.ErrProvider)
	assert.Contains(t, err.Error(), "failed to generate audio for chunk 1")
}
