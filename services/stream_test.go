package services

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(t *testing.T, s *AnswerStream) []string {
	t.Helper()
	var chunks []string
	for {
		chunk, err := s.Next(context.Background())
		if err == io.EOF {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}
}

func TestAnswerStreamChunksAndReassembles(t *testing.T) {
	answer := strings.Repeat("x", 60)
	chunks := drain(t, NewAnswerStream(answer, 28, 0))

	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 28)
	assert.Len(t, chunks[1], 28)
	assert.Len(t, chunks[2], 4)
	assert.Equal(t, answer, strings.Join(chunks, ""))
}

func TestAnswerStreamKeepsRunesWhole(t *testing.T) {
	answer := "Высокое давление: гипертония 高血压"
	chunks := drain(t, NewAnswerStream(answer, 5, 0))

	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 5)
	}
	assert.Equal(t, answer, strings.Join(chunks, ""))
}

func TestAnswerStreamKeepsInvalidBytes(t *testing.T) {
	answer := "ok \xff\xfe done"
	chunks := drain(t, NewAnswerStream(answer, 2, 0))

	assert.Equal(t, []string{"ok", " \xff", "\xfe ", "do", "ne"}, chunks)
	assert.Equal(t, answer, strings.Join(chunks, ""))
}

func TestAnswerStreamEmptyAnswer(t *testing.T) {
	assert.Empty(t, drain(t, NewAnswerStream("", 28, 0)))
}

func TestAnswerStreamIsSingleUse(t *testing.T) {
	s := NewAnswerStream("abc", 28, 0)
	drain(t, s)

	_, err := s.Next(context.Background())
	assert.Equal(t, io.EOF, err)
}

func TestAnswerStreamPacesChunks(t *testing.T) {
	s := NewAnswerStream(strings.Repeat("y", 84), 28, 15*time.Millisecond)

	start := time.Now()
	chunks := drain(t, s)
	assert.Len(t, chunks, 3)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestAnswerStreamStopsOnCancel(t *testing.T) {
	s := NewAnswerStream(strings.Repeat("z", 56), 28, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())

	first, err := s.Next(ctx)
	require.NoError(t, err)
	assert.Len(t, first, 28)

	cancel()
	_, err = s.Next(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
