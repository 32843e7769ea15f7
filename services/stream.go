package services

import (
	"context"
	"io"
	"time"
	"unicode/utf8"
)

// AnswerStream hands out an answer in fixed-size pieces with a pause between
// them. It is single-use: once drained it keeps returning io.EOF.
type AnswerStream struct {
	answer string
	chunks []string
	next   int
	delay  time.Duration
}

// NewAnswerStream splits answer into chunks of chunkSize runes.
func NewAnswerStream(answer string, chunkSize int, delay time.Duration) *AnswerStream {
	return &AnswerStream{answer: answer, chunks: splitRunes(answer, chunkSize), delay: delay}
}

// Answer returns the full text being streamed.
func (s *AnswerStream) Answer() string {
	return s.answer
}

// Next returns the next chunk, io.EOF when drained, or ctx.Err() if the context
// ends while waiting between chunks.
func (s *AnswerStream) Next(ctx context.Context) (string, error) {
	if s.next >= len(s.chunks) {
		return "", io.EOF
	}
	if s.next > 0 && s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", ctx.Err()
		case <-timer.C:
		}
	}
	chunk := s.chunks[s.next]
	s.next++
	return chunk, nil
}

// splitRunes cuts text into pieces of at most size runes, never splitting a
// multi-byte character. Invalid bytes count as one rune each and are kept as-is.
func splitRunes(text string, size int) []string {
	if size < 1 {
		size = 1
	}
	chunks := make([]string, 0, (utf8.RuneCountInString(text)+size-1)/size)
	for len(text) > 0 {
		end := 0
		for n := 0; n < size && end < len(text); n++ {
			_, width := utf8.DecodeRuneInString(text[end:])
			end += width
		}
		chunks = append(chunks, text[:end])
		text = text[end:]
	}
	return chunks
}
