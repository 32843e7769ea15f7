package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github/itish2003/ragchat/models"

	"go.uber.org/zap"
)

const apologyPrefix = "Sorry, I couldn't process that right now. Error: "

// SessionStore keeps the ordered chat turns of each browser session.
type SessionStore interface {
	Messages(ctx context.Context, sessionID string) ([]models.ChatTurn, error)
	// Append adds all turns in one operation; a failure must leave none of them stored.
	Append(ctx context.Context, sessionID string, turns ...models.ChatTurn) error
	Clear(ctx context.Context, sessionID string) error
}

// ChatSettings control how streamed answers are paced.
type ChatSettings struct {
	ChunkSize  int
	ChunkDelay time.Duration
}

// ChatService validates questions, asks the pipeline, and records the exchange
// in the caller's session.
type ChatService struct {
	pipeline Invoker
	sessions SessionStore
	settings ChatSettings
	logger   *zap.Logger
}

func NewChatService(pipeline Invoker, sessions SessionStore, settings ChatSettings, logger *zap.Logger) *ChatService {
	if settings.ChunkSize < 1 {
		settings.ChunkSize = 28
	}
	return &ChatService{
		pipeline: pipeline,
		sessions: sessions,
		settings: settings,
		logger:   logger.Named("service"),
	}
}

// Messages returns the session's turns, empty for a new session.
func (s *ChatService) Messages(ctx context.Context, sessionID string) ([]models.ChatTurn, error) {
	turns, err := s.sessions.Messages(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session messages: %w", err)
	}
	if turns == nil {
		turns = []models.ChatTurn{}
	}
	return turns, nil
}

// Clear forgets the conversation of sessionID.
func (s *ChatService) Clear(ctx context.Context, sessionID string) error {
	if err := s.sessions.Clear(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// Handle answers question and appends the user and assistant turns as a pair.
// Pipeline failures become an apologetic assistant turn, not an error.
func (s *ChatService) Handle(ctx context.Context, sessionID, question string) (models.ChatTurn, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.ChatTurn{}, ErrEmptyQuestion
	}

	reply := models.NewAssistantTurn(s.answer(ctx, question))
	if err := s.sessions.Append(ctx, sessionID, models.NewUserTurn(question), reply); err != nil {
		return models.ChatTurn{}, fmt.Errorf("failed to save chat turns: %w", err)
	}
	return reply, nil
}

// HandleStreaming is Handle followed by chunked delivery of the answer.
func (s *ChatService) HandleStreaming(ctx context.Context, sessionID, question string) (*AnswerStream, error) {
	reply, err := s.Handle(ctx, sessionID, question)
	if err != nil {
		return nil, err
	}
	return NewAnswerStream(reply.Content, s.settings.ChunkSize, s.settings.ChunkDelay), nil
}

func (s *ChatService) answer(ctx context.Context, question string) (answer string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("pipeline panicked", zap.Any("panic", r))
			answer = apology(fmt.Errorf("%v", r))
		}
	}()

	out, err := s.pipeline.Invoke(ctx, PipelineRequest{Question: question})
	if err != nil {
		s.logger.Error("pipeline invocation failed", zap.Error(err))
		return apology(err)
	}
	return NormalizeAnswer(out)
}

func apology(err error) string {
	return apologyPrefix + err.Error()
}
