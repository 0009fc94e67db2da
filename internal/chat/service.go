package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"chat-backend/internal/llm"
	"chat-backend/internal/messaging"
)

var (
	ErrMissingEmail  = errors.New("email is required")
	ErrMissingPrompt = errors.New("email and prompt are required")
)

type Thread struct {
	ChatId   string
	Email    string
	Messages []Message
}

// Service reads and extends the single chat thread each user owns.
type Service struct {
	store     Store
	generator llm.Generator
	publisher messaging.Publisher
	now       func() time.Time
}

// NewService wires the chat operations to their dependencies. publisher may be
// nil, in which case no exchange events are emitted.
func NewService(store Store, generator llm.Generator, publisher messaging.Publisher) *Service {
	return &Service{
		store:     store,
		generator: generator,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *Service) History(ctx context.Context, email string) (Thread, error) {
	if email == "" {
		return Thread{}, ErrMissingEmail
	}

	ref, err := s.store.ResolveChat(ctx, email)
	if err != nil {
		return Thread{}, fmt.Errorf("error resolving chat for user: %w", err)
	}

	messages, err := s.store.ListMessages(ctx, ref.ChatId)
	if err != nil {
		return Thread{}, fmt.Errorf("error loading chat history: %w", err)
	}

	return Thread{ChatId: ref.ChatId, Email: email, Messages: messages}, nil
}

// Send forwards prompt verbatim to the generator and records the prompt and
// the reply. The generator is called before anything is written, so a failed
// call leaves the chat untouched. If the reply cannot be stored the call fails
// and the reply is not returned.
func (s *Service) Send(ctx context.Context, email, prompt string) (string, error) {
	if email == "" || prompt == "" {
		return "", ErrMissingPrompt
	}

	ref, err := s.store.ResolveChat(ctx, email)
	if err != nil {
		return "", fmt.Errorf("error resolving chat for user: %w", err)
	}

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("error generating reply: %w", err)
	}

	exchange := Exchange{
		Prompt:    prompt,
		Answer:    answer,
		Generator: s.generator.Name(),
		At:        s.now().UTC(),
	}

	if err := s.store.AppendExchange(ctx, ref.ChatId, exchange); err != nil {
		slog.Error("error storing exchange, reply discarded", "chat_id", ref.ChatId, "error", err)
		slog.Debug("discarded reply", "chat_id", ref.ChatId, "answer", answer)
		return "", fmt.Errorf("error storing exchange: %w", err)
	}

	s.publishExchange(ctx, ref, exchange)

	return answer, nil
}

func (s *Service) publishExchange(ctx context.Context, ref ChatRef, exchange Exchange) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.PublishExchange(ctx, messaging.ExchangePayload{
		ChatId:    ref.ChatId,
		Email:     ref.Email,
		Prompt:    exchange.Prompt,
		Answer:    exchange.Answer,
		Generator: exchange.Generator,
		CreatedAt: exchange.At,
	})
	if err != nil {
		slog.Warn("error publishing exchange event", "chat_id", ref.ChatId, "error", err)
	}
}

// Transcript renders the chat of the user with email as plain text.
func (s *Service) Transcript(ctx context.Context, email string) (string, error) {
	thread, err := s.History(ctx, email)
	if err != nil {
		return "", err
	}
	return RenderTranscript(thread.Messages), nil
}
