package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"chat-backend/internal/chat"
	"chat-backend/pkg/api"

	"github.com/go-chi/chi/v5"
)

const (
	chatMethods       = "GET,POST,OPTIONS"
	transcriptMethods = "GET,OPTIONS"
)

type ChatService struct {
	chats *chat.Service
	now   func() time.Time
}

func NewChatService(chats *chat.Service) *ChatService {
	return &ChatService{chats: chats, now: time.Now}
}

func (s *ChatService) AddRoutes(r chi.Router) {
	r.Route("/chat", func(r chi.Router) {
		r.Options("/", s.Preflight)
		r.Get("/", RestHandler(s.GetHistory))
		r.Post("/", RestHandlerWithStatus(http.StatusCreated, s.SendPrompt))

		r.Options("/transcript", s.Preflight)
		r.Get("/transcript", s.DownloadTranscript)

		r.MethodNotAllowed(s.MethodNotAllowed)
	})
}

func allowedMethods(r *http.Request) string {
	if strings.HasSuffix(strings.TrimSuffix(r.URL.Path, "/"), "/transcript") {
		return transcriptMethods
	}
	return chatMethods
}

func (s *ChatService) Preflight(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", allowedMethods(r))
	w.WriteHeader(http.StatusNoContent)
}

func (s *ChatService) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", allowedMethods(r))
	WriteJsonResponse(w, http.StatusMethodNotAllowed, api.ErrorResponse{
		Detail: fmt.Sprintf("method %s not allowed", r.Method),
	})
}

// chatError maps validation failures to 400 and leaves everything else to the
// generic 500 path.
func chatError(err error) error {
	if errors.Is(err, chat.ErrMissingEmail) || errors.Is(err, chat.ErrMissingPrompt) {
		return CodedError(http.StatusBadRequest, err)
	}
	return err
}

func (s *ChatService) GetHistory(r *http.Request) (any, error) {
	params, err := ParseRequestQueryParams[api.HistoryParams](r)
	if err != nil {
		return nil, err
	}

	thread, err := s.chats.History(r.Context(), params.Email)
	if err != nil {
		return nil, chatError(err)
	}

	messages := make([]api.ChatMessage, 0, len(thread.Messages))
	for _, msg := range thread.Messages {
		messages = append(messages, api.ChatMessage{Role: msg.Role, Text: msg.Text, CreatedAt: msg.CreatedAt})
	}

	return api.HistoryResponse{ChatId: thread.ChatId, Email: thread.Email, Messages: messages}, nil
}

func (s *ChatService) SendPrompt(r *http.Request) (any, error) {
	req, err := ParseRequest[api.SendPromptRequest](r)
	if err != nil {
		return nil, err
	}

	answer, err := s.chats.Send(r.Context(), req.Email, req.Prompt)
	if err != nil {
		return nil, chatError(err)
	}

	return api.SendPromptResponse{Answer: answer}, nil
}

func (s *ChatService) DownloadTranscript(w http.ResponseWriter, r *http.Request) {
	params, err := ParseRequestQueryParams[api.HistoryParams](r)
	if err != nil {
		WriteError(w, err)
		return
	}

	transcript, err := s.chats.Transcript(r.Context(), params.Email)
	if err != nil {
		WriteError(w, chatError(err))
		return
	}

	filename := fmt.Sprintf("chat-history-%s.txt", s.now().UTC().Format(time.DateOnly))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(transcript)); err != nil {
		slog.Error("error writing transcript", "error", err)
	}
}
