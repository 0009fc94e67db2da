package api

import "time"

type HistoryParams struct {
	Email string `schema:"email"`
}

type ChatMessage struct {
	Role      string    `json:"role"` // "user" or "ai"
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

type HistoryResponse struct {
	ChatId   string        `json:"chatId"`
	Email    string        `json:"email"`
	Messages []ChatMessage `json:"messages"`
}

type SendPromptRequest struct {
	Email  string `json:"email"`
	Prompt string `json:"prompt"`
}

type SendPromptResponse struct {
	Answer string `json:"answer"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

// Article is a news item as shown in the feed. Only the text fields are used
// to build summary prompts.
type Article struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
	URL         string `json:"url,omitempty"`
	PublishedAt string `json:"publishedAt,omitempty"`
}
