// Package client is a Go client for the chat service's HTTP API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"chat-backend/pkg/api"

	"github.com/go-resty/resty/v2"
)

// Generation can take close to a minute upstream, so the default timeout sits
// above the server's own request deadline.
const DefaultTimeout = 90 * time.Second

type Client struct {
	client *resty.Client
}

func New(baseURL string) *Client {
	return &Client{
		client: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(DefaultTimeout).
			SetHeader("Accept", "application/json"),
	}
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chat api returned %d: %s", e.StatusCode, e.Detail)
}

func responseError(res *resty.Response) error {
	detail := res.String()
	var body api.ErrorResponse
	if err := json.Unmarshal(res.Body(), &body); err == nil && body.Detail != "" {
		detail = body.Detail
	}
	return &StatusError{StatusCode: res.StatusCode(), Detail: detail}
}

func (c *Client) History(ctx context.Context, email string) (api.HistoryResponse, error) {
	var out api.HistoryResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetQueryParam("email", email).
		SetResult(&out).
		Get("/api/chat")
	if err != nil {
		return api.HistoryResponse{}, fmt.Errorf("error requesting chat history: %w", err)
	}
	if !res.IsSuccess() {
		return api.HistoryResponse{}, responseError(res)
	}
	return out, nil
}

func (c *Client) Send(ctx context.Context, email, prompt string) (string, error) {
	var out api.SendPromptResponse
	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(api.SendPromptRequest{Email: email, Prompt: prompt}).
		SetResult(&out).
		Post("/api/chat")
	if err != nil {
		return "", fmt.Errorf("error sending prompt: %w", err)
	}
	if res.StatusCode() != http.StatusCreated {
		return "", responseError(res)
	}
	return out.Answer, nil
}

func (c *Client) Transcript(ctx context.Context, email string) (string, error) {
	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("Accept", "text/plain").
		SetQueryParam("email", email).
		Get("/api/chat/transcript")
	if err != nil {
		return "", fmt.Errorf("error requesting transcript: %w", err)
	}
	if !res.IsSuccess() {
		return "", responseError(res)
	}
	return res.String(), nil
}

// SummaryPrompt builds the prompt used to ask for a short summary of a news
// article. Missing fields are left empty.
func SummaryPrompt(article api.Article) string {
	return fmt.Sprintf(
		"Please provide a concise summary of the following article:\nTitle: %s\nDescription: %s\nContent: %s",
		article.Title, article.Description, article.Content,
	)
}

// Summarize asks for a summary of article through the regular chat endpoint,
// so the request and reply become part of the user's history.
func (c *Client) Summarize(ctx context.Context, email string, article api.Article) (string, error) {
	return c.Send(ctx, email, SummaryPrompt(article))
}
