package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"chat-backend/internal/api"
	"chat-backend/internal/chat"
	"chat-backend/internal/database"
	pkgapi "chat-backend/pkg/api"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	err     error
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return "", g.err
	}
	return "reply to " + prompt, nil
}

func (g *fakeGenerator) Name() string {
	return "fake"
}

func newRouter(t *testing.T, generator *fakeGenerator) chi.Router {
	db, err := database.NewDatabase(database.DriverSqlite, "file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	service := chat.NewService(chat.NewGormStore(db), generator, nil)
	return api.NewRouter(api.RouterConfig{}, api.NewChatService(service))
}

func getHistory(t *testing.T, router http.Handler, email string) *httptest.ResponseRecorder {
	target := "/api/chat"
	if email != "" {
		target += "?email=" + url.QueryEscape(email)
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func postPrompt(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func TestGetHistoryNewUser(t *testing.T) {
	router := newRouter(t, &fakeGenerator{})

	rec := getHistory(t, router, "ada@example.com")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages":[]`)

	res := decode[pkgapi.HistoryResponse](t, rec)
	assert.Equal(t, "ada@example.com", res.Email)
	assert.NotEmpty(t, res.ChatId)
	assert.Empty(t, res.Messages)

	again := decode[pkgapi.HistoryResponse](t, getHistory(t, router, "ada@example.com"))
	assert.Equal(t, res.ChatId, again.ChatId)
}

func TestGetHistoryMissingEmail(t *testing.T) {
	router := newRouter(t, &fakeGenerator{})

	rec := getHistory(t, router, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email is required", decode[pkgapi.ErrorResponse](t, rec).Detail)
}

func TestSendPromptThenHistory(t *testing.T) {
	generator := &fakeGenerator{}
	router := newRouter(t, generator)

	rec := postPrompt(t, router, `{"email":"ada@example.com","prompt":"What is a goroutine?"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "reply to What is a goroutine?", decode[pkgapi.SendPromptResponse](t, rec).Answer)

	rec = postPrompt(t, router, `{"email":"ada@example.com","prompt":"Thanks"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	history := decode[pkgapi.HistoryResponse](t, getHistory(t, router, "ada@example.com"))
	require.Len(t, history.Messages, 4)
	expected := []pkgapi.ChatMessage{
		{Role: "user", Text: "What is a goroutine?"},
		{Role: "ai", Text: "reply to What is a goroutine?"},
		{Role: "user", Text: "Thanks"},
		{Role: "ai", Text: "reply to Thanks"},
	}
	for i, msg := range history.Messages {
		assert.Equal(t, expected[i].Role, msg.Role)
		assert.Equal(t, expected[i].Text, msg.Text)
		assert.False(t, msg.CreatedAt.IsZero())
	}
	for i := 1; i < len(history.Messages); i++ {
		assert.False(t, history.Messages[i].CreatedAt.Before(history.Messages[i-1].CreatedAt))
	}

	other := decode[pkgapi.HistoryResponse](t, getHistory(t, router, "grace@example.com"))
	assert.Empty(t, other.Messages)
	assert.NotEqual(t, history.ChatId, other.ChatId)
}

func TestSendPromptMissingFields(t *testing.T) {
	generator := &fakeGenerator{}
	router := newRouter(t, generator)

	for _, body := range []string{
		`{"email":"ada@example.com"}`,
		`{"prompt":"hello"}`,
		`{"email":"","prompt":"hello"}`,
		`{}`,
		``,
	} {
		rec := postPrompt(t, router, body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, "email and prompt are required", decode[pkgapi.ErrorResponse](t, rec).Detail, body)
	}

	assert.Empty(t, generator.prompts)
}

func TestSendPromptMalformedBody(t *testing.T) {
	router := newRouter(t, &fakeGenerator{})

	rec := postPrompt(t, router, `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decode[pkgapi.ErrorResponse](t, rec).Detail, "unable to parse request body")
}

func TestSendPromptGeneratorFailure(t *testing.T) {
	router := newRouter(t, &fakeGenerator{err: errors.New("upstream unavailable")})

	rec := postPrompt(t, router, `{"email":"ada@example.com","prompt":"hello"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "upstream unavailable")

	history := decode[pkgapi.HistoryResponse](t, getHistory(t, router, "ada@example.com"))
	assert.Empty(t, history.Messages)
}

func TestOptionsAndMethodNotAllowed(t *testing.T) {
	router := newRouter(t, &fakeGenerator{})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	for _, method := range []string{http.MethodPut, http.MethodDelete, http.MethodPatch, "PROPFIND", "FOO"} {
		req := httptest.NewRequest(method, "/api/chat", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method)
		assert.Equal(t, "GET,POST,OPTIONS", rec.Header().Get("Allow"), method)
		assert.Contains(t, rec.Body.String(), "not allowed", method)
	}

	req = httptest.NewRequest("PROPFIND", "/api/chat/transcript", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET,OPTIONS", rec.Header().Get("Allow"))
}

func TestCors(t *testing.T) {
	router := newRouter(t, &fakeGenerator{})

	req := httptest.NewRequest(http.MethodOptions, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, http.MethodPost, rec.Header().Get("Access-Control-Allow-Methods"))
	assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"))

	req = httptest.NewRequest(http.MethodGet, "/api/chat?email=ada%40example.com", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	for _, method := range []string{http.MethodGet, http.MethodPut} {
		req = httptest.NewRequest(method, "/api/chat?email=ada%40example.com", nil)
		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"), method)
		assert.Equal(t, "GET,POST,OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"), method)
		assert.Equal(t, "Content-Type", rec.Header().Get("Access-Control-Allow-Headers"), method)
	}
}

func TestDownloadTranscript(t *testing.T) {
	router := newRouter(t, &fakeGenerator{})

	rec := postPrompt(t, router, `{"email":"ada@example.com","prompt":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/chat/transcript?email=ada%40example.com", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="chat-history-\d{4}-\d{2}-\d{2}\.txt"$`, rec.Header().Get("Content-Disposition"))
	assert.Regexp(t, `^\[\d{2}:\d{2}\] You: hello\n\n\[\d{2}:\d{2}\] AI: reply to hello$`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/chat/transcript", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/chat/transcript", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET,OPTIONS", rec.Header().Get("Allow"))
}

func TestHealth(t *testing.T) {
	router := newRouter(t, &fakeGenerator{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[pkgapi.HealthResponse](t, rec).Status)
}

func TestConcurrentFirstContact(t *testing.T) {
	router := newRouter(t, &fakeGenerator{})

	const clients = 6
	ids := make([]string, clients)
	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := httptest.NewRequest(http.MethodGet, "/api/chat?email=race%40example.com", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			var res pkgapi.HistoryResponse
			if rec.Code == http.StatusOK && json.NewDecoder(bytes.NewReader(rec.Body.Bytes())).Decode(&res) == nil {
				ids[i] = res.ChatId
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < clients; i++ {
		assert.NotEmpty(t, ids[i])
		assert.Equal(t, ids[0], ids[i])
	}
}
