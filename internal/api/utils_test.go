package api_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chat-backend/internal/api"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name" schema:"name"`
	Count int    `json:"count" schema:"count"`
}

func TestParseRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","count":2}`))
	got, err := api.ParseRequest[sample](req)
	require.NoError(t, err)
	assert.Equal(t, sample{Name: "a", Count: 2}, got)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	got, err = api.ParseRequest[sample](req)
	require.NoError(t, err)
	assert.Equal(t, sample{}, got)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	_, err = api.ParseRequest[sample](req)
	assert.Error(t, err)
}

func TestParseRequestQueryParams(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?name=b&count=3&extra=ignored", nil)
	got, err := api.ParseRequestQueryParams[sample](req)
	require.NoError(t, err)
	assert.Equal(t, sample{Name: "b", Count: 3}, got)

	req = httptest.NewRequest(http.MethodGet, "/?count=many", nil)
	_, err = api.ParseRequestQueryParams[sample](req)
	assert.Error(t, err)
}

func TestRestHandlerErrors(t *testing.T) {
	cases := []struct {
		err    error
		code   int
		detail string
	}{
		{api.CodedErrorf(http.StatusBadRequest, "bad %s", "input"), http.StatusBadRequest, `{"detail":"bad input"}`},
		{api.CodedErrorf(http.StatusInternalServerError, "db password leaked"), http.StatusInternalServerError, `{"detail":"Internal Server Error"}`},
		{errors.New("connection refused"), http.StatusInternalServerError, `{"detail":"Internal Server Error"}`},
	}

	for _, tc := range cases {
		handler := api.RestHandler(func(r *http.Request) (any, error) { return nil, tc.err })
		rec := httptest.NewRecorder()
		handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, tc.code, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.JSONEq(t, tc.detail, rec.Body.String())
	}
}

func TestRestHandlerWithStatus(t *testing.T) {
	handler := api.RestHandlerWithStatus(http.StatusCreated, func(r *http.Request) (any, error) {
		return map[string]string{"ok": "yes"}, nil
	})
	rec := httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodPost, "/", nil))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())

	handler = api.RestHandler(func(r *http.Request) (any, error) { return nil, nil })
	rec = httptest.NewRecorder()
	handler(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{}`, rec.Body.String())
}
