package http

import (
	"context"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"grant-portal/internal/common/errors"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTokens struct {
	token string
	err   error
}

func (s staticTokens) Token(context.Context) (string, error) {
	return s.token, s.err
}

func newTestServer(t *testing.T) *httptest.Server {
	r := chi.NewRouter()
	r.Get("/api/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"auth":"` + r.Header.Get("Authorization") + `"}`))
	})
	r.Post("/api/echo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/api/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{not json`))
	})
	r.Get("/api/reject", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message":"Invalid data","errors":[{"field":"email","message":"taken"}]}`))
	})
	r.Get("/api/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_URL(t *testing.T) {
	c := NewClient(time.Second, WithBaseURL("http://localhost:5000/api/"))

	assert.Equal(t, "http://localhost:5000/api/grants/submit", c.URL("/grants/submit"))
	assert.Equal(t, "http://localhost:5000/api/auth/login", c.URL("auth/login"))
	assert.Equal(t, "https://other.example/x", c.URL("https://other.example/x"))
	assert.Equal(t, time.Second, c.Timeout())
}

func TestClient_WithTimeout(t *testing.T) {
	c := NewClient(100*time.Millisecond,
		WithBaseURL("http://localhost:5000/api"),
		WithTokenSource(staticTokens{token: "abc"}),
	)
	long := c.WithTimeout(5 * time.Second)

	assert.Equal(t, 5*time.Second, long.Timeout())
	assert.Equal(t, 5*time.Second, long.httpClient.Timeout)
	assert.Equal(t, 100*time.Millisecond, c.Timeout())
	assert.Equal(t, 100*time.Millisecond, c.httpClient.Timeout)
	assert.Equal(t, c.URL("/grants/submit"), long.URL("/grants/submit"))

	req, err := long.NewRequest(context.Background(), http.MethodGet, "/x", nil)
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", req.Header.Get("Authorization"))
}

func TestClient_DoJSON_BearerToken(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name   string
		tokens TokenSource
		want   string
	}{
		{"no source", nil, ""},
		{"empty token", staticTokens{}, ""},
		{"token", staticTokens{token: "abc.def.ghi"}, "Bearer abc.def.ghi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := []Option{WithBaseURL(srv.URL + "/api")}
			if tt.tokens != nil {
				opts = append(opts, WithTokenSource(tt.tokens))
			}
			c := NewClient(time.Second, opts...)

			var out struct {
				Auth string `json:"auth"`
			}
			require.NoError(t, c.DoJSON(context.Background(), http.MethodGet, "/profile", "profile", nil, &out))
			assert.Equal(t, tt.want, out.Auth)
		})
	}
}

func TestClient_DoJSON_TokenSourceError(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(time.Second, WithBaseURL(srv.URL+"/api"), WithTokenSource(staticTokens{err: stderrors.New("store down")}))

	err := c.DoJSON(context.Background(), http.MethodGet, "/profile", "profile", nil, nil)
	assert.EqualError(t, err, "store down")
}

func TestClient_DoJSON_PostBody(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(time.Second, WithBaseURL(srv.URL+"/api"))

	var out map[string]bool
	require.NoError(t, c.DoJSON(context.Background(), http.MethodPost, "/echo", "echo", map[string]string{"a": "b"}, &out))
	assert.True(t, out["ok"])
}

func TestClient_DoJSON_Errors(t *testing.T) {
	srv := newTestServer(t)
	c := NewClient(300*time.Millisecond, WithBaseURL(srv.URL+"/api"))
	ctx := context.Background()

	t.Run("parse failure", func(t *testing.T) {
		var out map[string]interface{}
		err := c.DoJSON(ctx, http.MethodGet, "/broken", "broken", nil, &out)
		assert.True(t, stderrors.Is(err, &errors.StandardError{Code: errors.ErrCodeResponseParseFailed}))
	})

	t.Run("rejected", func(t *testing.T) {
		err := c.DoJSON(ctx, http.MethodGet, "/reject", "reject", nil, nil)
		var apiErr *APIError
		require.True(t, stderrors.As(err, &apiErr))
		assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
		assert.Equal(t, "Invalid data", apiErr.Message)
		assert.Equal(t, map[string]string{"email": "taken"}, apiErr.FieldErrors)
	})

	t.Run("timeout", func(t *testing.T) {
		err := c.DoJSON(ctx, http.MethodGet, "/slow", "slow", nil, nil)
		assert.True(t, stderrors.Is(err, &errors.StandardError{Code: errors.ErrCodeRequestTimeout}))
	})

	t.Run("connection refused", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()
		c := NewClient(time.Second, WithBaseURL(dead.URL))

		err := c.DoJSON(ctx, http.MethodGet, "/x", "dead", nil, nil)
		stdErr, ok := errors.AsStandardError(err)
		require.True(t, ok)
		assert.Equal(t, errors.ErrCodeNetworkError, stdErr.Code)
		assert.True(t, stdErr.Retryable)
	})
}

func TestParseErrorBody(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantMsg    string
		wantFields map[string]string
		wantText   string
	}{
		{name: "empty", body: ""},
		{name: "message", body: `{"message":"server error"}`, wantMsg: "server error"},
		{name: "error", body: `{"error":"Unauthorized"}`, wantMsg: "Unauthorized"},
		{name: "errors string", body: `{"errors":"bad things"}`, wantMsg: "bad things"},
		{
			name:       "errors list",
			body:       `{"errors":[{"field":"email","message":"Email taken"},{"path":"zip","msg":"Bad zip"}]}`,
			wantMsg:    "Email taken; Bad zip",
			wantFields: map[string]string{"email": "Email taken", "zip": "Bad zip"},
		},
		{name: "errors string list", body: `{"errors":["SSN already registered"]}`, wantMsg: "SSN already registered"},
		{
			name:       "errors mixed list",
			body:       `{"errors":["Duplicate application",{"field":"ssn","message":"dup"},42]}`,
			wantMsg:    "Duplicate application; dup",
			wantFields: map[string]string{"ssn": "dup"},
		},
		{
			name:       "errors object",
			body:       `{"errors":{"zip":"Bad zip","ssn":["Invalid SSN"]}}`,
			wantMsg:    "Invalid SSN; Bad zip",
			wantFields: map[string]string{"zip": "Bad zip", "ssn": "Invalid SSN"},
		},
		{
			name:       "message wins over errors",
			body:       `{"message":"Validation failed","errors":[{"field":"ssn","message":"dup"}]}`,
			wantMsg:    "Validation failed",
			wantFields: map[string]string{"ssn": "dup"},
		},
		{name: "plain text", body: "Service Unavailable\n", wantText: "Service Unavailable"},
		{name: "non-string message", body: `{"message":{"nested":true}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := ParseErrorBody(500, []byte(tt.body))
			assert.Equal(t, 500, apiErr.Status)
			assert.Equal(t, tt.wantMsg, apiErr.Message)
			assert.Equal(t, tt.wantFields, apiErr.FieldErrors)
			assert.Equal(t, tt.wantText, apiErr.Text)
		})
	}
}

func TestAPIError_MessageOr(t *testing.T) {
	assert.Equal(t, "fallback", (&APIError{Status: 500}).MessageOr("fallback"))
	assert.Equal(t, "server error", (&APIError{Message: "server error"}).MessageOr("fallback"))
	assert.Contains(t, (&APIError{Status: 502, Text: "Bad Gateway"}).Error(), "Bad Gateway")
}
