package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"virtual-courtroom/internal/domain"
	"virtual-courtroom/internal/infra/config"
)

func newOpenAITestServer(t *testing.T, handler func(t *testing.T, req openaiRequest, w http.ResponseWriter)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var req openaiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		handler(t, req, w)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProviderChat(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		var req openaiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		assert.Equal(t, "gpt-4", req.Model)
		assert.Equal(t, 1024, req.MaxTokens)
		require.NotNil(t, req.Temperature)
		assert.Equal(t, 0.7, *req.Temperature)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, domain.RoleSystem, req.Messages[0].Role)

		json.NewEncoder(w).Encode(openaiResponse{
			ID:      "chatcmpl-1",
			Model:   "gpt-4-0613",
			Created: 1700000000,
			Choices: []openaiChoice{{Message: openaiMessage{Role: "assistant", Content: "Order in the court."}}},
			Usage:   openaiUsage{PromptTokens: 30, CompletionTokens: 5, TotalTokens: 35},
		})
	}))
	defer srv.Close()

	p := NewOpenAIProvider(config.ProviderConfig{Name: "openai", APIKey: "sk-test", BaseURL: srv.URL + "/"}, newTestLogger())
	resp, err := p.Chat(context.Background(), courtRequest())
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk-test", auth)
	assert.Equal(t, "chatcmpl-1", resp.ID)
	assert.Equal(t, "gpt-4-0613", resp.Model)
	assert.Equal(t, domain.RoleAssistant, resp.Message.Role)
	assert.Equal(t, "Order in the court.", resp.Message.Content)
	assert.Equal(t, 35, resp.Usage.TotalTokens)
	assert.Equal(t, time.Unix(1700000000, 0), resp.CreatedAt)
	assert.Equal(t, "openai", p.Name())
}

func TestOpenAIProviderDefaultModelAndZeroTemperature(t *testing.T) {
	srv := newOpenAITestServer(t, func(t *testing.T, req openaiRequest, w http.ResponseWriter) {
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.NotNil(t, req.Temperature, "explicit zero temperature must be sent")
		assert.Equal(t, 0.0, *req.Temperature)
		json.NewEncoder(w).Encode(openaiResponse{Choices: []openaiChoice{{Message: openaiMessage{Content: "ok"}}}})
	})

	p := NewOpenAIProvider(config.ProviderConfig{Name: "o", Model: "gpt-4o-mini", BaseURL: srv.URL}, newTestLogger())
	req := courtRequest()
	req.Model = ""
	req.Temperature = 0
	_, err := p.Chat(context.Background(), req)
	require.NoError(t, err)
}

func TestOpenAIProviderErrorResponses(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, domain.ErrRateLimit},
		{http.StatusUnauthorized, domain.ErrAuthInvalid},
		{http.StatusBadGateway, domain.ErrProviderError},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, `{"error":{"message":"nope"}}`, tt.status)
		}))
		p := NewOpenAIProvider(config.ProviderConfig{Name: "o", BaseURL: srv.URL}, newTestLogger())
		_, err := p.Chat(context.Background(), courtRequest())
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
		srv.Close()
	}
}

func TestOpenAIProviderMalformedResponses(t *testing.T) {
	for name, body := range map[string]string{
		"invalid json": `{not json`,
		"no choices":   `{"id":"x","choices":[]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(body))
			}))
			defer srv.Close()

			p := NewOpenAIProvider(config.ProviderConfig{Name: "o", BaseURL: srv.URL}, newTestLogger())
			_, err := p.Chat(context.Background(), courtRequest())
			assert.ErrorIs(t, err, domain.ErrMalformed)
		})
	}
}

func TestOpenAIProviderContextCancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	p := NewOpenAIProvider(config.ProviderConfig{Name: "o", BaseURL: srv.URL}, newTestLogger())
	_, err := p.Chat(ctx, courtRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenAIRequestConversion(t *testing.T) {
	req := courtRequest()
	req.Messages = append(req.Messages, domain.Message{Role: domain.RoleAssistant, Content: "Noted.", Name: "Jane's Attorney"})

	got := toOpenAIRequest(req)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, "Jane_s_Attorney", got.Messages[2].Name)
	assert.Empty(t, got.Messages[0].Name)
}

func TestSanitizeName(t *testing.T) {
	assert.Equal(t, "Judge_Park", sanitizeName("Judge Park"))
	assert.Equal(t, "Ms__Reed", sanitizeName("Ms. Reed"))
	assert.Equal(t, "abc", sanitizeName("a/b*c"))
	assert.Len(t, sanitizeName(string(make([]byte, 100))+"x"), 1)
	long := ""
	for range 80 {
		long += "a"
	}
	assert.Len(t, sanitizeName(long), 64)
}
