package openai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docintelhq/docintel/internal/llm"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(baseURL string) *Client {
	return NewClient(Config{APIKey: "test-key", BaseURL: baseURL, Model: "test-model"}, testLogger())
}

func TestCompleteSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["model"] != "test-model" {
			t.Errorf("model = %v", body["model"])
		}
		msgs, _ := body["messages"].([]any)
		if len(msgs) != 2 {
			t.Errorf("messages = %v", msgs)
		}
		if body["max_tokens"] != float64(100) {
			t.Errorf("max_tokens = %v", body["max_tokens"])
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	got, err := c.Complete(context.Background(), llm.ChatRequest{System: "sys", User: "usr", MaxTokens: 100})
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Errorf("content = %q", got)
	}
}

func TestCompleteErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   llm.FailureKind
	}{
		{"unauthorized", http.StatusUnauthorized, llm.KindAuth},
		{"forbidden", http.StatusForbidden, llm.KindAuth},
		{"rate limited", http.StatusTooManyRequests, llm.KindRateLimit},
		{"server error", http.StatusInternalServerError, llm.KindService},
		{"bad gateway", http.StatusBadGateway, llm.KindService},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.status, `{"error":{"message":"nope"}}`)
			c := newTestClient(srv.URL)
			_, err := c.Complete(context.Background(), llm.ChatRequest{User: "u"})
			var ce *llm.CallError
			if !errors.As(err, &ce) {
				t.Fatalf("error %T is not *llm.CallError", err)
			}
			if ce.Kind != tt.want {
				t.Errorf("kind = %d, want %d", ce.Kind, tt.want)
			}
			if ce.Status != tt.status {
				t.Errorf("status = %d, want %d", ce.Status, tt.status)
			}
		})
	}
}

func TestCompleteNoChoices(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"choices":[]}`)
	c := newTestClient(srv.URL)
	_, err := c.Complete(context.Background(), llm.ChatRequest{User: "u"})
	var ce *llm.CallError
	if !errors.As(err, &ce) {
		t.Fatalf("error %T is not *llm.CallError", err)
	}
	if ce.Kind != llm.KindService {
		t.Errorf("kind = %d, want service", ce.Kind)
	}
}

func TestCompleteMalformedBody(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `not json at all`)
	c := newTestClient(srv.URL)
	_, err := c.Complete(context.Background(), llm.ChatRequest{User: "u"})
	var ce *llm.CallError
	if !errors.As(err, &ce) {
		t.Fatalf("error %T is not *llm.CallError", err)
	}
	if ce.Kind != llm.KindService {
		t.Errorf("kind = %d, want service", ce.Kind)
	}
}

func TestCompleteConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // now nothing is listening

	c := newTestClient(srv.URL)
	_, err := c.Complete(context.Background(), llm.ChatRequest{User: "u"})
	var ce *llm.CallError
	if !errors.As(err, &ce) {
		t.Fatalf("error %T is not *llm.CallError", err)
	}
	if ce.Status != 0 {
		t.Errorf("status = %d, want 0 for transport failure", ce.Status)
	}
}
