package openrouter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func noBackoff(int) time.Duration { return 0 }

func TestChatCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("authorization: %q", r.Header.Get("Authorization"))
		}
		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Model != "judge-model" || len(req.Messages) != 1 || req.Messages[0].Content != "score this" {
			t.Errorf("request: %+v", req)
		}
		if req.Temperature == nil || *req.Temperature != 0 {
			t.Errorf("temperature: %v", req.Temperature)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ChatResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "{}"}}}})
	}))
	defer server.Close()

	c := NewClient("test-key", WithBaseURL(server.URL), WithTemperature(0))
	resp, err := c.ChatCompletion(context.Background(), "judge-model", []Message{{Role: "user", Content: "score this"}})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if resp.Content() != "{}" {
		t.Errorf("content: %q", resp.Content())
	}
}

func TestChatCompletionRetriesTransient(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch attempts.Add(1) {
		case 1:
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			json.NewEncoder(w).Encode(ChatResponse{Choices: []Choice{{Message: Message{Content: "ok"}}}})
		}
	}))
	defer server.Close()

	c := NewClient("k", WithBaseURL(server.URL), WithBackoff(noBackoff))
	resp, err := c.ChatCompletion(context.Background(), "m", nil)
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if resp.Content() != "ok" || attempts.Load() != 3 {
		t.Errorf("content=%q attempts=%d", resp.Content(), attempts.Load())
	}
}

func TestChatCompletionPermanentFailure(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient("k", WithBaseURL(server.URL), WithBackoff(noBackoff))
	if _, err := c.ChatCompletion(context.Background(), "m", nil); err == nil {
		t.Fatal("expected error")
	}
	if attempts.Load() != 1 {
		t.Errorf("4xx must not be retried, got %d attempts", attempts.Load())
	}
}

func TestChatCompletionGivesUp(t *testing.T) {
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := NewClient("k", WithBaseURL(server.URL), WithBackoff(noBackoff))
	if _, err := c.ChatCompletion(context.Background(), "m", nil); err == nil {
		t.Fatal("expected error")
	}
	if attempts.Load() != maxRetries+1 {
		t.Errorf("attempts: %d", attempts.Load())
	}
}

func TestChatCompletionEmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := NewClient("k", WithBaseURL(server.URL)).ChatCompletion(context.Background(), "m", nil)
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("got %v", err)
	}
}

func TestChatCompletionHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := NewClient("k", WithBaseURL(server.URL))
	if _, err := c.ChatCompletion(ctx, "m", nil); err == nil {
		t.Error("cancelled context should fail")
	}
}
