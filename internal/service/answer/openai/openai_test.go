package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"

	"interview-assistant/internal/service/answer"
)

func newServer(t *testing.T, handler func(req openai.ChatCompletionRequest) (int, any)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req openai.ChatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerator_Answer(t *testing.T) {
	var seen openai.ChatCompletionRequest
	srv := newServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		seen = req
		return http.StatusOK, openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{
				{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: "  A goroutine is a lightweight thread.  "}},
			},
		}
	})

	cfg := DefaultConfig()
	cfg.APIKey = "test-key"
	cfg.BaseURL = srv.URL
	g := New(cfg)

	got, err := g.Answer(context.Background(), "What is a goroutine?")
	if err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if got != "A goroutine is a lightweight thread." {
		t.Errorf("unexpected answer %q", got)
	}

	if seen.Model != openai.GPT4 {
		t.Errorf("expected model %s, got %s", openai.GPT4, seen.Model)
	}
	if seen.MaxTokens != 150 {
		t.Errorf("expected max tokens 150, got %d", seen.MaxTokens)
	}
	if len(seen.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(seen.Messages))
	}
	if seen.Messages[0].Role != openai.ChatMessageRoleSystem || seen.Messages[0].Content != "You are a helpful assistant." {
		t.Errorf("unexpected system message %+v", seen.Messages[0])
	}
	if seen.Messages[1].Content != "Answer the following question concisely: What is a goroutine?" {
		t.Errorf("unexpected user message %q", seen.Messages[1].Content)
	}
}

func TestGenerator_NoChoices(t *testing.T) {
	srv := newServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		return http.StatusOK, openai.ChatCompletionResponse{}
	})

	g := New(Config{APIKey: "k", BaseURL: srv.URL})
	if _, err := g.Answer(context.Background(), "q"); !errors.Is(err, answer.ErrEmptyAnswer) {
		t.Errorf("expected ErrEmptyAnswer, got %v", err)
	}
}

func TestGenerator_APIError(t *testing.T) {
	srv := newServer(t, func(req openai.ChatCompletionRequest) (int, any) {
		return http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"message": "bad key", "type": "invalid_request_error"},
		}
	})

	g := New(Config{APIKey: "k", BaseURL: srv.URL})
	if _, err := g.Answer(context.Background(), "q"); err == nil {
		t.Error("expected error")
	}
}

func TestGenerator_Name(t *testing.T) {
	if New(DefaultConfig()).Name() != "openai" {
		t.Error("unexpected provider name")
	}
}
