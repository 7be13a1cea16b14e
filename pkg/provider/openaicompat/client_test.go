package openaicompat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Renuka-M1115/multi-agent/pkg/api"
	"github.com/Renuka-M1115/multi-agent/pkg/provider"
)

func TestCompleteRoundTrip(t *testing.T) {
	var gotReq ChatCompletionRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("path = %q, want /v1/chat/completions", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("Authorization = %q", auth)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatal(err)
		}
		json.NewEncoder(w).Encode(ChatCompletionResponse{
			Model: "gpt-4",
			Choices: []ChatChoice{
				{Message: ChatMessage{Role: "assistant", Content: "```python\nprint(1)\n```"}},
			},
			Usage: &ChatUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, APIKey: "sk-test"})
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	temp := 0.3
	resp, err := c.Complete(context.Background(), &provider.CompletionRequest{
		Model:       "gpt-4",
		System:      "You are an expert data visualization engineer.",
		Prompt:      "Generate a scatter plot",
		Temperature: &temp,
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}

	if resp.Text != "```python\nprint(1)\n```" {
		t.Errorf("Text = %q", resp.Text)
	}
	if resp.Usage.TotalTokens != 15 {
		t.Errorf("TotalTokens = %d, want 15", resp.Usage.TotalTokens)
	}
	if len(gotReq.Messages) != 2 || gotReq.Messages[0].Role != "system" || gotReq.Messages[1].Role != "user" {
		t.Errorf("messages = %+v, want system then user", gotReq.Messages)
	}
	if gotReq.Temperature == nil || *gotReq.Temperature != 0.3 {
		t.Errorf("Temperature = %v, want 0.3", gotReq.Temperature)
	}
}

func TestCompleteModelMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ChatCompletionRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "openai/gpt-4" {
			t.Errorf("model = %q, want openai/gpt-4", req.Model)
		}
		json.NewEncoder(w).Encode(ChatCompletionResponse{
			Choices: []ChatChoice{{Message: ChatMessage{Content: "ok"}}},
		})
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL, ModelMapping: map[string]string{"gpt-4": "openai/gpt-4"}})
	defer c.Close()

	if _, err := c.Complete(context.Background(), &provider.CompletionRequest{Model: "gpt-4", Prompt: "hi"}); err != nil {
		t.Fatal(err)
	}
}

func TestCompleteBackendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ChatErrorResponse{Error: ChatError{Message: "backend exploded"}})
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	defer c.Close()

	_, err := c.Complete(context.Background(), &provider.CompletionRequest{Model: "m", Prompt: "hi"})
	if err == nil {
		t.Fatal("Complete() = nil error, want model error")
	}
	var apiErr *api.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *api.APIError", err)
	}
	if apiErr.Type != api.ErrorTypeModelError {
		t.Errorf("error type = %s, want %s", apiErr.Type, api.ErrorTypeModelError)
	}
	if apiErr.Message != "backend exploded" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestCompleteConnectionRefused(t *testing.T) {
	// Point at a server that is already closed.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, _ := New(Config{BaseURL: url})
	defer c.Close()

	_, err := c.Complete(context.Background(), &provider.CompletionRequest{Model: "m", Prompt: "hi"})
	if err == nil {
		t.Fatal("Complete() = nil error, want connection error")
	}
}

func TestCompleteEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ChatCompletionResponse{})
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	defer c.Close()

	if _, err := c.Complete(context.Background(), &provider.CompletionRequest{Model: "m", Prompt: "hi"}); err == nil {
		t.Fatal("Complete() with no choices = nil error, want error")
	}
}

func TestListModels(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/models" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(ModelListResponse{
			Object: "list",
			Data:   []ModelResponse{{ID: "gpt-4"}, {ID: "gpt-4o-mini"}},
		})
	}))
	defer srv.Close()

	c, _ := New(Config{BaseURL: srv.URL})
	defer c.Close()

	models, err := c.ListModels(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(models) != 2 || models[0].ID != "gpt-4" {
		t.Errorf("models = %+v", models)
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("New() with empty BaseURL = nil error, want error")
	}
}
