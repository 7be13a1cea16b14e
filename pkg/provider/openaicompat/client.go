// Package openaicompat implements provider.Provider against any
// OpenAI-compatible Chat Completions backend (OpenAI, LiteLLM, vLLM, ...).
package openaicompat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Renuka-M1115/multi-agent/pkg/debug"
	"github.com/Renuka-M1115/multi-agent/pkg/provider"
)

// Config holds configuration for the OpenAI-compatible provider adapter.
type Config struct {
	// BaseURL is the backend URL (e.g., "https://api.openai.com").
	BaseURL string

	// APIKey for backend authentication (optional for local backends).
	APIKey string

	// Timeout for individual HTTP requests. Defaults to 120s.
	Timeout time.Duration

	// ModelMapping maps requested model names to backend identifiers.
	// If a model is not in the map, it is passed through unchanged.
	ModelMapping map[string]string
}

// Client performs HTTP requests against an OpenAI-compatible Chat
// Completions backend and implements provider.Provider.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	mapping    map[string]string
}

// Ensure Client implements provider.Provider at compile time.
var _ provider.Provider = (*Client)(nil)

// New creates a new Client with the given configuration.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("openaicompat: BaseURL is required")
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		mapping:    cfg.ModelMapping,
	}, nil
}

// Name returns the provider identifier.
func (c *Client) Name() string {
	return "openai-compatible"
}

// Complete performs a single completion against the Chat Completions
// endpoint. The system and user prompts are sent as separate messages.
func (c *Client) Complete(ctx context.Context, req *provider.CompletionRequest) (*provider.CompletionResponse, error) {
	model := req.Model
	if mapped, ok := c.mapping[model]; ok {
		model = mapped
	}

	chatReq := ChatCompletionRequest{
		Model:       model,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}
	if req.System != "" {
		chatReq.Messages = append(chatReq.Messages, ChatMessage{Role: "system", Content: req.System})
	}
	chatReq.Messages = append(chatReq.Messages, ChatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	debug.Log("provider", "completion request", "model", model, "prompt_len", len(req.Prompt))
	debug.Raw("provider", string(body))

	url := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var chatResp ChatCompletionResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("parse backend response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("backend produced no choices")
	}

	resp := &provider.CompletionResponse{
		Text:  chatResp.Choices[0].Message.Content,
		Model: chatResp.Model,
	}
	if chatResp.Usage != nil {
		resp.Usage = provider.Usage{
			InputTokens:  chatResp.Usage.PromptTokens,
			OutputTokens: chatResp.Usage.CompletionTokens,
			TotalTokens:  chatResp.Usage.TotalTokens,
		}
	}
	return resp, nil
}

// ListModels returns available models by querying the /v1/models endpoint.
func (c *Client) ListModels(ctx context.Context) ([]provider.ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/models", nil)
	if err != nil {
		return nil, fmt.Errorf("create HTTP request: %w", err)
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, MapNetworkError(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, MapHTTPError(httpResp)
	}

	var listResp ModelListResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&listResp); err != nil {
		return nil, fmt.Errorf("parse models response: %w", err)
	}

	models := make([]provider.ModelInfo, 0, len(listResp.Data))
	for _, m := range listResp.Data {
		models = append(models, provider.ModelInfo{ID: m.ID, Object: m.Object, OwnedBy: m.OwnedBy})
	}
	return models, nil
}

// Close releases the underlying HTTP client's idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
