// Package provider abstracts the language-model text-completion capability
// consumed by the workflow: given a prompt, return text. The capability is
// opaque and may fail or time out; no retry is performed here, a single
// failure degrades the calling step.
package provider

import "context"

// Provider abstracts an LLM inference backend.
//
// Implementations must be safe for concurrent use by multiple goroutines.
type Provider interface {
	// Name returns the provider identifier (e.g., "openai-compatible").
	Name() string

	// Complete performs a single non-streaming text completion.
	Complete(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error)

	// ListModels returns available models from the backend.
	ListModels(ctx context.Context) ([]ModelInfo, error)

	// Close releases provider resources (HTTP clients, connections).
	Close() error
}
