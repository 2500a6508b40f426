package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/stbedoya/sqlite-agent/internal/config"
	"github.com/stbedoya/sqlite-agent/internal/llm/ollama"
)

// Provider defines the interface for LLM interactions.
// Implementations must be safe for concurrent use.
type Provider interface {
	// Generate sends a fully framed prompt and returns the complete
	// completion. The context can be used to cancel the request.
	Generate(ctx context.Context, prompt string, opts *GenerateOptions) (*Response, error)

	// GenerateStream sends a fully framed prompt and returns a channel of
	// streaming events. The channel is closed when the stream completes or
	// encounters an error. The context can be used to cancel the stream.
	GenerateStream(ctx context.Context, prompt string, opts *GenerateOptions) (<-chan StreamEvent, error)

	// Heartbeat checks if the provider is reachable and healthy.
	// Returns nil if the provider is available, otherwise returns an error.
	Heartbeat(ctx context.Context) error

	// ModelAvailable checks if a specific model is available for use.
	// Returns true if the model is ready, false if it needs to be pulled.
	ModelAvailable(ctx context.Context, model string) (bool, error)
}

// GenerateOptions configures a single generation request.
// All fields are optional; nil opts uses provider defaults.
type GenerateOptions struct {
	// Model specifies which model to use (e.g., "llama3.2", "sqlcoder")
	Model string

	// Temperature controls randomness (0.0 = deterministic).
	// SQL generation wants 0 for reproducible queries.
	Temperature float32

	// MaxTokens limits the response length (0 = provider default)
	MaxTokens int
}

// Response represents a complete LLM response.
type Response struct {
	// Content is the generated text
	Content string

	// Model is the name of the model that generated the response
	Model string

	// TokensPrompt is the number of tokens the model evaluated from the prompt
	TokensPrompt int

	// TokensOutput is the number of tokens the model generated
	TokensOutput int
}

// StreamEvent represents a single event in a streaming response.
type StreamEvent struct {
	// Content is the incremental text chunk (token or group of tokens)
	Content string

	// Done indicates if this is the final event in the stream
	Done bool

	// Error contains any error that occurred during streaming
	// When Error is non-nil, the stream should be considered terminated
	Error error
}

// Common errors returned by LLM providers.
var (
	// ErrProviderUnavailable indicates the LLM provider is not reachable
	ErrProviderUnavailable = errors.New("llm provider is not reachable")

	// ErrContextCanceled indicates the operation was canceled via context
	ErrContextCanceled = errors.New("operation was canceled")
)

// NewProvider creates an LLM provider based on the configuration.
// The logger is used for debug and error messages.
// Returns an error if the provider type is unknown or initialization fails.
func NewProvider(cfg *config.Config, logger *slog.Logger) (Provider, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	providerType := strings.ToLower(cfg.LLM.Provider)
	logger.Debug("creating llm provider", "type", providerType)

	switch providerType {
	case "ollama":
		ollamaProvider, err := ollama.New(ollama.Config{
			Host:      cfg.LLM.Ollama.Host,
			Model:     cfg.LLM.Ollama.Model,
			KeepAlive: cfg.LLM.Ollama.KeepAlive,
			NumCtx:    cfg.LLM.Ollama.NumCtx,
			NumGPU:    cfg.LLM.Ollama.NumGPU,
		}, logger)
		if err != nil {
			return nil, err
		}
		return &ollamaProviderAdapter{provider: ollamaProvider}, nil

	case "":
		return nil, errors.New("llm provider not specified in configuration")

	default:
		return nil, fmt.Errorf("unknown llm provider: %s (supported: ollama)", providerType)
	}
}

// ollamaProviderAdapter adapts the ollama.Provider to the llm.Provider
// interface. This is needed to avoid import cycles between the llm and ollama
// packages.
type ollamaProviderAdapter struct {
	provider *ollama.Provider
}

func (a *ollamaProviderAdapter) Generate(ctx context.Context, prompt string, opts *GenerateOptions) (*Response, error) {
	resp, err := a.provider.Generate(ctx, prompt, convertOptions(opts))
	if err != nil {
		return nil, err
	}

	return &Response{
		Content:      resp.Content,
		Model:        resp.Model,
		TokensPrompt: resp.TokensPrompt,
		TokensOutput: resp.TokensOutput,
	}, nil
}

func (a *ollamaProviderAdapter) GenerateStream(ctx context.Context, prompt string, opts *GenerateOptions) (<-chan StreamEvent, error) {
	ollamaStream, err := a.provider.GenerateStream(ctx, prompt, convertOptions(opts))
	if err != nil {
		return nil, err
	}

	// Bridge the ollama event channel to the llm event channel
	events := make(chan StreamEvent, 10)
	go func() {
		defer close(events)
		for event := range ollamaStream {
			events <- StreamEvent{
				Content: event.Content,
				Done:    event.Done,
				Error:   event.Error,
			}
		}
	}()

	return events, nil
}

func (a *ollamaProviderAdapter) Heartbeat(ctx context.Context) error {
	return a.provider.Heartbeat(ctx)
}

func (a *ollamaProviderAdapter) ModelAvailable(ctx context.Context, model string) (bool, error) {
	return a.provider.ModelAvailable(ctx, model)
}

// convertOptions maps llm.GenerateOptions onto the ollama equivalent.
func convertOptions(opts *GenerateOptions) *ollama.GenerateOptions {
	if opts == nil {
		return nil
	}
	return &ollama.GenerateOptions{
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}
}
