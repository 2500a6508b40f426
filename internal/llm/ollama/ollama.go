// Package ollama provides an Ollama implementation of the llm.Provider interface.
//
// Note: To avoid import cycles, this package defines its own types that match
// the llm.Provider interface. The parent llm package imports this package and
// adapts between the two type sets.
package ollama

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// Provider implements the LLM provider interface for Ollama.
type Provider struct {
	client *api.Client
	config Config
	logger *slog.Logger
}

// Config holds Ollama-specific configuration.
type Config struct {
	// Host is the Ollama API endpoint (e.g., "http://localhost:11434")
	Host string

	// Model is the default model to use (e.g., "llama3.2")
	Model string

	// KeepAlive controls how long the model stays loaded after a request,
	// as a Go duration string (e.g., "5m"). Empty uses the server default.
	KeepAlive string

	// NumCtx overrides the model's context window size when > 0
	NumCtx int

	// NumGPU overrides how many layers are offloaded to the GPU when > 0
	NumGPU int
}

// GenerateOptions configures a single generation request.
type GenerateOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
}

// Response represents a complete LLM response.
type Response struct {
	Content      string
	Model        string
	TokensPrompt int
	TokensOutput int
}

// StreamEvent represents a single event in a streaming response.
type StreamEvent struct {
	Content string
	Done    bool
	Error   error
}

// Common errors
var (
	ErrProviderUnavailable = errors.New("llm provider is not reachable")
	ErrContextCanceled     = errors.New("operation was canceled")
)

// New creates a new Ollama provider.
// If cfg.Host is empty, it uses the OLLAMA_HOST environment variable or defaults to http://localhost:11434.
func New(cfg Config, logger *slog.Logger) (*Provider, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	// Start with environment-based client (respects OLLAMA_HOST)
	client, err := api.ClientFromEnvironment()
	if err != nil {
		logger.Error("failed to create ollama client from environment", "error", err)
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	// Override with explicit config if provided
	if cfg.Host != "" {
		parsedURL, err := url.Parse(cfg.Host)
		if err != nil {
			logger.Error("invalid ollama host URL", "host", cfg.Host, "error", err)
			return nil, fmt.Errorf("invalid ollama host: %w", err)
		}

		client = api.NewClient(parsedURL, http.DefaultClient)
		logger.Debug("created ollama client with explicit host", "host", cfg.Host)
	} else {
		logger.Debug("created ollama client from environment")
	}

	// Set default model if not specified
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
		logger.Debug("using default model", "model", cfg.Model)
	}

	if cfg.KeepAlive != "" {
		if _, err := time.ParseDuration(cfg.KeepAlive); err != nil {
			return nil, fmt.Errorf("invalid keep_alive: %w", err)
		}
	}

	return &Provider{
		client: client,
		config: cfg,
		logger: logger,
	}, nil
}

// buildRequest assembles the raw generation request shared by Generate and
// GenerateStream. Raw mode bypasses the server-side chat template so the
// prompt text controls the turn delimiters.
func (p *Provider) buildRequest(prompt string, opts *GenerateOptions, stream bool) *api.GenerateRequest {
	model := p.config.Model
	temperature := float32(0)
	maxTokens := 0
	if opts != nil {
		if opts.Model != "" {
			model = opts.Model
		}
		temperature = opts.Temperature
		maxTokens = opts.MaxTokens
	}

	req := &api.GenerateRequest{
		Model:  model,
		Prompt: prompt,
		Raw:    true,
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": temperature,
		},
	}

	if maxTokens > 0 {
		req.Options["num_predict"] = maxTokens
	}
	if p.config.NumCtx > 0 {
		req.Options["num_ctx"] = p.config.NumCtx
	}
	if p.config.NumGPU > 0 {
		req.Options["num_gpu"] = p.config.NumGPU
	}
	if p.config.KeepAlive != "" {
		if d, err := time.ParseDuration(p.config.KeepAlive); err == nil {
			req.KeepAlive = &api.Duration{Duration: d}
		}
	}

	return req
}

// Generate sends a fully framed prompt to Ollama and returns the complete
// completion.
func (p *Provider) Generate(ctx context.Context, prompt string, opts *GenerateOptions) (*Response, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt cannot be empty")
	}

	req := p.buildRequest(prompt, opts, false)
	p.logger.Debug("sending generate request", "model", req.Model, "prompt_chars", len(prompt))

	var response api.GenerateResponse
	err := p.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
		response = resp
		return nil
	})

	if err != nil {
		p.logger.Error("generate request failed", "error", err, "model", req.Model)
		if errors.Is(err, context.Canceled) {
			return nil, fmt.Errorf("%w: %v", ErrContextCanceled, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	p.logger.Debug("generate request completed",
		"model", response.Model,
		"prompt_tokens", response.PromptEvalCount,
		"output_tokens", response.EvalCount)

	return &Response{
		Content:      response.Response,
		Model:        response.Model,
		TokensPrompt: response.PromptEvalCount,
		TokensOutput: response.EvalCount,
	}, nil
}

// GenerateStream sends a fully framed prompt to Ollama and returns a channel
// of streaming events.
func (p *Provider) GenerateStream(ctx context.Context, prompt string, opts *GenerateOptions) (<-chan StreamEvent, error) {
	if strings.TrimSpace(prompt) == "" {
		return nil, errors.New("prompt cannot be empty")
	}

	req := p.buildRequest(prompt, opts, true)
	p.logger.Debug("starting generate stream", "model", req.Model, "prompt_chars", len(prompt))

	eventChan := make(chan StreamEvent, 10)

	go func() {
		defer close(eventChan)

		err := p.client.Generate(ctx, req, func(resp api.GenerateResponse) error {
			// Check if context was canceled
			select {
			case <-ctx.Done():
				p.logger.Debug("generate stream canceled by context")
				eventChan <- StreamEvent{
					Error: fmt.Errorf("%w: %v", ErrContextCanceled, ctx.Err()),
					Done:  true,
				}
				return ctx.Err()
			default:
			}

			// Send content chunk if present
			if resp.Response != "" {
				eventChan <- StreamEvent{
					Content: resp.Response,
					Done:    resp.Done,
				}
			}

			// Log final response
			if resp.Done {
				p.logger.Debug("generate stream completed",
					"model", resp.Model,
					"prompt_tokens", resp.PromptEvalCount,
					"output_tokens", resp.EvalCount)
			}

			return nil
		})

		if err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Error("generate stream failed", "error", err, "model", req.Model)
			eventChan <- StreamEvent{
				Error: fmt.Errorf("%w: %v", ErrProviderUnavailable, err),
				Done:  true,
			}
		}
	}()

	return eventChan, nil
}

// Heartbeat checks if the Ollama service is reachable and healthy.
func (p *Provider) Heartbeat(ctx context.Context) error {
	p.logger.Debug("checking ollama heartbeat")

	err := p.client.Heartbeat(ctx)
	if err != nil {
		p.logger.Error("ollama heartbeat failed", "error", err)
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	p.logger.Debug("ollama heartbeat successful")
	return nil
}

// ModelAvailable checks if a specific model is available (i.e., has been pulled).
// A bare model name matches its ":latest" tag, mirroring how the Ollama CLI
// resolves names.
func (p *Provider) ModelAvailable(ctx context.Context, model string) (bool, error) {
	p.logger.Debug("checking model availability", "model", model)

	// List all available models
	listResp, err := p.client.List(ctx)
	if err != nil {
		p.logger.Error("failed to list models", "error", err)
		return false, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	// Check if requested model is in the list
	for _, modelInfo := range listResp.Models {
		if modelMatches(modelInfo.Name, model) || modelMatches(modelInfo.Model, model) {
			p.logger.Debug("model is available", "model", model)
			return true, nil
		}
	}

	p.logger.Debug("model not found", "model", model, "available_count", len(listResp.Models))
	return false, nil
}

func modelMatches(have, want string) bool {
	if have == want {
		return true
	}
	return strings.TrimSuffix(have, ":latest") == strings.TrimSuffix(want, ":latest")
}
