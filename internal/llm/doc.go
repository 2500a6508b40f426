// Package llm provides a unified interface for driving Large Language Models
// through raw text completion.
//
// # Overview
//
// The package defines a Provider interface that abstracts the model backend
// behind a common API. The agent talks to models through raw generation
// rather than chat: prompt composition (including chat-turn delimiters) is
// owned by internal/prompt, and the provider passes the finished text through
// untouched. Only Ollama is implemented today; the factory keeps the seam for
// more backends.
//
// # Architecture
//
// The package uses a factory pattern with provider-specific implementations
// in subpackages. To avoid import cycles, subpackages (like ollama) define
// their own types that match the Provider interface, and the parent package
// uses adapter types to bridge between them.
//
//	┌──────────────┐
//	│ llm package  │  ← Defines Provider interface
//	│              │  ← Factory: NewProvider()
//	│              │  ← Adapter per provider
//	└──────┬───────┘
//	       │
//	┌──────▼──────┐
//	│ llm/ollama  │
//	│ package     │
//	└─────────────┘
//
// # Usage
//
// Create a provider using the factory function with your configuration:
//
//	provider, err := llm.NewProvider(cfg, logger)
//	if err != nil {
//	    return err
//	}
//
//	if err := provider.Heartbeat(ctx); err != nil {
//	    return fmt.Errorf("backend down: %w", err)
//	}
//
//	resp, err := provider.Generate(ctx, promptText, &llm.GenerateOptions{
//	    Model:       "llama3.2",
//	    Temperature: 0,
//	})
//
// Streaming works the same way, delivering incremental chunks:
//
//	stream, err := provider.GenerateStream(ctx, promptText, nil)
//	for event := range stream {
//	    if event.Error != nil {
//	        return event.Error
//	    }
//	    fmt.Print(event.Content)
//	}
package llm
