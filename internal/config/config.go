// Package config provides configuration types and helpers for sqlite-agent.
package config

import (
	"fmt"
	"strings"
)

// Config holds the application-wide configuration.
type Config struct {
	Format     string        `mapstructure:"format"`
	Color      string        `mapstructure:"color"`
	Verbose    bool          `mapstructure:"verbose"`
	Extraction string        `mapstructure:"extraction"`
	LLM        LLMConfig     `mapstructure:"llm"`
	Prompts    PromptsConfig `mapstructure:"prompts"`
	Run        RunConfig     `mapstructure:"run"`
}

// LLMConfig holds configuration for LLM providers.
type LLMConfig struct {
	// Provider selects which LLM backend to use. Only "ollama" is supported.
	Provider string `mapstructure:"provider"`

	// Global generation settings applied to all providers
	Temperature float32 `mapstructure:"temperature"`
	MaxTokens   int     `mapstructure:"max_tokens"`

	// Provider-specific configuration
	Ollama OllamaConfig `mapstructure:"ollama"`
}

// OllamaConfig holds Ollama-specific settings.
type OllamaConfig struct {
	Host      string `mapstructure:"host"`       // API endpoint
	Model     string `mapstructure:"model"`      // Default model name
	KeepAlive string `mapstructure:"keep_alive"` // How long the model stays loaded, e.g. "5m"
	NumCtx    int    `mapstructure:"num_ctx"`    // Context window size
	NumGPU    int    `mapstructure:"num_gpu"`    // GPU layers to offload
}

// PromptsConfig holds the prompt library settings.
type PromptsConfig struct {
	// File is a YAML prompt library path. Empty means the embedded defaults.
	File string `mapstructure:"file"`

	// Experiment names which prompt configuration to use.
	Experiment string `mapstructure:"experiment"`

	// Framing overrides the experiment's framing template. It may name a
	// built-in preset ("plain", "chatml", "zephyr", "instruct") or be a
	// literal template containing {system_instructions} and {question}.
	Framing string `mapstructure:"framing"`
}

// RunConfig holds settings for dataset runs.
type RunConfig struct {
	BatchSize   int    `mapstructure:"batch_size"`   // Results buffered between file flushes
	MaxExamples int    `mapstructure:"max_examples"` // 0 means the whole dataset
	OutputDir   string `mapstructure:"output_dir"`   // Where derived result files land
}

// ExtractionMode selects how SQL is recovered from a model response.
type ExtractionMode string

const (
	// ExtractStructured validates a JSON payload against the declared fields.
	ExtractStructured ExtractionMode = "structured"

	// ExtractRegex takes the first SELECT statement matched in the raw text.
	ExtractRegex ExtractionMode = "regex"
)

// ParseExtractionMode converts a string to an ExtractionMode.
func ParseExtractionMode(s string) (ExtractionMode, error) {
	switch strings.ToLower(s) {
	case "structured", "json":
		return ExtractStructured, nil
	case "regex", "raw":
		return ExtractRegex, nil
	default:
		return "", fmt.Errorf("unknown extraction mode %q (supported: structured, regex)", s)
	}
}
