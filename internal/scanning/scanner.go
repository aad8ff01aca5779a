package scanning

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrUnknownProvider is returned by NewBackend for an unsupported provider name.
var ErrUnknownProvider = errors.New("unknown model provider")

// Generator sends a text prompt to a language model and returns the raw text
// it produced. The output is not guaranteed to be JSON.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
	// Close closes the generator and releases resources
	Close() error
}

// Transcriber reads the text printed on a document image.
type Transcriber interface {
	Transcribe(ctx context.Context, imageData []byte, contentType string) (string, error)
}

// Backend is a model provider usable for both extraction and transcription.
type Backend interface {
	Generator
	Transcriber
}

// Config selects and configures a Backend.
type Config struct {
	Provider string // gemini, ollama or openai

	GeminiKey   string
	GeminiModel string

	OllamaURL   string
	OllamaModel string

	OpenAIKey   string
	OpenAIURL   string
	OpenAIModel string

	// Timeout bounds a single model call. Zero leaves it to the caller's context.
	Timeout time.Duration
}

// NewBackend creates the Backend named by cfg.Provider
func NewBackend(cfg Config) (Backend, error) {
	switch cfg.Provider {
	case "gemini":
		g, err := NewGemini(cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		g.timeout = cfg.Timeout
		return g, nil
	case "ollama":
		return NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.Timeout)
	case "openai":
		return NewOpenAI(OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			BaseURL: cfg.OpenAIURL,
			Model:   cfg.OpenAIModel,
			Timeout: cfg.Timeout,
		})
	default:
		return nil, fmt.Errorf("%w: %q (valid: gemini, ollama, openai)", ErrUnknownProvider, cfg.Provider)
	}
}

// withTimeout applies d to ctx when d is positive.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
