// =============================================================================
// Journal CSV Converter - Conversion Client
// =============================================================================
//
// The conversion client is an untyped text-in/text-out capability: it sends
// one prompt to a generative model and returns the raw completion. Nothing
// here interprets the completion; that is the response parser's job.
//
// Every call is a fresh, billed network request. There is no caching and no
// retry: failures are returned to the caller as AuthenticationError or
// TransportError.
//
// =============================================================================

package llm

import (
	"context"
	"fmt"

	"github.com/ginjaninja78/journal-csv-converter/internal/config"
	"go.uber.org/zap"
)

// Request is a single completion request.
type Request struct {
	Model       string
	System      string
	Prompt      string
	Temperature float64
}

// Client issues completion requests.
type Client interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) (string, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}

// =============================================================================
// ERRORS
// =============================================================================

// AuthenticationError reports missing or rejected credentials.
type AuthenticationError struct {
	Provider   string
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *AuthenticationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s authentication failed (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s authentication failed: %s", e.Provider, e.Message)
}

// TransportError reports a network failure, timeout, or unusable response.
type TransportError struct {
	Provider   string
	StatusCode int
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s request failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// =============================================================================
// FACTORY
// =============================================================================

// New returns the client for the configured provider.
func New(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAIClient(cfg, logger), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, cfg, logger)
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// MaskKey returns a form of an API key that is safe to log.
func MaskKey(key string) string {
	switch {
	case key == "":
		return "(unset)"
	case len(key) <= 8:
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
