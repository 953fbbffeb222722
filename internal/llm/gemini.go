package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ginjaninja78/journal-csv-converter/internal/config"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const providerGemini = "gemini"

// GeminiClient sends completion requests through the Google GenAI SDK.
type GeminiClient struct {
	client  *genai.Client
	timeout time.Duration
	logger  *zap.Logger
}

// NewGeminiClient creates a Gemini client. A missing API key is reported
// by Complete, not here, so that configuration problems surface the same
// way for every provider.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &GeminiClient{timeout: cfg.Timeout, logger: logger}
	if cfg.APIKey == "" {
		return c, nil
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	c.client = client
	return c, nil
}

// Complete sends the prompt and returns the completion text.
func (c *GeminiClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.client == nil {
		return "", &AuthenticationError{Provider: providerGemini, Message: "API key not configured"}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	startTime := time.Now()
	temperature := float32(req.Temperature)
	genConfig := &genai.GenerateContentConfig{Temperature: &temperature}
	if req.System != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}

	c.logger.Debug("sending completion request",
		zap.String("provider", providerGemini),
		zap.String("model", req.Model),
		zap.Float64("temperature", req.Temperature),
		zap.Int("prompt_len", len(req.Prompt)))

	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}
	resp, err := c.client.Models.GenerateContent(ctx, req.Model, contents, genConfig)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			if isCredentialError(apiErr) {
				return "", &AuthenticationError{Provider: providerGemini, StatusCode: apiErr.Code, Message: apiErr.Message}
			}
			return "", &TransportError{Provider: providerGemini, StatusCode: apiErr.Code, Err: err}
		}
		return "", &TransportError{Provider: providerGemini, Err: err}
	}

	text := resp.Text()
	if text == "" {
		return "", &TransportError{Provider: providerGemini, Err: errors.New("no completion returned")}
	}

	c.logger.Debug("completion received",
		zap.String("provider", providerGemini),
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Int("response_len", len(text)))
	return text, nil
}

// isCredentialError reports whether the API rejected the key. The Gemini API
// answers an invalid key with 400 INVALID_ARGUMENT and reason API_KEY_INVALID.
func isCredentialError(apiErr genai.APIError) bool {
	switch apiErr.Code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	switch apiErr.Status {
	case "UNAUTHENTICATED", "PERMISSION_DENIED":
		return true
	}
	for _, detail := range apiErr.Details {
		if reason, _ := detail["reason"].(string); reason == "API_KEY_INVALID" {
			return true
		}
	}
	return false
}
