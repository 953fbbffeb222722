package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ginjaninja78/journal-csv-converter/internal/config"
	"go.uber.org/zap"
)

const providerOpenAI = "openai"

// OpenAIClient talks to an OpenAI-compatible chat/completions endpoint.
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIResponse struct {
	Choices []struct {
		Message openAIMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// NewOpenAIClient creates a client from the LLM configuration.
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) *OpenAIClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = config.DefaultOpenAIBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

// Complete sends the prompt with a system message and returns the
// completion text.
func (c *OpenAIClient) Complete(ctx context.Context, req Request) (string, error) {
	if c.apiKey == "" {
		return "", &AuthenticationError{Provider: providerOpenAI, Message: "API key not configured"}
	}

	startTime := time.Now()
	c.logger.Debug("sending completion request",
		zap.String("provider", providerOpenAI),
		zap.String("model", req.Model),
		zap.String("api_key", MaskKey(c.apiKey)),
		zap.Float64("temperature", req.Temperature),
		zap.Int("prompt_len", len(req.Prompt)))

	messages := make([]openAIMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openAIMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, openAIMessage{Role: "user", Content: req.Prompt})

	jsonData, err := json.Marshal(openAIRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &TransportError{Provider: providerOpenAI, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", &AuthenticationError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Message: apiErrorMessage(body)}
	case resp.StatusCode != http.StatusOK:
		return "", &TransportError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Err: errors.New(apiErrorMessage(body))}
	}

	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", &TransportError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
	}
	if parsed.Error != nil {
		return "", &TransportError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Err: errors.New(parsed.Error.Message)}
	}
	if len(parsed.Choices) == 0 {
		return "", &TransportError{Provider: providerOpenAI, StatusCode: resp.StatusCode, Err: errors.New("no completion returned")}
	}

	content := parsed.Choices[0].Message.Content
	c.logger.Debug("completion received",
		zap.String("provider", providerOpenAI),
		zap.Duration("elapsed", time.Since(startTime)),
		zap.Int("response_len", len(content)))
	return content, nil
}

// apiErrorMessage extracts error.message from an error body, falling back
// to the (shortened) raw body.
func apiErrorMessage(body []byte) string {
	var parsed openAIResponse
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error != nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	if msg == "" {
		msg = "empty response body"
	}
	return msg
}
