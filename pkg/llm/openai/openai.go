// Package openai generates text with the OpenAI chat completions API.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/projectcapital/capital/pkg/api"
	"github.com/projectcapital/capital/pkg/client"
)

// Defaults applied when the config leaves a field empty.
const (
	DefaultBaseURL      = "https://api.openai.com/v1"
	DefaultModel        = "gpt-4o-mini"
	DefaultSystemPrompt = "You are a helpful assistant."
	DefaultMaxTokens    = 400
)

const maxErrorBody = 4 << 10

// ErrNoChoices is returned when the completion has no message.
var ErrNoChoices = errors.New("openai returned no choices")

// APIError reports a non-success response from the API. Body holds the start
// of the response text.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai: status %d: %s", e.StatusCode, e.Body)
}

// Config holds the OpenAI provider settings.
type Config struct {
	APIKey       string `json:"apiKey"`
	Model        string `json:"model,omitempty"`
	BaseURL      string `json:"baseUrl,omitempty"`
	SystemPrompt string `json:"systemPrompt,omitempty"`
	MaxTokens    int    `json:"maxTokens,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message      message `json:"message"`
		FinishReason string  `json:"finish_reason"`
	} `json:"choices"`
}

// Generator implements api.TextGenerator over chat completions.
type Generator struct {
	http   *http.Client
	cfg    Config
	logger *slog.Logger
}

var _ api.TextGenerator = (*Generator)(nil)

// New creates an OpenAI generator. The API key is attached as a bearer token
// on top of httpClient.
func New(httpClient *http.Client, cfg Config, logger *slog.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Generator{
		http:   client.NewBearer(httpClient, cfg.APIKey),
		cfg:    cfg,
		logger: logger.With("component", "openai"),
	}, nil
}

// Generate sends prompt after the configured system message and returns the
// first choice's content.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: g.cfg.Model,
		Messages: []message{
			{Role: "system", Content: g.cfg.SystemPrompt},
			{Role: "user", Content: prompt},
		},
		MaxTokens: g.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling openai: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", ErrNoChoices
	}

	g.logger.Debug("openai reply", "model", g.cfg.Model, "finish", out.Choices[0].FinishReason)
	return out.Choices[0].Message.Content, nil
}

// Plugin implements the ProviderPlugin interface for OpenAI.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "openai"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "OpenAI chat completions"
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"apiKey": map[string]any{
				"type":        "string",
				"description": "OpenAI API key",
			},
			"model": map[string]any{
				"type":        "string",
				"description": "Model name (default: " + DefaultModel + ")",
				"default":     DefaultModel,
			},
			"baseUrl": map[string]any{
				"type":        "string",
				"description": "API base URL (default: " + DefaultBaseURL + ")",
				"default":     DefaultBaseURL,
			},
			"systemPrompt": map[string]any{
				"type":        "string",
				"description": "System message sent before every prompt",
				"default":     DefaultSystemPrompt,
			},
			"maxTokens": map[string]any{
				"type":        "integer",
				"description": "Completion token limit (default: 400)",
				"default":     DefaultMaxTokens,
			},
		},
		"required": []string{"apiKey"},
	}
}

// NewGenerator creates a new OpenAI generator instance.
func (p *Plugin) NewGenerator(httpClient *http.Client, configData json.RawMessage, logger *slog.Logger) (api.TextGenerator, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling openai config: %w", err)
	}
	return New(httpClient, cfg, logger)
}
