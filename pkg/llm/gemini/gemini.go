// Package gemini generates text with Google's Gemini models.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"

	"github.com/projectcapital/capital/pkg/api"
)

// DefaultModel is used when the config names no model.
const DefaultModel = "gemini-2.5-flash"

// ErrNoCandidates is returned when the model produced no text.
var ErrNoCandidates = errors.New("gemini returned no candidates")

// Config holds the Gemini provider settings.
type Config struct {
	APIKey string `json:"apiKey"`
	Model  string `json:"model,omitempty"`
	// Endpoint overrides the API base URL.
	Endpoint string `json:"endpoint,omitempty"`
}

// Generator implements api.TextGenerator over generateContent.
type Generator struct {
	svc    *generativelanguage.Service
	model  string
	apiKey string
	logger *slog.Logger
}

var _ api.TextGenerator = (*Generator)(nil)

// New creates a Gemini generator. The key is sent in the x-goog-api-key header
// so the supplied HTTP client's timeout and transport are kept.
func New(ctx context.Context, httpClient *http.Client, cfg Config, logger *slog.Logger) (*Generator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = slog.Default()
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}
	svc, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gemini service: %w", err)
	}

	return &Generator{
		svc:    svc,
		model:  modelName(cfg.Model),
		apiKey: cfg.APIKey,
		logger: logger.With("component", "gemini"),
	}, nil
}

// Generate sends prompt as a single user turn and returns the concatenated
// text parts of the first candidate.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	req := &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: prompt}},
		}},
	}

	call := g.svc.Models.GenerateContent(g.model, req).Context(ctx)
	call.Header().Set("x-goog-api-key", g.apiKey)

	resp, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("calling %s: %w", g.model, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", ErrNoCandidates
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		b.WriteString(part.Text)
	}
	g.logger.Debug("gemini reply", "model", g.model, "finish", resp.Candidates[0].FinishReason, "chars", b.Len())
	return b.String(), nil
}

func modelName(m string) string {
	if strings.HasPrefix(m, "models/") {
		return m
	}
	return "models/" + m
}

// Plugin implements the ProviderPlugin interface for Gemini.
type Plugin struct{}

// Name returns the plugin name.
func (p *Plugin) Name() string {
	return "gemini"
}

// Description returns a human-readable description.
func (p *Plugin) Description() string {
	return "Google Gemini through the Generative Language API"
}

// ConfigSchema returns a JSON schema describing the plugin's configuration.
func (p *Plugin) ConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"apiKey": map[string]any{
				"type":        "string",
				"description": "Gemini API key",
			},
			"model": map[string]any{
				"type":        "string",
				"description": "Model name (default: " + DefaultModel + ")",
				"default":     DefaultModel,
			},
			"endpoint": map[string]any{
				"type":        "string",
				"description": "API base URL override",
			},
		},
		"required": []string{"apiKey"},
	}
}

// NewGenerator creates a new Gemini generator instance.
func (p *Plugin) NewGenerator(httpClient *http.Client, configData json.RawMessage, logger *slog.Logger) (api.TextGenerator, error) {
	var cfg Config
	if err := json.Unmarshal(configData, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling gemini config: %w", err)
	}
	return New(context.Background(), httpClient, cfg, logger)
}
