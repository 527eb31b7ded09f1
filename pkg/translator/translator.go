// Package translator turns a natural-language question into a backend query
// with one language model call.
package translator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/projectcapital/capital/pkg/api"
	"github.com/projectcapital/capital/pkg/endpoint"
)

// Mode selects what the model is asked to produce.
type Mode string

const (
	// ModeIntent asks for a JSON intent that is validated into a query.
	ModeIntent Mode = "intent"
	// ModeEndpoint asks for a raw endpoint line.
	ModeEndpoint Mode = "endpoint"
)

// ParseMode returns the mode named by s, defaulting to ModeIntent.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeIntent, "":
		return ModeIntent, nil
	case ModeEndpoint:
		return ModeEndpoint, nil
	default:
		return "", fmt.Errorf("unknown translate mode %q (want intent or endpoint)", s)
	}
}

var (
	// ErrEmptyReply is returned when the model answers with no usable text.
	ErrEmptyReply = errors.New("model returned an empty reply")
	// ErrMalformedIntent is returned when the intent reply is not valid JSON.
	ErrMalformedIntent = errors.New("model reply is not a valid intent")
)

// Translator prompts a TextGenerator on behalf of one user.
type Translator struct {
	gen    api.TextGenerator
	user   string
	logger *slog.Logger
}

// New creates a translator for the given user.
func New(gen api.TextGenerator, user string, logger *slog.Logger) *Translator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Translator{
		gen:    gen,
		user:   user,
		logger: logger.With("component", "translator"),
	}
}

// Translate returns the endpoint string the model produced for question.
// The result is not validated.
func (t *Translator) Translate(ctx context.Context, question string) (string, error) {
	reply, err := t.gen.Generate(ctx, EndpointPrompt(t.user)+question)
	if err != nil {
		return "", fmt.Errorf("generating endpoint: %w", err)
	}

	line := CleanEndpoint(reply)
	if line == "" {
		return "", ErrEmptyReply
	}
	t.logger.Debug("translated question", "question", truncate(question, 80), "endpoint", line)
	return line, nil
}

// Extract asks the model for a JSON intent and validates it into a query.
// A template name outside the catalogue yields endpoint.ErrNoTemplate.
func (t *Translator) Extract(ctx context.Context, question string) (endpoint.Query, error) {
	reply, err := t.gen.Generate(ctx, IntentPrompt(t.user)+question)
	if err != nil {
		return endpoint.Query{}, fmt.Errorf("generating intent: %w", err)
	}
	if strings.TrimSpace(reply) == "" {
		return endpoint.Query{}, ErrEmptyReply
	}

	intent, err := ParseIntent(reply)
	if err != nil {
		return endpoint.Query{}, err
	}

	tmpl, ok := endpoint.Lookup(intent.Template)
	if !ok {
		return endpoint.Query{}, fmt.Errorf("%w: model chose %q", endpoint.ErrNoTemplate, intent.Template)
	}

	q, err := endpoint.New(tmpl, t.user, intent.Categories, intent.StartDate, intent.EndDate)
	if err != nil {
		return endpoint.Query{}, fmt.Errorf("validating intent: %w", err)
	}
	t.logger.Debug("extracted intent",
		"question", truncate(question, 80),
		"template", tmpl.Name,
		"categories", len(q.Categories),
	)
	return q, nil
}

// CleanEndpoint reduces a model reply to its first non-empty line, without
// code fences, quotes or backticks.
func CleanEndpoint(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "```") {
			continue
		}
		line = strings.Trim(line, "`\"' ")
		if line != "" {
			return line
		}
	}
	return ""
}

// Intent is the structured answer requested in ModeIntent.
type Intent struct {
	Template   string
	Categories []string
	StartDate  string
	EndDate    string
}

type intentJSON struct {
	Template   string          `json:"template"`
	Categories json.RawMessage `json:"categories"`
	StartDate  string          `json:"start_date"`
	EndDate    string          `json:"end_date"`
}

// ParseIntent decodes an intent reply. Markdown fences and text around the
// JSON object are ignored, and categories may be a list or a single string.
func ParseIntent(reply string) (Intent, error) {
	body := stripFences(reply)
	if i, j := strings.IndexByte(body, '{'), strings.LastIndexByte(body, '}'); i >= 0 && j > i {
		body = body[i : j+1]
	}

	var raw intentJSON
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return Intent{}, fmt.Errorf("%w: %v (reply: %.200s)", ErrMalformedIntent, err, reply)
	}

	intent := Intent{
		Template:  raw.Template,
		StartDate: raw.StartDate,
		EndDate:   raw.EndDate,
	}
	if len(raw.Categories) > 0 {
		var list []string
		if err := json.Unmarshal(raw.Categories, &list); err != nil {
			var single string
			if json.Unmarshal(raw.Categories, &single) != nil {
				return Intent{}, fmt.Errorf("%w: categories must be strings", ErrMalformedIntent)
			}
			list = []string{single}
		}
		intent.Categories = list
	}
	return intent, nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
