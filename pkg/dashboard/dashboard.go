// Package dashboard runs one question through translate, classify, fetch,
// normalize and render.
package dashboard

//go:generate mockgen -destination=mock_translator_test.go -package=dashboard . Translator
//go:generate mockgen -destination=mock_fetcher_test.go -package=dashboard github.com/projectcapital/capital/pkg/api Fetcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/projectcapital/capital/pkg/api"
	"github.com/projectcapital/capital/pkg/client"
	"github.com/projectcapital/capital/pkg/endpoint"
	"github.com/projectcapital/capital/pkg/normalize"
	"github.com/projectcapital/capital/pkg/render"
	"github.com/projectcapital/capital/pkg/translator"
)

// Translator turns a question into an endpoint string or a validated query.
type Translator interface {
	Translate(ctx context.Context, question string) (string, error)
	Extract(ctx context.Context, question string) (endpoint.Query, error)
}

// Config holds the orchestrator settings.
type Config struct {
	// User replaces whatever user segment the model produced.
	User string
	// BackendURL is the base every fetch URL is rebuilt against.
	BackendURL string
	Mode       translator.Mode
}

// Result describes a successful submission.
type Result struct {
	Kind     api.ChartKind `json:"kind"`
	Endpoint string        `json:"endpoint"`
	Points   int           `json:"points"`
	SVG      string        `json:"svg"`
}

// Orchestrator owns the in-flight state of one chart session.
type Orchestrator struct {
	session    *render.Session
	translator Translator
	fetcher    api.Fetcher
	cfg        Config
	logger     *slog.Logger

	state atomic.Int32

	mu      sync.Mutex
	lastErr error
}

// New creates an orchestrator drawing into session.
func New(session *render.Session, tr Translator, fetcher api.Fetcher, cfg Config, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mode == "" {
		cfg.Mode = translator.ModeIntent
	}
	return &Orchestrator{
		session:    session,
		translator: tr,
		fetcher:    fetcher,
		cfg:        cfg,
		logger:     logger.With("component", "dashboard"),
	}
}

// Session returns the chart session the orchestrator draws into.
func (o *Orchestrator) Session() *render.Session {
	return o.session
}

// State reports whether a submission is in flight.
func (o *Orchestrator) State() api.InFlightState {
	return api.InFlightState(o.state.Load())
}

// LastError returns the failure of the most recent submission, or nil if it
// succeeded.
func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// Submit answers one question. A blank question is ignored and returns
// (nil, nil). While a submission is in flight further calls return ErrBusy.
// On failure the previous chart is left in place.
func (o *Orchestrator) Submit(ctx context.Context, question string) (*Result, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, nil
	}
	if !o.state.CompareAndSwap(int32(api.Idle), int32(api.Sending)) {
		return nil, ErrBusy
	}
	defer o.state.Store(int32(api.Idle))

	start := time.Now()
	res, err := o.run(ctx, question)

	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()

	if err != nil {
		o.logger.Warn("question failed", "kind", KindOf(err), "error", err, "duration", time.Since(start))
		return nil, err
	}
	o.logger.Info("question answered",
		"chart", res.Kind,
		"endpoint", res.Endpoint,
		"points", res.Points,
		"duration", time.Since(start),
	)
	return res, nil
}

func (o *Orchestrator) run(ctx context.Context, question string) (*Result, error) {
	q, err := o.query(ctx, question)
	if err != nil {
		return nil, err
	}
	if o.cfg.User != "" {
		q.User = o.cfg.User
	}

	url, err := q.URL(o.cfg.BackendURL)
	if err != nil {
		return nil, &Error{Kind: NetworkError, Endpoint: q.Path(), Err: err}
	}

	records, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		var decErr *client.DecodeError
		if errors.As(err, &decErr) {
			return nil, &Error{Kind: DecodeError, Endpoint: url, Err: err}
		}
		return nil, &Error{Kind: NetworkError, Endpoint: url, Err: err}
	}

	kind := q.Kind()
	points, err := normalize.Normalize(kind, records)
	if err != nil {
		return nil, &Error{Kind: DecodeError, Endpoint: url, Err: err}
	}

	if err := o.session.Update(kind, points); err != nil {
		return nil, &Error{Kind: RenderError, Endpoint: url, Err: err}
	}
	svg, err := o.session.SVG()
	if err != nil {
		return nil, &Error{Kind: RenderError, Endpoint: url, Err: err}
	}

	return &Result{Kind: kind, Endpoint: url, Points: len(points), SVG: svg}, nil
}

// query runs the translator in the configured mode and validates its output.
func (o *Orchestrator) query(ctx context.Context, question string) (endpoint.Query, error) {
	if o.cfg.Mode == translator.ModeIntent {
		q, err := o.translator.Extract(ctx, question)
		if errors.Is(err, endpoint.ErrNoTemplate) {
			return endpoint.Query{}, &Error{Kind: ClassificationMiss, Err: err}
		}
		if err != nil {
			return endpoint.Query{}, &Error{Kind: TranslationError, Err: err}
		}
		return q, nil
	}

	line, err := o.translator.Translate(ctx, question)
	if err != nil {
		return endpoint.Query{}, &Error{Kind: TranslationError, Err: err}
	}
	if endpoint.Classify(line) == api.ChartNone {
		return endpoint.Query{}, &Error{Kind: ClassificationMiss, Endpoint: line, Err: endpoint.ErrNoTemplate}
	}
	q, err := endpoint.Parse(line)
	if err != nil {
		return endpoint.Query{}, &Error{Kind: TranslationError, Endpoint: line, Err: fmt.Errorf("validating endpoint: %w", err)}
	}
	return q, nil
}
