// Package daemon wires configuration into a running dashboard server.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/projectcapital/capital/internal/plugins"
	"github.com/projectcapital/capital/internal/server"
	"github.com/projectcapital/capital/pkg/api"
	"github.com/projectcapital/capital/pkg/client"
	"github.com/projectcapital/capital/pkg/config"
	"github.com/projectcapital/capital/pkg/dashboard"
	"github.com/projectcapital/capital/pkg/render"
	"github.com/projectcapital/capital/pkg/spending"
	"github.com/projectcapital/capital/pkg/spending/postgres"
	"github.com/projectcapital/capital/pkg/translator"
)

// seed fixes the generated demo data so every start shows the same year.
const seed = 7

// Runner manages the dashboard server lifecycle.
type Runner struct {
	registry   *plugins.Registry
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a new runner. A nil httpClient gets one built from the
// configured timeout.
func New(registry *plugins.Registry, httpClient *http.Client, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		registry:   registry,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Components are the long-lived pieces built from a configuration.
type Components struct {
	Generator  api.TextGenerator
	Translator *translator.Translator
	Fetcher    *client.Fetcher
	Dashboard  dashboard.Config
	Spending   *spending.Handler

	closers []func()
}

// Close releases the spending store.
func (c *Components) Close() {
	for _, fn := range c.closers {
		fn()
	}
	c.closers = nil
}

// Build creates the generator, translator, fetcher and spending store for cfg.
// Callers must Close the result.
func (r *Runner) Build(ctx context.Context, cfg config.Config) (*Components, error) {
	mode, err := translator.ParseMode(cfg.TranslateMode)
	if err != nil {
		return nil, err
	}

	httpClient := r.httpClient
	if httpClient == nil {
		httpClient = client.New(cfg.Timeout())
	}

	providerCfg, err := cfg.ProviderConfig()
	if err != nil {
		return nil, err
	}
	gen, err := r.registry.Create(
		cfg.LLMProvider,
		httpClient,
		providerCfg,
		r.logger.With("component", "provider", "plugin", cfg.LLMProvider),
	)
	if err != nil {
		return nil, fmt.Errorf("creating provider: %w", err)
	}

	c := &Components{
		Generator:  gen,
		Translator: translator.New(gen, cfg.User, r.logger),
		Fetcher:    client.NewFetcher(httpClient, r.logger),
		Dashboard: dashboard.Config{
			User:       cfg.User,
			BackendURL: cfg.BackendURL,
			Mode:       mode,
		},
	}

	store, closeStore, err := r.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	c.closers = append(c.closers, closeStore)
	if store != nil {
		c.Spending = spending.NewHandler(store, cfg.User, r.logger)
	}
	return c, nil
}

// OpenStore opens the configured spending store and seeds it with demo data
// when it is empty. The store is nil when CAPITAL_SPENDING_STORE is off.
// Callers must call the returned close function.
func (r *Runner) OpenStore(ctx context.Context, cfg config.Config) (spending.Store, func(), error) {
	switch cfg.SpendingStore {
	case config.StoreOff:
		r.logger.Info("spending backend disabled", "backend", cfg.BackendURL)
		return nil, func() {}, nil

	case config.StorePostgres:
		store, err := postgres.New(postgres.Config{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Database: cfg.Database,
			User:     cfg.PostgresConfig.User,
			Password: cfg.Password,
			SSLMode:  cfg.SSLMode,
		}, r.logger)
		if err != nil {
			return nil, nil, fmt.Errorf("opening postgres store: %w", err)
		}

		seeded, err := store.SeedIfEmpty(ctx, cfg.User, spending.Seed(cfg.User, cfg.SeedYear, seed))
		if err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("seeding postgres store: %w", err)
		}
		r.logger.Info("spending store ready", "store", cfg.SpendingStore, "seeded", seeded)
		return store, store.Close, nil

	default:
		txs := spending.Seed(cfg.User, cfg.SeedYear, seed)
		r.logger.Info("spending store ready", "store", config.StoreMemory, "transactions", len(txs))
		return spending.NewMemoryStore(txs...), func() {}, nil
	}
}

// Run serves the dashboard with the given configuration.
// It blocks until the context is canceled or an error occurs.
func (r *Runner) Run(ctx context.Context, cfg config.Config) error {
	r.logger.Info("starting capital",
		"provider", cfg.LLMProvider,
		"mode", cfg.TranslateMode,
		"store", cfg.SpendingStore,
	)

	c, err := r.Build(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.Close()

	srv := r.Server(c, cfg)
	return srv.Run(ctx, cfg.Addr)
}

// Server creates the HTTP server for built components.
func (r *Runner) Server(c *Components, cfg config.Config) *server.Server {
	return server.New(server.Options{
		Translator:  c.Translator,
		Fetcher:     c.Fetcher,
		Dashboard:   c.Dashboard,
		Generator:   c.Generator,
		Spending:    c.Spending,
		CORSOrigins: cfg.CORSOrigins,
	}, r.logger)
}

// Ask answers a single question against the configured backend and returns
// the drawn chart.
func (r *Runner) Ask(ctx context.Context, c *Components, question string, size render.Size) (*dashboard.Result, error) {
	chart, err := render.NewSession(size)
	if err != nil {
		return nil, err
	}
	defer chart.Dispose()

	o := dashboard.New(chart, c.Translator, c.Fetcher, c.Dashboard, r.logger)
	return o.Submit(ctx, question)
}
