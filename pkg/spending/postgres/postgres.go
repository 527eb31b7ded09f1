// Package postgres provides a PostgreSQL spending store.
package postgres

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/projectcapital/capital/pkg/api"
	"github.com/projectcapital/capital/pkg/spending"
)

//go:embed 001_create_transactions.sql
var migrationSQL string

// Config holds the PostgreSQL store configuration.
type Config struct {
	Host     string
	Port     int
	Database string
	User     string
	Password string
	SSLMode  string

	// DSN, when set, is used instead of the individual fields.
	DSN string

	// MaxPoolSize is the maximum number of connections in the pool.
	MaxPoolSize int
}

// Store answers spending queries from PostgreSQL.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

var (
	_ spending.Store    = (*Store)(nil)
	_ spending.Inserter = (*Store)(nil)
)

// New connects, verifies the connection and runs migrations.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "postgres")

	if cfg.Port == 0 {
		cfg.Port = 5432
	}
	if cfg.SSLMode == "" {
		cfg.SSLMode = "disable"
	}
	if cfg.MaxPoolSize == 0 {
		cfg.MaxPoolSize = 10
	}

	connStr := cfg.DSN
	if connStr == "" {
		connStr = fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
		)
	}

	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxPoolSize)
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	logger.Info("connected to PostgreSQL",
		"host", poolConfig.ConnConfig.Host,
		"port", poolConfig.ConnConfig.Port,
		"database", poolConfig.ConnConfig.Database,
	)

	s := &Store{pool: pool, logger: logger}
	if err := s.runMigrations(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) runMigrations(ctx context.Context) error {
	s.logger.Info("running database migrations")
	if _, err := s.pool.Exec(ctx, migrationSQL); err != nil {
		return fmt.Errorf("executing migration: %w", err)
	}
	s.logger.Info("migrations completed successfully")
	return nil
}

// Insert stores transactions, skipping (user, id) pairs that already exist,
// and returns how many rows were added.
func (s *Store) Insert(ctx context.Context, txs []spending.Transaction) (int, error) {
	if len(txs) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, t := range txs {
		batch.Queue(`
			INSERT INTO transactions (id, user_name, merchant, category, txn_date, amount)
			VALUES ($1, $2, $3, $4, $5, $6::numeric)
			ON CONFLICT DO NOTHING
		`, t.ID, t.User, t.Merchant, string(t.Category), t.Date, t.Amount.String())
	}

	var inserted int64
	results := tx.SendBatch(ctx, batch)
	for i := range txs {
		tag, err := results.Exec()
		if err != nil {
			results.Close()
			return 0, fmt.Errorf("inserting transaction %d: %w", i, err)
		}
		inserted += tag.RowsAffected()
	}
	if err := results.Close(); err != nil {
		return 0, fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("committing transaction: %w", err)
	}
	s.logger.Info("inserted transactions", "count", inserted, "skipped", int64(len(txs))-inserted)
	return int(inserted), nil
}

// SeedIfEmpty inserts txs when user has no transactions yet. It returns the
// number of rows inserted, zero when the user already had data.
func (s *Store) SeedIfEmpty(ctx context.Context, user string, txs []spending.Transaction) (int, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE user_name = $1)`, user,
	).Scan(&exists); err != nil {
		return 0, fmt.Errorf("checking for existing transactions: %w", err)
	}
	if exists {
		return 0, nil
	}
	return s.Insert(ctx, txs)
}

// spendingWhere selects outflows for user $1 in categories $2 between $3 and $4.
const spendingWhere = `
	user_name = $1
	AND category = ANY($2::text[])
	AND amount < 0
	AND txn_date BETWEEN $3 AND $4`

func filterArgs(f spending.Filter) []any {
	categories := make([]string, len(f.Categories))
	for i, c := range f.Categories {
		categories[i] = string(c)
	}
	return []any{f.User, categories, f.Start, f.End}
}

// CategoryTotals implements spending.Store.
func (s *Store) CategoryTotals(ctx context.Context, f spending.Filter) ([]spending.CategoryTotal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT category, SUM(amount)::text
		FROM transactions
		WHERE `+spendingWhere+`
		GROUP BY category
		ORDER BY array_position($2::text[], category)
	`, filterArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("querying category totals: %w", err)
	}
	defer rows.Close()

	out := make([]spending.CategoryTotal, 0, len(f.Categories))
	for rows.Next() {
		var category, total string
		if err := rows.Scan(&category, &total); err != nil {
			return nil, fmt.Errorf("scanning category total: %w", err)
		}
		d, err := decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("parsing total %q: %w", total, err)
		}
		out = append(out, spending.CategoryTotal{Category: api.Category(category), Total: d})
	}
	return out, rows.Err()
}

// CategoryCumulative implements spending.Store.
func (s *Store) CategoryCumulative(ctx context.Context, f spending.Filter) ([]spending.CategoryDay, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT txn_date, category, SUM(amount)::text
		FROM transactions
		WHERE `+spendingWhere+`
		GROUP BY txn_date, category
		ORDER BY txn_date, array_position($2::text[], category)
	`, filterArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("querying daily category spending: %w", err)
	}
	defer rows.Close()

	var daily []spending.DailyAmount
	for rows.Next() {
		var (
			date     time.Time
			category string
			amount   string
		)
		if err := rows.Scan(&date, &category, &amount); err != nil {
			return nil, fmt.Errorf("scanning daily spending: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing amount %q: %w", amount, err)
		}
		daily = append(daily, spending.DailyAmount{Date: date, Category: api.Category(category), Amount: d})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return spending.CumulateByCategory(daily, f.Categories), nil
}

// CombinedCumulative implements spending.Store.
func (s *Store) CombinedCumulative(ctx context.Context, f spending.Filter) ([]spending.DayTotal, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT txn_date, (SUM(SUM(amount)) OVER (ORDER BY txn_date))::text
		FROM transactions
		WHERE `+spendingWhere+`
		GROUP BY txn_date
		ORDER BY txn_date
	`, filterArgs(f)...)
	if err != nil {
		return nil, fmt.Errorf("querying cumulative spending: %w", err)
	}
	defer rows.Close()

	var out []spending.DayTotal
	for rows.Next() {
		var (
			date  time.Time
			total string
		)
		if err := rows.Scan(&date, &total); err != nil {
			return nil, fmt.Errorf("scanning cumulative spending: %w", err)
		}
		d, err := decimal.NewFromString(total)
		if err != nil {
			return nil, fmt.Errorf("parsing total %q: %w", total, err)
		}
		out = append(out, spending.DayTotal{Date: date, Total: d})
	}
	return out, rows.Err()
}

// Transactions implements spending.Store.
func (s *Store) Transactions(ctx context.Context, user string, limit int) ([]spending.Transaction, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, user_name, merchant, category, txn_date, amount::text
		FROM transactions
		WHERE user_name = $1
		ORDER BY txn_date DESC, id DESC
		LIMIT $2
	`, user, lim)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var out []spending.Transaction
	for rows.Next() {
		var (
			t        spending.Transaction
			category string
			amount   string
		)
		if err := rows.Scan(&t.ID, &t.User, &t.Merchant, &category, &t.Date, &amount); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("parsing amount %q: %w", amount, err)
		}
		t.Category = api.Category(category)
		t.Amount = d
		out = append(out, t)
	}
	return out, rows.Err()
}

// Close closes the database connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
		s.logger.Info("closed PostgreSQL connection pool")
	}
}
