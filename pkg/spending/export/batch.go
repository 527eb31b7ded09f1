package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/projectcapital/capital/pkg/spending"
)

// DefaultBatchSize is the default number of transactions per insert.
const DefaultBatchSize = 500

// Flusher is called with each full batch and with the final partial one. It
// returns how many of txs were stored.
type Flusher func(ctx context.Context, txs []spending.Transaction) (int, error)

// Batcher buffers transactions and flushes them in batches.
type Batcher struct {
	buffer  []spending.Transaction
	size    int
	flusher Flusher
	flushed int
	stored  int
	logger  *slog.Logger
}

// NewBatcher creates a batcher. A size of zero or less uses DefaultBatchSize.
func NewBatcher(flusher Flusher, size int, logger *slog.Logger) *Batcher {
	if size <= 0 {
		size = DefaultBatchSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batcher{
		buffer:  make([]spending.Transaction, 0, size),
		size:    size,
		flusher: flusher,
		logger:  logger,
	}
}

// Add buffers t and flushes when the batch is full.
func (b *Batcher) Add(ctx context.Context, t spending.Transaction) error {
	b.buffer = append(b.buffer, t)
	if len(b.buffer) >= b.size {
		return b.Flush(ctx)
	}
	return nil
}

// Flush writes whatever is buffered.
func (b *Batcher) Flush(ctx context.Context) error {
	if len(b.buffer) == 0 {
		return nil
	}

	batch := make([]spending.Transaction, len(b.buffer))
	copy(batch, b.buffer)
	b.buffer = b.buffer[:0]

	n, err := b.flusher(ctx, batch)
	if err != nil {
		return err
	}
	b.flushed += len(batch)
	b.stored += n
	b.logger.Debug("flushed transactions", "count", len(batch), "stored", n, "total", b.flushed)
	return nil
}

// Flushed returns how many transactions have been handed to the flusher.
func (b *Batcher) Flushed() int {
	return b.flushed
}

// Stored returns how many flushed transactions the flusher reported as new.
func (b *Batcher) Stored() int {
	return b.stored
}

// Import streams CSV transactions for user from r into dst in batches and
// returns how many rows dst actually added. Rows already stored are skipped
// by dst and not counted. Rows already written stay written when a later row
// fails.
func Import(ctx context.Context, r io.Reader, user string, dst spending.Inserter, batchSize int, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "import")

	cr, err := NewCSVReader(r, user)
	if err != nil {
		return 0, err
	}
	b := NewBatcher(dst.Insert, batchSize, logger)

	for {
		if err := ctx.Err(); err != nil {
			return b.Stored(), err
		}
		t, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return b.Stored(), err
		}
		if err := b.Add(ctx, t); err != nil {
			return b.Stored(), fmt.Errorf("inserting batch: %w", err)
		}
	}
	if err := b.Flush(ctx); err != nil {
		return b.Stored(), fmt.Errorf("inserting batch: %w", err)
	}

	logger.Info("imported transactions", "user", user, "read", b.Flushed(), "inserted", b.Stored())
	return b.Stored(), nil
}
