package spending

import (
	"context"
	"slices"
	"strings"
	"sync"
)

// MemoryStore keeps transactions in memory.
type MemoryStore struct {
	mu  sync.RWMutex
	txs []Transaction
}

var (
	_ Store    = (*MemoryStore)(nil)
	_ Inserter = (*MemoryStore)(nil)
)

// NewMemoryStore creates a store holding a copy of txs.
func NewMemoryStore(txs ...Transaction) *MemoryStore {
	return &MemoryStore{txs: slices.Clone(txs)}
}

// Add appends transactions.
func (m *MemoryStore) Add(txs ...Transaction) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txs = append(m.txs, txs...)
}

type txKey struct{ user, id string }

// Insert implements Inserter. Transactions whose user and ID are already
// stored are skipped.
func (m *MemoryStore) Insert(_ context.Context, txs []Transaction) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[txKey]bool, len(m.txs))
	for _, t := range m.txs {
		seen[txKey{t.User, t.ID}] = true
	}
	inserted := 0
	for _, t := range txs {
		k := txKey{t.User, t.ID}
		if t.ID != "" && seen[k] {
			continue
		}
		seen[k] = true
		m.txs = append(m.txs, t)
		inserted++
	}
	return inserted, nil
}

func (m *MemoryStore) daily(f Filter) []DailyAmount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Daily(m.txs, f)
}

// CategoryTotals implements Store.
func (m *MemoryStore) CategoryTotals(_ context.Context, f Filter) ([]CategoryTotal, error) {
	return Totals(m.daily(f), f.Categories), nil
}

// CategoryCumulative implements Store.
func (m *MemoryStore) CategoryCumulative(_ context.Context, f Filter) ([]CategoryDay, error) {
	return CumulateByCategory(m.daily(f), f.Categories), nil
}

// CombinedCumulative implements Store.
func (m *MemoryStore) CombinedCumulative(_ context.Context, f Filter) ([]DayTotal, error) {
	return Cumulate(m.daily(f)), nil
}

// Transactions implements Store.
func (m *MemoryStore) Transactions(_ context.Context, user string, limit int) ([]Transaction, error) {
	m.mu.RLock()
	var out []Transaction
	for _, t := range m.txs {
		if t.User == user {
			out = append(out, t)
		}
	}
	m.mu.RUnlock()

	// Same order as the postgres store: newest day first, then ID descending.
	slices.SortStableFunc(out, func(a, b Transaction) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
