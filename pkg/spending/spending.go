// Package spending serves the three spending queries the dashboard consumes,
// computed over a store of transactions.
//
// Amounts are signed: spending is negative and income positive. Only
// negative amounts count toward the query results, so totals come out
// negative the way the dashboard expects.
package spending

import (
	"context"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/projectcapital/capital/pkg/api"
	"github.com/projectcapital/capital/pkg/endpoint"
)

// Transaction is one ledger entry.
type Transaction struct {
	ID       string          `json:"id"`
	User     string          `json:"user"`
	Merchant string          `json:"merchant"`
	Category api.Category    `json:"category"`
	Date     time.Time       `json:"date"`
	Amount   decimal.Decimal `json:"amount"`
}

// Filter selects the transactions a query aggregates. Start and End are
// inclusive calendar days.
type Filter struct {
	User       string
	Categories []api.Category
	Start      time.Time
	End        time.Time
}

// FilterFor returns the filter a validated query describes.
func FilterFor(q endpoint.Query) Filter {
	return Filter{
		User:       q.User,
		Categories: q.Categories,
		Start:      q.Start,
		End:        q.End,
	}
}

// Matches reports whether t is spending selected by f.
func (f Filter) Matches(t Transaction) bool {
	if t.User != f.User || !t.Amount.IsNegative() {
		return false
	}
	if !slices.Contains(f.Categories, t.Category) {
		return false
	}
	d := day(t.Date)
	return !d.Before(day(f.Start)) && !d.After(day(f.End))
}

// CategoryTotal is the summed spending of one category.
type CategoryTotal struct {
	Category api.Category
	Total    decimal.Decimal
}

// CategoryDay holds running totals per category at the end of one day, in
// the filter's category order.
type CategoryDay struct {
	Date   time.Time
	Totals []CategoryTotal
}

// DayTotal is the running total across categories at the end of one day.
type DayTotal struct {
	Date  time.Time
	Total decimal.Decimal
}

// Store answers spending queries.
type Store interface {
	// CategoryTotals sums spending per category, in filter order. Categories
	// with no spending in range are omitted.
	CategoryTotals(ctx context.Context, f Filter) ([]CategoryTotal, error)
	// CategoryCumulative returns per-category running totals for every day
	// in range with spending.
	CategoryCumulative(ctx context.Context, f Filter) ([]CategoryDay, error)
	// CombinedCumulative returns the running total of all selected
	// categories for every day in range with spending.
	CombinedCumulative(ctx context.Context, f Filter) ([]DayTotal, error)
	// Transactions returns the user's most recent transactions, newest first.
	Transactions(ctx context.Context, user string, limit int) ([]Transaction, error)
}

// Inserter is a store that accepts new transactions. Transactions are keyed
// by user and ID; Insert skips keys already stored and returns how many
// transactions it added.
type Inserter interface {
	Insert(ctx context.Context, txs []Transaction) (int, error)
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
