package spending

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectcapital/capital/pkg/api"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func tx(user, d string, c api.Category, amount string) Transaction {
	return Transaction{
		ID:       user + d + string(c) + amount,
		User:     user,
		Merchant: "m",
		Category: c,
		Date:     date(d),
		Amount:   decimal.RequireFromString(amount),
	}
}

func fixture() []Transaction {
	return []Transaction{
		tx("alice", "2027-01-02", api.Food, "-5"),
		tx("alice", "2027-01-01", api.Food, "-10"),
		tx("alice", "2027-01-01", api.Shopping, "-5"),
		tx("alice", "2027-01-01", api.Food, "2500"), // income is ignored
		tx("alice", "2027-01-03", api.Utilities, "-40"),
		tx("alice", "2026-12-31", api.Food, "-99"), // out of range
		tx("bob", "2027-01-01", api.Food, "-1000"),
		tx("alice", "2027-01-03", api.Shopping, "-2.50"),
	}
}

var janFilter = Filter{
	User:       "alice",
	Categories: []api.Category{api.Shopping, api.Food},
	Start:      date("2027-01-01"),
	End:        date("2027-01-31"),
}

func TestFilter_Matches(t *testing.T) {
	tests := []struct {
		name string
		tx   Transaction
		want bool
	}{
		{"spending in range", tx("alice", "2027-01-31", api.Food, "-1"), true},
		{"first day inclusive", tx("alice", "2027-01-01", api.Shopping, "-1"), true},
		{"income", tx("alice", "2027-01-05", api.Food, "1"), false},
		{"zero", tx("alice", "2027-01-05", api.Food, "0"), false},
		{"other user", tx("bob", "2027-01-05", api.Food, "-1"), false},
		{"other category", tx("alice", "2027-01-05", api.Utilities, "-1"), false},
		{"after range", tx("alice", "2027-02-01", api.Food, "-1"), false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, janFilter.Matches(tc.tx))
		})
	}
}

func TestMemoryStore_CategoryTotals(t *testing.T) {
	s := NewMemoryStore(fixture()...)

	got, err := s.CategoryTotals(context.Background(), janFilter)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, api.Shopping, got[0].Category)
	assert.Equal(t, "-7.5", got[0].Total.String())
	assert.Equal(t, api.Food, got[1].Category)
	assert.Equal(t, "-15", got[1].Total.String())
}

func TestMemoryStore_CategoryCumulative(t *testing.T) {
	s := NewMemoryStore(fixture()...)

	got, err := s.CategoryCumulative(context.Background(), janFilter)
	require.NoError(t, err)
	require.Len(t, got, 3)

	want := [][2]string{
		{"-5", "-10"},
		{"-5", "-15"},
		{"-7.5", "-15"},
	}
	for i, row := range got {
		require.Len(t, row.Totals, 2)
		assert.Equal(t, api.Shopping, row.Totals[0].Category)
		assert.Equal(t, api.Food, row.Totals[1].Category)
		assert.Equal(t, want[i][0], row.Totals[0].Total.String(), "row %d shopping", i)
		assert.Equal(t, want[i][1], row.Totals[1].Total.String(), "row %d food", i)
	}
	assert.Equal(t, date("2027-01-03"), got[2].Date)
}

func TestMemoryStore_CombinedCumulative(t *testing.T) {
	s := NewMemoryStore(fixture()...)

	got, err := s.CombinedCumulative(context.Background(), janFilter)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "-15", got[0].Total.String())
	assert.Equal(t, "-20", got[1].Total.String())
	assert.Equal(t, "-22.5", got[2].Total.String())
}

func TestMemoryStore_Transactions(t *testing.T) {
	s := NewMemoryStore(fixture()...)
	s.Add(tx("alice", "2027-03-01", api.Housing, "-1850"))

	got, err := s.Transactions(context.Background(), "alice", 3)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, date("2027-03-01"), got[0].Date)
	assert.False(t, got[1].Date.Before(got[2].Date))

	none, err := s.Transactions(context.Background(), "nobody", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSeed(t *testing.T) {
	a := Seed("demo", 2027, 7)
	b := Seed("demo", 2027, 7)
	require.NotEmpty(t, a)
	assert.Equal(t, a, b, "same seed must produce the same ledger")

	seen := make(map[api.Category]bool)
	for _, txn := range a {
		seen[txn.Category] = true
	}
	for _, c := range api.Categories {
		assert.True(t, seen[c], "no transactions for %s", c)
	}

	s := NewMemoryStore(a...)
	totals, err := s.CategoryTotals(context.Background(), Filter{
		User:       "demo",
		Categories: api.Categories,
		Start:      date("2027-01-01"),
		End:        date("2027-12-31"),
	})
	require.NoError(t, err)
	for _, total := range totals {
		assert.True(t, total.Total.IsNegative(), "%s total %s", total.Category, total.Total)
	}
}

func TestMemoryStore_TransactionsSameDayOrder(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Insert(context.Background(), []Transaction{
		{ID: "a-1", User: "alice", Date: date("2027-02-01")},
		{ID: "a-2", User: "alice", Date: date("2027-02-01")},
		{ID: "a-3", User: "alice", Date: date("2027-02-01")},
		{ID: "a-0", User: "alice", Date: date("2027-02-02")},
	})
	require.NoError(t, err)

	got, err := s.Transactions(context.Background(), "alice", 0)
	require.NoError(t, err)
	var ids []string
	for _, txn := range got {
		ids = append(ids, txn.ID)
	}
	assert.Equal(t, []string{"a-0", "a-3", "a-2", "a-1"}, ids)
}

func TestSeed_TwoUsersShareAStore(t *testing.T) {
	ctx := context.Background()
	alice := Seed("alice", 2027, 7)
	bob := Seed("bob", 2027, 7)
	assert.NotEqual(t, alice[0].ID, bob[0].ID)

	s := NewMemoryStore(alice...)
	n, err := s.Insert(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, len(bob), n)

	got, err := s.Transactions(ctx, "bob", 0)
	require.NoError(t, err)
	assert.Len(t, got, len(bob))

	// Replaying the same ledger adds nothing.
	n, err = s.Insert(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemoryStore_InsertKeysOnUserAndID(t *testing.T) {
	s := NewMemoryStore(Transaction{ID: "x", User: "alice", Date: date("2027-01-01")})
	n, err := s.Insert(context.Background(), []Transaction{
		{ID: "x", User: "alice", Date: date("2027-01-01")},
		{ID: "x", User: "bob", Date: date("2027-01-01")},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := s.Transactions(context.Background(), "bob", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "x", got[0].ID)
}
