package spending

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/projectcapital/capital/pkg/api"
)

// DailyAmount is the spending of one category on one day.
type DailyAmount struct {
	Date     time.Time
	Category api.Category
	Amount   decimal.Decimal
}

// Daily sums the transactions selected by f per day and category, ordered by
// date and then by filter category order.
func Daily(txs []Transaction, f Filter) []DailyAmount {
	type key struct {
		date     time.Time
		category api.Category
	}
	sums := make(map[key]decimal.Decimal)
	for _, t := range txs {
		if !f.Matches(t) {
			continue
		}
		k := key{day(t.Date), t.Category}
		sums[k] = sums[k].Add(t.Amount)
	}

	out := make([]DailyAmount, 0, len(sums))
	for k, v := range sums {
		out = append(out, DailyAmount{Date: k.date, Category: k.category, Amount: v})
	}
	rank := categoryRank(f.Categories)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return rank[out[i].Category] < rank[out[j].Category]
	})
	return out
}

// Totals folds daily amounts into one total per category, in filter order.
func Totals(daily []DailyAmount, categories []api.Category) []CategoryTotal {
	sums := make(map[api.Category]decimal.Decimal)
	for _, d := range daily {
		sums[d.Category] = sums[d.Category].Add(d.Amount)
	}
	out := make([]CategoryTotal, 0, len(sums))
	for _, c := range categories {
		if total, ok := sums[c]; ok {
			out = append(out, CategoryTotal{Category: c, Total: total})
		}
	}
	return out
}

// CumulateByCategory turns date-ordered daily amounts into running totals.
// Every row carries all categories, so a category without spending yet
// reports zero.
func CumulateByCategory(daily []DailyAmount, categories []api.Category) []CategoryDay {
	running := make(map[api.Category]decimal.Decimal, len(categories))
	var out []CategoryDay
	for i := 0; i < len(daily); {
		date := daily[i].Date
		for ; i < len(daily) && daily[i].Date.Equal(date); i++ {
			running[daily[i].Category] = running[daily[i].Category].Add(daily[i].Amount)
		}
		row := CategoryDay{Date: date, Totals: make([]CategoryTotal, len(categories))}
		for j, c := range categories {
			row.Totals[j] = CategoryTotal{Category: c, Total: running[c]}
		}
		out = append(out, row)
	}
	return out
}

// Cumulate turns date-ordered daily amounts into one running total.
func Cumulate(daily []DailyAmount) []DayTotal {
	var out []DayTotal
	running := decimal.Zero
	for _, d := range daily {
		running = running.Add(d.Amount)
		if n := len(out); n > 0 && out[n-1].Date.Equal(d.Date) {
			out[n-1].Total = running
			continue
		}
		out = append(out, DayTotal{Date: d.Date, Total: running})
	}
	return out
}

func categoryRank(categories []api.Category) map[api.Category]int {
	rank := make(map[api.Category]int, len(categories))
	for i, c := range categories {
		rank[c] = i
	}
	return rank
}
