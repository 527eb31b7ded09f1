package spending

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"

	"github.com/projectcapital/capital/pkg/api"
)

type merchant struct {
	name     string
	category api.Category
	// amount range in cents, both negative for spending
	lo, hi int64
	// chance of appearing on a given day, in percent
	daily int
}

var merchants = []merchant{
	{"Starbucks", api.Food, -850, -375, 35},
	{"Acme Grocery", api.Food, -14500, -2200, 15},
	{"Chipotle", api.Food, -2400, -1100, 8},
	{"Netflix Cinema Club", api.Entertainment, -3200, -1200, 4},
	{"Uber", api.Transportation, -4800, -900, 12},
	{"Shell", api.Transportation, -7200, -3500, 5},
	{"Apple", api.Shopping, -19900, -99, 3},
	{"Target", api.Shopping, -9800, -1500, 6},
	{"Post Office", api.Miscellaneous, -2500, -300, 3},
	{"Bookshop", api.Education, -6500, -1500, 2},
	{"CVS Pharmacy", api.Healthcare, -4500, -600, 4},
}

// Seed generates a deterministic year of mock transactions for user.
// Monthly bills and paychecks land on fixed days; everyday merchants appear
// at random with the same sequence for the same seed.
func Seed(user string, year int, seed uint64) []Transaction {
	rng := rand.New(rand.NewPCG(seed, uint64(year)))
	var txs []Transaction
	add := func(date time.Time, name string, c api.Category, cents int64) {
		txs = append(txs, Transaction{
			ID:       fmt.Sprintf("%s-%s-%04d", user, date.Format("20060102"), len(txs)),
			User:     user,
			Merchant: name,
			Category: c,
			Date:     date,
			Amount:   decimal.New(cents, -2),
		})
	}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Year() == year; d = d.AddDate(0, 0, 1) {
		switch d.Day() {
		case 1:
			add(d, "Landlord", api.Housing, -185000)
			add(d, "Payroll", api.Miscellaneous, 250000)
		case 5:
			add(d, "Interest", api.Miscellaneous, 321)
		case 12:
			add(d, "Electric Co.", api.Utilities, -(7000 + rng.Int64N(4000)))
		case 15:
			add(d, "Payroll", api.Miscellaneous, 250000)
			add(d, "City Water", api.Utilities, -(3000 + rng.Int64N(1500)))
		case 20:
			add(d, "Streaming Plus", api.Entertainment, -1599)
		case 25:
			if d.Month()%3 == 1 {
				add(d, "Online Courses", api.Education, -4900)
			}
		}

		for _, m := range merchants {
			if rng.IntN(100) < m.daily {
				add(d, m.name, m.category, m.lo+rng.Int64N(m.hi-m.lo+1))
			}
		}
	}
	return txs
}
