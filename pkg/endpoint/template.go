// Package endpoint holds the catalogue of backend spending queries.
//
// The three templates are defined once here. The translator's prompt, the
// classifier's match table and the URL builder are all derived from them, so a
// template change cannot leave the prompt and the classifier out of step.
package endpoint

import (
	"fmt"
	"strings"
	"time"

	"github.com/projectcapital/capital/pkg/api"
)

// DateLayout is the only accepted date format for start_date and end_date.
const DateLayout = "2006-01-02"

// Default date range used when the question names no dates.
var (
	DefaultStart = time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)
	DefaultEnd   = time.Date(2027, time.December, 31, 0, 0, 0, 0, time.UTC)
)

// Template is one fixed backend query shape.
type Template struct {
	// Name identifies the template in structured model output.
	Name string
	// Path is the fixed path below the /<user> segment.
	Path string
	// Kind is the chart drawn for this template's response.
	Kind api.ChartKind
	// Description tells the model when to pick this template.
	Description string
	// Returns shows the response shape.
	Returns string
}

// The backend spells "cumulative" as "cummulative"; the paths must match it.
var (
	CategoryTotals = Template{
		Name:        "category_totals",
		Path:        "/spending/selectcategories",
		Kind:        api.ChartPie,
		Description: "total spent in each requested category over the date range (breakdowns, shares, comparisons)",
		Returns:     `[{"category": "<category>", "total": <number>}]`,
	}
	CategoryCumulative = Template{
		Name:        "category_cumulative",
		Path:        "/spending/category/selectcategories/cummulative",
		Kind:        api.ChartStackedBar,
		Description: "running total per day, kept separate for each requested category",
		Returns:     `[{"date": "YYYY-MM-DD", "<category>": <number>, ...}]`,
	}
	CombinedCumulative = Template{
		Name:        "combined_cumulative",
		Path:        "/spending/category/cummulative",
		Kind:        api.ChartLine,
		Description: "running total per day of all requested categories combined (trends over time)",
		Returns:     `[{"date": "YYYY-MM-DD", "cummulative_total": <number>}]`,
	}
)

// Templates lists the catalogue in classifier precedence order.
var Templates = []Template{CategoryTotals, CategoryCumulative, CombinedCumulative}

// Lookup finds a template by name.
func Lookup(name string) (Template, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, t := range Templates {
		if t.Name == name {
			return t, true
		}
	}
	return Template{}, false
}

// Pattern renders the template as the endpoint grammar shown to the model.
func (t Template) Pattern() string {
	return fmt.Sprintf("/<user>%s?categories=<category>[&categories=<category>...]&start_date=<YYYY-MM-DD>&end_date=<YYYY-MM-DD>", t.Path)
}

// Describe writes the catalogue section of the translator prompt: every
// template, the parameter grammar, the legal categories and the default dates.
func Describe(user string) string {
	var b strings.Builder

	b.WriteString("The available APIs are\n")
	for i, t := range Templates {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, t.Pattern())
		fmt.Fprintf(&b, "     - name: %s\n", t.Name)
		fmt.Fprintf(&b, "     - use for: %s\n", t.Description)
		fmt.Fprintf(&b, "     - returns: %s\n", t.Returns)
	}

	b.WriteString("\nParameters:\n")
	fmt.Fprintf(&b, "  - <user> is the currently logged on user: %s\n", user)
	fmt.Fprintf(&b, "  - <category> is one of %s; repeat the categories parameter once per category\n", quotedCategories())
	fmt.Fprintf(&b, "  - start_date and end_date use YYYY-MM-DD; when the question names no dates use start_date=%s and end_date=%s\n",
		DefaultStart.Format(DateLayout), DefaultEnd.Format(DateLayout))

	return b.String()
}

func quotedCategories() string {
	quoted := make([]string, len(api.Categories))
	for i, c := range api.Categories {
		quoted[i] = fmt.Sprintf("%q", string(c))
	}
	return strings.Join(quoted, ", ")
}
