// Package api defines the core interfaces and data structures for the dashboard.
package api

import (
	"context"
	"fmt"
	"strings"
)

// ChartKind selects which renderer draws a dataset.
type ChartKind int

const (
	// ChartNone means the endpoint matched no template; nothing is drawn.
	ChartNone ChartKind = iota
	// ChartPie draws category totals as sectors.
	ChartPie
	// ChartLine draws a single cumulative series over time.
	ChartLine
	// ChartStackedBar draws per-day totals stacked by category.
	ChartStackedBar
)

// String returns the wire name of the kind.
func (k ChartKind) String() string {
	switch k {
	case ChartPie:
		return "pie"
	case ChartLine:
		return "line"
	case ChartStackedBar:
		return "stacked-bar"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ChartKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ChartKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "pie":
		*k = ChartPie
	case "line":
		*k = ChartLine
	case "stacked-bar", "stacked_bar":
		*k = ChartStackedBar
	case "none", "":
		*k = ChartNone
	default:
		return fmt.Errorf("unknown chart kind %q", b)
	}
	return nil
}

// Category is one of the nine spending categories the backend understands.
type Category string

// Spending categories, in the order they are presented to the language model.
const (
	Food           Category = "food"
	Entertainment  Category = "entertainment"
	Utilities      Category = "utilities"
	Transportation Category = "transportation"
	Shopping       Category = "shopping"
	Miscellaneous  Category = "miscellaneous"
	Housing        Category = "housing"
	Education      Category = "education"
	Healthcare     Category = "healthcare"
)

// Categories lists every legal category token.
var Categories = []Category{
	Food, Entertainment, Utilities, Transportation, Shopping,
	Miscellaneous, Housing, Education, Healthcare,
}

// ParseCategory returns the category for s, ignoring case and surrounding space.
func ParseCategory(s string) (Category, bool) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Categories {
		if c == known {
			return c, true
		}
	}
	return "", false
}

// ChartPoint is the normalized unit a renderer consumes.
// Pie points use Category, line points use Date, stacked-bar points use Date and Series.
// Magnitude is the negated backend value; renderers draw its absolute value.
type ChartPoint struct {
	Category  string  `json:"category,omitempty"`
	Date      string  `json:"date,omitempty"`
	Series    string  `json:"series,omitempty"`
	Magnitude float64 `json:"magnitude"`
}

// InFlightState reports whether a submission is running.
type InFlightState int32

const (
	// Idle accepts new submissions.
	Idle InFlightState = iota
	// Sending rejects new submissions until the current one ends.
	Sending
)

// String returns the wire name of the state.
func (s InFlightState) String() string {
	if s == Sending {
		return "sending"
	}
	return "idle"
}

// MarshalText implements encoding.TextMarshaler.
func (s InFlightState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TextGenerator sends one prompt to a language model and returns its text reply.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Fetcher retrieves a backend query URL and decodes the JSON array it returns.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]RawRecord, error)
}
