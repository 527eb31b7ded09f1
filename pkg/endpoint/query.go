package endpoint

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/projectcapital/capital/pkg/api"
)

var (
	// ErrNoTemplate is returned when an endpoint string matches no template.
	ErrNoTemplate = errors.New("endpoint matches no template")
	// ErrNoCategories is returned when no legal category survives validation.
	ErrNoCategories = errors.New("no valid categories")
	// ErrNoUser is returned when the query has no user segment.
	ErrNoUser = errors.New("missing user")
)

// Query is a validated backend query. Endpoint strings are rebuilt from it
// rather than fetched as the model wrote them.
type Query struct {
	Template   Template
	User       string
	Categories []api.Category
	Start      time.Time
	End        time.Time
}

// Kind returns the chart kind of the query's template.
func (q Query) Kind() api.ChartKind {
	return q.Template.Kind
}

// Parse validates an endpoint string produced by the model.
// Unknown categories are dropped, missing or malformed dates fall back to the
// defaults, and a reversed range is swapped.
func Parse(endpoint string) (Query, error) {
	t, user, ok := Match(endpoint)
	if !ok {
		return Query{}, fmt.Errorf("%w: %q", ErrNoTemplate, truncate(endpoint, 120))
	}

	var values url.Values
	if i := strings.IndexByte(endpoint, '?'); i >= 0 {
		raw := endpoint[i+1:]
		if j := strings.IndexByte(raw, '#'); j >= 0 {
			raw = raw[:j]
		}
		// ParseQuery keeps every well-formed pair even when it reports an error.
		values, _ = url.ParseQuery(strings.TrimSpace(raw))
	}

	if unescaped, err := url.PathUnescape(user); err == nil {
		user = unescaped
	}

	return New(t, user, values["categories"], values.Get("start_date"), values.Get("end_date"))
}

// New builds a query from loosely typed parts.
func New(t Template, user string, categories []string, start, end string) (Query, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return Query{}, ErrNoUser
	}

	q := Query{
		Template:   t,
		User:       user,
		Categories: parseCategories(categories),
		Start:      parseDate(start, DefaultStart),
		End:        parseDate(end, DefaultEnd),
	}
	if len(q.Categories) == 0 {
		return Query{}, fmt.Errorf("%w in %v", ErrNoCategories, categories)
	}
	if q.Start.After(q.End) {
		q.Start, q.End = q.End, q.Start
	}
	return q, nil
}

func parseCategories(raw []string) []api.Category {
	seen := make(map[api.Category]struct{})
	out := make([]api.Category, 0, len(raw))
	for _, item := range raw {
		for _, token := range strings.Split(item, ",") {
			c, ok := api.ParseCategory(token)
			if !ok {
				continue
			}
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

func parseDate(s string, fallback time.Time) time.Time {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return fallback
	}
	return t
}

// Path renders the endpoint path and query string, parameters in grammar order.
func (q Query) Path() string {
	var b strings.Builder
	b.WriteString("/")
	b.WriteString(url.PathEscape(q.User))
	b.WriteString(q.Template.Path)
	b.WriteString("?")
	for _, c := range q.Categories {
		b.WriteString("categories=")
		b.WriteString(url.QueryEscape(string(c)))
		b.WriteString("&")
	}
	b.WriteString("start_date=")
	b.WriteString(q.Start.Format(DateLayout))
	b.WriteString("&end_date=")
	b.WriteString(q.End.Format(DateLayout))
	return b.String()
}

// URL joins the query path onto the backend base URL. Only http and https
// bases with a host are accepted.
func (q Query) URL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil {
		return "", fmt.Errorf("parsing backend base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("backend base url %q: unsupported scheme %q", base, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("backend base url %q has no host", base)
	}
	return strings.TrimRight(u.Scheme+"://"+u.Host+u.EscapedPath(), "/") + q.Path(), nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
