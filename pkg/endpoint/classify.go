package endpoint

import (
	"strings"

	"github.com/projectcapital/capital/pkg/api"
)

// Classify returns the chart kind implied by an endpoint string, or
// api.ChartNone when its path matches no template. The query string is ignored.
func Classify(endpoint string) api.ChartKind {
	t, _, ok := Match(endpoint)
	if !ok {
		return api.ChartNone
	}
	return t.Kind
}

// Match finds the first template, in precedence order, whose path ends the
// endpoint's path, and returns the user segment in front of it.
func Match(endpoint string) (Template, string, bool) {
	path := pathOf(endpoint)
	for _, t := range Templates {
		if user, ok := t.match(path); ok {
			return t, user, true
		}
	}
	return Template{}, "", false
}

func (t Template) match(path string) (string, bool) {
	prefix, ok := strings.CutSuffix(path, t.Path)
	if !ok {
		return "", false
	}
	i := strings.LastIndexByte(prefix, '/')
	if i < 0 {
		return "", false
	}
	user := prefix[i+1:]
	if user == "" {
		return "", false
	}
	return user, true
}

// pathOf strips the query string, fragment, scheme and host from s. A host
// is only recognised after a scheme.
func pathOf(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}

	if i := strings.Index(s, "://"); i >= 0 {
		s = s[i+3:]
		j := strings.IndexByte(s, '/')
		if j < 0 {
			return ""
		}
		s = s[j:]
	} else if !strings.HasPrefix(s, "/") {
		// A schemeless host stays in the path. Templates only read the
		// segment in front of them, so "john.doe" still counts as a user.
		s = "/" + s
	}

	return strings.TrimRight(s, "/")
}
