// Package client builds the outbound HTTP clients used for language model and
// backend calls.
package client

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/oauth2"
)

// DefaultTimeout bounds every outbound request.
const DefaultTimeout = 30 * time.Second

// New creates a plain HTTP client with the given timeout.
// A zero timeout uses DefaultTimeout.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// NewBearer creates an HTTP client that sends token as an Authorization bearer
// header on every request. The base client's transport and timeout are kept;
// a nil base uses New(0).
func NewBearer(base *http.Client, token string) *http.Client {
	if base == nil {
		base = New(0)
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	c := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))
	c.Timeout = base.Timeout
	return c
}
