package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/projectcapital/capital/pkg/api"
)

// maxBodySize caps how much of a backend response is read.
const maxBodySize = 8 << 20

// NetworkError reports a failed request or a non-success status.
type NetworkError struct {
	URL string
	// StatusCode is zero when no response was received.
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetching %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// DecodeError reports a response body that is not a JSON array of objects.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding response from %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Fetcher retrieves backend query results as JSON.
type Fetcher struct {
	http   *http.Client
	logger *slog.Logger
}

// NewFetcher creates a fetcher. A nil client uses New(0).
func NewFetcher(httpClient *http.Client, logger *slog.Logger) *Fetcher {
	if httpClient == nil {
		httpClient = New(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{http: httpClient, logger: logger.With("component", "fetcher")}
}

var _ api.Fetcher = (*Fetcher)(nil)

// Fetch issues a GET and decodes the body as an array of records.
// Failures are *NetworkError or *DecodeError.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]api.RawRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.http.Do(req)
	if err != nil {
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &NetworkError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("reading body: %w", err)}
	}

	var records []api.RawRecord
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, &DecodeError{URL: url, Err: err}
	}

	f.logger.Debug("fetched backend query", "url", url, "records", len(records))
	return records, nil
}
