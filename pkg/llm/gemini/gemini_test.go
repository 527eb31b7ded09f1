package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type captured struct {
	path   string
	apiKey string
	body   string
}

func newServer(t *testing.T, status int, body string, seen *captured) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen.path = r.URL.Path
		seen.apiKey = r.Header.Get("x-goog-api-key")
		seen.body = string(b)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerate(t *testing.T) {
	var req captured
	srv := newServer(t, http.StatusOK, `{
		"candidates": [{
			"content": {"role": "model", "parts": [{"text": "/demo/spending/"}, {"text": "selectcategories?categories=food"}]},
			"finishReason": "STOP"
		}]
	}`, &req)

	gen, err := New(context.Background(), srv.Client(), Config{APIKey: "k-123", Endpoint: srv.URL + "/"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := gen.Generate(context.Background(), "food spending")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "/demo/spending/selectcategories?categories=food" {
		t.Errorf("got %q", got)
	}

	if !strings.HasSuffix(req.path, "/models/gemini-2.5-flash:generateContent") {
		t.Errorf("path: got %q", req.path)
	}
	if req.apiKey != "k-123" {
		t.Errorf("api key header: got %q", req.apiKey)
	}

	var sent struct {
		Contents []struct {
			Role  string `json:"role"`
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"contents"`
	}
	if err := json.Unmarshal([]byte(req.body), &sent); err != nil {
		t.Fatalf("request body: %v", err)
	}
	if len(sent.Contents) != 1 || sent.Contents[0].Parts[0].Text != "food spending" {
		t.Errorf("request body: %s", req.body)
	}
}

func TestGenerate_NoCandidates(t *testing.T) {
	var req captured
	srv := newServer(t, http.StatusOK, `{"candidates": []}`, &req)

	gen, err := New(context.Background(), srv.Client(), Config{APIKey: "k", Endpoint: srv.URL + "/"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := gen.Generate(context.Background(), "q"); !errors.Is(err, ErrNoCandidates) {
		t.Errorf("got %v, want ErrNoCandidates", err)
	}
}

func TestGenerate_UpstreamError(t *testing.T) {
	var req captured
	srv := newServer(t, http.StatusBadRequest, `{"error": {"code": 400, "message": "API key not valid"}}`, &req)

	gen, err := New(context.Background(), srv.Client(), Config{APIKey: "k", Model: "models/gemini-pro", Endpoint: srv.URL + "/"}, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := gen.Generate(context.Background(), "q"); err == nil {
		t.Fatal("expected an error for 400")
	}
	if !strings.HasSuffix(req.path, "/models/gemini-pro:generateContent") {
		t.Errorf("path: got %q", req.path)
	}
}

func TestPlugin(t *testing.T) {
	p := &Plugin{}
	if p.Name() != "gemini" {
		t.Errorf("name: %q", p.Name())
	}
	if _, err := p.NewGenerator(nil, json.RawMessage(`{}`), nil); err == nil {
		t.Error("missing apiKey should fail")
	}
	if _, err := p.NewGenerator(nil, json.RawMessage(`not json`), nil); err == nil {
		t.Error("bad config should fail")
	}
	if _, err := p.NewGenerator(nil, json.RawMessage(`{"apiKey":"k"}`), nil); err != nil {
		t.Errorf("NewGenerator: %v", err)
	}
}
