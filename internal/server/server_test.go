package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectcapital/capital/pkg/api"
	"github.com/projectcapital/capital/pkg/client"
	"github.com/projectcapital/capital/pkg/dashboard"
	"github.com/projectcapital/capital/pkg/endpoint"
	"github.com/projectcapital/capital/pkg/llm/openai"
	"github.com/projectcapital/capital/pkg/spending"
	"github.com/projectcapital/capital/pkg/translator"
)

// stubTranslator answers every question with a fixed endpoint string.
type stubTranslator struct {
	line string
	err  error
}

func (s stubTranslator) Translate(context.Context, string) (string, error) {
	return s.line, s.err
}

func (s stubTranslator) Extract(context.Context, string) (endpoint.Query, error) {
	if s.err != nil {
		return endpoint.Query{}, s.err
	}
	return endpoint.Parse(s.line)
}

type stubGenerator struct {
	reply string
	err   error
}

func (s stubGenerator) Generate(context.Context, string) (string, error) {
	return s.reply, s.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newBackend(t *testing.T) *httptest.Server {
	t.Helper()
	r := gin.New()
	store := spending.NewMemoryStore(
		spending.Seed("alice", 2027, 1)...,
	)
	spending.NewHandler(store, "alice", nil).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func newServer(t *testing.T, tr dashboard.Translator, opts Options) *Server {
	t.Helper()
	backend := newBackend(t)
	opts.Translator = tr
	opts.Fetcher = client.NewFetcher(backend.Client(), nil)
	opts.Dashboard = dashboard.Config{User: "alice", BackendURL: backend.URL, Mode: translator.ModeEndpoint}
	return New(opts, nil)
}

func do(t *testing.T, s *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func createSession(t *testing.T, s *Server) string {
	t.Helper()
	w := do(t, s, http.MethodPost, "/api/sessions", `{"width": 640, "height": 400}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var body struct {
		ID  string `json:"id"`
		SVG string `json:"svg"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotEmpty(t, body.ID)
	require.Contains(t, body.SVG, "<svg")
	return body.ID
}

func TestIndexAndHealth(t *testing.T) {
	s := newServer(t, stubTranslator{}, Options{})

	w := do(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `id="chart"`)

	w = do(t, s, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","sessions":0}`, w.Body.String())
}

func TestIndex_LocksInputWhileSending(t *testing.T) {
	s := newServer(t, stubTranslator{}, Options{})

	w := do(t, s, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	page := w.Body.String()

	ask := page[strings.Index(page, "async function ask("):]
	ask = ask[:strings.Index(ask, "finally")]
	assert.Contains(t, ask, "question.disabled = true;")
	assert.Contains(t, ask, "send.disabled = true;")
	assert.Contains(t, ask, `send.textContent = "Sending...";`)

	after := page[strings.Index(page, "finally"):]
	assert.Contains(t, after, "question.disabled = false;")
	assert.Contains(t, after, `send.textContent = "Ask";`)

	submit := page[strings.Index(page, `addEventListener("submit"`):]
	cleared := strings.Index(submit, `question.value = "";`)
	require.NotEqual(t, -1, cleared)
	assert.Less(t, cleared, strings.Index(submit, "ask(text);"))
}

func TestQueryFlow(t *testing.T) {
	s := newServer(t, stubTranslator{line: "/bob/spending/selectcategories?categories=food&categories=housing"}, Options{})
	id := createSession(t, s)

	w := do(t, s, http.MethodPost, "/api/sessions/"+id+"/query", `{"question": "food vs rent"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res dashboard.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, api.ChartPie, res.Kind)
	assert.Contains(t, res.Endpoint, "/alice/spending/selectcategories?categories=food&categories=housing")
	assert.Equal(t, 2, res.Points)
	assert.Equal(t, 1, strings.Count(res.SVG, "<svg"))

	w = do(t, s, http.MethodGet, "/api/sessions/"+id+"/state", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"state":"idle","chart":"pie"}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/sessions/"+id+"/chart?width=900&height=500", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
	assert.Equal(t, 1, strings.Count(w.Body.String(), "<svg"))
	assert.Contains(t, w.Body.String(), "food: ")

	w = do(t, s, http.MethodPost, "/api/sessions/"+id+"/query", `{"question": "   "}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestQueryFailures(t *testing.T) {
	tests := []struct {
		name   string
		tr     stubTranslator
		status int
		kind   string
	}{
		{"model failure", stubTranslator{err: errors.New("quota")}, http.StatusUnprocessableEntity, "translation"},
		{"unknown endpoint", stubTranslator{line: "/alice/budget"}, http.StatusUnprocessableEntity, "classification"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newServer(t, tc.tr, Options{})
			id := createSession(t, s)

			w := do(t, s, http.MethodPost, "/api/sessions/"+id+"/query", `{"question": "q"}`)
			require.Equal(t, tc.status, w.Code, w.Body.String())

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tc.kind, body["kind"])

			w = do(t, s, http.MethodGet, "/api/sessions/"+id+"/state", "")
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, "idle", body["state"])
			assert.Equal(t, "none", body["chart"])
			assert.Equal(t, tc.kind, body["kind"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestQuery_BackendDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()

	s := New(Options{
		Translator: stubTranslator{line: "/alice/spending/category/cummulative?categories=food"},
		Fetcher:    client.NewFetcher(nil, nil),
		Dashboard:  dashboard.Config{User: "alice", BackendURL: dead.URL, Mode: translator.ModeEndpoint},
	}, nil)
	id := createSession(t, s)

	w := do(t, s, http.MethodPost, "/api/sessions/"+id+"/query", `{"question": "q"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"network"`)
}

func TestSessionLifecycle(t *testing.T) {
	s := newServer(t, stubTranslator{}, Options{MaxSessions: 1})

	w := do(t, s, http.MethodPost, "/api/sessions", `not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	id := createSession(t, s)

	w = do(t, s, http.MethodPost, "/api/sessions", `{"width": 300, "height": 200}`)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(t, s, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	for _, target := range []string{"/api/sessions/" + id + "/state", "/api/sessions/" + id + "/chart"} {
		w = do(t, s, http.MethodGet, target, "")
		assert.Equal(t, http.StatusNotFound, w.Code, target)
	}
	w = do(t, s, http.MethodDelete, "/api/sessions/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	createSession(t, s)
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name   string
		gen    stubGenerator
		body   string
		status int
		want   string
	}{
		{"missing prompt", stubGenerator{}, `{}`, http.StatusBadRequest, `{"error":"prompt is required"}`},
		{"reply", stubGenerator{reply: "hi there"}, `{"prompt":"hello"}`, http.StatusOK, `{"reply":"hi there"}`},
		{
			"upstream error",
			stubGenerator{err: &openai.APIError{StatusCode: 401, Body: "invalid key"}},
			`{"prompt":"hello"}`,
			http.StatusBadGateway,
			`{"error":"upstream error","detail":"invalid key"}`,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newServer(t, stubTranslator{}, Options{Generator: tc.gen})
			w := do(t, s, http.MethodPost, "/api/generate", tc.body)
			assert.Equal(t, tc.status, w.Code)
			assert.JSONEq(t, tc.want, w.Body.String())
		})
	}

	s := newServer(t, stubTranslator{}, Options{})
	w := do(t, s, http.MethodPost, "/api/generate", `{"prompt":"hello"}`)
	assert.Equal(t, http.StatusNotFound, w.Code, "route is only mounted with a generator")
}

func TestSpendingRoutes(t *testing.T) {
	store := spending.NewMemoryStore(spending.Seed("demo", 2027, 3)...)
	s := newServer(t, stubTranslator{}, Options{Spending: spending.NewHandler(store, "demo", nil)})

	w := do(t, s, http.MethodGet, "/demo/spending/selectcategories?categories=housing", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"category":"housing"`)

	w = do(t, s, http.MethodGet, "/api/transactions?limit=3", "")
	require.Equal(t, http.StatusOK, w.Code)
	var txs []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &txs))
	assert.Len(t, txs, 3)
}

func TestCORS(t *testing.T) {
	s := newServer(t, stubTranslator{}, Options{CORSOrigins: []string{"http://app.test"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/sessions", nil)
	req.Header.Set("Origin", "http://app.test")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "http://app.test", w.Header().Get("Access-Control-Allow-Origin"))
}
