package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectcapital/capital/pkg/config"
)

func staticLoader(cfg config.Config, err error) loader {
	return func() (config.Config, error) { return cfg, err }
}

func TestRunStatus(t *testing.T) {
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/demo/spending/selectcategories", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"category":"food","total":-12.5}]`))
	}))
	defer backend.Close()

	registry, err := newRegistry()
	require.NoError(t, err)

	cfg := config.Default()
	cfg.GeminiAPIKey = "key"
	cfg.SpendingStore = config.StoreOff
	cfg.BackendURL = backend.URL

	var out bytes.Buffer
	ok := runStatus(context.Background(), &out, registry, staticLoader(cfg, nil))
	assert.True(t, ok, out.String())
	assert.Contains(t, out.String(), "Provider (gemini): ✓")
	assert.Contains(t, out.String(), "✓ 1 records")
	assert.Contains(t, out.String(), "Status: ✓ Ready to run")
}

func TestRunStatus_Problems(t *testing.T) {
	registry, err := newRegistry()
	require.NoError(t, err)

	t.Run("bad config", func(t *testing.T) {
		var out bytes.Buffer
		ok := runStatus(context.Background(), &out, registry, staticLoader(config.Config{}, errors.New("CAPITAL_USER is required")))
		assert.False(t, ok)
		assert.Contains(t, out.String(), "Configuration: ✗ CAPITAL_USER is required")
	})

	t.Run("missing key and dead backend", func(t *testing.T) {
		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()

		cfg := config.Default()
		cfg.LLMProvider = "openai"
		cfg.SpendingStore = config.StoreOff
		cfg.BackendURL = dead.URL

		var out bytes.Buffer
		ok := runStatus(context.Background(), &out, registry, staticLoader(cfg, nil))
		assert.False(t, ok)
		assert.Contains(t, out.String(), "OPENAI_API_KEY")
		assert.Contains(t, out.String(), "✗ unreachable")
		assert.Contains(t, out.String(), "Status: ✗ Configuration issues detected")
	})
}

func TestAskCmd_UnknownProvider(t *testing.T) {
	t.Setenv("CAPITAL_LLM_PROVIDER", "none")
	registry, err := newRegistry()
	require.NoError(t, err)

	root := newRootCmd(registry, nil)
	root.SetArgs([]string{"ask", "--out", filepath.Join(t.TempDir(), "chart.svg"), "food"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})

	err = root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none")
}

func TestRootCmd_Subcommands(t *testing.T) {
	registry, err := newRegistry()
	require.NoError(t, err)

	root := newRootCmd(registry, nil)
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "ask", "status", "export", "import"})
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestExportCmd_MemoryStore(t *testing.T) {
	t.Setenv("CAPITAL_USER", "erin")
	t.Setenv("CAPITAL_SPENDING_STORE", "memory")
	registry, err := newRegistry()
	require.NoError(t, err)

	var out bytes.Buffer
	root := newRootCmd(registry, nil)
	root.SetArgs([]string{"export", "--format", "json", "--limit", "3"})
	root.SetOut(&out)
	require.NoError(t, root.ExecuteContext(context.Background()))

	var txs []map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &txs))
	assert.Len(t, txs, 3)
	assert.Contains(t, txs[0], "merchant")
}

func TestImportCmd_NeedsPostgres(t *testing.T) {
	t.Setenv("CAPITAL_SPENDING_STORE", "memory")
	registry, err := newRegistry()
	require.NoError(t, err)

	root := newRootCmd(registry, nil)
	root.SetArgs([]string{"import", "txns.csv"})
	err = root.ExecuteContext(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres")
}
