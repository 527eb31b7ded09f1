package plugins

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"

	"github.com/projectcapital/capital/pkg/api"
)

type echoGenerator struct{ prefix string }

func (g echoGenerator) Generate(_ context.Context, prompt string) (string, error) {
	return g.prefix + prompt, nil
}

type echoPlugin struct {
	name string
	got  json.RawMessage
}

func (p *echoPlugin) Name() string                 { return p.name }
func (p *echoPlugin) Description() string          { return "echoes the prompt" }
func (p *echoPlugin) ConfigSchema() map[string]any { return map[string]any{"type": "object"} }

func (p *echoPlugin) NewGenerator(_ *http.Client, config json.RawMessage, _ *slog.Logger) (api.TextGenerator, error) {
	p.got = config
	return echoGenerator{prefix: p.name + ":"}, nil
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	echo := &echoPlugin{name: "echo"}
	if err := r.Register(&echoPlugin{name: "zeta"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(echo); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&echoPlugin{name: "echo"}); err == nil {
		t.Error("duplicate registration should fail")
	}

	list := r.List()
	if len(list) != 2 || list[0].Name() != "echo" || list[1].Name() != "zeta" {
		t.Errorf("List not sorted: %v, %v", list[0].Name(), list[1].Name())
	}

	if _, err := r.Get("missing"); err == nil {
		t.Error("Get of unknown plugin should fail")
	}
	if _, err := r.Create("missing", nil, nil, nil); err == nil {
		t.Error("Create of unknown plugin should fail")
	}

	gen, err := r.Create("echo", http.DefaultClient, nil, nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if string(echo.got) != "{}" {
		t.Errorf("empty config should become {}, got %q", echo.got)
	}
	reply, _ := gen.Generate(context.Background(), "hi")
	if reply != "echo:hi" {
		t.Errorf("got %q", reply)
	}
}
