package cli

import (
	"bytes"
	"testing"

	"go.uber.org/zap"

	"github.com/agenthub/tool-recommender/internal/config"
)

func TestNewServeCmd_Flags(t *testing.T) {
	cmd := NewServeCmd()

	if cmd.Use != "serve" {
		t.Errorf("expected use serve, got %s", cmd.Use)
	}
	if cmd.Flags().Lookup("verbose") == nil {
		t.Error("expected verbose flag")
	}
}

func TestNewRecommendCmd_Flags(t *testing.T) {
	cmd := NewRecommendCmd()

	for _, name := range []string{"user", "max", "urgency", "json"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag %s", name)
		}
	}
}

func TestNewBenchCmd_Flags(t *testing.T) {
	cmd := NewBenchCmd()

	for _, name := range []string{"requests", "users"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected flag %s", name)
		}
	}
}

func TestNewVersionCmd_Runs(t *testing.T) {
	cmd := NewVersionCmd()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(nil)

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command failed: %v", err)
	}
}

func TestBuildEngine_Defaults(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Settings.JournalEnabled = false

	engine, reg, err := buildEngine(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	defer engine.Close()
	defer reg.Close()

	if reg.Count() != 0 {
		t.Errorf("expected empty registry without catalog, got %d tools", reg.Count())
	}
}

func TestBuildEngine_MissingCatalogFails(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Settings.JournalEnabled = false
	cfg.CatalogPath = "/nonexistent/catalog.json"

	if _, _, err := buildEngine(cfg, zap.NewNop()); err == nil {
		t.Error("expected error for missing catalog file")
	}
}
