package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/timelessnp/sitechat/internal/infra/config"
	"github.com/timelessnp/sitechat/internal/pkg/errs"
	"go.uber.org/zap"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("version command: %v", err)
	}
	if !strings.Contains(out.String(), "sitechat version") {
		t.Errorf("unexpected version output %q", out.String())
	}
}

func TestServe_MissingConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--config", filepath.Join(t.TempDir(), "nope.yaml")})

	if err := cmd.Execute(); !errs.IsConfiguration(err) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestLoadIndex_ModelMismatch(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "vectors.json")
	body := `{"embed_model":"other-model","records":[{"id":"1","title":"t","text":"x","embedding":[1,0]}]}`
	if err := os.WriteFile(indexPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	cfg := &config.Config{}
	cfg.Retrieval.IndexPath = indexPath
	cfg.LLM.EmbedModel = "text-embedding-3-small"

	if _, err := loadIndex(cfg, zap.NewNop()); !errs.IsConfiguration(err) {
		t.Errorf("expected configuration error on model mismatch, got %v", err)
	}
}

func TestLoadIndex_LegacyIndexServes(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "vectors.json")
	body := `[{"id":"1","title":"t","text":"x","embedding":[1,0]}]`
	if err := os.WriteFile(indexPath, []byte(body), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	cfg := &config.Config{}
	cfg.Retrieval.IndexPath = indexPath
	cfg.LLM.EmbedModel = "text-embedding-3-small"

	idx, err := loadIndex(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("legacy index must load, got %v", err)
	}
	if idx.Len() != 1 {
		t.Errorf("expected 1 record, got %d", idx.Len())
	}
}

func TestNewLogger_BadLevel(t *testing.T) {
	if _, err := newLogger("noisy"); err == nil {
		t.Error("expected an error for an unknown level")
	}
	if _, err := newLogger("debug"); err != nil {
		t.Errorf("debug level must parse, got %v", err)
	}
}
