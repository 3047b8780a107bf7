package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadProjectConfigMissingReturnsNil(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadProjectConfig(dir, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Fatalf("expected nil config when no file present, got %+v", cfg)
	}
}

func TestLoadProjectConfigParsesYAML(t *testing.T) {
	dir := t.TempDir()
	content := "version: 1\nsource_roots:\n  - src\nout: dist/bundle.py\npython_version: \"3.11\"\nstrict: true\n"
	if err := os.WriteFile(filepath.Join(dir, ".cribo.yml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadProjectConfig(dir, "")
	if err != nil {
		t.Fatalf("LoadProjectConfig: %v", err)
	}
	if cfg == nil {
		t.Fatalf("expected a config")
	}
	if len(cfg.SourceRoots) != 1 || cfg.SourceRoots[0] != "src" {
		t.Fatalf("unexpected source roots: %v", cfg.SourceRoots)
	}
	if !cfg.Strict {
		t.Fatalf("expected strict=true")
	}
}

func TestLoadProjectConfigRejectsUnknownFields(t *testing.T) {
	dir := t.TempDir()
	content := "version: 1\nbogus_field: true\n"
	if err := os.WriteFile(filepath.Join(dir, ".cribo.yml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadProjectConfig(dir, ""); err == nil {
		t.Fatalf("expected an error for unknown config field")
	}
}

func TestLoadProjectConfigRejectsBadVersion(t *testing.T) {
	dir := t.TempDir()
	content := "version: 9\n"
	if err := os.WriteFile(filepath.Join(dir, ".cribo.yml"), []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, err := LoadProjectConfig(dir, ""); err == nil {
		t.Fatalf("expected an error for unsupported version")
	}
}
