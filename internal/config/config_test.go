package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" || cfg.Server.BasePath != "/v0" {
		t.Fatalf("unexpected server defaults: %+v", cfg.Server)
	}
	if cfg.Feed.FetchTimeout != 5*time.Second {
		t.Fatalf("expected 5s fetch timeout, got %s", cfg.Feed.FetchTimeout)
	}
}

func TestFromYAMLKeepsDefaultsForMissingKeys(t *testing.T) {
	cfg, err := FromYAML([]byte("log:\n  level: debug\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Log.Level)
	}
	if cfg.Server.Addr == "" || cfg.Log.Format != "text" {
		t.Fatalf("expected defaults to survive, got %+v", cfg)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"base_path": "server:\n  base_path: v0\n",
		"level":     "log:\n  level: loud\n",
		"format":    "log:\n  format: xml\n",
		"timeout":   "feed:\n  fetch_timeout: -1s\n",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadOptionalMissingFile(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadOptional(dir)
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg == nil || cfg.Server.Addr == "" {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestLoadFromWorkspace(t *testing.T) {
	dir := t.TempDir()
	doc := "server:\n  addr: 0.0.0.0:9090\nauth:\n  jwt_secret: s3cret\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != "0.0.0.0:9090" || cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
