package clientconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeHomeConfig(t *testing.T, contents string) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	path := filepath.Join(home, defaultConfigRelPath)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, path, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if path == "" {
		t.Fatal("expected config path")
	}
	if cfg != Default() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	writeHomeConfig(t, "grpc_addr: hub.example.com:443\ngrpc_insecure: false\nrequest_timeout: 5s\n")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.GRPCAddr != "hub.example.com:443" {
		t.Fatalf("grpc_addr = %q", cfg.GRPCAddr)
	}
	if cfg.GRPCInsecure {
		t.Fatal("grpc_insecure should be false")
	}
	if cfg.RequestTimeout != 5*time.Second {
		t.Fatalf("request_timeout = %v", cfg.RequestTimeout)
	}
	// Unset fields keep defaults.
	if cfg.TokenEnvVar != "VENTURA_TOKEN" {
		t.Fatalf("token_env_var = %q", cfg.TokenEnvVar)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	writeHomeConfig(t, "grpc_addr: [unclosed\n")
	if _, _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResolveToken(t *testing.T) {
	cfg := Default()
	t.Setenv("VENTURA_TOKEN", "  tok-123  ")
	if got := ResolveToken(cfg); got != "tok-123" {
		t.Fatalf("token = %q", got)
	}
	t.Setenv("VENTURA_TOKEN", "")
	if got := ResolveToken(cfg); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}
