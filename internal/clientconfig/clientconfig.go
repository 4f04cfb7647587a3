// Package clientconfig loads the CLI's user configuration from
// ~/.config/ventura/cli.yaml. Missing file means defaults; a malformed
// file is an error so typos do not silently fall back.
package clientconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigRelPath = ".config/ventura/cli.yaml"

type Config struct {
	GRPCAddr       string        `yaml:"grpc_addr"`
	GRPCInsecure   bool          `yaml:"grpc_insecure"`
	TokenEnvVar    string        `yaml:"token_env_var"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RetryAttempts  int           `yaml:"retry_attempts"`
}

func Default() Config {
	return Config{
		GRPCAddr:       "127.0.0.1:50051",
		GRPCInsecure:   true,
		TokenEnvVar:    "VENTURA_TOKEN",
		ConnectTimeout: 8 * time.Second,
		RequestTimeout: 30 * time.Second,
		RetryAttempts:  3,
	}
}

func Load() (Config, string, error) {
	cfg := Default()
	path, err := Path()
	if err != nil {
		return cfg, "", err
	}

	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		if errors.Is(readErr, os.ErrNotExist) {
			return cfg, path, nil
		}
		return cfg, path, fmt.Errorf("read cli config %s: %w", path, readErr)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, path, fmt.Errorf("parse cli config %s: %w", path, err)
	}

	if strings.TrimSpace(cfg.GRPCAddr) == "" {
		cfg.GRPCAddr = Default().GRPCAddr
	}
	if strings.TrimSpace(cfg.TokenEnvVar) == "" {
		cfg.TokenEnvVar = Default().TokenEnvVar
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = Default().ConnectTimeout
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = Default().RequestTimeout
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = Default().RetryAttempts
	}
	return cfg, path, nil
}

func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, defaultConfigRelPath), nil
}

// ResolveToken reads the auth token from the configured environment
// variable. Empty means the caller talks to an unauthenticated hub.
func ResolveToken(cfg Config) string {
	name := strings.TrimSpace(cfg.TokenEnvVar)
	if name == "" {
		return ""
	}
	return strings.TrimSpace(os.Getenv(name))
}
