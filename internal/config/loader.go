package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/tailscale/hujson"
)

const (
	DefaultChatURL = "ws://localhost:8000/api/v1/chat"
	DefaultAPIURL  = "http://localhost:8000/api/v1"

	PolicyLatestRequest  = "latest-request"
	PolicyLatestResponse = "latest-response"
)

var envTemplateRe = regexp.MustCompile(`\$\{\{\s*\.Env\.(\w+)\s*\}\}`)

// Load reads a JSONC config file, expands ${{ .Env.VAR }} templates,
// standardizes it to plain JSON, unmarshals it into Config, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variable templates (before standardizing, since templates are in strings)
	expanded := expandEnvTemplates(string(data))

	std, err := hujson.Standardize([]byte(expanded))
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(std, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	ApplyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// expandEnvTemplates replaces ${{ .Env.VAR }} with the env var value.
func expandEnvTemplates(s string) string {
	return envTemplateRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envTemplateRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

func validate(cfg *Config) error {
	switch cfg.Sync.RefreshPolicy {
	case "", PolicyLatestRequest, PolicyLatestResponse:
	default:
		return fmt.Errorf("invalid sync.refresh_policy %q", cfg.Sync.RefreshPolicy)
	}
	return nil
}

// ApplyDefaults fills in zero-value fields with sensible defaults.
// Environment variables TASKPILOT_CHAT_URL and TASKPILOT_API_URL take
// precedence over empty fields only.
func ApplyDefaults(cfg *Config) {
	if cfg.Endpoints.ChatURL == "" {
		if v := os.Getenv("TASKPILOT_CHAT_URL"); v != "" {
			cfg.Endpoints.ChatURL = v
		} else {
			cfg.Endpoints.ChatURL = DefaultChatURL
		}
	}
	if cfg.Endpoints.APIURL == "" {
		if v := os.Getenv("TASKPILOT_API_URL"); v != "" {
			cfg.Endpoints.APIURL = v
		} else {
			cfg.Endpoints.APIURL = DefaultAPIURL
		}
	}
	if cfg.Sync.RefreshPolicy == "" {
		cfg.Sync.RefreshPolicy = PolicyLatestRequest
	}
	if cfg.Sync.RequestTimeout == 0 {
		cfg.Sync.RequestTimeout = Duration(15 * time.Second)
	}
	if cfg.Channel.DialTimeout == 0 {
		cfg.Channel.DialTimeout = Duration(10 * time.Second)
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.File == "" {
		cfg.Log.File = filepath.Join(TaskpilotPath(), "taskpilot.log")
	}
	if cfg.DevServer.Host == "" {
		cfg.DevServer.Host = "127.0.0.1"
	}
	if cfg.DevServer.Port == 0 {
		cfg.DevServer.Port = 8000
	}
	if cfg.DevServer.Store == "" {
		cfg.DevServer.Store = "memory"
	}
}
