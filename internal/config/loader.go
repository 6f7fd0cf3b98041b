package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

var envRefRe = regexp.MustCompile(`\$\{(\w+)\}`)

// Load reads a YAML config file, expands ${VAR} references from the
// environment, unmarshals it into Config, and applies defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := expandEnvRefs(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// Default returns a config with all defaults applied, used when no config
// file exists yet.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// expandEnvRefs replaces ${VAR} with the environment value.
func expandEnvRefs(s string) string {
	return envRefRe.ReplaceAllStringFunc(s, func(match string) string {
		parts := envRefRe.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		return os.Getenv(parts[1])
	})
}

// applyDefaults fills in zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Gateway.Host == "" {
		cfg.Gateway.Host = "127.0.0.1"
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18530
	}

	if cfg.Embedding.Driver == "" {
		cfg.Embedding.Driver = "ollama"
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "nomic-embed-text"
	}

	if cfg.Memory.Dir == "" {
		cfg.Memory.Dir = filepath.Join(MnemoPath(), "memory")
	}
	if cfg.Memory.NeighborLimit == 0 {
		cfg.Memory.NeighborLimit = 5
	}
	if cfg.Memory.RetrievalLimit == 0 {
		cfg.Memory.RetrievalLimit = 8
	}
	if cfg.Memory.AuditDB == "" {
		cfg.Memory.AuditDB = filepath.Join(MnemoPath(), "audit.db")
	}

	if cfg.Scanner.Interval == 0 {
		cfg.Scanner.Interval = Duration(10 * time.Minute)
	}
	if cfg.Scanner.Lookback == 0 {
		cfg.Scanner.Lookback = Duration(5 * time.Minute)
	}
	if cfg.Scanner.SeenClearEvery == 0 {
		cfg.Scanner.SeenClearEvery = Duration(30 * time.Minute)
	}
	if cfg.Scanner.CommandPrefix == "" {
		cfg.Scanner.CommandPrefix = "!"
	}

	if cfg.Session.HistoryLimit == 0 {
		cfg.Session.HistoryLimit = 10
	}
	if cfg.Session.IdleTimeout == 0 {
		cfg.Session.IdleTimeout = Duration(5 * time.Minute)
	}
	if cfg.Session.FollowUpTimeout == 0 {
		cfg.Session.FollowUpTimeout = Duration(60 * time.Second)
	}
	if cfg.Session.RequestBudget == 0 {
		cfg.Session.RequestBudget = 5
	}

	if cfg.WebSearch.Driver == "" {
		cfg.WebSearch.Driver = "duckduckgo"
	}
	if cfg.WebSearch.MaxResults == 0 {
		cfg.WebSearch.MaxResults = 10
	}
}
