package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// Config is the only persisted config file schema.
type Config struct {
	Agent     string   `toml:"agent"`
	AgentArgs []string `toml:"agent_args"`
	Workdir   string   `toml:"workdir"`
	Source    string   `toml:"-"`
}

func Default() Config {
	return Config{Agent: "claude"}
}

func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".relay", "config.toml")
}

func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return cfg, errors.New("config path is empty and $HOME is not set")
	}
	cfg.Source = path

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return applyEnv(cfg), nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(content, &cfg); err != nil {
		return cfg, err
	}
	return applyEnv(cfg), nil
}

func applyEnv(cfg Config) Config {
	if env := strings.TrimSpace(os.Getenv("RELAY_AGENT_BIN")); env != "" {
		cfg.Agent = env
	}
	if env := strings.TrimSpace(os.Getenv("RELAY_WORKDIR")); env != "" {
		cfg.Workdir = env
	}
	return cfg
}
