package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// PlatformConfig is one scrape target from the platform registry file.
// Platform reference data is owned by configuration: loaded once at startup,
// seeded into the platform table, and passed to the orchestrator explicitly.
type PlatformConfig struct {
	Name     string `yaml:"name"`
	BaseURL  string `yaml:"base_url"`
	IsActive bool   `yaml:"is_active"`
}

type Config struct {
	Platforms []PlatformConfig `yaml:"platforms"`
}

func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if len(cfg.Platforms) == 0 {
		return nil, fmt.Errorf("config %s: no platforms defined", path)
	}
	seen := map[string]bool{}
	for i := range cfg.Platforms {
		p := &cfg.Platforms[i]
		p.Name = strings.ToLower(strings.TrimSpace(p.Name))
		if p.Name == "" {
			return nil, fmt.Errorf("config %s: platform %d has no name", path, i)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("config %s: duplicate platform %q", path, p.Name)
		}
		seen[p.Name] = true
	}
	return &cfg, nil
}

// ActiveNames returns the names of active platforms, in file order.
func (c *Config) ActiveNames() []string {
	out := make([]string, 0, len(c.Platforms))
	for _, p := range c.Platforms {
		if p.IsActive {
			out = append(out, p.Name)
		}
	}
	return out
}
