package config

import (
	"fmt"
	"os"
	"time"

	"github.com/GriffinCanCode/FitOS/backend/internal/shared/types"
	"github.com/goccy/go-yaml"
)

// DependencyFile is the on-disk dependency registration document
type DependencyFile struct {
	Dependencies []DependencyEntry `yaml:"dependencies"`
}

// DependencyEntry is one dependency registration in the deps file
type DependencyEntry struct {
	Name          string      `yaml:"name"`
	Strategy      string      `yaml:"fallback_strategy"`
	StaticDefault interface{} `yaml:"static_default"`
	MaxQueueDepth int         `yaml:"max_queue_depth"`
	Probe         *ProbeEntry `yaml:"probe"`
}

// ProbeEntry configures an optional health probe. Durations are
// strings in time.ParseDuration form ("15s", "1m").
type ProbeEntry struct {
	Kind     string `yaml:"kind"`
	Target   string `yaml:"target"`
	Service  string `yaml:"service"`
	Interval string `yaml:"interval"`
	Timeout  string `yaml:"timeout"`
}

// LoadDependencies reads and validates the dependency registrations at
// path
func LoadDependencies(path string) ([]types.DependencyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read deps file: %w", err)
	}
	return ParseDependencies(data)
}

// ParseDependencies decodes and validates a dependency document
func ParseDependencies(data []byte) ([]types.DependencyConfig, error) {
	var file DependencyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse deps file: %w", err)
	}

	seen := make(map[string]bool, len(file.Dependencies))
	configs := make([]types.DependencyConfig, 0, len(file.Dependencies))
	for i, entry := range file.Dependencies {
		cfg, err := entry.toConfig()
		if err != nil {
			return nil, fmt.Errorf("dependency %d (%q): %w", i, entry.Name, err)
		}
		if seen[cfg.Name] {
			return nil, fmt.Errorf("dependency %d: duplicate name %q", i, cfg.Name)
		}
		seen[cfg.Name] = true
		configs = append(configs, cfg)
	}
	return configs, nil
}

func (e DependencyEntry) toConfig() (types.DependencyConfig, error) {
	if e.Name == "" {
		return types.DependencyConfig{}, fmt.Errorf("name is required")
	}
	strategy := types.Strategy(e.Strategy)
	if !strategy.Valid() {
		return types.DependencyConfig{}, fmt.Errorf("unknown fallback strategy: %q", e.Strategy)
	}

	cfg := types.DependencyConfig{
		Name:          e.Name,
		Strategy:      strategy,
		StaticDefault: e.StaticDefault,
		MaxQueueDepth: e.MaxQueueDepth,
	}
	if e.Probe != nil {
		probe, err := e.Probe.toConfig()
		if err != nil {
			return types.DependencyConfig{}, err
		}
		cfg.Probe = &probe
	}
	return cfg, nil
}

func (p ProbeEntry) toConfig() (types.ProbeConfig, error) {
	kind := types.ProbeKind(p.Kind)
	if kind != types.ProbeHTTP && kind != types.ProbeGRPC {
		return types.ProbeConfig{}, fmt.Errorf("unknown probe kind: %q", p.Kind)
	}
	if p.Target == "" {
		return types.ProbeConfig{}, fmt.Errorf("probe target is required")
	}

	probe := types.ProbeConfig{Kind: kind, Target: p.Target, Service: p.Service}
	if p.Interval != "" {
		d, err := time.ParseDuration(p.Interval)
		if err != nil {
			return types.ProbeConfig{}, fmt.Errorf("probe interval: %w", err)
		}
		probe.Interval = d
	}
	if p.Timeout != "" {
		d, err := time.ParseDuration(p.Timeout)
		if err != nil {
			return types.ProbeConfig{}, fmt.Errorf("probe timeout: %w", err)
		}
		probe.Timeout = d
	}
	return probe, nil
}
