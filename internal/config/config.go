// Package config loads the YAML configuration for the host.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Plugin is one processor instance in a chain, in insertion order.
type Plugin struct {
	Kind string `yaml:"kind"`
	Name string `yaml:"name"`
}

// Chain is one signal path in the engine graph.
type Chain struct {
	Name     string   `yaml:"name"`
	Channels int      `yaml:"channels"`
	Plugins  []Plugin `yaml:"plugins,omitempty"`
}

// Config is the full configuration surface. No other knobs are recognised.
type Config struct {
	SampleRate            float64 `yaml:"sample_rate"`
	BlockSize             int     `yaml:"block_size"`
	RtQueueCapacity       int     `yaml:"rt_queue_capacity"`
	DispatcherTickMs      int     `yaml:"dispatcher_tick_ms"`
	WorkerTickMs          int     `yaml:"worker_tick_ms"`
	TimingReportIntervalS int     `yaml:"timing_report_interval_s"`

	Input  string  `yaml:"input,omitempty"`
	Output string  `yaml:"output,omitempty"`
	Chains []Chain `yaml:"chains,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		SampleRate:            48000,
		BlockSize:             64,
		RtQueueCapacity:       1024,
		DispatcherTickMs:      1,
		WorkerTickMs:          10,
		TimingReportIntervalS: 5,
	}
}

// Load reads and validates a YAML configuration file. Omitted knobs keep
// their defaults.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration bytes.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the knobs against their documented ranges.
func (c Config) Validate() error {
	if c.SampleRate <= 0 {
		return errors.New("sample_rate must be positive")
	}
	if c.BlockSize <= 0 {
		return errors.New("block_size must be positive")
	}
	if c.RtQueueCapacity <= 0 || c.RtQueueCapacity&(c.RtQueueCapacity-1) != 0 {
		return errors.New("rt_queue_capacity must be a power of two")
	}
	if c.DispatcherTickMs <= 0 {
		return errors.New("dispatcher_tick_ms must be positive")
	}
	if c.WorkerTickMs <= 0 {
		return errors.New("worker_tick_ms must be positive")
	}
	if c.TimingReportIntervalS <= 0 {
		return errors.New("timing_report_interval_s must be positive")
	}
	seenChains := make(map[string]bool)
	seenPlugins := make(map[string]bool)
	for _, ch := range c.Chains {
		if ch.Name == "" {
			return errors.New("chain name must not be empty")
		}
		if seenChains[ch.Name] {
			return fmt.Errorf("duplicate chain name %q", ch.Name)
		}
		seenChains[ch.Name] = true
		if ch.Channels <= 0 {
			return fmt.Errorf("chain %q: channels must be positive", ch.Name)
		}
		for _, p := range ch.Plugins {
			if p.Kind == "" || p.Name == "" {
				return fmt.Errorf("chain %q: plugin kind and name must not be empty", ch.Name)
			}
			if seenPlugins[p.Name] {
				return fmt.Errorf("duplicate plugin name %q", p.Name)
			}
			seenPlugins[p.Name] = true
		}
	}
	return nil
}
