package main

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Bind           string `yaml:"bind"`
	Port           int    `yaml:"port"`
	TegrastatsPath string `yaml:"tegrastats_path"`
	IntervalMs     int    `yaml:"interval_ms"`
	ReadTimeoutMs  int    `yaml:"read_timeout_ms"`
	UsePTY         bool   `yaml:"use_pty"`
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

func (c *Config) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

func defaultConfig() *Config {
	return &Config{
		Bind:           "0.0.0.0",
		Port:           5001,
		TegrastatsPath: "tegrastats",
		IntervalMs:     100,
		ReadTimeoutMs:  2000,
	}
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.Bind == "" {
		cfg.Bind = "0.0.0.0"
	}
	if cfg.Port == 0 {
		cfg.Port = 5001
	}
	if cfg.TegrastatsPath == "" {
		cfg.TegrastatsPath = "tegrastats"
	}
	if cfg.IntervalMs == 0 {
		cfg.IntervalMs = 100
	}
	if cfg.ReadTimeoutMs == 0 {
		cfg.ReadTimeoutMs = 2000
	}

	return cfg, nil
}
