package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDirectoryURL = "https://api.koios.rest/api/v1"
	DefaultFetchTimeout = 10 * time.Second
	DefaultProbeTimeout = 2 * time.Second
	DefaultSamples      = 3
	DefaultProbeMode    = "tcp"
	DefaultDNSTransport = "auto"
	DefaultOutput       = "pretty"
)

// Config holds the settings shared by every command. Durations use Go
// duration syntax ("2s", "500ms").
type Config struct {
	DirectoryURL   string        `yaml:"directory_url"`
	DirectoryToken string        `yaml:"directory_token,omitempty"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	Samples        int           `yaml:"samples"`
	ProbeMode      string        `yaml:"probe_mode"`
	Resolvers      []string      `yaml:"resolvers,omitempty"`
	DNSTransport   string        `yaml:"dns_transport"`
	RowDelay       time.Duration `yaml:"row_delay"`
	Output         string        `yaml:"output"`
}

func Default() Config {
	cfg := Config{}
	ApplyDefaults(&cfg)
	return cfg
}

// Load reads and parses a YAML config file. An empty path yields defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// ApplyDefaults fills in default values when empty.
func ApplyDefaults(cfg *Config) {
	if cfg.DirectoryURL == "" {
		cfg.DirectoryURL = DefaultDirectoryURL
	}
	if cfg.FetchTimeout == 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}
	if cfg.ProbeTimeout == 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Samples == 0 {
		cfg.Samples = DefaultSamples
	}
	if cfg.ProbeMode == "" {
		cfg.ProbeMode = DefaultProbeMode
	}
	if cfg.DNSTransport == "" {
		cfg.DNSTransport = DefaultDNSTransport
	}
	if cfg.Output == "" {
		cfg.Output = DefaultOutput
	}
}

// Validate rejects values no command can run with.
func Validate(cfg Config) error {
	if cfg.Samples < 1 {
		return fmt.Errorf("samples must be at least 1")
	}
	if cfg.ProbeTimeout < 0 || cfg.FetchTimeout < 0 || cfg.RowDelay < 0 {
		return fmt.Errorf("timeouts and delays must not be negative")
	}
	switch cfg.ProbeMode {
	case "tcp", "icmp", "auto":
	default:
		return fmt.Errorf("probe_mode must be tcp, icmp or auto, got %q", cfg.ProbeMode)
	}
	switch cfg.DNSTransport {
	case "udp", "tcp", "auto":
	default:
		return fmt.Errorf("dns_transport must be udp, tcp or auto, got %q", cfg.DNSTransport)
	}
	switch cfg.Output {
	case "pretty", "json":
	default:
		return fmt.Errorf("output must be pretty or json, got %q", cfg.Output)
	}
	return nil
}
