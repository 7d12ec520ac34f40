package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/mash-protocol/reactor-go/pkg/connection"
	"github.com/mash-protocol/reactor-go/pkg/reactor"
)

// Config holds the host configuration. Fields tagged for yaml and toml can
// be set from a config file; command-line flags override the file.
type Config struct {
	ConfigFile  string `yaml:"-" toml:"-"`
	Interactive bool   `yaml:"-" toml:"-"`

	Address     string `yaml:"address" toml:"address"`
	Port        int    `yaml:"port" toml:"port"`
	BufferSize  int    `yaml:"buffer_size" toml:"buffer_size"`
	Loop        string `yaml:"loop" toml:"loop"`
	LogLevel    string `yaml:"log_level" toml:"log_level"`
	ProtocolLog string `yaml:"protocol_log" toml:"protocol_log"`
	MetricsAddr string `yaml:"metrics_addr" toml:"metrics_addr"`

	MDNS MDNSConfig `yaml:"mdns" toml:"mdns"`

	AcceptBackoff connection.BackoffConfig `yaml:"accept_backoff" toml:"accept_backoff"`
}

// MDNSConfig controls service advertisement.
type MDNSConfig struct {
	Enabled   bool          `yaml:"enabled" toml:"enabled"`
	Instance  string        `yaml:"instance" toml:"instance"`
	Interface string        `yaml:"interface" toml:"interface"`
	Refresh   time.Duration `yaml:"refresh" toml:"refresh"`
}

// Loop names.
const (
	LoopInline = "inline"
	LoopSerial = "serial"
)

func defaultConfig() Config {
	return Config{
		Address:    "",
		Port:       7400,
		BufferSize: reactor.DefaultBufferSize,
		Loop:       LoopInline,
		LogLevel:   "info",
	}
}

func newFlagSet(cfg *Config, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("reactor-echo", flag.ContinueOnError)
	fs.SetOutput(output)

	fs.StringVar(&cfg.ConfigFile, "config", "", "Configuration file path (.yaml, .yml or .toml)")
	fs.BoolVar(&cfg.Interactive, "interactive", false, "Run the interactive console")
	fs.StringVar(&cfg.Address, "address", cfg.Address, "Bind address (empty for all interfaces)")
	fs.IntVar(&cfg.Port, "port", cfg.Port, "Listen port (0 picks a free port)")
	fs.IntVar(&cfg.BufferSize, "buffer-size", cfg.BufferSize, "Per-connection read buffer size")
	fs.StringVar(&cfg.Loop, "loop", cfg.Loop, "Notification loop: inline, serial")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&cfg.ProtocolLog, "protocol-log", cfg.ProtocolLog, "File path for protocol event logging (CBOR format)")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address (e.g. :9400)")
	fs.BoolVar(&cfg.MDNS.Enabled, "mdns", cfg.MDNS.Enabled, "Advertise the listener over mDNS")
	fs.StringVar(&cfg.MDNS.Instance, "mdns-instance", cfg.MDNS.Instance, "mDNS instance name (default: reactor-<hostname>)")
	fs.StringVar(&cfg.MDNS.Interface, "mdns-interface", cfg.MDNS.Interface, "Network interface for mDNS (empty for all)")
	fs.DurationVar(&cfg.AcceptBackoff.Initial, "accept-backoff-initial", cfg.AcceptBackoff.Initial, "First delay after a temporary accept error")
	fs.DurationVar(&cfg.AcceptBackoff.Max, "accept-backoff-max", cfg.AcceptBackoff.Max, "Longest delay between accept retries")

	return fs
}

// parseArgs builds the configuration from defaults, an optional config file
// and command-line flags, in increasing precedence.
func parseArgs(args []string, output io.Writer) (Config, error) {
	cfg := defaultConfig()
	fs := newFlagSet(&cfg, output)
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.ConfigFile != "" {
		// Remember explicit flags so they win over the file.
		set := make(map[string]string)
		fs.Visit(func(f *flag.Flag) { set[f.Name] = f.Value.String() })

		if err := loadConfigFile(cfg.ConfigFile, &cfg); err != nil {
			return Config{}, err
		}
		for name, value := range set {
			if err := fs.Set(name, value); err != nil {
				return Config{}, fmt.Errorf("reapply -%s: %w", name, err)
			}
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// loadConfigFile decodes path into cfg, choosing the format by extension.
// Keys missing from the file leave cfg unchanged.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config: %w", err)
		}
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse toml config: %w", err)
		}
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	return nil
}

func (c Config) validate() error {
	var err error
	if c.Port < 0 || c.Port > 65535 {
		err = multierr.Append(err, fmt.Errorf("port must be 0-65535, got %d", c.Port))
	}
	if c.BufferSize <= 0 {
		err = multierr.Append(err, fmt.Errorf("buffer size must be positive, got %d", c.BufferSize))
	}
	switch c.Loop {
	case LoopInline, LoopSerial:
	default:
		err = multierr.Append(err, fmt.Errorf("unknown loop %q", c.Loop))
	}
	if _, lerr := parseLevel(c.LogLevel); lerr != nil {
		err = multierr.Append(err, lerr)
	}
	return err
}
