package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the node configuration.
type Config struct {
	DataDir     string `toml:"DataDir" yaml:"dataDir"`
	Network     string `toml:"Network" yaml:"network"`
	GenesisFile string `toml:"GenesisFile" yaml:"genesisFile"`
	// PaymentsDSN selects the payments database. Empty means a sqlite file
	// in DataDir; postgres:// URLs use postgres.
	PaymentsDSN    string `toml:"PaymentsDSN" yaml:"paymentsDSN"`
	JournalFile    string `toml:"JournalFile" yaml:"journalFile"`
	MetricsAddress string `toml:"MetricsAddress" yaml:"metricsAddress"`

	Rewards   Rewards   `toml:"rewards" yaml:"rewards"`
	Costs     Costs     `toml:"costs" yaml:"costs"`
	Logging   Logging   `toml:"logging" yaml:"logging"`
	Telemetry Telemetry `toml:"telemetry" yaml:"telemetry"`
}

// Load loads the configuration from the given path. A missing file is
// created with defaults. Files ending in .yaml or .yml are decoded as YAML,
// anything else as TOML.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	} else if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if isYAML(path) {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
	} else {
		meta, err := toml.DecodeFile(path, cfg)
		if err != nil {
			return nil, fmt.Errorf("config %s: %w", path, err)
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("config %s: unknown key %s", path, undecoded[0])
		}
	}

	cfg.applyDefaults(filepath.Dir(path))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Default returns the configuration written for a missing file.
func Default() *Config {
	cfg := &Config{
		DataDir:        "./settle-data",
		Network:        NetworkTestnet,
		MetricsAddress: ":9102",
	}
	cfg.applyDefaults("")
	return cfg
}

func (c *Config) applyDefaults(baseDir string) {
	if strings.TrimSpace(c.DataDir) == "" {
		c.DataDir = filepath.Join(baseDir, "settle-data")
	}
	c.Network = strings.ToLower(strings.TrimSpace(c.Network))
	if c.Network == "" {
		c.Network = NetworkTestnet
	}
	if c.Rewards.Maturity == 0 {
		c.Rewards.Maturity = DefaultMaturity
	}
	if c.Rewards.PoisonCommissionPercent == 0 {
		c.Rewards.PoisonCommissionPercent = DefaultPoisonCommissionPercent
	}
	if strings.TrimSpace(c.Logging.Level) == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 100
	}
}

// Mainnet reports whether the node runs against mainnet.
func (c *Config) Mainnet() bool { return c.Network == NetworkMainnet }

// StateDir is the directory of the ledger database.
func (c *Config) StateDir() string { return filepath.Join(c.DataDir, "state") }

// PaymentsStore returns the payments DSN, defaulting to a sqlite file.
func (c *Config) PaymentsStore() string {
	if dsn := strings.TrimSpace(c.PaymentsDSN); dsn != "" {
		return dsn
	}
	return filepath.Join(c.DataDir, "payments.db")
}

// JournalPath returns the event journal file, defaulting into DataDir.
func (c *Config) JournalPath() string {
	if file := strings.TrimSpace(c.JournalFile); file != "" {
		return file
	}
	return filepath.Join(c.DataDir, "events.db")
}

// createDefault creates and saves a default configuration file.
func createDefault(path string) (*Config, error) {
	cfg := Default()
	if err := persist(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if isYAML(path) {
		enc := yaml.NewEncoder(f)
		defer enc.Close()
		return enc.Encode(cfg)
	}
	return toml.NewEncoder(f).Encode(cfg)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}
