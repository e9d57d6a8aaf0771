package config

import (
	"fmt"
	"strings"
)

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	switch c.Network {
	case NetworkMainnet, NetworkTestnet:
	default:
		return fmt.Errorf("network: %q must be %s or %s", c.Network, NetworkMainnet, NetworkTestnet)
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir: must not be empty")
	}
	if err := c.RewardsConfig().Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging: unknown level %q", c.Logging.Level)
	}
	if c.Telemetry.Traces && strings.TrimSpace(c.Telemetry.Endpoint) == "" {
		return fmt.Errorf("telemetry: endpoint required when traces are enabled")
	}
	if c.Logging.MaxSizeMB < 0 || c.Logging.MaxBackups < 0 || c.Logging.MaxAgeDays < 0 {
		return fmt.Errorf("logging: rotation limits must not be negative")
	}
	return nil
}
