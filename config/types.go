package config

import (
	"settlechain/core/rewards"
	"settlechain/vm/costs"
)

const (
	NetworkMainnet = "mainnet"
	NetworkTestnet = "testnet"

	DefaultMaturity                = rewards.DefaultMaturity
	DefaultPoisonCommissionPercent = rewards.DefaultPoisonCommissionPercent
)

// Rewards configures the reward settlement engine.
type Rewards struct {
	Maturity                uint64 `toml:"Maturity" yaml:"maturity"`
	PoisonCommissionPercent uint64 `toml:"PoisonCommissionPercent" yaml:"poisonCommissionPercent"`
}

// Costs bounds contract execution. Zero limits are unbounded.
type Costs struct {
	RuntimeLimit uint64 `toml:"RuntimeLimit" yaml:"runtimeLimit"`
	MemoryLimit  uint64 `toml:"MemoryLimit" yaml:"memoryLimit"`
}

// Logging configures the structured logger.
type Logging struct {
	Level      string `toml:"Level" yaml:"level"`
	File       string `toml:"File" yaml:"file"`
	MaxSizeMB  int    `toml:"MaxSizeMB" yaml:"maxSizeMB"`
	MaxBackups int    `toml:"MaxBackups" yaml:"maxBackups"`
	MaxAgeDays int    `toml:"MaxAgeDays" yaml:"maxAgeDays"`
}

// Telemetry configures OTLP trace export for the query API. Traces are off
// unless Traces is set.
type Telemetry struct {
	Traces   bool   `toml:"Traces" yaml:"traces"`
	Endpoint string `toml:"Endpoint" yaml:"endpoint"`
	Insecure bool   `toml:"Insecure" yaml:"insecure"`
	// Headers is a comma-separated key=value list sent with every export.
	Headers string `toml:"Headers" yaml:"headers"`
}

// RewardsConfig converts the section into an engine configuration.
func (c *Config) RewardsConfig() rewards.Config {
	return rewards.Config{
		Maturity:                c.Rewards.Maturity,
		PoisonCommissionPercent: c.Rewards.PoisonCommissionPercent,
		Mainnet:                 c.Mainnet(),
	}
}

// CostLimits converts the section into tracker limits.
func (c *Config) CostLimits() costs.Limits {
	return costs.Limits{Runtime: c.Costs.RuntimeLimit, Memory: c.Costs.MemoryLimit}
}
