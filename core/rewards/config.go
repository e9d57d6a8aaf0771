package rewards

import "fmt"

const (
	// DefaultMaturity is the number of blocks a scheduled reward waits
	// before it can be paid.
	DefaultMaturity uint64 = 100
	// DefaultPoisonCommissionPercent is the share of a poisoned miner's
	// coinbase paid to the reporter.
	DefaultPoisonCommissionPercent uint64 = 5
)

// Config parameterises reward settlement.
type Config struct {
	Maturity                uint64
	PoisonCommissionPercent uint64
	Mainnet                 bool
}

// DefaultConfig returns the consensus defaults.
func DefaultConfig() Config {
	return Config{
		Maturity:                DefaultMaturity,
		PoisonCommissionPercent: DefaultPoisonCommissionPercent,
	}
}

// Validate ensures the configuration is internally consistent.
func (c Config) Validate() error {
	if c.Maturity == 0 {
		return fmt.Errorf("rewards: maturity must be positive")
	}
	if c.PoisonCommissionPercent > 100 {
		return fmt.Errorf("rewards: poison commission must not exceed 100 percent")
	}
	return nil
}
