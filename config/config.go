package config

import (
	"fmt"
	"sync"

	"bankroll/domain/entities"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

// Config holds all application configuration. It is loaded once at
// process start, validated, and treated as immutable afterwards.
type Config struct {
	// Database configuration
	DatabaseURL  string `envconfig:"DATABASE_URL"`
	DatabaseName string `envconfig:"DATABASE_NAME" default:"bankroll"`

	// Logging
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Staking configuration
	StakingAPR      float64 `envconfig:"STAKING_APR" default:"12"`
	StakingTermDays int     `envconfig:"STAKING_TERM_DAYS" default:"30"`
	StakingMinimum  string  `envconfig:"STAKING_MINIMUM" default:"10"`
	StakingMaximum  string  `envconfig:"STAKING_MAXIMUM" default:"100000"`

	// Spin configuration. The weight table itself is fixed in code; only
	// the default stake bounds come from the environment.
	SpinMinimumStake string `envconfig:"SPIN_MINIMUM_STAKE" default:"1"`

	// Admin user IDs allowed to cancel other users' wagers.
	AdminUserIDs []int64 `envconfig:"ADMIN_USER_IDS"`

	// Environment: "development" or "production"
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Parsed decimal forms, populated by load().
	stakingMin decimal.Decimal
	stakingMax decimal.Decimal
	spinMin    decimal.Decimal
	spinTable  entities.SpinTable
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// Set replaces the global instance. Test use only.
func Set(cfg *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = cfg
}

// load loads configuration from environment variables and validates the
// startup invariants.
func load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("BANKROLL", &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// finalize parses decimal fields, installs the spin table and validates
// every configuration invariant. A failure here is startup-fatal.
func (c *Config) finalize() error {
	var err error
	if c.stakingMin, err = decimal.NewFromString(c.StakingMinimum); err != nil {
		return fmt.Errorf("invalid STAKING_MINIMUM %q: %w", c.StakingMinimum, err)
	}
	if c.stakingMax, err = decimal.NewFromString(c.StakingMaximum); err != nil {
		return fmt.Errorf("invalid STAKING_MAXIMUM %q: %w", c.StakingMaximum, err)
	}
	if c.spinMin, err = decimal.NewFromString(c.SpinMinimumStake); err != nil {
		return fmt.Errorf("invalid SPIN_MINIMUM_STAKE %q: %w", c.SpinMinimumStake, err)
	}
	c.spinTable = entities.DefaultSpinTable()
	return c.Validate()
}

// Validate enforces configuration invariants. The spin weight table must
// sum to the normalizing constant; the process refuses to start otherwise.
func (c *Config) Validate() error {
	if err := c.spinTable.Validate(); err != nil {
		return fmt.Errorf("spin table: %w", err)
	}
	if c.StakingAPR <= 0 {
		return fmt.Errorf("staking APR must be positive, got %v", c.StakingAPR)
	}
	if c.StakingTermDays <= 0 {
		return fmt.Errorf("staking term days must be positive, got %d", c.StakingTermDays)
	}
	if c.stakingMin.IsNegative() || c.stakingMax.LessThan(c.stakingMin) {
		return fmt.Errorf("staking bounds invalid: min=%s max=%s", c.stakingMin, c.stakingMax)
	}
	return nil
}

// StakingMin returns the minimum stake amount.
func (c *Config) StakingMin() decimal.Decimal { return c.stakingMin }

// StakingMax returns the maximum stake amount.
func (c *Config) StakingMax() decimal.Decimal { return c.stakingMax }

// SpinMin returns the minimum spin stake.
func (c *Config) SpinMin() decimal.Decimal { return c.spinMin }

// SpinTable returns the validated weighted outcome table.
func (c *Config) SpinTable() entities.SpinTable { return c.spinTable }

// APRDecimal returns the staking APR as a decimal.
func (c *Config) APRDecimal() decimal.Decimal { return decimal.NewFromFloat(c.StakingAPR) }

// IsAdmin reports whether a user ID is configured as an administrator.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.AdminUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// NewTestConfig returns a config with defaults suitable for tests.
func NewTestConfig() *Config {
	cfg := &Config{
		DatabaseName:     "bankroll_test",
		LogLevel:         "debug",
		StakingAPR:       12,
		StakingTermDays:  30,
		StakingMinimum:   "10",
		StakingMaximum:   "100000",
		SpinMinimumStake: "1",
		Environment:      "test",
	}
	if err := cfg.finalize(); err != nil {
		panic(fmt.Sprintf("test config invalid: %v", err))
	}
	return cfg
}
