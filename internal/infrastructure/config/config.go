package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/openlms/backend/internal/domain/loan"
)

// Config holds all application configuration
type Config struct {
	App        AppConfig
	Log        LogConfig
	Allocation AllocationConfig
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AllocationConfig holds the repayment strategy selection and the rule set
// the advanced rule-based strategy resolves allocation orders from.
type AllocationConfig struct {
	Strategy string       `mapstructure:"strategy" validate:"required"`
	Rules    []RuleConfig `mapstructure:"rules" validate:"required,min=1,dive"`
}

// RuleConfig is one allocation rule as written in the configuration file.
// Order entries use the "DUE_TYPE:COMPONENT" text form, e.g. "DUE:INTEREST".
type RuleConfig struct {
	TransactionType       string   `mapstructure:"transaction_type" validate:"required"`
	Order                 []string `mapstructure:"order" validate:"required,min=1,dive,required"`
	FutureInstallmentRule string   `mapstructure:"future_installment_rule" validate:"required"`
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with LMS_ prefix (e.g., LMS_LOG_LEVEL)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("LMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Allocation: AllocationConfig{
			Strategy: v.GetString("allocation.strategy"),
		},
	}
	if err := v.UnmarshalKey("allocation.rules", &cfg.Allocation.Rules); err != nil {
		return nil, fmt.Errorf("error parsing allocation rules: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "lms-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Allocation.Strategy == "" {
		cfg.Allocation.Strategy = "due-date-respective"
	}
	if len(cfg.Allocation.Rules) == 0 {
		cfg.Allocation.Rules = DefaultRules()
	}
}

// DefaultRules returns the built-in DEFAULT allocation rule: overdue amounts
// first, then due, then early payments, penalties and fees ahead of
// principal and interest within each bucket.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{
			TransactionType: loan.DefaultRuleKey,
			Order: []string{
				"PAST_DUE:PENALTY", "PAST_DUE:FEE", "PAST_DUE:PRINCIPAL", "PAST_DUE:INTEREST",
				"DUE:PENALTY", "DUE:FEE", "DUE:PRINCIPAL", "DUE:INTEREST",
				"IN_ADVANCE:PENALTY", "IN_ADVANCE:FEE", "IN_ADVANCE:PRINCIPAL", "IN_ADVANCE:INTEREST",
			},
			FutureInstallmentRule: loan.FutureInstallmentNext.String(),
		},
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	// Structural checks passed; parse the rules to surface semantic errors
	// at load time rather than on first allocation.
	if _, err := c.Allocation.ToRules(); err != nil {
		return err
	}
	return nil
}

// ToRules converts the configured rules into their domain form and validates
// the set, including the mandatory DEFAULT entry.
func (a *AllocationConfig) ToRules() ([]loan.PaymentAllocationRule, error) {
	rules := make([]loan.PaymentAllocationRule, 0, len(a.Rules))
	for _, rc := range a.Rules {
		order := make([]loan.AllocationType, 0, len(rc.Order))
		for _, entry := range rc.Order {
			at, err := loan.ParseAllocationType(entry)
			if err != nil {
				return nil, err
			}
			order = append(order, at)
		}
		rules = append(rules, loan.PaymentAllocationRule{
			TransactionType:       strings.ToUpper(strings.TrimSpace(rc.TransactionType)),
			Order:                 order,
			FutureInstallmentRule: loan.FutureInstallmentRule(strings.ToUpper(strings.TrimSpace(rc.FutureInstallmentRule))),
		})
	}
	if err := loan.ValidateRuleSet(rules); err != nil {
		return nil, err
	}
	return rules, nil
}
