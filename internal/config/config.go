package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ispops/billing/internal/types"
	"github.com/spf13/viper"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig   `validate:"required"`
	Billing    BillingConfig    `validate:"required"`
	Renewal    RenewalConfig    `validate:"required"`
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host                   string `validate:"required"`
	Port                   int    `validate:"required"`
	User                   string `validate:"required"`
	Password               string
	DBName                 string `mapstructure:"dbname" validate:"required"`
	SSLMode                string `mapstructure:"sslmode"`
	MaxOpenConns           int    `mapstructure:"max_open_conns"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes"`
}

// BillingConfig tunes the invoice generator and the value corrector
type BillingConfig struct {
	// MaxAllocationRetries bounds how many times an external number is re-allocated inside the
	// same transaction after a uniqueness conflict
	MaxAllocationRetries    uint64        `mapstructure:"max_allocation_retries" validate:"min=0,max=10"`
	AllocationRetryInterval time.Duration `mapstructure:"allocation_retry_interval"`
}

// RenewalConfig tunes the batch renewal job
type RenewalConfig struct {
	Concurrency       int      `mapstructure:"concurrency" validate:"min=1,max=64"`
	MonthsPerInvoice  int      `mapstructure:"months_per_invoice" validate:"min=1,max=12"`
	PaymentProfileIDs []string `mapstructure:"payment_profile_ids"`
	TenantID          string   `mapstructure:"tenant_id"`

	// StopAtCancellation caps a cancelled contract's renewal at the invoice whose period holds
	// the cancellation date instead of billing the whole term
	StopAtCancellation bool `mapstructure:"stop_at_cancellation"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"min=0,max=1"`
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	// Modify config paths to ensure config.yaml is found
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/ispbilling")

	// Set up environment variables support
	v.SetEnvPrefix("ISPBILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading config file: %v\n", err)
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	} else {
		fmt.Printf("Using config file: %s\n", v.ConfigFileUsed())
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", types.ModeLocal)
	v.SetDefault("logging.level", types.LogLevelInfo)
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "billing")
	v.SetDefault("postgres.dbname", "billing")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("postgres.max_open_conns", 10)
	v.SetDefault("postgres.max_idle_conns", 5)
	v.SetDefault("postgres.conn_max_lifetime_minutes", 60)
	v.SetDefault("billing.max_allocation_retries", 3)
	v.SetDefault("billing.allocation_retry_interval", 10*time.Millisecond)
	v.SetDefault("renewal.concurrency", 4)
	v.SetDefault("renewal.months_per_invoice", 1)
	v.SetDefault("renewal.tenant_id", types.DefaultTenantID)
	v.SetDefault("renewal.stop_at_cancellation", false)
	v.SetDefault("sentry.sample_rate", 1.0)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or tests that never touch postgres
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Billing: BillingConfig{
			MaxAllocationRetries:    3,
			AllocationRetryInterval: 0,
		},
		Renewal: RenewalConfig{
			Concurrency:      4,
			MonthsPerInvoice: 1,
		},
	}
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s dbname=%s host=%s port=%d sslmode=%s",
		c.User,
		c.Password,
		c.DBName,
		c.Host,
		c.Port,
		c.SSLMode,
	)
}

// GetMigrationURL returns the postgres URL form expected by golang-migrate
func (c PostgresConfig) GetMigrationURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.DBName,
		c.SSLMode,
	)
}
