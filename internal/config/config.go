package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/traceroot-ai/sim/internal/types"
)

type Configuration struct {
	Deployment DeploymentConfig `validate:"required"`
	Server     ServerConfig     `validate:"required"`
	Logging    LoggingConfig    `validate:"required"`
	Postgres   PostgresConfig
	Stripe     StripeConfig
	Billing    BillingConfig `validate:"required"`
	Sentry     SentryConfig
}

type DeploymentConfig struct {
	Mode types.RunMode `validate:"required"`
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level types.LogLevel `validate:"required"`
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

type SentryConfig struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

// BillingConfig carries the plan price book and settlement thresholds.
// Amounts are decimal dollars; they are the amounts already covered by the
// base subscription charge, used as the overage baseline.
type BillingConfig struct {
	ProBasePrice               float64 `mapstructure:"pro_base_price"`
	TeamSeatPrice              float64 `mapstructure:"team_seat_price"`
	EnterpriseDefaultSeatPrice float64 `mapstructure:"enterprise_default_seat_price"`
	FreeTierAllowance          float64 `mapstructure:"free_tier_allowance"`
	// PaymentFailureBlockThreshold is the provider attempt count at which
	// all subjects sharing the subscription get billing-blocked.
	PaymentFailureBlockThreshold int64 `mapstructure:"payment_failure_block_threshold"`
}

func (c BillingConfig) ProBase() decimal.Decimal {
	return decimal.NewFromFloat(c.ProBasePrice)
}

func (c BillingConfig) TeamSeat() decimal.Decimal {
	return decimal.NewFromFloat(c.TeamSeatPrice)
}

func (c BillingConfig) EnterpriseDefaultSeat() decimal.Decimal {
	return decimal.NewFromFloat(c.EnterpriseDefaultSeatPrice)
}

func (c BillingConfig) FreeAllowance() decimal.Decimal {
	return decimal.NewFromFloat(c.FreeTierAllowance)
}

func NewConfig() (*Configuration, error) {
	// Load .env if present, actual env vars win
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/sim")

	v.SetEnvPrefix("SIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", string(types.ModeLocal))
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", string(types.LogLevelInfo))
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("billing.pro_base_price", 20)
	v.SetDefault("billing.team_seat_price", 40)
	v.SetDefault("billing.enterprise_default_seat_price", 100)
	v.SetDefault("billing.free_tier_allowance", 10)
	v.SetDefault("billing.payment_failure_block_threshold", 3)
	v.SetDefault("sentry.sample_rate", 0.1)
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// and tests
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: types.ModeLocal},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: types.LogLevelDebug},
		Billing: BillingConfig{
			ProBasePrice:                 20,
			TeamSeatPrice:                40,
			EnterpriseDefaultSeatPrice:   100,
			FreeTierAllowance:            10,
			PaymentFailureBlockThreshold: 3,
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
