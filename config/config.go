package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	Log       LogConfig       `mapstructure:"log"`
	Amigo     AmigoConfig     `mapstructure:"amigo"`
	Paystack  PaystackConfig  `mapstructure:"paystack"`
	Monnify   MonnifyConfig   `mapstructure:"monnify"`
	Fraud     FraudConfig     `mapstructure:"fraud"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Features  FeatureConfig   `mapstructure:"features"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret        string        `mapstructure:"secret"`
	Expiry        time.Duration `mapstructure:"expiry"`
	RefreshExpiry time.Duration `mapstructure:"refresh_expiry"`
	Issuer        string        `mapstructure:"issuer"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// AmigoConfig configures the data fulfillment provider.
type AmigoConfig struct {
	BaseURL          string        `mapstructure:"base_url"`
	APIKey           string        `mapstructure:"api_key"`
	Timeout          time.Duration `mapstructure:"timeout"`
	RetryCount       int           `mapstructure:"retry_count"`
	UseStaticCatalog bool          `mapstructure:"use_static_catalog"`
}

type PaystackConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// SigningSecret is the webhook secret, falling back to the API secret key.
func (p PaystackConfig) SigningSecret() string {
	if p.WebhookSecret != "" {
		return p.WebhookSecret
	}
	return p.SecretKey
}

type MonnifyConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	APIKey        string `mapstructure:"api_key"`
	SecretKey     string `mapstructure:"secret_key"`
	ContractCode  string `mapstructure:"contract_code"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

// SigningSecret is the webhook secret, falling back to the API secret key.
func (m MonnifyConfig) SigningSecret() string {
	if m.WebhookSecret != "" {
		return m.WebhookSecret
	}
	return m.SecretKey
}

// FraudConfig holds the static purchase limits. Amounts are NGN strings so
// they are parsed exactly.
type FraudConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	SingleTxLimit   string `mapstructure:"single_tx_limit"`
	DailyTotalLimit string `mapstructure:"daily_total_limit"`
	DailyCountLimit int    `mapstructure:"daily_count_limit"`
}

// Limits parses the monetary ceilings.
func (f FraudConfig) Limits() (single, dailyTotal decimal.Decimal, err error) {
	single, err = decimal.NewFromString(f.SingleTxLimit)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("fraud.single_tx_limit: %w", err)
	}
	dailyTotal, err = decimal.NewFromString(f.DailyTotalLimit)
	if err != nil {
		return decimal.Zero, decimal.Zero, fmt.Errorf("fraud.daily_total_limit: %w", err)
	}
	return single, dailyTotal, nil
}

type CacheConfig struct {
	PlansTTL time.Duration `mapstructure:"plans_ttl"`
}

// ReconcileConfig controls the background sweep over stale pending transactions.
type ReconcileConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Interval   time.Duration `mapstructure:"interval"`
	StaleAfter time.Duration `mapstructure:"stale_after"`
	BatchSize  int           `mapstructure:"batch_size"`
}

type RateLimitConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// FeatureConfig holds switches resolved once at startup.
type FeatureConfig struct {
	BillsEnabled bool `mapstructure:"bills_enabled"`
}

// Load reads configuration from an optional .env file, a config file and
// environment variables. Environment variables override file values.
// Prefix: VTU_. Nested keys use underscore: VTU_DATABASE_HOST, VTU_PAYSTACK_SECRET_KEY.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "vtu")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.refresh_expiry", "168h")
	v.SetDefault("jwt.issuer", "vtu-backend")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)
	v.SetDefault("amigo.base_url", "https://amigo.ng/api")
	v.SetDefault("amigo.api_key", "")
	v.SetDefault("amigo.timeout", "15s")
	v.SetDefault("amigo.retry_count", 2)
	v.SetDefault("amigo.use_static_catalog", false)
	v.SetDefault("paystack.base_url", "https://api.paystack.co")
	v.SetDefault("paystack.secret_key", "")
	v.SetDefault("paystack.webhook_secret", "")
	v.SetDefault("monnify.base_url", "https://sandbox.monnify.com")
	v.SetDefault("monnify.api_key", "")
	v.SetDefault("monnify.secret_key", "")
	v.SetDefault("monnify.contract_code", "")
	v.SetDefault("monnify.webhook_secret", "")
	v.SetDefault("fraud.enabled", true)
	v.SetDefault("fraud.single_tx_limit", "50000")
	v.SetDefault("fraud.daily_total_limit", "200000")
	v.SetDefault("fraud.daily_count_limit", 50)
	v.SetDefault("cache.plans_ttl", "60s")
	v.SetDefault("reconcile.enabled", false)
	v.SetDefault("reconcile.interval", "5m")
	v.SetDefault("reconcile.stale_after", "30m")
	v.SetDefault("reconcile.batch_size", 100)
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("features.bills_enabled", true)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// VTU_DATABASE_HOST -> database.host
	v.SetEnvPrefix("VTU")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}
