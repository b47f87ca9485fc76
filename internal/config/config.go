package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Log       LogConfig `mapstructure:"log"`
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Tracing   TracingConfig `mapstructure:"tracing"`
	Redis     RedisConfig
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	Email     EmailConfig     `mapstructure:"email"`
	SMS       SMSConfig       `mapstructure:"sms"`
	Wallet    WalletConfig    `mapstructure:"wallet"`
	Progress  ProgressConfig  `mapstructure:"progress"`
	Admin     AdminConfig     `mapstructure:"admin"`

	// set from command line flags, never from the file
	ForceMigrate bool `mapstructure:"-"`
	MigrateOnly  bool `mapstructure:"-"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

type ServerConfig struct {
	Name string
	Port string
	Mode string
}

// LogConfig controls the rotated JSON log file. Level overrides the level
// implied by the server mode when set.
type LogConfig struct {
	Level      string `mapstructure:"level"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
}

type DatabaseConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	ExpireTime time.Duration `mapstructure:"expire_hours"`
}

type StorageConfig struct {
	Type          string `mapstructure:"type"`
	LocalPath     string `mapstructure:"local_path"`
	MinioEndpoint string `mapstructure:"minio_endpoint"`
	MinioAccessID string `mapstructure:"minio_access_key"`
	MinioSecret   string `mapstructure:"minio_secret_key"`
	MinioBucket   string `mapstructure:"minio_bucket"`
	OSSEndpoint   string `mapstructure:"oss_endpoint"`
	OSSAccessKey  string `mapstructure:"oss_access_key"`
	OSSSecretKey  string `mapstructure:"oss_secret_key"`
	OSSBucket     string `mapstructure:"oss_bucket"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type RedisConfig struct {
	Host               string
	Port               int
	Password           string
	DB                 int
	PoolSize           int `mapstructure:"pool_size"`
	MinIdleConns       int `mapstructure:"min_idle_conns"`
	DialTimeoutSeconds int `mapstructure:"dial_timeout_seconds"`
}

// PaymentConfig selects the gateway used for mobile-money payments.
// Gateway is "paynow" or "midtrans".
type PaymentConfig struct {
	Gateway  string         `mapstructure:"gateway"`
	Paynow   PaynowConfig   `mapstructure:"paynow"`
	Midtrans MidtransConfig `mapstructure:"midtrans"`
}

type PaynowConfig struct {
	IntegrationID  string `mapstructure:"integration_id"`
	IntegrationKey string `mapstructure:"integration_key"`
	BaseURL        string `mapstructure:"base_url"`
	ReturnURL      string `mapstructure:"return_url"`
	ResultURL      string `mapstructure:"result_url"`
	AuthEmail      string `mapstructure:"auth_email"`
}

type MidtransConfig struct {
	ServerKey  string `mapstructure:"server_key"`
	Production bool   `mapstructure:"production"`
}

type EmailConfig struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromAddress    string `mapstructure:"from_address"`
	FromName       string `mapstructure:"from_name"`
}

type SMSConfig struct {
	TwilioAccountSID string `mapstructure:"twilio_account_sid"`
	TwilioAuthToken  string `mapstructure:"twilio_auth_token"`
	VerifyServiceSID string `mapstructure:"verify_service_sid"`
}

type WalletConfig struct {
	// RefundExpiredWithdrawals credits the amount of a pending withdrawal back
	// when the expiry sweep marks it expired.
	RefundExpiredWithdrawals bool   `mapstructure:"refund_expired_withdrawals"`
	DefaultCurrency          string `mapstructure:"default_currency"`
}

type ProgressConfig struct {
	StaleAfterDays int `mapstructure:"stale_after_days"`
}

// AdminConfig seeds the first main admin on an empty database.
type AdminConfig struct {
	BootstrapEmail    string `mapstructure:"bootstrap_email"`
	BootstrapPassword string `mapstructure:"bootstrap_password"`
}

func LoadConfig(path string) (*Config, error) {
	// .env is optional; real environment variables win over it
	_ = godotenv.Load()

	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("LEARNING")
	viper.AutomaticEnv()

	viper.SetDefault("server.name", "learning-platform")
	viper.SetDefault("log.file", "logs/app.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 5)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("redis.pool_size", 50)
	viper.SetDefault("redis.min_idle_conns", 5)
	viper.SetDefault("redis.dial_timeout_seconds", 5)
	viper.SetDefault("wallet.default_currency", "USD")
	viper.SetDefault("progress.stale_after_days", 7)
	viper.SetDefault("payment.gateway", "paynow")
	viper.SetDefault("payment.paynow.base_url", "https://www.paynow.co.zw/interface")

	// Database
	viper.BindEnv("database.host", "DATABASE_HOST")
	viper.BindEnv("database.port", "DATABASE_PORT")
	viper.BindEnv("database.user", "DATABASE_USER")
	viper.BindEnv("database.password", "DATABASE_PASSWORD")
	viper.BindEnv("database.dbname", "DATABASE_NAME")

	// JWT
	viper.BindEnv("jwt.secret", "JWT_SECRET")

	// Redis
	viper.BindEnv("redis.host", "REDIS_HOST")
	viper.BindEnv("redis.port", "REDIS_PORT")
	viper.BindEnv("redis.password", "REDIS_PASSWORD")

	// Server
	viper.BindEnv("server.mode", "SERVER_MODE")
	viper.BindEnv("log.level", "LOG_LEVEL")

	// Storage
	viper.BindEnv("storage.type", "STORAGE_TYPE")
	viper.BindEnv("storage.oss_endpoint", "OSS_ENDPOINT")
	viper.BindEnv("storage.oss_access_key", "OSS_ACCESS_KEY")
	viper.BindEnv("storage.oss_secret_key", "OSS_SECRET_KEY")
	viper.BindEnv("storage.oss_bucket", "OSS_BUCKET")
	viper.BindEnv("storage.minio_endpoint", "MINIO_ENDPOINT")
	viper.BindEnv("storage.minio_access_key", "MINIO_ACCESS_KEY")
	viper.BindEnv("storage.minio_secret_key", "MINIO_SECRET_KEY")
	viper.BindEnv("storage.minio_bucket", "MINIO_BUCKET")

	// Tracing
	viper.BindEnv("tracing.enabled", "TRACING_ENABLED")
	viper.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	// Payment gateways
	viper.BindEnv("payment.gateway", "PAYMENT_GATEWAY")
	viper.BindEnv("payment.paynow.integration_id", "PAYNOW_INTEGRATION_ID")
	viper.BindEnv("payment.paynow.integration_key", "PAYNOW_INTEGRATION_KEY")
	viper.BindEnv("payment.paynow.return_url", "PAYNOW_RETURN_URL")
	viper.BindEnv("payment.paynow.result_url", "PAYNOW_RESULT_URL")
	viper.BindEnv("payment.midtrans.server_key", "MIDTRANS_SERVER_KEY")

	// Email / SMS
	viper.BindEnv("email.sendgrid_api_key", "SENDGRID_API_KEY")
	viper.BindEnv("email.from_address", "EMAIL_FROM")
	viper.BindEnv("sms.twilio_account_sid", "TWILIO_ACCOUNT_SID")
	viper.BindEnv("sms.twilio_auth_token", "TWILIO_AUTH_TOKEN")
	viper.BindEnv("sms.verify_service_sid", "TWILIO_VERIFY_SERVICE_SID")

	// Bootstrap admin
	viper.BindEnv("admin.bootstrap_email", "ADMIN_EMAIL")
	viper.BindEnv("admin.bootstrap_password", "ADMIN_PASSWORD")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.JWT.ExpireTime = cfg.JWT.ExpireTime * time.Hour

	if cfg.Server.Mode == "release" && len(cfg.JWT.Secret) < 32 {
		return nil, fmt.Errorf("JWT secret is too short (%d chars), must be at least 32 characters in release mode", len(cfg.JWT.Secret))
	}

	if cfg.Payment.Gateway != "paynow" && cfg.Payment.Gateway != "midtrans" {
		return nil, fmt.Errorf("unknown payment gateway %q", cfg.Payment.Gateway)
	}

	if cfg.Storage.Type == "local" {
		if _, err := os.Stat(cfg.Storage.LocalPath); os.IsNotExist(err) {
			os.MkdirAll(cfg.Storage.LocalPath, 0755)
		}
	}

	return &cfg, nil
}
