package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type Config struct {
	Env          string             `mapstructure:"env"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	JWT          JWTConfig          `mapstructure:"jwt"`
	Admin        AdminConfig        `mapstructure:"admin"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Payment      PaymentConfig      `mapstructure:"payment"`
	Email        EmailConfig        `mapstructure:"email"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Google       GoogleConfig       `mapstructure:"google"`
	Dashboard    DashboardConfig    `mapstructure:"dashboard"`
	Notification NotificationConfig `mapstructure:"notification"`
	Log          LogConfig          `mapstructure:"log"`
}

type ServerConfig struct {
	Port           int           `mapstructure:"port"`
	TimeoutSeconds int           `mapstructure:"timeout_seconds"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
}

type DatabaseConfig struct {
	// Driver is postgres or memory.
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Name         string `mapstructure:"name"`
	SSLMode      string `mapstructure:"sslmode"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

// DSN returns a lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// URL returns the postgres:// form used by migrations.
func (c DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type JWTConfig struct {
	Secret            string `mapstructure:"secret"`
	UserExpiryHours   int    `mapstructure:"user_expiry_hours"`
	DoctorExpiryHours int    `mapstructure:"doctor_expiry_hours"`
	AdminExpiryHours  int    `mapstructure:"admin_expiry_hours"`
}

type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	Channel      string        `mapstructure:"channel"`
	MaxRetries   int           `mapstructure:"max_retries"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
}

type CacheConfig struct {
	DoctorListTTL time.Duration `mapstructure:"doctor_list_ttl"`
}

type PaymentConfig struct {
	StripeSecretKey string        `mapstructure:"stripe_secret_key"`
	StripeBaseURL   string        `mapstructure:"stripe_base_url"`
	Currency        string        `mapstructure:"currency"`
	DryRun          bool          `mapstructure:"dry_run"`
	Timeout         time.Duration `mapstructure:"timeout"`
	RejectCancelled bool          `mapstructure:"reject_cancelled"`
}

type EmailConfig struct {
	// Provider is smtp, sendgrid or stub.
	Provider       string        `mapstructure:"provider"`
	FromEmail      string        `mapstructure:"from_email"`
	FromName       string        `mapstructure:"from_name"`
	SMTPHost       string        `mapstructure:"smtp_host"`
	SMTPPort       int           `mapstructure:"smtp_port"`
	SMTPUser       string        `mapstructure:"smtp_user"`
	SMTPPassword   string        `mapstructure:"smtp_password"`
	SendGridAPIKey string        `mapstructure:"sendgrid_api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type StorageConfig struct {
	// Provider is s3 or none.
	Provider      string        `mapstructure:"provider"`
	Bucket        string        `mapstructure:"bucket"`
	Region        string        `mapstructure:"region"`
	Prefix        string        `mapstructure:"prefix"`
	PublicBaseURL string        `mapstructure:"public_base_url"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
}

type GoogleConfig struct {
	ClientID string `mapstructure:"client_id"`
}

type DashboardConfig struct {
	AdminIncludeCancelled  bool `mapstructure:"admin_include_cancelled"`
	DoctorIncludeCancelled bool `mapstructure:"doctor_include_cancelled"`
	LatestLimit            int  `mapstructure:"latest_limit"`
}

type NotificationConfig struct {
	Enabled bool          `mapstructure:"enabled"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Secrets are read only from the environment.
type Secrets struct {
	JWTSecret        string `envconfig:"JWT_SECRET"`
	AdminEmail       string `envconfig:"ADMIN_EMAIL"`
	AdminPassword    string `envconfig:"ADMIN_PASSWORD"`
	StripeSecretKey  string `envconfig:"STRIPE_SECRET_KEY"`
	SMTPPassword     string `envconfig:"SMTP_PASSWORD"`
	SendGridAPIKey   string `envconfig:"SENDGRID_API_KEY"`
	DatabasePassword string `envconfig:"DATABASE_PASSWORD"`
	GoogleClientID   string `envconfig:"GOOGLE_CLIENT_ID"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")

	v.SetDefault("server.port", 4000)
	v.SetDefault("server.timeout_seconds", 30)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 35*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.rate_limit_rps", 20)
	v.SetDefault("server.rate_limit_burst", 40)
	v.SetDefault("server.max_upload_bytes", 5<<20)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "clinic")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)

	v.SetDefault("jwt.user_expiry_hours", 24*7)
	v.SetDefault("jwt.doctor_expiry_hours", 24)
	v.SetDefault("jwt.admin_expiry_hours", 7)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.channel", "appointments")
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.retry_backoff", 100*time.Millisecond)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)

	v.SetDefault("cache.doctor_list_ttl", time.Minute)

	v.SetDefault("payment.currency", "usd")
	v.SetDefault("payment.timeout", 10*time.Second)
	v.SetDefault("payment.reject_cancelled", true)

	v.SetDefault("email.provider", "stub")
	v.SetDefault("email.from_name", "Clinic Management")
	v.SetDefault("email.smtp_host", "smtp.gmail.com")
	v.SetDefault("email.smtp_port", 465)
	v.SetDefault("email.timeout", 10*time.Second)

	v.SetDefault("storage.provider", "none")
	v.SetDefault("storage.prefix", "images")
	v.SetDefault("storage.upload_timeout", 20*time.Second)

	v.SetDefault("dashboard.admin_include_cancelled", true)
	v.SetDefault("dashboard.doctor_include_cancelled", false)
	v.SetDefault("dashboard.latest_limit", 5)

	v.SetDefault("notification.enabled", true)
	v.SetDefault("notification.timeout", 15*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)
}

// LoadConfig reads config.yml (from configFile, or searched in ., ./config
// and /app/config), then overlays environment variables and secrets.
// A missing config file is not an error.
func LoadConfig(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/app/config")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var secrets Secrets
	if err := envconfig.Process("", &secrets); err != nil {
		return nil, fmt.Errorf("failed to read secrets: %w", err)
	}
	cfg.applySecrets(secrets)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applySecrets(s Secrets) {
	override := func(dst *string, val string) {
		if val != "" {
			*dst = val
		}
	}
	override(&c.JWT.Secret, s.JWTSecret)
	override(&c.Admin.Email, s.AdminEmail)
	override(&c.Admin.Password, s.AdminPassword)
	override(&c.Payment.StripeSecretKey, s.StripeSecretKey)
	override(&c.Email.SMTPPassword, s.SMTPPassword)
	override(&c.Email.SendGridAPIKey, s.SendGridAPIKey)
	override(&c.Database.Password, s.DatabasePassword)
	override(&c.Google.ClientID, s.GoogleClientID)
}

// Validate checks the settings that have no safe default.
func (c *Config) Validate() error {
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt secret is required (JWT_SECRET)")
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	switch c.Email.Provider {
	case "smtp", "sendgrid", "stub":
	default:
		return fmt.Errorf("unknown email provider %q", c.Email.Provider)
	}
	if c.Dashboard.LatestLimit <= 0 {
		c.Dashboard.LatestLimit = 5
	}
	return nil
}
