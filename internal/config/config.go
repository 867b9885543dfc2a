package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"rental-backend/internal/logger"
)

type Config struct {
	Server struct {
		Port               int      `mapstructure:"port"`
		CorsAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
		CorsAllowedMethods []string `mapstructure:"cors_allowed_methods"`
		CorsAllowedHeaders []string `mapstructure:"cors_allowed_headers"`
	} `mapstructure:"server"`

	Database struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
		MaxConns int32  `mapstructure:"max_conns"`
	} `mapstructure:"database"`

	JWT struct {
		Secret          string `mapstructure:"secret"`
		ExpirationHours int    `mapstructure:"expiration_hours"`
		Issuer          string `mapstructure:"issuer"`
	} `mapstructure:"jwt"`

	Redis struct {
		Addr     string `mapstructure:"addr"`
		Password string `mapstructure:"password"`
		DB       int    `mapstructure:"db"`
	} `mapstructure:"redis"`

	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`

	Payments struct {
		// stripe, razorpay or mock
		CardGateway string        `mapstructure:"card_gateway"`
		CardTimeout time.Duration `mapstructure:"card_timeout"`
		Currency    string        `mapstructure:"currency"`
	} `mapstructure:"payments"`

	Stripe struct {
		SecretKey string `mapstructure:"secret_key"`
	} `mapstructure:"stripe"`

	Razorpay struct {
		KeyID     string `mapstructure:"key_id"`
		KeySecret string `mapstructure:"key_secret"`
	} `mapstructure:"razorpay"`

	Receipts struct {
		Bucket        string `mapstructure:"bucket"`
		Region        string `mapstructure:"region"`
		Endpoint      string `mapstructure:"endpoint"`
		AccessKey     string `mapstructure:"access_key"`
		SecretKey     string `mapstructure:"secret_key"`
		PublicBaseURL string `mapstructure:"public_base_url"`
		MaxBytes      int64  `mapstructure:"max_bytes"`
	} `mapstructure:"receipts"`

	Locks struct {
		WaitTimeout time.Duration `mapstructure:"wait_timeout"`
		TTL         time.Duration `mapstructure:"ttl"`
	} `mapstructure:"locks"`

	Scheduler struct {
		CompletionCron string `mapstructure:"completion_cron"`
	} `mapstructure:"scheduler"`
}

func Load() *Config {
	log := logger.WithComponent("config")

	// Load .env file if exists (ignore error in production)
	godotenv.Load()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile("configs/config.yaml")

	// Auto bind environment variables
	v.AutomaticEnv()

	// Set sensible defaults (binary works without config file)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_allowed_origins", []string{"*"})
	v.SetDefault("server.cors_allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors_allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("jwt.expiration_hours", 24)
	v.SetDefault("jwt.issuer", "rental-backend")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.name", "rental_db")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("payments.card_gateway", "mock")
	v.SetDefault("payments.card_timeout", 15*time.Second)
	v.SetDefault("payments.currency", "php")
	v.SetDefault("receipts.region", "auto")
	v.SetDefault("receipts.max_bytes", 5<<20)
	v.SetDefault("locks.wait_timeout", 20*time.Second)
	v.SetDefault("locks.ttl", 30*time.Second)
	v.SetDefault("scheduler.completion_cron", "5 0 * * *")

	// Config file is optional
	if err := v.ReadInConfig(); err != nil {
		log.Info("No config file found, using defaults")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		log.Fatalf("config unmarshal error: %v", err)
	}

	applyEnv(&cfg)
	alignLockTimeouts(&cfg)

	if cfg.JWT.Secret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	return &cfg
}

// lockWaitMargin is how much longer than a card charge a booking lock waiter holds on
const lockWaitMargin = 5 * time.Second

// alignLockTimeouts keeps the lock wait above the card timeout, since a card charge holds its
// booking lock for up to CardTimeout, and the Redis TTL above the lock wait.
func alignLockTimeouts(cfg *Config) {
	if cfg.Locks.WaitTimeout <= cfg.Payments.CardTimeout {
		logger.WithComponent("config").Warnf("locks.wait_timeout %s does not exceed payments.card_timeout %s, using %s",
			cfg.Locks.WaitTimeout, cfg.Payments.CardTimeout, cfg.Payments.CardTimeout+lockWaitMargin)
		cfg.Locks.WaitTimeout = cfg.Payments.CardTimeout + lockWaitMargin
	}
	if cfg.Locks.TTL <= cfg.Locks.WaitTimeout {
		cfg.Locks.TTL = 2 * cfg.Locks.WaitTimeout
	}
}

// applyEnv overrides file values with the deployment's environment variables
func applyEnv(cfg *Config) {
	setString(&cfg.Database.Host, "DB_HOST")
	setInt(&cfg.Database.Port, "DB_PORT")
	setString(&cfg.Database.User, "DB_USER")
	setString(&cfg.Database.Password, "DB_PASSWORD")
	setString(&cfg.Database.Name, "DB_NAME")

	if cfg.JWT.Secret == "" || cfg.JWT.Secret == "${JWT_SECRET}" {
		cfg.JWT.Secret = os.Getenv("JWT_SECRET")
	}

	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")

	setString(&cfg.Payments.CardGateway, "CARD_GATEWAY")
	setString(&cfg.Stripe.SecretKey, "STRIPE_SECRET_KEY")
	setString(&cfg.Razorpay.KeyID, "RAZORPAY_KEY_ID")
	setString(&cfg.Razorpay.KeySecret, "RAZORPAY_KEY_SECRET")

	setString(&cfg.Receipts.Bucket, "RECEIPTS_BUCKET")
	setString(&cfg.Receipts.Region, "RECEIPTS_REGION")
	setString(&cfg.Receipts.Endpoint, "RECEIPTS_ENDPOINT")
	setString(&cfg.Receipts.AccessKey, "RECEIPTS_ACCESS_KEY")
	setString(&cfg.Receipts.SecretKey, "RECEIPTS_SECRET_KEY")
	setString(&cfg.Receipts.PublicBaseURL, "RECEIPTS_PUBLIC_BASE_URL")
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func setInt(dst *int, env string) {
	if v := os.Getenv(env); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*dst = n
		}
	}
}
