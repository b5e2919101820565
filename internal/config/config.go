package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type BotConfig struct {
	Token    string  `yaml:"token"`
	Username string  `yaml:"username"`
	Workers  int     `yaml:"workers"` // polling workers
	AdminIDs []int64 `yaml:"admin_ids"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type MongoConfig struct {
	URI        string `yaml:"uri"`
	Database   string `yaml:"database"`
	Collection string `yaml:"collection"`
}

type PostgresConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	StateTTL time.Duration `yaml:"state_ttl"`
}

type AIConfig struct {
	OpenAIKey string `yaml:"openai_key"`
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
}

type YooKassaConfig struct {
	ShopID    string `yaml:"shop_id"`
	SecretKey string `yaml:"secret_key"`
	ReturnURL string `yaml:"return_url"`
}

type SubscriptionConfig struct {
	DurationDays   int               `yaml:"duration_days"`
	WarnBeforeDays int               `yaml:"warn_before_days"`
	// Prices are decimal strings in the gateway's minor-unit-free format,
	// keyed by tariff name, e.g. basic: "149.00".
	Prices   map[string]string `yaml:"prices"`
	Currency string            `yaml:"currency"`
}

type MonitorConfig struct {
	PendingTTL   time.Duration `yaml:"pending_ttl"`
	BusyInterval time.Duration `yaml:"busy_interval"`
	IdleInterval time.Duration `yaml:"idle_interval"`
}

type SchedulerConfig struct {
	PaymentCheckEvery time.Duration `yaml:"payment_check_every"`
	DailySweepHour    int           `yaml:"daily_sweep_hour"`
}

type AdminConfig struct {
	Port      int           `yaml:"port"`
	APIKey    string        `yaml:"api_key"`
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type Config struct {
	Bot          BotConfig          `yaml:"bot"`
	Log          LogConfig          `yaml:"log"`
	Mongo        MongoConfig        `yaml:"mongo"`
	Postgres     PostgresConfig     `yaml:"postgres"`
	Redis        RedisConfig        `yaml:"redis"`
	AI           AIConfig           `yaml:"ai"`
	YooKassa     YooKassaConfig     `yaml:"yookassa"`
	Subscription SubscriptionConfig `yaml:"subscription"`
	Monitor      MonitorConfig      `yaml:"monitor"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Admin        AdminConfig        `yaml:"admin"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Bot.Workers <= 0 {
		cfg.Bot.Workers = 8
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Redis.StateTTL <= 0 {
		cfg.Redis.StateTTL = 15 * time.Minute
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = "gpt-4o"
	}
	if cfg.AI.BaseURL == "" {
		cfg.AI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Subscription.DurationDays <= 0 {
		cfg.Subscription.DurationDays = 30
	}
	if cfg.Subscription.WarnBeforeDays <= 0 {
		cfg.Subscription.WarnBeforeDays = 3
	}
	if cfg.Subscription.Currency == "" {
		cfg.Subscription.Currency = "USD"
	}
	if cfg.Monitor.PendingTTL <= 0 {
		cfg.Monitor.PendingTTL = 10 * time.Minute
	}
	if cfg.Monitor.BusyInterval <= 0 {
		cfg.Monitor.BusyInterval = 15 * time.Second
	}
	if cfg.Monitor.IdleInterval <= 0 {
		cfg.Monitor.IdleInterval = 60 * time.Second
	}
	if cfg.Scheduler.PaymentCheckEvery <= 0 {
		cfg.Scheduler.PaymentCheckEvery = 3 * time.Minute
	}
	if cfg.Scheduler.DailySweepHour < 0 || cfg.Scheduler.DailySweepHour > 23 {
		cfg.Scheduler.DailySweepHour = 12
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 30 * time.Minute
	}

	// Minimal validation
	if cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is required")
	}
	if cfg.Mongo.URI == "" {
		return nil, errors.New("mongo.uri is required")
	}
	if cfg.Postgres.URL == "" {
		return nil, errors.New("postgres.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.YooKassa.ShopID == "" || cfg.YooKassa.SecretKey == "" {
		return nil, errors.New("yookassa.shop_id and yookassa.secret_key are required")
	}
	if len(cfg.Subscription.Prices) == 0 {
		return nil, errors.New("subscription.prices must list at least one tariff")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
