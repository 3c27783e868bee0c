package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port           string   `yaml:"port"`
		AllowedOrigins []string `yaml:"allowedOrigins"`
		Timezone       string   `yaml:"timezone"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Auth struct {
		JWTSecret string `yaml:"jwtSecret"`
		TokenTTL  string `yaml:"tokenTTL"`
	} `yaml:"auth"`
	Mongo struct {
		URI      string `yaml:"uri"`
		Database string `yaml:"database"`
	} `yaml:"mongo"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	AI struct {
		Provider    string  `yaml:"provider"`
		Model       string  `yaml:"model"`
		APIKey      string  `yaml:"apiKey"`
		Temperature float64 `yaml:"temperature"`
		MaxTokens   int     `yaml:"maxTokens"`
	} `yaml:"ai"`
	Billing struct {
		SecretKey     string            `yaml:"secretKey"`
		WebhookSecret string            `yaml:"webhookSecret"`
		Prices        map[string]string `yaml:"prices"`
	} `yaml:"billing"`
	Courses struct {
		PresetTopics     []string `yaml:"presetTopics"`
		MaxActive        int      `yaml:"maxActive"`
		FreeLimit        int      `yaml:"freeLimit"`
		SubscriptionTerm string   `yaml:"subscriptionTerm"`
		DefaultLanguage  string   `yaml:"defaultLanguage"`
	} `yaml:"courses"`
}

// Load reads .env (if present), then the YAML file at path (if present), then
// applies environment overrides for secrets and endpoints.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	override(&cfg.Server.Port, "PORT")
	override(&cfg.Server.Timezone, "TZ_NAME")
	override(&cfg.Log.Level, "LOG_LEVEL")
	override(&cfg.Auth.JWTSecret, "JWT_SECRET")
	override(&cfg.Mongo.URI, "MONGO_URI")
	override(&cfg.Mongo.Database, "MONGO_DATABASE")
	override(&cfg.Redis.Addr, "REDIS_ADDR")
	override(&cfg.Redis.Password, "REDIS_PASSWORD")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = n
		}
	}
	override(&cfg.Postgres.URL, "POSTGRES_URL")
	override(&cfg.AI.Provider, "AI_PROVIDER")
	override(&cfg.AI.Model, "AI_MODEL")
	switch cfg.AI.Provider {
	case "anthropic", "claude":
		override(&cfg.AI.APIKey, "ANTHROPIC_API_KEY")
	case "gemini", "google":
		override(&cfg.AI.APIKey, "GEMINI_API_KEY")
	}
	override(&cfg.Billing.SecretKey, "STRIPE_SECRET_KEY")
	override(&cfg.Billing.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
}

func override(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

// Location resolves the configured zone that defines calendar days.
func (c Config) Location() (*time.Location, error) {
	if c.Server.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Server.Timezone)
}
