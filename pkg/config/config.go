package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// placeholderOpenAIKey is what the sample .env ships with; it means "not configured".
const placeholderOpenAIKey = "your-openai-api-key-here"

type ServerConfig struct {
	Port        string `yaml:"port"`
	FrontendURL string `yaml:"frontend_url"`
	JWTSecret   string `yaml:"jwt_secret"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type PricingConfig struct {
	FreeShippingThreshold float64 `yaml:"free_shipping_threshold"`
	FlatShippingRate      float64 `yaml:"flat_shipping_rate"`
	TaxRate               float64 `yaml:"tax_rate"`
}

type AIConfig struct {
	APIKey   string        `yaml:"api_key"`
	BaseURL  string        `yaml:"base_url"`
	Model    string        `yaml:"model"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// Enabled reports whether a text-generation backend is configured.
func (a AIConfig) Enabled() bool {
	key := strings.TrimSpace(a.APIKey)
	return key != "" && key != placeholderOpenAIKey
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
}

type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
}

// DiscoveryConfig controls the UDP announcement that lets CLI clients find the server on a LAN.
type DiscoveryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Interval time.Duration `yaml:"interval"`
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	Pricing   PricingConfig   `yaml:"pricing"`
	AI        AIConfig        `yaml:"ai"`
	Redis     RedisConfig     `yaml:"redis"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Discovery DiscoveryConfig `yaml:"discovery"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:        "5000",
			FrontendURL: "http://localhost:3000",
		},
		Database: DatabaseConfig{Path: "./data/litverse.db"},
		Logging:  LoggingConfig{Level: "info", Format: "text"},
		Pricing: PricingConfig{
			FreeShippingThreshold: 50.00,
			FlatShippingRate:      5.99,
			TaxRate:               0.08,
		},
		AI: AIConfig{
			BaseURL:  "https://api.openai.com/v1",
			Model:    "gpt-4",
			Timeout:  15 * time.Second,
			CacheTTL: 10 * time.Minute,
		},
		RateLimit: RateLimitConfig{Requests: 100, Window: 15 * time.Minute},
		Discovery: DiscoveryConfig{Addr: "255.255.255.255:9099", Interval: 5 * time.Second},
	}
}

// Load reads path (if it exists) over the defaults and then applies environment overrides.
// An empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnvOrDefault("API_PORT", getEnvOrDefault("PORT", cfg.Server.Port))
	cfg.Server.FrontendURL = getEnvOrDefault("FRONTEND_URL", getEnvOrDefault("CLIENT_URL", cfg.Server.FrontendURL))
	cfg.Server.JWTSecret = getEnvOrDefault("JWT_SECRET", cfg.Server.JWTSecret)
	cfg.Database.Path = getEnvOrDefault("DB_PATH", cfg.Database.Path)
	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnvOrDefault("LOG_FORMAT", cfg.Logging.Format)

	cfg.Pricing.FreeShippingThreshold = GetEnvFloat("FREE_SHIPPING_THRESHOLD", cfg.Pricing.FreeShippingThreshold)
	cfg.Pricing.FlatShippingRate = GetEnvFloat("FLAT_SHIPPING_RATE", cfg.Pricing.FlatShippingRate)
	cfg.Pricing.TaxRate = GetEnvFloat("TAX_RATE", cfg.Pricing.TaxRate)

	cfg.AI.APIKey = getEnvOrDefault("OPENAI_API_KEY", cfg.AI.APIKey)
	cfg.AI.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", cfg.AI.BaseURL)
	cfg.AI.Model = getEnvOrDefault("OPENAI_MODEL", cfg.AI.Model)
	cfg.AI.Timeout = GetEnvDuration("AI_TIMEOUT", cfg.AI.Timeout)

	cfg.Redis.Addr = getEnvOrDefault("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.RateLimit.Requests = GetEnvInt("RATE_LIMIT_REQUESTS", cfg.RateLimit.Requests)
	cfg.RateLimit.Window = GetEnvDuration("RATE_LIMIT_WINDOW", cfg.RateLimit.Window)

	cfg.Discovery.Enabled = GetEnvBool("DISCOVERY_ENABLED", cfg.Discovery.Enabled)
	cfg.Discovery.Addr = getEnvOrDefault("DISCOVERY_ADDR", cfg.Discovery.Addr)
}

func (c Config) Validate() error {
	if c.Pricing.FreeShippingThreshold < 0 || c.Pricing.FlatShippingRate < 0 {
		return errors.New("pricing: shipping values must be non-negative")
	}
	if c.Pricing.TaxRate < 0 || c.Pricing.TaxRate > 1 {
		return errors.New("pricing: tax rate must be between 0 and 1")
	}
	if c.AI.Timeout <= 0 {
		return errors.New("ai: timeout must be positive")
	}
	if c.RateLimit.Requests < 0 || c.RateLimit.Window < 0 {
		return errors.New("rate_limit: values must be non-negative")
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func GetEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func GetEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(val)); err == nil {
			return b
		}
	}
	return defaultVal
}

func GetEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func GetEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			return d
		}
	}
	return defaultVal
}
