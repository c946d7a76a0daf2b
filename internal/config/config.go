package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// OpenAIConfig points at the generation backend.
type OpenAIConfig struct {
	BaseURL     string `yaml:"baseURL"`
	APIKey      string `yaml:"apiKey"`
	TextModel   string `yaml:"textModel"`
	ImageModel  string `yaml:"imageModel"`
	SpeechModel string `yaml:"speechModel"`
	Voice       string `yaml:"voice"`
}

// ObjectStoreConfig points at the S3-compatible object store.
type ObjectStoreConfig struct {
	Endpoint      string `yaml:"endpoint"`
	Region        string `yaml:"region"`
	AccessKey     string `yaml:"accessKey"`
	SecretKey     string `yaml:"secretKey"`
	Bucket        string `yaml:"bucket"`
	UseSSL        bool   `yaml:"useSSL"`
	PublicBaseURL string `yaml:"publicBaseURL"`
}

// FileConfig represents configuration loaded from YAML with environment
// variable overrides for secrets and deploy-specific values.
type FileConfig struct {
	Port            string            `yaml:"port"`
	DatabaseURL     string            `yaml:"databaseURL"`
	RedisAddr       string            `yaml:"redisAddr"`
	RedisPassword   string            `yaml:"redisPassword"`
	JWTAccessSecret string            `yaml:"jwtAccessSecret"`
	AccessTTL       string            `yaml:"accessTTL"`
	RefreshTTL      string            `yaml:"refreshTTL"`
	LogLevel        string            `yaml:"logLevel"`
	OpenAI          OpenAIConfig      `yaml:"openai"`
	ObjectStore     ObjectStoreConfig `yaml:"objectStore"`

	AuthRateLimitPerMinute int `yaml:"authRateLimitPerMinute"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("JWT_ACCESS_SECRET"); v != "" {
		cfg.JWTAccessSecret = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAI.BaseURL = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.ObjectStore.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.ObjectStore.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.ObjectStore.SecretKey = v
	}
	if v := os.Getenv("AWS_S3_BUCKET"); v != "" {
		cfg.ObjectStore.Bucket = v
	}
	if v := os.Getenv("AUTH_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.AuthRateLimitPerMinute = n
		}
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if cfg.DatabaseURL == "" {
		return errors.New("config: databaseURL is required (set DATABASE_URL)")
	}
	if cfg.JWTAccessSecret == "" {
		return errors.New("config: jwtAccessSecret is required (set JWT_ACCESS_SECRET)")
	}
	if cfg.OpenAI.APIKey == "" {
		return errors.New("config: openai.apiKey is required (set OPENAI_API_KEY)")
	}
	if cfg.ObjectStore.Endpoint == "" || cfg.ObjectStore.Bucket == "" {
		return errors.New("config: objectStore.endpoint and objectStore.bucket are required")
	}
	if cfg.AuthRateLimitPerMinute < 0 {
		return errors.New("config: authRateLimitPerMinute must be >= 0")
	}
	return nil
}

// ParseAccessTTL parses the optional access token TTL, defaulting to 5m.
func ParseAccessTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 5 * time.Minute, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid accessTTL duration: %w", err)
	}
	return dur, nil
}

// ParseRefreshTTL parses the optional refresh token TTL, defaulting to 30 days.
func ParseRefreshTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 30 * 24 * time.Hour, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid refreshTTL duration: %w", err)
	}
	return dur, nil
}
