// Package config loads service configuration from a .env file, an optional YAML
// file and the environment, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "config.yml"

type Config struct {
	AppTitle    string `yaml:"app_title"`
	ServiceName string `yaml:"service_name"`
	Port        string `yaml:"port"`

	Database   DatabaseConfig   `yaml:"database"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
	Gemini     GeminiConfig     `yaml:"gemini"`
	Retry      RetryConfig      `yaml:"retry"`
	CORS       CORSConfig       `yaml:"cors"`
	Log        LogConfig        `yaml:"log"`
	Auth       AuthConfig       `yaml:"auth"`

	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
	RabbitMQURL     string `yaml:"rabbitmq_url"`
	EnableTelemetry bool   `yaml:"enable_telemetry"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslmode"`
}

// DSN returns the lib/pq connection string.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type ElevenLabsConfig struct {
	APIKey  string        `yaml:"-"`
	URL     string        `yaml:"url"`
	ModelID string        `yaml:"model_id"`
	Timeout time.Duration `yaml:"timeout"`
}

type GeminiConfig struct {
	APIKey  string        `yaml:"-"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
}

type CORSConfig struct {
	AllowedOrigins   []string `yaml:"allowed_origins"`
	AllowMethods     []string `yaml:"allow_methods"`
	AllowHeaders     []string `yaml:"allow_headers"`
	AllowCredentials bool     `yaml:"allow_credentials"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console or ecs
}

// AuthConfig enables bearer-token auth when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `yaml:"-"`
	Issuer    string `yaml:"issuer"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		AppTitle:    "Dentist Voice Agent",
		ServiceName: "voice-intake-service",
		Port:        "8080",
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			Name:    "dental_intake",
			SSLMode: "disable",
		},
		ElevenLabs: ElevenLabsConfig{
			URL:     "https://api.elevenlabs.io/v1/speech-to-text",
			ModelID: "scribe_v1",
			Timeout: 90 * time.Second,
		},
		Gemini: GeminiConfig{
			BaseURL: "https://generativelanguage.googleapis.com",
			Model:   "gemini-2.5-flash",
			Timeout: 60 * time.Second,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseDelay:   time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins:   []string{"http://localhost:5173"},
			AllowMethods:     []string{"*"},
			AllowHeaders:     []string{"*"},
			AllowCredentials: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		MaxUploadBytes: 25 << 20,
	}
}

// Load reads .env (if present), then CONFIG_FILE or config.yml (if present), then
// environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.AppTitle, "BACKEND_APP_TITLE")
	setString(&c.ServiceName, "SERVICE_NAME")
	setString(&c.Port, "PORT")

	setString(&c.Database.URL, "DATABASE_URL")
	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")

	setString(&c.ElevenLabs.APIKey, "ELEVENLABS_API_KEY")
	setString(&c.ElevenLabs.URL, "ELEVENLABS_STT_URL")
	setString(&c.ElevenLabs.ModelID, "ELEVENLABS_MODEL_ID")
	setString(&c.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&c.Gemini.BaseURL, "GEMINI_BASE_URL")
	setString(&c.Gemini.Model, "GEMINI_MODEL")

	setString(&c.Log.Level, "BACKEND_LOG_LEVEL")
	setString(&c.Log.Format, "LOG_FORMAT")
	setString(&c.RabbitMQURL, "RABBITMQ_URL")
	setString(&c.Auth.JWTSecret, "AUTH_JWT_SECRET")
	setString(&c.Auth.Issuer, "AUTH_ISSUER")

	setList(&c.CORS.AllowedOrigins, "BACKEND_ALLOWED_ORIGINS")
	setList(&c.CORS.AllowMethods, "BACKEND_ALLOW_METHODS")
	setList(&c.CORS.AllowHeaders, "BACKEND_ALLOW_HEADERS")

	var errs []error
	errs = append(errs,
		setDuration(&c.ElevenLabs.Timeout, "STT_TIMEOUT"),
		setDuration(&c.Gemini.Timeout, "LLM_TIMEOUT"),
		setDuration(&c.Retry.BaseDelay, "PROVIDER_BASE_DELAY"),
		setInt(&c.Retry.MaxAttempts, "PROVIDER_MAX_ATTEMPTS"),
		setInt64(&c.MaxUploadBytes, "MAX_UPLOAD_BYTES"),
		setBool(&c.CORS.AllowCredentials, "BACKEND_ALLOW_CREDENTIALS"),
		setBool(&c.EnableTelemetry, "ENABLE_TELEMETRY"),
	)
	return errors.Join(errs...)
}

// Validate refuses configurations the service cannot start with.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.ElevenLabs.APIKey) == "" {
		missing = append(missing, "ELEVENLABS_API_KEY")
	}
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("PROVIDER_MAX_ATTEMPTS must be at least 1")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// ValidateDatabase checks that a database can be reached with the current settings.
func (c *Config) ValidateDatabase() error {
	if c.Database.URL != "" {
		return nil
	}
	if c.Database.Host == "" || c.Database.User == "" || c.Database.Name == "" {
		return fmt.Errorf("missing required database environment variables")
	}
	return nil
}

func setString(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok {
		*dst = strings.TrimSpace(v)
	}
}

func setList(dst *[]string, key string) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) > 0 {
		*dst = out
	}
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = d
	return nil
}

func setInt(dst *int, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setInt64(dst *int64, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = b
	return nil
}
