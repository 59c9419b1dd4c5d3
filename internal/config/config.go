package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	News     NewsConfig     `mapstructure:"news"`
	AI       AIConfig       `mapstructure:"ai"`
	Bluesky  BlueskyConfig  `mapstructure:"bluesky"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN builds the driver-specific connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

// NewsConfig holds credentials and endpoint for the upstream headlines API.
type NewsConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// AIConfig holds the OpenAI-compatible chat completion endpoint used for
// summary and social post generation.
type AIConfig struct {
	Model   string        `mapstructure:"model"`
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// BlueskyConfig holds the social publishing credentials. The publisher is
// considered unconfigured while identifier or app password is empty.
type BlueskyConfig struct {
	Host        string        `mapstructure:"host"`
	Identifier  string        `mapstructure:"identifier"`
	AppPassword string        `mapstructure:"app_password"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// PipelineConfig holds loop timings and the initial fetch parameters.
type PipelineConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	ErrorBackoff  time.Duration `mapstructure:"error_backoff"`
	EnrichDelay   time.Duration `mapstructure:"enrich_delay"`
	PostCharLimit int           `mapstructure:"post_char_limit"`
	Category      string        `mapstructure:"category"`
	Country       string        `mapstructure:"country"`
	Language      string        `mapstructure:"language"`
	MaxItems      int           `mapstructure:"max_items"`
	AutoPublish   bool          `mapstructure:"auto_publish"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/newshub.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("news.base_url", "https://newsapi.org/v2")
	v.SetDefault("news.timeout", 15*time.Second)
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.timeout", 30*time.Second)
	v.SetDefault("bluesky.host", "https://bsky.social")
	v.SetDefault("bluesky.timeout", 15*time.Second)
	v.SetDefault("pipeline.interval", 30*time.Minute)
	v.SetDefault("pipeline.error_backoff", 5*time.Minute)
	v.SetDefault("pipeline.enrich_delay", time.Second)
	v.SetDefault("pipeline.post_char_limit", 300)
	v.SetDefault("pipeline.category", "technology")
	v.SetDefault("pipeline.country", "us")
	v.SetDefault("pipeline.language", "en")
	v.SetDefault("pipeline.max_items", 10)
	v.SetDefault("pipeline.auto_publish", false)

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.name", "DATABASE_NAME")
	v.BindEnv("news.api_key", "NEWS_API_KEY")
	v.BindEnv("news.base_url", "NEWS_API_BASE_URL")
	v.BindEnv("ai.api_key", "OPENAI_API_KEY")
	v.BindEnv("ai.base_url", "OPENAI_BASE_URL")
	v.BindEnv("ai.model", "AI_MODEL")
	v.BindEnv("bluesky.host", "BLUESKY_HOST")
	v.BindEnv("bluesky.identifier", "BLUESKY_IDENTIFIER")
	v.BindEnv("bluesky.app_password", "BLUESKY_APP_PASSWORD")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
