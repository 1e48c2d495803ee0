package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

//go:embed config.yml
var embeddedConfig []byte

const envPrefix = "CONSOLE"

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit struct {
		RPS   float64 `mapstructure:"rps"`
		Burst int     `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
}

type SessionConfig struct {
	TTL             time.Duration `mapstructure:"ttl"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	CookieName      string        `mapstructure:"cookie_name"`
	CookieSecure    bool          `mapstructure:"cookie_secure"`
	StaleGuard      bool          `mapstructure:"stale_guard"`
}

// RedisConfig enables session persistence when Addr is set.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    string `mapstructure:"port"`
}

type LoginRateLimitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

type Config struct {
	Mode           string               `mapstructure:"mode"`
	Dotenv         string               `mapstructure:"dotenv"`
	Server         ServerConfig         `mapstructure:"server"`
	API            APIConfig            `mapstructure:"api"`
	Session        SessionConfig        `mapstructure:"session"`
	Redis          RedisConfig          `mapstructure:"redis"`
	CORS           CORSConfig           `mapstructure:"cors"`
	Metrics        MetricsConfig        `mapstructure:"metrics"`
	LoginRateLimit LoginRateLimitConfig `mapstructure:"login_rate_limit"`
}

// IsDevelopment reports whether the console runs in development mode.
func (c Config) IsDevelopment() bool {
	return c.Mode == "" || c.Mode == "dev" || c.Mode == "development"
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	// Add file-based config paths
	v.AddConfigPath(".")
	v.AddConfigPath("config")
	v.AddConfigPath("/app/config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// CONSOLE_API_BASE_URL overrides api.base_url, and so on.
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Try to load file-based config
	err := v.ReadInConfig()
	if err != nil {
		fmt.Printf("Warning: Failed to find file-based config: %s. Falling back to embedded config.\n", err)
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err = config.validate(); err != nil {
		return Config{}, err
	}
	fmt.Println("Successfully loaded app configs...")
	return config, nil
}

func (c Config) validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("config: api.base_url is required")
	}
	if c.Server.Port == "" {
		return fmt.Errorf("config: server.port is required")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("config: session.ttl must be positive")
	}
	if c.Session.CookieName == "" {
		return fmt.Errorf("config: session.cookie_name is required")
	}
	return nil
}
