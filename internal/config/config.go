package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "ALERTROUTER"

type Config struct {
	Server struct {
		Port int
	}
	Database struct {
		Path string
	}
	Log struct {
		Level string
	}
	Auth struct {
		JWTSecret     string        `mapstructure:"jwt_secret"`
		TokenTTL      time.Duration `mapstructure:"token_ttl"`
		AdminPassword string        `mapstructure:"admin_password"`
	}
	Routing struct {
		Timezone string
	}
	Delivery struct {
		Timeout   time.Duration
		UserAgent string `mapstructure:"user_agent"`
	}
	Evaluation struct {
		Interval time.Duration
		Enabled  bool
	}
	Email struct {
		SMTPHost string `mapstructure:"smtp_host"`
		SMTPPort int    `mapstructure:"smtp_port"`
		Username string
		Password string
		From     string
	}
	SMS struct {
		TwilioBaseURL string `mapstructure:"twilio_base_url"`
	}
}

// Location resolves the routing timezone. Unknown names fall back to time.Local.
func (c *Config) Location() *time.Location {
	if c.Routing.Timezone == "" || strings.EqualFold(c.Routing.Timezone, "local") {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Routing.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("database.path", "data/alertrouter.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.jwt_secret", "alertrouter-dev-secret")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.admin_password", "admin")
	v.SetDefault("routing.timezone", "Local")
	v.SetDefault("delivery.timeout", 10*time.Second)
	v.SetDefault("delivery.user_agent", "alertrouter/1.0")
	v.SetDefault("evaluation.interval", time.Minute)
	v.SetDefault("evaluation.enabled", true)
	v.SetDefault("email.smtp_host", "localhost")
	v.SetDefault("email.smtp_port", 587)
	v.SetDefault("email.username", "")
	v.SetDefault("email.password", "")
	v.SetDefault("email.from", "alertrouter@localhost")
	v.SetDefault("sms.twilio_base_url", "https://api.twilio.com")
}

// LoadConfig reads config.yaml from . or ./config, then applies ALERTROUTER_* environment
// overrides. A missing config file is not an error.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	return load(v)
}

// LoadFile reads configuration from an explicit path.
func LoadFile(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(path)
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}
