package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const defaultDSN = "host=localhost port=5432 user=postgres password=123 dbname=deadlinebot sslmode=disable"

type Config struct {
	TelegramToken string
	BotDebug      bool

	DBDriver    string
	DatabaseURL string
	DBTimeout   time.Duration

	CheckInterval    time.Duration
	CheckFirstDelay  time.Duration
	RenotifyInterval time.Duration
	DefaultTimezone  string

	ImagesDir  string
	StatusAddr string

	LogLevel  string
	LogFormat string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("telegram_token", "")
	v.SetDefault("bot_debug", false)
	v.SetDefault("db_driver", "postgres")
	v.SetDefault("database_url", defaultDSN)
	v.SetDefault("db_timeout", 5*time.Second)
	v.SetDefault("check_interval", 60*time.Second)
	v.SetDefault("check_first_delay", 10*time.Second)
	v.SetDefault("renotify_interval", 12*time.Hour)
	v.SetDefault("default_timezone", "Europe/Moscow")
	v.SetDefault("images_dir", "images")
	v.SetDefault("status_addr", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load reads .env files (if present) and the environment.
// It reports whether a .env file was found so the caller can log it.
func Load(envFiles ...string) (*Config, bool, error) {
	envLoaded := godotenv.Load(envFiles...) == nil

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	cfg := &Config{
		TelegramToken:    v.GetString("telegram_token"),
		BotDebug:         v.GetBool("bot_debug"),
		DBDriver:         v.GetString("db_driver"),
		DatabaseURL:      v.GetString("database_url"),
		DBTimeout:        v.GetDuration("db_timeout"),
		CheckInterval:    v.GetDuration("check_interval"),
		CheckFirstDelay:  v.GetDuration("check_first_delay"),
		RenotifyInterval: v.GetDuration("renotify_interval"),
		DefaultTimezone:  v.GetString("default_timezone"),
		ImagesDir:        v.GetString("images_dir"),
		StatusAddr:       v.GetString("status_addr"),
		LogLevel:         v.GetString("log_level"),
		LogFormat:        v.GetString("log_format"),
	}
	if err := cfg.validate(); err != nil {
		return nil, envLoaded, err
	}
	return cfg, envLoaded, nil
}

func (c *Config) validate() error {
	var errs []error
	if c.DBDriver != "postgres" && c.DBDriver != "sqlite3" {
		errs = append(errs, fmt.Errorf("DB_DRIVER must be postgres or sqlite3, got %q", c.DBDriver))
	}
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is empty"))
	}
	for name, d := range map[string]time.Duration{
		"DB_TIMEOUT":        c.DBTimeout,
		"CHECK_INTERVAL":    c.CheckInterval,
		"CHECK_FIRST_DELAY": c.CheckFirstDelay,
		"RENOTIFY_INTERVAL": c.RenotifyInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %s", name, d))
		}
	}
	return errors.Join(errs...)
}

// RequireToken fails when the Telegram token is missing.
func (c *Config) RequireToken() error {
	if c.TelegramToken == "" {
		return errors.New("TELEGRAM_TOKEN not set")
	}
	return nil
}
