package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config is the top-level configuration structure.
type Config struct {
	Server  ServerConfig   `mapstructure:"server"`
	DB      DatabaseConfig `mapstructure:"db"`
	Redis   RedisConfig    `mapstructure:"redis"`
	Auth    AuthConfig     `mapstructure:"auth"`
	Game    GameConfig     `mapstructure:"game"`
	Logging LoggingConfig  `mapstructure:"logging"`

	v *viper.Viper
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds the durable catalog connection. Driver is
// "postgres" or "sqlite"; Path is only used by sqlite.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	Path     string `mapstructure:"path"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

type AuthConfig struct {
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

// GameConfig holds live session settings.
type GameConfig struct {
	StateTTL  time.Duration `mapstructure:"state_ttl"`
	PinLength int           `mapstructure:"pin_length"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.name", "quizgame")
	v.SetDefault("db.path", "quizgame.db")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.tls", false)

	v.SetDefault("auth.jwt_secret", "super-secret-key-change-me")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	v.SetDefault("game.state_ttl", 24*time.Hour)
	v.SetDefault("game.pin_length", 6)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 7)
	v.SetDefault("logging.compress", true)
}

// Load reads config/config.yaml under dir (optional) and overlays the
// environment. Keys map to upper-case names with dots replaced, so
// DB_HOST sets db.host and REDIS_ADDR sets redis.addr.
func Load(dir string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.AddConfigPath(filepath.Join(dir, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET", "JWT_SECRET")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{v: v}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return errors.New("SERVER_PORT cannot be empty")
	}
	switch c.DB.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("DB_DRIVER must be postgres or sqlite, got %q", c.DB.Driver)
	}
	if c.Redis.Addr == "" {
		return errors.New("REDIS_ADDR cannot be empty")
	}
	if c.Auth.JWTSecret == "" {
		return errors.New("AUTH_JWT_SECRET cannot be empty")
	}
	if c.Game.StateTTL <= 0 {
		return errors.New("GAME_STATE_TTL must be positive")
	}
	if c.Game.PinLength < 6 || c.Game.PinLength > 10 {
		return fmt.Errorf("GAME_PIN_LENGTH must be between 6 and 10, got %d", c.Game.PinLength)
	}
	return nil
}

// Watch re-reads the config file when it changes and hands the fresh
// values to onChange. Environment overrides still apply.
func (c *Config) Watch(onChange func(*Config, error)) {
	if c.v == nil || c.v.ConfigFileUsed() == "" {
		return
	}
	c.v.OnConfigChange(func(fsnotify.Event) {
		next := &Config{v: c.v}
		if err := c.v.Unmarshal(next); err != nil {
			onChange(nil, err)
			return
		}
		onChange(next, next.Validate())
	})
	c.v.WatchConfig()
}
