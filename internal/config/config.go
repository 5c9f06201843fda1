package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Timer         TimerConfig         `mapstructure:"timer"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Logging       LoggingConfig       `mapstructure:"logging"`
}

type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	BindAddress string   `mapstructure:"bind_address"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
	// MigrationsDir overrides the migrations compiled into the binary.
	MigrationsDir   string      `mapstructure:"migrations_dir"`
	SnapshotBackend string      `mapstructure:"snapshot_backend"` // "sqlite" or "redis"
	Redis           RedisConfig `mapstructure:"redis"`
}

type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	KeyPrefix    string `mapstructure:"key_prefix"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

type TimerConfig struct {
	FocusMinutes       int           `mapstructure:"focus_minutes"`
	BreakMinutes       int           `mapstructure:"break_minutes"`
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	ClearStuckSessions bool          `mapstructure:"clear_stuck_sessions"`
	StaleSessionAfter  time.Duration `mapstructure:"stale_session_after"`
	Timezone           string        `mapstructure:"timezone"`
}

type NotificationsConfig struct {
	Sound  bool `mapstructure:"sound"`
	System bool `mapstructure:"system"`
}

type AuthConfig struct {
	// JWTSecret enables bearer-token auth on the API when set.
	JWTSecret string        `mapstructure:"jwt_secret"`
	TokenTTL  time.Duration `mapstructure:"token_ttl"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configPath when it exists, then applies CLOCKKO_* environment
// overrides. An empty path uses defaults and the environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	v.SetEnvPrefix("CLOCKKO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.bind_address", "127.0.0.1")
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173", "http://127.0.0.1:5173"})

	v.SetDefault("storage.db_path", "./data/clockko.db")
	v.SetDefault("storage.migrations_dir", "")
	v.SetDefault("storage.snapshot_backend", "sqlite")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.key_prefix", "clockko:")
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	v.SetDefault("timer.focus_minutes", 25)
	v.SetDefault("timer.break_minutes", 5)
	v.SetDefault("timer.tick_interval", "1s")
	v.SetDefault("timer.clear_stuck_sessions", true)
	v.SetDefault("timer.stale_session_after", "2h")
	v.SetDefault("timer.timezone", "Local")

	v.SetDefault("notifications.sound", true)
	v.SetDefault("notifications.system", true)

	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", "720h")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}

	if cfg.Storage.DBPath == "" {
		return fmt.Errorf("storage db_path is required")
	}

	switch cfg.Storage.SnapshotBackend {
	case "sqlite", "redis":
	case "":
		cfg.Storage.SnapshotBackend = "sqlite"
	default:
		return fmt.Errorf("unknown snapshot backend: %s", cfg.Storage.SnapshotBackend)
	}

	if cfg.Timer.FocusMinutes <= 0 {
		return fmt.Errorf("timer focus_minutes must be positive: %d", cfg.Timer.FocusMinutes)
	}
	if cfg.Timer.BreakMinutes <= 0 {
		return fmt.Errorf("timer break_minutes must be positive: %d", cfg.Timer.BreakMinutes)
	}
	if cfg.Timer.TickInterval <= 0 {
		return fmt.Errorf("timer tick_interval must be positive: %s", cfg.Timer.TickInterval)
	}
	if _, err := cfg.Timer.Location(); err != nil {
		return err
	}

	return nil
}

// Location resolves the timezone used to file sessions under a day.
func (c TimerConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timer timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Addr is the listen address for the HTTP server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.BindAddress, c.Port)
}
