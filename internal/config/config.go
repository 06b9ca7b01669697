package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds environment-based settings shared by every signage command.
type Config struct {
	Environment string
	LogLevel    string

	ServerAddress  string
	PublicURL      string
	RequestTimeout time.Duration

	// storage: sqlite, postgres or redis
	StoreDriver   string
	DatabaseURL   string
	SQLitePath    string
	RedisAddress  string
	RedisUsername string
	RedisPassword string

	MQTTBrokerURL string
	NATSURL       string

	// screen side
	ControllerURL string
	Push          PushConfig

	// controller side
	JWTSecret         string
	AdminPasswordHash string

	// display side
	ScreenURL    string
	Transport    string
	Reconnect    ReconnectConfig
	Presentation PresentationConfig
}

type PushConfig struct {
	KeepaliveInterval time.Duration `yaml:"keepalive_interval"`
	SubscriberBuffer  int           `yaml:"subscriber_buffer"`
}

type ReconnectConfig struct {
	BaseDelay        time.Duration `yaml:"base_delay"`
	MaxAttempts      int           `yaml:"max_attempts"`
	ReinitDelay      time.Duration `yaml:"reinit_delay"`
	MissedKeepalives int           `yaml:"missed_keepalives"`
}

type PresentationConfig struct {
	SlideDwell   time.Duration `yaml:"slide_dwell"`
	ListInterval time.Duration `yaml:"list_interval"`
	// the headless display cannot see playback end; a video slide is shown this long
	VideoDuration time.Duration `yaml:"video_duration"`
}

// overlay is the optional YAML file named by CONFIG_FILE. Only timings live there.
type overlay struct {
	Push         *PushConfig         `yaml:"push"`
	Reconnect    *ReconnectConfig    `yaml:"reconnect"`
	Presentation *PresentationConfig `yaml:"presentation"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Environment:    "production",
		LogLevel:       "info",
		ServerAddress:  ":3000",
		RequestTimeout: 10 * time.Second,
		StoreDriver:    "sqlite",
		SQLitePath:     "./screen.db",
		Transport:      "sse",
		Push: PushConfig{
			KeepaliveInterval: 20 * time.Second,
			SubscriberBuffer:  16,
		},
		Reconnect: ReconnectConfig{
			BaseDelay:        3 * time.Second,
			MaxAttempts:      5,
			ReinitDelay:      time.Minute,
			MissedKeepalives: 3,
		},
		Presentation: PresentationConfig{
			SlideDwell:    10 * time.Second,
			ListInterval:  3 * time.Second,
			VideoDuration: 30 * time.Second,
		},
	}
}

// Load reads configuration from a .env file (when present) and environment
// variables, then applies the optional YAML overlay. Timings set in the
// overlay win over the defaults.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env file")
	}

	cfg := Default()
	cfg.Environment = getEnv("APP_ENV", cfg.Environment)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.ServerAddress = getEnv("SERVER_ADDRESS", cfg.ServerAddress)
	cfg.PublicURL = getEnv("PUBLIC_URL", "")
	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", cfg.StoreDriver))
	cfg.DatabaseURL = getEnv("DATABASE_URL", "")
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.RedisAddress = getEnv("REDIS_ADDRESS", "")
	cfg.RedisUsername = getEnv("REDIS_USERNAME", "")
	cfg.RedisPassword = getEnv("REDIS_PASSWORD", "")
	cfg.MQTTBrokerURL = getEnv("MQTT_BROKER_URL", "")
	cfg.NATSURL = getEnv("NATS_URL", "")
	cfg.ControllerURL = strings.TrimRight(getEnv("CONTROLLER_URL", ""), "/")
	cfg.JWTSecret = getEnv("JWT_SECRET", "")
	cfg.AdminPasswordHash = getEnv("ADMIN_PASSWORD_HASH", "")
	cfg.ScreenURL = strings.TrimRight(getEnv("SCREEN_URL", "http://localhost:3000"), "/")
	cfg.Transport = strings.ToLower(getEnv("DISPLAY_TRANSPORT", cfg.Transport))

	var err error
	if cfg.RequestTimeout, err = getEnvAsDuration("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return nil, err
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyOverlay(path); err != nil {
			return nil, err
		}
	}

	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost" + cfg.ServerAddress
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")

	if err := cfg.validateStore(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// RequireController checks the settings only the controller command needs.
func (c *Config) RequireController() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.AdminPasswordHash == "" {
		return fmt.Errorf("ADMIN_PASSWORD_HASH is required")
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.StoreDriver {
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite store")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case "redis":
		if c.RedisAddress == "" {
			return fmt.Errorf("REDIS_ADDRESS is required for the redis store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	return nil
}

func (c *Config) applyOverlay(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	var o overlay
	if err := yaml.Unmarshal(data, &o); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if o.Push != nil {
		mergeDuration(&c.Push.KeepaliveInterval, o.Push.KeepaliveInterval)
		mergeInt(&c.Push.SubscriberBuffer, o.Push.SubscriberBuffer)
	}
	if o.Reconnect != nil {
		mergeDuration(&c.Reconnect.BaseDelay, o.Reconnect.BaseDelay)
		mergeInt(&c.Reconnect.MaxAttempts, o.Reconnect.MaxAttempts)
		mergeDuration(&c.Reconnect.ReinitDelay, o.Reconnect.ReinitDelay)
		mergeInt(&c.Reconnect.MissedKeepalives, o.Reconnect.MissedKeepalives)
	}
	if o.Presentation != nil {
		mergeDuration(&c.Presentation.SlideDwell, o.Presentation.SlideDwell)
		mergeDuration(&c.Presentation.ListInterval, o.Presentation.ListInterval)
	}
	return nil
}

func mergeDuration(dst *time.Duration, v time.Duration) {
	if v > 0 {
		*dst = v
	}
}

func mergeInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d, nil
	}
	// bare numbers are seconds
	secs, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return time.Duration(secs) * time.Second, nil
}
