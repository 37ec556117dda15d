package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env  string
	Port int

	Storage  StorageConfig
	Feed     FeedConfig
	Schedule ScheduleConfig
	Redis    RedisConfig
	Log      LogConfig
}

// StorageConfig locates the embedded sqlite database.
type StorageConfig struct {
	Path        string
	Name        string
	BusyTimeout time.Duration
}

// FeedConfig describes the upstream schedule feed.
type FeedConfig struct {
	BaseURL string
	GroupID int
	Token   string
	Timeout time.Duration
}

// ScheduleConfig tunes the refresh-on-read cache.
type ScheduleConfig struct {
	UpdateInterval time.Duration
	JitterMax      time.Duration
}

// RedisConfig configures the optional response cache.
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTL      time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// With an explicit config file viper reports a plain path error
		// instead of ConfigFileNotFoundError when the file is absent.
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")

	cfg.Storage = StorageConfig{
		Path:        v.GetString("STORAGE_PATH"),
		Name:        v.GetString("STORAGE_NAME"),
		BusyTimeout: v.GetDuration("STORAGE_BUSY_TIMEOUT"),
	}

	cfg.Feed = FeedConfig{
		BaseURL: v.GetString("FEED_BASE_URL"),
		GroupID: v.GetInt("FEED_GROUP_ID"),
		Token:   v.GetString("FEED_TOKEN"),
		Timeout: v.GetDuration("FEED_TIMEOUT"),
	}

	cfg.Schedule = ScheduleConfig{
		UpdateInterval: time.Duration(v.GetInt("SCHEDULE_UPDATE_MINUTES")) * time.Minute,
		JitterMax:      time.Duration(v.GetInt("SCHEDULE_JITTER_MINUTES")) * time.Minute,
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("REDIS_ENABLED"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
		TTL:      v.GetDuration("REDIS_CACHE_TTL"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)

	v.SetDefault("STORAGE_PATH", "./data")
	v.SetDefault("STORAGE_NAME", "schedule.db")
	v.SetDefault("STORAGE_BUSY_TIMEOUT", "5s")

	v.SetDefault("FEED_BASE_URL", "https://api.platform.nke.team:8443")
	v.SetDefault("FEED_GROUP_ID", 43)
	v.SetDefault("FEED_TOKEN", "")
	v.SetDefault("FEED_TIMEOUT", "15s")

	v.SetDefault("SCHEDULE_UPDATE_MINUTES", 60)
	v.SetDefault("SCHEDULE_JITTER_MINUTES", 30)

	v.SetDefault("REDIS_ENABLED", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_CACHE_TTL", "30s")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}
