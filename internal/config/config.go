package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
	"guild-quiz-bot/internal/domain"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	RabbitMQ struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"rabbitmq"`
	Storage struct {
		Endpoint  string `yaml:"endpoint"`
		AccessKey string `yaml:"access_key"`
		SecretKey string `yaml:"secret_key"`
		Bucket    string `yaml:"bucket"`
		UseSSL    bool   `yaml:"use_ssl"`
		LinkTTL   string `yaml:"link_ttl"`
	} `yaml:"storage"`
	Quiz struct {
		CooldownSeconds int    `yaml:"cooldown_seconds"`
		QuestionCount   int    `yaml:"question_count"`
		DisplayTimezone string `yaml:"display_timezone"`
		CacheTTL        string `yaml:"cache_ttl"`
	} `yaml:"quiz"`
	Log struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
}

// Load reads YAML config from path. A missing file yields defaults,
// and environment variables override file values.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Postgres.URL, "DATABASE_URL")
	setString(&c.RabbitMQ.URL, "RABBITMQ_URL")
	setString(&c.Storage.Endpoint, "S3_ENDPOINT")
	setString(&c.Storage.AccessKey, "S3_ACCESS_KEY")
	setString(&c.Storage.SecretKey, "S3_SECRET_KEY")
	setString(&c.Storage.Bucket, "S3_BUCKET")
	setString(&c.Log.Level, "LOG_LEVEL")
	if v, err := strconv.Atoi(os.Getenv("QUIZ_COOLDOWN_SECONDS")); err == nil {
		c.Quiz.CooldownSeconds = v
	}
	if v, err := strconv.Atoi(os.Getenv("QUIZ_QUESTION_COUNT")); err == nil {
		c.Quiz.QuestionCount = v
	}
}

func (c *Config) applyDefaults() {
	if c.Quiz.CooldownSeconds == 0 {
		c.Quiz.CooldownSeconds = domain.DefaultCooldownSeconds
	}
	if c.Quiz.QuestionCount == 0 {
		c.Quiz.QuestionCount = domain.DefaultQuestionCount
	}
	if c.Quiz.DisplayTimezone == "" {
		c.Quiz.DisplayTimezone = "Asia/Tokyo"
	}
	if c.RabbitMQ.Queue == "" {
		c.RabbitMQ.Queue = "quiz.events"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Location resolves the display timezone, falling back to UTC.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Quiz.DisplayTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
