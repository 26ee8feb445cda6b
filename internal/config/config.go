package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config представляет структуру конфигурации для приложения.
type Config struct {
	App struct {
		Port            string        `mapstructure:"port"`
		Env             string        `mapstructure:"env"`
		ReadTimeout     time.Duration `mapstructure:"readTimeout"`
		WriteTimeout    time.Duration `mapstructure:"writeTimeout"`
		ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
	} `mapstructure:"app"`
	Log struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`
	Database struct {
		Driver          string        `mapstructure:"driver"`
		DSN             string        `mapstructure:"dsn"`
		Migrate         bool          `mapstructure:"migrate"`
		MaxOpenConns    int           `mapstructure:"maxOpenConns"`
		MaxIdleConns    int           `mapstructure:"maxIdleConns"`
		ConnMaxLifetime time.Duration `mapstructure:"connMaxLifetime"`
		ConnectTimeout  time.Duration `mapstructure:"connectTimeout"`
	} `mapstructure:"database"`
	Redis struct {
		Enabled  bool          `mapstructure:"enabled"`
		Addr     string        `mapstructure:"addr"`
		Password string        `mapstructure:"password"`
		DB       int           `mapstructure:"db"`
		TTL      time.Duration `mapstructure:"ttl"`
	} `mapstructure:"redis"`
	Kafka struct {
		Enabled  bool     `mapstructure:"enabled"`
		Brokers  []string `mapstructure:"brokers"`
		Topic    string   `mapstructure:"topic"`
		ClientID string   `mapstructure:"clientId"`
	} `mapstructure:"kafka"`
	Auth struct {
		JWTSecret string `mapstructure:"jwtSecret"`
	} `mapstructure:"auth"`
	Storage struct {
		Dir           string `mapstructure:"dir"`
		PublicBaseURL string `mapstructure:"publicBaseUrl"`
		MaxFileSize   int64  `mapstructure:"maxFileSize"`
	} `mapstructure:"storage"`
	Metrics struct {
		Interval time.Duration `mapstructure:"interval"`
	} `mapstructure:"metrics"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.port", "8080")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.readTimeout", 15*time.Second)
	v.SetDefault("app.writeTimeout", 30*time.Second)
	v.SetDefault("app.shutdownTimeout", 10*time.Second)

	v.SetDefault("log.level", "info")

	v.SetDefault("database.driver", DriverMemory)
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.migrate", true)
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 30*time.Minute)
	v.SetDefault("database.connectTimeout", 30*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 15*time.Minute)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "coachpro.subscription.lifecycle")
	v.SetDefault("kafka.clientId", "coachpro-subscriptions")

	v.SetDefault("auth.jwtSecret", "")

	v.SetDefault("storage.dir", "uploads/proofs")
	v.SetDefault("storage.publicBaseUrl", "http://localhost:8080")
	v.SetDefault("storage.maxFileSize", 10<<20)

	v.SetDefault("metrics.interval", 15*time.Second)
}

// LoadConfig загружает конфигурацию: значения по умолчанию, затем config.yml
// (если есть), затем переменные окружения вида DATABASE_DSN, KAFKA_BROKERS.
// envFile загружается только вне production и только если существует.
func LoadConfig(envFile string) (*Config, error) {
	if os.Getenv("APP_ENV") != "production" && envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// splitList раскрывает значения вида "a:9092,b:9092", пришедшие из окружения
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate возвращает все найденные ошибки конфигурации сразу
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.App.Port == "" {
		result = multierror.Append(result, errors.New("app.port is required"))
	}
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.DSN == "" {
			result = multierror.Append(result, errors.New("database.dsn is required for the postgres driver"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("database.driver must be %q or %q, got %q", DriverMemory, DriverPostgres, c.Database.Driver))
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		result = multierror.Append(result, errors.New("redis.addr is required when redis is enabled"))
	}
	if c.Kafka.Enabled {
		if len(c.Kafka.Brokers) == 0 {
			result = multierror.Append(result, errors.New("kafka.brokers is required when kafka is enabled"))
		}
		if c.Kafka.Topic == "" {
			result = multierror.Append(result, errors.New("kafka.topic is required when kafka is enabled"))
		}
	}
	if c.Auth.JWTSecret == "" {
		result = multierror.Append(result, errors.New("auth.jwtSecret is required"))
	}
	if c.Storage.Dir == "" {
		result = multierror.Append(result, errors.New("storage.dir is required"))
	}
	if c.Storage.MaxFileSize <= 0 {
		result = multierror.Append(result, errors.New("storage.maxFileSize must be positive"))
	}

	return result.ErrorOrNil()
}

// IsProduction сообщает, запущено ли приложение в production
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
