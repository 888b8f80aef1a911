package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	AI        AIConfig
	Log       LogConfig       `mapstructure:"log"`
	Tracing   TracingConfig   `mapstructure:"tracing"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`

	// 实际加载的配置文件路径，未找到配置文件时为空
	File string `mapstructure:"-"`
}

type ServerConfig struct {
	Port string
	Mode string
}

// DatabaseConfig Driver 取值 mongo / mysql / sqlite
type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`

	// mongo
	URI  string `mapstructure:"uri"`
	Name string `mapstructure:"name"`

	// mysql
	Host      string
	Port      int
	User      string
	Password  string
	DBName    string
	Charset   string
	ParseTime bool

	// sqlite
	SQLitePath string `mapstructure:"sqlite_path"`
}

type RedisConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int           `mapstructure:"pool_size"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// AIConfig Provider 取值 gemini / openai
type AIConfig struct {
	Provider string        `mapstructure:"provider"`
	BaseURL  string        `mapstructure:"base_url"`
	APIKey   string        `mapstructure:"api_key"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	File string `mapstructure:"file"`
}

type TracingConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	CollectorEndpoint string `mapstructure:"collector_endpoint"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type RateLimitConfig struct {
	MaxRequests   int `mapstructure:"max_requests"`
	WindowMinutes int `mapstructure:"window_minutes"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "5001")
	v.SetDefault("server.mode", "debug")

	v.SetDefault("database.driver", "mongo")
	v.SetDefault("database.uri", "mongodb://localhost:27017")
	v.SetDefault("database.name", "quiz")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.charset", "utf8mb4")
	v.SetDefault("database.parsetime", true)
	v.SetDefault("database.sqlite_path", "quiz.db")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.ttl", 5*time.Minute)

	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("ai.model", "gemini-2.5-flash")
	v.SetDefault("ai.timeout", 15*time.Second)

	v.SetDefault("log.file", "logs/app.log")

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("rate_limit.max_requests", 600)
	v.SetDefault("rate_limit.window_minutes", 1)
}

// LoadConfig 读取 path 目录下的 config.yaml（可选）并叠加环境变量
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvPrefix("QUIZ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Server
	v.BindEnv("server.port", "PORT")
	v.BindEnv("server.mode", "SERVER_MODE")

	// Database
	v.BindEnv("database.driver", "DATABASE_DRIVER")
	v.BindEnv("database.uri", "MONGO_URI")
	v.BindEnv("database.name", "MONGO_DB")
	v.BindEnv("database.host", "DATABASE_HOST")
	v.BindEnv("database.port", "DATABASE_PORT")
	v.BindEnv("database.user", "DATABASE_USER")
	v.BindEnv("database.password", "DATABASE_PASSWORD")
	v.BindEnv("database.dbname", "DATABASE_NAME")

	// Redis
	v.BindEnv("redis.enabled", "REDIS_ENABLED")
	v.BindEnv("redis.host", "REDIS_HOST")
	v.BindEnv("redis.port", "REDIS_PORT")
	v.BindEnv("redis.password", "REDIS_PASSWORD")

	// AI
	v.BindEnv("ai.provider", "AI_PROVIDER")
	v.BindEnv("ai.base_url", "AI_BASE_URL")
	v.BindEnv("ai.api_key", "GEMINI_API_KEY", "AI_API_KEY")
	v.BindEnv("ai.model", "AI_MODEL")

	// Tracing
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.collector_endpoint", "TRACING_COLLECTOR_ENDPOINT")

	var cfg Config

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	} else {
		cfg.File = v.ConfigFileUsed()
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mongo", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.AI.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unsupported ai provider %q", c.AI.Provider)
	}

	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unsupported server mode %q", c.Server.Mode)
	}

	if c.Server.Port == "" {
		return errors.New("server port is required")
	}
	return nil
}
