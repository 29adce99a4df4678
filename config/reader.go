package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

const (
	DefaultUpstreamURL     = "https://dummyjson.com"
	DefaultPageSize        = 30
	DefaultMaxPages        = 1000
	DefaultRequestTimeout  = 10 * time.Second
	DefaultMaxBodyBytes    = 16 << 20
	DefaultCacheTTL        = 10 * time.Minute // время жизни записи кеша ленты
	DefaultCacheKeyPrefix  = "cached:"
	DefaultWindowSize      = 10
	DefaultFeedExchange    = "feed_events"
	DefaultFeedEventsQueue = "feed_events_gateway"
)

type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ConfigSchema struct {
	Backend struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"backend"`
	Logs struct {
		Level string `yaml:"level"`
	} `yaml:"logs"`
	Upstream struct {
		BaseURL        string        `yaml:"base_url"`
		PageSize       int           `yaml:"page_size"`
		MaxPages       int           `yaml:"max_pages"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
		MaxBodyBytes   int64         `yaml:"max_body_bytes"`
	} `yaml:"upstream"`
	Cache struct {
		// Backend: memory, redis или sql
		Backend   string        `yaml:"backend"`
		KeyPrefix string        `yaml:"key_prefix"`
		TTL       time.Duration `yaml:"ttl"`
		Retention time.Duration `yaml:"retention"`
	} `yaml:"cache"`
	Feed struct {
		WindowSize int `yaml:"window_size"`
	} `yaml:"feed"`
	Redis     RedisConfig `yaml:"redis"`
	Databases struct {
		// Driver: postgres или sqlite
		Driver     string     `yaml:"driver"`
		SQLitePath string     `yaml:"sqlite_path"`
		Master     DBConfig   `yaml:"master"`
		Replicas   []DBConfig `yaml:"replicas"`
	} `yaml:"databases"`
	RabbitMQ struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
		Queue    string `yaml:"queue"`
	} `yaml:"rabbitmq"`
}

var AppConfig *ConfigSchema

// LoadConfig читает yaml-файл, накладывает переменные окружения (.env тоже учитывается)
// и заполняет пропущенные поля значениями по умолчанию
func LoadConfig(filePath string) error {
	cfg, err := Parse(filePath)
	if err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

func Parse(filePath string) (*ConfigSchema, error) {
	cfg := &ConfigSchema{}
	if filePath != "" {
		data, err := os.ReadFile(filePath)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// .env необязателен
	_ = godotenv.Load()
	applyEnv(cfg)
	cfg.ApplyDefaults()
	return cfg, nil
}

func (c *ConfigSchema) ApplyDefaults() {
	if c.Backend.Port == 0 {
		c.Backend.Port = 8080
	}
	if c.Logs.Level == "" {
		c.Logs.Level = "info"
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = DefaultUpstreamURL
	}
	if c.Upstream.PageSize <= 0 {
		c.Upstream.PageSize = DefaultPageSize
	}
	if c.Upstream.MaxPages <= 0 {
		c.Upstream.MaxPages = DefaultMaxPages
	}
	if c.Upstream.RequestTimeout <= 0 {
		c.Upstream.RequestTimeout = DefaultRequestTimeout
	}
	if c.Upstream.MaxBodyBytes <= 0 {
		c.Upstream.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "memory"
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = DefaultCacheKeyPrefix
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = DefaultCacheTTL
	}
	if c.Feed.WindowSize <= 0 {
		c.Feed.WindowSize = DefaultWindowSize
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.Databases.Driver == "" {
		c.Databases.Driver = "sqlite"
	}
	if c.Databases.SQLitePath == "" {
		c.Databases.SQLitePath = "socialfeed.db"
	}
	if c.Databases.Master.Port == 0 {
		c.Databases.Master.Port = 5432
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = DefaultFeedExchange
	}
	if c.RabbitMQ.Queue == "" {
		c.RabbitMQ.Queue = DefaultFeedEventsQueue
	}
}

func applyEnv(c *ConfigSchema) {
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.Cache.Backend = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Cache.TTL = d
		}
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Redis.Port = port
		}
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		c.RabbitMQ.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Logs.Level = v
	}
}
