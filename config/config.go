package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

type GRPC struct {
	Addr string `yaml:"addr"`
}

type HTTP struct {
	Addr           string   `yaml:"addr"`
	ReadTimeout    string   `yaml:"readTimeout"`    // 10s, он же ReadHeaderTimeout
	IdleTimeout    string   `yaml:"idleTimeout"`    // 60s
	RequestTimeout string   `yaml:"requestTimeout"` // 30s, кроме /ws
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

func (h HTTP) ReadTimeoutDur() time.Duration  { return parseDurationOr(10*time.Second, h.ReadTimeout) }
func (h HTTP) IdleTimeoutDur() time.Duration  { return parseDurationOr(60*time.Second, h.IdleTimeout) }
func (h HTTP) RequestTimeoutDur() time.Duration {
	return parseDurationOr(30*time.Second, h.RequestTimeout)
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // chat-relay
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	Level     string `yaml:"level"`     // debug|info|warn|error
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Postgres struct {
	DSN               string `yaml:"dsn"`
	MaxConns          int32  `yaml:"maxConns"`
	MinConns          int32  `yaml:"minConns"`
	MaxConnLifetime   string `yaml:"maxConnLifetime"`
	MaxConnIdleTime   string `yaml:"maxConnIdleTime"`
	HealthCheckPeriod string `yaml:"healthCheckPeriod"`
}

type SQLite struct {
	Path string `yaml:"path"`
}

type Storage struct {
	Driver   string   `yaml:"driver"` // postgres|sqlite|memory
	Postgres Postgres `yaml:"postgres"`
	SQLite   SQLite   `yaml:"sqlite"`
}

type WS struct {
	PingInterval   string `yaml:"pingInterval"` // 15s
	WriteTimeout   string `yaml:"writeTimeout"` // 5s
	SendBuffer     int    `yaml:"sendBuffer"`
	MaxMessageSize int64  `yaml:"maxMessageSize"`
}

func (w WS) PingIntervalDur() time.Duration { return parseDurationOr(15*time.Second, w.PingInterval) }
func (w WS) WriteTimeoutDur() time.Duration { return parseDurationOr(5*time.Second, w.WriteTimeout) }

type Config struct {
	HTTP    HTTP    `yaml:"http"`
	GRPC    GRPC    `yaml:"grpc"`
	Logging Logging `yaml:"logging"`
	Storage Storage `yaml:"storage"`
	WS      WS      `yaml:"ws"`
}

// env перекрывает значения из YAML; пустые переменные игнорируются.
type env struct {
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	HTTPAddr      string `envconfig:"HTTP_ADDR"`
	GRPCAddr      string `envconfig:"GRPC_ADDR"`
	StorageDriver string `envconfig:"STORAGE_DRIVER"`
	SQLitePath    string `envconfig:"SQLITE_PATH"`
	AppEnv        string `envconfig:"APP_ENV"`
	LogLevel      string `envconfig:"LOG_LEVEL"`
}

func LoadConfig() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "./config/config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse разбирает YAML, применяет переменные окружения и дефолты.
// Неизвестные ключи считаются ошибкой.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() error {
	var e env
	if err := envconfig.Process("", &e); err != nil {
		return fmt.Errorf("read env: %w", err)
	}
	setIf(&c.Storage.Postgres.DSN, e.DatabaseURL)
	setIf(&c.HTTP.Addr, e.HTTPAddr)
	setIf(&c.GRPC.Addr, e.GRPCAddr)
	setIf(&c.Storage.Driver, e.StorageDriver)
	setIf(&c.Storage.SQLite.Path, e.SQLitePath)
	setIf(&c.Logging.Env, e.AppEnv)
	setIf(&c.Logging.Level, e.LogLevel)
	return nil
}

func setIf(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func (c *Config) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr is required")
	}
	if c.GRPC.Addr == "" {
		return errors.New("grpc.addr is required")
	}

	c.Storage.Driver = strings.ToLower(strings.TrimSpace(c.Storage.Driver))
	if c.Storage.Driver == "" {
		// без DSN по умолчанию работаем на локальном файле
		if c.Storage.Postgres.DSN != "" {
			c.Storage.Driver = DriverPostgres
		} else {
			c.Storage.Driver = DriverSQLite
		}
	}
	switch c.Storage.Driver {
	case DriverPostgres:
		if c.Storage.Postgres.DSN == "" {
			return errors.New("storage.postgres.dsn is required")
		}
	case DriverSQLite:
		if c.Storage.SQLite.Path == "" {
			c.Storage.SQLite.Path = "./chat.db"
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown storage.driver %q", c.Storage.Driver)
	}

	// установка дефолтов, если значения не указаны
	if c.Logging.Service == "" {
		c.Logging.Service = "chat-relay"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.WS.SendBuffer <= 0 {
		c.WS.SendBuffer = 256
	}
	if c.WS.MaxMessageSize <= 0 {
		c.WS.MaxMessageSize = 1 << 20
	}
	return nil
}

// helper для парсинга timeout-ов
func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
