// Package config loads application settings from a YAML file and the
// environment. Environment variables always win over file values.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

type Listen struct {
	BindIP string `yaml:"bind_ip" env:"BIND_IP" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env:"PORT" env-default:"8080"`
}

// Database holds PostgreSQL connection settings.
type Database struct {
	Host         string        `yaml:"host" env:"DB_HOST" env-default:"localhost"`
	Port         string        `yaml:"port" env:"DB_PORT" env-default:"5432"`
	User         string        `yaml:"user" env:"DB_USER" env-default:"postgres"`
	Password     string        `yaml:"password" env:"DB_PASSWORD" env-default:"postgres"`
	Name         string        `yaml:"name" env:"DB_NAME" env-default:"ticketing"`
	SSLMode      string        `yaml:"sslmode" env:"DB_SSLMODE" env-default:"disable"`
	MaxConns     int32         `yaml:"max_conns" env:"DB_MAX_CONNS" env-default:"20"`
	MinConns     int32         `yaml:"min_conns" env:"DB_MIN_CONNS" env-default:"2"`
	QueryTimeout time.Duration `yaml:"query_timeout" env:"DB_QUERY_TIMEOUT" env-default:"5s"`
	Migrate      bool          `yaml:"migrate" env:"DB_MIGRATE" env-default:"true"`
}

// DSN builds a libpq-compatible connection string.
func (d Database) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

type Auth struct {
	JWTSecret string `yaml:"jwt_secret" env:"JWT_SECRET" env-default:"dev-secret-key-change-in-production"`
	Issuer    string `yaml:"issuer" env:"JWT_ISSUER" env-default:""`
}

type Redis struct {
	URL      string        `yaml:"url" env:"REDIS_URL" env-default:""`
	QRTTL    time.Duration `yaml:"qr_ttl" env:"REDIS_QR_TTL" env-default:"24h"`
	PoolSize int           `yaml:"pool_size" env:"REDIS_POOL_SIZE" env-default:"10"`
}

type AMQP struct {
	URL      string `yaml:"url" env:"AMQP_URL" env-default:""`
	Exchange string `yaml:"exchange" env:"AMQP_EXCHANGE" env-default:"tickets"`
}

// Tracing configures the OTLP span exporter. Spans are dropped when
// Endpoint is empty.
type Tracing struct {
	ServiceName string `yaml:"service_name" env:"OTEL_SERVICE_NAME" env-default:"event-ticketing"`
	Endpoint    string `yaml:"endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:""`
}

type Config struct {
	Env      string   `yaml:"env" env:"ENV" env-default:"local"`
	Storage  string   `yaml:"storage" env:"STORAGE" env-default:"postgres"`
	Listen   Listen   `yaml:"listen"`
	Database Database `yaml:"database"`
	Auth     Auth     `yaml:"auth"`
	Redis    Redis    `yaml:"redis"`
	AMQP     AMQP     `yaml:"amqp"`
	Tracing  Tracing  `yaml:"tracing"`
}

// Load reads the config file at path, or only the environment when path is
// empty or does not exist.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	var err error
	if path != "" && fileExists(path) {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		desc, _ := cleanenv.GetDescription(cfg, nil)
		return nil, fmt.Errorf("config: %w; %s", err, desc)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("config: unknown storage %q", c.Storage)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: jwt_secret is required")
	}
	return nil
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.Listen.BindIP, c.Listen.Port)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
