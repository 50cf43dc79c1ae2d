package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	CatalogSourceDB   = "db"
	CatalogSourceGRPC = "grpc"

	NotifyModeKafka = "kafka"
	NotifyModeSMTP  = "smtp"
	NotifyModeLog   = "log"
)

type Config struct {
	ServiceName string
	HTTPAddr    string
	GRPCAddr    string

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	SMTP     SMTPConfig

	JWTSecret      string
	JaegerEndpoint string

	TxTimeout     time.Duration
	NotifyTimeout time.Duration
	Currency      string

	// CatalogSource selects where cart verification reads products from.
	CatalogSource string
	CatalogAddr   string
	NotifyMode    string
}

type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Addr           string
	Password       string
	DB             int
	ProductTTL     time.Duration
	IdempotencyTTL time.Duration
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Load reads the configuration from the environment. A .env file in the
// working directory, if present, is loaded first without overriding
// variables that are already set.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	p := &parser{}
	cfg := Config{
		ServiceName: getEnv("SERVICE_NAME", "checkout-service"),
		HTTPAddr:    getEnv("HTTP_ADDR", ":8080"),
		GRPCAddr:    getEnv("GRPC_ADDR", ":50051"),
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			Name:            getEnv("DB_NAME", "shopdb"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    p.int("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    p.int("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: RedisConfig{
			Addr:           fmt.Sprintf("%s:%s", getEnv("REDIS_HOST", "localhost"), getEnv("REDIS_PORT", "6379")),
			Password:       getEnv("REDIS_PASSWORD", ""),
			DB:             p.int("REDIS_DB", 0),
			ProductTTL:     p.duration("PRODUCT_CACHE_TTL", 5*time.Minute),
			IdempotencyTTL: p.duration("IDEMPOTENCY_TTL", 24*time.Hour),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKER", "localhost:9092")),
			Topic:   getEnv("KAFKA_TOPIC", "order_events"),
			GroupID: getEnv("KAFKA_GROUP_ID", "checkout-notifier"),
		},
		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     p.int("SMTP_PORT", 1025),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", "orders@shop.local"),
		},
		JWTSecret:      getEnv("JWT_SECRET", ""),
		JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
		TxTimeout:      p.duration("CHECKOUT_TX_TIMEOUT", 5*time.Second),
		NotifyTimeout:  p.duration("NOTIFY_TIMEOUT", 5*time.Second),
		Currency:       strings.ToUpper(getEnv("CURRENCY", "USD")),
		CatalogSource:  strings.ToLower(getEnv("CATALOG_SOURCE", CatalogSourceDB)),
		CatalogAddr:    getEnv("CATALOG_ADDR", "localhost:50051"),
		NotifyMode:     strings.ToLower(getEnv("NOTIFY_MODE", NotifyModeKafka)),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.CatalogSource {
	case CatalogSourceDB, CatalogSourceGRPC:
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.CatalogSource)
	}
	switch c.NotifyMode {
	case NotifyModeKafka, NotifyModeSMTP, NotifyModeLog:
	default:
		return fmt.Errorf("unknown NOTIFY_MODE %q", c.NotifyMode)
	}
	if c.TxTimeout <= 0 {
		return errors.New("CHECKOUT_TX_TIMEOUT must be positive")
	}
	if len(c.Kafka.Brokers) == 0 {
		return errors.New("KAFKA_BROKER must name at least one broker")
	}
	return nil
}

// parser keeps the first conversion error so Load can report it once.
type parser struct {
	err error
}

func (p *parser) int(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func (p *parser) duration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	v, err := time.ParseDuration(raw)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("invalid %s: %w", key, err)
	}
	return v
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
