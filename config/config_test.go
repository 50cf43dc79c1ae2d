package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.TxTimeout)
	assert.Equal(t, "USD", cfg.Currency)
	assert.Equal(t, CatalogSourceDB, cfg.CatalogSource)
	assert.Equal(t, NotifyModeKafka, cfg.NotifyMode)
	assert.Equal(t, "host=localhost port=5432 user=postgres password=postgres dbname=shopdb sslmode=disable", cfg.Database.DSN())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("KAFKA_BROKER", "k1:9092, k2:9092")
	t.Setenv("CHECKOUT_TX_TIMEOUT", "750ms")
	t.Setenv("DB_MAX_OPEN_CONNS", "40")
	t.Setenv("CURRENCY", "eur")
	t.Setenv("NOTIFY_MODE", "SMTP")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 750*time.Millisecond, cfg.TxTimeout)
	assert.Equal(t, 40, cfg.Database.MaxOpenConns)
	assert.Equal(t, "EUR", cfg.Currency)
	assert.Equal(t, NotifyModeSMTP, cfg.NotifyMode)
}

func TestLoad_Invalid(t *testing.T) {
	tests := map[string]string{
		"CHECKOUT_TX_TIMEOUT": "soon",
		"DB_MAX_OPEN_CONNS":   "many",
		"CATALOG_SOURCE":      "ftp",
		"NOTIFY_MODE":         "pigeon",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
