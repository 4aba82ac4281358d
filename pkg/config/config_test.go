package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	cfg, err := Load("leasedesk")
	require.NoError(t, err)

	assert.Equal(t, "leasedesk", cfg.DB.DBName)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 8, cfg.Notify.Concurrency)
	assert.Empty(t, cfg.Notify.Roles)
	assert.Equal(t, 30*time.Second, cfg.Outbox.RelayInterval)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("DB_NAME", "props")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("NOTIFY_ROLES", "ADMIN, MANAGER ,")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("OUTBOX_RELAY_INTERVAL", "5s")
	t.Setenv("OUTBOX_MAX_ATTEMPTS", "not-a-number")

	cfg, err := Load("leasedesk")
	require.NoError(t, err)

	assert.Equal(t, "props", cfg.DB.DBName)
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
	assert.Equal(t, []string{"ADMIN", "MANAGER"}, cfg.Notify.Roles)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 5*time.Second, cfg.Outbox.RelayInterval)
	assert.Equal(t, 10, cfg.Outbox.MaxAttempts)
}

func TestLoadRejectsDefaultKeyInProduction(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SIGNING_KEY", "defaultsecretkey")

	_, err := Load("leasedesk")
	assert.Error(t, err)
}

func TestGetDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.GetDSN())
}
