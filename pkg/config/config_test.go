package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viperWith(values map[string]string) *viper.Viper {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return v
}

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viperWith(map[string]string{"JWT_SECRET": "s3cr3t"}))
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, "America/Bogota", cfg.Scheduler.Timezone)
	assert.Equal(t, "09:00", cfg.Scheduler.RunAt)
	assert.Equal(t, 72*time.Hour, cfg.Scheduler.Window)
	assert.Equal(t, time.Second, cfg.Scheduler.SendDelay)
	assert.Zero(t, cfg.Scheduler.Interval)
	assert.True(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "local", cfg.Storage.Driver)
	assert.Equal(t, "http://localhost:8080/uploads", cfg.Storage.PublicBaseURL)
	assert.Equal(t, "log", cfg.Mail.Driver)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
}

func TestFromViper_TestMode(t *testing.T) {
	cfg, err := fromViper(viperWith(map[string]string{
		"JWT_SECRET":      "s3cr3t",
		"TEST_MODE":       "true",
		"REMINDER_WINDOW": "48h",
	}))
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval)
	assert.Zero(t, cfg.Scheduler.Window)
}

func TestFromViper_Overrides(t *testing.T) {
	cfg, err := fromViper(viperWith(map[string]string{
		"JWT_SECRET":          "s3cr3t",
		"DB_DRIVER":           "MEMORY",
		"DB_PORT":             "6543",
		"REMINDER_INTERVAL":   "15m",
		"REMINDER_SEND_DELAY": "2",
		"SCHEDULER_ENABLED":   "false",
		"MAIL_DRIVER":         "smtp",
		"SMTP_HOST":           "smtp.example.co",
		"MAIL_FROM":           "rma@example.co",
	}))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.DB.Driver)
	assert.Equal(t, 6543, cfg.DB.Port)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 2*time.Second, cfg.Scheduler.SendDelay)
	assert.False(t, cfg.Scheduler.Enabled)
	assert.Equal(t, "smtp.example.co", cfg.Mail.SMTPHost)
}

func TestFromViper_Invalida(t *testing.T) {
	_, err := fromViper(viperWith(map[string]string{}))
	assert.ErrorContains(t, err, "JWT_SECRET")

	_, err = fromViper(viperWith(map[string]string{"JWT_SECRET": "x", "MAIL_DRIVER": "smtp"}))
	assert.ErrorContains(t, err, "SMTP_HOST")

	_, err = fromViper(viperWith(map[string]string{"JWT_SECRET": "x", "STORAGE_DRIVER": "gcs"}))
	assert.ErrorContains(t, err, "GCS_BUCKET")

	_, err = fromViper(viperWith(map[string]string{"JWT_SECRET": "x", "DB_DRIVER": "mysql"}))
	assert.ErrorContains(t, err, "DB_DRIVER")
}

func TestDSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "rma", Password: "p@ss", DBName: "rma", SSLMode: "disable"}
	assert.Equal(t, "postgres://rma:p%40ss@db:5432/rma?sslmode=disable", c.DSN())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
