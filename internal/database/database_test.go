package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfigFromEnvDefaults(t *testing.T) {
	cfg := configFromEnv()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, "5432", cfg.Port)
	assert.Equal(t, "eventboard", cfg.DBName)
	assert.Equal(t, "disable", cfg.SSLMode)
}

func TestConfigFromEnvOverrides(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6432")
	t.Setenv("DB_NAME", "eventboard_test")

	cfg := configFromEnv()

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, "6432", cfg.Port)
	assert.Equal(t, "eventboard_test", cfg.DBName)
}

func TestDSN(t *testing.T) {
	cfg := Config{
		Host:     "localhost",
		Port:     "5432",
		User:     "postgres",
		Password: "secret",
		DBName:   "eventboard",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=secret dbname=eventboard sslmode=disable",
		cfg.DSN())
}
