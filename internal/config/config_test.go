package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"STORE_DRIVER", "STORE_URL", "STORE_KEY", "LOAD_TIMEOUT", "LOAD_TIMEOUT_SECONDS", "SESSION_BACKEND"} {
		t.Setenv(k, "")
	}

	cfg := Load()
	assert.Equal(t, DriverREST, cfg.StoreDriver)
	assert.Equal(t, 20*time.Second, cfg.LoadTimeout)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, SessionFile, cfg.SessionBackend)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Postgres")
	t.Setenv("STORE_URL", "https://example.test")
	t.Setenv("LOAD_TIMEOUT", "")
	t.Setenv("LOAD_TIMEOUT_SECONDS", "5")
	t.Setenv("REQUEST_TIMEOUT", "750ms")
	t.Setenv("DB_NAME", "escola")

	cfg := Load()
	assert.Equal(t, DriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 5*time.Second, cfg.LoadTimeout)
	assert.Equal(t, 750*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, "escola", cfg.DB.DBName)
	assert.Equal(t, "https://example.test", cfg.REST().BaseURL)
}

func TestDiagnosticsMissingRemote(t *testing.T) {
	cfg := Config{StoreDriver: DriverREST, SessionBackend: SessionFile}
	d := cfg.Diagnostics()
	assert.Len(t, d, 2)
	assert.Contains(t, d[0], "STORE_URL")
	assert.Contains(t, d[1], "STORE_KEY")
}

func TestDiagnosticsClean(t *testing.T) {
	cfg := Config{StoreDriver: DriverREST, StoreURL: "u", StoreKey: "k", SessionBackend: SessionRedis, RedisAddr: "r:6379"}
	assert.Empty(t, cfg.Diagnostics())
}

func TestDiagnosticsUnknownValues(t *testing.T) {
	cfg := Config{StoreDriver: "sqlite", SessionBackend: "etcd"}
	assert.Len(t, cfg.Diagnostics(), 2)
}
