package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"tutorado/internal/database"
	"tutorado/internal/store/rest"
	"tutorado/pkg/logger"
)

const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"

	SessionFile   = "file"
	SessionRedis  = "redis"
	SessionMemory = "memory"
)

type Config struct {
	StoreDriver    string
	StoreURL       string
	StoreKey       string
	DB             database.Config
	LoadTimeout    time.Duration
	RequestTimeout time.Duration

	SessionBackend string
	SessionDir     string
	RedisAddr      string
	RedisPassword  string

	BotToken       string
	BotAPIEndpoint string

	Log logger.Config
}

func Load() Config {
	return Config{
		StoreDriver: strings.ToLower(getenv("STORE_DRIVER", DriverREST)),
		StoreURL:    os.Getenv("STORE_URL"),
		StoreKey:    os.Getenv("STORE_KEY"),

		DB: database.Config{
			Host:     getenv("DB_HOST", "localhost"),
			Port:     getenv("DB_PORT", "5432"),
			User:     os.Getenv("DB_USER"),
			Password: os.Getenv("DB_PASSWORD"),
			DBName:   getenv("DB_NAME", "tutorado"),
			SSLMode:  os.Getenv("DB_SSLMODE"),
		},

		LoadTimeout:    getenvDuration("LOAD_TIMEOUT", 20*time.Second),
		RequestTimeout: getenvDuration("REQUEST_TIMEOUT", 15*time.Second),

		SessionBackend: strings.ToLower(getenv("SESSION_BACKEND", SessionFile)),
		SessionDir:     getenv("SESSION_DIR", "./sessions"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),

		BotToken:       os.Getenv("BOT_TOKEN"),
		BotAPIEndpoint: os.Getenv("BOT_API_ENDPOINT"),

		Log: logger.Config{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
			Output: getenv("LOG_OUTPUT", "stdout"),
		},
	}
}

func (c Config) REST() rest.Config {
	return rest.Config{BaseURL: c.StoreURL, Key: c.StoreKey, Timeout: c.RequestTimeout}
}

// Diagnostics lists the configuration problems worth showing to a user.
// None of them stop the application: it falls back to an offline store or
// an in-memory session instead.
func (c Config) Diagnostics() []string {
	var out []string
	switch c.StoreDriver {
	case DriverREST:
		if c.StoreURL == "" {
			out = append(out, "STORE_URL não configurada: dados remotos indisponíveis")
		}
		if c.StoreKey == "" {
			out = append(out, "STORE_KEY não configurada: dados remotos indisponíveis")
		}
	case DriverPostgres:
		if c.DB.User == "" {
			out = append(out, "DB_USER não configurado")
		}
	case DriverMemory:
		out = append(out, "STORE_DRIVER=memory: dados de demonstração, nada é persistido")
	default:
		out = append(out, fmt.Sprintf("STORE_DRIVER desconhecido: %q", c.StoreDriver))
	}

	switch c.SessionBackend {
	case SessionFile, SessionMemory:
	case SessionRedis:
		if c.RedisAddr == "" {
			out = append(out, "SESSION_BACKEND=redis sem REDIS_ADDR: sessões ficam em memória")
		}
	default:
		out = append(out, fmt.Sprintf("SESSION_BACKEND desconhecido: %q, sessões ficam em memória", c.SessionBackend))
	}
	return out
}

func getenv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	if val := os.Getenv(key + "_SECONDS"); val != "" {
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}
