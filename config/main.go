package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	defaultPort       = "80"
	defaultSqlitePath = "data/driven.db"
	defaultOracle     = "openai"
	defaultTTS        = "openai"
	defaultCacheSize  = 16
)

type Config struct {
	Port       string
	Production bool

	StoreDriver string
	SqlitePath  string
	Postgres    PostgresConfig

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	SessionSecret  string
	OracleProvider string
	TTSProvider    string

	ContentCacheSize int
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	godotenv.Load()

	return Config{
		Port:             getenv("PORT", defaultPort),
		Production:       os.Getenv("PRODUCTION") != "",
		StoreDriver:      getenv("STORE_DRIVER", "sqlite"),
		SqlitePath:       getenv("SQLITE_PATH", defaultSqlitePath),
		Postgres: PostgresConfig{
			Host:     getenv("POSTGRES_DB_HOST", "localhost"),
			Port:     getenv("POSTGRES_DB_PORT", "5432"),
			User:     os.Getenv("POSTGRES_DB_USER"),
			Password: os.Getenv("POSTGRES_DB_PASS"),
			Name:     os.Getenv("POSTGRES_DB_NAME"),
			SSLMode:  getenv("POSTGRES_SSL_MODE", "disable"),
		},
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisPassword:    os.Getenv("REDIS_PASSWORD"),
		RedisDB:          getenvInt("REDIS_DB", 0),
		SessionSecret:    getenv("SESSION_SECRET", "driven-dev-secret"),
		OracleProvider:   getenv("ORACLE_PROVIDER", defaultOracle),
		TTSProvider:      getenv("TTS_PROVIDER", defaultTTS),
		ContentCacheSize: getenvInt("CONTENT_CACHE_SIZE", defaultCacheSize),
	}
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}
