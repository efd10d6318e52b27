// Package config loads the service settings from the environment. A .env file
// in the working directory is read first when present.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	DriverMySQL  = "mysql"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

type Config struct {
	ServerAddress  string
	ContextTimeout time.Duration

	StoreDriver     string
	DatabaseHost    string
	DatabasePort    string
	DatabaseUser    string
	DatabasePass    string
	DatabaseName    string
	DatabaseLoc     string
	DBMaxRetry      int
	DBRetryInterval time.Duration
	DBAutoMigrate   bool

	CacheDriver string
	CacheHost   string
	CachePort   string
	CachePass   string
	CacheDB     int

	FeedPageTTL         time.Duration
	FeedLatestTTL       time.Duration
	FeedPopulateTimeout time.Duration
	ReconcileInterval   time.Duration
	BloomFilterSize     uint64
	BloomHashes         int

	JWTSecret      string
	NatsURL        string
	EventQueueSize int

	LogLevel  string
	LogFormat string
}

// Load reads .env (optional) and the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Config{
		ServerAddress:  getEnv("SERVER_ADDRESS", ":9090"),
		ContextTimeout: getEnvSeconds("CONTEXT_TIMEOUT", 30),

		StoreDriver:     strings.ToLower(getEnv("STORE_DRIVER", DriverMySQL)),
		DatabaseHost:    getEnv("DATABASE_HOST", "localhost"),
		DatabasePort:    getEnv("DATABASE_PORT", "3306"),
		DatabaseUser:    getEnv("DATABASE_USER", "root"),
		DatabasePass:    getEnv("DATABASE_PASS", ""),
		DatabaseName:    getEnv("DATABASE_NAME", "feed"),
		DatabaseLoc:     getEnv("DATABASE_LOC", "UTC"),
		DBMaxRetry:      getEnvInt("DB_MAX_RETRY", 10),
		DBRetryInterval: getEnvSeconds("DB_RETRY_INTERVAL", 2),
		DBAutoMigrate:   getEnvBool("DB_AUTO_MIGRATE", true),

		CacheDriver: strings.ToLower(getEnv("CACHE_DRIVER", DriverRedis)),
		CacheHost:   getEnv("CACHE_HOST", "localhost"),
		CachePort:   getEnv("CACHE_PORT", "6379"),
		CachePass:   getEnv("CACHE_PASS", ""),
		CacheDB:     getEnvInt("CACHE_DB", 0),

		FeedPageTTL:         getEnvSeconds("FEED_PAGE_TTL", 600),
		FeedLatestTTL:       getEnvSeconds("FEED_LATEST_TTL", 60),
		FeedPopulateTimeout: getEnvSeconds("FEED_POPULATE_TIMEOUT", 5),
		ReconcileInterval:   getEnvSeconds("RECONCILE_INTERVAL", 60),
		BloomFilterSize:     uint64(getEnvInt("BLOOM_FILTER_SIZE", 10000000)),
		BloomHashes:         getEnvInt("BLOOM_HASHES", 3),

		JWTSecret:      os.Getenv("JWT_SECRET"),
		NatsURL:        os.Getenv("NATS_URL"),
		EventQueueSize: getEnvInt("EVENT_QUEUE_SIZE", 1024),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case DriverMySQL, DriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	switch c.CacheDriver {
	case DriverRedis, DriverMemory:
	default:
		return fmt.Errorf("unsupported CACHE_DRIVER %q", c.CacheDriver)
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.CacheDriver == DriverRedis {
		// Redis TTLs are whole seconds; EX 0 is rejected
		if c.FeedPageTTL < time.Second {
			return fmt.Errorf("FEED_PAGE_TTL must be at least 1s with the redis cache")
		}
		if c.FeedLatestTTL < time.Second {
			return fmt.Errorf("FEED_LATEST_TTL must be at least 1s with the redis cache")
		}
		if c.BloomHashes < 1 || c.BloomHashes > 16 {
			return fmt.Errorf("BLOOM_HASHES must be between 1 and 16")
		}
	}
	if c.FeedPopulateTimeout <= 0 {
		return fmt.Errorf("FEED_POPULATE_TIMEOUT must be positive")
	}
	return nil
}

// DSN is the go-sql-driver/mysql data source name.
func (c Config) DSN() string {
	connection := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", c.DatabaseUser, c.DatabasePass, c.DatabaseHost, c.DatabasePort, c.DatabaseName)
	val := url.Values{}
	val.Add("parseTime", "1")
	val.Add("loc", c.DatabaseLoc)
	return fmt.Sprintf("%s?%s", connection, val.Encode())
}

// CacheAddress is the host:port of Redis.
func (c Config) CacheAddress() string {
	return c.CacheHost + ":" + c.CachePort
}

// ConfigureLogger applies LOG_LEVEL and LOG_FORMAT to the logrus standard logger.
func (c Config) ConfigureLogger() {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		logrus.Warnf("invalid LOG_LEVEL %q, using info", c.LogLevel)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(c.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.Warnf("failed to parse %s, using default %d", key, fallback)
		return fallback
	}
	return n
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}

func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logrus.Warnf("failed to parse %s, using default %t", key, fallback)
		return fallback
	}
	return b
}
