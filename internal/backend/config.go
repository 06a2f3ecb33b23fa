// Package backend implements the document-store adapter (spec component E):
// a Postgres-backed node store with an asynchronous Kafka update queue.
package backend

import (
	"errors"
	"strings"
	"time"

	"github.com/genomehubs/fillcore/internal/config"
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 5
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 10 * time.Minute
	defaultPageSize        = 500
	defaultFetchRPS        = 200
	defaultFetchBurst      = 400
	defaultKafkaTopic      = "fill.node-updates"
	defaultCleanupInterval = 1 * time.Hour
)

// ErrDatabaseURLEmpty is returned when the database url is an empty string.
var ErrDatabaseURLEmpty = errors.New("database URL cannot be empty")

// Config holds PostgreSQL connection, streaming, and Kafka update-queue
// configuration for the backend adapter.
type Config struct {
	databaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration

	// PageSize bounds the rows per page for streamed depth queries (spec §9: "buffer minimally").
	PageSize int

	// FetchRPS/FetchBurst bound the backend-fetch pipeline stage (spec §5).
	FetchRPS   int
	FetchBurst int

	// KafkaBrokers/KafkaTopic configure the asynchronous bulk-update queue (spec §4.E).
	KafkaBrokers []string
	KafkaTopic   string

	// CleanupInterval controls how often the update-queue staging table is swept for
	// applied/expired entries (see internal/backend/cleanup.go).
	CleanupInterval time.Duration
}

// LoadConfig loads backend configuration from environment variables with
// production-ready defaults, following the teacher's storage.LoadConfig shape.
func LoadConfig() *Config {
	return &Config{
		databaseURL:     config.GetEnvStr("DATABASE_URL", ""),
		MaxOpenConns:    config.GetEnvInt("DATABASE_MAX_OPEN_CONNS", defaultMaxOpenConns),
		MaxIdleConns:    config.GetEnvInt("DATABASE_MAX_IDLE_CONNS", defaultMaxIdleConns),
		ConnMaxLifetime: config.GetEnvDuration("DATABASE_CONN_MAX_LIFETIME", defaultConnMaxLifetime),
		ConnMaxIdleTime: config.GetEnvDuration("DATABASE_CONN_MAX_IDLE_TIME", defaultConnMaxIdleTime),
		PageSize:        config.GetEnvInt("FILL_PAGE_SIZE", defaultPageSize),
		FetchRPS:        config.GetEnvInt("FILL_FETCH_RPS", defaultFetchRPS),
		FetchBurst:      config.GetEnvInt("FILL_FETCH_BURST", defaultFetchBurst),
		KafkaBrokers:    config.ParseCommaSeparatedList(config.GetEnvStr("KAFKA_BROKERS", "")),
		KafkaTopic:      config.GetEnvStr("KAFKA_UPDATE_TOPIC", defaultKafkaTopic),
		CleanupInterval: config.GetEnvDuration("FILL_QUEUE_CLEANUP_INTERVAL", defaultCleanupInterval),
	}
}

// Validate checks if the backend configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.databaseURL) == "" {
		return ErrDatabaseURLEmpty
	}

	return nil
}

// MaskDatabaseURL returns a masked databaseURL safe for logging.
func (c *Config) MaskDatabaseURL() string {
	if c.databaseURL == "" {
		return ""
	}

	schemeEnd := strings.Index(c.databaseURL, "://")
	if schemeEnd == -1 {
		return c.databaseURL
	}

	afterScheme := c.databaseURL[schemeEnd+3:]

	lastAtIndex := strings.LastIndex(afterScheme, "@")
	if lastAtIndex == -1 {
		return c.databaseURL
	}

	userInfo := afterScheme[:lastAtIndex]

	colonIndex := strings.Index(userInfo, ":")
	if colonIndex == -1 {
		return c.databaseURL
	}

	username := userInfo[:colonIndex]
	password := userInfo[colonIndex+1:]

	if password == "" {
		return c.databaseURL
	}

	scheme := c.databaseURL[:schemeEnd]
	hostAndRest := afterScheme[lastAtIndex:]

	return scheme + "://" + username + ":***" + hostAndRest
}
