// Package config defines the typed configuration for both binaries and the
// validation applied at startup. Values come from .env files under configs/
// with environment variables taking precedence.
package config

import (
	"errors"
	"strings"
	"time"
)

// Config is the root configuration shared by the API gateway and the event
// processor. Every subsystem gets its own section; validate runs once after
// loading.
type Config struct {
	Application ApplicationConfig
	Logging     LoggingConfig
	Server      ServerConfig
	Kafka       KafkaConfig
	Postgres    PostgresConfig
	MongoDB     MongoDBConfig
	Revenue     RevenueConfig
	Reconciler  ReconcilerConfig
	WorkerPool  WorkerPoolConfig
}

// ApplicationConfig identifies the running service
type ApplicationConfig struct {
	Env  string
	Name string
}

// LoggingConfig controls the slog handler
type LoggingConfig struct {
	Level string
}

// ServerConfig holds HTTP listener timeouts and the port
type ServerConfig struct {
	Port            int           // Listen port
	ShutdownTimeout time.Duration // Grace period on SIGTERM
	ReadTimeout     time.Duration // Full request read deadline
	WriteTimeout    time.Duration // Response write deadline
	IdleTimeout     time.Duration // Keep-alive idle deadline
}

// KafkaConfig covers the event topic, DLQ and consumer tuning
type KafkaConfig struct {
	Brokers           string
	EventTopic        string
	NumPartitions     int // Partitions created for new topics
	ReplicationFactor int // Replication for new topics
	ConsumerGroup     string
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	StartOffset       int64
	DLQTopic          string // Dead letter topic
}

// PostgresConfig holds pgx pool settings
type PostgresConfig struct {
	URL             string        // Connection string
	MaxConns        int32         // Pool upper bound
	MinConns        int32         // Connections kept warm
	ConnMaxLifetime time.Duration // Recycle age
	ConnMaxIdleTime time.Duration // Idle recycle age
	MigrationsPath  string        // Directory with SQL migrations
}

// MongoDBConfig holds mongo driver pool settings
type MongoDBConfig struct {
	URI             string
	Database        string
	Timeout         time.Duration
	MaxPoolSize     uint64
	MinPoolSize     uint64
	MaxConnIdleTime time.Duration
}

// RevenueConfig contains the creator/platform revenue split configuration.
// CreatorSharePercent is the whole-number percentage of each tip that forms
// the creator pool; the rest, plus all rounding residue, is platform revenue.
type RevenueConfig struct {
	CreatorSharePercent int
}

// ReconcilerConfig tunes the periodic hash verification sweep
type ReconcilerConfig struct {
	SweepInterval time.Duration
	BatchSize     int
}

// WorkerPoolConfig sizes the event processing pool
type WorkerPoolConfig struct {
	Size int // Concurrent event workers
}

// validate rejects configurations that would fail at runtime, naming the
// offending variable in the error
func (c *Config) validate() error {
	var validationErrors []string

	// Server
	if c.Server.Port <= 0 {
		validationErrors = append(validationErrors, "SERVER_PORT must be greater than 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_SHUTDOWN_TIMEOUT must be greater than 0")
	}
	if c.Server.ReadTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_READ_TIMEOUT must be greater than 0")
	}
	if c.Server.WriteTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_WRITE_TIMEOUT must be greater than 0")
	}
	if c.Server.IdleTimeout <= 0 {
		validationErrors = append(validationErrors, "SERVER_IDLE_TIMEOUT must be greater than 0")
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		validationErrors = append(validationErrors, "KAFKA_BROKERS is required")
	}
	if c.Kafka.EventTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_EVENT_TOPIC is required")
	}
	if c.Kafka.ConsumerGroup == "" {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_GROUP is required")
	}
	if c.Kafka.MinBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MIN_BYTES must be greater than 0")
	}
	if c.Kafka.MaxBytes <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_BYTES must be greater than 0")
	}
	if c.Kafka.MaxWait <= 0 {
		validationErrors = append(validationErrors, "KAFKA_CONSUMER_MAX_WAIT must be greater than 0")
	}
	if c.Kafka.DLQTopic == "" {
		validationErrors = append(validationErrors, "KAFKA_DLQ_TOPIC is required")
	}

	// PostgreSQL
	if c.Postgres.URL == "" {
		validationErrors = append(validationErrors, "POSTGRES_URL is required")
	}
	if c.Postgres.MaxConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONNS must be greater than 0")
	}
	if c.Postgres.MinConns <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MIN_CONNS must be greater than 0")
	}
	if c.Postgres.ConnMaxLifetime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_LIFETIME must be greater than 0")
	}
	if c.Postgres.ConnMaxIdleTime <= 0 {
		validationErrors = append(validationErrors, "POSTGRES_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// MongoDB
	if c.MongoDB.URI == "" {
		validationErrors = append(validationErrors, "MONGO_URI is required")
	}
	if c.MongoDB.Database == "" {
		validationErrors = append(validationErrors, "MONGO_DATABASE is required")
	}
	if c.MongoDB.Timeout <= 0 {
		validationErrors = append(validationErrors, "MONGO_TIMEOUT must be greater than 0")
	}
	if c.MongoDB.MaxPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MinPoolSize <= 0 {
		validationErrors = append(validationErrors, "MONGO_MIN_POOL_SIZE must be greater than 0")
	}
	if c.MongoDB.MaxConnIdleTime <= 0 {
		validationErrors = append(validationErrors, "MONGO_MAX_CONN_IDLE_TIME must be greater than 0")
	}

	// Revenue split
	if c.Revenue.CreatorSharePercent < 0 || c.Revenue.CreatorSharePercent > 100 {
		validationErrors = append(validationErrors, "REVENUE_CREATOR_SHARE_PERCENT must be between 0 and 100")
	}

	// Verification sweep
	if c.Reconciler.SweepInterval <= 0 {
		validationErrors = append(validationErrors, "RECONCILER_SWEEP_INTERVAL must be greater than 0")
	}
	if c.Reconciler.BatchSize <= 0 {
		validationErrors = append(validationErrors, "RECONCILER_BATCH_SIZE must be greater than 0")
	}

	// Worker pool
	if c.WorkerPool.Size <= 0 {
		validationErrors = append(validationErrors, "WORKER_POOL_SIZE must be greater than 0")
	}

	if len(validationErrors) > 0 {
		return errors.New(strings.Join(validationErrors, ", "))
	}

	return nil
}
