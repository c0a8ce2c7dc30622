package config

import (
	"errors"
	"fmt"
	"strings"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

func ValidateStatic(cfg *Config) error {
	var errs []error

	for _, check := range []func(*Config) error{
		func(c *Config) error { return validateServer(c.Server) },
		func(c *Config) error { return validateStore(c.Store, c.Database) },
		func(c *Config) error { return validateDatabase(c.Database) },
		func(c *Config) error { return validateKafka(c.Broker.Kafka) },
		func(c *Config) error { return validateFilters(c.Filters) },
		func(c *Config) error { return validateRetry(c.Retry) },
	} {
		if err := check(cfg); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func validateServer(cfg ServerConfig) error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.ReadTimeout <= 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "read timeout must be positive",
		}
	}

	if cfg.WriteTimeout <= 0 {
		return &ValidationError{
			Field:   "server.write_timeout",
			Message: "write timeout must be positive",
		}
	}

	return nil
}

func validateStore(cfg StoreConfig, db DatabaseConfig) error {
	switch cfg.Backend {
	case BackendMemory:
		return nil
	case BackendPostgres:
		if db.Postgres.Host == "" {
			return &ValidationError{Field: "database.postgres", Message: "postgres backend requires database.postgres settings"}
		}
	case BackendMySQL:
		if db.MySQL.Host == "" {
			return &ValidationError{Field: "database.mysql", Message: "mysql backend requires database.mysql settings"}
		}
	case BackendRedis:
		if db.Redis.Host == "" {
			return &ValidationError{Field: "database.redis", Message: "redis backend requires database.redis settings"}
		}
	case BackendMongoDB:
		if db.MongoDB.URI == "" {
			return &ValidationError{Field: "database.mongodb", Message: "mongodb backend requires database.mongodb settings"}
		}
	default:
		return &ValidationError{
			Field:   "store.backend",
			Message: fmt.Sprintf("unknown store backend: %s (supported: memory, postgres, mysql, redis, mongodb)", cfg.Backend),
		}
	}

	if (cfg.Backend == BackendPostgres || cfg.Backend == BackendMySQL) && !isIdentifier(cfg.Table) {
		return &ValidationError{
			Field:   "store.table",
			Message: fmt.Sprintf("table must be a plain SQL identifier, got %q", cfg.Table),
		}
	}

	if cfg.Backend == BackendMongoDB && cfg.Collection == "" {
		return &ValidationError{Field: "store.collection", Message: "collection is required"}
	}

	return nil
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}

func validateDatabase(cfg DatabaseConfig) error {
	if cfg.Postgres.Host != "" || cfg.Postgres.Port > 0 {
		if err := validatePostgres(cfg.Postgres); err != nil {
			return err
		}
	}

	if cfg.MySQL.Host != "" || cfg.MySQL.Port > 0 {
		if err := validateMySQL(cfg.MySQL); err != nil {
			return err
		}
	}

	if cfg.Redis.Host != "" || cfg.Redis.Port > 0 {
		if err := validateRedis(cfg.Redis); err != nil {
			return err
		}
	}

	if cfg.MongoDB.URI != "" {
		if err := validateMongoDB(cfg.MongoDB); err != nil {
			return err
		}
	}

	return nil
}

func validatePostgres(cfg PostgresConfig) error {
	if cfg.Host == "" {
		return &ValidationError{Field: "database.postgres.host", Message: "PostgreSQL host is required"}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.postgres.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.User == "" {
		return &ValidationError{Field: "database.postgres.user", Message: "PostgreSQL user is required"}
	}

	if cfg.DBName == "" {
		return &ValidationError{Field: "database.postgres.dbname", Message: "PostgreSQL database name is required"}
	}

	validSSLModes := map[string]bool{
		"disable": true, "allow": true, "prefer": true,
		"require": true, "verify-ca": true, "verify-full": true,
	}
	if cfg.SSLMode != "" && !validSSLModes[strings.ToLower(cfg.SSLMode)] {
		return &ValidationError{
			Field:   "database.postgres.sslmode",
			Message: fmt.Sprintf("invalid SSL mode: %s (valid: disable, allow, prefer, require, verify-ca, verify-full)", cfg.SSLMode),
		}
	}

	return nil
}

func validateMySQL(cfg MySQLConfig) error {
	if cfg.Host == "" {
		return &ValidationError{Field: "database.mysql.host", Message: "MySQL host is required"}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.mysql.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	if cfg.DBName == "" {
		return &ValidationError{Field: "database.mysql.dbname", Message: "MySQL database name is required"}
	}

	return nil
}

func validateRedis(cfg RedisConfig) error {
	if cfg.Host == "" {
		return &ValidationError{Field: "database.redis.host", Message: "Redis host is required"}
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{
			Field:   "database.redis.port",
			Message: fmt.Sprintf("port must be between 1 and 65535, got %d", cfg.Port),
		}
	}

	return nil
}

func validateMongoDB(cfg MongoDBConfig) error {
	if !strings.HasPrefix(cfg.URI, "mongodb://") && !strings.HasPrefix(cfg.URI, "mongodb+srv://") {
		return &ValidationError{
			Field:   "database.mongodb.uri",
			Message: "MongoDB URI must start with mongodb:// or mongodb+srv://",
		}
	}

	if cfg.Database == "" {
		return &ValidationError{Field: "database.mongodb.database", Message: "MongoDB database name is required"}
	}

	return nil
}

func validateKafka(cfg KafkaConfig) error {
	if !cfg.Enabled() {
		return nil
	}

	for i, broker := range cfg.Brokers {
		if broker == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("broker.kafka.brokers[%d]", i),
				Message: "broker address cannot be empty",
			}
		}
	}

	if cfg.FilterEventsTopic == "" {
		return &ValidationError{
			Field:   "broker.kafka.filter_events_topic",
			Message: "topic is required when brokers are configured",
		}
	}

	return nil
}

func validateFilters(cfg FiltersConfig) error {
	if _, err := cfg.Location(); err != nil {
		return &ValidationError{
			Field:   "filters.timezone",
			Message: fmt.Sprintf("unknown timezone %q", cfg.Timezone),
		}
	}

	if cfg.FormsFile == "" {
		return &ValidationError{Field: "filters.forms_file", Message: "forms file is required"}
	}

	return nil
}

func validateRetry(cfg RetryConfig) error {
	if cfg.MaxAttempts < 0 {
		return &ValidationError{Field: "retry.max_attempts", Message: "max_attempts must be non-negative"}
	}

	if cfg.InitialInterval < 0 || cfg.MaxInterval < 0 {
		return &ValidationError{Field: "retry", Message: "intervals must be non-negative"}
	}

	if cfg.MaxInterval > 0 && cfg.InitialInterval > 0 && cfg.MaxInterval < cfg.InitialInterval {
		return &ValidationError{
			Field:   "retry.max_interval",
			Message: "max_interval must be greater than or equal to initial_interval",
		}
	}

	if cfg.Multiplier <= 0 {
		return &ValidationError{Field: "retry.multiplier", Message: "multiplier must be positive"}
	}

	return nil
}
