package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()

	v.SetConfigType("yaml")
	v.SetConfigFile(configFile)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	bindEnvVariables(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(v, &cfg)

	if err := ValidateStatic(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)

	v.SetDefault("store.backend", BackendMemory)
	v.SetDefault("store.table", "view_filters")
	v.SetDefault("store.collection", "view_filters")
	v.SetDefault("store.key_prefix", "viewfilter:")

	v.SetDefault("broker.kafka.filter_events_topic", "view_filters_updated")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_interval", 50*time.Millisecond)
	v.SetDefault("retry.max_interval", time.Second)
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.max_elapsed_time", 5*time.Second)
}

func bindEnvVariables(v *viper.Viper) {
	v.BindEnv("broker.kafka.brokers", "BROKER_KAFKA_BROKERS")
	v.BindEnv("broker.kafka.filter_events_topic", "BROKER_KAFKA_FILTER_EVENTS_TOPIC")

	v.BindEnv("database.postgres.host", "DATABASE_POSTGRES_HOST")
	v.BindEnv("database.postgres.port", "DATABASE_POSTGRES_PORT")
	v.BindEnv("database.postgres.user", "DATABASE_POSTGRES_USER")
	v.BindEnv("database.postgres.password", "DATABASE_POSTGRES_PASSWORD")
	v.BindEnv("database.postgres.dbname", "DATABASE_POSTGRES_DBNAME")
	v.BindEnv("database.postgres.sslmode", "DATABASE_POSTGRES_SSLMODE")

	v.BindEnv("database.mysql.host", "DATABASE_MYSQL_HOST")
	v.BindEnv("database.mysql.port", "DATABASE_MYSQL_PORT")
	v.BindEnv("database.mysql.user", "DATABASE_MYSQL_USER")
	v.BindEnv("database.mysql.password", "DATABASE_MYSQL_PASSWORD")
	v.BindEnv("database.mysql.dbname", "DATABASE_MYSQL_DBNAME")

	v.BindEnv("database.redis.host", "DATABASE_REDIS_HOST")
	v.BindEnv("database.redis.port", "DATABASE_REDIS_PORT")
	v.BindEnv("database.redis.password", "DATABASE_REDIS_PASSWORD")
	v.BindEnv("database.redis.db", "DATABASE_REDIS_DB")

	v.BindEnv("database.mongodb.uri", "DATABASE_MONGODB_URI")
	v.BindEnv("database.mongodb.database", "DATABASE_MONGODB_DATABASE")

	v.BindEnv("store.backend", "STORE_BACKEND")

	v.BindEnv("filters.timezone", "FILTERS_TIMEZONE")
	v.BindEnv("filters.forms_file", "FILTERS_FORMS_FILE")

	v.BindEnv("server.port", "SERVER_PORT")

	v.BindEnv("logging.level", "LOGGING_LEVEL")
	v.BindEnv("logging.format", "LOGGING_FORMAT")

	v.BindEnv("tracing.otlp.endpoint", "TRACING_OTLP_ENDPOINT")
	v.BindEnv("tracing.otlp.insecure", "TRACING_OTLP_INSECURE")
	v.BindEnv("tracing.enabled", "TRACING_ENABLED")
	v.BindEnv("tracing.service_name", "TRACING_SERVICE_NAME")
}

// applyEnvOverrides handles values viper cannot split on its own.
func applyEnvOverrides(v *viper.Viper, cfg *Config) {
	if brokersEnv := v.GetString("BROKER_KAFKA_BROKERS"); brokersEnv != "" {
		var brokers []string
		for _, b := range strings.Split(brokersEnv, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		if len(brokers) > 0 {
			cfg.Broker.Kafka.Brokers = brokers
		}
	}
}
