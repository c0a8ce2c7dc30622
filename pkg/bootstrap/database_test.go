package bootstrap

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viewfilter/internal/config"
	"viewfilter/internal/logger"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(config.PostgresConfig{
		Host:     "db",
		Port:     5432,
		User:     "app",
		Password: "secret",
		DBName:   "views",
		SSLMode:  "disable",
	})
	assert.Equal(t, "postgres://app:secret@db:5432/views?sslmode=disable", dsn)
}

func TestMySQLDSN(t *testing.T) {
	dsn := MySQLDSN(config.MySQLConfig{
		Host:     "db",
		Port:     3306,
		User:     "app",
		Password: "secret",
		DBName:   "views",
	})
	assert.Contains(t, dsn, "app:secret@tcp(db:3306)/views")
	assert.Contains(t, dsn, "parseTime=true")
}

func TestConnectMemoryBackendOpensNothing(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Backend: config.BackendMemory}}
	dc := NewDatabaseConnector(cfg, logger.NopLogger())

	conns, err := dc.Connect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Connections{}, conns)
	assert.Empty(t, dc.ShutdownDatabases(context.Background(), conns))
}

func TestConnectRequiresBackendSettings(t *testing.T) {
	for _, backend := range []string{config.BackendPostgres, config.BackendMySQL, config.BackendMongoDB} {
		t.Run(backend, func(t *testing.T) {
			cfg := &config.Config{Store: config.StoreConfig{Backend: backend}}
			_, err := NewDatabaseConnector(cfg, logger.NopLogger()).Connect(context.Background())
			assert.Error(t, err)
		})
	}
}

func TestInitBrokerWithoutBrokers(t *testing.T) {
	b := NewBase(&config.Config{}, logger.NopLogger())
	require.NoError(t, b.InitBroker())
	assert.Nil(t, b.Producer)
	assert.NoError(t, b.Shutdown(context.Background(), nil))
}
