package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"strconv"

	"github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"viewfilter/internal/config"
	"viewfilter/internal/logger"
)

// Connections holds the clients opened for the configured store backend.
// Unused backends stay nil.
type Connections struct {
	Postgres *sql.DB
	MySQL    *sql.DB
	Redis    *redis.Client
	Mongo    *mongo.Client
}

type DatabaseConnector struct {
	Config *config.Config
	Logger logger.Logger
}

func NewDatabaseConnector(cfg *config.Config, log logger.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Config: cfg,
		Logger: log,
	}
}

// Connect opens only the client the store backend needs.
func (dc *DatabaseConnector) Connect(ctx context.Context) (*Connections, error) {
	conns := &Connections{}
	var err error

	switch dc.Config.Store.Backend {
	case config.BackendPostgres:
		conns.Postgres, err = dc.InitPostgreSQL(ctx)
	case config.BackendMySQL:
		conns.MySQL, err = dc.InitMySQL(ctx)
	case config.BackendRedis:
		conns.Redis, err = dc.InitRedis(ctx)
	case config.BackendMongoDB:
		conns.Mongo, err = dc.InitMongoDB(ctx)
	}
	if err != nil {
		return nil, err
	}
	return conns, nil
}

func (dc *DatabaseConnector) InitRedis(ctx context.Context) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", dc.Config.Database.Redis.Host, dc.Config.Database.Redis.Port),
		Password: dc.Config.Database.Redis.Password,
		DB:       dc.Config.Database.Redis.DB,
	})

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	dc.Logger.Infow("Redis connected successfully")
	return rdb, nil
}

func PostgresDSN(cfg config.PostgresConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.DBName,
		cfg.SSLMode,
	)
}

func (dc *DatabaseConnector) InitPostgreSQL(ctx context.Context) (*sql.DB, error) {
	if dc.Config.Database.Postgres.Host == "" {
		return nil, fmt.Errorf("postgres host is not configured")
	}

	db, err := sql.Open("postgres", PostgresDSN(dc.Config.Database.Postgres))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dc.Logger.Infow("PostgreSQL connected successfully")
	return db, nil
}

// MySQLDSN builds a DSN with parseTime enabled so DATETIME columns scan into
// time.Time.
func MySQLDSN(cfg config.MySQLConfig) string {
	mc := mysql.NewConfig()
	mc.User = cfg.User
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	mc.DBName = cfg.DBName
	mc.ParseTime = true
	mc.MultiStatements = true
	return mc.FormatDSN()
}

func (dc *DatabaseConnector) InitMySQL(ctx context.Context) (*sql.DB, error) {
	if dc.Config.Database.MySQL.Host == "" {
		return nil, fmt.Errorf("mysql host is not configured")
	}

	db, err := sql.Open("mysql", MySQLDSN(dc.Config.Database.MySQL))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	dc.Logger.Infow("MySQL connected successfully")
	return db, nil
}

func (dc *DatabaseConnector) InitMongoDB(ctx context.Context) (*mongo.Client, error) {
	if dc.Config.Database.MongoDB.URI == "" {
		return nil, fmt.Errorf("mongodb uri is not configured")
	}

	mongoOpts := options.Client().ApplyURI(dc.Config.Database.MongoDB.URI)
	mongoClient, err := mongo.Connect(ctx, mongoOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := mongoClient.Ping(ctx, nil); err != nil {
		mongoClient.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dc.Logger.Infow("MongoDB connected successfully")
	return mongoClient, nil
}

func (dc *DatabaseConnector) ShutdownDatabases(ctx context.Context, conns *Connections) []error {
	if conns == nil {
		return nil
	}

	var errs []error

	if conns.Redis != nil {
		if err := conns.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close error: %w", err))
		}
	}

	if conns.Postgres != nil {
		if err := conns.Postgres.Close(); err != nil {
			errs = append(errs, fmt.Errorf("postgres close error: %w", err))
		}
	}

	if conns.MySQL != nil {
		if err := conns.MySQL.Close(); err != nil {
			errs = append(errs, fmt.Errorf("mysql close error: %w", err))
		}
	}

	if conns.Mongo != nil {
		if err := conns.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("mongodb disconnect error: %w", err))
		}
	}

	return errs
}
