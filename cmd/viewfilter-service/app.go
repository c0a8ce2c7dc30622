package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/sync/errgroup"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"viewfilter/internal/config"
	"viewfilter/internal/constants"
	"viewfilter/internal/logger"
	"viewfilter/internal/mergetag"
	"viewfilter/internal/rules"
	"viewfilter/internal/schema"
	"viewfilter/internal/store"
	"viewfilter/internal/viewfilter"
	"viewfilter/pkg/bootstrap"
	"viewfilter/pkg/health"
	"viewfilter/pkg/logging"
	"viewfilter/pkg/metrics"
	"viewfilter/pkg/middleware"
	"viewfilter/pkg/migrations"
	"viewfilter/pkg/ratelimit"
	"viewfilter/pkg/retry"
	"viewfilter/pkg/tracing"
)

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	conns          *bootstrap.Connections
	forms          *schema.Provider
	store          *store.Store
	breaker        *store.CircuitBreakerRepository
	service        viewfilter.Service
	server         *http.Server
	router         *gin.Engine
	health         *health.CheckerRegistry
	tracerProvider *tracing.TracerProvider
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.Register()

	initCtx, cancel := context.WithTimeout(ctx, constants.InitTimeout)
	defer cancel()

	if err := a.initStore(initCtx); err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	if err := a.InitBroker(); err != nil {
		a.Logger.WarnwCtx(ctx, "Failed to create event producer, view filter events disabled", "error", err)
	}

	if err := a.initService(); err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}

	a.initRouter(ctx)
	a.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler:      a.router,
		ReadTimeout:  a.Config.Server.ReadTimeout,
		WriteTimeout: a.Config.Server.WriteTimeout,
	}

	return nil
}

func (a *App) initStore(ctx context.Context) error {
	repo, err := a.openRepository(ctx)
	if err != nil {
		return err
	}

	a.breaker = store.NewCircuitBreakerRepository(repo, "view-filter-store", a.Config.CircuitBreaker)
	a.store = store.New(a.breaker,
		store.WithLogger(a.Logger),
		store.WithRetryPolicy(retryPolicy(a.Config.Retry)),
	)
	return nil
}

// openRepository connects the configured backend and prepares its schema.
func (a *App) openRepository(ctx context.Context) (store.Repository, error) {
	conns, err := a.dbConnector.Connect(ctx)
	if err != nil {
		return nil, err
	}
	a.conns = conns
	a.health = health.NewCheckerRegistry()

	storeCfg := a.Config.Store
	switch storeCfg.Backend {
	case config.BackendPostgres:
		a.health.Register(health.NewSQLChecker("postgres", conns.Postgres))
		if err := a.migrate(conns.Postgres, migrations.Postgres); err != nil {
			return nil, err
		}
		return store.NewSQLRepository(conns.Postgres, store.DialectPostgres, storeCfg.Table), nil

	case config.BackendMySQL:
		a.health.Register(health.NewSQLChecker("mysql", conns.MySQL))
		if err := a.migrate(conns.MySQL, migrations.MySQL); err != nil {
			return nil, err
		}
		return store.NewSQLRepository(conns.MySQL, store.DialectMySQL, storeCfg.Table), nil

	case config.BackendRedis:
		a.health.Register(health.NewRedisChecker(conns.Redis))
		return store.NewRedisRepository(conns.Redis, storeCfg.KeyPrefix), nil

	case config.BackendMongoDB:
		a.health.Register(health.NewMongoDBChecker(conns.Mongo))
		db := conns.Mongo.Database(a.mongoDatabase())
		if a.Config.Database.RunMigrations {
			if err := migrations.EnsureMongoCollections(ctx, db, storeCfg.Collection); err != nil {
				return nil, fmt.Errorf("failed to prepare mongodb collection: %w", err)
			}
		}
		return store.NewMongoRepository(db, storeCfg.Collection), nil

	default:
		a.Logger.WarnwCtx(ctx, "Using in-memory view filter store, rules are lost on restart")
		return store.NewMemoryRepository(), nil
	}
}

func (a *App) migrate(db *sql.DB, dialect string) error {
	if !a.Config.Database.RunMigrations {
		return nil
	}
	if err := migrations.Up(db, dialect); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	a.Logger.Infow("Migrations applied", "dialect", dialect)
	return nil
}

func (a *App) initService() error {
	forms, err := schema.LoadFile(a.Config.Filters.FormsFile)
	if err != nil {
		return err
	}
	a.forms = forms

	loc, err := a.Config.Filters.Location()
	if err != nil {
		return fmt.Errorf("invalid filters timezone: %w", err)
	}
	clock := rules.NewSystemClock(loc)

	resolver := rules.NewResolver(
		rules.WithSchema(forms),
		rules.WithExpander(mergetag.New(clock)),
		rules.WithClock(clock),
		rules.WithResolverLogger(a.Logger),
	)

	opts := []viewfilter.ServiceOption{
		viewfilter.WithLogger(a.Logger),
		viewfilter.WithCompiler(rules.NewCompiler(resolver, a.Logger)),
		viewfilter.WithCatalog(rules.NewCatalogBuilder(forms, rules.WithCatalogLogger(a.Logger))),
		viewfilter.WithEditorIdentity(a.Config.Filters.EditorResolveIdentity),
		viewfilter.WithAudit(a.auditRepository()),
	}
	if a.Producer != nil {
		opts = append(opts, viewfilter.WithNotifier(
			viewfilter.NewEventPublisher(a.Producer, a.Config.Broker.Kafka.FilterEventsTopic),
		))
	}

	a.service = viewfilter.NewService(a.store, forms, opts...)
	return nil
}

func (a *App) mongoDatabase() string {
	if name := a.Config.Database.MongoDB.Database; name != "" {
		return name
	}
	return constants.DefaultMongoDBName
}

func (a *App) auditRepository() viewfilter.AuditRepository {
	switch {
	case a.conns.Postgres != nil:
		return viewfilter.NewSQLAuditRepository(a.conns.Postgres, store.DialectPostgres)
	case a.conns.MySQL != nil:
		return viewfilter.NewSQLAuditRepository(a.conns.MySQL, store.DialectMySQL)
	case a.conns.Mongo != nil:
		return viewfilter.NewMongoAuditRepository(a.conns.Mongo.Database(a.mongoDatabase()))
	default:
		return viewfilter.NewMemoryAuditRepository()
	}
}

func (a *App) initRouter(ctx context.Context) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	if a.Config.Tracing.Enabled {
		router.Use(tracing.GinMiddleware(constants.ServiceName), tracing.ViewAttributes())
	}

	router.Use(middleware.RecoveryMiddleware(a.Logger))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(a.Logger))

	if rl := a.Config.Management.RateLimit; rl.Enabled {
		rateLimitConfig := ratelimit.DefaultConfig()
		rateLimitConfig.RPS = rl.RPS
		rateLimitConfig.Burst = rl.Burst
		if rl.CleanupInterval > 0 {
			rateLimitConfig.CleanupInterval = time.Duration(rl.CleanupInterval) * time.Second
		}
		if rl.MaxAge > 0 {
			rateLimitConfig.MaxAge = time.Duration(rl.MaxAge) * time.Second
		}
		router.Use(ratelimit.RateLimitMiddleware(ctx, rateLimitConfig))
		a.Logger.InfowCtx(ctx, "Rate limiting enabled", "rps", rateLimitConfig.RPS, "burst", rateLimitConfig.Burst)
	}

	viewfilter.NewHandler(a.service, a.Logger).RegisterRoutes(router)

	a.health.RegisterOptional(health.CheckFunc{
		CheckName: "circuit_breaker",
		Fn: func(context.Context) error {
			if a.breaker.IsOpen() {
				return fmt.Errorf("store circuit breaker is open")
			}
			return nil
		},
	})

	router.GET("/health", func(c *gin.Context) {
		h := a.health.Check(c.Request.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		c.JSON(statusCode, h)
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	a.router = router
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port, "store", a.Config.Store.Backend)
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		return a.Shutdown(context.Background())
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceName)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down view filter service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			serverCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(serverCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.conns)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}

func retryPolicy(cfg config.RetryConfig) retry.Policy {
	policy := retry.DefaultPolicy()
	if cfg.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialInterval > 0 {
		policy.InitialInterval = cfg.InitialInterval
	}
	if cfg.MaxInterval > 0 {
		policy.MaxInterval = cfg.MaxInterval
	}
	if cfg.Multiplier > 0 {
		policy.Multiplier = cfg.Multiplier
	}
	if cfg.MaxElapsedTime > 0 {
		policy.MaxElapsedTime = cfg.MaxElapsedTime
	}
	return policy
}
