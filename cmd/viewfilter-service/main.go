package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "viewfilter/cmd/viewfilter-service/docs"
	"viewfilter/internal/config"
	"viewfilter/internal/constants"
	"viewfilter/internal/logger"
	"viewfilter/pkg/logging"
)

var (
	configFile string
)

// @title           View Filter Service API
// @version         1.0
// @description     REST API for editing per-view filter rules and compiling them into search criteria

// @host      localhost:8080
// @BasePath  /api/v1

// @schemes   http https

func main() {
	rootCmd := &cobra.Command{
		Use:   "viewfilter-service",
		Short: "View filter rule engine",
		Long:  "Stores per-view filter rules and compiles them into search criteria for the record retrieval layer",
		RunE:  serveCmd().RunE,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file (required)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(inspectCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// setup loads the configuration and builds the logger shared by all commands.
func setup() (*config.Config, *logger.SugaredLogger, error) {
	earlyLog := logging.NewEarlyLog()

	if configFile == "" {
		configFile = os.Getenv("CONFIG_FILE")
		if configFile == "" {
			earlyLog.Warn("Config file is required. Use --config flag or CONFIG_FILE environment variable")
			return nil, nil, fmt.Errorf("config file is required")
		}
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		earlyLog.Warn("Failed to load config: %v", err)
		return nil, nil, err
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		earlyLog.Warn("Failed to init logger: %v", err)
		return nil, nil, err
	}
	log.SetServiceName(constants.ServiceName)

	return cfg, log, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the view filter service",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			log.InfowCtx(ctx, "Starting View Filter Service", "store", cfg.Store.Backend)

			app := NewApp(cfg, log)
			if err := app.Initialize(ctx); err != nil {
				log.Fatalf("Failed to initialize application: %v", err)
			}

			if err := app.Run(ctx); err != nil {
				log.ErrorwCtx(ctx, "Application error", "error", err)
				return err
			}
			return nil
		},
	}
}
