package main

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"viewfilter/internal/config"
	"viewfilter/internal/constants"
	"viewfilter/pkg/bootstrap"
	"viewfilter/pkg/migrations"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the store schema",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQLStore(cmd.Context(), true, func(db *sql.DB, dialect string) error {
				if err := migrations.Up(db, dialect); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer")
				}
				steps = n
			}
			return withSQLStore(cmd.Context(), false, func(db *sql.DB, dialect string) error {
				if err := migrations.Down(db, dialect, steps); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "rolled back %d migration(s)\n", steps)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSQLStore(cmd.Context(), false, func(db *sql.DB, dialect string) error {
				version, dirty, err := migrations.Version(db, dialect)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

// withSQLStore connects the configured SQL backend and runs fn against it.
// A MongoDB backend only supports "up", which creates its indexes.
func withSQLStore(ctx context.Context, mongoUp bool, fn func(db *sql.DB, dialect string) error) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	initCtx, cancel := context.WithTimeout(ctx, constants.InitTimeout)
	defer cancel()

	dc := bootstrap.NewDatabaseConnector(cfg, log)
	conns, err := dc.Connect(initCtx)
	if err != nil {
		return err
	}
	defer dc.ShutdownDatabases(context.Background(), conns)

	switch cfg.Store.Backend {
	case config.BackendPostgres:
		return fn(conns.Postgres, migrations.Postgres)
	case config.BackendMySQL:
		return fn(conns.MySQL, migrations.MySQL)
	case config.BackendMongoDB:
		if !mongoUp {
			return fmt.Errorf("mongodb store only supports migrate up")
		}
		dbName := cfg.Database.MongoDB.Database
		if dbName == "" {
			dbName = constants.DefaultMongoDBName
		}
		return migrations.EnsureMongoCollections(initCtx, conns.Mongo.Database(dbName), cfg.Store.Collection)
	default:
		return fmt.Errorf("store backend %q has no schema to migrate", cfg.Store.Backend)
	}
}
