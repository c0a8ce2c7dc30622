package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"viewfilter/internal/constants"
	"viewfilter/internal/rules"
)

type inspectReport struct {
	ViewID   string               `json:"view_id"`
	Stored   *rules.EditorRuleSet `json:"stored"`
	Criteria rules.Criteria       `json:"criteria"`
	Result   string               `json:"result"`
}

func inspectCmd() *cobra.Command {
	var (
		viewID string
		userID int64
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the stored rules of a view and the criteria they compile to",
		RunE: func(cmd *cobra.Command, args []string) error {
			if viewID == "" {
				return fmt.Errorf("--view is required")
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			app := NewApp(cfg, log)
			initCtx, cancel := context.WithTimeout(ctx, constants.InitTimeout)
			defer cancel()
			if err := app.initStore(initCtx); err != nil {
				return err
			}
			defer app.dbConnector.ShutdownDatabases(context.Background(), app.conns)
			if err := app.initService(); err != nil {
				return err
			}

			return inspectView(ctx, cmd.OutOrStdout(), app, viewID, rules.UserID(userID))
		},
	}

	cmd.Flags().StringVar(&viewID, "view", "", "View ID to inspect")
	cmd.Flags().Int64Var(&userID, "user", 0, "User ID to compile for (0 is anonymous)")

	return cmd
}

func inspectView(ctx context.Context, out io.Writer, app *App, viewID string, user rules.UserID) error {
	rs, err := app.store.Load(ctx, viewID)
	if err != nil {
		return err
	}

	report := inspectReport{ViewID: viewID}
	if rs != nil {
		shape := rules.ToEditorShape(*rs)
		report.Stored = &shape
	}
	report.Criteria, report.Result = app.service.Criteria(ctx, viewID, rules.Criteria{}, user)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
