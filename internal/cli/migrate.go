package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"studenthub/internal/repository"
)

func newMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create missing tables and indexes",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireDatabase(); err != nil {
				return err
			}
			ctx := cmd.Context()
			db, err := repository.Open(ctx, a.cfg.Database.Driver, a.cfg.Database.URL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := repository.EnsureSchema(ctx, db); err != nil {
				return err
			}
			a.logger.Info("schema is up to date", zap.String("driver", a.cfg.Database.Driver))
			return nil
		},
	}
}
