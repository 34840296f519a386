package main

import (
	"fmt"

	"github.com/MrEthical07/goSession/internal/appconfig"
	"github.com/MrEthical07/goSession/store/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres user store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	for _, dir := range []postgres.Direction{postgres.MigrateUp, postgres.MigrateDown, postgres.MigrateStatus} {
		cmd.AddCommand(newMigrateDirectionCommand(configPath, dir))
	}
	return cmd
}

func newMigrateDirectionCommand(configPath *string, dir postgres.Direction) *cobra.Command {
	return &cobra.Command{
		Use:   string(dir),
		Short: fmt.Sprintf("Run goose %s against postgres.dsn", dir),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := appconfig.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.DSN == "" {
				return appconfig.ErrMissingPostgresDSN
			}
			db, err := postgres.Open(cmd.Context(), cfg.Postgres.AsPoolConfig())
			if err != nil {
				return err
			}
			defer db.Close()
			return postgres.Migrate(cmd.Context(), db, dir)
		},
	}
}
