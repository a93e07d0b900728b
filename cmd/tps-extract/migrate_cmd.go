package main

import (
	"context"
	"database/sql"

	"github.com/spf13/cobra"

	"github.com/DFE-Digital/trs-workforce/migrations"
)

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect schema migrations",
	}
	cmd.AddCommand(newMigrateSubCmd("up", "Apply all pending migrations", func(ctx context.Context, db *sql.DB) error {
		applied, err := migrations.Up(ctx, db)
		if err != nil {
			return withCode(exitDBWrite, err)
		}
		if applied == nil {
			applied = []int64{}
		}
		return writeJSONLine(map[string]any{"applied": applied})
	}))
	cmd.AddCommand(newMigrateSubCmd("down", "Roll back the most recent migration", func(ctx context.Context, db *sql.DB) error {
		version, err := migrations.Down(ctx, db)
		if err != nil {
			return withCode(exitDBWrite, err)
		}
		return writeJSONLine(map[string]int64{"rolled_back": version})
	}))
	cmd.AddCommand(newMigrateSubCmd("status", "List migrations and whether they are applied", func(ctx context.Context, db *sql.DB) error {
		statuses, err := migrations.List(ctx, db)
		if err != nil {
			return withCode(exitDB, err)
		}
		for _, s := range statuses {
			if err := writeJSONLine(s); err != nil {
				return err
			}
		}
		return nil
	}))
	return cmd
}

func newMigrateSubCmd(use, short string, fn func(ctx context.Context, db *sql.DB) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, _, err := loadConfig()
			if err != nil {
				return err
			}
			defer conf.Unload()

			db, err := migrations.Open(conf.Database.Opts)
			if err != nil {
				return withCode(exitDB, err)
			}
			defer db.Close()
			if err := db.PingContext(cmd.Context()); err != nil {
				return withCode(exitDB, err)
			}
			return fn(cmd.Context(), db)
		},
	}
}
