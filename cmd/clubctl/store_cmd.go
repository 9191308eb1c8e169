package main

import (
	"database/sql"
	"fmt"
	"strconv"

	"clubhub-go/internal/migrations"

	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
)

func newStoreCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Credential store maintenance",
	}
	cmd.AddCommand(newMigrateCmd(a))
	return cmd
}

func newMigrateCmd(a *app) *cobra.Command {
	var dsn string
	cmd := &cobra.Command{
		Use:       "migrate up|down [steps]|version|list",
		Short:     "Manage the PostgreSQL credential store schema",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"up", "down", "version", "list"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if args[0] == "list" {
				files, err := migrations.Available()
				if err != nil {
					return fmt.Errorf("list migrations: %w", err)
				}
				for _, f := range files {
					fmt.Fprintln(cmd.OutOrStdout(), f)
				}
				return nil
			}
			if dsn == "" {
				dsn = a.cfg.Store.PostgresDSN
			}
			if dsn == "" {
				return fmt.Errorf("--dsn or store.postgres_dsn is required")
			}
			db, err := sql.Open("postgres", dsn)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			out := cmd.OutOrStdout()
			switch args[0] {
			case "up":
				if err := migrations.PostgresUp(db); err != nil {
					return fmt.Errorf("migrate up: %w", err)
				}
				fmt.Fprintln(out, "migrations applied")
			case "down":
				steps := 1
				if len(args) == 2 {
					if steps, err = strconv.Atoi(args[1]); err != nil || steps < 1 {
						return fmt.Errorf("steps must be a positive integer, got %q", args[1])
					}
				}
				if err := migrations.PostgresDown(db, steps); err != nil {
					return fmt.Errorf("migrate down: %w", err)
				}
				fmt.Fprintf(out, "rolled back %d step(s)\n", steps)
			case "version":
				version, dirty, err := migrations.PostgresVersion(db)
				if err != nil {
					return fmt.Errorf("read version: %w", err)
				}
				state := "clean"
				if dirty {
					state = "dirty"
				}
				fmt.Fprintf(out, "current version: %d (%s)\n", version, state)
			default:
				return fmt.Errorf("unknown action %q (expected up, down, version, list)", args[0])
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", "", "PostgreSQL connection string (defaults to store.postgres_dsn)")
	return cmd
}
