// Command migrate applies, rolls back and lists database migrations.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/sakif/secure-review/internal/repository/sqlstore"
)

type contextKey string

const dbContextKey contextKey = "db"

type dbConfig struct {
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`
}

var (
	verbose bool
	rootCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Manage the secure-review database schema",
		Long: `migrate runs the schema migrations against the database named by
DATABASE_URL. A .env file in the working directory is read first when present.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}

			var cfg dbConfig
			if err := envconfig.Process("", &cfg); err != nil {
				return err
			}

			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

			db, err := sqlstore.Open(cmd.Context(), cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), dbContextKey, db))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return getDB(cmd).Close()
		},
	}

	upCmd = &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			group, err := getDB(cmd).Migrate(cmd.Context())
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "no new migrations to run (database is up to date)")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrated to %s\n", group)
			return nil
		},
	}

	downCmd = &cobra.Command{
		Use:   "down",
		Short: "Roll back the last migration group",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			group, err := getDB(cmd).Rollback(cmd.Context())
			if err != nil {
				return err
			}
			if group.IsZero() {
				fmt.Fprintln(cmd.OutOrStdout(), "there are no groups to roll back")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s\n", group)
			return nil
		},
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "List migrations and whether they are applied",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := getDB(cmd).MigrationStatus(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MIGRATION\tGROUP\tAPPLIED AT")
			for _, m := range ms {
				applied := "pending"
				if m.IsApplied() {
					applied = m.MigratedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(w, "%s\t%d\t%s\n", m.Name, m.GroupID, applied)
			}
			return w.Flush()
		},
	}
)

func getDB(cmd *cobra.Command) *sqlstore.DB {
	return cmd.Context().Value(dbContextKey).(*sqlstore.DB)
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log database activity")
	rootCmd.AddCommand(upCmd, downCmd, statusCmd)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
