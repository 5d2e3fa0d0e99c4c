package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/pollsite/poll-api/internal/config"
	"github.com/pollsite/poll-api/internal/logger"
	"github.com/pollsite/poll-api/internal/storage/migrations"
	"github.com/pollsite/poll-api/internal/storage/postgres"
)

var (
	cfg       *config.Config
	userTable string
	logLevel  string
)

var rootCmd = &cobra.Command{
	Use:           "migrate",
	Short:         "Manage the poll database schema",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Initialize(logLevel, cfg.Log.Format)
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			applied, err := migrations.NewRunner(db, settings()).Up(cmd.Context())
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Println("No pending migrations")
				return nil
			}
			fmt.Println("Applied:", strings.Join(applied, ", "))
			return nil
		})
	},
}

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Revert the last applied migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			reverted, err := migrations.NewRunner(db, settings()).Rollback(cmd.Context())
			if errors.Is(err, migrations.ErrNothingToRollback) {
				fmt.Println("Nothing to roll back")
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Printf("Rolled back %s_%s\n", reverted.ID, reverted.Name)
			return nil
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			statuses, err := migrations.NewRunner(db, settings()).Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, s := range statuses {
				mark := "[ ]"
				when := ""
				if s.Applied {
					mark = "[X]"
					when = s.AppliedAt.Format("2006-01-02 15:04:05")
				}
				fmt.Printf("%s %s_%s %s\n", mark, s.ID, s.Name, when)
			}

			stats, err := postgres.NewSchemaInspector(db).TableStats(cmd.Context(), []string{"questions", "choices", "question_images", settings().UserTable})
			if err != nil {
				logger.For(logger.Migrations, "").Warn("Could not read table stats", "error", err)
				return nil
			}
			for _, s := range stats {
				fmt.Printf("%-20s rows=%-8d table=%-10s indexes=%s\n", s.TableName, s.RowCount, s.TableSize, s.IndexSize)
			}
			return nil
		})
	},
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Print migrations in the order they would be applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		planned, err := migrations.Plan(migrations.GetMigrations(settings()))
		if err != nil {
			return err
		}
		for _, m := range planned {
			deps := "-"
			if len(m.Dependencies) > 0 {
				deps = strings.Join(m.Dependencies, ", ")
			}
			fmt.Printf("%s_%s (depends on: %s)\n", m.ID, m.Name, deps)
		}
		return nil
	},
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Compare foreign keys in the database with the migrated schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			expected := migrations.ExpectedForeignKeys(settings())
			drift, err := postgres.NewSchemaInspector(db).Verify(cmd.Context(), expected)
			if err != nil {
				return err
			}
			if len(drift) == 0 {
				fmt.Printf("All %d foreign keys match\n", len(expected))
				return nil
			}
			for _, d := range drift {
				fmt.Printf("%s.%s (%s): %s\n", d.Expected.Table, d.Expected.Column, d.Expected.Name, d.Reason)
			}
			return fmt.Errorf("%d foreign keys drifted", len(drift))
		})
	},
}

func settings() migrations.Settings {
	return migrations.Settings{UserTable: userTable}
}

// withDB opens a connection for the duration of fn
func withDB(fn func(db *gorm.DB) error) error {
	db, err := postgres.Connect(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := postgres.Close(db); err != nil {
			logger.For(logger.Migrations, "").Warn("Failed to close database", "error", err)
		}
	}()
	return fn(db)
}

func main() {
	cfg = config.Load()

	rootCmd.PersistentFlags().StringVar(&userTable, "user-table", cfg.Auth.UserTable, "table holding the user entity questions reference")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.Log.Level, "log level (debug, info, warn, error)")
	rootCmd.AddCommand(upCmd, rollbackCmd, statusCmd, planCmd, verifyCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.For(logger.Migrations, "").Error("Migration command failed", "error", err)
		os.Exit(1)
	}
}
