package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meetscribe/scribe-api/internal/database"
	"github.com/meetscribe/scribe-api/pkg/config"
)

var migrateDryRun bool

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage database migrations",
	Long: `Manage database migrations for the Scribe API.

The schema is managed with GORM auto-migration: running up creates the
database file if needed and brings the transcripts and jobs tables in
line with the current models.`,
}

// migrateUpCmd applies the schema
var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Long: `Apply all pending database migrations.

Creates the database if it does not exist and auto-migrates the
transcripts and jobs tables to match the current models.`,
	RunE: runMigrateUp,
}

// migrateStatusCmd shows what the schema currently contains
var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	Long: `Display the current status of the database schema.

Lists the managed tables and whether each one exists in the configured
database.`,
	RunE: runMigrateStatus,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateStatusCmd)

	migrateUpCmd.Flags().BoolVar(&migrateDryRun, "dry-run", false, "show what would be migrated without applying")
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	if migrateDryRun {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Dry run - the following tables would be auto-migrated:")
		fmt.Fprintln(out, "  transcripts")
		fmt.Fprintln(out, "  jobs")
		return nil
	}

	db, err := database.InitializeWithMigrations()
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	defer func() { _ = db.Close() }()

	fmt.Fprintln(cmd.OutOrStdout(), "Migrations applied successfully")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	dbPath := config.GetString("database.path")
	if dbPath == "" {
		return fmt.Errorf("database path is not configured")
	}

	db, err := database.Initialize(dbPath, false)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Database: %s\n", dbPath)
	fmt.Fprintln(out, strings.Repeat("-", 40))

	for _, table := range []string{"transcripts", "jobs"} {
		var count int64
		err := db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&count).Error
		if err != nil {
			return fmt.Errorf("failed to inspect schema: %w", err)
		}
		status := "missing"
		if count > 0 {
			status = "present"
		}
		fmt.Fprintf(out, "%-14s %s\n", table, status)
	}
	return nil
}
