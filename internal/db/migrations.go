package db

import (
	"database/sql"
	"fmt"
	"os"
)

// Migration represents a database migration
type Migration struct {
	Version int
	Name    string
	Up      func(*sql.DB) error
}

// migrations is the list of all migrations in order
var migrations = []Migration{
	{
		Version: 1,
		Name:    "add_hit_count_to_records",
		Up:      migrationV1,
	},
	{
		Version: 2,
		Name:    "add_namespace_index",
		Up:      migrationV2,
	},
}

// RunMigrations executes all pending migrations
func RunMigrations() error {
	db, err := GetDB()
	if err != nil {
		return fmt.Errorf("failed to get database: %w", err)
	}

	// Create schema_version table if it doesn't exist
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_version table: %w", err)
	}

	// Get current schema version
	var currentVersion int
	err = db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get current schema version: %w", err)
	}

	// Run pending migrations. Progress goes to stderr: this code path also runs
	// inside hook processes, whose stdout is a protocol channel to the host.
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		fmt.Fprintf(os.Stderr, "Running migration %d: %s\n", migration.Version, migration.Name)

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("failed to begin transaction for migration %d: %w", migration.Version, err)
		}

		if err := migration.Up(db); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}

		_, err = tx.Exec("INSERT INTO schema_version (version) VALUES (?)", migration.Version)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", migration.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, err)
		}

		fmt.Fprintf(os.Stderr, "✓ Migration %d completed\n", migration.Version)
	}

	return nil
}

// migrationV1 adds hit_count tracking to records written by pre-hit-count installs
func migrationV1(db *sql.DB) error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('records') WHERE name='hit_count'").Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err = db.Exec("ALTER TABLE records ADD COLUMN hit_count INTEGER NOT NULL DEFAULT 0")
	return err
}

// migrationV2 adds the namespace index for prefix scans
func migrationV2(db *sql.DB) error {
	_, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_records_namespace ON records(namespace)")
	return err
}
