package db

// SchemaSQL is the complete schema for fresh capsule installs.
//
// This is the SINGLE SOURCE OF TRUTH for the database schema. All tests use
// this schema via GetSchemaSQL() instead of hardcoding CREATE TABLE statements,
// so repository code that references a missing column fails immediately with
// "no such column" at test time.
//
// When adding new columns or tables:
//  1. Add a migration in internal/db/migrations.go
//  2. Update SchemaSQL here
const SchemaSQL = `
-- Records (namespaced, typed context records)
CREATE TABLE IF NOT EXISTS records (
	namespace TEXT NOT NULL,
	title TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	type TEXT NOT NULL CHECK(type IN ('SUMMARY', 'META', 'COLLECTION', 'SOURCE', 'ALIAS')) DEFAULT 'SUMMARY',
	content TEXT NOT NULL DEFAULT '{}',
	tags TEXT NOT NULL DEFAULT '[]',
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	hit_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (namespace, title)
);

CREATE INDEX IF NOT EXISTS idx_records_updated ON records(updated_at);
CREATE INDEX IF NOT EXISTS idx_records_namespace ON records(namespace);
`

// InitSchema creates the database schema
func InitSchema() error {
	db, err := GetDB()
	if err != nil {
		return err
	}

	// Check if schema_version table exists to determine if this is a fresh install
	var tableCount int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'").Scan(&tableCount)
	if err != nil {
		return err
	}

	if tableCount == 0 {
		// Fresh install, or a legacy store created before schema_version existed.
		var recordsCount int
		err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='records'").Scan(&recordsCount)
		if err != nil {
			return err
		}

		if recordsCount > 0 {
			// Legacy store - run migrations to upgrade
			return RunMigrations()
		}

		// Completely fresh install - create modern schema directly and mark
		// all migrations as applied so they never re-run.
		if _, err = db.Exec(SchemaSQL); err != nil {
			return err
		}
		if _, err = db.Exec(`
			CREATE TABLE IF NOT EXISTS schema_version (
				version INTEGER PRIMARY KEY,
				applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)
		`); err != nil {
			return err
		}
		for v := 1; v <= len(migrations); v++ {
			if _, err = db.Exec("INSERT INTO schema_version (version) VALUES (?)", v); err != nil {
				return err
			}
		}
		return nil
	}

	// schema_version table exists - run any pending migrations
	return RunMigrations()
}

// GetSchemaSQL returns the authoritative schema SQL for use by tests.
// Tests should use this instead of hardcoding their own schema to prevent drift.
func GetSchemaSQL() string {
	return SchemaSQL
}
