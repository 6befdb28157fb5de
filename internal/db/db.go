package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
)

// StoreFileName is the canonical capsule database filename.
const StoreFileName = "capsule.db"

// LegacyStoreFileName is honored when the canonical file is absent.
// Older installs wrote the store under this name.
const LegacyStoreFileName = "memory-store.db"

var db *sql.DB

var dbInitialized bool

// GetDB returns the database connection, initializing if needed
func GetDB() (*sql.DB, error) {
	if db != nil {
		return db, nil
	}

	dbPath, err := Path()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create capsule directory: %w", err)
	}

	db, err = sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Serialize concurrent hook writers on the connection
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Run migrations on first connection (but avoid recursion)
	if !dbInitialized {
		dbInitialized = true
		if err := InitSchema(); err != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w", err)
		}
	}

	return db, nil
}

// Close closes the database connection
func Close() error {
	if db != nil {
		err := db.Close()
		db = nil
		dbInitialized = false
		return err
	}
	return nil
}

// Dir returns the global capsule state directory (~/.capsule).
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".capsule"), nil
}

// Path returns the path to the database file. The canonical filename wins;
// a legacy filename is honored only when the canonical file does not exist yet.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	canonical := filepath.Join(dir, StoreFileName)
	if _, err := os.Stat(canonical); err == nil {
		return canonical, nil
	}
	legacy := filepath.Join(dir, LegacyStoreFileName)
	if _, err := os.Stat(legacy); err == nil {
		return legacy, nil
	}
	return canonical, nil
}

// Exists reports whether a store file is already present on disk.
func Exists() bool {
	dir, err := Dir()
	if err != nil {
		return false
	}
	for _, name := range []string{StoreFileName, LegacyStoreFileName} {
		if _, err := os.Stat(filepath.Join(dir, name)); err == nil {
			return true
		}
	}
	return false
}
