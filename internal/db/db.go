package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// BusyTimeout is how long a connection waits on a locked database before
// returning SQLITE_BUSY.
const BusyTimeout = 5 * time.Second

// DSN returns the go-sqlite3 data source name for path. Write transactions
// begin IMMEDIATE so concurrent commits serialize at BEGIN instead of failing
// on lock upgrade.
func DSN(path string) string {
	params := fmt.Sprintf("_txlock=immediate&_busy_timeout=%d&_foreign_keys=on", BusyTimeout.Milliseconds())
	if path == MemoryPath {
		return "file::memory:?" + params
	}
	return "file:" + path + "?" + params
}

// Open returns a connection pool for the database at path, creating its
// directory and schema as needed.
func Open(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	database, err := sql.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each in-memory connection is its own database.
	if path == MemoryPath || strings.Contains(path, "mode=memory") {
		database.SetMaxOpenConns(1)
	}

	if err := database.Ping(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := InitSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return database, nil
}
