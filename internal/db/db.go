package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// Open opens a data source connection. Production deployments point this
// at the application database on SQL Server (driver "sqlserver"); local
// snapshot databases and tests use the bundled SQLite driver ("sqlite").
// The query layer uses bracket-quoted identifiers and named arguments,
// which both drivers accept.
func Open(driver, dsn string) (*sql.DB, error) {
	if driver == "sqlite" {
		dsn = withSQLitePragmas(dsn)
	}
	database, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return database, nil
}

// withSQLitePragmas adds the busy timeout and WAL pragmas to a SQLite
// DSN unless the caller already set pragmas.
func withSQLitePragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// InitLocal opens (and if necessary creates) a local SQLite snapshot
// database at baseDir/objects.db with the Object table schema. The
// baseDir parameter allows tests to use t.TempDir().
func InitLocal(baseDir string) (*sql.DB, error) {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	dbPath := filepath.Join(baseDir, "objects.db")
	database, err := Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS [Object] (
	  [Type]         INTEGER NOT NULL,
	  [Company Name] TEXT NOT NULL DEFAULT '',
	  [ID]           INTEGER NOT NULL,
	  [Name]         TEXT NOT NULL,
	  [Modified]     INTEGER NOT NULL DEFAULT 0,
	  [Compiled]     INTEGER NOT NULL DEFAULT 1,
	  [Date]         DATETIME NOT NULL,
	  [Time]         DATETIME NOT NULL,
	  [Version List] TEXT NOT NULL DEFAULT '',
	  PRIMARY KEY ([Type], [Company Name], [ID])
	)`
	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to create Object table: %w", err)
	}

	_ = os.Chmod(dbPath, 0600)

	return database, nil
}
