package store

import (
	"database/sql"

	_ "modernc.org/sqlite"
)

// OpenSQLite opens (or creates) a SQLite database at the given path.
func OpenSQLite(path string) (*sql.DB, error) {
	// Pragmas go in the DSN so they apply to every connection in the
	// database/sql pool, not just the one a bare Exec happens to use.
	// WAL keeps reads from blocking while a generation pass commits.
	// Concurrent fan-out commits contend on the single writer; busy_timeout
	// makes them wait instead of surfacing SQLITE_BUSY.
	dsn := "file:" + path +
		"?_pragma=journal_mode(WAL)" +
		"&_pragma=foreign_keys(ON)" +
		"&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return db, nil
}
