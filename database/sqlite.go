package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteDB implements the Database interface using SQLite
type SQLiteDB struct {
	db *sql.DB
}

// NewSQLiteDB creates a new SQLite database instance
func NewSQLiteDB(dbPath string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %v", err)
	}

	if err := initTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize tables: %v", err)
	}

	return &SQLiteDB{db: db}, nil
}

// initTables creates the necessary tables if they don't exist
func initTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS captures (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			filename TEXT NOT NULL,
			size INTEGER DEFAULT 0,
			width INTEGER DEFAULT 0,
			height INTEGER DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_captures_filename ON captures (filename)
	`)
	return err
}

// LogCapture inserts a history row for a completed still capture.
func (s *SQLiteDB) LogCapture(filename string, size int64, width, height int) error {
	_, err := s.db.Exec(
		`INSERT INTO captures (filename, size, width, height, created_at) VALUES (?, ?, ?, ?, ?)`,
		filename, size, width, height, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to log capture: %v", err)
	}
	return nil
}

// ListCaptures returns history rows, newest first.
func (s *SQLiteDB) ListCaptures(limit, offset int) ([]CaptureRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT id, filename, size, width, height, created_at
		 FROM captures ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list captures: %v", err)
	}
	defer rows.Close()

	var records []CaptureRecord
	for rows.Next() {
		var rec CaptureRecord
		if err := rows.Scan(&rec.ID, &rec.Filename, &rec.Size, &rec.Width, &rec.Height, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan capture row: %v", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteCapture removes history rows for a filename. Deleting the file from
// the images directory does not require a matching history row, so a zero
// row count is not an error.
func (s *SQLiteDB) DeleteCapture(filename string) error {
	_, err := s.db.Exec(`DELETE FROM captures WHERE filename = ?`, filename)
	if err != nil {
		return fmt.Errorf("failed to delete capture history: %v", err)
	}
	return nil
}

// CountCaptures returns the total number of history rows.
func (s *SQLiteDB) CountCaptures() (int, error) {
	var count int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM captures`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count captures: %v", err)
	}
	return count, nil
}

// Close closes the underlying database handle.
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
