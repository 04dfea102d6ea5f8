package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the database file created inside the data directory.
const FileName = "personashield.db"

// DB provides SQLite-based storage for the persisted key-value documents
// (analysis history, users, current user) and the upload log.
//
// All keys share one table so that the stores above it only see a plain
// key-value interface.
type DB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures DB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging so that `serve` and CLI
	// commands can read while another process writes.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a DB in dbDir.
// If CreateIfNotExists is true, the directory and database file are created.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*DB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s (use CreateIfNotExists option to create)", dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file, mode=rwc allows it.
	var dsn string
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	} else {
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	d := &DB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := d.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return d, nil
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.dbPath
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (d *DB) createTables() error {
	schema := `
	-- Key-value documents (analysisHistory, users, currentUser)
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Upload log: one row per upload attempt
	CREATE TABLE IF NOT EXISTS uploads (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		request_id TEXT NOT NULL,
		file_name TEXT NOT NULL,
		fingerprint TEXT,
		size INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		analysis_id TEXT,
		risk_score REAL,
		findings INTEGER DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_uploads_request ON uploads(request_id);
	CREATE INDEX IF NOT EXISTS idx_uploads_fingerprint ON uploads(fingerprint);
	CREATE INDEX IF NOT EXISTS idx_uploads_timestamp ON uploads(timestamp);
	`

	_, err := d.db.ExecContext(context.Background(), schema)
	return err
}

// Get returns the document stored under key.
func (d *DB) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value string
	err := d.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %q: %w", key, err)
	}
	return []byte(value), true, nil
}

// Set stores value under key, replacing any previous document.
func (d *DB) Set(ctx context.Context, key string, value []byte) error {
	query := `
	INSERT INTO kv (key, value) VALUES (?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = CURRENT_TIMESTAMP
	`
	if _, err := d.db.ExecContext(ctx, query, key, string(value)); err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (d *DB) Delete(ctx context.Context, key string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// UploadStatus is the outcome of one upload attempt.
type UploadStatus string

const (
	// UploadSucceeded means the service returned an analysis.
	UploadSucceeded UploadStatus = "succeeded"
	// UploadFailed means the service or the transport failed.
	UploadFailed UploadStatus = "failed"
	// UploadRejected means pre-flight inspection refused the file.
	UploadRejected UploadStatus = "rejected"
)

// UploadRecord is one row of the upload log.
type UploadRecord struct {
	ID          int64
	RequestID   string
	FileName    string
	Fingerprint string
	Size        int64
	Status      UploadStatus
	AnalysisID  string
	// RiskScore is valid only for succeeded uploads carrying a score.
	RiskScore sql.NullFloat64
	Findings  int
	Timestamp time.Time
}

// InsertUpload appends a record to the upload log and returns its ID.
func (d *DB) InsertUpload(ctx context.Context, record *UploadRecord) (int64, error) {
	query := `
	INSERT INTO uploads (request_id, file_name, fingerprint, size, status, analysis_id, risk_score, findings)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := d.db.ExecContext(ctx, query,
		record.RequestID,
		record.FileName,
		record.Fingerprint,
		record.Size,
		string(record.Status),
		record.AnalysisID,
		record.RiskScore,
		record.Findings,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert upload record: %w", err)
	}

	return result.LastInsertId()
}

// ListUploads returns the most recent upload records, newest first.
// A limit of zero or less returns every record.
func (d *DB) ListUploads(ctx context.Context, limit int) ([]UploadRecord, error) {
	query := `
	SELECT id, request_id, file_name, fingerprint, size, status, analysis_id, risk_score, findings, timestamp
	FROM uploads
	ORDER BY id DESC
	`
	args := make([]any, 0, 1)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}
	defer rows.Close()

	var results []UploadRecord
	for rows.Next() {
		rec, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

// UploadsByFingerprint returns every upload of the same document, newest
// first.
func (d *DB) UploadsByFingerprint(ctx context.Context, fingerprint string) ([]UploadRecord, error) {
	query := `
	SELECT id, request_id, file_name, fingerprint, size, status, analysis_id, risk_score, findings, timestamp
	FROM uploads
	WHERE fingerprint = ?
	ORDER BY id DESC
	`

	rows, err := d.db.QueryContext(ctx, query, fingerprint)
	if err != nil {
		return nil, fmt.Errorf("failed to query uploads: %w", err)
	}
	defer rows.Close()

	var results []UploadRecord
	for rows.Next() {
		rec, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, rec)
	}

	return results, rows.Err()
}

func scanUpload(rows *sql.Rows) (UploadRecord, error) {
	var (
		rec         UploadRecord
		status      string
		fingerprint sql.NullString
		analysisID  sql.NullString
		timestamp   string
	)
	err := rows.Scan(
		&rec.ID,
		&rec.RequestID,
		&rec.FileName,
		&fingerprint,
		&rec.Size,
		&status,
		&analysisID,
		&rec.RiskScore,
		&rec.Findings,
		&timestamp,
	)
	if err != nil {
		return UploadRecord{}, fmt.Errorf("failed to scan upload record: %w", err)
	}
	rec.Status = UploadStatus(status)
	rec.Fingerprint = fingerprint.String
	rec.AnalysisID = analysisID.String
	rec.Timestamp = parseTimestamp(timestamp)
	return rec, nil
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	"2006-01-02 15:04:05",     // SQLite default datetime format
	"2006-01-02T15:04:05Z",    // ISO 8601 with Z suffix
	"2006-01-02T15:04:05",     // ISO 8601 without timezone
	time.RFC3339,              // Full RFC3339 format
	time.RFC3339Nano,          // RFC3339 with nanoseconds
	"2006-01-02 15:04:05.999", // SQLite with milliseconds
}

// parseTimestamp tries each of timestampFormats and returns the zero time
// when none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
