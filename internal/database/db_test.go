package database

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/personashield/internal/model"
	"github.com/nao1215/personashield/internal/store"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); os.IsNotExist(err) {
			t.Error("database file was not created")
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "nonexistent-db")
		_, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err == nil {
			t.Fatal("expected error when CreateIfNotExists=false and database does not exist")
		}
		if !strings.Contains(err.Error(), "database not found") {
			t.Errorf("unexpected error %q", err.Error())
		}
		if _, statErr := os.Stat(dbDir); !os.IsNotExist(statErr) {
			t.Error("database directory should not have been created when CreateIfNotExists=false")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "existing-db")
		ctx := context.Background()

		db1, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if err := db1.Set(ctx, "users", []byte(`[]`)); err != nil {
			t.Fatalf("failed to set: %v", err)
		}
		db1.Close()

		db2, err := Open(dbDir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to open existing database: %v", err)
		}
		defer db2.Close()

		got, found, err := db2.Get(ctx, "users")
		if err != nil || !found || string(got) != `[]` {
			t.Errorf("Get = (%q, %v, %v), expected the stored document", got, found, err)
		}
	})
}

// TestDefaultOptions tests the default options values.
func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true by default")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true by default")
	}
}

// TestKV tests the key-value operations.
func TestKV(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	t.Run("missing key", func(t *testing.T) {
		_, found, err := db.Get(ctx, "missing")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found {
			t.Error("expected found=false for a missing key")
		}
	})

	t.Run("set overwrites", func(t *testing.T) {
		if err := db.Set(ctx, "currentUser", []byte(`{"username":"a"}`)); err != nil {
			t.Fatal(err)
		}
		if err := db.Set(ctx, "currentUser", []byte(`{"username":"b"}`)); err != nil {
			t.Fatal(err)
		}
		got, found, err := db.Get(ctx, "currentUser")
		if err != nil || !found {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got) != `{"username":"b"}` {
			t.Errorf("got %s", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := db.Set(ctx, "temp", []byte(`1`)); err != nil {
			t.Fatal(err)
		}
		if err := db.Delete(ctx, "temp"); err != nil {
			t.Fatal(err)
		}
		if _, found, _ := db.Get(ctx, "temp"); found {
			t.Error("key still present after Delete")
		}
		if err := db.Delete(ctx, "temp"); err != nil {
			t.Errorf("deleting a missing key failed: %v", err)
		}
	})
}

// TestStoreOverDB tests that the analysis store persists through SQLite.
func TestStoreOverDB(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx := context.Background()

	db, err := Open(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	s := store.New(ctx, db)
	s.SetAnalysis(ctx, model.MustParseAnalysisResult(`{"analysis_id":"A"}`))
	s.SetAnalysis(ctx, model.MustParseAnalysisResult(`{"analysis_id":"B"}`))
	db.Close()

	db, err = Open(dir, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	history := store.New(ctx, db).History()
	if len(history) != 2 || history[0].ID() != "A" || history[1].ID() != "B" {
		t.Errorf("unexpected reloaded history (%d entries)", len(history))
	}
}

// TestUploads tests the upload log.
func TestUploads(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	records := []*UploadRecord{
		{RequestID: "r1", FileName: "a.pdf", Fingerprint: "f1", Size: 10, Status: UploadSucceeded, AnalysisID: "A", RiskScore: sql.NullFloat64{Float64: 82, Valid: true}, Findings: 2},
		{RequestID: "r2", FileName: "b.txt", Size: 3, Status: UploadRejected},
		{RequestID: "r3", FileName: "a.pdf", Fingerprint: "f1", Size: 10, Status: UploadFailed},
	}
	for _, rec := range records {
		id, err := db.InsertUpload(ctx, rec)
		if err != nil {
			t.Fatalf("failed to insert: %v", err)
		}
		if id == 0 {
			t.Error("expected non-zero ID")
		}
	}

	t.Run("list newest first", func(t *testing.T) {
		got, err := db.ListUploads(ctx, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 3 {
			t.Fatalf("got %d records, expected 3", len(got))
		}
		if got[0].RequestID != "r3" || got[2].RequestID != "r1" {
			t.Errorf("unexpected order: %s, %s", got[0].RequestID, got[2].RequestID)
		}
		first := got[2]
		if !first.RiskScore.Valid || first.RiskScore.Float64 != 82 || first.AnalysisID != "A" || first.Findings != 2 {
			t.Errorf("unexpected record: %+v", first)
		}
		if got[1].RiskScore.Valid {
			t.Error("rejected upload should have no score")
		}
		if first.Timestamp.IsZero() || time.Since(first.Timestamp) > time.Hour {
			t.Errorf("unexpected timestamp %v", first.Timestamp)
		}
	})

	t.Run("limit", func(t *testing.T) {
		got, err := db.ListUploads(ctx, 1)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 1 || got[0].RequestID != "r3" {
			t.Errorf("unexpected limited result: %+v", got)
		}
	})

	t.Run("by fingerprint", func(t *testing.T) {
		got, err := db.UploadsByFingerprint(ctx, "f1")
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != 2 {
			t.Errorf("got %d records, expected 2", len(got))
		}
	})
}

// TestParseTimestamp tests timestamp parsing with various formats.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		input    string
		expected time.Time
	}{
		{"2024-01-15 10:30:45", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)},
		{"2024-01-15T10:30:45Z", time.Date(2024, 1, 15, 10, 30, 45, 0, time.UTC)},
		{"invalid", time.Time{}},
		{"", time.Time{}},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tc.input); !got.Equal(tc.expected) {
				t.Errorf("parseTimestamp(%q) = %v, expected %v", tc.input, got, tc.expected)
			}
		})
	}
}
