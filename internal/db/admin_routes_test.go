package db

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

// TestAttachAdminRoutes tests the database admin routes
func TestAttachAdminRoutes(t *testing.T) {
	db := newTestDB(t)
	defer cleanupTestDB(t, db)

	// Insert some test data to make stats meaningful
	createTestConfig(t, db, "video-1")
	insertLabeledBox(t, db, "video-1", 0, captionRowBoxes(1)[0], true, "")

	httpMux := http.NewServeMux()
	db.AttachAdminRoutes(httpMux)

	t.Run("db-stats endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/db-stats", nil)
		w := httptest.NewRecorder()

		httpMux.ServeHTTP(w, req)

		// Should be registered (might return 403 due to auth or 200 if auth passes)
		if w.Code == http.StatusNotFound {
			t.Error("Route /debug/db-stats should be registered, got 404")
		}

		// If we get 200, validate the JSON response
		if w.Code == http.StatusOK {
			var stats DatabaseStats
			if err := json.NewDecoder(w.Body).Decode(&stats); err != nil {
				t.Errorf("Failed to decode stats response: %v", err)
			}
			if stats.TotalSizeMB <= 0 {
				t.Error("Expected positive total size")
			}
			if len(stats.Tables) == 0 {
				t.Error("Expected at least one table in stats")
			}
			contentType := w.Header().Get("Content-Type")
			if contentType != "application/json" {
				t.Errorf("Expected Content-Type 'application/json', got %s", contentType)
			}
		}
	})

	t.Run("backup endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
		w := httptest.NewRecorder()

		httpMux.ServeHTTP(w, req)

		// Should be registered (might return 403 due to auth or 200 if auth passes)
		if w.Code == http.StatusNotFound {
			t.Error("Route /debug/backup should be registered, got 404")
		}

		// If we get 200, check headers
		if w.Code == http.StatusOK {
			if w.Header().Get("Content-Disposition") == "" {
				t.Error("Expected Content-Disposition header for backup download")
			}
			if ct := w.Header().Get("Content-Type"); ct != "application/octet-stream" {
				t.Logf("Expected Content-Type 'application/octet-stream', got %s", ct)
			}
		}
	})

	t.Run("tailsql endpoint", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/debug/tailsql/", nil)
		w := httptest.NewRecorder()

		httpMux.ServeHTTP(w, req)

		// Should be registered (might return 403 due to auth)
		if w.Code == http.StatusNotFound {
			t.Error("Route /debug/tailsql/ should be registered, got 404")
		}
	})
}

// TestGetDatabaseStats_EmptyDB tests database stats on a fresh database
func TestGetDatabaseStats_EmptyDB(t *testing.T) {
	db := newTestDB(t)
	defer cleanupTestDB(t, db)

	stats, err := db.GetDatabaseStats()
	if err != nil {
		t.Fatalf("Failed to get database stats: %v", err)
	}
	if stats == nil {
		t.Fatal("Expected stats to be non-nil")
	}
	if stats.TotalSizeMB <= 0 {
		t.Error("Expected positive total size even for empty database")
	}
	// Should have the migrated tables
	if len(stats.Tables) == 0 {
		t.Error("Expected at least some tables from schema")
	}
}

// TestGetDatabaseStats_WithData tests database stats with actual data
func TestGetDatabaseStats_WithData(t *testing.T) {
	db := newTestDB(t)
	defer cleanupTestDB(t, db)
	createTestConfig(t, db, "video-1")

	for i := 0; i < 100; i++ {
		insertLabeledBox(t, db, "video-1", i, captionRowBoxes(1)[0], false, "")
	}

	stats, err := db.GetDatabaseStats()
	if err != nil {
		t.Fatalf("Failed to get database stats: %v", err)
	}

	var boxTable *TableStats
	for i := range stats.Tables {
		if stats.Tables[i].Name == "ocr_boxes" {
			boxTable = &stats.Tables[i]
			break
		}
	}
	if boxTable == nil {
		t.Fatal("Expected ocr_boxes table in stats")
	}
	if boxTable.RowCount != 100 {
		t.Errorf("Expected 100 rows in ocr_boxes, got %d", boxTable.RowCount)
	}
	if boxTable.SizeMB <= 0 {
		t.Errorf("Expected positive size for ocr_boxes table")
	}
}

// TestBackupEndpoint_FileCleanup tests that backup files are properly cleaned up
func TestBackupEndpoint_FileCleanup(t *testing.T) {
	tmpDir := t.TempDir()

	// Save and restore working directory using t.Cleanup
	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWd); err != nil {
			t.Errorf("Failed to restore working directory: %v", err)
		}
	})

	// Change to temp dir so backup files are created there
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("Failed to change to temp directory: %v", err)
	}

	db, err := NewDB(filepath.Join(tmpDir, "test.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	defer db.Close()

	httpMux := http.NewServeMux()
	db.AttachAdminRoutes(httpMux)

	beforeFiles, err := filepath.Glob("layout-backup-*.db")
	if err != nil {
		t.Fatalf("Failed to list files: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/debug/backup", nil)
	w := httptest.NewRecorder()
	httpMux.ServeHTTP(w, req)

	afterFiles, err := filepath.Glob("layout-backup-*.db")
	if err != nil {
		t.Fatalf("Failed to list files after backup: %v", err)
	}

	// The VACUUM'd copy is removed after streaming; tolerate at most the
	// one in-flight file when the recorder short-circuits the response.
	if len(afterFiles) > len(beforeFiles)+1 {
		t.Errorf("Too many backup files created: before=%d, after=%d", len(beforeFiles), len(afterFiles))
	}
}
