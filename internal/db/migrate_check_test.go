package db

import (
	"os"
	"path/filepath"
	"testing"
)

// TestCheckAndPromptMigrations_UpToDate verifies no error when database is current
func TestCheckAndPromptMigrations_UpToDate(t *testing.T) {
	db := setupEmptyTestDB(t)
	defer cleanupTestDB(t, db)

	migrationsFS := setupTestMigrations(t)

	// Apply all migrations
	err := db.MigrateUp(migrationsFS)
	if err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	// Check should pass since we're up to date
	shouldExit, err := db.CheckAndPromptMigrations(migrationsFS)
	if err != nil {
		t.Errorf("Expected no error when up to date, got: %v", err)
	}
	if shouldExit {
		t.Error("Expected shouldExit to be false when up to date")
	}
}

// TestCheckAndPromptMigrations_OutOfDate verifies error when migrations are pending
func TestCheckAndPromptMigrations_OutOfDate(t *testing.T) {
	db := setupEmptyTestDB(t)
	defer cleanupTestDB(t, db)

	migrationsFS := setupTestMigrations(t)

	// Apply only first migration
	err := db.MigrateTo(migrationsFS, 1)
	if err != nil {
		t.Fatalf("MigrateTo(1) failed: %v", err)
	}

	// Check should fail since we're not up to date
	shouldExit, err := db.CheckAndPromptMigrations(migrationsFS)
	if err == nil {
		t.Error("Expected error when migrations are pending")
	}
	if !shouldExit {
		t.Error("Expected shouldExit to be true when migrations are pending")
	}
}

// TestCheckAndPromptMigrations_DirtyState verifies error when database is dirty
func TestCheckAndPromptMigrations_DirtyState(t *testing.T) {
	db := setupEmptyTestDB(t)
	defer cleanupTestDB(t, db)

	migrationsFS := setupTestMigrations(t)

	// Apply migrations
	err := db.MigrateUp(migrationsFS)
	if err != nil {
		t.Fatalf("MigrateUp failed: %v", err)
	}

	// Manually set database to dirty state
	_, err = db.Exec("UPDATE schema_migrations SET dirty = 1")
	if err != nil {
		t.Fatalf("Failed to set dirty state: %v", err)
	}

	// Check should fail with dirty state error
	shouldExit, err := db.CheckAndPromptMigrations(migrationsFS)
	if err == nil {
		t.Error("Expected error when database is dirty")
	}
	if !shouldExit {
		t.Error("Expected shouldExit to be true when database is dirty")
	}
}

// TestGetLatestMigrationVersion verifies we can detect the latest migration version
func TestGetLatestMigrationVersion(t *testing.T) {
	migrationsFS := setupTestMigrations(t)

	version, err := GetLatestMigrationVersion(migrationsFS)
	if err != nil {
		t.Fatalf("GetLatestMigrationVersion failed: %v", err)
	}

	// setupTestMigrations creates migrations 1 and 2
	if version != 2 {
		t.Errorf("Expected latest version 2, got %d", version)
	}
}

// TestGetLatestMigrationVersion_NoMigrations verifies error when no migrations exist
func TestGetLatestMigrationVersion_NoMigrations(t *testing.T) {
	tmpDir := t.TempDir()
	emptyFS := os.DirFS(tmpDir)

	_, err := GetLatestMigrationVersion(emptyFS)
	if err == nil {
		t.Error("Expected error when no migrations exist")
	}
}

// TestNewDBWithMigrationCheck_FreshDatabase verifies a fresh database is
// brought to the latest embedded migration when auto-migrate is on
func TestNewDBWithMigrationCheck_FreshDatabase(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "test.db")

	db, err := NewDBWithMigrationCheck(fname, true)
	if err != nil {
		t.Fatalf("NewDBWithMigrationCheck failed: %v", err)
	}
	defer db.Close()

	var version uint
	err = db.QueryRow("SELECT version FROM schema_migrations LIMIT 1").Scan(&version)
	if err != nil {
		t.Fatalf("Failed to read version: %v", err)
	}

	latestVersion, err := GetLatestMigrationVersion(MigrationsFS())
	if err != nil {
		t.Fatalf("Failed to get latest migration version: %v", err)
	}

	if version != latestVersion {
		t.Errorf("Expected version %d (latest from migrations), got %d", latestVersion, version)
	}
}

// TestNewDBWithMigrationCheck_OutOfDateDatabase verifies error when
// auto-migrate is off and the database is behind
func TestNewDBWithMigrationCheck_OutOfDateDatabase(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "test.db")

	// Create database and apply only the first embedded migration
	db, err := OpenDB(fname)
	if err != nil {
		t.Fatalf("OpenDB failed: %v", err)
	}
	if err := db.MigrateTo(MigrationsFS(), 1); err != nil {
		t.Fatalf("MigrateTo(1) failed: %v", err)
	}
	db.Close()

	// Without auto-migrate, the out-of-date database must be refused
	_, err = NewDBWithMigrationCheck(fname, false)
	if err == nil {
		t.Error("Expected error when database is out of date")
	}

	// With auto-migrate, it must open and come up to date
	db2, err := NewDBWithMigrationCheck(fname, true)
	if err != nil {
		t.Fatalf("NewDBWithMigrationCheck with auto-migrate failed: %v", err)
	}
	defer db2.Close()

	version, dirty, err := db2.MigrateVersion(MigrationsFS())
	if err != nil {
		t.Fatalf("MigrateVersion failed: %v", err)
	}
	latestVersion, err := GetLatestMigrationVersion(MigrationsFS())
	if err != nil {
		t.Fatalf("Failed to get latest migration version: %v", err)
	}
	if version != latestVersion || dirty {
		t.Errorf("Expected clean version %d after auto-migrate, got %d (dirty: %v)", latestVersion, version, dirty)
	}
}
