package db

import (
	"io/fs"
	"strings"
	"testing"
)

// TestEmbeddedMigrationsFS verifies the embedded migrations filesystem structure
func TestEmbeddedMigrationsFS(t *testing.T) {
	migFS := MigrationsFS()

	entries, err := fs.ReadDir(migFS, ".")
	if err != nil {
		t.Fatalf("Failed to read root of migrations FS: %v", err)
	}
	for _, entry := range entries {
		t.Logf("  %s", entry.Name())
	}

	// Every up migration has a matching down migration
	ups := make(map[string]bool)
	downs := make(map[string]bool)
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("Unexpected file in migrations: %s", name)
		}
	}
	if len(ups) != len(downs) {
		t.Errorf("Mismatched migrations: %d up, %d down", len(ups), len(downs))
	}
	for base := range ups {
		if !downs[base] {
			t.Errorf("Migration %s has no down file", base)
		}
	}

	latest, err := GetLatestMigrationVersion(migFS)
	if err != nil {
		t.Fatalf("GetLatestMigrationVersion failed: %v", err)
	}
	if int(latest) != len(ups) {
		t.Errorf("Expected latest version %d, got %d", len(ups), latest)
	}
}
