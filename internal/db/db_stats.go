package db

import (
	"fmt"
)

// TableStats describes one table's footprint.
type TableStats struct {
	Name     string  `json:"name"`
	RowCount int64   `json:"row_count"`
	SizeMB   float64 `json:"size_mb"`
}

// DatabaseStats summarizes the database file and its tables for the
// /debug/db-stats endpoint.
type DatabaseStats struct {
	TotalSizeMB float64      `json:"total_size_mb"`
	Tables      []TableStats `json:"tables"`
}

// GetDatabaseStats reports the database file size and per-table row counts
// and sizes. Per-table sizes come from the dbstat virtual table when the
// build has it; otherwise they are apportioned from the file size by row
// share.
func (db *DB) GetDatabaseStats() (*DatabaseStats, error) {
	var pageCount, pageSize int64
	if err := db.DB.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := db.DB.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return nil, fmt.Errorf("failed to get page size: %w", err)
	}

	stats := &DatabaseStats{
		TotalSizeMB: float64(pageCount*pageSize) / (1024 * 1024),
	}

	rows, err := db.DB.Query(`
		SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tables: %w", err)
	}

	var totalRows int64
	for _, name := range names {
		var count int64
		if err := db.DB.QueryRow(fmt.Sprintf(`SELECT COUNT(*) FROM "%s"`, name)).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count rows in %s: %w", name, err)
		}
		totalRows += count
		stats.Tables = append(stats.Tables, TableStats{Name: name, RowCount: count})
	}

	for i := range stats.Tables {
		ts := &stats.Tables[i]
		var pgSize int64
		err := db.DB.QueryRow(`SELECT COALESCE(SUM(pgsize), 0) FROM dbstat WHERE name = ?`, ts.Name).Scan(&pgSize)
		if err == nil {
			ts.SizeMB = float64(pgSize) / (1024 * 1024)
			continue
		}
		if totalRows > 0 {
			ts.SizeMB = stats.TotalSizeMB * float64(ts.RowCount) / float64(totalRows)
		}
	}

	return stats, nil
}
