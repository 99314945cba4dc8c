package db

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// MigrationsFS returns the embedded migration files rooted at the
// migrations directory, ready to hand to the migrate helpers.
func MigrationsFS() fs.FS {
	sub, err := fs.Sub(embeddedMigrations, "migrations")
	if err != nil {
		// the embed directive guarantees the directory exists
		panic(err)
	}
	return sub
}
