// Package migrations embeds the schemas applied by goose at startup.
package migrations

import (
	"embed"
	"io/fs"
)

// FS holds the versioned PostgreSQL goose SQL files.
//
//go:embed *.sql
var FS embed.FS

//go:embed sqlite/*.sql
var sqliteFS embed.FS

// SQLite returns the SQLite goose files rooted at the migration directory.
func SQLite() fs.FS {
	sub, err := fs.Sub(sqliteFS, "sqlite")
	if err != nil {
		panic(err)
	}
	return sub
}
