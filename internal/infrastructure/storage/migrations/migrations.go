// Package migrations holds the SQLite schema as goose migrations.
package migrations

import "embed"

// FS contains the versioned SQL migration files.
//
//go:embed *.sql
var FS embed.FS
