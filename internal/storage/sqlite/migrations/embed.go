package migrations

import "embed"

// FS contains embedded SQLite migrations for SwopCredit storage.
//
//go:embed *.sql
var FS embed.FS
