// Package migrations embeds the per-clinic schema migrations applied by
// db.Migrator.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
