package migrations

import "embed"

// Root is the directory of the catalog migrations inside FS.
const Root = "catalog"

// FS contains embedded SQLite migrations for the system catalog.
//
//go:embed catalog/*.sql
var FS embed.FS
