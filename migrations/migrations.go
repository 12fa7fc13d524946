// Package migrations embeds the per-location schema
package migrations

import "embed"

// FS holds the NNN_name.sql files applied to every location database
//
//go:embed *.sql
var FS embed.FS
