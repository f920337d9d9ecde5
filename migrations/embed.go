// Package migrations holds the collector's SQL schema.
package migrations

import "embed"

// FS contains every *.up.sql file in lexical order of application.
//
//go:embed *.up.sql
var FS embed.FS
