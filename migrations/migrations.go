// Package migrations embeds the PostgreSQL schema for the events API.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
