// Package migrations embeds the client-side SQLite schema, applied by goose
// when the store is opened.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
