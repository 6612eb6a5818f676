// Package migrations embeds the goose SQL migrations for the tables owned by
// claimkeeper.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
