// Package migrations embeds the goose SQL migrations for the
// PostgreSQL document repository.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
