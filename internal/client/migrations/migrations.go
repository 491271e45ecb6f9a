// Package migrations embeds the goose migrations of the CLI's local state store.
package migrations

import "embed"

//go:embed sqlite/*.sql
var Migrations embed.FS
