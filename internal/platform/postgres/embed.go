package postgres

import "embed"

// MigrationsFS embeds the goose migration files so the binary can run
// migrations without a checkout of the source tree.
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS
