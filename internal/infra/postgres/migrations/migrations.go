// Package migrations holds the Postgres schema, applied with bun/migrate.
package migrations

import (
	"embed"

	"github.com/uptrace/bun/migrate"
)

//go:embed sql/*.sql
var sqlFiles embed.FS

var Migrations = migrate.NewMigrations()

func mustReadSQL(name string) string {
	raw, err := sqlFiles.ReadFile("sql/" + name)
	if err != nil {
		panic(err)
	}
	return string(raw)
}
