// Package migrations compiles the device-store schema into the
// binary. Airlink deploys as a single executable next to its Python
// gateway scripts, so the SQL travels inside it rather than as loose
// files.
//
// To change the schema, add a YYYYMMDD_HHMMSS_description.up.sql file
// here with a matching .down.sql; db.Migrate applies it on the next
// start.
package migrations

import (
	"embed"

	"github.com/airlink-home/airlink-core/internal/infrastructure/database"
)

//go:embed *.sql
var schemaFS embed.FS

func init() {
	database.MigrationsFS = schemaFS
	database.MigrationsDir = "." // files sit at the root of the embed
}
