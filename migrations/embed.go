// Package migrations embeds the SQL schema into the binary so the history
// database can be created without any files beside the executable.
package migrations

import (
	"embed"

	"github.com/nerrad567/tavernlight-core/internal/infrastructure/database"
)

//go:embed *.sql
var migrationsFS embed.FS

func init() {
	database.MigrationsFS = migrationsFS
	database.MigrationsDir = "."
}
