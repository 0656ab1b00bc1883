package audit

import (
	"database/sql"
	"embed"
	"time"

	"github.com/pkg/errors"
	migrate "github.com/rubenv/sql-migrate"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const migrationTable = "audit_migrations"

// Migrations returns the embedded audit schema migrations.
func Migrations() *migrate.EmbedFileSystemMigrationSource {
	return &migrate.EmbedFileSystemMigrationSource{
		FileSystem: migrationsFS,
		Root:       "migrations",
	}
}

// Migrate applies all pending audit migrations and returns how many were applied.
func Migrate(db *sql.DB) (int, error) {
	migrate.SetTable(migrationTable)

	n, err := migrate.Exec(db, "postgres", Migrations(), migrate.Up)
	if err != nil {
		return 0, errors.Wrap(err, "failed to apply audit migrations")
	}

	return n, nil
}

// AppliedMigrations maps the ids of applied audit migrations to when they were applied.
func AppliedMigrations(db *sql.DB) (map[string]time.Time, error) {
	migrate.SetTable(migrationTable)

	records, err := migrate.GetMigrationRecords(db, "postgres")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read applied audit migrations")
	}

	applied := make(map[string]time.Time, len(records))
	for _, record := range records {
		applied[record.Id] = record.AppliedAt
	}

	return applied, nil
}
