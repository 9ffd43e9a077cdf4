package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://app:secret@db:5432/x?sslmode=disable", MigrateURL("postgres://app:secret@db:5432/x?sslmode=disable"))
	assert.Equal(t, "pgx5://db/x", MigrateURL("postgresql://db/x"))
	assert.Equal(t, "pgx5://db/x", MigrateURL("pgx5://db/x"))
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
}
