package migrate

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

var testMigrations = fstest.MapFS{
	"m/0001_create_dives.up.sql":   {Data: []byte("CREATE TABLE dives (id TEXT PRIMARY KEY);")},
	"m/0001_create_dives.down.sql": {Data: []byte("DROP TABLE dives;")},
	"m/0002_add_site.up.sql":       {Data: []byte("ALTER TABLE dives ADD COLUMN site TEXT;")},
	"m/0002_add_site.down.sql":     {Data: []byte("ALTER TABLE dives DROP COLUMN site;")},
	"m/README.md":                  {Data: []byte("not a migration")},
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "m.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestLoad(t *testing.T) {
	migrations, err := Load(testMigrations, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create dives", migrations[0].Name)
	assert.NotEmpty(t, migrations[1].Up)
	assert.NotEmpty(t, migrations[1].Down)
}

func TestMigrateUpAndDown(t *testing.T) {
	db := openDB(t)
	migrations, err := Load(testMigrations, "m")
	require.NoError(t, err)

	m := NewMigrator(db, migrations, "", nil)
	require.NoError(t, m.MigrateUp())
	v, err := m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	_, err = db.Exec("INSERT INTO dives (id, site) VALUES ('a', 'Blue Hole')")
	require.NoError(t, err)

	// idempotent
	require.NoError(t, m.MigrateUp())

	require.NoError(t, m.MigrateTo(1))
	v, err = m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	_, err = db.Exec("INSERT INTO dives (id, site) VALUES ('b', 'x')")
	assert.Error(t, err, "site column should be gone")

	require.NoError(t, m.MigrateTo(0))
	v, err = m.CurrentVersion()
	require.NoError(t, err)
	assert.Equal(t, 0, v)
}
