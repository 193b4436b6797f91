// Package migrate applies versioned SQL schema migrations to a SQLite
// database. Migrations are read from any fs.FS, typically an embed.FS, as
// files named <version>_<name>.up.sql and <version>_<name>.down.sql.
package migrate

import (
	"database/sql"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Migration is one schema step.
type Migration struct {
	Version int
	Name    string
	Up      string
	Down    string
}

// DB is satisfied by both *sql.DB and *sql.Tx.
type DB interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
}

var migrationFile = regexp.MustCompile(`^(\d+)_(.+)\.(up|down)\.sql$`)

// Load reads every migration below dir in fsys, sorted by version.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	byVersion := make(map[int]*Migration)

	err := fs.WalkDir(fsys, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		matches := migrationFile.FindStringSubmatch(d.Name())
		if matches == nil {
			return nil
		}
		version, err := strconv.Atoi(matches[1])
		if err != nil {
			return fmt.Errorf("invalid version number in file %s: %w", d.Name(), err)
		}
		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", path, err)
		}

		m := byVersion[version]
		if m == nil {
			m = &Migration{Version: version, Name: strings.ReplaceAll(matches[2], "_", " ")}
			byVersion[version] = m
		}
		if matches[3] == "up" {
			m.Up = string(content)
		} else {
			m.Down = string(content)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations from %s: %w", dir, err)
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		migrations = append(migrations, *m)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// Migrator applies migrations and records the applied version in a table.
type Migrator struct {
	db         *sql.DB
	migrations []Migration
	table      string
	logger     *zap.SugaredLogger
}

// NewMigrator creates a migrator. An empty table name defaults to
// schema_migrations.
func NewMigrator(db *sql.DB, migrations []Migration, table string, logger *zap.SugaredLogger) *Migrator {
	if table == "" {
		table = "schema_migrations"
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Migrator{db: db, migrations: migrations, table: table, logger: logger}
}

// MigrateUp applies every pending migration.
func (m *Migrator) MigrateUp() error {
	return m.MigrateTo(-1)
}

// MigrateTo moves the schema to targetVersion, -1 meaning the latest.
func (m *Migrator) MigrateTo(targetVersion int) error {
	if err := m.createTable(); err != nil {
		return err
	}

	current, err := m.CurrentVersion()
	if err != nil {
		return err
	}

	if targetVersion == -1 {
		targetVersion = 0
		if n := len(m.migrations); n > 0 {
			targetVersion = m.migrations[n-1].Version
		}
	}

	if targetVersion < current {
		for i := len(m.migrations) - 1; i >= 0; i-- {
			mig := m.migrations[i]
			if mig.Version > targetVersion && mig.Version <= current {
				if err := m.execute(mig, false); err != nil {
					return fmt.Errorf("failed to roll back migration %d: %w", mig.Version, err)
				}
			}
		}
		return nil
	}

	for _, mig := range m.migrations {
		if mig.Version > current && mig.Version <= targetVersion {
			if err := m.execute(mig, true); err != nil {
				return fmt.Errorf("failed to apply migration %d: %w", mig.Version, err)
			}
		}
	}
	return nil
}

// CurrentVersion returns the highest applied version, 0 when none.
func (m *Migrator) CurrentVersion() (int, error) {
	var version int
	err := m.db.QueryRow(fmt.Sprintf("SELECT COALESCE(MAX(version), 0) FROM %s", m.table)).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("failed to get current version: %w", err)
	}
	return version, nil
}

func (m *Migrator) createTable() error {
	_, err := m.db.Exec(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`, m.table))
	if err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}
	return nil
}

func (m *Migrator) setVersion(db DB, version int) error {
	if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s WHERE version > ?", m.table), version); err != nil {
		return fmt.Errorf("failed to set version: %w", err)
	}
	if version == 0 {
		return nil
	}
	if _, err := db.Exec(fmt.Sprintf("INSERT OR REPLACE INTO %s (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)", m.table), version); err != nil {
		return fmt.Errorf("failed to set version: %w", err)
	}
	return nil
}

// execute runs a single migration up or down in a transaction.
func (m *Migrator) execute(mig Migration, up bool) error {
	stmt, direction, newVersion := mig.Up, "up", mig.Version
	if !up {
		stmt, direction, newVersion = mig.Down, "down", mig.Version-1
	}
	if stmt == "" {
		return fmt.Errorf("migration %d has no %s SQL", mig.Version, direction)
	}

	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(stmt); err != nil {
		return fmt.Errorf("failed to execute migration SQL: %w", err)
	}
	if err := m.setVersion(tx, newVersion); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration transaction: %w", err)
	}

	m.logger.Infof("applied migration %d (%s) %s", mig.Version, mig.Name, direction)
	return nil
}
