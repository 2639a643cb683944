package db

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
)

// Migration is one versioned migration found in a migration source.
type Migration struct {
	Version uint
	Name    string
	HasDown bool
}

// MigrationStatus reports whether a migration is applied to the database.
type MigrationStatus struct {
	Version uint
	Name    string
	Applied bool
}

// Migrator applies the embedded SQL migrations with golang-migrate.
type Migrator struct {
	m      *migrate.Migrate
	sqlDB  *sql.DB
	source fs.FS
}

// NewMigrator opens a database/sql handle through the pgx stdlib driver and
// prepares golang-migrate with source as the iofs migration source.
func NewMigrator(databaseURL string, source fs.FS) (*Migrator, error) {
	sqlDB, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	dbDriver, err := postgres.WithInstance(sqlDB, &postgres.Config{})
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("db driver: %w", err)
	}

	srcDriver, err := iofs.New(source, ".")
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("source driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", srcDriver, "postgres", dbDriver)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create migrator: %w", err)
	}

	return &Migrator{m: m, sqlDB: sqlDB, source: source}, nil
}

// Up applies all pending migrations. It reports false when nothing changed.
func (m *Migrator) Up() (bool, error) {
	if err := m.m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			return false, nil
		}
		return false, fmt.Errorf("migrate up: %w", err)
	}
	return true, nil
}

// Down rolls back the given number of migrations.
func (m *Migrator) Down(steps int) error {
	if steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d", steps)
	}
	if err := m.m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// Version returns the current schema version. A database without any applied
// migration reports version 0.
func (m *Migrator) Version() (uint, bool, error) {
	v, dirty, err := m.m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("migrate version: %w", err)
	}
	return v, dirty, nil
}

// Status lists every known migration and whether it is applied.
func (m *Migrator) Status() ([]MigrationStatus, error) {
	migrations, err := ListMigrations(m.source)
	if err != nil {
		return nil, err
	}
	current, _, err := m.Version()
	if err != nil {
		return nil, err
	}
	return BuildStatus(migrations, current), nil
}

// Close releases the migrator and its database handle.
func (m *Migrator) Close() error {
	srcErr, dbErr := m.m.Close()
	if srcErr != nil {
		return srcErr
	}
	return dbErr
}

// ListMigrations reads golang-migrate style files ("000001_name.up.sql") from
// fsys and returns them sorted by version. Files without a numeric prefix or
// an up/down suffix are skipped.
func ListMigrations(fsys fs.FS) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	byVersion := make(map[uint]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		var direction string
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			direction = "up"
		case strings.HasSuffix(name, ".down.sql"):
			direction = "down"
		default:
			continue
		}

		parts := strings.SplitN(name, "_", 2)
		if len(parts) < 2 {
			continue
		}
		version, err := strconv.ParseUint(parts[0], 10, 64)
		if err != nil {
			continue
		}

		mig, ok := byVersion[uint(version)]
		if !ok {
			mig = &Migration{Version: uint(version)}
			byVersion[uint(version)] = mig
		}
		if direction == "up" {
			mig.Name = strings.TrimSuffix(parts[1], ".up.sql")
		} else {
			mig.HasDown = true
		}
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, mig := range byVersion {
		if mig.Name == "" {
			return nil, fmt.Errorf("migration %d has a down file but no up file", mig.Version)
		}
		migrations = append(migrations, *mig)
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})
	return migrations, nil
}

// BuildStatus marks every migration at or below current as applied.
func BuildStatus(migrations []Migration, current uint) []MigrationStatus {
	statuses := make([]MigrationStatus, 0, len(migrations))
	for _, mig := range migrations {
		statuses = append(statuses, MigrationStatus{
			Version: mig.Version,
			Name:    mig.Name,
			Applied: current > 0 && mig.Version <= current,
		})
	}
	return statuses
}
