// internal/infrastructure/persistence/sqldb/migrator.go
package sqldb

import (
	"context"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"price-peak-monitor/pkg/logger"

	"github.com/jmoiron/sqlx"
)

//go:embed migrations
var migrationsFS embed.FS

var migrationFilename = regexp.MustCompile(`^(\d+)_([a-zA-Z0-9_]+)\.sql$`)

// Migration описывает одну миграцию
type Migration struct {
	ID          int
	Name        string
	Description string
	SQL         string
	Checksum    string
}

// Migrator применяет встроенные миграции для выбранного диалекта
type Migrator struct {
	db         *sqlx.DB
	dialect    Dialect
	migrations []*Migration
}

// NewMigrator создает мигратор и загружает миграции диалекта
func NewMigrator(db *sqlx.DB, dialect Dialect) (*Migrator, error) {
	migrations, err := loadMigrations(migrationsFS, dialect)
	if err != nil {
		return nil, err
	}
	return &Migrator{db: db, dialect: dialect, migrations: migrations}, nil
}

// Migrations возвращает загруженные миграции в порядке применения
func (m *Migrator) Migrations() []*Migration {
	return m.migrations
}

// Migrate применяет все непримененные миграции. Повторный вызов ничего не меняет.
func (m *Migrator) Migrate(ctx context.Context) error {
	if _, err := m.db.ExecContext(ctx, m.dialect.migrationsTableDDL()); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	applied, err := m.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	pending := 0
	for _, migration := range m.migrations {
		checksum, ok := applied[migration.ID]
		if ok {
			if checksum != migration.Checksum {
				return fmt.Errorf("checksum mismatch for migration %03d_%s", migration.ID, migration.Name)
			}
			continue
		}

		if err := m.apply(ctx, migration); err != nil {
			return err
		}
		pending++
		logger.Info("✅ Applied migration %03d: %s", migration.ID, migration.Description)
	}

	if pending == 0 {
		logger.Debug("Schema is up to date (%d migrations)", len(m.migrations))
	}
	return nil
}

func (m *Migrator) appliedMigrations(ctx context.Context) (map[int]string, error) {
	var records []struct {
		ID       int    `db:"id"`
		Checksum string `db:"checksum"`
	}
	if err := m.db.SelectContext(ctx, &records, "SELECT id, checksum FROM schema_migrations ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to read applied migrations: %w", err)
	}

	applied := make(map[int]string, len(records))
	for _, r := range records {
		applied[r.ID] = r.Checksum
	}
	return applied, nil
}

func (m *Migrator) apply(ctx context.Context, migration *Migration) error {
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration %d: %w", migration.ID, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, migration.SQL); err != nil {
		return fmt.Errorf("failed to execute migration %03d_%s: %w", migration.ID, migration.Name, err)
	}

	insert := m.db.Rebind("INSERT INTO schema_migrations (id, name, checksum) VALUES (?, ?, ?)")
	if _, err := tx.ExecContext(ctx, insert, migration.ID, migration.Name, migration.Checksum); err != nil {
		return fmt.Errorf("failed to record migration %d: %w", migration.ID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit migration %d: %w", migration.ID, err)
	}
	return nil
}

func loadMigrations(fsys fs.FS, dialect Dialect) ([]*Migration, error) {
	dir := path.Join("migrations", string(dialect))
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations for %s: %w", dialect, err)
	}

	var migrations []*Migration
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		id, name, ok := parseMigrationFilename(entry.Name())
		if !ok {
			continue
		}

		content, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("failed to read migration %s: %w", entry.Name(), err)
		}

		migrations = append(migrations, &Migration{
			ID:          id,
			Name:        name,
			Description: extractDescription(string(content), name),
			SQL:         string(content),
			Checksum:    calculateChecksum(content),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].ID < migrations[j].ID
	})
	return migrations, nil
}

// parseMigrationFilename разбирает имя вида 001_create_prices.sql
func parseMigrationFilename(filename string) (int, string, bool) {
	matches := migrationFilename.FindStringSubmatch(filename)
	if matches == nil {
		return 0, "", false
	}
	id, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, "", false
	}
	return id, matches[2], true
}

func extractDescription(content, fallback string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "-- Description:") {
			return strings.TrimSpace(strings.TrimPrefix(line, "-- Description:"))
		}
	}
	return strings.ReplaceAll(fallback, "_", " ")
}

func calculateChecksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
