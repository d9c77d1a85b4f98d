// internal/infrastructure/persistence/sqldb/dialect.go
package sqldb

import "fmt"

// Dialect SQL диалект хранилища
type Dialect string

const (
	Postgres Dialect = "postgres"
	MySQL    Dialect = "mysql"
)

// ParseDialect проверяет имя диалекта
func ParseDialect(name string) (Dialect, error) {
	switch Dialect(name) {
	case Postgres, MySQL:
		return Dialect(name), nil
	default:
		return "", fmt.Errorf("unsupported sql dialect %q", name)
	}
}

// DriverName имя драйвера database/sql
func (d Dialect) DriverName() string {
	return string(d)
}

// migrationsTableDDL таблица учета примененных миграций
func (d Dialect) migrationsTableDDL() string {
	if d == MySQL {
		return `CREATE TABLE IF NOT EXISTS schema_migrations (
	id INT NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum VARCHAR(64) NOT NULL,
	applied_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
)`
	}
	return `CREATE TABLE IF NOT EXISTS schema_migrations (
	id INTEGER PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	checksum VARCHAR(64) NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`
}
