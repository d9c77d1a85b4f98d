package sqldb

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

func newMockDB(t *testing.T, dialect Dialect) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	db := sqlx.NewDb(raw, dialect.DriverName())
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestLoadMigrations(t *testing.T) {
	for _, dialect := range []Dialect{Postgres, MySQL} {
		t.Run(string(dialect), func(t *testing.T) {
			migrations, err := loadMigrations(migrationsFS, dialect)
			if err != nil {
				t.Fatalf("loadMigrations: %v", err)
			}
			if len(migrations) != 2 {
				t.Fatalf("expected 2 migrations, got %d", len(migrations))
			}
			if migrations[0].ID != 1 || migrations[0].Name != "create_prices" {
				t.Fatalf("unexpected first migration: %+v", migrations[0])
			}
			if migrations[0].Description != "append-only price history" {
				t.Fatalf("unexpected description %q", migrations[0].Description)
			}
			if len(migrations[0].Checksum) != 64 {
				t.Fatalf("unexpected checksum %q", migrations[0].Checksum)
			}
		})
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		id       int
		name     string
		ok       bool
	}{
		{"001_create_prices.sql", 1, "create_prices", true},
		{"12_add_index.sql", 12, "add_index", true},
		{"create_prices.sql", 0, "", false},
		{"001_create_prices.down.sql", 0, "", false},
		{"README.md", 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			id, name, ok := parseMigrationFilename(tt.filename)
			if id != tt.id || name != tt.name || ok != tt.ok {
				t.Fatalf("got (%d, %q, %v), want (%d, %q, %v)", id, name, ok, tt.id, tt.name, tt.ok)
			}
		})
	}
}

func TestMigrateAppliesPendingMigrations(t *testing.T) {
	db, mock := newMockDB(t, Postgres)
	migrator, err := NewMigrator(db, Postgres)
	if err != nil {
		t.Fatalf("NewMigrator: %v", err)
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, checksum FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"id", "checksum"}))
	for _, m := range migrator.Migrations() {
		mock.ExpectBegin()
		mock.ExpectExec("prices").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec("INSERT INTO schema_migrations").
			WithArgs(m.ID, m.Name, m.Checksum).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()
	}

	if err := migrator.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, mock := newMockDB(t, MySQL)
	migrator, err := NewMigrator(db, MySQL)
	if err != nil {
		t.Fatalf("NewMigrator: %v", err)
	}

	rows := sqlmock.NewRows([]string{"id", "checksum"})
	for _, m := range migrator.Migrations() {
		rows.AddRow(m.ID, m.Checksum)
	}
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, checksum FROM schema_migrations").WillReturnRows(rows)

	if err := migrator.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMigrateRejectsChecksumMismatch(t *testing.T) {
	db, mock := newMockDB(t, Postgres)
	migrator, err := NewMigrator(db, Postgres)
	if err != nil {
		t.Fatalf("NewMigrator: %v", err)
	}

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS schema_migrations").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT id, checksum FROM schema_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"id", "checksum"}).AddRow(1, "tampered"))

	if err := migrator.Migrate(context.Background()); err == nil {
		t.Fatal("expected checksum mismatch error")
	}
}

func TestParseDialect(t *testing.T) {
	if _, err := ParseDialect("sqlite"); err == nil {
		t.Fatal("expected error for unsupported dialect")
	}
	d, err := ParseDialect("mysql")
	if err != nil || d != MySQL {
		t.Fatalf("ParseDialect(mysql) = %v, %v", d, err)
	}
}
