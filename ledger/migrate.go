package ledger

import (
	"bytes"
	"embed"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"text/template"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies all pending sqlite migrations for table.
// migrate.ErrNoChange is suppressed.
func Migrate(db *gorm.DB, table string) error {
	m, err := newMigrator(db, table)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// MigrateDown rolls back every migration for table.
func MigrateDown(db *gorm.DB, table string) error {
	m, err := newMigrator(db, table)
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !stderrors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

// MigrateVersion returns the applied migration version and dirty flag.
func MigrateVersion(db *gorm.DB, table string) (version uint, dirty bool, err error) {
	m, err := newMigrator(db, table)
	if err != nil {
		return 0, false, err
	}
	return m.Version()
}

// newMigrator creates a golang-migrate instance over the embedded SQL.
// Callers must NOT call m.Close(): it would close the shared sql.DB.
func newMigrator(db *gorm.DB, table string) (*migrate.Migrate, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}

	driver, err := sqlite3.WithInstance(sqlDB, &sqlite3.Config{
		MigrationsTable: table + "_schema_migrations",
	})
	if err != nil {
		return nil, fmt.Errorf("create database driver: %w", err)
	}

	source, err := iofs.New(tableFS{fsys: migrationsFS, table: table}, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// tableFS renders the {{.Table}} placeholder in migration files on open.
type tableFS struct {
	fsys  fs.FS
	table string
}

func (t tableFS) Open(name string) (fs.File, error) {
	f, err := t.fsys.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck
		return nil, err
	}
	if info.IsDir() {
		return f, nil
	}
	defer f.Close() //nolint:errcheck

	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	tmpl, err := template.New(name).Option("missingkey=error").Parse(string(raw))
	if err != nil {
		return nil, fmt.Errorf("parse migration %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, struct{ Table string }{t.table}); err != nil {
		return nil, fmt.Errorf("render migration %s: %w", name, err)
	}
	return &renderedFile{Reader: bytes.NewReader(buf.Bytes()), info: renderedInfo{FileInfo: info, size: int64(buf.Len())}}, nil
}

type renderedFile struct {
	*bytes.Reader
	info renderedInfo
}

func (f *renderedFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *renderedFile) Close() error               { return nil }

type renderedInfo struct {
	fs.FileInfo
	size int64
}

func (i renderedInfo) Size() int64 { return i.size }
