package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/AlouiLouai/takwira/migrations"
)

// recordMigration statements differ only in placeholder syntax.
const (
	postgresRecordMigration = `INSERT INTO schema_migrations (filename) VALUES ($1)`
	sqliteRecordMigration   = `INSERT INTO schema_migrations (filename) VALUES (?)`
)

// migrationSource resolves where migration files are read from. An explicit
// directory on disk wins over the files embedded in the binary.
func migrationSource(overrideDir, embeddedDir string) (fs.FS, string) {
	if dir := strings.TrimSpace(overrideDir); dir != "" {
		return os.DirFS(dir), "."
	}
	return migrations.FS, embeddedDir
}

func applyMigrations(db *sql.DB, fsys fs.FS, dir, recordSQL string) (int, error) {
	if err := ensureMigrationsTable(db); err != nil {
		return 0, err
	}
	applied, err := loadAppliedMigrations(db)
	if err != nil {
		return 0, err
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return 0, nil
		}
		return 0, fmt.Errorf("read migrations: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".sql") {
			files = append(files, name)
		}
	}
	sort.Strings(files)

	count := 0
	for _, filename := range files {
		if applied[filename] {
			continue
		}
		content, err := fs.ReadFile(fsys, path.Join(dir, filename))
		if err != nil {
			return count, fmt.Errorf("read migration %s: %w", filename, err)
		}
		if strings.TrimSpace(string(content)) == "" {
			continue
		}
		if err := applyMigration(db, filename, string(content), recordSQL); err != nil {
			return count, fmt.Errorf("apply migration %s: %w", filename, err)
		}
		count++
	}
	return count, nil
}

func ensureMigrationsTable(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS schema_migrations (
  filename TEXT PRIMARY KEY,
  installed_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}
	return nil
}

func loadAppliedMigrations(db *sql.DB) (map[string]bool, error) {
	rows, err := db.Query(`SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("load schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[name] = true
	}
	return applied, rows.Err()
}

func applyMigration(db *sql.DB, filename, sqlContent, recordSQL string) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin migration tx: %w", err)
	}
	if _, err := tx.Exec(sqlContent); err != nil {
		_ = tx.Rollback()
		return err
	}
	if _, err := tx.Exec(recordSQL, filename); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration tx: %w", err)
	}
	return nil
}
