package history

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrSchemaMismatch reports a journal written by a newer pix360 than this one.
var ErrSchemaMismatch = errors.New("history journal is newer than this build")

// The journal version is SQLite's user_version: the number of files under
// migrations/ that have been applied, in name order.
func loadMigrations() ([]string, error) {
	names, err := fs.Glob(migrationFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	scripts := make([]string, 0, len(names))
	for _, name := range names {
		data, err := migrationFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		scripts = append(scripts, string(data))
	}
	return scripts, nil
}

func (s *Store) migrate(ctx context.Context) error {
	scripts, err := loadMigrations()
	if err != nil {
		return err
	}
	version, err := s.version(ctx)
	if err != nil {
		return err
	}
	if version == 0 {
		if version, err = s.adoptVersionTable(ctx, len(scripts)); err != nil {
			return err
		}
	}
	if version > len(scripts) {
		return fmt.Errorf("%w: %s is at version %d, this build knows %d (move the file aside to start a new journal)",
			ErrSchemaMismatch, s.path, version, len(scripts))
	}
	for next := version; next < len(scripts); next++ {
		if err := s.upgrade(ctx, next+1, scripts[next]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) version(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("read journal version: %w", err)
	}
	return version, nil
}

func (s *Store) upgrade(ctx context.Context, version int, script string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", version, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, script); err != nil {
		return fmt.Errorf("apply migration %d: %w", version, err)
	}
	// PRAGMA does not take bind parameters.
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return fmt.Errorf("stamp migration %d: %w", version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %d: %w", version, err)
	}
	return nil
}

// adoptVersionTable converts journals from builds that kept their version in
// a schema_version table. Their events table matches migration 1. Versions
// above known are returned untouched so migrate can refuse them.
func (s *Store) adoptVersionTable(ctx context.Context, known int) (int, error) {
	var tables int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'schema_version'`,
	).Scan(&tables); err != nil {
		return 0, fmt.Errorf("inspect journal: %w", err)
	}
	if tables == 0 {
		return 0, nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return 0, fmt.Errorf("read legacy journal version: %w", err)
	}
	if version > known {
		return version, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin journal adoption: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, "DROP TABLE schema_version"); err != nil {
		return 0, fmt.Errorf("drop schema_version: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return 0, fmt.Errorf("stamp adopted journal: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit journal adoption: %w", err)
	}
	return version, nil
}
