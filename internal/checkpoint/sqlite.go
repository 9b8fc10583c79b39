package checkpoint

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteFile is the database file name inside the checkpoint directory.
const SQLiteFile = "checkpoints.db"

const schema = `
CREATE TABLE IF NOT EXISTS checkpoints (
	step INTEGER PRIMARY KEY,
	created_at INTEGER NOT NULL,
	payload BLOB NOT NULL
)`

// SQLiteStore keeps snapshots as rows of a SQLite database.
type SQLiteStore struct {
	sqlDB *sql.DB
	keep  int
}

// OpenSQLite opens (creating if needed) the checkpoint database in dir.
func OpenSQLite(dir string, keep int) (*SQLiteStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("checkpoint directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}
	dsn := filepath.Join(filepath.Clean(dir), SQLiteFile) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create checkpoints table: %w", err)
	}
	return &SQLiteStore{sqlDB: sqlDB, keep: max(keep, 1)}, nil
}

// Close releases the SQLite connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Save inserts or replaces the snapshot for step and prunes old rows in
// the same transaction.
func (s *SQLiteStore) Save(ctx context.Context, step int64, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin checkpoint tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO checkpoints (step, created_at, payload) VALUES (?, ?, ?)
ON CONFLICT(step) DO UPDATE SET created_at = excluded.created_at, payload = excluded.payload
`, step, time.Now().UTC().UnixMilli(), data)
	if err != nil {
		return fmt.Errorf("save checkpoint: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
DELETE FROM checkpoints
WHERE step NOT IN (SELECT step FROM checkpoints ORDER BY step DESC LIMIT ?)
`, s.keep)
	if err != nil {
		return fmt.Errorf("prune checkpoints: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit checkpoint: %w", err)
	}
	return nil
}

// Latest returns the row with the highest step.
func (s *SQLiteStore) Latest(ctx context.Context) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}
	if s == nil || s.sqlDB == nil {
		return Checkpoint{}, fmt.Errorf("storage is not configured")
	}

	var c Checkpoint
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT step, payload FROM checkpoints ORDER BY step DESC LIMIT 1`,
	).Scan(&c.Step, &c.Data)
	if errors.Is(err, sql.ErrNoRows) {
		return Checkpoint{}, ErrNotFound
	}
	if err != nil {
		return Checkpoint{}, fmt.Errorf("load checkpoint: %w", err)
	}
	return c, nil
}
