package performance

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// SQLiteStore keeps snapshots in a single local database file.
type SQLiteStore struct {
	db    *sql.DB
	table string
	now   func() time.Time
}

// NewSQLiteStore opens (or creates) the database at dbPath and creates the
// snapshot table.
func NewSQLiteStore(ctx context.Context, dbPath, table string) (*SQLiteStore, error) {
	if table == "" {
		table = "performance_snapshots"
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db, table: quoteIdent(table), now: time.Now}
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	metric_key  TEXT PRIMARY KEY,
	strategy_id TEXT NOT NULL,
	payload     TEXT NOT NULL,
	updated_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
)`, s.table)
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Put(ctx context.Context, key string, snap *Snapshot) error {
	payload, err := jsonCompact(snap)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`INSERT INTO %s (metric_key, strategy_id, payload, updated_at, expires_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(metric_key) DO UPDATE SET
	strategy_id = excluded.strategy_id,
	payload = excluded.payload,
	updated_at = excluded.updated_at,
	expires_at = excluded.expires_at`, s.table)
	_, err = s.db.ExecContext(ctx, query, key, snap.StrategyID, payload, snap.UpdatedAt.Unix(), snap.ExpiresAt.Unix())
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Snapshot, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE metric_key = ? AND expires_at > ?`, s.table)
	var payload string
	err := s.db.QueryRowContext(ctx, query, key, s.now().Unix()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return decodeSnapshot([]byte(payload))
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Snapshot, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE expires_at > ? ORDER BY metric_key`, s.table)
	rows, err := s.db.QueryContext(ctx, query, s.now().Unix())
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	out := []*Snapshot{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		snap, err := decodeSnapshot([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var _ Store = (*SQLiteStore)(nil)
