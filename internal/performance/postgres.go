package performance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// NewPool opens a pgx pool with shopspring decimals registered for NUMERIC
// columns and verifies connectivity.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}

// PostgresStore keeps snapshots in one table. The JSON document is the
// source of truth; headline metrics are copied into NUMERIC columns.
type PostgresStore struct {
	pool  *pgxpool.Pool
	table string
	now   func() time.Time
}

func NewPostgresStore(pool *pgxpool.Pool, table string) *PostgresStore {
	if table == "" {
		table = "performance_snapshots"
	}
	return &PostgresStore{pool: pool, table: pgx.Identifier{table}.Sanitize(), now: time.Now}
}

// Migrate creates the table when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	metric_key        TEXT PRIMARY KEY,
	strategy_id       TEXT        NOT NULL,
	payload           JSONB       NOT NULL,
	cumulative_return NUMERIC(18, 6),
	cagr              NUMERIC(18, 6),
	max_drawdown      NUMERIC(18, 6),
	volatility        NUMERIC(18, 6),
	updated_at        TIMESTAMPTZ NOT NULL,
	expires_at        TIMESTAMPTZ NOT NULL
)`, s.table)
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("migrate %s: %w", s.table, err)
	}
	return nil
}

func (s *PostgresStore) Put(ctx context.Context, key string, snap *Snapshot) error {
	payload, err := jsonCompact(snap)
	if err != nil {
		return err
	}
	m := snap.Metrics
	query := fmt.Sprintf(`INSERT INTO %s
	(metric_key, strategy_id, payload, cumulative_return, cagr, max_drawdown, volatility, updated_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
ON CONFLICT (metric_key) DO UPDATE SET
	strategy_id = EXCLUDED.strategy_id,
	payload = EXCLUDED.payload,
	cumulative_return = EXCLUDED.cumulative_return,
	cagr = EXCLUDED.cagr,
	max_drawdown = EXCLUDED.max_drawdown,
	volatility = EXCLUDED.volatility,
	updated_at = EXCLUDED.updated_at,
	expires_at = EXCLUDED.expires_at`, s.table)

	_, err = s.pool.Exec(ctx, query,
		key,
		snap.StrategyID,
		payload,
		decimal.NewFromFloat(m.CumulativeReturnPeriod),
		decimal.NewFromFloat(m.CAGRAnnualized),
		decimal.NewFromFloat(m.MaxDrawdownPeriod),
		decimal.NewFromFloat(m.VolatilityAnnualized),
		snap.UpdatedAt,
		snap.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", key, err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Snapshot, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE metric_key = $1 AND expires_at > $2`, s.table)
	var payload []byte
	if err := s.pool.QueryRow(ctx, query, key, s.now()).Scan(&payload); err != nil {
		if isNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	return decodeSnapshot(payload)
}

func (s *PostgresStore) List(ctx context.Context) ([]*Snapshot, error) {
	query := fmt.Sprintf(`SELECT payload FROM %s WHERE expires_at > $1 ORDER BY metric_key`, s.table)
	rows, err := s.pool.Query(ctx, query, s.now())
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	defer rows.Close()

	out := []*Snapshot{}
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		snap, err := decodeSnapshot(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

// Headline is the NUMERIC copy of a snapshot's main figures.
type Headline struct {
	StrategyID       string
	CumulativeReturn decimal.Decimal
	CAGR             decimal.Decimal
	MaxDrawdown      decimal.Decimal
	Volatility       decimal.Decimal
}

// Headlines returns unexpired headline rows, best CAGR first.
func (s *PostgresStore) Headlines(ctx context.Context) ([]Headline, error) {
	query := fmt.Sprintf(`SELECT strategy_id, cumulative_return, cagr, max_drawdown, volatility
FROM %s WHERE expires_at > $1 ORDER BY cagr DESC, strategy_id`, s.table)
	rows, err := s.pool.Query(ctx, query, s.now())
	if err != nil {
		return nil, fmt.Errorf("headlines: %w", err)
	}
	defer rows.Close()

	out := []Headline{}
	for rows.Next() {
		var h Headline
		if err := rows.Scan(&h.StrategyID, &h.CumulativeReturn, &h.CAGR, &h.MaxDrawdown, &h.Volatility); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func decodeSnapshot(payload []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var _ Store = (*PostgresStore)(nil)
