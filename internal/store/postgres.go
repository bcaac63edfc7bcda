package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies
// it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements SnapshotStore on a pgx connection pool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres connects to Postgres with pool sizing suited to the
// analysis worker fan-out.
func NewPostgres(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, eris.Wrap(err, "store: parse postgres dsn")
	}
	cfg.MaxConns = 10
	cfg.MinConns = 2
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "store: connect postgres")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "store: ping postgres")
	}
	zap.L().Info("connected to postgres",
		zap.Int32("max_conns", cfg.MaxConns))
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	key          TEXT PRIMARY KEY,
	identity_key TEXT NOT NULL,
	identity     TEXT NOT NULL,
	payload      JSONB NOT NULL,
	partial      BOOLEAN NOT NULL DEFAULT FALSE,
	created_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS latest (
	identity_key TEXT PRIMARY KEY,
	snapshot_key TEXT NOT NULL REFERENCES snapshots(key),
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS overrides (
	snapshot_key TEXT PRIMARY KEY REFERENCES snapshots(key),
	payload      JSONB NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS tier_audit (
	id            TEXT PRIMARY KEY,
	snapshot_key  TEXT NOT NULL REFERENCES snapshots(key),
	previous_tier TEXT NOT NULL,
	new_tier      TEXT NOT NULL,
	reason        TEXT NOT NULL,
	actor         TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_identity_key ON snapshots(identity_key, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tier_audit_snapshot_key ON tier_audit(snapshot_key, created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "store: migrate postgres")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) PutSnapshot(ctx context.Context, snap *model.AnalysisSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "store: marshal snapshot")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO snapshots (key, identity_key, identity, payload, partial, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		snap.Key, snap.Fingerprint, snap.Identity, payload, snap.Partial, snap.CreatedAt.UTC(),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return eris.Wrapf(ErrDuplicateSnapshot, "key %s", snap.Key)
		}
		return eris.Wrap(err, "store: insert snapshot")
	}
	return nil
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, key string) (*model.AnalysisSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT s.payload, o.payload
		 FROM snapshots s LEFT JOIN overrides o ON o.snapshot_key = s.key
		 WHERE s.key = $1`,
		key,
	)
	return scanPgSnapshot(row, key)
}

func (s *PostgresStore) GetLatest(ctx context.Context, identityKey string) (*model.AnalysisSnapshot, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT s.payload, o.payload
		 FROM latest l
		 JOIN snapshots s ON s.key = l.snapshot_key
		 LEFT JOIN overrides o ON o.snapshot_key = s.key
		 WHERE l.identity_key = $1`,
		identityKey,
	)
	return scanPgSnapshot(row, identityKey)
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, identityKey string, f ListFilter) ([]model.SnapshotSummary, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	from := f.From.UTC()
	if f.From.IsZero() {
		from = time.Time{}
	}
	to := f.To.UTC()
	if f.To.IsZero() {
		to = time.Date(9999, 1, 1, 0, 0, 0, 0, time.UTC)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT s.payload, o.payload
		 FROM snapshots s LEFT JOIN overrides o ON o.snapshot_key = s.key
		 WHERE s.identity_key = $1 AND s.created_at >= $2 AND s.created_at <= $3
		 ORDER BY s.created_at DESC LIMIT $4`,
		identityKey, from, to, limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list snapshots")
	}
	defer rows.Close()

	var out []model.SnapshotSummary
	for rows.Next() {
		snap, err := scanPgSnapshot(rows, identityKey)
		if err != nil {
			return nil, err
		}
		out = append(out, snap.Summary())
	}
	return out, eris.Wrap(rows.Err(), "store: list snapshots iterate")
}

func (s *PostgresStore) SwapLatest(ctx context.Context, identityKey, snapshotKey string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO latest (identity_key, snapshot_key, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (identity_key) DO UPDATE SET snapshot_key = EXCLUDED.snapshot_key, updated_at = EXCLUDED.updated_at`,
		identityKey, snapshotKey, time.Now().UTC(),
	)
	return eris.Wrap(err, "store: swap latest")
}

func (s *PostgresStore) SetOverride(ctx context.Context, snapshotKey string, o model.Override) error {
	var exists int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM snapshots WHERE key = $1`, snapshotKey,
	).Scan(&exists)
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "snapshot %s", snapshotKey)
	}
	if err != nil {
		return eris.Wrap(err, "store: check snapshot")
	}

	payload, err := json.Marshal(o)
	if err != nil {
		return eris.Wrap(err, "store: marshal override")
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO overrides (snapshot_key, payload, updated_at) VALUES ($1, $2, $3)
		 ON CONFLICT (snapshot_key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		snapshotKey, payload, time.Now().UTC(),
	)
	return eris.Wrap(err, "store: set override")
}

func (s *PostgresStore) AppendAudit(ctx context.Context, e *model.AuditEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tier_audit (id, snapshot_key, previous_tier, new_tier, reason, actor, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.SnapshotKey, string(e.PreviousEffectiveTier), string(e.NewTier), e.Reason, e.Actor, e.Timestamp.UTC(),
	)
	return eris.Wrap(err, "store: append audit")
}

func (s *PostgresStore) ListAudit(ctx context.Context, snapshotKey string) ([]model.AuditEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, snapshot_key, previous_tier, new_tier, reason, actor, created_at
		 FROM tier_audit WHERE snapshot_key = $1 ORDER BY created_at`,
		snapshotKey,
	)
	if err != nil {
		return nil, eris.Wrap(err, "store: list audit")
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var prev, next string
		if err := rows.Scan(&e.ID, &e.SnapshotKey, &prev, &next, &e.Reason, &e.Actor, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "store: scan audit entry")
		}
		e.PreviousEffectiveTier = model.Tier(prev)
		e.NewTier = model.Tier(next)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "store: list audit iterate")
}

// pgScannable matches pgx.Row and pgx.Rows.
type pgScannable interface {
	Scan(dest ...any) error
}

func scanPgSnapshot(row pgScannable, ref string) (*model.AnalysisSnapshot, error) {
	var payload []byte
	var overridePayload []byte

	err := row.Scan(&payload, &overridePayload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "snapshot %s", ref)
	}
	if err != nil {
		return nil, eris.Wrap(err, "store: scan snapshot")
	}

	var snap model.AnalysisSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal snapshot")
	}
	if len(overridePayload) > 0 {
		var o model.Override
		if err := json.Unmarshal(overridePayload, &o); err != nil {
			return nil, eris.Wrap(err, "store: unmarshal override")
		}
		snap.Tier.ManualOverride = &o
	}
	snap.Persisted = true
	return &snap, nil
}
