package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/acquisition-engine/internal/model"
)

// SQLiteStore implements SnapshotStore using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS snapshots (
	key          TEXT PRIMARY KEY,
	identity_key TEXT NOT NULL,
	identity     TEXT NOT NULL,
	payload      TEXT NOT NULL,
	partial      INTEGER NOT NULL DEFAULT 0,
	created_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS latest (
	identity_key TEXT PRIMARY KEY,
	snapshot_key TEXT NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS overrides (
	snapshot_key TEXT PRIMARY KEY,
	payload      TEXT NOT NULL,
	updated_at   DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS tier_audit (
	id             TEXT PRIMARY KEY,
	snapshot_key   TEXT NOT NULL,
	previous_tier  TEXT NOT NULL,
	new_tier       TEXT NOT NULL,
	reason         TEXT NOT NULL,
	actor          TEXT NOT NULL,
	created_at     DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_identity_key ON snapshots(identity_key, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_tier_audit_snapshot_key ON tier_audit(snapshot_key, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) PutSnapshot(ctx context.Context, snap *model.AnalysisSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal snapshot")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO snapshots (key, identity_key, identity, payload, partial, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		snap.Key, snap.Fingerprint, snap.Identity, string(payload), snap.Partial, snap.CreatedAt.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return eris.Wrapf(ErrDuplicateSnapshot, "key %s", snap.Key)
		}
		return eris.Wrap(err, "sqlite: insert snapshot")
	}
	return nil
}

func (s *SQLiteStore) GetSnapshot(ctx context.Context, key string) (*model.AnalysisSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT s.payload, o.payload
		 FROM snapshots s LEFT JOIN overrides o ON o.snapshot_key = s.key
		 WHERE s.key = ?`,
		key,
	)
	return scanSnapshot(row, key)
}

func (s *SQLiteStore) GetLatest(ctx context.Context, identityKey string) (*model.AnalysisSnapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT s.payload, o.payload
		 FROM latest l
		 JOIN snapshots s ON s.key = l.snapshot_key
		 LEFT JOIN overrides o ON o.snapshot_key = s.key
		 WHERE l.identity_key = ?`,
		identityKey,
	)
	return scanSnapshot(row, identityKey)
}

func (s *SQLiteStore) ListSnapshots(ctx context.Context, identityKey string, f ListFilter) ([]model.SnapshotSummary, error) {
	query := `SELECT s.payload, o.payload
	          FROM snapshots s LEFT JOIN overrides o ON o.snapshot_key = s.key
	          WHERE s.identity_key = ?`
	args := []any{identityKey}

	if !f.From.IsZero() {
		query += ` AND s.created_at >= ?`
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		query += ` AND s.created_at <= ?`
		args = append(args, f.To.UTC())
	}
	query += ` ORDER BY s.created_at DESC LIMIT ?`
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close()

	var out []model.SnapshotSummary
	for rows.Next() {
		snap, err := scanSnapshot(rows, identityKey)
		if err != nil {
			return nil, err
		}
		out = append(out, snap.Summary())
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list snapshots iterate")
}

func (s *SQLiteStore) SwapLatest(ctx context.Context, identityKey, snapshotKey string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO latest (identity_key, snapshot_key, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(identity_key) DO UPDATE SET snapshot_key = excluded.snapshot_key, updated_at = excluded.updated_at`,
		identityKey, snapshotKey, time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: swap latest")
}

func (s *SQLiteStore) SetOverride(ctx context.Context, snapshotKey string, o model.Override) error {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM snapshots WHERE key = ?`, snapshotKey,
	).Scan(&exists)
	if err == sql.ErrNoRows {
		return eris.Wrapf(ErrNotFound, "snapshot %s", snapshotKey)
	}
	if err != nil {
		return eris.Wrap(err, "sqlite: check snapshot")
	}

	payload, err := json.Marshal(o)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal override")
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO overrides (snapshot_key, payload, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(snapshot_key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		snapshotKey, string(payload), time.Now().UTC(),
	)
	return eris.Wrap(err, "sqlite: set override")
}

func (s *SQLiteStore) AppendAudit(ctx context.Context, e *model.AuditEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tier_audit (id, snapshot_key, previous_tier, new_tier, reason, actor, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SnapshotKey, string(e.PreviousEffectiveTier), string(e.NewTier), e.Reason, e.Actor, e.Timestamp.UTC(),
	)
	return eris.Wrap(err, "sqlite: append audit")
}

func (s *SQLiteStore) ListAudit(ctx context.Context, snapshotKey string) ([]model.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, snapshot_key, previous_tier, new_tier, reason, actor, created_at
		 FROM tier_audit WHERE snapshot_key = ? ORDER BY created_at`,
		snapshotKey,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list audit")
	}
	defer rows.Close()

	var out []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var prev, next string
		if err := rows.Scan(&e.ID, &e.SnapshotKey, &prev, &next, &e.Reason, &e.Actor, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan audit entry")
		}
		e.PreviousEffectiveTier = model.Tier(prev)
		e.NewTier = model.Tier(next)
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list audit iterate")
}

// scannable matches sql.Row and sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

// scanSnapshot unmarshals the snapshot payload and attaches any override
// stored beside it. The payload's automated tier is untouched.
func scanSnapshot(row scannable, ref string) (*model.AnalysisSnapshot, error) {
	var payload string
	var overridePayload sql.NullString

	err := row.Scan(&payload, &overridePayload)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "snapshot %s", ref)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan snapshot")
	}

	var snap model.AnalysisSnapshot
	if err := json.Unmarshal([]byte(payload), &snap); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal snapshot")
	}
	if overridePayload.Valid {
		var o model.Override
		if err := json.Unmarshal([]byte(overridePayload.String), &o); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal override")
		}
		snap.Tier.ManualOverride = &o
	}
	snap.Persisted = true
	return &snap, nil
}
