package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/acquisition-engine/internal/model"
)

func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return &PostgresStore{pool: mock}, mock
}

func TestPostgresPutSnapshot(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	snap := sampleSnapshot("snap-1", time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	mock.ExpectExec(`INSERT INTO snapshots`).
		WithArgs("snap-1", "fp-acme", "Acme Fitness Software", pgxmock.AnyArg(), false, snap.CreatedAt.UTC()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.PutSnapshot(context.Background(), snap))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresPutSnapshotDuplicate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	snap := sampleSnapshot("snap-1", time.Now().UTC())
	mock.ExpectExec(`INSERT INTO snapshots`).
		WithArgs("snap-1", "fp-acme", "Acme Fitness Software", pgxmock.AnyArg(), false, snap.CreatedAt.UTC()).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.PutSnapshot(context.Background(), snap)
	assert.ErrorIs(t, err, ErrDuplicateSnapshot)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSnapshotMergesOverride(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	snap := sampleSnapshot("snap-1", time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	payload, err := json.Marshal(snap)
	require.NoError(t, err)
	override, err := json.Marshal(model.Override{
		Tier:   model.TierVIP,
		Reason: "strategic acquirer interest",
		Actor:  "analyst@example.com",
	})
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT s\.payload, o\.payload`).
		WithArgs("snap-1").
		WillReturnRows(pgxmock.NewRows([]string{"payload", "override"}).AddRow(payload, override))

	got, err := s.GetSnapshot(context.Background(), "snap-1")
	require.NoError(t, err)
	assert.Equal(t, model.TierVIP, got.Tier.EffectiveTier())
	assert.Equal(t, model.TierHigh, got.Tier.AutomatedTier)
	assert.True(t, got.Persisted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetSnapshotNotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT s\.payload, o\.payload`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSnapshot(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetLatest(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	snap := sampleSnapshot("snap-2", time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC))
	payload, err := json.Marshal(snap)
	require.NoError(t, err)

	mock.ExpectQuery(`FROM latest l`).
		WithArgs("fp-acme").
		WillReturnRows(pgxmock.NewRows([]string{"payload", "override"}).AddRow(payload, []byte(nil)))

	got, err := s.GetLatest(context.Background(), "fp-acme")
	require.NoError(t, err)
	assert.Equal(t, "snap-2", got.Key)
	assert.Nil(t, got.Tier.ManualOverride)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSwapLatest(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO latest`).
		WithArgs("fp-acme", "snap-2", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SwapLatest(context.Background(), "fp-acme", "snap-2"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSetOverride(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT 1 FROM snapshots`).
		WithArgs("snap-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(1))
	mock.ExpectExec(`INSERT INTO overrides`).
		WithArgs("snap-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.SetOverride(context.Background(), "snap-1", model.Override{
		Tier:   model.TierVIP,
		Reason: "strategic acquirer interest",
		Actor:  "analyst@example.com",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresSetOverrideUnknownSnapshot(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT 1 FROM snapshots`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	err := s.SetOverride(context.Background(), "missing", model.Override{Tier: model.TierVIP})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresAppendAudit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	entry := &model.AuditEntry{
		ID:                    "audit-1",
		SnapshotKey:           "snap-1",
		PreviousEffectiveTier: model.TierHigh,
		NewTier:               model.TierVIP,
		Reason:                "strategic interest",
		Actor:                 "analyst@example.com",
		Timestamp:             time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC),
	}
	mock.ExpectExec(`INSERT INTO tier_audit`).
		WithArgs("audit-1", "snap-1", "HIGH", "VIP", "strategic interest", "analyst@example.com", entry.Timestamp).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.AppendAudit(context.Background(), entry))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListAudit(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	ts := time.Date(2026, 6, 3, 9, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM tier_audit`).
		WithArgs("snap-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "snapshot_key", "previous_tier", "new_tier", "reason", "actor", "created_at"}).
			AddRow("audit-1", "snap-1", "HIGH", "VIP", "strategic interest", "analyst@example.com", ts))

	got, err := s.ListAudit(context.Background(), "snap-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.TierVIP, got[0].NewTier)
	assert.Equal(t, model.TierHigh, got[0].PreviousEffectiveTier)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresListSnapshots(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	newer := sampleSnapshot("snap-2", time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC))
	older := sampleSnapshot("snap-1", time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))
	newerPayload, err := json.Marshal(newer)
	require.NoError(t, err)
	olderPayload, err := json.Marshal(older)
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT s\.payload, o\.payload`).
		WithArgs("fp-acme", pgxmock.AnyArg(), pgxmock.AnyArg(), 100).
		WillReturnRows(pgxmock.NewRows([]string{"payload", "override"}).
			AddRow(newerPayload, []byte(nil)).
			AddRow(olderPayload, []byte(nil)))

	got, err := s.ListSnapshots(context.Background(), "fp-acme", ListFilter{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "snap-2", got[0].Key)
	assert.Equal(t, "snap-1", got[1].Key)
	assert.NoError(t, mock.ExpectationsWereMet())
}
