// Package store persists analysis snapshots. Snapshots are immutable:
// writes never overwrite, corrections are new snapshots, and a separate
// latest pointer per company is the only mutable row. Manual tier
// overrides and their audit trail live in their own tables keyed by
// snapshot key.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/acquisition-engine/internal/model"
)

// Sentinel errors shared by both backends.
var (
	ErrNotFound          = eris.New("store: not found")
	ErrDuplicateSnapshot = eris.New("store: snapshot key already exists")
)

// ListFilter narrows snapshot history listings.
type ListFilter struct {
	Limit int
	From  time.Time
	To    time.Time
}

// SnapshotStore is the persistence interface for analysis snapshots.
type SnapshotStore interface {
	// PutSnapshot writes a new snapshot. Returns ErrDuplicateSnapshot if
	// the key exists; snapshots are never overwritten.
	PutSnapshot(ctx context.Context, s *model.AnalysisSnapshot) error
	GetSnapshot(ctx context.Context, key string) (*model.AnalysisSnapshot, error)

	// GetLatest resolves the latest pointer for a company fingerprint.
	GetLatest(ctx context.Context, identityKey string) (*model.AnalysisSnapshot, error)
	ListSnapshots(ctx context.Context, identityKey string, f ListFilter) ([]model.SnapshotSummary, error)

	// SwapLatest atomically repoints the latest pointer. Callers must only
	// swap after PutSnapshot succeeded.
	SwapLatest(ctx context.Context, identityKey, snapshotKey string) error

	// SetOverride stores the manual override beside (never inside) the
	// immutable snapshot row.
	SetOverride(ctx context.Context, snapshotKey string, o model.Override) error
	AppendAudit(ctx context.Context, e *model.AuditEntry) error
	ListAudit(ctx context.Context, snapshotKey string) ([]model.AuditEntry, error)

	Migrate(ctx context.Context) error
	Close() error
}
