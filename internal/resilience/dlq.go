package resilience

import (
	"sync"
	"time"
)

// DLQEntry records a bulk-analysis request that failed after retries and
// can be replayed later.
type DLQEntry struct {
	ID           string    `json:"id"`
	Identity     string    `json:"company_identity"`
	Error        string    `json:"error"`
	ErrorType    string    `json:"error_type"` // "transient" or "permanent"
	RetryCount   int       `json:"retry_count"`
	MaxRetries   int       `json:"max_retries"`
	CreatedAt    time.Time `json:"created_at"`
	LastFailedAt time.Time `json:"last_failed_at"`
}

// CanRetry reports whether the entry has retry budget left.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// ClassifyError categorizes an error as "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}

// DLQ is an in-memory dead letter queue for failed bulk analyses.
type DLQ struct {
	mu      sync.Mutex
	entries []DLQEntry
}

// NewDLQ returns an empty dead letter queue.
func NewDLQ() *DLQ {
	return &DLQ{}
}

// Add appends an entry.
func (q *DLQ) Add(e DLQEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.entries = append(q.entries, e)
}

// Entries returns a copy of all entries, optionally filtered by error type.
func (q *DLQ) Entries(errorType string) []DLQEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]DLQEntry, 0, len(q.entries))
	for _, e := range q.entries {
		if errorType != "" && e.ErrorType != errorType {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Len returns the number of entries.
func (q *DLQ) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}
