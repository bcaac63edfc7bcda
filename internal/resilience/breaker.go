package resilience

import (
	"sort"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ErrSourceDisabled is returned when a call is rejected because the source
// was disabled earlier in the run.
var ErrSourceDisabled = eris.New("source disabled for remainder of run")

// RunBreakers tracks sources that have been disabled for the remainder of
// a single analysis run, typically after rate-limit retries exhausted.
// It is scoped to one run; a fresh analysis starts with every source enabled.
type RunBreakers struct {
	mu       sync.Mutex
	disabled map[string]string // source -> reason
}

// NewRunBreakers returns an empty run-scoped breaker set.
func NewRunBreakers() *RunBreakers {
	return &RunBreakers{disabled: make(map[string]string)}
}

// Allow returns ErrSourceDisabled when the source was disabled earlier.
func (b *RunBreakers) Allow(source string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, off := b.disabled[source]; off {
		return ErrSourceDisabled
	}
	return nil
}

// Disable marks a source off for the remainder of the run. Affected fields
// degrade to unresolved/estimated downstream rather than failing the run.
func (b *RunBreakers) Disable(source, reason string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, off := b.disabled[source]; off {
		return
	}
	b.disabled[source] = reason
	zap.L().Warn("source disabled for remainder of run",
		zap.String("source", source),
		zap.String("reason", reason),
	)
}

// Disabled returns the disabled source names in sorted order.
func (b *RunBreakers) Disabled() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.disabled))
	for s := range b.disabled {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
