package analysis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/acquisition-engine/internal/model"
)

func TestBulkProcessesQueuedRequests(t *testing.T) {
	h := newHarness(t)
	b := NewBulk(h.engine, 10, 3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b.Start(ctx)

	const n = 5
	for i := 0; i < n; i++ {
		status, id := b.Enqueue(Request{
			Identity:   fmt.Sprintf("Acme Fitness %d Inc.", i),
			WebsiteURL: fmt.Sprintf("https://acme%d.example.com", i),
		})
		require.Equal(t, BulkQueued, status)
		require.NotEmpty(t, id)
	}

	done := make(chan []BulkResult)
	go func() {
		var out []BulkResult
		for res := range b.Results() {
			out = append(out, res)
		}
		done <- out
	}()
	b.Finish()
	results := <-done

	require.Len(t, results, n)
	for _, res := range results {
		assert.Empty(t, res.Error)
		assert.NotEmpty(t, res.SnapshotKey)
		assert.Equal(t, model.TierHigh, res.Tier)
	}
	assert.Equal(t, 0, b.DeadLetters().Len())
}

func TestBulkRejectsWhenQueueFull(t *testing.T) {
	h := newHarness(t)
	b := NewBulk(h.engine, 2, 1)
	// Workers not started: the queue fills and stays full.

	status1, _ := b.Enqueue(acmeRequest())
	status2, _ := b.Enqueue(Request{Identity: "Apex Gym Software", WebsiteURL: "https://apex.example.com"})
	status3, _ := b.Enqueue(Request{Identity: "Peak Gym Software", WebsiteURL: "https://peak.example.com"})

	assert.Equal(t, BulkQueued, status1)
	assert.Equal(t, BulkQueued, status2)
	assert.Equal(t, BulkRejected, status3)
}

func TestBulkRejectsInvalidRequest(t *testing.T) {
	h := newHarness(t)
	b := NewBulk(h.engine, 10, 1)

	status, id := b.Enqueue(Request{Identity: ""})
	assert.Equal(t, BulkRejected, status)
	assert.Empty(t, id)
}

func TestBulkFailureLandsInDeadLetterQueue(t *testing.T) {
	h := newHarness(t)
	h.collector.failFor = "Broken Co"
	b := NewBulk(h.engine, 10, 2)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	b.Start(ctx)

	status, _ := b.Enqueue(Request{Identity: "Broken Co"})
	require.Equal(t, BulkQueued, status)
	status, _ = b.Enqueue(acmeRequest())
	require.Equal(t, BulkQueued, status)

	done := make(chan []BulkResult)
	go func() {
		var out []BulkResult
		for res := range b.Results() {
			out = append(out, res)
		}
		done <- out
	}()
	b.Finish()
	results := <-done

	require.Len(t, results, 2)
	var failed, succeeded int
	for _, res := range results {
		if res.Error != "" {
			failed++
			assert.Equal(t, "Broken Co", res.Identity)
		} else {
			succeeded++
		}
	}
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, succeeded)

	entries := b.DeadLetters().Entries("")
	require.Len(t, entries, 1)
	assert.Equal(t, "Broken Co", entries[0].Identity)
	assert.Equal(t, "permanent", entries[0].ErrorType)
}
