package analysis

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/acquisition-engine/internal/model"
	"github.com/sells-group/acquisition-engine/internal/resilience"
)

// BulkStatus reports the enqueue outcome for one bulk request.
type BulkStatus string

const (
	BulkQueued   BulkStatus = "queued"
	BulkRejected BulkStatus = "rejected"
)

// BulkResult is the terminal outcome of one bulk analysis.
type BulkResult struct {
	ID          string     `json:"id"`
	Identity    string     `json:"company_identity"`
	SnapshotKey string     `json:"snapshot_key,omitempty"`
	Tier        model.Tier `json:"tier,omitempty"`
	Error       string     `json:"error,omitempty"`
}

type bulkJob struct {
	id  string
	req Request
}

// Bulk runs analyses through a bounded queue. A full queue rejects new
// work immediately instead of blocking the caller; failures after
// retries land in the dead letter queue for later replay. Workers go
// through the engine, so the engine's analysis semaphore still bounds
// total concurrent computations.
type Bulk struct {
	engine  *Engine
	jobs    chan bulkJob
	results chan BulkResult
	dlq     *resilience.DLQ
	workers int
	wg      sync.WaitGroup
}

// NewBulk builds a bulk runner with the given queue depth and worker count.
func NewBulk(engine *Engine, queueDepth, workers int) *Bulk {
	if queueDepth <= 0 {
		queueDepth = 50
	}
	if workers <= 0 {
		workers = 4
	}
	return &Bulk{
		engine:  engine,
		jobs:    make(chan bulkJob, queueDepth),
		results: make(chan BulkResult, queueDepth),
		dlq:     resilience.NewDLQ(),
		workers: workers,
	}
}

// Start launches the worker pool. Workers stop when the queue is closed
// via Finish or the context is canceled.
func (b *Bulk) Start(ctx context.Context) {
	for i := 0; i < b.workers; i++ {
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-b.jobs:
					if !ok {
						return
					}
					b.run(ctx, job)
				}
			}
		}()
	}
}

// Enqueue submits a request. It never blocks: a full queue returns
// BulkRejected and the caller decides whether to resubmit.
func (b *Bulk) Enqueue(req Request) (BulkStatus, string) {
	if err := validateRequest(req); err != nil {
		zap.L().Warn("bulk: rejected invalid request",
			zap.String("identity", req.Identity),
			zap.Error(err))
		return BulkRejected, ""
	}

	job := bulkJob{id: b.engine.newID(), req: req}
	select {
	case b.jobs <- job:
		return BulkQueued, job.id
	default:
		zap.L().Warn("bulk: queue full, rejecting request",
			zap.String("identity", req.Identity),
			zap.Int("queue_depth", cap(b.jobs)))
		return BulkRejected, ""
	}
}

// Finish closes the queue, waits for in-flight work, and closes the
// results channel. Call after the last Enqueue.
func (b *Bulk) Finish() {
	close(b.jobs)
	b.wg.Wait()
	close(b.results)
}

// Results streams terminal outcomes as workers complete them.
func (b *Bulk) Results() <-chan BulkResult {
	return b.results
}

// DeadLetters returns the dead letter queue of exhausted failures.
func (b *Bulk) DeadLetters() *resilience.DLQ {
	return b.dlq
}

func (b *Bulk) run(ctx context.Context, job bulkJob) {
	snap, err := b.engine.GetOrCompute(ctx, job.req)
	if err != nil && snap == nil {
		b.dlq.Add(resilience.DLQEntry{
			ID:           job.id,
			Identity:     job.req.Identity,
			Error:        err.Error(),
			ErrorType:    resilience.ClassifyError(err),
			MaxRetries:   b.engine.retry.MaxAttempts,
			CreatedAt:    b.engine.now(),
			LastFailedAt: b.engine.now(),
		})
		b.emit(ctx, BulkResult{ID: job.id, Identity: job.req.Identity, Error: err.Error()})
		return
	}

	res := BulkResult{
		ID:          job.id,
		Identity:    job.req.Identity,
		SnapshotKey: snap.Key,
		Tier:        snap.Tier.EffectiveTier(),
	}
	if err != nil {
		// Persistence exhausted: the computed result is still reported.
		res.Error = err.Error()
	}
	b.emit(ctx, res)
}

func (b *Bulk) emit(ctx context.Context, res BulkResult) {
	select {
	case b.results <- res:
	case <-ctx.Done():
	}
}
