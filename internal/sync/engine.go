package sync

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/memengine/internal/errs"
	"github.com/fyrsmithlabs/memengine/internal/logging"
	"github.com/fyrsmithlabs/memengine/internal/store"
)

// Config configures the Engine.
type Config struct {
	Queue              QueueConfig
	RetryBaseMs        int
	RetryCapMs         int
	PauseOnConsolidate bool
}

// ApplyDefaults fills unset fields per spec.md §4.6.
func (c *Config) ApplyDefaults() {
	c.Queue.ApplyDefaults()
	if c.RetryBaseMs == 0 {
		c.RetryBaseMs = 500
	}
	if c.RetryCapMs == 0 {
		c.RetryCapMs = 30_000
	}
}

// Status is the result of sync_status().
type Status struct {
	State         State
	QueueDepth    int
	QueueCapacity int
	LastSuccessAt time.Time
	LastError     string
	RetriedOps    int64
	DroppedOps    int64
}

// Engine is C6: it drains a coalescing queue of SyncOp, mirroring each to
// remote with exponential backoff+jitter retry, and exposes the
// INITIAL_RECONCILE -> RUNNING <-> PAUSED -> STOPPED state machine and
// sync_status() observable. Adapted from the teacher's SyncManager
// (background goroutine + bounded channel + circuit breaker), generalized
// from a fixed local/remote Store pair to the narrower RemoteMirror
// contract and an explicit named state machine instead of an implicit
// health-triggered loop.
type Engine struct {
	mu    sync.Mutex
	state State

	queue   *queue
	remote  store.RemoteMirror
	breaker *circuitBreaker
	cfg     Config
	logger  *logging.Logger

	consolidationActive bool
	lastSuccessAt        time.Time
	lastError             string
	droppedPermanent      int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine constructs an Engine in state INITIAL_RECONCILE.
func NewEngine(remote store.RemoteMirror, cfg Config, logger *logging.Logger) *Engine {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{
		state:   StateInitialReconcile,
		queue:   newQueue(cfg.Queue),
		remote:  remote,
		breaker: newCircuitBreaker(5, 5*time.Minute),
		cfg:     cfg,
		logger:  logger,
	}
}

// Start performs initial reconciliation (a cheap ping; a cold remote is
// tolerated, not fatal, since C4 may be transiently unavailable) and
// transitions to RUNNING, starting the background drain loop.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if !e.state.canTransitionTo(StateRunning) {
		e.mu.Unlock()
		return fmt.Errorf("sync: cannot start from state %s", e.state)
	}
	e.mu.Unlock()

	if e.remote != nil {
		if err := e.remote.Ping(ctx); err != nil {
			e.logger.Warn(ctx, "sync: initial reconcile ping failed, starting anyway", zap.Error(err))
		}
	}

	e.mu.Lock()
	e.state = StateRunning
	e.mu.Unlock()

	runCtx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.runLoop(runCtx)
	}()
	return nil
}

// Stop transitions to STOPPED from any state and waits for the drain loop
// to exit.
func (e *Engine) Stop() error {
	e.mu.Lock()
	e.state = StateStopped
	cancel := e.cancel
	e.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	e.wg.Wait()
	return nil
}

// Pause transitions RUNNING -> PAUSED. consolidationActive, when true,
// causes Bypassed() to report true so writers skip the queue entirely
// (local-only writes) while a consolidation pass owns the mirror.
func (e *Engine) Pause(consolidationActive bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StateRunning {
		return fmt.Errorf("%w: sync engine is not running", errs.ErrInvalidArgument)
	}
	e.state = StatePaused
	e.consolidationActive = consolidationActive
	return nil
}

// Resume transitions PAUSED -> RUNNING.
func (e *Engine) Resume() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state != StatePaused {
		return fmt.Errorf("%w: sync engine is not paused", errs.ErrInvalidArgument)
	}
	e.state = StateRunning
	e.consolidationActive = false
	return nil
}

// Enqueue implements store.SyncQueue.
func (e *Engine) Enqueue(ctx context.Context, op store.SyncOp) error {
	e.mu.Lock()
	stopped := e.state == StateStopped
	e.mu.Unlock()
	if stopped {
		return fmt.Errorf("%w: sync engine is stopped", errs.ErrPermanent)
	}
	return e.queue.Enqueue(ctx, op)
}

// Bypassed implements store.SyncQueue: true only while paused for an
// active consolidation pass, per spec.md §4.8's local-only bypass.
func (e *Engine) Bypassed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == StatePaused && e.consolidationActive
}

// SyncStatus returns the current observable state, per spec.md §4.6.
func (e *Engine) SyncStatus() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	dropped, retried := e.queue.Stats()
	return Status{
		State:         e.state,
		QueueDepth:    e.queue.Depth(),
		QueueCapacity: e.cfg.Queue.Capacity,
		LastSuccessAt: e.lastSuccessAt,
		LastError:     e.lastError,
		RetriedOps:    retried,
		DroppedOps:    dropped + e.droppedPermanent,
	}
}

func (e *Engine) runLoop(ctx context.Context) {
	for {
		e.mu.Lock()
		state := e.state
		e.mu.Unlock()

		if state == StateStopped {
			return
		}
		if state == StatePaused {
			select {
			case <-ctx.Done():
				return
			case <-time.After(50 * time.Millisecond):
			}
			continue
		}

		op, ok := e.queue.Dequeue(ctx)
		if !ok {
			if ctx.Err() != nil {
				return
			}
			continue
		}
		e.process(ctx, op)
	}
}

func (e *Engine) process(ctx context.Context, op store.SyncOp) {
	if !e.breaker.Allow() {
		op.Attempt++
		e.requeueWithDelay(ctx, op, e.backoffDelay(op.Attempt))
		return
	}

	err := e.apply(ctx, op)
	if err == nil {
		e.breaker.RecordSuccess()
		e.mu.Lock()
		e.lastSuccessAt = time.Now().UTC()
		e.lastError = ""
		e.mu.Unlock()
		return
	}

	e.breaker.RecordFailure()
	e.mu.Lock()
	e.lastError = err.Error()
	e.mu.Unlock()

	if errs.IsPermanent(err) {
		e.mu.Lock()
		e.droppedPermanent++
		e.mu.Unlock()
		e.logger.Warn(ctx, "sync: dropping op after permanent error", zap.String("hash", op.Hash), zap.Error(err))
		return
	}

	e.queue.recordRetry()
	op.Attempt++
	e.requeueWithDelay(ctx, op, e.backoffDelay(op.Attempt))
}

// apply performs the remote mirror call for op.
func (e *Engine) apply(ctx context.Context, op store.SyncOp) error {
	if e.remote == nil {
		return nil
	}
	switch op.Kind {
	case store.SyncOpDelete:
		return e.remote.Delete(ctx, op.Hash)
	default: // store, update: both map to an upsert of the merged record
		return e.remote.Put(ctx, op.Memory)
	}
}

// requeueWithDelay waits delay (bounded by ctx) then re-enqueues op. Used
// for transient failures. During the wait op is not in the queue, so a
// write for the same hash enqueued meanwhile becomes its own queue item,
// and the requeued op is then coalesced into that item.
func (e *Engine) requeueWithDelay(ctx context.Context, op store.SyncOp, delay time.Duration) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(delay):
	}
	if err := e.queue.Enqueue(ctx, op); err != nil {
		e.logger.Warn(ctx, "sync: failed to requeue after retry delay", zap.String("hash", op.Hash), zap.Error(err))
	}
}

// backoffDelay computes base*2^(attempt-1), capped, with +/-25% jitter. The
// exponent is clamped well below where 1<<exponent would overflow, since a
// perpetually-failing op keeps incrementing Attempt for the life of the
// process.
func (e *Engine) backoffDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	exponent := attempt - 1
	if exponent > 32 {
		exponent = 32
	}
	base := float64(e.cfg.RetryBaseMs)
	delay := base * float64(int64(1)<<uint(exponent))
	capMs := float64(e.cfg.RetryCapMs)
	if delay > capMs {
		delay = capMs
	}
	jitter := delay * 0.25 * (2*rand.Float64() - 1)
	final := delay + jitter
	if final < 0 {
		final = 0
	}
	return time.Duration(final) * time.Millisecond
}

var _ store.SyncQueue = (*Engine)(nil)
