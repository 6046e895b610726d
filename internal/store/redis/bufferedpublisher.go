package redis

import (
	"context"
	"log"
	"sync"

	"github.com/overcomerlin/hybrid-backtest/internal/model"
)

// BufferedPublisher wraps a Publisher with a circuit breaker. Run records
// arriving while the circuit is open are buffered locally and flushed once
// the circuit closes, so completed runs are not lost during a Redis outage.
type BufferedPublisher struct {
	pub *Publisher
	cb  *CircuitBreaker
	ctx context.Context

	mu      sync.Mutex
	pending []model.RunRecord
	maxBuf  int

	OnBuffer func()          // called when a record is buffered (for metrics)
	OnFlush  func(count int) // called after flushing buffered records
}

// NewBufferedPublisher creates a BufferedPublisher wrapping the given Publisher.
func NewBufferedPublisher(ctx context.Context, pub *Publisher, cb *CircuitBreaker, maxBufferSize int) *BufferedPublisher {
	if maxBufferSize <= 0 {
		maxBufferSize = 1000
	}
	bp := &BufferedPublisher{
		pub:     pub,
		cb:      cb,
		ctx:     ctx,
		pending: make([]model.RunRecord, 0, 16),
		maxBuf:  maxBufferSize,
	}

	prev := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		if to == StateClosed {
			go bp.flush()
		}
	}

	return bp
}

// PublishRun publishes a run record through the circuit breaker.
// If the circuit is open, the record is buffered locally.
func (bp *BufferedPublisher) PublishRun(rec model.RunRecord) error {
	err := bp.cb.Execute(func() error {
		return bp.pub.PublishRun(bp.ctx, rec)
	})
	if err == ErrCircuitOpen {
		bp.buffer(rec)
		return nil // buffered, not lost
	}
	return err
}

func (bp *BufferedPublisher) buffer(rec model.RunRecord) {
	bp.mu.Lock()
	defer bp.mu.Unlock()

	if len(bp.pending) >= bp.maxBuf {
		// Buffer full, drop oldest
		bp.pending = bp.pending[1:]
	}
	bp.pending = append(bp.pending, rec)

	if bp.OnBuffer != nil {
		bp.OnBuffer()
	}
}

// flush replays all buffered run records through the underlying publisher.
func (bp *BufferedPublisher) flush() {
	bp.mu.Lock()
	if len(bp.pending) == 0 {
		bp.mu.Unlock()
		return
	}
	toFlush := bp.pending
	bp.pending = make([]model.RunRecord, 0, 16)
	bp.mu.Unlock()

	flushed := 0
	for _, rec := range toFlush {
		if err := bp.pub.PublishRun(bp.ctx, rec); err != nil {
			log.Printf("[buffered-publisher] replay error for %s: %v", rec.RunID, err)
			continue
		}
		flushed++
	}

	log.Printf("[buffered-publisher] flushed %d buffered run records", flushed)
	if bp.OnFlush != nil {
		bp.OnFlush(flushed)
	}
}

// PendingCount returns the number of buffered run records waiting to flush.
func (bp *BufferedPublisher) PendingCount() int {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return len(bp.pending)
}
