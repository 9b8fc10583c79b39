package api

import (
	"context"
	"sync/atomic"
)

// slots is a counting semaphore with usage counters.
type slots struct {
	sem    chan struct{}
	queued int64
	active int64
	total  int64
}

func newSlots(n int) *slots {
	return &slots{sem: make(chan struct{}, n)}
}

func (s *slots) acquire(ctx context.Context) error {
	atomic.AddInt64(&s.queued, 1)
	defer atomic.AddInt64(&s.queued, -1)

	select {
	case s.sem <- struct{}{}:
		atomic.AddInt64(&s.active, 1)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *slots) tryAcquire() bool {
	select {
	case s.sem <- struct{}{}:
		atomic.AddInt64(&s.active, 1)
		return true
	default:
		return false
	}
}

func (s *slots) release() {
	atomic.AddInt64(&s.active, -1)
	atomic.AddInt64(&s.total, 1)
	<-s.sem
}

// WorkerPool bounds concurrent work: short JSON requests (moves, evaluate)
// and long-lived play sessions are limited separately.
type WorkerPool struct {
	requests *slots
	sessions *slots
}

// PoolConfig configures the worker pool.
type PoolConfig struct {
	MaxRequests int // Max concurrent JSON requests (default: 100)
	MaxSessions int // Max concurrent play sessions (default: 16)
}

// DefaultPoolConfig returns a PoolConfig with sensible defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxRequests: 100,
		MaxSessions: 16,
	}
}

// NewWorkerPool creates a new worker pool with the given configuration.
func NewWorkerPool(config PoolConfig) *WorkerPool {
	def := DefaultPoolConfig()
	if config.MaxRequests <= 0 {
		config.MaxRequests = def.MaxRequests
	}
	if config.MaxSessions <= 0 {
		config.MaxSessions = def.MaxSessions
	}

	return &WorkerPool{
		requests: newSlots(config.MaxRequests),
		sessions: newSlots(config.MaxSessions),
	}
}

// AcquireRequest waits for a request slot.
// Returns an error if the context is cancelled while waiting.
func (p *WorkerPool) AcquireRequest(ctx context.Context) error {
	return p.requests.acquire(ctx)
}

// ReleaseRequest releases a request slot.
func (p *WorkerPool) ReleaseRequest() {
	p.requests.release()
}

// TryAcquireSession takes a session slot without blocking.
// Returns false if every session slot is in use.
func (p *WorkerPool) TryAcquireSession() bool {
	return p.sessions.tryAcquire()
}

// ReleaseSession releases a session slot.
func (p *WorkerPool) ReleaseSession() {
	p.sessions.release()
}

// PoolStats is a snapshot of pool usage.
type PoolStats struct {
	ActiveRequests int64 `json:"active_requests"`
	QueuedRequests int64 `json:"queued_requests"`
	TotalRequests  int64 `json:"total_requests"`
	ActiveSessions int64 `json:"active_sessions"`
	TotalSessions  int64 `json:"total_sessions"`
	MaxRequests    int   `json:"max_requests"`
	MaxSessions    int   `json:"max_sessions"`
}

// Stats returns current pool statistics.
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		ActiveRequests: atomic.LoadInt64(&p.requests.active),
		QueuedRequests: atomic.LoadInt64(&p.requests.queued),
		TotalRequests:  atomic.LoadInt64(&p.requests.total),
		ActiveSessions: atomic.LoadInt64(&p.sessions.active),
		TotalSessions:  atomic.LoadInt64(&p.sessions.total),
		MaxRequests:    cap(p.requests.sem),
		MaxSessions:    cap(p.sessions.sem),
	}
}
