// Package worker provides a keyed execution queue: jobs submitted under the
// same key run sequentially in submission order, jobs under different keys
// run concurrently. The processing pipeline uses one lane per user so that
// concurrent uploads by one user can never race on that user's index.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Job is a unit of background work.
type Job func(ctx context.Context)

// ErrStopped is returned by Enqueue after the queue has been stopped.
var ErrStopped = errors.New("keyed queue stopped")

// KeyedQueue serializes jobs per key. Lanes are created lazily on first use
// and live for the queue's lifetime.
type KeyedQueue struct {
	logger *slog.Logger
	buffer int

	mu      sync.Mutex
	lanes   map[string]chan Job
	stopped bool
	senders sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKeyedQueue creates a queue whose per-key lanes buffer up to buffer jobs.
func NewKeyedQueue(logger *slog.Logger, buffer int) *KeyedQueue {
	if logger == nil {
		logger = slog.Default()
	}
	if buffer <= 0 {
		buffer = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &KeyedQueue{
		logger: logger,
		buffer: buffer,
		lanes:  make(map[string]chan Job),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Enqueue submits a job to the key's lane, creating the lane if needed.
// Blocks while the lane's buffer is full. A job accepted before Stop is
// always delivered and run.
func (q *KeyedQueue) Enqueue(key string, job Job) error {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return ErrStopped
	}
	lane, ok := q.lanes[key]
	if !ok {
		lane = make(chan Job, q.buffer)
		q.lanes[key] = lane
		q.wg.Add(1)
		go q.run(key, lane)
	}
	// Registered while the lock is held so Stop cannot close the lane
	// between the stopped check and the send.
	q.senders.Add(1)
	q.mu.Unlock()

	lane <- job
	q.senders.Done()
	return nil
}

// Stop prevents further submissions, lets queued jobs drain, and waits for
// all lanes to finish.
func (q *KeyedQueue) Stop() {
	q.mu.Lock()
	if q.stopped {
		q.mu.Unlock()
		return
	}
	q.stopped = true
	q.mu.Unlock()

	// Pending sends complete before the lanes close; the lane workers are
	// still consuming at this point.
	q.senders.Wait()

	q.mu.Lock()
	for _, lane := range q.lanes {
		close(lane)
	}
	q.mu.Unlock()

	q.wg.Wait()
	q.cancel()
}

func (q *KeyedQueue) run(key string, lane chan Job) {
	defer q.wg.Done()
	logger := q.logger.With("lane", key)
	logger.Debug("worker lane started")
	for job := range lane {
		func() {
			defer func() {
				if r := recover(); r != nil {
					logger.Error("job panicked", "panic", r)
				}
			}()
			job(q.ctx)
		}()
	}
	logger.Debug("worker lane drained")
}
