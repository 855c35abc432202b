// Package worker provides an asynchronous worker pool that persists completed
// chat turns through a storage.Driver and announces them on an
// eventstream.Publisher.
//
// The pool keeps storage and event I/O off the streaming hot path: the relay
// enqueues a job after the terminal "done" frame and never waits on it.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/papercomputeco/chatgate/pkg/eventstream"
	"github.com/papercomputeco/chatgate/pkg/llm"
	"github.com/papercomputeco/chatgate/pkg/logger"
	"github.com/papercomputeco/chatgate/pkg/storage"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
	defaultJobTimeout        = 10 * time.Second
)

// Job is one completed turn for the pool to persist and publish.
type Job struct {
	Provider   string
	Request    *llm.ChatRequest
	Completion *llm.Completion
	StartedAt  time.Time
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Driver is the storage backend for persisting turns.
	Driver storage.Driver

	// Publisher is the optional event sink for completed turns.
	Publisher eventstream.Publisher

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// JobTimeout bounds storage and publish I/O for a single job.
	JobTimeout time.Duration

	Logger *slog.Logger
}

// Pool processes turn jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	// mu guards closed so a late Enqueue never sends on a closed queue
	mu     sync.RWMutex
	closed bool
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Driver == nil {
		return nil, errors.New("worker pool requires a storage driver")
	}
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}
	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = defaultJobTimeout
	}
	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}
	if c.Logger == nil {
		c.Logger = logger.Nop()
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped.
func (p *Pool) Enqueue(job Job) bool {
	if job.Completion == nil {
		p.logger.Warn("job not queued, missing completion", "provider", job.Provider)
		return false
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.logger.Warn("job not queued, pool closed",
			"provider", job.Provider,
			"turn_id", job.Completion.ID,
		)
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"provider", job.Provider,
			"turn_id", job.Completion.ID,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"provider", job.Provider,
			"turn_id", job.Completion.ID,
		)
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the gateway has stopped accepting
// requests. Jobs enqueued after Close are dropped.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	p.wg.Wait()
}

func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("worker stopped", "worker_id", id)
}

// processJob stores the turn and then publishes it. A publish failure is
// logged; the stored turn is kept.
func (p *Pool) processJob(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.JobTimeout)
	defer cancel()

	turn := NewTurn(job)

	isNew, err := p.config.Driver.Put(ctx, turn)
	if err != nil {
		p.logger.Error("turn storage failed",
			"provider", job.Provider,
			"turn_id", turn.ID,
			"error", err,
		)
		return
	}

	p.logger.Info("turn stored",
		"turn_id", turn.ID,
		"provider", turn.Provider,
		"model", turn.Model,
		"is_new", isNew,
	)

	if !isNew || p.config.Publisher == nil {
		return
	}

	if err := p.config.Publisher.PublishTurn(ctx, eventstream.NewTurnCompletedEvent(turn)); err != nil {
		p.logger.Warn("turn event publish failed",
			"turn_id", turn.ID,
			"error", err,
		)
	}
}

// NewTurn builds the storage record for a job.
func NewTurn(job Job) *storage.Turn {
	now := time.Now().UTC()
	started := job.StartedAt
	if started.IsZero() {
		started = now
	}

	turn := &storage.Turn{
		ID:           job.Completion.ID,
		Provider:     job.Provider,
		Model:        job.Completion.Model,
		Content:      job.Completion.Content,
		FinishReason: job.Completion.FinishReason,
		Usage:        job.Completion.Usage,
		Duration:     now.Sub(started),
		CreatedAt:    started.UTC(),
	}
	if job.Request != nil {
		turn.Messages = job.Request.NonEmptyMessages()
		if turn.Model == "" {
			turn.Model = job.Request.Model
		}
	}
	return turn
}
