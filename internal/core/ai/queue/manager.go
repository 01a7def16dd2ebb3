// Package queue runs completion requests on a fixed pool of workers behind a bounded queue, so a
// burst of uploads cannot open an unbounded number of upstream calls.
package queue

import (
	"context"
	"sync"
	"sync/atomic"

	"recipe-ingest/internal/core/ai/openrouter"
	"recipe-ingest/internal/pkg/common"

	"go.uber.org/zap"
)

// Completer sends one completion request.
type Completer interface {
	Complete(ctx context.Context, req *openrouter.Request) (*openrouter.Response, error)
}

type job struct {
	ctx    context.Context
	req    *openrouter.Request
	result chan result
}

type result struct {
	resp *openrouter.Response
	err  error
}

// Status is a snapshot of the queue.
type Status struct {
	QueueLength    int   `json:"queue_length"`
	ProcessedCount int64 `json:"processed_count"`
	MaxQueueSize   int   `json:"max_queue_size"`
	Workers        int   `json:"workers"`
}

// Manager implements Completer by handing requests to its workers.
type Manager struct {
	client    Completer
	workers   int
	maxSize   int
	queue     chan *job
	processed int64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewManager starts workers goroutines that forward queued requests to client.
func NewManager(client Completer, workers, maxSize int) *Manager {
	if workers <= 0 {
		workers = 1
	}
	if maxSize <= 0 {
		maxSize = workers
	}

	m := &Manager{
		client:  client,
		workers: workers,
		maxSize: maxSize,
		queue:   make(chan *job, maxSize),
	}
	for i := 0; i < workers; i++ {
		m.wg.Add(1)
		go m.work()
	}
	return m
}

// Complete enqueues req and waits for its result. A full or closed queue is reported as
// common.ErrServiceUnavailable without waiting.
func (m *Manager) Complete(ctx context.Context, req *openrouter.Request) (*openrouter.Response, error) {
	j := &job{ctx: ctx, req: req, result: make(chan result, 1)}

	if err := m.enqueue(j); err != nil {
		return nil, err
	}

	select {
	case res := <-j.result:
		if res.err != nil && ctx.Err() != nil {
			return nil, common.Wrap(common.ErrRequestTimeout, res.err)
		}
		return res.resp, res.err
	case <-ctx.Done():
		return nil, common.Wrap(common.ErrRequestTimeout, ctx.Err())
	}
}

func (m *Manager) enqueue(j *job) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return common.Wrapf(common.ErrServiceUnavailable, "queue is closed")
	}

	select {
	case m.queue <- j:
		common.LogDebug("Request enqueued",
			zap.Int("queue_length", len(m.queue)),
			zap.Int("max_queue_size", m.maxSize),
		)
		return nil
	default:
		common.LogWarn("Completion queue is full", zap.Int("max_queue_size", m.maxSize))
		return common.Wrapf(common.ErrServiceUnavailable, "queue is full")
	}
}

func (m *Manager) work() {
	defer m.wg.Done()
	for j := range m.queue {
		// the caller may have given up while the job waited
		if err := j.ctx.Err(); err != nil {
			j.result <- result{err: common.Wrap(common.ErrRequestTimeout, err)}
			continue
		}
		resp, err := m.client.Complete(j.ctx, j.req)
		atomic.AddInt64(&m.processed, 1)
		j.result <- result{resp: resp, err: err}
	}
}

// Status reports queue length and throughput.
func (m *Manager) Status() Status {
	return Status{
		QueueLength:    len(m.queue),
		ProcessedCount: atomic.LoadInt64(&m.processed),
		MaxQueueSize:   m.maxSize,
		Workers:        m.workers,
	}
}

// Close stops accepting requests and waits for queued ones to finish.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	close(m.queue)
	m.mu.Unlock()

	m.wg.Wait()
}
