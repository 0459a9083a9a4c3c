package thumbnail

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmylchreest/tvrec/internal/observability"
)

// Processor runs a single job. *Worker is the production implementation.
type Processor interface {
	Process(ctx context.Context, job Job) error
	AddListener(fn Listener)
}

// Manager queues thumbnail jobs and drains them one at a time in FIFO order.
type Manager struct {
	mu sync.Mutex

	worker Processor
	logger *slog.Logger

	queue   []Job
	running bool

	// Running state
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a manager around worker. Jobs pushed before Start stay
// queued until Start is called.
func NewManager(worker Processor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		worker: worker,
		logger: observability.WithComponent(logger, "thumbnail_queue"),
	}
}

// Start enables processing and drains anything already queued.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ctx != nil {
		return fmt.Errorf("thumbnail manager already started")
	}

	m.ctx, m.cancel = context.WithCancel(ctx)
	m.logger.Info("thumbnail manager started", slog.Int("pending", len(m.queue)))
	m.kickLocked()
	return nil
}

// Stop cancels the running job, if any, and waits for the drain loop to exit.
// Queued jobs are kept and resume on the next Start. The cancelled in-flight
// job is dropped and must be pushed again.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.cancel != nil {
		m.cancel()
	}
	m.mu.Unlock()

	m.wg.Wait()

	m.mu.Lock()
	m.ctx = nil
	m.cancel = nil
	pending := len(m.queue)
	m.mu.Unlock()

	m.logger.Info("thumbnail manager stopped", slog.Int("pending", pending))
}

// Push queues job unless a job for the same recording is already waiting.
// It reports whether the job was added.
func (m *Manager) Push(job Job) bool {
	m.logger.Info("push thumbnail", slog.Int64("recorded_id", job.RecordedID))

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, queued := range m.queue {
		if queued.RecordedID == job.RecordedID {
			m.logger.Debug("thumbnail already queued", slog.Int64("recorded_id", job.RecordedID))
			return false
		}
	}

	m.queue = append(m.queue, job)
	m.kickLocked()
	return true
}

// AddListener registers fn for completion events.
func (m *Manager) AddListener(fn Listener) {
	m.worker.AddListener(fn)
}

// Pending returns the number of queued jobs, excluding one in flight.
func (m *Manager) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// kickLocked starts the drain loop when started, idle and non-empty. It does
// nothing once Stop has cancelled the context. m.mu must be held.
func (m *Manager) kickLocked() {
	if m.running || m.ctx == nil || m.ctx.Err() != nil || len(m.queue) == 0 {
		return
	}
	m.running = true
	m.wg.Add(1)
	go m.drain(m.ctx)
}

func (m *Manager) drain(ctx context.Context) {
	defer m.wg.Done()

	for {
		job, ok := m.next(ctx)
		if !ok {
			return
		}

		if err := m.worker.Process(ctx, job); err != nil {
			m.logger.Error("create thumbnail failed",
				slog.Int64("recorded_id", job.RecordedID),
				slog.String("error", err.Error()))
		}
	}
}

// next pops the head of the queue. When the queue is empty or ctx is done
// it clears the running flag and returns false.
func (m *Manager) next(ctx context.Context) (Job, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.queue) == 0 || ctx.Err() != nil {
		m.running = false
		return Job{}, false
	}

	job := m.queue[0]
	m.queue = m.queue[1:]
	return job, true
}
