package jobs

import (
	"context"
	"sync"
	"time"

	"queuepanel/pkg/logger"
)

// Job represents a periodic background task.
type Job interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// funcJob adapts a function to Job
type funcJob struct {
	name     string
	interval time.Duration
	run      func(ctx context.Context) error
}

// NewJob creates a job that calls run every interval
func NewJob(name string, interval time.Duration, run func(ctx context.Context) error) Job {
	return &funcJob{name: name, interval: interval, run: run}
}

func (j *funcJob) Name() string                  { return j.name }
func (j *funcJob) Interval() time.Duration       { return j.interval }
func (j *funcJob) Run(ctx context.Context) error { return j.run(ctx) }

// Manager orchestrates the lifecycle of background jobs.
type Manager struct {
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    []Job
	started bool

	// skipFirst delays the first run by one interval instead of running immediately
	skipFirst bool

	mu sync.Mutex
	wg sync.WaitGroup
}

// NewManager creates a job manager bound to the provided context.
func NewManager(parent context.Context) *Manager {
	ctx, cancel := context.WithCancel(parent)
	return &Manager{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make([]Job, 0),
	}
}

// DelayFirstRun makes every job wait one interval before its first run. Must be
// called before Start.
func (m *Manager) DelayFirstRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skipFirst = true
}

// Register adds a job to the manager.
func (m *Manager) Register(job Job) {
	if job == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, job)
}

// Jobs returns the registered job names
func (m *Manager) Jobs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.jobs))
	for _, j := range m.jobs {
		names = append(names, j.Name())
	}
	return names
}

// Start launches all registered jobs.
func (m *Manager) Start() {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return
	}
	m.started = true
	jobs := append([]Job(nil), m.jobs...)
	skipFirst := m.skipFirst
	m.mu.Unlock()

	for _, job := range jobs {
		m.wg.Add(1)
		go m.runJob(job, skipFirst)
	}
}

// Stop signals all jobs to stop.
func (m *Manager) Stop() {
	m.cancel()
}

// Wait blocks until all jobs exit.
func (m *Manager) Wait() {
	m.wg.Wait()
}

func (m *Manager) runJob(job Job, skipFirst bool) {
	defer m.wg.Done()

	interval := job.Interval()
	if interval <= 0 {
		interval = time.Minute
	}

	if !skipFirst {
		m.executeJob(job)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.executeJob(job)
		}
	}
}

func (m *Manager) executeJob(job Job) {
	if m.ctx.Err() != nil {
		return
	}
	if err := job.Run(m.ctx); err != nil {
		logger.WarnCtx(m.ctx, "background job %s failed: %v", job.Name(), err)
	}
}
