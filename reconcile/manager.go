package reconcile

import (
	"context"
	"sync"

	"repost-bot/observability"
)

// Manager owns the per-server loops. A server gets at most one loop per process.
type Manager struct {
	sched *Scheduler

	mu    sync.Mutex
	loops map[uint64]chan struct{}
	wg    sync.WaitGroup
}

func NewManager(sched *Scheduler) *Manager {
	return &Manager{sched: sched, loops: make(map[uint64]chan struct{})}
}

// Start launches the loop for server unless one is already running. It
// reports whether a loop was started. The loop stops when ctx is done.
func (m *Manager) Start(ctx context.Context, server uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.loops[server]; ok {
		return false
	}
	wake := make(chan struct{}, 1)
	m.loops[server] = wake

	m.wg.Add(1)
	observability.ReconcileLoops.Inc()
	go func() {
		defer m.wg.Done()
		defer observability.ReconcileLoops.Dec()
		m.sched.Run(ctx, server, wake)
	}()
	return true
}

// Wake ends the current pause of server's loop. It reports false when no
// loop runs for server.
func (m *Manager) Wake(server uint64) bool {
	m.mu.Lock()
	wake, ok := m.loops[server]
	m.mu.Unlock()
	if !ok {
		return false
	}
	select {
	case wake <- struct{}{}:
	default:
	}
	return true
}

// Running is the number of started loops.
func (m *Manager) Running() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.loops)
}

// Wait blocks until every loop has returned.
func (m *Manager) Wait() { m.wg.Wait() }
