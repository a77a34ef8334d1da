package lifecycle

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ashermasroor/SlowRvbBass/logger"
)

// Config controls the cleanup workers.
type Config struct {
	Workers   int
	QueueSize int
	Delay     time.Duration
	// Protected lists directories whose contents are never deleted.
	Protected []string
}

type task struct {
	path     string
	queuedAt time.Time
}

// Manager deletes ephemeral files after a grace period. Deletion failures are logged
// and never reach the caller that scheduled them.
type Manager struct {
	cfg       Config
	protected []string
	queue     chan task

	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup

	remove func(string) error
	after  func(time.Duration) <-chan time.Time
}

// NewManager creates a Manager. Call Start to launch the workers.
func NewManager(cfg Config) *Manager {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 64
	}
	if cfg.Delay < 0 {
		cfg.Delay = 0
	}
	m := &Manager{
		cfg:      cfg,
		queue:    make(chan task, cfg.QueueSize),
		stopChan: make(chan struct{}),
		remove:   os.Remove,
		after:    time.After,
	}
	for _, root := range cfg.Protected {
		if abs, err := filepath.Abs(root); err == nil {
			m.protected = append(m.protected, filepath.Clean(abs))
		}
	}
	return m
}

// Start launches the cleanup workers.
func (m *Manager) Start() {
	for i := 0; i < m.cfg.Workers; i++ {
		m.wg.Add(1)
		go m.worker(i)
	}
	logger.Info("Cleanup workers started",
		logger.Int("workers", m.cfg.Workers),
		logger.Duration("delay", m.cfg.Delay))
}

// Schedule queues path for deletion after the configured delay. It never blocks:
// when the queue is full or the manager is stopped the request is dropped.
func (m *Manager) Schedule(path string) bool {
	if path == "" {
		return false
	}
	if m.isProtected(path) {
		logger.Warn("Refusing to schedule cleanup of protected path", logger.String("path", path))
		return false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		logger.Warn("Cleanup manager stopped, dropping task", logger.String("path", path))
		return false
	}
	select {
	case m.queue <- task{path: path, queuedAt: time.Now()}:
		logger.Debug("Cleanup scheduled", logger.String("path", path), logger.Duration("delay", m.cfg.Delay))
		return true
	default:
		logger.Warn("Cleanup queue full, dropping task",
			logger.String("path", path),
			logger.Int("queueSize", m.cfg.QueueSize))
		return false
	}
}

// Stop stops accepting tasks, deletes what is still queued without waiting out the
// delay, and waits for the workers to exit.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.closed = true
		close(m.stopChan)
		close(m.queue)
		m.mu.Unlock()
		m.wg.Wait()
		logger.Info("Cleanup workers stopped")
	})
}

func (m *Manager) worker(id int) {
	defer m.wg.Done()
	for t := range m.queue {
		if wait := m.cfg.Delay - time.Since(t.queuedAt); wait > 0 {
			select {
			case <-m.after(wait):
			case <-m.stopChan:
			}
		}
		m.delete(id, t.path)
	}
}

func (m *Manager) delete(worker int, path string) {
	if m.isProtected(path) {
		return
	}
	if err := m.remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debug("Cleanup target already gone", logger.String("path", path))
			return
		}
		logger.Error("Cleanup failed",
			logger.Int("worker", worker),
			logger.String("path", path),
			logger.ErrorField(err))
		return
	}
	logger.Info("Cleaned up file", logger.Int("worker", worker), logger.String("path", path))
}

// isProtected reports whether path is, or lies inside, a protected directory.
func (m *Manager) isProtected(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		return true
	}
	abs = filepath.Clean(abs)
	for _, root := range m.protected {
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
