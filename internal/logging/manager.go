package logging

import (
	"sync"

	"github.com/R3E-Network/pipeline-engine/internal/objectpool"
)

// Manager is the logger manager and logger cache: it hands out named,
// cached Logger instances and owns the single Distributor task that fans
// emitted records out to consumers.
type Manager struct {
	pool *objectpool.Pool[*MutableRecord]
	dist *distributor

	mu      sync.Mutex
	loggers map[string]*Logger
}

// ManagerConfig bundles pool and distribution tuning.
type ManagerConfig struct {
	PoolInitialSize int
	PoolMaxSize     int
	Distribution    DistributorConfig
}

// NewManager constructs a Manager and starts its distributor task.
func NewManager(cfg ManagerConfig) *Manager {
	pool := objectpool.New(NewMutableRecord, ResetRecord, cfg.PoolInitialSize, cfg.PoolMaxSize)
	m := &Manager{
		pool:    pool,
		dist:    newDistributor(cfg.Distribution, pool),
		loggers: make(map[string]*Logger),
	}
	m.dist.Start()
	return m
}

// GetLogger returns the cached Logger for name, creating one on first use.
// Identical names always return the same *Logger.
func (m *Manager) GetLogger(name string) *Logger {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.loggers[name]; ok {
		return l
	}
	l := &Logger{name: name, manager: m}
	m.loggers[name] = l
	return l
}

// AddConsumer registers c for all subsequent events.
func (m *Manager) AddConsumer(c Consumer) {
	m.dist.addConsumer(m, c)
}

// RemoveConsumer unregisters c, reporting whether it was present.
func (m *Manager) RemoveConsumer(c Consumer) bool {
	return m.dist.removeConsumer(m, c)
}

// ConsumerCount reports the number of currently registered consumers.
func (m *Manager) ConsumerCount() int {
	return m.dist.consumerCount()
}

// IsDistributing reports whether the distributor task is active.
func (m *Manager) IsDistributing() bool {
	return m.dist.isRunning()
}

// PoolMetrics exposes the underlying record pool's health metrics.
func (m *Manager) PoolMetrics() objectpool.Metrics {
	return m.pool.Snapshot()
}

// Shutdown waits up to graceMs for queued events to drain, then stops
// accepting further events, delivers every event still queued, and detaches
// every consumer.
func (m *Manager) Shutdown(graceMs int) {
	m.dist.shutdown(m, graceMs)
}

func (m *Manager) emit(rec *MutableRecord) {
	m.dist.emit(rec)
}

func (m *Manager) acquireRecord() *MutableRecord {
	return m.pool.Acquire()
}
