package logging

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingConsumer struct {
	mu       sync.Mutex
	events   []Snapshot
	errs     []error
	added    int
	removed  int
}

func (c *recordingConsumer) OnAdded(m *Manager) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.added++
}

func (c *recordingConsumer) OnEvent(event Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, event)
	return nil
}

func (c *recordingConsumer) OnError(event Snapshot, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs = append(c.errs, err)
}

func (c *recordingConsumer) OnRemoved(m *Manager) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removed++
}

func (c *recordingConsumer) snapshotEvents() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Snapshot, len(c.events))
	copy(out, c.events)
	return out
}

func newTestManager() *Manager {
	return NewManager(ManagerConfig{
		PoolInitialSize: 4,
		PoolMaxSize:     64,
		Distribution:    DistributorConfig{DistributionBatchSize: 8},
	})
}

func TestGetLoggerReturnsSameInstanceForSameName(t *testing.T) {
	m := newTestManager()
	defer m.Shutdown(100)

	l1 := m.GetLogger("build")
	l2 := m.GetLogger("build")
	l3 := m.GetLogger("test")

	assert.Same(t, l1, l2)
	assert.NotSame(t, l1, l3)
}

func TestOrderingPreservedAcrossSingleProducer(t *testing.T) {
	m := newTestManager()
	defer m.Shutdown(500)

	c := &recordingConsumer{}
	m.AddConsumer(c)

	logger := m.GetLogger("build")
	for i := 0; i < 30; i++ {
		logger.Info(context.Background(), fmt.Sprintf("event-%d", i))
	}

	require.Eventually(t, func() bool { return len(c.snapshotEvents()) == 30 }, time.Second, time.Millisecond)

	events := c.snapshotEvents()
	for i, e := range events {
		assert.Equal(t, fmt.Sprintf("event-%d", i), e.Message)
	}
}

// erroringConsumer fails on every nth event but must not affect other
// consumers.
type erroringConsumer struct {
	mu      sync.Mutex
	n       int
	count   int
	errored int
}

func (c *erroringConsumer) OnAdded(m *Manager)   {}
func (c *erroringConsumer) OnRemoved(m *Manager) {}

func (c *erroringConsumer) OnEvent(event Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	if c.count%c.n == 0 {
		return fmt.Errorf("boom at %d", c.count)
	}
	return nil
}

func (c *erroringConsumer) OnError(event Snapshot, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errored++
}

func TestErrorIsolationBetweenConsumers(t *testing.T) {
	m := newTestManager()
	defer m.Shutdown(500)

	good := &recordingConsumer{}
	bad := &erroringConsumer{n: 3}
	m.AddConsumer(good)
	m.AddConsumer(bad)

	logger := m.GetLogger("ci")
	for i := 0; i < 30; i++ {
		logger.Info(context.Background(), fmt.Sprintf("e%d", i))
	}

	require.Eventually(t, func() bool { return len(good.snapshotEvents()) == 30 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		bad.mu.Lock()
		defer bad.mu.Unlock()
		return bad.count == 30
	}, time.Second, time.Millisecond)

	assert.Equal(t, 10, bad.errored)
	assert.True(t, m.IsDistributing())
}

func TestShutdownDetachesAllConsumers(t *testing.T) {
	m := newTestManager()
	c := &recordingConsumer{}
	m.AddConsumer(c)

	require.Equal(t, 1, m.ConsumerCount())

	m.Shutdown(200)

	assert.Equal(t, 0, m.ConsumerCount())
	assert.Equal(t, 1, c.removed)
	assert.False(t, m.IsDistributing())
}

func TestRemoveConsumerReportsPresence(t *testing.T) {
	m := newTestManager()
	defer m.Shutdown(100)

	c := &recordingConsumer{}
	assert.False(t, m.RemoveConsumer(c))

	m.AddConsumer(c)
	assert.True(t, m.RemoveConsumer(c))
	assert.False(t, m.RemoveConsumer(c))
}

func TestWithContextReplacesNotMerges(t *testing.T) {
	m := newTestManager()
	defer m.Shutdown(200)

	c := &recordingConsumer{}
	m.AddConsumer(c)
	logger := m.GetLogger("ctx")

	outer := WithContext(context.Background(), LoggingContext{CorrelationID: "outer", CustomData: map[string]string{"a": "1"}})
	inner := WithContext(outer, LoggingContext{CorrelationID: "inner"})

	logger.Info(inner, "from-inner")
	logger.Info(outer, "from-outer")

	require.Eventually(t, func() bool { return len(c.snapshotEvents()) == 2 }, time.Second, time.Millisecond)

	events := c.snapshotEvents()
	assert.Equal(t, "inner", events[0].CorrelationID)
	assert.Empty(t, events[0].ContextData["a"])
	assert.Equal(t, "outer", events[1].CorrelationID)
	assert.Equal(t, "1", events[1].ContextData["a"])
}
