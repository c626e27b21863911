package objectpool

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	n int
}

func TestPoolAcquireReleaseHitRate(t *testing.T) {
	factoryCalls := 0
	p := New(func() widget {
		factoryCalls++
		return widget{}
	}, func(w widget) error {
		w.n = 0
		return nil
	}, 2, 4)

	require.Equal(t, 2, factoryCalls)

	w1 := p.Acquire()
	w2 := p.Acquire()
	w3 := p.Acquire() // pool exhausted, factory creates a new one

	snap := p.Snapshot()
	assert.Equal(t, int64(3), snap.TotalAcquisitions)
	assert.Equal(t, int64(2), snap.PoolHits)
	assert.Equal(t, int64(1), snap.FactoryCreations)

	p.Release(w1)
	p.Release(w2)
	p.Release(w3)

	snap = p.Snapshot()
	assert.Equal(t, int64(3), snap.TotalReleases)
	assert.Equal(t, int64(0), snap.DroppedReleases)
	assert.True(t, snap.Healthy())
}

func TestPoolBoundedCapacityDropsExcessReleases(t *testing.T) {
	p := New(func() widget { return widget{} }, func(widget) error { return nil }, 0, 1)

	p.Release(widget{1})
	p.Release(widget{2}) // over capacity, dropped

	snap := p.Snapshot()
	assert.Equal(t, int32(1), snap.CurrentSize)
	assert.Equal(t, int64(1), snap.DroppedReleases)
}

func TestPoolResetFailureDropsInstance(t *testing.T) {
	p := New(func() widget { return widget{} }, func(widget) error {
		return errors.New("reset failed")
	}, 0, 4)

	p.Release(widget{1})

	snap := p.Snapshot()
	assert.Equal(t, int32(0), snap.CurrentSize)
	assert.Equal(t, int64(1), snap.DroppedReleases)
}

func TestPoolConcurrentSafety(t *testing.T) {
	p := New(func() widget { return widget{} }, func(widget) error { return nil }, 10, 50)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := p.Acquire()
			p.Release(w)
		}()
	}
	wg.Wait()

	snap := p.Snapshot()
	assert.LessOrEqual(t, snap.CurrentSize, int32(50))
	assert.Equal(t, snap.PoolHits+snap.FactoryCreations, snap.TotalAcquisitions)
}
