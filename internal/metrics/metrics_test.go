package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordPoolStatsUpdatesGauges(t *testing.T) {
	RecordPoolStats(0.75, 10, 2)
	assert.Equal(t, float64(0.75), testutil.ToFloat64(poolHitRate))
	assert.Equal(t, float64(10), testutil.ToFloat64(poolSize.WithLabelValues("idle")))
	assert.Equal(t, float64(2), testutil.ToFloat64(poolSize.WithLabelValues("in_use")))
}

func TestRecordDistributorStatsIncrementsBatchCounter(t *testing.T) {
	before := testutil.ToFloat64(distributorBatches.WithLabelValues("flushed"))
	RecordDistributorStats(0.1, 500, "flushed")
	after := testutil.ToFloat64(distributorBatches.WithLabelValues("flushed"))
	assert.Equal(t, before+1, after)
}

func TestRecordStageDurationObservesHistogram(t *testing.T) {
	before := testutil.CollectAndCount(stageDuration)
	RecordStageDuration("build", "Success", 50*time.Millisecond)
	after := testutil.CollectAndCount(stageDuration)
	assert.Equal(t, before+1, after)
}

func TestRecordSandboxViolationIncrementsByKind(t *testing.T) {
	before := testutil.ToFloat64(sandboxViolations.WithLabelValues("NetworkDenied"))
	RecordSandboxViolation("NetworkDenied")
	after := testutil.ToFloat64(sandboxViolations.WithLabelValues("NetworkDenied"))
	assert.Equal(t, before+1, after)
}

func TestRecordPluginLoadDefaultsUnknownOutcome(t *testing.T) {
	before := testutil.ToFloat64(pluginLoads.WithLabelValues("unknown"))
	RecordPluginLoad("")
	after := testutil.ToFloat64(pluginLoads.WithLabelValues("unknown"))
	assert.Equal(t, before+1, after)
}
