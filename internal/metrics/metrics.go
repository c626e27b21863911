// Package metrics exposes Prometheus collectors for the pool, distributor,
// console consumer and pipeline subsystems: package-level vars, an
// init-time MustRegister, and small Record* helper functions rather than a
// struct wrapper.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every collector this module registers, kept distinct from
// prometheus.DefaultRegisterer so embedding applications can mount it
// wherever they like.
var Registry = prometheus.NewRegistry()

var (
	poolHitRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pipeline_engine",
		Subsystem: "pool",
		Name:      "hit_rate",
		Help:      "Fraction of object pool Acquire calls satisfied without allocation.",
	})

	poolSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pipeline_engine",
		Subsystem: "pool",
		Name:      "size",
		Help:      "Current object pool size by state (idle|in_use).",
	}, []string{"state"})

	distributorDropRate = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pipeline_engine",
		Subsystem: "distributor",
		Name:      "drop_rate",
		Help:      "Fraction of published log events dropped because no consumer kept up.",
	})

	distributorEventsPerSecond = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "pipeline_engine",
		Subsystem: "distributor",
		Name:      "events_per_second",
		Help:      "Recent throughput of the log event distributor.",
	})

	distributorBatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeline_engine",
		Subsystem: "distributor",
		Name:      "batches_total",
		Help:      "Total batches flushed by the distributor, by outcome.",
	}, []string{"outcome"})

	consumerQueueDepth = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "pipeline_engine",
		Subsystem: "console_consumer",
		Name:      "queue_depth",
		Help:      "Current queued log record count per named consumer.",
	}, []string{"consumer"})

	consumerFlushes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeline_engine",
		Subsystem: "console_consumer",
		Name:      "flushes_total",
		Help:      "Total batch flushes per named consumer, by reason (size|timeout).",
	}, []string{"consumer", "reason"})

	pipelineExecutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeline_engine",
		Subsystem: "pipeline",
		Name:      "executions_total",
		Help:      "Total pipeline runs, by terminal status.",
	}, []string{"status"})

	stageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "pipeline_engine",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Duration of stage execution.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
	}, []string{"stage", "status"})

	sandboxViolations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeline_engine",
		Subsystem: "sandbox",
		Name:      "violations_total",
		Help:      "Total sandbox violations observed, by kind.",
	}, []string{"kind"})

	pluginLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "pipeline_engine",
		Subsystem: "plugin",
		Name:      "loads_total",
		Help:      "Total plugin load attempts, by outcome.",
	}, []string{"outcome"})
)

func init() {
	Registry.MustRegister(
		poolHitRate,
		poolSize,
		distributorDropRate,
		distributorEventsPerSecond,
		distributorBatches,
		consumerQueueDepth,
		consumerFlushes,
		pipelineExecutions,
		stageDuration,
		sandboxViolations,
		pluginLoads,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler exposes the registry over HTTP in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordPoolStats publishes the object pool's hit rate and current sizing.
func RecordPoolStats(hitRate float64, idle, inUse int) {
	poolHitRate.Set(hitRate)
	poolSize.WithLabelValues("idle").Set(float64(idle))
	poolSize.WithLabelValues("in_use").Set(float64(inUse))
}

// RecordDistributorStats publishes the distributor's drop rate and
// throughput, and increments its batch-outcome counter.
func RecordDistributorStats(dropRate, eventsPerSecond float64, batchOutcome string) {
	distributorDropRate.Set(dropRate)
	distributorEventsPerSecond.Set(eventsPerSecond)
	if batchOutcome != "" {
		distributorBatches.WithLabelValues(batchOutcome).Inc()
	}
}

// RecordConsumerFlush tracks a batch flush for a named console consumer.
func RecordConsumerFlush(consumer, reason string, queueDepth int) {
	if consumer == "" {
		consumer = "default"
	}
	if reason == "" {
		reason = "unknown"
	}
	consumerFlushes.WithLabelValues(consumer, reason).Inc()
	consumerQueueDepth.WithLabelValues(consumer).Set(float64(queueDepth))
}

// RecordPipelineExecution records the terminal status of one pipeline run.
func RecordPipelineExecution(status string) {
	if status == "" {
		status = "unknown"
	}
	pipelineExecutions.WithLabelValues(status).Inc()
}

// RecordStageDuration records how long a stage took to reach status.
func RecordStageDuration(stage, status string, d time.Duration) {
	if stage == "" {
		stage = "unknown"
	}
	stageDuration.WithLabelValues(stage, status).Observe(d.Seconds())
}

// RecordSandboxViolation increments the violation counter for kind.
func RecordSandboxViolation(kind string) {
	if kind == "" {
		kind = "unknown"
	}
	sandboxViolations.WithLabelValues(kind).Inc()
}

// RecordPluginLoad increments the plugin load counter for outcome
// ("success"|"failure").
func RecordPluginLoad(outcome string) {
	if outcome == "" {
		outcome = "unknown"
	}
	pluginLoads.WithLabelValues(outcome).Inc()
}
