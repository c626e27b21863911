package logging

import (
	"bytes"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// ConsoleConsumerConfig tunes the console consumer's batching discipline.
type ConsoleConsumerConfig struct {
	QueueCapacity  int
	BatchSize      int
	FlushTimeout   time.Duration
	Writer         io.Writer
	Colorize       bool
	FallbackOnFull bool
}

func (c ConsoleConsumerConfig) withDefaults() ConsoleConsumerConfig {
	if c.QueueCapacity <= 0 {
		c.QueueCapacity = 1024
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 20
	}
	if c.FlushTimeout <= 0 {
		c.FlushTimeout = 2 * time.Second
	}
	if c.Writer == nil {
		c.Writer = os.Stdout
	}
	return c
}

// ConsoleBatchingConsumer accumulates snapshots and flushes them as a
// single write, either on a size trigger, a timeout trigger, or shutdown.
// When its internal ring is full, new events are dropped and counted —
// this consumer's own backpressure policy, independent of the Distributor.
type ConsoleBatchingConsumer struct {
	cfg ConsoleConsumerConfig
	out zerolog.Logger

	mu      sync.Mutex
	pending []Snapshot

	eventsReceived  int64
	eventsDropped   int64
	batchesWritten  int64
	batchSizeSum    int64
	flushTimeouts   int64
	startedAt       time.Time
	active          atomic.Bool

	flushSignal chan struct{}
	stop        chan struct{}
	stopped     chan struct{}
}

// NewConsoleBatchingConsumer builds a consumer writing to cfg.Writer (or
// os.Stdout when cfg.Writer is nil) via a zerolog.ConsoleWriter, which
// supplies the ANSI-colorized single-write-per-flush rendering.
func NewConsoleBatchingConsumer(cfg ConsoleConsumerConfig) *ConsoleBatchingConsumer {
	cfg = cfg.withDefaults()
	cw := zerolog.ConsoleWriter{Out: cfg.Writer, NoColor: !cfg.Colorize, TimeFormat: time.RFC3339}
	c := &ConsoleBatchingConsumer{
		cfg:         cfg,
		out:         zerolog.New(cw).With().Timestamp().Logger(),
		flushSignal: make(chan struct{}, 1),
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}
	return c
}

// OnAdded starts the flusher goroutine.
func (c *ConsoleBatchingConsumer) OnAdded(m *Manager) {
	c.startedAt = time.Now()
	c.active.Store(true)
	go c.flushLoop()
}

// OnEvent stages event for the next flush, dropping it if the ring is full.
func (c *ConsoleBatchingConsumer) OnEvent(event Snapshot) error {
	atomic.AddInt64(&c.eventsReceived, 1)

	c.mu.Lock()
	if len(c.pending) >= c.cfg.QueueCapacity {
		c.mu.Unlock()
		atomic.AddInt64(&c.eventsDropped, 1)
		if c.cfg.FallbackOnFull {
			c.out.Warn().Msg("[QUEUE_FULL]")
		}
		return nil
	}
	c.pending = append(c.pending, event)
	trigger := len(c.pending) >= c.cfg.BatchSize
	c.mu.Unlock()

	if trigger {
		select {
		case c.flushSignal <- struct{}{}:
		default:
		}
	}
	return nil
}

// OnError writes one error line describing the failure directly to the
// console; isolation from other consumers is already the Distributor's job.
func (c *ConsoleBatchingConsumer) OnError(event Snapshot, err error) {
	c.out.Error().Err(err).Msg("console consumer failed to render event")
}

// OnRemoved stops the flusher goroutine after a final flush.
func (c *ConsoleBatchingConsumer) OnRemoved(m *Manager) {
	c.active.Store(false)
	close(c.stop)
	<-c.stopped
}

func (c *ConsoleBatchingConsumer) flushLoop() {
	defer close(c.stopped)
	timer := time.NewTimer(c.cfg.FlushTimeout)
	defer timer.Stop()
	for {
		select {
		case <-c.stop:
			c.flush()
			return
		case <-c.flushSignal:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			c.flush()
			timer.Reset(c.cfg.FlushTimeout)
		case <-timer.C:
			atomic.AddInt64(&c.flushTimeouts, 1)
			c.flush()
			timer.Reset(c.cfg.FlushTimeout)
		}
	}
}

func (c *ConsoleBatchingConsumer) flush() {
	c.mu.Lock()
	if len(c.pending) == 0 {
		c.mu.Unlock()
		return
	}
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	var buf bytes.Buffer
	out := c.out.Output(zerolog.ConsoleWriter{Out: &buf, NoColor: !c.cfg.Colorize, TimeFormat: time.RFC3339})
	for _, snap := range batch {
		ev := out.WithLevel(zerologLevel(snap.Level)).
			Str("logger", snap.LoggerName).
			Time("ts", snap.Timestamp)
		if snap.CorrelationID != "" {
			ev = ev.Str("correlationId", snap.CorrelationID)
		}
		for k, v := range snap.ContextData {
			ev = ev.Str(k, v)
		}
		if snap.Exception != nil {
			ev = ev.AnErr("error", snap.Exception)
		}
		ev.Msg(snap.Message)
	}
	_, _ = c.cfg.Writer.Write(buf.Bytes())

	atomic.AddInt64(&c.batchesWritten, 1)
	atomic.AddInt64(&c.batchSizeSum, int64(len(batch)))
}

func zerologLevel(l Level) zerolog.Level {
	switch l {
	case LevelDebug:
		return zerolog.DebugLevel
	case LevelInfo:
		return zerolog.InfoLevel
	case LevelWarn:
		return zerolog.WarnLevel
	case LevelError:
		return zerolog.ErrorLevel
	case LevelCritical:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// ConsoleMetrics is a point-in-time snapshot of the consumer's counters.
type ConsoleMetrics struct {
	EventsReceived   int64
	EventsDropped    int64
	BatchesWritten   int64
	AverageBatchSize float64
	FlushTimeouts    int64
	EventsPerSecond  float64
	DropRate         float64
	UptimeSeconds    float64
	IsActive         bool
}

// Metrics computes the current ConsoleMetrics snapshot.
func (c *ConsoleBatchingConsumer) Metrics() ConsoleMetrics {
	received := atomic.LoadInt64(&c.eventsReceived)
	dropped := atomic.LoadInt64(&c.eventsDropped)
	batches := atomic.LoadInt64(&c.batchesWritten)
	sizeSum := atomic.LoadInt64(&c.batchSizeSum)
	uptime := time.Since(c.startedAt).Seconds()

	m := ConsoleMetrics{
		EventsReceived: received,
		EventsDropped:  dropped,
		BatchesWritten: batches,
		FlushTimeouts:  atomic.LoadInt64(&c.flushTimeouts),
		UptimeSeconds:  uptime,
		IsActive:       c.active.Load(),
	}
	if batches > 0 {
		m.AverageBatchSize = float64(sizeSum) / float64(batches)
	}
	if received > 0 {
		m.DropRate = float64(dropped) / float64(received)
	}
	if uptime > 0 {
		m.EventsPerSecond = float64(received) / uptime
	}
	return m
}

// Performant reports whether the consumer is keeping up: averageBatchSize
// >= 5, dropRate < 0.01, eventsPerSecond > 100.
func (m ConsoleMetrics) Performant() bool {
	return m.AverageBatchSize >= 5 && m.DropRate < 0.01 && m.EventsPerSecond > 100
}
