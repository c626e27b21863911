// Package engine bootstraps one process-wide Engine: the Logger Manager
// and its Distributor, the DSL Registry, the Plugin Manager, and the
// Event Bus, constructed in dependency order and torn down in reverse.
package engine

import (
	"context"
	"math"
	"time"

	"github.com/R3E-Network/pipeline-engine/internal/config"
	"github.com/R3E-Network/pipeline-engine/internal/dsl"
	"github.com/R3E-Network/pipeline-engine/internal/eventbus"
	"github.com/R3E-Network/pipeline-engine/internal/logging"
	"github.com/R3E-Network/pipeline-engine/internal/metrics"
	"github.com/R3E-Network/pipeline-engine/internal/pipelineerr"
	"github.com/R3E-Network/pipeline-engine/internal/plugin"
	"github.com/R3E-Network/pipeline-engine/internal/workspace"
	"github.com/R3E-Network/pipeline-engine/pkg/appclog"
)

// Engine owns every long-lived subsystem a cmd entry point needs to run
// pipelines: the logging core, the DSL engine registry, the plugin
// manager and the event bus. Sandbox managers are created per pipeline
// run rather than owned here, since each run gets its own isolation
// state machine.
type Engine struct {
	Config   *config.EngineConfig
	Logging  *logging.Manager
	DSL      *dsl.Registry
	Plugins  *plugin.Manager
	Bus      *eventbus.Bus
	Console  *logging.ConsoleBatchingConsumer
	Log      *appclog.Logger

	started bool
}

// Option customizes Engine construction.
type Option func(*buildOptions)

type buildOptions struct {
	pluginDeps pluginDependencies
}

// pluginDependencies bundles the Plugin Manager's collaborators. An
// embedding application supplies its own archive format and symbol
// resolution; the Engine only wires the lifecycle around them.
type pluginDependencies struct {
	parseMetadata plugin.MetadataParser
	validate      plugin.Validator
	newResolver   plugin.ResolverFactory
	resolveMain   plugin.MainClassResolver
	parentSymbols map[string]any
}

// WithPluginSupport supplies the collaborators required to actually load
// plugins. Without this option, the Engine's Plugins manager is still
// constructed but every Load call fails immediately.
func WithPluginSupport(parseMetadata plugin.MetadataParser, newResolver plugin.ResolverFactory, resolveMain plugin.MainClassResolver, parentSymbols map[string]any) Option {
	return func(b *buildOptions) {
		b.pluginDeps = pluginDependencies{
			parseMetadata: parseMetadata,
			validate:      plugin.DefaultValidator,
			newResolver:   newResolver,
			resolveMain:   resolveMain,
			parentSymbols: parentSymbols,
		}
	}
}

func unsupportedPluginLoad(string) (plugin.Metadata, error) {
	return plugin.Metadata{}, pipelineerr.New(pipelineerr.KindPlugin, "plugin support not configured for this engine")
}

// New builds an Engine from cfg, wiring the logging core, DSL registry
// (with the JavaScript engine registered by default), plugin manager and
// event bus, in that construction order.
func New(cfg *config.EngineConfig, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	log := appclog.New("engine", appclog.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	options := &buildOptions{
		pluginDeps: pluginDependencies{
			parseMetadata: unsupportedPluginLoad,
			validate:      plugin.DefaultValidator,
			newResolver:   func(plugin.Metadata, map[string]any) (*plugin.ClassResolver, error) {
				return nil, pipelineerr.New(pipelineerr.KindPlugin, "plugin support not configured for this engine")
			},
			resolveMain: func(*plugin.ClassResolver, string) (plugin.Interface, error) {
				return nil, pipelineerr.New(pipelineerr.KindPlugin, "plugin support not configured for this engine")
			},
		},
	}
	for _, opt := range opts {
		opt(options)
	}

	loggingManager := logging.NewManager(logging.ManagerConfig{
		PoolInitialSize: cfg.Pool.InitialSize,
		PoolMaxSize:     cfg.Pool.MaxSize,
		Distribution: logging.DistributorConfig{
			DistributionBatchSize: cfg.Distributor.BatchSize,
			DistributionDelayMs:   cfg.Distributor.DelayMs,
		},
	})

	console := logging.NewConsoleBatchingConsumer(logging.ConsoleConsumerConfig{
		QueueCapacity: cfg.Console.QueueCapacity,
		BatchSize:     cfg.Console.BatchSize,
		FlushTimeout:  time.Duration(cfg.Console.FlushTimeoutMs) * time.Millisecond,
		Colorize:      cfg.Console.Colorize,
	})
	loggingManager.AddConsumer(console)

	registry := dsl.NewRegistry()
	validator := dsl.NewValidator(nil)
	if err := registry.Register(dsl.NewJSEngine(validator)); err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.KindInternal, "register default DSL engine", err)
	}
	log.WithField("engines", registry.Engines()).Info("dsl registry ready")

	pluginManager := plugin.NewManager(
		options.pluginDeps.parseMetadata,
		options.pluginDeps.validate,
		options.pluginDeps.newResolver,
		options.pluginDeps.resolveMain,
		options.pluginDeps.parentSymbols,
	)

	bus := eventbus.New(nil)

	return &Engine{
		Config:  cfg,
		Logging: loggingManager,
		DSL:     registry,
		Plugins: pluginManager,
		Bus:     bus,
		Console: console,
		Log:     log,
	}, nil
}

// Start marks the Engine as running. The logging distributor and console
// consumer are already active once New returns; Start exists as the
// symmetric counterpart to Shutdown and the hook point for future
// subsystems that need an explicit start signal.
func (e *Engine) Start(ctx context.Context) error {
	e.started = true
	e.Log.Info("engine started")
	return nil
}

// Shutdown drains the logging core within graceMs, unloads every loaded
// plugin, and marks the engine stopped. It is safe to call once; a second
// call is a no-op.
func (e *Engine) Shutdown(ctx context.Context, graceMs int) error {
	if !e.started {
		return nil
	}
	for _, p := range e.Plugins.List() {
		if err := e.Plugins.Unload(p.Metadata.ID); err != nil {
			e.Log.WithField("plugin", p.Metadata.ID).Warn("unload failed during shutdown")
		}
	}
	e.Logging.Shutdown(graceMs)
	e.started = false
	e.Log.Info("engine stopped")
	return nil
}

// NewWorkspace builds a workspace rooted at root for one pipeline run.
func (e *Engine) NewWorkspace(root string, allowAbsolute bool) (*workspace.Workspace, error) {
	return workspace.New(root, allowAbsolute)
}

// ReportPoolMetrics snapshots the logging core's object pool into the
// Prometheus collectors in internal/metrics.
func (e *Engine) ReportPoolMetrics() {
	snap := e.Logging.PoolMetrics()
	metrics.RecordPoolStats(snap.HitRate(), int(snap.CurrentSize), int(snap.TotalAcquisitions-snap.TotalReleases))
}

// ReportConsoleMetrics snapshots the console consumer into the Prometheus
// collectors in internal/metrics.
func (e *Engine) ReportConsoleMetrics() {
	snap := e.Console.Metrics()
	reason := "timeout"
	if snap.FlushTimeouts == 0 {
		reason = "size"
	}
	flushed := int64(math.Round(snap.AverageBatchSize * float64(snap.BatchesWritten)))
	metrics.RecordConsumerFlush("console", reason, int(snap.EventsReceived-snap.EventsDropped-flushed))
	metrics.RecordDistributorStats(snap.DropRate, snap.EventsPerSecond, "flushed")
}
