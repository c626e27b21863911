package plugin

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/R3E-Network/pipeline-engine/internal/metrics"
	"github.com/R3E-Network/pipeline-engine/internal/pipelineerr"
)

const maxArchiveBytes = 256 * 1024 * 1024

// MetadataParser extracts Metadata from a plugin archive or directory path.
// Concrete archive formats are caller-supplied.
type MetadataParser func(path string) (Metadata, error)

// Validator runs the security validation step of the load sequence:
// signature (if required), file-size cap, executable-content scan and
// metadata content checks (path traversal, suspicious keywords, version
// format).
type Validator func(path string, meta Metadata) error

// ResolverFactory constructs a ClassResolver for a plugin given its metadata and
// any globally shared parent symbols.
type ResolverFactory func(meta Metadata, parentSymbols map[string]any) (*ClassResolver, error)

// MainClassResolver resolves a metadata's MainClass to a plugin Interface
// instance via resolver.
type MainClassResolver func(resolver *ClassResolver, mainClass string) (Interface, error)

// Manager runs the Plugin Manager lifecycle: Discovered → Validated →
// Loaded → (Unloaded | Error). All mutations are serialized under one
// mutex; queries read from an atomically-swapped snapshot so lookups never
// block a concurrent load/unload.
type Manager struct {
	parseMetadata MetadataParser
	validate      Validator
	newResolver   ResolverFactory
	resolveMain   MainClassResolver
	parentSymbols map[string]any

	mu       sync.Mutex
	loaded   map[string]*LoadedPlugin
	snapshot atomic.Pointer[map[string]*LoadedPlugin]
}

// NewManager builds a Manager with the given collaborators.
func NewManager(parseMetadata MetadataParser, validate Validator, newResolver ResolverFactory, resolveMain MainClassResolver, parentSymbols map[string]any) *Manager {
	m := &Manager{
		parseMetadata: parseMetadata,
		validate:      validate,
		newResolver:   newResolver,
		resolveMain:   resolveMain,
		parentSymbols: parentSymbols,
		loaded:        make(map[string]*LoadedPlugin),
	}
	m.publishSnapshot()
	return m
}

// Load runs the full discover→validate→load sequence for the archive or
// directory at path. Any step failure yields LoadResult.Failure and leaves
// no partial registration.
func (m *Manager) Load(path string) LoadResult {
	result := m.load(path)
	if result.Failed() {
		metrics.RecordPluginLoad("failure")
	} else {
		metrics.RecordPluginLoad("success")
	}
	return result
}

func (m *Manager) load(path string) LoadResult {
	meta, err := m.parseMetadata(path)
	if err != nil {
		return Failure(path, pipelineerr.Wrap(pipelineerr.KindPlugin, "parse metadata", err))
	}
	if err := meta.Validate(); err != nil {
		return Failure(path, pipelineerr.Wrap(pipelineerr.KindPlugin, "invalid metadata", err))
	}

	m.mu.Lock()
	if _, exists := m.loaded[meta.ID]; exists {
		m.mu.Unlock()
		return Failure(path, pipelineerr.New(pipelineerr.KindPlugin, "plugin id "+meta.ID+" is already loaded"))
	}
	m.mu.Unlock()

	if m.validate != nil {
		if err := m.validate(path, meta); err != nil {
			return Failure(path, pipelineerr.Wrap(pipelineerr.KindPlugin, "security validation failed", err))
		}
	}

	resolver, err := m.newResolver(meta, m.parentSymbols)
	if err != nil {
		return Failure(path, pipelineerr.Wrap(pipelineerr.KindPlugin, "build class resolver", err))
	}

	instance, err := m.resolveMain(resolver, meta.MainClass)
	if err != nil {
		resolver.Close()
		return Failure(path, pipelineerr.Wrap(pipelineerr.KindPlugin, "resolve main class "+meta.MainClass, err))
	}

	loaded := &LoadedPlugin{
		Metadata: meta,
		Instance: instance,
		Resolver: resolver,
		LoadedAt: time.Now(),
		State:    StateLoaded,
	}

	m.mu.Lock()
	if _, exists := m.loaded[meta.ID]; exists {
		m.mu.Unlock()
		resolver.Close()
		return Failure(path, pipelineerr.New(pipelineerr.KindPlugin, "plugin id "+meta.ID+" is already loaded"))
	}
	m.loaded[meta.ID] = loaded
	m.publishSnapshotLocked()
	m.mu.Unlock()

	return Success(path, loaded)
}

// Unload invokes the plugin's shutdown hook (best-effort), closes its class
// resolver and removes it from the registry.
func (m *Manager) Unload(id string) error {
	m.mu.Lock()
	loaded, ok := m.loaded[id]
	if !ok {
		m.mu.Unlock()
		return pipelineerr.New(pipelineerr.KindPlugin, "plugin "+id+" is not loaded")
	}
	delete(m.loaded, id)
	m.publishSnapshotLocked()
	m.mu.Unlock()

	if loaded.Instance != nil {
		_ = loaded.Instance.Shutdown()
	}
	loaded.Resolver.Close()
	loaded.State = StateUnloaded
	return nil
}

// Reload unloads then loads the plugin at path. id must match the
// currently loaded plugin's id; reload of an unknown id fails with an
// informative error.
func (m *Manager) Reload(id, path string) LoadResult {
	m.mu.Lock()
	_, ok := m.loaded[id]
	m.mu.Unlock()
	if !ok {
		return Failure(path, pipelineerr.New(pipelineerr.KindPlugin, "cannot reload unknown plugin id "+id))
	}

	if err := m.Unload(id); err != nil {
		return Failure(path, err)
	}
	return m.Load(path)
}

// Get returns the loaded plugin for id from a lock-free read snapshot.
func (m *Manager) Get(id string) (*LoadedPlugin, bool) {
	snap := m.snapshot.Load()
	if snap == nil {
		return nil, false
	}
	p, ok := (*snap)[id]
	return p, ok
}

// List returns every currently loaded plugin from a lock-free read snapshot.
func (m *Manager) List() []*LoadedPlugin {
	snap := m.snapshot.Load()
	if snap == nil {
		return nil
	}
	out := make([]*LoadedPlugin, 0, len(*snap))
	for _, p := range *snap {
		out = append(out, p)
	}
	return out
}

func (m *Manager) publishSnapshotLocked() {
	snap := make(map[string]*LoadedPlugin, len(m.loaded))
	for k, v := range m.loaded {
		snap[k] = v
	}
	m.snapshot.Store(&snap)
}

func (m *Manager) publishSnapshot() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.publishSnapshotLocked()
}
