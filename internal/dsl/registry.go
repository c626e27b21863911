package dsl

import (
	"regexp"
	"strings"
	"sync"

	"github.com/R3E-Network/pipeline-engine/internal/pipelineerr"
)

// extensionPattern is what a well-formed extension looks like once the
// leading dot (if any) is stripped: one or more dot-separated alphanumeric
// segments (e.g. "js", "pipeline.js"), never empty, never starting or
// ending with a dot.
var extensionPattern = regexp.MustCompile(`^[A-Za-z0-9]+(\.[A-Za-z0-9]+)*$`)

// Engine is implemented by every pluggable DSL engine. A single Engine
// instance may be shared across concurrent compilations/executions; engines
// that need per-call isolation (such as the goja engine, which allocates a
// fresh runtime per call) must do so internally.
type Engine interface {
	Info() EngineInfo
	Compile(ctx CompilationContext, scriptName, source string) (*CompiledArtifact, *Report, error)
	Execute(ctx ExecutionContext, artifact *CompiledArtifact) (*ExecutionResult, error)
	Validate(scriptName, source string) *Report
}

// Registry maps file extensions and capabilities to registered engines: a
// map keyed by string identity, guarded by a single mutex.
type Registry struct {
	mu          sync.RWMutex
	byID        map[string]Engine
	byExtension map[string]Engine
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:        make(map[string]Engine),
		byExtension: make(map[string]Engine),
	}
}

// Register adds engine under its declared ID and extensions. Re-registering
// the same EngineID replaces the previous engine and its extension bindings.
// Registration fails when the EngineID is blank, SupportedExtensions is
// empty, or any extension is malformed.
func (r *Registry) Register(engine Engine) error {
	info := engine.Info()
	if info.EngineID == "" {
		return pipelineerr.Validation("engine ID must not be empty")
	}
	if len(info.SupportedExtensions) == 0 {
		return pipelineerr.Validation("engine " + info.EngineID + " must declare at least one supported extension")
	}
	for _, ext := range info.SupportedExtensions {
		if !extensionPattern.MatchString(normalizeExt(ext)) {
			return pipelineerr.Validation("engine " + info.EngineID + " declares malformed extension " + ext)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byID[info.EngineID]; ok {
		for _, ext := range prev.Info().SupportedExtensions {
			delete(r.byExtension, normalizeExt(ext))
		}
	}

	r.byID[info.EngineID] = engine
	for _, ext := range info.SupportedExtensions {
		r.byExtension[normalizeExt(ext)] = engine
	}
	return nil
}

// Unregister removes the engine with the given ID, if present.
func (r *Registry) Unregister(engineID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	engine, ok := r.byID[engineID]
	if !ok {
		return
	}
	delete(r.byID, engineID)
	for _, ext := range engine.Info().SupportedExtensions {
		delete(r.byExtension, normalizeExt(ext))
	}
}

// ForExtension returns the engine registered for a file extension (with or
// without a leading dot), or false if none matches.
func (r *Registry) ForExtension(ext string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byExtension[normalizeExt(ext)]
	return e, ok
}

// ForScriptName infers the extension from a file name and looks it up.
func (r *Registry) ForScriptName(scriptName string) (Engine, bool) {
	idx := strings.LastIndex(scriptName, ".")
	if idx < 0 {
		return nil, false
	}
	return r.ForExtension(scriptName[idx+1:])
}

// ByID returns the engine registered under the given ID.
func (r *Registry) ByID(engineID string) (Engine, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[engineID]
	return e, ok
}

// WithCapability returns every registered engine that declares capability.
func (r *Registry) WithCapability(cap Capability) []Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Engine
	for _, e := range r.byID {
		if e.Info().Capabilities[cap] {
			out = append(out, e)
		}
	}
	return out
}

// Engines returns every registered engine's static info.
func (r *Registry) Engines() []EngineInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]EngineInfo, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, e.Info())
	}
	return out
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
