package plugin

import (
	"strings"
	"sync"

	"github.com/R3E-Network/pipeline-engine/internal/pipelineerr"
)

// sensitiveResources is the fixed list of names the resolver always
// refuses lookups against, regardless of allow/block package
// configuration.
var sensitiveResources = []string{
	"credentials", "keystore", "service-descriptor", ".pem", ".p12", "secrets.yaml",
}

// Source is where a ClassResolver loads symbols from: a set of archive
// paths, or a single directory path.
type Source struct {
	ArchivePaths []string
	DirectoryPath string
}

// Loader resolves a symbol name to an implementation. Concrete archive/
// directory loading is supplied by the caller (an embedding application is
// expected to provide its own plugin archive format); the resolver's
// contract is the security and caching policy around whatever Loader does.
type Loader func(source Source, symbol string) (any, error)

// ClassResolver resolves symbol names to plugin or platform implementations,
// applying allow/block package predicates and caching resolutions by name.
// Every symbol is looked up in parentSymbols before the loader is
// consulted; there is no self-first path, so a plugin-private symbol that
// is also present in parentSymbols resolves to the parent's entry.
type ClassResolver struct {
	mu              sync.Mutex
	source          Source
	loader          Loader
	allowedPackages []string
	blockedPackages []string
	parentSymbols   map[string]any
	cache           map[string]any
	closed          bool
}

// NewClassResolver builds a resolver over source using loader for lookups
// that miss the cache and parent symbol table.
func NewClassResolver(source Source, loader Loader, allowedPackages, blockedPackages []string, parentSymbols map[string]any) *ClassResolver {
	return &ClassResolver{
		source:          source,
		loader:          loader,
		allowedPackages: allowedPackages,
		blockedPackages: blockedPackages,
		parentSymbols:   parentSymbols,
		cache:           make(map[string]any),
	}
}

// Resolve looks up symbol, applying security predicates before any actual
// resolution: blocked-package prefix match, allowed-package prefix
// requirement (if configured), and the fixed sensitive-resource list.
func (r *ClassResolver) Resolve(symbol string) (any, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, pipelineerr.New(pipelineerr.KindPlugin, "resolver is closed")
	}

	if err := r.checkSecurity(symbol); err != nil {
		return nil, err
	}

	if v, ok := r.cache[symbol]; ok {
		return v, nil
	}

	if v, ok := r.parentSymbols[symbol]; ok {
		r.cache[symbol] = v
		return v, nil
	}

	if r.loader == nil {
		return nil, pipelineerr.New(pipelineerr.KindPlugin, "no loader configured for symbol "+symbol)
	}
	v, err := r.loader(r.source, symbol)
	if err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.KindPlugin, "resolve symbol "+symbol, err)
	}
	r.cache[symbol] = v
	return v, nil
}

func (r *ClassResolver) checkSecurity(symbol string) error {
	lower := strings.ToLower(symbol)
	for _, sensitive := range sensitiveResources {
		if strings.Contains(lower, sensitive) {
			return pipelineerr.New(pipelineerr.KindSecurityViolation, "symbol "+symbol+" matches a sensitive resource pattern")
		}
	}

	for _, blocked := range r.blockedPackages {
		if strings.HasPrefix(symbol, blocked) {
			return pipelineerr.New(pipelineerr.KindSecurityViolation, "symbol "+symbol+" matches blocked package "+blocked)
		}
	}

	if len(r.allowedPackages) == 0 {
		return nil
	}
	for _, allowed := range r.allowedPackages {
		if strings.HasPrefix(symbol, allowed) {
			return nil
		}
	}
	return pipelineerr.New(pipelineerr.KindSecurityViolation, "symbol "+symbol+" is not within any allowed package")
}

// Close clears the cache and guarantees every subsequent Resolve call fails
// deterministically. The resolver holds no archive handles of its own.
func (r *ClassResolver) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cache = nil
}
