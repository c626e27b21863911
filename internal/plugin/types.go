// Package plugin implements symbol resolution from archive or directory
// sources under allow/block package rules, and the discover→validate→
// load→unload/reload lifecycle around a single plugin id.
package plugin

import "time"

// Metadata is a plugin's declared identity, parsed from either a
// plugin.properties file or an archive manifest.
type Metadata struct {
	ID              string
	Version         string
	Name            string
	Description     string
	Author          string
	MainClass       string
	AllowedPackages []string
	BlockedPackages []string

	// ExpectedFingerprint, if set, is the sha3-256 digest of the archive
	// content the manifest author published. DefaultValidator rejects a
	// load whose computed fingerprint does not match. Empty means no
	// fingerprint check is performed.
	ExpectedFingerprint string
}

// Validate checks the required fields: id, version and main class are
// mandatory; everything else is optional.
func (m Metadata) Validate() error {
	if m.ID == "" {
		return errMissingField("plugin.id")
	}
	if m.Version == "" {
		return errMissingField("plugin.version")
	}
	if m.MainClass == "" {
		return errMissingField("plugin.main-class")
	}
	return nil
}

func errMissingField(field string) error {
	return &metadataError{field: field}
}

type metadataError struct{ field string }

func (e *metadataError) Error() string { return "missing required metadata field: " + e.field }

// Interface is the contract every resolved plugin main class must satisfy.
type Interface interface {
	ID() string
	Start() error
	Shutdown() error
}

// State is a plugin's lifecycle stage.
type State string

const (
	StateDiscovered State = "Discovered"
	StateValidated  State = "Validated"
	StateLoaded     State = "Loaded"
	StateUnloaded   State = "Unloaded"
	StateError      State = "Error"
)

// LoadedPlugin is a successfully loaded plugin's registry entry.
type LoadedPlugin struct {
	Metadata Metadata
	Instance Interface
	Resolver *ClassResolver
	LoadedAt time.Time
	State    State
}

// LoadResult is the outcome of one load attempt.
type LoadResult struct {
	Path    string
	Plugin  *LoadedPlugin
	Err     error
}

// Success reports a successful load.
func Success(path string, p *LoadedPlugin) LoadResult {
	return LoadResult{Path: path, Plugin: p}
}

// Failure reports a failed load; no partial registration is left behind.
func Failure(path string, err error) LoadResult {
	return LoadResult{Path: path, Err: err}
}

// Failed reports whether the load attempt did not succeed.
func (r LoadResult) Failed() bool { return r.Err != nil }
