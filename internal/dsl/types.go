// Package dsl implements the DSL Engine Registry and the engines it
// dispatches to: extension/capability-keyed lookup, and a goja-hosted
// script engine for compilation, validation and execution of
// pipeline-adjacent scripts.
package dsl

import "time"

// Capability is one of the ten declared DslEngine capabilities. HotReload
// and Persistence are declarative only — engines may advertise them
// without this package defining any behavior beyond the tag itself.
type Capability string

const (
	CapabilityCompilationCaching    Capability = "CompilationCaching"
	CapabilitySyntaxValidation      Capability = "SyntaxValidation"
	CapabilityTypeChecking          Capability = "TypeChecking"
	CapabilityCodeCompletion        Capability = "CodeCompletion"
	CapabilityDebugging             Capability = "Debugging"
	CapabilityHotReload             Capability = "HotReload"
	CapabilityIncrementalCompile    Capability = "IncrementalCompilation"
	CapabilityParallelExecution     Capability = "ParallelExecution"
	CapabilityPersistence           Capability = "Persistence"
	CapabilityEventStreaming        Capability = "EventStreaming"
)

// EngineInfo is the static identity and capability set of a DslEngine.
type EngineInfo struct {
	EngineID            string
	EngineName          string
	EngineVersion       string
	SupportedExtensions []string
	Capabilities        map[Capability]bool
}

// SecurityPresetName selects one of the three named DslSecurityPolicy presets.
type SecurityPresetName string

const (
	PresetDefault    SecurityPresetName = "Default"
	PresetRestricted SecurityPresetName = "Restricted"
	PresetPermissive SecurityPresetName = "Permissive"
)

// SecurityPolicy is the declarative permission set governing sandboxed
// execution.
type SecurityPolicy struct {
	AllowNetworkAccess    bool
	AllowFileSystemAccess bool
	AllowedDirectories    []string
	AllowReflection       bool
	AllowNativeCode       bool
	SandboxEnabled        bool
}

// Preset returns the named SecurityPolicy preset.
func Preset(name SecurityPresetName) SecurityPolicy {
	switch name {
	case PresetRestricted:
		return SecurityPolicy{SandboxEnabled: true}
	case PresetPermissive:
		return SecurityPolicy{
			AllowNetworkAccess:    true,
			AllowFileSystemAccess: true,
			AllowReflection:       true,
			AllowNativeCode:       true,
			SandboxEnabled:        false,
		}
	default: // PresetDefault
		return SecurityPolicy{
			AllowFileSystemAccess: true,
			SandboxEnabled:        true,
		}
	}
}

// ResourceLimits bounds execution resource consumption. Zero/nil means
// "no limit configured" for that dimension.
type ResourceLimits struct {
	MaxMemoryMB    *int64
	MaxCPUTimeMs   *int64
	MaxWallTimeMs  *int64
	MaxThreads     *int
	MaxFileHandles *int
}

// IsolationLevel is the runtime separation applied to script execution.
type IsolationLevel string

const (
	IsolationNone        IsolationLevel = "None"
	IsolationThread      IsolationLevel = "Thread"
	IsolationClassLoader IsolationLevel = "ClassLoader"
	IsolationProcess     IsolationLevel = "Process"
	IsolationContainer   IsolationLevel = "Container"
)

// ExecutionPolicy controls concurrency and persistence behavior of a run.
type ExecutionPolicy struct {
	IsolationLevel          IsolationLevel
	AllowConcurrentExecution bool
	PersistResults           bool
	EnableEventPublishing    bool
}

// CompilationContext is the compile-time environment supplied to an engine.
type CompilationContext struct {
	ClassPath       []string
	Imports         []string
	AllowedPackages []string
	BlockedPackages []string
	EnableCaching   bool
	SecurityPolicy  SecurityPolicy
}

// ExecutionContext is the run-time environment supplied to an engine.
type ExecutionContext struct {
	Variables           map[string]any
	WorkingDirectory    string
	EnvironmentVariables map[string]string
	Timeout             *time.Duration
	ResourceLimits       *ResourceLimits
	ExecutionPolicy      ExecutionPolicy
}

// CompiledArtifact is the opaque result of a successful compilation; its
// concrete form is engine-specific (for the goja engine, the validated
// script source plus its entry point name).
type CompiledArtifact struct {
	EngineID string
	Source   string
	Entry    string
}

// ExecutionResult is the outcome of running a CompiledArtifact.
type ExecutionResult struct {
	Output   any
	Logs     []string
	Duration time.Duration
}

// IssueSeverity classifies a ValidationReport issue.
type IssueSeverity string

const (
	SeverityInfo    IssueSeverity = "Info"
	SeverityWarning IssueSeverity = "Warning"
	SeverityError   IssueSeverity = "Error"
)

// Issue is a single diagnostic raised by the Validator.
type Issue struct {
	Code       string
	Message    string
	Severity   IssueSeverity
	Location   *Location
	Suggestion string
}

// Location pinpoints a diagnostic inside a script.
type Location struct {
	Line   int
	Column int
}

// Report is the Validator's full output for one script.
type Report struct {
	ScriptName        string
	Issues            []Issue
	Warnings          []string
	ValidationTimeMs  int64
	Recommendations   []string
}

// IsValid holds iff no issue has Error severity.
func (r Report) IsValid() bool {
	for _, i := range r.Issues {
		if i.Severity == SeverityError {
			return false
		}
	}
	return true
}
