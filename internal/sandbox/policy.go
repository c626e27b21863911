// Package sandbox implements policy enforcement
// (network/filesystem/reflection/process) and resource-limit monitoring
// around a single DSL execution.
package sandbox

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/R3E-Network/pipeline-engine/internal/dsl"
	"github.com/R3E-Network/pipeline-engine/internal/pipelineerr"
)

// ViolationKind names the policy or limit that was breached.
type ViolationKind string

const (
	ViolationNetwork        ViolationKind = "NetworkAccessDenied"
	ViolationFileSystem     ViolationKind = "FileSystemAccessDenied"
	ViolationReflection     ViolationKind = "ReflectionDenied"
	ViolationNativeCode     ViolationKind = "NativeCodeDenied"
	ViolationProcessSpawn   ViolationKind = "ProcessSpawnDenied"
	ViolationMemoryLimit    ViolationKind = "MemoryLimitExceeded"
	ViolationCPULimit       ViolationKind = "CpuTimeLimitExceeded"
	ViolationWallLimit      ViolationKind = "WallTimeExceeded"
	ViolationThreadLimit    ViolationKind = "ThreadLimitExceeded"
	ViolationFileHandleLimit ViolationKind = "FileHandleLimitExceeded"
)

// Violation records one policy or limit breach observed during execution,
// timestamped at the moment it was detected.
type Violation struct {
	Kind       ViolationKind
	Detail     string
	ObservedAt time.Time
}

// newViolation stamps a Violation with the current time.
func newViolation(kind ViolationKind, detail string) Violation {
	return Violation{Kind: kind, Detail: detail, ObservedAt: time.Now()}
}

// OnViolation is invoked for each observed Violation; the sandbox never
// retries and the current execution is always aborted after the callback.
type OnViolation func(Violation)

// PolicyGuard evaluates file, network, reflection and process-spawn
// requests against a dsl.SecurityPolicy, independent of isolation level.
type PolicyGuard struct {
	policy      dsl.SecurityPolicy
	workingDir  string
	allowedDirs []string
}

// NewPolicyGuard builds a guard for policy rooted at workingDir. When
// policy.AllowedDirectories is empty, workingDir is the sole allowed root.
func NewPolicyGuard(policy dsl.SecurityPolicy, workingDir string) *PolicyGuard {
	dirs := policy.AllowedDirectories
	if len(dirs) == 0 {
		dirs = []string{workingDir}
	}
	return &PolicyGuard{policy: policy, workingDir: workingDir, allowedDirs: dirs}
}

// CheckFileAccess resolves path (following symlinks where the filesystem
// allows) and rejects it unless it canonicalizes under one of the allowed
// directories.
func (g *PolicyGuard) CheckFileAccess(path string) error {
	if !g.policy.AllowFileSystemAccess {
		return pipelineerr.New(pipelineerr.KindSecurityViolation, "file system access is not permitted by the current policy")
	}

	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(g.workingDir, abs)
	}
	clean := resolveSymlinks(filepath.Clean(abs))

	for _, dir := range g.allowedDirs {
		root := resolveSymlinks(filepath.Clean(dir))
		if clean == root || strings.HasPrefix(clean, root+string(filepath.Separator)) {
			return nil
		}
	}
	return pipelineerr.New(pipelineerr.KindSecurityViolation, "path "+path+" is outside the allowed workspace directories")
}

// resolveSymlinks canonicalizes path by resolving symbolic links, so a
// link inside an allowed directory that points outside it is caught by
// the prefix comparison rather than passing on textual appearance alone.
// path need not exist: resolveSymlinks walks up to the nearest existing
// ancestor, resolves that, and rejoins the remaining (not-yet-created)
// segments unresolved.
func resolveSymlinks(path string) string {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		return resolved
	}

	dir, base := filepath.Dir(path), filepath.Base(path)
	if dir == path {
		return path
	}
	return filepath.Join(resolveSymlinks(dir), base)
}

// CheckNetworkAccess rejects outbound operations unless network access is
// allowed and, when an allowlist is configured, the host is on it.
func (g *PolicyGuard) CheckNetworkAccess(host string, allowlist []string) error {
	if !g.policy.AllowNetworkAccess {
		return pipelineerr.New(pipelineerr.KindSecurityViolation, "network access is not permitted by the current policy")
	}
	if len(allowlist) == 0 {
		return nil
	}
	for _, h := range allowlist {
		if h == host {
			return nil
		}
	}
	return pipelineerr.New(pipelineerr.KindSecurityViolation, "host "+host+" is not in the network allowlist")
}

// CheckReflection rejects reflection use unless explicitly allowed.
func (g *PolicyGuard) CheckReflection() error {
	if !g.policy.AllowReflection {
		return pipelineerr.New(pipelineerr.KindSecurityViolation, "reflection is not permitted by the current policy")
	}
	return nil
}

// CheckNativeCode rejects native-code invocation unless explicitly allowed.
func (g *PolicyGuard) CheckNativeCode() error {
	if !g.policy.AllowNativeCode {
		return pipelineerr.New(pipelineerr.KindSecurityViolation, "native code execution is not permitted by the current policy")
	}
	return nil
}

// CheckProcessSpawn denies process spawning under Default and Restricted
// presets; it is never permitted regardless of other flags because the
// policy vocabulary has no explicit "allow process spawn" switch.
func (g *PolicyGuard) CheckProcessSpawn() error {
	return pipelineerr.New(pipelineerr.KindSecurityViolation, "process spawning is denied under the active sandbox policy")
}
