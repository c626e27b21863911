package sandbox

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/pipeline-engine/internal/dsl"
	"github.com/R3E-Network/pipeline-engine/internal/metrics"
	"github.com/R3E-Network/pipeline-engine/internal/pipelineerr"
)

// State is one of the five Sandbox Manager lifecycle states.
type State string

const (
	StateConfigured State = "Configured"
	StateRunning    State = "Running"
	StateCompleted  State = "Completed"
	StateViolated   State = "Violated"
	StateTimedOut   State = "TimedOut"
	StateCancelled  State = "Cancelled"
)

// Manager enforces a DslSecurityPolicy and DslResourceLimits over one
// script execution, at the isolation level the caller selected. Violations
// are fatal: the sandbox never retries a run.
type Manager struct {
	mu         sync.Mutex
	state      State
	guard      *PolicyGuard
	limits     *LimitMonitor
	isolation  dsl.IsolationLevel
	onViolation OnViolation
}

// Config configures a sandbox Manager for a single run.
type Config struct {
	Policy      dsl.SecurityPolicy
	Limits      dsl.ResourceLimits
	Isolation   dsl.IsolationLevel
	WorkingDir  string
	OnViolation OnViolation
}

// NewManager builds a Manager in the Configured state.
func NewManager(cfg Config) *Manager {
	onViolation := cfg.OnViolation
	if onViolation == nil {
		onViolation = func(Violation) {}
	}
	return &Manager{
		state:       StateConfigured,
		guard:       NewPolicyGuard(cfg.Policy, cfg.WorkingDir),
		limits:      NewLimitMonitor(cfg.Limits),
		isolation:   cfg.Isolation,
		onViolation: onViolation,
	}
}

// State returns the manager's current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Guard exposes the policy guard for callers that need to check file,
// network, reflection or process-spawn access inline.
func (m *Manager) Guard() *PolicyGuard { return m.guard }

// Limits exposes the limit monitor for inline thread/file-handle accounting.
func (m *Manager) Limits() *LimitMonitor { return m.limits }

// Run executes fn in its own goroutine under sandbox supervision and hands
// it a yield callback; every yield reports cancellation of ctx. Under None
// isolation limits are advisory only: yield checks nothing else and no
// wall-time deadline applies. Under every other level yield runs the
// LimitMonitor's wall-time, memory and CPU checks, and Run returns a
// wall-time error once MaxWallTimeMs elapses (after fn has returned).
// ClassLoader, Process and Container isolation are handled exactly like
// Thread: no separate resolver, child process or container is set up, and
// no violation is reported for that.
func (m *Manager) Run(ctx context.Context, fn func(ctx context.Context, yield func() error) error) error {
	m.transition(StateRunning)

	wallDeadline := wallTimeoutOrForever(m.limits)
	if m.isolation == dsl.IsolationNone {
		wallDeadline = 365 * 24 * time.Hour
	}

	yield := func() error {
		if err := ctx.Err(); err != nil {
			m.fail(StateCancelled, ViolationKind(""), "")
			return pipelineerr.Cancelled("execution cancelled")
		}
		if m.isolation == dsl.IsolationNone {
			return nil
		}
		if err := m.limits.CheckAll(); err != nil {
			kind, detail := classifyLimitError(err)
			m.fail(StateViolated, kind, detail)
			return err
		}
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- fn(ctx, yield)
	}()

	select {
	case err := <-done:
		if err != nil {
			if m.State() == StateRunning {
				m.transition(StateViolated)
			}
			return err
		}
		m.transition(StateCompleted)
		return nil
	case <-ctx.Done():
		m.fail(StateCancelled, "", "")
		<-done
		return pipelineerr.Cancelled("execution cancelled by context")
	case <-time.After(wallDeadline):
		m.fail(StateTimedOut, ViolationWallLimit, "wall time deadline reached")
		<-done
		return pipelineerr.LimitExceeded(pipelineerr.KindWallLimit, "wall time limit exceeded")
	}
}

func wallTimeoutOrForever(m *LimitMonitor) time.Duration {
	if m.limits.MaxWallTimeMs == nil {
		return 365 * 24 * time.Hour
	}
	return time.Duration(*m.limits.MaxWallTimeMs) * time.Millisecond
}

func (m *Manager) transition(s State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = s
}

func (m *Manager) fail(s State, kind ViolationKind, detail string) {
	m.transition(s)
	if kind != "" {
		metrics.RecordSandboxViolation(string(kind))
		m.onViolation(newViolation(kind, detail))
	}
}

func classifyLimitError(err error) (ViolationKind, string) {
	pe, ok := err.(*pipelineerr.Error)
	if !ok {
		return "", err.Error()
	}
	switch pe.Kind {
	case pipelineerr.KindMemoryLimit:
		return ViolationMemoryLimit, pe.Message
	case pipelineerr.KindCpuLimit:
		return ViolationCPULimit, pe.Message
	case pipelineerr.KindWallLimit:
		return ViolationWallLimit, pe.Message
	default:
		return "", pe.Message
	}
}
