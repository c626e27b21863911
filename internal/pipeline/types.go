// Package pipeline implements the pipeline state machine: Pipeline →
// Stage → Step orchestration, post-execution hooks, timing and lifecycle
// events.
package pipeline

import (
	"context"

	"github.com/R3E-Network/pipeline-engine/internal/workspace"
)

// Status is a stage or pipeline's terminal outcome.
type Status string

const (
	StatusSuccess Status = "Success"
	StatusFailure Status = "Failure"
)

// AgentKind tags the three Agent variants.
type AgentKind string

const (
	AgentAny        AgentKind = "Any"
	AgentDocker     AgentKind = "Docker"
	AgentKubernetes AgentKind = "Kubernetes"
)

// Agent selects where a pipeline's steps execute. Only Kind and the field
// matching it are meaningful; this module does not itself provision Docker
// or Kubernetes workers — it records the intent for an embedding scheduler.
type Agent struct {
	Kind       AgentKind
	DockerImage string
	DockerTag   string
	DockerHost  string
	KubernetesYAML string
}

// Labels derives the Agent's descriptive labels from its tag.
func (a Agent) Labels() map[string]string {
	switch a.Kind {
	case AgentDocker:
		return map[string]string{"agent": "docker", "image": a.DockerImage, "tag": a.DockerTag}
	case AgentKubernetes:
		return map[string]string{"agent": "kubernetes"}
	default:
		return map[string]string{"agent": "any"}
	}
}

// Environment is a read-only name→value mapping available to steps.
type Environment map[string]string

// StepContext is the scoped execution context a Step observes: a logger
// name hint, the read-only environment, and the workspace root. The
// concrete logger/workspace wiring is supplied by the engine constructing
// the pipeline, not by the pipeline itself.
type StepContext struct {
	Context   context.Context
	Stage     string
	Env       Environment
	Workspace *workspace.Workspace
	LoggerName string
}

// StepFunc is an opaque suspendable action returning a value or an error.
type StepFunc func(ctx StepContext) (any, error)

// PostHooks are the three optional hooks run after a stage or pipeline
// completes. Always runs unconditionally; OnSuccess/OnFailure run based on
// the preceding outcome. Secondary exceptions from hooks are swallowed
// into the log rather than propagated.
type PostHooks struct {
	Always    StepFunc
	OnSuccess StepFunc
	OnFailure StepFunc
}

func (h PostHooks) run(ctx StepContext, status Status, onHookError func(hook string, err error)) {
	if status == StatusSuccess && h.OnSuccess != nil {
		if _, err := h.OnSuccess(ctx); err != nil {
			onHookError("onSuccess", err)
		}
	}
	if status == StatusFailure && h.OnFailure != nil {
		if _, err := h.OnFailure(ctx); err != nil {
			onHookError("onFailure", err)
		}
	}
	if h.Always != nil {
		if _, err := h.Always(ctx); err != nil {
			onHookError("always", err)
		}
	}
}

// ParallelGroup is a named set of branches launched concurrently within a
// Stage; the group completes when all branches complete, and any branch
// failure cancels the remaining branches cooperatively.
type ParallelGroup map[string]StepFunc

// Stage is an ordered list of sequential Steps, or a single ParallelGroup,
// with its own local PostHooks.
type Stage struct {
	Name     string
	Steps    []StepFunc
	Parallel ParallelGroup
	Post     PostHooks
}

// StageResult is produced exactly once per stage attempt.
type StageResult struct {
	Name   string
	Status Status
}

// Definition is the static description of a Pipeline before it starts
// running: name, agent, environment, ordered stages and pipeline-level
// post hooks.
type Definition struct {
	Name  string
	Agent Agent
	Env   Environment
	Stages []Stage
	Post  PostHooks
}
