// Package builder is a fluent Go API for assembling a pipeline.Definition
// without exposing a separate textual DSL surface syntax.
package builder

import "github.com/R3E-Network/pipeline-engine/internal/pipeline"

// StepFunc mirrors pipeline.StepFunc so callers need not import the
// pipeline package directly when only building a Definition.
type StepFunc = pipeline.StepFunc

// PipelineBuilder accumulates a Definition. StageBuilder instances it hands
// to stage closures cannot escape it: they are constructed internally and
// passed only into the closure argument, so a step body (which only ever
// receives a StepExecutionContext) has no path back to the builder.
type PipelineBuilder struct {
	def pipeline.Definition
}

// NewPipeline starts a PipelineBuilder named name.
func NewPipeline(name string) *PipelineBuilder {
	return &PipelineBuilder{def: pipeline.Definition{Name: name, Env: pipeline.Environment{}}}
}

// WithAgent sets the pipeline's Agent.
func (b *PipelineBuilder) WithAgent(agent pipeline.Agent) *PipelineBuilder {
	b.def.Agent = agent
	return b
}

// WithEnv merges vars into the pipeline's Environment.
func (b *PipelineBuilder) WithEnv(vars map[string]string) *PipelineBuilder {
	for k, v := range vars {
		b.def.Env[k] = v
	}
	return b
}

// Stage appends a named stage, configured by configure.
func (b *PipelineBuilder) Stage(name string, configure func(*StageBuilder)) *PipelineBuilder {
	sb := &StageBuilder{stage: pipeline.Stage{Name: name}}
	configure(sb)
	b.def.Stages = append(b.def.Stages, sb.stage)
	return b
}

// Post returns a PostHooksBuilder for the pipeline's own post-execution hooks.
func (b *PipelineBuilder) Post() *PostHooksBuilder {
	return &PostHooksBuilder{target: &b.def.Post}
}

// Build finalizes and returns the assembled Definition.
func (b *PipelineBuilder) Build() pipeline.Definition {
	return b.def
}

// StageBuilder configures one Stage. It is only ever passed into a Stage
// configuration closure and cannot be retained past that closure's return
// in any way that lets a caller add further stages.
type StageBuilder struct {
	stage pipeline.Stage
}

// Step appends a sequential step to the stage.
func (s *StageBuilder) Step(fn StepFunc) *StageBuilder {
	s.stage.Steps = append(s.stage.Steps, fn)
	return s
}

// Parallel replaces the stage's step list with a named parallel group.
func (s *StageBuilder) Parallel(branches map[string]StepFunc) *StageBuilder {
	group := make(pipeline.ParallelGroup, len(branches))
	for name, fn := range branches {
		group[name] = fn
	}
	s.stage.Parallel = group
	return s
}

// Post returns a PostHooksBuilder for this stage's local post hooks.
func (s *StageBuilder) Post() *PostHooksBuilder {
	return &PostHooksBuilder{target: &s.stage.Post}
}

// PostHooksBuilder configures the three optional PostHooks.
type PostHooksBuilder struct {
	target *pipeline.PostHooks
}

// Always sets the hook that runs regardless of outcome.
func (p *PostHooksBuilder) Always(fn StepFunc) *PostHooksBuilder {
	p.target.Always = fn
	return p
}

// OnSuccess sets the hook that runs only after a successful outcome.
func (p *PostHooksBuilder) OnSuccess(fn StepFunc) *PostHooksBuilder {
	p.target.OnSuccess = fn
	return p
}

// OnFailure sets the hook that runs only after a failed outcome.
func (p *PostHooksBuilder) OnFailure(fn StepFunc) *PostHooksBuilder {
	p.target.OnFailure = fn
	return p
}

// AnyAgent builds the Any-variant Agent.
func AnyAgent() pipeline.Agent {
	return pipeline.Agent{Kind: pipeline.AgentAny}
}

// DockerAgent builds the Docker-variant Agent.
func DockerAgent(image, tag, host string) pipeline.Agent {
	return pipeline.Agent{Kind: pipeline.AgentDocker, DockerImage: image, DockerTag: tag, DockerHost: host}
}

// KubernetesAgent builds the Kubernetes-variant Agent.
func KubernetesAgent(yaml string) pipeline.Agent {
	return pipeline.Agent{Kind: pipeline.AgentKubernetes, KubernetesYAML: yaml}
}
