package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/R3E-Network/pipeline-engine/internal/eventbus"
	"github.com/R3E-Network/pipeline-engine/internal/logging"
	"github.com/R3E-Network/pipeline-engine/internal/metrics"
	"github.com/R3E-Network/pipeline-engine/internal/pipelineerr"
	"github.com/R3E-Network/pipeline-engine/internal/sandbox"
	"github.com/R3E-Network/pipeline-engine/internal/workspace"
)

const currentStageSentinel = "initial pipeline"

// Run drives one Pipeline execution through its publish → run stages →
// run post hooks sequence. It is owned exclusively by the goroutine that
// calls Execute; no other goroutine may observe or mutate it concurrently.
type Run struct {
	Definition   Definition
	CurrentStage string
	StageResults []StageResult
	Variables    map[string]any
	ws           *workspace.Workspace
	logger       *logging.Logger
	bus          *eventbus.Bus
	sandboxCfg   sandbox.Config
	hookErrorLog func(hook, stage string, err error)
}

// NewRun builds a Run ready to Execute. Stages run under sandbox.Config{}
// (no policy, no limits, isolation "") until WithSandbox configures one;
// that zero Config still routes every stage through a sandbox.Manager, so
// whatever a caller later attaches to it takes effect without further
// plumbing.
func NewRun(def Definition, ws *workspace.Workspace, logger *logging.Logger, bus *eventbus.Bus) *Run {
	return &Run{
		Definition:   def,
		CurrentStage: currentStageSentinel,
		ws:           ws,
		logger:       logger,
		bus:          bus,
	}
}

// WithVariables attaches a JSONPath-resolvable variable source; stage
// environments are interpolated against it ("${$.build.version}") before
// each stage runs.
func (r *Run) WithVariables(vars map[string]any) *Run {
	r.Variables = vars
	return r
}

// WithSandbox attaches the security policy, resource limits and isolation
// level every stage's steps run under. cfg.WorkingDir defaults to the
// Run's workspace root when left blank.
func (r *Run) WithSandbox(cfg sandbox.Config) *Run {
	r.sandboxCfg = cfg
	return r
}

// Execute runs every stage of the pipeline in order, honoring cooperative
// cancellation via ctx at each stage boundary and step yield point.
func (r *Run) Execute(ctx context.Context) ([]StageResult, error) {
	r.publish(eventbus.StartEvent("pipeline"))

	var runErr error
	for _, stage := range r.Definition.Stages {
		if err := ctx.Err(); err != nil {
			runErr = pipelineerr.Cancelled("pipeline cancelled before stage " + stage.Name)
			break
		}

		r.CurrentStage = stage.Name
		r.publish(eventbus.StartEvent(stage.Name))
		started := time.Now()

		status, stageErr := r.runStage(ctx, stage)
		elapsed := time.Since(started)

		r.publish(eventbus.EndEvent(stage.Name, elapsed.Milliseconds(), string(status)))
		metrics.RecordStageDuration(stage.Name, string(status), elapsed)
		r.StageResults = append(r.StageResults, StageResult{Name: stage.Name, Status: status})

		if status == StatusFailure {
			runErr = stageErr
			break
		}
	}

	overall := StatusSuccess
	for _, sr := range r.StageResults {
		if sr.Status == StatusFailure {
			overall = StatusFailure
			break
		}
	}

	pipelineCtx := StepContext{Context: ctx, Env: r.Definition.Env, Workspace: r.ws}
	r.Definition.Post.run(pipelineCtx, overall, r.logHookError("pipeline"))
	metrics.RecordPipelineExecution(string(overall))

	return r.StageResults, runErr
}

func (r *Run) runStage(ctx context.Context, stage Stage) (Status, error) {
	env := r.Definition.Env
	if r.Variables != nil {
		env = InterpolateEnv(env, r.Variables)
	}
	stepCtx := StepContext{Context: ctx, Stage: stage.Name, Env: env, Workspace: r.ws, LoggerName: stage.Name}

	mgr := r.sandboxManager(stage.Name)
	execErr := mgr.Run(ctx, func(sctx context.Context, yield func() error) error {
		stepCtx.Context = sctx
		if stage.Parallel != nil {
			return runParallel(sctx, stepCtx, stage.Parallel, yield)
		}
		return runSequential(stepCtx, stage.Steps, yield)
	})

	if execErr != nil {
		stage.Post.run(stepCtx, StatusFailure, r.logHookError(stage.Name))
		return StatusFailure, pipelineerr.Runtime(stage.Name, "", execErr)
	}

	stage.Post.run(stepCtx, StatusSuccess, r.logHookError(stage.Name))
	return StatusSuccess, nil
}

// sandboxManager builds the sandbox.Manager a stage's steps run under,
// defaulting WorkingDir to the run's workspace and routing unhandled
// violations to the pipeline logger.
func (r *Run) sandboxManager(stageName string) *sandbox.Manager {
	cfg := r.sandboxCfg
	if cfg.WorkingDir == "" && r.ws != nil {
		cfg.WorkingDir = r.ws.Pwd()
	}
	if cfg.OnViolation == nil {
		logger := r.logger
		cfg.OnViolation = func(v sandbox.Violation) {
			if logger != nil {
				logger.Warn(context.Background(), "sandbox violation in "+stageName+": "+string(v.Kind)+" "+v.Detail)
			}
		}
	}
	return sandbox.NewManager(cfg)
}

// runSequential runs steps in order, calling yield after each one so the
// owning sandbox.Manager can enforce wall-time/memory/CPU limits between
// steps.
func runSequential(ctx StepContext, steps []StepFunc, yield func() error) error {
	for _, step := range steps {
		if err := ctx.Context.Err(); err != nil {
			return err
		}
		if _, err := step(ctx); err != nil {
			return err
		}
		if err := yield(); err != nil {
			return err
		}
	}
	return nil
}

// runParallel launches every branch concurrently; on the first branch
// failure, the shared context is cancelled so the remaining branches
// observe it at their next yield point. This is a hand-rolled
// wait-for-all-or-first-error group rather than golang.org/x/sync, which
// is absent from this module's dependency stack. Each branch calls yield
// after its step completes; LimitMonitor's checks are read-only and safe
// to call from multiple goroutines.
func runParallel(parent context.Context, ctx StepContext, group ParallelGroup, yield func() error) error {
	branchCtx, cancel := context.WithCancel(parent)
	defer cancel()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		firstErr error
	)

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for name, fn := range group {
		wg.Add(1)
		go func(branchName string, step StepFunc) {
			defer wg.Done()
			branchStepCtx := ctx
			branchStepCtx.Context = branchCtx
			branchStepCtx.LoggerName = ctx.Stage + "." + branchName

			if _, err := step(branchStepCtx); err != nil {
				fail(err)
				return
			}
			if err := yield(); err != nil {
				fail(err)
			}
		}(name, fn)
	}

	wg.Wait()
	return firstErr
}

func (r *Run) publish(ev eventbus.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

func (r *Run) logHookError(stage string) func(hook string, err error) {
	return func(hook string, err error) {
		if r.logger != nil {
			r.logger.Warn(context.Background(), "post hook "+hook+" failed in "+stage+": "+err.Error())
		}
	}
}
