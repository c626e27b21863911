package dsl

import (
	"fmt"
	"time"

	"github.com/dop251/goja"

	"github.com/R3E-Network/pipeline-engine/internal/pipelineerr"
)

// JSEngine is a DslEngine backed by goja, a pure-Go ECMAScript runtime. Each
// Execute call allocates a fresh goja.Runtime for isolation, matching the
// teacher's gojaScriptEngine and TEEExecutor: no state leaks between runs,
// and an ExecutionContext.Timeout interrupts the runtime through goja's
// Interrupt rather than killing a thread.
type JSEngine struct {
	validator *Validator
}

// NewJSEngine builds a JSEngine using validator for Compile/Validate.
func NewJSEngine(validator *Validator) *JSEngine {
	if validator == nil {
		validator = NewValidator(nil)
	}
	return &JSEngine{validator: validator}
}

// Info returns the engine's static identity.
func (e *JSEngine) Info() EngineInfo {
	return EngineInfo{
		EngineID:            "goja-js",
		EngineName:          "goja ECMAScript engine",
		EngineVersion:       "1.0.0",
		SupportedExtensions: []string{"pipeline.js", "js"},
		Capabilities: map[Capability]bool{
			CapabilitySyntaxValidation: true,
			CapabilityTypeChecking:     false,
			CapabilityDebugging:        false,
			CapabilityParallelExecution: true,
			CapabilityEventStreaming:    false,
		},
	}
}

// Validate runs the six-layer validation pass with a zero-value compilation
// context and no resource limits. The zero-value policy denies network,
// file system, reflection and native code, so layer 2 still applies.
func (e *JSEngine) Validate(scriptName, source string) *Report {
	report := e.validator.Validate(scriptName, source, CompilationContext{}, nil)
	return &report
}

// Compile validates source against ctx and, on success, wraps it into a
// CompiledArtifact. goja has no separate bytecode-compile step for our
// purposes; Compile instead performs an eager goja.Compile syntax check so
// malformed scripts fail fast, before any Execute call.
func (e *JSEngine) Compile(ctx CompilationContext, scriptName, source string) (*CompiledArtifact, *Report, error) {
	report := e.validator.Validate(scriptName, source, ctx, nil)
	if !report.IsValid() {
		return nil, &report, pipelineerr.New(pipelineerr.KindDslEngine, "script failed validation").
			WithStage(scriptName)
	}

	if _, err := goja.Compile(scriptName, source, false); err != nil {
		report.Issues = append(report.Issues, Issue{
			Code:     "SYN099",
			Message:  err.Error(),
			Severity: SeverityError,
		})
		return nil, &report, pipelineerr.Wrap(pipelineerr.KindDslEngine, "goja compile failed", err)
	}

	return &CompiledArtifact{EngineID: e.Info().EngineID, Source: source, Entry: "main"}, &report, nil
}

// Execute runs artifact in a fresh goja.Runtime, honoring execCtx.Timeout via
// cooperative interruption and surfacing console.log output through
// ExecutionResult.Logs.
func (e *JSEngine) Execute(execCtx ExecutionContext, artifact *CompiledArtifact) (*ExecutionResult, error) {
	if artifact == nil {
		return nil, pipelineerr.New(pipelineerr.KindDslEngine, "artifact is nil")
	}

	rt := goja.New()
	logs := make([]string, 0, 8)
	attachConsole(rt, &logs)

	for k, v := range execCtx.Variables {
		if err := rt.Set(k, v); err != nil {
			return nil, pipelineerr.Wrap(pipelineerr.KindDslEngine, "bind variable "+k, err)
		}
	}

	stop := make(chan struct{})
	defer close(stop)
	if execCtx.Timeout != nil {
		timer := time.AfterFunc(*execCtx.Timeout, func() {
			rt.Interrupt(fmt.Errorf("execution exceeded timeout of %s", *execCtx.Timeout))
		})
		defer timer.Stop()
	}

	started := time.Now()
	entryExpr := fmt.Sprintf("(function(){ %s\nif (typeof %s === 'function') { return %s(); } return undefined; })();",
		artifact.Source, artifact.Entry, artifact.Entry)

	val, err := rt.RunString(entryExpr)
	if err != nil {
		return nil, translateRuntimeError(err)
	}

	var output any
	if val != nil && !goja.IsUndefined(val) && !goja.IsNull(val) {
		output = val.Export()
	}

	return &ExecutionResult{
		Output:   output,
		Logs:     logs,
		Duration: time.Since(started),
	}, nil
}

func attachConsole(rt *goja.Runtime, logs *[]string) {
	console := rt.NewObject()
	logFn := func(call goja.FunctionCall) goja.Value {
		args := make([]any, len(call.Arguments))
		for i, a := range call.Arguments {
			args[i] = a.Export()
		}
		*logs = append(*logs, fmt.Sprint(args...))
		return goja.Undefined()
	}
	_ = console.Set("log", logFn)
	_ = console.Set("info", logFn)
	_ = console.Set("warn", logFn)
	_ = console.Set("error", logFn)
	_ = rt.Set("console", console)
}

func translateRuntimeError(err error) error {
	switch typed := err.(type) {
	case *goja.InterruptedError:
		if v := typed.Value(); v != nil {
			if inner, ok := v.(error); ok {
				return pipelineerr.Cancelled(inner.Error())
			}
			return pipelineerr.Cancelled(fmt.Sprint(v))
		}
		return pipelineerr.Cancelled("execution interrupted")
	case *goja.Exception:
		return pipelineerr.Wrap(pipelineerr.KindDslEngine, typed.Error(), typed)
	default:
		return pipelineerr.Wrap(pipelineerr.KindDslEngine, "script execution failed", err)
	}
}
