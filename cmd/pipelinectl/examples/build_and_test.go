// Package examples holds Go-struct-literal pipeline definitions that
// pipelinectl can run, standing in for the DSL surface syntax that is out
// of scope for this module.
package examples

import (
	"fmt"

	"github.com/R3E-Network/pipeline-engine/internal/dsl"
	"github.com/R3E-Network/pipeline-engine/internal/pipeline"
	"github.com/R3E-Network/pipeline-engine/internal/pipeline/builder"
	"github.com/R3E-Network/pipeline-engine/internal/pipelineerr"
)

// Definitions maps an example name to a builder taking the engine's DSL
// registry, so a step can compile and execute a real script through it
// rather than only touching the workspace directly.
var Definitions = map[string]func(*dsl.Registry) pipeline.Definition{
	"build-and-test": buildAndTest,
}

// buildScript is run through the DSL registry's JavaScript engine during
// the build stage: it logs a compile message and returns the build
// version, which is written to the workspace's build log.
const buildScript = `
console.log("compiling");
function main() {
  return "1.0.0";
}
`

func buildAndTest(registry *dsl.Registry) pipeline.Definition {
	pb := builder.NewPipeline("build-and-test").
		WithAgent(builder.AnyAgent()).
		WithEnv(map[string]string{"CI": "true"}).
		Stage("build", func(s *builder.StageBuilder) {
			s.Step(func(ctx pipeline.StepContext) (any, error) {
				return runBuildScript(ctx, registry)
			})
			s.Post().Always(func(ctx pipeline.StepContext) (any, error) {
				fmt.Println("build stage finished")
				return nil, nil
			})
		}).
		Stage("test", func(s *builder.StageBuilder) {
			s.Parallel(map[string]builder.StepFunc{
				"unit": func(ctx pipeline.StepContext) (any, error) {
					return nil, nil
				},
				"integration": func(ctx pipeline.StepContext) (any, error) {
					return nil, nil
				},
			})
		})

	pb.Post().
		OnSuccess(func(ctx pipeline.StepContext) (any, error) {
			fmt.Println("pipeline succeeded")
			return nil, nil
		}).
		OnFailure(func(ctx pipeline.StepContext) (any, error) {
			fmt.Println("pipeline failed")
			return nil, nil
		})

	return pb.Build()
}

// runBuildScript compiles and executes buildScript through the registered
// "pipeline.js" DSL engine and writes its output and console log to the
// workspace's build.log file. Falls back to a direct workspace write if
// no registry, or no engine for that extension, is available.
func runBuildScript(ctx pipeline.StepContext, registry *dsl.Registry) (any, error) {
	if registry == nil {
		return nil, ctx.Workspace.Write("build.log", []byte("build ok\n"))
	}

	eng, ok := registry.ForExtension("pipeline.js")
	if !ok {
		return nil, ctx.Workspace.Write("build.log", []byte("build ok\n"))
	}

	artifact, report, err := eng.Compile(dsl.CompilationContext{}, "build.pipeline.js", buildScript)
	if err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.KindDslEngine, "compile build script", err)
	}
	if !report.IsValid() {
		return nil, pipelineerr.New(pipelineerr.KindDslEngine, "build script failed validation")
	}

	result, err := eng.Execute(dsl.ExecutionContext{Variables: map[string]any{}}, artifact)
	if err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.KindDslEngine, "execute build script", err)
	}

	log := fmt.Sprintf("build ok, version=%v\n", result.Output)
	for _, line := range result.Logs {
		log += line + "\n"
	}
	if err := ctx.Workspace.Write("build.log", []byte(log)); err != nil {
		return nil, err
	}
	return result.Output, nil
}
