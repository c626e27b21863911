// pipelinectl is the one concrete embedding of the engine: it builds a
// Definition from Go struct literals (pipeline DSL surface syntax is out
// of scope), runs it through engine.Engine, and prints the resulting
// stage outcomes as JSON.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/R3E-Network/pipeline-engine/cmd/pipelinectl/examples"
	"github.com/R3E-Network/pipeline-engine/internal/config"
	"github.com/R3E-Network/pipeline-engine/internal/engine"
	"github.com/R3E-Network/pipeline-engine/internal/pipeline"
	"github.com/R3E-Network/pipeline-engine/internal/sandbox"
	"github.com/R3E-Network/pipeline-engine/internal/workspace"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runResult is what pipelinectl prints to stdout: a uuid-tagged run
// wrapper around the final stage results.
type runResult struct {
	RunID        string                 `json:"runId"`
	PipelineName string                 `json:"pipelineName"`
	StartedAt    time.Time              `json:"startedAt"`
	FinishedAt   time.Time              `json:"finishedAt"`
	StageResults []pipeline.StageResult `json:"stageResults"`
	Error        string                 `json:"error,omitempty"`
}

func run(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("pipelinectl", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	example := fs.String("example", "build-and-test", "built-in example pipeline to run")
	workdir := fs.String("workdir", "", "workspace root directory (defaults to a temp dir)")
	configPath := fs.String("config", "", "optional EngineConfig YAML file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	eng, err := engine.New(cfg)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	build, ok := examples.Definitions[*example]
	if !ok {
		return fmt.Errorf("unknown example %q", *example)
	}
	def := build(eng.DSL)
	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}
	defer eng.Shutdown(ctx, 2000)

	root := *workdir
	if root == "" {
		tmp, err := os.MkdirTemp("", "pipelinectl-*")
		if err != nil {
			return fmt.Errorf("create workspace: %w", err)
		}
		defer os.RemoveAll(tmp)
		root = tmp
	}
	ws, err := workspace.New(root, false)
	if err != nil {
		return fmt.Errorf("build workspace: %w", err)
	}

	logger := eng.Logging.GetLogger(def.Name)
	runID := uuid.NewString()
	started := time.Now()

	prun := pipeline.NewRun(def, ws, logger, eng.Bus).WithSandbox(sandbox.Config{
		Policy:     cfg.SecurityPolicy(),
		Limits:     cfg.ResourceLimits(),
		Isolation:  cfg.Isolation(),
		WorkingDir: ws.Pwd(),
	})
	results, runErr := prun.Execute(ctx)

	result := runResult{
		RunID:        runID,
		PipelineName: def.Name,
		StartedAt:    started,
		FinishedAt:   time.Now(),
		StageResults: results,
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}

	if runErr != nil {
		os.Exit(1)
	}
	return nil
}
