package builder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/pipeline-engine/internal/pipeline"
)

func TestBuilderAssemblesDefinitionMatchingSpecExample(t *testing.T) {
	var built []string

	record := func(name string) StepFunc {
		return func(ctx pipeline.StepContext) (any, error) {
			built = append(built, name)
			return nil, nil
		}
	}

	def := NewPipeline("build-and-test").
		WithAgent(AnyAgent()).
		Stage("build", func(s *StageBuilder) {
			s.Step(record("buildStep"))
			s.Post().OnFailure(record("notifyFailure")).Always(record("cleanup"))
		}).
		Stage("test", func(s *StageBuilder) {
			s.Parallel(map[string]StepFunc{
				"unit":        record("unitTests"),
				"integration": record("integrationTests"),
			})
		}).
		Post().OnSuccess(record("notifySuccess")).Always(record("archiveArtifacts")).
		Build()

	assert.Equal(t, "build-and-test", def.Name)
	require.Len(t, def.Stages, 2)
	assert.Equal(t, "build", def.Stages[0].Name)
	assert.Len(t, def.Stages[0].Steps, 1)
	assert.NotNil(t, def.Stages[0].Post.OnFailure)
	assert.NotNil(t, def.Stages[0].Post.Always)

	assert.Equal(t, "test", def.Stages[1].Name)
	assert.Len(t, def.Stages[1].Parallel, 2)
	assert.NotNil(t, def.Post.OnSuccess)
	assert.NotNil(t, def.Post.Always)
}

func TestRunExecutesDefinitionBuiltByBuilder(t *testing.T) {
	var order []string

	def := NewPipeline("simple").
		Stage("only", func(s *StageBuilder) {
			s.Step(func(ctx pipeline.StepContext) (any, error) {
				order = append(order, "step")
				return nil, nil
			})
		}).
		Build()

	run := pipeline.NewRun(def, nil, nil, nil)
	results, err := run.Execute(context.Background())

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, pipeline.StatusSuccess, results[0].Status)
	assert.Equal(t, []string{"step"}, order)
}
