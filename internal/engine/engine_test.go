package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/R3E-Network/pipeline-engine/internal/config"
)

func TestNewWiresSubsystemsWithJSEngineRegistered(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)

	require.NotNil(t, e.Logging)
	require.NotNil(t, e.DSL)
	require.NotNil(t, e.Plugins)
	require.NotNil(t, e.Bus)

	eng, ok := e.DSL.ForExtension("pipeline.js")
	require.True(t, ok)
	assert.Equal(t, "goja-js", eng.Info().EngineID)
}

func TestStartThenShutdownDrainsLoggingCore(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)

	require.NoError(t, e.Start(context.Background()))
	assert.NoError(t, e.Shutdown(context.Background(), 500))
}

func TestShutdownWithoutStartIsNoop(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)
	assert.NoError(t, e.Shutdown(context.Background(), 500))
}

func TestPluginLoadFailsCleanlyWithoutPluginSupportConfigured(t *testing.T) {
	e, err := New(config.Default())
	require.NoError(t, err)

	result := e.Plugins.Load("/tmp/does-not-matter.plugin")
	assert.True(t, result.Failed())
}
