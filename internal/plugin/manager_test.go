package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlugin struct {
	id       string
	started  bool
	shutdown bool
}

func (p *fakePlugin) ID() string     { return p.id }
func (p *fakePlugin) Start() error   { p.started = true; return nil }
func (p *fakePlugin) Shutdown() error { p.shutdown = true; return nil }

func newTestManager(metas map[string]Metadata) (*Manager, map[string]*fakePlugin) {
	instances := make(map[string]*fakePlugin)

	parseMetadata := func(path string) (Metadata, error) {
		meta, ok := metas[path]
		if !ok {
			return Metadata{}, assertableError("no metadata for " + path)
		}
		return meta, nil
	}

	newResolver := func(meta Metadata, parentSymbols map[string]any) (*ClassResolver, error) {
		return NewClassResolver(Source{}, nil, meta.AllowedPackages, meta.BlockedPackages, parentSymbols), nil
	}

	resolveMain := func(resolver *ClassResolver, mainClass string) (Interface, error) {
		p := &fakePlugin{id: mainClass}
		instances[mainClass] = p
		return p, nil
	}

	m := NewManager(parseMetadata, nil, newResolver, resolveMain, nil)
	return m, instances
}

type assertableError string

func (e assertableError) Error() string { return string(e) }

func TestManagerLoadSucceedsAndRegisters(t *testing.T) {
	metas := map[string]Metadata{
		"a.zip": {ID: "plugin-a", Version: "1.0.0", MainClass: "main.PluginA"},
	}
	m, _ := newTestManager(metas)

	result := m.Load("a.zip")
	require.False(t, result.Failed())

	loaded, ok := m.Get("plugin-a")
	require.True(t, ok)
	assert.Equal(t, StateLoaded, loaded.State)
}

func TestManagerLoadFailsOnMissingMainClass(t *testing.T) {
	metas := map[string]Metadata{
		"bad.zip": {ID: "plugin-b", Version: "1.0.0"},
	}
	m, _ := newTestManager(metas)

	result := m.Load("bad.zip")
	require.True(t, result.Failed())
	_, ok := m.Get("plugin-b")
	assert.False(t, ok)
}

func TestManagerLoadRejectsDuplicateID(t *testing.T) {
	metas := map[string]Metadata{
		"a.zip":  {ID: "plugin-a", Version: "1.0.0", MainClass: "main.A"},
		"a2.zip": {ID: "plugin-a", Version: "2.0.0", MainClass: "main.A2"},
	}
	m, _ := newTestManager(metas)

	require.False(t, m.Load("a.zip").Failed())
	result := m.Load("a2.zip")
	assert.True(t, result.Failed())
}

func TestManagerUnloadInvokesShutdownAndRemoves(t *testing.T) {
	metas := map[string]Metadata{
		"a.zip": {ID: "plugin-a", Version: "1.0.0", MainClass: "main.A"},
	}
	m, instances := newTestManager(metas)
	require.False(t, m.Load("a.zip").Failed())

	require.NoError(t, m.Unload("plugin-a"))
	_, ok := m.Get("plugin-a")
	assert.False(t, ok)
	assert.True(t, instances["main.A"].shutdown)
}

func TestManagerReloadFailsForUnknownID(t *testing.T) {
	m, _ := newTestManager(map[string]Metadata{})
	result := m.Reload("nonexistent", "a.zip")
	assert.True(t, result.Failed())
}

func TestManagerReloadReplacesPlugin(t *testing.T) {
	metas := map[string]Metadata{
		"a.zip": {ID: "plugin-a", Version: "1.0.0", MainClass: "main.A"},
	}
	m, _ := newTestManager(metas)
	require.False(t, m.Load("a.zip").Failed())

	result := m.Reload("plugin-a", "a.zip")
	require.False(t, result.Failed())
	loaded, ok := m.Get("plugin-a")
	require.True(t, ok)
	assert.Equal(t, StateLoaded, loaded.State)
}
