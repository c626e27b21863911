package plugin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassResolverAppliesBlockedPackagePrefix(t *testing.T) {
	loader := func(source Source, symbol string) (any, error) { return symbol, nil }
	r := NewClassResolver(Source{}, loader, nil, []string{"internal/"}, nil)

	_, err := r.Resolve("internal/secrets.Config")
	assert.Error(t, err)
}

func TestClassResolverRequiresAllowedPackagePrefix(t *testing.T) {
	loader := func(source Source, symbol string) (any, error) { return symbol, nil }
	r := NewClassResolver(Source{}, loader, []string{"plugin/"}, nil, nil)

	_, err := r.Resolve("plugin/Widget")
	require.NoError(t, err)

	_, err = r.Resolve("other/Widget")
	assert.Error(t, err)
}

func TestClassResolverRejectsSensitiveResource(t *testing.T) {
	loader := func(source Source, symbol string) (any, error) { return symbol, nil }
	r := NewClassResolver(Source{}, loader, nil, nil, nil)

	_, err := r.Resolve("config/credentials.yaml")
	assert.Error(t, err)
}

func TestClassResolverCachesResolutions(t *testing.T) {
	calls := 0
	loader := func(source Source, symbol string) (any, error) {
		calls++
		return symbol, nil
	}
	r := NewClassResolver(Source{}, loader, nil, nil, nil)

	_, err := r.Resolve("plugin/Widget")
	require.NoError(t, err)
	_, err = r.Resolve("plugin/Widget")
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
}

func TestClassResolverParentSymbolsTakePriorityOverLoader(t *testing.T) {
	loader := func(source Source, symbol string) (any, error) { return "from-loader", nil }
	r := NewClassResolver(Source{}, loader, nil, nil, map[string]any{"core/Logger": "from-parent"})

	v, err := r.Resolve("core/Logger")
	require.NoError(t, err)
	assert.Equal(t, "from-parent", v)
}

func TestClassResolverCloseRejectsFurtherResolutions(t *testing.T) {
	loader := func(source Source, symbol string) (any, error) { return symbol, nil }
	r := NewClassResolver(Source{}, loader, nil, nil, nil)
	r.Close()

	_, err := r.Resolve("plugin/Widget")
	assert.Error(t, err)
}
