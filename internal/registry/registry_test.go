package registry_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/pagevault/internal/config"
	"github.com/example/pagevault/internal/registry"
)

func newRegistry(t *testing.T) (*registry.Registry, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".env")
	st, err := config.Open(path)
	require.NoError(t, err)
	return registry.New(st, zap.NewNop()), path
}

func TestResolveAssignsStableCode(t *testing.T) {
	reg, _ := newRegistry(t)

	code, err := reg.Resolve("https://example.com/news")
	require.NoError(t, err)
	require.Len(t, code, 2)
	for i := 0; i < 2; i++ {
		assert.GreaterOrEqual(t, code[i], byte('A'))
		assert.LessOrEqual(t, code[i], byte('Z'))
	}

	again, err := reg.Resolve("https://example.com/news")
	require.NoError(t, err)
	assert.Equal(t, code, again)
}

func TestResolveDistinctURLsGetDistinctCodes(t *testing.T) {
	reg, _ := newRegistry(t)

	a, err := reg.Resolve("https://a.example")
	require.NoError(t, err)
	b, err := reg.Resolve("https://b.example")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestResolveEmptyURL(t *testing.T) {
	reg, _ := newRegistry(t)

	_, err := reg.Resolve("   ")
	assert.ErrorIs(t, err, registry.ErrEmptyURL)
}

func TestResolveSurvivesReopen(t *testing.T) {
	reg, path := newRegistry(t)

	code, err := reg.Resolve("https://example.com")
	require.NoError(t, err)

	st, err := config.Open(path)
	require.NoError(t, err)
	reg2 := registry.New(st, zap.NewNop())
	again, err := reg2.Resolve("https://example.com")
	require.NoError(t, err)
	assert.Equal(t, code, again)
}
