package shunit

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethereum-optimism/infra/op-shunit/registry"
)

func TestRegisterUsesDefaultRegistry(t *testing.T) {
	_, file, line, _ := runtime.Caller(0)
	Register("testcase_default_registry", func(t *T) {}, "uses", "the default registry")

	test, ok := registry.Default.Lookup("testcase_default_registry")
	require.True(t, ok)
	assert.Equal(t, "uses the default registry", test.Metadata.Description)
	assert.Equal(t, file, test.Metadata.Source.File)
	assert.Equal(t, line+1, test.Metadata.Source.Line)
}

func TestHooksKeepEachOther(t *testing.T) {
	previous := registry.Default.Hooks()
	t.Cleanup(func() { registry.Default.SetHooks(previous) })

	Setup(func(t *T) {})
	Teardown(func(t *T) {})
	hooks := registry.Default.Hooks()
	assert.NotNil(t, hooks.Setup)
	assert.NotNil(t, hooks.Teardown)
}

func TestStringHelpers(t *testing.T) {
	assert.True(t, Equal("abc", "abc"))
	assert.False(t, Equal("abc", "abd"))
	assert.True(t, HasSuffix("report.yaml", ".yaml"))
	assert.False(t, HasSuffix("report.yaml", ".yml"))
	assert.True(t, HasSuffix("x", ""))
	assert.Equal(t, "1 test", "1 "+Pluralize("test", 1))
	assert.Equal(t, "tests", Pluralize("test", 2))
}
