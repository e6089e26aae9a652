package adapter

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuiltins(t *testing.T) {
	r := NewRegistry()
	ids := r.IDs()
	assert.Contains(t, ids, "F_TypeScript")
	assert.Contains(t, ids, "F_ESLint")
	assert.Contains(t, ids, "B_Ruff")
	assert.Contains(t, ids, "B_Pyright")
	assert.Contains(t, ids, "B_Lizard")

	a, ok := r.New("B_Ruff")
	require.True(t, ok)
	assert.Equal(t, "B_Ruff", a.ID())

	_, ok = r.New("unknown")
	assert.False(t, ok)
}

func TestRuffAdapterSkipsOnNoMatchingFiles(t *testing.T) {
	a := &RuffAdapter{}
	argv, warn := a.BuildCommand("/tmp/proj", []string{"README.md"})
	assert.Nil(t, argv)
	assert.Empty(t, warn)
}

func TestRuffAdapterNarrowsToMatchingFiles(t *testing.T) {
	a := &RuffAdapter{}
	argv, _ := a.BuildCommand("/tmp/proj", []string{"README.md", "src/a.py", "src/b.py"})
	require.NotEmpty(t, argv)
	assert.Equal(t, []string{"ruff", "check", "src/a.py", "src/b.py"}, argv)
}

func TestRuffAdapterFullModeUsesCurrentDir(t *testing.T) {
	a := &RuffAdapter{}
	argv, _ := a.BuildCommand("/tmp/proj", nil)
	assert.Equal(t, []string{"ruff", "check", "."}, argv)
}

func TestInsertUnbufferedFlagOnlyForPython(t *testing.T) {
	assert.Equal(t, []string{"python", "-u", "-m", "ruff"}, insertUnbufferedFlag([]string{"python", "-m", "ruff"}))
	assert.Equal(t, []string{"ruff", "check"}, insertUnbufferedFlag([]string{"ruff", "check"}))
}

func TestFindConfigFileFallsBackToSubdirectory(t *testing.T) {
	root := t.TempDir()
	sub := root + "/service"
	require.NoError(t, os.MkdirAll(sub, 0o755))
	require.NoError(t, os.WriteFile(sub+"/tsconfig.json", []byte("{}"), 0o644))

	dir, fallback, found := findConfigFile(root, []string{"tsconfig.json"})
	assert.True(t, found)
	assert.True(t, fallback)
	assert.Equal(t, sub, dir)
}

func TestSummarizeReflectsExitCode(t *testing.T) {
	a := &TypeScriptAdapter{}
	assert.Contains(t, a.Summarize("", "", 0), "no type errors")
	assert.Contains(t, a.Summarize("", "", 1), "type errors found")
}
