package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rilla-project/rilla/internal/monitoring"
)

func init() {
	monitoring.SetLogger(nil)
}

func writeLib(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadMissingRegistryIsEmpty(t *testing.T) {
	r, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, r.Models)
}

func TestAddLibraryFromSubckt(t *testing.T) {
	dir := t.TempDir()
	r, err := Load(dir)
	require.NoError(t, err)

	lib := writeLib(t, "psmn.lib", "* vendor model\n.subckt PSMN1R4-100CSE d g s\n.ends\n")
	model, err := r.AddLibrary(lib)
	require.NoError(t, err)
	assert.Equal(t, "PSMN1R4-100CSE", model.Name)

	// The library is copied under the config directory.
	assert.Equal(t, filepath.Join(dir, "user_models", "psmn.lib"), model.Path)
	_, err = os.Stat(model.Path)
	assert.NoError(t, err)

	// And survives a reload.
	r2, err := Load(dir)
	require.NoError(t, err)
	got, ok := r2.Find("psmn1r4-100cse")
	require.True(t, ok, "lookup is case-insensitive")
	assert.Equal(t, model, got)
}

func TestAddLibraryFallsBackToFileStem(t *testing.T) {
	r, err := Load(t.TempDir())
	require.NoError(t, err)

	lib := writeLib(t, "GENERIC_NMOS.lib", ".model GENERIC_NMOS NMOS(VTO=2)\n")
	model, err := r.AddLibrary(lib)
	require.NoError(t, err)
	assert.Equal(t, "GENERIC_NMOS", model.Name)
}

func TestAddLibraryTwiceUpdatesInPlace(t *testing.T) {
	r, err := Load(t.TempDir())
	require.NoError(t, err)

	content := ".subckt FDB8447L d g s\n.ends\n"
	_, err = r.AddLibrary(writeLib(t, "fdb_v1.lib", content))
	require.NoError(t, err)
	model, err := r.AddLibrary(writeLib(t, "fdb_v2.lib", content))
	require.NoError(t, err)

	require.Len(t, r.Models, 1)
	assert.Contains(t, model.Path, "fdb_v2.lib")
}

func TestRemove(t *testing.T) {
	dir := t.TempDir()
	r, err := Load(dir)
	require.NoError(t, err)

	_, err = r.AddLibrary(writeLib(t, "a.lib", ".subckt DUT_A d g s\n.ends\n"))
	require.NoError(t, err)

	removed, err := r.Remove("dut_a")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = r.Remove("dut_a")
	require.NoError(t, err)
	assert.False(t, removed)

	r2, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, r2.Models)
}
