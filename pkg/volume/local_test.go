package volume

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/noona-project/warden/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestNewLocalDriver(t *testing.T) {
	tmpDir := t.TempDir()

	driver, err := NewLocalDriver(tmpDir)
	require.NoError(t, err)
	require.Equal(t, tmpDir, driver.basePath)

	_, err = os.Stat(tmpDir)
	require.NoError(t, err)
}

func TestLocalDriver_ResolveAbsolute(t *testing.T) {
	driver, err := NewLocalDriver(t.TempDir())
	require.NoError(t, err)

	spec := types.VolumeSpec{Source: "/data/raven", Destination: "/data"}
	require.Equal(t, "/data/raven", driver.Resolve(spec))
}

func TestLocalDriver_ResolveRelative(t *testing.T) {
	base := t.TempDir()
	driver, err := NewLocalDriver(base)
	require.NoError(t, err)

	spec := types.VolumeSpec{Source: "cache-data", Destination: "/data"}
	require.Equal(t, filepath.Join(base, "cache-data"), driver.Resolve(spec))
}

func TestLocalDriver_Ensure(t *testing.T) {
	driver, err := NewLocalDriver(t.TempDir())
	require.NoError(t, err)

	spec := types.VolumeSpec{Source: "store-data", Destination: "/data"}
	path, err := driver.Ensure(spec)
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestLocalDriver_EnsureAll(t *testing.T) {
	driver, err := NewLocalDriver(t.TempDir())
	require.NoError(t, err)

	specs := []types.VolumeSpec{
		{Source: "a", Destination: "/a"},
		{Source: "b", Destination: "/b"},
	}

	paths, err := driver.EnsureAll(specs)
	require.NoError(t, err)
	require.Len(t, paths, 2)

	for _, p := range paths {
		_, statErr := os.Stat(p)
		require.NoError(t, statErr)
	}
}
