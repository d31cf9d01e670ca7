package wizard

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_PutGetRoundTrip(t *testing.T) {
	cache, err := OpenCache(filepath.Join(t.TempDir(), "wizard.db"))
	require.NoError(t, err)
	defer cache.Close()

	_, found, err := cache.Get()
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, cache.Put([]byte(`{"version":2}`)))

	raw, found, err := cache.Get()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, `{"version":2}`, string(raw))
}
