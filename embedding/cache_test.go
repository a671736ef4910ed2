package embedding

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := OpenCache(filepath.Join(t.TempDir(), "embeddings.db"))
	require.NoError(t, err)
	t.Cleanup(func() { cache.Close() })
	return cache
}

// TestKey verifies the cache key is deterministic and sensitive to both the
// model and the URL.
func TestKey(t *testing.T) {
	k1 := Key("nomic-embed-text", "https://example.com/a")

	assert.Equal(t, k1, Key("nomic-embed-text", "https://example.com/a"))
	assert.NotEqual(t, k1, Key("other-model", "https://example.com/a"))
	assert.NotEqual(t, k1, Key("nomic-embed-text", "https://example.com/b"))
	assert.Len(t, k1, 64)
}

// TestCacheMiss verifies a miss is nil, nil rather than an error.
func TestCacheMiss(t *testing.T) {
	cache := setupTestCache(t)

	entry, err := cache.Get("nope")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

// TestCachePutGet verifies a stored embedding round-trips.
func TestCachePutGet(t *testing.T) {
	cache := setupTestCache(t)
	key := Key("m", "https://example.com/a")

	require.NoError(t, cache.Put(CachedEmbedding{
		Key:    key,
		URL:    "https://example.com/a",
		Model:  "m",
		Vector: []float64{0.5, -1.25, 3},
	}))

	entry, err := cache.Get(key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "https://example.com/a", entry.URL)
	assert.Equal(t, "m", entry.Model)
	assert.Equal(t, []float64{0.5, -1.25, 3}, entry.Vector)
	assert.False(t, entry.CreatedAt.IsZero(), "created_at should be recorded")
}

// TestCacheReplace verifies a second Put under the same key wins.
func TestCacheReplace(t *testing.T) {
	cache := setupTestCache(t)
	key := Key("m", "https://example.com/a")

	require.NoError(t, cache.Put(CachedEmbedding{Key: key, URL: "https://example.com/a", Model: "m", Vector: []float64{1}}))
	require.NoError(t, cache.Put(CachedEmbedding{Key: key, URL: "https://example.com/a", Model: "m", Vector: []float64{2, 3}}))

	entry, err := cache.Get(key)
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, []float64{2, 3}, entry.Vector)
}
