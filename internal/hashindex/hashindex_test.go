package hashindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHamming(t *testing.T) {
	assert.Equal(t, 0, Hamming(0xABCD, 0xABCD))
	assert.Equal(t, 1, Hamming(0b1000, 0b0000))
	assert.Equal(t, 64, Hamming(0, ^uint64(0)))
}

func TestMemoryIndexRoundtrip(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	_, ok, err := idx.VariantHash(ctx, "examplesite", "1080p")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, idx.Put(ctx, "examplesite", "1080p", 0xAA))

	hash, ok, err := idx.VariantHash(ctx, "examplesite", "1080p")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(0xAA), hash)
}

func TestMemoryIndexReferenceTracksLatestPut(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	_, ok, err := idx.ReferenceHash(ctx, "examplesite")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, idx.Put(ctx, "examplesite", "1080p", 0xAA))
	require.NoError(t, idx.Put(ctx, "examplesite", "720p", 0xBB))

	ref, ok, err := idx.ReferenceHash(ctx, "examplesite")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint64(0xBB), ref)
}

func TestMemoryIndexSitesAreIsolated(t *testing.T) {
	idx := NewMemoryIndex()
	ctx := context.Background()

	require.NoError(t, idx.Put(ctx, "site-a", "1080p", 0xAA))

	_, ok, err := idx.VariantHash(ctx, "site-b", "1080p")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = idx.ReferenceHash(ctx, "site-b")
	require.NoError(t, err)
	assert.False(t, ok)
}
