// Package hashindex stores perceptual hashes of completed downloads so
// later passes can prefer the variant nearest a previously accepted
// file instead of re-fetching a near-duplicate at a different bitrate.
package hashindex

import (
	"context"
	"math/bits"
	"sync"
)

// Distance measures how far apart two 64-bit perceptual hashes are.
// The exact metric is a policy parameter; Hamming is the default.
type Distance func(a, b uint64) int

// Hamming counts differing bits between two hashes.
func Hamming(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}

// Index is the hash store consumed by the download planner.
type Index interface {
	// Put records the hash of an accepted download for a variant and
	// marks it as the site's current reference.
	Put(ctx context.Context, site, variant string, hash uint64) error

	// VariantHash returns the known hash of a variant, if any.
	VariantHash(ctx context.Context, site, variant string) (uint64, bool, error)

	// ReferenceHash returns the hash of the site's most recently
	// accepted download, if any.
	ReferenceHash(ctx context.Context, site string) (uint64, bool, error)
}

// MemoryIndex is an in-process Index. Used as the default when no
// Redis is configured, and in tests.
type MemoryIndex struct {
	mu       sync.RWMutex
	variants map[string]uint64
	refs     map[string]uint64
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{
		variants: make(map[string]uint64),
		refs:     make(map[string]uint64),
	}
}

func variantKey(site, variant string) string {
	return site + ":" + variant
}

// Put records a hash and updates the site reference.
func (m *MemoryIndex) Put(ctx context.Context, site, variant string, hash uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.variants[variantKey(site, variant)] = hash
	m.refs[site] = hash
	return nil
}

// VariantHash returns the known hash of a variant.
func (m *MemoryIndex) VariantHash(ctx context.Context, site, variant string) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.variants[variantKey(site, variant)]
	return h, ok, nil
}

// ReferenceHash returns the site's reference hash.
func (m *MemoryIndex) ReferenceHash(ctx context.Context, site string) (uint64, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.refs[site]
	return h, ok, nil
}
