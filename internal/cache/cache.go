// Package cache stores computed embeddings keyed by model fingerprint
// and input text, so repeated requests for the same sentence skip the
// forward pass.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// Store is a lookup table from cache keys to embedding vectors.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the cached vector and whether it was present.
	Get(key string) ([]float64, bool, error)
	// Put inserts or replaces the vector under key.
	Put(key string, vec []float64) error
	Close() error
}

// Key derives the cache key for a piece of text under a given model
// fingerprint. Different models never share entries.
func Key(fingerprint, text string) string {
	h := sha256.New()
	h.Write([]byte(fingerprint))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Memory is an in-process Store. It copies vectors on both paths so
// callers cannot alias the stored data.
type Memory struct {
	mu sync.RWMutex
	m  map[string][]float64
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string][]float64)}
}

func (c *Memory) Get(key string) ([]float64, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	vec, ok := c.m[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]float64, len(vec))
	copy(out, vec)
	return out, true, nil
}

func (c *Memory) Put(key string, vec []float64) error {
	stored := make([]float64, len(vec))
	copy(stored, vec)
	c.mu.Lock()
	c.m[key] = stored
	c.mu.Unlock()
	return nil
}

func (c *Memory) Close() error { return nil }
