package orchestrator

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/mitchellh/copystructure"
	"github.com/mitchellh/hashstructure/v2"
)

// ResultCache maps task fingerprints to outputs for the lifetime of a
// coordinator. Entries never expire. Outputs are deep-copied on the way in
// and out, so callers mutating a result never change what later hits see.
type ResultCache struct {
	mu      sync.RWMutex
	entries map[string]any
}

// NewResultCache creates an empty cache.
func NewResultCache() *ResultCache {
	return &ResultCache{entries: make(map[string]any)}
}

// Fingerprint derives the cache key for a worker type and input. Maps hash
// independently of iteration order; pointers hash like the value they point
// to. Inputs holding values that cannot be hashed (funcs, channels) return
// an error and should bypass the cache.
func Fingerprint(workerType string, input any) (string, error) {
	key := struct {
		WorkerType string
		InputType  string
		Input      any
	}{workerType, inputType(input), input}

	h, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s input: %w", workerType, err)
	}
	return workerType + ":" + strconv.FormatUint(h, 16), nil
}

// inputType names the dynamic type of input so nil, 0 and "0" never collide.
func inputType(input any) string {
	t := reflect.TypeOf(input)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

// Get returns a private copy of the cached output for fingerprint.
func (c *ResultCache) Get(fingerprint string) (any, bool) {
	c.mu.RLock()
	out, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	cp, err := cloneOutput(out)
	if err != nil {
		return nil, false
	}
	return cp, true
}

// Put stores a copy of output under fingerprint. Outputs that cannot be
// copied are not cached.
func (c *ResultCache) Put(fingerprint string, output any) error {
	cp, err := cloneOutput(output)
	if err != nil {
		return fmt.Errorf("copy output for cache: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[fingerprint] = cp
	return nil
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// cloneOutput deep-copies maps, slices and pointers. Unexported struct
// fields are not carried over.
func cloneOutput(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	return copystructure.Copy(v)
}
