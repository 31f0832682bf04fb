// Package modelcache is the process-wide model-library cache described
// in spec §5: a singleton registry that memoizes parsed model
// descriptions so repeated instantiate() calls against the same model
// don't reparse its XML. It generalizes the teacher's experiment
// registry (a name→constructor map, see internal/experiment/registry.go)
// from a static catalogue to a memoizing cache with insertion-immutable
// values and lock-free reads after insertion.
package modelcache

import (
	"sync"

	"fmigo/internal/modeldesc"
)

var (
	mu      sync.Mutex
	entries sync.Map // string -> *modeldesc.Description
)

// GetOrLoad returns the cached description for key, invoking load only
// on a miss. Insertion is serialized by mu (one producer during
// initialization, per spec §5); once inserted, a value never changes, so
// concurrent readers hit sync.Map directly without contending for mu.
func GetOrLoad(key string, load func() (*modeldesc.Description, error)) (*modeldesc.Description, error) {
	if v, ok := entries.Load(key); ok {
		return v.(*modeldesc.Description), nil
	}

	mu.Lock()
	defer mu.Unlock()

	if v, ok := entries.Load(key); ok {
		return v.(*modeldesc.Description), nil
	}

	desc, err := load()
	if err != nil {
		return nil, err
	}
	entries.Store(key, desc)
	return desc, nil
}

// Reset clears the cache. Intended for tests only; production code
// never needs to evict a description once loaded.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	entries.Range(func(k, _ any) bool {
		entries.Delete(k)
		return true
	})
}
