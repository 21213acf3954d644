package game

import (
	"fmt"
	"sort"
	"sync"
)

// Factory is a function that creates a new engine instance.
type Factory func() Engine

var (
	factories = make(map[string]Factory)
	mu        sync.RWMutex
)

// Register adds an engine factory to the registry.
// Typically called from an engine package's init() function.
// Panics if an engine with the same ID is already registered.
func Register(id string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := factories[id]; exists {
		panic(fmt.Sprintf("game: engine %q already registered", id))
	}
	factories[id] = f
}

// New creates a fresh engine instance for the given game ID.
func New(id string) (Engine, error) {
	mu.RLock()
	f, ok := factories[id]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("game: unknown engine %q", id)
	}
	return f(), nil
}

// List returns the IDs of all registered engines, sorted.
func List() []string {
	mu.RLock()
	defer mu.RUnlock()

	ids := make([]string, 0, len(factories))
	for id := range factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
