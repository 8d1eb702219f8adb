package api

import (
	"sync"
	"time"
)

// Registry tracks live widget connections by instance id.
type Registry struct {
	mu   sync.RWMutex
	live map[string]time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{live: make(map[string]time.Time)}
}

// Add records a connected widget instance.
func (r *Registry) Add(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live[id] = time.Now()
}

// Remove drops a disconnected widget instance. Unknown ids are ignored.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, id)
}

// Count returns the number of live widget instances.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.live)
}
