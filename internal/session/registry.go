package session

import (
	"sync"

	"go.uber.org/zap"
)

// StoreFactory builds the persisted store of one client key.
type StoreFactory func(key string) Store

// Registry hands out one Manager per client key, creating it on first use.
type Registry struct {
	newStore StoreFactory
	access   AccessLogger
	log      *zap.Logger

	mu       sync.Mutex
	managers map[string]*Manager
}

func NewRegistry(newStore StoreFactory, access AccessLogger, log *zap.Logger) *Registry {
	return &Registry{
		newStore: newStore,
		access:   access,
		log:      log,
		managers: make(map[string]*Manager),
	}
}

func (r *Registry) For(key string) *Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m, ok := r.managers[key]; ok {
		return m
	}
	m := NewManager(r.newStore(key), r.access, r.log)
	r.managers[key] = m
	return m
}

// Each calls fn for every manager created so far.
func (r *Registry) Each(fn func(key string, m *Manager)) {
	r.mu.Lock()
	snapshot := make(map[string]*Manager, len(r.managers))
	for k, m := range r.managers {
		snapshot[k] = m
	}
	r.mu.Unlock()

	for k, m := range snapshot {
		fn(k, m)
	}
}
