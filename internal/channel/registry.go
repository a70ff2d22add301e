package channel

import (
	"sync"

	direrrors "github.com/direclaw/direclaw/pkg/errors"
)

// Registry holds one Adapter per configured channel profile, keyed by
// channel id (for "local"/"heartbeat") or channel profile id (for
// multi-profile external channels like slack). Grounded on
// internal/connector/registry.go's RWMutex-guarded map-plus-Get shape,
// repurposed here for inbound channel adapters instead of outbound API
// connectors.
type Registry struct {
	mu       sync.RWMutex
	adapters map[string]Adapter
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{adapters: make(map[string]Adapter)}
}

// Register adds or replaces the adapter for a given key (channel id or
// channel_profile_id, per spec §2's channel-profile model).
func (r *Registry) Register(key string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.adapters[key] = a
}

// Get retrieves the adapter registered under key.
func (r *Registry) Get(key string) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.adapters[key]
	if !ok {
		return nil, &direrrors.ChannelNotFoundError{ChannelID: key}
	}
	return a, nil
}

// Keys returns every registered adapter key, for the supervisor to spawn
// one channel_<profile> worker per entry.
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.adapters))
	for k := range r.adapters {
		keys = append(keys, k)
	}
	return keys
}
