package secrets

import (
	"context"
	"fmt"
	"sort"
)

// Manager resolves provider auth material across backends in Priority
// order: the keychain first, the encrypted file fallback second.
// Grounded on the teacher's registry/resolver priority-ordering concept
// (internal/secrets/resolver.go), narrowed to a fixed two-backend chain
// since DireClaw has no per-profile secret-provider configuration to
// route against; every key here is a provider credential the `claude`/
// `codex` CLI subprocess needs in its environment.
type Manager struct {
	backends []Backend
}

// NewManager builds a Manager over the keychain and an encrypted file
// fallback rooted at stateRoot, ordered by Priority (highest first).
func NewManager(stateRoot string) (*Manager, error) {
	file, err := NewFileBackend(stateRoot)
	if err != nil {
		return nil, fmt.Errorf("secrets: init file backend: %w", err)
	}
	backends := []Backend{NewKeychainBackend(), file}
	sort.SliceStable(backends, func(i, j int) bool {
		return backends[i].Priority() > backends[j].Priority()
	})
	return &Manager{backends: backends}, nil
}

// Get resolves key against each available backend in priority order,
// returning the first hit.
func (m *Manager) Get(ctx context.Context, key string) (string, error) {
	var lastErr error = ErrSecretNotFound
	for _, b := range m.backends {
		if !b.Available() {
			continue
		}
		value, err := b.Get(ctx, key)
		if err == nil {
			return value, nil
		}
		lastErr = err
	}
	return "", lastErr
}

// Set writes key to the highest-priority available backend. Provider
// credentials set through `direclaw provider`/`auth sync` always land in
// the keychain when one exists; the file fallback only receives writes
// when no keychain is reachable.
func (m *Manager) Set(ctx context.Context, key, value string) error {
	for _, b := range m.backends {
		if b.Available() {
			return b.Set(ctx, key, value)
		}
	}
	return fmt.Errorf("secrets: %w", ErrBackendUnavailable)
}

// Delete removes key from every backend that has it, so a credential
// rotated via `auth sync` never lingers in a backend the caller forgot
// about.
func (m *Manager) Delete(ctx context.Context, key string) error {
	deleted := false
	for _, b := range m.backends {
		if !b.Available() {
			continue
		}
		if err := b.Delete(ctx, key); err == nil {
			deleted = true
		}
	}
	if !deleted {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return nil
}

// List merges the keys known to every available backend, deduplicated
// and sorted, for `direclaw provider`'s listing output.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, b := range m.backends {
		if !b.Available() {
			continue
		}
		keys, err := b.List(ctx)
		if err != nil {
			continue
		}
		for _, k := range keys {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}
