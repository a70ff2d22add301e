package secrets

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/direclaw/direclaw/internal/fsutil"
)

const (
	// FilePriority is below KeychainPriority: the keychain is always
	// tried first, this backend only serves environments without one.
	FilePriority = 25

	masterKeyEnvVar    = "DIRECLAW_MASTER_KEY"
	masterKeyringEntry = "direclaw-secrets-master-key"
	storeFilename      = "store.enc"
)

// FileBackend is the encrypted-at-rest fallback for environments with no
// keychain service (headless CI, some Linux containers). The master key
// is itself stored in the keychain when available, falling back to
// DIRECLAW_MASTER_KEY (base64); FileBackend only reads that key once, at
// construction, per boot.
type FileBackend struct {
	path string
	enc  *boxEncryptor

	mu sync.Mutex
}

// NewFileBackend returns a FileBackend rooted at
// <stateRoot>/secrets/store.enc, resolving (and persisting, if newly
// generated) a master key via resolveMasterKey.
func NewFileBackend(stateRoot string) (*FileBackend, error) {
	key, err := resolveMasterKey()
	if err != nil {
		return nil, err
	}
	enc, err := newBoxEncryptor(key)
	if err != nil {
		return nil, err
	}
	return &FileBackend{
		path: filepath.Join(stateRoot, "secrets", storeFilename),
		enc:  enc,
	}, nil
}

// resolveMasterKey tries the OS keychain first, then DIRECLAW_MASTER_KEY,
// generating and persisting a fresh key to whichever is available if
// neither already holds one. A keychain-unavailable environment with no
// env var set ends up with a key that only survives for this process,
// callers should export DIRECLAW_MASTER_KEY if they need persistence
// across restarts without a keychain.
func resolveMasterKey() ([]byte, error) {
	kc := NewKeychainBackend()
	if kc.Available() {
		if encoded, err := kc.Get(context.Background(), masterKeyringEntry); err == nil {
			return base64.StdEncoding.DecodeString(encoded)
		}
	}

	if encoded := os.Getenv(masterKeyEnvVar); encoded != "" {
		return base64.StdEncoding.DecodeString(encoded)
	}

	key, err := GenerateMasterKey()
	if err != nil {
		return nil, err
	}
	if kc.Available() {
		_ = kc.Set(context.Background(), masterKeyringEntry, base64.StdEncoding.EncodeToString(key))
	}
	return key, nil
}

// Name implements Backend.
func (f *FileBackend) Name() string { return "file" }

// Available implements Backend: the file backend has no external
// dependency, so it is always usable once constructed.
func (f *FileBackend) Available() bool { return true }

// Priority implements Backend.
func (f *FileBackend) Priority() int { return FilePriority }

// Get implements Backend.
func (f *FileBackend) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	store, err := f.load()
	if err != nil {
		return "", err
	}
	value, ok := store[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	return value, nil
}

// Set implements Backend.
func (f *FileBackend) Set(ctx context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	store, err := f.load()
	if err != nil {
		return err
	}
	store[key] = value
	return f.save(store)
}

// Delete implements Backend.
func (f *FileBackend) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	store, err := f.load()
	if err != nil {
		return err
	}
	if _, ok := store[key]; !ok {
		return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
	}
	delete(store, key)
	return f.save(store)
}

// List implements Backend.
func (f *FileBackend) List(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	store, err := f.load()
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(store))
	for k := range store {
		keys = append(keys, k)
	}
	return keys, nil
}

// load reads and decrypts the store file, returning an empty map if it
// doesn't exist yet.
func (f *FileBackend) load() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("secrets: read store: %w", err)
	}

	plaintext, err := f.enc.Decrypt(data)
	if err != nil {
		return nil, fmt.Errorf("secrets: decrypt store: %w", err)
	}

	var store map[string]string
	if err := json.Unmarshal(plaintext, &store); err != nil {
		return nil, fmt.Errorf("secrets: parse store: %w", err)
	}
	return store, nil
}

// save encrypts and atomically writes the store file.
func (f *FileBackend) save(store map[string]string) error {
	plaintext, err := json.Marshal(store)
	if err != nil {
		return fmt.Errorf("secrets: marshal store: %w", err)
	}
	ciphertext, err := f.enc.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("secrets: encrypt store: %w", err)
	}
	return fsutil.WriteAtomic(f.path, ciphertext, 0o600)
}
