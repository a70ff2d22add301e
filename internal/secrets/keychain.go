package secrets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	// KeychainPriority is checked before the encrypted file fallback.
	KeychainPriority = 50

	keychainService        = "direclaw"
	keychainAvailabilityKey = "__direclaw_availability_probe__"
)

// KeychainBackend stores secrets in the OS keychain: macOS Keychain
// Access, the Secret Service API on Linux (GNOME Keyring/KWallet), or
// Windows Credential Manager. Grounded directly on the teacher's
// internal/secrets/keychain.go, renamed to DireClaw's service id.
type KeychainBackend struct {
	available bool
}

// NewKeychainBackend probes keyring availability once at construction:
// a lookup of a key that should never exist distinguishes "service
// reachable, key absent" from "service locked/unreachable".
func NewKeychainBackend() *KeychainBackend {
	b := &KeychainBackend{available: true}

	_, err := keyring.Get(keychainService, keychainAvailabilityKey)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		b.available = false
	}
	return b
}

// Name implements Backend.
func (k *KeychainBackend) Name() string { return "keychain" }

// Get implements Backend.
func (k *KeychainBackend) Get(ctx context.Context, key string) (string, error) {
	if !k.available {
		return "", fmt.Errorf("%w: keychain service unavailable", ErrBackendUnavailable)
	}
	value, err := keyring.Get(keychainService, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", fmt.Errorf("%w: %s", ErrSecretNotFound, key)
		}
		if isKeychainUnavailableError(err) {
			return "", fmt.Errorf("%w: %s", ErrBackendUnavailable, err.Error())
		}
		return "", fmt.Errorf("keychain error: %w", err)
	}
	return value, nil
}

// Set implements Backend.
func (k *KeychainBackend) Set(ctx context.Context, key, value string) error {
	if !k.available {
		return fmt.Errorf("%w: keychain service unavailable", ErrBackendUnavailable)
	}
	if err := keyring.Set(keychainService, key, value); err != nil {
		if isKeychainUnavailableError(err) {
			return fmt.Errorf("%w: %s", ErrBackendUnavailable, err.Error())
		}
		return fmt.Errorf("keychain error: %w", err)
	}
	return nil
}

// Delete implements Backend.
func (k *KeychainBackend) Delete(ctx context.Context, key string) error {
	if !k.available {
		return fmt.Errorf("%w: keychain service unavailable", ErrBackendUnavailable)
	}
	if err := keyring.Delete(keychainService, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrSecretNotFound, key)
		}
		if isKeychainUnavailableError(err) {
			return fmt.Errorf("%w: %s", ErrBackendUnavailable, err.Error())
		}
		return fmt.Errorf("keychain error: %w", err)
	}
	return nil
}

// List implements Backend. go-keyring has no enumeration API on any
// platform, so this always returns an empty list rather than an error,
// Manager's file backend is the source of truth for key enumeration.
func (k *KeychainBackend) List(ctx context.Context) ([]string, error) {
	if !k.available {
		return nil, fmt.Errorf("%w: keychain service unavailable", ErrBackendUnavailable)
	}
	return []string{}, nil
}

// Available implements Backend.
func (k *KeychainBackend) Available() bool { return k.available }

// Priority implements Backend.
func (k *KeychainBackend) Priority() int { return KeychainPriority }

func isKeychainUnavailableError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, indicator := range []string{
		"locked", "cannot access", "permission denied", "failed to unlock",
		"user interaction required", "secret service", "dbus", "user canceled",
	} {
		if strings.Contains(msg, indicator) {
			return true
		}
	}
	return false
}
