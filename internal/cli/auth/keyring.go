package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "medlens-cli"
)

// KeyringStore persists tokens in the OS keychain/credential manager.
// Entries are namespaced by server so tokens for different backends never mix.
type KeyringStore struct {
	namespace string
}

// NewKeyringStore creates a keyring-backed store for the given server namespace
func NewKeyringStore(namespace string) *KeyringStore {
	return &KeyringStore{namespace: namespace}
}

// keyringKey returns a unique key for storing a role's token per server
func keyringKey(role Role, namespace string) string {
	return fmt.Sprintf("%s-token@%s", role, namespace)
}

// SaveToken persists the token securely in the OS keychain/credential manager
func (s *KeyringStore) SaveToken(role Role, token string) error {
	if err := checkRole(role); err != nil {
		return err
	}
	if err := keyring.Set(service, keyringKey(role, s.namespace), token); err != nil {
		return fmt.Errorf("failed to save %s token: %w", role, err)
	}
	return nil
}

// LoadToken retrieves the token from the OS keychain/credential manager
func (s *KeyringStore) LoadToken(role Role) (string, error) {
	if err := checkRole(role); err != nil {
		return "", err
	}
	token, err := keyring.Get(service, keyringKey(role, s.namespace))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to load %s token: %w", role, err)
	}
	return token, nil
}

// DeleteToken removes the token from the OS keychain/credential manager
func (s *KeyringStore) DeleteToken(role Role) error {
	if err := checkRole(role); err != nil {
		return err
	}
	if err := keyring.Delete(service, keyringKey(role, s.namespace)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete %s token: %w", role, err)
	}
	return nil
}
