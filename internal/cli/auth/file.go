package auth

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/medlens-dev/medlens/internal/cli/userconfig"
)

const credentialsFileName = "credentials.json"

// FileStore persists tokens in a 0600 JSON file, for hosts without a keychain.
// The file maps namespace -> role -> token.
type FileStore struct {
	mu        sync.Mutex
	path      string
	namespace string
}

// NewFileStore creates a file-backed store at path for the given server namespace
func NewFileStore(path, namespace string) *FileStore {
	return &FileStore{path: path, namespace: namespace}
}

// DefaultCredentialsPath returns ~/.config/medlens/credentials.json
func DefaultCredentialsPath() (string, error) {
	dir, err := userconfig.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, credentialsFileName), nil
}

type credentialsFile map[string]map[Role]string

func (f *FileStore) read() (credentialsFile, error) {
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return credentialsFile{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	creds := credentialsFile{}
	if len(data) == 0 {
		return creds, nil
	}
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	return creds, nil
}

// write replaces the file atomically (tmp + rename)
func (f *FileStore) write(creds credentialsFile) error {
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(f.path)
			if err := os.Rename(tmp, f.path); err == nil {
				return nil
			}
		}
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace credentials file: %w", err)
	}
	return nil
}

func (f *FileStore) SaveToken(role Role, token string) error {
	if err := checkRole(role); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.read()
	if err != nil {
		return err
	}
	if creds[f.namespace] == nil {
		creds[f.namespace] = make(map[Role]string)
	}
	creds[f.namespace][role] = token
	return f.write(creds)
}

func (f *FileStore) LoadToken(role Role) (string, error) {
	if err := checkRole(role); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.read()
	if err != nil {
		return "", err
	}
	return creds[f.namespace][role], nil
}

func (f *FileStore) DeleteToken(role Role) error {
	if err := checkRole(role); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	creds, err := f.read()
	if err != nil {
		return err
	}
	entries, ok := creds[f.namespace]
	if !ok {
		return nil
	}
	if _, ok := entries[role]; !ok {
		return nil
	}
	delete(entries, role)
	if len(entries) == 0 {
		delete(creds, f.namespace)
	}
	return f.write(creds)
}
