package auth

import "sync"

// MemoryStore keeps tokens in process memory only
type MemoryStore struct {
	mu     sync.RWMutex
	tokens map[Role]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tokens: make(map[Role]string)}
}

func (m *MemoryStore) SaveToken(role Role, token string) error {
	if err := checkRole(role); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens[role] = token
	return nil
}

func (m *MemoryStore) LoadToken(role Role) (string, error) {
	if err := checkRole(role); err != nil {
		return "", err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tokens[role], nil
}

func (m *MemoryStore) DeleteToken(role Role) error {
	if err := checkRole(role); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, role)
	return nil
}
