package auth

// TokenStore defines the interface for token storage operations.
// LoadToken returns an empty string and a nil error when no token is stored.
// A new SaveToken for a role overwrites the previous one.
type TokenStore interface {
	SaveToken(role Role, token string) error
	LoadToken(role Role) (string, error)
	DeleteToken(role Role) error
}
