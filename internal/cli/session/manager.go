package session

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/medlens-dev/medlens/internal/cli/api"
	"github.com/medlens-dev/medlens/internal/cli/auth"
)

// Manager owns the user and admin sessions. The two share a credential store
// but never each other's keys or locks.
type Manager struct {
	User  *Session
	Admin *Session
}

// NewManager builds both sessions over the same API bindings and store
func NewManager(a *api.API, tokens auth.TokenStore, logger zerolog.Logger) *Manager {
	return &Manager{
		User:  New(auth.RoleUser, UserBackend(a.User), tokens, WithLogger(logger)),
		Admin: New(auth.RoleAdmin, AdminBackend(a.Admin), tokens, WithLogger(logger)),
	}
}

// For returns the session for role
func (m *Manager) For(role auth.Role) (*Session, error) {
	switch role {
	case auth.RoleUser:
		return m.User, nil
	case auth.RoleAdmin:
		return m.Admin, nil
	}
	return nil, fmt.Errorf("%w: %q", auth.ErrUnknownRole, string(role))
}

// ResolveOnStartup resolves both sessions; the channel closes when both
// background profile refreshes have finished
func (m *Manager) ResolveOnStartup(ctx context.Context) <-chan struct{} {
	userDone := m.User.ResolveOnStartup(ctx)
	adminDone := m.Admin.ResolveOnStartup(ctx)

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-userDone
		<-adminDone
	}()
	return done
}
