package session

import (
	"context"
	"errors"

	"github.com/medlens-dev/medlens/internal/cli/api"
	"github.com/medlens-dev/medlens/internal/cli/client"
)

// ErrProfileUnsupported is returned by a Backend whose role has no profile routes
var ErrProfileUnsupported = errors.New("profile is not supported for this role")

// Backend is the role-specific set of account routes a Session drives
type Backend interface {
	Login(ctx context.Context, creds api.Credentials) (*client.Envelope, error)
	Register(ctx context.Context, reg api.Registration) (*client.Envelope, error)
	Profile(ctx context.Context) (*client.Envelope, error)
	UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*client.Envelope, error)
	Logout(ctx context.Context) (*client.Envelope, error)
}

type userBackend struct {
	api *api.UserAPI
}

// UserBackend adapts the user routes to a Backend
func UserBackend(u *api.UserAPI) Backend {
	return &userBackend{api: u}
}

func (b *userBackend) Login(ctx context.Context, creds api.Credentials) (*client.Envelope, error) {
	return b.api.Login(ctx, creds)
}

func (b *userBackend) Register(ctx context.Context, reg api.Registration) (*client.Envelope, error) {
	return b.api.Register(ctx, reg)
}

func (b *userBackend) Profile(ctx context.Context) (*client.Envelope, error) {
	return b.api.GetUserInfo(ctx)
}

func (b *userBackend) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*client.Envelope, error) {
	return b.api.UpdateUser(ctx, update)
}

func (b *userBackend) Logout(ctx context.Context) (*client.Envelope, error) {
	return b.api.Logout(ctx)
}

// adminBackend has no profile routes on the server
type adminBackend struct {
	api *api.AdminAPI
}

// AdminBackend adapts the admin routes to a Backend
func AdminBackend(a *api.AdminAPI) Backend {
	return &adminBackend{api: a}
}

func (b *adminBackend) Login(ctx context.Context, creds api.Credentials) (*client.Envelope, error) {
	return b.api.Login(ctx, creds)
}

func (b *adminBackend) Register(ctx context.Context, reg api.Registration) (*client.Envelope, error) {
	return b.api.Register(ctx, reg)
}

func (b *adminBackend) Profile(ctx context.Context) (*client.Envelope, error) {
	return nil, ErrProfileUnsupported
}

func (b *adminBackend) UpdateProfile(ctx context.Context, update api.ProfileUpdate) (*client.Envelope, error) {
	return nil, ErrProfileUnsupported
}

func (b *adminBackend) Logout(ctx context.Context) (*client.Envelope, error) {
	return b.api.Logout(ctx)
}
