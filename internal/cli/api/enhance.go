package api

import (
	"context"

	"github.com/medlens-dev/medlens/internal/cli/auth"
	"github.com/medlens-dev/medlens/internal/cli/client"
)

// EnhanceAPI binds the image enhancement routes
type EnhanceAPI struct {
	gw client.Doer
}

func NewEnhanceAPI(gw client.Doer) *EnhanceAPI {
	return &EnhanceAPI{gw: gw}
}

func (a *EnhanceAPI) PCA(ctx context.Context, file client.File) (*client.Envelope, error) {
	return a.gw.Upload(ctx, auth.RoleUser, "/user/enhance/pca", file, nil)
}

func (a *EnhanceAPI) Basic(ctx context.Context, file client.File) (*client.Envelope, error) {
	return a.gw.Upload(ctx, auth.RoleUser, "/user/enhance/basic", file, nil)
}

func (a *EnhanceAPI) ApplyAll(ctx context.Context, file client.File) (*client.Envelope, error) {
	return a.gw.Upload(ctx, auth.RoleUser, "/user/enhance/applyAll", file, nil)
}
