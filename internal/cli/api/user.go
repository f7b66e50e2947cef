package api

import (
	"context"
	"net/http"

	"github.com/medlens-dev/medlens/internal/cli/auth"
	"github.com/medlens-dev/medlens/internal/cli/client"
)

// UserAPI binds the end-user account routes
type UserAPI struct {
	gw client.Doer
}

func NewUserAPI(gw client.Doer) *UserAPI {
	return &UserAPI{gw: gw}
}

func (a *UserAPI) Login(ctx context.Context, creds Credentials) (*client.Envelope, error) {
	if env := check(creds); env != nil {
		return env, nil
	}
	return a.gw.Do(ctx, auth.RoleUser, client.Request{
		Path:   "/user/user/login",
		Method: http.MethodPost,
		Body:   creds,
	})
}

func (a *UserAPI) Register(ctx context.Context, reg Registration) (*client.Envelope, error) {
	if env := check(reg); env != nil {
		return env, nil
	}
	return a.gw.Do(ctx, auth.RoleUser, client.Request{
		Path:   "/user/user/register",
		Method: http.MethodPost,
		Body:   reg,
	})
}

func (a *UserAPI) GetUserInfo(ctx context.Context) (*client.Envelope, error) {
	return a.gw.Do(ctx, auth.RoleUser, client.Request{
		Path:   "/user/user/getUserInfo",
		Method: http.MethodGet,
	})
}

func (a *UserAPI) UpdateUser(ctx context.Context, update ProfileUpdate) (*client.Envelope, error) {
	if len(update) == 0 {
		return &client.Envelope{Code: CodeInvalidRequest, Message: "nothing to update"}, nil
	}
	return a.gw.Do(ctx, auth.RoleUser, client.Request{
		Path:   "/user/user/updateUser",
		Method: http.MethodPost,
		Body:   update,
	})
}

func (a *UserAPI) Logout(ctx context.Context) (*client.Envelope, error) {
	return a.gw.Do(ctx, auth.RoleUser, client.Request{
		Path:   "/user/user/logout",
		Method: http.MethodGet,
	})
}

// UploadImage stores an image on the backend and returns its URL in data
func (a *UserAPI) UploadImage(ctx context.Context, file client.File) (*client.Envelope, error) {
	return a.gw.Upload(ctx, auth.RoleUser, "/user/common/upload/image", file, nil)
}
