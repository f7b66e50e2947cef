package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/medlens-dev/medlens/internal/cli/auth"
	"github.com/medlens-dev/medlens/internal/cli/client"
)

// StatisticsKind names one of the admin statistics reports
type StatisticsKind string

const (
	DiagnosisStatistics StatisticsKind = "diagnosisStatistics"
	ClassifyStatistics  StatisticsKind = "classifyStatistics"
	ChatStatistics      StatisticsKind = "chatStatistics"
)

// AdminAPI binds the administrator routes
type AdminAPI struct {
	gw client.Doer
}

func NewAdminAPI(gw client.Doer) *AdminAPI {
	return &AdminAPI{gw: gw}
}

func (a *AdminAPI) Login(ctx context.Context, creds Credentials) (*client.Envelope, error) {
	if env := check(creds); env != nil {
		return env, nil
	}
	return a.gw.Do(ctx, auth.RoleAdmin, client.Request{
		Path:   "/admin/admin/login",
		Method: http.MethodPost,
		Body:   creds,
	})
}

func (a *AdminAPI) Register(ctx context.Context, reg Registration) (*client.Envelope, error) {
	if env := check(reg); env != nil {
		return env, nil
	}
	return a.gw.Do(ctx, auth.RoleAdmin, client.Request{
		Path:   "/admin/admin/register",
		Method: http.MethodPost,
		Body:   reg,
	})
}

func (a *AdminAPI) Logout(ctx context.Context) (*client.Envelope, error) {
	return a.gw.Do(ctx, auth.RoleAdmin, client.Request{
		Path:   "/admin/admin/logout",
		Method: http.MethodGet,
	})
}

func (a *AdminAPI) QueryUsers(ctx context.Context, query UserQuery) (*client.Envelope, error) {
	if env := check(query); env != nil {
		return env, nil
	}
	return a.gw.Do(ctx, auth.RoleAdmin, client.Request{
		Path:   "/admin/admin/queryUser",
		Method: http.MethodPost,
		Body:   query,
	})
}

func (a *AdminAPI) DeleteUser(ctx context.Context, id string) (*client.Envelope, error) {
	if id == "" {
		return &client.Envelope{Code: CodeInvalidRequest, Message: "user id is required"}, nil
	}
	return a.gw.Do(ctx, auth.RoleAdmin, client.Request{
		Path:   "/admin/admin/deleteUser/" + url.PathEscape(id),
		Method: http.MethodGet,
	})
}

// Statistics fetches one report for the given date range
func (a *AdminAPI) Statistics(ctx context.Context, kind StatisticsKind, r DateRange) (*client.Envelope, error) {
	if env := check(r); env != nil {
		return env, nil
	}
	return a.gw.Do(ctx, auth.RoleAdmin, client.Request{
		Path:   "/admin/statistics/" + string(kind),
		Method: http.MethodGet,
		Query:  url.Values{"startTime": {r.StartTime}, "endTime": {r.EndTime}},
	})
}
