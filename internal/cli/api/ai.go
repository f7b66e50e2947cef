package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/medlens-dev/medlens/internal/cli/auth"
	"github.com/medlens-dev/medlens/internal/cli/client"
)

// AIAPI binds the image analysis and assistant chat routes
type AIAPI struct {
	gw client.Doer
}

func NewAIAPI(gw client.Doer) *AIAPI {
	return &AIAPI{gw: gw}
}

func (a *AIAPI) Classify(ctx context.Context, file client.File) (*client.Envelope, error) {
	return a.gw.Upload(ctx, auth.RoleUser, "/user/ai/classify", file, nil)
}

func (a *AIAPI) Segment(ctx context.Context, file client.File) (*client.Envelope, error) {
	return a.gw.Upload(ctx, auth.RoleUser, "/user/ai/segment", file, nil)
}

func (a *AIAPI) Diagnose(ctx context.Context, file client.File) (*client.Envelope, error) {
	return a.gw.Upload(ctx, auth.RoleUser, "/user/ai/diagnosis", file, nil)
}

// The backend spells "record" as "Recode" in these routes.

func (a *AIAPI) DetectionRecords(ctx context.Context, page PageQuery) (*client.Envelope, error) {
	if env := check(page); env != nil {
		return env, nil
	}
	return a.gw.Do(ctx, auth.RoleUser, client.Request{
		Path:   "/user/ai/detectionRecodePageQuery",
		Method: http.MethodPost,
		Body:   page,
	})
}

func (a *AIAPI) DetectionRecordDetail(ctx context.Context, id string) (*client.Envelope, error) {
	if id == "" {
		return &client.Envelope{Code: CodeInvalidRequest, Message: "record id is required"}, nil
	}
	return a.gw.Do(ctx, auth.RoleUser, client.Request{
		Path:   "/user/ai/detectionRecodeDetail/" + url.PathEscape(id),
		Method: http.MethodGet,
	})
}

// NewMemoryID starts a new assistant conversation
func NewMemoryID() string {
	return uuid.NewString()
}

func (a *AIAPI) Chat(ctx context.Context, req ChatRequest) (*client.Envelope, error) {
	if env := check(req); env != nil {
		return env, nil
	}
	return a.gw.Do(ctx, auth.RoleUser, client.Request{
		Path:   "/user/ai/chat",
		Method: http.MethodPost,
		Body:   req,
	})
}

func (a *AIAPI) ChatRecords(ctx context.Context, page PageQuery) (*client.Envelope, error) {
	if env := check(page); env != nil {
		return env, nil
	}
	return a.gw.Do(ctx, auth.RoleUser, client.Request{
		Path:   "/user/ai/chatRecodePageQuery",
		Method: http.MethodPost,
		Body:   page,
	})
}

func (a *AIAPI) ChatRecordDetail(ctx context.Context, memoryID string) (*client.Envelope, error) {
	if memoryID == "" {
		return &client.Envelope{Code: CodeInvalidRequest, Message: "memory id is required"}, nil
	}
	return a.gw.Do(ctx, auth.RoleUser, client.Request{
		Path:   "/user/ai/chatRecodeDetail/" + url.PathEscape(memoryID),
		Method: http.MethodGet,
	})
}
