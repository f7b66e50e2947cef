// Package api holds the thin per-domain endpoint bindings. Each function maps
// to one backend route and funnels through the transport gateway with the
// role that owns the route; none of them interpret the envelope code.
package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/medlens-dev/medlens/internal/cli/client"
)

// CodeInvalidRequest marks an envelope synthesized locally for a request that
// failed validation and was never sent
const CodeInvalidRequest = "invalid_request"

var validate = validator.New(validator.WithRequiredStructEnabled())

// API groups the endpoint modules over one gateway
type API struct {
	User    *UserAPI
	Admin   *AdminAPI
	AI      *AIAPI
	Enhance *EnhanceAPI
}

// New binds every module to gw
func New(gw client.Doer) *API {
	return &API{
		User:    NewUserAPI(gw),
		Admin:   NewAdminAPI(gw),
		AI:      NewAIAPI(gw),
		Enhance: NewEnhanceAPI(gw),
	}
}

// check validates v and, on failure, returns the application-level envelope
// the caller should hand back instead of making the call
func check(v any) *client.Envelope {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	return &client.Envelope{Code: CodeInvalidRequest, Message: describe(err)}
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := lowerFirst(fe.Field())
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		case "email":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid email address", field))
		case "datetime":
			msgs = append(msgs, fmt.Sprintf("%s must be formatted as %s", field, fe.Param()))
		case "gte", "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", field, fe.Param()))
		case "lte", "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", field, fe.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid", field))
		}
	}
	return strings.Join(msgs, "; ")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}
