package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/medlens-dev/medlens/internal/cli/api"
	"github.com/medlens-dev/medlens/internal/cli/auth"
	"github.com/medlens-dev/medlens/internal/cli/client"
	"github.com/medlens-dev/medlens/internal/cli/config"
	"github.com/medlens-dev/medlens/internal/cli/output"
	"github.com/medlens-dev/medlens/internal/cli/serverselect"
	"github.com/medlens-dev/medlens/internal/cli/session"
	appconfig "github.com/medlens-dev/medlens/internal/config"
	"github.com/medlens-dev/medlens/internal/logger"
)

// Globals holds the root persistent flags shared by every command
type Globals struct {
	Server  string
	Verbose bool
	Output  string
	Version string

	// Tokens replaces the configured credential store when set
	Tokens auth.TokenStore
	// Interactive replaces the terminal check on stdin when set
	Interactive func() bool
}

// Env is everything a command needs to talk to the resolved server
type Env struct {
	Settings *appconfig.Config
	Target   *serverselect.Target
	Tokens   auth.TokenStore
	Client   *client.Client
	API      *api.API
	Sessions *session.Manager
	Format   output.Format
	Out      io.Writer

	logger zerolog.Logger
}

// newEnv loads configuration, resolves the server and wires the client,
// API bindings and sessions for it
func (g *Globals) newEnv(cmd *cobra.Command) (*Env, error) {
	format, err := output.ParseFormat(g.Output)
	if err != nil {
		return nil, err
	}

	settings, err := appconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	project, err := config.LoadFromCurrentDir()
	if err != nil {
		if !errors.Is(err, config.ErrNotFound) {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		project = nil
	}

	target, err := serverselect.Resolve(serverselect.Options{
		Flag:        g.Server,
		EnvURL:      settings.ServerURL,
		Project:     project,
		Interactive: g.interactive(),
		DefaultURL:  appconfig.DefaultServerURL,
	})
	if err != nil {
		return nil, err
	}

	tokens := g.Tokens
	if tokens == nil {
		tokens, err = openTokenStore(settings.Credentials.Backend, target.Alias)
		if err != nil {
			return nil, err
		}
	}

	uploadMode, err := client.ParseUploadHeaderMode(settings.Transport.UploadHeaders)
	if err != nil {
		return nil, err
	}

	log := logger.Component("cli").With().Str("server", target.Alias).Logger()

	c := client.New(target.URL, tokens,
		client.WithTimeout(settings.Transport.Timeout),
		client.WithUploadHeaders(uploadMode),
		client.WithUserAgent("medlens-cli/"+g.Version),
		client.WithLogger(logger.Component("client")),
	)
	bindings := api.New(c)

	log.Debug().Str("url", target.URL).Str("credentials", settings.Credentials.Backend).Msg("Environment ready")

	return &Env{
		Settings: settings,
		Target:   target,
		Tokens:   tokens,
		Client:   c,
		API:      bindings,
		Sessions: session.NewManager(bindings, tokens, logger.Component("session")),
		Format:   format,
		Out:      cmd.OutOrStdout(),
		logger:   log,
	}, nil
}

func openTokenStore(backend, namespace string) (auth.TokenStore, error) {
	switch backend {
	case "file":
		path, err := auth.DefaultCredentialsPath()
		if err != nil {
			return nil, err
		}
		return auth.NewFileStore(path, namespace), nil
	case "memory":
		log := logger.Component("cli")
		log.Warn().Msg("Using in-memory credentials, tokens will not outlive this command")
		return auth.NewMemoryStore(), nil
	default:
		return auth.NewKeyringStore(namespace), nil
	}
}

func (g *Globals) interactive() bool {
	if g.Interactive != nil {
		return g.Interactive()
	}
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// resolve settles the stored session state for role and waits for the
// profile refresh to finish
func (e *Env) resolve(ctx context.Context, role auth.Role) *session.Session {
	s, _ := e.Sessions.For(role)
	select {
	case <-s.ResolveOnStartup(ctx):
	case <-ctx.Done():
	case <-time.After(e.Settings.Transport.Timeout + time.Second):
	}
	return s
}

// result turns a call outcome into the envelope or an error. A definitive
// authentication failure expires the role's session so the stale token is
// not sent again.
func (e *Env) result(role auth.Role, env *client.Envelope, err error) (*client.Envelope, error) {
	if err != nil {
		if client.IsAuthFailure(err) {
			s, _ := e.Sessions.For(role)
			return nil, e.expire(s, err)
		}
		return nil, err
	}
	if !env.OK() {
		return nil, env.Err()
	}
	return env, nil
}

// sessionErr is resultErr for operations run through a session; an auth
// failure expires the session the same way a direct call does
func (e *Env) sessionErr(s *session.Session, res session.Result) error {
	if res.AuthFailure {
		return e.expire(s, errors.New(res.Message))
	}
	return resultErr(res)
}

func (e *Env) expire(s *session.Session, cause error) error {
	role := s.Role()
	s.Expire()
	e.logger.Debug().Err(cause).Str("role", role.String()).Msg("Session expired by server")
	return fmt.Errorf("%s session is no longer valid, run '%s' again", role, loginHint(role))
}

// user and admin wrap a call made as that role, e.g. e.user(e.API.AI.Classify(ctx, f))
func (e *Env) user(env *client.Envelope, err error) (*client.Envelope, error) {
	return e.result(auth.RoleUser, env, err)
}

func (e *Env) admin(env *client.Envelope, err error) (*client.Envelope, error) {
	return e.result(auth.RoleAdmin, env, err)
}

// print renders the envelope data, or message when there is none
func (e *Env) print(env *client.Envelope, message string) error {
	if !env.HasData() {
		if message != "" && e.Format == output.FormatText {
			fmt.Fprintln(e.Out, message)
		}
		return nil
	}
	return output.Raw(e.Out, e.Format, env.Data)
}

func (e *Env) printValue(v any) error {
	return output.Value(e.Out, e.Format, v)
}

func (e *Env) printRaw(raw json.RawMessage) error {
	return output.Raw(e.Out, e.Format, raw)
}

func loginHint(role auth.Role) string {
	if role == auth.RoleAdmin {
		return "medlens login --admin"
	}
	return "medlens login"
}

func roleFromFlag(admin bool) auth.Role {
	if admin {
		return auth.RoleAdmin
	}
	return auth.RoleUser
}

// resultErr converts a failed session Result into an error
func resultErr(res session.Result) error {
	if res.Success {
		return nil
	}
	if res.Message == "" {
		return errors.New("request failed")
	}
	return errors.New(res.Message)
}
