// Package session tracks login state for one identity context (user or admin).
//
// A Session mirrors the role's stored credential in memory, keeps the last
// fetched profile, and drives login, registration, profile refresh and logout
// against the role's Backend. Results are reported as Result values; only the
// transport layer uses errors.
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/medlens-dev/medlens/internal/cli/api"
	"github.com/medlens-dev/medlens/internal/cli/auth"
	"github.com/medlens-dev/medlens/internal/cli/client"
)

// Messages returned when the backend could not be reached
const (
	MsgLoginNetwork    = "Login failed, please check your network connection"
	MsgRegisterNetwork = "Registration failed, please check your network connection"
	MsgUpdateNetwork   = "Update failed, please check your network connection"
	MsgProfileNetwork  = "Failed to load profile, please check your network connection"
	MsgAuthRejected    = "The server rejected the stored credentials, please log in again"

	MsgNoToken            = "Login failed, the server returned no token"
	MsgProfileUnsupported = "Profiles are not available for this account type"
	MsgSessionChanged     = "Session changed while the profile was loading"
)

// ErrNoProfile is returned by DecodeProfile before any profile was fetched
var ErrNoProfile = errors.New("no profile loaded")

// State is the login state of a Session
type State int

const (
	StateUnknown State = iota
	StateLoggedOut
	StateLoggedIn
)

func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "logged_out"
	case StateLoggedIn:
		return "logged_in"
	default:
		return "unknown"
	}
}

// Result is the outcome of a session operation. AuthFailure is set when the
// server answered 401 or 403; the session itself is left as it was.
type Result struct {
	Success     bool
	Message     string
	AuthFailure bool
}

func succeeded() Result {
	return Result{Success: true}
}

func failed(message string) Result {
	return Result{Success: false, Message: message}
}

func authRejected() Result {
	return Result{Success: false, Message: MsgAuthRejected, AuthFailure: true}
}

// Session is the login state machine for one role
type Session struct {
	role    auth.Role
	backend Backend
	tokens  auth.TokenStore
	logger  zerolog.Logger

	// opMu serializes the mutating operations so concurrent logins or a
	// login racing a logout resolve in call order
	opMu sync.Mutex

	mu      sync.RWMutex
	state   State
	token   string
	profile json.RawMessage
}

// Option configures a Session
type Option func(*Session)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// New creates a Session in the unknown state
func New(role auth.Role, backend Backend, tokens auth.TokenStore, opts ...Option) *Session {
	s := &Session{
		role:    role,
		backend: backend,
		tokens:  tokens,
		logger:  zerolog.Nop(),
		state:   StateUnknown,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With().Str("role", role.String()).Logger()
	return s
}

func (s *Session) Role() auth.Role {
	return s.role
}

func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// IsLoggedIn reports whether the session holds a token it believes is valid
func (s *Session) IsLoggedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateLoggedIn && s.token != ""
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Profile returns a copy of the last fetched profile, or nil
func (s *Session) Profile() json.RawMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil
	}
	return append(json.RawMessage(nil), s.profile...)
}

// DecodeProfile unmarshals the cached profile into v
func (s *Session) DecodeProfile(v any) error {
	profile := s.Profile()
	if profile == nil {
		return ErrNoProfile
	}
	if err := json.Unmarshal(profile, v); err != nil {
		return fmt.Errorf("failed to decode profile: %w", err)
	}
	return nil
}

// ResolveOnStartup settles the unknown state from the credential store. With
// a stored token the session is logged in immediately and a profile refresh
// starts in the background; the returned channel closes once that refresh is
// done, or immediately when there is nothing to refresh. A failed refresh
// does not log the session out. Later calls are no-ops.
func (s *Session) ResolveOnStartup(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	s.opMu.Lock()
	if s.State() != StateUnknown {
		s.opMu.Unlock()
		close(done)
		return done
	}

	token, err := s.tokens.LoadToken(s.role)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to read stored token, starting logged out")
		token = ""
	}

	s.mu.Lock()
	if token == "" {
		s.state = StateLoggedOut
	} else {
		s.token = token
		s.state = StateLoggedIn
	}
	s.mu.Unlock()
	s.opMu.Unlock()

	if token == "" {
		s.logger.Debug().Msg("No stored token")
		close(done)
		return done
	}

	s.logger.Debug().Msg("Restored session from stored token")
	go func() {
		defer close(done)
		_ = s.refreshProfileFor(ctx, token)
	}()
	return done
}

// Login authenticates and, on success, persists the returned token and
// refreshes the profile. Nothing changes unless the server accepts the
// credentials and the token is stored.
func (s *Session) Login(ctx context.Context, creds api.Credentials) Result {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	env, err := s.backend.Login(ctx, creds)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Login request failed")
		return failed(MsgLoginNetwork)
	}
	if !env.OK() {
		s.logger.Info().Str("code", string(env.Code)).Str("message", env.Message).Msg("Login rejected")
		return failed(env.Message)
	}

	token, err := env.DataString()
	if err != nil || token == "" {
		s.logger.Warn().Err(err).Msg("Login response carried no token")
		return failed(MsgNoToken)
	}

	if err := s.tokens.SaveToken(s.role, token); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist token")
		return failed(fmt.Sprintf("Login failed, could not save credentials: %v", err))
	}

	s.mu.Lock()
	s.token = token
	s.state = StateLoggedIn
	s.mu.Unlock()

	s.logger.Info().Msg("Logged in")

	// a failed refresh does not undo the login
	_ = s.refreshProfile(ctx)

	return succeeded()
}

// Register creates an account. It never logs the session in or out.
func (s *Session) Register(ctx context.Context, reg api.Registration) Result {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	env, err := s.backend.Register(ctx, reg)
	if err != nil {
		s.logger.Warn().Err(err).Msg("Register request failed")
		return failed(MsgRegisterNetwork)
	}
	if !env.OK() {
		s.logger.Info().Str("code", string(env.Code)).Str("message", env.Message).Msg("Registration rejected")
		return failed(env.Message)
	}
	return succeeded()
}

// FetchProfile refreshes the cached profile. Failures leave the previous
// profile and the login state as they were; the Result says what happened.
func (s *Session) FetchProfile(ctx context.Context) Result {
	return s.refreshProfile(ctx)
}

func (s *Session) refreshProfile(ctx context.Context) Result {
	return s.refreshProfileFor(ctx, s.Token())
}

// refreshProfileFor stores the fetched profile only if the session still
// holds startToken when the response arrives
func (s *Session) refreshProfileFor(ctx context.Context, startToken string) Result {
	env, err := s.backend.Profile(ctx)
	if errors.Is(err, ErrProfileUnsupported) {
		s.logger.Debug().Msg("Role has no profile, skipping refresh")
		return failed(MsgProfileUnsupported)
	}
	if client.IsAuthFailure(err) {
		s.logger.Warn().Err(err).Msg("Profile fetch unauthorized")
		return authRejected()
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Failed to fetch profile")
		return failed(MsgProfileNetwork)
	}
	if !env.OK() {
		s.logger.Warn().Str("code", string(env.Code)).Str("message", env.Message).Msg("Profile fetch rejected")
		return failed(env.Message)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a logout or re-login happened while the request was in flight
	if s.token != startToken {
		s.logger.Debug().Msg("Discarding profile fetched for a previous session")
		return failed(MsgSessionChanged)
	}
	s.profile = cloneRaw(env.Data)
	return succeeded()
}

// UpdateProfile sends changed fields and replaces the cached profile with the
// record the server returns. When the server returns no record the profile is
// refetched instead.
func (s *Session) UpdateProfile(ctx context.Context, update api.ProfileUpdate) Result {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	env, err := s.backend.UpdateProfile(ctx, update)
	if errors.Is(err, ErrProfileUnsupported) {
		return failed(MsgProfileUnsupported)
	}
	if client.IsAuthFailure(err) {
		s.logger.Warn().Err(err).Msg("Update unauthorized")
		return authRejected()
	}
	if err != nil {
		s.logger.Warn().Err(err).Msg("Update request failed")
		return failed(MsgUpdateNetwork)
	}
	if !env.OK() {
		s.logger.Info().Str("code", string(env.Code)).Str("message", env.Message).Msg("Update rejected")
		return failed(env.Message)
	}

	if !env.HasData() {
		_ = s.refreshProfile(ctx)
		return succeeded()
	}

	s.mu.Lock()
	s.profile = cloneRaw(env.Data)
	s.mu.Unlock()
	return succeeded()
}

// Logout tells the server the session is over and then always clears the
// local state and the stored token, whatever the server said. Logging out
// twice ends in the same state as logging out once.
func (s *Session) Logout(ctx context.Context) {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	env, err := s.backend.Logout(ctx)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Msg("Logout request failed, clearing local session anyway")
	case !env.OK():
		s.logger.Info().Str("code", string(env.Code)).Str("message", env.Message).Msg("Logout rejected, clearing local session anyway")
	}

	s.clear()
	s.logger.Info().Msg("Logged out")
}

// Expire drops a session the server has definitively rejected. It performs
// the same local cleanup as Logout without calling the server.
func (s *Session) Expire() {
	s.opMu.Lock()
	defer s.opMu.Unlock()

	s.clear()
	s.logger.Info().Msg("Session expired")
}

func (s *Session) clear() {
	s.mu.Lock()
	s.token = ""
	s.profile = nil
	s.state = StateLoggedOut
	s.mu.Unlock()

	if err := s.tokens.DeleteToken(s.role); err != nil {
		s.logger.Error().Err(err).Msg("Failed to delete stored token")
	}
}

func cloneRaw(data json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}
	return append(json.RawMessage(nil), trimmed...)
}
