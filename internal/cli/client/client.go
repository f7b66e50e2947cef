package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/medlens-dev/medlens/internal/cli/auth"
)

const (
	// UserAuthHeader carries the raw user token, no scheme prefix
	UserAuthHeader = "Authorization"
	// AdminAuthHeader carries the raw admin token, no scheme prefix
	AdminAuthHeader = "Authorization-Admin"

	RequestIDHeader = "X-Request-ID"

	// maxErrorBody caps how much of a failed response ends up in an error message
	maxErrorBody = 512
)

// UploadHeaderMode selects how credentials are attached to file uploads
type UploadHeaderMode int

const (
	// UploadHeadersBoth always sends both role headers on uploads, with an
	// empty value for a role that has no token. The deployed backend reads
	// uploads this way, so it is the default.
	UploadHeadersBoth UploadHeaderMode = iota
	// UploadHeadersCaller attaches only the calling role's header, like Do
	UploadHeadersCaller
)

// ParseUploadHeaderMode parses "both" or "caller"
func ParseUploadHeaderMode(s string) (UploadHeaderMode, error) {
	switch strings.ToLower(s) {
	case "", "both":
		return UploadHeadersBoth, nil
	case "caller":
		return UploadHeadersCaller, nil
	}
	return UploadHeadersBoth, fmt.Errorf("invalid upload header mode '%s', must be one of: both, caller", s)
}

// Request describes one call through the gateway
type Request struct {
	Path   string
	Method string // defaults to GET
	Body   any    // JSON-encoded when non-nil
	Query  url.Values
	Header http.Header
}

// Doer is the gateway surface the API modules depend on
type Doer interface {
	Do(ctx context.Context, role auth.Role, req Request) (*Envelope, error)
	Upload(ctx context.Context, role auth.Role, path string, file File, form map[string]string) (*Envelope, error)
}

// Client represents an HTTP client for the medlens backend
type Client struct {
	baseURL       string
	httpClient    *http.Client
	tokens        auth.TokenStore
	uploadHeaders UploadHeaderMode
	userAgent     string
	logger        zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithTimeout sets the HTTP client timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithUploadHeaders selects the upload credential discipline
func WithUploadHeaders(mode UploadHeaderMode) Option {
	return func(c *Client) { c.uploadHeaders = mode }
}

func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a new API client. Every outbound call reads its credential from
// tokens at send time, so a login or logout is visible to the next request.
func New(baseURL string, tokens auth.TokenStore, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokens:        tokens,
		uploadHeaders: UploadHeadersBoth,
		userAgent:     "medlens-cli",
		logger:        zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetHTTPClient sets a custom HTTP client
func (c *Client) SetHTTPClient(httpClient *http.Client) {
	c.httpClient = httpClient
}

// BaseURL returns the origin all paths are resolved against
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req on behalf of role and returns the raw envelope. The envelope
// code is not interpreted here.
func (c *Client) Do(ctx context.Context, role auth.Role, req Request) (*Envelope, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	fail := func(op string, status int, err error) error {
		return &TransportError{Op: op, Method: method, Path: req.Path, StatusCode: status, Err: err}
	}

	var body io.Reader
	if req.Body != nil {
		jsonData, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fail("build", 0, fmt.Errorf("failed to marshal request: %w", err))
		}
		body = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.url(req.Path, req.Query), body)
	if err != nil {
		return nil, fail("build", 0, fmt.Errorf("failed to create request: %w", err))
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	if err := c.authorize(httpReq.Header, role); err != nil {
		return nil, fail("credentials", 0, err)
	}

	return c.send(httpReq, role, req.Path)
}

// authorize attaches the header for role, and nothing when role has no token
func (c *Client) authorize(h http.Header, role auth.Role) error {
	if role == auth.RoleNone {
		return nil
	}
	token, err := c.tokens.LoadToken(role)
	if err != nil {
		return err
	}
	if token != "" {
		h.Set(headerFor(role), token)
	}
	return nil
}

func headerFor(role auth.Role) string {
	if role == auth.RoleAdmin {
		return AdminAuthHeader
	}
	return UserAuthHeader
}

func (c *Client) url(path string, query url.Values) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := c.baseURL + path
	if len(query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		u += sep + query.Encode()
	}
	return u
}

// send executes the request and unwraps the envelope
func (c *Client) send(httpReq *http.Request, role auth.Role, path string) (*Envelope, error) {
	method := httpReq.Method
	fail := func(op string, status int, err error) error {
		return &TransportError{Op: op, Method: method, Path: path, StatusCode: status, Err: err}
	}

	requestID := ulid.Make().String()
	httpReq.Header.Set(RequestIDHeader, requestID)
	httpReq.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	log := c.logger.With().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Str("role", role.String()).
		Logger()

	start := time.Now()
	log.Debug().Msg("Sending request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		log.Debug().Err(err).Msg("Request failed")
		return nil, fail("send", 0, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail("read", resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	log.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Int("bytes", len(respBody)).
		Msg("Received response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fail("status", resp.StatusCode, fmt.Errorf("%s", truncate(respBody)))
	}

	var env Envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, fail("decode", resp.StatusCode, fmt.Errorf("failed to decode response: %w", err))
	}

	return &env, nil
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	if s == "" {
		return "empty response body"
	}
	return s
}

// LegacyRole reproduces the older implicit precedence: a stored user token
// wins, then an admin token, otherwise the call is unauthenticated. Callers
// that need exact wire compatibility can resolve a role with it once and pass
// the result explicitly.
func LegacyRole(tokens auth.TokenStore) (auth.Role, error) {
	for _, role := range auth.Roles {
		token, err := tokens.LoadToken(role)
		if err != nil {
			return auth.RoleNone, err
		}
		if token != "" {
			return role, nil
		}
	}
	return auth.RoleNone, nil
}
