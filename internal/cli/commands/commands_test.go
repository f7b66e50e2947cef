package commands

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medlens-dev/medlens/internal/cli/auth"
	"github.com/medlens-dev/medlens/internal/cli/client"
)

const (
	userToken  = "user-tok"
	adminToken = "admin-tok"
)

// mockBackend is an in-process MedLens server with one user and one admin
type mockBackend struct {
	t *testing.T

	mu       sync.Mutex
	requests []*http.Request
	bodies   map[string][]byte
	revoked  bool
}

func newMockBackend(t *testing.T) (*mockBackend, *httptest.Server) {
	t.Helper()

	m := &mockBackend{t: t, bodies: map[string][]byte{}}
	srv := httptest.NewServer(http.HandlerFunc(m.serve))
	t.Cleanup(srv.Close)
	return m, srv
}

func (m *mockBackend) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	m.mu.Lock()
	m.requests = append(m.requests, r)
	m.bodies[r.URL.Path] = body
	revoked := m.revoked
	m.mu.Unlock()

	userOK := r.Header.Get(client.UserAuthHeader) == userToken && !revoked
	adminOK := r.Header.Get(client.AdminAuthHeader) == adminToken && !revoked

	switch {
	case r.URL.Path == "/user/user/login" || r.URL.Path == "/admin/admin/login":
		var creds struct{ Username, Password string }
		_ = json.Unmarshal(body, &creds)
		if creds.Password != "secret1" {
			reply(w, `{"code":"0","message":"bad password"}`)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/admin") {
			reply(w, `{"code":"1","data":"`+adminToken+`"}`)
			return
		}
		reply(w, `{"code":"1","data":"`+userToken+`"}`)

	case r.URL.Path == "/user/user/register" || r.URL.Path == "/admin/admin/register":
		reply(w, `{"code":"1","data":null}`)

	case r.URL.Path == "/user/user/logout" || r.URL.Path == "/admin/admin/logout":
		reply(w, `{"code":"1"}`)

	case strings.HasPrefix(r.URL.Path, "/user/"):
		if !userOK {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		m.serveUser(w, r, body)

	case strings.HasPrefix(r.URL.Path, "/admin/"):
		if !adminOK {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		m.serveAdmin(w, r)

	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (m *mockBackend) serveUser(w http.ResponseWriter, r *http.Request, body []byte) {
	switch r.URL.Path {
	case "/user/user/getUserInfo":
		reply(w, `{"code":"1","data":{"id":"1790000000000000001","username":"ann","nickname":"Ann"}}`)
	case "/user/user/updateUser":
		reply(w, `{"code":"1","data":{"id":"1790000000000000001","username":"ann","nickname":"Annie"}}`)
	case "/user/ai/classify":
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			m.t.Errorf("classify: %v", err)
		}
		file, header, err := r.FormFile(client.UploadFieldName)
		if err != nil {
			m.t.Errorf("classify: missing image field: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file.Close()
		reply(w, `{"code":"1","data":{"file":"`+header.Filename+`","label":"benign","confidence":0.93}}`)
	case "/user/ai/chat":
		var req struct {
			MemoryID string `json:"memoryId"`
			Question string `json:"question"`
		}
		_ = json.Unmarshal(body, &req)
		reply(w, `{"code":"1","data":"answer to `+req.Question+`"}`)
	case "/user/ai/detectionRecodePageQuery":
		reply(w, `{"code":"1","data":{"records":[{"id":1,"result":"benign"}],"total":1,"current":1,"pages":1}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (m *mockBackend) serveAdmin(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/admin/admin/queryUser":
		reply(w, `{"code":"1","data":{"records":[{"id":7,"username":"ann"}],"total":1}}`)
	case strings.HasPrefix(r.URL.Path, "/admin/admin/deleteUser/"):
		reply(w, `{"code":"1"}`)
	case strings.HasPrefix(r.URL.Path, "/admin/statistics/"):
		q := r.URL.Query()
		reply(w, `{"code":"1","data":{"from":"`+q.Get("startTime")+`","to":"`+q.Get("endTime")+`"}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (m *mockBackend) last(path string) *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.requests) - 1; i >= 0; i-- {
		if m.requests[i].URL.Path == path {
			return m.requests[i]
		}
	}
	return nil
}

func (m *mockBackend) body(path string) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bodies[path]
}

func reply(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(body))
}

// setupCLI isolates the command from the host: empty working directory and
// home, no MEDLENS_* settings, in-memory credentials
func setupCLI(t *testing.T, serverURL string) (*Globals, *auth.MemoryStore) {
	t.Helper()

	dir := t.TempDir()
	chdir(t, dir)
	t.Setenv("HOME", dir)
	for _, key := range []string{"MEDLENS_SERVER", "MEDLENS_USERNAME", "MEDLENS_PASSWORD", "MEDLENS_CREDENTIAL_STORE", "MEDLENS_UPLOAD_HEADERS", "MEDLENS_TIMEOUT"} {
		t.Setenv(key, "")
	}

	store := auth.NewMemoryStore()
	return &Globals{
		Server:      serverURL,
		Version:     "test",
		Tokens:      store,
		Interactive: func() bool { return false },
	}, store
}

func execute(g *Globals, args ...string) (string, error) {
	root := &cobra.Command{Use: "medlens", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(
		NewStatusCmd(g),
		NewLoginCmd(g),
		NewLogoutCmd(g),
		NewRegisterCmd(g),
		NewProfileCmd(g),
		NewClassifyCmd(g),
		NewRecordsCmd(g),
		NewChatCmd(g),
		NewAdminCmd(g),
	)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func token(t *testing.T, store auth.TokenStore, role auth.Role) string {
	t.Helper()
	tok, err := store.LoadToken(role)
	require.NoError(t, err)
	return tok
}

func TestLoginCommand(t *testing.T) {
	_, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)

	out, err := execute(g, "login", "--username", "ann", "--password", "secret1")
	require.NoError(t, err)

	assert.Contains(t, out, "Login successful")
	assert.Contains(t, out, "User: Ann")
	assert.Equal(t, userToken, token(t, store, auth.RoleUser))
	assert.Empty(t, token(t, store, auth.RoleAdmin))
}

func TestLoginCommand_EnvCredentials(t *testing.T) {
	_, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	t.Setenv("MEDLENS_USERNAME", "root")
	t.Setenv("MEDLENS_PASSWORD", "secret1")

	_, err := execute(g, "login", "--admin")
	require.NoError(t, err)

	assert.Equal(t, adminToken, token(t, store, auth.RoleAdmin))
	assert.Empty(t, token(t, store, auth.RoleUser))
}

func TestLoginCommand_Rejected(t *testing.T) {
	_, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)

	_, err := execute(g, "login", "--username", "ann", "--password", "wrong")

	require.Error(t, err)
	assert.Equal(t, "login failed: bad password", err.Error())
	assert.Empty(t, token(t, store, auth.RoleUser))
}

func TestLoginCommand_Unreachable(t *testing.T) {
	_, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	srv.Close()

	_, err := execute(g, "login", "--username", "ann", "--password", "secret1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "please check your network connection")
	assert.Empty(t, token(t, store, auth.RoleUser))
}

func TestLoginCommand_MissingUsername(t *testing.T) {
	_, srv := newMockBackend(t)
	g, _ := setupCLI(t, srv.URL)

	_, err := execute(g, "login", "--password", "secret1")

	require.Error(t, err)
	assert.Equal(t, "username is required (use --username flag or MEDLENS_USERNAME env var)", err.Error())
}

func TestLogoutCommand_KeepsOtherRole(t *testing.T) {
	m, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))
	require.NoError(t, store.SaveToken(auth.RoleAdmin, adminToken))

	out, err := execute(g, "logout", "--admin")
	require.NoError(t, err)

	assert.Contains(t, out, "Logged out")
	assert.Empty(t, token(t, store, auth.RoleAdmin))
	assert.Equal(t, userToken, token(t, store, auth.RoleUser))
	require.NotNil(t, m.last("/admin/admin/logout"))
	assert.Equal(t, adminToken, m.last("/admin/admin/logout").Header.Get(client.AdminAuthHeader))
}

func TestLogoutCommand_ServerDown(t *testing.T) {
	_, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))
	srv.Close()

	_, err := execute(g, "logout")
	require.NoError(t, err)

	assert.Empty(t, token(t, store, auth.RoleUser))
}

func TestRegisterCommand(t *testing.T) {
	m, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)

	out, err := execute(g, "register", "--username", "bob", "--password", "secret2", "--email", "bob@example.org")
	require.NoError(t, err)

	assert.Contains(t, out, "Registered user account 'bob'")
	assert.Empty(t, token(t, store, auth.RoleUser), "registering does not log in")
	assert.JSONEq(t, `{"username":"bob","password":"secret2","email":"bob@example.org"}`, string(m.body("/user/user/register")))
}

func TestRegisterCommand_InvalidEmailNeverSent(t *testing.T) {
	m, srv := newMockBackend(t)
	g, _ := setupCLI(t, srv.URL)

	_, err := execute(g, "register", "--username", "bob", "--password", "secret2", "--email", "not-an-email")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid email address")
	assert.Nil(t, m.last("/user/user/register"))
}

func TestRegisterCommand_ServerJudgesPassword(t *testing.T) {
	m, srv := newMockBackend(t)
	g, _ := setupCLI(t, srv.URL)

	_, err := execute(g, "register", "--username", "bob", "--password", "abc12")
	require.NoError(t, err)

	assert.JSONEq(t, `{"username":"bob","password":"abc12"}`, string(m.body("/user/user/register")))
}

func TestStatusCommand(t *testing.T) {
	_, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))

	out, err := execute(g, "status")
	require.NoError(t, err)

	assert.Contains(t, out, srv.URL)
	assert.Contains(t, out, "user:  logged in")
	assert.Contains(t, out, "admin: logged out")
}

func TestStatusCommand_JSON(t *testing.T) {
	_, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))
	g.Output = "json"

	out, err := execute(g, "status")
	require.NoError(t, err)

	var report struct {
		URL      string `json:"url"`
		Sessions []struct {
			Role    string          `json:"role"`
			State   string          `json:"state"`
			Profile json.RawMessage `json:"profile"`
		} `json:"sessions"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.Equal(t, srv.URL, report.URL)
	require.Len(t, report.Sessions, 2)
	assert.Equal(t, "logged_in", report.Sessions[0].State)
	assert.Contains(t, string(report.Sessions[0].Profile), "Ann")
	assert.Equal(t, "logged_out", report.Sessions[1].State)
}

func TestProfileCommands(t *testing.T) {
	m, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))
	g.Output = "yaml"

	out, err := execute(g, "profile", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "nickname: Ann")

	out, err = execute(g, "profile", "update", "--field", "nickname=Annie")
	require.NoError(t, err)
	assert.Contains(t, out, "nickname: Annie")
	assert.JSONEq(t, `{"nickname":"Annie"}`, string(m.body("/user/user/updateUser")))
}

func TestProfileShow_NotLoggedIn(t *testing.T) {
	_, srv := newMockBackend(t)
	g, _ := setupCLI(t, srv.URL)

	_, err := execute(g, "profile", "show")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not logged in")
}

func TestProfileUpdate_BadField(t *testing.T) {
	_, err := parseProfileUpdate(&profileUpdateOptions{fields: []string{"nickname"}})
	assert.ErrorContains(t, err, "expected key=value")

	_, err = parseProfileUpdate(&profileUpdateOptions{})
	assert.ErrorContains(t, err, "nothing to update")

	update, err := parseProfileUpdate(&profileUpdateOptions{json: `{"age":34}`, fields: []string{"nickname=A=B"}})
	require.NoError(t, err)
	assert.Equal(t, "A=B", update["nickname"])
	assert.EqualValues(t, 34, update["age"])
}

func TestClassifyCommand(t *testing.T) {
	m, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))

	image := filepath.Join(t.TempDir(), "scan.png")
	require.NoError(t, os.WriteFile(image, []byte("\x89PNG\r\n\x1a\nfake"), 0644))

	out, err := execute(g, "classify", image)
	require.NoError(t, err)

	assert.Contains(t, out, "benign")
	assert.Contains(t, out, "scan.png")

	req := m.last("/user/ai/classify")
	require.NotNil(t, req)
	assert.Equal(t, userToken, req.Header.Get(client.UserAuthHeader))
	// uploads carry both role headers, empty for the role without a token
	_, present := req.Header[client.AdminAuthHeader]
	assert.True(t, present)
	assert.Empty(t, req.Header.Get(client.AdminAuthHeader))
}

func TestClassifyCommand_MissingFile(t *testing.T) {
	_, srv := newMockBackend(t)
	g, _ := setupCLI(t, srv.URL)

	_, err := execute(g, "classify", "does-not-exist.png")
	assert.ErrorContains(t, err, "failed to read")
}

func TestAuthFailureExpiresSession(t *testing.T) {
	m, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))
	require.NoError(t, store.SaveToken(auth.RoleAdmin, adminToken))

	m.mu.Lock()
	m.revoked = true
	m.mu.Unlock()

	_, err := execute(g, "records", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 'medlens login' again")
	assert.Empty(t, token(t, store, auth.RoleUser))
	assert.Equal(t, adminToken, token(t, store, auth.RoleAdmin), "only the failing role is expired")
}

func TestProfileUpdate_AuthFailureExpiresSession(t *testing.T) {
	m, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))
	require.NoError(t, store.SaveToken(auth.RoleAdmin, adminToken))

	m.mu.Lock()
	m.revoked = true
	m.mu.Unlock()

	_, err := execute(g, "profile", "update", "--field", "nickname=X")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "run 'medlens login' again")
	assert.NotNil(t, m.last("/user/user/updateUser"))
	assert.Empty(t, token(t, store, auth.RoleUser))
	assert.Equal(t, adminToken, token(t, store, auth.RoleAdmin))
}

func TestRecordsList(t *testing.T) {
	_, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))

	out, err := execute(g, "records", "list", "--page", "1", "--page-size", "5")
	require.NoError(t, err)

	assert.Contains(t, out, "RESULT")
	assert.Contains(t, out, "benign")
	assert.Contains(t, out, "Total: 1")
}

func TestRecordsList_InvalidPage(t *testing.T) {
	m, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))

	_, err := execute(g, "records", "list", "--page", "0")

	assert.ErrorContains(t, err, "page must be at least 1")
	assert.Nil(t, m.last("/user/ai/detectionRecodePageQuery"))
}

func TestChatCommand(t *testing.T) {
	m, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))

	out, err := execute(g, "chat", "--memory", "conv-1", "what is a nodule?")
	require.NoError(t, err)

	assert.Contains(t, out, "answer to what is a nodule?")
	assert.JSONEq(t, `{"memoryId":"conv-1","question":"what is a nodule?"}`, string(m.body("/user/ai/chat")))
}

func TestChatCommand_NewConversation(t *testing.T) {
	m, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))

	_, err := execute(g, "chat", "hello")
	require.NoError(t, err)

	var req struct {
		MemoryID string `json:"memoryId"`
	}
	require.NoError(t, json.Unmarshal(m.body("/user/ai/chat"), &req))
	assert.Len(t, req.MemoryID, 36)
}

func TestAdminCommands(t *testing.T) {
	m, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleAdmin, adminToken))

	out, err := execute(g, "admin", "users", "list", "--username", "ann")
	require.NoError(t, err)
	assert.Contains(t, out, "USERNAME")
	assert.JSONEq(t, `{"page":1,"pageSize":10,"username":"ann"}`, string(m.body("/admin/admin/queryUser")))

	out, err = execute(g, "admin", "users", "delete", "7", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted user 7")
	assert.NotNil(t, m.last("/admin/admin/deleteUser/7"))

	g.Output = "json"
	out, err = execute(g, "admin", "stats", "classify", "--from", "2024-01-01", "--to", "2024-01-31")
	require.NoError(t, err)
	assert.JSONEq(t, `{"from":"2024-01-01","to":"2024-01-31"}`, out)
	assert.NotNil(t, m.last("/admin/statistics/classifyStatistics"))
}

func TestAdminCommands_RequireAdminLogin(t *testing.T) {
	_, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleUser, userToken))

	_, err := execute(g, "admin", "users", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "medlens login --admin")
	assert.Equal(t, userToken, token(t, store, auth.RoleUser))
}

func TestAdminDelete_RefusesWithoutConfirmation(t *testing.T) {
	m, srv := newMockBackend(t)
	g, store := setupCLI(t, srv.URL)
	require.NoError(t, store.SaveToken(auth.RoleAdmin, adminToken))

	_, err := execute(g, "admin", "users", "delete", "7")

	assert.ErrorContains(t, err, "without --yes")
	assert.Nil(t, m.last("/admin/admin/deleteUser/7"))
}

func TestStatsDateRange(t *testing.T) {
	now := mustDate(t, "2024-03-10")

	r, err := (&statsOptions{}).dateRange(now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-03", r.StartTime)
	assert.Equal(t, "2024-03-10", r.EndTime)

	r, err = (&statsOptions{to: "2024-01-05"}).dateRange(now)
	require.NoError(t, err)
	assert.Equal(t, "2023-12-29", r.StartTime)

	_, err = (&statsOptions{from: "2024-02-01", to: "2024-01-01"}).dateRange(now)
	assert.ErrorContains(t, err, "is after")
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse(dateLayout, s)
	require.NoError(t, err)
	return d
}
