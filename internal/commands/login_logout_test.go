package commands_test

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"qedit/internal/commands"
	"qedit/internal/config"
	"qedit/internal/exitcode"
	"qedit/internal/logging"
)

// newLoginServer serves /login, accepting alice/secret only.
func newLoginServer(t *testing.T, expiry time.Time) *httptest.Server {
	t.Helper()

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "alice",
		ExpiresAt: jwt.NewNumericDate(expiry),
	}).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		if body.Username != "alice" || body.Password != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"msg": "Bad username or password"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"token": signed})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newLoginConfig(t *testing.T, server string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Dir:     t.TempDir(),
		Timeout: config.DefaultTimeout,
		Logger:  logging.New(nil, false, true),
	}
	cfg.SetServer(server)
	return cfg
}

func newLoginCmd(t *testing.T, srv *httptest.Server, args ...string) *commands.LoginCmd {
	t.Helper()
	cmd := &commands.LoginCmd{}
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	cmd.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	cmd.SetHTTPClient(srv.Client())
	return cmd
}

// TestLoginCommand_SavesToken verifies a successful login stores the token,
// its expiry and the username.
func TestLoginCommand_SavesToken(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	srv := newLoginServer(t, expiry)
	cfg := newLoginConfig(t, srv.URL)
	cmd := newLoginCmd(t, srv, "--user", "alice", "--password", "secret")

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, strings.NewReader(""), &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, errBuf.String())
	}
	if outBuf.String() != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", outBuf.String())
	}

	tok, err := cfg.LoadToken()
	if err != nil {
		t.Fatalf("failed to load token: %v", err)
	}
	if !tok.Expiry.Equal(expiry) {
		t.Errorf("expected expiry %v, got %v", expiry, tok.Expiry)
	}
	info, err := os.Stat(cfg.TokenPath())
	if err != nil {
		t.Fatalf("token.json missing: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("expected mode 0600, got %v", info.Mode().Perm())
	}

	reloaded, err := config.New(cfg.Dir)
	if err != nil {
		t.Fatalf("failed to reload config: %v", err)
	}
	if reloaded.Username != "alice" {
		t.Errorf("expected username alice, got %q", reloaded.Username)
	}
	if reloaded.Server != srv.URL+"/" {
		t.Errorf("expected server %q, got %q", srv.URL+"/", reloaded.Server)
	}
}

// TestLoginCommand_PasswordFromInput verifies the password is read from
// input when no flag or environment variable supplies it.
func TestLoginCommand_PasswordFromInput(t *testing.T) {
	t.Setenv(commands.PasswordEnv, "")
	srv := newLoginServer(t, time.Now().Add(time.Hour))
	cfg := newLoginConfig(t, srv.URL)
	cfg.Username = "alice"
	cmd := newLoginCmd(t, srv)

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, strings.NewReader("secret\n"), &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, errBuf.String())
	}
	if !strings.HasPrefix(errBuf.String(), "password: ") {
		t.Errorf("expected password prompt on stderr, got %q", errBuf.String())
	}
	if !cfg.HasToken() {
		t.Error("expected token.json to be written")
	}
}

// TestLoginCommand_PasswordFromFile verifies a password piped from a file
// (not a terminal) is read as a plain line and never written back out.
func TestLoginCommand_PasswordFromFile(t *testing.T) {
	t.Setenv(commands.PasswordEnv, "")
	srv := newLoginServer(t, time.Now().Add(time.Hour))
	cfg := newLoginConfig(t, srv.URL)
	cfg.Username = "alice"
	cmd := newLoginCmd(t, srv)

	path := filepath.Join(t.TempDir(), "password")
	if err := os.WriteFile(path, []byte("secret\r\n"), 0600); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, f, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, errBuf.String())
	}
	if errBuf.String() != "password: \n" {
		t.Errorf("unexpected stderr %q", errBuf.String())
	}
	if strings.Contains(outBuf.String()+errBuf.String(), "secret") {
		t.Error("password was echoed")
	}
}

// TestLoginCommand_EmptyPasswordInput verifies end of input without a
// password is a user error.
func TestLoginCommand_EmptyPasswordInput(t *testing.T) {
	t.Setenv(commands.PasswordEnv, "")
	srv := newLoginServer(t, time.Now().Add(time.Hour))
	cfg := newLoginConfig(t, srv.URL)
	cmd := newLoginCmd(t, srv, "--user", "alice")

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, strings.NewReader(""), &outBuf, &errBuf)

	if code != exitcode.UserError {
		t.Fatalf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if errBuf.String() != "password: \nerror: password required\n" {
		t.Errorf("unexpected stderr %q", errBuf.String())
	}
	if cfg.HasToken() {
		t.Error("expected no token")
	}
}

// TestLoginCommand_PasswordFromEnv verifies QEDIT_PASSWORD is honoured.
func TestLoginCommand_PasswordFromEnv(t *testing.T) {
	t.Setenv(commands.PasswordEnv, "secret")
	srv := newLoginServer(t, time.Now().Add(time.Hour))
	cfg := newLoginConfig(t, srv.URL)
	cmd := newLoginCmd(t, srv, "-u", "alice")

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, strings.NewReader(""), &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Fatalf("expected exit code %d, got %d (stderr %q)", exitcode.Success, code, errBuf.String())
	}
	if errBuf.String() != "" {
		t.Errorf("expected no stderr, got %q", errBuf.String())
	}
}

// TestLoginCommand_BadPassword verifies a rejected login is an auth error
// carrying the server message.
func TestLoginCommand_BadPassword(t *testing.T) {
	srv := newLoginServer(t, time.Now().Add(time.Hour))
	cfg := newLoginConfig(t, srv.URL)
	cmd := newLoginCmd(t, srv, "--user", "alice", "--password", "wrong")

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, strings.NewReader(""), &outBuf, &errBuf)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	expected := "error: auth error: unauthorized: Bad username or password\n"
	if errBuf.String() != expected {
		t.Errorf("expected %q, got %q", expected, errBuf.String())
	}
	if cfg.HasToken() {
		t.Error("token.json should not be written")
	}
}

// TestLoginCommand_NoServer verifies login fails without a server address
func TestLoginCommand_NoServer(t *testing.T) {
	cmd := &commands.LoginCmd{}
	cfg := newLoginConfig(t, "")

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, strings.NewReader(""), &outBuf, &errBuf)

	if code != exitcode.AuthError {
		t.Errorf("expected exit code %d, got %d", exitcode.AuthError, code)
	}
	if outBuf.String() != "" {
		t.Errorf("expected no stdout, got %q", outBuf.String())
	}
	if !strings.Contains(errBuf.String(), "no server configured") {
		t.Errorf("unexpected stderr %q", errBuf.String())
	}
}

// TestLoginCommand_NoUser verifies login requires a username
func TestLoginCommand_NoUser(t *testing.T) {
	srv := newLoginServer(t, time.Now().Add(time.Hour))
	cfg := newLoginConfig(t, srv.URL)
	cmd := newLoginCmd(t, srv)

	var outBuf, errBuf bytes.Buffer
	code := cmd.Run(context.Background(), cfg, nil, nil, strings.NewReader(""), &outBuf, &errBuf)

	if code != exitcode.UserError {
		t.Errorf("expected exit code %d, got %d", exitcode.UserError, code)
	}
	if errBuf.String() != "error: username required (use --user)\n" {
		t.Errorf("unexpected stderr %q", errBuf.String())
	}
}

// TestLogoutCommand_OnlyRemovesToken verifies logout only removes token.json
func TestLogoutCommand_OnlyRemovesToken(t *testing.T) {
	cmd := &commands.LogoutCmd{}

	tmpDir := t.TempDir()

	configPath := filepath.Join(tmpDir, "config.yaml")
	err := os.WriteFile(configPath, []byte("server: http://localhost:5000/\nusername: alice\n"), 0600)
	if err != nil {
		t.Fatalf("failed to write config.yaml: %v", err)
	}

	tokenPath := filepath.Join(tmpDir, "token.json")
	err = os.WriteFile(tokenPath, []byte(`{"access_token":"test","token_type":"Bearer"}`), 0600)
	if err != nil {
		t.Fatalf("failed to write token.json: %v", err)
	}

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{
		Dir:    tmpDir,
		Quiet:  false,
		Logger: logging.New(nil, false, true),
	}

	code := cmd.Run(context.Background(), cfg, nil, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if errBuf.String() != "" {
		t.Errorf("expected no stderr, got %q", errBuf.String())
	}
	if outBuf.String() != "ok\n" {
		t.Errorf("expected 'ok\\n', got %q", outBuf.String())
	}

	if _, err := os.Stat(tokenPath); !os.IsNotExist(err) {
		t.Error("token.json should have been deleted")
	}
	if _, err := os.Stat(configPath); err != nil {
		t.Error("config.yaml should NOT have been deleted")
	}
}

// TestLogoutCommand_NotLoggedIn verifies logout handles not being logged in
func TestLogoutCommand_NotLoggedIn(t *testing.T) {
	cmd := &commands.LogoutCmd{}

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{
		Dir:    t.TempDir(),
		Quiet:  false,
		Logger: logging.New(nil, false, true),
	}

	code := cmd.Run(context.Background(), cfg, nil, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if errBuf.String() != "" {
		t.Errorf("expected no stderr, got %q", errBuf.String())
	}
	if outBuf.String() != "not logged in\n" {
		t.Errorf("expected 'not logged in\\n', got %q", outBuf.String())
	}
}

// TestLogoutCommand_NotLoggedInQuiet verifies logout is quiet when not logged in
func TestLogoutCommand_NotLoggedInQuiet(t *testing.T) {
	cmd := &commands.LogoutCmd{}

	var outBuf, errBuf bytes.Buffer
	cfg := &config.Config{
		Dir:    t.TempDir(),
		Quiet:  true,
		Logger: logging.New(nil, false, true),
	}

	code := cmd.Run(context.Background(), cfg, nil, nil, nil, &outBuf, &errBuf)

	if code != exitcode.Success {
		t.Errorf("expected exit code %d, got %d", exitcode.Success, code)
	}
	if errBuf.String() != "" {
		t.Errorf("expected no stderr, got %q", errBuf.String())
	}
	if outBuf.String() != "" {
		t.Errorf("expected no stdout in quiet mode, got %q", outBuf.String())
	}
}
