package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"qedit/internal/backend/apiserver"
	"qedit/internal/config"
	"qedit/internal/exitcode"
	"qedit/internal/service"
)

// PasswordEnv names the environment variable read when --password is not given.
const PasswordEnv = "QEDIT_PASSWORD"

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
type LoginCmd struct {
	user       string
	password   string
	httpClient *http.Client
}

// SetHTTPClient sets the HTTP client used for the login request (for testing).
func (c *LoginCmd) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Log in to the APIServer" }
func (c *LoginCmd) Usage() string {
	return "qedit login [common flags] [--user <name>] [--password <password>]"
}
func (c *LoginCmd) NeedsAuth() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.user, "user", "", "")
	fs.StringVar(&c.user, "u", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, svc service.Service, args []string, in io.Reader, out, errOut io.Writer) int {
	if cfg.Server == "" {
		return reportError(errOut, config.ErrNoServer)
	}

	user := c.user
	if user == "" {
		user = cfg.Username
	}
	if user == "" {
		fmt.Fprintln(errOut, "error: username required (use --user)")
		return exitcode.UserError
	}

	password := c.password
	if password == "" {
		password = os.Getenv(PasswordEnv)
	}
	if password == "" {
		fmt.Fprint(errOut, "password: ")
		p, err := readPassword(in)
		fmt.Fprintln(errOut)
		if err != nil {
			fmt.Fprintf(errOut, "error: failed to read password: %v\n", err)
			return exitcode.UserError
		}
		password = p
	}
	if password == "" {
		fmt.Fprintln(errOut, "error: password required")
		return exitcode.UserError
	}

	hc := c.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	cfg.Logger.Debug("logging in", "server", cfg.Server, "user", user)
	tok, err := apiserver.Login(ctx, hc, cfg.Server, user, password)
	if err != nil {
		return reportError(errOut, err)
	}

	if err := cfg.SaveToken(tok); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}
	cfg.Username = user
	if err := cfg.Save(); err != nil {
		fmt.Fprintf(errOut, "error: failed to save %s: %v\n", config.ConfigFile, err)
		return exitcode.UserError
	}

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return exitcode.Success
}

// readPassword reads one line from in. Terminal input is read without echo.
func readPassword(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		b, err := term.ReadPassword(int(f.Fd()))
		return string(b), err
	}
	lines := bufio.NewScanner(in)
	if !lines.Scan() {
		return "", lines.Err()
	}
	return strings.TrimRight(lines.Text(), "\r\n"), nil
}
