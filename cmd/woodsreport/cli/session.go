package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/woodsintl/woodsreport/internal/client"
	"github.com/woodsintl/woodsreport/internal/config"
	"github.com/woodsintl/woodsreport/internal/session"
)

// openSessionStore opens the backend named by session.backend. The returned
// function releases it.
func openSessionStore(cfg *config.YAMLConfig) (session.Store, func(), error) {
	switch strings.ToLower(cfg.Session.Backend) {
	case "memory":
		return session.NewMemoryStore(), func() {}, nil
	case "keyring":
		ks, err := session.OpenKeyring(resolveDataDir(), keyringPassphrase)
		if err != nil {
			return nil, nil, err
		}
		return ks, func() {}, nil
	case "", "file":
		store, err := config.NewStore(resolveDataDir())
		if err != nil {
			return nil, nil, fmt.Errorf("open session store: %w", err)
		}
		return session.NewSettingsStore(store), func() { store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q (want file, keyring or memory)", cfg.Session.Backend)
	}
}

// keyringPassphrase unlocks the encrypted file keyring used when no native
// keyring is available.
func keyringPassphrase(prompt string) (string, error) {
	if p := os.Getenv("WOODSREPORT_KEYRING_PASSPHRASE"); p != "" {
		return p, nil
	}
	return readSecret(bufio.NewReader(os.Stdin), prompt+": ")
}

// readSecret reads a line from the terminal without echo, or a plain line
// when stdin is not a terminal.
func readSecret(in *bufio.Reader, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return readLine(in)
	}
	fmt.Fprint(os.Stderr, prompt)
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return string(b), nil
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// sessionEnv is everything an authenticated command needs.
type sessionEnv struct {
	cfg     *config.YAMLConfig
	logger  *slog.Logger
	api     *client.Client
	manager *session.Manager
	close   func()
}

func (e *sessionEnv) Close() {
	e.manager.Close()
	e.close()
}

// openSession wires the session manager to the API client and restores the
// persisted session the way a page reload does.
func openSession(cmd *cobra.Command) (*sessionEnv, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)
	store, closeStore, err := openSessionStore(cfg)
	if err != nil {
		return nil, err
	}

	api := newAPIClient(cfg)
	errOut := cmd.ErrOrStderr()
	m := session.NewManager(session.Options{
		Store:          store,
		Executor:       api,
		Timeout:        config.ParseDuration(cfg.Session.InactivityTimeout, session.DefaultTimeout),
		LoginProcedure: cfg.Session.LoginProcedure,
		OnExpire: func() {
			fmt.Fprintln(errOut, "Session expired. Please log in again.")
		},
		Logger: logger,
	})
	m.Restore()

	return &sessionEnv{cfg: cfg, logger: logger, api: api, manager: m, close: closeStore}, nil
}

// requireSession opens the session and fails unless it is authenticated.
// The command counts as one key press of activity.
func requireSession(cmd *cobra.Command) (*sessionEnv, error) {
	env, err := openSession(cmd)
	if err != nil {
		return nil, err
	}
	if env.manager.State() != session.Authenticated {
		env.Close()
		return nil, fmt.Errorf("%w: run 'woodsreport login' first", session.ErrNotAuthenticated)
	}
	env.manager.RecordActivity(session.ActivityKeyDown)
	return env, nil
}

func newLoginCmd() *cobra.Command {
	var (
		username      string
		passwordStdin bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in with your Woods International account",
		Example: `  woodsreport login -u manager
  echo "$PASS" | woodsreport login -u manager --password-stdin`,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "Username: ")
				if username, err = readLine(in); err != nil {
					return fmt.Errorf("read username: %w", err)
				}
			}
			var password string
			if passwordStdin {
				password, err = readLine(in)
			} else {
				password, err = readSecret(in, "Password: ")
			}
			if err != nil {
				return err
			}

			ctx, cancel := commandContext(config.ParseDuration(env.cfg.Client.Timeout, client.DefaultTimeout))
			defer cancel()
			user, err := env.manager.Login(ctx, strings.TrimSpace(username), password)
			if err != nil {
				env.logger.Debug("login failed", "username", username, "error", err)
				if errors.Is(err, session.ErrLoginFailed) {
					return session.ErrLoginFailed
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s", user.Username)
			if user.Role != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " (%s)", user.Role)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().StringVarP(&username, "username", "u", "", "Username (prompted when omitted)")
	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin")

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			if err := env.manager.Logout(); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
}

func newWhoAmICmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged-in user and when the session expires",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := requireSession(cmd)
			if err != nil {
				return err
			}
			defer env.Close()

			user, err := env.manager.User()
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), user)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s\n", user.Username)
			if user.Role != "" {
				fmt.Fprintf(out, "  role:    %s\n", user.Role)
			}
			if deadline, ok := env.manager.Deadline(); ok {
				fmt.Fprintf(out, "  expires: %s (after %s idle)\n",
					deadline.Local().Format(time.Kitchen),
					config.ParseDuration(env.cfg.Session.InactivityTimeout, session.DefaultTimeout))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the stored user record as JSON")

	return cmd
}
