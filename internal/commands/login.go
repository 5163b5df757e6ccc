package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"firetodo/internal/backend/googletasks"
	"firetodo/internal/config"
	"firetodo/internal/exitcode"
	"firetodo/internal/session"
)

const (
	oauthCallbackTimeout = 5 * time.Minute
	tokenExchangeTimeout = 30 * time.Second

	// The callback server binds the first free port in this range.
	oauthStartPort       = 8085
	oauthMaxPortAttempts = 5
)

func init() {
	Register(&LoginCmd{})
}

// LoginCmd implements the login command.
// It authorizes the remote backend to store tasks in Google Tasks.
type LoginCmd struct {
	useRemote bool
}

func (c *LoginCmd) Name() string       { return "login" }
func (c *LoginCmd) Aliases() []string  { return nil }
func (c *LoginCmd) Synopsis() string   { return "Authenticate the remote backend with Google" }
func (c *LoginCmd) Usage() string      { return "firetodo login [common flags] [--use-remote]" }
func (c *LoginCmd) NeedsSession() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.useRemote, "use-remote", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, cfg *config.Config, s *session.Session, args []string, out, errOut io.Writer) int {
	if !cfg.HasOAuthClient() {
		printOAuthSetup(errOut, cfg.Dir)
		return exitcode.AuthError
	}

	if cfg.HasToken() {
		err := googletasks.CheckToken(ctx, cfg)
		if err == nil {
			if !cfg.Quiet {
				fmt.Fprintln(out, "already logged in")
			}
			return c.switchBackend(cfg, errOut)
		}
		slog.Info("stored token unusable, starting login", "error", err)
	}

	oauthConfig, err := googletasks.OAuthConfig(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	listener, err := listenForCallback()
	if err != nil {
		fmt.Fprintf(errOut, "error: could not bind to local port for OAuth callback\n")
		return exitcode.AuthError
	}
	defer listener.Close()

	oauthConfig.RedirectURL = fmt.Sprintf("http://%s/callback", listener.Addr())
	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()

	fmt.Fprintln(errOut, "Open this URL in your browser:")
	fmt.Fprintln(errOut, oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier)))

	code, err := awaitCallback(ctx, listener, state)
	if err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.AuthError
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()
	token, err := oauthConfig.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		fmt.Fprintf(errOut, "error: failed to exchange code for token: %v\n", err)
		return exitcode.AuthError
	}

	if err := cfg.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := googletasks.SaveToken(cfg.TokenPath(), token); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}
	slog.Info("stored google token", "path", cfg.TokenPath())

	if !cfg.Quiet {
		fmt.Fprintln(out, "ok")
	}
	return c.switchBackend(cfg, errOut)
}

// switchBackend makes remote the configured backend when --use-remote is set.
func (c *LoginCmd) switchBackend(cfg *config.Config, errOut io.Writer) int {
	if !c.useRemote || cfg.Backend == config.BackendRemote {
		return exitcode.Success
	}
	cfg.Backend = config.BackendRemote
	if err := cfg.Save(); err != nil {
		fmt.Fprintf(errOut, "error: failed to save config: %v\n", err)
		return exitcode.AuthError
	}
	slog.Info("switched backend", "backend", cfg.Backend)
	return exitcode.Success
}

func printOAuthSetup(w io.Writer, dir string) {
	fmt.Fprintf(w, "error: oauth_client.json not found in %s\n\n", dir)
	fmt.Fprintf(w, `The remote backend keeps tasks in Google Tasks and needs OAuth credentials:

1. Go to https://console.cloud.google.com/apis/credentials
2. Create a project (or select an existing one)
3. Enable the Google Tasks API:
   https://console.cloud.google.com/apis/library/tasks.googleapis.com
4. Create an OAuth client ID of type 'Desktop app' and download the JSON file
5. Save it as:
   %s/%s

Then run 'firetodo login' again.
`, dir, config.OAuthClientFile)
}

func listenForCallback() (net.Listener, error) {
	for i := 0; i < oauthMaxPortAttempts; i++ {
		listener, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", oauthStartPort+i))
		if err == nil {
			return listener, nil
		}
	}
	return nil, errors.New("no available port found")
}

// awaitCallback serves the OAuth redirect on listener and returns the
// authorization code. Redirects carrying another state are rejected.
func awaitCallback(ctx context.Context, listener net.Listener, state string) (string, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			select {
			case errCh <- errors.New("no code in callback"):
			default:
			}
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Authentication successful</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	select {
	case code := <-codeCh:
		return code, nil
	case err := <-errCh:
		return "", err
	case <-time.After(oauthCallbackTimeout):
		return "", errors.New("oauth callback timed out")
	case <-ctx.Done():
		return "", errors.New("cancelled")
	}
}
