package login

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/google/uuid"

	"corral/internal/creds"
	"corral/internal/terminal"
)

// browserPromptQuestion is asked before any page is opened on the user's
// behalf.
const browserPromptQuestion = "Allow corral to open a page in your browser?"

// Flow orchestrates one interactive login attempt. It sequences scope
// resolution, session creation, the callback listener, the browser handoff,
// CSRF verification, the token exchange and credential persistence.
//
// Every error is terminal for the attempt; the caller may re-run the flow,
// which generates a fresh session rather than reusing stale secrets.
type Flow struct {
	cfg     Config
	store   creds.Store
	browser func(url string) error
	confirm func(question string) (bool, error)
	out     io.Writer
	spin    bool
}

// Option customizes a Flow. Used mainly to inject the browser launcher and
// confirmation prompt in tests.
type Option func(*Flow)

// WithBrowserOpener replaces the default browser launcher.
func WithBrowserOpener(open func(url string) error) Option {
	return func(f *Flow) {
		f.browser = open
	}
}

// WithConfirm replaces the default interactive yes/no prompt.
func WithConfirm(confirm func(question string) (bool, error)) Option {
	return func(f *Flow) {
		f.confirm = confirm
	}
}

// WithOutput redirects user-facing progress messages. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(f *Flow) {
		f.out = w
	}
}

// WithSpinner shows a terminal spinner while waiting for the browser
// redirect.
func WithSpinner() Option {
	return func(f *Flow) {
		f.spin = true
	}
}

// NewFlow creates a login flow with the given configuration and credential
// store.
func NewFlow(cfg Config, store creds.Store, opts ...Option) *Flow {
	f := &Flow{
		cfg:     cfg.withDefaults(),
		store:   store,
		browser: terminal.OpenBrowser,
		confirm: terminal.Confirm,
		out:     os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Run executes one login attempt. requestedScopes may be empty, in which case
// the full allow-list is requested.
func (f *Flow) Run(ctx context.Context, requestedScopes []string) error {
	attempt := uuid.NewString()

	scopes, err := ResolveScopes(requestedScopes)
	if err != nil {
		return err
	}

	session, err := NewSession(f.cfg, scopes)
	if err != nil {
		return err
	}

	// The listener must be accepting connections before the browser is
	// launched, otherwise the redirect can race the bind.
	server := NewCallbackServer(f.cfg)
	if err := server.Start(ctx); err != nil {
		return err
	}
	defer server.Stop()

	authURL := session.AuthCodeURL()

	allowed, err := f.confirm(browserPromptQuestion)
	if err != nil {
		return fmt.Errorf("failed to read confirmation: %w", err)
	}
	if !allowed {
		return &BrowserPromptDeclinedError{}
	}

	fmt.Fprintf(f.out, "Opening a browser page for authorization. If it does not open, visit:\n  %s\n\n", authURL)
	if err := f.browser(authURL); err != nil {
		// Not fatal: the URL is printed above for manual use.
		slog.Warn("Failed to open browser",
			"attempt", attempt,
			"error", err.Error(),
		)
	}

	slog.Debug("Waiting for OAuth callback",
		"attempt", attempt,
		"listener", server.Addr(),
		"scopes", len(scopes),
	)

	var spin *spinner.Spinner
	if f.spin {
		spin = spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(f.out))
		spin.Suffix = " Waiting for authorization in the browser..."
		spin.Start()
	}

	outcome, err := f.awaitCallback(ctx, server)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}

	// The outcome is in hand; release the socket now rather than holding it
	// through the exchange. Stop is graceful, so the browser still gets its
	// redirect response. The deferred Stop above is a no-op after this.
	server.Stop()

	// Validation order matters: denial before structural checks before CSRF
	// before exchange.
	switch outcome.Kind {
	case OutcomeDenied:
		return &ConsentDeniedError{}
	case OutcomeMalformed:
		missing := "code"
		if outcome.Code != "" {
			missing = "state"
		}
		return &MalformedCallbackError{Missing: missing}
	}

	if err := session.VerifyState(outcome.State); err != nil {
		slog.Warn("OAuth state mismatch detected, rejecting callback",
			"attempt", attempt,
			"received_state_len", len(outcome.State),
		)
		return err
	}

	token, err := session.Exchange(ctx, outcome.Code)
	if err != nil {
		slog.Warn("OAuth token exchange failed",
			"attempt", attempt,
			"error", err.Error(),
		)
		return err
	}

	slog.Debug("OAuth token exchange succeeded",
		"attempt", attempt,
		"token_type", token.TokenType,
	)

	cred := creds.Credential{
		Type:   creds.TypeOAuth,
		Secret: token.AccessToken,
		Scopes: scopes,
	}
	if err := f.store.Put(cred); err != nil {
		return &PersistenceError{Reason: err}
	}

	return nil
}

// awaitCallback performs the single bounded blocking receive on the callback
// handoff. On expiry the deferred server.Stop in Run releases the listener.
func (f *Flow) awaitCallback(ctx context.Context, server *CallbackServer) (CallbackOutcome, error) {
	waitCtx, cancel := context.WithTimeout(ctx, f.cfg.CallbackTimeout)
	defer cancel()

	outcome, err := server.Wait(waitCtx)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return CallbackOutcome{}, &CallbackTimeoutError{Timeout: f.cfg.CallbackTimeout}
		}
		return CallbackOutcome{}, fmt.Errorf("failed to receive OAuth callback: %w", err)
	}

	return outcome, nil
}
