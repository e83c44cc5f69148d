package login

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"time"

	"golang.org/x/oauth2"
)

const (
	// DefaultCallbackPort is the fixed loopback port registered with the
	// authorization server as part of the redirect URI.
	DefaultCallbackPort = 8976

	// DefaultCallbackPath is the redirect path registered with the
	// authorization server.
	DefaultCallbackPath = "/oauth/callback"

	// DefaultCallbackTimeout is how long to wait for the OAuth callback.
	DefaultCallbackTimeout = 10 * time.Minute

	// stateBytes is the number of random bytes for the OAuth state parameter.
	// 32 bytes encodes to 43 base64url characters, satisfying servers that
	// require a minimum of 32 characters.
	stateBytes = 32
)

// Config carries the endpoints and parameters for one login flow. The client
// id is injected explicitly; the flow never reads ambient process state.
type Config struct {
	// ClientID is the OAuth client identifier of this tool (public client,
	// no secret).
	ClientID string

	// AuthURL is the authorization endpoint users are sent to for consent.
	AuthURL string

	// TokenURL is the token endpoint used for the code exchange.
	TokenURL string

	// CallbackPort is the loopback port for the callback listener.
	// Defaults to DefaultCallbackPort.
	CallbackPort int

	// CallbackPath is the redirect path. Defaults to DefaultCallbackPath.
	CallbackPath string

	// CallbackTimeout bounds the wait for the browser redirect.
	// Defaults to DefaultCallbackTimeout.
	CallbackTimeout time.Duration

	// GrantedRedirectURL is where the browser is sent after the user grants
	// consent, so the user sees a confirmation page rather than a raw
	// response.
	GrantedRedirectURL string

	// DeniedRedirectURL is where the browser is sent after the user declines
	// consent.
	DeniedRedirectURL string
}

// withDefaults returns a copy of the config with zero values filled in.
func (c Config) withDefaults() Config {
	if c.CallbackPort == 0 {
		c.CallbackPort = DefaultCallbackPort
	}
	if c.CallbackPath == "" {
		c.CallbackPath = DefaultCallbackPath
	}
	if c.CallbackTimeout == 0 {
		c.CallbackTimeout = DefaultCallbackTimeout
	}
	return c
}

// redirectURL is the full redirect URI registered with the authorization
// server.
func (c Config) redirectURL() string {
	return fmt.Sprintf("http://localhost:%d%s", c.CallbackPort, c.CallbackPath)
}

// Session holds the secrets of a single login attempt: the PKCE verifier and
// the CSRF state. A session is created fresh per attempt, never persisted and
// never reused; reusing either secret defeats the protection it provides.
type Session struct {
	oauth    *oauth2.Config
	verifier string
	state    string
}

// NewSession generates a fresh PKCE verifier (256 bits of entropy, via
// x/oauth2) and CSRF state for one login attempt covering the given scopes.
func NewSession(cfg Config, scopes []string) (*Session, error) {
	cfg = cfg.withDefaults()

	state, err := generateState()
	if err != nil {
		return nil, err
	}

	return &Session{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.redirectURL(),
			Scopes:      scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
				// Client credentials go in the request body, not basic auth.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		verifier: oauth2.GenerateVerifier(),
		state:    state,
	}, nil
}

// AuthCodeURL returns the authorization URL to open in the user's browser. It
// carries the client id, redirect URI, scopes, the S256 PKCE challenge derived
// from the session verifier, and the CSRF state. No network call is made.
func (s *Session) AuthCodeURL() string {
	return s.oauth.AuthCodeURL(s.state, oauth2.S256ChallengeOption(s.verifier))
}

// VerifyState compares the state returned in the redirect against the state
// generated for this session. On mismatch the redirect cannot be trusted and
// the flow must not proceed to token exchange.
func (s *Session) VerifyState(received string) error {
	if subtle.ConstantTimeCompare([]byte(s.state), []byte(received)) != 1 {
		return &CSRFMismatchError{}
	}
	return nil
}

// generateState generates the random CSRF state parameter, base64url-encoded.
func generateState() (string, error) {
	buf := make([]byte, stateBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
