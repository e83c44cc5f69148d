package login

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"corral/internal/creds"
)

// fakeStore records credentials handed to it.
type fakeStore struct {
	puts   []creds.Credential
	putErr error
}

func (s *fakeStore) Put(cred creds.Credential) error {
	if s.putErr != nil {
		return s.putErr
	}
	s.puts = append(s.puts, cred)
	return nil
}

func (s *fakeStore) Get() (*creds.Credential, error) {
	if len(s.puts) == 0 {
		return nil, creds.ErrNoCredential
	}
	cred := s.puts[len(s.puts)-1]
	return &cred, nil
}

func (s *fakeStore) Delete() error {
	s.puts = nil
	return nil
}

// grantingBrowser simulates a user who approves consent: it follows the
// authorization URL's redirect_uri back with a code and the echoed state,
// optionally tampering with the parameters first.
func grantingBrowser(t *testing.T, tamper func(params url.Values)) func(string) error {
	t.Helper()
	return func(authURL string) error {
		parsed, err := url.Parse(authURL)
		if err != nil {
			return err
		}

		redirectURI := parsed.Query().Get("redirect_uri")
		params := url.Values{}
		params.Set("code", "e2e-auth-code")
		params.Set("state", parsed.Query().Get("state"))
		if tamper != nil {
			tamper(params)
		}

		go func() {
			resp, err := noRedirectClient().Get(redirectURI + "?" + params.Encode())
			if err != nil {
				t.Logf("simulated browser request failed: %v", err)
				return
			}
			resp.Body.Close()
		}()
		return nil
	}
}

// newTokenEndpoint returns a fake token endpoint and a counter of exchange
// calls.
func newTokenEndpoint(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"e2e-token","token_type":"bearer","expires_in":3600}`))
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func newTestFlow(t *testing.T, store creds.Store, browser func(string) error) (*Flow, *atomic.Int32) {
	t.Helper()
	tokenEndpoint, exchangeCalls := newTokenEndpoint(t)

	cfg := testServerConfig(t)
	cfg.TokenURL = tokenEndpoint.URL
	cfg.CallbackTimeout = 5 * time.Second

	flow := NewFlow(cfg, store,
		WithBrowserOpener(browser),
		WithConfirm(func(string) (bool, error) { return true, nil }),
		WithOutput(io.Discard),
	)
	return flow, exchangeCalls
}

func TestFlow_EndToEnd(t *testing.T) {
	store := &fakeStore{}
	flow, exchangeCalls := newTestFlow(t, store, grantingBrowser(t, nil))

	err := flow.Run(context.Background(), nil)
	require.NoError(t, err)

	assert.Equal(t, int32(1), exchangeCalls.Load(), "exactly one token exchange")
	require.Len(t, store.puts, 1, "credential handed to the store exactly once")

	cred := store.puts[0]
	assert.Equal(t, creds.TypeOAuth, cred.Type)
	assert.Equal(t, "e2e-token", cred.Secret)
	assert.Equal(t, AllowedScopes, cred.Scopes, "no requested scopes means the full allow-list")
}

func TestFlow_RequestedScopeSubset(t *testing.T) {
	store := &fakeStore{}
	flow, _ := newTestFlow(t, store, grantingBrowser(t, nil))

	err := flow.Run(context.Background(), []string{"zone:read", "account:read"})
	require.NoError(t, err)

	require.Len(t, store.puts, 1)
	assert.Equal(t, []string{"zone:read", "account:read"}, store.puts[0].Scopes)
}

func TestFlow_CSRFMismatchNeverExchanges(t *testing.T) {
	store := &fakeStore{}
	browser := grantingBrowser(t, func(params url.Values) {
		params.Set("state", "forged-state")
	})
	flow, exchangeCalls := newTestFlow(t, store, browser)

	err := flow.Run(context.Background(), nil)

	var mismatch *CSRFMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, int32(0), exchangeCalls.Load(), "token exchange must not run after a CSRF mismatch")
	assert.Empty(t, store.puts)
}

func TestFlow_ConsentDenied(t *testing.T) {
	store := &fakeStore{}
	browser := grantingBrowser(t, func(params url.Values) {
		params.Del("code")
		params.Del("state")
	})
	flow, exchangeCalls := newTestFlow(t, store, browser)

	err := flow.Run(context.Background(), nil)

	var denied *ConsentDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, int32(0), exchangeCalls.Load())
	assert.Empty(t, store.puts)
}

func TestFlow_MalformedCallback(t *testing.T) {
	store := &fakeStore{}
	browser := grantingBrowser(t, func(params url.Values) {
		params.Del("state")
	})
	flow, exchangeCalls := newTestFlow(t, store, browser)

	err := flow.Run(context.Background(), nil)

	var malformed *MalformedCallbackError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, "state", malformed.Missing)
	assert.Equal(t, int32(0), exchangeCalls.Load())
}

func TestFlow_InvalidScopeFailsBeforeAnyAction(t *testing.T) {
	store := &fakeStore{}
	browserOpened := false
	confirmAsked := false

	tokenEndpoint, exchangeCalls := newTokenEndpoint(t)
	cfg := testServerConfig(t)
	cfg.TokenURL = tokenEndpoint.URL

	flow := NewFlow(cfg, store,
		WithBrowserOpener(func(string) error { browserOpened = true; return nil }),
		WithConfirm(func(string) (bool, error) { confirmAsked = true; return true, nil }),
		WithOutput(io.Discard),
	)

	err := flow.Run(context.Background(), []string{"zone:read", "not-a-scope"})

	var invalidScope *InvalidScopeError
	require.ErrorAs(t, err, &invalidScope)
	assert.Equal(t, "not-a-scope", invalidScope.Scope)
	assert.False(t, confirmAsked)
	assert.False(t, browserOpened)
	assert.Equal(t, int32(0), exchangeCalls.Load())
}

func TestFlow_BrowserPromptDeclined(t *testing.T) {
	store := &fakeStore{}
	browserOpened := false

	tokenEndpoint, _ := newTokenEndpoint(t)
	cfg := testServerConfig(t)
	cfg.TokenURL = tokenEndpoint.URL

	flow := NewFlow(cfg, store,
		WithBrowserOpener(func(string) error { browserOpened = true; return nil }),
		WithConfirm(func(string) (bool, error) { return false, nil }),
		WithOutput(io.Discard),
	)

	err := flow.Run(context.Background(), nil)

	var declined *BrowserPromptDeclinedError
	require.ErrorAs(t, err, &declined)
	assert.False(t, browserOpened, "browser must not open after a declined prompt")
}

func TestFlow_CallbackTimeoutReleasesListener(t *testing.T) {
	store := &fakeStore{}

	tokenEndpoint, _ := newTokenEndpoint(t)
	cfg := testServerConfig(t)
	cfg.TokenURL = tokenEndpoint.URL
	cfg.CallbackTimeout = 100 * time.Millisecond

	flow := NewFlow(cfg, store,
		WithBrowserOpener(func(string) error { return nil }), // user never completes consent
		WithConfirm(func(string) (bool, error) { return true, nil }),
		WithOutput(io.Discard),
	)

	err := flow.Run(context.Background(), nil)

	var timedOut *CallbackTimeoutError
	require.ErrorAs(t, err, &timedOut)
	assert.Equal(t, cfg.CallbackTimeout, timedOut.Timeout)

	// The listener must be gone once the attempt fails.
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.CallbackPort))
	require.NoError(t, err, "port not released after timeout")
	l.Close()
}

func TestFlow_PersistenceFailure(t *testing.T) {
	store := &fakeStore{putErr: errors.New("disk full")}
	flow, _ := newTestFlow(t, store, grantingBrowser(t, nil))

	err := flow.Run(context.Background(), nil)

	var persistence *PersistenceError
	require.ErrorAs(t, err, &persistence)
	assert.ErrorContains(t, err, "disk full")
}

func TestFlow_ListenerBindFailureIsFatal(t *testing.T) {
	store := &fakeStore{}

	tokenEndpoint, _ := newTokenEndpoint(t)
	cfg := testServerConfig(t)
	cfg.TokenURL = tokenEndpoint.URL

	occupied, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", cfg.CallbackPort))
	require.NoError(t, err)
	defer occupied.Close()

	flow := NewFlow(cfg, store,
		WithBrowserOpener(func(string) error { return nil }),
		WithConfirm(func(string) (bool, error) { return true, nil }),
		WithOutput(io.Discard),
	)

	err = flow.Run(context.Background(), nil)

	var bindErr *ListenerBindError
	require.ErrorAs(t, err, &bindErr)
}
