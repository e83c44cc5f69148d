package login

import (
	"fmt"
	"time"
)

// InvalidScopeError indicates that a requested OAuth scope is not in the
// allow-list. Scope validation is all-or-nothing: the first unknown scope
// aborts the login attempt before any network activity.
type InvalidScopeError struct {
	// Scope is the requested scope that failed validation.
	Scope string
}

// Error implements the error interface.
func (e *InvalidScopeError) Error() string {
	return fmt.Sprintf("invalid scope %q: run 'corral login --help' for the list of supported scopes", e.Scope)
}

// BrowserPromptDeclinedError indicates the user declined to let the tool open
// a browser page. Without the browser there is no way to complete the
// interactive flow.
type BrowserPromptDeclinedError struct{}

// Error implements the error interface.
func (e *BrowserPromptDeclinedError) Error() string {
	return "login requires opening a page in your browser; if you prefer not to, configure an API token manually with 'corral config'"
}

// ListenerBindError indicates the local callback listener could not bind its
// port. This is fatal for the attempt; another process may hold the port.
type ListenerBindError struct {
	// Addr is the address the listener tried to bind.
	Addr string
	// Reason is the underlying error.
	Reason error
}

// Error implements the error interface.
func (e *ListenerBindError) Error() string {
	return fmt.Sprintf("failed to start OAuth callback listener on %s: %v", e.Addr, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ListenerBindError) Unwrap() error {
	return e.Reason
}

// ConsentDeniedError indicates the user declined consent on the authorization
// server's page. This is an expected terminal outcome, not a defect.
type ConsentDeniedError struct{}

// Error implements the error interface.
func (e *ConsentDeniedError) Error() string {
	return "consent denied: you must grant consent in the browser to log in, or configure an API token manually with 'corral config'"
}

// MalformedCallbackError indicates the authorization server's redirect carried
// an incomplete parameter set (exactly one of code and state).
type MalformedCallbackError struct {
	// Missing names the absent query parameter.
	Missing string
}

// Error implements the error interface.
func (e *MalformedCallbackError) Error() string {
	return fmt.Sprintf("malformed OAuth callback: missing %q parameter", e.Missing)
}

// CallbackTimeoutError indicates no callback arrived within the configured
// wait window. The listener has been released by the time this is returned.
type CallbackTimeoutError struct {
	// Timeout is the wait window that expired.
	Timeout time.Duration
}

// Error implements the error interface.
func (e *CallbackTimeoutError) Error() string {
	return fmt.Sprintf("timed out after %s waiting for the browser to complete authorization", e.Timeout)
}

// CSRFMismatchError indicates the state parameter returned by the redirect
// does not match the one generated for this session. The redirect cannot be
// trusted and the flow must not proceed to token exchange.
//
// The expected and received values are deliberately not included: they are
// session secrets and must not reach logs or terminal output.
type CSRFMismatchError struct{}

// Error implements the error interface.
func (e *CSRFMismatchError) Error() string {
	return "OAuth state check failed: the callback does not match the login request that was started"
}

// TokenExchangeError indicates the code-for-token exchange failed. A single
// authorization code is single-use, so the exchange is never retried.
type TokenExchangeError struct {
	// Reason is the underlying error from the token endpoint.
	Reason error
}

// Error implements the error interface.
func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed: %v", e.Reason)
}

// Unwrap returns the underlying error.
func (e *TokenExchangeError) Unwrap() error {
	return e.Reason
}

// PersistenceError indicates the exchanged credential could not be handed to
// the credential store.
type PersistenceError struct {
	// Reason is the underlying error from the store.
	Reason error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to save credential: %v", e.Reason)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Reason
}
