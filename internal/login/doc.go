// Package login implements corral's interactive OAuth2 login: an
// Authorization Code flow hardened with PKCE where the redirect target is an
// ephemeral HTTP listener on localhost rather than a hosted endpoint.
//
// # Flow
//
// A login attempt runs through a fixed sequence:
//
//  1. Requested scopes are validated against the allow-list (ResolveScopes).
//  2. A Session is created with a fresh PKCE verifier and CSRF state.
//  3. The CallbackServer binds its loopback port. Binding happens before the
//     browser is launched so the redirect cannot race the listener.
//  4. The user confirms, the browser opens the authorization URL, and the
//     flow performs one bounded blocking receive on the callback handoff.
//  5. The classified outcome is checked in order: denial, structural
//     completeness, CSRF state, and only then the code is exchanged for an
//     access token.
//  6. The resulting credential is handed to the creds store.
//
// # Concurrency
//
// The HTTP listener serves requests on its own goroutines; the orchestrator
// blocks once on a capacity-1 channel fed by the callback handler. Nothing
// else is shared between the two. Secret comparison never happens inside the
// HTTP handler.
//
// # Failure model
//
// Every error is terminal for the attempt and carried as a typed error
// (InvalidScopeError, ConsentDeniedError, CSRFMismatchError, ...). Re-running
// the flow builds a fresh session; secrets are never reused across attempts.
package login
