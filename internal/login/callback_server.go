package login

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// OutcomeKind classifies an inbound redirect on the callback path.
type OutcomeKind int

const (
	// OutcomeGranted means the redirect carried both code and state.
	OutcomeGranted OutcomeKind = iota

	// OutcomeDenied means the redirect carried neither code nor state, which
	// is how the authorization server signals declined consent.
	OutcomeDenied

	// OutcomeMalformed means exactly one of code and state arrived.
	OutcomeMalformed
)

// String returns the string representation of the outcome kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeGranted:
		return "granted"
	case OutcomeDenied:
		return "denied"
	case OutcomeMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// CallbackOutcome is the classified result of the OAuth redirect.
type CallbackOutcome struct {
	// Kind is the classification of the redirect.
	Kind OutcomeKind

	// Code is the authorization code, set only for OutcomeGranted.
	Code string

	// State is the echoed state parameter, set only for OutcomeGranted.
	State string
}

// CallbackServer is an ephemeral loopback HTTP listener that accepts exactly
// one meaningful OAuth redirect. Requests to any path other than the
// registered callback path are answered 404 and never touch the outcome
// channel, so stray probes (favicon fetches, health checks) cannot consume
// the single-slot handoff.
//
// The listener's lifetime is scoped to one login attempt: Start binds the
// socket before the browser is launched, and Stop releases it on every exit
// path of the attempt.
type CallbackServer struct {
	addr       string
	path       string
	grantedURL string
	deniedURL  string

	server    *http.Server
	listener  net.Listener
	outcomeCh chan CallbackOutcome
	serveErrs chan error
	group     *errgroup.Group
	stopOnce  sync.Once
}

// NewCallbackServer creates a callback server for the given flow config.
func NewCallbackServer(cfg Config) *CallbackServer {
	cfg = cfg.withDefaults()

	return &CallbackServer{
		addr:       fmt.Sprintf("127.0.0.1:%d", cfg.CallbackPort),
		path:       cfg.CallbackPath,
		grantedURL: cfg.GrantedRedirectURL,
		deniedURL:  cfg.DeniedRedirectURL,
		outcomeCh:  make(chan CallbackOutcome, 1),
		serveErrs:  make(chan error, 1),
	}
}

// Start binds the listener and begins serving. It must be called before the
// browser is launched so the redirect cannot arrive before the listener
// exists. A bind failure is fatal for the login attempt and is returned as
// *ListenerBindError.
//
// The server stops when the context is cancelled or Stop is called.
func (s *CallbackServer) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return &ListenerBindError{Addr: s.addr, Reason: err}
	}
	s.listener = listener

	mux := http.NewServeMux()
	mux.HandleFunc(s.path, s.handleCallback)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	s.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.group = &errgroup.Group{}
	s.group.Go(func() error {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case s.serveErrs <- err:
			default:
			}
			return err
		}
		return nil
	})

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Wait blocks until the first classified outcome is forwarded, the server
// fails, or the context expires. The caller owns the deadline; see
// Flow.awaitCallback for the timeout translation.
func (s *CallbackServer) Wait(ctx context.Context) (CallbackOutcome, error) {
	select {
	case outcome := <-s.outcomeCh:
		return outcome, nil
	case err := <-s.serveErrs:
		return CallbackOutcome{}, err
	case <-ctx.Done():
		return CallbackOutcome{}, ctx.Err()
	}
}

// handleCallback classifies a request on the callback path and forwards the
// classification. Only the first forwarded outcome is ever consumed; the
// server keeps answering subsequent requests so browser retries see a normal
// response instead of a connection error.
//
// The state comparison does NOT happen here. The handler only echoes what
// arrived; verification is the orchestrator's job after the handoff.
func (s *CallbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-store")

	query := r.URL.Query()
	code := query.Get("code")
	state := query.Get("state")

	var outcome CallbackOutcome
	switch {
	case code != "" && state != "":
		outcome = CallbackOutcome{Kind: OutcomeGranted, Code: code, State: state}
	case code == "" && state == "":
		// The authorization server redirects back with no parameters when
		// the user declines consent.
		outcome = CallbackOutcome{Kind: OutcomeDenied}
	default:
		outcome = CallbackOutcome{Kind: OutcomeMalformed}
	}

	select {
	case s.outcomeCh <- outcome:
	default:
	}

	target := s.deniedURL
	if outcome.Kind == OutcomeGranted {
		target = s.grantedURL
	}
	http.Redirect(w, r, target, http.StatusPermanentRedirect)
}

// Stop shuts the server down and releases the socket. It is idempotent and
// safe to call from multiple goroutines; it returns once the serve goroutine
// has exited, so the port is bindable again when Stop returns.
func (s *CallbackServer) Stop() {
	s.stopOnce.Do(func() {
		if s.server != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.server.Shutdown(ctx)
		}
		if s.listener != nil {
			_ = s.listener.Close()
		}
		if s.group != nil {
			_ = s.group.Wait()
		}
	})
}

// Addr returns the bound listener address.
func (s *CallbackServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
