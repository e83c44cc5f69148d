package login

import (
	"context"

	"golang.org/x/oauth2"
)

// Exchange trades the authorization code plus the session's PKCE verifier for
// an access token at the token endpoint. Client credentials travel in the
// request body (AuthStyleInParams), matching the confidential-client
// registration of the tool.
//
// Failure is terminal for the attempt and is never retried: the authorization
// code is single-use and a second exchange with the same code would be
// rejected by the server anyway.
func (s *Session) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.oauth.Exchange(ctx, code, oauth2.VerifierOption(s.verifier))
	if err != nil {
		return nil, &TokenExchangeError{Reason: err}
	}
	return token, nil
}
