package login

// AllowedScopes is the fixed allow-list of OAuth scopes the platform grants to
// CLI sessions. Membership tests are case-sensitive exact matches.
var AllowedScopes = []string{
	"account:read",
	"user:read",
	"workers:write",
	"workers_kv:write",
	"workers_routes:write",
	"workers_scripts:write",
	"workers_tail:read",
	"zone:read",
}

// ResolveScopes resolves the scope set to request during login.
//
// With no requested scopes the full allow-list is requested (maximal default
// grant). Otherwise every requested scope must exactly match an allow-list
// entry; the first unknown scope fails the whole resolution with
// *InvalidScopeError before any listener or network activity occurs.
func ResolveScopes(requested []string) ([]string, error) {
	if len(requested) == 0 {
		scopes := make([]string, len(AllowedScopes))
		copy(scopes, AllowedScopes)
		return scopes, nil
	}

	allowed := make(map[string]struct{}, len(AllowedScopes))
	for _, scope := range AllowedScopes {
		allowed[scope] = struct{}{}
	}

	scopes := make([]string, 0, len(requested))
	for _, scope := range requested {
		if _, ok := allowed[scope]; !ok {
			return nil, &InvalidScopeError{Scope: scope}
		}
		scopes = append(scopes, scope)
	}

	return scopes, nil
}
