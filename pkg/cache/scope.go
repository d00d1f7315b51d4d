package cache

import "context"

// AnonymousScope is the scope of requests sent without a credential.
const AnonymousScope = "anon"

// scopeKey is the context key carrying the credential scope.
type scopeKey struct{}

// WithScope returns a context whose cache operations are isolated to scope.
//
// Responses such as the user profile differ per credential, so a table never
// serves an entry stored under one scope to a lookup under another. In
// memory, a change of scope drops the held entries; in the mirror, every key
// is prefixed with the scope.
func WithScope(ctx context.Context, scope string) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// scopeFrom returns the scope attached to ctx, or [AnonymousScope].
func scopeFrom(ctx context.Context) string {
	if s, ok := ctx.Value(scopeKey{}).(string); ok && s != "" {
		return s
	}
	return AnonymousScope
}

// CredentialScope derives a scope from a bearer token without storing the
// token itself. An empty token yields [AnonymousScope].
func CredentialScope(token string) string {
	if token == "" {
		return AnonymousScope
	}
	return "cred-" + Hash([]byte(token))[:16]
}
