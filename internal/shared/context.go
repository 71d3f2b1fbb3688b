package shared

import "context"

// Principal describes the authenticated caller as carried in a verified token.
type Principal struct {
	ID         string
	Email      string
	Name       string
	Role       string
	Position   []string
	Department string
}

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the principal from context.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalContextKey{}).(*Principal)
	return p
}
