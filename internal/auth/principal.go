package auth

import (
	"context"
	"errors"
)

// Principal is the verified identity of a caller.
//
// Multi-tenant invariant: OrganizationID must be present on every principal.
type Principal struct {
	UserID         string
	OrganizationID string
	Role           string
	Permissions    []string

	// Token is the raw bearer token, retained for downstream permission
	// checks against the identity service. Never log it.
	Token string
}

// TenantContext is proof that a request is authenticated and tenant-scoped.
// It can only be built from a non-empty Principal, so code that receives one
// never needs a nil check before reading the organization id.
type TenantContext struct {
	principal Principal
}

var ErrUnauthenticated = errors.New("auth: unauthenticated")

// NewTenantContext validates the principal and wraps it.
func NewTenantContext(p Principal) (TenantContext, error) {
	if p.UserID == "" || p.OrganizationID == "" {
		return TenantContext{}, ErrUnauthenticated
	}
	return TenantContext{principal: p}, nil
}

func (t TenantContext) UserID() string         { return t.principal.UserID }
func (t TenantContext) OrganizationID() string { return t.principal.OrganizationID }
func (t TenantContext) Role() string           { return t.principal.Role }

type ctxKey int

const ctxPrincipal ctxKey = iota

// WithPrincipal stores a verified principal in the request context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, ctxPrincipal, p)
}

// PrincipalFrom returns the principal, if the request was authenticated.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(ctxPrincipal).(Principal)
	return p, ok
}

// Tenant returns a TenantContext for the request, or ErrUnauthenticated.
// Every tenant-scoped operation goes through this single gate.
func Tenant(ctx context.Context) (TenantContext, error) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return TenantContext{}, ErrUnauthenticated
	}
	return NewTenantContext(p)
}
