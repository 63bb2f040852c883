package auth

import (
	"context"
	"testing"
	"time"

	"nexuscrm/internal/config"
)

func TestLocalVerifier_IssueAndVerify(t *testing.T) {
	v, err := NewLocalVerifier(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "issuer"})
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}

	now := time.Now().UTC()
	tok, err := v.IssueLocalToken(now, "user-1", "org-1", "member", 15*time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	p, err := v.Verify(context.Background(), "Bearer "+tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p == nil {
		t.Fatalf("expected principal")
	}
	if p.UserID != "user-1" || p.OrganizationID != "org-1" || p.Role != "member" {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestLocalVerifier_InvalidTokenIsUnauthenticatedNotError(t *testing.T) {
	v, _ := NewLocalVerifier(config.AuthConfig{JWTSecret: "secret"})
	p, err := v.Verify(context.Background(), "Bearer not-a-jwt")
	if err != nil {
		t.Fatalf("invalid token must not be an error, got %v", err)
	}
	if p != nil {
		t.Fatalf("expected nil principal")
	}
}

func TestLocalVerifier_RejectsExpired(t *testing.T) {
	v, _ := NewLocalVerifier(config.AuthConfig{JWTSecret: "secret"})
	tok, err := v.IssueLocalToken(time.Now().Add(-2*time.Hour), "u", "o", "r", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p != nil {
		t.Fatalf("expected expired token to be rejected")
	}
}

func TestLocalVerifier_RejectsWrongIssuer(t *testing.T) {
	issuing, _ := NewLocalVerifier(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "someone-else"})
	v, _ := NewLocalVerifier(config.AuthConfig{JWTSecret: "secret", JWTIssuer: "issuer"})

	tok, err := issuing.IssueLocalToken(time.Now().UTC(), "u", "o", "r", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p != nil {
		t.Fatalf("expected wrong-issuer token to be rejected")
	}
}

func TestLocalVerifier_RejectsWrongAudience(t *testing.T) {
	issuing, _ := NewLocalVerifier(config.AuthConfig{JWTSecret: "secret"})
	v, _ := NewLocalVerifier(config.AuthConfig{JWTSecret: "secret", JWTAudience: "nexuscrm"})

	tok, err := issuing.IssueLocalToken(time.Now().UTC(), "u", "o", "r", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, err := v.Verify(context.Background(), tok)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p != nil {
		t.Fatalf("expected token without audience to be rejected")
	}
}

func TestTenant_RequiresPrincipal(t *testing.T) {
	if _, err := Tenant(context.Background()); err != ErrUnauthenticated {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	ctx := WithPrincipal(context.Background(), Principal{UserID: "u", OrganizationID: "org-9", Role: "admin"})
	tc, err := Tenant(ctx)
	if err != nil {
		t.Fatalf("tenant: %v", err)
	}
	if tc.OrganizationID() != "org-9" {
		t.Fatalf("unexpected org: %q", tc.OrganizationID())
	}
}

func TestNewTenantContext_RejectsIncompletePrincipal(t *testing.T) {
	if _, err := NewTenantContext(Principal{UserID: "u"}); err == nil {
		t.Fatalf("expected error without organization id")
	}
	if _, err := NewTenantContext(Principal{OrganizationID: "o"}); err == nil {
		t.Fatalf("expected error without user id")
	}
}
