package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"nexuscrm/internal/clients"
	"nexuscrm/internal/config"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier resolves a bearer token to a Principal.
// A nil principal with nil error means "not authenticated"; errors are
// reserved for verification infrastructure failures.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Principal, error)
}

// NewVerifier picks remote verification when the identity service is
// configured, otherwise local HS256 verification (dev/test only).
func NewVerifier(cfg config.Config, identity *clients.IdentityClient) (Verifier, error) {
	if cfg.Services.IdentityURL != "" {
		if identity == nil {
			return nil, errors.New("auth: identity client is required for remote verification")
		}
		return &RemoteVerifier{identity: identity}, nil
	}
	return NewLocalVerifier(cfg.Auth)
}

// RemoteVerifier delegates to the identity service's verify endpoint.
type RemoteVerifier struct {
	identity *clients.IdentityClient
}

func (v *RemoteVerifier) Verify(ctx context.Context, token string) (*Principal, error) {
	info, err := v.identity.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}
	return &Principal{
		UserID:         info.UserID,
		OrganizationID: info.OrganizationID,
		Role:           info.Role,
		Permissions:    info.Permissions,
		Token:          stripBearer(token),
	}, nil
}

// LocalVerifier validates HS256 tokens with a shared secret. It exists so the
// plugin can run without the identity service in local/dev environments;
// production config refuses this mode.
type LocalVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewLocalVerifier(cfg config.AuthConfig) (*LocalVerifier, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("auth: JWT_SECRET is required for local verification")
	}
	return &LocalVerifier{
		secret:   []byte(cfg.JWTSecret),
		issuer:   cfg.JWTIssuer,
		audience: cfg.JWTAudience,
	}, nil
}

// Claims is the only supported local JWT claims shape.
type Claims struct {
	jwt.RegisteredClaims

	UserID         string   `json:"user_id"`
	OrganizationID string   `json:"organization_id"`
	Role           string   `json:"role"`
	Permissions    []string `json:"permissions,omitempty"`
}

func (v *LocalVerifier) Verify(_ context.Context, token string) (*Principal, error) {
	token = stripBearer(token)
	if token == "" {
		return nil, nil
	}

	var claims Claims
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(30*time.Second), // clock skew tolerance
	)

	_, err := parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		// Invalid tokens mean "not authenticated", never a hard failure.
		return nil, nil
	}

	opts := []jwt.ParserOption{
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	if err := jwt.NewValidator(opts...).Validate(claims.RegisteredClaims); err != nil {
		return nil, nil
	}

	if claims.UserID == "" || claims.OrganizationID == "" {
		return nil, nil
	}

	return &Principal{
		UserID:         claims.UserID,
		OrganizationID: claims.OrganizationID,
		Role:           claims.Role,
		Permissions:    claims.Permissions,
		Token:          token,
	}, nil
}

// IssueLocalToken mints an HS256 token accepted by LocalVerifier.
// Used by dev tooling and tests only.
func (v *LocalVerifier) IssueLocalToken(now time.Time, userID, organizationID, role string, ttl time.Duration) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    v.issuer,
			Audience:  audienceOrNil(v.audience),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:         userID,
		OrganizationID: organizationID,
		Role:           role,
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(v.secret)
}

func audienceOrNil(aud string) jwt.ClaimStrings {
	if aud == "" {
		return nil
	}
	return jwt.ClaimStrings{aud}
}

func stripBearer(raw string) string {
	return strings.TrimPrefix(strings.TrimSpace(raw), "Bearer ")
}
