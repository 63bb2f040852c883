package clients

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// IdentityClient wraps the auth/identity service. Token verification is on the
// request hot path, so the timeout is deliberately short.
type IdentityClient struct {
	c *httpClient
}

func NewIdentityClient(baseURL string, log *slog.Logger) *IdentityClient {
	return &IdentityClient{c: newHTTPClient("identity", baseURL, 5*time.Second, log)}
}

// TokenInfo is the identity service's view of a verified token.
type TokenInfo struct {
	UserID         string   `json:"userId"`
	OrganizationID string   `json:"organizationId"`
	Role           string   `json:"role"`
	Permissions    []string `json:"permissions,omitempty"`
}

// VerifyToken checks a bearer token against the identity service.
// A 401 from the service means "not authenticated" and returns (nil, nil);
// callers decide whether an anonymous request is acceptable. Any other
// failure is a real error.
func (i *IdentityClient) VerifyToken(ctx context.Context, token string) (*TokenInfo, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")
	if token == "" {
		return nil, nil
	}

	var out TokenInfo
	err := i.c.doJSON(ctx, http.MethodPost, "/api/auth/verify", map[string]string{"token": token}, &out)
	if err != nil {
		var uerr *UpstreamError
		if errors.As(err, &uerr) && uerr.Status == http.StatusUnauthorized {
			return nil, nil
		}
		return nil, err
	}
	if out.UserID == "" || out.OrganizationID == "" {
		return nil, errors.New("identity service: incomplete token info")
	}
	return &out, nil
}

// CheckPermission asks the identity service whether the token holder has a
// named permission.
func (i *IdentityClient) CheckPermission(ctx context.Context, token, permission string) (bool, error) {
	token = strings.TrimPrefix(strings.TrimSpace(token), "Bearer ")
	var out struct {
		Allowed bool `json:"allowed"`
	}
	err := i.c.doJSON(ctx, http.MethodPost, "/api/auth/check", map[string]string{
		"token":      token,
		"permission": permission,
	}, &out)
	if err != nil {
		var uerr *UpstreamError
		if errors.As(err, &uerr) && (uerr.Status == http.StatusUnauthorized || uerr.Status == http.StatusForbidden) {
			return false, nil
		}
		return false, err
	}
	return out.Allowed, nil
}

func (i *IdentityClient) HealthCheck(ctx context.Context) bool {
	return i.c.healthOK(ctx)
}
