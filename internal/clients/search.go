package clients

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// SearchClient wraps the semantic-search/graph service. Contacts are mirrored
// into it so semantic queries can resolve back to CRM rows.
type SearchClient struct {
	c *httpClient
}

func NewSearchClient(baseURL string, log *slog.Logger) *SearchClient {
	return &SearchClient{c: newHTTPClient("search", baseURL, 30*time.Second, log)}
}

type SearchDocument struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	Kind           string         `json:"kind"`
	Content        string         `json:"content"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// StoreDocument upserts a document in the search/graph service.
func (s *SearchClient) StoreDocument(ctx context.Context, doc SearchDocument) error {
	return s.c.doJSON(ctx, http.MethodPost, "/api/documents", doc, nil)
}

type SemanticSearchRequest struct {
	OrganizationID string `json:"organizationId"`
	Query          string `json:"query"`
	Limit          int    `json:"limit,omitempty"`
}

type SemanticHit struct {
	ID    string  `json:"id"`
	Kind  string  `json:"kind"`
	Score float64 `json:"score"`
}

// SemanticSearch runs a vector query scoped to one organization.
func (s *SearchClient) SemanticSearch(ctx context.Context, req SemanticSearchRequest) ([]SemanticHit, error) {
	var out struct {
		Hits []SemanticHit `json:"hits"`
	}
	if err := s.c.doJSON(ctx, http.MethodPost, "/api/search/semantic", req, &out); err != nil {
		return nil, err
	}
	return out.Hits, nil
}

// SearchHealth breaks reachability down across the three backing stores.
type SearchHealth struct {
	Vector   bool `json:"vector"`
	Graph    bool `json:"graph"`
	Fulltext bool `json:"fulltext"`
}

func (h SearchHealth) OK() bool { return h.Vector && h.Graph && h.Fulltext }

// HealthCheck returns the per-store breakdown. An unreachable service reports
// all three stores down.
func (s *SearchClient) HealthCheck(ctx context.Context) SearchHealth {
	var out SearchHealth
	if err := s.c.doJSON(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return SearchHealth{}
	}
	return out
}
