package crm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nexuscrm/internal/auth"
	"nexuscrm/internal/clients"
	"nexuscrm/internal/outbox"

	"github.com/google/uuid"
)

func newID() string { return uuid.NewString() }

// ReasoningService is the subset of the reasoning client the CRM needs.
type ReasoningService interface {
	EnrichContact(ctx context.Context, req clients.EnrichContactRequest) (json.RawMessage, error)
}

// SearchService mirrors the contact index into the search platform and
// resolves semantic queries against it.
type SearchService interface {
	StoreDocument(ctx context.Context, doc clients.SearchDocument) error
	SemanticSearch(ctx context.Context, req clients.SemanticSearchRequest) ([]clients.SemanticHit, error)
}

// GeospatialService resolves addresses and orders field-visit stops.
type GeospatialService interface {
	Geocode(ctx context.Context, address string) (clients.GeocodeResult, error)
	OptimizeRoute(ctx context.Context, stops []clients.RouteStop) (clients.OptimizedRoute, error)
}

// OrchestrationService drives campaign workflow executions.
type OrchestrationService interface {
	StartWorkflow(ctx context.Context, req clients.WorkflowRequest) (clients.WorkflowExecution, error)
	PauseExecution(ctx context.Context, executionID string) error
	ResumeExecution(ctx context.Context, executionID string) error
	CancelExecution(ctx context.Context, executionID string) error
}

// Service implements the CRM write paths that involve more than a single
// store call: side-effect intents, remote enrichment, campaign workflows.
type Service struct {
	store         Store
	reasoning     ReasoningService
	search        SearchService
	orchestration OrchestrationService
	geospatial    GeospatialService
	log           *slog.Logger
	clock         func() time.Time
}

func NewService(store Store, reasoning ReasoningService, search SearchService, orchestration OrchestrationService, geospatial GeospatialService, log *slog.Logger) *Service {
	return &Service{
		store:         store,
		reasoning:     reasoning,
		search:        search,
		orchestration: orchestration,
		geospatial:    geospatial,
		log:           log,
		clock:         time.Now,
	}
}

func (s *Service) Store() Store { return s.store }

// CreateContact persists the contact and, when the contact is reachable,
// enqueues a search-index intent in the same transaction. Indexing itself
// happens asynchronously in the outbox worker, so a search outage can never
// fail or delay contact creation.
func (s *Service) CreateContact(ctx context.Context, tc auth.TenantContext, c *Contact) (Contact, error) {
	if c == nil || (c.FirstName == "" && c.LastName == "" && c.Email == "") {
		return Contact{}, fmt.Errorf("%w: contact needs a name or email", ErrInvalidArgument)
	}
	var intents []outbox.Entry
	if c.Reachable() {
		if c.ID == "" {
			c.ID = newID()
		}
		entry, err := outbox.NewEntry(tc.OrganizationID(), outbox.KindIndexContact, indexDocument(tc.OrganizationID(), *c), s.clock().UTC())
		if err != nil {
			return Contact{}, fmt.Errorf("build index intent: %w", err)
		}
		intents = append(intents, entry)
	}
	if err := s.store.CreateContact(ctx, tc, c, intents); err != nil {
		return Contact{}, err
	}
	return *c, nil
}

// EnrichContact asks the reasoning service for firmographic and social data
// and stores the result on the contact. The call is synchronous and fails
// loudly; callers decide whether to retry.
func (s *Service) EnrichContact(ctx context.Context, tc auth.TenantContext, id string) (Contact, error) {
	c, err := s.store.GetContact(ctx, tc, id)
	if err != nil {
		return Contact{}, err
	}
	enrichment, err := s.reasoning.EnrichContact(ctx, clients.EnrichContactRequest{
		Email:   c.Email,
		Phone:   c.Phone,
		Company: c.CompanyID,
	})
	if err != nil {
		return Contact{}, fmt.Errorf("enrich contact %s: %w", id, err)
	}
	if err := s.store.SetContactEnrichment(ctx, tc, id, enrichment); err != nil {
		return Contact{}, err
	}
	return s.store.GetContact(ctx, tc, id)
}

// LaunchCampaign starts a workflow execution for the campaign and records the
// execution id. Orchestration failures propagate; the campaign stays in its
// previous status so the launch can be retried.
func (s *Service) LaunchCampaign(ctx context.Context, tc auth.TenantContext, id string) (Campaign, error) {
	c, err := s.store.GetCampaign(ctx, tc, id)
	if err != nil {
		return Campaign{}, err
	}
	if c.Status == CampaignStatusActive {
		return Campaign{}, fmt.Errorf("%w: campaign %s is already active", ErrInvalidArgument, id)
	}
	exec, err := s.orchestration.StartWorkflow(ctx, clients.WorkflowRequest{
		WorkflowType:   "campaign",
		OrganizationID: tc.OrganizationID(),
		Input: map[string]any{
			"campaign_id": c.ID,
			"channels":    c.Channels,
		},
	})
	if err != nil {
		return Campaign{}, fmt.Errorf("launch campaign %s: %w", id, err)
	}
	if err := s.store.SetCampaignExecution(ctx, tc, id, exec.ExecutionID, CampaignStatusActive); err != nil {
		// The workflow is already running; surface the inconsistency loudly.
		s.log.ErrorContext(ctx, "campaign launched but execution id not persisted",
			"campaign_id", id, "execution_id", exec.ExecutionID, "error", err)
		return Campaign{}, err
	}
	return s.store.GetCampaign(ctx, tc, id)
}

// PauseCampaign pauses the workflow execution, then marks the campaign paused.
func (s *Service) PauseCampaign(ctx context.Context, tc auth.TenantContext, id string) (Campaign, error) {
	return s.transitionCampaign(ctx, tc, id, CampaignStatusPaused, s.orchestration.PauseExecution)
}

// ResumeCampaign resumes a paused workflow execution.
func (s *Service) ResumeCampaign(ctx context.Context, tc auth.TenantContext, id string) (Campaign, error) {
	return s.transitionCampaign(ctx, tc, id, CampaignStatusActive, s.orchestration.ResumeExecution)
}

// CancelCampaign cancels the workflow execution, then marks the campaign
// cancelled. A campaign that never launched can be cancelled without an
// orchestration call.
func (s *Service) CancelCampaign(ctx context.Context, tc auth.TenantContext, id string) (Campaign, error) {
	c, err := s.store.GetCampaign(ctx, tc, id)
	if err != nil {
		return Campaign{}, err
	}
	if c.ExecutionID != "" {
		if err := s.orchestration.CancelExecution(ctx, c.ExecutionID); err != nil {
			return Campaign{}, fmt.Errorf("cancel campaign %s: %w", id, err)
		}
	}
	if err := s.store.SetCampaignStatus(ctx, tc, id, CampaignStatusCancelled); err != nil {
		return Campaign{}, err
	}
	return s.store.GetCampaign(ctx, tc, id)
}

func (s *Service) transitionCampaign(ctx context.Context, tc auth.TenantContext, id string, to CampaignStatus, call func(context.Context, string) error) (Campaign, error) {
	c, err := s.store.GetCampaign(ctx, tc, id)
	if err != nil {
		return Campaign{}, err
	}
	if c.ExecutionID == "" {
		return Campaign{}, fmt.Errorf("%w: campaign %s has no execution", ErrInvalidArgument, id)
	}
	if err := call(ctx, c.ExecutionID); err != nil {
		return Campaign{}, fmt.Errorf("transition campaign %s to %s: %w", id, to, err)
	}
	if err := s.store.SetCampaignStatus(ctx, tc, id, to); err != nil {
		return Campaign{}, err
	}
	return s.store.GetCampaign(ctx, tc, id)
}

// SearchContacts runs a semantic query against the mirrored contact index and
// maps the hits back onto live rows. Hits for contacts deleted since indexing
// are dropped silently.
func (s *Service) SearchContacts(ctx context.Context, tc auth.TenantContext, query string, limit int) ([]Contact, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: query is required", ErrInvalidArgument)
	}
	hits, err := s.search.SemanticSearch(ctx, clients.SemanticSearchRequest{
		OrganizationID: tc.OrganizationID(),
		Query:          query,
		Limit:          limit,
	})
	if err != nil {
		return nil, fmt.Errorf("semantic search: %w", err)
	}
	out := make([]Contact, 0, len(hits))
	for _, hit := range hits {
		if hit.Kind != "contact" {
			continue
		}
		c, err := s.store.GetContact(ctx, tc, strings.TrimPrefix(hit.ID, "contact:"))
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// VisitRoute is an ordered field-visit plan across companies.
type VisitRoute struct {
	Companies       []Company `json:"companies"`
	DistanceMeters  int       `json:"distanceMeters"`
	DurationSeconds int       `json:"durationSeconds"`
}

// PlanVisitRoute geocodes the companies' addresses and asks the geospatial
// service for an optimized visiting order.
func (s *Service) PlanVisitRoute(ctx context.Context, tc auth.TenantContext, companyIDs []string) (VisitRoute, error) {
	if len(companyIDs) < 2 {
		return VisitRoute{}, fmt.Errorf("%w: a route needs at least two companies", ErrInvalidArgument)
	}
	byID := make(map[string]Company, len(companyIDs))
	stops := make([]clients.RouteStop, 0, len(companyIDs))
	for _, id := range companyIDs {
		c, err := s.store.GetCompany(ctx, tc, id)
		if err != nil {
			return VisitRoute{}, err
		}
		if c.Address == "" {
			return VisitRoute{}, fmt.Errorf("%w: company %s has no address", ErrInvalidArgument, id)
		}
		loc, err := s.geospatial.Geocode(ctx, c.Address)
		if err != nil {
			return VisitRoute{}, fmt.Errorf("geocode company %s: %w", id, err)
		}
		byID[c.ID] = c
		stops = append(stops, clients.RouteStop{ID: c.ID, Latitude: loc.Latitude, Longitude: loc.Longitude})
	}
	route, err := s.geospatial.OptimizeRoute(ctx, stops)
	if err != nil {
		return VisitRoute{}, fmt.Errorf("optimize route: %w", err)
	}
	ordered := make([]Company, 0, len(route.Order))
	for _, id := range route.Order {
		if c, ok := byID[id]; ok {
			ordered = append(ordered, c)
		}
	}
	return VisitRoute{
		Companies:       ordered,
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSec,
	}, nil
}

// IndexContactHandler returns the outbox handler that delivers queued
// search-index intents to the search service.
func (s *Service) IndexContactHandler() outbox.Handler {
	return func(ctx context.Context, e outbox.Entry) error {
		var doc clients.SearchDocument
		if err := json.Unmarshal(e.Payload, &doc); err != nil {
			return fmt.Errorf("decode index intent %s: %w", e.ID, err)
		}
		return s.search.StoreDocument(ctx, doc)
	}
}

func indexDocument(orgID string, c Contact) clients.SearchDocument {
	content := fmt.Sprintf("%s %s %s %s %s", c.FirstName, c.LastName, c.Title, c.Email, c.Phone)
	return clients.SearchDocument{
		ID:             "contact:" + c.ID,
		OrganizationID: orgID,
		Kind:           "contact",
		Content:        content,
		Metadata: map[string]any{
			"contact_id":      c.ID,
			"lead_status":     string(c.LeadStatus),
			"lifecycle_stage": string(c.LifecycleStage),
		},
	}
}
