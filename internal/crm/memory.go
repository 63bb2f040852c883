package crm

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"nexuscrm/internal/auth"
	"nexuscrm/internal/outbox"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store useful for tests. It mirrors the Postgres
// implementation's semantics: tenant scoping, soft-delete exclusion, partial
// updates, limit clamping. It is not intended for production use.
type MemoryStore struct {
	mu         sync.Mutex
	contacts   map[string]Contact
	companies  map[string]Company
	deals      map[string]Deal
	activities map[string]Activity
	campaigns  map[string]Campaign

	// Intents records outbox entries enqueued with CreateContact.
	Intents []outbox.Entry

	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contacts:   make(map[string]Contact),
		companies:  make(map[string]Company),
		deals:      make(map[string]Deal),
		activities: make(map[string]Activity),
		campaigns:  make(map[string]Campaign),
		clock:      time.Now,
	}
}

func (s *MemoryStore) CreateContact(_ context.Context, tc auth.TenantContext, c *Contact, intents []outbox.Entry) error {
	if c == nil {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.OrganizationID = tc.OrganizationID()
	if c.LeadStatus == "" {
		c.LeadStatus = LeadStatusNew
	}
	if c.LifecycleStage == "" {
		c.LifecycleStage = LifecycleStageLead
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	s.contacts[c.ID] = *c
	s.Intents = append(s.Intents, intents...)
	return nil
}

func (s *MemoryStore) GetContact(_ context.Context, tc auth.TenantContext, id string) (Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok || c.OrganizationID != tc.OrganizationID() || c.DeletedAt != nil {
		return Contact{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListContacts(_ context.Context, tc auth.TenantContext, f ContactFilter, limit, offset int) ([]Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Contact
	for _, c := range s.contacts {
		if c.OrganizationID != tc.OrganizationID() || c.DeletedAt != nil {
			continue
		}
		if f.LeadStatus != nil && c.LeadStatus != *f.LeadStatus {
			continue
		}
		if f.LifecycleStage != nil && c.LifecycleStage != *f.LifecycleStage {
			continue
		}
		if f.OwnerID != nil && c.OwnerID != *f.OwnerID {
			continue
		}
		if f.CompanyID != nil && c.CompanyID != *f.CompanyID {
			continue
		}
		if f.MinLeadScore != nil && c.LeadScore < *f.MinLeadScore {
			continue
		}
		if f.Search != nil && *f.Search != "" {
			term := strings.ToLower(*f.Search)
			hay := strings.ToLower(c.FirstName + " " + c.LastName + " " + c.Email)
			if !strings.Contains(hay, term) {
				continue
			}
		}
		out = append(out, c)
	}
	sortByCreatedDesc(out, func(c Contact) time.Time { return c.CreatedAt })
	return paginate(out, limit, offset), nil
}

func (s *MemoryStore) UpdateContact(_ context.Context, tc auth.TenantContext, id string, u ContactUpdate) (Contact, error) {
	if u.empty() {
		return Contact{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok || c.OrganizationID != tc.OrganizationID() || c.DeletedAt != nil {
		return Contact{}, ErrNotFound
	}
	if u.FirstName != nil {
		c.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		c.LastName = *u.LastName
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.Phone != nil {
		c.Phone = *u.Phone
	}
	if u.Title != nil {
		c.Title = *u.Title
	}
	if u.CompanyID != nil {
		c.CompanyID = *u.CompanyID
	}
	if u.LeadScore != nil {
		c.LeadScore = *u.LeadScore
	}
	if u.LeadStatus != nil {
		c.LeadStatus = *u.LeadStatus
	}
	if u.LifecycleStage != nil {
		c.LifecycleStage = *u.LifecycleStage
	}
	if u.DoNotCall != nil {
		c.DoNotCall = *u.DoNotCall
	}
	if u.DoNotEmail != nil {
		c.DoNotEmail = *u.DoNotEmail
	}
	if u.EmailBounced != nil {
		c.EmailBounced = *u.EmailBounced
	}
	if u.Unsubscribed != nil {
		c.Unsubscribed = *u.Unsubscribed
	}
	if u.OwnerID != nil {
		c.OwnerID = *u.OwnerID
	}
	if u.CustomFields != nil {
		c.CustomFields = u.CustomFields
	}
	c.UpdatedAt = s.clock().UTC()
	s.contacts[id] = c
	return c, nil
}

func (s *MemoryStore) SoftDeleteContact(_ context.Context, tc auth.TenantContext, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok || c.OrganizationID != tc.OrganizationID() || c.DeletedAt != nil {
		return ErrNotFound
	}
	now := s.clock().UTC()
	c.DeletedAt = &now
	c.UpdatedAt = now
	s.contacts[id] = c
	return nil
}

func (s *MemoryStore) SetContactEnrichment(_ context.Context, tc auth.TenantContext, id string, enrichment json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contacts[id]
	if !ok || c.OrganizationID != tc.OrganizationID() || c.DeletedAt != nil {
		return ErrNotFound
	}
	c.Enrichment = enrichment
	c.UpdatedAt = s.clock().UTC()
	s.contacts[id] = c
	return nil
}

func (s *MemoryStore) CreateCompany(_ context.Context, tc auth.TenantContext, c *Company) error {
	if c == nil || c.Name == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.OrganizationID = tc.OrganizationID()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.companies[c.ID] = *c
	return nil
}

func (s *MemoryStore) GetCompany(_ context.Context, tc auth.TenantContext, id string) (Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.companies[id]
	if !ok || c.OrganizationID != tc.OrganizationID() || c.DeletedAt != nil {
		return Company{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListCompanies(_ context.Context, tc auth.TenantContext, f CompanyFilter, limit, offset int) ([]Company, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Company
	for _, c := range s.companies {
		if c.OrganizationID != tc.OrganizationID() || c.DeletedAt != nil {
			continue
		}
		if f.Industry != nil && c.Industry != *f.Industry {
			continue
		}
		if f.OwnerID != nil && c.OwnerID != *f.OwnerID {
			continue
		}
		if f.Search != nil && *f.Search != "" {
			term := strings.ToLower(*f.Search)
			if !strings.Contains(strings.ToLower(c.Name+" "+c.Domain), term) {
				continue
			}
		}
		out = append(out, c)
	}
	sortByCreatedDesc(out, func(c Company) time.Time { return c.CreatedAt })
	return paginate(out, limit, offset), nil
}

func (s *MemoryStore) CreateDeal(_ context.Context, tc auth.TenantContext, d *Deal) error {
	if d == nil || d.Name == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock().UTC()
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	d.OrganizationID = tc.OrganizationID()
	if d.Currency == "" {
		d.Currency = "USD"
	}
	if d.Stage == "" {
		d.Stage = "new"
	}
	d.CreatedAt = now
	d.UpdatedAt = now
	s.deals[d.ID] = *d
	return nil
}

func (s *MemoryStore) GetDeal(_ context.Context, tc auth.TenantContext, id string) (Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[id]
	if !ok || d.OrganizationID != tc.OrganizationID() || d.DeletedAt != nil {
		return Deal{}, ErrNotFound
	}
	return d, nil
}

func (s *MemoryStore) ListDeals(_ context.Context, tc auth.TenantContext, f DealFilter, limit, offset int) ([]Deal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Deal
	for _, d := range s.deals {
		if d.OrganizationID != tc.OrganizationID() || d.DeletedAt != nil {
			continue
		}
		if f.Stage != nil && d.Stage != *f.Stage {
			continue
		}
		if f.ContactID != nil && d.ContactID != *f.ContactID {
			continue
		}
		if f.CompanyID != nil && d.CompanyID != *f.CompanyID {
			continue
		}
		if f.OwnerID != nil && d.OwnerID != *f.OwnerID {
			continue
		}
		if f.MinAmount != nil && d.Amount < *f.MinAmount {
			continue
		}
		out = append(out, d)
	}
	sortByCreatedDesc(out, func(d Deal) time.Time { return d.CreatedAt })
	return paginate(out, limit, offset), nil
}

func (s *MemoryStore) UpdateDealStage(_ context.Context, tc auth.TenantContext, id string, u DealStageUpdate) (Deal, error) {
	if u.Stage == "" {
		return Deal{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[id]
	if !ok || d.OrganizationID != tc.OrganizationID() || d.DeletedAt != nil {
		return Deal{}, ErrNotFound
	}
	d.Stage = u.Stage
	if u.Probability != nil {
		d.Probability = *u.Probability
	}
	if u.ClosedAt != nil {
		d.ClosedAt = u.ClosedAt
	}
	if u.LostReason != nil {
		d.LostReason = *u.LostReason
	}
	if u.LostReasonDetail != nil {
		d.LostReasonDetail = *u.LostReasonDetail
	}
	d.UpdatedAt = s.clock().UTC()
	s.deals[id] = d
	return d, nil
}

func (s *MemoryStore) CreateActivity(_ context.Context, tc auth.TenantContext, a *Activity) error {
	if a == nil || a.Type == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock().UTC()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.OrganizationID = tc.OrganizationID()
	a.CreatedAt = now
	a.UpdatedAt = now
	s.activities[a.ID] = *a
	return nil
}

func (s *MemoryStore) GetActivity(_ context.Context, tc auth.TenantContext, id string) (Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.activities[id]
	if !ok || a.OrganizationID != tc.OrganizationID() || a.DeletedAt != nil {
		return Activity{}, ErrNotFound
	}
	return a, nil
}

func (s *MemoryStore) ListActivities(_ context.Context, tc auth.TenantContext, f ActivityFilter, limit, offset int) ([]Activity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Activity
	for _, a := range s.activities {
		if a.OrganizationID != tc.OrganizationID() || a.DeletedAt != nil {
			continue
		}
		if f.Type != nil && a.Type != *f.Type {
			continue
		}
		if f.ContactID != nil && a.ContactID != *f.ContactID {
			continue
		}
		if f.DealID != nil && a.DealID != *f.DealID {
			continue
		}
		if f.OwnerID != nil && a.OwnerID != *f.OwnerID {
			continue
		}
		out = append(out, a)
	}
	sortByCreatedDesc(out, func(a Activity) time.Time { return a.CreatedAt })
	return paginate(out, limit, offset), nil
}

func (s *MemoryStore) CreateCampaign(_ context.Context, tc auth.TenantContext, c *Campaign) error {
	if c == nil || c.Name == "" {
		return ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.clock().UTC()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	c.OrganizationID = tc.OrganizationID()
	if c.Status == "" {
		c.Status = CampaignStatusDraft
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	s.campaigns[c.ID] = *c
	return nil
}

func (s *MemoryStore) GetCampaign(_ context.Context, tc auth.TenantContext, id string) (Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok || c.OrganizationID != tc.OrganizationID() || c.DeletedAt != nil {
		return Campaign{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListCampaigns(_ context.Context, tc auth.TenantContext, f CampaignFilter, limit, offset int) ([]Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Campaign
	for _, c := range s.campaigns {
		if c.OrganizationID != tc.OrganizationID() || c.DeletedAt != nil {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		if f.Channel != nil {
			found := false
			for _, ch := range c.Channels {
				if ch == *f.Channel {
					found = true
					break
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, c)
	}
	sortByCreatedDesc(out, func(c Campaign) time.Time { return c.CreatedAt })
	return paginate(out, limit, offset), nil
}

func (s *MemoryStore) SetCampaignExecution(_ context.Context, tc auth.TenantContext, id, executionID string, status CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok || c.OrganizationID != tc.OrganizationID() || c.DeletedAt != nil {
		return ErrNotFound
	}
	c.ExecutionID = executionID
	c.Status = status
	c.UpdatedAt = s.clock().UTC()
	s.campaigns[id] = c
	return nil
}

func (s *MemoryStore) SetCampaignStatus(_ context.Context, tc auth.TenantContext, id string, status CampaignStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok || c.OrganizationID != tc.OrganizationID() || c.DeletedAt != nil {
		return ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = s.clock().UTC()
	s.campaigns[id] = c
	return nil
}

func sortByCreatedDesc[T any](items []T, createdAt func(T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
}

func paginate[T any](items []T, limit, offset int) []T {
	limit = ClampLimit(limit)
	offset = ClampOffset(offset)
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
