package voice

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"nexuscrm/internal/auth"
	"nexuscrm/internal/clients"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests.
type MemoryStore struct {
	mu    sync.Mutex
	calls map[string]Call

	// Analyses records SetAnalysis invocations for assertions.
	Analyses map[string]clients.CallAnalysis

	clock func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		calls:    make(map[string]Call),
		Analyses: make(map[string]clients.CallAnalysis),
		clock:    time.Now,
	}
}

func (s *MemoryStore) CreateCall(_ context.Context, tc auth.TenantContext, c *Call) error {
	if c == nil || c.PhoneNumber == "" {
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
		c.Status = CallStatusInitiated
	}
	c.CreatedAt = now
	c.UpdatedAt = now
	s.calls[c.ID] = *c
	return nil
}

func (s *MemoryStore) GetCall(_ context.Context, tc auth.TenantContext, id string) (Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	if !ok || c.OrganizationID != tc.OrganizationID() {
		return Call{}, ErrNotFound
	}
	return c, nil
}

func (s *MemoryStore) ListCalls(_ context.Context, tc auth.TenantContext, f CallFilter, limit, offset int) ([]Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if c.OrganizationID != tc.OrganizationID() {
			continue
		}
		if f.ContactID != nil && c.ContactID != *f.ContactID {
			continue
		}
		if f.CampaignID != nil && c.CampaignID != *f.CampaignID {
			continue
		}
		if f.Status != nil && c.Status != *f.Status {
			continue
		}
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	limit = clampLimit(limit)
	offset = clampOffset(offset)
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) SetExternalCallID(_ context.Context, tc auth.TenantContext, id, externalCallID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	if !ok || c.OrganizationID != tc.OrganizationID() {
		return ErrNotFound
	}
	c.ExternalCallID = externalCallID
	c.UpdatedAt = s.clock().UTC()
	s.calls[id] = c
	return nil
}

func (s *MemoryStore) MarkCallFailed(_ context.Context, tc auth.TenantContext, id, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[id]
	if !ok || c.OrganizationID != tc.OrganizationID() {
		return ErrNotFound
	}
	now := s.clock().UTC()
	c.Status = CallStatusFailed
	c.EndedReason = reason
	c.EndedAt = &now
	c.UpdatedAt = now
	s.calls[id] = c
	return nil
}

func (s *MemoryStore) GetCallByExternalID(_ context.Context, externalCallID string) (Call, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.calls {
		if c.ExternalCallID == externalCallID && externalCallID != "" {
			return c, nil
		}
	}
	return Call{}, ErrNotFound
}

func (s *MemoryStore) ApplyStatusUpdate(_ context.Context, externalCallID string, u StatusUpdate) (Call, error) {
	if u.Status == "" {
		return Call{}, ErrInvalidArgument
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, c := range s.calls {
		if c.ExternalCallID != externalCallID || externalCallID == "" {
			continue
		}
		c.Status = u.Status
		if u.StartedAt != nil {
			c.StartedAt = u.StartedAt
		}
		if u.EndedAt != nil {
			c.EndedAt = u.EndedAt
		}
		if u.DurationSeconds != nil {
			c.DurationSeconds = *u.DurationSeconds
		}
		if u.Transcript != nil {
			c.Transcript = *u.Transcript
		}
		if u.RecordingURL != nil {
			c.RecordingURL = *u.RecordingURL
		}
		if u.EndedReason != nil {
			c.EndedReason = *u.EndedReason
		}
		c.UpdatedAt = s.clock().UTC()
		s.calls[id] = c
		return c, nil
	}
	return Call{}, ErrNotFound
}

func (s *MemoryStore) SetAnalysis(_ context.Context, callID string, a clients.CallAnalysis, raw json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.calls[callID]
	if !ok {
		return ErrNotFound
	}
	c.Sentiment = a.Sentiment
	c.Topics = a.Topics
	c.Objections = a.Objections
	c.ActionItems = a.ActionItems
	c.DealScore = a.DealScore
	c.Summary = a.Summary
	c.Analysis = raw
	c.UpdatedAt = s.clock().UTC()
	s.calls[callID] = c
	s.Analyses[callID] = a
	return nil
}
