package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry is a pending side-effect intent recorded in the same transaction as
// the primary CRM write it belongs to. A worker drains entries and calls the
// external system, so a crash between the write and the side effect can no
// longer lose the intent.
type Entry struct {
	ID             string
	OrganizationID string
	Kind           string
	Payload        json.RawMessage

	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	CreatedAt     time.Time
}

// Side-effect kinds.
const (
	// KindIndexContact mirrors a contact into the search/graph service.
	KindIndexContact = "search.index_contact"
)

// NewEntry builds an entry due immediately.
func NewEntry(organizationID, kind string, payload any, now time.Time) (Entry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Entry{}, err
	}
	return Entry{
		ID:             uuid.NewString(),
		OrganizationID: organizationID,
		Kind:           kind,
		Payload:        raw,
		NextAttemptAt:  now,
		CreatedAt:      now,
	}, nil
}

// Store is the persistence contract for the outbox.
//
// Enqueueing happens inside the primary write's transaction and therefore
// lives with the entity stores (see crm.Store); this interface covers only
// the draining side.
type Store interface {
	// Due returns up to limit entries whose next attempt is at or before now,
	// oldest first.
	Due(ctx context.Context, now time.Time, limit int) ([]Entry, error)
	// MarkDone removes a delivered entry.
	MarkDone(ctx context.Context, id string) error
	// Reschedule bumps the attempt counter and sets the next attempt time.
	Reschedule(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error
	// MarkDead parks an entry that exhausted its attempts.
	MarkDead(ctx context.Context, id string, lastErr string) error
}
