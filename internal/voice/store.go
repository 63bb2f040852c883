package voice

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"nexuscrm/internal/auth"
	"nexuscrm/internal/clients"
)

var (
	ErrNotFound        = errors.New("voice: call not found")
	ErrInvalidArgument = errors.New("voice: invalid argument")
)

// StatusUpdate is a partial update applied from webhook events. Only non-nil
// fields change the row; an event carrying a subset of fields must not erase
// values written by earlier events.
type StatusUpdate struct {
	Status          CallStatus
	StartedAt       *time.Time
	EndedAt         *time.Time
	DurationSeconds *int
	Transcript      *string
	RecordingURL    *string
	EndedReason     *string
}

// Store is the persistence contract for voice calls.
//
// Webhook-path methods are keyed by the provider's call id and deliberately
// take no TenantContext: the provider is authenticated by signature, not by a
// user principal, and the row itself carries the organization.
type Store interface {
	CreateCall(ctx context.Context, tc auth.TenantContext, c *Call) error
	GetCall(ctx context.Context, tc auth.TenantContext, id string) (Call, error)
	ListCalls(ctx context.Context, tc auth.TenantContext, f CallFilter, limit, offset int) ([]Call, error)
	SetExternalCallID(ctx context.Context, tc auth.TenantContext, id, externalCallID string) error
	// MarkCallFailed terminates a call that never reached the provider.
	MarkCallFailed(ctx context.Context, tc auth.TenantContext, id, reason string) error

	GetCallByExternalID(ctx context.Context, externalCallID string) (Call, error)
	ApplyStatusUpdate(ctx context.Context, externalCallID string, u StatusUpdate) (Call, error)
	SetAnalysis(ctx context.Context, callID string, a clients.CallAnalysis, raw json.RawMessage) error
}

// CallFilter selects calls; nil fields are ignored.
type CallFilter struct {
	ContactID  *string
	CampaignID *string
	Status     *CallStatus
}
