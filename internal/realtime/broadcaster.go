package realtime

import (
	"context"
	"log/slog"
)

// Event names on the wire.
const (
	EventCallStatus     = "call:status"
	EventCallTranscript = "call:transcript:update"
)

// CallStatusEvent is pushed to the org room and the call room whenever a
// call's lifecycle state changes.
type CallStatusEvent struct {
	CallID          string `json:"callId"`
	OrganizationID  string `json:"organizationId"`
	ContactID       string `json:"contactId,omitempty"`
	Status          string `json:"status"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
	EndedReason     string `json:"endedReason,omitempty"`
}

// CallTranscriptEvent streams partial transcripts to call-room subscribers.
type CallTranscriptEvent struct {
	CallID         string `json:"callId"`
	OrganizationID string `json:"organizationId"`
	Role           string `json:"role"`
	Text           string `json:"text"`
}

// Broadcaster pushes call events to connected clients. Implementations must
// never block the caller; delivery is best effort.
//
// Components receive a Broadcaster by injection. There is no package-level
// instance: a component without one gets NopBroadcaster and its events are
// dropped visibly in the logs rather than silently lost in a nil check.
type Broadcaster interface {
	BroadcastCallStatus(ctx context.Context, e CallStatusEvent)
	BroadcastCallTranscript(ctx context.Context, e CallTranscriptEvent)
}

// NopBroadcaster logs and drops every event.
type NopBroadcaster struct {
	Log *slog.Logger
}

func (n NopBroadcaster) BroadcastCallStatus(ctx context.Context, e CallStatusEvent) {
	if n.Log != nil {
		n.Log.WarnContext(ctx, "no broadcaster configured, dropping call status event",
			"call_id", e.CallID, "status", e.Status)
	}
}

func (n NopBroadcaster) BroadcastCallTranscript(ctx context.Context, e CallTranscriptEvent) {
	if n.Log != nil {
		n.Log.WarnContext(ctx, "no broadcaster configured, dropping transcript event",
			"call_id", e.CallID)
	}
}
