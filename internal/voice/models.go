package voice

import (
	"encoding/json"
	"time"
)

// CallStatus follows the provider's call lifecycle.
type CallStatus string

const (
	CallStatusInitiated  CallStatus = "initiated"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusNoAnswer   CallStatus = "no-answer"
	CallStatusBusy       CallStatus = "busy"
	CallStatusFailed     CallStatus = "failed"
	CallStatusVoicemail  CallStatus = "voicemail"
	CallStatusCancelled  CallStatus = "cancelled"
)

// Terminal reports whether the status can no longer change.
func (s CallStatus) Terminal() bool {
	switch s {
	case CallStatusCompleted, CallStatusNoAnswer, CallStatusBusy,
		CallStatusFailed, CallStatusVoicemail, CallStatusCancelled:
		return true
	}
	return false
}

// Call is one outbound voice call. ActivityID links the call to the CRM
// activity created at initiation time, so the timeline row and the call row
// stay correlated without matching on payload contents.
type Call struct {
	ID             string `json:"id"`
	OrganizationID string `json:"organizationId"`
	ContactID      string `json:"contactId,omitempty"`
	ActivityID     string `json:"activityId,omitempty"`
	CampaignID     string `json:"campaignId,omitempty"`

	// ExternalCallID is the provider's call identifier; webhook events are
	// keyed by it.
	ExternalCallID string     `json:"externalCallId,omitempty"`
	PhoneNumber    string     `json:"phoneNumber"`
	Status         CallStatus `json:"status"`

	Script       string `json:"script,omitempty"`
	FirstMessage string `json:"firstMessage,omitempty"`

	StartedAt       *time.Time `json:"startedAt,omitempty"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationSeconds int        `json:"durationSeconds,omitempty"`

	Transcript   string `json:"transcript,omitempty"`
	RecordingURL string `json:"recordingUrl,omitempty"`
	EndedReason  string `json:"endedReason,omitempty"`

	// Analysis fields, written after a completed call with a transcript.
	Sentiment   string          `json:"sentiment,omitempty"`
	Topics      []string        `json:"topics,omitempty"`
	Objections  []string        `json:"objections,omitempty"`
	ActionItems []string        `json:"actionItems,omitempty"`
	DealScore   int             `json:"dealScore,omitempty"`
	Summary     string          `json:"summary,omitempty"`
	Analysis    json.RawMessage `json:"analysis,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
