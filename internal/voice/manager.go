package voice

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
	"nexuscrm/internal/crm"
	"nexuscrm/internal/realtime"
	"nexuscrm/pkg/utils"

	"github.com/redis/go-redis/v9"
)

var (
	ErrCallLimitReached = errors.New("voice: concurrent call limit reached")
	ErrDoNotCall        = errors.New("voice: contact is flagged do-not-call")
)

// Reasoning is the subset of the reasoning client the manager needs.
type Reasoning interface {
	PersonalizeScript(ctx context.Context, req clients.PersonalizeScriptRequest) (string, error)
	AnalyzeTranscript(ctx context.Context, transcript string) (clients.CallAnalysis, error)
}

// Limiter caps in-flight calls per organization.
type Limiter interface {
	Acquire(ctx context.Context, organizationID string) (bool, error)
	Release(ctx context.Context, organizationID string)
}

// RedisLimiter enforces the per-org cap with a shared Redis counter, so the
// cap holds across API replicas.
type RedisLimiter struct {
	rdb   *redis.Client
	limit int
	log   *slog.Logger
}

// Slots expire so a crashed replica cannot leak capacity forever.
const callSlotTTL = 15 * time.Minute

func NewRedisLimiter(rdb *redis.Client, limit int, log *slog.Logger) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, limit: limit, log: log}
}

func callSlotKey(organizationID string) string {
	return "voice:slots:" + organizationID
}

func (l *RedisLimiter) Acquire(ctx context.Context, organizationID string) (bool, error) {
	return utils.AcquireCallSlot(ctx, l.rdb, callSlotKey(organizationID), l.limit, callSlotTTL)
}

func (l *RedisLimiter) Release(ctx context.Context, organizationID string) {
	if err := utils.ReleaseCallSlot(ctx, l.rdb, callSlotKey(organizationID)); err != nil {
		l.log.WarnContext(ctx, "release call slot failed", "organization_id", organizationID, "error", err)
	}
}

// Manager owns the outbound call lifecycle: initiation, webhook-driven status
// merges, cancellation, and post-call transcript analysis.
type Manager struct {
	store       Store
	crmStore    crm.Store
	reasoning   Reasoning
	vapi        VapiClient
	limiter     Limiter
	broadcaster realtime.Broadcaster
	log         *slog.Logger
	clock       func() time.Time

	// runAsync runs post-call analysis off the webhook path. Tests replace it
	// with a synchronous call.
	runAsync func(fn func())
}

func NewManager(store Store, crmStore crm.Store, reasoning Reasoning, vapi VapiClient, limiter Limiter, broadcaster realtime.Broadcaster, log *slog.Logger) *Manager {
	if broadcaster == nil {
		broadcaster = realtime.NopBroadcaster{Log: log}
	}
	return &Manager{
		store:       store,
		crmStore:    crmStore,
		reasoning:   reasoning,
		vapi:        vapi,
		limiter:     limiter,
		broadcaster: broadcaster,
		log:         log,
		clock:       time.Now,
		runAsync:    func(fn func()) { go fn() },
	}
}

func (m *Manager) Store() Store { return m.store }

type MakeCallRequest struct {
	ContactID   string
	PhoneNumber string
	Script      string
	CampaignID  string
}

// MakeCall places an outbound call.
//
// A missing contact is not an error: the call proceeds with the verbatim
// script and the given number. Everything else on this path fails loudly;
// a call that cannot be placed must surface immediately, not half-start.
func (m *Manager) MakeCall(ctx context.Context, tc auth.TenantContext, req MakeCallRequest) (Call, error) {
	if req.Script == "" {
		return Call{}, fmt.Errorf("%w: script is required", ErrInvalidArgument)
	}

	script := req.Script
	// The opening line comes from the caller's script as written; the
	// personalized rewrite below may rephrase it beyond recognition.
	first := firstMessage(req.Script)
	phone := req.PhoneNumber
	var contact crm.Contact
	haveContact := false
	if req.ContactID != "" {
		c, err := m.crmStore.GetContact(ctx, tc, req.ContactID)
		switch {
		case errors.Is(err, crm.ErrNotFound):
			m.log.WarnContext(ctx, "contact not found, placing call with verbatim script",
				"contact_id", req.ContactID)
		case err != nil:
			return Call{}, err
		default:
			contact = c
			haveContact = true
		}
	}
	if haveContact {
		if contact.DoNotCall {
			return Call{}, fmt.Errorf("%w: contact %s", ErrDoNotCall, contact.ID)
		}
		if phone == "" {
			phone = contact.Phone
		}
		personalized, err := m.reasoning.PersonalizeScript(ctx, clients.PersonalizeScriptRequest{
			Script: script,
			Contact: map[string]any{
				"firstName": contact.FirstName,
				"lastName":  contact.LastName,
				"title":     contact.Title,
				"email":     contact.Email,
			},
		})
		if err != nil {
			return Call{}, fmt.Errorf("personalize script: %w", err)
		}
		script = personalized
	}
	if phone == "" {
		return Call{}, fmt.Errorf("%w: no phone number for call", ErrInvalidArgument)
	}

	ok, err := m.limiter.Acquire(ctx, tc.OrganizationID())
	if err != nil {
		return Call{}, fmt.Errorf("acquire call slot: %w", err)
	}
	if !ok {
		return Call{}, ErrCallLimitReached
	}

	activity := &crm.Activity{
		ContactID: req.ContactID,
		Type:      crm.ActivityTypeCall,
		Subject:   "Outbound call to " + phone,
		OwnerID:   tc.UserID(),
	}
	if !haveContact {
		activity.ContactID = ""
	}
	if err := m.crmStore.CreateActivity(ctx, tc, activity); err != nil {
		m.limiter.Release(ctx, tc.OrganizationID())
		return Call{}, fmt.Errorf("create call activity: %w", err)
	}

	call := &Call{
		ContactID:    activity.ContactID,
		ActivityID:   activity.ID,
		CampaignID:   req.CampaignID,
		PhoneNumber:  phone,
		Status:       CallStatusInitiated,
		Script:       script,
		FirstMessage: first,
	}
	if err := m.store.CreateCall(ctx, tc, call); err != nil {
		m.limiter.Release(ctx, tc.OrganizationID())
		return Call{}, err
	}

	externalID, err := m.vapi.CreateCall(ctx, VapiCallRequest{
		PhoneNumber:  phone,
		Script:       script,
		FirstMessage: call.FirstMessage,
		Metadata: map[string]string{
			"call_id":         call.ID,
			"organization_id": tc.OrganizationID(),
		},
	})
	if err != nil {
		m.limiter.Release(ctx, tc.OrganizationID())
		if markErr := m.store.MarkCallFailed(ctx, tc, call.ID, "provider rejected call"); markErr != nil {
			m.log.ErrorContext(ctx, "mark call failed", "call_id", call.ID, "error", markErr)
		}
		return Call{}, fmt.Errorf("place call: %w", err)
	}
	if err := m.store.SetExternalCallID(ctx, tc, call.ID, externalID); err != nil {
		// Without the external id no webhook will ever match this row, so no
		// terminal event can release the slot later.
		m.limiter.Release(ctx, tc.OrganizationID())
		return Call{}, err
	}
	call.ExternalCallID = externalID

	m.log.InfoContext(ctx, "call placed",
		"call_id", call.ID, "external_call_id", externalID, "contact_id", call.ContactID)
	m.broadcaster.BroadcastCallStatus(ctx, realtime.CallStatusEvent{
		CallID:         call.ID,
		OrganizationID: call.OrganizationID,
		ContactID:      call.ContactID,
		Status:         string(call.Status),
	})
	return *call, nil
}

// ApplyStatusUpdate merges a provider event into the call row, broadcasts the
// new state, releases the org's call slot on terminal states, and kicks off
// transcript analysis for completed calls.
func (m *Manager) ApplyStatusUpdate(ctx context.Context, externalCallID string, u StatusUpdate) (Call, error) {
	call, err := m.store.ApplyStatusUpdate(ctx, externalCallID, u)
	if err != nil {
		return Call{}, err
	}

	m.broadcaster.BroadcastCallStatus(ctx, realtime.CallStatusEvent{
		CallID:          call.ID,
		OrganizationID:  call.OrganizationID,
		ContactID:       call.ContactID,
		Status:          string(call.Status),
		DurationSeconds: call.DurationSeconds,
		EndedReason:     call.EndedReason,
	})

	if call.Status.Terminal() {
		m.limiter.Release(ctx, call.OrganizationID)
	}
	if call.Status == CallStatusCompleted && call.Transcript != "" {
		m.runAsync(func() { m.analyzeCall(call) })
	}
	return call, nil
}

// CancelCall hangs up an in-flight call.
func (m *Manager) CancelCall(ctx context.Context, tc auth.TenantContext, callID string) (Call, error) {
	call, err := m.store.GetCall(ctx, tc, callID)
	if err != nil {
		return Call{}, err
	}
	if call.Status.Terminal() {
		return Call{}, fmt.Errorf("%w: call %s is already %s", ErrInvalidArgument, callID, call.Status)
	}
	if call.ExternalCallID == "" {
		return Call{}, fmt.Errorf("%w: call %s has not reached the provider", ErrInvalidArgument, callID)
	}
	if err := m.vapi.CancelCall(ctx, call.ExternalCallID); err != nil {
		return Call{}, fmt.Errorf("cancel call %s: %w", callID, err)
	}
	now := m.clock().UTC()
	return m.ApplyStatusUpdate(ctx, call.ExternalCallID, StatusUpdate{
		Status:  CallStatusCancelled,
		EndedAt: &now,
	})
}

// BroadcastTranscript relays a partial transcript to subscribers.
func (m *Manager) BroadcastTranscript(ctx context.Context, call Call, role, text string) {
	m.broadcaster.BroadcastCallTranscript(ctx, realtime.CallTranscriptEvent{
		CallID:         call.ID,
		OrganizationID: call.OrganizationID,
		Role:           role,
		Text:           text,
	})
}

// analyzeCall is best effort. Analysis failures are logged and swallowed; the
// call row keeps its transcript either way and analysis can be re-run later.
func (m *Manager) analyzeCall(call Call) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	analysis, err := m.reasoning.AnalyzeTranscript(ctx, call.Transcript)
	if err != nil {
		m.log.WarnContext(ctx, "transcript analysis failed", "call_id", call.ID, "error", err)
		return
	}
	raw, err := json.Marshal(analysis)
	if err != nil {
		m.log.WarnContext(ctx, "encode analysis failed", "call_id", call.ID, "error", err)
		return
	}
	if err := m.store.SetAnalysis(ctx, call.ID, analysis, raw); err != nil {
		m.log.WarnContext(ctx, "store analysis failed", "call_id", call.ID, "error", err)
		return
	}
	m.log.InfoContext(ctx, "call analyzed",
		"call_id", call.ID, "sentiment", analysis.Sentiment, "outcome", analysis.Outcome)
}

// firstMessage picks the assistant's opening line: the first script line that
// reads like a greeting, or a neutral default.
func firstMessage(script string) string {
	greetings := []string{"hello", "hi ", "hi,", "hi!", "hey", "good morning", "good afternoon", "good evening"}
	for _, line := range strings.Split(script, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, g := range greetings {
			if strings.HasPrefix(lower, g) {
				return line
			}
		}
	}
	return "Hello! Do you have a moment to talk?"
}
