package voice

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"nexuscrm/internal/auth"
	"nexuscrm/internal/clients"
	"nexuscrm/internal/crm"
	"nexuscrm/internal/realtime"
)

type fakeVapi struct {
	nextID    string
	createErr error
	created   []VapiCallRequest
	cancelled []string
}

func (f *fakeVapi) CreateCall(_ context.Context, req VapiCallRequest) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, req)
	return f.nextID, nil
}

func (f *fakeVapi) CancelCall(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

type fakeLimiter struct {
	mu       sync.Mutex
	inUse    int
	limit    int
	released int
}

func (f *fakeLimiter) Acquire(context.Context, string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.inUse >= f.limit {
		return false, nil
	}
	f.inUse++
	return true, nil
}

func (f *fakeLimiter) Release(context.Context, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inUse--
	f.released++
}

type fakeReasoning struct {
	personalizeErr error
	analyzeErr     error
	analysis       clients.CallAnalysis
	analyzed       []string
}

func (f *fakeReasoning) PersonalizeScript(_ context.Context, req clients.PersonalizeScriptRequest) (string, error) {
	if f.personalizeErr != nil {
		return "", f.personalizeErr
	}
	return "[personalized] " + req.Script, nil
}

func (f *fakeReasoning) AnalyzeTranscript(_ context.Context, transcript string) (clients.CallAnalysis, error) {
	f.analyzed = append(f.analyzed, transcript)
	if f.analyzeErr != nil {
		return clients.CallAnalysis{}, f.analyzeErr
	}
	return f.analysis, nil
}

type recordingBroadcaster struct {
	mu          sync.Mutex
	statuses    []realtime.CallStatusEvent
	transcripts []realtime.CallTranscriptEvent
}

func (r *recordingBroadcaster) BroadcastCallStatus(_ context.Context, e realtime.CallStatusEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, e)
}

func (r *recordingBroadcaster) BroadcastCallTranscript(_ context.Context, e realtime.CallTranscriptEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transcripts = append(r.transcripts, e)
}

type managerFixture struct {
	manager     *Manager
	store       *MemoryStore
	crmStore    *crm.MemoryStore
	vapi        *fakeVapi
	limiter     *fakeLimiter
	reasoning   *fakeReasoning
	broadcaster *recordingBroadcaster
	tenant      auth.TenantContext
}

func newManagerFixture(t *testing.T) *managerFixture {
	t.Helper()
	tc, err := auth.NewTenantContext(auth.Principal{UserID: "u-1", OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("NewTenantContext: %v", err)
	}
	f := &managerFixture{
		store:       NewMemoryStore(),
		crmStore:    crm.NewMemoryStore(),
		vapi:        &fakeVapi{nextID: "ext-1"},
		limiter:     &fakeLimiter{limit: 2},
		reasoning:   &fakeReasoning{analysis: clients.CallAnalysis{Sentiment: "positive", Outcome: "meeting-booked", DealScore: 80, Summary: "went well"}},
		broadcaster: &recordingBroadcaster{},
		tenant:      tc,
	}
	f.manager = NewManager(f.store, f.crmStore, f.reasoning, f.vapi, f.limiter, f.broadcaster, slog.Default())
	f.manager.runAsync = func(fn func()) { fn() }
	return f
}

func (f *managerFixture) createContact(t *testing.T, c crm.Contact) crm.Contact {
	t.Helper()
	if err := f.crmStore.CreateContact(context.Background(), f.tenant, &c, nil); err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	return c
}

func TestMakeCallWithContactPersonalizesAndLinksActivity(t *testing.T) {
	f := newManagerFixture(t)
	contact := f.createContact(t, crm.Contact{FirstName: "Ada", Phone: "+15550001"})

	call, err := f.manager.MakeCall(context.Background(), f.tenant, MakeCallRequest{
		ContactID: contact.ID,
		Script:    "Hi there!\nPitch the product.",
	})
	if err != nil {
		t.Fatalf("MakeCall: %v", err)
	}
	if call.PhoneNumber != "+15550001" {
		t.Errorf("phone = %q, want contact phone", call.PhoneNumber)
	}
	if !strings.HasPrefix(call.Script, "[personalized] ") {
		t.Errorf("script = %q, want personalized", call.Script)
	}
	if call.ExternalCallID != "ext-1" {
		t.Errorf("external id = %q", call.ExternalCallID)
	}
	if call.ActivityID == "" {
		t.Fatal("call has no linked activity")
	}
	a, err := f.crmStore.GetActivity(context.Background(), f.tenant, call.ActivityID)
	if err != nil {
		t.Fatalf("GetActivity: %v", err)
	}
	if a.Type != crm.ActivityTypeCall || a.ContactID != contact.ID {
		t.Errorf("activity = %+v", a)
	}
	if call.FirstMessage != "Hi there!" {
		t.Errorf("first message = %q", call.FirstMessage)
	}
}

func TestMakeCallMissingContactProceedsVerbatim(t *testing.T) {
	f := newManagerFixture(t)

	call, err := f.manager.MakeCall(context.Background(), f.tenant, MakeCallRequest{
		ContactID:   "nonexistent",
		PhoneNumber: "+15559999",
		Script:      "Pitch without greeting.",
	})
	if err != nil {
		t.Fatalf("MakeCall: %v", err)
	}
	if call.Script != "Pitch without greeting." {
		t.Errorf("script = %q, want verbatim", call.Script)
	}
	if call.ContactID != "" {
		t.Errorf("contact id = %q, want empty", call.ContactID)
	}
	if call.FirstMessage == "" {
		t.Error("first message should fall back to a default greeting")
	}
}

func TestMakeCallRespectsDoNotCall(t *testing.T) {
	f := newManagerFixture(t)
	contact := f.createContact(t, crm.Contact{FirstName: "Ada", Phone: "+15550001", DoNotCall: true})

	_, err := f.manager.MakeCall(context.Background(), f.tenant, MakeCallRequest{
		ContactID: contact.ID,
		Script:    "Hello!",
	})
	if !errors.Is(err, ErrDoNotCall) {
		t.Fatalf("err = %v, want ErrDoNotCall", err)
	}
	if len(f.vapi.created) != 0 {
		t.Error("call should not reach the provider")
	}
}

func TestMakeCallLimitReached(t *testing.T) {
	f := newManagerFixture(t)
	f.limiter.limit = 0

	_, err := f.manager.MakeCall(context.Background(), f.tenant, MakeCallRequest{
		PhoneNumber: "+15550001",
		Script:      "Hello!",
	})
	if !errors.Is(err, ErrCallLimitReached) {
		t.Fatalf("err = %v, want ErrCallLimitReached", err)
	}
}

func TestMakeCallProviderFailureReleasesSlotAndMarksFailed(t *testing.T) {
	f := newManagerFixture(t)
	f.vapi.createErr = errors.New("provider down")

	_, err := f.manager.MakeCall(context.Background(), f.tenant, MakeCallRequest{
		PhoneNumber: "+15550001",
		Script:      "Hello!",
	})
	if err == nil {
		t.Fatal("want error when provider rejects the call")
	}
	if f.limiter.released != 1 {
		t.Errorf("released = %d, want 1", f.limiter.released)
	}
	calls, err := f.store.ListCalls(context.Background(), f.tenant, CallFilter{}, 0, 0)
	if err != nil {
		t.Fatalf("ListCalls: %v", err)
	}
	if len(calls) != 1 || calls[0].Status != CallStatusFailed {
		t.Errorf("calls = %+v, want one failed call", calls)
	}
}

type failingExternalIDStore struct {
	*MemoryStore
}

func (s *failingExternalIDStore) SetExternalCallID(context.Context, auth.TenantContext, string, string) error {
	return errors.New("store down")
}

func TestMakeCallExternalIDFailureReleasesSlot(t *testing.T) {
	f := newManagerFixture(t)
	f.manager.store = &failingExternalIDStore{MemoryStore: f.store}

	_, err := f.manager.MakeCall(context.Background(), f.tenant, MakeCallRequest{
		PhoneNumber: "+15550001",
		Script:      "Hello!",
	})
	if err == nil {
		t.Fatal("want error when the external id cannot be stored")
	}
	// No webhook can ever match this call, so the slot must come back now.
	if f.limiter.released != 1 {
		t.Errorf("released = %d, want 1", f.limiter.released)
	}
}

func TestMakeCallPersonalizationFailurePropagates(t *testing.T) {
	f := newManagerFixture(t)
	f.reasoning.personalizeErr = errors.New("reasoning down")
	contact := f.createContact(t, crm.Contact{FirstName: "Ada", Phone: "+15550001"})

	_, err := f.manager.MakeCall(context.Background(), f.tenant, MakeCallRequest{
		ContactID: contact.ID,
		Script:    "Hello!",
	})
	if err == nil {
		t.Fatal("want error when personalization fails")
	}
	if len(f.vapi.created) != 0 {
		t.Error("call should not reach the provider")
	}
}

func placeCall(t *testing.T, f *managerFixture) Call {
	t.Helper()
	call, err := f.manager.MakeCall(context.Background(), f.tenant, MakeCallRequest{
		PhoneNumber: "+15550001",
		Script:      "Hello!",
	})
	if err != nil {
		t.Fatalf("MakeCall: %v", err)
	}
	return call
}

func TestApplyStatusUpdateMergesPartialEvents(t *testing.T) {
	f := newManagerFixture(t)
	call := placeCall(t, f)

	started := time.Now().UTC().Truncate(time.Second)
	if _, err := f.manager.ApplyStatusUpdate(context.Background(), call.ExternalCallID, StatusUpdate{
		Status:    CallStatusInProgress,
		StartedAt: &started,
	}); err != nil {
		t.Fatalf("ApplyStatusUpdate: %v", err)
	}

	// A later event without StartedAt must not erase it.
	transcript := "user: hi"
	got, err := f.manager.ApplyStatusUpdate(context.Background(), call.ExternalCallID, StatusUpdate{
		Status:     CallStatusFailed,
		Transcript: &transcript,
	})
	if err != nil {
		t.Fatalf("ApplyStatusUpdate: %v", err)
	}
	if got.StartedAt == nil || !got.StartedAt.Equal(started) {
		t.Errorf("started at = %v, want %v preserved", got.StartedAt, started)
	}
	if got.Transcript != transcript {
		t.Errorf("transcript = %q", got.Transcript)
	}
}

func TestCompletedCallWithTranscriptTriggersAnalysis(t *testing.T) {
	f := newManagerFixture(t)
	call := placeCall(t, f)

	transcript := "user: tell me more"
	if _, err := f.manager.ApplyStatusUpdate(context.Background(), call.ExternalCallID, StatusUpdate{
		Status:     CallStatusCompleted,
		Transcript: &transcript,
	}); err != nil {
		t.Fatalf("ApplyStatusUpdate: %v", err)
	}
	if len(f.reasoning.analyzed) != 1 {
		t.Fatalf("analyzed = %d, want 1", len(f.reasoning.analyzed))
	}
	got, err := f.store.GetCall(context.Background(), f.tenant, call.ID)
	if err != nil {
		t.Fatalf("GetCall: %v", err)
	}
	if got.Sentiment != "positive" || got.DealScore != 80 {
		t.Errorf("analysis fields = %+v", got)
	}
}

func TestCompletedCallWithoutTranscriptSkipsAnalysis(t *testing.T) {
	f := newManagerFixture(t)
	call := placeCall(t, f)

	if _, err := f.manager.ApplyStatusUpdate(context.Background(), call.ExternalCallID, StatusUpdate{
		Status: CallStatusCompleted,
	}); err != nil {
		t.Fatalf("ApplyStatusUpdate: %v", err)
	}
	if len(f.reasoning.analyzed) != 0 {
		t.Errorf("analyzed = %d, want 0", len(f.reasoning.analyzed))
	}
}

func TestAnalysisFailureIsSwallowed(t *testing.T) {
	f := newManagerFixture(t)
	f.reasoning.analyzeErr = errors.New("reasoning down")
	call := placeCall(t, f)

	transcript := "user: hi"
	if _, err := f.manager.ApplyStatusUpdate(context.Background(), call.ExternalCallID, StatusUpdate{
		Status:     CallStatusCompleted,
		Transcript: &transcript,
	}); err != nil {
		t.Fatalf("ApplyStatusUpdate should not surface analysis errors: %v", err)
	}
	got, err := f.store.GetCall(context.Background(), f.tenant, call.ID)
	if err != nil {
		t.Fatalf("GetCall: %v", err)
	}
	if got.Status != CallStatusCompleted || got.Transcript != transcript {
		t.Errorf("call = %+v, want completed with transcript intact", got)
	}
}

func TestTerminalStatusReleasesSlot(t *testing.T) {
	f := newManagerFixture(t)
	call := placeCall(t, f)

	if _, err := f.manager.ApplyStatusUpdate(context.Background(), call.ExternalCallID, StatusUpdate{
		Status: CallStatusNoAnswer,
	}); err != nil {
		t.Fatalf("ApplyStatusUpdate: %v", err)
	}
	if f.limiter.released != 1 {
		t.Errorf("released = %d, want 1", f.limiter.released)
	}
	if _, err := f.manager.ApplyStatusUpdate(context.Background(), call.ExternalCallID, StatusUpdate{
		Status: CallStatusRinging,
	}); err != nil {
		t.Fatalf("ApplyStatusUpdate: %v", err)
	}
	if f.limiter.released != 1 {
		t.Errorf("released = %d after non-terminal event, want still 1", f.limiter.released)
	}
}

func TestCancelCall(t *testing.T) {
	f := newManagerFixture(t)
	call := placeCall(t, f)

	got, err := f.manager.CancelCall(context.Background(), f.tenant, call.ID)
	if err != nil {
		t.Fatalf("CancelCall: %v", err)
	}
	if got.Status != CallStatusCancelled {
		t.Errorf("status = %q", got.Status)
	}
	if len(f.vapi.cancelled) != 1 || f.vapi.cancelled[0] != call.ExternalCallID {
		t.Errorf("cancelled = %v", f.vapi.cancelled)
	}

	if _, err := f.manager.CancelCall(context.Background(), f.tenant, call.ID); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("cancel terminal call err = %v, want ErrInvalidArgument", err)
	}
}

func TestStatusEventsAreBroadcast(t *testing.T) {
	f := newManagerFixture(t)
	call := placeCall(t, f)

	if _, err := f.manager.ApplyStatusUpdate(context.Background(), call.ExternalCallID, StatusUpdate{
		Status: CallStatusRinging,
	}); err != nil {
		t.Fatalf("ApplyStatusUpdate: %v", err)
	}
	// One event for initiation, one for ringing.
	if len(f.broadcaster.statuses) != 2 {
		t.Fatalf("broadcast events = %d, want 2", len(f.broadcaster.statuses))
	}
	last := f.broadcaster.statuses[1]
	if last.Status != string(CallStatusRinging) || last.CallID != call.ID {
		t.Errorf("last event = %+v", last)
	}
}

func TestFirstMessageHeuristic(t *testing.T) {
	cases := []struct {
		script string
		want   string
	}{
		{"Hi Ada, this is Sam from Initech.\nAsk about their stack.", "Hi Ada, this is Sam from Initech."},
		{"Notes for the rep.\nGood morning! Quick question for you.", "Good morning! Quick question for you."},
		{"Only pitch content, no greeting.", "Hello! Do you have a moment to talk?"},
	}
	for _, c := range cases {
		if got := firstMessage(c.script); got != c.want {
			t.Errorf("firstMessage(%q) = %q, want %q", c.script, got, c.want)
		}
	}
}
