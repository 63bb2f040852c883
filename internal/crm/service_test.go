package crm

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"nexuscrm/internal/auth"
	"nexuscrm/internal/clients"
	"nexuscrm/internal/outbox"
)

type fakeReasoning struct {
	enrichment json.RawMessage
	err        error
}

func (f *fakeReasoning) EnrichContact(context.Context, clients.EnrichContactRequest) (json.RawMessage, error) {
	return f.enrichment, f.err
}

type fakeSearch struct {
	docs []clients.SearchDocument
	hits []clients.SemanticHit
	err  error
}

func (f *fakeSearch) StoreDocument(_ context.Context, doc clients.SearchDocument) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

func (f *fakeSearch) SemanticSearch(context.Context, clients.SemanticSearchRequest) ([]clients.SemanticHit, error) {
	return f.hits, f.err
}

type fakeGeospatial struct {
	coords     map[string]clients.GeocodeResult
	order      []string
	geocodeErr error
}

func (f *fakeGeospatial) Geocode(_ context.Context, address string) (clients.GeocodeResult, error) {
	if f.geocodeErr != nil {
		return clients.GeocodeResult{}, f.geocodeErr
	}
	return f.coords[address], nil
}

func (f *fakeGeospatial) OptimizeRoute(_ context.Context, stops []clients.RouteStop) (clients.OptimizedRoute, error) {
	order := f.order
	if order == nil {
		for _, s := range stops {
			order = append(order, s.ID)
		}
	}
	return clients.OptimizedRoute{Order: order, DistanceMeters: 12500, DurationSec: 1800}, nil
}

type fakeOrchestration struct {
	executionID string
	startErr    error
	paused      []string
	resumed     []string
	cancelled   []string
}

func (f *fakeOrchestration) StartWorkflow(context.Context, clients.WorkflowRequest) (clients.WorkflowExecution, error) {
	if f.startErr != nil {
		return clients.WorkflowExecution{}, f.startErr
	}
	return clients.WorkflowExecution{ExecutionID: f.executionID, Status: "running"}, nil
}

func (f *fakeOrchestration) PauseExecution(_ context.Context, id string) error {
	f.paused = append(f.paused, id)
	return nil
}

func (f *fakeOrchestration) ResumeExecution(_ context.Context, id string) error {
	f.resumed = append(f.resumed, id)
	return nil
}

func (f *fakeOrchestration) CancelExecution(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return nil
}

func testTenant(t *testing.T) auth.TenantContext {
	t.Helper()
	tc, err := auth.NewTenantContext(auth.Principal{UserID: "u-1", OrganizationID: "org-1"})
	if err != nil {
		t.Fatalf("NewTenantContext: %v", err)
	}
	return tc
}

func newTestService(store *MemoryStore) (*Service, *fakeSearch, *fakeOrchestration) {
	search := &fakeSearch{}
	orch := &fakeOrchestration{executionID: "exec-1"}
	geo := &fakeGeospatial{}
	svc := NewService(store, &fakeReasoning{enrichment: json.RawMessage(`{"company":"Initech"}`)}, search, orch, geo, slog.Default())
	return svc, search, orch
}

func TestCreateContactReachableEnqueuesIndexIntent(t *testing.T) {
	store := NewMemoryStore()
	svc, _, _ := newTestService(store)
	tc := testTenant(t)

	c, err := svc.CreateContact(context.Background(), tc, &Contact{
		FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com",
	})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if len(store.Intents) != 1 {
		t.Fatalf("intents = %d, want 1", len(store.Intents))
	}
	intent := store.Intents[0]
	if intent.Kind != outbox.KindIndexContact {
		t.Errorf("intent kind = %q", intent.Kind)
	}
	var doc clients.SearchDocument
	if err := json.Unmarshal(intent.Payload, &doc); err != nil {
		t.Fatalf("decode intent payload: %v", err)
	}
	if doc.ID != "contact:"+c.ID {
		t.Errorf("doc id = %q, want contact:%s", doc.ID, c.ID)
	}
	if doc.OrganizationID != "org-1" {
		t.Errorf("doc org = %q", doc.OrganizationID)
	}
}

func TestCreateContactUnreachableSkipsIndexIntent(t *testing.T) {
	store := NewMemoryStore()
	svc, _, _ := newTestService(store)

	_, err := svc.CreateContact(context.Background(), testTenant(t), &Contact{
		FirstName: "No", LastName: "Channels",
	})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if len(store.Intents) != 0 {
		t.Fatalf("intents = %d, want 0 for contact without email or phone", len(store.Intents))
	}
}

func TestIndexContactHandlerDeliversDocument(t *testing.T) {
	store := NewMemoryStore()
	svc, search, _ := newTestService(store)
	tc := testTenant(t)

	if _, err := svc.CreateContact(context.Background(), tc, &Contact{FirstName: "Ada", Phone: "+15550001"}); err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	handler := svc.IndexContactHandler()
	if err := handler(context.Background(), store.Intents[0]); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if len(search.docs) != 1 || search.docs[0].Kind != "contact" {
		t.Fatalf("search docs = %+v", search.docs)
	}
}

func TestEnrichContactStoresResult(t *testing.T) {
	store := NewMemoryStore()
	svc, _, _ := newTestService(store)
	tc := testTenant(t)

	c, err := svc.CreateContact(context.Background(), tc, &Contact{FirstName: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	got, err := svc.EnrichContact(context.Background(), tc, c.ID)
	if err != nil {
		t.Fatalf("EnrichContact: %v", err)
	}
	if string(got.Enrichment) != `{"company":"Initech"}` {
		t.Errorf("enrichment = %s", got.Enrichment)
	}
}

func TestLaunchCampaignPersistsExecution(t *testing.T) {
	store := NewMemoryStore()
	svc, _, _ := newTestService(store)
	tc := testTenant(t)

	camp := &Campaign{Name: "Q3 outbound", Channels: []string{"voice", "email"}}
	if err := store.CreateCampaign(context.Background(), tc, camp); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	got, err := svc.LaunchCampaign(context.Background(), tc, camp.ID)
	if err != nil {
		t.Fatalf("LaunchCampaign: %v", err)
	}
	if got.ExecutionID != "exec-1" {
		t.Errorf("execution id = %q", got.ExecutionID)
	}
	if got.Status != CampaignStatusActive {
		t.Errorf("status = %q, want active", got.Status)
	}

	if _, err := svc.LaunchCampaign(context.Background(), tc, camp.ID); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("relaunch err = %v, want ErrInvalidArgument", err)
	}
}

func TestLaunchCampaignFailsLoudOnOrchestrationError(t *testing.T) {
	store := NewMemoryStore()
	svc, _, orch := newTestService(store)
	orch.startErr = errors.New("orchestration unavailable")
	tc := testTenant(t)

	camp := &Campaign{Name: "Q3 outbound", Channels: []string{"email"}}
	if err := store.CreateCampaign(context.Background(), tc, camp); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if _, err := svc.LaunchCampaign(context.Background(), tc, camp.ID); err == nil {
		t.Fatal("want error when orchestration is down")
	}
	got, err := store.GetCampaign(context.Background(), tc, camp.ID)
	if err != nil {
		t.Fatalf("GetCampaign: %v", err)
	}
	if got.Status != CampaignStatusDraft {
		t.Errorf("status after failed launch = %q, want draft", got.Status)
	}
}

func TestPauseResumeCancelCampaign(t *testing.T) {
	store := NewMemoryStore()
	svc, _, orch := newTestService(store)
	tc := testTenant(t)

	camp := &Campaign{Name: "Q3 outbound", Channels: []string{"voice"}}
	if err := store.CreateCampaign(context.Background(), tc, camp); err != nil {
		t.Fatalf("CreateCampaign: %v", err)
	}
	if _, err := svc.PauseCampaign(context.Background(), tc, camp.ID); !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("pause before launch err = %v, want ErrInvalidArgument", err)
	}

	if _, err := svc.LaunchCampaign(context.Background(), tc, camp.ID); err != nil {
		t.Fatalf("LaunchCampaign: %v", err)
	}
	got, err := svc.PauseCampaign(context.Background(), tc, camp.ID)
	if err != nil {
		t.Fatalf("PauseCampaign: %v", err)
	}
	if got.Status != CampaignStatusPaused || len(orch.paused) != 1 {
		t.Errorf("pause: status=%q paused=%v", got.Status, orch.paused)
	}

	got, err = svc.ResumeCampaign(context.Background(), tc, camp.ID)
	if err != nil {
		t.Fatalf("ResumeCampaign: %v", err)
	}
	if got.Status != CampaignStatusActive || len(orch.resumed) != 1 {
		t.Errorf("resume: status=%q resumed=%v", got.Status, orch.resumed)
	}

	got, err = svc.CancelCampaign(context.Background(), tc, camp.ID)
	if err != nil {
		t.Fatalf("CancelCampaign: %v", err)
	}
	if got.Status != CampaignStatusCancelled || len(orch.cancelled) != 1 {
		t.Errorf("cancel: status=%q cancelled=%v", got.Status, orch.cancelled)
	}
}

func TestSearchContactsResolvesHitsToLiveRows(t *testing.T) {
	store := NewMemoryStore()
	svc, search, _ := newTestService(store)
	tc := testTenant(t)

	c, err := svc.CreateContact(context.Background(), tc, &Contact{FirstName: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	search.hits = []clients.SemanticHit{
		{ID: "contact:" + c.ID, Kind: "contact", Score: 0.91},
		{ID: "contact:gone", Kind: "contact", Score: 0.4}, // deleted since indexing
		{ID: "deal:d-1", Kind: "deal", Score: 0.3},        // not a contact hit
	}

	got, err := svc.SearchContacts(context.Background(), tc, "lovelace", 10)
	if err != nil {
		t.Fatalf("SearchContacts: %v", err)
	}
	if len(got) != 1 || got[0].ID != c.ID {
		t.Errorf("results = %+v, want only the live contact", got)
	}

	if _, err := svc.SearchContacts(context.Background(), tc, "  ", 10); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("blank query err = %v, want ErrInvalidArgument", err)
	}
}

func TestPlanVisitRouteOrdersCompanies(t *testing.T) {
	store := NewMemoryStore()
	tc := testTenant(t)

	a := &Company{Name: "Acme", Address: "1 Main St"}
	b := &Company{Name: "Initech", Address: "2 Oak Ave"}
	for _, c := range []*Company{a, b} {
		if err := store.CreateCompany(context.Background(), tc, c); err != nil {
			t.Fatalf("CreateCompany: %v", err)
		}
	}
	geo := &fakeGeospatial{
		coords: map[string]clients.GeocodeResult{
			"1 Main St": {Latitude: 40.1, Longitude: -74.1},
			"2 Oak Ave": {Latitude: 40.2, Longitude: -74.2},
		},
		order: []string{b.ID, a.ID},
	}
	svc := NewService(store, &fakeReasoning{}, &fakeSearch{}, &fakeOrchestration{}, geo, slog.Default())

	route, err := svc.PlanVisitRoute(context.Background(), tc, []string{a.ID, b.ID})
	if err != nil {
		t.Fatalf("PlanVisitRoute: %v", err)
	}
	if len(route.Companies) != 2 || route.Companies[0].ID != b.ID || route.Companies[1].ID != a.ID {
		t.Errorf("route order = %+v, want solver order", route.Companies)
	}
	if route.DistanceMeters != 12500 || route.DurationSeconds != 1800 {
		t.Errorf("route = %+v", route)
	}

	if _, err := svc.PlanVisitRoute(context.Background(), tc, []string{a.ID}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("single-stop err = %v, want ErrInvalidArgument", err)
	}

	noAddr := &Company{Name: "Hooli"}
	if err := store.CreateCompany(context.Background(), tc, noAddr); err != nil {
		t.Fatalf("CreateCompany: %v", err)
	}
	if _, err := svc.PlanVisitRoute(context.Background(), tc, []string{a.ID, noAddr.ID}); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("missing-address err = %v, want ErrInvalidArgument", err)
	}
}

func TestSoftDeletedContactHiddenFromReads(t *testing.T) {
	store := NewMemoryStore()
	svc, _, _ := newTestService(store)
	tc := testTenant(t)

	c, err := svc.CreateContact(context.Background(), tc, &Contact{FirstName: "Ada", Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("CreateContact: %v", err)
	}
	if err := store.SoftDeleteContact(context.Background(), tc, c.ID); err != nil {
		t.Fatalf("SoftDeleteContact: %v", err)
	}
	if _, err := store.GetContact(context.Background(), tc, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after delete err = %v, want ErrNotFound", err)
	}
	list, err := store.ListContacts(context.Background(), tc, ContactFilter{}, 0, 0)
	if err != nil {
		t.Fatalf("ListContacts: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("list after delete = %d rows, want 0", len(list))
	}
}
