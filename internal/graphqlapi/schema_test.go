package graphqlapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"nexuscrm/internal/auth"
	"nexuscrm/internal/clients"
	"nexuscrm/internal/crm"
	"nexuscrm/internal/realtime"
	"nexuscrm/internal/voice"

	"github.com/graphql-go/graphql"
)

type stubReasoning struct{}

func (stubReasoning) EnrichContact(context.Context, clients.EnrichContactRequest) (json.RawMessage, error) {
	return json.RawMessage(`{"source":"stub"}`), nil
}

func (stubReasoning) PersonalizeScript(_ context.Context, req clients.PersonalizeScriptRequest) (string, error) {
	return req.Script, nil
}

func (stubReasoning) AnalyzeTranscript(context.Context, string) (clients.CallAnalysis, error) {
	return clients.CallAnalysis{}, nil
}

type stubSearch struct{}

func (stubSearch) StoreDocument(context.Context, clients.SearchDocument) error { return nil }

func (stubSearch) SemanticSearch(context.Context, clients.SemanticSearchRequest) ([]clients.SemanticHit, error) {
	return nil, nil
}

type stubGeospatial struct{}

func (stubGeospatial) Geocode(context.Context, string) (clients.GeocodeResult, error) {
	return clients.GeocodeResult{Latitude: 40.0, Longitude: -74.0}, nil
}

func (stubGeospatial) OptimizeRoute(_ context.Context, stops []clients.RouteStop) (clients.OptimizedRoute, error) {
	order := make([]string, 0, len(stops))
	for _, s := range stops {
		order = append(order, s.ID)
	}
	return clients.OptimizedRoute{Order: order, DistanceMeters: 9000, DurationSec: 1200}, nil
}

type stubOrchestration struct{}

func (stubOrchestration) StartWorkflow(context.Context, clients.WorkflowRequest) (clients.WorkflowExecution, error) {
	return clients.WorkflowExecution{ExecutionID: "exec-1", Status: "running"}, nil
}
func (stubOrchestration) PauseExecution(context.Context, string) error  { return nil }
func (stubOrchestration) ResumeExecution(context.Context, string) error { return nil }
func (stubOrchestration) CancelExecution(context.Context, string) error { return nil }

type stubVapi struct{}

func (stubVapi) CreateCall(context.Context, voice.VapiCallRequest) (string, error) {
	return "ext-1", nil
}
func (stubVapi) CancelCall(context.Context, string) error { return nil }

type stubLimiter struct{}

func (stubLimiter) Acquire(context.Context, string) (bool, error) { return true, nil }
func (stubLimiter) Release(context.Context, string)               {}

func newTestSchema(t *testing.T) (graphql.Schema, *crm.MemoryStore) {
	t.Helper()
	log := slog.Default()
	store := crm.NewMemoryStore()
	crmSvc := crm.NewService(store, stubReasoning{}, stubSearch{}, stubOrchestration{}, stubGeospatial{}, log)
	voiceMgr := voice.NewManager(voice.NewMemoryStore(), store, stubReasoning{}, stubVapi{},
		stubLimiter{}, realtime.NopBroadcaster{Log: log}, log)
	schema, err := NewSchema(NewResolver(crmSvc, voiceMgr, nil, log))
	if err != nil {
		t.Fatalf("NewSchema: %v", err)
	}
	return schema, store
}

func authedContext(t *testing.T) context.Context {
	t.Helper()
	return auth.WithPrincipal(context.Background(), auth.Principal{
		UserID:         "u-1",
		OrganizationID: "org-1",
		Role:           "admin",
	})
}

func exec(t *testing.T, schema graphql.Schema, ctx context.Context, query string, vars map[string]any) *graphql.Result {
	t.Helper()
	return graphql.Do(graphql.Params{
		Schema:         schema,
		RequestString:  query,
		VariableValues: vars,
		Context:        ctx,
	})
}

func TestUnauthenticatedQueryGetsCleanError(t *testing.T) {
	schema, _ := newTestSchema(t)

	res := exec(t, schema, context.Background(), `{ contacts { id } }`, nil)
	if len(res.Errors) == 0 {
		t.Fatal("want an error for unauthenticated query")
	}
	if res.Errors[0].Message != auth.ErrUnauthenticated.Error() {
		t.Errorf("error = %q", res.Errors[0].Message)
	}
}

func TestContactLifecycleThroughSchema(t *testing.T) {
	schema, _ := newTestSchema(t)
	ctx := authedContext(t)

	res := exec(t, schema, ctx, `
		mutation($input: ContactInput!) {
			createContact(input: $input) { id firstName email leadStatus }
		}`, map[string]any{
		"input": map[string]any{
			"firstName": "Ada",
			"lastName":  "Lovelace",
			"email":     "ada@example.com",
		},
	})
	if len(res.Errors) > 0 {
		t.Fatalf("createContact errors: %v", res.Errors)
	}
	created := res.Data.(map[string]any)["createContact"].(map[string]any)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatal("created contact has no id")
	}
	if created["leadStatus"] != "new" {
		t.Errorf("leadStatus = %v, want default new", created["leadStatus"])
	}

	res = exec(t, schema, ctx, `{ contacts(filter: {search: "ada"}) { id email } }`, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("contacts errors: %v", res.Errors)
	}
	list := res.Data.(map[string]any)["contacts"].([]any)
	if len(list) != 1 {
		t.Fatalf("contacts = %d, want 1", len(list))
	}

	res = exec(t, schema, ctx, `
		mutation($id: ID!) { deleteContact(id: $id) }`, map[string]any{"id": id})
	if len(res.Errors) > 0 {
		t.Fatalf("deleteContact errors: %v", res.Errors)
	}

	res = exec(t, schema, ctx, `
		query($id: ID!) { contact(id: $id) { id } }`, map[string]any{"id": id})
	if len(res.Errors) == 0 {
		t.Fatal("querying a deleted contact should error")
	}
}

func TestUpdateContactPartialFields(t *testing.T) {
	schema, store := newTestSchema(t)
	ctx := authedContext(t)
	tc, _ := auth.NewTenantContext(auth.Principal{UserID: "u-1", OrganizationID: "org-1"})

	c := &crm.Contact{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"}
	if err := store.CreateContact(context.Background(), tc, c, nil); err != nil {
		t.Fatalf("CreateContact: %v", err)
	}

	res := exec(t, schema, ctx, `
		mutation($id: ID!, $input: ContactUpdateInput!) {
			updateContact(id: $id, input: $input) { firstName lastName email leadScore }
		}`, map[string]any{
		"id":    c.ID,
		"input": map[string]any{"leadScore": 75},
	})
	if len(res.Errors) > 0 {
		t.Fatalf("updateContact errors: %v", res.Errors)
	}
	got := res.Data.(map[string]any)["updateContact"].(map[string]any)
	if got["leadScore"] != 75 {
		t.Errorf("leadScore = %v", got["leadScore"])
	}
	if got["firstName"] != "Ada" || got["email"] != "ada@example.com" {
		t.Errorf("untouched fields changed: %+v", got)
	}
}

func TestDealStagePipelineThroughSchema(t *testing.T) {
	schema, _ := newTestSchema(t)
	ctx := authedContext(t)

	res := exec(t, schema, ctx, `
		mutation { createDeal(input: {name: "Acme expansion", amount: 5000}) { id stage amount } }`, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("createDeal errors: %v", res.Errors)
	}
	deal := res.Data.(map[string]any)["createDeal"].(map[string]any)
	id := deal["id"].(string)
	if deal["stage"] != "new" {
		t.Errorf("stage = %v, want default new", deal["stage"])
	}

	res = exec(t, schema, ctx, `
		mutation($id: ID!) {
			updateDealStage(id: $id, stage: "negotiation", probability: 60) { stage probability }
		}`, map[string]any{"id": id})
	if len(res.Errors) > 0 {
		t.Fatalf("updateDealStage errors: %v", res.Errors)
	}
	got := res.Data.(map[string]any)["updateDealStage"].(map[string]any)
	if got["stage"] != "negotiation" || got["probability"] != 60 {
		t.Errorf("deal = %+v", got)
	}
}

func TestCampaignLaunchThroughSchema(t *testing.T) {
	schema, _ := newTestSchema(t)
	ctx := authedContext(t)

	res := exec(t, schema, ctx, `
		mutation { createCampaign(input: {name: "Q3 outbound", channels: ["voice"]}) { id status } }`, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("createCampaign errors: %v", res.Errors)
	}
	id := res.Data.(map[string]any)["createCampaign"].(map[string]any)["id"].(string)

	res = exec(t, schema, ctx, `
		mutation($id: ID!) { launchCampaign(id: $id) { status executionId } }`, map[string]any{"id": id})
	if len(res.Errors) > 0 {
		t.Fatalf("launchCampaign errors: %v", res.Errors)
	}
	got := res.Data.(map[string]any)["launchCampaign"].(map[string]any)
	if got["status"] != "active" || got["executionId"] != "exec-1" {
		t.Errorf("campaign = %+v", got)
	}
}

func TestMakeCallThroughSchema(t *testing.T) {
	schema, _ := newTestSchema(t)
	ctx := authedContext(t)

	res := exec(t, schema, ctx, `
		mutation {
			makeCall(phoneNumber: "+15550001", script: "Hello there!") {
				id status externalCallId phoneNumber
			}
		}`, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("makeCall errors: %v", res.Errors)
	}
	got := res.Data.(map[string]any)["makeCall"].(map[string]any)
	if got["status"] != "initiated" || got["externalCallId"] != "ext-1" {
		t.Errorf("call = %+v", got)
	}
}

func TestVisitRouteThroughSchema(t *testing.T) {
	schema, store := newTestSchema(t)
	ctx := authedContext(t)
	tc, _ := auth.NewTenantContext(auth.Principal{UserID: "u-1", OrganizationID: "org-1"})

	a := &crm.Company{Name: "Acme", Address: "1 Main St"}
	b := &crm.Company{Name: "Initech", Address: "2 Oak Ave"}
	for _, c := range []*crm.Company{a, b} {
		if err := store.CreateCompany(context.Background(), tc, c); err != nil {
			t.Fatalf("CreateCompany: %v", err)
		}
	}

	res := exec(t, schema, ctx, `
		query($ids: [ID!]!) {
			visitRoute(companyIds: $ids) {
				companies { id name }
				distanceMeters
				durationSeconds
			}
		}`, map[string]any{"ids": []any{a.ID, b.ID}})
	if len(res.Errors) > 0 {
		t.Fatalf("visitRoute errors: %v", res.Errors)
	}
	got := res.Data.(map[string]any)["visitRoute"].(map[string]any)
	companies := got["companies"].([]any)
	if len(companies) != 2 {
		t.Fatalf("companies = %d, want 2", len(companies))
	}
	if got["distanceMeters"] != 9000 {
		t.Errorf("distance = %v", got["distanceMeters"])
	}
}

func TestHealthQueryWithoutSource(t *testing.T) {
	schema, _ := newTestSchema(t)

	// The health query is intentionally public.
	res := exec(t, schema, context.Background(), `{ health { healthy } }`, nil)
	if len(res.Errors) > 0 {
		t.Fatalf("health errors: %v", res.Errors)
	}
	got := res.Data.(map[string]any)["health"].(map[string]any)
	if got["healthy"] != false {
		t.Errorf("healthy = %v, want false without a checker", got["healthy"])
	}
}
