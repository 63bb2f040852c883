package clients

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDoJSON_WrapsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"error":"reasoning model overloaded"}`))
	}))
	defer srv.Close()

	c := newHTTPClient("reasoning", srv.URL, 0, nil)
	err := c.doJSON(context.Background(), http.MethodPost, "/api/reason/analyze-call", map[string]string{}, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	var uerr *UpstreamError
	if !errors.As(err, &uerr) {
		t.Fatalf("expected UpstreamError, got %T", err)
	}
	if uerr.Status != http.StatusBadGateway {
		t.Fatalf("unexpected status: %d", uerr.Status)
	}
	if uerr.Message != "reasoning model overloaded" {
		t.Fatalf("expected upstream message carried, got %q", uerr.Message)
	}
}

func TestVerifyToken_NilOn401(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"expired"}`))
	}))
	defer srv.Close()

	ic := NewIdentityClient(srv.URL, nil)
	info, err := ic.VerifyToken(context.Background(), "Bearer bad-token")
	if err != nil {
		t.Fatalf("401 must not be an error, got %v", err)
	}
	if info != nil {
		t.Fatalf("expected nil token info")
	}
}

func TestVerifyToken_StripsBearerPrefix(t *testing.T) {
	var gotToken string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Token string `json:"token"`
		}
		if err := jsonDecode(r, &body); err != nil {
			t.Errorf("decode: %v", err)
		}
		gotToken = body.Token
		_, _ = w.Write([]byte(`{"userId":"u1","organizationId":"org1","role":"member"}`))
	}))
	defer srv.Close()

	ic := NewIdentityClient(srv.URL, nil)
	info, err := ic.VerifyToken(context.Background(), "Bearer tok-123")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if gotToken != "tok-123" {
		t.Fatalf("expected bearer prefix stripped, got %q", gotToken)
	}
	if info == nil || info.OrganizationID != "org1" {
		t.Fatalf("unexpected info: %+v", info)
	}
}

func TestSearchHealth_Breakdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"vector":true,"graph":false,"fulltext":true}`))
	}))
	defer srv.Close()

	sc := NewSearchClient(srv.URL, nil)
	h := sc.HealthCheck(context.Background())
	if !h.Vector || h.Graph || !h.Fulltext {
		t.Fatalf("unexpected breakdown: %+v", h)
	}
	if h.OK() {
		t.Fatalf("expected degraded health")
	}
}

func TestStartWorkflow_RequiresExecutionID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"running"}`))
	}))
	defer srv.Close()

	oc := NewOrchestrationClient(srv.URL, 0, nil)
	_, err := oc.StartWorkflow(context.Background(), WorkflowRequest{WorkflowType: "campaign", OrganizationID: "org1"})
	if err == nil {
		t.Fatalf("expected error for empty execution id")
	}
}

func jsonDecode(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
