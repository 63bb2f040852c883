package clients

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// ReasoningClient wraps the AI-reasoning service. All scoring, extraction and
// personalization happens remotely; this client only shapes requests.
type ReasoningClient struct {
	c *httpClient
}

func NewReasoningClient(baseURL string, log *slog.Logger) *ReasoningClient {
	return &ReasoningClient{c: newHTTPClient("reasoning", baseURL, 60*time.Second, log)}
}

type PersonalizeScriptRequest struct {
	Script  string         `json:"script"`
	Contact map[string]any `json:"contact"`
}

// PersonalizeScript rewrites a call script using contact context.
func (r *ReasoningClient) PersonalizeScript(ctx context.Context, req PersonalizeScriptRequest) (string, error) {
	var out struct {
		Script string `json:"script"`
	}
	if err := r.c.doJSON(ctx, http.MethodPost, "/api/reason/personalize", req, &out); err != nil {
		return "", err
	}
	if out.Script == "" {
		return req.Script, nil
	}
	return out.Script, nil
}

// CallAnalysis is the fixed extraction schema applied to completed-call
// transcripts. DealScore is 0-100.
type CallAnalysis struct {
	Sentiment     string   `json:"sentiment"`
	Keywords      []string `json:"keywords"`
	Topics        []string `json:"topics"`
	Objections    []string `json:"objections"`
	BuyingSignals []string `json:"buyingSignals"`
	ActionItems   []string `json:"actionItems"`
	Outcome       string   `json:"outcome"`
	DealScore     int      `json:"dealScore"`
	Summary       string   `json:"summary"`
}

type analyzeTranscriptRequest struct {
	Transcript string   `json:"transcript"`
	Extract    []string `json:"extract"`
}

// analysisSchema is fixed; the reasoning service validates it server-side.
var analysisSchema = []string{
	"sentiment", "keywords", "topics", "objections",
	"buyingSignals", "actionItems", "outcome", "dealScore", "summary",
}

// AnalyzeTranscript extracts structured annotations from a call transcript.
func (r *ReasoningClient) AnalyzeTranscript(ctx context.Context, transcript string) (CallAnalysis, error) {
	var out CallAnalysis
	err := r.c.doJSON(ctx, http.MethodPost, "/api/reason/analyze-call", analyzeTranscriptRequest{
		Transcript: transcript,
		Extract:    analysisSchema,
	}, &out)
	if err != nil {
		return CallAnalysis{}, err
	}
	return out, nil
}

type EnrichContactRequest struct {
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Company string `json:"company,omitempty"`
}

// EnrichContact returns an opaque enrichment blob stored on the contact row.
func (r *ReasoningClient) EnrichContact(ctx context.Context, req EnrichContactRequest) (json.RawMessage, error) {
	var out json.RawMessage
	if err := r.c.doJSON(ctx, http.MethodPost, "/api/reason/enrich-contact", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ReasoningClient) HealthCheck(ctx context.Context) bool {
	return r.c.healthOK(ctx)
}
