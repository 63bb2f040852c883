package clients

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// OrchestrationClient drives workflow executions on the orchestration service.
// Campaign launches and scripted call flows run there; NexusCRM only stores the
// returned execution id for later correlation.
//
// Timeout note: workflow launches fan out to many downstream systems and can
// legitimately take minutes, hence the long default.
type OrchestrationClient struct {
	c *httpClient
}

func NewOrchestrationClient(baseURL string, timeout time.Duration, log *slog.Logger) *OrchestrationClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &OrchestrationClient{c: newHTTPClient("orchestration", baseURL, timeout, log)}
}

type WorkflowRequest struct {
	WorkflowType   string         `json:"workflowType"`
	OrganizationID string         `json:"organizationId"`
	Input          map[string]any `json:"input,omitempty"`
}

type WorkflowExecution struct {
	ExecutionID string `json:"executionId"`
	Status      string `json:"status"`
}

// StartWorkflow launches a workflow and returns its execution identifier.
func (o *OrchestrationClient) StartWorkflow(ctx context.Context, req WorkflowRequest) (WorkflowExecution, error) {
	var out WorkflowExecution
	if err := o.c.doJSON(ctx, http.MethodPost, "/api/workflows/execute", req, &out); err != nil {
		return WorkflowExecution{}, err
	}
	if out.ExecutionID == "" {
		return WorkflowExecution{}, fmt.Errorf("orchestration service: empty execution id")
	}
	return out, nil
}

// PauseExecution suspends a running workflow execution.
func (o *OrchestrationClient) PauseExecution(ctx context.Context, executionID string) error {
	return o.c.doJSON(ctx, http.MethodPost, "/api/workflows/"+executionID+"/pause", nil, nil)
}

// ResumeExecution resumes a paused workflow execution.
func (o *OrchestrationClient) ResumeExecution(ctx context.Context, executionID string) error {
	return o.c.doJSON(ctx, http.MethodPost, "/api/workflows/"+executionID+"/resume", nil, nil)
}

// CancelExecution terminates a workflow execution.
func (o *OrchestrationClient) CancelExecution(ctx context.Context, executionID string) error {
	return o.c.doJSON(ctx, http.MethodPost, "/api/workflows/"+executionID+"/cancel", nil, nil)
}

func (o *OrchestrationClient) HealthCheck(ctx context.Context) bool {
	return o.c.healthOK(ctx)
}
