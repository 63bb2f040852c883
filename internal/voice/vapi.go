package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"nexuscrm/internal/config"
)

// VapiClient is the outbound surface of the voice provider. The HTTP
// implementation talks to Vapi; tests substitute a fake.
type VapiClient interface {
	// CreateCall places an outbound call and returns the provider's call id.
	CreateCall(ctx context.Context, req VapiCallRequest) (string, error)
	// CancelCall asks the provider to hang up an in-flight call.
	CancelCall(ctx context.Context, externalCallID string) error
}

type VapiCallRequest struct {
	PhoneNumber  string
	Script       string
	FirstMessage string
	// Metadata is echoed back in webhook events.
	Metadata map[string]string
}

type vapiHTTPClient struct {
	baseURL       string
	apiKey        string
	phoneNumberID string
	hc            *http.Client
	log           *slog.Logger
}

func NewVapiClient(cfg config.VapiConfig, log *slog.Logger) VapiClient {
	return &vapiHTTPClient{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		phoneNumberID: cfg.PhoneNumberID,
		hc:            &http.Client{Timeout: 30 * time.Second},
		log:           log.With("client", "vapi"),
	}
}

func (v *vapiHTTPClient) CreateCall(ctx context.Context, req VapiCallRequest) (string, error) {
	body := map[string]any{
		"phoneNumberId": v.phoneNumberID,
		"customer": map[string]string{
			"number": req.PhoneNumber,
		},
		"assistant": map[string]any{
			"firstMessage": req.FirstMessage,
			"model": map[string]any{
				"messages": []map[string]string{
					{"role": "system", "content": req.Script},
				},
			},
		},
		"metadata": req.Metadata,
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := v.do(ctx, http.MethodPost, "/call", body, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("vapi: create call returned no id")
	}
	return out.ID, nil
}

func (v *vapiHTTPClient) CancelCall(ctx context.Context, externalCallID string) error {
	return v.do(ctx, http.MethodDelete, "/call/"+externalCallID, nil, nil)
}

func (v *vapiHTTPClient) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("vapi: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, v.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("vapi: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+v.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := v.hc.Do(req)
	if err != nil {
		return fmt.Errorf("vapi: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		v.log.WarnContext(ctx, "vapi request failed",
			"method", method, "path", path, "status", resp.StatusCode)
		return fmt.Errorf("vapi: %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("vapi: decode response: %w", err)
	}
	return nil
}
