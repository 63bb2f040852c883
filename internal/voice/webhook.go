package voice

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"nexuscrm/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "X-Vapi-Signature"

// Provider event types.
const (
	eventCallStarted       = "call.started"
	eventCallAnswered      = "call.answered"
	eventCallEnded         = "call.ended"
	eventCallFailed        = "call.failed"
	eventFunctionCalled    = "function.called"
	eventTranscriptUpdated = "transcript.updated"
)

// webhookEvent is the provider's envelope: CallID is the provider's call id
// and Data carries per-event fields.
type webhookEvent struct {
	Type      string `json:"type"`
	CallID    string `json:"callId"`
	Timestamp string `json:"timestamp"`

	Data struct {
		Status          string     `json:"status"`
		StartedAt       *time.Time `json:"startedAt"`
		EndedAt         *time.Time `json:"endedAt"`
		DurationSeconds *int       `json:"durationSeconds"`
		Transcript      *string    `json:"transcript"`
		RecordingURL    *string    `json:"recordingUrl"`
		EndedReason     *string    `json:"endedReason"`

		// transcript.updated
		Role string `json:"role"`
		Text string `json:"text"`

		// function.called
		Function  string          `json:"function"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"data"`
}

// WebhookHandler receives provider callbacks.
//
// The provider retries any non-2xx response, so the handler acknowledges with
// 200 even when processing fails; failures are logged and the next event for
// the call repairs the row via COALESCE merging. The only non-200 response is
// 401 for a bad signature.
type WebhookHandler struct {
	manager *Manager
	secret  string
	rdb     *redis.Client
	log     *slog.Logger
}

// NewWebhookHandler verifies signatures with secret; an empty secret disables
// verification, which Config.Validate only permits outside production.
func NewWebhookHandler(manager *Manager, secret string, rdb *redis.Client, log *slog.Logger) *WebhookHandler {
	if secret == "" {
		log.Warn("vapi webhook secret not set, accepting unsigned webhooks")
	}
	return &WebhookHandler{manager: manager, secret: secret, rdb: rdb, log: log}
}

func (h *WebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		h.log.WarnContext(c.Request.Context(), "webhook body read failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if h.secret != "" && !h.verify(body, c.GetHeader(SignatureHeader)) {
		h.log.WarnContext(c.Request.Context(), "webhook signature mismatch")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid signature"})
		return
	}

	var ev webhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		h.log.WarnContext(c.Request.Context(), "webhook decode failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	// Duplicate delivery is expected from provider retries; the claim is best
	// effort and a Redis outage falls back to processing the event.
	if h.rdb != nil && ev.CallID != "" && ev.Timestamp != "" {
		eventID := ev.Type + ":" + ev.CallID + ":" + ev.Timestamp
		fresh, err := utils.ClaimWebhookEvent(c.Request.Context(), h.rdb, eventID, 24*time.Hour)
		if err != nil {
			h.log.WarnContext(c.Request.Context(), "webhook dedup unavailable", "error", err)
		} else if !fresh {
			c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
			return
		}
	}

	if err := h.process(c, ev); err != nil {
		h.log.ErrorContext(c.Request.Context(), "webhook processing failed",
			"type", ev.Type, "external_call_id", ev.CallID, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (h *WebhookHandler) verify(body []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (h *WebhookHandler) process(c *gin.Context, ev webhookEvent) error {
	ctx := c.Request.Context()
	switch ev.Type {
	case eventCallStarted:
		_, err := h.manager.ApplyStatusUpdate(ctx, ev.CallID, StatusUpdate{
			Status:    CallStatusRinging,
			StartedAt: ev.Data.StartedAt,
		})
		return err

	case eventCallAnswered:
		_, err := h.manager.ApplyStatusUpdate(ctx, ev.CallID, StatusUpdate{
			Status:    CallStatusInProgress,
			StartedAt: ev.Data.StartedAt,
		})
		return err

	case eventCallEnded:
		_, err := h.manager.ApplyStatusUpdate(ctx, ev.CallID, StatusUpdate{
			Status:          endedStatus(ev.Data.EndedReason, ev.Data.Status),
			EndedAt:         ev.Data.EndedAt,
			DurationSeconds: ev.Data.DurationSeconds,
			Transcript:      ev.Data.Transcript,
			RecordingURL:    ev.Data.RecordingURL,
			EndedReason:     ev.Data.EndedReason,
		})
		return err

	case eventCallFailed:
		_, err := h.manager.ApplyStatusUpdate(ctx, ev.CallID, StatusUpdate{
			Status:      CallStatusFailed,
			EndedAt:     ev.Data.EndedAt,
			EndedReason: ev.Data.EndedReason,
		})
		return err

	case eventTranscriptUpdated:
		call, err := h.manager.Store().GetCallByExternalID(ctx, ev.CallID)
		if err != nil {
			return err
		}
		h.manager.BroadcastTranscript(ctx, call, ev.Data.Role, ev.Data.Text)
		return nil

	case eventFunctionCalled:
		// Assistant tool calls are recorded, not acted on; workflow-driven
		// actions go through the orchestration service instead.
		h.log.InfoContext(ctx, "assistant function call",
			"external_call_id", ev.CallID, "function", ev.Data.Function)
		return nil

	default:
		h.log.InfoContext(ctx, "unhandled webhook event", "type", ev.Type)
		return nil
	}
}

// endedStatus maps the provider's ended reason onto the call lifecycle.
func endedStatus(endedReason *string, rawStatus string) CallStatus {
	reason := ""
	if endedReason != nil {
		reason = *endedReason
	}
	switch reason {
	case "customer-did-not-answer", "no-answer":
		return CallStatusNoAnswer
	case "customer-busy", "busy":
		return CallStatusBusy
	case "voicemail":
		return CallStatusVoicemail
	case "assistant-error", "pipeline-error":
		return CallStatusFailed
	}
	if rawStatus == string(CallStatusCancelled) {
		return CallStatusCancelled
	}
	return CallStatusCompleted
}
