package transport

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/clawsec/core/internal/approval"
	"github.com/clawsec/core/internal/detect"
	"github.com/clawsec/core/internal/telemetry"
)

// WebhookConfig configures the webhook transport (spec §6).
type WebhookConfig struct {
	Enabled             bool
	URL                 string
	Timeout             time.Duration
	Headers             map[string]string
	CallbackURLTemplate string
	// SigningSecret, when non-empty, produces a Clawsec-Signature HMAC-SHA256
	// header over the request body (SPEC_FULL.md §1.2, svix-style vocabulary).
	SigningSecret string
}

// RequestResult is the outcome of one outbound webhook delivery.
type RequestResult struct {
	Success           bool
	WaitingForCallback bool
	Error             string
	ApprovedBy        *string
}

// BlobArchiver persists a webhook request/callback body out of band
// (SPEC_FULL.md §1.2: S3/GCS archive adapters). Archiving is best-effort and
// never blocks or fails an approval decision.
type BlobArchiver interface {
	Archive(ctx context.Context, id string, body []byte) (ref string, err error)
}

// Webhook delivers approval requests to an external endpoint and processes
// async callbacks (spec §4.F "Webhook").
type Webhook struct {
	cfg      WebhookConfig
	store    *approval.Store
	client   *http.Client
	archiver BlobArchiver
	metrics  *telemetry.Metrics
}

func NewWebhook(cfg WebhookConfig, store *approval.Store) *Webhook {
	return &Webhook{
		cfg:     cfg,
		store:   store,
		client:  &http.Client{Timeout: cfg.Timeout},
		metrics: telemetry.New(nil),
	}
}

// SetArchiver attaches an optional blob archiver. Off by default.
func (w *Webhook) SetArchiver(a BlobArchiver) {
	w.archiver = a
}

// SetMetrics attaches an otel Metrics sink for webhook latency. Defaults to
// a no-op instance.
func (w *Webhook) SetMetrics(m *telemetry.Metrics) {
	w.metrics = m
}

func (w *Webhook) archive(ctx context.Context, id string, body []byte) {
	if w.archiver == nil {
		return
	}
	_, _ = w.archiver.Archive(ctx, id, body)
}

type outboundPayload struct {
	ID          string              `json:"id"`
	Detection   detect.Detection    `json:"detection"`
	ToolCall    outboundToolCall    `json:"toolCall"`
	Timestamp   int64               `json:"timestamp"`
	ExpiresAt   int64               `json:"expiresAt"`
	CallbackURL *string             `json:"callbackUrl,omitempty"`
}

type outboundToolCall struct {
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

type inboundSyncBody struct {
	Approved   *bool   `json:"approved"`
	ApprovedBy *string `json:"approvedBy"`
	Reason     *string `json:"reason"`
}

// RequestApproval POSTs the approval payload for rec to the configured
// endpoint and interprets the response per spec §4.F's status table. It
// never transitions rec's status itself on failure (spec §8 property 7);
// on a 200 sync decision it drives the store's Approve/Deny directly.
func (w *Webhook) RequestApproval(ctx context.Context, rec approval.Record) RequestResult {
	if !w.cfg.Enabled {
		return RequestResult{Success: false, Error: "webhook transport disabled"}
	}

	var callbackURL *string
	if w.cfg.CallbackURLTemplate != "" {
		u := strings.ReplaceAll(w.cfg.CallbackURLTemplate, "{id}", rec.ID)
		callbackURL = &u
	}

	payload := outboundPayload{
		ID:        rec.ID,
		Detection: rec.Detection,
		ToolCall: outboundToolCall{
			Name:  rec.ToolCall.ToolName,
			Input: rec.ToolCall.ToolInput,
		},
		Timestamp:   rec.CreatedAt,
		ExpiresAt:   rec.ExpiresAt,
		CallbackURL: callbackURL,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return RequestResult{Success: false, Error: "Failed to encode webhook payload: " + err.Error()}
	}
	w.archive(ctx, rec.ID, body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return RequestResult{Success: false, Error: "Network error: " + err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range w.cfg.Headers {
		req.Header.Set(k, v)
	}
	if w.cfg.SigningSecret != "" {
		req.Header.Set("Clawsec-Signature", sign(body, w.cfg.SigningSecret))
	}

	start := time.Now()
	resp, err := w.client.Do(req)
	w.metrics.RecordWebhookLatency(ctx, time.Since(start))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return RequestResult{Success: false, Error: fmt.Sprintf("Request timeout: Webhook did not respond within %d seconds", int(w.cfg.Timeout.Seconds()))}
		}
		return RequestResult{Success: false, Error: "Network error: " + err.Error()}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
		var sync inboundSyncBody
		if err := json.Unmarshal(respBody, &sync); err != nil || sync.Approved == nil {
			return RequestResult{Success: false, Error: "Invalid response format"}
		}
		if *sync.Approved {
			w.store.Approve(rec.ID, sync.ApprovedBy)
		} else {
			w.store.Deny(rec.ID)
		}
		return RequestResult{Success: true, ApprovedBy: sync.ApprovedBy}

	case resp.StatusCode == http.StatusAccepted:
		return RequestResult{Success: true, WaitingForCallback: true}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return RequestResult{Success: false, Error: fmt.Sprintf("Client error (%d): %s", resp.StatusCode, extractErrorText(respBody))}

	case resp.StatusCode >= 500:
		return RequestResult{Success: false, Error: fmt.Sprintf("Server error (%d): %s", resp.StatusCode, extractErrorText(respBody))}

	default:
		return RequestResult{Success: false, Error: fmt.Sprintf("Unexpected status code: %d", resp.StatusCode)}
	}
}

// CallbackBody is the async callback payload (spec §4.F).
type CallbackBody struct {
	Approved   bool    `json:"approved"`
	ApprovedBy *string `json:"approvedBy"`
	Reason     *string `json:"reason"`
}

// HandleCallback mirrors the native transport but drives the decision from
// an async webhook callback. Default approver is "webhook".
func (w *Webhook) HandleCallback(id string, body CallbackBody) Outcome {
	id = approval.Trim(id)
	if raw, err := json.Marshal(body); err == nil {
		w.archive(context.Background(), id, raw)
	}
	rec, ok := w.store.Get(id)
	if !ok {
		return Outcome{Success: false, Message: "Approval " + id + " not found"}
	}
	switch rec.Status {
	case approval.StatusExpired:
		return Outcome{Success: false, Message: "Approval " + id + " has expired", Record: &rec}
	case approval.StatusApproved:
		return Outcome{Success: false, Message: "Approval " + id + " is already approved", Record: &rec}
	case approval.StatusDenied:
		return Outcome{Success: false, Message: "Approval " + id + " is already denied", Record: &rec}
	}

	approver := "webhook"
	if body.ApprovedBy != nil && *body.ApprovedBy != "" {
		approver = *body.ApprovedBy
	}
	if body.Approved {
		if !w.store.Approve(id, &approver) {
			return Outcome{Success: false, Message: "Approval " + id + " could not be approved"}
		}
		final, _ := w.store.Get(id)
		return Outcome{Success: true, Message: "Approved " + id + " by " + approver, Record: &final}
	}

	if !w.store.Deny(id) {
		return Outcome{Success: false, Message: "Approval " + id + " could not be denied"}
	}
	final, _ := w.store.Get(id)
	msg := "Denied " + id + " by " + approver
	if body.Reason != nil && *body.Reason != "" {
		msg += ": " + *body.Reason
	}
	return Outcome{Success: true, Message: msg, Record: &final}
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func extractErrorText(body []byte) string {
	var obj struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &obj); err == nil {
		if obj.Error != "" {
			return obj.Error
		}
		if obj.Message != "" {
			return obj.Message
		}
	}
	if len(body) > 0 {
		return strings.TrimSpace(string(body))
	}
	return "unknown error"
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	if t, ok := err.(timeout); ok {
		return t.Timeout()
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
