package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clawsec/core/internal/analyzer"
	"github.com/clawsec/core/internal/approval"
	"github.com/clawsec/core/internal/approval/transport"
	"github.com/clawsec/core/internal/clock"
	"github.com/clawsec/core/internal/detect"
	"github.com/clawsec/core/internal/filter"
	"github.com/clawsec/core/internal/telemetry"
)

// Server wires the Analyzer, approval Store, three transports, and output
// Filter behind the HTTP surface (spec §6).
type Server struct {
	analyzer     *analyzer.Analyzer
	store        *approval.Store
	native       *transport.Native
	agentConfirm *transport.AgentConfirm
	webhook      *transport.Webhook
	filter       *filter.Filter
	clock        clock.Clock
	logger       *slog.Logger
	metrics      *telemetry.Metrics

	nativeTimeout time.Duration
	port          int
	host          string
	enabled       bool
}

// Dependencies groups everything a Server needs. Deps not required by a
// given deployment (e.g. webhook) may be nil/zero.
type Dependencies struct {
	Analyzer      *analyzer.Analyzer
	Store         *approval.Store
	Native        *transport.Native
	AgentConfirm  *transport.AgentConfirm
	Webhook       *transport.Webhook
	Filter        *filter.Filter
	Clock         clock.Clock
	Logger        *slog.Logger
	Metrics       *telemetry.Metrics
	NativeTimeout time.Duration
	Port          int
	Host          string
	Enabled       bool
}

func NewServer(d Dependencies) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := d.Metrics
	if metrics == nil {
		metrics = telemetry.New(nil)
	}
	return &Server{
		analyzer:      d.Analyzer,
		store:         d.Store,
		native:        d.Native,
		agentConfirm:  d.AgentConfirm,
		webhook:       d.Webhook,
		filter:        d.Filter,
		clock:         d.Clock,
		logger:        logger,
		metrics:       metrics,
		nativeTimeout: d.NativeTimeout,
		port:          d.Port,
		host:          d.Host,
		enabled:       d.Enabled,
	}
}

type analyzeRequest struct {
	ToolName   string         `json:"toolName"`
	ToolInput  map[string]any `json:"toolInput"`
	ToolOutput *string        `json:"toolOutput"`
}

type pendingApprovalView struct {
	ID      string `json:"id"`
	Timeout int    `json:"timeout"`
}

type analysisView struct {
	Action     detect.Action     `json:"action"`
	Detections []detect.Detection `json:"detections"`
	Cached     bool              `json:"cached"`
	DurationMs float64           `json:"durationMs"`
}

type analyzeResponse struct {
	Allowed         bool                  `json:"allowed"`
	Message         string                `json:"message,omitempty"`
	PendingApproval *pendingApprovalView  `json:"pendingApproval,omitempty"`
	FilteredInput   map[string]any        `json:"filteredInput,omitempty"`
	Analysis        analysisView          `json:"analysis"`
}

// handleAnalyze implements POST /analyze (spec §6). It runs the Analyzer,
// then — depending on the selected action — either allows, blocks, strips an
// agent-confirm token and allows, or opens a pending approval (native or
// webhook) and reports the caller back a waiting id.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, r, "invalid request body: "+err.Error())
		return
	}
	if req.ToolName == "" {
		writeBadRequest(w, r, "toolName is required")
		return
	}

	tc := detect.NewToolCallContext(req.ToolName, req.ToolInput, req.ToolOutput)

	if s.agentConfirm != nil {
		if confirmResult := s.agentConfirm.Check(tc); confirmResult.Confirmed {
			if confirmResult.Valid {
				tc = confirmResult.StrippedInput
			} else {
				s.metrics.RecordRequest(r.Context(), false)
				writeJSON(w, http.StatusOK, analyzeResponse{
					Allowed: false,
					Message: "Agent confirmation token was not valid: " + confirmResult.Error,
					Analysis: analysisView{Action: detect.ActionBlock},
				})
				return
			}
		}
	}

	result := s.analyzer.Analyze(r.Context(), tc)

	for _, det := range result.Detections {
		s.metrics.RecordDetection(r.Context(), string(det.Category))
	}

	resp := analyzeResponse{
		Analysis: analysisView{
			Action:     result.Action,
			Detections: result.Detections,
			Cached:     result.Cached,
			DurationMs: result.DurationMs,
		},
	}

	switch result.Action {
	case detect.ActionAllow, detect.ActionLog, detect.ActionWarn:
		resp.Allowed = true
		if result.PrimaryDetection != nil {
			resp.Message = result.PrimaryDetection.Reason
		}

	case detect.ActionBlock:
		resp.Allowed = false
		if result.PrimaryDetection != nil {
			resp.Message = result.PrimaryDetection.Reason
		}

	case detect.ActionConfirm, detect.ActionAgentConfirm:
		now := clock.NowMs(s.clock)
		rec := approval.Record{
			ID:        approval.NewID(now),
			CreatedAt: now,
			ExpiresAt: now + s.nativeTimeout.Milliseconds(),
			Status:    approval.StatusPending,
			ToolCall:  tc,
		}
		if result.PrimaryDetection != nil {
			rec.Detection = *result.PrimaryDetection
		}
		s.store.Add(rec)

		if s.webhook != nil {
			webhookResult := s.webhook.RequestApproval(r.Context(), rec)
			if webhookResult.Success && !webhookResult.WaitingForCallback {
				final, _ := s.store.Get(rec.ID)
				resp.Allowed = final.Status == approval.StatusApproved
				resp.Message = "Webhook decision: " + string(final.Status)
				s.metrics.RecordRequest(r.Context(), resp.Allowed)
				writeJSON(w, http.StatusOK, resp)
				return
			}
			if !webhookResult.Success {
				s.logger.Error("webhook approval request failed", "error", webhookResult.Error, "approvalId", rec.ID)
			}
		}

		resp.Allowed = false
		resp.Message = "Approval required"
		resp.PendingApproval = &pendingApprovalView{
			ID:      rec.ID,
			Timeout: int(s.nativeTimeout.Seconds()),
		}

	default:
		resp.Allowed = false
		resp.Message = "Unknown action"
	}

	s.metrics.RecordRequest(r.Context(), resp.Allowed)
	writeJSON(w, http.StatusOK, resp)
}

type decisionResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// handleApprove implements POST /approve/:id.
func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	id := idFromPath(r.URL.Path, "/approve/")
	if id == "" {
		writeBadRequest(w, r, "missing approval id")
		return
	}
	outcome := s.native.HandleApprove(id, nil)
	status := http.StatusOK
	if !outcome.Success {
		status = http.StatusNotFound
	} else {
		s.metrics.RecordApprovalOutcome(r.Context(), "approved")
	}
	writeJSON(w, status, decisionResponse{Success: outcome.Success, Message: outcome.Message})
}

// handleDeny implements POST /deny/:id.
func (s *Server) handleDeny(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	id := idFromPath(r.URL.Path, "/deny/")
	if id == "" {
		writeBadRequest(w, r, "missing approval id")
		return
	}
	outcome := s.native.HandleDeny(id)
	status := http.StatusOK
	if !outcome.Success {
		status = http.StatusNotFound
	} else {
		s.metrics.RecordApprovalOutcome(r.Context(), "denied")
	}
	writeJSON(w, status, decisionResponse{Success: outcome.Success, Message: outcome.Message})
}

// handleWebhookCallback implements the async webhook callback endpoint.
func (s *Server) handleWebhookCallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeMethodNotAllowed(w, r)
		return
	}
	if s.webhook == nil {
		writeNotFound(w, r, "webhook transport not configured")
		return
	}
	id := idFromPath(r.URL.Path, "/webhook/callback/")
	if id == "" {
		writeBadRequest(w, r, "missing approval id")
		return
	}
	var body transport.CallbackBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadRequest(w, r, "invalid callback body: "+err.Error())
		return
	}
	outcome := s.webhook.HandleCallback(id, body)
	status := http.StatusOK
	if !outcome.Success {
		status = http.StatusNotFound
	} else {
		result := "denied"
		if body.Approved {
			result = "approved"
		}
		s.metrics.RecordApprovalOutcome(r.Context(), result)
	}
	writeJSON(w, status, decisionResponse{Success: outcome.Success, Message: outcome.Message})
}

type statusConfigView struct {
	Port    int  `json:"port"`
	Host    string `json:"host"`
	Enabled bool `json:"enabled"`
}

type statusResponse struct {
	Active           bool             `json:"active"`
	Config           statusConfigView `json:"config"`
	PendingApprovals int              `json:"pendingApprovals"`
}

// handleStatus implements GET /status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeMethodNotAllowed(w, r)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Active: true,
		Config: statusConfigView{
			Port:    s.port,
			Host:    s.host,
			Enabled: s.enabled,
		},
		PendingApprovals: len(s.store.GetPending()),
	})
}

// handleHealth implements GET /health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func idFromPath(path, prefix string) string {
	if !strings.HasPrefix(path, prefix) {
		return ""
	}
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}
