package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawsec/core/internal/analyzer"
	"github.com/clawsec/core/internal/approval"
	"github.com/clawsec/core/internal/approval/transport"
	"github.com/clawsec/core/internal/clock"
	"github.com/clawsec/core/internal/detect"
	"github.com/clawsec/core/internal/filter"
)

func newTestServer(t *testing.T, blockOnPurchase bool) (*Server, *approval.Store, *clock.Manual) {
	t.Helper()
	c := clock.NewManual(time.Now())
	store := approval.NewStore(c, false, 0)

	detectors := []detect.Detector{
		detect.NewDestructiveDetector(detect.DestructiveConfig{
			Enabled: true, Severity: detect.SeverityCritical,
			ShellEnabled: true, CloudEnabled: true, CodeEnabled: true,
		}),
	}
	ruleActions := map[detect.Category]analyzer.RuleActions{}
	if blockOnPurchase {
		ruleActions[detect.CategoryPurchase] = analyzer.RuleActions{Action: detect.ActionBlock}
		ruleActions[detect.CategoryDestructive] = analyzer.RuleActions{Action: detect.ActionConfirm}
	}

	eng := analyzer.New(analyzer.Config{Enabled: true, Detectors: detectors, RuleActions: ruleActions}, c, nil)
	f := filter.New(detect.SanitizationConfig{}, detect.SecretsConfig{}, nil)

	native := transport.NewNative(store)
	agentConfirm := transport.NewAgentConfirm(store, true, "")

	srv := NewServer(Dependencies{
		Analyzer:      eng,
		Store:         store,
		Native:        native,
		AgentConfirm:  agentConfirm,
		Filter:        f,
		Clock:         c,
		NativeTimeout: 300 * time.Second,
		Port:          8443,
		Host:          "0.0.0.0",
		Enabled:       true,
	})
	return srv, store, c
}

func postJSON(t *testing.T, srv *httptest.Server, path string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(srv.URL+path, "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHandleAnalyzeAllowsBenignCall(t *testing.T) {
	s, _, _ := newTestServer(t, true)
	ts := httptest.NewServer(s.Mux(ServeConfig{}))
	defer ts.Close()

	resp := postJSON(t, ts, "/analyze", map[string]any{"toolName": "listFiles", "toolInput": map[string]any{"path": "/tmp"}})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out analyzeResponse
	decodeBody(t, resp, &out)
	assert.True(t, out.Allowed)
}

func TestHandleAnalyzeRejectsMissingToolName(t *testing.T) {
	s, _, _ := newTestServer(t, true)
	ts := httptest.NewServer(s.Mux(ServeConfig{}))
	defer ts.Close()

	resp := postJSON(t, ts, "/analyze", map[string]any{"toolInput": map[string]any{}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHandleAnalyzeDestructiveOpensApproval(t *testing.T) {
	s, store, _ := newTestServer(t, true)
	ts := httptest.NewServer(s.Mux(ServeConfig{}))
	defer ts.Close()

	resp := postJSON(t, ts, "/analyze", map[string]any{
		"toolName":  "runShell",
		"toolInput": map[string]any{"command": "rm -rf /"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out analyzeResponse
	decodeBody(t, resp, &out)
	assert.False(t, out.Allowed)
	require.NotNil(t, out.PendingApproval)
	assert.NotEmpty(t, out.PendingApproval.ID)

	pending := store.GetPending()
	require.Len(t, pending, 1)
	assert.Equal(t, out.PendingApproval.ID, pending[0].ID)
}

func TestHandleApproveAndDenyLifecycle(t *testing.T) {
	s, store, c := newTestServer(t, true)
	ts := httptest.NewServer(s.Mux(ServeConfig{}))
	defer ts.Close()

	store.Add(approval.Record{ID: "approval-test1", ExpiresAt: clock.NowMs(c) + 60000, Status: approval.StatusPending})

	resp, err := http.Post(ts.URL+"/approve/approval-test1", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out decisionResponse
	decodeBody(t, resp, &out)
	assert.True(t, out.Success)

	resp2, err := http.Post(ts.URL+"/deny/approval-test1", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
	var out2 decisionResponse
	decodeBody(t, resp2, &out2)
	assert.False(t, out2.Success, "an already-approved record cannot be denied")
}

func TestHandleApproveUnknownIDReturns404(t *testing.T) {
	s, _, _ := newTestServer(t, true)
	ts := httptest.NewServer(s.Mux(ServeConfig{}))
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/approve/does-not-exist", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleStatusReportsPendingCount(t *testing.T) {
	s, store, c := newTestServer(t, true)
	ts := httptest.NewServer(s.Mux(ServeConfig{}))
	defer ts.Close()

	store.Add(approval.Record{ID: "approval-x", ExpiresAt: clock.NowMs(c) + 60000, Status: approval.StatusPending})

	resp, err := http.Get(ts.URL + "/status")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out statusResponse
	decodeBody(t, resp, &out)
	assert.True(t, out.Active)
	assert.Equal(t, 1, out.PendingApprovals)
	assert.Equal(t, 8443, out.Config.Port)
}

func TestHandleHealthReturnsOK(t *testing.T) {
	s, _, _ := newTestServer(t, true)
	ts := httptest.NewServer(s.Mux(ServeConfig{}))
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthRequiredOnOperatorEndpoints(t *testing.T) {
	s, store, c := newTestServer(t, true)
	secret := []byte("test-secret")
	ts := httptest.NewServer(s.Mux(ServeConfig{Auth: AuthConfig{Enabled: true, Secret: secret}}))
	defer ts.Close()

	store.Add(approval.Record{ID: "approval-auth", ExpiresAt: clock.NowMs(c) + 60000, Status: approval.StatusPending})

	resp, err := http.Post(ts.URL+"/approve/approval-auth", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "operator"})
	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, ts.URL+"/approve/approval-auth", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signed)
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestRateLimiterReturns429(t *testing.T) {
	s, _, _ := newTestServer(t, true)
	ts := httptest.NewServer(s.Mux(ServeConfig{RateLimitRPS: 1, RateLimitBurst: 1}))
	defer ts.Close()

	body := map[string]any{"toolName": "listFiles"}
	first := postJSON(t, ts, "/analyze", body)
	assert.Equal(t, http.StatusOK, first.StatusCode)

	second := postJSON(t, ts, "/analyze", body)
	assert.Equal(t, http.StatusTooManyRequests, second.StatusCode)
}
