package v1_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/VerteraIO/agentrouter/internal/controlplane/dispatch"
	httpserver "github.com/VerteraIO/agentrouter/internal/http"
	"github.com/VerteraIO/agentrouter/internal/model"
	"github.com/VerteraIO/agentrouter/internal/routing"
	"github.com/VerteraIO/agentrouter/internal/security/auth"
)

type routeResp struct {
	DecisionID          string   `json:"decision_id"`
	Strategy            string   `json:"strategy"`
	BestAgentID         *string  `json:"best_agent_id"`
	Score               *float64 `json:"score"`
	PredictedDurationMs *float64 `json:"predicted_duration_ms"`
	Message             string   `json:"message"`
	Reason              string   `json:"reason"`
}

type errResp struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newServer(t *testing.T, opts routing.Options, secret []byte) *httptest.Server {
	t.Helper()
	svc, err := routing.NewService(opts)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	ts := httptest.NewServer(httpserver.NewServer(httpserver.Options{Routing: svc, AuthSecret: secret}))
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url, body string, headers ...string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

const idleBody = `{
	"agents": [
		{"id": "A", "capabilities": ["text_processing"], "lastTaskCompletedAt": 1759999800000},
		{"id": "B", "capabilities": ["text_processing"], "lastTaskCompletedAt": 1759999990000}
	],
	"task": {"id": "t1", "type": "text_processing", "requiredCapabilities": ["text_processing"]}
}`

func fixedNow() time.Time { return time.UnixMilli(1_760_000_000_000) }

func TestRouteHeuristic(t *testing.T) {
	ts := newServer(t, routing.Options{Now: fixedNow}, nil)
	resp := post(t, ts.URL+"/api/v1/route", idleBody)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decodeBody[routeResp](t, resp)
	if got.BestAgentID == nil || *got.BestAgentID != "A" {
		t.Fatalf("expected A, got %+v", got)
	}
	if got.Score == nil || *got.Score != 120 {
		t.Fatalf("expected score 120, got %+v", got.Score)
	}
	if got.PredictedDurationMs != nil {
		t.Fatalf("heuristic response must not carry predicted_duration_ms")
	}

	dr, err := http.Get(ts.URL + "/api/v1/decisions/" + got.DecisionID)
	if err != nil {
		t.Fatalf("get decision: %v", err)
	}
	defer dr.Body.Close()
	if dr.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for decision, got %d", dr.StatusCode)
	}
	rec := decodeBody[map[string]any](t, dr)
	if rec["agentId"] != "A" || rec["outcome"] != "winner" {
		t.Fatalf("unexpected decision record: %v", rec)
	}
}

func TestRouteEmptyAgents(t *testing.T) {
	ts := newServer(t, routing.Options{}, nil)
	resp := post(t, ts.URL+"/api/v1/route", `{"agents": [], "task": {"id": "t", "type": "text_processing", "requiredCapabilities": []}}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decodeBody[routeResp](t, resp)
	if got.BestAgentID != nil {
		t.Fatalf("expected null best_agent_id, got %q", *got.BestAgentID)
	}
	if got.Message != routing.MessageNoAgents {
		t.Fatalf("unexpected message %q", got.Message)
	}
}

func TestRouteRejectsMalformedRequests(t *testing.T) {
	ts := newServer(t, routing.Options{}, nil)
	for name, body := range map[string]string{
		"not json":      `{"agents": [`,
		"empty":         ``,
		"missing task":  `{"agents": []}`,
		"missing agent": `{"task": {"type": "text_processing"}}`,
	} {
		resp := post(t, ts.URL+"/api/v1/route", body)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, resp.StatusCode)
		}
		e := decodeBody[errResp](t, resp)
		if e.Error != "invalid_request" || e.Message == "" {
			t.Fatalf("%s: unexpected error body %+v", name, e)
		}
	}
}

func TestRoutePredictiveWithoutModelIs500(t *testing.T) {
	ts := newServer(t, routing.Options{}, nil)
	body := `{"agents": [{"id": "A", "capabilities": [], "currentLoad": 1, "successRate": 0.9}], "task": {"type": "text_processing"}, "strategy": "predictive"}`
	resp := post(t, ts.URL+"/api/v1/route", body)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	if e := decodeBody[errResp](t, resp); e.Error != "model_unavailable" {
		t.Fatalf("unexpected error kind %q", e.Error)
	}
}

func TestRoutePredictive(t *testing.T) {
	b, err := model.LoadBundle("../../model/testdata/router.txt", "../../model/testdata/manifest.json", model.FormatLightGBM)
	if err != nil {
		t.Fatalf("LoadBundle: %v", err)
	}
	ts := newServer(t, routing.Options{Bundle: b, Strategy: "predictive"}, nil)
	body := `{
		"agents": [
			{"id": "agent_1", "capabilities": ["text_processing", "data_analysis"], "currentLoad": 0, "successRate": 0.95},
			{"id": "agent_3", "capabilities": ["image_analysis", "data_analysis"], "currentLoad": 2, "successRate": 0.91}
		],
		"task": {"type": "image_analysis", "requiredCapabilities": ["image_analysis"]}
	}`
	resp := post(t, ts.URL+"/api/v1/route", body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	got := decodeBody[routeResp](t, resp)
	if got.BestAgentID == nil || *got.BestAgentID != "agent_3" {
		t.Fatalf("expected agent_3, got %+v", got)
	}
	if got.PredictedDurationMs == nil || *got.PredictedDurationMs != 3400 {
		t.Fatalf("expected 3400ms, got %+v", got.PredictedDurationMs)
	}
	if got.Score != nil {
		t.Fatalf("predictive response must not carry score")
	}
}

func TestUnknownDecisionIs404(t *testing.T) {
	ts := newServer(t, routing.Options{}, nil)
	resp, err := http.Get(ts.URL + "/api/v1/decisions/does-not-exist")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestAssignmentsDrainAfterRoute(t *testing.T) {
	ts := newServer(t, routing.Options{Now: fixedNow, Dispatch: dispatch.NewManager(8)}, nil)
	routed := decodeBody[routeResp](t, post(t, ts.URL+"/api/v1/route", idleBody))

	resp, err := http.Get(ts.URL + "/api/v1/agents/A/assignments")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	var out struct {
		AgentID     string                 `json:"agent_id"`
		Assignments []*dispatch.Assignment `json:"assignments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Assignments) != 1 || out.Assignments[0].DecisionID != routed.DecisionID {
		t.Fatalf("unexpected assignments: %+v", out.Assignments)
	}

	again, err := http.Get(ts.URL + "/api/v1/agents/A/assignments")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer again.Body.Close()
	var empty bytes.Buffer
	_, _ = empty.ReadFrom(again.Body)
	if !strings.Contains(empty.String(), `"assignments":[]`) {
		t.Fatalf("expected drained queue, got %s", empty.String())
	}
}

func TestAssignmentsDisabled(t *testing.T) {
	ts := newServer(t, routing.Options{}, nil)
	resp, err := http.Get(ts.URL + "/api/v1/agents/A/assignments")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestRouteSchema(t *testing.T) {
	ts := newServer(t, routing.Options{}, nil)
	resp, err := http.Get(ts.URL + "/api/v1/schema/route")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	schema := decodeBody[map[string]any](t, resp)
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatalf("schema has no properties: %v", schema)
	}
	for _, key := range []string{"agents", "task", "strategy"} {
		if _, ok := props[key]; !ok {
			t.Fatalf("schema missing %q", key)
		}
	}
}

func TestAuthRequiredWhenSecretSet(t *testing.T) {
	secret := []byte("test-secret")
	ts := newServer(t, routing.Options{Now: fixedNow}, secret)

	if resp := post(t, ts.URL+"/api/v1/route", idleBody); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp := post(t, ts.URL+"/route", idleBody); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 on legacy path without token, got %d", resp.StatusCode)
	}

	tok, err := auth.IssueToken(secret, "orchestrator", time.Minute)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if resp := post(t, ts.URL+"/api/v1/route", idleBody, "Authorization", "Bearer "+tok); resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.StatusCode)
	}

	docs, err := http.Get(ts.URL + "/api/v1/openapi.yaml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer docs.Body.Close()
	if docs.StatusCode != http.StatusOK {
		t.Fatalf("docs should stay public, got %d", docs.StatusCode)
	}
}
