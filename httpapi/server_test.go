package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/researchmesh/agent"
	"github.com/hupe1980/researchmesh/artifact"
	"github.com/hupe1980/researchmesh/core"
	"github.com/hupe1980/researchmesh/metrics"
	"github.com/hupe1980/researchmesh/runner"
	"github.com/hupe1980/researchmesh/session"
)

type workflowFunc func(ctx context.Context, msgs []core.Message) (*agent.Outcome, error)

func (f workflowFunc) Run(ctx context.Context, msgs []core.Message) (*agent.Outcome, error) {
	return f(ctx, msgs)
}

// reportWorkflow asks for clarification on the first turn and reports on the second.
func reportWorkflow(_ context.Context, msgs []core.Message) (*agent.Outcome, error) {
	if len(msgs) == 1 {
		return &agent.Outcome{
			Messages:           append(msgs, core.NewAssistantMessage("Which region?")),
			NeedsClarification: true,
		}, nil
	}

	return &agent.Outcome{
		Messages:      append(msgs, core.NewAssistantMessage("here's the final report: # EU")),
		ResearchBrief: "EU coffee prices",
		FinalReport:   "# EU",
	}, nil
}

func newTestServer(t *testing.T, wf runner.Workflow) *httptest.Server {
	t.Helper()

	sessions := session.NewInMemoryStore()
	artifacts := artifact.NewInMemoryStore()

	r := runner.New(wf, func(o *runner.Options) {
		o.SessionStore = sessions
		o.ArtifactStore = artifacts
	})

	reg := prometheus.NewRegistry()
	metrics.New(reg).SupervisorRound(1)

	srv := httptest.NewServer(NewHandler(r, func(o *Options) {
		o.SessionStore = sessions
		o.ArtifactStore = artifacts
		o.Metrics = metrics.Handler(reg)
	}))
	t.Cleanup(srv.Close)

	return srv
}

func postMessage(t *testing.T, srv *httptest.Server, sessionID, message string) *http.Response {
	t.Helper()

	body := strings.NewReader(`{"message":` + quote(message) + `}`)

	resp, err := http.Post(srv.URL+"/v1/sessions/"+sessionID+"/messages", "application/json", body)
	require.NoError(t, err)

	return resp
}

func quote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestServer_ClarificationRoundTrip(t *testing.T) {
	srv := newTestServer(t, workflowFunc(reportWorkflow))

	resp := postMessage(t, srv, "s1", "coffee prices?")
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var first RunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&first))
	assert.True(t, first.NeedsClarification)
	assert.Equal(t, "Which region?", first.Question)
	assert.Equal(t, "s1", first.SessionID)

	resp2 := postMessage(t, srv, "s1", "Europe")
	defer resp2.Body.Close()

	var second RunResponse
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&second))
	assert.False(t, second.NeedsClarification)
	assert.Equal(t, "# EU", second.FinalReport)
	assert.Equal(t, runner.ReportName(second.RunID), second.Artifact)

	history, err := http.Get(srv.URL + "/v1/sessions/s1/messages")
	require.NoError(t, err)
	defer history.Body.Close()

	var msgs []core.Message
	require.NoError(t, json.NewDecoder(history.Body).Decode(&msgs))
	require.Len(t, msgs, 4)
	assert.Equal(t, "Europe", msgs[2].Content)

	report, err := http.Get(srv.URL + "/v1/sessions/s1/reports/" + second.RunID)
	require.NoError(t, err)
	defer report.Body.Close()

	data, err := io.ReadAll(report.Body)
	require.NoError(t, err)
	assert.Equal(t, "# EU", string(data))
	assert.Contains(t, report.Header.Get("Content-Type"), "text/markdown")
}

func TestServer_Stream(t *testing.T) {
	srv := newTestServer(t, workflowFunc(reportWorkflow))

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/v1/sessions/s1/messages", strings.NewReader(`{"message":"q"}`))
	require.NoError(t, err)
	req.Header.Set("Accept", "text/event-stream")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	body := string(data)
	assert.Contains(t, body, "event: run.started\n")
	assert.Contains(t, body, "event: message\n")
	assert.Contains(t, body, "event: run.completed\n")
}

func TestServer_RunError(t *testing.T) {
	srv := newTestServer(t, workflowFunc(func(_ context.Context, msgs []core.Message) (*agent.Outcome, error) {
		return &agent.Outcome{Messages: msgs}, assert.AnError
	}))

	resp := postMessage(t, srv, "s1", "q")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body errorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Error, assert.AnError.Error())
}

func TestServer_BadRequests(t *testing.T) {
	srv := newTestServer(t, workflowFunc(reportWorkflow))

	resp, err := http.Post(srv.URL+"/v1/sessions/s1/messages", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postMessage(t, srv, "s1", "   ")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_NotFound(t *testing.T) {
	srv := newTestServer(t, workflowFunc(reportWorkflow))

	resp, err := http.Get(srv.URL + "/v1/sessions/s1/reports/missing")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	req, err := http.NewRequest(http.MethodDelete, srv.URL+"/v1/runs/missing", nil)
	require.NoError(t, err)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_HealthAndMetrics(t *testing.T) {
	srv := newTestServer(t, workflowFunc(reportWorkflow))

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "researchmesh_supervisor_rounds_total 1")
}
