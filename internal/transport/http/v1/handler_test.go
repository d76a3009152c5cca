package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentpanel/agentpanel/internal/adapter/foundry"
	"github.com/agentpanel/agentpanel/internal/config"
	"github.com/agentpanel/agentpanel/internal/credential"
	"github.com/agentpanel/agentpanel/internal/domain"
	"github.com/agentpanel/agentpanel/internal/hub"
	"github.com/agentpanel/agentpanel/internal/policy"
	"github.com/agentpanel/agentpanel/internal/service"
	"github.com/agentpanel/agentpanel/tests/helpers"
)

const testOrchestratorID = "agent_orchestrator"

func newTestHandler(t *testing.T) (*Handler, *helpers.FakeProject) {
	return newTestHandlerWithOrchestrator(t, testOrchestratorID)
}

func newTestHandlerWithOrchestrator(t *testing.T, orchestratorID string) (*Handler, *helpers.FakeProject) {
	t.Helper()

	project := helpers.NewFakeProject(t)
	db := helpers.NewTestSQLiteStore(t)

	cfg := &config.Config{
		ProjectEndpoint:     project.Server.URL,
		OrchestratorAgentID: orchestratorID,
		APIVersion:          "v1",
		PollInterval:        time.Millisecond,
		RunTimeout:          2 * time.Second,
		AgentCacheTTL:       time.Minute,
		MaxUploadBytes:      1 << 20,
	}

	remote := foundry.NewClient(project.Server.URL, cfg.APIVersion, credential.StaticProvider{Value: "test-token"})
	policyEngine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}

	svc := service.New(db, remote, policyEngine, nil, cfg)
	return NewHandler(svc, hub.NewHub()), project
}

func newContext(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(req, rec), rec
}

func multipartBody(t *testing.T, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestHealth(t *testing.T) {
	h, _ := newTestHandler(t)
	c, rec := newContext(httptest.NewRequest(http.MethodGet, "/health", nil))

	require.NoError(t, h.Health(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestListAgentsPinsOrchestratorFirst(t *testing.T) {
	h, project := newTestHandler(t)
	project.AddAgent("a1", "Analyst")

	c, rec := newContext(httptest.NewRequest(http.MethodGet, "/v1/agents", nil))
	require.NoError(t, h.ListAgents(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Agents []domain.AgentRef `json:"agents"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Agents, 2)
	assert.Equal(t, testOrchestratorID, body.Agents[0].ID)
	assert.Equal(t, "Orchestrator", body.Agents[0].Label)
}

func TestListAgentsEmptyProject(t *testing.T) {
	h, _ := newTestHandlerWithOrchestrator(t, "")

	c, rec := newContext(httptest.NewRequest(http.MethodGet, "/v1/agents", nil))
	require.NoError(t, h.ListAgents(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUploadFileMissingPart(t *testing.T) {
	h, project := newTestHandler(t)
	project.AddAgent("a1", "Analyst")

	c, rec := newContext(httptest.NewRequest(http.MethodPost, "/v1/agents/a1/files", nil))
	c.SetParamNames("agent_id")
	c.SetParamValues("a1")

	require.NoError(t, h.UploadFile(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "file is required")
}

func TestUploadFilePersisted(t *testing.T) {
	h, project := newTestHandler(t)
	project.AddAgent("a1", "Analyst")

	body, contentType := multipartBody(t, "data.csv", []byte("a,b\n1,2\n"))
	req := httptest.NewRequest(http.MethodPost, "/v1/agents/a1/files", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	c, rec := newContext(req)
	c.SetParamNames("agent_id")
	c.SetParamValues("a1")

	require.NoError(t, h.UploadFile(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var outcome domain.PersistOutcome
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcome))
	assert.Equal(t, "data.csv", outcome.Filename)
	assert.False(t, outcome.Replaced)
	assert.Equal(t, 1, outcome.TotalFiles)
	assert.Equal(t, []string{outcome.FileID}, project.FileIDs("a1"))
}

func TestUploadFileRejected(t *testing.T) {
	h, project := newTestHandler(t)
	project.AddAgent("a1", "Analyst")

	body, contentType := multipartBody(t, "setup.exe", []byte("MZ"))
	req := httptest.NewRequest(http.MethodPost, "/v1/agents/a1/files", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	c, rec := newContext(req)
	c.SetParamNames("agent_id")
	c.SetParamValues("a1")

	require.NoError(t, h.UploadFile(c))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, 0, project.UploadCalls, "rejected uploads never reach the remote")
}

func TestDeleteAgentFile(t *testing.T) {
	h, project := newTestHandler(t)
	project.AddAgent("a1", "Analyst", "f1")
	project.AddFile("f1", "data.csv", 8)

	req := httptest.NewRequest(http.MethodDelete, "/v1/agents/a1/files/f1", nil)
	c, rec := newContext(req)
	c.SetParamNames("agent_id", "file_id")
	c.SetParamValues("a1", "f1")

	require.NoError(t, h.DeleteAgentFile(c))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, project.FileIDs("a1"))
	assert.Equal(t, []string{"f1"}, project.DeletedFiles)
}

func TestDeleteAgentFileNotAttached(t *testing.T) {
	h, project := newTestHandler(t)
	project.AddAgent("a1", "Analyst")

	req := httptest.NewRequest(http.MethodDelete, "/v1/agents/a1/files/f404", nil)
	c, rec := newContext(req)
	c.SetParamNames("agent_id", "file_id")
	c.SetParamValues("a1", "f404")

	require.NoError(t, h.DeleteAgentFile(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAskReturnsReply(t *testing.T) {
	h, project := newTestHandler(t)
	project.AddAgent(testOrchestratorID, "Orchestrator")
	project.ScriptNextRun(domain.RunStatusCompleted)
	project.AutoReply = []string{"Forty-two."}

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{"prompt":"what is the answer?"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newContext(req)

	require.NoError(t, h.Ask(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Forty-two.", resp.Reply)
	assert.Equal(t, string(domain.RunStatusCompleted), resp.Status)
	assert.False(t, resp.NoReply)
	assert.NotEmpty(t, resp.ThreadID)
	assert.NotEmpty(t, resp.RunID)
}

func TestAskNoAssistantReply(t *testing.T) {
	h, project := newTestHandler(t)
	project.AddAgent(testOrchestratorID, "Orchestrator")
	project.ScriptNextRun(domain.RunStatusCompleted)

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{"prompt":"anything"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c, rec := newContext(req)

	require.NoError(t, h.Ask(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp AskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.NoReply)
	assert.Equal(t, "No assistant response generated.", resp.Message)
	assert.Empty(t, resp.Reply)
}

func TestNewThreadMintsSessionCookie(t *testing.T) {
	h, _ := newTestHandler(t)

	c, rec := newContext(httptest.NewRequest(http.MethodPost, "/v1/threads", nil))
	require.NoError(t, h.NewThread(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body["thread_id"])

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, sessionCookie, cookies[0].Name)
	assert.NotEmpty(t, cookies[0].Value)
}

func TestGetLogsForSession(t *testing.T) {
	h, _ := newTestHandler(t)

	threadReq := httptest.NewRequest(http.MethodPost, "/v1/threads", nil)
	threadReq.AddCookie(&http.Cookie{Name: sessionCookie, Value: "session-test"})
	c, rec := newContext(threadReq)
	require.NoError(t, h.NewThread(c))
	require.Equal(t, http.StatusOK, rec.Code)

	logReq := httptest.NewRequest(http.MethodGet, "/v1/logs", nil)
	logReq.AddCookie(&http.Cookie{Name: sessionCookie, Value: "session-test"})
	c, rec = newContext(logReq)
	require.NoError(t, h.GetLogs(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Logs []domain.LogEntry `json:"logs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Logs, 1)
	assert.Contains(t, body.Logs[0].Message, "Started a new thread")
}
