package service

import (
	"context"
	"testing"
	"time"

	"github.com/agentpanel/agentpanel/internal/adapter/foundry"
	"github.com/agentpanel/agentpanel/internal/config"
	"github.com/agentpanel/agentpanel/internal/credential"
	"github.com/agentpanel/agentpanel/internal/policy"
	"github.com/agentpanel/agentpanel/tests/helpers"
)

const testOrchestratorID = "agent_orchestrator"

func newTestService(t *testing.T) (*Service, *helpers.FakeProject) {
	t.Helper()

	project := helpers.NewFakeProject(t)
	db := helpers.NewTestSQLiteStore(t)

	cfg := &config.Config{
		ProjectEndpoint:     project.Server.URL,
		OrchestratorAgentID: testOrchestratorID,
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

	return New(db, remote, policyEngine, nil, cfg), project
}

func newTestSession(t *testing.T, svc *Service) string {
	t.Helper()
	const id = "session-test"
	if _, err := svc.Session(context.Background(), id); err != nil {
		t.Fatalf("Session failed: %v", err)
	}
	return id
}
