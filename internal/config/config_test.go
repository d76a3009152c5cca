package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadRequiresEndpoint(t *testing.T) {
	t.Setenv("PROJECT_ENDPOINT", "")
	t.Setenv("ORCHESTRATOR_AGENT_ID", "agent_1")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing PROJECT_ENDPOINT")
	}
	if !strings.Contains(err.Error(), "PROJECT_ENDPOINT") {
		t.Fatalf("error should name the missing setting: %v", err)
	}
}

func TestLoadRequiresOrchestratorID(t *testing.T) {
	t.Setenv("PROJECT_ENDPOINT", "https://example.test/api/projects/demo")
	t.Setenv("ORCHESTRATOR_AGENT_ID", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing ORCHESTRATOR_AGENT_ID")
	}
	if !strings.Contains(err.Error(), "ORCHESTRATOR_AGENT_ID") {
		t.Fatalf("error should name the missing setting: %v", err)
	}
}

func TestLoadDefaultsAndTrimming(t *testing.T) {
	t.Setenv("PROJECT_ENDPOINT", `"https://example.test/api/projects/demo/"`)
	t.Setenv("ORCHESTRATOR_AGENT_ID", "'agent_1'")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.ProjectEndpoint != "https://example.test/api/projects/demo" {
		t.Fatalf("endpoint not normalized: %q", cfg.ProjectEndpoint)
	}
	if cfg.OrchestratorAgentID != "agent_1" {
		t.Fatalf("agent id not unquoted: %q", cfg.OrchestratorAgentID)
	}
	if cfg.APIVersion != "v1" {
		t.Fatalf("unexpected api version: %q", cfg.APIVersion)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("unexpected poll interval: %v", cfg.PollInterval)
	}
	if cfg.HTTPPort != 8080 {
		t.Fatalf("unexpected port: %d", cfg.HTTPPort)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PROJECT_ENDPOINT", "https://example.test")
	t.Setenv("ORCHESTRATOR_AGENT_ID", "agent_1")
	t.Setenv("POLL_INTERVAL_MS", "50")
	t.Setenv("HTTP_PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PollInterval != 50*time.Millisecond {
		t.Fatalf("unexpected poll interval: %v", cfg.PollInterval)
	}
	if cfg.HTTPPort != 9999 {
		t.Fatalf("unexpected port: %d", cfg.HTTPPort)
	}
}
