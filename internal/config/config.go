// Package config provides configuration for the control panel.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the panel configuration.
type Config struct {
	// Server settings
	HTTPPort int

	// Remote agent project
	ProjectEndpoint     string
	OrchestratorAgentID string
	APIVersion          string

	// Optional static API key; when empty the Azure default credential
	// chain is used instead.
	ProjectAPIKey string

	// Local session store
	DatabaseURL string

	// Run polling
	PollInterval time.Duration
	RunTimeout   time.Duration

	// Agent list cache
	AgentCacheTTL time.Duration

	// Upload limits
	MaxUploadBytes int64
}

// Load loads configuration from .env (if present) and environment
// variables. It fails when a required setting is missing so the process can
// stop before any network call is attempted.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPPort:            getEnvInt("HTTP_PORT", 8080),
		ProjectEndpoint:     strings.TrimSuffix(getEnv("PROJECT_ENDPOINT", ""), "/"),
		OrchestratorAgentID: getEnv("ORCHESTRATOR_AGENT_ID", ""),
		APIVersion:          getEnv("API_VERSION", "v1"),
		ProjectAPIKey:       getEnv("PROJECT_API_KEY", ""),
		DatabaseURL:         getEnv("DATABASE_URL", "file:panel.db?cache=shared&mode=rwc"),
		PollInterval:        time.Duration(getEnvInt("POLL_INTERVAL_MS", 2000)) * time.Millisecond,
		RunTimeout:          time.Duration(getEnvInt("RUN_TIMEOUT_MS", 600000)) * time.Millisecond,
		AgentCacheTTL:       time.Duration(getEnvInt("AGENT_CACHE_TTL_MS", 60000)) * time.Millisecond,
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_BYTES", 50<<20)),
	}

	if cfg.ProjectEndpoint == "" {
		return nil, fmt.Errorf("missing setting: PROJECT_ENDPOINT")
	}
	if cfg.OrchestratorAgentID == "" {
		return nil, fmt.Errorf("missing setting: ORCHESTRATOR_AGENT_ID")
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		// Tolerate values pasted with surrounding quotes.
		return strings.Trim(strings.TrimSpace(val), `"'`)
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}
