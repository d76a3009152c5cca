// Package service implements the panel's use cases over the session store,
// the remote client facade and the upload policy.
package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentpanel/agentpanel/internal/adapter/foundry"
	"github.com/agentpanel/agentpanel/internal/config"
	"github.com/agentpanel/agentpanel/internal/domain"
	"github.com/agentpanel/agentpanel/internal/policy"
	store "github.com/agentpanel/agentpanel/internal/repository"
)

// Notifier pushes events to live session subscribers. May be nil.
type Notifier interface {
	Publish(sessionID string, event interface{})
}

// Service holds the panel's use cases.
type Service struct {
	store        store.Store
	remote       *foundry.Client
	policyEngine *policy.Engine
	notifier     Notifier
	config       *config.Config

	mu           sync.Mutex
	agentCache   []domain.AgentRef
	agentCacheAt time.Time
}

// New creates the service.
func New(st store.Store, remote *foundry.Client, policyEngine *policy.Engine, notifier Notifier, cfg *config.Config) *Service {
	return &Service{
		store:        st,
		remote:       remote,
		policyEngine: policyEngine,
		notifier:     notifier,
		config:       cfg,
	}
}

// Session returns the session for the given id, creating it on first sight.
func (s *Service) Session(ctx context.Context, sessionID string) (*domain.Session, error) {
	return s.store.GetOrCreateSession(ctx, sessionID)
}

// Logs returns a session's activity log.
func (s *Service) Logs(ctx context.Context, sessionID string, limit int) ([]domain.LogEntry, error) {
	return s.store.GetLogs(ctx, sessionID, limit)
}

// logEntry appends to the session log, mirrors to the process log and
// pushes to live subscribers. Log bookkeeping never fails the caller.
func (s *Service) logEntry(ctx context.Context, sessionID string, level domain.LogLevel, format string, args ...interface{}) {
	entry := &domain.LogEntry{
		LogID:     "log_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AppendLog(ctx, entry); err != nil {
		log.Printf("ERROR: failed to append session log: %v", err)
	}
	if level == domain.LogLevelWarn {
		log.Printf("WARN: [%s] %s", sessionID, entry.Message)
	}
	if s.notifier != nil {
		s.notifier.Publish(sessionID, map[string]interface{}{
			"type":    "log",
			"ts":      entry.CreatedAt.UnixMilli(),
			"level":   string(level),
			"message": entry.Message,
		})
	}
}

func (s *Service) logInfo(ctx context.Context, sessionID, format string, args ...interface{}) {
	s.logEntry(ctx, sessionID, domain.LogLevelInfo, format, args...)
}

func (s *Service) logWarn(ctx context.Context, sessionID, format string, args ...interface{}) {
	s.logEntry(ctx, sessionID, domain.LogLevelWarn, format, args...)
}
