// Package store persists the panel's session bookkeeping. Agents, files,
// threads and runs all live in the remote service; this store only holds
// what ties a browser session to them.
package store

import (
	"context"

	"github.com/agentpanel/agentpanel/internal/domain"
)

// Store is the session bookkeeping interface.
type Store interface {
	GetOrCreateSession(ctx context.Context, sessionID string) (*domain.Session, error)
	SetSessionThread(ctx context.Context, sessionID, threadID string) error
	SetSessionFile(ctx context.Context, sessionID, fileID string) error

	AppendLog(ctx context.Context, entry *domain.LogEntry) error
	GetLogs(ctx context.Context, sessionID string, limit int) ([]domain.LogEntry, error)
	ClearLogs(ctx context.Context, sessionID string) error

	Close() error
}
