package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/agentpanel/agentpanel/internal/domain"
)

// unavailableFilename labels file ids that no longer resolve to metadata.
const unavailableFilename = "(unavailable)"

// ListAgents returns the project's agents as selector entries. The list is
// cached for the configured TTL; refresh busts the cache. The fixed
// orchestrator agent is pinned to the front when the remote listing does not
// contain it.
func (s *Service) ListAgents(ctx context.Context, refresh bool) ([]domain.AgentRef, error) {
	s.mu.Lock()
	if !refresh && s.agentCache != nil && time.Since(s.agentCacheAt) < s.config.AgentCacheTTL {
		cached := s.agentCache
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	agents, err := s.remote.ListAgents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}

	refs := make([]domain.AgentRef, 0, len(agents))
	seenOrchestrator := false
	for _, a := range agents {
		label := strings.TrimSpace(a.Name)
		if label == "" {
			label = a.ID
		}
		refs = append(refs, domain.AgentRef{Label: label, ID: a.ID})
		if a.ID == s.config.OrchestratorAgentID {
			seenOrchestrator = true
		}
	}
	if !seenOrchestrator && s.config.OrchestratorAgentID != "" {
		refs = append([]domain.AgentRef{{Label: "Orchestrator", ID: s.config.OrchestratorAgentID}}, refs...)
	}

	s.mu.Lock()
	s.agentCache = refs
	s.agentCacheAt = time.Now()
	s.mu.Unlock()

	return refs, nil
}

// ListAgentFiles resolves an agent's code interpreter file ids to metadata
// rows. A file id that no longer resolves degrades to a placeholder row
// instead of failing the listing.
func (s *Service) ListAgentFiles(ctx context.Context, agentID string) ([]domain.AgentFile, error) {
	agent, err := s.remote.GetAgent(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get agent: %w", err)
	}

	fileIDs := agent.CodeInterpreterFileIDs()
	rows := make([]domain.AgentFile, 0, len(fileIDs))
	for _, fid := range fileIDs {
		meta, err := s.remote.GetFile(ctx, fid)
		if err != nil {
			rows = append(rows, domain.AgentFile{FileID: fid, Filename: unavailableFilename})
			continue
		}
		size := meta.Bytes
		rows = append(rows, domain.AgentFile{FileID: fid, Filename: meta.Filename, Bytes: &size})
	}
	return rows, nil
}
