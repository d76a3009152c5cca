package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/agentpanel/agentpanel/internal/domain"
	"github.com/agentpanel/agentpanel/internal/policy"
)

// ErrUploadRejected marks uploads blocked by the admission policy before any
// remote call was attempted.
var ErrUploadRejected = errors.New("upload rejected by policy")

// ErrFileNotAttached marks detach requests for file ids not present in the
// agent's tool resources.
var ErrFileNotAttached = errors.New("file not attached to agent")

// reconcileFileIDs decides how a newly uploaded file joins the agent's
// attachment list. A case-insensitive filename match replaces the old id at
// its original position; otherwise the new id is appended. The returned
// oldID is empty on append.
func reconcileFileIDs(existing []domain.AgentFile, newID, filename string) (ids []string, oldID string) {
	nameLC := strings.ToLower(filename)

	ids = make([]string, 0, len(existing)+1)
	for _, f := range existing {
		ids = append(ids, f.FileID)
	}

	for i, f := range existing {
		if strings.ToLower(f.Filename) == nameLC {
			oldID = f.FileID
			ids[i] = newID
			return ids, oldID
		}
	}
	return append(ids, newID), ""
}

// UploadAndPersist uploads bytes under the original filename and reconciles
// the agent's code interpreter attachments so at most one file id exists per
// case-insensitive filename. The superseded file is deleted best-effort;
// deletion failure goes to the warning channel and never changes the
// outcome.
func (s *Service) UploadAndPersist(ctx context.Context, sessionID, agentID, filename string, data []byte) (*domain.PersistOutcome, error) {
	decision, err := s.policyEngine.EvaluateUpload(ctx, policy.UploadInput{
		Filename: filename,
		Bytes:    int64(len(data)),
		MaxBytes: s.config.MaxUploadBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate upload policy: %w", err)
	}
	if decision != "allow" {
		return nil, fmt.Errorf("%w: %q", ErrUploadRejected, filename)
	}

	uploaded, err := s.remote.UploadFile(ctx, filename, data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload %q: %w", filename, err)
	}
	if err := s.store.SetSessionFile(ctx, sessionID, uploaded.ID); err != nil {
		return nil, fmt.Errorf("failed to remember uploaded file: %w", err)
	}
	s.logInfo(ctx, sessionID, "Uploaded new file_id=%s for '%s'.", uploaded.ID, filename)

	existing, err := s.ListAgentFiles(ctx, agentID)
	if err != nil {
		// Upload succeeded but reconciliation did not start; the uploaded
		// file is orphaned with no cleanup. Known gap.
		s.logWarn(ctx, sessionID, "Uploaded file %s is orphaned: %v", uploaded.ID, err)
		return nil, fmt.Errorf("failed to list current attachments: %w", err)
	}

	ids, oldID := reconcileFileIDs(existing, uploaded.ID, filename)
	if _, err := s.remote.UpdateAgentFileIDs(ctx, agentID, ids); err != nil {
		s.logWarn(ctx, sessionID, "Uploaded file %s is orphaned: %v", uploaded.ID, err)
		return nil, fmt.Errorf("failed to update agent attachments: %w", err)
	}

	outcome := &domain.PersistOutcome{
		FileID:     uploaded.ID,
		Filename:   filename,
		Replaced:   oldID != "",
		OldFileID:  oldID,
		TotalFiles: len(ids),
	}

	if oldID != "" {
		if err := s.remote.DeleteFile(ctx, oldID); err != nil {
			s.logWarn(ctx, sessionID, "Failed to delete superseded file %s: %v", oldID, err)
		}
		s.logInfo(ctx, sessionID, "Overwritten: '%s' old_id=%s -> new_id=%s.", filename, oldID, uploaded.ID)
	} else {
		s.logInfo(ctx, sessionID, "Persisted new file to code interpreter: '%s' id=%s.", filename, uploaded.ID)
	}

	s.invalidateAgentCache()
	return outcome, nil
}

// DetachFile removes a file id from the agent's code interpreter resources
// and deletes the file object best-effort.
func (s *Service) DetachFile(ctx context.Context, sessionID, agentID, fileID string) error {
	existing, err := s.ListAgentFiles(ctx, agentID)
	if err != nil {
		return fmt.Errorf("failed to list current attachments: %w", err)
	}

	remaining := make([]string, 0, len(existing))
	found := false
	filename := ""
	for _, f := range existing {
		if f.FileID == fileID {
			found = true
			filename = f.Filename
			continue
		}
		remaining = append(remaining, f.FileID)
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrFileNotAttached, fileID)
	}

	if _, err := s.remote.UpdateAgentFileIDs(ctx, agentID, remaining); err != nil {
		return fmt.Errorf("failed to update agent attachments: %w", err)
	}

	if err := s.remote.DeleteFile(ctx, fileID); err != nil {
		s.logWarn(ctx, sessionID, "Failed to delete detached file %s: %v", fileID, err)
	}
	s.logInfo(ctx, sessionID, "Deleted '%s' (id=%s) from code interpreter.", filename, fileID)

	s.invalidateAgentCache()
	return nil
}

func (s *Service) invalidateAgentCache() {
	s.mu.Lock()
	s.agentCache = nil
	s.mu.Unlock()
}
