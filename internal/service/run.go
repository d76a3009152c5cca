package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agentpanel/agentpanel/internal/domain"
)

// ErrNoAssistantReply marks runs that reached a terminal status without any
// assistant-authored text. Callers surface it as an explicit "no response"
// condition rather than an empty string.
var ErrNoAssistantReply = errors.New("no assistant response generated")

// defaultPrompt is used when the ask box is submitted empty.
const defaultPrompt = "Please analyze the uploaded file."

// runMessagePageSize bounds the message listing after a run; the original
// surface returns a single page.
const runMessagePageSize = 100

// NewThread creates a fresh conversation thread for the session and clears
// its activity log.
func (s *Service) NewThread(ctx context.Context, sessionID string) (*domain.Thread, error) {
	thread, err := s.remote.CreateThread(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	if err := s.store.SetSessionThread(ctx, sessionID, thread.ID); err != nil {
		return nil, fmt.Errorf("failed to remember thread: %w", err)
	}
	if err := s.store.ClearLogs(ctx, sessionID); err != nil {
		return nil, fmt.Errorf("failed to reset session log: %w", err)
	}
	s.logInfo(ctx, sessionID, "Started a new thread: %s.", thread.ID)
	return thread, nil
}

// Ask submits a prompt to the fixed orchestrator agent: it reuses or creates
// the session's thread, posts the user message (attaching the session's last
// uploaded file for this run only), creates a run, polls it to a terminal
// status and returns the assistant output of exactly that run.
//
// The poll loop is bounded by the configured run timeout and honors caller
// cancellation; the terminal status is surfaced verbatim.
func (s *Service) Ask(ctx context.Context, sessionID, prompt string) (*domain.AskResult, error) {
	session, err := s.store.GetOrCreateSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	threadID := session.ThreadID
	if threadID == "" {
		thread, err := s.remote.CreateThread(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create thread: %w", err)
		}
		threadID = thread.ID
		if err := s.store.SetSessionThread(ctx, sessionID, threadID); err != nil {
			return nil, fmt.Errorf("failed to remember thread: %w", err)
		}
		s.logInfo(ctx, sessionID, "Thread created: %s.", threadID)
	}

	var attachments []domain.MessageAttachment
	if session.LastFileID != "" {
		attachments = []domain.MessageAttachment{{
			FileID: session.LastFileID,
			Tools:  []domain.Tool{{Type: "code_interpreter"}},
		}}
		s.logInfo(ctx, sessionID, "File attached to code interpreter for this run (message-level).")
	}

	if strings.TrimSpace(prompt) == "" {
		prompt = defaultPrompt
	}
	if _, err := s.remote.CreateMessage(ctx, threadID, "user", prompt, attachments); err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}

	run, err := s.remote.CreateRun(ctx, threadID, s.config.OrchestratorAgentID)
	if err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}

	run, err = s.pollRun(ctx, sessionID, threadID, run)
	if err != nil {
		return nil, err
	}

	result := &domain.AskResult{
		ThreadID: threadID,
		RunID:    run.ID,
		Status:   run.Status,
	}

	messages, err := s.remote.ListRunMessages(ctx, threadID, run.ID, runMessagePageSize)
	if err != nil {
		return nil, fmt.Errorf("failed to list run messages: %w", err)
	}
	reply, ok := assistantReply(messages, run.ID)
	if !ok {
		return result, ErrNoAssistantReply
	}
	result.Reply = reply
	return result, nil
}

// pollRun re-fetches the run at a fixed interval until its status leaves the
// pending set. The loop stops early when the context expires, so an
// unresponsive remote run cannot block a session past the run timeout.
func (s *Service) pollRun(ctx context.Context, sessionID, threadID string, run *domain.Run) (*domain.Run, error) {
	ctx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	lastStatus := run.Status
	s.publishRunStatus(sessionID, run)

	for run.Status.Pending() {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("run %s did not reach a terminal status: %w", run.ID, ctx.Err())
		case <-ticker.C:
		}

		next, err := s.remote.GetRun(ctx, threadID, run.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to poll run: %w", err)
		}
		run = next
		if run.Status != lastStatus {
			lastStatus = run.Status
			s.publishRunStatus(sessionID, run)
		}
	}

	s.logInfo(ctx, sessionID, "Run %s finished with status %s.", run.ID, run.Status)
	return run, nil
}

func (s *Service) publishRunStatus(sessionID string, run *domain.Run) {
	if s.notifier == nil {
		return
	}
	s.notifier.Publish(sessionID, map[string]interface{}{
		"type":   "run_status",
		"ts":     time.Now().UnixMilli(),
		"run_id": run.ID,
		"status": string(run.Status),
	})
}

// assistantReply concatenates the assistant-authored text segments of one
// run's messages in listing order, paragraph-separated. The listing is
// already run-filtered server-side; the run id check here guards against
// surfaces that ignore the filter. ok is false when no assistant text
// exists.
func assistantReply(messages []domain.Message, runID string) (reply string, ok bool) {
	var chunks []string
	for _, m := range messages {
		if m.Role != "assistant" {
			continue
		}
		if m.RunID != "" && m.RunID != runID {
			continue
		}
		for _, part := range m.Content {
			if part.Text != nil && part.Text.Value != "" {
				chunks = append(chunks, part.Text.Value)
			}
		}
	}
	if len(chunks) == 0 {
		return "", false
	}
	return strings.Join(chunks, "\n\n"), true
}
