package v1

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/agentpanel/agentpanel/internal/service"
)

// AskRequest is the body of POST /v1/runs.
type AskRequest struct {
	Prompt string `json:"prompt"`
}

// AskResponse is the outcome of one orchestrator run.
type AskResponse struct {
	ThreadID string `json:"thread_id"`
	RunID    string `json:"run_id"`
	Status   string `json:"status"`
	Reply    string `json:"reply"`
	NoReply  bool   `json:"no_reply,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Ask submits a prompt to the orchestrator agent and blocks until the run
// reaches a terminal status.
// POST /v1/runs
func (h *Handler) Ask(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	var req AskRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	result, err := h.service.Ask(ctx, sessionID, req.Prompt)
	if err != nil {
		if errors.Is(err, service.ErrNoAssistantReply) && result != nil {
			// Terminal run, no assistant text. Explicit condition, not an
			// empty reply.
			return c.JSON(http.StatusOK, AskResponse{
				ThreadID: result.ThreadID,
				RunID:    result.RunID,
				Status:   string(result.Status),
				NoReply:  true,
				Message:  "No assistant response generated.",
			})
		}
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "run failed: " + err.Error()})
	}

	return c.JSON(http.StatusOK, AskResponse{
		ThreadID: result.ThreadID,
		RunID:    result.RunID,
		Status:   string(result.Status),
		Reply:    result.Reply,
	})
}

// NewThread starts a fresh conversation thread for this session.
// POST /v1/threads
func (h *Handler) NewThread(c echo.Context) error {
	ctx := c.Request().Context()

	sessionID, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	thread, err := h.service.NewThread(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "failed to start thread: " + err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"thread_id": thread.ID,
	})
}
