package v1

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"

	"github.com/agentpanel/agentpanel/internal/service"
)

// ListAgentFiles lists an agent's code interpreter attachments.
// GET /v1/agents/:agent_id/files
func (h *Handler) ListAgentFiles(c echo.Context) error {
	ctx := c.Request().Context()
	agentID := c.Param("agent_id")

	files, err := h.service.ListAgentFiles(ctx, agentID)
	if err != nil {
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "could not list code interpreter files: " + err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"files": files,
	})
}

// UploadFile uploads a file and persists it in the agent's code interpreter
// resources, overwriting by filename.
// POST /v1/agents/:agent_id/files (multipart, field "file")
func (h *Handler) UploadFile(c echo.Context) error {
	ctx := c.Request().Context()
	agentID := c.Param("agent_id")

	sessionID, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "file is required"})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read upload"})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "failed to read upload"})
	}

	// The stored name is the original filename, no generated suffix. Base
	// only, in case the browser sent a path.
	filename := filepath.Base(fileHeader.Filename)

	outcome, err := h.service.UploadAndPersist(ctx, sessionID, agentID, filename, data)
	if err != nil {
		if errors.Is(err, service.ErrUploadRejected) {
			return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "persist/overwrite failed: " + err.Error()})
	}

	return c.JSON(http.StatusOK, outcome)
}

// DeleteAgentFile removes a file from the agent's code interpreter
// resources and deletes the file object best-effort.
// DELETE /v1/agents/:agent_id/files/:file_id
func (h *Handler) DeleteAgentFile(c echo.Context) error {
	ctx := c.Request().Context()
	agentID := c.Param("agent_id")
	fileID := c.Param("file_id")

	sessionID, err := h.sessionID(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	if err := h.service.DetachFile(ctx, sessionID, agentID, fileID); err != nil {
		if errors.Is(err, service.ErrFileNotAttached) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "delete failed: " + err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"ok":      true,
		"file_id": fileID,
	})
}
