// Package foundry provides the HTTP client facade for the remote agent
// project API (assistants, files, threads, runs, messages).
package foundry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentpanel/agentpanel/internal/credential"
	"github.com/agentpanel/agentpanel/internal/domain"
)

// Client issues authenticated calls against a single versioned REST surface.
// Each method performs exactly one HTTP call; there are no retries and no
// backoff. Token refresh is delegated to the credential provider.
type Client struct {
	endpoint   string
	apiVersion string
	tokens     credential.TokenProvider
	httpClient *http.Client
}

// NewClient creates a client for the given project endpoint.
func NewClient(endpoint, apiVersion string, tokens credential.TokenProvider) *Client {
	return &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		apiVersion: apiVersion,
		tokens:     tokens,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// url builds an endpoint-relative URL with the fixed api-version tag and any
// extra query parameters.
func (c *Client) url(path string, query url.Values) string {
	if query == nil {
		query = url.Values{}
	}
	query.Set("api-version", c.apiVersion)
	return c.endpoint + path + "?" + query.Encode()
}

// do executes one authenticated request and decodes the JSON response into
// out (when out is non-nil). Non-2xx responses become errors carrying the
// status and body.
func (c *Client) do(ctx context.Context, method, rawURL string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("remote returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	return c.do(ctx, http.MethodGet, rawURL, nil, "", out)
}

func (c *Client) postJSON(ctx context.Context, rawURL string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, rawURL, bytes.NewReader(payload), "application/json", out)
}

// ListAgents lists the project's agents.
func (c *Client) ListAgents(ctx context.Context) ([]domain.Agent, error) {
	var list domain.AgentList
	if err := c.getJSON(ctx, c.url("/assistants", nil), &list); err != nil {
		return nil, fmt.Errorf("failed to list agents: %w", err)
	}
	return list.Data, nil
}

// GetAgent fetches one agent including its tool_resources.
func (c *Client) GetAgent(ctx context.Context, agentID string) (*domain.Agent, error) {
	var agent domain.Agent
	if err := c.getJSON(ctx, c.url("/assistants/"+url.PathEscape(agentID), nil), &agent); err != nil {
		return nil, fmt.Errorf("failed to get agent %s: %w", agentID, err)
	}
	return &agent, nil
}

// updateAgentRequest is the body of POST /assistants/{id}.
type updateAgentRequest struct {
	Tools         []domain.Tool        `json:"tools"`
	ToolResources domain.ToolResources `json:"tool_resources"`
}

// UpdateAgentFileIDs replaces the agent's code interpreter file ids. The
// code_interpreter tool is re-asserted in the tools list in case the remote
// configuration dropped it.
func (c *Client) UpdateAgentFileIDs(ctx context.Context, agentID string, fileIDs []string) (*domain.Agent, error) {
	agent, err := c.GetAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	tools := agent.Tools
	hasCI := false
	for _, t := range tools {
		if t.Type == "code_interpreter" {
			hasCI = true
			break
		}
	}
	if !hasCI {
		tools = append(tools, domain.Tool{Type: "code_interpreter"})
	}

	req := updateAgentRequest{
		Tools: tools,
		ToolResources: domain.ToolResources{
			CodeInterpreter: &domain.CodeInterpreterResources{FileIDs: fileIDs},
		},
	}
	var updated domain.Agent
	if err := c.postJSON(ctx, c.url("/assistants/"+url.PathEscape(agentID), nil), req, &updated); err != nil {
		return nil, fmt.Errorf("failed to update agent %s tool resources: %w", agentID, err)
	}
	return &updated, nil
}

// GetFile resolves file metadata (filename, byte size).
func (c *Client) GetFile(ctx context.Context, fileID string) (*domain.FileObject, error) {
	var file domain.FileObject
	if err := c.getJSON(ctx, c.url("/files/"+url.PathEscape(fileID), nil), &file); err != nil {
		return nil, fmt.Errorf("failed to get file %s: %w", fileID, err)
	}
	return &file, nil
}

// UploadFile uploads raw bytes under the original filename with
// purpose=assistants. No suffix is generated; the stored name is exactly the
// caller's filename.
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (*domain.FileObject, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	if err := writer.WriteField("purpose", "assistants"); err != nil {
		return nil, fmt.Errorf("failed to write purpose field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file bytes: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	var file domain.FileObject
	if err := c.do(ctx, http.MethodPost, c.url("/files", nil), &buf, writer.FormDataContentType(), &file); err != nil {
		return nil, fmt.Errorf("failed to upload file %q: %w", filename, err)
	}
	return &file, nil
}

// DeleteFile deletes a file object.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if err := c.do(ctx, http.MethodDelete, c.url("/files/"+url.PathEscape(fileID), nil), nil, "", nil); err != nil {
		return fmt.Errorf("failed to delete file %s: %w", fileID, err)
	}
	return nil
}

// CreateThread creates a new conversation thread.
func (c *Client) CreateThread(ctx context.Context) (*domain.Thread, error) {
	var thread domain.Thread
	if err := c.postJSON(ctx, c.url("/threads", nil), map[string]interface{}{}, &thread); err != nil {
		return nil, fmt.Errorf("failed to create thread: %w", err)
	}
	return &thread, nil
}

// createMessageRequest is the body of POST /threads/{id}/messages.
type createMessageRequest struct {
	Role        string                     `json:"role"`
	Content     string                     `json:"content"`
	Attachments []domain.MessageAttachment `json:"attachments,omitempty"`
}

// CreateMessage creates a user message on a thread, optionally with
// message-scoped file attachments.
func (c *Client) CreateMessage(ctx context.Context, threadID, role, content string, attachments []domain.MessageAttachment) (*domain.Message, error) {
	req := createMessageRequest{Role: role, Content: content, Attachments: attachments}
	var msg domain.Message
	path := "/threads/" + url.PathEscape(threadID) + "/messages"
	if err := c.postJSON(ctx, c.url(path, nil), req, &msg); err != nil {
		return nil, fmt.Errorf("failed to create message on thread %s: %w", threadID, err)
	}
	return &msg, nil
}

// CreateRun starts a run of the given agent against a thread.
func (c *Client) CreateRun(ctx context.Context, threadID, agentID string) (*domain.Run, error) {
	var run domain.Run
	path := "/threads/" + url.PathEscape(threadID) + "/runs"
	if err := c.postJSON(ctx, c.url(path, nil), map[string]string{"assistant_id": agentID}, &run); err != nil {
		return nil, fmt.Errorf("failed to create run on thread %s: %w", threadID, err)
	}
	return &run, nil
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(ctx context.Context, threadID, runID string) (*domain.Run, error) {
	var run domain.Run
	path := "/threads/" + url.PathEscape(threadID) + "/runs/" + url.PathEscape(runID)
	if err := c.getJSON(ctx, c.url(path, nil), &run); err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRunMessages lists a thread's messages filtered to one run, in
// ascending order.
func (c *Client) ListRunMessages(ctx context.Context, threadID, runID string, limit int) ([]domain.Message, error) {
	query := url.Values{}
	query.Set("run_id", runID)
	query.Set("order", "asc")
	query.Set("limit", fmt.Sprintf("%d", limit))

	var list domain.MessageList
	path := "/threads/" + url.PathEscape(threadID) + "/messages"
	if err := c.getJSON(ctx, c.url(path, query), &list); err != nil {
		return nil, fmt.Errorf("failed to list messages for run %s: %w", runID, err)
	}
	return list.Data, nil
}
