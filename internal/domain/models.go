// Package domain defines the wire types for the remote agent project API
// and the panel's local session models.
package domain

import "time"

// Tool is a capability entry on an agent (e.g. {"type": "code_interpreter"}).
type Tool struct {
	Type string `json:"type"`
}

// CodeInterpreterResources binds file ids to the code interpreter tool.
type CodeInterpreterResources struct {
	FileIDs []string `json:"file_ids"`
}

// ToolResources is the per-agent configuration blob for tool attachments.
type ToolResources struct {
	CodeInterpreter *CodeInterpreterResources `json:"code_interpreter,omitempty"`
}

// Agent is a remote agent (assistant) entity.
type Agent struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Model         string         `json:"model,omitempty"`
	Instructions  string         `json:"instructions,omitempty"`
	Tools         []Tool         `json:"tools"`
	ToolResources *ToolResources `json:"tool_resources,omitempty"`
}

// CodeInterpreterFileIDs returns the agent's code interpreter file ids,
// never nil.
func (a *Agent) CodeInterpreterFileIDs() []string {
	if a.ToolResources == nil || a.ToolResources.CodeInterpreter == nil {
		return []string{}
	}
	if a.ToolResources.CodeInterpreter.FileIDs == nil {
		return []string{}
	}
	return a.ToolResources.CodeInterpreter.FileIDs
}

// AgentList is the response of GET /assistants.
type AgentList struct {
	Data []Agent `json:"data"`
}

// AgentRef is a (label, id) pair shown in the agent selector.
type AgentRef struct {
	Label string `json:"label"`
	ID    string `json:"id"`
}

// FileObject is a remote file entity.
type FileObject struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Bytes    int64  `json:"bytes"`
	Purpose  string `json:"purpose,omitempty"`
}

// AgentFile is one row of an agent's code interpreter file listing.
// Bytes is nil when the file id no longer resolves to metadata.
type AgentFile struct {
	FileID   string `json:"file_id"`
	Filename string `json:"filename"`
	Bytes    *int64 `json:"bytes"`
}

// Thread is a remote conversation context.
type Thread struct {
	ID string `json:"id"`
}

// RunStatus is the remote run lifecycle status.
type RunStatus string

const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
)

// Pending reports whether the status keeps the poll loop going. Anything
// outside the pending set is terminal, including statuses this program does
// not recognize.
func (s RunStatus) Pending() bool {
	switch s {
	case RunStatusQueued, RunStatusInProgress, RunStatusRequiresAction:
		return true
	}
	return false
}

// Run is a remote execution of an agent against a thread.
type Run struct {
	ID          string    `json:"id"`
	ThreadID    string    `json:"thread_id"`
	AssistantID string    `json:"assistant_id"`
	Status      RunStatus `json:"status"`
}

// MessageAttachment binds a file to a message for specific tools.
type MessageAttachment struct {
	FileID string `json:"file_id"`
	Tools  []Tool `json:"tools"`
}

// MessageText is the text payload of a message content part.
type MessageText struct {
	Value string `json:"value"`
}

// MessageContent is one content part of a message.
type MessageContent struct {
	Type string       `json:"type"`
	Text *MessageText `json:"text,omitempty"`
}

// Message is a remote thread message.
type Message struct {
	ID       string           `json:"id"`
	ThreadID string           `json:"thread_id"`
	RunID    string           `json:"run_id,omitempty"`
	Role     string           `json:"role"`
	Content  []MessageContent `json:"content"`
}

// MessageList is a page of thread messages.
type MessageList struct {
	Data    []Message `json:"data"`
	HasMore bool      `json:"has_more,omitempty"`
}

// Session is the panel-local state of one browser session.
type Session struct {
	SessionID  string    `json:"session_id"`
	ThreadID   string    `json:"thread_id,omitempty"`
	LastFileID string    `json:"last_file_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// LogLevel classifies session log entries. Warnings carry best-effort
// cleanup failures that never affect the primary outcome.
type LogLevel string

const (
	LogLevelInfo LogLevel = "info"
	LogLevelWarn LogLevel = "warn"
)

// LogEntry is one line of a session's activity log.
type LogEntry struct {
	LogID     string    `json:"log_id"`
	SessionID string    `json:"session_id"`
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// AskResult is the outcome of one orchestrator run.
type AskResult struct {
	ThreadID string    `json:"thread_id"`
	RunID    string    `json:"run_id"`
	Status   RunStatus `json:"status"`
	Reply    string    `json:"reply"`
}

// PersistOutcome describes how an upload was reconciled into the agent's
// code interpreter attachments.
type PersistOutcome struct {
	FileID     string `json:"file_id"`
	Filename   string `json:"filename"`
	Replaced   bool   `json:"replaced"`
	OldFileID  string `json:"old_file_id,omitempty"`
	TotalFiles int    `json:"total_files"`
}
