// Package helpers provides shared test fixtures: an in-memory session store
// and a fake remote agent project speaking the versioned assistants surface.
package helpers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/agentpanel/agentpanel/internal/domain"
)

// FakeProject is an in-memory stand-in for the remote agent project. It
// serves the same paths the real surface does and requires the api-version
// tag and a bearer token on every call.
type FakeProject struct {
	mu sync.Mutex

	Agents   map[string]*domain.Agent
	Files    map[string]*domain.FileObject
	FileData map[string][]byte
	Threads  map[string]bool
	Messages map[string][]domain.Message
	Runs     map[string]*domain.Run

	// RunScript queues the statuses successive GetRun calls return for a
	// run id. When the queue drains the last status sticks.
	RunScript map[string][]domain.RunStatus

	// Failure knobs.
	FailGetFile    map[string]bool
	FailDeleteFile bool
	FailUpdate     bool

	// IgnoreRunFilter makes the message listing return every thread
	// message regardless of the run_id query, to exercise client-side
	// filtering.
	IgnoreRunFilter bool

	// AutoReply entries become assistant messages on the run's thread the
	// moment the run reaches a terminal status.
	AutoReply []string

	repliedRuns map[string]bool

	// Counters and captures.
	ListAgentsCalls int
	UploadCalls     int
	DeletedFiles    []string
	LastAttachments []domain.MessageAttachment

	nextID int
	Server *httptest.Server
}

// NewFakeProject starts the fake surface. The returned project is torn down
// with the test.
func NewFakeProject(t *testing.T) *FakeProject {
	t.Helper()

	p := &FakeProject{
		Agents:      map[string]*domain.Agent{},
		Files:       map[string]*domain.FileObject{},
		FileData:    map[string][]byte{},
		Threads:     map[string]bool{},
		Messages:    map[string][]domain.Message{},
		Runs:        map[string]*domain.Run{},
		RunScript:   map[string][]domain.RunStatus{},
		FailGetFile: map[string]bool{},
		repliedRuns: map[string]bool{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /assistants", p.listAgents)
	mux.HandleFunc("GET /assistants/{id}", p.getAgent)
	mux.HandleFunc("POST /assistants/{id}", p.updateAgent)
	mux.HandleFunc("GET /files/{id}", p.getFile)
	mux.HandleFunc("POST /files", p.uploadFile)
	mux.HandleFunc("DELETE /files/{id}", p.deleteFile)
	mux.HandleFunc("POST /threads", p.createThread)
	mux.HandleFunc("POST /threads/{tid}/messages", p.createMessage)
	mux.HandleFunc("GET /threads/{tid}/messages", p.listMessages)
	mux.HandleFunc("POST /threads/{tid}/runs", p.createRun)
	mux.HandleFunc("GET /threads/{tid}/runs/{rid}", p.getRun)

	p.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("api-version") == "" {
			http.Error(w, `{"error":"api-version is required"}`, http.StatusBadRequest)
			return
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "Bearer ") {
			http.Error(w, `{"error":"missing bearer token"}`, http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(p.Server.Close)
	return p
}

// AddAgent registers an agent with the given code interpreter file ids.
func (p *FakeProject) AddAgent(id, name string, fileIDs ...string) *domain.Agent {
	p.mu.Lock()
	defer p.mu.Unlock()
	agent := &domain.Agent{
		ID:    id,
		Name:  name,
		Tools: []domain.Tool{{Type: "code_interpreter"}},
		ToolResources: &domain.ToolResources{
			CodeInterpreter: &domain.CodeInterpreterResources{FileIDs: append([]string{}, fileIDs...)},
		},
	}
	p.Agents[id] = agent
	return agent
}

// AddThread registers a pre-existing thread id.
func (p *FakeProject) AddThread(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Threads[id] = true
}

// AddFile registers file metadata.
func (p *FakeProject) AddFile(id, filename string, size int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Files[id] = &domain.FileObject{ID: id, Filename: filename, Bytes: size, Purpose: "assistants"}
}

// AddAssistantMessage appends an assistant message with one text segment.
func (p *FakeProject) AddAssistantMessage(threadID, runID, text string) {
	p.AddMessage(threadID, runID, "assistant", text)
}

// AddMessage appends a message with one text segment.
func (p *FakeProject) AddMessage(threadID, runID, role, text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages[threadID] = append(p.Messages[threadID], domain.Message{
		ID:       p.id("msg"),
		ThreadID: threadID,
		RunID:    runID,
		Role:     role,
		Content:  []domain.MessageContent{{Type: "text", Text: &domain.MessageText{Value: text}}},
	})
}

// FileIDs returns the agent's current code interpreter file ids.
func (p *FakeProject) FileIDs(agentID string) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Agents[agentID].CodeInterpreterFileIDs()
}

func (p *FakeProject) id(prefix string) string {
	p.nextID++
	return fmt.Sprintf("%s_%d", prefix, p.nextID)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (p *FakeProject) listAgents(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ListAgentsCalls++
	agents := make([]domain.Agent, 0, len(p.Agents))
	for _, a := range p.Agents {
		agents = append(agents, *a)
	}
	writeJSON(w, http.StatusOK, domain.AgentList{Data: agents})
}

func (p *FakeProject) getAgent(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	agent, ok := p.Agents[r.PathValue("id")]
	if !ok {
		http.Error(w, `{"error":"agent not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, agent)
}

func (p *FakeProject) updateAgent(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailUpdate {
		http.Error(w, `{"error":"update unavailable"}`, http.StatusInternalServerError)
		return
	}
	agent, ok := p.Agents[r.PathValue("id")]
	if !ok {
		http.Error(w, `{"error":"agent not found"}`, http.StatusNotFound)
		return
	}
	var req struct {
		Tools         []domain.Tool        `json:"tools"`
		ToolResources domain.ToolResources `json:"tool_resources"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
		return
	}
	agent.Tools = req.Tools
	agent.ToolResources = &req.ToolResources
	writeJSON(w, http.StatusOK, agent)
}

func (p *FakeProject) getFile(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := r.PathValue("id")
	if p.FailGetFile[id] {
		http.Error(w, `{"error":"file service unavailable"}`, http.StatusInternalServerError)
		return
	}
	file, ok := p.Files[id]
	if !ok {
		http.Error(w, `{"error":"file not found"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (p *FakeProject) uploadFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		http.Error(w, `{"error":"bad multipart"}`, http.StatusBadRequest)
		return
	}
	if r.FormValue("purpose") != "assistants" {
		http.Error(w, `{"error":"unsupported purpose"}`, http.StatusBadRequest)
		return
	}
	part, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, `{"error":"file part missing"}`, http.StatusBadRequest)
		return
	}
	defer part.Close()
	data, err := io.ReadAll(part)
	if err != nil {
		http.Error(w, `{"error":"short read"}`, http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.UploadCalls++
	file := &domain.FileObject{
		ID:       p.id("file"),
		Filename: header.Filename,
		Bytes:    int64(len(data)),
		Purpose:  "assistants",
	}
	p.Files[file.ID] = file
	p.FileData[file.ID] = data
	writeJSON(w, http.StatusOK, file)
}

func (p *FakeProject) deleteFile(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailDeleteFile {
		http.Error(w, `{"error":"delete unavailable"}`, http.StatusInternalServerError)
		return
	}
	id := r.PathValue("id")
	if _, ok := p.Files[id]; !ok {
		http.Error(w, `{"error":"file not found"}`, http.StatusNotFound)
		return
	}
	delete(p.Files, id)
	delete(p.FileData, id)
	p.DeletedFiles = append(p.DeletedFiles, id)
	writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "deleted": true})
}

func (p *FakeProject) createThread(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.id("thread")
	p.Threads[id] = true
	writeJSON(w, http.StatusOK, domain.Thread{ID: id})
}

func (p *FakeProject) createMessage(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("tid")
	var req struct {
		Role        string                     `json:"role"`
		Content     string                     `json:"content"`
		Attachments []domain.MessageAttachment `json:"attachments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.LastAttachments = req.Attachments
	msg := domain.Message{
		ID:       p.id("msg"),
		ThreadID: threadID,
		Role:     req.Role,
		Content:  []domain.MessageContent{{Type: "text", Text: &domain.MessageText{Value: req.Content}}},
	}
	p.Messages[threadID] = append(p.Messages[threadID], msg)
	writeJSON(w, http.StatusOK, msg)
}

func (p *FakeProject) listMessages(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("tid")
	runID := r.URL.Query().Get("run_id")

	p.mu.Lock()
	defer p.mu.Unlock()
	out := []domain.Message{}
	for _, m := range p.Messages[threadID] {
		if !p.IgnoreRunFilter && runID != "" && m.RunID != runID {
			continue
		}
		out = append(out, m)
	}
	writeJSON(w, http.StatusOK, domain.MessageList{Data: out})
}

func (p *FakeProject) createRun(w http.ResponseWriter, r *http.Request) {
	threadID := r.PathValue("tid")
	var req struct {
		AssistantID string `json:"assistant_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"bad body"}`, http.StatusBadRequest)
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	run := &domain.Run{
		ID:          p.id("run"),
		ThreadID:    threadID,
		AssistantID: req.AssistantID,
		Status:      domain.RunStatusQueued,
	}
	// The scripted statuses for "next run" are keyed under "" until the
	// run id exists.
	if script, ok := p.RunScript[""]; ok {
		p.RunScript[run.ID] = script
		delete(p.RunScript, "")
	}
	p.Runs[run.ID] = run
	writeJSON(w, http.StatusOK, run)
}

func (p *FakeProject) getRun(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	run, ok := p.Runs[r.PathValue("rid")]
	if !ok {
		http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
		return
	}
	if script := p.RunScript[run.ID]; len(script) > 0 {
		run.Status = script[0]
		p.RunScript[run.ID] = script[1:]
	}
	if !run.Status.Pending() && !p.repliedRuns[run.ID] {
		p.repliedRuns[run.ID] = true
		for _, text := range p.AutoReply {
			p.Messages[run.ThreadID] = append(p.Messages[run.ThreadID], domain.Message{
				ID:       p.id("msg"),
				ThreadID: run.ThreadID,
				RunID:    run.ID,
				Role:     "assistant",
				Content:  []domain.MessageContent{{Type: "text", Text: &domain.MessageText{Value: text}}},
			})
		}
	}
	writeJSON(w, http.StatusOK, run)
}

// ScriptNextRun queues statuses for the next created run's successive polls.
func (p *FakeProject) ScriptNextRun(statuses ...domain.RunStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.RunScript[""] = statuses
}
