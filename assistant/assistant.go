//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package assistant defines the client boundary to the remote assistants API.
// The orchestration core depends only on the types and the API interface in
// this package; the openaiapi subpackage provides the production
// implementation.
package assistant

import (
	"context"
	"time"

	"github.com/finsight-ai/finsight/tool"
)

// Role constants for thread messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// RunStatus is the remote run lifecycle status.
type RunStatus string

// Run states observable through the client API.
const (
	RunStatusQueued         RunStatus = "queued"
	RunStatusInProgress     RunStatus = "in_progress"
	RunStatusRequiresAction RunStatus = "requires_action"
	RunStatusCompleted      RunStatus = "completed"
	RunStatusFailed         RunStatus = "failed"
	RunStatusCancelled      RunStatus = "cancelled"
	RunStatusExpired        RunStatus = "expired"
)

// IsTerminal reports whether the status ends a run's lifecycle.
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCancelled, RunStatusExpired:
		return true
	}
	return false
}

// RunError carries the remote-provided failure detail of a run.
type RunError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ToolCall is a structured request from the remote model for the client to
// execute a named local function.
type ToolCall struct {
	// ID identifies the call within its run; outputs are keyed by it.
	ID string `json:"id"`
	// Name is the declared function name.
	Name string `json:"name"`
	// Arguments is the raw JSON argument payload as produced by the model.
	Arguments string `json:"arguments"`
}

// ToolOutput is the client-produced result for one tool call. Output is
// write-once: a batch is assembled fully before submission.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// Run is a snapshot of one remote run.
type Run struct {
	ID          string     `json:"id"`
	ThreadID    string     `json:"thread_id"`
	AssistantID string     `json:"assistant_id"`
	Status      RunStatus  `json:"status"`
	// ToolCalls holds the pending calls when Status is requires_action.
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
	// LastError is set for failed runs.
	LastError *RunError `json:"last_error,omitempty"`
}

// Message is one thread message.
type Message struct {
	ID        string    `json:"id,omitempty"`
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// CreateAssistantRequest describes a remote assistant identity to create.
type CreateAssistantRequest struct {
	Name         string
	Model        string
	Instructions string
	Tools        []*tool.Declaration
	// FileSearch additionally enables the remote file_search capability.
	FileSearch bool
	// CodeInterpreter additionally enables the remote code_interpreter capability.
	CodeInterpreter bool
}

// Assistant is a created remote assistant identity.
type Assistant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

// StreamEventType tags events produced by a RunStream.
type StreamEventType string

// Stream event types observed from the remote run stream.
const (
	// StreamEventTextDelta carries an incremental chunk of assistant text.
	StreamEventTextDelta StreamEventType = "text_delta"
	// StreamEventRunSnapshot carries an updated run snapshot. The final
	// snapshot before the stream drains decides whether tool resolution or
	// termination follows.
	StreamEventRunSnapshot StreamEventType = "run_snapshot"
)

// StreamEvent is one event observed from a RunStream.
type StreamEvent struct {
	Type      StreamEventType
	TextDelta string
	Run       *Run
}

// RunStream is a finite, non-restartable sequence of StreamEvents for one
// remote stream generation. Iteration follows the ssestream shape: Next then
// Current, Err after exhaustion, Close always.
type RunStream interface {
	Next() bool
	Current() StreamEvent
	Err() error
	Close() error
}

// API is the remote assistants surface the orchestration core drives. All
// implementations must treat the run as a black box whose only observable
// states are the RunStatus values.
type API interface {
	CreateAssistant(ctx context.Context, req CreateAssistantRequest) (*Assistant, error)
	DeleteAssistant(ctx context.Context, assistantID string) error

	CreateThread(ctx context.Context, metadata map[string]string) (string, error)
	DeleteThread(ctx context.Context, threadID string) error

	CreateMessage(ctx context.Context, threadID string, msg Message) error
	// ListMessages returns messages newest-first, as the remote API does.
	ListMessages(ctx context.Context, threadID string, limit int) ([]Message, error)

	CreateRun(ctx context.Context, threadID, assistantID string) (*Run, error)
	RetrieveRun(ctx context.Context, threadID, runID string) (*Run, error)
	SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (*Run, error)

	StreamRun(ctx context.Context, threadID, assistantID string) (RunStream, error)
	StreamToolOutputs(ctx context.Context, threadID, runID string, outputs []ToolOutput) (RunStream, error)
}
