//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package agent binds a remote assistant identity to a local tool registry
// and drives conversation turns through the run state machine.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/finsight-ai/finsight/assistant"
	"github.com/finsight-ai/finsight/log"
	"github.com/finsight-ai/finsight/run"
	"github.com/finsight-ai/finsight/session"
	"github.com/finsight-ai/finsight/stream"
	"github.com/finsight-ai/finsight/tool"
)

// ErrNotInitialized is returned when a turn is started before Initialize
// has provisioned the remote assistant.
var ErrNotInitialized = errors.New("agent: not initialized")

// Config describes one agent: its remote identity and local tool set.
type Config struct {
	// Name is the logical agent name, used as the remote assistant name and
	// the session store key.
	Name string
	// Model is the provider model identifier.
	Model string
	// Instructions is the system prompt for the remote assistant.
	Instructions string
	// Tools are the callable tools exposed to the assistant.
	Tools []tool.CallableTool
	// FileSearch enables the provider's file search tool.
	FileSearch bool
	// CodeInterpreter enables the provider's code interpreter tool.
	CodeInterpreter bool
}

// Agent is one assistant with its tool registry and run machinery. The
// coordinator and each specialist are Agent values differing only in Config.
type Agent struct {
	cfg      Config
	api      assistant.API
	store    session.Store
	registry *tool.Registry
	machine  *run.StateMachine

	assistantID string
}

// New builds an agent from its config. The remote assistant does not exist
// until Initialize is called.
func New(api assistant.API, store session.Store, cfg Config, runOpts ...run.Option) *Agent {
	a := &Agent{
		cfg:      cfg,
		api:      api,
		store:    store,
		registry: tool.NewRegistry(),
	}
	for _, t := range cfg.Tools {
		if err := a.registry.Register(t); err != nil {
			log.Errorf("agent %s: register tool: %v", cfg.Name, err)
		}
	}
	a.machine = run.New(api, a.handleToolCall, runOpts...)
	return a
}

// Name returns the agent's logical name.
func (a *Agent) Name() string { return a.cfg.Name }

// AssistantID returns the remote assistant id, empty before Initialize.
func (a *Agent) AssistantID() string { return a.assistantID }

// Initialize provisions the remote assistant. Any assistant recorded under
// the same name from a previous process is deleted first so instruction and
// tool changes always take effect. A failed delete of the stale assistant is
// logged and ignored; a failed create is returned.
func (a *Agent) Initialize(ctx context.Context) error {
	if rec, err := a.store.GetAssistant(ctx, a.cfg.Name); err != nil {
		return err
	} else if rec != nil && rec.AssistantID != "" {
		if err := a.api.DeleteAssistant(ctx, rec.AssistantID); err != nil {
			log.Warnf("agent %s: delete stale assistant %s: %v", a.cfg.Name, rec.AssistantID, err)
		}
	}

	created, err := a.api.CreateAssistant(ctx, assistant.CreateAssistantRequest{
		Name:            a.cfg.Name,
		Model:           a.cfg.Model,
		Instructions:    a.cfg.Instructions,
		Tools:           a.registry.Declarations(),
		FileSearch:      a.cfg.FileSearch,
		CodeInterpreter: a.cfg.CodeInterpreter,
	})
	if err != nil {
		return fmt.Errorf("agent %s: create assistant: %w", a.cfg.Name, err)
	}
	a.assistantID = created.ID

	if err := a.store.SaveAssistant(ctx, session.AssistantRecord{
		Name:        a.cfg.Name,
		AssistantID: created.ID,
		Model:       a.cfg.Model,
	}); err != nil {
		return err
	}
	log.Infof("agent %s: assistant %s ready (%d tools)", a.cfg.Name, created.ID, len(a.cfg.Tools))
	return nil
}

// ProcessMessage appends the user message to the thread and runs it to
// completion in polling mode, returning the assistant's reply text.
func (a *Agent) ProcessMessage(ctx context.Context, threadID, message string) (string, error) {
	if a.assistantID == "" {
		return "", ErrNotInitialized
	}
	if err := a.api.CreateMessage(ctx, threadID, assistant.Message{Role: assistant.RoleUser, Text: message}); err != nil {
		return "", fmt.Errorf("agent %s: create message: %w", a.cfg.Name, err)
	}
	return a.machine.Poll(ctx, threadID, a.assistantID)
}

// StreamMessage appends the user message and runs it in streaming mode,
// forwarding events to emit. The full reply text is also returned so the
// caller can persist it.
func (a *Agent) StreamMessage(ctx context.Context, threadID, message string, emit stream.Emit) (string, error) {
	if a.assistantID == "" {
		return "", ErrNotInitialized
	}
	if err := a.api.CreateMessage(ctx, threadID, assistant.Message{Role: assistant.RoleUser, Text: message}); err != nil {
		return "", fmt.Errorf("agent %s: create message: %w", a.cfg.Name, err)
	}
	return a.machine.Stream(ctx, threadID, a.assistantID, emit)
}

// handleToolCall dispatches one remote tool call to the registry and
// serializes the result. Lookup and execution errors surface as handler
// errors so the batch layer can contain them in-band.
func (a *Agent) handleToolCall(ctx context.Context, call assistant.ToolCall) (string, error) {
	result, err := a.registry.Invoke(ctx, call.Name, []byte(call.Arguments))
	if err != nil {
		return "", err
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("marshal output of %s: %w", call.Name, err)
	}
	// Providers signal "no data found" with nil results rather than errors.
	if string(out) == "null" {
		return `{"result":"no data available"}`, nil
	}
	return string(out), nil
}
