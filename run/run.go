//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package run drives a single remote assistant run from creation to a
// terminal state. Two drive modes are provided: Poll observes the run by
// periodic retrieval, Stream observes it as a chained sequence of server
// event streams. Both handle the requires_action sub-protocol by resolving
// the full tool-call batch and submitting every output in one call.
package run

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/finsight-ai/finsight/assistant"
	"github.com/finsight-ai/finsight/log"
	"github.com/finsight-ai/finsight/telemetry/trace"
)

// Default timing parameters. Runs are short-lived, so a fixed poll interval
// is used rather than backoff.
const (
	defaultPollInterval = time.Second
	defaultRunTimeout   = 5 * time.Minute
	defaultToolTimeout  = 2 * time.Minute
	defaultPoolSize     = 8
)

// User-facing fallback strings for non-success terminal states. The remote
// error detail is appended when available.
const (
	apologyPrefix    = "I apologize, but I encountered an error while processing your request."
	apologyNoContent = "I apologize, but I couldn't generate a response."
)

// ErrRunTimeout reports that a run exceeded the configured maximum duration.
var ErrRunTimeout = errors.New("run exceeded maximum duration")

// ToolHandler executes one tool call and returns its serialized output.
// Errors are contained by the batch resolver and become {"error": ...}
// outputs; they never abort sibling calls.
type ToolHandler func(ctx context.Context, call assistant.ToolCall) (string, error)

// StateMachine drives remote runs for one assistant identity.
type StateMachine struct {
	api     assistant.API
	handler ToolHandler

	pollInterval time.Duration
	runTimeout   time.Duration
	toolTimeout  time.Duration
	poolSize     int
}

// Option configures a StateMachine.
type Option func(*StateMachine)

// WithPollInterval sets the fixed delay between run retrievals in Poll mode.
func WithPollInterval(d time.Duration) Option {
	return func(m *StateMachine) { m.pollInterval = d }
}

// WithRunTimeout bounds the total observation time of one run.
func WithRunTimeout(d time.Duration) Option {
	return func(m *StateMachine) { m.runTimeout = d }
}

// WithToolTimeout bounds the execution time of a single tool call.
func WithToolTimeout(d time.Duration) Option {
	return func(m *StateMachine) { m.toolTimeout = d }
}

// WithPoolSize sets the worker pool size for tool-call fan-out.
func WithPoolSize(n int) Option {
	return func(m *StateMachine) { m.poolSize = n }
}

// New creates a StateMachine over the given API using handler for tool calls.
func New(api assistant.API, handler ToolHandler, opts ...Option) *StateMachine {
	m := &StateMachine{
		api:          api,
		handler:      handler,
		pollInterval: defaultPollInterval,
		runTimeout:   defaultRunTimeout,
		toolTimeout:  defaultToolTimeout,
		poolSize:     defaultPoolSize,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Poll creates a run and drives it to a terminal state by periodic retrieval.
// On completed it returns the latest assistant message text. On failed,
// cancelled or expired it returns a user-facing apology string carrying the
// remote error detail; this is a normal return, not an error. Transport
// failures and timeouts return an error and abandon the run.
func (m *StateMachine) Poll(ctx context.Context, threadID, assistantID string) (string, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, m.runTimeout, ErrRunTimeout)
	defer cancel()
	ctx, span := trace.Tracer.Start(ctx, "run.poll")
	defer span.End()

	r, err := m.api.CreateRun(ctx, threadID, assistantID)
	if err != nil {
		return "", err
	}
	log.Debugf("Run %s started on thread %s", r.ID, threadID)

	for !r.Status.IsTerminal() {
		if r.Status == assistant.RunStatusRequiresAction {
			outputs := m.resolveBatch(ctx, r.ToolCalls, nil)
			if r, err = m.api.SubmitToolOutputs(ctx, threadID, r.ID, outputs); err != nil {
				return "", m.wrapTimeout(ctx, err)
			}
			continue
		}
		if err := sleep(ctx, m.pollInterval); err != nil {
			return "", m.wrapTimeout(ctx, err)
		}
		if r, err = m.api.RetrieveRun(ctx, threadID, r.ID); err != nil {
			return "", m.wrapTimeout(ctx, err)
		}
	}

	if r.Status != assistant.RunStatusCompleted {
		log.Errorf("Run %s ended with status %s: %v", r.ID, r.Status, r.LastError)
		return apology(r), nil
	}
	return m.latestAssistantText(ctx, threadID)
}

// latestAssistantText fetches the newest assistant message of the thread,
// falling back to an apology when the completed run left no content.
func (m *StateMachine) latestAssistantText(ctx context.Context, threadID string) (string, error) {
	text, err := m.newestAssistantText(ctx, threadID)
	if err != nil {
		return "", err
	}
	if text == "" {
		return apologyNoContent, nil
	}
	return text, nil
}

// newestAssistantText returns the newest non-empty assistant message of the
// thread, or "" when the thread has none.
func (m *StateMachine) newestAssistantText(ctx context.Context, threadID string) (string, error) {
	msgs, err := m.api.ListMessages(ctx, threadID, 20)
	if err != nil {
		return "", err
	}
	for _, msg := range msgs {
		if msg.Role == assistant.RoleAssistant && msg.Text != "" {
			return msg.Text, nil
		}
	}
	return "", nil
}

// wrapTimeout maps context expiry caused by the run deadline to ErrRunTimeout
// so callers can distinguish it from transport failures.
func (m *StateMachine) wrapTimeout(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); errors.Is(cause, ErrRunTimeout) {
		return ErrRunTimeout
	}
	return err
}

// apology renders the user-facing string for a non-success terminal run.
func apology(r *assistant.Run) string {
	if r.LastError != nil && r.LastError.Message != "" {
		return fmt.Sprintf("%s %s", apologyPrefix, r.LastError.Message)
	}
	return fmt.Sprintf("%s The run ended with status %s.", apologyPrefix, r.Status)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
