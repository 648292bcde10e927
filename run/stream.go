//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

package run

import (
	"context"
	"strings"

	"github.com/finsight-ai/finsight/assistant"
	"github.com/finsight-ai/finsight/log"
	"github.com/finsight-ai/finsight/stream"
	"github.com/finsight-ai/finsight/telemetry/trace"
)

// Stream creates a run and observes it as a server event stream, forwarding
// events through emit as they are produced. When a stream generation drains
// with the run in requires_action, the tool batch is resolved and a
// continuation stream is opened; generations never interleave because the
// next one is opened only after the previous has fully drained.
//
// Terminal contract: exactly one end (carrying the aggregated assistant text)
// or one error event is emitted, as the last event. The returned string is
// the aggregated text; a returned error accompanies an error event and means
// the run was abandoned, not resumed.
func (m *StateMachine) Stream(ctx context.Context, threadID, assistantID string, emit stream.Emit) (string, error) {
	ctx, cancel := context.WithTimeoutCause(ctx, m.runTimeout, ErrRunTimeout)
	defer cancel()
	ctx, span := trace.Tracer.Start(ctx, "run.stream")
	defer span.End()

	rs, err := m.api.StreamRun(ctx, threadID, assistantID)
	if err != nil {
		emit(stream.NewError(err.Error()))
		return "", err
	}

	var text strings.Builder
	for {
		lastRun, err := m.drainGeneration(rs, emit, &text)
		if err != nil {
			err = m.wrapTimeout(ctx, err)
			emit(stream.NewError(err.Error()))
			return text.String(), err
		}

		if lastRun == nil {
			// The stream produced no run snapshot; nothing further can be
			// chained. The run may still have completed remotely, so recover
			// any final message the stream never delivered before closing.
			log.Warnf("Run stream on thread %s drained without a run snapshot", threadID)
			m.recoverFinalText(ctx, threadID, &text, emit)
			emit(stream.NewEnd(text.String()))
			return text.String(), nil
		}

		switch {
		case lastRun.Status == assistant.RunStatusRequiresAction:
			outputs := m.resolveBatch(ctx, lastRun.ToolCalls, emit)
			rs, err = m.api.StreamToolOutputs(ctx, threadID, lastRun.ID, outputs)
			if err != nil {
				err = m.wrapTimeout(ctx, err)
				emit(stream.NewError(err.Error()))
				return text.String(), err
			}

		case lastRun.Status == assistant.RunStatusCompleted:
			emit(stream.NewEnd(text.String()))
			return text.String(), nil

		case lastRun.Status.IsTerminal():
			// failed, cancelled or expired: surface the remote detail to the
			// user, then close the turn. Not retried.
			log.Errorf("Run %s ended with status %s: %v", lastRun.ID, lastRun.Status, lastRun.LastError)
			msg := apology(lastRun)
			emit(stream.NewTextDelta(msg))
			text.WriteString(msg)
			emit(stream.NewEnd(text.String()))
			return text.String(), nil

		default:
			// Stream drained while the run is still live (queued or
			// in_progress). The remote closed early; fall back to polling the
			// snapshot until it settles.
			final, err := m.settle(ctx, threadID, lastRun, emit)
			if err != nil {
				emit(stream.NewError(err.Error()))
				return text.String(), err
			}
			if final.Status == assistant.RunStatusRequiresAction {
				outputs := m.resolveBatch(ctx, final.ToolCalls, emit)
				rs, err = m.api.StreamToolOutputs(ctx, threadID, final.ID, outputs)
				if err != nil {
					err = m.wrapTimeout(ctx, err)
					emit(stream.NewError(err.Error()))
					return text.String(), err
				}
				continue
			}
			if final.Status == assistant.RunStatusCompleted {
				// The run finished after the stream closed, so its final
				// message never arrived as deltas. Recover it from the thread.
				m.recoverFinalText(ctx, threadID, &text, emit)
			} else {
				msg := apology(final)
				emit(stream.NewTextDelta(msg))
				text.WriteString(msg)
			}
			emit(stream.NewEnd(text.String()))
			return text.String(), nil
		}
	}
}

// drainGeneration consumes one stream generation to exhaustion, forwarding
// text deltas and tracking the latest run snapshot.
func (m *StateMachine) drainGeneration(rs assistant.RunStream, emit stream.Emit, text *strings.Builder) (*assistant.Run, error) {
	defer rs.Close()

	var lastRun *assistant.Run
	for rs.Next() {
		ev := rs.Current()
		switch ev.Type {
		case assistant.StreamEventTextDelta:
			text.WriteString(ev.TextDelta)
			emit(stream.NewTextDelta(ev.TextDelta))
		case assistant.StreamEventRunSnapshot:
			lastRun = ev.Run
		}
	}
	if err := rs.Err(); err != nil {
		return nil, err
	}
	return lastRun, nil
}

// recoverFinalText reconciles the aggregated stream text with the thread's
// newest assistant message after a generation closed early. The undelivered
// remainder is emitted as a delta so the caller still sees the full reply.
// Best effort: a fetch failure leaves the partial text in place.
func (m *StateMachine) recoverFinalText(ctx context.Context, threadID string, text *strings.Builder, emit stream.Emit) {
	full, err := m.newestAssistantText(ctx, threadID)
	if err != nil {
		log.Warnf("Could not recover final message on thread %s: %v", threadID, err)
		return
	}
	partial := text.String()
	if full == "" || full == partial {
		return
	}
	if rest, ok := strings.CutPrefix(full, partial); ok {
		emit(stream.NewTextDelta(rest))
	} else {
		emit(stream.NewTextDelta(full))
	}
	text.Reset()
	text.WriteString(full)
}

// settle polls a still-live run snapshot until it leaves the transient states.
func (m *StateMachine) settle(ctx context.Context, threadID string, r *assistant.Run, emit stream.Emit) (*assistant.Run, error) {
	var err error
	for r.Status == assistant.RunStatusQueued || r.Status == assistant.RunStatusInProgress {
		if err = sleep(ctx, m.pollInterval); err != nil {
			return nil, m.wrapTimeout(ctx, err)
		}
		if r, err = m.api.RetrieveRun(ctx, threadID, r.ID); err != nil {
			return nil, m.wrapTimeout(ctx, err)
		}
	}
	return r, nil
}
