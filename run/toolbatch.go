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
	"encoding/json"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/finsight-ai/finsight/assistant"
	"github.com/finsight-ai/finsight/log"
	"github.com/finsight-ai/finsight/stream"
	"github.com/finsight-ai/finsight/telemetry/trace"
)

// toolError is the structured output payload for a failed tool call. The
// remote API requires an output for every call in the batch, so failures are
// reported in-band instead of being omitted.
type toolError struct {
	Error string `json:"error"`
}

// resolveBatch executes every tool call of a requires_action batch
// concurrently and returns exactly one output per call, in call order. The
// submission barrier is absolute: the slowest call gates the whole batch.
// When emit is non-nil, each call's created event is emitted before its
// execution and its completed event after; pairs are ordered per call id,
// while events of different calls may interleave freely.
func (m *StateMachine) resolveBatch(ctx context.Context, calls []assistant.ToolCall, emit stream.Emit) []assistant.ToolOutput {
	ctx, span := trace.Tracer.Start(ctx, "run.toolbatch")
	defer span.End()

	outputs := make([]assistant.ToolOutput, len(calls))
	var wg sync.WaitGroup

	pool, err := ants.NewPool(m.poolSize)
	if err != nil {
		// Pool construction only fails on invalid sizes; fall back to
		// unbounded goroutines rather than failing the batch.
		log.Warnf("Tool pool unavailable, running batch unpooled: %v", err)
	} else {
		defer pool.Release()
	}

	for i, call := range calls {
		i, call := i, call
		wg.Add(1)
		task := func() {
			defer wg.Done()
			outputs[i] = m.resolveCall(ctx, call, emit)
		}
		if pool == nil || pool.Submit(task) != nil {
			go task()
		}
	}
	wg.Wait()
	return outputs
}

// resolveCall runs one tool call under the per-tool timeout. Any failure is
// contained into an {"error": ...} output.
func (m *StateMachine) resolveCall(ctx context.Context, call assistant.ToolCall, emit stream.Emit) assistant.ToolOutput {
	if emit != nil {
		emit(stream.NewToolCallCreated(call.ID, call.Name, call.Arguments))
	}

	callCtx, cancel := context.WithTimeout(ctx, m.toolTimeout)
	defer cancel()

	out, err := m.handler(callCtx, call)
	if err != nil {
		log.Errorf("Tool %s (%s) failed: %v", call.Name, call.ID, err)
		payload, _ := json.Marshal(toolError{Error: err.Error()})
		out = string(payload)
	}

	if emit != nil {
		emit(stream.NewToolCallCompleted(call.ID, call.Name, out))
	}
	return assistant.ToolOutput{ToolCallID: call.ID, Output: out}
}
