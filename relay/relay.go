//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package relay bridges a turn's event flow onto a server-sent events
// response. Producers emit through Relay.Emit; Serve writes named SSE
// events to the client and guarantees exactly one terminal event per
// stream.
package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/finsight-ai/finsight/log"
	"github.com/finsight-ai/finsight/stream"
)

// pingInterval is how often a comment-free ping event keeps the connection
// alive through proxies.
const pingInterval = 15 * time.Second

// completionGrace bounds how long a terminal event is held back while tool
// calls announced to the client are still missing their completion.
const completionGrace = 2 * time.Second

// ErrStreamingUnsupported is returned when the ResponseWriter cannot flush.
var ErrStreamingUnsupported = fmt.Errorf("relay: response writer does not support streaming")

// Relay forwards stream events from a producing turn to one SSE client.
type Relay struct {
	w       http.ResponseWriter
	flusher http.Flusher

	events chan stream.Event
	closed chan struct{}
}

// New prepares an SSE response on w. Call Serve to start writing.
func New(w http.ResponseWriter) (*Relay, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrStreamingUnsupported
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	return &Relay{
		w:       w,
		flusher: flusher,
		events:  make(chan stream.Event, 64),
		closed:  make(chan struct{}),
	}, nil
}

// Emit queues an event for the client. It is safe to call from any
// goroutine and becomes a no-op once the stream has closed, so producers
// never block on a gone client.
func (r *Relay) Emit(ev stream.Event) {
	select {
	case <-r.closed:
	case r.events <- ev:
	}
}

// Serve writes queued events until a terminal event has been sent or ctx is
// cancelled (client disconnect). Events arriving after the terminal one are
// dropped. Serve returns nil on a clean terminal, the context error on
// disconnect.
func (r *Relay) Serve(ctx context.Context) error {
	defer close(r.closed)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	// Tool calls announced but not yet completed. A terminal event is held
	// back until these resolve so the client never sees a dangling call.
	pending := map[string]struct{}{}

	for {
		select {
		case <-ctx.Done():
			log.Debugf("relay: client gone: %v", context.Cause(ctx))
			return ctx.Err()
		case <-ticker.C:
			if err := r.write("ping", map[string]any{"timestamp": time.Now().UTC().Format(time.RFC3339)}); err != nil {
				return err
			}
		case ev := <-r.events:
			if ev.Terminal() && len(pending) > 0 {
				if err := r.drainPending(ctx, pending); err != nil {
					return err
				}
			}
			if err := r.writeEvent(ev); err != nil {
				return err
			}
			switch ev.Type {
			case stream.EventToolCallCreated:
				pending[ev.ToolCall.ID] = struct{}{}
			case stream.EventToolCallCompleted:
				delete(pending, ev.ToolCall.ID)
			}
			if ev.Terminal() {
				return nil
			}
		}
	}
}

// drainPending forwards straggling tool-call completions that were queued
// behind a terminal event, waiting up to completionGrace before finalizing
// with calls still open. Extra terminal events seen here are dropped so
// exactly one is written.
func (r *Relay) drainPending(ctx context.Context, pending map[string]struct{}) error {
	timer := time.NewTimer(completionGrace)
	defer timer.Stop()

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			log.Warnf("relay: finalizing with %d tool calls still incomplete", len(pending))
			return nil
		case ev := <-r.events:
			if ev.Terminal() {
				continue
			}
			if err := r.writeEvent(ev); err != nil {
				return err
			}
			if ev.Type == stream.EventToolCallCompleted {
				delete(pending, ev.ToolCall.ID)
			}
		}
	}
	return nil
}

func (r *Relay) writeEvent(ev stream.Event) error {
	switch ev.Type {
	case stream.EventTextDelta:
		return r.write("message", map[string]any{
			"type":    "textDelta",
			"content": ev.Content,
		})
	case stream.EventToolCallCreated:
		return r.write("toolCallCreated", map[string]any{
			"id":        ev.ToolCall.ID,
			"name":      ev.ToolCall.Name,
			"arguments": ev.ToolCall.Arguments,
		})
	case stream.EventToolCallCompleted:
		return r.write("toolCallCompleted", map[string]any{
			"id":     ev.ToolCall.ID,
			"name":   ev.ToolCall.Name,
			"output": ev.ToolCall.Output,
		})
	case stream.EventEnd:
		return r.write("end", map[string]any{"content": ev.Content})
	case stream.EventError:
		return r.write("error", map[string]any{"message": ev.ErrorMessage})
	default:
		log.Warnf("relay: dropping event of unknown type %q", ev.Type)
		return nil
	}
}

func (r *Relay) write(name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("relay: marshal %s event: %w", name, err)
	}
	if _, err := fmt.Fprintf(r.w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return fmt.Errorf("relay: write %s event: %w", name, err)
	}
	r.flusher.Flush()
	return nil
}
