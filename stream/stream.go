//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package stream defines the event stream a conversation turn produces for
// downstream consumers. A turn's stream is finite and not restartable: zero
// or more textDelta/toolCall events followed by exactly one end or error.
package stream

import (
	"time"

	"github.com/google/uuid"
)

// EventType tags the union variants of Event.
type EventType string

// Event types emitted during a turn.
const (
	// EventTextDelta carries an incremental chunk of assistant text.
	EventTextDelta EventType = "textDelta"
	// EventToolCallCreated announces that a tool call started executing.
	EventToolCallCreated EventType = "toolCallCreated"
	// EventToolCallCompleted carries the resolved output of a tool call.
	EventToolCallCompleted EventType = "toolCallCompleted"
	// EventEnd closes a turn successfully. Emitted exactly once, last.
	EventEnd EventType = "end"
	// EventError closes a turn on failure. No events follow it.
	EventError EventType = "error"
)

// ToolCall describes the tool-call payload of toolCallCreated and
// toolCallCompleted events. For a given ID, created strictly precedes
// completed; Output is only set on the completed event.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments,omitempty"`
	Output    string `json:"output,omitempty"`
}

// Event is one element of a turn's outward stream.
type Event struct {
	// ID is the unique identifier of the event.
	ID string `json:"id"`
	// Type is the union tag.
	Type EventType `json:"type"`
	// Timestamp is when the event was produced.
	Timestamp time.Time `json:"timestamp"`
	// Content carries textDelta text, or the aggregated assistant text on end.
	Content string `json:"content,omitempty"`
	// ToolCall is set for the toolCall* variants.
	ToolCall *ToolCall `json:"toolCall,omitempty"`
	// ErrorMessage is set for the error variant.
	ErrorMessage string `json:"error,omitempty"`
}

// Terminal reports whether the event closes the turn.
func (e Event) Terminal() bool {
	return e.Type == EventEnd || e.Type == EventError
}

// Emit is the callback signature turn producers push events through.
type Emit func(Event)

func newEvent(t EventType) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      t,
		Timestamp: time.Now(),
	}
}

// NewTextDelta creates a textDelta event.
func NewTextDelta(content string) Event {
	e := newEvent(EventTextDelta)
	e.Content = content
	return e
}

// NewToolCallCreated creates a toolCallCreated event.
func NewToolCallCreated(id, name, arguments string) Event {
	e := newEvent(EventToolCallCreated)
	e.ToolCall = &ToolCall{ID: id, Name: name, Arguments: arguments}
	return e
}

// NewToolCallCompleted creates a toolCallCompleted event.
func NewToolCallCompleted(id, name, output string) Event {
	e := newEvent(EventToolCallCompleted)
	e.ToolCall = &ToolCall{ID: id, Name: name, Output: output}
	return e
}

// NewEnd creates the end event carrying the turn's aggregated assistant text.
func NewEnd(content string) Event {
	e := newEvent(EventEnd)
	e.Content = content
	return e
}

// NewError creates the error event. No events may be emitted after it.
func NewError(message string) Event {
	e := newEvent(EventError)
	e.ErrorMessage = message
	return e
}
