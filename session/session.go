//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package session defines the persistence collaborator consumed by the
// orchestration core: assistant-identity records and per-thread message
// history. Storage backends implement Store; the inmemory subpackage provides
// the reference implementation.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrThreadNotFound is returned when a thread has no stored state.
var ErrThreadNotFound = errors.New("thread not found")

// Message is one persisted chat message.
type Message struct {
	// Role is "user" or "assistant".
	Role string `json:"role"`
	// Content is the message text.
	Content string `json:"content"`
	// Timestamp is when the message was recorded.
	Timestamp time.Time `json:"timestamp"`
}

// AssistantRecord maps a logical agent name to its remote identity.
type AssistantRecord struct {
	Name        string    `json:"name"`
	AssistantID string    `json:"assistantId"`
	Model       string    `json:"model"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store persists assistant identities and thread message history. All
// methods are safe for concurrent use.
type Store interface {
	// SaveAssistant upserts the remote identity record for a logical name.
	SaveAssistant(ctx context.Context, rec AssistantRecord) error
	// GetAssistant returns the record for a logical name, or nil if absent.
	GetAssistant(ctx context.Context, name string) (*AssistantRecord, error)

	// AppendMessages appends messages to a thread's history, creating the
	// thread record on first use.
	AppendMessages(ctx context.Context, threadID string, msgs []Message) error
	// Messages returns a thread's history in append order.
	// Returns ErrThreadNotFound for unknown threads.
	Messages(ctx context.Context, threadID string) ([]Message, error)
	// DeleteThread removes a thread's history. Deleting an unknown thread is
	// not an error.
	DeleteThread(ctx context.Context, threadID string) error
}
