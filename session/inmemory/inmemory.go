//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package inmemory provides an in-memory session.Store implementation.
package inmemory

import (
	"context"
	"sync"
	"time"

	"github.com/finsight-ai/finsight/session"
)

// Store is an in-memory session.Store. Suitable for single-process
// deployments and tests.
type Store struct {
	mu         sync.RWMutex
	assistants map[string]session.AssistantRecord
	threads    map[string][]session.Message
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		assistants: make(map[string]session.AssistantRecord),
		threads:    make(map[string][]session.Message),
	}
}

// SaveAssistant upserts the identity record for a logical name.
func (s *Store) SaveAssistant(ctx context.Context, rec session.AssistantRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.UpdatedAt = time.Now()
	s.assistants[rec.Name] = rec
	return nil
}

// GetAssistant returns the record for a logical name, or nil if absent.
func (s *Store) GetAssistant(ctx context.Context, name string) (*session.AssistantRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.assistants[name]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

// AppendMessages appends messages to a thread's history.
func (s *Store) AppendMessages(ctx context.Context, threadID string, msgs []session.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		if m.Timestamp.IsZero() {
			m.Timestamp = time.Now()
		}
		s.threads[threadID] = append(s.threads[threadID], m)
	}
	return nil
}

// Messages returns a copy of a thread's history in append order.
func (s *Store) Messages(ctx context.Context, threadID string) ([]session.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs, ok := s.threads[threadID]
	if !ok {
		return nil, session.ErrThreadNotFound
	}
	out := make([]session.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

// DeleteThread removes a thread's history.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.threads, threadID)
	return nil
}
