//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

package coordinator

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// pendingTTL bounds how long a staged message waits for its stream request.
const pendingTTL = 2 * time.Minute

type pendingMessage struct {
	text     string
	stagedAt time.Time
}

// Sessions correlates a staged user message with the stream request that
// consumes it. Each staged message gets its own id, so concurrent clients
// never read each other's input.
type Sessions struct {
	mu      sync.Mutex
	pending map[string]pendingMessage
}

// NewSessions builds an empty correlation table.
func NewSessions() *Sessions {
	return &Sessions{pending: make(map[string]pendingMessage)}
}

// Stage stores a message and returns the correlation id the client must
// present when opening the stream.
func (s *Sessions) Stage(message string) string {
	id := uuid.NewString()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evictExpired()
	s.pending[id] = pendingMessage{text: message, stagedAt: time.Now()}
	return id
}

// Take removes and returns the message staged under id. The second result
// is false when the id is unknown or the message already expired.
func (s *Sessions) Take(id string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[id]
	if !ok {
		return "", false
	}
	delete(s.pending, id)
	if time.Since(p.stagedAt) > pendingTTL {
		return "", false
	}
	return p.text, true
}

// evictExpired drops stale entries. Caller holds the lock.
func (s *Sessions) evictExpired() {
	for id, p := range s.pending {
		if time.Since(p.stagedAt) > pendingTTL {
			delete(s.pending, id)
		}
	}
}
