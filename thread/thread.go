//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package thread tracks the remote threads owned by one conversation
// session: the coordinator's own thread plus one lazily-created thread per
// delegated sub-agent. Threads for distinct keys never merge.
package thread

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/finsight-ai/finsight/assistant"
	"github.com/finsight-ai/finsight/log"
	"github.com/finsight-ai/finsight/session"
)

// Registry memoizes one remote thread per logical key for the lifetime of a
// session. Creation is a critical section per key: concurrent first callers
// share a single in-flight creation instead of racing two threads into
// existence.
type Registry struct {
	api   assistant.API
	store session.Store

	group   singleflight.Group
	mu      sync.Mutex
	threads map[string]string
}

// NewRegistry creates a Registry over the given API and store.
func NewRegistry(api assistant.API, store session.Store) *Registry {
	return &Registry{
		api:     api,
		store:   store,
		threads: make(map[string]string),
	}
}

// GetOrCreate returns the thread id for key, creating the remote thread on
// first use. The result is memoized until EndConversation.
func (r *Registry) GetOrCreate(ctx context.Context, key string) (string, error) {
	r.mu.Lock()
	if id, ok := r.threads[key]; ok {
		r.mu.Unlock()
		return id, nil
	}
	r.mu.Unlock()

	v, err, _ := r.group.Do(key, func() (any, error) {
		id, err := r.api.CreateThread(ctx, map[string]string{"agent": key})
		if err != nil {
			return nil, fmt.Errorf("create thread for %s: %w", key, err)
		}
		r.mu.Lock()
		r.threads[key] = id
		r.mu.Unlock()
		log.Infof("Thread %s created for %s", id, key)
		return id, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Get returns the tracked thread id for key if one exists.
func (r *Registry) Get(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.threads[key]
	return id, ok
}

// Keys returns the currently tracked keys.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.threads))
	for k := range r.threads {
		keys = append(keys, k)
	}
	return keys
}

// EndConversation tears down every tracked thread: the remote thread is
// deleted and the persistence collaborator notified. Remote deletion
// failures are logged and do not block local teardown, so a half-deleted
// remote state cannot wedge the session.
func (r *Registry) EndConversation(ctx context.Context) error {
	r.mu.Lock()
	threads := r.threads
	r.threads = make(map[string]string)
	r.mu.Unlock()

	var firstErr error
	for key, id := range threads {
		if err := r.api.DeleteThread(ctx, id); err != nil {
			log.Errorf("Deleting remote thread %s (%s): %v", id, key, err)
			if firstErr == nil {
				firstErr = err
			}
		}
		if err := r.store.DeleteThread(ctx, id); err != nil {
			log.Errorf("Deleting stored thread %s (%s): %v", id, key, err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}
