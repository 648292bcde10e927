//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package filestore manages per-thread vector stores so uploaded documents
// become searchable by the assistant handling that thread.
package filestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/finsight-ai/finsight/log"
)

// Remote is the provider surface the manager needs for files and vector
// stores.
type Remote interface {
	UploadFile(ctx context.Context, path string) (string, error)
	DeleteFile(ctx context.Context, fileID string) error
	CreateVectorStore(ctx context.Context, name string, fileIDs []string) (string, error)
	AddFileToVectorStore(ctx context.Context, vectorStoreID, fileID string) error
	DeleteVectorStore(ctx context.Context, vectorStoreID string) error
	AttachVectorStoreToThread(ctx context.Context, threadID, vectorStoreID string) error
}

// Manager tracks one vector store per thread and the file ids pushed into
// it. Safe for concurrent use.
type Manager struct {
	remote Remote

	mu     sync.Mutex
	stores map[string]string   // threadID -> vectorStoreID
	files  map[string][]string // threadID -> fileIDs
}

// NewManager builds a manager on the given remote surface.
func NewManager(remote Remote) *Manager {
	return &Manager{
		remote: remote,
		stores: make(map[string]string),
		files:  make(map[string][]string),
	}
}

// AddFile uploads the file at path and attaches it to the thread's vector
// store, creating and attaching the store on first use. Returns the remote
// file id.
func (m *Manager) AddFile(ctx context.Context, threadID, path string) (string, error) {
	fileID, err := m.remote.UploadFile(ctx, path)
	if err != nil {
		return "", fmt.Errorf("upload file: %w", err)
	}

	m.mu.Lock()
	storeID, ok := m.stores[threadID]
	m.mu.Unlock()

	if !ok {
		storeID, err = m.remote.CreateVectorStore(ctx, "ThreadStore_"+threadID, []string{fileID})
		if err != nil {
			m.cleanupFile(ctx, fileID)
			return "", fmt.Errorf("create vector store: %w", err)
		}
		if err := m.remote.AttachVectorStoreToThread(ctx, threadID, storeID); err != nil {
			m.cleanupFile(ctx, fileID)
			return "", fmt.Errorf("attach vector store: %w", err)
		}
	} else if err := m.remote.AddFileToVectorStore(ctx, storeID, fileID); err != nil {
		m.cleanupFile(ctx, fileID)
		return "", fmt.Errorf("add file to vector store: %w", err)
	}

	m.mu.Lock()
	m.stores[threadID] = storeID
	m.files[threadID] = append(m.files[threadID], fileID)
	m.mu.Unlock()
	return fileID, nil
}

// StoreID returns the vector store id for a thread, if one exists.
func (m *Manager) StoreID(threadID string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.stores[threadID]
	return id, ok
}

// Cleanup deletes the thread's vector store and every file pushed into it.
// Remote delete failures are logged, not returned; local tracking is cleared
// regardless.
func (m *Manager) Cleanup(ctx context.Context, threadID string) {
	m.mu.Lock()
	storeID, ok := m.stores[threadID]
	fileIDs := m.files[threadID]
	delete(m.stores, threadID)
	delete(m.files, threadID)
	m.mu.Unlock()

	if ok {
		if err := m.remote.DeleteVectorStore(ctx, storeID); err != nil {
			log.Warnf("filestore: delete vector store %s: %v", storeID, err)
		}
	}
	for _, id := range fileIDs {
		m.cleanupFile(ctx, id)
	}
}

// CleanupAll tears down every tracked thread store.
func (m *Manager) CleanupAll(ctx context.Context) {
	m.mu.Lock()
	threads := make([]string, 0, len(m.stores))
	for id := range m.stores {
		threads = append(threads, id)
	}
	m.mu.Unlock()

	for _, id := range threads {
		m.Cleanup(ctx, id)
	}
}

func (m *Manager) cleanupFile(ctx context.Context, fileID string) {
	if err := m.remote.DeleteFile(ctx, fileID); err != nil {
		log.Warnf("filestore: delete file %s: %v", fileID, err)
	}
}
