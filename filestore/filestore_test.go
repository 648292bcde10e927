//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

package filestore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingRemote struct {
	mu sync.Mutex

	uploads       int
	addedToStore  []string
	deletedFiles  []string
	deletedStores []string
	storeName     string

	createStoreErr error
	attachErr      error
}

func (r *recordingRemote) UploadFile(ctx context.Context, path string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.uploads++
	return fmt.Sprintf("file_%d", r.uploads), nil
}

func (r *recordingRemote) DeleteFile(ctx context.Context, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedFiles = append(r.deletedFiles, fileID)
	return nil
}

func (r *recordingRemote) CreateVectorStore(ctx context.Context, name string, fileIDs []string) (string, error) {
	if r.createStoreErr != nil {
		return "", r.createStoreErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.storeName = name
	return "vs_1", nil
}

func (r *recordingRemote) AddFileToVectorStore(ctx context.Context, vectorStoreID, fileID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.addedToStore = append(r.addedToStore, fileID)
	return nil
}

func (r *recordingRemote) DeleteVectorStore(ctx context.Context, vectorStoreID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deletedStores = append(r.deletedStores, vectorStoreID)
	return nil
}

func (r *recordingRemote) AttachVectorStoreToThread(ctx context.Context, threadID, vectorStoreID string) error {
	return r.attachErr
}

func TestAddFileCreatesStorePerThread(t *testing.T) {
	remote := &recordingRemote{}
	m := NewManager(remote)
	ctx := context.Background()

	id1, err := m.AddFile(ctx, "thread_1", "/tmp/q1.pdf")
	require.NoError(t, err)
	assert.Equal(t, "file_1", id1)
	assert.Equal(t, "ThreadStore_thread_1", remote.storeName)

	storeID, ok := m.StoreID("thread_1")
	require.True(t, ok)
	assert.Equal(t, "vs_1", storeID)

	// Second file joins the existing store instead of creating a new one.
	id2, err := m.AddFile(ctx, "thread_1", "/tmp/q2.pdf")
	require.NoError(t, err)
	assert.Equal(t, []string{id2}, remote.addedToStore)
}

func TestAddFileCleansUpWhenStoreCreationFails(t *testing.T) {
	remote := &recordingRemote{createStoreErr: errors.New("quota")}
	m := NewManager(remote)

	_, err := m.AddFile(context.Background(), "thread_1", "/tmp/q1.pdf")
	require.Error(t, err)
	assert.Equal(t, []string{"file_1"}, remote.deletedFiles, "orphaned upload must be deleted")

	_, ok := m.StoreID("thread_1")
	assert.False(t, ok)
}

func TestCleanupRemovesStoreAndFiles(t *testing.T) {
	remote := &recordingRemote{}
	m := NewManager(remote)
	ctx := context.Background()

	_, err := m.AddFile(ctx, "thread_1", "/tmp/q1.pdf")
	require.NoError(t, err)
	_, err = m.AddFile(ctx, "thread_1", "/tmp/q2.pdf")
	require.NoError(t, err)

	m.Cleanup(ctx, "thread_1")

	assert.Equal(t, []string{"vs_1"}, remote.deletedStores)
	assert.ElementsMatch(t, []string{"file_1", "file_2"}, remote.deletedFiles)
	_, ok := m.StoreID("thread_1")
	assert.False(t, ok)
}

func TestCleanupAllCoversEveryThread(t *testing.T) {
	remote := &recordingRemote{}
	m := NewManager(remote)
	ctx := context.Background()

	_, err := m.AddFile(ctx, "thread_1", "/tmp/a.pdf")
	require.NoError(t, err)
	_, err = m.AddFile(ctx, "thread_2", "/tmp/b.pdf")
	require.NoError(t, err)

	m.CleanupAll(ctx)

	assert.Len(t, remote.deletedFiles, 2)
	_, ok := m.StoreID("thread_1")
	assert.False(t, ok)
	_, ok = m.StoreID("thread_2")
	assert.False(t, ok)
}
