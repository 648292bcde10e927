//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

package thread

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/assistant"
	"github.com/finsight-ai/finsight/session/inmemory"
)

// threadAPI stubs the thread operations of the remote API.
type threadAPI struct {
	created   atomic.Int64
	deleted   sync.Map
	createErr error
	deleteErr error
	slow      time.Duration
}

func (a *threadAPI) CreateThread(ctx context.Context, metadata map[string]string) (string, error) {
	if a.slow > 0 {
		time.Sleep(a.slow)
	}
	if a.createErr != nil {
		return "", a.createErr
	}
	n := a.created.Add(1)
	return fmt.Sprintf("thread_%d", n), nil
}

func (a *threadAPI) DeleteThread(ctx context.Context, threadID string) error {
	if a.deleteErr != nil {
		return a.deleteErr
	}
	a.deleted.Store(threadID, true)
	return nil
}

func (a *threadAPI) CreateAssistant(ctx context.Context, req assistant.CreateAssistantRequest) (*assistant.Assistant, error) {
	return nil, errors.New("not implemented")
}
func (a *threadAPI) DeleteAssistant(ctx context.Context, assistantID string) error { return nil }
func (a *threadAPI) CreateMessage(ctx context.Context, threadID string, msg assistant.Message) error {
	return nil
}
func (a *threadAPI) ListMessages(ctx context.Context, threadID string, limit int) ([]assistant.Message, error) {
	return nil, nil
}
func (a *threadAPI) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	return nil, errors.New("not implemented")
}
func (a *threadAPI) RetrieveRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	return nil, errors.New("not implemented")
}
func (a *threadAPI) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (*assistant.Run, error) {
	return nil, errors.New("not implemented")
}
func (a *threadAPI) StreamRun(ctx context.Context, threadID, assistantID string) (assistant.RunStream, error) {
	return nil, errors.New("not implemented")
}
func (a *threadAPI) StreamToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (assistant.RunStream, error) {
	return nil, errors.New("not implemented")
}

func TestGetOrCreateMemoizes(t *testing.T) {
	api := &threadAPI{}
	r := NewRegistry(api, inmemory.NewStore())

	id1, err := r.GetOrCreate(context.Background(), "CompanyProfile")
	require.NoError(t, err)
	id2, err := r.GetOrCreate(context.Background(), "CompanyProfile")
	require.NoError(t, err)
	assert.Equal(t, id1, id2)
	assert.Equal(t, int64(1), api.created.Load())
}

func TestGetOrCreateDistinctKeys(t *testing.T) {
	api := &threadAPI{}
	r := NewRegistry(api, inmemory.NewStore())

	id1, err := r.GetOrCreate(context.Background(), "CompanyProfile")
	require.NoError(t, err)
	id2, err := r.GetOrCreate(context.Background(), "EconomicData")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id2)
}

func TestGetOrCreateConcurrentFirstCallers(t *testing.T) {
	api := &threadAPI{slow: 10 * time.Millisecond}
	r := NewRegistry(api, inmemory.NewStore())

	const callers = 16
	ids := make([]string, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := r.GetOrCreate(context.Background(), "Coordinator")
			assert.NoError(t, err)
			ids[i] = id
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), api.created.Load(), "concurrent callers must share one creation")
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestGetOrCreatePropagatesCreateError(t *testing.T) {
	api := &threadAPI{createErr: errors.New("remote unavailable")}
	r := NewRegistry(api, inmemory.NewStore())

	_, err := r.GetOrCreate(context.Background(), "Coordinator")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Coordinator")

	_, ok := r.Get("Coordinator")
	assert.False(t, ok, "failed creation must not be memoized")
}

func TestEndConversationDeletesAllThreads(t *testing.T) {
	api := &threadAPI{}
	r := NewRegistry(api, inmemory.NewStore())

	id1, err := r.GetOrCreate(context.Background(), "Coordinator")
	require.NoError(t, err)
	id2, err := r.GetOrCreate(context.Background(), "SentimentAnalysis")
	require.NoError(t, err)

	require.NoError(t, r.EndConversation(context.Background()))

	_, ok := api.deleted.Load(id1)
	assert.True(t, ok)
	_, ok = api.deleted.Load(id2)
	assert.True(t, ok)
	assert.Empty(t, r.Keys())

	// A new turn after teardown gets a fresh thread.
	id3, err := r.GetOrCreate(context.Background(), "Coordinator")
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)
}

func TestEndConversationReportsFirstRemoteFailure(t *testing.T) {
	api := &threadAPI{}
	r := NewRegistry(api, inmemory.NewStore())

	_, err := r.GetOrCreate(context.Background(), "Coordinator")
	require.NoError(t, err)

	api.deleteErr = errors.New("remote gone")
	err = r.EndConversation(context.Background())
	require.Error(t, err)
	assert.Empty(t, r.Keys(), "local teardown proceeds despite remote failure")
}
