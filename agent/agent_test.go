//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

package agent

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/assistant"
	"github.com/finsight-ai/finsight/run"
	"github.com/finsight-ai/finsight/session"
	"github.com/finsight-ai/finsight/session/inmemory"
	"github.com/finsight-ai/finsight/tool"
	"github.com/finsight-ai/finsight/tool/function"
)

func sessionRecord(name, assistantID string) session.AssistantRecord {
	return session.AssistantRecord{Name: name, AssistantID: assistantID, Model: "gpt-4o"}
}

// apiStub scripts the remote surface for agent tests.
type apiStub struct {
	mu sync.Mutex

	nextAssistantID string
	createdReqs     []assistant.CreateAssistantRequest
	deletedIDs      []string
	deleteErr       error
	createErr       error

	userMessages []assistant.Message
	runScript    []*assistant.Run
	replyText    string
	submitted    [][]assistant.ToolOutput
}

func (a *apiStub) CreateAssistant(ctx context.Context, req assistant.CreateAssistantRequest) (*assistant.Assistant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.createErr != nil {
		return nil, a.createErr
	}
	a.createdReqs = append(a.createdReqs, req)
	id := a.nextAssistantID
	if id == "" {
		id = "asst_new"
	}
	return &assistant.Assistant{ID: id, Name: req.Name, Model: req.Model}, nil
}

func (a *apiStub) DeleteAssistant(ctx context.Context, assistantID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.deleteErr != nil {
		return a.deleteErr
	}
	a.deletedIDs = append(a.deletedIDs, assistantID)
	return nil
}

func (a *apiStub) CreateThread(ctx context.Context, metadata map[string]string) (string, error) {
	return "thread_1", nil
}

func (a *apiStub) DeleteThread(ctx context.Context, threadID string) error { return nil }

func (a *apiStub) CreateMessage(ctx context.Context, threadID string, msg assistant.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.userMessages = append(a.userMessages, msg)
	return nil
}

func (a *apiStub) ListMessages(ctx context.Context, threadID string, limit int) ([]assistant.Message, error) {
	return []assistant.Message{{Role: assistant.RoleAssistant, Text: a.replyText}}, nil
}

func (a *apiStub) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	return a.popRun()
}

func (a *apiStub) RetrieveRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	return a.popRun()
}

func (a *apiStub) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (*assistant.Run, error) {
	a.mu.Lock()
	a.submitted = append(a.submitted, outputs)
	a.mu.Unlock()
	return a.popRun()
}

func (a *apiStub) StreamRun(ctx context.Context, threadID, assistantID string) (assistant.RunStream, error) {
	return nil, errors.New("not scripted")
}

func (a *apiStub) StreamToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (assistant.RunStream, error) {
	return nil, errors.New("not scripted")
}

func (a *apiStub) popRun() (*assistant.Run, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if len(a.runScript) == 0 {
		return nil, errors.New("run script exhausted")
	}
	r := a.runScript[0]
	a.runScript = a.runScript[1:]
	return r, nil
}

type echoArgs struct {
	Symbol string `json:"symbol"`
}

func newEchoAgent(api assistant.API) *Agent {
	echo := function.New(
		func(ctx context.Context, a echoArgs) (map[string]string, error) {
			return map[string]string{"symbol": a.Symbol, "price": "230.1"}, nil
		},
		function.WithName("fetchRealTimeQuote"),
		function.WithDescription("Fetch the quote."),
	)
	return New(api, inmemory.NewStore(), Config{
		Name:         "CompanyProfile",
		Model:        "gpt-4o",
		Instructions: "Answer company questions.",
		Tools:        []tool.CallableTool{echo},
	}, run.WithPollInterval(time.Millisecond))
}

func TestInitializeCreatesAssistantAndRecord(t *testing.T) {
	api := &apiStub{nextAssistantID: "asst_1"}
	store := inmemory.NewStore()
	ag := New(api, store, Config{Name: "Coordinator", Model: "gpt-4o"})

	require.NoError(t, ag.Initialize(context.Background()))
	assert.Equal(t, "asst_1", ag.AssistantID())

	rec, err := store.GetAssistant(context.Background(), "Coordinator")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, "asst_1", rec.AssistantID)
}

func TestInitializeReplacesStaleAssistant(t *testing.T) {
	api := &apiStub{nextAssistantID: "asst_2"}
	store := inmemory.NewStore()
	require.NoError(t, store.SaveAssistant(context.Background(), sessionRecord("Coordinator", "asst_old")))

	ag := New(api, store, Config{Name: "Coordinator", Model: "gpt-4o"})
	require.NoError(t, ag.Initialize(context.Background()))

	assert.Equal(t, []string{"asst_old"}, api.deletedIDs)
	assert.Equal(t, "asst_2", ag.AssistantID())
}

func TestInitializeToleratesStaleDeleteFailure(t *testing.T) {
	api := &apiStub{nextAssistantID: "asst_2", deleteErr: errors.New("already gone")}
	store := inmemory.NewStore()
	require.NoError(t, store.SaveAssistant(context.Background(), sessionRecord("Coordinator", "asst_old")))

	ag := New(api, store, Config{Name: "Coordinator", Model: "gpt-4o"})
	require.NoError(t, ag.Initialize(context.Background()))
	assert.Equal(t, "asst_2", ag.AssistantID())
}

func TestInitializePropagatesCreateFailure(t *testing.T) {
	api := &apiStub{createErr: errors.New("quota exceeded")}
	ag := New(api, inmemory.NewStore(), Config{Name: "Coordinator", Model: "gpt-4o"})

	err := ag.Initialize(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exceeded")
}

func TestProcessMessageRequiresInitialize(t *testing.T) {
	ag := newEchoAgent(&apiStub{})
	_, err := ag.ProcessMessage(context.Background(), "thread_1", "hello")
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestProcessMessageDispatchesToolCalls(t *testing.T) {
	api := &apiStub{
		nextAssistantID: "asst_1",
		replyText:       "AAPL trades at $230.",
		runScript: []*assistant.Run{
			{ID: "run_1", Status: assistant.RunStatusRequiresAction, ToolCalls: []assistant.ToolCall{
				{ID: "call_1", Name: "fetchRealTimeQuote", Arguments: `{"symbol":"AAPL"}`},
			}},
			{ID: "run_1", Status: assistant.RunStatusCompleted},
		},
	}
	ag := newEchoAgent(api)
	require.NoError(t, ag.Initialize(context.Background()))

	reply, err := ag.ProcessMessage(context.Background(), "thread_1", "What is AAPL at?")
	require.NoError(t, err)
	assert.Equal(t, "AAPL trades at $230.", reply)

	require.Len(t, api.userMessages, 1)
	assert.Equal(t, assistant.RoleUser, api.userMessages[0].Role)

	require.Len(t, api.submitted, 1)
	require.Len(t, api.submitted[0], 1)
	var payload map[string]string
	require.NoError(t, json.Unmarshal([]byte(api.submitted[0][0].Output), &payload))
	assert.Equal(t, "AAPL", payload["symbol"])
}

func TestProcessMessageContainsUnknownTool(t *testing.T) {
	api := &apiStub{
		nextAssistantID: "asst_1",
		replyText:       "done",
		runScript: []*assistant.Run{
			{ID: "run_1", Status: assistant.RunStatusRequiresAction, ToolCalls: []assistant.ToolCall{
				{ID: "call_1", Name: "noSuchTool", Arguments: `{}`},
			}},
			{ID: "run_1", Status: assistant.RunStatusCompleted},
		},
	}
	ag := newEchoAgent(api)
	require.NoError(t, ag.Initialize(context.Background()))

	_, err := ag.ProcessMessage(context.Background(), "thread_1", "hello")
	require.NoError(t, err)

	require.Len(t, api.submitted, 1)
	var e struct {
		Error string `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(api.submitted[0][0].Output), &e))
	assert.Contains(t, e.Error, "noSuchTool")
}
