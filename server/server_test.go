//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finsight-ai/finsight/assistant"
	"github.com/finsight-ai/finsight/coordinator"
	"github.com/finsight-ai/finsight/marketdata"
	"github.com/finsight-ai/finsight/session/inmemory"
)

// streamingAPI serves every run as one streamed generation ending completed.
type streamingAPI struct {
	reply string
}

func (a *streamingAPI) CreateAssistant(ctx context.Context, req assistant.CreateAssistantRequest) (*assistant.Assistant, error) {
	return &assistant.Assistant{ID: "asst_" + req.Name, Name: req.Name}, nil
}
func (a *streamingAPI) DeleteAssistant(ctx context.Context, assistantID string) error { return nil }
func (a *streamingAPI) CreateThread(ctx context.Context, metadata map[string]string) (string, error) {
	return "thread_" + metadata["agent"], nil
}
func (a *streamingAPI) DeleteThread(ctx context.Context, threadID string) error { return nil }
func (a *streamingAPI) CreateMessage(ctx context.Context, threadID string, msg assistant.Message) error {
	return nil
}
func (a *streamingAPI) ListMessages(ctx context.Context, threadID string, limit int) ([]assistant.Message, error) {
	return []assistant.Message{{Role: assistant.RoleAssistant, Text: a.reply}}, nil
}
func (a *streamingAPI) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	return &assistant.Run{ID: "run_1", Status: assistant.RunStatusCompleted}, nil
}
func (a *streamingAPI) RetrieveRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	return &assistant.Run{ID: runID, Status: assistant.RunStatusCompleted}, nil
}
func (a *streamingAPI) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (*assistant.Run, error) {
	return &assistant.Run{ID: runID, Status: assistant.RunStatusCompleted}, nil
}
func (a *streamingAPI) StreamRun(ctx context.Context, threadID, assistantID string) (assistant.RunStream, error) {
	return &scriptStream{events: []assistant.StreamEvent{
		{Type: assistant.StreamEventTextDelta, TextDelta: a.reply},
		{Type: assistant.StreamEventRunSnapshot, Run: &assistant.Run{ID: "run_1", Status: assistant.RunStatusCompleted}},
	}}, nil
}
func (a *streamingAPI) StreamToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (assistant.RunStream, error) {
	return nil, errors.New("not scripted")
}

type scriptStream struct {
	events []assistant.StreamEvent
	pos    int
}

func (s *scriptStream) Next() bool {
	if s.pos >= len(s.events) {
		return false
	}
	s.pos++
	return true
}
func (s *scriptStream) Current() assistant.StreamEvent { return s.events[s.pos-1] }
func (s *scriptStream) Err() error                     { return nil }
func (s *scriptStream) Close() error                   { return nil }

// fileRemote satisfies the upload surface; server tests never upload.
type fileRemote struct{}

func (fileRemote) UploadFile(ctx context.Context, path string) (string, error) { return "file_1", nil }
func (fileRemote) DeleteFile(ctx context.Context, fileID string) error         { return nil }
func (fileRemote) CreateVectorStore(ctx context.Context, name string, fileIDs []string) (string, error) {
	return "vs_1", nil
}
func (fileRemote) AddFileToVectorStore(ctx context.Context, vectorStoreID, fileID string) error {
	return nil
}
func (fileRemote) DeleteVectorStore(ctx context.Context, vectorStoreID string) error { return nil }
func (fileRemote) AttachVectorStoreToThread(ctx context.Context, threadID, vectorStoreID string) error {
	return nil
}

func newTestServer(t *testing.T, reply string) *Server {
	t.Helper()
	api := &streamingAPI{reply: reply}
	coord := coordinator.New(api, inmemory.NewStore(), fileRemote{}, marketdata.NewClient("test"), "gpt-4o")
	require.NoError(t, coord.Initialize(context.Background()))
	return New(coord)
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, "ok")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatTurn(t *testing.T) {
	s := newTestServer(t, "AAPL trades at $230.")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"What is AAPL at?"}`))
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "AAPL trades at $230.", body["response"])
}

func TestChatRejectsEmptyMessage(t *testing.T) {
	s := newTestServer(t, "")
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{}`))
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStreamUnknownCorrelationID(t *testing.T) {
	s := newTestServer(t, "")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/stream/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStagedStreamingTurn(t *testing.T) {
	s := newTestServer(t, "AAPL is at $230.")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/stream/message",
		strings.NewReader(`{"message":"How is AAPL doing?"}`))
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var staged map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &staged))
	id := staged["correlationId"]
	require.NotEmpty(t, id)

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/stream/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	text := string(body)
	assert.Contains(t, text, "event: message\n")
	assert.Contains(t, text, "AAPL is at $230.")
	assert.Equal(t, 1, strings.Count(text, "event: end\n"))

	// The staged message is single use.
	resp2, err := http.Get(srv.URL + "/api/stream/" + id)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}

func TestDebugReportsLiveThreads(t *testing.T) {
	s := newTestServer(t, "AAPL trades at $230.")

	// A turn creates the coordinator thread, which the debug view reports.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat",
		strings.NewReader(`{"message":"What is AAPL at?"}`))
	s.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/debug", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var state struct {
		Threads   []string `json:"threads"`
		Timestamp string   `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Contains(t, state.Threads, "Coordinator")
	assert.NotEmpty(t, state.Timestamp)
}

func TestEndConversation(t *testing.T) {
	s := newTestServer(t, "bye")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/end-conversation", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
