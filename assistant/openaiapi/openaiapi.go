//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package openaiapi implements the assistant.API boundary on top of the
// OpenAI assistants API via the openai-go SDK.
package openaiapi

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	openaiopt "github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"
	"github.com/openai/openai-go/shared"

	"github.com/finsight-ai/finsight/assistant"
	"github.com/finsight-ai/finsight/log"
	"github.com/finsight-ai/finsight/tool"
)

// Client drives the OpenAI assistants API. It implements assistant.API and
// the filestore.Remote collaborator surface.
type Client struct {
	client openai.Client
}

// Option configures the Client.
type Option func(*options)

type options struct {
	apiKey    string
	baseURL   string
	extraOpts []openaiopt.RequestOption
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(o *options) { o.apiKey = key }
}

// WithBaseURL points the client at an OpenAI-compatible endpoint.
func WithBaseURL(url string) Option {
	return func(o *options) { o.baseURL = url }
}

// WithRequestOptions appends raw openai-go request options.
func WithRequestOptions(opts ...openaiopt.RequestOption) Option {
	return func(o *options) { o.extraOpts = append(o.extraOpts, opts...) }
}

// New creates a Client. The API key falls back to the OPENAI_API_KEY
// environment variable, matching the SDK default.
func New(opt ...Option) *Client {
	var o options
	for _, f := range opt {
		f(&o)
	}
	var reqOpts []openaiopt.RequestOption
	if o.apiKey != "" {
		reqOpts = append(reqOpts, openaiopt.WithAPIKey(o.apiKey))
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, openaiopt.WithBaseURL(o.baseURL))
	}
	reqOpts = append(reqOpts, o.extraOpts...)
	return &Client{client: openai.NewClient(reqOpts...)}
}

// CreateAssistant creates a remote assistant identity with the declared tools.
func (c *Client) CreateAssistant(ctx context.Context, req assistant.CreateAssistantRequest) (*assistant.Assistant, error) {
	params := openai.BetaAssistantNewParams{
		Model:        shared.ChatModel(req.Model),
		Name:         openai.String(req.Name),
		Instructions: openai.String(req.Instructions),
	}
	for _, decl := range req.Tools {
		fnParams, err := toFunctionParameters(decl.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", decl.Name, err)
		}
		params.Tools = append(params.Tools, openai.AssistantToolUnionParam{
			OfFunction: &openai.FunctionToolParam{
				Function: shared.FunctionDefinitionParam{
					Name:        decl.Name,
					Description: openai.String(decl.Description),
					Parameters:  fnParams,
				},
			},
		})
	}
	if req.CodeInterpreter {
		params.Tools = append(params.Tools, openai.AssistantToolUnionParam{
			OfCodeInterpreter: &openai.CodeInterpreterToolParam{},
		})
	}
	if req.FileSearch {
		params.Tools = append(params.Tools, openai.AssistantToolUnionParam{
			OfFileSearch: &openai.FileSearchToolParam{},
		})
	}
	a, err := c.client.Beta.Assistants.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("create assistant %s: %w", req.Name, err)
	}
	log.Infof("Created remote assistant %s (%s)", req.Name, a.ID)
	return &assistant.Assistant{ID: a.ID, Name: req.Name, Model: req.Model}, nil
}

// DeleteAssistant removes a remote assistant identity.
func (c *Client) DeleteAssistant(ctx context.Context, assistantID string) error {
	if _, err := c.client.Beta.Assistants.Delete(ctx, assistantID); err != nil {
		return fmt.Errorf("delete assistant %s: %w", assistantID, err)
	}
	return nil
}

// CreateThread creates a remote conversation thread.
func (c *Client) CreateThread(ctx context.Context, metadata map[string]string) (string, error) {
	params := openai.BetaThreadNewParams{}
	if len(metadata) > 0 {
		params.Metadata = shared.Metadata(metadata)
	}
	th, err := c.client.Beta.Threads.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("create thread: %w", err)
	}
	return th.ID, nil
}

// DeleteThread removes a remote thread.
func (c *Client) DeleteThread(ctx context.Context, threadID string) error {
	if _, err := c.client.Beta.Threads.Delete(ctx, threadID); err != nil {
		return fmt.Errorf("delete thread %s: %w", threadID, err)
	}
	return nil
}

// CreateMessage appends a message to a thread.
func (c *Client) CreateMessage(ctx context.Context, threadID string, msg assistant.Message) error {
	_, err := c.client.Beta.Threads.Messages.New(ctx, threadID, openai.BetaThreadMessageNewParams{
		Role: openai.BetaThreadMessageNewParamsRole(msg.Role),
		Content: openai.BetaThreadMessageNewParamsContentUnion{
			OfString: openai.String(msg.Text),
		},
	})
	if err != nil {
		return fmt.Errorf("create message on thread %s: %w", threadID, err)
	}
	return nil
}

// ListMessages returns up to limit messages, newest first.
func (c *Client) ListMessages(ctx context.Context, threadID string, limit int) ([]assistant.Message, error) {
	params := openai.BetaThreadMessageListParams{}
	if limit > 0 {
		params.Limit = openai.Int(int64(limit))
	}
	page, err := c.client.Beta.Threads.Messages.List(ctx, threadID, params)
	if err != nil {
		return nil, fmt.Errorf("list messages on thread %s: %w", threadID, err)
	}
	msgs := make([]assistant.Message, 0, len(page.Data))
	for _, m := range page.Data {
		msgs = append(msgs, assistant.Message{
			ID:        m.ID,
			Role:      string(m.Role),
			Text:      messageText(m),
			CreatedAt: time.Unix(m.CreatedAt, 0),
		})
	}
	return msgs, nil
}

// CreateRun starts a run of the assistant against the thread.
func (c *Client) CreateRun(ctx context.Context, threadID, assistantID string) (*assistant.Run, error) {
	r, err := c.client.Beta.Threads.Runs.New(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
	})
	if err != nil {
		return nil, fmt.Errorf("create run on thread %s: %w", threadID, err)
	}
	return convertRun(r), nil
}

// RetrieveRun fetches the current run snapshot.
func (c *Client) RetrieveRun(ctx context.Context, threadID, runID string) (*assistant.Run, error) {
	r, err := c.client.Beta.Threads.Runs.Get(ctx, threadID, runID)
	if err != nil {
		return nil, fmt.Errorf("retrieve run %s: %w", runID, err)
	}
	return convertRun(r), nil
}

// SubmitToolOutputs submits a full batch of tool outputs and returns the
// updated run snapshot.
func (c *Client) SubmitToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (*assistant.Run, error) {
	r, err := c.client.Beta.Threads.Runs.SubmitToolOutputs(ctx, threadID, runID, toolOutputParams(outputs))
	if err != nil {
		return nil, fmt.Errorf("submit tool outputs for run %s: %w", runID, err)
	}
	return convertRun(r), nil
}

// StreamRun starts a run and observes it as an event stream.
func (c *Client) StreamRun(ctx context.Context, threadID, assistantID string) (assistant.RunStream, error) {
	stream := c.client.Beta.Threads.Runs.NewStreaming(ctx, threadID, openai.BetaThreadRunNewParams{
		AssistantID: assistantID,
	})
	return &runStream{stream: stream}, nil
}

// StreamToolOutputs submits tool outputs and observes the continuation stream.
func (c *Client) StreamToolOutputs(ctx context.Context, threadID, runID string, outputs []assistant.ToolOutput) (assistant.RunStream, error) {
	stream := c.client.Beta.Threads.Runs.SubmitToolOutputsStreaming(ctx, threadID, runID, toolOutputParams(outputs))
	return &runStream{stream: stream}, nil
}

func toolOutputParams(outputs []assistant.ToolOutput) openai.BetaThreadRunSubmitToolOutputsParams {
	params := openai.BetaThreadRunSubmitToolOutputsParams{}
	for _, out := range outputs {
		params.ToolOutputs = append(params.ToolOutputs, openai.BetaThreadRunSubmitToolOutputsParamsToolOutput{
			ToolCallID: openai.String(out.ToolCallID),
			Output:     openai.String(out.Output),
		})
	}
	return params
}

// runStream adapts the SDK's SSE stream of assistant events to the
// assistant.RunStream contract.
type runStream struct {
	stream *ssestream.Stream[openai.AssistantStreamEventUnion]
	cur    assistant.StreamEvent
}

func (s *runStream) Next() bool {
	for s.stream.Next() {
		ev := s.stream.Current()
		var run openai.Run
		switch v := ev.AsAny().(type) {
		case openai.AssistantStreamEventThreadMessageDelta:
			var sb strings.Builder
			for _, part := range v.Data.Delta.Content {
				sb.WriteString(part.Text.Value)
			}
			if sb.Len() == 0 {
				continue
			}
			s.cur = assistant.StreamEvent{
				Type:      assistant.StreamEventTextDelta,
				TextDelta: sb.String(),
			}
			return true
		case openai.AssistantStreamEventThreadRunCreated:
			run = v.Data
		case openai.AssistantStreamEventThreadRunQueued:
			run = v.Data
		case openai.AssistantStreamEventThreadRunInProgress:
			run = v.Data
		case openai.AssistantStreamEventThreadRunRequiresAction:
			run = v.Data
		case openai.AssistantStreamEventThreadRunCompleted:
			run = v.Data
		case openai.AssistantStreamEventThreadRunIncomplete:
			run = v.Data
		case openai.AssistantStreamEventThreadRunFailed:
			run = v.Data
		case openai.AssistantStreamEventThreadRunCancelling:
			run = v.Data
		case openai.AssistantStreamEventThreadRunCancelled:
			run = v.Data
		case openai.AssistantStreamEventThreadRunExpired:
			run = v.Data
		default:
			// Step and message lifecycle events carry nothing the state
			// machine consumes.
			continue
		}
		s.cur = assistant.StreamEvent{
			Type: assistant.StreamEventRunSnapshot,
			Run:  convertRun(&run),
		}
		return true
	}
	return false
}

func (s *runStream) Current() assistant.StreamEvent { return s.cur }

func (s *runStream) Err() error { return s.stream.Err() }

func (s *runStream) Close() error { return s.stream.Close() }

// UploadFile uploads a local file for assistant consumption and returns the
// remote file id.
func (c *Client) UploadFile(ctx context.Context, path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	file, err := c.client.Files.New(ctx, openai.FileNewParams{
		File:    f,
		Purpose: openai.FilePurposeAssistants,
	})
	if err != nil {
		return "", fmt.Errorf("upload file %s: %w", path, err)
	}
	return file.ID, nil
}

// DeleteFile removes a remote file.
func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	if _, err := c.client.Files.Delete(ctx, fileID); err != nil {
		return fmt.Errorf("delete file %s: %w", fileID, err)
	}
	return nil
}

// CreateVectorStore creates a named vector store over the given files.
func (c *Client) CreateVectorStore(ctx context.Context, name string, fileIDs []string) (string, error) {
	vs, err := c.client.VectorStores.New(ctx, openai.VectorStoreNewParams{
		Name:    openai.String(name),
		FileIDs: fileIDs,
	})
	if err != nil {
		return "", fmt.Errorf("create vector store %s: %w", name, err)
	}
	return vs.ID, nil
}

// AddFileToVectorStore attaches an uploaded file to an existing vector store.
func (c *Client) AddFileToVectorStore(ctx context.Context, vectorStoreID, fileID string) error {
	_, err := c.client.VectorStores.Files.New(ctx, vectorStoreID, openai.VectorStoreFileNewParams{
		FileID: fileID,
	})
	if err != nil {
		return fmt.Errorf("add file %s to vector store %s: %w", fileID, vectorStoreID, err)
	}
	return nil
}

// DeleteVectorStore removes a vector store.
func (c *Client) DeleteVectorStore(ctx context.Context, vectorStoreID string) error {
	if _, err := c.client.VectorStores.Delete(ctx, vectorStoreID); err != nil {
		return fmt.Errorf("delete vector store %s: %w", vectorStoreID, err)
	}
	return nil
}

// AttachVectorStoreToThread makes a vector store searchable from a thread.
func (c *Client) AttachVectorStoreToThread(ctx context.Context, threadID, vectorStoreID string) error {
	_, err := c.client.Beta.Threads.Update(ctx, threadID, openai.BetaThreadUpdateParams{
		ToolResources: openai.BetaThreadUpdateParamsToolResources{
			FileSearch: openai.BetaThreadUpdateParamsToolResourcesFileSearch{
				VectorStoreIDs: []string{vectorStoreID},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("attach vector store %s to thread %s: %w", vectorStoreID, threadID, err)
	}
	return nil
}

func convertRun(r *openai.Run) *assistant.Run {
	run := &assistant.Run{
		ID:          r.ID,
		ThreadID:    r.ThreadID,
		AssistantID: r.AssistantID,
		Status:      assistant.RunStatus(r.Status),
	}
	for _, tc := range r.RequiredAction.SubmitToolOutputs.ToolCalls {
		run.ToolCalls = append(run.ToolCalls, assistant.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if r.LastError.Message != "" {
		run.LastError = &assistant.RunError{
			Code:    string(r.LastError.Code),
			Message: r.LastError.Message,
		}
	}
	return run
}

func messageText(m openai.Message) string {
	var sb strings.Builder
	for _, part := range m.Content {
		sb.WriteString(part.Text.Value)
	}
	return sb.String()
}

func toFunctionParameters(s *tool.Schema) (shared.FunctionParameters, error) {
	if s == nil {
		return shared.FunctionParameters{"type": "object"}, nil
	}
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}
	var params shared.FunctionParameters
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, fmt.Errorf("decode input schema: %w", err)
	}
	return params, nil
}
