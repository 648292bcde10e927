//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package coordinator wires the coordinating agent to its specialist
// sub-agents and owns the conversation lifecycle: thread registry, message
// history, uploaded files and turn execution in both polling and streaming
// modes.
package coordinator

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finsight-ai/finsight/agent"
	"github.com/finsight-ai/finsight/assistant"
	"github.com/finsight-ai/finsight/filestore"
	"github.com/finsight-ai/finsight/log"
	"github.com/finsight-ai/finsight/marketdata"
	"github.com/finsight-ai/finsight/run"
	"github.com/finsight-ai/finsight/session"
	"github.com/finsight-ai/finsight/stream"
	"github.com/finsight-ai/finsight/thread"
	"github.com/finsight-ai/finsight/tool"
	"github.com/finsight-ai/finsight/tool/function"
)

const coordinatorName = "Coordinator"

type threadIDKey struct{}

// withThreadID stamps the active conversation thread on the context so tool
// handlers invoked mid-run know which thread they serve.
func withThreadID(ctx context.Context, threadID string) context.Context {
	return context.WithValue(ctx, threadIDKey{}, threadID)
}

func threadIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(threadIDKey{}).(string)
	return id, ok
}

// Coordinator routes user turns through the coordinating agent, which
// delegates domain questions to specialist sub-agents over their own
// threads.
type Coordinator struct {
	api         assistant.API
	store       session.Store
	threads     *thread.Registry
	files       *filestore.Manager
	coordinator *agent.Agent
	specialists map[string]*agent.Agent
}

// New builds the coordinator and its five specialists. Nothing exists
// remotely until Initialize.
func New(api assistant.API, store session.Store, remote filestore.Remote, md *marketdata.Client, model string, runOpts ...run.Option) *Coordinator {
	c := &Coordinator{
		api:     api,
		store:   store,
		threads: thread.NewRegistry(api, store),
		files:   filestore.NewManager(remote),
	}

	c.specialists = map[string]*agent.Agent{}
	for _, sub := range []*agent.Agent{
		agent.NewCompanyProfile(api, store, md, model, runOpts...),
		agent.NewFinancialAnalysis(api, store, md, model, runOpts...),
		agent.NewTechnicalAnalysis(api, store, md, model, runOpts...),
		agent.NewEconomicData(api, store, md, model, runOpts...),
		agent.NewSentimentAnalysis(api, store, md, model, runOpts...),
	} {
		c.specialists[sub.Name()] = sub
	}

	c.coordinator = agent.New(api, store, agent.Config{
		Name:         coordinatorName,
		Model:        model,
		Instructions: c.instructions(),
		Tools:        c.coordinatorTools(),
		FileSearch:   true,
	}, runOpts...)
	return c
}

func (c *Coordinator) instructions() string {
	names := c.specialistNames()
	return "You are the coordinator of a team of financial analysis specialists: " +
		strings.Join(names, ", ") + ". " +
		"For any question in a specialist's domain, delegate with the messageSubAssistant " +
		"tool and weave the answers into one coherent reply. Delegate to several " +
		"specialists when a question spans domains. When the user provides a document, " +
		"store it with the uploadFile tool so it becomes searchable. Answer directly only " +
		"for questions no specialist covers."
}

func (c *Coordinator) specialistNames() []string {
	names := make([]string, 0, len(c.specialists))
	for name := range c.specialists {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type delegateArgs struct {
	SubAssistantName string `json:"subAssistantName" description:"Specialist to delegate to" enum:"CompanyProfile,FinancialAnalysis,TechnicalAnalysis,EconomicData,SentimentAnalysis"`
	Message          string `json:"message" description:"Question to forward to the specialist"`
}

type uploadFileArgs struct {
	FileName string `json:"fileName" description:"Name of the file, including extension"`
	Content  string `json:"content" description:"Base64-encoded file content"`
}

type delegateResult struct {
	SubAssistant string `json:"subAssistant"`
	Response     string `json:"response"`
}

type uploadResult struct {
	FileID string `json:"fileId"`
	Status string `json:"status"`
}

func (c *Coordinator) coordinatorTools() []tool.CallableTool {
	return []tool.CallableTool{
		function.New(c.messageSubAssistant,
			function.WithName("messageSubAssistant"),
			function.WithDescription("Send a question to a specialist sub-assistant and return its answer."),
		),
		function.New(c.uploadFile,
			function.WithName("uploadFile"),
			function.WithDescription("Store a user-provided document so it becomes searchable in this conversation."),
		),
	}
}

// messageSubAssistant forwards a question to the named specialist on the
// specialist's own thread. A specialist failure degrades to an error message
// in the result so the coordinator can still compose a reply.
func (c *Coordinator) messageSubAssistant(ctx context.Context, args delegateArgs) (delegateResult, error) {
	sub, ok := c.specialists[args.SubAssistantName]
	if !ok {
		return delegateResult{}, fmt.Errorf("unknown sub-assistant %q", args.SubAssistantName)
	}

	threadID, err := c.threads.GetOrCreate(ctx, sub.Name())
	if err != nil {
		return delegateResult{}, fmt.Errorf("thread for %s: %w", sub.Name(), err)
	}

	log.Debugf("coordinator: delegating to %s on thread %s", sub.Name(), threadID)
	reply, err := sub.ProcessMessage(ctx, threadID, args.Message)
	if err != nil {
		log.Errorf("coordinator: %s failed: %v", sub.Name(), err)
		return delegateResult{
			SubAssistant: sub.Name(),
			Response:     fmt.Sprintf("The %s specialist could not answer: %v", sub.Name(), err),
		}, nil
	}
	return delegateResult{SubAssistant: sub.Name(), Response: reply}, nil
}

// uploadFile decodes the document, writes it to a temp file for the upload
// and attaches it to the active thread's vector store. The temp file is
// removed on every path.
func (c *Coordinator) uploadFile(ctx context.Context, args uploadFileArgs) (uploadResult, error) {
	threadID, ok := threadIDFrom(ctx)
	if !ok {
		return uploadResult{}, fmt.Errorf("no active thread for upload")
	}

	data, err := base64.StdEncoding.DecodeString(args.Content)
	if err != nil {
		return uploadResult{}, fmt.Errorf("decode file content: %w", err)
	}

	path := filepath.Join(os.TempDir(), uuid.NewString()+"_"+filepath.Base(args.FileName))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return uploadResult{}, fmt.Errorf("write temp file: %w", err)
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil {
			log.Warnf("coordinator: remove temp file %s: %v", path, rmErr)
		}
	}()

	fileID, err := c.files.AddFile(ctx, threadID, path)
	if err != nil {
		return uploadResult{}, err
	}
	return uploadResult{FileID: fileID, Status: "stored"}, nil
}

// Initialize provisions the coordinator and every specialist remotely.
func (c *Coordinator) Initialize(ctx context.Context) error {
	for _, name := range c.specialistNames() {
		if err := c.specialists[name].Initialize(ctx); err != nil {
			return err
		}
	}
	return c.coordinator.Initialize(ctx)
}

// Thread resolves the conversation thread for the coordinator, creating it
// on first use.
func (c *Coordinator) Thread(ctx context.Context) (string, error) {
	return c.threads.GetOrCreate(ctx, coordinatorName)
}

// Turn runs one user message to completion in polling mode and returns the
// coordinator's reply. Both sides of the exchange are persisted to the
// session store.
func (c *Coordinator) Turn(ctx context.Context, message string) (string, error) {
	threadID, err := c.Thread(ctx)
	if err != nil {
		return "", err
	}
	c.appendHistory(ctx, threadID, assistant.RoleUser, message)

	reply, err := c.coordinator.ProcessMessage(withThreadID(ctx, threadID), threadID, message)
	if err != nil {
		return "", err
	}
	c.appendHistory(ctx, threadID, assistant.RoleAssistant, reply)
	return reply, nil
}

// StreamTurn runs one user message in streaming mode, forwarding events to
// emit. Exactly one assistant message is persisted per successful turn.
func (c *Coordinator) StreamTurn(ctx context.Context, message string, emit stream.Emit) error {
	threadID, err := c.Thread(ctx)
	if err != nil {
		return err
	}
	c.appendHistory(ctx, threadID, assistant.RoleUser, message)

	reply, err := c.coordinator.StreamMessage(withThreadID(ctx, threadID), threadID, message, emit)
	if err != nil {
		return err
	}
	c.appendHistory(ctx, threadID, assistant.RoleAssistant, reply)
	return nil
}

// History returns the persisted messages of the coordinator conversation.
func (c *Coordinator) History(ctx context.Context) ([]session.Message, error) {
	threadID, ok := c.threads.Get(coordinatorName)
	if !ok {
		return nil, nil
	}
	msgs, err := c.store.Messages(ctx, threadID)
	if err == session.ErrThreadNotFound {
		return nil, nil
	}
	return msgs, err
}

// EndConversation tears down uploaded files, remote threads and local
// history so the next turn starts fresh.
func (c *Coordinator) EndConversation(ctx context.Context) error {
	c.files.CleanupAll(ctx)
	return c.threads.EndConversation(ctx)
}

// DebugState returns a JSON summary of live threads, for diagnostics.
func (c *Coordinator) DebugState() string {
	state := map[string]any{
		"threads":   c.threads.Keys(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	b, _ := json.Marshal(state)
	return string(b)
}

func (c *Coordinator) appendHistory(ctx context.Context, threadID string, role string, content string) {
	if content == "" {
		return
	}
	err := c.store.AppendMessages(ctx, threadID, []session.Message{{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}})
	if err != nil {
		log.Warnf("coordinator: persist %s message: %v", role, err)
	}
}
