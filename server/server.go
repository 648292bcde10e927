//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package server exposes the chat API over HTTP: polling turns, staged
// streaming turns delivered as server-sent events, conversation history and
// teardown.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/finsight-ai/finsight/coordinator"
	"github.com/finsight-ai/finsight/log"
	"github.com/finsight-ai/finsight/relay"
	"github.com/finsight-ai/finsight/stream"
)

// Server serves the chat API for one coordinator.
type Server struct {
	coord    *coordinator.Coordinator
	sessions *coordinator.Sessions

	httpServer *http.Server
}

// Option configures the server.
type Option func(*options)

type options struct {
	addr           string
	allowedOrigins []string
}

// WithAddr sets the listen address. Default ":3000".
func WithAddr(addr string) Option {
	return func(o *options) { o.addr = addr }
}

// WithAllowedOrigins sets the CORS allow list. Default allows all origins.
func WithAllowedOrigins(origins []string) Option {
	return func(o *options) { o.allowedOrigins = origins }
}

// New builds the server around a coordinator.
func New(coord *coordinator.Coordinator, opts ...Option) *Server {
	o := options{addr: ":3000", allowedOrigins: []string{"*"}}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{
		coord:    coord,
		sessions: coordinator.NewSessions(),
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/chat", s.handleChat).Methods(http.MethodPost)
	api.HandleFunc("/stream/message", s.handleStageMessage).Methods(http.MethodPost)
	api.HandleFunc("/stream/{correlationId}", s.handleStream).Methods(http.MethodGet)
	api.HandleFunc("/history", s.handleHistory).Methods(http.MethodGet)
	api.HandleFunc("/end-conversation", s.handleEndConversation).Methods(http.MethodPost)
	api.HandleFunc("/debug", s.handleDebug).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	handler := cors.New(cors.Options{
		AllowedOrigins: o.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)

	s.httpServer = &http.Server{
		Addr:              o.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// ListenAndServe blocks serving HTTP until Shutdown or a listener error.
func (s *Server) ListenAndServe() error {
	log.Infof("server: listening on %s", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type chatRequest struct {
	Message string `json:"message"`
}

// handleChat runs one polling-mode turn and replies with the final text.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	reply, err := s.coord.Turn(r.Context(), req.Message)
	if err != nil {
		log.Errorf("server: chat turn: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to process message")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": reply})
}

// handleStageMessage stores the message and hands back the correlation id
// the client opens the event stream with.
func (s *Server) handleStageMessage(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	id := s.sessions.Stage(req.Message)
	writeJSON(w, http.StatusOK, map[string]string{"correlationId": id})
}

// handleStream consumes a staged message and streams the turn as SSE.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["correlationId"]
	message, ok := s.sessions.Take(id)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown or expired correlation id")
		return
	}

	rly, err := relay.New(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	ctx := r.Context()
	go func() {
		if err := s.coord.StreamTurn(ctx, message, rly.Emit); err != nil {
			log.Errorf("server: stream turn: %v", err)
			rly.Emit(stream.NewError("failed to process message"))
		}
	}()

	if err := rly.Serve(ctx); err != nil {
		log.Debugf("server: stream %s closed: %v", id, err)
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	msgs, err := s.coord.History(r.Context())
	if err != nil {
		log.Errorf("server: history: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleEndConversation(w http.ResponseWriter, r *http.Request) {
	if err := s.coord.EndConversation(r.Context()); err != nil {
		log.Errorf("server: end conversation: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to end conversation")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ended"})
}

// handleDebug reports the coordinator's live thread state, for diagnostics.
func (s *Server) handleDebug(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(s.coord.DebugState())); err != nil {
		log.Errorf("server: write response: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("server: write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
