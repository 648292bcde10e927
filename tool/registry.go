//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

package tool

import (
	"context"
	"fmt"
	"sync"
)

// ErrToolNotFound is returned by Registry.Invoke when no tool is registered
// under the requested name.
var ErrToolNotFound = fmt.Errorf("tool not found")

// Registry maps tool names to callable tools. It is a pure dispatch table:
// registration happens at startup, lookups afterwards are read-mostly.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]CallableTool
	names []string
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]CallableTool)}
}

// Register adds a callable tool under its declared name. Registering a second
// tool with the same name is a configuration error.
func (r *Registry) Register(t CallableTool) error {
	decl := t.Declaration()
	if decl == nil || decl.Name == "" {
		return fmt.Errorf("tool registration requires a named declaration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[decl.Name]; ok {
		return fmt.Errorf("tool %q already registered", decl.Name)
	}
	r.tools[decl.Name] = t
	r.names = append(r.names, decl.Name)
	return nil
}

// Get returns the tool registered under name, or false.
func (r *Registry) Get(name string) (CallableTool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Invoke dispatches a call to the named tool. Unknown names return an error
// wrapping ErrToolNotFound.
func (r *Registry) Invoke(ctx context.Context, name string, jsonArgs []byte) (any, error) {
	t, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	return t.Call(ctx, jsonArgs)
}

// Declarations returns the declarations of all registered tools in
// registration order.
func (r *Registry) Declarations() []*Declaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	decls := make([]*Declaration, 0, len(r.names))
	for _, name := range r.names {
		decls = append(decls, r.tools[name].Declaration())
	}
	return decls
}
