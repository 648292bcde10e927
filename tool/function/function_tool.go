//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

// Package function wraps plain Go functions as callable tools.
package function

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	itool "github.com/finsight-ai/finsight/internal/tool"
	"github.com/finsight-ai/finsight/tool"
)

// FunctionTool implements tool.CallableTool for a typed function. It provides
// a generic way to expose any function as a tool callable with JSON arguments.
type FunctionTool[I, O any] struct {
	name         string
	description  string
	inputSchema  *tool.Schema
	outputSchema *tool.Schema
	fn           func(context.Context, I) (O, error)
}

// Option configures a FunctionTool.
type Option func(*functionToolOptions)

type functionToolOptions struct {
	name        string
	description string
	inputSchema *tool.Schema
}

// WithName sets the name of the function tool.
func WithName(name string) Option {
	return func(opts *functionToolOptions) {
		opts.name = name
	}
}

// WithDescription sets the description of the function tool.
func WithDescription(description string) Option {
	return func(opts *functionToolOptions) {
		opts.description = description
	}
}

// WithInputSchema overrides the reflection-derived input schema. Useful when
// the declared schema needs enums or descriptions reflection cannot supply.
func WithInputSchema(s *tool.Schema) Option {
	return func(opts *functionToolOptions) {
		opts.inputSchema = s
	}
}

// New creates a FunctionTool from fn. The input and output schemas are
// derived from the function's type parameters via reflection unless
// overridden.
func New[I, O any](fn func(context.Context, I) (O, error), opts ...Option) *FunctionTool[I, O] {
	options := &functionToolOptions{}
	for _, opt := range opts {
		opt(options)
	}

	var (
		emptyI I
		emptyO O
	)
	inputSchema := options.inputSchema
	if inputSchema == nil {
		inputSchema = itool.GenerateJSONSchema(reflect.TypeOf(emptyI))
	}

	return &FunctionTool[I, O]{
		name:         options.name,
		description:  options.description,
		fn:           fn,
		inputSchema:  inputSchema,
		outputSchema: itool.GenerateJSONSchema(reflect.TypeOf(emptyO)),
	}
}

// Call executes the function tool with the provided JSON arguments.
func (ft *FunctionTool[I, O]) Call(ctx context.Context, jsonArgs []byte) (any, error) {
	var input I
	if len(jsonArgs) > 0 {
		if err := json.Unmarshal(jsonArgs, &input); err != nil {
			return nil, fmt.Errorf("tool %s: unmarshal arguments: %w", ft.name, err)
		}
	}
	return ft.fn(ctx, input)
}

// Declaration returns the tool's declaration information.
func (ft *FunctionTool[I, O]) Declaration() *tool.Declaration {
	return &tool.Declaration{
		Name:         ft.name,
		Description:  ft.description,
		InputSchema:  ft.inputSchema,
		OutputSchema: ft.outputSchema,
	}
}
