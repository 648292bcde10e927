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
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticTool struct {
	name   string
	result any
	err    error
}

func (s *staticTool) Call(ctx context.Context, jsonArgs []byte) (any, error) {
	return s.result, s.err
}

func (s *staticTool) Declaration() *Declaration {
	return &Declaration{Name: s.name, Description: "static test tool"}
}

func TestRegistryRegisterAndInvoke(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&staticTool{name: "quote", result: "230.1"}))
	require.NoError(t, r.Register(&staticTool{name: "profile", result: "Apple Inc."}))

	got, err := r.Invoke(context.Background(), "quote", []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "230.1", got)
}

func TestRegistryUnknownTool(t *testing.T) {
	r := NewRegistry()

	_, err := r.Invoke(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrToolNotFound)
}

func TestRegistryDuplicateName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&staticTool{name: "quote"}))
	assert.Error(t, r.Register(&staticTool{name: "quote"}))
}

func TestRegistryDeclarationsKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"c", "a", "b"} {
		require.NoError(t, r.Register(&staticTool{name: name}))
	}

	decls := r.Declarations()
	require.Len(t, decls, 3)
	assert.Equal(t, "c", decls[0].Name)
	assert.Equal(t, "a", decls[1].Name)
	assert.Equal(t, "b", decls[2].Name)
}

func TestRegistryInvokePropagatesToolError(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, r.Register(&staticTool{name: "bad", err: boom}))

	_, err := r.Invoke(context.Background(), "bad", nil)
	assert.ErrorIs(t, err, boom)
}
