//
// FinSight AI is pleased to support the open source community by making finsight available.
//
// Copyright (C) 2025 FinSight AI.  All rights reserved.
//
// finsight is licensed under the Apache License Version 2.0.
//
//

package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"
)

func TestSetLevel(t *testing.T) {
	defer SetLevel(LevelInfo)

	SetLevel(LevelDebug)
	assert.Equal(t, zapcore.DebugLevel, zapLevel.Level())

	SetLevel(LevelWarn)
	assert.Equal(t, zapcore.WarnLevel, zapLevel.Level())

	SetLevel(LevelError)
	assert.Equal(t, zapcore.ErrorLevel, zapLevel.Level())

	SetLevel("bogus")
	assert.Equal(t, zapcore.InfoLevel, zapLevel.Level())
}

type recordingLogger struct {
	Logger
	msgs []string
}

func (r *recordingLogger) Infof(format string, args ...any) { r.msgs = append(r.msgs, format) }

func TestDefaultIsReplaceable(t *testing.T) {
	orig := Default
	defer func() { Default = orig }()

	rec := &recordingLogger{}
	Default = rec
	Infof("hello %s", "world")
	assert.Len(t, rec.msgs, 1)
}
