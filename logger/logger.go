// The MIT License (MIT)
//
// Copyright (c) 2013-2016 Oryx(ossrs)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

// Package logger provides connection-oriented log service for the Bolt wire
// stack.
//
//	logger.Info.Println(ctx, ...)
//	logger.Trace.Println(ctx, ...)
//	logger.Warn.Println(ctx, ...)
//	logger.Error.Println(ctx, ...)
//
// The Context is optional and may be nil. Unlike the original oryx logger,
// the backend here is zap instead of a bare io.Writer: a non-nil Context's
// Cid is attached as the structured field "cid", and the remaining
// arguments are logged as the message. Println offers no way to attach
// other structured fields.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Context identifies the connection a log line belongs to.
type Context interface {
	// Cid returns the connection's correlation id.
	Cid() int
}

// Logger mirrors the oryx Logger interface so call sites are unchanged.
type Logger interface {
	Println(ctx Context, a ...interface{})
}

type loggerPlus struct {
	level zapcore.Level
	core  *zap.SugaredLogger
}

func newLoggerPlus(core *zap.SugaredLogger, level zapcore.Level) Logger {
	return &loggerPlus{level: level, core: core}
}

func (v *loggerPlus) Println(ctx Context, a ...interface{}) {
	s := v.core
	if ctx != nil {
		s = s.With("cid", ctx.Cid())
	}
	switch v.level {
	case zapcore.DebugLevel:
		s.Debug(a...)
	case zapcore.InfoLevel:
		s.Info(a...)
	case zapcore.WarnLevel:
		s.Warn(a...)
	default:
		s.Error(a...)
	}
}

// Info is the verbose level, very detailed, discarded by default.
var Info Logger

// I is the alias for Info level println.
func I(ctx Context, a ...interface{}) {
	Info.Println(ctx, a...)
}

// Trace is the default log level, important protocol-flow events.
var Trace Logger

// T is the alias for Trace level println.
func T(ctx Context, a ...interface{}) {
	Trace.Println(ctx, a...)
}

// Warn is the warning level, recoverable anomalies.
var Warn Logger

// W is the alias for Warn level println.
func W(ctx Context, a ...interface{}) {
	Warn.Println(ctx, a...)
}

// Error is the error level, fatal conditions that close a connection.
var Error Logger

// E is the alias for Error level println.
func E(ctx Context, a ...interface{}) {
	Error.Println(ctx, a...)
}

var base *zap.Logger

func init() {
	reset()
}

func reset() {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(cfg)

	core := zapcore.NewTee(
		zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapcore.InfoLevel),
		zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), zapcore.WarnLevel),
	)
	base = zap.New(core)

	discarded := zap.NewNop().Sugar()
	Info = newLoggerPlus(discarded, zapcore.DebugLevel)
	Trace = newLoggerPlus(base.Sugar(), zapcore.InfoLevel)
	Warn = newLoggerPlus(base.Sugar(), zapcore.WarnLevel)
	Error = newLoggerPlus(base.Sugar(), zapcore.ErrorLevel)
}

// Switch redirects Trace/Warn/Error output to w, matching the oryx Switch
// semantics: Info remains discarded.
func Switch(w zapcore.WriteSyncer) {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewConsoleEncoder(cfg)

	core := zapcore.NewCore(encoder, w, zapcore.DebugLevel)
	base = zap.New(core)

	discarded := zap.NewNop().Sugar()
	Info = newLoggerPlus(discarded, zapcore.DebugLevel)
	Trace = newLoggerPlus(base.Sugar(), zapcore.InfoLevel)
	Warn = newLoggerPlus(base.Sugar(), zapcore.WarnLevel)
	Error = newLoggerPlus(base.Sugar(), zapcore.ErrorLevel)
}

// Close flushes the underlying zap core, matching the oryx io.Closer
// contract for Close().
func Close() error {
	err := base.Sync()
	reset()
	return err
}
