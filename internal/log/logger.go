/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log sets up the slog logger shared by the editor, the CLI and the
// library server: a console or JSON sink on stderr, an optional rotating
// JSON file, and a handful of static and context attributes.
package log

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"gosceneeditor/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// AppName is attached to every record as "app".
const AppName = "gosceneeditor"

// Options controls logger initialization. FromEnv reads them from
//   - GSE_LOG_LEVEL=debug|info|warn|error
//   - GSE_LOG_FORMAT=console|json
//   - GSE_LOG_FILE=<path> (rotated JSON file)
//   - GSE_LOG_SOURCE=true|false
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string
}

// Rotation settings of the file sink.
const (
	fileMaxSizeMB  = 10
	fileMaxBackups = 3
	fileMaxAgeDays = 28
)

var (
	mu     sync.RWMutex
	logger *slog.Logger
	level  = new(slog.LevelVar)
)

// L returns the application logger, initializing it from the environment
// on first use.
func L() *slog.Logger {
	mu.RLock()
	l := logger
	mu.RUnlock()
	if l != nil {
		return l
	}
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

// Init replaces the application logger and slog.Default.
func Init(opts Options) {
	level.Set(parseLevel(opts.Level))
	hopts := &slog.HandlerOptions{Level: level, AddSource: opts.AddSource}

	var sinks []slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		sinks = append(sinks, slog.NewJSONHandler(os.Stderr, hopts))
	} else {
		sinks = append(sinks, newConsoleHandler(os.Stderr, level, opts.AddSource))
	}
	if path := strings.TrimSpace(opts.File); path != "" {
		w := &lj.Logger{
			Filename:   path,
			MaxSize:    fileMaxSizeMB,
			MaxBackups: fileMaxBackups,
			MaxAge:     fileMaxAgeDays,
			Compress:   true,
		}
		sinks = append(sinks, slog.NewJSONHandler(w, hopts))
	}

	var h slog.Handler = sinks[0]
	if len(sinks) > 1 {
		h = fanout(sinks)
	}
	l := slog.New(contextAttrs{next: h}).With(
		slog.String("app", AppName),
		slog.String("ver", version.Version),
		slog.Time("ts_init", time.Now()),
	)

	mu.Lock()
	logger = l
	mu.Unlock()
	slog.SetDefault(l)
}

// SetLevel changes the minimum level of every sink without rebuilding the
// logger. Unknown names mean info.
func SetLevel(name string) { level.Set(parseLevel(name)) }

// Level reports the current minimum level.
func Level() slog.Level { return level.Level() }

// FromEnv builds Options from GSE_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("GSE_LOG_LEVEL", "info"),
		Format:    getenv("GSE_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("GSE_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("GSE_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

type sceneKey struct{}

type objectKey struct{}

// ContextWithScene tags ctx so records logged with it carry scene=<name>.
func ContextWithScene(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, sceneKey{}, name)
}

// ContextWithObject tags ctx so records logged with it carry object=<id>.
func ContextWithObject(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, objectKey{}, id)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
