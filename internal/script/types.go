/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script runs Starlark automation scripts against a scene. Scripts
// see a small set of builtins (add, set, remove, group, ...) and run as one
// atomic batch: a failing script leaves the object list and selection as
// they were.
package script

import (
	"fmt"

	"gosceneeditor/internal/scene"
)

// DefaultMaxSteps bounds a script run.
const DefaultMaxSteps = 10_000_000

// Env is the scene a script operates on.
type Env struct {
	Store      *scene.Store
	Factory    *scene.Factory
	Background string
	Width      float64
	Height     float64

	// Print receives print() output; nil logs it at info level.
	Print func(msg string)
	// MaxSteps overrides DefaultMaxSteps when > 0.
	MaxSteps uint64
}

// Result reports what a run produced.
type Result struct {
	// Globals holds the script's top-level values that convert to Go.
	Globals map[string]any
	Steps   uint64
}

// Error is a script failure with its source position. Line and Column are
// 1-based; zero when unknown.
type Error struct {
	Line    int
	Column  int
	Message string
}

func (e *Error) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("script:%d:%d: %s", e.Line, e.Column, e.Message)
	}
	return "script: " + e.Message
}
