/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-scene undo/redo stacks of serialized scene
// documents with coalescing and memory caps.
package undo

import (
	"sync"
	"time"
)

// Snapshot is a serialized scene state. Blob is opaque to the manager and
// its size is counted as len(Blob). TS is when the state was captured.
type Snapshot struct {
	Scene string
	Blob  []byte
	TS    time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older undo entries are pruned when exceeded.
	MaxBytes int
	// MaxPerScene limits the undo depth per scene (0 means unlimited).
	MaxPerScene int
	// MinInterval coalesces records for the same scene that arrive within
	// the interval of the previous one. The earlier state is kept so a drag
	// undoes in one step.
	MinInterval time.Duration
}

// Manager records states taken before each change. Undo and Redo exchange
// the current state for a recorded one. It is safe for concurrent use.
type Manager struct {
	cfg Config
	mu  sync.Mutex
	// per-scene stacks
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// last record time per scene, for coalescing
	last map[string]time.Time
	// accounting covers undo and redo entries
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	if cfg.MinInterval < 0 {
		cfg.MinInterval = 0
	}
	return &Manager{
		cfg:  cfg,
		undo: make(map[string][]Snapshot),
		redo: make(map[string][]Snapshot),
		last: make(map[string]time.Time),
	}
}

// Record stores the state before a change. A record within MinInterval of
// the previous one for the same scene is dropped and extends the window.
// Any record clears the scene's redo stack.
func (m *Manager) Record(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dropRedoLocked(s.Scene)
	prev, seen := m.last[s.Scene]
	m.last[s.Scene] = s.TS
	if seen && len(m.undo[s.Scene]) > 0 && s.TS.Sub(prev) < m.cfg.MinInterval {
		return
	}
	m.undo[s.Scene] = append(m.undo[s.Scene], s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.Scene)
}

// Undo returns the most recent recorded state and pushes current onto the
// redo stack.
func (m *Manager) Undo(scene string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[scene]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[scene] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[scene] = append(m.redo[scene], Snapshot{Scene: scene, Blob: current, TS: time.Now()})
	m.totalBytes += len(current)
	delete(m.last, scene)
	m.enforceCapsLocked(scene)
	return s, true
}

// Redo returns the most recently undone state and pushes current back onto
// the undo stack.
func (m *Manager) Redo(scene string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[scene]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[scene] = r[:len(r)-1]
	m.totalBytes -= len(s.Blob)
	m.undo[scene] = append(m.undo[scene], Snapshot{Scene: scene, Blob: current, TS: time.Now()})
	m.totalBytes += len(current)
	delete(m.last, scene)
	m.enforceCapsLocked(scene)
	return s, true
}

// CanUndo and CanRedo report whether the stacks are non-empty.
func (m *Manager) CanUndo(scene string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[scene]) > 0
}

func (m *Manager) CanRedo(scene string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[scene]) > 0
}

// ClearScene drops both stacks of a scene to free memory.
func (m *Manager) ClearScene(scene string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[scene] {
		m.totalBytes -= len(s.Blob)
	}
	m.dropRedoLocked(scene)
	delete(m.undo, scene)
	delete(m.last, scene)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, scenes int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	scenes = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, scenes, totalSnapshots
}

func (m *Manager) dropRedoLocked(scene string) {
	for _, s := range m.redo[scene] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.redo, scene)
}

func (m *Manager) enforceCapsLocked(scene string) {
	if m.cfg.MaxPerScene > 0 {
		stack := m.undo[scene]
		if len(stack) > m.cfg.MaxPerScene {
			toDrop := len(stack) - m.cfg.MaxPerScene
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[scene] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune oldest undo entries across all scenes
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldest := ""
		found := false
		var oldestTS time.Time
		for id, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldest = id
				found = true
				oldestTS = stack[0].TS
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldest]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldest] = stack[1:]
		if len(m.undo[oldest]) == 0 {
			delete(m.undo, oldest)
		}
	}
}
