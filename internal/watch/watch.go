/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package watch reloads a file when it changes on disk. The editor uses it
// to re-apply the config file to a running session.
package watch

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "gosceneeditor/internal/log"
)

// DefaultDebounce collapses the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Watcher calls OnChange after the watched file settles. The directory is
// watched, not the file, so atomic rename saves are seen.
type Watcher struct {
	fw       *fsnotify.Watcher
	path     string
	debounce time.Duration
	onChange func() error
	log      *slog.Logger

	stop    chan struct{}
	stopped chan struct{}
	mu      sync.Mutex
	running bool
}

// New prepares a watcher for path. Call Start to begin delivering events.
func New(path string, debounce time.Duration, onChange func() error) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return &Watcher{
		fw:       fw,
		path:     path,
		debounce: debounce,
		onChange: onChange,
		log:      applog.WithComponent("watch").With(slog.String("path", path)),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}, nil
}

// Start runs the event loop in a goroutine. Repeated calls are no-ops.
func (w *Watcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return
	}
	w.running = true
	go w.loop()
}

// Stop ends the loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		_ = w.fw.Close()
		return
	}
	w.running = false
	w.mu.Unlock()
	close(w.stop)
	<-w.stopped
}

func (w *Watcher) loop() {
	defer close(w.stopped)
	defer func() { _ = w.fw.Close() }()

	abs, _ := filepath.Abs(w.path)
	base := filepath.Base(w.path)

	var timer *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			evAbs, _ := filepath.Abs(ev.Name)
			if filepath.Base(ev.Name) != base && evAbs != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case <-fire:
			timer, fire = nil, nil
			if w.onChange == nil {
				continue
			}
			if err := w.onChange(); err != nil {
				w.log.Warn("reload failed", slog.Any("err", err))
			} else {
				w.log.Debug("reloaded")
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", slog.Any("err", err))
		}
	}
}
