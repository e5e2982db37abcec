/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type sink struct {
	mu      sync.Mutex
	events  []map[string]any
	crashes [][]byte
}

func (s *sink) server(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		var m map[string]any
		_ = json.NewDecoder(r.Body).Decode(&m)
		s.mu.Lock()
		s.events = append(s.events, m)
		s.mu.Unlock()
	})
	mux.HandleFunc("/crash", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		s.mu.Lock()
		s.crashes = append(s.crashes, b)
		s.mu.Unlock()
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (s *sink) wait(n int) {
	for i := 0; i < 40; i++ {
		s.mu.Lock()
		got := len(s.events) + len(s.crashes)
		s.mu.Unlock()
		if got >= n {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestClient_EventAndUploadCrash(t *testing.T) {
	s := &sink{}
	srv := s.server(t)
	c := New(Config{OptIn: true, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: 2 * time.Second})
	defer c.Close()
	if !c.Enabled() {
		t.Fatalf("expected client to be enabled")
	}
	c.Event(EventSceneSaved, map[string]any{"objects": 3})
	c.Flush(context.Background())
	c.UploadCrash([]byte("STACKTRACE"))
	s.wait(2)

	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) != 1 || len(s.crashes) != 1 {
		t.Fatalf("expected one event and one crash, got %d/%d", len(s.events), len(s.crashes))
	}
	m := s.events[0]
	if m["name"] != EventSceneSaved {
		t.Fatalf("event name mismatch: %v", m["name"])
	}
	if _, ok := m["ts"].(string); !ok {
		t.Fatalf("missing ts field")
	}
	if m["objects"] != float64(3) {
		t.Fatalf("props not merged: %v", m)
	}
}

func TestSceneHelpersUseDefaultClient(t *testing.T) {
	s := &sink{}
	srv := s.server(t)
	NewDefault(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	t.Cleanup(func() { NewDefault(Config{}) })

	SceneExported("svg", 5)
	s.wait(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.events) != 1 || s.events[0]["format"] != "svg" || s.events[0]["name"] != EventSceneExported {
		t.Fatalf("unexpected events %v", s.events)
	}
}

func TestShutdownDrainsDefaultClient(t *testing.T) {
	s := &sink{}
	srv := s.server(t)
	NewDefault(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	t.Cleanup(func() { NewDefault(Config{}) })

	SceneSaved(2)
	Shutdown(context.Background())
	s.wait(1)
	s.mu.Lock()
	n := len(s.events)
	s.mu.Unlock()
	if n != 1 {
		t.Fatalf("expected the queued event to be sent before shutdown, got %d", n)
	}
	// A later call builds a fresh default client.
	if Enabled() {
		t.Fatalf("default client after shutdown should come from the (empty) environment")
	}
}

func TestEnabled_DefaultClientAndFromEnv(t *testing.T) {
	t.Setenv("GSE_TELEMETRY_OPT_IN", "true")
	t.Setenv("GSE_TELEMETRY_URL", "http://127.0.0.1:0")
	t.Setenv("GSE_CRASH_UPLOAD_URL", "")
	t.Setenv("GSE_TELEMETRY_TIMEOUT_MS", "100")

	cfg := FromEnv()
	if !cfg.OptIn || cfg.EventsURL == "" || cfg.Timeout != 100*time.Millisecond {
		t.Fatalf("FromEnv did not parse correctly: %+v", cfg)
	}
	NewDefault(cfg)
	t.Cleanup(func() { NewDefault(Config{}) })
	if !Enabled() {
		t.Fatalf("default Enabled should be true with env config")
	}
}

func TestClient_DisabledAndEmptyEventName(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	c := New(Config{OptIn: false, EventsURL: srv.URL + "/events", CrashURL: srv.URL + "/crash", Timeout: time.Second})
	defer c.Close()
	if c.Enabled() {
		t.Fatalf("expected disabled client")
	}
	c.Event("ignored", nil)
	c.UploadCrash([]byte("ignored"))

	c2 := New(Config{OptIn: true, EventsURL: srv.URL + "/events", Timeout: time.Second})
	defer c2.Close()
	c2.Event("", nil)
	c2.Flush(nil)
	time.Sleep(50 * time.Millisecond)
	if atomic.LoadInt32(&hits) != 0 {
		t.Fatalf("expected no requests")
	}
}

// An unroutable address exercises the error and debug-log paths.
func TestTelemetry_SendErrorBranches(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	defer c.Close()
	c.Event("err", map[string]any{"a": 1})
	c.Flush(context.Background())
	c.UploadCrash([]byte("oops"))
	time.Sleep(50 * time.Millisecond)
}
