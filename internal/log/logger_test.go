/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func lastJSONLine(t *testing.T, path string) map[string]any {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open log file: %v", err)
	}
	defer f.Close()
	var last string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if s := strings.TrimSpace(sc.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines in %s", path)
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

// The rotating file sink receives JSON records with the static attributes,
// the logger attributes and the context tags.
func TestInitWritesJSONFile(t *testing.T) {
	// os.TempDir rather than t.TempDir: lumberjack keeps the handle open.
	fpath := filepath.Join(os.TempDir(), fmt.Sprintf("gse_log_%d.json", time.Now().UnixNano()))
	Init(Options{Level: "debug", Format: "json", File: fpath})
	t.Cleanup(func() { Init(Options{}) })

	l := WithOperation(WithComponent("testcomp"), "op1")
	ctx := ContextWithScene(context.Background(), "poster.json")
	l.InfoContext(ctx, "hello world", slog.String("k", "v"))

	m := lastJSONLine(t, fpath)
	if m["app"] != AppName {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	checks := map[string]string{"component": "testcomp", "op": "op1", "msg": "hello world", "k": "v", "scene": "poster.json", "level": "INFO"}
	for k, want := range checks {
		if m[k] != want {
			t.Fatalf("%s = %v, want %q", k, m[k], want)
		}
	}

	l.Debug("debug line")
	if m := lastJSONLine(t, fpath); m["msg"] != "debug line" {
		t.Fatalf("debug record not written: %v", m)
	}
}
