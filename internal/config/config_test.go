/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type memTokens map[string]string

func (m memTokens) Get(service, key string) (string, error) { return m[service+"/"+key], nil }
func (m memTokens) Set(service, key, value string) error {
	m[service+"/"+key] = value
	return nil
}
func (m memTokens) Delete(service, key string) error {
	delete(m, service+"/"+key)
	return nil
}

// isolate points the config path into a temp dir and stubs the keyring.
func isolate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	setenv(t, EnvConfigPath, path)
	old := tokenStore
	tokenStore = memTokens{}
	t.Cleanup(func() { tokenStore = old })
	return path
}

func setenv(t *testing.T, key, val string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Setenv(key, val)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func TestEnvOverridesSyncURL(t *testing.T) {
	isolate(t)
	setenv(t, EnvSyncURL, "https://example.test:8443")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got, want := cfg.Sync.BaseURL, "https://example.test:8443"; got != want {
		t.Fatalf("Sync.BaseURL = %q, want %q", got, want)
	}
	if name, ok := EnvOverrideFor("sync.base_url"); !ok || name != EnvSyncURL {
		t.Fatalf("EnvOverrideFor = %q,%v", name, ok)
	}
}

func TestEnvOverridesTelemetry(t *testing.T) {
	isolate(t)
	setenv(t, EnvTelemetryOptIn, "true")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !cfg.General.TelemetryOptIn {
		t.Fatalf("General.TelemetryOptIn expected true from env override")
	}
}

func TestDefaultsEditor(t *testing.T) {
	e := Defaults().Editor
	if e.PasteOffset != 10 || e.DuplicateOffset != 20 {
		t.Fatalf("offsets = %v/%v", e.PasteOffset, e.DuplicateOffset)
	}
	if !e.Collision.Enabled() || e.Collision.HitFill != "gray" || e.Collision.MissAccent != "blue" {
		t.Fatalf("collision defaults: %#v", e.Collision)
	}
	if e.Controls.CornerStyle != "circle" || e.Controls.CornerColor != "blue" || e.Controls.TransparentCorners {
		t.Fatalf("controls defaults: %#v", e.Controls)
	}
}

func TestMergeIncludesEnableServer(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.General.EnableServer = true
	mergeInto(&dst, &src)
	if !dst.General.EnableServer {
		t.Fatalf("EnableServer was not merged from file config")
	}
}

func TestMergeIncludesLogging(t *testing.T) {
	dst := Defaults()
	src := Defaults()
	src.Logging.Level = "debug"
	src.Logging.Format = "json"
	src.Logging.Source = true
	src.Logging.File = "/tmp/gse.log"
	mergeInto(&dst, &src)
	if dst.Logging.Level != "debug" || dst.Logging.Format != "json" || !dst.Logging.Source || dst.Logging.File != "/tmp/gse.log" {
		t.Fatalf("logging fields not merged correctly: %#v", dst.Logging)
	}
}

func TestLoadFileMergesEditorSection(t *testing.T) {
	path := isolate(t)
	yml := []byte("editor:\n  paste_offset: 5\n  collision:\n    mode: \"off\"\n  controls:\n    corner_color: green\n")
	if err := os.WriteFile(path, yml, 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Editor.PasteOffset != 5 {
		t.Fatalf("paste offset = %v", cfg.Editor.PasteOffset)
	}
	if cfg.Editor.DuplicateOffset != 20 {
		t.Fatalf("duplicate offset default lost: %v", cfg.Editor.DuplicateOffset)
	}
	if cfg.Editor.Collision.Enabled() {
		t.Fatalf("collision should be off")
	}
	if cfg.Editor.Collision.HitFill != "gray" {
		t.Fatalf("hit fill default lost: %q", cfg.Editor.Collision.HitFill)
	}
	if cfg.Editor.Controls.CornerColor != "green" || cfg.Editor.Controls.CornerStyle != "circle" {
		t.Fatalf("controls = %#v", cfg.Editor.Controls)
	}
}

func TestLoadFileMalformed(t *testing.T) {
	path := isolate(t)
	if err := os.WriteFile(path, []byte("editor: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFile(path)
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if cfg.Editor.PasteOffset != 10 {
		t.Fatalf("defaults not returned on error")
	}
}

func TestEnvOverridesLogging(t *testing.T) {
	isolate(t)
	setenv(t, EnvLogLevel, "error")
	setenv(t, EnvLogFormat, "json")
	setenv(t, EnvLogSource, "1")
	setenv(t, EnvLogFile, "/var/tmp/gse.log")
	cfg, _, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Logging.Level != "error" || cfg.Logging.Format != "json" || !cfg.Logging.Source || cfg.Logging.File != "/var/tmp/gse.log" {
		t.Fatalf("env overrides not applied to logging: %#v", cfg.Logging)
	}
}

func TestEnvCollisionOff(t *testing.T) {
	isolate(t)
	setenv(t, EnvCollision, "0")
	cfg, _, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Editor.Collision.Enabled() {
		t.Fatalf("GSE_COLLISION=0 should disable collision")
	}
}

func TestSaveStoresTokenInKeyring(t *testing.T) {
	path := isolate(t)
	cfg := Defaults()
	cfg.Sync.BaseURL = "https://lib.example"
	if err := Save(cfg, "secret"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "" || strings.Contains(string(data), "secret") {
		t.Fatalf("token must not be written to the file: %s", data)
	}
	got, tok, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if got.Sync.BaseURL != "https://lib.example" || tok != "secret" {
		t.Fatalf("round trip: url=%q tok=%q", got.Sync.BaseURL, tok)
	}
	if err := SetSyncToken(""); err != nil {
		t.Fatal(err)
	}
	if tok, _ := SyncToken(); tok != "" {
		t.Fatalf("token not removed")
	}
}

func TestSyncTimeout(t *testing.T) {
	if got := (SyncConfig{}).Timeout(); got.Milliseconds() != 15000 {
		t.Fatalf("default timeout = %v", got)
	}
	if got := (SyncConfig{TimeoutMs: 250}).Timeout(); got.Milliseconds() != 250 {
		t.Fatalf("timeout = %v", got)
	}
}
