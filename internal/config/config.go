/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Sync          SyncConfig    `yaml:"sync"`
	Logging       LoggingConfig `yaml:"logging"`
}

type GeneralConfig struct {
	TelemetryOptIn bool   `yaml:"telemetry_opt_in"`
	Theme          string `yaml:"theme"` // "system" | "light" | "dark"
	EnableServer   bool   `yaml:"enable_server"`
}

// CollisionConfig selects the drag collision behaviour and its colours.
type CollisionConfig struct {
	Mode         string `yaml:"mode"` // "highlight" | "off"
	HitFill      string `yaml:"hit_fill"`
	HitAccent    string `yaml:"hit_accent"`
	FallbackFill string `yaml:"fallback_fill"`
	MissAccent   string `yaml:"miss_accent"`
}

// ControlsConfig styles the selection handles of new objects.
type ControlsConfig struct {
	CornerStyle        string  `yaml:"corner_style"`
	CornerColor        string  `yaml:"corner_color"`
	TransparentCorners bool    `yaml:"transparent_corners"`
	CornerSize         float64 `yaml:"corner_size"`
}

// UndoConfig caps the history kept per scene and in total.
type UndoConfig struct {
	MaxPerScene int   `yaml:"max_per_scene"`
	MaxBytes    int64 `yaml:"max_bytes"`
	CoalesceMs  int   `yaml:"coalesce_ms"`
}

type EditorConfig struct {
	CanvasWidth     float64         `yaml:"canvas_width"`
	CanvasHeight    float64         `yaml:"canvas_height"`
	Background      string          `yaml:"background"`
	PasteOffset     float64         `yaml:"paste_offset"`
	DuplicateOffset float64         `yaml:"duplicate_offset"`
	Collision       CollisionConfig `yaml:"collision"`
	Controls        ControlsConfig  `yaml:"controls"`
	Undo            UndoConfig      `yaml:"undo"`
	BackupsKeep     int             `yaml:"backups_keep"`
	FontDir         string          `yaml:"font_dir"`
}

// SyncConfig points at the shared scene library server.
type SyncConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	TLSInsecure bool   `yaml:"tls_insecure"`
	// Token is not stored on disk; it lives in the OS keychain.
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{TelemetryOptIn: false, Theme: "system", EnableServer: false},
		Editor: EditorConfig{
			CanvasWidth:     800,
			CanvasHeight:    600,
			Background:      "white",
			PasteOffset:     10,
			DuplicateOffset: 20,
			Collision:       CollisionConfig{Mode: CollisionHighlight, HitFill: "gray", HitAccent: "red", FallbackFill: "yellow", MissAccent: "blue"},
			Controls:        ControlsConfig{CornerStyle: "circle", CornerColor: "blue", TransparentCorners: false, CornerSize: 13},
			Undo:            UndoConfig{MaxPerScene: 100, MaxBytes: 32 << 20, CoalesceMs: 500},
			BackupsKeep:     10,
		},
		Sync:    SyncConfig{BaseURL: "http://localhost:8080", TimeoutMs: 15000, TLSInsecure: false},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
	}
}

// Env var names used as overrides.
const (
	EnvSyncURL         = "GSE_SYNC_URL"
	EnvSyncTimeoutMs   = "GSE_SYNC_TIMEOUT_MS"
	EnvSyncTLSInsec    = "GSE_TLS_INSECURE"
	EnvTelemetryOptIn  = "GSE_TELEMETRY_OPT_IN"
	EnvEnableServer    = "GSE_ENABLE_SERVER"
	EnvCollision       = "GSE_COLLISION"
	EnvPasteOffset     = "GSE_PASTE_OFFSET"
	EnvDuplicateOffset = "GSE_DUPLICATE_OFFSET"
	EnvFontDir         = "GSE_FONT_DIR"
	EnvConfigPath      = "GSE_CONFIG"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "GSE_LOG_LEVEL"
	EnvLogFormat = "GSE_LOG_FORMAT"
	EnvLogSource = "GSE_LOG_SOURCE"
	EnvLogFile   = "GSE_LOG_FILE"
)

// ConfigPath returns the per-user config file path. GSE_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "GoSceneEditor")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "GoSceneEditor")
	default: // linux and others
		base = filepath.Join(os.Getenv("HOME"), ".config", "gosceneeditor")
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges
// environment overrides. The sync token comes from the keyring and is
// returned separately.
func Load() (AppConfig, string, error) {
	path, err := ConfigPath()
	if err != nil {
		return Defaults(), "", err
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return cfg, "", err
	}
	tok, _ := tokenStore.Get(keyringService, keyringToken)
	return cfg, tok, nil
}

// LoadFile reads one config file. A missing file yields the defaults; a
// malformed one is an error and the defaults are still returned.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}
	var fileCfg AppConfig
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	mergeInto(&cfg, &fileCfg)
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML and persists the token into the OS keyring (if non-empty).
func Save(cfg AppConfig, token string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if token != "" {
		if err := tokenStore.Set(keyringService, keyringToken, token); err != nil {
			return err
		}
	}
	return nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	// booleans: copy directly from src (file) so user preferences persist
	dst.General.TelemetryOptIn = src.General.TelemetryOptIn
	dst.General.EnableServer = src.General.EnableServer

	mergeEditor(&dst.Editor, &src.Editor)

	if src.Sync.BaseURL != "" {
		dst.Sync.BaseURL = src.Sync.BaseURL
	}
	if src.Sync.TimeoutMs != 0 {
		dst.Sync.TimeoutMs = src.Sync.TimeoutMs
	}
	dst.Sync.TLSInsecure = src.Sync.TLSInsecure
	// logging
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

// mergeEditor copies the non-zero editor fields.
func mergeEditor(dst, src *EditorConfig) {
	if src.CanvasWidth > 0 {
		dst.CanvasWidth = src.CanvasWidth
	}
	if src.CanvasHeight > 0 {
		dst.CanvasHeight = src.CanvasHeight
	}
	if s := strings.TrimSpace(src.Background); s != "" {
		dst.Background = s
	}
	if src.PasteOffset != 0 {
		dst.PasteOffset = src.PasteOffset
	}
	if src.DuplicateOffset != 0 {
		dst.DuplicateOffset = src.DuplicateOffset
	}
	c := src.Collision
	if m := strings.ToLower(strings.TrimSpace(c.Mode)); m != "" {
		dst.Collision.Mode = m
	}
	if c.HitFill != "" {
		dst.Collision.HitFill = c.HitFill
	}
	if c.HitAccent != "" {
		dst.Collision.HitAccent = c.HitAccent
	}
	if c.FallbackFill != "" {
		dst.Collision.FallbackFill = c.FallbackFill
	}
	if c.MissAccent != "" {
		dst.Collision.MissAccent = c.MissAccent
	}
	if src.Controls.CornerStyle != "" {
		dst.Controls.CornerStyle = src.Controls.CornerStyle
	}
	if src.Controls.CornerColor != "" {
		dst.Controls.CornerColor = src.Controls.CornerColor
	}
	if src.Controls.CornerSize > 0 {
		dst.Controls.CornerSize = src.Controls.CornerSize
	}
	dst.Controls.TransparentCorners = src.Controls.TransparentCorners
	if src.Undo.MaxPerScene > 0 {
		dst.Undo.MaxPerScene = src.Undo.MaxPerScene
	}
	if src.Undo.MaxBytes > 0 {
		dst.Undo.MaxBytes = src.Undo.MaxBytes
	}
	if src.Undo.CoalesceMs > 0 {
		dst.Undo.CoalesceMs = src.Undo.CoalesceMs
	}
	if src.BackupsKeep > 0 {
		dst.BackupsKeep = src.BackupsKeep
	}
	if s := strings.TrimSpace(src.FontDir); s != "" {
		dst.FontDir = s
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvSyncURL)); v != "" {
		cfg.Sync.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvSyncTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Sync.TimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSyncTLSInsec)); v != "" {
		cfg.Sync.TLSInsecure = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvTelemetryOptIn)); v != "" {
		cfg.General.TelemetryOptIn = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvEnableServer)); v != "" {
		cfg.General.EnableServer = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvCollision)); v != "" {
		if truthy(v) {
			cfg.Editor.Collision.Mode = CollisionHighlight
		} else {
			cfg.Editor.Collision.Mode = CollisionOff
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvPasteOffset)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Editor.PasteOffset = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvDuplicateOffset)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Editor.DuplicateOffset = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvFontDir)); v != "" {
		cfg.Editor.FontDir = v
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"sync.base_url":            EnvSyncURL,
	"sync.timeout_ms":          EnvSyncTimeoutMs,
	"sync.tls_insecure":        EnvSyncTLSInsec,
	"general.telemetry_opt_in": EnvTelemetryOptIn,
	"general.enable_server":    EnvEnableServer,
	"editor.collision.mode":    EnvCollision,
	"editor.paste_offset":      EnvPasteOffset,
	"editor.duplicate_offset":  EnvDuplicateOffset,
	"editor.font_dir":          EnvFontDir,
	"logging.level":            EnvLogLevel,
	"logging.format":           EnvLogFormat,
	"logging.source":           EnvLogSource,
	"logging.file":             EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	name, ok := envKeys[key]
	if !ok || os.Getenv(name) == "" {
		return "", false
	}
	return name, true
}

// Timeout returns the sync timeout, falling back to the default for non-positive values.
func (s SyncConfig) Timeout() time.Duration {
	if s.TimeoutMs <= 0 {
		return time.Duration(Defaults().Sync.TimeoutMs) * time.Millisecond
	}
	return time.Duration(s.TimeoutMs) * time.Millisecond
}

// Collision modes.
const (
	CollisionHighlight = "highlight"
	CollisionOff       = "off"
)

// Enabled reports whether drag collision highlighting is on.
func (c CollisionConfig) Enabled() bool { return c.Mode != CollisionOff }

// CoalesceWindow returns the undo coalescing window.
func (u UndoConfig) CoalesceWindow() time.Duration {
	return time.Duration(u.CoalesceMs) * time.Millisecond
}
