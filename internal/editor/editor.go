/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor is the input surface over the scene store. Hosts feed it
// pointer and key events; it drives selection, drag, collision, the
// context menu, clipboard, grouping and history, and reports changes to
// observers once each call has finished.
package editor

import (
	"errors"
	"image"
	"log/slog"
	"sync"
	"time"

	"gosceneeditor/internal/clipboard"
	"gosceneeditor/internal/collision"
	"gosceneeditor/internal/config"
	"gosceneeditor/internal/contextmenu"
	"gosceneeditor/internal/grouping"
	"gosceneeditor/internal/ids"
	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/media"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/storage"
	"gosceneeditor/internal/textlayout"
	"gosceneeditor/internal/undo"
)

// Observer receives editor notifications. Calls happen after the editor
// lock is released, so observers may call back into the editor.
type Observer interface {
	ObjectsChanged(objects []*scene.Object)
	SelectionChanged(primary *scene.Object, layer int)
	MenuStateChanged(state contextmenu.State)
}

// Options configures a new editor. Zero values take the config defaults.
type Options struct {
	Editor   config.EditorConfig
	Provider textlayout.Provider
	// Now is the clock used for history and autosave stamps.
	Now func() time.Time
}

// FromConfig builds options from the editor section, loading fonts from
// FontDir when it is set.
func FromConfig(ec config.EditorConfig) Options {
	opt := Options{Editor: ec}
	if ec.FontDir != "" {
		lib := textlayout.NewFontLibrary()
		if _, err := lib.LoadDir(ec.FontDir); err != nil {
			applog.WithComponent("editor").Warn("font dir not loaded", slog.String("dir", ec.FontDir), slog.Any("err", err))
		} else {
			opt.Provider = textlayout.OTProvider{Lib: lib, Fallback: textlayout.BasicProvider{}}
		}
	}
	return opt
}

type eventKind int

const (
	evObjects eventKind = iota
	evSelection
	evMenu
)

type event struct {
	kind    eventKind
	objects []*scene.Object
	primary *scene.Object
	layer   int
	menu    contextmenu.State
}

// Editor owns one open scene.
type Editor struct {
	mu sync.Mutex

	store     *scene.Store
	factory   *scene.Factory
	menu      *contextmenu.Resolver
	clip      *clipboard.Controller
	groups    *grouping.Controller
	collide   *collision.Monitor
	history   *undo.Manager
	loader    *media.Loader
	cfg       config.EditorConfig
	now       func() time.Time
	log       *slog.Logger
	observers map[int]Observer
	nextObs   int
	pending   []event

	sh         *storage.SceneHandle
	id         string
	background string
	width      float64
	height     float64
	dirty      bool
	drag       *dragState
	// decoded pixels by source, reattached after history restores
	images map[string]image.Image
}

// New returns an editor with an empty canvas.
func New(opt Options) *Editor {
	ec := mergeDefaults(opt.Editor)
	now := opt.Now
	if now == nil {
		now = time.Now
	}
	e := &Editor{
		store:      scene.NewStore(),
		factory:    scene.NewFactory(controlStyle(ec.Controls), opt.Provider),
		groups:     grouping.New(),
		collide:    newMonitor(ec.Collision),
		history:    newHistory(ec.Undo),
		loader:     media.NewLoader(0),
		cfg:        ec,
		now:        now,
		log:        applog.WithComponent("editor"),
		observers:  map[int]Observer{},
		id:         ids.NewSceneID(),
		background: ec.Background,
		width:      ec.CanvasWidth,
		height:     ec.CanvasHeight,
		images:     map[string]image.Image{},
	}
	e.menu = contextmenu.New(contextmenu.DefaultLayout, func(s contextmenu.State) {
		e.pending = append(e.pending, event{kind: evMenu, menu: s})
	})
	e.clip = clipboard.New(e.menu, ec.PasteOffset, ec.DuplicateOffset)
	e.store.Subscribe(scene.ObserverFuncs{
		OnObjects: func(objs []*scene.Object) {
			e.dirty = true
			e.pending = append(e.pending, event{kind: evObjects, objects: objs})
		},
		OnSelection: func(primary *scene.Object, layer int) {
			e.pending = append(e.pending, event{kind: evSelection, primary: primary, layer: layer})
		},
	})
	return e
}

func mergeDefaults(ec config.EditorConfig) config.EditorConfig {
	def := config.Defaults().Editor
	if ec.CanvasWidth <= 0 {
		ec.CanvasWidth = def.CanvasWidth
	}
	if ec.CanvasHeight <= 0 {
		ec.CanvasHeight = def.CanvasHeight
	}
	if ec.Background == "" {
		ec.Background = def.Background
	}
	if ec.Controls.CornerStyle == "" {
		ec.Controls = def.Controls
	}
	if ec.Collision.Mode == "" {
		ec.Collision.Mode = def.Collision.Mode
	}
	if ec.Undo.MaxPerScene <= 0 && ec.Undo.MaxBytes <= 0 {
		ec.Undo = def.Undo
	}
	if ec.BackupsKeep <= 0 {
		ec.BackupsKeep = def.BackupsKeep
	}
	return ec
}

func controlStyle(c config.ControlsConfig) scene.ControlStyle {
	return scene.ControlStyle{
		CornerStyle:        c.CornerStyle,
		CornerColor:        c.CornerColor,
		TransparentCorners: c.TransparentCorners,
		CornerSize:         c.CornerSize,
	}
}

func newMonitor(c config.CollisionConfig) *collision.Monitor {
	m := collision.New(collision.Colors{
		HitFill:      c.HitFill,
		HitAccent:    c.HitAccent,
		FallbackFill: c.FallbackFill,
		MissAccent:   c.MissAccent,
	})
	m.Enabled = c.Enabled()
	return m
}

func newHistory(u config.UndoConfig) *undo.Manager {
	return undo.NewManager(undo.Config{MaxBytes: int(u.MaxBytes), MaxPerScene: u.MaxPerScene, MinInterval: u.CoalesceWindow()})
}

// Subscribe registers o and returns a function that removes it.
func (e *Editor) Subscribe(o Observer) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextObs
	e.nextObs++
	e.observers[id] = o
	return func() {
		e.mu.Lock()
		delete(e.observers, id)
		e.mu.Unlock()
	}
}

// do runs fn under the lock, then delivers the events it produced. Errors
// are logged with the operation name.
func (e *Editor) do(op string, fn func() error) error {
	e.mu.Lock()
	err := fn()
	evs := e.pending
	e.pending = nil
	obs := make([]Observer, 0, len(e.observers))
	for i := 0; i < e.nextObs; i++ {
		if o, ok := e.observers[i]; ok {
			obs = append(obs, o)
		}
	}
	e.mu.Unlock()

	if err != nil && !errors.Is(err, errNoop) {
		e.log.Warn("operation failed", slog.String("op", op), slog.Any("err", err))
	}
	for _, ev := range evs {
		for _, o := range obs {
			switch ev.kind {
			case evObjects:
				o.ObjectsChanged(ev.objects)
			case evSelection:
				o.SelectionChanged(ev.primary, ev.layer)
			case evMenu:
				o.MenuStateChanged(ev.menu)
			}
		}
	}
	if errors.Is(err, errNoop) {
		return nil
	}
	return err
}

// errNoop ends an operation early without reporting a failure.
var errNoop = errors.New("noop")

// Objects returns the scene objects bottom first.
func (e *Editor) Objects() []*scene.Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Objects()
}

// Layers returns the objects in display order, topmost first.
func (e *Editor) Layers() []*scene.Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Layers()
}

// Selection returns the selected objects.
func (e *Editor) Selection() []*scene.Object {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Selection()
}

// ActiveLayer returns the z-index of the sole selected object.
func (e *Editor) ActiveLayer() (int, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.ActiveLayer()
}

// Menu returns the context menu state.
func (e *Editor) Menu() contextmenu.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.menu.State()
}

// Background returns the canvas background colour.
func (e *Editor) Background() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.background
}

// CanvasSize returns the canvas width and height.
func (e *Editor) CanvasSize() (w, h float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.width, e.height
}

// Dirty reports whether the objects changed since the last load or save.
func (e *Editor) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// ClipboardHasContent reports whether Paste would add an object.
func (e *Editor) ClipboardHasContent() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.clip.HasContent()
}

// Handle returns the scene file handle, or nil for an unsaved scene.
func (e *Editor) Handle() *storage.SceneHandle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sh
}

// Render draws the scene onto s, bottom first.
func (e *Editor) Render(s scene.Surface) {
	e.mu.Lock()
	defer e.mu.Unlock()
	scene.RenderAll(s, e.store.Objects())
}

// ApplyConfig re-applies the editor section of a reloaded config. History
// caps keep their start-up values.
func (e *Editor) ApplyConfig(ec config.EditorConfig) {
	ec = mergeDefaults(ec)
	_ = e.do("apply-config", func() error {
		dragging := e.collide.Dragging()
		e.collide = newMonitor(ec.Collision)
		if dragging != nil {
			e.collide.BeginDrag(dragging)
		}
		e.clip.SetOffsets(ec.PasteOffset, ec.DuplicateOffset)
		e.factory.Style = controlStyle(ec.Controls)
		ec.Undo = e.cfg.Undo
		e.cfg = ec
		e.log.Info("config applied", slog.String("collision", ec.Collision.Mode))
		return nil
	})
}

// document builds the persisted form of the current state. Callers hold mu.
func (e *Editor) document() scene.Document {
	d := scene.NewDocument()
	d.ID = e.id
	d.Background = e.background
	d.Width, d.Height = e.width, e.height
	d.Objects = e.store.Objects()
	return d
}

// Document returns the current state as a document.
func (e *Editor) Document() scene.Document {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.document()
}

// rememberPixels records decoded image data of o and its children.
func (e *Editor) rememberPixels(o *scene.Object) {
	if o.Kind == scene.KindImage && o.Src != "" && o.Pixels != nil {
		e.images[o.Src] = o.Pixels
	}
	for _, ch := range o.Children {
		e.rememberPixels(ch)
	}
}

// reattachPixels restores image data dropped by serialization.
func (e *Editor) reattachPixels(o *scene.Object) {
	if o.Kind == scene.KindImage && o.Pixels == nil {
		o.Pixels = e.images[o.Src]
	}
	for _, ch := range o.Children {
		e.reattachPixels(ch)
	}
}
