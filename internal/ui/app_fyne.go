//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	fstorage "fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"

	"gosceneeditor/internal/config"
	"gosceneeditor/internal/contextmenu"
	"gosceneeditor/internal/crash"
	"gosceneeditor/internal/editor"
	"gosceneeditor/internal/export"
	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/vector"
	"gosceneeditor/internal/version"
	"gosceneeditor/internal/watch"
)

const autosaveEvery = time.Minute

// Run starts the Fyne-based desktop editor. scenePath, when set, is opened immediately.
func Run(scenePath string) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI")

	cfg, _, err := config.Load()
	if err != nil {
		l.Warn("config load failed; using defaults", slog.Any("err", err))
	}
	cfgPath, _ := config.ConfigPath()
	opt := editor.FromConfig(cfg.Editor)
	ed := editor.New(opt)
	if scenePath != "" {
		if err := ed.Open(scenePath); err != nil {
			return fmt.Errorf("open %s: %w", scenePath, err)
		}
	}
	defer crash.Recover(ed.Handle())

	fyneApp := app.NewWithID("gosceneeditor")
	w := fyneApp.NewWindow("Go Scene Editor")
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := max(prefs.IntWithFallback("window.width", 1280), 900)
	winH := max(prefs.IntWithFallback("window.height", 800), 600)
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	report := func(op string, err error) bool {
		if err == nil {
			return false
		}
		l.Warn(op+" failed", slog.Any("err", err))
		status.SetText(op + ": " + err.Error())
		return true
	}

	sc := NewSceneCanvas(ed, export.Options{Provider: opt.Provider})
	sc.OnError = func(err error) { report("canvas", err) }

	// Layer list (right), top layer first
	var layers []*scene.Object
	layerList := widget.NewList(
		func() int { return len(layers) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			if i >= 0 && int(i) < len(layers) {
				o.(*widget.Label).SetText(LayerLabel(layers[i]))
			} else {
				o.(*widget.Label).SetText("")
			}
		},
	)
	syncing := false
	selectedLayer := -1
	layerList.OnSelected = func(id widget.ListItemID) {
		selectedLayer = int(id)
		if syncing {
			return
		}
		report("select layer", ed.SelectLayer(int(id)))
	}
	moveLayer := func(delta int) {
		if selectedLayer < 0 {
			return
		}
		to := selectedLayer + delta
		if to < 0 || to >= len(layers) {
			return
		}
		report("reorder layers", ed.ReorderLayers(selectedLayer, to))
	}
	layerUp := widget.NewButton("Up", func() { moveLayer(-1) })
	layerDown := widget.NewButton("Down", func() { moveLayer(1) })

	// Properties panel
	fillEntry := widget.NewEntry()
	fillEntry.SetPlaceHolder("fill, e.g. #ff0000")
	fillEntry.OnSubmitted = func(s string) { report("fill", ed.SetProperty(editor.PropFill, s)) }
	strokeEntry := widget.NewEntry()
	strokeEntry.SetPlaceHolder("stroke")
	strokeEntry.OnSubmitted = func(s string) { report("stroke", ed.SetProperty(editor.PropStroke, s)) }
	textEntry := widget.NewMultiLineEntry()
	textEntry.SetPlaceHolder("text")
	textEntry.OnSubmitted = func(s string) { report("text", ed.SetProperty(editor.PropText, s)) }
	strokeWidth := widget.NewSlider(0, 20)
	strokeWidth.Step = 1
	strokeWidth.OnChangeEnded = func(v float64) {
		if !syncing {
			report("stroke width", ed.SetProperty(editor.PropStrokeWidth, v))
		}
	}
	opacity := widget.NewSlider(0, 1)
	opacity.Step = 0.05
	opacity.OnChangeEnded = func(v float64) {
		if !syncing {
			report("opacity", ed.SetProperty(editor.PropOpacity, v))
		}
	}
	angleEntry := widget.NewEntry()
	angleEntry.SetPlaceHolder("angle")
	angleEntry.OnSubmitted = func(s string) {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if report("angle", err) {
			return
		}
		report("angle", ed.SetProperty(editor.PropAngle, v))
	}
	strokeUniform := widget.NewCheck("Stroke uniform", func(v bool) {
		if !syncing {
			report("stroke uniform", ed.SetProperty(editor.PropStrokeUniform, v))
		}
	})
	lockOrder := []editor.Lock{editor.LockMovementX, editor.LockMovementY, editor.LockScalingX, editor.LockScalingY, editor.LockRotation, editor.LockScalingFlip}
	lockChecks := map[editor.Lock]*widget.Check{}
	lockBox := container.NewVBox()
	for _, lk := range lockOrder {
		c := widget.NewCheck(string(lk), func(v bool) {
			if syncing {
				return
			}
			got, err := ed.ToggleLock(lk)
			if !report("toggle lock", err) && got != v {
				status.SetText(fmt.Sprintf("%s is %v", lk, got))
			}
		})
		lockChecks[lk] = c
		lockBox.Add(c)
	}
	originX := widget.NewSelect(editor.OriginChoices, nil)
	originY := widget.NewSelect(editor.OriginChoices, nil)
	applyOrigin := func(string) {
		if syncing || originX.Selected == "" || originY.Selected == "" {
			return
		}
		report("origin", ed.SetOrigin(originX.Selected, originY.Selected))
	}
	originX.OnChanged = applyOrigin
	originY.OnChanged = applyOrigin

	props := container.NewVBox(
		widget.NewLabel("Properties"),
		fillEntry, strokeEntry, textEntry, angleEntry,
		widget.NewLabel("Stroke width"), strokeWidth,
		widget.NewLabel("Opacity"), opacity,
		strokeUniform,
		widget.NewLabel("Origin X / Y"), container.NewGridWithColumns(2, originX, originY),
		widget.NewLabel("Locks"), lockBox,
	)

	syncProps := func(o *scene.Object) {
		syncing = true
		defer func() { syncing = false }()
		if o == nil {
			fillEntry.SetText("")
			strokeEntry.SetText("")
			textEntry.SetText("")
			angleEntry.SetText("")
			props.Hide()
			return
		}
		props.Show()
		fillEntry.SetText(o.Fill)
		strokeEntry.SetText(o.Stroke)
		angleEntry.SetText(strconv.FormatFloat(o.Angle, 'f', -1, 64))
		if o.Text != nil {
			textEntry.SetText(o.Text.Text)
			textEntry.Show()
		} else {
			textEntry.Hide()
		}
		strokeWidth.SetValue(o.StrokeWidth)
		opacity.SetValue(o.Opacity)
		strokeUniform.SetChecked(o.StrokeUniform)
		for lk, c := range lockChecks {
			c.SetChecked(lockValue(o, lk))
		}
		originX.SetSelected(o.OriginX)
		originY.SetSelected(o.OriginY)
	}

	refreshLayers := func() {
		layers = ed.Layers()
		layerList.Refresh()
	}
	syncSelection := func(primary *scene.Object, layer int) {
		syncing = true
		if layer >= 0 {
			layerList.Select(layer)
		} else {
			layerList.UnselectAll()
			selectedLayer = -1
		}
		syncing = false
		syncProps(primary)
	}
	ed.Subscribe(observerFuncs{
		objects: func([]*scene.Object) {
			fyne.Do(func() {
				refreshLayers()
				sc.Refresh()
				sel := ed.Selection()
				if len(sel) > 0 {
					syncProps(sel[0])
				}
			})
		},
		selection: func(primary *scene.Object, layer int) {
			fyne.Do(func() {
				syncSelection(primary, layer)
				sc.Refresh()
			})
		},
		menu: func(contextmenu.State) { fyne.Do(sc.Refresh) },
	})

	// Palette (left)
	palette := container.NewVBox(widget.NewLabel("Add"))
	for _, name := range scene.PaletteNames() {
		palette.Add(widget.NewButton(name, func() {
			if _, err := ed.AddFromPalette(name); !report("add "+name, err) {
				status.SetText("Added " + name)
			}
		}))
	}

	recent := loadRecent(prefs)
	remember := func(path string) {
		recent = pushRecent(recent, path)
		saveRecent(prefs, recent)
		w.SetTitle("Go Scene Editor - " + filepath.Base(path))
	}
	if sh := ed.Handle(); sh != nil {
		remember(sh.Path)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	jsonFilter := fstorage.NewExtensionFileFilter([]string{".json"})
	openFile := func(dir fyne.URI, exts []string, fn func(path string)) {
		d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if rc == nil {
				return
			}
			path := rc.URI().Path()
			_ = rc.Close()
			fn(path)
		}, w)
		if len(exts) > 0 {
			d.SetFilter(fstorage.NewExtensionFileFilter(exts))
		}
		if dir != nil {
			if lister, err := fstorage.ListerForURI(dir); err == nil {
				d.SetLocation(lister)
			}
		}
		d.Show()
	}
	saveFile := func(name string, fn func(path string)) {
		d := dialog.NewFileSave(func(wc fyne.URIWriteCloser, err error) {
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			if wc == nil {
				return
			}
			path := wc.URI().Path()
			_ = wc.Close()
			fn(path)
		}, w)
		d.SetFileName(name)
		d.Show()
	}
	lastDir := func() fyne.URI {
		if len(recent) == 0 {
			return nil
		}
		return fstorage.NewFileURI(filepath.Dir(recent[0]))
	}

	doOpen := func(path string) {
		if report("open", ed.Open(path)) {
			return
		}
		remember(path)
		status.SetText("Opened " + path)
	}
	doSaveAs := func() {
		saveFile("scene.json", func(path string) {
			if report("save", ed.SaveAs(path)) {
				return
			}
			remember(path)
			status.SetText("Saved " + path)
		})
	}
	doSave := func() {
		err := ed.Save()
		if errors.Is(err, editor.ErrNoScenePath) {
			doSaveAs()
			return
		}
		if !report("save", err) {
			status.SetText("Saved")
		}
	}

	recentItems := func() []*fyne.MenuItem {
		items := make([]*fyne.MenuItem, 0, len(recent))
		for _, p := range recent {
			items = append(items, fyne.NewMenuItem(p, func() { doOpen(p) }))
		}
		return items
	}
	openRecent := fyne.NewMenuItem("Open Recent", nil)
	openRecent.ChildMenu = fyne.NewMenu("", recentItems()...)

	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("New", func() {
			report("new", ed.Load(scene.NewDocument(), nil))
			w.SetTitle("Go Scene Editor")
		}),
		fyne.NewMenuItem("Open…", func() {
			d := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
				if err != nil || rc == nil {
					return
				}
				path := rc.URI().Path()
				_ = rc.Close()
				doOpen(path)
			}, w)
			d.SetFilter(jsonFilter)
			d.Show()
		}),
		openRecent,
		fyne.NewMenuItem("Save", doSave),
		fyne.NewMenuItem("Save As…", doSaveAs),
		fyne.NewMenuItem("Restore Autosave", func() {
			ok, err := ed.RestoreAutosave(ctx)
			if report("restore autosave", err) {
				return
			}
			if !ok {
				status.SetText("No autosave for this scene")
				return
			}
			status.SetText("Autosave restored")
		}),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Export…", func() {
			saveFile("scene.png", func(path string) {
				if !report("export", ed.Export(path)) {
					status.SetText("Exported " + path)
				}
			})
		}),
		fyne.NewMenuItem("Import SVG…", func() {
			openFile(lastDir(), []string{".svg"}, func(path string) {
				f, err := os.Open(path)
				if report("import svg", err) {
					return
				}
				defer f.Close()
				if _, err := ed.ImportSVG(f); !report("import svg", err) {
					status.SetText("Imported " + filepath.Base(path))
				}
			})
		}),
		fyne.NewMenuItem("Load Polygons…", func() {
			openFile(lastDir(), []string{".json"}, func(path string) {
				data, err := os.ReadFile(path)
				if report("load polygons", err) {
					return
				}
				if n, err := ed.LoadPolygons(data); !report("load polygons", err) {
					status.SetText(fmt.Sprintf("Loaded %d polygons", n))
				}
			})
		}),
		fyne.NewMenuItem("Place Image…", func() {
			openFile(lastDir(), []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".webp"}, func(path string) {
				status.SetText("Loading " + filepath.Base(path) + "…")
				ed.LoadImage(ctx, path, func(_ *scene.Object, err error) {
					fyne.Do(func() {
						if !report("place image", err) {
							status.SetText("Placed " + filepath.Base(path))
						}
					})
				})
			})
		}),
		fyne.NewMenuItem("Run Script…", func() {
			openFile(lastDir(), []string{".star"}, func(path string) {
				src, err := os.ReadFile(path)
				if report("script", err) {
					return
				}
				_, err = ed.RunScript(ctx, filepath.Base(path), string(src), func(s string) {
					l.Info("script output", slog.String("line", s))
				})
				if !report("script", err) {
					status.SetText("Ran " + filepath.Base(path))
				}
			})
		}),
	)
	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", func() { _, err := ed.Undo(); report("undo", err) }),
		fyne.NewMenuItem("Redo", func() { _, err := ed.Redo(); report("redo", err) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Delete", func() { report("delete", ed.KeyDelete()) }),
		fyne.NewMenuItem("Group", func() { _, err := ed.Group(); report("group", err) }),
		fyne.NewMenuItem("Ungroup", func() { _, err := ed.Ungroup(); report("ungroup", err) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Bring Forward", func() { report("bring forward", ed.BringForward()) }),
		fyne.NewMenuItem("Send Backwards", func() { report("send backwards", ed.SendBackwards()) }),
		fyne.NewMenuItem("Bring to Front", func() { report("bring to front", ed.BringToFront()) }),
		fyne.NewMenuItem("Send to Back", func() { report("send to back", ed.SendToBack()) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Clear Canvas", func() {
			dialog.ShowConfirm("Clear canvas", "Remove every object?", func(ok bool) {
				if ok {
					ed.ClearCanvas()
				}
			}, w)
		}),
	)
	helpMenu := fyne.NewMenu("Help",
		fyne.NewMenuItem("About", func() {
			dialog.ShowInformation("About", applog.AppName+" "+version.String(), w)
		}),
	)
	w.SetMainMenu(fyne.NewMainMenu(fileMenu, editMenu, helpMenu))

	shortcut := func(key fyne.KeyName, fn func()) {
		w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: key, Modifier: fyne.KeyModifierShortcutDefault}, func(fyne.Shortcut) { fn() })
	}
	shortcut(fyne.KeyZ, func() { _, err := ed.Undo(); report("undo", err) })
	shortcut(fyne.KeyY, func() { _, err := ed.Redo(); report("redo", err) })
	shortcut(fyne.KeyS, doSave)
	shortcut(fyne.KeyG, func() { _, err := ed.Group(); report("group", err) })

	left := container.NewVScroll(palette)
	right := container.NewVScroll(container.NewVBox(
		widget.NewLabel("Layers"),
		container.NewGridWithColumns(2, layerUp, layerDown),
		container.NewGridWrap(fyne.NewSize(220, 240), layerList),
		widget.NewSeparator(),
		props,
	))
	centre := container.NewBorder(nil, nil, nil, right, sc)
	split := container.NewHSplit(left, centre)
	split.Offset = 0.12
	w.SetContent(container.NewBorder(nil, status, nil, nil, split))

	refreshLayers()
	syncProps(nil)

	// Config hot reload
	if cfgPath != "" {
		cw, err := watch.New(cfgPath, 0, func() error {
			c, err := config.LoadFile(cfgPath)
			if err != nil {
				return err
			}
			applog.SetLevel(c.Logging.Level)
			fyne.Do(func() {
				ed.ApplyConfig(c.Editor)
				status.SetText("Configuration reloaded")
			})
			return nil
		})
		if err != nil {
			l.Warn("config watch disabled", slog.Any("err", err))
		} else {
			cw.Start()
			defer cw.Stop()
		}
	}

	// Autosave while a saved scene is dirty
	go func() {
		t := time.NewTicker(autosaveEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if ed.Handle() == nil || !ed.Dirty() {
					continue
				}
				if err := ed.Autosave(ctx); err != nil {
					l.Warn("autosave failed", slog.Any("err", err))
				}
			}
		}
	}()

	w.SetCloseIntercept(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
		if !ed.Dirty() {
			w.Close()
			return
		}
		dialog.ShowConfirm("Unsaved changes", "Quit without saving?", func(ok bool) {
			if ok {
				w.Close()
			}
		}, w)
	})

	w.ShowAndRun()
	l.Info("UI closed")
	return nil
}

func lockValue(o *scene.Object, l editor.Lock) bool {
	switch l {
	case editor.LockMovementX:
		return o.LockMovementX
	case editor.LockMovementY:
		return o.LockMovementY
	case editor.LockScalingX:
		return o.LockScalingX
	case editor.LockScalingY:
		return o.LockScalingY
	case editor.LockRotation:
		return o.LockRotation
	case editor.LockScalingFlip:
		return o.LockScalingFlip
	}
	return false
}

// observerFuncs adapts closures to editor.Observer.
type observerFuncs struct {
	objects   func([]*scene.Object)
	selection func(*scene.Object, int)
	menu      func(contextmenu.State)
}

func (f observerFuncs) ObjectsChanged(objs []*scene.Object) { f.objects(objs) }
func (f observerFuncs) SelectionChanged(p *scene.Object, layer int) {
	f.selection(p, layer)
}
func (f observerFuncs) MenuStateChanged(s contextmenu.State) { f.menu(s) }

const recentPrefsKey = "recent.scenes"

func loadRecent(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		_ = json.Unmarshal([]byte(raw), &items)
	}
	// Filter out non-existing paths
	out := make([]string, 0, len(items))
	for _, s := range items {
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecent(p fyne.Preferences, items []string) {
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

// SceneCanvas draws the editor scene and forwards pointer and key input to it.
type SceneCanvas struct {
	widget.BaseWidget
	ed      *editor.Editor
	opt     export.Options
	view    Viewport
	fitted  bool
	panning bool
	last    vector.Pt

	OnError func(error)
}

var (
	_ desktop.Mouseable = (*SceneCanvas)(nil)
	_ fyne.Draggable    = (*SceneCanvas)(nil)
	_ fyne.Focusable    = (*SceneCanvas)(nil)
	_ fyne.Scrollable   = (*SceneCanvas)(nil)
)

// NewSceneCanvas returns a canvas widget bound to ed.
func NewSceneCanvas(ed *editor.Editor, opt export.Options) *SceneCanvas {
	sc := &SceneCanvas{ed: ed, opt: opt, view: Viewport{Zoom: 1}}
	sc.ExtendBaseWidget(sc)
	return sc
}

// CreateRenderer builds the canvas objects; Layout positions them.
func (p *SceneCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255})
	img := canvas.NewImageFromImage(nil)
	img.FillMode = canvas.ImageFillStretch
	img.ScaleMode = canvas.ImageScalePixels
	del := canvas.NewCircle(color.RGBA{R: 220, G: 40, B: 40, A: 255})
	del.StrokeColor = color.White
	del.StrokeWidth = 2
	del.Hide()
	r := &sceneCanvasRenderer{sc: p, bg: bg, img: img, del: del}
	r.rebuild()
	return r
}

// PreferredSize sets a decent default size for the widget.
func (p *SceneCanvas) PreferredSize() fyne.Size { return fyne.NewSize(800, 600) }

func (p *SceneCanvas) toScene(pos fyne.Position) vector.Pt {
	return p.view.ToScene(float64(pos.X), float64(pos.Y))
}

func (p *SceneCanvas) fail(err error) {
	if err != nil && p.OnError != nil {
		p.OnError(err)
	}
}

func (p *SceneCanvas) focus() {
	if c := fyne.CurrentApp().Driver().CanvasForObject(p); c != nil {
		c.Focus(p)
	}
}

// MouseDown routes primary presses to the editor and secondary presses to the context menu.
func (p *SceneCanvas) MouseDown(e *desktop.MouseEvent) {
	p.focus()
	pt := p.toScene(e.Position)
	p.last = pt
	if e.Button == desktop.MouseButtonSecondary {
		p.ed.SecondaryClick(pt)
		return
	}
	p.fail(p.ed.PointerDown(pt, e.Modifier&fyne.KeyModifierShift != 0))
	p.panning = !p.ed.Dragging() && len(p.ed.Selection()) == 0
}

// MouseUp ends a drag.
func (p *SceneCanvas) MouseUp(e *desktop.MouseEvent) {
	p.panning = false
	if p.ed.Dragging() {
		p.fail(p.ed.PointerUp(p.toScene(e.Position)))
	}
}

// Dragged moves the selection while the editor is dragging, else pans the view.
func (p *SceneCanvas) Dragged(e *fyne.DragEvent) {
	if p.ed.Dragging() {
		p.last = p.toScene(e.Position)
		p.fail(p.ed.PointerMove(p.last))
		return
	}
	if p.panning {
		p.view.OffsetX += float64(e.Dragged.DX)
		p.view.OffsetY += float64(e.Dragged.DY)
		p.Refresh()
	}
}

// DragEnd finishes a drag when the mouse-up was not delivered to the widget.
func (p *SceneCanvas) DragEnd() {
	p.panning = false
	if p.ed.Dragging() {
		p.fail(p.ed.PointerUp(p.last))
	}
}

// Scrolled zooms around the pointer.
func (p *SceneCanvas) Scrolled(e *fyne.ScrollEvent) {
	p.view = p.view.ZoomBy(float64(e.Scrolled.DY)*0.005, float64(e.Position.X), float64(e.Position.Y))
	p.fitted = true
	p.Refresh()
}

func (p *SceneCanvas) FocusGained()   {}
func (p *SceneCanvas) FocusLost()     {}
func (p *SceneCanvas) TypedRune(rune) {}

// TypedKey handles Delete/Backspace for the selection and Escape for the menu.
func (p *SceneCanvas) TypedKey(e *fyne.KeyEvent) {
	switch e.Name {
	case fyne.KeyDelete, fyne.KeyBackspace:
		p.fail(p.ed.KeyDelete())
	case fyne.KeyEscape:
		p.ed.HideMenu()
	}
}

// sceneCanvasRenderer rasterizes the scene and overlays selection and menu visuals.
type sceneCanvasRenderer struct {
	sc      *SceneCanvas
	bg      *canvas.Rectangle
	img     *canvas.Image
	del     *canvas.Circle
	boxes   []*canvas.Rectangle
	menu    []*canvas.Rectangle
	labels  []*canvas.Text
	objects []fyne.CanvasObject
}

func (r *sceneCanvasRenderer) Destroy()                     {}
func (r *sceneCanvasRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *sceneCanvasRenderer) MinSize() fyne.Size           { return fyne.NewSize(200, 150) }
func (r *sceneCanvasRenderer) Refresh() {
	r.rebuild()
	r.Layout(r.sc.Size())
	canvas.Refresh(r.sc)
}

// rebuild re-renders the scene image and sizes the overlay pools.
func (r *sceneCanvasRenderer) rebuild() {
	p := r.sc
	opt := p.opt
	opt.Scale = p.view.zoom()
	r.img.Image = export.Render(p.ed.Document(), opt)
	r.img.Refresh()

	sel := p.ed.Selection()
	for len(r.boxes) < len(sel) {
		b := canvas.NewRectangle(color.Transparent)
		b.StrokeColor = color.RGBA{R: 0, G: 170, B: 255, A: 255}
		b.StrokeWidth = 1
		r.boxes = append(r.boxes, b)
	}
	items := p.ed.Menu().Items()
	for len(r.menu) < len(items) {
		m := canvas.NewRectangle(color.RGBA{R: 245, G: 245, B: 245, A: 255})
		m.StrokeColor = color.RGBA{R: 90, G: 90, B: 90, A: 255}
		m.StrokeWidth = 1
		r.menu = append(r.menu, m)
		r.labels = append(r.labels, canvas.NewText("", color.Black))
	}

	objs := []fyne.CanvasObject{r.bg, r.img}
	for _, b := range r.boxes {
		objs = append(objs, b)
	}
	objs = append(objs, r.del)
	for i := range r.menu {
		objs = append(objs, r.menu[i], r.labels[i])
	}
	r.objects = objs
}

func (r *sceneCanvasRenderer) Layout(size fyne.Size) {
	p := r.sc
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	cw, ch := p.ed.CanvasSize()
	if !p.fitted && size.Width > 0 && size.Height > 0 {
		p.view = Fit(cw, ch, float64(size.Width), float64(size.Height), 24)
		p.fitted = true
		// Re-render at the fitted scale.
		opt := p.opt
		opt.Scale = p.view.zoom()
		r.img.Image = export.Render(p.ed.Document(), opt)
	}
	place := func(o fyne.CanvasObject, rc vector.Rect) {
		o.Move(fyne.NewPos(float32(rc.X), float32(rc.Y)))
		o.Resize(fyne.NewSize(float32(rc.W), float32(rc.H)))
	}
	place(r.img, p.view.RectToScreen(vector.R(0, 0, cw, ch)))

	sel := p.ed.Selection()
	for i, b := range r.boxes {
		if i >= len(sel) {
			b.Hide()
			continue
		}
		place(b, p.view.RectToScreen(sel[i].Bounds()))
		b.Show()
	}

	if rc, ok := p.ed.DeleteControlRect(); ok {
		place(r.del, p.view.RectToScreen(rc))
		r.del.Show()
	} else {
		r.del.Hide()
	}

	st := p.ed.Menu()
	items := st.Items()
	boxes := MenuBoxes(st, contextmenu.DefaultLayout)
	for i := range r.menu {
		if i >= len(boxes) {
			r.menu[i].Hide()
			r.labels[i].Hide()
			continue
		}
		sb := p.view.RectToScreen(boxes[i])
		place(r.menu[i], sb)
		r.labels[i].Text = string(items[i])
		r.labels[i].TextSize = float32(max(10, min(18, sb.H*0.5)))
		r.labels[i].Move(fyne.NewPos(float32(sb.X+8), float32(sb.Y+sb.H*0.2)))
		r.menu[i].Show()
		r.labels[i].Show()
	}
}
