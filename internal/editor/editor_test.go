/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"errors"
	"testing"

	"gosceneeditor/internal/config"
	"gosceneeditor/internal/contextmenu"
	"gosceneeditor/internal/media"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/vector"
)

func newEditor(t *testing.T) *Editor {
	t.Helper()
	ec := config.Defaults().Editor
	ec.Undo = config.UndoConfig{MaxPerScene: 50, MaxBytes: 1 << 20}
	return New(Options{Editor: ec})
}

func rect(x, y, w, h float64, fill string) *scene.Object {
	o := scene.New(scene.KindRect)
	o.Left, o.Top, o.Width, o.Height = x, y, w, h
	o.Fill = fill
	return o
}

func mustAdd(t *testing.T, e *Editor, objs ...*scene.Object) {
	t.Helper()
	for _, o := range objs {
		if err := e.Add(o); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
}

type recorder struct {
	e       *Editor
	objects int
	sel     []int
	menus   []contextmenu.Kind
}

func (r *recorder) ObjectsChanged([]*scene.Object) { r.objects++ }

func (r *recorder) SelectionChanged(_ *scene.Object, layer int) {
	// calling back in must not deadlock
	_ = r.e.Selection()
	r.sel = append(r.sel, layer)
}

func (r *recorder) MenuStateChanged(s contextmenu.State) { r.menus = append(r.menus, s.Kind) }

func TestObserversRunAfterUnlock(t *testing.T) {
	e := newEditor(t)
	r := &recorder{e: e}
	unsub := e.Subscribe(r)
	mustAdd(t, e, rect(0, 0, 10, 10, "red"))
	if r.objects != 1 || len(r.sel) != 1 || r.sel[0] != 0 {
		t.Fatalf("unexpected notifications: objects=%d sel=%v", r.objects, r.sel)
	}
	e.SecondaryClick(vector.Pt{X: 5, Y: 5})
	if len(r.menus) != 1 || r.menus[0] != contextmenu.ObjectContext {
		t.Fatalf("menu events %v", r.menus)
	}
	unsub()
	mustAdd(t, e, rect(20, 20, 10, 10, "blue"))
	if r.objects != 1 {
		t.Fatalf("unsubscribed observer still notified")
	}
}

func TestPointerSelectsAndClearsOnEmptyCanvas(t *testing.T) {
	e := newEditor(t)
	a := rect(0, 0, 50, 50, "red")
	b := rect(100, 0, 50, 50, "green")
	mustAdd(t, e, a, b)

	_ = e.PointerDown(vector.Pt{X: 10, Y: 10}, false)
	_ = e.PointerUp(vector.Pt{X: 10, Y: 10})
	if sel := e.Selection(); len(sel) != 1 || sel[0] != a {
		t.Fatalf("expected a selected, got %v", sel)
	}
	_ = e.PointerDown(vector.Pt{X: 110, Y: 10}, true)
	_ = e.PointerUp(vector.Pt{X: 110, Y: 10})
	if sel := e.Selection(); len(sel) != 2 {
		t.Fatalf("additive click should extend selection, got %d", len(sel))
	}
	_ = e.PointerDown(vector.Pt{X: 10, Y: 10}, true)
	if sel := e.Selection(); len(sel) != 1 || sel[0] != b {
		t.Fatalf("additive click on selected object should remove it")
	}
	_ = e.PointerDown(vector.Pt{X: 400, Y: 400}, false)
	if len(e.Selection()) != 0 {
		t.Fatalf("click on empty canvas should clear selection")
	}
	if _, ok := e.ActiveLayer(); ok {
		t.Fatalf("active layer should be cleared")
	}
}

func TestDragMovesAndHighlightsUntilPointerUp(t *testing.T) {
	e := newEditor(t)
	a := rect(0, 0, 50, 50, "red")
	b := rect(100, 0, 50, 50, "green")
	mustAdd(t, e, a, b)

	_ = e.PointerDown(vector.Pt{X: 120, Y: 10}, false)
	_ = e.PointerMove(vector.Pt{X: 90, Y: 10})
	// a miss without a stashed fill paints the fallback colour
	if b.Left != 70 || b.Fill != "yellow" || b.Controls.CornerColor != "blue" {
		t.Fatalf("after first move: left=%v fill=%q", b.Left, b.Fill)
	}
	_ = e.PointerMove(vector.Pt{X: 60, Y: 10})
	if b.Left != 40 || b.Fill != "gray" || b.Controls.CornerColor != "red" {
		t.Fatalf("expected collision highlight, left=%v fill=%q", b.Left, b.Fill)
	}
	if !e.Dragging() {
		t.Fatalf("only pointer-up ends a drag")
	}
	_ = e.PointerUp(vector.Pt{X: 60, Y: 10})
	if e.Dragging() {
		t.Fatalf("pointer-up should end the drag")
	}
	if b.Fill != "gray" {
		t.Fatalf("highlight should persist after the drag, got %q", b.Fill)
	}
	_ = e.PointerMove(vector.Pt{X: 0, Y: 0})
	if b.Left != 40 {
		t.Fatalf("move without drag changed the object")
	}
	if a.Fill != "red" {
		t.Fatalf("stationary object touched")
	}
}

func TestDragRespectsMovementLocks(t *testing.T) {
	e := newEditor(t)
	a := rect(0, 0, 50, 50, "red")
	a.LockMovementX = true
	mustAdd(t, e, a)
	_ = e.PointerDown(vector.Pt{X: 10, Y: 10}, false)
	_ = e.PointerUp(vector.Pt{X: 30, Y: 40})
	if a.Left != 0 || a.Top != 30 {
		t.Fatalf("locked x moved: %v,%v", a.Left, a.Top)
	}
}

func TestCollisionOffByConfig(t *testing.T) {
	e := newEditor(t)
	ec := config.Defaults().Editor
	ec.Collision.Mode = config.CollisionOff
	e.ApplyConfig(ec)
	a := rect(0, 0, 50, 50, "red")
	b := rect(100, 0, 50, 50, "green")
	mustAdd(t, e, a, b)
	_ = e.PointerDown(vector.Pt{X: 120, Y: 10}, false)
	_ = e.PointerUp(vector.Pt{X: 60, Y: 10})
	if b.Fill != "green" {
		t.Fatalf("collision disabled but fill is %q", b.Fill)
	}
}

func TestDeleteControlRemovesObject(t *testing.T) {
	e := newEditor(t)
	a := rect(100, 100, 100, 100, "red")
	mustAdd(t, e, a)
	r, ok := e.DeleteControlRect()
	if !ok || r.Center() != (vector.Pt{X: 216, Y: 84}) || r.W != 24 {
		t.Fatalf("unexpected delete control %v %v", r, ok)
	}
	if err := e.PointerDown(vector.Pt{X: 216, Y: 84}, false); err != nil {
		t.Fatalf("pointer down: %v", err)
	}
	if len(e.Objects()) != 0 {
		t.Fatalf("delete control should remove the object")
	}
}

func TestKeyDeleteRemovesSelection(t *testing.T) {
	e := newEditor(t)
	a := rect(0, 0, 10, 10, "red")
	b := rect(20, 0, 10, 10, "red")
	c := rect(40, 0, 10, 10, "red")
	mustAdd(t, e, a, b, c)
	_ = e.Select(a, c)
	if err := e.KeyDelete(); err != nil {
		t.Fatalf("delete: %v", err)
	}
	objs := e.Objects()
	if len(objs) != 1 || objs[0] != b || len(e.Selection()) != 0 {
		t.Fatalf("unexpected state after delete")
	}
}

func TestMenuItemsRunFromPointer(t *testing.T) {
	e := newEditor(t)
	a := rect(100, 100, 100, 100, "red")
	mustAdd(t, e, a)
	st := e.SecondaryClick(vector.Pt{X: 150, Y: 150})
	if st.Kind != contextmenu.ObjectContext || st.Target != a {
		t.Fatalf("unexpected menu state %+v", st)
	}
	// second row is Duplicate
	if err := e.PointerDown(vector.Pt{X: 160, Y: 190}, false); err != nil {
		t.Fatalf("menu click: %v", err)
	}
	objs := e.Objects()
	if len(objs) != 2 {
		t.Fatalf("duplicate should add an object, have %d", len(objs))
	}
	d := objs[1]
	if d.ID == a.ID || d.Left != 120 || d.Top != 120 {
		t.Fatalf("duplicate at %v,%v", d.Left, d.Top)
	}
	if e.Menu().Kind != contextmenu.Hidden {
		t.Fatalf("menu should close after an action")
	}

	e.SecondaryClick(vector.Pt{X: 150, Y: 150})
	if err := e.MenuAction(contextmenu.Copy); err != nil {
		t.Fatalf("copy: %v", err)
	}
	st = e.SecondaryClick(vector.Pt{X: 600, Y: 500})
	if st.Kind != contextmenu.CanvasContext {
		t.Fatalf("expected canvas menu, got %v", st.Kind)
	}
	if err := e.PointerDown(vector.Pt{X: 610, Y: 510}, false); err != nil {
		t.Fatalf("paste: %v", err)
	}
	if n := len(e.Objects()); n != 3 {
		t.Fatalf("paste should add an object, have %d", n)
	}
}

func TestMenuClickOutsideHides(t *testing.T) {
	e := newEditor(t)
	mustAdd(t, e, rect(100, 100, 100, 100, "red"))
	e.SecondaryClick(vector.Pt{X: 150, Y: 150})
	_ = e.PointerDown(vector.Pt{X: 700, Y: 20}, false)
	if e.Menu().Kind != contextmenu.Hidden {
		t.Fatalf("menu should hide on outside click")
	}
	if len(e.Objects()) != 1 {
		t.Fatalf("outside click must not run an item")
	}
}

func TestReorderLayersUsesDisplayOrder(t *testing.T) {
	e := newEditor(t)
	a := rect(0, 0, 10, 10, "red")
	b := rect(0, 0, 10, 10, "green")
	c := rect(0, 0, 10, 10, "blue")
	mustAdd(t, e, a, b, c)
	// layers: c, b, a; move the topmost to the bottom
	if err := e.ReorderLayers(0, 2); err != nil {
		t.Fatalf("reorder layers: %v", err)
	}
	objs := e.Objects()
	if objs[0] != c || objs[1] != a || objs[2] != b {
		t.Fatalf("unexpected order after layer move")
	}
	if err := e.ReorderLayers(0, 3); !errors.Is(err, scene.ErrIndexOutOfRange) {
		t.Fatalf("expected ErrIndexOutOfRange, got %v", err)
	}
	if err := e.Reorder(0, 2); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if e.Objects()[2] != c {
		t.Fatalf("reorder should move c to the top")
	}
}

func TestZOrderCommandsNeedSelection(t *testing.T) {
	e := newEditor(t)
	a := rect(0, 0, 10, 10, "red")
	b := rect(0, 0, 10, 10, "green")
	mustAdd(t, e, a, b)
	_ = e.Select(b)
	if err := e.SendToBack(); err != nil {
		t.Fatalf("send to back: %v", err)
	}
	if e.Objects()[0] != b {
		t.Fatalf("b should be at the bottom")
	}
	if layer, ok := e.ActiveLayer(); !ok || layer != 0 {
		t.Fatalf("active layer should follow the object, got %d", layer)
	}
	_ = e.PointerDown(vector.Pt{X: 500, Y: 500}, false)
	if err := e.BringToFront(); !errors.Is(err, scene.ErrInsufficientSelection) {
		t.Fatalf("expected ErrInsufficientSelection, got %v", err)
	}
}

func TestPropertiesLocksAndOrigin(t *testing.T) {
	e := newEditor(t)
	a := rect(100, 100, 100, 100, "red")
	mustAdd(t, e, a)
	if err := e.SetProperty(PropFill, "#00ff00"); err != nil || a.Fill != "#00ff00" {
		t.Fatalf("fill: %v %q", err, a.Fill)
	}
	if err := e.SetProperty(PropOpacity, 0.5); err != nil || a.Opacity != 0.5 {
		t.Fatalf("opacity: %v %v", err, a.Opacity)
	}
	if err := e.SetProperty(PropOpacity, 2.0); !errors.Is(err, scene.ErrInvalidObject) {
		t.Fatalf("opacity out of range accepted: %v", err)
	}
	if err := e.SetProperty(PropStrokeUniform, true); err != nil || !a.StrokeUniform {
		t.Fatalf("stroke uniform: %v", err)
	}
	if err := e.SetProperty("colour", "red"); err == nil {
		t.Fatalf("unknown property accepted")
	}
	on, err := e.ToggleLock(LockScalingFlip)
	if err != nil || !on || !a.LockScalingFlip {
		t.Fatalf("toggle lock: %v %v", on, err)
	}
	if err := e.SetProperty(PropScaleX, -1.0); err == nil {
		t.Fatalf("flip allowed despite lock")
	}
	if on, _ := e.ToggleLock(LockScalingFlip); on {
		t.Fatalf("second toggle should clear the lock")
	}

	before := a.Bounds()
	if err := e.SetOrigin("center", "center"); err != nil {
		t.Fatalf("set origin: %v", err)
	}
	if a.Left != 150 || a.Top != 150 || a.Bounds() != before {
		t.Fatalf("origin change moved the object: %v,%v %v", a.Left, a.Top, a.Bounds())
	}
	if err := e.SetOrigin("middle", ""); !errors.Is(err, scene.ErrInvalidObject) {
		t.Fatalf("bad origin accepted: %v", err)
	}
	for _, o := range OriginChoices {
		if !validOrigin(o) {
			t.Fatalf("origin choice %q rejected", o)
		}
	}
}

func TestGroupUngroupSelection(t *testing.T) {
	e := newEditor(t)
	a := rect(10, 10, 50, 50, "red")
	b := rect(40, 40, 50, 50, "blue")
	mustAdd(t, e, a, b)
	_ = e.Select(a, b)
	g, err := e.Group()
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if objs := e.Objects(); len(objs) != 1 || objs[0] != g {
		t.Fatalf("group should replace members")
	}
	out, err := e.Ungroup()
	if err != nil || len(out) != 2 {
		t.Fatalf("ungroup: %v", err)
	}
	if out[1].Left != 40 || out[1].Top != 40 {
		t.Fatalf("member position %v,%v", out[1].Left, out[1].Top)
	}
	_ = e.Select(out[0])
	if _, err := e.Ungroup(); !errors.Is(err, scene.ErrNotAGroup) {
		t.Fatalf("expected ErrNotAGroup, got %v", err)
	}
}

func TestUndoRedo(t *testing.T) {
	e := newEditor(t)
	a := rect(0, 0, 50, 50, "red")
	mustAdd(t, e, a)
	_ = e.PointerDown(vector.Pt{X: 10, Y: 10}, false)
	_ = e.PointerMove(vector.Pt{X: 20, Y: 10})
	_ = e.PointerMove(vector.Pt{X: 30, Y: 10})
	_ = e.PointerUp(vector.Pt{X: 40, Y: 10})

	if ok, err := e.Undo(); !ok || err != nil {
		t.Fatalf("undo drag: %v %v", ok, err)
	}
	objs := e.Objects()
	if len(objs) != 1 || objs[0].Left != 0 || objs[0].ID != a.ID {
		t.Fatalf("drag should undo in one step, left=%v", objs[0].Left)
	}
	if ok, _ := e.Undo(); !ok || len(e.Objects()) != 0 {
		t.Fatalf("undo add")
	}
	if ok, _ := e.Undo(); ok {
		t.Fatalf("nothing left to undo")
	}
	if ok, _ := e.Redo(); !ok || len(e.Objects()) != 1 {
		t.Fatalf("redo add")
	}
	if ok, _ := e.Redo(); !ok || e.Objects()[0].Left != 30 {
		t.Fatalf("redo drag, left=%v", e.Objects()[0].Left)
	}
	if e.CanRedo() {
		t.Fatalf("redo stack should be empty")
	}
}

func TestClearCanvasResetsBackground(t *testing.T) {
	e := newEditor(t)
	_ = e.SetBackground("navy")
	mustAdd(t, e, rect(0, 0, 10, 10, "red"))
	e.ClearCanvas()
	if len(e.Objects()) != 0 || e.Background() != "white" {
		t.Fatalf("clear left %d objects, bg %q", len(e.Objects()), e.Background())
	}
	if err := e.SetBackground("not-a-colour"); err == nil {
		t.Fatalf("invalid background accepted")
	}
}

func TestPaletteAndPolygons(t *testing.T) {
	e := newEditor(t)
	o, err := e.AddFromPalette("circle")
	if err != nil || o.Kind != scene.KindCircle || o.Fill != "green" {
		t.Fatalf("palette circle: %v %+v", err, o)
	}
	if o.Controls.CornerStyle != "circle" || o.Controls.CornerColor != "blue" {
		t.Fatalf("control style not applied: %+v", o.Controls)
	}
	if _, err := e.AddFromPalette("hexagon"); !errors.Is(err, scene.ErrInvalidObject) {
		t.Fatalf("unknown palette entry: %v", err)
	}
	n, err := e.LoadPolygons([]byte(`[{"sides":5,"radius":40,"x":100,"y":100},{"sides":3,"radius":20,"x":300,"y":100,"fill":"blue"}]`))
	if err != nil || n != 2 {
		t.Fatalf("load polygons: %d %v", n, err)
	}
	objs := e.Objects()
	if len(objs) != 2 || objs[0].Fill != "red" || objs[1].Fill != "blue" {
		t.Fatalf("polygons should replace the scene")
	}
	if e.Background() != scene.PolygonsBackground {
		t.Fatalf("background %q", e.Background())
	}
}

func TestPlaceResourceRequiresReady(t *testing.T) {
	e := newEditor(t)
	if _, err := e.PlaceResource(&media.Resource{Src: "pending.png"}); !errors.Is(err, scene.ErrResourceNotReady) {
		t.Fatalf("expected ErrResourceNotReady, got %v", err)
	}
	if len(e.Objects()) != 0 {
		t.Fatalf("store changed")
	}
}

func TestTextEditsRefitPaddedBounds(t *testing.T) {
	e := newEditor(t)
	o, err := e.AddFromPalette("padded-text")
	if err != nil {
		t.Fatalf("add padded text: %v", err)
	}
	h0 := o.Height
	if err := e.SetProperty(PropText, "one\ntwo\nthree\nfour\nfive\nsix"); err != nil {
		t.Fatalf("set text: %v", err)
	}
	h1 := o.Height
	if h1 <= h0*3 {
		t.Fatalf("six lines kept height %v (one line %v)", h1, h0)
	}
	if err := e.SetProperty(PropFontSize, 60.0); err != nil {
		t.Fatalf("set font size: %v", err)
	}
	if o.Height <= h1 {
		t.Fatalf("larger font kept height %v", o.Height)
	}
	b := o.Bounds()
	if !vector.NearlyEqual(b.H, o.Height+2*o.Padded.PaddingY, 1e-9) {
		t.Fatalf("padded bounds height %v, text height %v", b.H, o.Height)
	}
	if !vector.NearlyEqual(b.W, o.Width+2*o.Padded.PaddingX, 1e-9) {
		t.Fatalf("padded bounds width %v, text width %v", b.W, o.Width)
	}
}

func TestDragSurvivesMemberDeletedFromMenu(t *testing.T) {
	e := newEditor(t)
	a := rect(0, 0, 50, 50, "red")
	b := rect(100, 0, 50, 50, "green")
	mustAdd(t, e, a, b)

	_ = e.PointerDown(vector.Pt{X: 10, Y: 10}, false)
	_ = e.PointerDown(vector.Pt{X: 120, Y: 10}, true)
	if len(e.Selection()) != 2 || !e.Dragging() {
		t.Fatalf("expected a two object drag")
	}
	e.SecondaryClick(vector.Pt{X: 10, Y: 10})
	if err := e.MenuAction(contextmenu.Delete); err != nil {
		t.Fatalf("menu delete: %v", err)
	}
	if err := e.PointerMove(vector.Pt{X: 130, Y: 10}); err != nil {
		t.Fatalf("move after delete: %v", err)
	}
	if b.Left != 110 || a.Left != 0 {
		t.Fatalf("positions after move: a=%v b=%v", a.Left, b.Left)
	}
	if !e.Dragging() {
		t.Fatalf("drag of the remaining target should continue")
	}

	e.SecondaryClick(vector.Pt{X: 120, Y: 10})
	if err := e.MenuAction(contextmenu.Delete); err != nil {
		t.Fatalf("menu delete target: %v", err)
	}
	if err := e.PointerMove(vector.Pt{X: 150, Y: 10}); err != nil {
		t.Fatalf("move after target delete: %v", err)
	}
	if e.Dragging() || b.Left != 110 {
		t.Fatalf("drag should end with its target, left=%v", b.Left)
	}
}
