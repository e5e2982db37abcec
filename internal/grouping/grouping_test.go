/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package grouping

import (
	"errors"
	"testing"

	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/vector"
)

func rect(x, y, w, h float64) *scene.Object {
	o := scene.New(scene.KindRect)
	o.Left, o.Top, o.Width, o.Height = x, y, w, h
	return o
}

func TestGroupRequiresTwoObjects(t *testing.T) {
	s := scene.NewStore()
	a := rect(0, 0, 10, 10)
	_ = s.Add(a)
	c := New()
	if _, err := c.Group(s, []*scene.Object{a}); !errors.Is(err, scene.ErrInsufficientSelection) {
		t.Fatalf("expected ErrInsufficientSelection, got %v", err)
	}
	if _, err := c.Group(s, []*scene.Object{a, a}); !errors.Is(err, scene.ErrInsufficientSelection) {
		t.Fatalf("duplicates should count once, got %v", err)
	}
	if s.Len() != 1 || s.At(0) != a {
		t.Fatalf("store changed on failure")
	}
}

func TestGroupUnionAndLocalPositions(t *testing.T) {
	s := scene.NewStore()
	a := rect(10, 10, 50, 50)
	b := rect(40, 40, 50, 50)
	_ = s.Add(a)
	_ = s.Add(b)
	g, err := New().Group(s, []*scene.Object{b, a})
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	if g.Left != 10 || g.Top != 10 || g.Width != 80 || g.Height != 80 {
		t.Fatalf("unexpected group box %v,%v %vx%v", g.Left, g.Top, g.Width, g.Height)
	}
	if len(g.Children) != 2 || g.Children[0].ID != a.ID || g.Children[1].ID != b.ID {
		t.Fatalf("children should follow z-order")
	}
	if p := g.Children[0].Position(); p != (vector.Pt{}) {
		t.Fatalf("first child local position %v", p)
	}
	if p := g.Children[1].Position(); p != (vector.Pt{X: 30, Y: 30}) {
		t.Fatalf("second child local position %v", p)
	}
	if s.Len() != 1 || s.At(0) != g || s.Active() != g {
		t.Fatalf("group should replace members and be selected")
	}
	if bb := g.Bounds(); bb != vector.R(10, 10, 80, 80) {
		t.Fatalf("group bounds %v", bb)
	}
}

func TestGroupKeepsPositionAmongOthers(t *testing.T) {
	s := scene.NewStore()
	bottom := rect(0, 0, 5, 5)
	a := rect(10, 10, 5, 5)
	mid := rect(100, 100, 5, 5)
	b := rect(20, 20, 5, 5)
	for _, o := range []*scene.Object{bottom, a, mid, b} {
		_ = s.Add(o)
	}
	g, err := New().Group(s, []*scene.Object{a, b})
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	got := s.Objects()
	if len(got) != 3 || got[0] != bottom || got[1] != mid || got[2] != g {
		t.Fatalf("group should be added on top of the remaining objects")
	}
}

func TestUngroupRoundTrip(t *testing.T) {
	s := scene.NewStore()
	a := rect(10, 20, 30, 30)
	a.Angle = 15
	b := rect(70, 5, 20, 40)
	b.ScaleX = 2
	_ = s.Add(a)
	_ = s.Add(b)
	c := New()
	g, err := c.Group(s, []*scene.Object{a, b})
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	out, err := c.Ungroup(s, g)
	if err != nil {
		t.Fatalf("ungroup: %v", err)
	}
	if len(out) != 2 || s.Len() != 2 {
		t.Fatalf("expected two objects back")
	}
	want := []*scene.Object{a, b}
	for i, o := range out {
		w := want[i]
		if o.ID != w.ID {
			t.Fatalf("child %d id %s want %s", i, o.ID, w.ID)
		}
		if !vector.NearlyEqual(o.Left, w.Left, 1e-6) || !vector.NearlyEqual(o.Top, w.Top, 1e-6) {
			t.Fatalf("child %d at %v,%v want %v,%v", i, o.Left, o.Top, w.Left, w.Top)
		}
		if !vector.NearlyEqual(o.Angle, w.Angle, 1e-6) || o.ScaleX != w.ScaleX {
			t.Fatalf("child %d transform changed", i)
		}
	}
	if sel := s.Selection(); len(sel) != 2 {
		t.Fatalf("ungrouped children should be selected, got %d", len(sel))
	}
	if _, ok := s.ActiveLayer(); ok {
		t.Fatalf("multi-selection has no active layer")
	}
}

func TestUngroupAppliesGroupTransform(t *testing.T) {
	s := scene.NewStore()
	g := scene.NewGroup(100, 100, 50, 50)
	g.Angle = 90
	ch := rect(10, 0, 10, 10)
	g.Children = []*scene.Object{ch}
	below := rect(0, 0, 1, 1)
	_ = s.Add(below)
	_ = s.Add(g)
	_ = s.Add(rect(200, 200, 1, 1))

	out, err := New().Ungroup(s, g)
	if err != nil {
		t.Fatalf("ungroup: %v", err)
	}
	o := out[0]
	if !vector.NearlyEqual(o.Left, 100, 1e-9) || !vector.NearlyEqual(o.Top, 110, 1e-9) {
		t.Fatalf("rotated child at %v,%v", o.Left, o.Top)
	}
	if o.Angle != 90 {
		t.Fatalf("angle %v", o.Angle)
	}
	if s.IndexOf(o) != 1 {
		t.Fatalf("child should take the group's z-index, got %d", s.IndexOf(o))
	}
}

func TestUngroupErrors(t *testing.T) {
	s := scene.NewStore()
	c := New()
	r := rect(0, 0, 1, 1)
	_ = s.Add(r)
	if _, err := c.Ungroup(s, r); !errors.Is(err, scene.ErrNotAGroup) {
		t.Fatalf("expected ErrNotAGroup, got %v", err)
	}
	if _, err := c.Ungroup(s, scene.NewGroup(0, 0, 1, 1)); !errors.Is(err, scene.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
