/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"testing"

	"gosceneeditor/internal/vector"
)

func TestBounds_RectWithOriginAndScale(t *testing.T) {
	o := rectAt(100, 100, 50, 20)
	o.OriginX, o.OriginY = OriginCenter, OriginCenter
	o.ScaleX = 2
	b := o.Bounds()
	if b != vector.R(50, 90, 100, 20) {
		t.Fatalf("unexpected bounds: %+v", b)
	}
}

func TestBounds_CircleUsesRadius(t *testing.T) {
	o := New(KindCircle)
	o.Left, o.Top, o.Radius = 150, 150, 50
	if b := o.Bounds(); b != vector.R(150, 150, 100, 100) {
		t.Fatalf("unexpected circle bounds: %+v", b)
	}
}

func TestBounds_RotatedSquare(t *testing.T) {
	o := rectAt(0, 0, 10, 10)
	o.OriginX, o.OriginY = OriginCenter, OriginCenter
	o.Angle = 45
	b := o.Bounds()
	if !vector.NearlyEqual(b.W, 14.142135623730951, 1e-9) {
		t.Fatalf("unexpected rotated width %v", b.W)
	}
}

func TestBounds_GroupIsUnionOfChildren(t *testing.T) {
	g := NewGroup(10, 10, 0, 0)
	g.Children = []*Object{rectAt(0, 0, 10, 10), rectAt(30, 5, 10, 20)}
	if b := g.Bounds(); b != vector.R(10, 10, 40, 25) {
		t.Fatalf("unexpected group bounds: %+v", b)
	}
}

func TestHit_RespectsTransformAndEvented(t *testing.T) {
	o := rectAt(100, 100, 40, 20)
	o.Angle = 90
	if !o.Hit(vector.Pt{X: 90, Y: 120}) {
		t.Fatalf("expected hit inside rotated box")
	}
	if o.Hit(vector.Pt{X: 120, Y: 110}) {
		t.Fatalf("point outside rotated box must miss")
	}
	o.Evented = false
	if o.Hit(vector.Pt{X: 90, Y: 120}) {
		t.Fatalf("non-evented objects never hit")
	}
}

func TestOriginFraction(t *testing.T) {
	cases := map[string]float64{"left": 0, "center": 0.5, "right": 1, "bottom": 1, "0.3": 0.3, "bogus": 0}
	for in, want := range cases {
		if got := OriginFraction(in); got != want {
			t.Fatalf("OriginFraction(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestClone_IsDeepAndDetached(t *testing.T) {
	o := New(KindPolygon)
	o.Points = []vector.Pt{{X: 1, Y: 2}}
	fill := "red"
	o.StashedFill = &fill
	c := o.Clone()
	if c.ID == o.ID {
		t.Fatalf("clone must get a fresh id")
	}
	c.Points[0].X = 99
	*c.StashedFill = "blue"
	if o.Points[0].X != 1 || *o.StashedFill != "red" {
		t.Fatalf("clone aliases the original")
	}
	if o.CloneKeepID().ID != o.ID {
		t.Fatalf("CloneKeepID must keep the id")
	}
}
