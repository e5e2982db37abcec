/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package svgimport

import (
	"errors"
	"math"
	"strings"
	"testing"

	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/vector"
)

const sample = `<?xml version="1.0"?>
<svg xmlns="http://www.w3.org/2000/svg" width="400" height="300" viewBox="0 0 400 300">
  <title>t</title>
  <rect x="10" y="20" width="100" height="50" fill="red" stroke="black" stroke-width="2"/>
  <circle cx="200" cy="100" r="30" style="fill: green; opacity: 0.5"/>
  <g transform="translate(50,60)" fill="blue">
    <ellipse cx="0" cy="0" rx="20" ry="10"/>
    <polygon points="0,0 10,0 5,8"/>
  </g>
  <line x1="0" y1="0" x2="40" y2="30" stroke="purple"/>
  <polyline points="0 0, 5 5, 10 0" stroke="black"/>
  <text x="5" y="250" font-size="20">Hello <tspan>world</tspan></text>
  <unknown/>
</svg>`

func TestImportGroupsAtDefaultPlacement(t *testing.T) {
	g, err := Import(strings.NewReader(sample), DefaultOptions())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !g.IsGroup() {
		t.Fatalf("expected a group, got %s", g.Kind)
	}
	if g.Left != 20 || g.Top != 20 || g.ScaleX != 0.5 || g.ScaleY != 0.5 {
		t.Fatalf("placement = (%v,%v) scale %v/%v", g.Left, g.Top, g.ScaleX, g.ScaleY)
	}
	if g.Width != 400 || g.Height != 300 {
		t.Fatalf("group size = %vx%v, want viewBox size", g.Width, g.Height)
	}
	kinds := []scene.Kind{scene.KindRect, scene.KindCircle, scene.KindCircle, scene.KindPolygon, scene.KindLine, scene.KindPolygon, scene.KindText}
	if len(g.Children) != len(kinds) {
		t.Fatalf("children = %d, want %d", len(g.Children), len(kinds))
	}
	for i, k := range kinds {
		if g.Children[i].Kind != k {
			t.Fatalf("child %d kind = %s, want %s", i, g.Children[i].Kind, k)
		}
	}
}

func TestImportAttributesAndStyle(t *testing.T) {
	g, err := Import(strings.NewReader(sample), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	rect := g.Children[0]
	if rect.Left != 10 || rect.Top != 20 || rect.Width != 100 || rect.Height != 50 {
		t.Fatalf("rect geometry = %+v", rect.Bounds())
	}
	if rect.Fill != "red" || rect.Stroke != "black" || rect.StrokeWidth != 2 {
		t.Fatalf("rect paint = %q %q %v", rect.Fill, rect.Stroke, rect.StrokeWidth)
	}
	circle := g.Children[1]
	if circle.Radius != 30 || circle.Left != 170 || circle.Top != 70 {
		t.Fatalf("circle = r%v at (%v,%v)", circle.Radius, circle.Left, circle.Top)
	}
	if circle.Fill != "green" || circle.Opacity != 0.5 {
		t.Fatalf("circle style = %q %v", circle.Fill, circle.Opacity)
	}
	line := g.Children[4]
	if line.Fill != "" || line.Stroke != "purple" {
		t.Fatalf("line paint = %q %q", line.Fill, line.Stroke)
	}
	poly := g.Children[5]
	if poly.Fill != "" {
		t.Fatalf("polyline must not be filled")
	}
	text := g.Children[6]
	if text.Text == nil || text.Text.Text != "Hello world" || text.Text.FontSize != 20 {
		t.Fatalf("text = %+v", text.Text)
	}
}

func TestImportAppliesGroupTransform(t *testing.T) {
	g, err := Import(strings.NewReader(sample), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	ell := g.Children[2]
	if ell.Left != 30 || ell.Top != 50 {
		t.Fatalf("ellipse at (%v,%v), want (30,50)", ell.Left, ell.Top)
	}
	if ell.Radius != 20 || ell.ScaleY != 0.5 || ell.Fill != "blue" {
		t.Fatalf("ellipse = r%v sy%v fill %q", ell.Radius, ell.ScaleY, ell.Fill)
	}
	tri := g.Children[3]
	if tri.Left != 50 || tri.Top != 60 {
		t.Fatalf("polygon at (%v,%v), want (50,60)", tri.Left, tri.Top)
	}
}

func TestImportSingleElement(t *testing.T) {
	src := `<svg xmlns="http://www.w3.org/2000/svg"><rect x="5" y="5" width="10" height="10"/></svg>`
	o, err := Import(strings.NewReader(src), DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if o.IsGroup() || o.Kind != scene.KindRect {
		t.Fatalf("single element should not be grouped: %s", o.Kind)
	}
	if o.Left != 20 || o.Top != 20 || o.ScaleX != 0.5 {
		t.Fatalf("placement = (%v,%v) %v", o.Left, o.Top, o.ScaleX)
	}
	if o.Fill != "black" {
		t.Fatalf("default fill = %q", o.Fill)
	}
}

func TestImportErrors(t *testing.T) {
	if _, err := Import(strings.NewReader("<svg"), DefaultOptions()); err == nil {
		t.Fatalf("expected parse error")
	}
	if _, err := Import(strings.NewReader("<html/>"), DefaultOptions()); !errors.Is(err, scene.ErrInvalidObject) {
		t.Fatalf("non-svg root: %v", err)
	}
	if _, err := Import(strings.NewReader("<svg><desc>x</desc></svg>"), DefaultOptions()); !errors.Is(err, scene.ErrInvalidObject) {
		t.Fatalf("empty svg: %v", err)
	}
}

func TestParseTransform(t *testing.T) {
	m := parseTransform("translate(10 20) rotate(90) scale(2)")
	p := m.Apply(vector.Pt{X: 1, Y: 0})
	if math.Abs(p.X-10) > 1e-9 || math.Abs(p.Y-22) > 1e-9 {
		t.Fatalf("transform applied = %+v, want (10,22)", p)
	}
	if parseTransform("") != vector.Identity {
		t.Fatalf("empty transform should be identity")
	}
}
