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
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"gosceneeditor/internal/contextmenu"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/vector"
)

// Viewport maps scene coordinates to widget coordinates.
type Viewport struct {
	Zoom    float64
	OffsetX float64
	OffsetY float64
}

const (
	minZoom = 0.1
	maxZoom = 4.0
)

func (v Viewport) zoom() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// ToScene converts a widget position to scene coordinates.
func (v Viewport) ToScene(x, y float64) vector.Pt {
	z := v.zoom()
	return vector.Pt{X: (x - v.OffsetX) / z, Y: (y - v.OffsetY) / z}
}

// ToScreen converts a scene point to widget coordinates.
func (v Viewport) ToScreen(p vector.Pt) (x, y float64) {
	z := v.zoom()
	return p.X*z + v.OffsetX, p.Y*z + v.OffsetY
}

// RectToScreen maps a scene rect to widget coordinates.
func (v Viewport) RectToScreen(r vector.Rect) vector.Rect {
	x, y := v.ToScreen(r.Min())
	z := v.zoom()
	return vector.Rect{X: x, Y: y, W: r.W * z, H: r.H * z}
}

// ZoomBy changes the zoom by step, keeping the scene point under (x, y) fixed.
func (v Viewport) ZoomBy(step, x, y float64) Viewport {
	anchor := v.ToScene(x, y)
	z := math.Max(minZoom, math.Min(maxZoom, v.zoom()+step))
	return Viewport{Zoom: z, OffsetX: x - anchor.X*z, OffsetY: y - anchor.Y*z}
}

// Fit centres a canvas of cw x ch inside a widget of w x h with a margin.
func Fit(cw, ch, w, h, margin float64) Viewport {
	if cw <= 0 || ch <= 0 || w <= 2*margin || h <= 2*margin {
		return Viewport{Zoom: 1}
	}
	z := math.Min((w-2*margin)/cw, (h-2*margin)/ch)
	z = math.Max(minZoom, math.Min(maxZoom, z))
	return Viewport{Zoom: z, OffsetX: (w - cw*z) / 2, OffsetY: (h - ch*z) / 2}
}

// LayerLabel is the text shown for o in the layer list.
func LayerLabel(o *scene.Object) string {
	name := string(o.Kind)
	if o.Text != nil && strings.TrimSpace(o.Text.Text) != "" {
		t := strings.ReplaceAll(strings.TrimSpace(o.Text.Text), "\n", " ")
		if len(t) > 24 {
			t = t[:24] + "…"
		}
		name = fmt.Sprintf("%s %q", name, t)
	} else if o.IsGroup() {
		name = fmt.Sprintf("%s (%d)", name, len(o.Children))
	}
	return name
}

// MenuBoxes returns one rect per menu item, stacked down from the click point.
func MenuBoxes(st contextmenu.State, layout contextmenu.Layout) []vector.Rect {
	items := st.Items()
	if len(items) == 0 {
		return nil
	}
	if layout.ItemWidth <= 0 || layout.ItemHeight <= 0 {
		layout = contextmenu.DefaultLayout
	}
	out := make([]vector.Rect, len(items))
	for i := range items {
		out[i] = vector.R(st.At.X, st.At.Y+float64(i)*layout.ItemHeight, layout.ItemWidth, layout.ItemHeight)
	}
	return out
}

const recentMax = 10

// pushRecent puts path first in the recent list, dropping duplicates.
func pushRecent(items []string, path string) []string {
	if strings.TrimSpace(path) == "" {
		return items
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	out := make([]string, 0, 1+len(items))
	out = append(out, abs)
	for _, s := range items {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	if len(out) > recentMax {
		out = out[:recentMax]
	}
	return out
}
