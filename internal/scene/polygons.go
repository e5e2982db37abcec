/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"gosceneeditor/internal/vector"
)

// PolygonSpec describes one regular polygon in a polygons file.
type PolygonSpec struct {
	Sides       int     `json:"sides"`
	Radius      float64 `json:"radius"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Fill        string  `json:"fill"`
	Stroke      string  `json:"stroke"`
	StrokeWidth float64 `json:"strokeWidth"`
}

// PolygonsBackground is the canvas background used after loading polygons.
const PolygonsBackground = "#f0f0f0"

// PolygonsFromJSON builds regular polygons from either a JSON array or a
// JSON object of specs (object entries are taken in key order).
func (f *Factory) PolygonsFromJSON(data []byte) ([]*Object, error) {
	var specs []PolygonSpec
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) > 0 && trimmed[0] == '[':
		if err := json.Unmarshal(trimmed, &specs); err != nil {
			return nil, fmt.Errorf("parse polygons: %w", err)
		}
	default:
		var m map[string]PolygonSpec
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return nil, fmt.Errorf("parse polygons: %w", err)
		}
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			specs = append(specs, m[k])
		}
	}
	out := make([]*Object, 0, len(specs))
	for i, s := range specs {
		if s.Sides < 3 || s.Radius <= 0 {
			return nil, fmt.Errorf("polygon %d: need sides >= 3 and radius > 0: %w", i, ErrInvalidObject)
		}
		o := f.Polygon(RegularPolygon(s.Sides, s.Radius))
		o.Left, o.Top = s.X, s.Y
		o.Fill = orDefault(s.Fill, "red")
		o.Stroke = orDefault(s.Stroke, "black")
		o.StrokeWidth = s.StrokeWidth
		if o.StrokeWidth == 0 {
			o.StrokeWidth = 2
		}
		out = append(out, o)
	}
	return out, nil
}

// RegularPolygon returns the vertices of a regular polygon centred on the
// origin with the first vertex pointing up.
func RegularPolygon(sides int, radius float64) []vector.Pt {
	pts := make([]vector.Pt, sides)
	for i := range pts {
		a := float64(i)*2*math.Pi/float64(sides) - math.Pi/2
		pts[i] = vector.Pt{X: radius * math.Cos(a), Y: radius * math.Sin(a)}
	}
	return pts
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
