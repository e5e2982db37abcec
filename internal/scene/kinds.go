/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"strconv"
	"strings"
)

// Kind discriminates the object variants. The value is the JSON "type" tag.
type Kind string

const (
	KindRect       Kind = "rect"
	KindCircle     Kind = "circle"
	KindTriangle   Kind = "triangle"
	KindLine       Kind = "line"
	KindPolygon    Kind = "polygon"
	KindPath       Kind = "path"
	KindImage      Kind = "image"
	KindText       Kind = "textbox"
	KindPaddedText Kind = "textbox-with-padding"
	KindGroup      Kind = "group"
)

var knownKinds = map[Kind]bool{
	KindRect: true, KindCircle: true, KindTriangle: true, KindLine: true,
	KindPolygon: true, KindPath: true, KindImage: true, KindText: true,
	KindPaddedText: true, KindGroup: true,
}

// Valid reports whether k is a known variant.
func (k Kind) Valid() bool { return knownKinds[k] }

// IsText reports whether the variant carries a text payload.
func (k Kind) IsText() bool { return k == KindText || k == KindPaddedText }

// Origin keywords accepted by OriginX/OriginY besides numeric fractions.
const (
	OriginLeft   = "left"
	OriginCenter = "center"
	OriginRight  = "right"
	OriginTop    = "top"
	OriginBottom = "bottom"
)

// OriginFraction resolves an origin keyword or numeric string to a fraction
// of the object's box. Unknown values resolve to 0.
func OriginFraction(s string) float64 {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "", OriginLeft, OriginTop:
		return 0
	case OriginCenter:
		return 0.5
	case OriginRight, OriginBottom:
		return 1
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}
