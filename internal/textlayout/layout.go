/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

// Text measurement and line breaking for text objects.
// All measurement goes through Provider so results stay deterministic
// in tests (BasicProvider) and accurate with loaded fonts (OTProvider).

import (
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

const (
	// DefaultLineHeight is the line spacing multiplier for text boxes.
	DefaultLineHeight = 1.16
	// fontSizeMult is the glyph box height relative to the font size.
	fontSizeMult = 1.13
)

// FontSpec describes a requested font.
type FontSpec struct {
	Family string // logical family name
	SizePx float64
	Weight int // 100..900
	Italic bool
}

// Metrics provides font metrics in pixels for the resolved face.
// Scale converts the face's native advances to the requested size.
type Metrics struct {
	Ascent, Descent, LineGap float64
	Scale                    float64
}

// Line is a single laid out line.
type Line struct {
	Text  string
	Width float64
}

// TextBox is the result of laying out text into a box width.
type TextBox struct {
	Lines   []Line
	Width   float64
	Height  float64
	Metrics Metrics
}

// Provider maps FontSpec to a concrete font.Face.
type Provider interface {
	Resolve(FontSpec) (font.Face, Metrics)
}

// Layouter performs line-breaking and measurement.
type Layouter interface {
	Layout(text string, spec FontSpec, maxWidth, lineHeight float64) (TextBox, error)
}

// BasicProvider uses x/image/basicfont Face7x13 scaled to the requested size.
type BasicProvider struct{}

func (BasicProvider) Resolve(spec FontSpec) (font.Face, Metrics) {
	f := basicfont.Face7x13
	m := f.Metrics()
	scale := 1.0
	if spec.SizePx > 0 {
		scale = spec.SizePx / float64(m.Height.Round())
	}
	return f, Metrics{
		Ascent:  float64(m.Ascent.Round()) * scale,
		Descent: float64(m.Descent.Round()) * scale,
		LineGap: float64(m.Height.Round()-m.Ascent.Round()-m.Descent.Round()) * scale,
		Scale:   scale,
	}
}

// WordWrapLayouter breaks on spaces and explicit newlines; it does not
// perform shaping or hyphenation.
type WordWrapLayouter struct{ Provider Provider }

func NewWordWrap(provider Provider) *WordWrapLayouter { return &WordWrapLayouter{Provider: provider} }

func (l *WordWrapLayouter) Layout(text string, spec FontSpec, maxWidth, lineHeight float64) (TextBox, error) {
	if l.Provider == nil {
		l.Provider = BasicProvider{}
	}
	if lineHeight <= 0 {
		lineHeight = DefaultLineHeight
	}
	face, met := l.Provider.Resolve(spec)
	drawer := &font.Drawer{Face: face}
	box := TextBox{Metrics: met}
	addLine := func(s string) {
		w := advance(drawer, s, met.Scale)
		box.Lines = append(box.Lines, Line{Text: s, Width: w})
		if w > box.Width {
			box.Width = w
		}
	}
	for _, para := range strings.Split(text, "\n") {
		words := strings.Split(para, " ")
		cur := ""
		for i, word := range words {
			candidate := word
			if i > 0 {
				candidate = cur + " " + word
			}
			// a word wider than maxWidth stays on its own line
			if i > 0 && maxWidth > 0 && cur != "" && advance(drawer, candidate, met.Scale) > maxWidth {
				addLine(cur)
				cur = word
				continue
			}
			cur = candidate
		}
		addLine(cur)
	}
	box.Height = BoxHeight(len(box.Lines), spec.SizePx, lineHeight)
	return box, nil
}

// BoxHeight returns the height of n lines at size px: the last line takes
// no extra line spacing.
func BoxHeight(n int, sizePx, lineHeight float64) float64 {
	if n <= 0 {
		return 0
	}
	if sizePx <= 0 {
		sizePx = 13
	}
	if lineHeight <= 0 {
		lineHeight = DefaultLineHeight
	}
	per := sizePx * fontSizeMult
	return per*lineHeight*float64(n-1) + per
}

func advance(d *font.Drawer, s string, scale float64) float64 {
	if scale <= 0 {
		scale = 1
	}
	return float64(d.MeasureString(s)) / 64 * scale // fixed.Int26_6 to px
}

// Measure returns the width of a single unbroken run and its line height.
func Measure(provider Provider, text string, spec FontSpec) (w, h float64) {
	if provider == nil {
		provider = BasicProvider{}
	}
	face, met := provider.Resolve(spec)
	d := &font.Drawer{Face: face}
	return advance(d, text, met.Scale), met.Ascent + met.Descent
}
