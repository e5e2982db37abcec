/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders scene documents to SVG, PNG and PDF, and writes
// the JSON document form. Every raster and vector target implements
// scene.Surface, so objects render themselves the same way everywhere.
package export

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"math"
	"path/filepath"
	"strings"

	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/storage"
	"gosceneeditor/internal/textlayout"
	"gosceneeditor/internal/vector"
)

// Format names an output format.
type Format string

const (
	FormatJSON Format = "json"
	FormatSVG  Format = "svg"
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
)

// FormatFromPath picks the format from a file extension.
func FormatFromPath(path string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))); f {
	case FormatJSON, FormatSVG, FormatPNG, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", filepath.Ext(path))
	}
}

// Options controls rendering. Zero values pick sensible defaults.
type Options struct {
	// Scale multiplies the canvas size for raster output (PNG). Default 1.
	Scale float64
	// Background overrides the document background when non-empty.
	Background string
	// Provider measures and draws text. Default basicfont.
	Provider textlayout.Provider
}

func (o Options) scale() float64 {
	if o.Scale <= 0 {
		return 1
	}
	return o.Scale
}

func (o Options) provider() textlayout.Provider {
	if o.Provider == nil {
		return textlayout.BasicProvider{}
	}
	return o.Provider
}

func (o Options) background(doc scene.Document) (vector.Color, bool) {
	bg := doc.Background
	if o.Background != "" {
		bg = o.Background
	}
	return vector.ParseColor(bg)
}

// canvasSize returns the document size, falling back to the object bounds.
func canvasSize(doc scene.Document) (w, h float64) {
	w, h = doc.Width, doc.Height
	if w > 0 && h > 0 {
		return w, h
	}
	var rs []vector.Rect
	for _, o := range doc.Objects {
		rs = append(rs, o.Bounds())
	}
	if u, ok := vector.UnionAll(rs); ok {
		return math.Max(1, math.Ceil(u.X+u.W)), math.Max(1, math.Ceil(u.Y+u.H))
	}
	return 800, 600
}

// Write renders doc in format f to w.
func Write(w io.Writer, doc scene.Document, f Format, opt Options) error {
	switch f {
	case FormatJSON:
		data, err := scene.MarshalDocument(doc)
		if err != nil {
			return err
		}
		_, err = w.Write(data)
		return err
	case FormatSVG:
		return SVG(w, doc, opt)
	case FormatPNG:
		return PNG(w, doc, opt)
	case FormatPDF:
		return PDF(w, doc, opt)
	default:
		return fmt.Errorf("unsupported export format %q", f)
	}
}

// ToFile renders doc to path, choosing the format by extension. The file is
// replaced atomically.
func ToFile(path string, doc scene.Document, opt Options) (Format, error) {
	f, err := FormatFromPath(path)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := Write(&buf, doc, f, opt); err != nil {
		return f, fmt.Errorf("render %s: %w", f, err)
	}
	if err := storage.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return f, fmt.Errorf("write %s: %w", path, err)
	}
	applog.WithComponent("export").Info("exported",
		slog.String("format", string(f)),
		slog.String("path", path),
		slog.Int("objects", len(doc.Objects)))
	return f, nil
}

// strokeScale is the length scale of m, used to size strokes.
func strokeScale(m vector.Affine2D) float64 {
	return math.Sqrt(math.Abs(m.A*m.D - m.B*m.C))
}

// layoutLines wraps t the same way the editor measures text boxes.
func layoutLines(p textlayout.Provider, t scene.TextRun) textlayout.TextBox {
	spec := textlayout.FontSpec{Family: t.FontFamily, SizePx: t.FontSize}
	box, _ := textlayout.NewWordWrap(p).Layout(t.Text, spec, t.Width, t.LineHeight)
	return box
}

// lineStep returns the distance between consecutive baselines.
func lineStep(t scene.TextRun) float64 {
	return textlayout.BoxHeight(2, t.FontSize, t.LineHeight) - textlayout.BoxHeight(1, t.FontSize, t.LineHeight)
}

// alignOffset places a line of width lw inside a box of width bw.
func alignOffset(align string, bw, lw float64) float64 {
	switch align {
	case "center":
		return (bw - lw) / 2
	case "right":
		return bw - lw
	default:
		return 0
	}
}
