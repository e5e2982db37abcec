/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/storage"
)

func sampleDoc() scene.Document {
	f := scene.NewFactory(scene.DefaultControlStyle(), nil)
	doc := scene.NewDocument()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	doc.Objects = []*scene.Object{
		f.Rect(),
		f.GradientRect(),
		f.Text(),
		f.DefaultPaddedText(),
		f.Image("pixel.png", img),
	}
	doc.Objects[1].Left, doc.Objects[1].Top = 400, 50
	doc.Objects[3].Left, doc.Objects[3].Top = 300, 400
	return doc
}

func TestFormatFromPath(t *testing.T) {
	for path, want := range map[string]Format{"a.svg": FormatSVG, "b.PNG": FormatPNG, "c.pdf": FormatPDF, "d.json": FormatJSON} {
		got, err := FormatFromPath(path)
		if err != nil || got != want {
			t.Fatalf("FormatFromPath(%q) = %q, %v", path, got, err)
		}
	}
	if _, err := FormatFromPath("x.gif"); err == nil {
		t.Fatalf("expected error for gif")
	}
}

func TestSVGContainsObjects(t *testing.T) {
	var buf bytes.Buffer
	if err := SVG(&buf, sampleDoc(), Options{}); err != nil {
		t.Fatalf("svg: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"<svg", "viewBox=\"0 0 800 600\"", "fill=\"#ff0000\"", "linearGradient", "data:image/png;base64,"} {
		if !strings.Contains(out, want) {
			t.Fatalf("svg missing %q", want)
		}
	}
	// the 200px wide textbox wraps its 40px sample text one word per line
	for _, word := range []string{">Hello</tspan>", ">Fabric.js!</tspan>"} {
		if !strings.Contains(out, word) {
			t.Fatalf("svg missing wrapped line %q", word)
		}
	}
	if strings.Contains(out, "Hello Fabric.js!") {
		t.Fatalf("sample text not wrapped")
	}
}

func TestSVGEscapesText(t *testing.T) {
	doc := scene.NewDocument()
	o := scene.New(scene.KindText)
	o.Width, o.Height = 200, 20
	o.Text = &scene.TextPayload{Text: "a < b & c", FontSize: 16}
	doc.Objects = []*scene.Object{o}
	var buf bytes.Buffer
	if err := SVG(&buf, doc, Options{}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "a &lt; b &amp; c") {
		t.Fatalf("text not escaped: %s", buf.String())
	}
}

func TestRenderPaintsRectAndBackground(t *testing.T) {
	img := Render(sampleDoc(), Options{})
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 600 {
		t.Fatalf("size = %v", b)
	}
	if c := img.RGBAAt(10, 10); c != (color.RGBA{255, 255, 255, 255}) {
		t.Fatalf("background = %v", c)
	}
	if c := img.RGBAAt(120, 120); c.R < 200 || c.G > 40 || c.B > 40 {
		t.Fatalf("rect pixel = %v, want red", c)
	}
}

func TestRenderScale(t *testing.T) {
	img := Render(sampleDoc(), Options{Scale: 0.5})
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Fatalf("size = %v", b)
	}
	if c := img.RGBAAt(60, 60); c.R < 200 || c.G > 40 {
		t.Fatalf("scaled rect pixel = %v", c)
	}
}

func TestRenderGradient(t *testing.T) {
	img := Render(sampleDoc(), Options{})
	// red on the left edge of the gradient rect, blue on the right
	left := img.RGBAAt(402, 150)
	right := img.RGBAAt(597, 150)
	if left.R <= left.B || right.B <= right.R {
		t.Fatalf("gradient direction wrong: left=%v right=%v", left, right)
	}
}

func TestPDFHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := PDF(&buf, sampleDoc(), Options{}); err != nil {
		t.Fatalf("pdf: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a pdf")
	}
}

func TestToFileJSONRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "scene.json")
	doc := sampleDoc()
	f, err := ToFile(path, doc, Options{})
	if err != nil || f != FormatJSON {
		t.Fatalf("ToFile = %q, %v", f, err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	back, err := scene.LoadDocument(data)
	if err != nil {
		t.Fatalf("exported json does not validate: %v", err)
	}
	if len(back.Objects) != len(doc.Objects) {
		t.Fatalf("objects = %d, want %d", len(back.Objects), len(doc.Objects))
	}
}

func TestBatchExport_WebPreset(t *testing.T) {
	root := t.TempDir()
	sh, err := storage.InitScene(filepath.Join(root, "poster.json"), sampleDoc())
	if err != nil {
		t.Fatalf("init scene: %v", err)
	}
	res, err := BatchExport(sh, BatchOptions{Preset: PresetWeb})
	if err != nil {
		t.Fatalf("batch export web: %v", err)
	}
	want := []string{
		filepath.Join(root, "exports", "web", "poster.png"),
		filepath.Join(root, "exports", "web", "poster.svg"),
	}
	if len(res.Files) != len(want) {
		t.Fatalf("files = %v", res.Files)
	}
	for i, p := range want {
		if res.Files[i] != p {
			t.Fatalf("file %d = %s, want %s", i, res.Files[i], p)
		}
		st, err := os.Stat(p)
		if err != nil || st.Size() == 0 {
			t.Fatalf("missing or empty %s: %v", p, err)
		}
	}
}

func TestBatchExport_PrintPreset(t *testing.T) {
	root := t.TempDir()
	sh, err := storage.InitScene(filepath.Join(root, "poster.json"), sampleDoc())
	if err != nil {
		t.Fatalf("init scene: %v", err)
	}
	if _, err := BatchExport(sh, BatchOptions{Preset: PresetPrint}); err != nil {
		t.Fatalf("batch export print: %v", err)
	}
	for _, p := range []string{
		filepath.Join(root, "exports", "print", "poster.pdf"),
		filepath.Join(root, "exports", "print", "poster@2x.png"),
	} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}
}
