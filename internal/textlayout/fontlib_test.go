/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package textlayout

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOTProvider_FallsBackWithoutFonts(t *testing.T) {
	p := OTProvider{Lib: NewFontLibrary()}
	_, met := p.Resolve(FontSpec{Family: "missing", SizePx: 26})
	if met.Scale != 2 {
		t.Fatalf("expected basic fallback scaled x2, got %+v", met)
	}
}

func TestFontLibrary_LoadDirSkipsNonFonts(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	fl := NewFontLibrary()
	fams, err := fl.LoadDir(dir)
	if err != nil || len(fams) != 0 {
		t.Fatalf("expected no families, got %v err=%v", fams, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "Broken.ttf"), []byte("not a font"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := fl.LoadDir(dir); err == nil {
		t.Fatalf("expected parse error for invalid font file")
	}
	if fl.Has("Broken") {
		t.Fatalf("broken font must not be registered")
	}
}
