/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"gosceneeditor/internal/storage"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// BatchOptions controls batch export of one scene to several formats.
//
// Path semantics:
//   - If OutDir is empty or relative, it is created under <workspace>/exports/<preset>/.
//   - Files are named <scene>.<ext>; raster output gets an @<scale>x suffix when Scale != 1.
type BatchOptions struct {
	Preset  PresetName
	Formats []string // allowed: json, svg, png, pdf; empty means preset defaults
	Scale   float64  // raster scale; zero means the preset default
	OutDir  string
	Options Options
}

// BatchResult lists the files written, in format order.
type BatchResult struct {
	Files []string
}

// BatchExport renders sh into every format of the preset.
func BatchExport(sh *storage.SceneHandle, opt BatchOptions) (BatchResult, error) {
	var res BatchResult
	if sh == nil {
		return res, fmt.Errorf("scene handle is nil")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	baseOut := opt.OutDir
	if baseOut == "" {
		baseOut = string(opt.Preset)
		if baseOut == "" {
			baseOut = "default"
		}
	}
	if !filepath.IsAbs(baseOut) {
		baseOut = filepath.Join(sh.Root, "exports", baseOut)
	}
	ro := opt.Options
	ro.Scale = opt.Scale
	if ro.Scale <= 0 {
		ro.Scale = presetScale(opt.Preset)
	}
	for _, raw := range formats {
		f := Format(strings.ToLower(strings.TrimSpace(raw)))
		name := sh.Name()
		if f == FormatPNG && ro.Scale != 1 {
			name = fmt.Sprintf("%s@%gx", name, ro.Scale)
		}
		out := filepath.Join(baseOut, name+"."+string(f))
		if _, err := ToFile(out, sh.Doc, ro); err != nil {
			return res, fmt.Errorf("%s: %w", f, err)
		}
		res.Files = append(res.Files, out)
	}
	return res, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"png", "svg"}
	case PresetPrint:
		return []string{"pdf", "png"}
	default:
		return []string{"json"}
	}
}

func presetScale(p PresetName) float64 {
	if p == PresetPrint {
		return 2
	}
	return 1
}
