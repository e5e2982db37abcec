/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gosceneeditor/internal/export"
	"gosceneeditor/internal/ids"
	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/script"
	"gosceneeditor/internal/storage"
	"gosceneeditor/internal/telemetry"
)

// ThumbnailKind is the preview cache kind used for scene thumbnails.
const ThumbnailKind = "thumb"

// ErrNoScenePath reports a save of a scene that was never given a file.
var ErrNoScenePath = errors.New("scene has no file; use SaveAs")

// Load replaces the editor state with doc. History and the menu are reset.
func (e *Editor) Load(doc scene.Document, sh *storage.SceneHandle) error {
	return e.do("load", func() error { return e.loadLocked(doc, sh) })
}

func (e *Editor) loadLocked(doc scene.Document, sh *storage.SceneHandle) error {
	e.endDrag()
	if err := e.store.Replace(doc.Objects); err != nil {
		return fmt.Errorf("load: %w", err)
	}
	e.history.ClearScene(e.id)
	if doc.ID == "" {
		doc.ID = ids.NewSceneID()
	}
	e.id = doc.ID
	e.sh = sh
	if sh != nil {
		sh.Doc.ID = doc.ID
	}
	e.background = doc.Background
	if e.background == "" {
		e.background = "white"
	}
	e.width, e.height = doc.Width, doc.Height
	if e.width <= 0 || e.height <= 0 {
		e.width, e.height = e.cfg.CanvasWidth, e.cfg.CanvasHeight
	}
	for _, o := range doc.Objects {
		e.rememberPixels(o)
	}
	e.menu.Hide()
	e.menu.ClearTarget()
	e.dirty = false
	return nil
}

// Open loads the scene file at path.
func (e *Editor) Open(path string) error {
	sh, err := storage.Open(path)
	if err != nil {
		e.log.Warn("operation failed", slog.String("op", "open"), slog.Any("err", err))
		return err
	}
	return e.Load(sh.Doc, sh)
}

// Save writes the scene to its file, prunes old backups and drops cached
// thumbnails.
func (e *Editor) Save() error {
	return e.do("save", func() error {
		if e.sh == nil {
			return ErrNoScenePath
		}
		return e.saveLocked()
	})
}

// SaveAs writes the scene to path and makes it the scene's file.
func (e *Editor) SaveAs(path string) error {
	return e.do("save-as", func() error {
		if e.sh == nil {
			sh, err := storage.InitScene(path, e.document())
			if err != nil {
				return err
			}
			e.sh = sh
			e.afterSave()
			return nil
		}
		e.sh.Doc = e.document()
		if err := storage.SaveAs(e.sh, path); err != nil {
			return err
		}
		e.afterSave()
		return nil
	})
}

func (e *Editor) saveLocked() error {
	e.sh.Doc = e.document()
	if err := storage.Save(e.sh); err != nil {
		return err
	}
	e.afterSave()
	return nil
}

func (e *Editor) afterSave() {
	e.dirty = false
	if _, err := storage.PruneBackups(e.sh.Path, e.cfg.BackupsKeep); err != nil {
		e.log.Warn("prune backups failed", slog.Any("err", err))
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := storage.InvalidatePreviews(ctx, e.sh.Root, e.id); err != nil {
		e.log.Warn("invalidate previews failed", slog.Any("err", err))
	}
	telemetry.SceneSaved(e.store.Len())
	e.log.Info("scene saved", slog.String("path", e.sh.Path), slog.Int("objects", e.store.Len()))
}

// Autosave stores the current state as a snapshot in the workspace index
// and keeps the newest BackupsKeep snapshots. The scene must have a file.
func (e *Editor) Autosave(ctx context.Context) error {
	return e.do("autosave", func() error {
		if e.sh == nil {
			return ErrNoScenePath
		}
		ctx = applog.ContextWithScene(ctx, e.sh.Name())
		e.sh.Doc = e.document()
		blob, err := scene.MarshalDocument(e.sh.Doc)
		if err != nil {
			return err
		}
		if err := storage.SaveSnapshot(ctx, e.sh, blob, e.now()); err != nil {
			return fmt.Errorf("autosave: %w", err)
		}
		n, err := storage.PruneOldSnapshots(ctx, e.sh, e.cfg.BackupsKeep)
		if err != nil {
			e.log.WarnContext(ctx, "prune snapshots failed", slog.Any("err", err))
		}
		e.log.DebugContext(ctx, "autosaved", slog.Int("bytes", len(blob)), slog.Int64("pruned", n))
		return nil
	})
}

// RestoreAutosave loads the newest snapshot of the scene. It reports false
// when there is none.
func (e *Editor) RestoreAutosave(ctx context.Context) (bool, error) {
	var ok bool
	err := e.do("restore-autosave", func() error {
		if e.sh == nil {
			return ErrNoScenePath
		}
		blob, _, err := storage.GetLatestSnapshot(ctx, e.sh)
		if err != nil || blob == nil {
			return err
		}
		if err := scene.ValidateDocument(blob); err != nil {
			return fmt.Errorf("restore autosave: %w", err)
		}
		e.record()
		if err := e.restore(blob); err != nil {
			return err
		}
		e.dirty = true
		ok = true
		return nil
	})
	return ok, err
}

// Export renders the scene to path in the format named by its extension.
func (e *Editor) Export(path string) error {
	return e.do("export", func() error {
		doc := e.document()
		f, err := export.ToFile(path, doc, export.Options{Provider: e.factory.Provider})
		if err != nil {
			return err
		}
		telemetry.SceneExported(string(f), len(doc.Objects))
		return nil
	})
}

// Thumbnail returns a PNG preview of at most maxW x maxH pixels. Saved
// scenes cache it in the workspace index until the next save.
func (e *Editor) Thumbnail(ctx context.Context, maxW, maxH int) ([]byte, error) {
	var out []byte
	err := e.do("thumbnail", func() error {
		doc := e.document()
		scale := 1.0
		if doc.Width > 0 && doc.Height > 0 {
			scale = min(float64(maxW)/doc.Width, float64(maxH)/doc.Height)
		}
		gen := func(context.Context) ([]byte, error) {
			var buf bytes.Buffer
			if err := export.PNG(&buf, doc, export.Options{Scale: scale, Provider: e.factory.Provider}); err != nil {
				return nil, err
			}
			return buf.Bytes(), nil
		}
		if e.sh == nil {
			var err error
			out, err = gen(ctx)
			return err
		}
		var err error
		out, err = storage.GetOrCreatePreview(ctx, e.sh.Root, e.id, ThumbnailKind, maxW, maxH, gen)
		return err
	})
	return out, err
}

// RunScript executes a Starlark script against the scene as one undo step.
// A failing script leaves the scene unchanged.
func (e *Editor) RunScript(ctx context.Context, filename, src string, out func(string)) (script.Result, error) {
	var res script.Result
	err := e.do("script", func() error {
		e.endDrag()
		before := e.snapshot()
		env := &script.Env{
			Store:      e.store,
			Factory:    e.factory,
			Background: e.background,
			Width:      e.width,
			Height:     e.height,
			Print:      out,
		}
		var err error
		res, err = script.Run(ctx, env, filename, src)
		if err != nil {
			if rerr := e.restore(before); rerr != nil {
				e.log.Error("restore after script failure", slog.Any("err", rerr))
			}
			return err
		}
		e.background = env.Background
		e.menu.Hide()
		e.menu.ClearTarget()
		if before != nil {
			e.history.Record(undoSnapshot(e.id, before, e.now()))
		}
		return nil
	})
	return res, err
}
