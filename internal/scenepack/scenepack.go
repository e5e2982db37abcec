/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scenepack bundles a scene with the workspace files it uses (local
// images and automation scripts) into a zip archive, and installs such an
// archive into another workspace.
package scenepack

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/storage"
	"gosceneeditor/internal/version"
)

// ManifestName is the archive entry describing the pack.
const ManifestName = "scenepack.json"

// ErrNoManifest is returned for archives without a manifest.
var ErrNoManifest = errors.New("scene pack has no manifest")

// Manifest lists what a pack holds. Paths are slash-separated and relative
// to the workspace root.
type Manifest struct {
	Scene      string    `json:"scene"`
	SceneID    string    `json:"scene_id"`
	AppVersion string    `json:"app_version"`
	Created    time.Time `json:"created"`
	Files      []string  `json:"files"`
}

// Export writes sh, the local images it references and the workspace
// scripts into destZip. Remote or out-of-workspace images are left out.
func Export(sh *storage.SceneHandle, destZip string) (Manifest, error) {
	if sh == nil {
		return Manifest{}, errors.New("scene handle is nil")
	}
	if strings.TrimSpace(destZip) == "" {
		return Manifest{}, errors.New("destZip is required")
	}
	l := applog.WithOperation(applog.WithComponent("scenepack"), "export").With(slog.String("scene", sh.Path))

	files := map[string]string{} // zip name -> disk path
	sceneName := filepath.Base(sh.Path)
	files[sceneName] = sh.Path
	for _, src := range imageSources(sh.Doc.Objects) {
		rel, ok := workspaceRel(sh.Root, src)
		if !ok {
			l.Warn("image not bundled", slog.String("src", src))
			continue
		}
		files[rel] = filepath.Join(sh.Root, filepath.FromSlash(rel))
	}
	scripts, _ := filepath.Glob(filepath.Join(sh.Root, storage.ScriptsDirName, "*"+storage.ScriptExt))
	for _, p := range scripts {
		files[path.Join(storage.ScriptsDirName, filepath.Base(p))] = p
	}

	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)
	m := Manifest{Scene: sceneName, SceneID: sh.Doc.ID, AppVersion: version.String(), Created: time.Now().UTC(), Files: names}

	// Ensure target directory exists
	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return m, fmt.Errorf("ensure zip dir: %w", err)
	}
	// On Windows, remove destination if present before create
	_ = os.Remove(destZip)
	zf, err := os.Create(destZip)
	if err != nil {
		return m, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	mb, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return m, err
	}
	w, err := zw.Create(ManifestName)
	if err != nil {
		return m, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := w.Write(mb); err != nil {
		return m, fmt.Errorf("write manifest: %w", err)
	}
	for _, n := range names {
		if err := addFile(zw, n, files[n]); err != nil {
			l.Error("zip build failed", slog.String("file", n), slog.Any("err", err))
			return m, fmt.Errorf("add %s: %w", n, err)
		}
	}
	if err := zw.Close(); err != nil {
		return m, fmt.Errorf("finish zip: %w", err)
	}
	l.Info("scene pack exported", slog.Int("files", len(names)), slog.String("zip", destZip))
	return m, nil
}

func addFile(zw *zip.Writer, name, diskPath string) error {
	f, err := os.Open(diskPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	fw, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(fw, f)
	return err
}

func imageSources(objs []*scene.Object) []string {
	var out []string
	for _, o := range objs {
		if o.Kind == scene.KindImage && o.Src != "" {
			out = append(out, o.Src)
		}
		out = append(out, imageSources(o.Children)...)
	}
	return out
}

// workspaceRel maps an image source to a slash path inside root.
func workspaceRel(root, src string) (string, bool) {
	if strings.Contains(src, "://") {
		return "", false
	}
	p := filepath.FromSlash(src)
	if !filepath.IsAbs(p) {
		p = filepath.Join(root, p)
	}
	rel, err := filepath.Rel(root, p)
	if err != nil || rel == "." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || rel == ".." {
		return "", false
	}
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// Install extracts the pack into root and indexes its scene. Existing files
// are not overwritten; they are skipped. It returns the scene path and the
// number of files written.
func Install(ctx context.Context, root, packZip string) (string, int, error) {
	if strings.TrimSpace(root) == "" {
		return "", 0, errors.New("root is required")
	}
	l := applog.WithOperation(applog.WithComponent("scenepack"), "install").With(slog.String("root", root))
	r, err := zip.OpenReader(packZip)
	if err != nil {
		return "", 0, fmt.Errorf("open pack: %w", err)
	}
	defer func() { _ = r.Close() }()

	m, err := readManifest(&r.Reader)
	if err != nil {
		return "", 0, err
	}
	if err := storage.InitWorkspace(root); err != nil {
		return "", 0, err
	}
	for _, f := range r.File {
		if _, err := target(root, f.Name); err != nil {
			return "", 0, err
		}
	}

	installed := 0
	for _, f := range r.File {
		if f.Name == ManifestName || f.FileInfo().IsDir() {
			continue
		}
		dst, _ := target(root, f.Name)
		if _, err := os.Stat(dst); err == nil {
			l.Warn("skip existing file", slog.String("path", dst))
			continue
		}
		if err := extract(f, dst); err != nil {
			return "", installed, fmt.Errorf("extract %s: %w", f.Name, err)
		}
		installed++
	}

	scenePath, err := target(root, m.Scene)
	if err != nil {
		return "", installed, err
	}
	sh, err := storage.Open(scenePath)
	if err != nil {
		return "", installed, fmt.Errorf("installed scene: %w", err)
	}
	if err := storage.UpdateIndex(ctx, sh); err != nil {
		l.Warn("index update failed", slog.Any("err", err))
	}
	l.Info("scene pack installed", slog.Int("files", installed), slog.String("scene", scenePath))
	return scenePath, installed, nil
}

func readManifest(zr *zip.Reader) (Manifest, error) {
	var m Manifest
	for _, f := range zr.File {
		if f.Name != ManifestName {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return m, err
		}
		defer func() { _ = rc.Close() }()
		if err := json.NewDecoder(io.LimitReader(rc, 1<<20)).Decode(&m); err != nil {
			return m, fmt.Errorf("parse manifest: %w", err)
		}
		if m.Scene == "" {
			return m, fmt.Errorf("manifest names no scene: %w", ErrNoManifest)
		}
		return m, nil
	}
	return m, ErrNoManifest
}

// target resolves an archive name inside root, rejecting paths that escape it.
func target(root, name string) (string, error) {
	clean := path.Clean(strings.ReplaceAll(name, "\\", "/"))
	if path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("pack entry %q escapes the workspace", name)
	}
	return filepath.Join(root, filepath.FromSlash(clean)), nil
}

func extract(f *zip.File, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
