/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gosceneeditor/internal/ids"
	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
)

const (
	SceneExt       = ".json"
	BackupsDirName = "backups"
	ScriptsDirName = "scripts"
	ScriptExt      = ".star"
)

// Standard subfolders of a workspace.
var standardSubDirs = []string{
	"assets",
	"exports",
	ScriptsDirName,
	BackupsDirName,
}

// SceneHandle tracks one scene file. Root is the workspace directory that
// holds the file, its backups and the index.
type SceneHandle struct {
	Root string
	Path string
	Doc  scene.Document
}

// Name is the file name without extension.
func (sh *SceneHandle) Name() string {
	return strings.TrimSuffix(filepath.Base(sh.Path), filepath.Ext(sh.Path))
}

// InitWorkspace creates root and the standard subfolders.
func InitWorkspace(root string) error {
	if strings.TrimSpace(root) == "" {
		return errors.New("workspace root is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	return nil
}

// InitScene scaffolds the workspace around path and writes doc there.
// A document without an ID gets a fresh scene ID.
func InitScene(path string, doc scene.Document) (*SceneHandle, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("scene path is required")
	}
	root := filepath.Dir(path)
	if err := InitWorkspace(root); err != nil {
		return nil, err
	}
	sh := &SceneHandle{Root: root, Path: path, Doc: doc}
	if err := Save(sh); err != nil {
		return nil, err
	}
	return sh, nil
}

// Open loads a scene file, validating it against the document schema.
// If the file cannot be read or is invalid, the latest backup is tried.
func Open(path string) (*SceneHandle, error) {
	root := filepath.Dir(path)
	b, err := os.ReadFile(path)
	if err != nil {
		doc, berr := openFromLatestBackup(path)
		if berr != nil {
			return nil, fmt.Errorf("open scene: %w; backup attempt: %v", err, berr)
		}
		return &SceneHandle{Root: root, Path: path, Doc: *doc}, nil
	}
	doc, derr := scene.LoadDocument(b)
	if derr != nil {
		bdoc, berr := openFromLatestBackup(path)
		if berr != nil {
			return nil, fmt.Errorf("parse scene: %w; backup attempt: %v", derr, berr)
		}
		applog.WithComponent("storage").Warn("scene restored from backup", slog.String("path", path), slog.Any("err", derr))
		return &SceneHandle{Root: root, Path: path, Doc: *bdoc}, nil
	}
	return &SceneHandle{Root: root, Path: path, Doc: doc}, nil
}

// Save writes the document with transactional semantics and a timestamped
// backup of the previous file, then refreshes the workspace index.
// Index failures are logged and do not fail the save.
func Save(sh *SceneHandle) error {
	if sh == nil {
		return errors.New("nil SceneHandle")
	}
	if sh.Root == "" || sh.Path == "" {
		return errors.New("invalid SceneHandle: missing paths")
	}
	if sh.Doc.ID == "" {
		sh.Doc.ID = ids.NewSceneID()
	}
	data, err := scene.MarshalDocument(sh.Doc)
	if err != nil {
		return fmt.Errorf("marshal scene: %w", err)
	}
	data = append(data, '\n')

	bdir := filepath.Join(sh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	if _, statErr := os.Stat(sh.Path); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(sh.Path), stamp))
		if cerr := copyFile(sh.Path, bpath); cerr != nil {
			return fmt.Errorf("backup current scene: %w", cerr)
		}
	}
	if err := WriteFileAtomic(sh.Path, data); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := UpdateIndex(ctx, sh); err != nil {
		applog.WithComponent("storage").Warn("index update failed", slog.String("path", sh.Path), slog.Any("err", err))
	}
	return nil
}

// SaveAs writes the scene to a new path, scaffolding its workspace, and
// updates the handle.
func SaveAs(sh *SceneHandle, newPath string) error {
	if sh == nil {
		return errors.New("nil SceneHandle")
	}
	if newPath == "" {
		return errors.New("new path is empty")
	}
	root := filepath.Dir(newPath)
	if err := InitWorkspace(root); err != nil {
		return err
	}
	sh.Root = root
	sh.Path = newPath
	return Save(sh)
}

// AutosaveCrashSnapshot writes the in-memory document next to the backups
// without touching the scene file. It returns the snapshot path.
func AutosaveCrashSnapshot(sh *SceneHandle) (string, error) {
	if sh == nil {
		return "", errors.New("nil SceneHandle")
	}
	data, err := scene.MarshalDocument(sh.Doc)
	if err != nil {
		return "", fmt.Errorf("marshal scene: %w", err)
	}
	bdir := filepath.Join(sh.Root, BackupsDirName)
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return "", fmt.Errorf("ensure backups dir: %w", err)
	}
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(bdir, fmt.Sprintf("%s.crash-%s.json", sh.Name(), stamp))
	if err := WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// ScriptFilePath returns the path of the named automation script.
func ScriptFilePath(root, name string) string {
	if filepath.Ext(name) != ScriptExt {
		name += ScriptExt
	}
	return filepath.Join(root, ScriptsDirName, name)
}

// ReadScript returns the script text, or "" when it does not exist.
func ReadScript(root, name string) (string, error) {
	b, err := os.ReadFile(ScriptFilePath(root, name))
	if errors.Is(err, os.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read script: %w", err)
	}
	return string(b), nil
}

// WriteScript stores a script transactionally.
func WriteScript(root, name, content string) error {
	p := ScriptFilePath(root, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("ensure scripts dir: %w", err)
	}
	return WriteFileAtomic(p, []byte(content))
}

// WriteFileAtomic writes data to a temp file in the target directory and
// renames it over path.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		return fmt.Errorf("write temp file: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace %s: %w", filepath.Base(path), rerr)
	}
	return nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// backups lists the backup files of a scene, oldest first.
func backups(path string) ([]string, error) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

// PruneBackups keeps the newest keep backups of the scene at path.
func PruneBackups(path string, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}
	list, err := backups(path)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := 0; i < len(list)-keep; i++ {
		if err := os.Remove(list[i]); err == nil {
			n++
		}
	}
	return n, nil
}

func openFromLatestBackup(path string) (*scene.Document, error) {
	list, err := backups(path)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, errors.New("no backups found")
	}
	latest := list[len(list)-1]
	b, err := os.ReadFile(latest)
	if err != nil {
		return nil, fmt.Errorf("read latest backup: %w", err)
	}
	doc, err := scene.LoadDocument(b)
	if err != nil {
		return nil, fmt.Errorf("parse latest backup: %w", err)
	}
	return &doc, nil
}
