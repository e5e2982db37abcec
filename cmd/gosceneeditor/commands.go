/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"gosceneeditor/internal/backend"
	"gosceneeditor/internal/config"
	"gosceneeditor/internal/crash"
	"gosceneeditor/internal/editor"
	"gosceneeditor/internal/export"
	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/scene"
	"gosceneeditor/internal/scenepack"
	"gosceneeditor/internal/storage"
	"gosceneeditor/internal/ui"
)

const tokenTTL = 12 * time.Hour

func newEditor(cfg config.AppConfig) *editor.Editor {
	return editor.New(editor.FromConfig(cfg.Editor))
}

// openOrNew opens path when it exists and leaves the editor empty otherwise.
func openOrNew(ed *editor.Editor, path string) error {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		return ed.Open(path)
	case errors.Is(err, os.ErrNotExist):
		return nil
	default:
		return err
	}
}

func persist(ed *editor.Editor, path string) error {
	if ed.Handle() == nil {
		return ed.SaveAs(path)
	}
	return ed.Save()
}

func cmdNew(_ context.Context, cfg config.AppConfig, args []string) error {
	path, _ := filepath.Abs(args[0])
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	doc := scene.NewDocument()
	doc.Width, doc.Height = cfg.Editor.CanvasWidth, cfg.Editor.CanvasHeight
	if cfg.Editor.Background != "" {
		doc.Background = cfg.Editor.Background
	}
	sh, err := storage.InitScene(path, doc)
	if err != nil {
		return err
	}
	fmt.Printf("Created scene %s at %s\n", sh.Doc.ID, sh.Path)
	return nil
}

func cmdInfo(_ context.Context, _ config.AppConfig, args []string) error {
	sh, err := storage.Open(args[0])
	if err != nil {
		return err
	}
	defer crash.Recover(sh)
	d := sh.Doc
	fmt.Printf("Scene: %s\n", sh.Name())
	fmt.Printf("ID: %s\n", d.ID)
	fmt.Printf("Canvas: %gx%g %s\n", d.Width, d.Height, d.Background)
	fmt.Printf("Objects: %d\n", len(d.Objects))
	kinds := map[scene.Kind]int{}
	var count func(objs []*scene.Object)
	count = func(objs []*scene.Object) {
		for _, o := range objs {
			kinds[o.Kind]++
			count(o.Children)
		}
	}
	count(d.Objects)
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, string(k))
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Printf("  %-14s %d\n", k, kinds[scene.Kind(k)])
	}
	return nil
}

func cmdExport(_ context.Context, cfg config.AppConfig, args []string) error {
	ed := newEditor(cfg)
	if err := ed.Open(args[0]); err != nil {
		return err
	}
	defer crash.Recover(ed.Handle())
	if err := ed.Export(args[1]); err != nil {
		return err
	}
	fmt.Println("Exported", args[1])
	return nil
}

func cmdBatchExport(_ context.Context, cfg config.AppConfig, args []string) error {
	sh, err := storage.Open(args[0])
	if err != nil {
		return err
	}
	preset := export.PresetWeb
	if len(args) > 1 {
		preset = export.PresetName(args[1])
	}
	res, err := export.BatchExport(sh, export.BatchOptions{
		Preset:  preset,
		Options: export.Options{Provider: editor.FromConfig(cfg.Editor).Provider},
	})
	if err != nil {
		return err
	}
	for _, f := range res.Files {
		fmt.Println(f)
	}
	return nil
}

func cmdPolygons(_ context.Context, cfg config.AppConfig, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	ed := newEditor(cfg)
	if err := openOrNew(ed, args[1]); err != nil {
		return err
	}
	n, err := ed.LoadPolygons(data)
	if err != nil {
		return err
	}
	if err := persist(ed, args[1]); err != nil {
		return err
	}
	fmt.Printf("Loaded %d polygons into %s\n", n, args[1])
	return nil
}

func cmdImportSVG(_ context.Context, cfg config.AppConfig, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()
	ed := newEditor(cfg)
	if err := openOrNew(ed, args[1]); err != nil {
		return err
	}
	o, err := ed.ImportSVG(f)
	if err != nil {
		return err
	}
	if err := persist(ed, args[1]); err != nil {
		return err
	}
	fmt.Printf("Imported %s as %s %s\n", filepath.Base(args[0]), o.Kind, o.ID)
	return nil
}

// cmdScript runs a .star file, or a script stored in the workspace scripts
// folder by name. --keep stores a file script in the workspace.
func cmdScript(ctx context.Context, cfg config.AppConfig, args []string) error {
	scriptArg, scenePath := args[0], args[1]
	keep := len(args) > 2 && args[2] == "--keep"
	root := filepath.Dir(scenePath)

	name := filepath.Base(scriptArg)
	src, err := os.ReadFile(scriptArg)
	fromFile := err == nil
	if errors.Is(err, os.ErrNotExist) {
		s, rerr := storage.ReadScript(root, scriptArg)
		if rerr != nil {
			return rerr
		}
		if s == "" {
			return fmt.Errorf("script %q not found as a file or in %s", scriptArg, filepath.Join(root, storage.ScriptsDirName))
		}
		src = []byte(s)
		name = filepath.Base(storage.ScriptFilePath(root, scriptArg))
	} else if err != nil {
		return err
	}

	ed := newEditor(cfg)
	if err := openOrNew(ed, scenePath); err != nil {
		return err
	}
	defer crash.Recover(ed.Handle())
	res, err := ed.RunScript(ctx, name, string(src), func(s string) { fmt.Println(s) })
	if err != nil {
		return err
	}
	if err := persist(ed, scenePath); err != nil {
		return err
	}
	if keep && fromFile {
		if err := storage.WriteScript(root, strings.TrimSuffix(name, filepath.Ext(name)), string(src)); err != nil {
			return err
		}
	}
	applog.WithComponent("cli").Info("script finished", slog.String("script", name), slog.Int("globals", len(res.Globals)))
	return nil
}

func cmdScenes(ctx context.Context, _ config.AppConfig, args []string) error {
	list, err := storage.ListScenes(ctx, args[0])
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tOBJECTS\tUPDATED\tPATH")
	for _, s := range list {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n", s.ID, s.Objects, s.UpdatedAt.Local().Format(time.DateTime), s.Path)
	}
	return tw.Flush()
}

func cmdSearch(ctx context.Context, _ config.AppConfig, args []string) error {
	hits, err := storage.SearchText(ctx, args[0], strings.Join(args[1:], " "), 50)
	if err != nil {
		return err
	}
	if len(hits) == 0 {
		fmt.Println("No matches")
		return nil
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, h := range hits {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", filepath.Base(h.Path), h.Kind, h.ObjectID, h.Snippet)
	}
	return tw.Flush()
}

func cmdReindex(ctx context.Context, _ config.AppConfig, args []string) error {
	n, err := storage.RebuildIndex(ctx, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d scenes\n", n)
	return nil
}

func cmdSnapshots(ctx context.Context, _ config.AppConfig, args []string) error {
	sh, err := storage.Open(args[0])
	if err != nil {
		return err
	}
	snaps, err := storage.ListSnapshots(ctx, sh, 20)
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println("No autosave snapshots")
		return nil
	}
	for _, s := range snaps {
		fmt.Printf("%s  %d bytes\n", s.TS.Local().Format(time.DateTime), len(s.Blob))
	}
	return nil
}

func cmdPack(_ context.Context, _ config.AppConfig, args []string) error {
	sh, err := storage.Open(args[0])
	if err != nil {
		return err
	}
	m, err := scenepack.Export(sh, args[1])
	if err != nil {
		return err
	}
	fmt.Printf("Packed %d files into %s\n", len(m.Files), args[1])
	return nil
}

func cmdUnpack(ctx context.Context, _ config.AppConfig, args []string) error {
	root, _ := filepath.Abs(args[1])
	path, n, err := scenepack.Install(ctx, root, args[0])
	if err != nil {
		return err
	}
	fmt.Printf("Installed %d files; scene at %s\n", n, path)
	return nil
}

// libraryClient returns a client for the configured library, requesting and
// storing a token when the keychain has none.
func libraryClient(ctx context.Context, cfg config.AppConfig) (*backend.Client, error) {
	tok, err := config.SyncToken()
	if err != nil {
		applog.WithComponent("cli").Warn("keyring unavailable", slog.Any("err", err))
	}
	c := backend.NewClient(cfg.Sync.BaseURL, tok, cfg.Sync.Timeout(), cfg.Sync.TLSInsecure)
	if tok != "" {
		return c, nil
	}
	subject := os.Getenv("USER")
	if subject == "" {
		subject = "cli"
	}
	t, err := c.RequestToken(ctx, subject, tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("request token: %w", err)
	}
	if err := config.SetSyncToken(t.Token); err != nil {
		applog.WithComponent("cli").Warn("token not stored", slog.Any("err", err))
	}
	return c, nil
}

func cmdPublish(ctx context.Context, cfg config.AppConfig, args []string) error {
	sh, err := storage.Open(args[0])
	if err != nil {
		return err
	}
	if sh.Doc.ID == "" {
		// Save assigns the scene id.
		if err := storage.Save(sh); err != nil {
			return err
		}
	}
	name := sh.Name()
	if len(args) > 1 {
		name = args[1]
	}
	c, err := libraryClient(ctx, cfg)
	if err != nil {
		return err
	}
	v, err := c.Publish(ctx, name, sh.Doc)
	if err != nil {
		return err
	}
	fmt.Printf("Published %s as %q version %d\n", sh.Doc.ID, name, v)
	return nil
}

func cmdPull(ctx context.Context, cfg config.AppConfig, args []string) error {
	id, path := args[0], args[1]
	c, err := libraryClient(ctx, cfg)
	if err != nil {
		return err
	}
	doc, sum, err := c.Pull(ctx, id)
	if err != nil {
		return err
	}
	if _, statErr := os.Stat(path); statErr == nil {
		sh, err := storage.Open(path)
		if err != nil {
			return err
		}
		sh.Doc = doc
		if err := storage.Save(sh); err != nil {
			return err
		}
	} else if _, err := storage.InitScene(path, doc); err != nil {
		return err
	}
	fmt.Printf("Pulled %q version %d (%d objects) into %s\n", sum.Name, sum.Version, len(doc.Objects), path)
	return nil
}

func cmdServe(ctx context.Context, cfg config.AppConfig, _ []string) error {
	if !cfg.General.EnableServer {
		return fmt.Errorf("scene library server is disabled; set general.enable_server or %s=1", config.EnvEnableServer)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return backend.Start(ctx, backend.LoadConfig())
}

func cmdUI(_ context.Context, _ config.AppConfig, args []string) error {
	var path string
	if len(args) > 0 {
		path = args[0]
	}
	return ui.Run(path)
}
