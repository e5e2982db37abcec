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
	"fmt"
	"log/slog"
	"os"
	"time"

	"gosceneeditor/internal/config"
	"gosceneeditor/internal/crash"
	applog "gosceneeditor/internal/log"
	"gosceneeditor/internal/telemetry"
	"gosceneeditor/internal/version"
)

func usage() {
	fmt.Println("Go Scene Editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  gosceneeditor version|-v|--version                 Show version")
	fmt.Println("  gosceneeditor new <scene.json>                      Create an empty scene")
	fmt.Println("  gosceneeditor info <scene.json>                     Print a scene summary")
	fmt.Println("  gosceneeditor export <scene.json> <out>             Export to .svg, .png, .pdf or .json")
	fmt.Println("  gosceneeditor batch-export <scene.json> [web|print] Export every format of a preset")
	fmt.Println("  gosceneeditor polygons <polygons.json> <scene.json> Replace the scene with regular polygons")
	fmt.Println("  gosceneeditor import-svg <file.svg> <scene.json>    Add the shapes of an SVG file")
	fmt.Println("  gosceneeditor script <file.star|name> <scene.json>  Run an automation script on a scene")
	fmt.Println("  gosceneeditor scenes <dir>                          List indexed scenes of a workspace")
	fmt.Println("  gosceneeditor search <dir> <text>                   Search text objects of a workspace")
	fmt.Println("  gosceneeditor reindex <dir>                         Rebuild the workspace index")
	fmt.Println("  gosceneeditor snapshots <scene.json>                List autosave snapshots")
	fmt.Println("  gosceneeditor pack <scene.json> <out.zip>           Bundle a scene with its images and scripts")
	fmt.Println("  gosceneeditor unpack <pack.zip> <dir>               Install a scene pack into a workspace")
	fmt.Println("  gosceneeditor publish <scene.json> [name]           Publish to the shared scene library")
	fmt.Println("  gosceneeditor pull <id> <scene.json>                Fetch a scene from the library")
	fmt.Println("  gosceneeditor serve                                 Run the scene library server")
	fmt.Println("  gosceneeditor ui [<scene.json>]                     Launch desktop UI (build with -tags fyne for full UI)")
}

type command struct {
	minArgs int
	run     func(ctx context.Context, cfg config.AppConfig, args []string) error
}

var commands = map[string]command{
	"new":          {1, cmdNew},
	"info":         {1, cmdInfo},
	"export":       {2, cmdExport},
	"batch-export": {1, cmdBatchExport},
	"polygons":     {2, cmdPolygons},
	"import-svg":   {2, cmdImportSVG},
	"script":       {2, cmdScript},
	"scenes":       {1, cmdScenes},
	"search":       {2, cmdSearch},
	"reindex":      {1, cmdReindex},
	"snapshots":    {1, cmdSnapshots},
	"pack":         {2, cmdPack},
	"unpack":       {2, cmdUnpack},
	"publish":      {1, cmdPublish},
	"pull":         {2, cmdPull},
	"serve":        {0, cmdServe},
	"ui":           {0, cmdUI},
}

func main() {
	defer crash.Recover(nil)

	cfg, _, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config load failed; using defaults", slog.Any("err", cfgErr))
	}
	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	telemetry.NewDefault(tc)

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Go Scene Editor")
		fmt.Println(version.String())
		return
	case "help", "-h", "--help":
		usage()
		return
	}
	cmd, ok := commands[args[1]]
	if !ok {
		fmt.Println("unknown command:", args[1])
		usage()
		os.Exit(2)
	}
	rest := args[2:]
	if len(rest) < cmd.minArgs {
		fmt.Printf("%s requires %d argument(s)\n", args[1], cmd.minArgs)
		usage()
		os.Exit(2)
	}

	ctx := context.Background()
	err := cmd.run(ctx, cfg, rest)

	fctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	telemetry.Shutdown(fctx)
	cancel()

	if err != nil {
		l.Error(args[1]+" failed", slog.Any("err", err))
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
