// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Command sheetview shows a spreadsheet (xlsx, xlsb, csv) in the terminal.
package main

import (
	"context"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UNO-SOFT/zlog/v2"
	"github.com/gdamore/tcell/v2"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/peterbourgon/ff/v3/ffyaml"

	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/ingest"
	"github.com/UNO-SOFT/sheetview/render"
	"github.com/UNO-SOFT/sheetview/worker"
)

var verbose zlog.VerboseVar
var logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()

func main() {
	if err := Main(); err != nil {
		logger.Error("MAIN", "error", err)
		os.Exit(1)
	}
}

func Main() error {
	fs := flag.NewFlagSet("sheetview", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	fs.String("config", "", "config file (YAML)")
	flagLog := fs.String("log", "", "log file (the screen is in use)")
	flagEnc := fs.String("charset", ingest.EncName, "csv charset name")
	flagMaxRows := fs.Int("max-rows", render.MaxRows, "rows shown per sheet")
	flagMaxCols := fs.Int("max-cols", grid.MaxCols, "columns shown per sheet")
	flagMemInterval := fs.Duration("memory-interval", 5*time.Second, "memory advisory interval")
	flagRecycleMB := fs.Float64("recycle-mb", 512, "memory use that recycles the worker, in MiB")
	flagMaxTasks := fs.Int("max-tasks", 100, "served requests that recycle the worker")

	app := ffcli.Command{Name: "sheetview", FlagSet: fs,
		ShortUsage: "sheetview [flags] <input file>",
		Options: []ff.Option{
			ff.WithEnvVarPrefix("SHEETVIEW"),
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
		},
		Exec: func(ctx context.Context, args []string) error {
			fn := "-"
			if len(args) != 0 && args[0] != "" {
				fn = args[0]
			}
			var data []byte
			var err error
			if fn == "-" {
				data, err = io.ReadAll(os.Stdin)
			} else {
				data, err = os.ReadFile(fn)
			}
			if err != nil {
				return err
			}

			tuiLogger := slog.New(slog.DiscardHandler)
			if *flagLog != "" {
				fh, err := os.OpenFile(*flagLog, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
				if err != nil {
					return err
				}
				defer fh.Close()
				tuiLogger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, fh)).SLog()
			}

			screen, err := tcell.NewScreen()
			if err != nil {
				return err
			}
			if err := screen.Init(); err != nil {
				return err
			}
			defer screen.Fini()
			screen.Clear()

			v := newViewer(screen, data, fn, tuiLogger, worker.Config{
				Logger:         tuiLogger.WithGroup("worker"),
				Ingest:         ingest.Options{Logger: tuiLogger, Encoding: *flagEnc},
				Grid:           grid.Options{Logger: tuiLogger, MaxRows: *flagMaxRows, MaxCols: *flagMaxCols},
				MemoryInterval: *flagMemInterval,
				RecycleMB:      *flagRecycleMB,
				MaxTasks:       *flagMaxTasks,
			}, *flagMaxRows)
			defer v.Close()
			return v.Run(ctx)
		},
	}

	if err := app.Parse(os.Args[1:]); err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return app.Run(ctx)
}
