// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Command sheet2html converts a spreadsheet (xlsx, xlsb, csv) to a static HTML page.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/UNO-SOFT/zlog/v2"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/peterbourgon/ff/v3/ffyaml"

	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/ingest"
	"github.com/UNO-SOFT/sheetview/render"
)

var verbose zlog.VerboseVar
var logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()

func main() {
	if err := Main(); err != nil {
		logger.Error("MAIN", "error", err)
		os.Exit(1)
	}
}

type convertOptions struct {
	Logger   *slog.Logger
	Encoding string
	Sheets   string
	MaxRows  int
	Height   int
	Title    string
}

func Main() error {
	fs := flag.NewFlagSet("sheet2html", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	fs.String("config", "", "config file (YAML)")
	flagEnc := fs.String("charset", ingest.EncName, "csv charset name")
	flagOut := fs.String("o", "", "output file name (default input file + .html)")
	flagSheets := fs.String("sheet", "", "comma separated sheet indexes (0-based) or names (default all visible)")
	flagMaxRows := fs.Int("max-rows", render.MaxRows, "rows rendered per sheet")
	flagHeight := fs.Int("height", 600, "height of a sheet's grid in pixels")

	app := ffcli.Command{Name: "sheet2html", FlagSet: fs,
		ShortUsage: "sheet2html [flags] <input file>",
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

			out := *flagOut
			if out == "" && fn != "-" {
				out = fn + ".html"
			}
			fh := os.Stdout
			if !(out == "" || out == "-") {
				if fh, err = os.Create(out); err != nil {
					return err
				}
				defer fh.Close()
			}
			title := filepath.Base(fn)
			if fn == "-" {
				title = "stdin"
			}
			if err = convert(ctx, fh, data, convertOptions{
				Logger: logger, Encoding: *flagEnc, Sheets: *flagSheets,
				MaxRows: *flagMaxRows, Height: *flagHeight, Title: title,
			}); err != nil {
				return err
			}
			if fh == os.Stdout {
				return nil
			}
			return fh.Close()
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

// convert loads data and writes the selected sheets to w as one HTML page.
func convert(ctx context.Context, w io.Writer, data []byte, opts convertOptions) error {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	wb, err := ingest.Load(ctx, data, ingest.Options{Logger: opts.Logger, Encoding: opts.Encoding})
	if err != nil {
		return err
	}
	for _, d := range wb.Diagnostics {
		opts.Logger.Warn("load", "diagnostic", d)
	}
	indexes, err := selectSheets(wb, opts.Sheets)
	if err != nil {
		return err
	}
	layouts := make([]*render.Layout, 0, len(indexes))
	for _, i := range indexes {
		s, err := grid.Materialize(wb, i, nil, grid.Options{Logger: opts.Logger, MaxRows: opts.MaxRows})
		if err != nil {
			return err
		}
		for _, d := range s.Diagnostics {
			opts.Logger.Warn("materialize", "sheet", s.Name, "diagnostic", d)
		}
		layouts = append(layouts, render.NewLayout(s, render.Options{Logger: opts.Logger, MaxRows: opts.MaxRows}))
	}
	return render.WriteHTMLPage(w, opts.Title, layouts, opts.Height)
}

// selectSheets parses a comma separated list of sheet indexes or names.
// The empty list selects every visible sheet.
func selectSheets(wb *sheetview.Workbook, list string) ([]int, error) {
	var indexes []int
	if strings.TrimSpace(list) == "" {
		for _, ws := range wb.Sheets {
			if !ws.Hidden() {
				indexes = append(indexes, ws.Index)
			}
		}
		return indexes, nil
	}
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if ws := wb.SheetByName(part); ws != nil {
			indexes = append(indexes, ws.Index)
			continue
		}
		i, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("sheet %q: not found", part)
		}
		if _, err := wb.Sheet(i); err != nil {
			return nil, err
		}
		indexes = append(indexes, i)
	}
	return indexes, nil
}
