// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Command sheet2pdf prints a worksheet (xlsx, xlsb, csv) to PDF.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/UNO-SOFT/zlog/v2"
	"github.com/johnfercher/maroto/v2/pkg/props"
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

func Main() error {
	alternateColor := Color{Color: props.Color{
		Red:   230,
		Green: 230,
		Blue:  230,
	}}

	fs := flag.NewFlagSet("sheet2pdf", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	fs.String("config", "", "config file (YAML)")
	flagEnc := fs.String("charset", ingest.EncName, "csv charset name")
	flagOut := fs.String("o", "", "output file name (default input file + .pdf)")
	flagColor := fs.String("alternate-color", alternateColor.String(), "alternate color")
	flagLandscape := fs.Bool("L", false, "landscape orientation (default: portrait)")
	flagFontSize := fs.Float64("f", 8, "font size")
	flagSheet := fs.Int("sheet", -1, "sheet index (0-based, default the first visible)")
	flagMaxRows := fs.Int("max-rows", render.MaxRows, "rows printed")

	app := ffcli.Command{Name: "sheet2pdf", FlagSet: fs,
		ShortUsage: "sheet2pdf [flags] <input file>",
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
			wb, err := ingest.Load(ctx, data, ingest.Options{Logger: logger, Encoding: *flagEnc})
			if err != nil {
				return err
			}
			index := *flagSheet
			if index < 0 {
				if index = firstVisible(wb); index < 0 {
					return fmt.Errorf("no visible sheet: %w", sheetview.ErrSheetIndex)
				}
			}
			s, err := grid.Materialize(wb, index, nil, grid.Options{Logger: logger, MaxRows: *flagMaxRows})
			if err != nil {
				return err
			}
			for _, d := range s.Diagnostics {
				logger.Warn("materialize", "sheet", s.Name, "diagnostic", d)
			}
			l := render.NewLayout(s, render.Options{Logger: logger, MaxRows: *flagMaxRows})
			if l.HasMore {
				logger.Warn("truncated", "sheet", s.Name, "rows", l.Rows, "of", s.Bounds.Rows())
			}

			out := *flagOut
			if out == "" && fn != "-" {
				out = fn + ".pdf"
			}
			fh := os.Stdout
			if !(out == "" || out == "-") {
				if fh, err = os.Create(out); err != nil {
					return err
				}
				defer fh.Close()
			}
			if err = writePDF(fh, l, pdfOptions{
				Landscape: *flagLandscape, FontSize: *flagFontSize,
				AlternateColor: &alternateColor.Color,
			}); err != nil {
				return err
			}
			if fh == os.Stdout {
				return nil
			}
			return fh.Close()
		},
	}

	args := make([]string, 0, len(os.Args))
	for _, a := range os.Args[1:] {
		if strings.HasPrefix(a, "-f") && len(a) > 2 && '0' <= a[2] && a[2] <= '9' {
			args = append(args, "-f", a[2:])
		} else {
			args = append(args, a)
		}
	}
	logger.Debug("args", "original", os.Args[1:], "fixed", args)
	if err := app.Parse(args); err != nil {
		return err
	}

	if err := alternateColor.Parse(*flagColor); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return app.Run(ctx)
}

func firstVisible(wb *sheetview.Workbook) int {
	for _, ws := range wb.Sheets {
		if !ws.Hidden() {
			return ws.Index
		}
	}
	return -1
}

// Color is an RGB color given as hex digits, with an optional leading '#'.
type Color struct {
	props.Color
}

func (c *Color) String() string {
	return fmt.Sprintf("%02x%02x%02x", c.Red, c.Green, c.Blue)
}
func (c *Color) Parse(s string) error {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "#"))
	if err != nil {
		return err
	}
	if len(b) != 3 {
		return fmt.Errorf("%q: want 6 hex digits", s)
	}
	c.Red, c.Green, c.Blue = int(b[0]), int(b[1]), int(b[2])
	return nil
}
