// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package ingest parses a spreadsheet file held in memory into a
// sheetview.Workbook.
//
// Files in the wild often deviate slightly from the format; Load tries
// progressively more permissive strategies and returns the first workbook
// that parses.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/UNO-SOFT/sheetview"
)

// Strategy names, in the order Load tries them.
const (
	StrategyStrict    = "strict"
	StrategyRelaxed   = "relaxed"
	StrategyRepack    = "raw-repack"
	StrategyXLSB      = "xlsb"
	StrategyDelimited = "delimited"
)

// Options for Load. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Encoding is the charset of delimited text input; "" means EncName.
	Encoding string
	// UnzipSizeLimit and UnzipXMLSizeLimit bound the decompressed size for
	// the permissive strategies; 0 means 4GiB and 1GiB.
	UnzipSizeLimit    int64
	UnzipXMLSizeLimit int64
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// Strategy is one way of parsing a buffer.
type Strategy struct {
	Name string
	Open func(ctx context.Context, data []byte, opts Options) (*sheetview.Workbook, error)
}

// Strategies are tried in order by Load.
var Strategies = []Strategy{
	{StrategyStrict, openStrict},
	{StrategyRelaxed, openRelaxed},
	{StrategyRepack, openRepacked},
	{StrategyXLSB, openXLSB},
	{StrategyDelimited, openDelimited},
}

// Attempt is a failed strategy.
type Attempt struct {
	Strategy string
	Err      error
}

// LoadError is returned when no strategy could parse the input.
type LoadError struct {
	Attempts []Attempt
}

func (le *LoadError) Error() string {
	var buf strings.Builder
	buf.WriteString("no strategy could parse the workbook")
	for _, a := range le.Attempts {
		fmt.Fprintf(&buf, "; %s: %v", a.Strategy, a.Err)
	}
	return buf.String()
}

func (le *LoadError) Unwrap() []error {
	errs := make([]error, len(le.Attempts))
	for i, a := range le.Attempts {
		errs[i] = a.Err
	}
	return errs
}

// Load parses data with the first strategy that succeeds.
// On failure the error is a *LoadError and no workbook is returned.
func Load(ctx context.Context, data []byte, opts Options) (*sheetview.Workbook, error) {
	logger := opts.logger()
	if len(data) == 0 {
		return nil, &LoadError{Attempts: []Attempt{{Err: fmt.Errorf("empty input: %w", sheetview.ErrUnsupportedFormat)}}}
	}
	var le LoadError
	for _, s := range Strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		wb, err := open(ctx, s, data, opts)
		if err == nil {
			wb.Properties.Strategy = s.Name
			logger.Debug("loaded", "strategy", s.Name, "sheets", len(wb.Sheets), "diagnostics", len(wb.Diagnostics))
			return wb, nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		logger.Debug("strategy failed", "strategy", s.Name, "error", err)
		le.Attempts = append(le.Attempts, Attempt{Strategy: s.Name, Err: err})
	}
	return nil, &le
}

// open runs one strategy, turning a panic of the underlying parser into an error.
func open(ctx context.Context, s Strategy, data []byte, opts Options) (wb *sheetview.Workbook, err error) {
	defer func() {
		if r := recover(); r != nil {
			wb, err = nil, fmt.Errorf("%s: panic: %v", s.Name, r)
		}
	}()
	return s.Open(ctx, data, opts)
}
