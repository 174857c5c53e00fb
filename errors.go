// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetview

import (
	"errors"
	"fmt"
)

var (
	ErrNoWorkbook        = errors.New("no workbook loaded")
	ErrSheetIndex        = errors.New("sheet index out of range")
	ErrLoadInProgress    = errors.New("a workbook load is already in progress")
	ErrUnknownMessage    = errors.New("unknown message type")
	ErrOverlappingMerge  = errors.New("overlapping merge range")
	ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")
)

// Diagnostic is a caught, non-fatal failure tied to a sheet position.
// Row and Col are 0 when unknown.
type Diagnostic struct {
	Sheet string `json:"sheet"`
	Row   int    `json:"row,omitempty"`
	Col   int    `json:"col,omitempty"`
	Err   error  `json:"-"`
}

func (d Diagnostic) Error() string {
	if d.Row == 0 && d.Col == 0 {
		if d.Sheet == "" {
			return fmt.Sprint(d.Err)
		}
		return fmt.Sprintf("%s: %v", d.Sheet, d.Err)
	}
	if d.Col == 0 {
		return fmt.Sprintf("%s[%d]: %v", d.Sheet, d.Row, d.Err)
	}
	return fmt.Sprintf("%s[%s]: %v", d.Sheet, CellRef{Row: d.Row, Col: d.Col}, d.Err)
}

func (d Diagnostic) Unwrap() error { return d.Err }

// MarshalText lets diagnostics travel in JSON messages as their message.
func (d Diagnostic) MarshalText() ([]byte, error) { return []byte(d.Error()), nil }

// UnmarshalText keeps only the message: the position stays in the text.
func (d *Diagnostic) UnmarshalText(b []byte) error {
	*d = Diagnostic{Err: errors.New(string(b))}
	return nil
}
