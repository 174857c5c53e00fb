// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetview

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// CellRef is a 1-based cell position.
type CellRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// String returns the A1 name, or "" for an invalid position.
func (c CellRef) String() string {
	s, err := excelize.CoordinatesToCellName(c.Col, c.Row)
	if err != nil {
		return ""
	}
	return s
}

// ColumnName returns the letters of the 1-based column ("A", "AA", ...).
func ColumnName(col int) string {
	s, _ := excelize.ColumnNumberToName(col)
	return s
}

// ParseRef parses "A1", "$A$1", "Sheet1!B2" and "'My Sheet'!$C$3".
// The returned sheet is "" when the reference has no sheet prefix.
func ParseRef(s string) (sheet string, ref CellRef, err error) {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '!'); i >= 0 {
		sheet, s = s[:i], s[i+1:]
		if len(sheet) >= 2 && sheet[0] == '\'' && sheet[len(sheet)-1] == '\'' {
			sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
		}
	}
	name := strings.ReplaceAll(s, "$", "")
	col, row, err := excelize.CellNameToCoordinates(name)
	if err != nil {
		return sheet, ref, fmt.Errorf("parse %q: %w", s, err)
	}
	return sheet, CellRef{Row: row, Col: col}, nil
}

// Range is an inclusive rectangle of cells.
type Range struct {
	StartRow int `json:"startRow"`
	StartCol int `json:"startCol"`
	EndRow   int `json:"endRow"`
	EndCol   int `json:"endCol"`
}

// Rows returns the number of rows in r.
func (r Range) Rows() int { return max(0, r.EndRow-r.StartRow+1) }

// Cols returns the number of columns in r.
func (r Range) Cols() int { return max(0, r.EndCol-r.StartCol+1) }

// Contains reports whether row, col lies inside r.
func (r Range) Contains(row, col int) bool {
	return row >= r.StartRow && row <= r.EndRow && col >= r.StartCol && col <= r.EndCol
}

// Intersect returns the overlap of r and o; ok is false when they are disjoint.
func (r Range) Intersect(o Range) (Range, bool) {
	x := Range{
		StartRow: max(r.StartRow, o.StartRow), StartCol: max(r.StartCol, o.StartCol),
		EndRow: min(r.EndRow, o.EndRow), EndCol: min(r.EndCol, o.EndCol),
	}
	return x, x.StartRow <= x.EndRow && x.StartCol <= x.EndCol
}

func (r Range) String() string {
	return CellRef{Row: r.StartRow, Col: r.StartCol}.String() + ":" +
		CellRef{Row: r.EndRow, Col: r.EndCol}.String()
}

// Range returns m as a Range.
func (m MergeRange) Range() Range {
	return Range{StartRow: m.StartRow, StartCol: m.StartCol, EndRow: m.EndRow, EndCol: m.EndCol}
}
