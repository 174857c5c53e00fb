// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package spill computes how far the text of a cell overflows into its
// empty neighbours.
package spill

import (
	"github.com/mattn/go-runewidth"

	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/resolve"
)

const (
	// MinChars is the shortest text that may spill.
	MinChars = 3
	// PaddingPx is the horizontal padding inside a cell.
	PaddingPx = 8
	// MaxCols is the most columns a text may cross in one direction.
	MaxCols = 15
	// DefaultFontSize is used for cells without a font size, in points.
	DefaultFontSize = 11
	// glyphRatio is the average glyph width relative to the font's pixel size.
	glyphRatio = 0.5
)

// Alignment of the spilling text.
type Alignment string

const (
	AlignLeft   Alignment = "left"
	AlignCenter Alignment = "center"
	AlignRight  Alignment = "right"
)

// Range is the spillover of one source cell. Columns are sheet columns.
//
// When NeedsSpillover is false, StartCol and EndCol both equal SourceCol.
type Range struct {
	SourceRow      int       `json:"sourceRow"`
	SourceCol      int       `json:"sourceCol"`
	StartCol       int       `json:"startCol"`
	EndCol         int       `json:"endCol"`
	Text           string    `json:"text"`
	Alignment      Alignment `json:"alignment"`
	NeedsSpillover bool      `json:"needsSpillover"`
}

// TextWidth estimates the rendered width of s in pixels at the given font size.
// East Asian wide runes count double.
func TextWidth(s string, fontSize float64) float64 {
	if fontSize <= 0 {
		fontSize = DefaultFontSize
	}
	return float64(runewidth.StringWidth(s)) * fontSize * grid.PxPerPoint * glyphRatio
}

// available returns the room for text in a column of the given width.
func available(width float64) float64 { return max(0, width-PaddingPx) }

func alignment(st resolve.Style) Alignment {
	switch st.HAlign {
	case "right":
		return AlignRight
	case "center":
		return AlignCenter
	}
	return AlignLeft
}

// row is one materialized row as seen by the walks.
type row struct {
	s       *grid.Sheet
	row     int
	widths  []float64
	claimed map[int]bool
}

func (r row) width(col int) float64 {
	i := col - r.s.Window.StartCol
	if i < 0 || i >= len(r.widths) {
		return 0
	}
	return r.widths[i]
}

// free reports whether text may cross col.
func (r row) free(col int) bool {
	c := r.s.Cell(r.row, col)
	return c != nil && c.Empty() && !r.claimed[col]
}

// walk crosses free columns from source+step while budget remains.
// It returns the last crossed column (source when none) and the budget left.
// from is the last column already crossed in this direction.
func (r row) walk(source, from, step int, budget float64) (int, float64) {
	last := from
	for budget > 0 {
		col := last + step
		if abs(col-source) > MaxCols || !r.free(col) {
			break
		}
		last = col
		budget -= available(r.width(col))
	}
	return last, budget
}

func abs(i int) int {
	if i < 0 {
		return -i
	}
	return i
}

// Compute returns the spillover of the cell at sheet position (row, col) of s.
// widths are the column widths in pixels of s.Window; nil means s.ColWidths().
func Compute(s *grid.Sheet, widths []float64, row, col int) Range {
	if widths == nil {
		widths = s.ColWidths()
	}
	return compute(s, widths, row, col, nil)
}

func compute(s *grid.Sheet, widths []float64, rowNum, col int, claimed map[int]bool) Range {
	sr := Range{SourceRow: rowNum, SourceCol: col, StartCol: col, EndCol: col, Alignment: AlignLeft}
	c := s.Cell(rowNum, col)
	if c == nil {
		return sr
	}
	sr.Text, sr.Alignment = c.Display, alignment(c.Style)
	if c.Type != resolve.TypeText || c.Style.Wrap || c.Merged() ||
		len([]rune(c.Display)) < MinChars {
		return sr
	}
	r := row{s: s, row: rowNum, widths: widths, claimed: claimed}
	overflow := TextWidth(c.Display, c.Style.FontSize) - available(r.width(col))
	if overflow <= 0 {
		return sr
	}

	switch sr.Alignment {
	case AlignLeft:
		sr.EndCol, _ = r.walk(col, col, 1, overflow)
	case AlignRight:
		sr.StartCol, _ = r.walk(col, col, -1, overflow)
	case AlignCenter:
		// Both neighbours must be free. Left of the window there is no
		// neighbour to check: that side simply has no room.
		if !r.free(col+1) || (col > s.Window.StartCol && !r.free(col-1)) {
			return sr
		}
		half := overflow / 2
		left, rest := r.walk(col, col, -1, half)
		right, rest := r.walk(col, col, 1, overflow-half+max(0, rest))
		if rest > 0 {
			left, _ = r.walk(col, left, -1, rest)
		}
		sr.StartCol, sr.EndCol = left, right
	}
	sr.NeedsSpillover = sr.StartCol != col || sr.EndCol != col
	return sr
}

// ComputeAll returns the spillover ranges of every cell of s that needs one,
// row by row from left to right.
//
// A column crossed by one range is not crossed by another, and a cell
// inside a range is never a source itself.
func ComputeAll(s *grid.Sheet, widths []float64) []Range {
	if widths == nil {
		widths = s.ColWidths()
	}
	var ranges []Range
	w := s.Window
	for rowNum := w.StartRow; rowNum <= w.EndRow; rowNum++ {
		var claimed map[int]bool
		for col := w.StartCol; col <= w.EndCol; col++ {
			if claimed[col] {
				continue
			}
			sr := compute(s, widths, rowNum, col, claimed)
			if !sr.NeedsSpillover {
				continue
			}
			if claimed == nil {
				claimed = make(map[int]bool)
			}
			for c := sr.StartCol; c <= sr.EndCol; c++ {
				claimed[c] = true
			}
			ranges = append(ranges, sr)
		}
	}
	return ranges
}
