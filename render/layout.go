// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package render lays a materialized sheet out in frozen-pane quadrants
// and draws it as HTML or on a terminal.
package render

import (
	"log/slog"
	"sort"

	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/spill"
)

// MaxRows is the default cap of rendered rows.
const MaxRows = 500

// Quadrant identifies a pane.
type Quadrant int

const (
	// Single is the only pane of a sheet without frozen rows and columns.
	Single Quadrant = iota
	TopLeft
	TopRight
	BottomLeft
	BottomRight
)

func (q Quadrant) String() string {
	switch q {
	case TopLeft:
		return "tl"
	case TopRight:
		return "tr"
	case BottomLeft:
		return "bl"
	case BottomRight:
		return "br"
	}
	return "single"
}

// Options for NewLayout. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// MaxRows caps the rendered rows, MaxRows by default.
	MaxRows int
}

// Pane is one quadrant: a half-open range of window row and column indexes.
type Pane struct {
	Quadrant         Quadrant
	RowFrom, RowTo   int
	ColFrom, ColTo   int
	ScrollX, ScrollY bool
}

// Rows returns the number of rows in p.
func (p Pane) Rows() int { return p.RowTo - p.RowFrom }

// Cols returns the number of columns in p.
func (p Pane) Cols() int { return p.ColTo - p.ColFrom }

// Layout is the rendering plan of a sheet.
type Layout struct {
	Sheet *grid.Sheet
	// Split is false when nothing is frozen: Panes then holds a single pane.
	Split bool
	Panes []Pane
	Spill []spill.Range
	// Rows is the number of rendered rows.
	Rows int
	// HasMore is set when the sheet has rows that are not rendered.
	HasMore bool

	FrozenRows, FrozenCols int

	colX, rowY []float64
}

// NewLayout plans the rendering of s.
func NewLayout(s *grid.Sheet, opts Options) *Layout {
	maxRows := opts.MaxRows
	if maxRows <= 0 {
		maxRows = MaxRows
	}
	l := &Layout{Sheet: s, Rows: min(len(s.Rows), maxRows)}
	l.HasMore = len(s.Rows) > l.Rows || s.Truncated
	l.FrozenRows, l.FrozenCols = min(s.FrozenRows, l.Rows), min(s.FrozenCols, len(s.Cols))
	l.colX = prefix(s.ColWidths())
	l.rowY = prefix(s.RowHeights()[:l.Rows])
	cols := len(s.Cols)
	if opts.Logger != nil {
		opts.Logger.Debug("layout", "sheet", s.Name, "rows", l.Rows, "cols", cols,
			"frozenRows", l.FrozenRows, "frozenCols", l.FrozenCols, "hasMore", l.HasMore)
	}

	if l.FrozenRows == 0 && l.FrozenCols == 0 {
		l.Panes = []Pane{{Quadrant: Single, RowTo: l.Rows, ColTo: cols, ScrollX: true, ScrollY: true}}
	} else {
		l.Split = true
		fr, fc := l.FrozenRows, l.FrozenCols
		l.Panes = []Pane{
			{Quadrant: TopLeft, RowTo: fr, ColTo: fc},
			{Quadrant: TopRight, RowTo: fr, ColFrom: fc, ColTo: cols, ScrollX: true},
			{Quadrant: BottomLeft, RowFrom: fr, RowTo: l.Rows, ColTo: fc, ScrollY: true},
			{Quadrant: BottomRight, RowFrom: fr, RowTo: l.Rows, ColFrom: fc, ColTo: cols, ScrollX: true, ScrollY: true},
		}
	}

	for _, sr := range spill.ComputeAll(s, nil) {
		if sr.SourceRow-s.Window.StartRow < l.Rows {
			l.Spill = append(l.Spill, sr)
		}
	}
	return l
}

// Resized returns a copy of l measuring the columns and rows with the given
// sizes instead of pixels, one per window column and rendered row.
// The terminal host uses it to lay out in character cells.
func (l *Layout) Resized(cols, rows []float64) *Layout {
	r := *l
	r.colX = prefix(cols[:len(l.Sheet.Cols)])
	r.rowY = prefix(rows[:l.Rows])
	return &r
}

func prefix(sizes []float64) []float64 {
	ps := make([]float64, len(sizes)+1)
	for i, v := range sizes {
		ps[i+1] = ps[i] + v
	}
	return ps
}

// Pane returns the pane of quadrant q.
func (l *Layout) Pane(q Quadrant) (Pane, bool) {
	for _, p := range l.Panes {
		if p.Quadrant == q {
			return p, true
		}
	}
	return Pane{}, false
}

// ColX returns the left edge of window column index i, in pixels.
func (l *Layout) ColX(i int) float64 { return l.colX[max(0, min(i, len(l.colX)-1))] }

// RowY returns the top edge of window row index i, in pixels.
func (l *Layout) RowY(i int) float64 { return l.rowY[max(0, min(i, len(l.rowY)-1))] }

// Width returns the total width of the columns.
func (l *Layout) Width() float64 { return l.colX[len(l.colX)-1] }

// Height returns the total height of the rendered rows.
func (l *Layout) Height() float64 { return l.rowY[len(l.rowY)-1] }

// FrozenWidth returns the width of the frozen columns.
func (l *Layout) FrozenWidth() float64 { return l.ColX(l.FrozenCols) }

// FrozenHeight returns the height of the frozen rows.
func (l *Layout) FrozenHeight() float64 { return l.RowY(l.FrozenRows) }

// ColAt returns the index of the column covering x.
func (l *Layout) ColAt(x float64) int { return at(l.colX, x) }

// RowAt returns the index of the row covering y.
func (l *Layout) RowAt(y float64) int { return at(l.rowY, y) }

func at(ps []float64, v float64) int {
	i := sort.Search(len(ps)-1, func(i int) bool { return ps[i+1] > v })
	return min(i, max(0, len(ps)-2))
}

// Visible returns the half-open ranges of the rows and columns of p that
// intersect a view of the given size, scrolled by off.
func (l *Layout) Visible(p Pane, off Offset, width, height float64) (rowFrom, rowTo, colFrom, colTo int) {
	rowFrom, rowTo = visible(l.rowY, p.RowFrom, p.RowTo, off.Y, height)
	colFrom, colTo = visible(l.colX, p.ColFrom, p.ColTo, off.X, width)
	return rowFrom, rowTo, colFrom, colTo
}

func visible(ps []float64, from, to int, off, size float64) (int, int) {
	if from >= to {
		return from, from
	}
	start := ps[from] + off
	first := min(to, max(from, at(ps, start)))
	last := first
	for last < to && ps[last] < start+size {
		last++
	}
	return first, last
}

// Block is a drawn box of a pane: a single cell, or the part of a merge
// that falls into the drawn region. Coordinates are window indexes.
type Block struct {
	Row, Col         int
	RowSpan, ColSpan int
	// Cell is the top-left cell of the merge for merged blocks.
	Cell *grid.Cell
	// Continued is set when the top-left cell of the merge is outside the
	// region: the block carries the style of the merge, but no text.
	Continued bool
}

// Blocks returns the blocks of the half-open region, row by row.
// Every cell of the region is covered by exactly one block.
func (l *Layout) Blocks(rowFrom, rowTo, colFrom, colTo int) [][]Block {
	s := l.Sheet
	var covered map[[2]int]bool
	rows := make([][]Block, 0, max(0, rowTo-rowFrom))
	for r := rowFrom; r < rowTo; r++ {
		var blocks []Block
		for c := colFrom; c < colTo; c++ {
			if covered[[2]int{r, c}] {
				continue
			}
			cell := &s.Cells[r][c]
			b := Block{Row: r, Col: c, RowSpan: 1, ColSpan: 1, Cell: cell}
			if cell.Merged() {
				if m, ok := l.mergeAt(r, c); ok {
					r0, c0 := m.StartRow-s.Window.StartRow, m.StartCol-s.Window.StartCol
					r1 := min(m.EndRow-s.Window.StartRow+1, rowTo)
					c1 := min(m.EndCol-s.Window.StartCol+1, colTo)
					b.RowSpan, b.ColSpan = r1-r, c1-c
					b.Cell = &s.Cells[r0][c0]
					b.Continued = r0 != r || c0 != c
					if covered == nil {
						covered = make(map[[2]int]bool)
					}
					for i := r; i < r1; i++ {
						for j := c; j < c1; j++ {
							covered[[2]int{i, j}] = true
						}
					}
				}
			}
			blocks = append(blocks, b)
		}
		rows = append(rows, blocks)
	}
	return rows
}

// mergeAt returns the merge covering window index (r, c).
func (l *Layout) mergeAt(r, c int) (sheetview.MergeRange, bool) {
	w := l.Sheet.Window
	for _, m := range l.Sheet.Merges {
		if m.Contains(r+w.StartRow, c+w.StartCol) {
			return m, true
		}
	}
	return sheetview.MergeRange{}, false
}
