// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/resolve"
)

// newSheet returns an empty rows x cols sheet of 70x20 pixel cells.
func newSheet(rows, cols, frozenRows, frozenCols int) *grid.Sheet {
	s := &grid.Sheet{
		Name:       "S",
		Bounds:     sheetview.Range{StartRow: 1, StartCol: 1, EndRow: rows, EndCol: cols},
		Window:     sheetview.Range{StartRow: 1, StartCol: 1, EndRow: rows, EndCol: cols},
		FrozenRows: frozenRows,
		FrozenCols: frozenCols,
	}
	for c := range cols {
		s.Cols = append(s.Cols, grid.Track{Index: c + 1, Size: 70})
	}
	for r := range rows {
		s.Rows = append(s.Rows, grid.Track{Index: r + 1, Size: 20})
		row := make([]grid.Cell, cols)
		for c := range row {
			row[c] = grid.Cell{Row: r + 1, Col: c + 1}
		}
		s.Cells = append(s.Cells, row)
	}
	return s
}

func set(s *grid.Sheet, row, col int, display string, typ resolve.Type) *grid.Cell {
	c := s.Cell(row, col)
	c.Display, c.Type = display, typ
	return c
}

func mergeCells(s *grid.Sheet, m sheetview.MergeRange) {
	for r := m.StartRow; r <= m.EndRow; r++ {
		for c := m.StartCol; c <= m.EndCol; c++ {
			s.Cell(r, c).Suppressed = true
		}
	}
	top := s.Cell(m.StartRow, m.StartCol)
	top.Suppressed = false
	top.RowSpan, top.ColSpan = m.EndRow-m.StartRow+1, m.EndCol-m.StartCol+1
	s.Merges = append(s.Merges, m)
}

func TestLayoutPanes(t *testing.T) {
	l := NewLayout(newSheet(10, 6, 0, 0), Options{})
	assert.False(t, l.Split)
	assert.Equal(t, []Pane{{Quadrant: Single, RowTo: 10, ColTo: 6, ScrollX: true, ScrollY: true}}, l.Panes)

	l = NewLayout(newSheet(10, 6, 1, 2), Options{})
	require.True(t, l.Split)
	assert.Equal(t, []Pane{
		{Quadrant: TopLeft, RowTo: 1, ColTo: 2},
		{Quadrant: TopRight, RowTo: 1, ColFrom: 2, ColTo: 6, ScrollX: true},
		{Quadrant: BottomLeft, RowFrom: 1, RowTo: 10, ColTo: 2, ScrollY: true},
		{Quadrant: BottomRight, RowFrom: 1, RowTo: 10, ColFrom: 2, ColTo: 6, ScrollX: true, ScrollY: true},
	}, l.Panes)
	assert.InDelta(t, 140, l.FrozenWidth(), 1e-9)
	assert.InDelta(t, 20, l.FrozenHeight(), 1e-9)

	// Only frozen columns still split.
	l = NewLayout(newSheet(10, 6, 0, 1), Options{})
	assert.True(t, l.Split)
	p, ok := l.Pane(TopLeft)
	require.True(t, ok)
	assert.Equal(t, 0, p.Rows())
}

func TestLayoutRenderCap(t *testing.T) {
	l := NewLayout(newSheet(600, 2, 0, 0), Options{})
	assert.Equal(t, MaxRows, l.Rows)
	assert.True(t, l.HasMore)
	assert.Equal(t, MaxRows, l.Panes[0].RowTo)

	l = NewLayout(newSheet(20, 2, 0, 0), Options{MaxRows: 10})
	assert.Equal(t, 10, l.Rows)
	assert.True(t, l.HasMore)
	assert.InDelta(t, 200, l.Height(), 1e-9)

	l = NewLayout(newSheet(20, 2, 0, 0), Options{})
	assert.False(t, l.HasMore)

	s := newSheet(20, 2, 0, 0)
	s.Truncated = true
	assert.True(t, NewLayout(s, Options{}).HasMore)

	// The freeze never exceeds the rendered rows.
	l = NewLayout(newSheet(20, 2, 15, 0), Options{MaxRows: 10})
	assert.Equal(t, 10, l.FrozenRows)
}

func TestLayoutPositions(t *testing.T) {
	l := NewLayout(newSheet(10, 10, 0, 0), Options{})
	for _, tc := range []struct {
		X    float64
		Want int
	}{{0, 0}, {69.9, 0}, {70, 1}, {350, 5}, {1e9, 9}} {
		assert.Equal(t, tc.Want, l.ColAt(tc.X), "x=%v", tc.X)
	}
	assert.Equal(t, 3, l.RowAt(65))
	assert.InDelta(t, 210, l.ColX(3), 1e-9)
	assert.InDelta(t, 700, l.Width(), 1e-9)

	rowFrom, rowTo, colFrom, colTo := l.Visible(l.Panes[0], Offset{X: 75, Y: 30}, 100, 30)
	assert.Equal(t, []int{1, 3, 1, 3}, []int{rowFrom, rowTo, colFrom, colTo})

	// Scrolled past the end, the last column remains.
	_, _, colFrom, colTo = l.Visible(l.Panes[0], Offset{X: 1e6}, 100, 30)
	assert.Equal(t, []int{9, 10}, []int{colFrom, colTo})
}

func TestLayoutBlocks(t *testing.T) {
	s := newSheet(4, 4, 0, 0)
	set(s, 1, 2, "merged", resolve.TypeText)
	mergeCells(s, sheetview.MergeRange{StartRow: 1, StartCol: 2, EndRow: 2, EndCol: 3})
	l := NewLayout(s, Options{})

	type box struct{ Row, Col, RowSpan, ColSpan int }
	boxes := func(rows [][]Block) [][]box {
		var bb [][]box
		for _, blocks := range rows {
			var line []box
			for _, b := range blocks {
				line = append(line, box{b.Row, b.Col, b.RowSpan, b.ColSpan})
			}
			bb = append(bb, line)
		}
		return bb
	}

	all := l.Blocks(0, 4, 0, 4)
	assert.Equal(t, [][]box{
		{{0, 0, 1, 1}, {0, 1, 2, 2}, {0, 3, 1, 1}},
		{{1, 0, 1, 1}, {1, 3, 1, 1}},
		{{2, 0, 1, 1}, {2, 1, 1, 1}, {2, 2, 1, 1}, {2, 3, 1, 1}},
		{{3, 0, 1, 1}, {3, 1, 1, 1}, {3, 2, 1, 1}, {3, 3, 1, 1}},
	}, boxes(all))
	assert.Equal(t, "merged", all[0][1].Cell.Display)
	assert.False(t, all[0][1].Continued)

	// A region cutting the merge vertically.
	right := l.Blocks(0, 4, 2, 4)
	assert.Equal(t, []box{{0, 2, 2, 1}, {0, 3, 1, 1}}, boxes(right)[0])
	assert.Equal(t, []box{{1, 3, 1, 1}}, boxes(right)[1])
	assert.True(t, right[0][0].Continued)
	assert.Equal(t, "merged", right[0][0].Cell.Display)

	// And horizontally.
	lower := l.Blocks(1, 4, 0, 4)
	assert.Equal(t, []box{{1, 0, 1, 1}, {1, 1, 1, 2}, {1, 3, 1, 1}}, boxes(lower)[0])
	assert.True(t, lower[0][1].Continued)
}

func TestLayoutSpill(t *testing.T) {
	s := newSheet(2, 4, 0, 0)
	set(s, 1, 1, "a long piece of text", resolve.TypeText)
	set(s, 2, 1, "short", resolve.TypeText)
	l := NewLayout(s, Options{})
	require.Len(t, l.Spill, 1)
	sr := l.Spill[0]
	assert.Equal(t, []int{1, 1, 1, 3}, []int{sr.SourceRow, sr.SourceCol, sr.StartCol, sr.EndCol})

	// Spills of rows beyond the cap are dropped.
	s = newSheet(3, 4, 0, 0)
	set(s, 3, 1, "a long piece of text", resolve.TypeText)
	assert.Empty(t, NewLayout(s, Options{MaxRows: 2}).Spill)
}
