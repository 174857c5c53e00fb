// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package grid materializes a worksheet into a bounded, fully resolved
// grid of cells plus the geometry a renderer needs.
package grid

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/resolve"
)

// Geometry constants, in pixels unless noted.
const (
	// PxPerWidthUnit converts spreadsheet column width units to pixels.
	PxPerWidthUnit = 7
	// PxPerPoint converts row heights in points to pixels.
	PxPerPoint = 96.0 / 72.0
	// HiddenPx is the size of hidden rows and columns.
	HiddenPx = 2
	// SpacerPx is the height below which a row is a spacer.
	SpacerPx = 8
	// MinSpacerPx is the floor of empty spacer rows.
	MinSpacerPx = 3

	// MaxRows and MaxCols bound the materialized window.
	MaxRows = 500
	MaxCols = 100

	// ImageRowSpan and ImageColSpan is the area an image covers.
	ImageRowSpan = 10
	ImageColSpan = 4
)

// Options for Materialize. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Resolver to use; a new one is made for the workbook when nil.
	Resolver *resolve.Resolver
	// MaxRows and MaxCols override the window ceiling when positive.
	MaxRows, MaxCols int
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.DiscardHandler)
}

// Cell is one materialized cell.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
	resolve.Cell
	// RowSpan and ColSpan are set on the top-left cell of a merge.
	RowSpan int `json:"rowSpan,omitempty"`
	ColSpan int `json:"colSpan,omitempty"`
	// Suppressed cells are covered by a merge and are not drawn.
	Suppressed bool `json:"suppressed,omitempty"`
}

// Merged reports whether c is part of a merge.
func (c *Cell) Merged() bool { return c.Suppressed || c.RowSpan > 1 || c.ColSpan > 1 }

// Empty reports whether c shows nothing and takes no part in a merge.
func (c *Cell) Empty() bool { return c.Display == "" && !c.Merged() }

// Track is the geometry of one row or column.
type Track struct {
	Index        int     `json:"index"`
	Size         float64 `json:"size"`
	Hidden       bool    `json:"hidden,omitempty"`
	Spacer       bool    `json:"spacer,omitempty"`
	OutlineLevel uint8   `json:"outlineLevel,omitempty"`
}

// Image is an image placed on the grid.
type Image struct {
	Extension string `json:"ext"`
	Data      []byte `json:"data"`
	Row       int    `json:"row"`
	Col       int    `json:"col"`
	RowSpan   int    `json:"rowSpan"`
	ColSpan   int    `json:"colSpan"`
	// Approximate is set when the position is a guess:
	// the source had no anchor for the image.
	Approximate bool `json:"approximate,omitempty"`
}

// Sheet is a materialized worksheet.
//
// Cells holds Window.Rows() rows of Window.Cols() cells each;
// the cell of sheet position (row, col) is Cells[row-Window.StartRow][col-Window.StartCol].
type Sheet struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	// Bounds is the occupied range of the whole sheet.
	Bounds sheetview.Range `json:"bounds"`
	// Window is the materialized part.
	Window sheetview.Range `json:"window"`
	// Truncated is set when the window ceiling cut rows or columns.
	Truncated bool `json:"truncated,omitempty"`

	Cells [][]Cell `json:"cells"`
	Cols  []Track  `json:"cols"`
	Rows  []Track  `json:"rows"`

	// FrozenRows and FrozenCols are relative to Window.
	FrozenRows    int                    `json:"frozenRows"`
	FrozenCols    int                    `json:"frozenCols"`
	ShowGridLines bool                   `json:"showGridLines"`
	Merges        []sheetview.MergeRange `json:"merges,omitempty"`
	Images        []Image                `json:"images,omitempty"`
	Diagnostics   []sheetview.Diagnostic `json:"diagnostics,omitempty"`
}

// Cell returns the cell at sheet position (row, col), or nil outside the window.
func (s *Sheet) Cell(row, col int) *Cell {
	if s == nil || !s.Window.Contains(row, col) {
		return nil
	}
	return &s.Cells[row-s.Window.StartRow][col-s.Window.StartCol]
}

// ColWidths returns the column widths in pixels.
func (s *Sheet) ColWidths() []float64 { return sizes(s.Cols) }

// RowHeights returns the row heights in pixels.
func (s *Sheet) RowHeights() []float64 { return sizes(s.Rows) }

func sizes(ts []Track) []float64 {
	ff := make([]float64, len(ts))
	for i, t := range ts {
		ff[i] = t.Size
	}
	return ff
}

// Materialize resolves the sheet at index of wb.
//
// With a nil viewport the window starts at the top-left of the occupied
// range, otherwise at the viewport's. Either way it is capped at
// MaxRows x MaxCols: the rest of a larger sheet is not materialized.
//
// Failures of single rows, cells and merges are recorded in Diagnostics.
func Materialize(wb *sheetview.Workbook, index int, viewport *sheetview.Range, opts Options) (*Sheet, error) {
	ws, err := wb.Sheet(index)
	if err != nil {
		return nil, err
	}
	logger := opts.logger().With("sheet", ws.Name)
	res := opts.Resolver
	if res == nil {
		res = resolve.New(wb, resolve.Options{Logger: opts.Logger, Date1904: wb.Properties.Date1904})
	}
	res = res.ForSheet(ws.Name)

	s := &Sheet{
		Index: ws.Index, Name: ws.Name,
		Bounds:        ws.Bounds(),
		ShowGridLines: ws.ShowGridLines,
	}
	s.Window, s.Truncated = window(s.Bounds, viewport, opts)
	w := s.Window
	diag := func(row, col int, err error) {
		logger.Debug("materialize", "row", row, "col", col, "error", err)
		s.Diagnostics = append(s.Diagnostics, sheetview.Diagnostic{Sheet: ws.Name, Row: row, Col: col, Err: err})
	}

	s.Cells = make([][]Cell, w.Rows())
	for i := range s.Cells {
		row := w.StartRow + i
		s.Cells[i] = make([]Cell, w.Cols())
		if err := fillRow(s.Cells[i], ws, res, row, w.StartCol); err != nil {
			diag(row, 0, err)
		}
	}

	s.Cols = make([]Track, w.Cols())
	for i := range s.Cols {
		s.Cols[i] = colTrack(ws, w.StartCol+i)
	}
	s.Rows = make([]Track, w.Rows())
	for i := range s.Rows {
		s.Rows[i] = rowTrack(ws, w.StartRow+i, s.Cells[i])
	}

	s.FrozenRows = rebase(ws.FrozenRows, w.StartRow, w.Rows())
	s.FrozenCols = rebase(ws.FrozenCols, w.StartCol, w.Cols())
	if ws.FrozenRows < 0 || ws.FrozenCols < 0 {
		diag(0, 0, fmt.Errorf("invalid freeze pane %d/%d", ws.FrozenRows, ws.FrozenCols))
	}

	s.merge(ws, res, diag)
	s.placeImages(ws, logger)
	return s, nil
}

// window returns the range to materialize and whether it was capped.
func window(bounds sheetview.Range, viewport *sheetview.Range, opts Options) (sheetview.Range, bool) {
	maxRows, maxCols := MaxRows, MaxCols
	if opts.MaxRows > 0 {
		maxRows = opts.MaxRows
	}
	if opts.MaxCols > 0 {
		maxCols = opts.MaxCols
	}
	w := bounds
	if viewport != nil {
		w = *viewport
		w.StartRow, w.StartCol = max(1, w.StartRow), max(1, w.StartCol)
		w.EndRow, w.EndCol = max(w.StartRow, w.EndRow), max(w.StartCol, w.EndCol)
	}
	var truncated bool
	if w.Rows() > maxRows {
		w.EndRow, truncated = w.StartRow+maxRows-1, true
	}
	if w.Cols() > maxCols {
		w.EndCol, truncated = w.StartCol+maxCols-1, true
	}
	return w, truncated
}

// rebase moves an absolute freeze split into the window starting at start.
func rebase(frozen, start, size int) int {
	return min(size, max(0, frozen-(start-1)))
}

// fillRow resolves one row. A panic while resolving is returned as an error;
// the cells resolved before it are kept.
func fillRow(cells []Cell, ws *sheetview.Worksheet, res *resolve.Resolver, row, startCol int) (err error) {
	col := startCol
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s: panic: %v", sheetview.CellRef{Row: row, Col: col}, r)
		}
	}()
	for i := range cells {
		col = startCol + i
		cells[i] = Cell{Row: row, Col: col, Cell: res.Resolve(ws.Cell(row, col))}
	}
	return nil
}

func colTrack(ws *sheetview.Worksheet, col int) Track {
	ci := ws.Cols[col]
	t := Track{Index: col, Hidden: ci.Hidden, OutlineLevel: ci.OutlineLevel}
	switch {
	case ci.Hidden:
		t.Size = HiddenPx
	case ci.Width > 0 && !approx(ci.Width, ws.DefaultColWidth):
		t.Size = ci.Width * PxPerWidthUnit
	default:
		t.Size = defaultColWidth(ws) * PxPerWidthUnit
	}
	return t
}

func defaultColWidth(ws *sheetview.Worksheet) float64 {
	if ws.DefaultColWidth > 0 {
		return ws.DefaultColWidth
	}
	return sheetview.DefaultColWidth
}

func rowTrack(ws *sheetview.Worksheet, row int, cells []Cell) Track {
	ri := ws.Rows[row]
	t := Track{Index: row, Hidden: ri.Hidden, OutlineLevel: ri.OutlineLevel}
	if ri.Hidden {
		t.Size = HiddenPx
		return t
	}
	h := ri.Height
	if h <= 0 {
		h = ws.DefaultRowHeight
	}
	if h <= 0 {
		h = sheetview.DefaultRowHeight
	}
	t.Size = h * PxPerPoint
	if t.Size < SpacerPx {
		t.Spacer = true
		if hasContent(cells) {
			t.Size = SpacerPx
		} else {
			t.Size = max(t.Size, MinSpacerPx)
		}
	}
	return t
}

func hasContent(cells []Cell) bool {
	for _, c := range cells {
		if c.Display != "" {
			return true
		}
	}
	return false
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }
