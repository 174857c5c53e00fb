// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package sheetview holds the in-memory spreadsheet model shared by the
// ingestion, resolution, materialization and rendering packages.
//
// A Workbook is produced once per loaded file (see package ingest), held for
// the lifetime of a session and dropped on cache clear. Rows and columns are
// 1-based everywhere in this model.
package sheetview

import (
	"fmt"
	"strings"
)

// SheetState is the visibility of a worksheet tab.
type SheetState string

const (
	SheetVisible    SheetState = "visible"
	SheetHidden     SheetState = "hidden"
	SheetVeryHidden SheetState = "veryHidden"
)

// Properties are the document-level properties reported after a load.
type Properties struct {
	Title    string `json:"title,omitempty"`
	Creator  string `json:"creator,omitempty"`
	Modified string `json:"modified,omitempty"`
	// Date1904 is true when date serials count from 1904-01-01.
	Date1904 bool `json:"date1904"`
	// Strategy names the parse strategy that produced the workbook.
	Strategy string `json:"strategy"`
}

// Workbook is an ordered list of worksheets.
//
// Sheets[i].Index == i always holds, hidden sheets included.
type Workbook struct {
	Sheets      []*Worksheet
	Properties  Properties
	Diagnostics []Diagnostic
}

// Sheet returns the worksheet at the 0-based index.
func (wb *Workbook) Sheet(index int) (*Worksheet, error) {
	if wb == nil {
		return nil, ErrNoWorkbook
	}
	if index < 0 || index >= len(wb.Sheets) {
		return nil, fmt.Errorf("%w: %d not in [0, %d)", ErrSheetIndex, index, len(wb.Sheets))
	}
	return wb.Sheets[index], nil
}

// SheetByName returns the worksheet with the given name (case-insensitive), or nil.
func (wb *Workbook) SheetByName(name string) *Worksheet {
	if wb == nil {
		return nil
	}
	for _, ws := range wb.Sheets {
		if strings.EqualFold(ws.Name, name) {
			return ws
		}
	}
	return nil
}

// AddSheet appends a new, empty worksheet and returns it.
func (wb *Workbook) AddSheet(name string, state SheetState) *Worksheet {
	ws := NewWorksheet(len(wb.Sheets), name)
	ws.State = state
	wb.Sheets = append(wb.Sheets, ws)
	return ws
}

// ColInfo is the explicit metadata of one column.
type ColInfo struct {
	// Width in character units; 0 means the sheet default.
	Width        float64
	Hidden       bool
	OutlineLevel uint8
}

// RowInfo is the explicit metadata of one row.
type RowInfo struct {
	// Height in points; 0 means the sheet default.
	Height       float64
	Hidden       bool
	OutlineLevel uint8
}

// Image is an embedded picture. Anchor is nil when the file gave no
// usable cell position for it.
type Image struct {
	Name      string   `json:"name,omitempty"`
	Extension string   `json:"ext"`
	Data      []byte   `json:"data"`
	Anchor    *CellRef `json:"anchor,omitempty"`
}

// Worksheet is one sheet of a workbook.
type Worksheet struct {
	Index int
	Name  string
	State SheetState

	// DefaultColWidth is in character units, DefaultRowHeight in points.
	DefaultColWidth  float64
	DefaultRowHeight float64

	Cols   map[int]ColInfo
	Rows   map[int]RowInfo
	Merges []MergeRange

	// FrozenRows and FrozenCols count the rows above and the columns left
	// of the freeze split, in absolute sheet coordinates.
	FrozenRows int
	FrozenCols int

	ShowGridLines bool
	Images        []Image

	cells map[CellRef]*Cell
}

// NewWorksheet returns an empty visible worksheet with Excel's defaults.
func NewWorksheet(index int, name string) *Worksheet {
	return &Worksheet{
		Index:            index,
		Name:             name,
		State:            SheetVisible,
		DefaultColWidth:  DefaultColWidth,
		DefaultRowHeight: DefaultRowHeight,
		Cols:             make(map[int]ColInfo),
		Rows:             make(map[int]RowInfo),
		ShowGridLines:    true,
		cells:            make(map[CellRef]*Cell),
	}
}

// Excel's defaults for a sheet without a sheetFormatPr.
const (
	DefaultColWidth  = 8.43
	DefaultRowHeight = 15
)

// Hidden reports whether the sheet tab is not shown.
func (ws *Worksheet) Hidden() bool { return ws.State != SheetVisible }

// Cell returns the cell at row, col or nil.
func (ws *Worksheet) Cell(row, col int) *Cell {
	return ws.cells[CellRef{Row: row, Col: col}]
}

// Value returns the value at row, col; empty for missing cells.
func (ws *Worksheet) Value(row, col int) Value {
	if c := ws.cells[CellRef{Row: row, Col: col}]; c != nil {
		return c.Value
	}
	return Value{}
}

// SetCell stores c, replacing any cell at the same position.
func (ws *Worksheet) SetCell(c *Cell) {
	if ws.cells == nil {
		ws.cells = make(map[CellRef]*Cell)
	}
	ws.cells[CellRef{Row: c.Row, Col: c.Col}] = c
}

// Len returns the number of stored cells.
func (ws *Worksheet) Len() int { return len(ws.cells) }

// Cells calls yield for each stored cell in no particular order.
func (ws *Worksheet) Cells(yield func(*Cell) bool) {
	for _, c := range ws.cells {
		if !yield(c) {
			return
		}
	}
}

// Bounds returns the smallest range containing every cell with a
// non-empty value, or A1:A1 for an empty sheet.
func (ws *Worksheet) Bounds() Range {
	var r Range
	for ref, c := range ws.cells {
		if c.Value.IsEmpty() {
			continue
		}
		if r.StartRow == 0 {
			r = Range{StartRow: ref.Row, StartCol: ref.Col, EndRow: ref.Row, EndCol: ref.Col}
			continue
		}
		r.StartRow = min(r.StartRow, ref.Row)
		r.StartCol = min(r.StartCol, ref.Col)
		r.EndRow = max(r.EndRow, ref.Row)
		r.EndCol = max(r.EndCol, ref.Col)
	}
	if r.StartRow == 0 {
		return Range{StartRow: 1, StartCol: 1, EndRow: 1, EndCol: 1}
	}
	return r
}

// Cell is one stored cell. Style may be nil.
type Cell struct {
	Row   int
	Col   int
	Value Value
	Style *Style
}

// MergeRange is an inclusive block of merged cells.
type MergeRange struct {
	StartRow int `json:"startRow"`
	StartCol int `json:"startCol"`
	EndRow   int `json:"endRow"`
	EndCol   int `json:"endCol"`
}

// Contains reports whether row, col lies inside m.
func (m MergeRange) Contains(row, col int) bool {
	return row >= m.StartRow && row <= m.EndRow && col >= m.StartCol && col <= m.EndCol
}

// Overlaps reports whether m and o share at least one cell.
func (m MergeRange) Overlaps(o MergeRange) bool {
	return m.StartRow <= o.EndRow && o.StartRow <= m.EndRow &&
		m.StartCol <= o.EndCol && o.StartCol <= m.EndCol
}

func (m MergeRange) String() string {
	return CellRef{Row: m.StartRow, Col: m.StartCol}.String() + ":" +
		CellRef{Row: m.EndRow, Col: m.EndCol}.String()
}
