// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/text/cases"

	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/ingest"
	"github.com/UNO-SOFT/sheetview/resolve"
)

// Search scans at most this many rows and columns of a sheet.
const (
	SearchMaxRows = 10_000
	SearchMaxCols = 256
)

// Session holds one loaded workbook and the formula-reference cache
// belonging to it.
//
// Queries may run concurrently; Load replaces the workbook only after the
// new one is fully parsed, and only one Load may run at a time.
type Session struct {
	logger  *slog.Logger
	ingest  ingest.Options
	grid    grid.Options
	loading atomic.Bool
	tasks   atomic.Int64

	mu  sync.RWMutex
	wb  *sheetview.Workbook
	res *resolve.Resolver
}

// NewSession returns an empty session.
func NewSession(logger *slog.Logger, iopts ingest.Options, gopts grid.Options) *Session {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if iopts.Logger == nil {
		iopts.Logger = logger
	}
	if gopts.Logger == nil {
		gopts.Logger = logger
	}
	return &Session{logger: logger, ingest: iopts, grid: gopts}
}

// Load parses data and makes it the held workbook.
// A concurrent Load fails with sheetview.ErrLoadInProgress.
// On failure the previously held workbook is kept.
func (s *Session) Load(ctx context.Context, data []byte) (*WorkbookInfo, error) {
	if !s.loading.CompareAndSwap(false, true) {
		return nil, sheetview.ErrLoadInProgress
	}
	defer s.loading.Store(false)

	wb, err := ingest.Load(ctx, data, s.ingest)
	if err != nil {
		return nil, err
	}
	res := resolve.New(wb, resolve.Options{Logger: s.logger, Date1904: wb.Properties.Date1904})
	s.mu.Lock()
	s.wb, s.res = wb, res
	s.mu.Unlock()
	return info(wb), nil
}

func info(wb *sheetview.Workbook) *WorkbookInfo {
	wi := WorkbookInfo{
		Worksheets:  make([]SheetInfo, len(wb.Sheets)),
		Properties:  wb.Properties,
		Diagnostics: wb.Diagnostics,
	}
	for i, ws := range wb.Sheets {
		si := SheetInfo{Index: ws.Index, Name: ws.Name, State: ws.State, IsHidden: ws.Hidden()}
		if ws.Len() != 0 {
			b := ws.Bounds()
			si.RowCount, si.ColCount = b.EndRow, b.EndCol
		}
		wi.Worksheets[i] = si
	}
	return &wi
}

// Clear releases the held workbook and its caches, and resets the task counter.
func (s *Session) Clear() {
	s.mu.Lock()
	s.wb, s.res = nil, nil
	s.mu.Unlock()
	s.tasks.Store(0)
}

// count records one served request.
func (s *Session) count() { s.tasks.Add(1) }

// Tasks returns the number of requests served since the last Clear.
func (s *Session) Tasks() int { return int(s.tasks.Load()) }

// Loaded reports whether a workbook is held.
func (s *Session) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.wb != nil
}

// CacheLen returns the size of the formula-reference cache.
func (s *Session) CacheLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.res == nil {
		return 0
	}
	return s.res.CacheLen()
}

// view runs f with the held workbook under the read lock.
func (s *Session) view(sheetIndex int, f func(*sheetview.Workbook, *sheetview.Worksheet, *resolve.Resolver) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.wb == nil {
		return sheetview.ErrNoWorkbook
	}
	ws, err := s.wb.Sheet(sheetIndex)
	if err != nil {
		return err
	}
	return f(s.wb, ws, s.res)
}

// viewport builds the materialization range; missing spans come from the sheet bounds.
func viewport(ws *sheetview.Worksheet, rows, cols *Span) *sheetview.Range {
	if rows == nil && cols == nil {
		return nil
	}
	b := ws.Bounds()
	vp := b
	if rows != nil {
		vp.StartRow, vp.EndRow = rows.Start, rows.End
	}
	if cols != nil {
		vp.StartCol, vp.EndCol = cols.Start, cols.End
	}
	return &vp
}

// Process materializes the given part of a sheet.
func (s *Session) Process(sheetIndex int, rows, cols *Span) (*grid.Sheet, error) {
	var gs *grid.Sheet
	err := s.view(sheetIndex, func(wb *sheetview.Workbook, ws *sheetview.Worksheet, res *resolve.Resolver) error {
		opts := s.grid
		opts.Resolver = res
		var err error
		gs, err = grid.Materialize(wb, sheetIndex, viewport(ws, rows, cols), opts)
		return err
	})
	return gs, err
}

// CellRange returns the resolved non-empty cells of the given range,
// ordered by row then column.
func (s *Session) CellRange(sheetIndex int, rows, cols Span) ([]grid.Cell, error) {
	var cells []grid.Cell
	err := s.view(sheetIndex, func(_ *sheetview.Workbook, ws *sheetview.Worksheet, res *resolve.Resolver) error {
		res = res.ForSheet(ws.Name)
		rng := sheetview.Range{StartRow: rows.Start, StartCol: cols.Start, EndRow: rows.End, EndCol: cols.End}
		for c := range ws.Cells {
			if !rng.Contains(c.Row, c.Col) || c.Value.IsEmpty() {
				continue
			}
			cells = append(cells, grid.Cell{Row: c.Row, Col: c.Col, Cell: res.Resolve(c)})
		}
		return nil
	})
	slices.SortFunc(cells, func(a, b grid.Cell) int {
		return cmp.Or(cmp.Compare(a.Row, b.Row), cmp.Compare(a.Col, b.Col))
	})
	return cells, err
}

// Search looks for query in the displayed values of a sheet.
// Without exactMatch a value matches when it contains query.
// Only the first SearchMaxRows rows and SearchMaxCols columns are scanned.
func (s *Session) Search(sheetIndex int, query string, caseSensitive, exactMatch bool) ([]Match, error) {
	if query == "" {
		return nil, nil
	}
	fold := func(s string) string { return s }
	if !caseSensitive {
		fold = cases.Fold().String
	}
	q := fold(query)
	var matches []Match
	err := s.view(sheetIndex, func(_ *sheetview.Workbook, ws *sheetview.Worksheet, res *resolve.Resolver) error {
		res = res.ForSheet(ws.Name)
		b := ws.Bounds()
		lastRow, lastCol := min(b.EndRow, SearchMaxRows), min(b.EndCol, SearchMaxCols)
		for row := b.StartRow; row <= lastRow; row++ {
			for col := b.StartCol; col <= lastCol; col++ {
				c := ws.Cell(row, col)
				if c == nil || c.Value.IsEmpty() {
					continue
				}
				display := res.Resolve(c).Display
				v := fold(display)
				if exactMatch && v == q || !exactMatch && strings.Contains(v, q) {
					matches = append(matches, Match{Row: row, Col: col, Value: display})
				}
			}
		}
		return nil
	})
	return matches, err
}
