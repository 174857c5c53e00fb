// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/ingest"
	"github.com/UNO-SOFT/sheetview/resolve"
)

func TestLoadInProgress(t *testing.T) {
	s := NewSession(nil, ingest.Options{}, grid.Options{})
	s.loading.Store(true)
	_, err := s.Load(context.Background(), []byte("a,b\n"))
	assert.ErrorIs(t, err, sheetview.ErrLoadInProgress)

	s.loading.Store(false)
	wi, err := s.Load(context.Background(), []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, "delimited", wi.Properties.Strategy)
}

type exploding struct{}

func (exploding) String() string { panic("boom") }

func TestHandlePanic(t *testing.T) {
	w := New(Config{MemoryInterval: -1})
	wb := &sheetview.Workbook{}
	ws := wb.AddSheet("S", sheetview.SheetVisible)
	ws.SetCell(&sheetview.Cell{Row: 1, Col: 1, Value: sheetview.UnknownValue(exploding{})})
	ws.SetCell(&sheetview.Cell{Row: 2, Col: 1, Value: sheetview.StringValue("fine")})
	w.session.wb, w.session.res = wb, resolve.New(wb, resolve.Options{})

	resp := w.Handle(context.Background(), Request{ID: "s", Type: SearchInSheet, Query: "fine"})
	assert.Equal(t, Error, resp.Type)
	assert.Equal(t, "s", resp.ID)
	assert.Contains(t, resp.Error, "boom")

	// The held workbook is intact.
	resp = w.Handle(context.Background(), Request{ID: "p", Type: ProcessSheet})
	require.Equal(t, SheetProcessed, resp.Type, resp.Error)
	assert.Equal(t, "fine", resp.Sheet.Cell(2, 1).Display)
	assert.Len(t, resp.Sheet.Diagnostics, 1)
}

func TestSearchBounds(t *testing.T) {
	s := NewSession(nil, ingest.Options{}, grid.Options{})
	wb := &sheetview.Workbook{}
	ws := wb.AddSheet("S", sheetview.SheetVisible)
	for _, c := range []struct{ Row, Col int }{
		{2, 3},
		{SearchMaxRows, SearchMaxCols},
		{SearchMaxRows + 1, 1},
		{1, SearchMaxCols + 1},
		{SearchMaxRows + 1, SearchMaxCols + 1},
	} {
		ws.SetCell(&sheetview.Cell{Row: c.Row, Col: c.Col, Value: sheetview.StringValue("needle")})
	}
	s.wb, s.res = wb, resolve.New(wb, resolve.Options{})

	matches, err := s.Search(0, "needle", false, false)
	require.NoError(t, err)
	assert.Equal(t, []Match{
		{Row: 2, Col: 3, Value: "needle"},
		{Row: SearchMaxRows, Col: SearchMaxCols, Value: "needle"},
	}, matches)
}

func TestTaskCounter(t *testing.T) {
	w := New(Config{MemoryInterval: -1})
	ctx := context.Background()
	for _, typ := range []MessageType{GetMemoryInfo, "BOGUS", ProcessSheet, SearchInSheet} {
		w.Handle(ctx, Request{Type: typ, Query: "x"})
	}
	assert.Equal(t, 4, w.session.Tasks())

	resp := w.Handle(ctx, Request{Type: LoadWorkbook, Data: []byte("a,b\n")})
	require.Equal(t, WorkbookLoaded, resp.Type, resp.Error)
	assert.Equal(t, 5, w.session.Tasks())

	resp = w.Handle(ctx, Request{Type: ClearCache})
	require.Equal(t, CacheCleared, resp.Type)
	assert.Equal(t, 0, w.session.Tasks())

	// A memory report does not include itself.
	resp = w.Handle(ctx, Request{Type: GetMemoryInfo})
	require.Equal(t, MemoryUpdate, resp.Type)
	assert.Equal(t, 0, resp.Memory.Tasks)
	assert.Equal(t, 1, w.session.Tasks())
}
