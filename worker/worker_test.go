// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package worker_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/internal/xlsxfixture"
	"github.com/UNO-SOFT/sheetview/worker"
)

func workbook(t *testing.T) []byte {
	t.Helper()
	b := xlsxfixture.New()
	first, err := b.NewSheet("First")
	require.NoError(t, err)
	hidden, err := b.NewSheet("Hidden")
	require.NoError(t, err)
	last, err := b.NewSheet("Last")
	require.NoError(t, err)
	require.NoError(t, first.AppendRow("Name", "Amount"))
	require.NoError(t, first.AppendRow("apple", 3, xlsxfixture.Formula("Last!$A$1")))
	require.NoError(t, first.AppendRow("Pineapple", 4.5))
	require.NoError(t, hidden.AppendRow("secret"))
	require.NoError(t, hidden.Hide(false))
	require.NoError(t, last.AppendRow(42))
	data, err := b.Bytes()
	require.NoError(t, err)
	return data
}

func start(t *testing.T, cfg worker.Config) (*worker.Worker, *worker.Client) {
	t.Helper()
	if cfg.MemoryInterval == 0 {
		cfg.MemoryInterval = -1
	}
	ctx, cancel := context.WithCancel(context.Background())
	w := worker.New(cfg)
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errc
	})
	return w, worker.NewClient(w, nil)
}

func TestProtocol(t *testing.T) {
	ctx := context.Background()
	_, c := start(t, worker.Config{})

	resp, err := c.Call(ctx, worker.Request{ID: "p0", Type: worker.ProcessSheet})
	assert.ErrorIs(t, err, sheetview.ErrNoWorkbook)
	assert.Equal(t, worker.Error, resp.Type)
	assert.Equal(t, "p0", resp.ID)

	resp, err = c.Call(ctx, worker.Request{Type: worker.LoadWorkbook, Data: workbook(t)})
	require.NoError(t, err)
	require.Equal(t, worker.WorkbookLoaded, resp.Type)
	assert.NotEmpty(t, resp.ID)
	wi := resp.Workbook
	require.NotNil(t, wi)
	require.Len(t, wi.Worksheets, 3)
	var hidden []bool
	for i, si := range wi.Worksheets {
		assert.Equal(t, i, si.Index)
		hidden = append(hidden, si.IsHidden)
	}
	assert.Equal(t, []bool{false, true, false}, hidden)
	assert.Equal(t, 3, wi.Worksheets[0].RowCount)
	assert.Equal(t, 3, wi.Worksheets[0].ColCount)
	assert.Equal(t, "strict", wi.Properties.Strategy)

	resp, err = c.Call(ctx, worker.Request{Type: worker.ProcessSheet, SheetIndex: 0})
	require.NoError(t, err)
	require.Equal(t, worker.SheetProcessed, resp.Type)
	assert.Equal(t, "Name", resp.Sheet.Cell(1, 1).Display)
	assert.Equal(t, "42", resp.Sheet.Cell(2, 3).Display)

	resp, err = c.Call(ctx, worker.Request{
		Type: worker.ProcessSheet, SheetIndex: 0,
		Rows: &worker.Span{Start: 2, End: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, sheetview.Range{StartRow: 2, StartCol: 1, EndRow: 3, EndCol: 3}, resp.Sheet.Window)

	_, err = c.Call(ctx, worker.Request{Type: worker.ProcessSheet, SheetIndex: 7})
	assert.ErrorIs(t, err, sheetview.ErrSheetIndex)

	resp, err = c.Call(ctx, worker.Request{
		Type: worker.GetCellRange, SheetIndex: 0,
		Rows: &worker.Span{Start: 1, End: 2}, Cols: &worker.Span{Start: 1, End: 2},
	})
	require.NoError(t, err)
	require.Equal(t, worker.CellRange, resp.Type)
	var got []string
	for _, cell := range resp.Cells {
		got = append(got, fmt.Sprintf("%d/%d=%s", cell.Row, cell.Col, cell.Display))
	}
	assert.Equal(t, []string{"1/1=Name", "1/2=Amount", "2/1=apple", "2/2=3"}, got)

	_, err = c.Call(ctx, worker.Request{Type: worker.GetCellRange})
	assert.Error(t, err)

	for _, tc := range []struct {
		Query                string
		CaseSensitive, Exact bool
		Want                 []worker.Match
	}{
		{"APPLE", false, false, []worker.Match{{Row: 2, Col: 1, Value: "apple"}, {Row: 3, Col: 1, Value: "Pineapple"}}},
		{"APPLE", false, true, []worker.Match{{Row: 2, Col: 1, Value: "apple"}}},
		{"Pine", true, false, []worker.Match{{Row: 3, Col: 1, Value: "Pineapple"}}},
		{"pine", true, false, nil},
		{"4.5", false, true, []worker.Match{{Row: 3, Col: 2, Value: "4.5"}}},
	} {
		resp, err = c.Call(ctx, worker.Request{
			Type: worker.SearchInSheet, Query: tc.Query,
			CaseSensitive: tc.CaseSensitive, ExactMatch: tc.Exact,
		})
		require.NoError(t, err, tc.Query)
		assert.Equal(t, worker.SearchResults, resp.Type)
		assert.Equal(t, tc.Want, resp.Matches, tc.Query)
	}

	resp, err = c.Call(ctx, worker.Request{ID: "x", Type: "FROBNICATE"})
	assert.ErrorIs(t, err, sheetview.ErrUnknownMessage)
	assert.Equal(t, "x", resp.ID)
	assert.Equal(t, worker.Error, resp.Type)

	resp, err = c.Call(ctx, worker.Request{Type: worker.GetMemoryInfo})
	require.NoError(t, err)
	assert.Equal(t, worker.MemoryUpdate, resp.Type)
	require.NotNil(t, resp.Memory)
	assert.Positive(t, resp.Memory.LimitMB)

	resp, err = c.Call(ctx, worker.Request{Type: worker.ClearCache})
	require.NoError(t, err)
	assert.Equal(t, worker.CacheCleared, resp.Type)
	_, err = c.Call(ctx, worker.Request{Type: worker.ProcessSheet})
	assert.ErrorIs(t, err, sheetview.ErrNoWorkbook)
}

func TestLoadFailureKeepsServing(t *testing.T) {
	ctx := context.Background()
	w, c := start(t, worker.Config{})
	_, err := c.Call(ctx, worker.Request{Type: worker.LoadWorkbook, Data: []byte{0, 0, 0}})
	require.Error(t, err)
	assert.False(t, w.Session().Loaded())

	_, err = c.Call(ctx, worker.Request{Type: worker.LoadWorkbook, Data: workbook(t)})
	require.NoError(t, err)
	assert.True(t, w.Session().Loaded())
}

func TestEveryRequestAnswered(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	w := worker.New(worker.Config{MemoryInterval: -1, Concurrency: 3})
	go w.Run(ctx)

	types := []worker.MessageType{
		worker.ProcessSheet, worker.SearchInSheet, worker.GetMemoryInfo, "BOGUS", worker.GetCellRange,
	}
	const n = 25
	go func() {
		for i := range n {
			w.Requests() <- worker.Request{ID: fmt.Sprintf("r%d", i), Type: types[i%len(types)], Query: "x"}
		}
	}()
	seen := make(map[string]int)
	for len(seen) < n {
		select {
		case resp := <-w.Responses():
			if resp.ID != "" {
				seen[resp.ID]++
			}
		case <-ctx.Done():
			t.Fatalf("got %d responses: %v", len(seen), ctx.Err())
		}
	}
	for i := range n {
		assert.Equal(t, 1, seen[fmt.Sprintf("r%d", i)])
	}
}

func TestRecycleSuggested(t *testing.T) {
	ctx := context.Background()
	_, c := start(t, worker.Config{MaxTasks: 3, MemUsage: func() uint64 { return 1 << 20 }})

	_, err := c.Call(ctx, worker.Request{Type: worker.LoadWorkbook, Data: workbook(t)})
	require.NoError(t, err)
	for range 4 {
		_, err = c.Call(ctx, worker.Request{Type: worker.SearchInSheet, Query: "a"})
		require.NoError(t, err)
	}

	select {
	case adv := <-c.Advisories():
		assert.Equal(t, worker.RecycleSuggested, adv.Type)
		require.NotNil(t, adv.Memory)
		assert.GreaterOrEqual(t, adv.Memory.Tasks, 3)
	case <-time.After(5 * time.Second):
		t.Fatal("no recycle advisory")
	}
	select {
	case adv := <-c.Advisories():
		t.Fatalf("second advisory: %+v", adv)
	case <-time.After(100 * time.Millisecond):
	}

	resp, err := c.Call(ctx, worker.Request{Type: worker.GetMemoryInfo})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, resp.Memory.Tasks, 5)
	_, err = c.Call(ctx, worker.Request{Type: worker.ClearCache})
	require.NoError(t, err)
	resp, err = c.Call(ctx, worker.Request{Type: worker.GetMemoryInfo})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Memory.Tasks)
}

func TestMemoryAdvisory(t *testing.T) {
	_, c := start(t, worker.Config{
		MemoryInterval: 10 * time.Millisecond,
		LimitMB:        1000,
		MemUsage:       func() uint64 { return 600 << 20 },
	})
	var update, recycle bool
	timeout := time.After(5 * time.Second)
	for !update || !recycle {
		select {
		case adv := <-c.Advisories():
			assert.Empty(t, adv.ID)
			require.NotNil(t, adv.Memory)
			assert.InDelta(t, 600, adv.Memory.UsedMB, 1e-9)
			switch adv.Type {
			case worker.MemoryUpdate:
				update = true
			case worker.RecycleSuggested:
				recycle = true
			}
		case <-timeout:
			t.Fatalf("update=%t recycle=%t", update, recycle)
		}
	}
}

func TestCallCanceled(t *testing.T) {
	_, c := start(t, worker.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Call(ctx, worker.Request{Type: worker.GetMemoryInfo})
	assert.ErrorIs(t, err, context.Canceled)

	// The worker still answers later calls.
	resp, err := c.Call(context.Background(), worker.Request{Type: worker.GetMemoryInfo})
	require.NoError(t, err)
	assert.Equal(t, worker.MemoryUpdate, resp.Type)
}
