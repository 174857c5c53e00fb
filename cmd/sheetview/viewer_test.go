// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNO-SOFT/sheetview/internal/xlsxfixture"
	"github.com/UNO-SOFT/sheetview/worker"
)

func testViewer(t *testing.T, data []byte) (*viewer, tcell.SimulationScreen) {
	t.Helper()
	scr := tcell.NewSimulationScreen("")
	require.NoError(t, scr.Init())
	t.Cleanup(scr.Fini)
	scr.SetSize(60, 10)
	v := newViewer(scr, data, "book", nil, worker.Config{MemoryInterval: -1}, 0)
	t.Cleanup(v.Close)
	return v, scr
}

func book(t *testing.T) []byte {
	t.Helper()
	b := xlsxfixture.New()
	for _, name := range []string{"One", "Hidden", "Two"} {
		sh, err := b.NewSheet(name)
		require.NoError(t, err)
		for i := range 30 {
			require.NoError(t, sh.AppendRow(name, i))
		}
		if name == "Hidden" {
			require.NoError(t, sh.Hide(false))
		}
	}
	data, err := b.Bytes()
	require.NoError(t, err)
	return data
}

func statusLine(scr tcell.SimulationScreen) string {
	cells, w, h := scr.GetContents()
	var b strings.Builder
	for _, c := range cells[(h-1)*w:] {
		if len(c.Runes) != 0 {
			b.WriteRune(c.Runes[0])
		}
	}
	return b.String()
}

func TestViewerSheets(t *testing.T) {
	ctx := context.Background()
	v, _ := testViewer(t, book(t))
	require.NoError(t, v.Load(ctx))
	require.Len(t, v.sheets, 2)
	sheet := func() string { return v.term.Layout().Sheet.Name }
	assert.Equal(t, "One", sheet())

	for _, tc := range []struct {
		Key  rune
		Want string
	}{
		{'n', "Two"},
		{'n', "One"},
		{'p', "Two"},
	} {
		quit, err := v.Handle(ctx, tcell.NewEventKey(tcell.KeyRune, tc.Key, tcell.ModNone))
		require.NoError(t, err)
		assert.False(t, quit)
		assert.Equal(t, tc.Want, sheet(), string(tc.Key))
	}

	quit, err := v.Handle(ctx, tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone))
	require.NoError(t, err)
	assert.True(t, quit)
}

func TestViewerAdvisories(t *testing.T) {
	ctx := context.Background()
	v, scr := testViewer(t, book(t))
	require.NoError(t, v.Load(ctx))
	_, err := v.Handle(ctx, tcell.NewEventKey(tcell.KeyRune, 'n', tcell.ModNone))
	require.NoError(t, err)
	_, err = v.Handle(ctx, tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone))
	require.NoError(t, err)
	off := v.term.Scroller().Offset(v.term.Focus())
	require.Positive(t, off.Y)

	mi := &worker.MemoryInfo{UsedMB: 10, LimitMB: 100}
	interrupt := func(gen int, typ worker.MessageType) {
		t.Helper()
		quit, err := v.Handle(ctx, tcell.NewEventInterrupt(advisory{gen: gen, resp: worker.Response{Type: typ, Memory: mi}}))
		require.NoError(t, err)
		require.False(t, quit)
	}

	interrupt(v.gen, worker.MemoryUpdate)
	v.term.Draw()
	assert.Contains(t, statusLine(scr), "memory 10/100 MB")

	gen := v.gen
	interrupt(gen, worker.RecycleSuggested)
	assert.Equal(t, gen+1, v.gen)
	assert.Equal(t, "Two", v.term.Layout().Sheet.Name)
	assert.Equal(t, off, v.term.Scroller().Offset(v.term.Focus()))
	v.term.Draw()
	assert.Contains(t, statusLine(scr), "worker recycled")

	// Advisories of the stopped worker are ignored.
	interrupt(gen, worker.RecycleSuggested)
	assert.Equal(t, gen+1, v.gen)
}

func TestViewerRun(t *testing.T) {
	v, scr := testViewer(t, book(t))
	require.NoError(t, scr.PostEvent(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)))
	assert.NoError(t, v.Run(context.Background()))

	v, _ = testViewer(t, []byte{0, 0, 0})
	assert.Error(t, v.Run(context.Background()))
}
