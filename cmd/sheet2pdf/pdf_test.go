// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/ingest"
	"github.com/UNO-SOFT/sheetview/internal/xlsxfixture"
	"github.com/UNO-SOFT/sheetview/render"
)

func layout(t *testing.T, build func(*xlsxfixture.Sheet)) *render.Layout {
	t.Helper()
	b := xlsxfixture.New()
	sh, err := b.NewSheet("Data")
	require.NoError(t, err)
	build(sh)
	data, err := b.Bytes()
	require.NoError(t, err)
	wb, err := ingest.Load(context.Background(), data, ingest.Options{})
	require.NoError(t, err)
	s, err := grid.Materialize(wb, 0, nil, grid.Options{})
	require.NoError(t, err)
	return render.NewLayout(s, render.Options{})
}

func TestWritePDF(t *testing.T) {
	l := layout(t, func(sh *xlsxfixture.Sheet) {
		require.NoError(t, sh.AppendRow("Name", "Amount", "Note"))
		for i := range 60 {
			require.NoError(t, sh.AppendRow("item", i, "spans two"))
		}
		require.NoError(t, sh.Merge("C2", "D3"))
		require.NoError(t, sh.SetStyle("A1", "C1", "head", &excelize.Style{
			Font: &excelize.Font{Bold: true, Color: "#FFFFFF"},
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#336699"}},
		}))
		require.NoError(t, sh.HideCol("B"))
		require.NoError(t, sh.Freeze(0, 1))
	})
	require.Equal(t, 1, l.FrozenRows)
	sizes, total := gridSizes(l)
	assert.Equal(t, 0, sizes[1])
	assert.Positive(t, total)

	for _, landscape := range []bool{false, true} {
		var buf bytes.Buffer
		require.NoError(t, writePDF(&buf, l, pdfOptions{
			Landscape:      landscape,
			AlternateColor: &props.Color{Red: 230, Green: 230, Blue: 230},
		}))
		assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
	}
}

func TestWritePDFEmpty(t *testing.T) {
	l := layout(t, func(sh *xlsxfixture.Sheet) {
		require.NoError(t, sh.AppendRow("only"))
		require.NoError(t, sh.HideCol("A"))
	})
	var buf bytes.Buffer
	assert.ErrorIs(t, writePDF(&buf, l, pdfOptions{}), errEmpty)
}

func TestColor(t *testing.T) {
	for _, tc := range []struct {
		In   string
		Want string
		Err  bool
	}{
		{"e6e6e6", "e6e6e6", false},
		{"#0A0B0C", "0a0b0c", false},
		{"fff", "", true},
		{"zzzzzz", "", true},
	} {
		var c Color
		err := c.Parse(tc.In)
		if tc.Err {
			assert.Error(t, err, tc.In)
			continue
		}
		require.NoError(t, err, tc.In)
		assert.Equal(t, tc.Want, c.String())
	}
}
