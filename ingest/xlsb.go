// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bytes"
	"context"
	"fmt"

	"github.com/TsubasaBE/go-xlsb"
	"github.com/TsubasaBE/go-xlsb/styles"
	"github.com/TsubasaBE/go-xlsb/workbook"

	"github.com/UNO-SOFT/sheetview"
)

// openXLSB reads binary workbooks. Only values, merges and column widths
// are available; cell styles carry the number format alone.
func openXLSB(ctx context.Context, data []byte, opts Options) (*sheetview.Workbook, error) {
	if !isZip(data) {
		return nil, fmt.Errorf("not a zip archive: %w", sheetview.ErrUnsupportedFormat)
	}
	xb, err := xlsb.OpenReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	defer xb.Close()
	wb := &sheetview.Workbook{}
	wb.Properties.Date1904 = xb.Date1904
	for i, name := range xb.Sheets() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var state sheetview.SheetState
		switch xb.SheetVisibility(name) {
		case workbook.SheetHidden:
			state = sheetview.SheetHidden
		case workbook.SheetVeryHidden:
			state = sheetview.SheetVeryHidden
		default:
			state = sheetview.SheetVisible
		}
		ws := wb.AddSheet(name, state)
		xs, err := xb.Sheet(i + 1)
		if err != nil {
			wb.Diagnostics = append(wb.Diagnostics, sheetview.Diagnostic{Sheet: name, Err: err})
			continue
		}
		for _, c := range xs.Cols {
			for col := c.C1 + 1; col <= c.C2+1 && col <= 16384; col++ {
				ws.Cols[col] = sheetview.ColInfo{Width: c.Width}
			}
		}
		for _, m := range xs.MergeCells {
			ws.Merges = append(ws.Merges, sheetview.MergeRange{
				StartRow: m.R + 1, StartCol: m.C + 1, EndRow: m.R + m.H, EndCol: m.C + m.W,
			})
		}
		for row := range xs.Rows(true) {
			for _, c := range row {
				cell := &sheetview.Cell{Row: c.R + 1, Col: c.C + 1}
				if numFmt := xlsbNumFmt(xb, c.Style); numFmt != "" {
					cell.Style = &sheetview.Style{NumFmt: numFmt}
				}
				switch v := c.V.(type) {
				case nil:
					continue
				case string:
					if _, ok := errorCodes[v]; ok {
						cell.Value = sheetview.ErrorValue(v)
					} else {
						cell.Value = sheetview.StringValue(v)
					}
				case bool:
					cell.Value = sheetview.BoolValue(v)
				case float64:
					if xb.Styles.IsDate(c.Style) {
						cell.Value = sheetview.DateValue(sheetview.SerialToTime(v, xb.Date1904))
					} else {
						cell.Value = sheetview.NumberValue(v)
					}
				default:
					cell.Value = sheetview.UnknownValue(v)
				}
				ws.SetCell(cell)
			}
		}
	}
	return wb, nil
}

func xlsbNumFmt(xb *workbook.Workbook, style int) string {
	if style <= 0 || style >= len(xb.Styles) {
		return ""
	}
	if s := xb.Styles.FmtStr(style); s != "" {
		return s
	}
	return styles.BuiltInNumFmt[xb.Styles[style].NumFmtID]
}

var errorCodes = map[string]struct{}{
	"#NULL!": {}, "#DIV/0!": {}, "#VALUE!": {}, "#REF!": {}, "#NAME?": {},
	"#NUM!": {}, "#N/A": {}, "#GETTING_DATA": {}, "#SPILL!": {}, "#CALC!": {},
}
