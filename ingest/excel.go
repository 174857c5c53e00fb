// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/TsubasaBE/go-xlsb/styles"
	"github.com/xuri/excelize/v2"

	"github.com/UNO-SOFT/sheetview"
)

const (
	defaultUnzipSizeLimit    = 4 << 30
	defaultUnzipXMLSizeLimit = 1 << 30

	// excelize reports these when a column or row has no explicit size.
	excelizeColWidth  = 9.140625
	excelizeRowHeight = 15
)

func openStrict(ctx context.Context, data []byte, opts Options) (*sheetview.Workbook, error) {
	if !isZip(data) {
		return nil, fmt.Errorf("not a zip archive: %w", sheetview.ErrUnsupportedFormat)
	}
	es, errs := readEntries(data, defaultUnzipSizeLimit)
	if len(errs) != 0 {
		return nil, errors.Join(errs...)
	}
	return openExcelize(ctx, data, es, excelize.Options{}, opts)
}

func openRelaxed(ctx context.Context, data []byte, opts Options) (*sheetview.Workbook, error) {
	if !isZip(data) {
		return nil, fmt.Errorf("not a zip archive: %w", sheetview.ErrUnsupportedFormat)
	}
	es, errs := readEntries(data, opts.unzipLimit())
	if len(errs) != 0 {
		return nil, errors.Join(errs...)
	}
	es = es.stripMacros()
	repacked, err := es.zip()
	if err != nil {
		return nil, err
	}
	return openExcelize(ctx, repacked, es, opts.excelizeOptions(), opts)
}

func openRepacked(ctx context.Context, data []byte, opts Options) (*sheetview.Workbook, error) {
	es, errs := readEntries(data, opts.unzipLimit())
	if len(es) == 0 {
		es, errs = scanEntries(data, opts.unzipLimit())
	}
	for _, err := range errs {
		opts.logger().Debug("dropped archive entry", "error", err)
	}
	es = es.normalize().stripMacros()
	if es.find("xl/workbook.xml") == nil {
		return nil, fmt.Errorf("no xl/workbook.xml: %w", sheetview.ErrUnsupportedFormat)
	}
	repacked, err := es.zip()
	if err != nil {
		return nil, err
	}
	return openExcelize(ctx, repacked, es, opts.excelizeOptions(), opts)
}

func (o Options) unzipLimit() int64 {
	if o.UnzipSizeLimit > 0 {
		return o.UnzipSizeLimit
	}
	return defaultUnzipSizeLimit
}

func (o Options) excelizeOptions() excelize.Options {
	xo := excelize.Options{UnzipSizeLimit: o.unzipLimit(), UnzipXMLSizeLimit: o.UnzipXMLSizeLimit}
	if xo.UnzipXMLSizeLimit <= 0 {
		xo.UnzipXMLSizeLimit = defaultUnzipXMLSizeLimit
	}
	xo.UnzipXMLSizeLimit = min(xo.UnzipXMLSizeLimit, xo.UnzipSizeLimit)
	return xo
}

func openExcelize(ctx context.Context, data []byte, es entries, xo excelize.Options, opts Options) (*sheetview.Workbook, error) {
	if es.find("xl/workbook.bin") != nil {
		return nil, fmt.Errorf("binary workbook: %w", sheetview.ErrUnsupportedFormat)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data), xo)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := es.workbookInfo()
	if err != nil {
		opts.logger().Debug("workbook.xml", "error", err)
	}
	r := excelReader{f: f, logger: opts.logger(), date1904: info.Date1904, styles: make(map[int]*sheetview.Style)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		r.date1904 = *props.Date1904
	}
	wb := &sheetview.Workbook{}
	wb.Properties.Date1904 = r.date1904
	if dp, err := f.GetDocProps(); err == nil {
		wb.Properties.Title, wb.Properties.Creator, wb.Properties.Modified = dp.Title, dp.Creator, dp.Modified
	}
	names := f.GetSheetList()
	if len(names) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	anchored := make(map[string]struct{})
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		state, ok := info.States[name]
		if !ok {
			if visible, err := f.GetSheetVisible(name); err == nil && !visible {
				state = sheetview.SheetHidden
			} else {
				state = sheetview.SheetVisible
			}
		}
		ws := wb.AddSheet(name, state)
		wb.Diagnostics = append(wb.Diagnostics, r.readSheet(ws)...)
		for _, img := range ws.Images {
			anchored[string(img.Data)] = struct{}{}
		}
	}
	// Media without a drawing anchor goes to the first visible sheet.
	var unanchored []sheetview.Image
	for _, img := range es.media() {
		if _, ok := anchored[string(img.Data)]; !ok {
			unanchored = append(unanchored, img)
		}
	}
	if len(unanchored) != 0 {
		for _, ws := range wb.Sheets {
			if !ws.Hidden() {
				ws.Images = append(ws.Images, unanchored...)
				break
			}
		}
	}
	return wb, nil
}

type excelReader struct {
	f        *excelize.File
	logger   *slog.Logger
	date1904 bool
	styles   map[int]*sheetview.Style
}

// readSheet fills ws. Failures of single cells, rows and ranges are
// returned as diagnostics; the rest of the sheet is still read.
func (r *excelReader) readSheet(ws *sheetview.Worksheet) []sheetview.Diagnostic {
	var diags []sheetview.Diagnostic
	diag := func(row, col int, err error) {
		r.logger.Debug("extract", "sheet", ws.Name, "row", row, "col", col, "error", err)
		diags = append(diags, sheetview.Diagnostic{Sheet: ws.Name, Row: row, Col: col, Err: err})
	}
	name := ws.Name
	f := r.f

	if props, err := f.GetSheetProps(name); err == nil {
		if props.DefaultColWidth != nil && *props.DefaultColWidth > 0 {
			ws.DefaultColWidth = *props.DefaultColWidth
		}
		if props.DefaultRowHeight != nil && *props.DefaultRowHeight > 0 {
			ws.DefaultRowHeight = *props.DefaultRowHeight
		}
	}
	if panes, err := f.GetPanes(name); err == nil && panes.Freeze {
		ws.FrozenCols, ws.FrozenRows = max(0, panes.XSplit), max(0, panes.YSplit)
	}
	if view, err := f.GetSheetView(name, 0); err == nil && view.ShowGridLines != nil {
		ws.ShowGridLines = *view.ShowGridLines
	}

	merges, err := f.GetMergeCells(name)
	if err != nil {
		diag(0, 0, fmt.Errorf("merge cells: %w", err))
	}
	maxCol := 0
	for _, mc := range merges {
		_, start, err1 := sheetview.ParseRef(mc.GetStartAxis())
		_, end, err2 := sheetview.ParseRef(mc.GetEndAxis())
		if err := errors.Join(err1, err2); err != nil {
			diag(start.Row, start.Col, fmt.Errorf("merge %s:%s: %w", mc.GetStartAxis(), mc.GetEndAxis(), err))
			continue
		}
		ws.Merges = append(ws.Merges, sheetview.MergeRange{
			StartRow: min(start.Row, end.Row), StartCol: min(start.Col, end.Col),
			EndRow: max(start.Row, end.Row), EndCol: max(start.Col, end.Col),
		})
		maxCol = max(maxCol, start.Col, end.Col)
	}

	rows, err := f.Rows(name)
	if err != nil {
		diag(0, 0, fmt.Errorf("rows: %w", err))
		return diags
	}
	rowNum := 0
	for rows.Next() {
		rowNum++
		cols, err := rows.Columns(excelize.Options{RawCellValue: true})
		if err != nil {
			diag(rowNum, 0, err)
			continue
		}
		maxCol = max(maxCol, len(cols))
		for i, raw := range cols {
			if c, err := r.readCell(name, rowNum, i+1, raw); err != nil {
				diag(rowNum, i+1, err)
			} else if c != nil {
				ws.SetCell(c)
			}
		}
		r.readRow(ws, rowNum)
	}
	if err := rows.Close(); err != nil {
		diag(0, 0, err)
	}
	for col := 1; col <= maxCol; col++ {
		r.readCol(ws, col)
	}

	if cells, err := f.GetPictureCells(name); err != nil {
		diag(0, 0, fmt.Errorf("pictures: %w", err))
	} else {
		for _, axis := range cells {
			_, ref, err := sheetview.ParseRef(axis)
			if err != nil {
				continue
			}
			pics, err := f.GetPictures(name, axis)
			if err != nil {
				diag(ref.Row, ref.Col, fmt.Errorf("picture: %w", err))
				continue
			}
			for _, p := range pics {
				anchor := ref
				ws.Images = append(ws.Images, sheetview.Image{
					Extension: strings.ToLower(p.Extension), Data: p.File, Anchor: &anchor,
				})
			}
		}
	}
	return diags
}

func (r *excelReader) readRow(ws *sheetview.Worksheet, row int) {
	var ri sheetview.RowInfo
	if h, err := r.f.GetRowHeight(ws.Name, row); err == nil &&
		!approx(h, excelizeRowHeight) && !approx(h, ws.DefaultRowHeight) {
		ri.Height = h
	}
	if visible, err := r.f.GetRowVisible(ws.Name, row); err == nil {
		ri.Hidden = !visible
	}
	if lvl, err := r.f.GetRowOutlineLevel(ws.Name, row); err == nil {
		ri.OutlineLevel = lvl
	}
	if ri != (sheetview.RowInfo{}) {
		ws.Rows[row] = ri
	}
}

func (r *excelReader) readCol(ws *sheetview.Worksheet, col int) {
	colName := sheetview.ColumnName(col)
	var ci sheetview.ColInfo
	if w, err := r.f.GetColWidth(ws.Name, colName); err == nil &&
		!approx(w, excelizeColWidth) && !approx(w, ws.DefaultColWidth) {
		ci.Width = w
	}
	if visible, err := r.f.GetColVisible(ws.Name, colName); err == nil {
		ci.Hidden = !visible
	}
	if lvl, err := r.f.GetColOutlineLevel(ws.Name, colName); err == nil {
		ci.OutlineLevel = lvl
	}
	if ci != (sheetview.ColInfo{}) {
		ws.Cols[col] = ci
	}
}

func approx(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

// readCell extracts one cell. It returns nil for cells without value and style.
func (r *excelReader) readCell(sheet string, row, col int, raw string) (c *sheetview.Cell, err error) {
	defer func() {
		if p := recover(); p != nil {
			c, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	axis, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return nil, err
	}
	f := r.f
	c = &sheetview.Cell{Row: row, Col: col}
	if styleID, err := f.GetCellStyle(sheet, axis); err == nil && styleID != 0 {
		if c.Style, err = r.style(styleID); err != nil {
			return nil, fmt.Errorf("%s[%s]: style %d: %w", sheet, axis, styleID, err)
		}
	}
	var numFmt string
	if c.Style != nil {
		numFmt = c.Style.NumFmt
	}
	typ, err := f.GetCellType(sheet, axis)
	if err != nil {
		return nil, fmt.Errorf("%s[%s]: %w", sheet, axis, err)
	}
	formula, _ := f.GetCellFormula(sheet, axis)

	switch {
	case formula != "":
		var res *sheetview.Value
		if raw != "" {
			v := r.typed(typ, raw, numFmt, formula)
			res = &v
		}
		c.Value = sheetview.FormulaValue(formula, res)
	case raw == "":
	case typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString:
		c.Value = sheetview.StringValue(raw)
		if runs, err := f.GetCellRichText(sheet, axis); err == nil && len(runs) > 1 {
			rs := make([]sheetview.Run, len(runs))
			for i, run := range runs {
				rs[i].Text = run.Text
			}
			c.Value = sheetview.RichTextValue(rs...)
		}
	default:
		c.Value = r.typed(typ, raw, numFmt, formula)
	}
	if ok, target, err := f.GetCellHyperLink(sheet, axis); err == nil && ok && !c.Value.IsEmpty() {
		text, _ := f.GetCellValue(sheet, axis)
		c.Value = sheetview.HyperlinkValue(text, target)
	}
	if c.Value.IsEmpty() && c.Style == nil {
		return nil, nil
	}
	return c, nil
}

// typed converts a raw cell value according to its type.
func (r *excelReader) typed(typ excelize.CellType, raw, numFmt, formula string) sheetview.Value {
	switch typ {
	case excelize.CellTypeBool:
		return sheetview.BoolValue(raw == "1" || strings.EqualFold(raw, "TRUE"))
	case excelize.CellTypeError:
		return sheetview.ErrorValue(raw)
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return sheetview.DateValue(t)
			}
		}
		return sheetview.InvalidDate(formula)
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString, excelize.CellTypeFormula:
		return sheetview.StringValue(raw)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return sheetview.StringValue(raw)
	}
	if isDateFormat(numFmt) {
		return sheetview.DateValue(sheetview.SerialToTime(f, r.date1904))
	}
	return sheetview.NumberValue(f)
}

func (r *excelReader) style(id int) (*sheetview.Style, error) {
	if st, ok := r.styles[id]; ok {
		return st, nil
	}
	xs, err := r.f.GetStyle(id)
	if err != nil {
		return nil, err
	}
	st := convertStyle(xs)
	r.styles[id] = st
	return st, nil
}

var (
	patternNames = [...]string{
		"none", "solid", "mediumGray", "darkGray", "lightGray", "darkHorizontal",
		"darkVertical", "darkDown", "darkUp", "darkGrid", "darkTrellis", "lightHorizontal",
		"lightVertical", "lightDown", "lightUp", "lightGrid", "lightTrellis", "gray125", "gray0625",
	}
	borderNames = [...]string{
		"none", "thin", "medium", "dashed", "dotted", "thick", "double", "hair",
		"mediumDashed", "dashDot", "mediumDashDot", "dashDotDot", "mediumDashDotDot", "slantDashDot",
	}
)

func convertStyle(xs *excelize.Style) *sheetview.Style {
	var st sheetview.Style
	if xs == nil {
		return &st
	}
	if fo := xs.Font; fo != nil {
		st.Font = sheetview.Font{
			Family: fo.Family, Size: fo.Size,
			Bold: fo.Bold, Italic: fo.Italic, Strike: fo.Strike,
			Underline: fo.Underline != "" && fo.Underline != "none",
		}
		switch {
		case fo.Color != "":
			st.Font.Color = sheetview.RGB(fo.Color)
		case fo.ColorTheme != nil:
			st.Font.Color = sheetview.Theme(*fo.ColorTheme, 0)
		case fo.ColorIndexed > 0 && fo.ColorIndexed < 64:
			st.Font.Color = sheetview.Indexed(fo.ColorIndexed)
		}
		st.Font.Color.Tint = fo.ColorTint
	}
	switch xs.Fill.Type {
	case "pattern":
		if p := xs.Fill.Pattern; p > 0 && p < len(patternNames) {
			st.Fill.Pattern = patternNames[p]
		}
	case "gradient":
		st.Fill.Pattern = "gradient"
	}
	if st.Fill.Pattern != "" {
		for _, c := range xs.Fill.Color {
			if c != "" {
				st.Fill.Color = sheetview.RGB(c)
				break
			}
		}
	}
	for _, b := range xs.Border {
		side := sheetview.BorderSide{Color: sheetview.RGB(b.Color)}
		if b.Style > 0 && b.Style < len(borderNames) {
			side.Style = borderNames[b.Style]
		}
		if b.Color == "" {
			side.Color = sheetview.Color{}
		}
		switch b.Type {
		case "left":
			st.Border.Left = side
		case "right":
			st.Border.Right = side
		case "top":
			st.Border.Top = side
		case "bottom":
			st.Border.Bottom = side
		}
	}
	if a := xs.Alignment; a != nil {
		st.Alignment = sheetview.Alignment{
			Horizontal: a.Horizontal, Vertical: a.Vertical,
			Wrap: a.WrapText, Indent: a.Indent, Rotation: a.TextRotation,
		}
	}
	switch {
	case xs.CustomNumFmt != nil:
		st.NumFmt = *xs.CustomNumFmt
	case xs.NumFmt != 0:
		st.NumFmt = styles.BuiltInNumFmt[xs.NumFmt]
	}
	return &st
}

// isDateFormat reports whether numeric cells under the format are dates.
func isDateFormat(numFmt string) bool {
	if numFmt == "" || strings.EqualFold(numFmt, "General") {
		return false
	}
	var quoted, bracket bool
	for _, r := range numFmt {
		switch {
		case quoted:
			quoted = r != '"'
		case bracket:
			if r == ']' {
				bracket = false
			}
		case r == '"':
			quoted = true
		case r == '[':
			bracket = true
		case strings.ContainsRune("dDmMyYhHsS", r):
			return true
		case r == ';':
			return false
		}
	}
	return false
}
