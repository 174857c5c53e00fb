// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"io"
	"math"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontfamily"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"

	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/render"
	"github.com/UNO-SOFT/sheetview/resolve"
)

// gridUnit is the column width, in pixels, of one grid unit.
const gridUnit = 10

var errEmpty = errors.New("nothing to print")

type pdfOptions struct {
	Landscape      bool
	// FontSize is used for cells without an explicit size.
	FontSize       float64
	// AlternateColor is the background of every second body row
	// for cells without a fill; nil disables it.
	AlternateColor *props.Color
}

// gridSizes returns the grid units of each column; hidden columns get 0.
func gridSizes(l *render.Layout) ([]int, int) {
	sizes := make([]int, len(l.Sheet.Cols))
	var total int
	for i, t := range l.Sheet.Cols {
		if t.Hidden || t.Size <= 0 {
			continue
		}
		sizes[i] = max(1, int(math.Round(t.Size/gridUnit)))
		total += sizes[i]
	}
	return sizes, total
}

// writePDF prints the rendered rows of l, repeating the frozen rows on every page.
func writePDF(w io.Writer, l *render.Layout, opts pdfOptions) error {
	sizes, total := gridSizes(l)
	if total == 0 || l.Rows == 0 {
		return errEmpty
	}
	if opts.FontSize <= 0 {
		opts.FontSize = 8
	}
	o := orientation.Vertical
	if opts.Landscape {
		o = orientation.Horizontal
	}
	m := maroto.New(config.NewBuilder().
		WithOrientation(o).
		WithPageSize(pagesize.A4).
		WithMaxGridSize(total).
		Build())

	p := printer{l: l, sizes: sizes, opts: opts}
	var header, body []core.Row
	for r := range l.Rows {
		t := l.Sheet.Rows[r]
		if t.Hidden || t.Size <= 0 {
			continue
		}
		if r < l.FrozenRows {
			header = append(header, p.row(r, false))
		} else {
			body = append(body, p.row(r, len(body)%2 == 1))
		}
	}
	if len(header) != 0 {
		if err := m.RegisterHeader(header...); err != nil {
			return err
		}
	}
	m.AddRows(body...)
	doc, err := m.Generate()
	if err != nil {
		return err
	}
	_, err = w.Write(doc.GetBytes())
	return err
}

type printer struct {
	l     *render.Layout
	sizes []int
	opts  pdfOptions
}

// row returns the PDF row of window row r.
// Merged cells span their visible columns; a vertical merge shows its text in its first row.
func (p printer) row(r int, alternate bool) core.Row {
	var cols []core.Col
	for _, b := range p.l.Blocks(r, r+1, 0, len(p.l.Sheet.Cols))[0] {
		var size int
		for c := b.Col; c < b.Col+b.ColSpan; c++ {
			size += p.sizes[c]
		}
		if size == 0 {
			continue
		}
		cell := b.Cell
		cl := col.New(size).WithStyle(p.cellStyle(cell, alternate))
		if !b.Continued && cell.Display != "" {
			cl.Add(text.New(cell.Display, p.textProps(cell)))
		}
		cols = append(cols, cl)
	}
	// 96 DPI pixels to millimeters.
	return row.New(p.l.Sheet.Rows[r].Size * 25.4 / 96).Add(cols...)
}

func (p printer) cellStyle(c *grid.Cell, alternate bool) *props.Cell {
	st := c.Style
	var cs props.Cell
	if bg, ok := parseColor(st.Background); ok {
		cs.BackgroundColor = bg
	} else if alternate && p.opts.AlternateColor != nil {
		cs.BackgroundColor = p.opts.AlternateColor
	}
	if p.l.Sheet.ShowGridLines || st.BorderTop.Style != "" || st.BorderRight.Style != "" ||
		st.BorderBottom.Style != "" || st.BorderLeft.Style != "" {
		cs.BorderType = border.Full
		cs.BorderColor = &props.Color{Red: 200, Green: 200, Blue: 200}
		for _, side := range []resolve.BorderSide{st.BorderTop, st.BorderRight, st.BorderBottom, st.BorderLeft} {
			if bc, ok := parseColor(side.Color); ok {
				cs.BorderColor = bc
				break
			}
		}
	}
	return &cs
}

func (p printer) textProps(c *grid.Cell) props.Text {
	st := c.Style
	tp := props.Text{
		Family: fontfamily.Arial,
		Size:   p.opts.FontSize,
		Top:    0.5,
		Left:   0.5,
		Right:  0.5,
		Align:  align.Left,
	}
	if st.FontSize > 0 {
		tp.Size = st.FontSize
	}
	switch {
	case st.Bold && st.Italic:
		tp.Style = fontstyle.BoldItalic
	case st.Bold:
		tp.Style = fontstyle.Bold
	case st.Italic:
		tp.Style = fontstyle.Italic
	}
	switch st.HAlign {
	case "center":
		tp.Align = align.Center
	case "right":
		tp.Align = align.Right
	case "":
		if c.Type == resolve.TypeNumeric || c.Type == resolve.TypeDate {
			tp.Align = align.Right
		}
	}
	if fg, ok := parseColor(st.Color); ok {
		tp.Color = fg
	}
	return tp
}

func parseColor(s string) (*props.Color, bool) {
	if s == "" {
		return nil, false
	}
	var c Color
	if err := c.Parse(s); err != nil {
		return nil, false
	}
	return &c.Color, true
}
