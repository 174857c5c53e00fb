// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"bytes"
	"encoding/base64"
	"io"
	"mime"
	"strconv"
	"strings"

	"github.com/valyala/quicktemplate"

	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/resolve"
	"github.com/UNO-SOFT/sheetview/spill"
)

// HTMLOptions for WriteHTML.
type HTMLOptions struct {
	// Title is written above the grid when not empty.
	Title string
	// Height of the grid in pixels, 600 by default.
	Height int
	// Page wraps the grid in a complete HTML document.
	Page bool
}

// syncScript keeps the scrolling panes of a split grid in lockstep.
const syncScript = `(function(){var r=document.currentScript.parentNode,` +
	`q=function(n){return r.querySelector('.sv-'+n)},br=q('br'),tr=q('tr'),bl=q('bl');` +
	`if(!br)return;br.addEventListener('scroll',function(){tr.scrollLeft=br.scrollLeft;bl.scrollTop=br.scrollTop});` +
	`tr.addEventListener('wheel',function(e){br.scrollLeft+=e.deltaX||e.deltaY;e.preventDefault()});` +
	`bl.addEventListener('wheel',function(e){br.scrollTop+=e.deltaY;e.preventDefault()})})();`

// WriteHTML writes the layout as HTML to w.
//
// A split layout becomes four absolutely positioned panes, one table each;
// otherwise a single scrolling table is written.
func WriteHTML(w io.Writer, l *Layout, opts HTMLOptions) error {
	return writeHTML(w, opts.Page, opts.Title, []*Layout{l}, []string{opts.Title}, opts.Height)
}

// WriteHTMLPage writes a complete HTML document showing every layout
// under the name of its sheet.
func WriteHTMLPage(w io.Writer, title string, layouts []*Layout, height int) error {
	names := make([]string, len(layouts))
	for i, l := range layouts {
		names[i] = l.Sheet.Name
	}
	return writeHTML(w, true, title, layouts, names, height)
}

func writeHTML(w io.Writer, page bool, title string, layouts []*Layout, titles []string, height int) error {
	if height <= 0 {
		height = 600
	}
	var buf bytes.Buffer
	qw := quicktemplate.AcquireWriter(&buf)
	defer quicktemplate.ReleaseWriter(qw)
	n, e := qw.N(), qw.E()

	if page {
		n.S(`<!DOCTYPE html><html><head><meta charset="utf-8"><title>`)
		e.S(title)
		n.S(`</title></head><body>`)
	}
	for i, l := range layouts {
		h := htmlWriter{l: l, n: n, e: e, sources: spillSources(l.Spill)}
		h.grid(titles[i], height)
	}
	if page {
		n.S(`</body></html>`)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

type htmlWriter struct {
	l       *Layout
	n, e    *quicktemplate.QWriter
	sources map[[2]int]bool
}

func spillSources(ranges []spill.Range) map[[2]int]bool {
	m := make(map[[2]int]bool, len(ranges))
	for _, sr := range ranges {
		m[[2]int{sr.SourceRow, sr.SourceCol}] = true
	}
	return m
}

func (h htmlWriter) grid(title string, height int) {
	l := h.l
	h.n.S(`<div class="sheetview">`)
	if title != "" {
		h.n.S(`<h3 class="sv-title">`)
		h.e.S(title)
		h.n.S(`</h3>`)
	}
	if l.HasMore {
		h.n.S(`<div class="sv-notice">Showing the first `)
		h.n.D(l.Rows)
		h.n.S(` rows of `)
		h.n.D(max(l.Rows, l.Sheet.Bounds.Rows()))
		h.n.S(`.</div>`)
	}
	h.n.S(`<div class="sv-grid" style="position:relative;overflow:hidden;height:`)
	h.n.D(height)
	h.n.S(`px">`)
	if !l.Split {
		h.pane(l.Panes[0], `left:0;top:0;right:0;bottom:0;overflow:auto`)
	} else {
		fw, fh := px(l.FrozenWidth()), px(l.FrozenHeight())
		for _, p := range l.Panes {
			var pos string
			switch p.Quadrant {
			case TopLeft:
				pos = "left:0;top:0;width:" + fw + ";height:" + fh + ";overflow:hidden"
			case TopRight:
				pos = "left:" + fw + ";top:0;right:0;height:" + fh + ";overflow:hidden"
			case BottomLeft:
				pos = "left:0;top:" + fh + ";width:" + fw + ";bottom:0;overflow:hidden"
			case BottomRight:
				pos = "left:" + fw + ";top:" + fh + ";right:0;bottom:0;overflow:auto"
			}
			h.pane(p, pos)
		}
		h.n.S(`<script>`)
		h.n.S(syncScript)
		h.n.S(`</script>`)
	}
	h.n.S(`</div></div>`)
}

func px(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) + "px" }

func (h htmlWriter) pane(p Pane, pos string) {
	l := h.l
	width := l.ColX(p.ColTo) - l.ColX(p.ColFrom)
	height := l.RowY(p.RowTo) - l.RowY(p.RowFrom)
	h.n.S(`<div class="sv-pane sv-`)
	h.n.S(p.Quadrant.String())
	h.n.S(`" style="position:absolute;`)
	h.n.S(pos)
	h.n.S(`"><div style="position:relative;width:`)
	h.n.S(px(width))
	h.n.S(`;height:`)
	h.n.S(px(height))
	h.n.S(`">`)
	if p.Rows() > 0 && p.Cols() > 0 {
		h.table(p, width)
		h.spill(p)
		h.images(p)
	}
	h.n.S(`</div></div>`)
}

func (h htmlWriter) table(p Pane, width float64) {
	l, s := h.l, h.l.Sheet
	h.n.S(`<table style="table-layout:fixed;border-collapse:collapse;width:`)
	h.n.S(px(width))
	h.n.S(`"><colgroup>`)
	for c := p.ColFrom; c < p.ColTo; c++ {
		h.n.S(`<col style="width:`)
		h.n.S(px(l.ColX(c+1) - l.ColX(c)))
		h.n.S(`">`)
	}
	h.n.S(`</colgroup>`)
	for i, blocks := range l.Blocks(p.RowFrom, p.RowTo, p.ColFrom, p.ColTo) {
		r := p.RowFrom + i
		h.n.S(`<tr style="height:`)
		h.n.S(px(l.RowY(r+1) - l.RowY(r)))
		h.n.S(`">`)
		for _, b := range blocks {
			h.n.S(`<td`)
			if b.RowSpan > 1 {
				h.n.S(` rowspan="`)
				h.n.D(b.RowSpan)
				h.n.S(`"`)
			}
			if b.ColSpan > 1 {
				h.n.S(` colspan="`)
				h.n.D(b.ColSpan)
				h.n.S(`"`)
			}
			h.n.S(` style="`)
			h.e.S(cellCSS(b.Cell, s.ShowGridLines))
			h.n.S(`">`)
			if !b.Continued && !h.sources[[2]int{b.Cell.Row, b.Cell.Col}] {
				h.e.S(b.Cell.Display)
			}
			h.n.S(`</td>`)
		}
		h.n.S(`</tr>`)
	}
	h.n.S(`</table>`)
}

// spill writes the overlays of the spilling texts crossing p.
// An overlay spans the whole range, the pane clips it.
func (h htmlWriter) spill(p Pane) {
	l, w := h.l, h.l.Sheet.Window
	for _, sr := range l.Spill {
		r := sr.SourceRow - w.StartRow
		c0, c1 := sr.StartCol-w.StartCol, sr.EndCol-w.StartCol+1
		if r < p.RowFrom || r >= p.RowTo || c1 <= p.ColFrom || c0 >= p.ColTo {
			continue
		}
		st := l.Sheet.Cells[r][sr.SourceCol-w.StartCol].Style
		h.n.S(`<div class="sv-spill" style="position:absolute;white-space:nowrap;overflow:hidden;pointer-events:none;left:`)
		h.n.S(px(l.ColX(c0) - l.ColX(p.ColFrom)))
		h.n.S(`;top:`)
		h.n.S(px(l.RowY(r) - l.RowY(p.RowFrom)))
		h.n.S(`;width:`)
		h.n.S(px(l.ColX(c1) - l.ColX(c0)))
		h.n.S(`;height:`)
		h.n.S(px(l.RowY(r+1) - l.RowY(r)))
		h.n.S(`;text-align:`)
		h.n.S(string(sr.Alignment))
		h.e.S(fontCSS(st))
		h.n.S(`">`)
		h.e.S(sr.Text)
		h.n.S(`</div>`)
	}
}

func (h htmlWriter) images(p Pane) {
	l, w := h.l, h.l.Sheet.Window
	for _, im := range l.Sheet.Images {
		r, c := im.Row-w.StartRow, im.Col-w.StartCol
		if r < p.RowFrom || r >= p.RowTo || c < p.ColFrom || c >= p.ColTo {
			continue
		}
		h.n.S(`<img class="sv-image" alt="" style="position:absolute;left:`)
		h.n.S(px(l.ColX(c) - l.ColX(p.ColFrom)))
		h.n.S(`;top:`)
		h.n.S(px(l.RowY(r) - l.RowY(p.RowFrom)))
		h.n.S(`;width:`)
		h.n.S(px(l.ColX(c+im.ColSpan) - l.ColX(c)))
		h.n.S(`;height:`)
		h.n.S(px(l.RowY(r+im.RowSpan) - l.RowY(r)))
		h.n.S(`" src="`)
		h.e.S(dataURI(im))
		h.n.S(`">`)
	}
}

func dataURI(im grid.Image) string {
	ext := strings.ToLower(im.Extension)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	typ := mime.TypeByExtension(ext)
	if typ == "" {
		typ = "application/octet-stream"
	}
	return "data:" + typ + ";base64," + base64.StdEncoding.EncodeToString(im.Data)
}

// cellCSS returns the inline style of c.
func cellCSS(c *grid.Cell, gridLines bool) string {
	st := c.Style
	var b strings.Builder
	b.WriteString("overflow:hidden;padding:0 4px")
	if !st.Wrap {
		b.WriteString(";white-space:nowrap")
	} else {
		b.WriteString(";white-space:pre-wrap")
	}
	b.WriteString(fontCSS(st))
	if st.Background != "" {
		b.WriteString(";background-color:" + st.Background)
	}
	switch align := st.HAlign; {
	case align == "left" || align == "center" || align == "right" || align == "justify":
		b.WriteString(";text-align:" + align)
	case c.Type == resolve.TypeNumeric || c.Type == resolve.TypeDate:
		b.WriteString(";text-align:right")
	}
	switch st.VAlign {
	case "top", "middle", "bottom":
		b.WriteString(";vertical-align:" + st.VAlign)
	}
	if st.Indent > 0 {
		b.WriteString(";text-indent:" + strconv.Itoa(st.Indent*9) + "px")
	}
	if st.PaddingLeft > 0 {
		b.WriteString(";padding-left:" + strconv.Itoa(4+st.PaddingLeft) + "px")
	}
	if st.PaddingRight > 0 {
		b.WriteString(";padding-right:" + strconv.Itoa(4+st.PaddingRight) + "px")
	}
	for _, side := range []struct {
		name string
		b    resolve.BorderSide
	}{{"top", st.BorderTop}, {"right", st.BorderRight}, {"bottom", st.BorderBottom}, {"left", st.BorderLeft}} {
		if side.b.Style != "" {
			b.WriteString(";border-" + side.name + ":" + borderCSS(side.b))
		} else if gridLines {
			b.WriteString(";border-" + side.name + ":1px solid #E0E0E0")
		}
	}
	return b.String()
}

// fontCSS returns the font declarations of st, each prefixed with ';'.
func fontCSS(st resolve.Style) string {
	var b strings.Builder
	if st.FontFamily != "" {
		b.WriteString(";font-family:'" + strings.ReplaceAll(st.FontFamily, "'", "") + "'")
	}
	if st.FontSize > 0 {
		b.WriteString(";font-size:" + strconv.FormatFloat(st.FontSize, 'f', -1, 64) + "pt")
	}
	if st.Bold {
		b.WriteString(";font-weight:bold")
	}
	if st.Italic {
		b.WriteString(";font-style:italic")
	}
	switch {
	case st.Underline && st.Strike:
		b.WriteString(";text-decoration:underline line-through")
	case st.Underline:
		b.WriteString(";text-decoration:underline")
	case st.Strike:
		b.WriteString(";text-decoration:line-through")
	}
	if st.Color != "" {
		b.WriteString(";color:" + st.Color)
	}
	return b.String()
}

func borderCSS(bs resolve.BorderSide) string {
	width, style := "1px", "solid"
	switch bs.Style {
	case "medium", "mediumDashed", "mediumDashDot", "mediumDashDotDot":
		width = "2px"
	case "thick":
		width = "3px"
	case "double":
		width, style = "3px", "double"
	}
	switch bs.Style {
	case "dashed", "mediumDashed", "dashDot", "mediumDashDot", "dashDotDot", "mediumDashDotDot", "slantDashDot":
		style = "dashed"
	case "dotted", "hair":
		style = "dotted"
	}
	color := bs.Color
	if color == "" {
		color = "#000000"
	}
	return width + " " + style + " " + color
}
