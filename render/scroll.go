// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package render

// Offset is the scroll position of a pane, relative to its first row and column.
type Offset struct {
	X, Y float64
}

// Scroller holds the scroll state of a layout shown in a view of a given size.
//
// In a split layout the bottom-right pane drives the horizontal offset of
// the top-right pane and the vertical offset of the bottom-left one.
// Those two drive the matching axis of the bottom-right pane in turn.
// The top-left pane never scrolls.
type Scroller struct {
	l             *Layout
	width, height float64
	off           [BottomRight + 1]Offset
}

// NewScroller returns a Scroller of l in a view of width x height.
func NewScroller(l *Layout, width, height float64) *Scroller {
	return &Scroller{l: l, width: width, height: height}
}

// Layout returns the scrolled layout.
func (sc *Scroller) Layout() *Layout { return sc.l }

// Resize changes the view size, keeping the offsets within bounds.
func (sc *Scroller) Resize(width, height float64) {
	sc.width, sc.height = width, height
	if !sc.l.Split {
		sc.ScrollTo(Single, sc.off[Single].X, sc.off[Single].Y)
		return
	}
	sc.ScrollTo(BottomRight, sc.off[BottomRight].X, sc.off[BottomRight].Y)
}

// Offset returns the offset of pane q.
func (sc *Scroller) Offset(q Quadrant) Offset { return sc.off[q] }

// maxOffset returns the largest offsets the scrolling panes may have.
func (sc *Scroller) maxOffset() Offset {
	l := sc.l
	if !l.Split {
		return Offset{X: max(0, l.Width()-sc.width), Y: max(0, l.Height()-sc.height)}
	}
	// content and view both lose the frozen part
	return Offset{
		X: max(0, (l.Width()-l.FrozenWidth())-max(0, sc.width-l.FrozenWidth())),
		Y: max(0, (l.Height()-l.FrozenHeight())-max(0, sc.height-l.FrozenHeight())),
	}
}

func clamp(v, hi float64) float64 { return max(0, min(v, hi)) }

// ScrollTo scrolls pane q to (x, y). Axes the pane cannot scroll are ignored.
func (sc *Scroller) ScrollTo(q Quadrant, x, y float64) {
	m := sc.maxOffset()
	x, y = clamp(x, m.X), clamp(y, m.Y)
	if !sc.l.Split {
		sc.off[Single] = Offset{X: x, Y: y}
		return
	}
	switch q {
	case BottomRight:
		sc.off[BottomRight] = Offset{X: x, Y: y}
		sc.off[TopRight].X = x
		sc.off[BottomLeft].Y = y
	case TopRight:
		sc.off[TopRight].X = x
		sc.off[BottomRight].X = x
	case BottomLeft:
		sc.off[BottomLeft].Y = y
		sc.off[BottomRight].Y = y
	}
}

// ScrollBy scrolls pane q by (dx, dy).
func (sc *Scroller) ScrollBy(q Quadrant, dx, dy float64) {
	o := sc.off[q]
	sc.ScrollTo(q, o.X+dx, o.Y+dy)
}

// Step scrolls pane q by whole columns and rows, skipping the ones
// with zero size.
func (sc *Scroller) Step(q Quadrant, cols, rows int) {
	p, ok := sc.l.Pane(q)
	if !ok {
		return
	}
	o := sc.off[q]
	x := step(sc.l.colX, p.ColFrom, p.ColTo, o.X, cols)
	y := step(sc.l.rowY, p.RowFrom, p.RowTo, o.Y, rows)
	sc.ScrollTo(q, x, y)
}

// step returns the offset n tracks away from off within tracks [from, to).
func step(ps []float64, from, to int, off float64, n int) float64 {
	if n == 0 || from >= to {
		return off
	}
	pos := ps[from] + off
	i := min(to-1, max(from, at(ps, pos)))
	for ; n > 0 && i < to-1; n-- {
		i++
		for i < to-1 && ps[i+1] == ps[i] {
			i++
		}
	}
	for ; n < 0 && i > from; n++ {
		if ps[i] < pos {
			// the partially shown track comes first
			pos = ps[i]
			continue
		}
		i--
		for i > from && ps[i+1] == ps[i] {
			i--
		}
	}
	return ps[i] - ps[from]
}

// Reveal scrolls so that window index (row, col) is fully visible,
// as far as the view allows. Frozen rows and columns are always visible.
func (sc *Scroller) Reveal(row, col int) {
	l := sc.l
	q := Single
	if l.Split {
		q = BottomRight
	}
	p, _ := l.Pane(q)
	o := sc.off[q]
	viewW, viewH := sc.width, sc.height
	if l.Split {
		viewW, viewH = sc.width-l.FrozenWidth(), sc.height-l.FrozenHeight()
	}
	if col >= p.ColFrom && col < p.ColTo {
		o.X = reveal(l.ColX(col)-l.ColX(p.ColFrom), l.ColX(col+1)-l.ColX(p.ColFrom), o.X, viewW)
	}
	if row >= p.RowFrom && row < p.RowTo {
		o.Y = reveal(l.RowY(row)-l.RowY(p.RowFrom), l.RowY(row+1)-l.RowY(p.RowFrom), o.Y, viewH)
	}
	sc.ScrollTo(q, o.X, o.Y)
}

func reveal(start, end, off, view float64) float64 {
	if end > off+view {
		off = end - view
	}
	if start < off {
		off = start
	}
	return off
}
