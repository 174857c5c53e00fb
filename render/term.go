// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"

	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/resolve"
	"github.com/UNO-SOFT/sheetview/spill"
)

// Action is what the host should do after a key press.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
	ActionNextSheet
	ActionPrevSheet
)

// TermOptions for NewTerminal.
type TermOptions struct {
	Logger *slog.Logger
	// MaxRows caps the rendered rows, MaxRows by default.
	MaxRows int
	// Title is shown on the status line.
	Title string
}

// Terminal draws a sheet on a tcell screen, one character per
// grid.PxPerWidthUnit pixels of width and one line per row.
// The last line of the screen is the status line.
type Terminal struct {
	screen tcell.Screen
	opts   TermOptions
	logger *slog.Logger

	layout   *Layout
	scroller *Scroller
	sources  map[[2]int]bool
	focus    Quadrant
	status   string
}

// NewTerminal returns a Terminal drawing on screen. Call SetSheet before Draw.
func NewTerminal(screen tcell.Screen, opts TermOptions) *Terminal {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Terminal{screen: screen, opts: opts, logger: logger}
}

// SetSheet shows s from its top-left corner.
func (t *Terminal) SetSheet(s *grid.Sheet) {
	l := NewLayout(s, Options{Logger: t.logger, MaxRows: t.opts.MaxRows})
	cols := make([]float64, len(s.Cols))
	for i, tr := range s.Cols {
		if !tr.Hidden {
			cols[i] = max(1, math.Round(tr.Size/grid.PxPerWidthUnit))
		}
	}
	rows := make([]float64, l.Rows)
	for i, tr := range s.Rows[:l.Rows] {
		if !tr.Hidden && !(tr.Spacer && tr.Size < grid.SpacerPx) {
			rows[i] = 1
		}
	}
	t.layout = l.Resized(cols, rows)
	w, h := t.view()
	t.scroller = NewScroller(t.layout, float64(w), float64(h))
	t.sources = spillSources(t.layout.Spill)
	t.focus = Single
	if t.layout.Split {
		t.focus = BottomRight
	}
}

// Layout returns the layout of the shown sheet, measured in characters.
func (t *Terminal) Layout() *Layout { return t.layout }

// Scroller returns the scroll state.
func (t *Terminal) Scroller() *Scroller { return t.scroller }

// Focus returns the pane the keys scroll.
func (t *Terminal) Focus() Quadrant { return t.focus }

// SetStatus sets the message shown at the end of the status line.
func (t *Terminal) SetStatus(msg string) { t.status = msg }

func (t *Terminal) view() (int, int) {
	w, h := t.screen.Size()
	return w, max(0, h-1)
}

// Resize adapts to the new screen size.
func (t *Terminal) Resize() {
	t.screen.Sync()
	if t.scroller != nil {
		w, h := t.view()
		t.scroller.Resize(float64(w), float64(h))
	}
}

type rect struct{ x, y, w, h int }

func (r rect) contains(x, y int) bool {
	return x >= r.x && x < r.x+r.w && y >= r.y && y < r.y+r.h
}

// Draw draws the panes and the status line, then shows the screen.
func (t *Terminal) Draw() {
	s := t.screen
	s.Clear()
	w, h := t.view()
	if l := t.layout; l != nil {
		if !l.Split {
			t.drawPane(l.Panes[0], rect{0, 0, w, h})
		} else {
			fw, fh := min(w, int(l.FrozenWidth())), min(h, int(l.FrozenHeight()))
			for _, p := range l.Panes {
				var r rect
				switch p.Quadrant {
				case TopLeft:
					r = rect{0, 0, fw, fh}
				case TopRight:
					r = rect{fw, 0, w - fw, fh}
				case BottomLeft:
					r = rect{0, fh, fw, h - fh}
				case BottomRight:
					r = rect{fw, fh, w - fw, h - fh}
				}
				t.drawPane(p, r)
			}
		}
	}
	t.drawStatus(w, h)
	s.Show()
}

func (t *Terminal) drawPane(p Pane, r rect) {
	if r.w <= 0 || r.h <= 0 {
		return
	}
	l := t.layout
	off := t.scroller.Offset(p.Quadrant)
	x0 := func(c int) int { return r.x + int(l.ColX(c)-l.ColX(p.ColFrom)-off.X) }
	y0 := func(row int) int { return r.y + int(l.RowY(row)-l.RowY(p.RowFrom)-off.Y) }
	rowFrom, rowTo, colFrom, colTo := l.Visible(p, off, float64(r.w), float64(r.h))

	for _, blocks := range l.Blocks(rowFrom, rowTo, colFrom, colTo) {
		for _, b := range blocks {
			bx, by := x0(b.Col), y0(b.Row)
			bw, bh := x0(b.Col+b.ColSpan)-bx, y0(b.Row+b.RowSpan)-by
			st := cellStyle(b.Cell.Style)
			t.fill(r, bx, by, bw, bh, st)
			if bh > 0 && !b.Continued && !t.sources[[2]int{b.Cell.Row, b.Cell.Col}] {
				t.print(r, bx, by, bw, b.Cell.Display, cellAlign(b.Cell), st)
			}
		}
	}

	w := l.Sheet.Window
	for _, sr := range l.Spill {
		row := sr.SourceRow - w.StartRow
		c0, c1 := sr.StartCol-w.StartCol, sr.EndCol-w.StartCol+1
		if row < rowFrom || row >= rowTo || c1 <= colFrom || c0 >= colTo {
			continue
		}
		if l.RowY(row+1) == l.RowY(row) {
			continue
		}
		st := cellStyle(l.Sheet.Cells[row][sr.SourceCol-w.StartCol].Style)
		t.print(r, x0(c0), y0(row), x0(c1)-x0(c0), sr.Text, sr.Alignment, st)
	}

	for _, im := range l.Sheet.Images {
		row, col := im.Row-w.StartRow, im.Col-w.StartCol
		if row < rowFrom || row >= rowTo || col < colFrom || col >= colTo {
			continue
		}
		t.print(r, x0(col), y0(row), x0(col+im.ColSpan)-x0(col), "[image]", spill.AlignLeft,
			tcell.StyleDefault.Foreground(tcell.ColorBlack).Background(tcell.ColorLightGray))
	}
}

func (t *Terminal) fill(clip rect, x, y, w, h int, st tcell.Style) {
	for j := y; j < y+h; j++ {
		for i := x; i < x+w; i++ {
			if clip.contains(i, j) {
				t.screen.SetContent(i, j, ' ', nil, st)
			}
		}
	}
}

// print writes str aligned within width columns from x, clipped to clip.
func (t *Terminal) print(clip rect, x, y, width int, str string, align spill.Alignment, st tcell.Style) {
	if width <= 0 {
		return
	}
	str = runewidth.Truncate(str, width, "")
	switch tw := runewidth.StringWidth(str); align {
	case spill.AlignRight:
		x += width - tw
	case spill.AlignCenter:
		x += (width - tw) / 2
	}
	for _, c := range str {
		if clip.contains(x, y) {
			t.screen.SetContent(x, y, c, nil, st)
		}
		x += runewidth.RuneWidth(c)
	}
}

func (t *Terminal) drawStatus(w, h int) {
	st := tcell.StyleDefault.Background(tcell.ColorGray).Foreground(tcell.ColorWhite)
	msg := t.opts.Title
	if l := t.layout; l != nil {
		s := l.Sheet
		q := Single
		if l.Split {
			q = BottomRight
		}
		p, _ := l.Pane(q)
		off := t.scroller.Offset(q)
		ref := sheetview.CellRef{
			Row: s.Window.StartRow + l.RowAt(l.RowY(p.RowFrom)+off.Y),
			Col: s.Window.StartCol + l.ColAt(l.ColX(p.ColFrom)+off.X),
		}
		msg += fmt.Sprintf(" [%s] %s  rows %d/%d", s.Name, ref, l.Rows, max(l.Rows, s.Bounds.Rows()))
		if l.HasMore {
			msg += " (truncated)"
		}
		if l.Split {
			msg += "  focus:" + t.focus.String()
		}
	}
	if t.status != "" {
		msg += "  " + t.status
	}
	runes := []rune(msg)
	for i := range w {
		c := ' '
		if i < len(runes) {
			c = runes[i]
		}
		t.screen.SetContent(i, h, c, nil, st)
	}
}

// HandleKey scrolls the focused pane, or tells the host what to do.
//
// Tab moves the focus between the scrolling panes of a split sheet,
// n and p ask for the next and the previous sheet, Esc and q quit.
func (t *Terminal) HandleKey(ev *tcell.EventKey) Action {
	switch ev.Key() {
	case tcell.KeyEsc, tcell.KeyCtrlC:
		return ActionQuit
	case tcell.KeyRune:
		switch ev.Rune() {
		case 'q':
			return ActionQuit
		case 'n':
			return ActionNextSheet
		case 'p':
			return ActionPrevSheet
		}
		return ActionNone
	}
	if t.layout == nil {
		return ActionNone
	}
	sc, q := t.scroller, t.focus
	_, h := t.view()
	page := max(1, float64(h)-t.layout.FrozenHeight())
	switch ev.Key() {
	case tcell.KeyTab:
		if t.layout.Split {
			switch t.focus {
			case BottomRight:
				t.focus = TopRight
			case TopRight:
				t.focus = BottomLeft
			default:
				t.focus = BottomRight
			}
		}
	case tcell.KeyUp:
		sc.Step(q, 0, -1)
	case tcell.KeyDown:
		sc.Step(q, 0, 1)
	case tcell.KeyLeft:
		sc.Step(q, -1, 0)
	case tcell.KeyRight:
		sc.Step(q, 1, 0)
	case tcell.KeyPgUp:
		sc.ScrollBy(q, 0, -page)
	case tcell.KeyPgDn:
		sc.ScrollBy(q, 0, page)
	case tcell.KeyHome:
		sc.ScrollTo(q, 0, 0)
	case tcell.KeyEnd:
		sc.ScrollTo(q, math.Inf(1), math.Inf(1))
	}
	return ActionNone
}

// cellStyle converts a resolved style to a terminal style.
func cellStyle(rs resolve.Style) tcell.Style {
	st := tcell.StyleDefault
	if rs.Color != "" {
		st = st.Foreground(tcell.GetColor(rs.Color))
	}
	if rs.Background != "" {
		st = st.Background(tcell.GetColor(rs.Background))
	}
	return st.Bold(rs.Bold).Italic(rs.Italic).Underline(rs.Underline).StrikeThrough(rs.Strike)
}

func cellAlign(c *grid.Cell) spill.Alignment {
	switch c.Style.HAlign {
	case "right":
		return spill.AlignRight
	case "center":
		return spill.AlignCenter
	case "left":
		return spill.AlignLeft
	}
	if c.Type == resolve.TypeNumeric || c.Type == resolve.TypeDate {
		return spill.AlignRight
	}
	return spill.AlignLeft
}
