// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNO-SOFT/sheetview/resolve"
)

func simScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("")
	require.NoError(t, s.Init())
	t.Cleanup(s.Fini)
	s.SetSize(w, h)
	return s
}

// lines returns the screen contents, one string per line.
func lines(s tcell.SimulationScreen) []string {
	cells, w, h := s.GetContents()
	out := make([]string, h)
	for y := range h {
		var b strings.Builder
		for x := range w {
			if rs := cells[y*w+x].Runes; len(rs) > 0 {
				b.WriteRune(rs[0])
			} else {
				b.WriteRune(' ')
			}
		}
		out[y] = b.String()
	}
	return out
}

func key(k tcell.Key) *tcell.EventKey { return tcell.NewEventKey(k, 0, tcell.ModNone) }

func runeKey(r rune) *tcell.EventKey { return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone) }

func TestTerminalDraw(t *testing.T) {
	s := newSheet(3, 4, 0, 0)
	set(s, 1, 1, "Name", resolve.TypeText)
	set(s, 1, 2, "Amt", resolve.TypeText)
	set(s, 2, 1, "x", resolve.TypeText)
	set(s, 2, 2, "12", resolve.TypeNumeric)
	set(s, 3, 1, "a long piece of text", resolve.TypeText)

	scr := simScreen(t, 40, 6)
	term := NewTerminal(scr, TermOptions{Title: "book"})
	term.SetSheet(s)
	assert.Equal(t, Single, term.Focus())
	term.Draw()

	got := lines(scr)
	assert.Equal(t, "Name      Amt", strings.TrimRight(got[0], " "))
	assert.Equal(t, "x"+strings.Repeat(" ", 17)+"12", strings.TrimRight(got[1], " "))
	assert.Equal(t, "a long piece of text", strings.TrimRight(got[2], " "))
	assert.True(t, strings.HasPrefix(got[5], "book [S] A1  rows 3/3"), got[5])

	term.SetStatus("hello")
	term.Draw()
	assert.Contains(t, lines(scr)[5], "hello")
}

func TestTerminalHiddenTracks(t *testing.T) {
	s := newSheet(3, 3, 0, 0)
	set(s, 1, 1, "A", resolve.TypeText)
	set(s, 1, 2, "B", resolve.TypeText)
	set(s, 1, 3, "C", resolve.TypeText)
	set(s, 3, 1, "last", resolve.TypeText)
	s.Cols[1].Hidden, s.Cols[1].Size = true, 2
	s.Rows[1].Hidden, s.Rows[1].Size = true, 2

	scr := simScreen(t, 30, 4)
	term := NewTerminal(scr, TermOptions{})
	term.SetSheet(s)
	term.Draw()
	got := lines(scr)
	assert.Equal(t, "A         C", strings.TrimRight(got[0], " "))
	assert.Equal(t, "last", strings.TrimRight(got[1], " "))
}

func TestTerminalKeys(t *testing.T) {
	s := newSheet(3, 8, 0, 1)
	for i, v := range []string{"A", "B", "C", "D"} {
		set(s, 1, i+1, v, resolve.TypeText)
	}
	scr := simScreen(t, 40, 5)
	term := NewTerminal(scr, TermOptions{})
	term.SetSheet(s)
	require.True(t, term.Layout().Split)
	assert.Equal(t, BottomRight, term.Focus())

	term.Draw()
	assert.Equal(t, "A         B         C         D", strings.TrimRight(lines(scr)[0], " "))

	assert.Equal(t, ActionNone, term.HandleKey(key(tcell.KeyRight)))
	term.Draw()
	assert.Equal(t, "A         C         D", strings.TrimRight(lines(scr)[0], " "))
	assert.Equal(t, Offset{X: 10}, term.Scroller().Offset(TopRight))

	term.HandleKey(key(tcell.KeyHome))
	assert.Equal(t, Offset{}, term.Scroller().Offset(BottomRight))
	term.HandleKey(key(tcell.KeyEnd))
	// 70 columns of content right of the frozen one, 30 shown.
	assert.Equal(t, Offset{X: 40}, term.Scroller().Offset(BottomRight))

	for _, want := range []Quadrant{TopRight, BottomLeft, BottomRight} {
		term.HandleKey(key(tcell.KeyTab))
		assert.Equal(t, want, term.Focus())
	}

	for _, tc := range []struct {
		Ev   *tcell.EventKey
		Want Action
	}{
		{key(tcell.KeyEsc), ActionQuit},
		{runeKey('q'), ActionQuit},
		{runeKey('n'), ActionNextSheet},
		{runeKey('p'), ActionPrevSheet},
		{runeKey('x'), ActionNone},
	} {
		assert.Equal(t, tc.Want, term.HandleKey(tc.Ev))
	}
}

func TestTerminalResize(t *testing.T) {
	scr := simScreen(t, 20, 5)
	term := NewTerminal(scr, TermOptions{})
	term.SetSheet(newSheet(10, 10, 0, 0))
	term.HandleKey(key(tcell.KeyEnd))
	assert.Equal(t, Offset{X: 80, Y: 6}, term.Scroller().Offset(Single))

	scr.SetSize(100, 20)
	term.Resize()
	assert.Equal(t, Offset{}, term.Scroller().Offset(Single))
}
