// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScrollSingle(t *testing.T) {
	l := NewLayout(newSheet(10, 10, 0, 0), Options{})
	sc := NewScroller(l, 300, 100)
	sc.ScrollTo(Single, 1000, 1000)
	assert.Equal(t, Offset{X: 400, Y: 100}, sc.Offset(Single))
	sc.ScrollBy(Single, -50, -200)
	assert.Equal(t, Offset{X: 350, Y: 0}, sc.Offset(Single))

	// A larger view pulls the offsets back.
	sc.ScrollTo(Single, 400, 100)
	sc.Resize(800, 300)
	assert.Equal(t, Offset{}, sc.Offset(Single))
}

func TestScrollQuadrants(t *testing.T) {
	// 700x200 content, 140x20 frozen, 300x100 view: 400x100 scroll range.
	l := NewLayout(newSheet(10, 10, 1, 2), Options{})
	sc := NewScroller(l, 300, 100)

	type state struct{ TL, TR, BL, BR Offset }
	get := func() state {
		return state{sc.Offset(TopLeft), sc.Offset(TopRight), sc.Offset(BottomLeft), sc.Offset(BottomRight)}
	}

	for _, tc := range []struct {
		Name string
		Q    Quadrant
		X, Y float64
		Want state
	}{
		{"br", BottomRight, 50, 30, state{BR: Offset{50, 30}, TR: Offset{X: 50}, BL: Offset{Y: 30}}},
		{"tr", TopRight, 120, 999, state{BR: Offset{120, 30}, TR: Offset{X: 120}, BL: Offset{Y: 30}}},
		{"bl", BottomLeft, 999, 70, state{BR: Offset{120, 70}, TR: Offset{X: 120}, BL: Offset{Y: 70}}},
		{"tl", TopLeft, 10, 10, state{BR: Offset{120, 70}, TR: Offset{X: 120}, BL: Offset{Y: 70}}},
		{"clamp", BottomRight, 1e6, -5, state{BR: Offset{400, 0}, TR: Offset{X: 400}}},
	} {
		sc.ScrollTo(tc.Q, tc.X, tc.Y)
		assert.Equal(t, tc.Want, get(), tc.Name)
	}

	// The synchronized axes never diverge.
	for i, q := range []Quadrant{TopRight, BottomLeft, BottomRight, TopRight, TopLeft, BottomLeft} {
		sc.ScrollBy(q, float64(37*i-60), float64(23*i-40))
		st := get()
		assert.Equal(t, st.BR.X, st.TR.X, "step %d", i)
		assert.Equal(t, st.BR.Y, st.BL.Y, "step %d", i)
		assert.Zero(t, st.TR.Y)
		assert.Zero(t, st.BL.X)
		assert.Equal(t, Offset{}, st.TL)
	}

	sc.ScrollTo(BottomRight, 400, 100)
	sc.Resize(600, 150)
	assert.Equal(t, Offset{100, 50}, sc.Offset(BottomRight))
	assert.Equal(t, Offset{X: 100}, sc.Offset(TopRight))
	assert.Equal(t, Offset{Y: 50}, sc.Offset(BottomLeft))
}

func TestScrollStep(t *testing.T) {
	s := newSheet(10, 10, 0, 0)
	l := NewLayout(s, Options{})
	cols := []float64{1, 1, 0, 1, 1, 1, 1, 1, 1, 1}
	rows := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	l = l.Resized(cols, rows)
	sc := NewScroller(l, 3, 3)

	sc.Step(Single, 1, 0)
	assert.Equal(t, Offset{X: 1}, sc.Offset(Single))
	// The zero-width column is skipped.
	sc.Step(Single, 1, 0)
	assert.Equal(t, Offset{X: 2}, sc.Offset(Single))
	sc.Step(Single, -1, 0)
	assert.Equal(t, Offset{X: 1}, sc.Offset(Single))

	sc.Step(Single, 100, 2)
	assert.Equal(t, Offset{X: 6, Y: 2}, sc.Offset(Single))
	sc.Step(Single, -100, -100)
	assert.Equal(t, Offset{}, sc.Offset(Single))

	// A partially shown column is revealed first.
	sc.ScrollTo(Single, 2.5, 0)
	sc.Step(Single, -1, 0)
	assert.Equal(t, Offset{X: 2}, sc.Offset(Single))
}

func TestScrollReveal(t *testing.T) {
	l := NewLayout(newSheet(10, 10, 0, 0), Options{})
	sc := NewScroller(l, 300, 100)
	sc.Reveal(8, 6)
	assert.Equal(t, Offset{X: 190, Y: 80}, sc.Offset(Single))
	sc.Reveal(0, 0)
	assert.Equal(t, Offset{}, sc.Offset(Single))

	l = NewLayout(newSheet(10, 10, 1, 2), Options{})
	sc = NewScroller(l, 300, 100)
	sc.Reveal(8, 6)
	// Pane-relative: column 6 spans 280..350 of 160, row 8 spans 140..160 of 80.
	assert.Equal(t, Offset{X: 190, Y: 80}, sc.Offset(BottomRight))
	// Frozen cells need no scrolling.
	sc.Reveal(0, 0)
	assert.Equal(t, Offset{X: 190, Y: 80}, sc.Offset(BottomRight))
}
