// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/UNO-SOFT/sheetview"
)

// Pixel padding added per accounting "_x" marker.
const accountingPadPx = 6

// BorderSide is a resolved border edge; an empty Style means no border.
type BorderSide struct {
	Style string `json:"style,omitempty"`
	Color string `json:"color,omitempty"`
}

// Style is a fully resolved cell style. Empty strings mean "default".
type Style struct {
	FontFamily string  `json:"fontFamily,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	Bold       bool    `json:"bold,omitempty"`
	Italic     bool    `json:"italic,omitempty"`
	Underline  bool    `json:"underline,omitempty"`
	Strike     bool    `json:"strike,omitempty"`
	Color      string  `json:"color,omitempty"`
	Background string  `json:"background,omitempty"`

	BorderTop    BorderSide `json:"borderTop,omitzero"`
	BorderRight  BorderSide `json:"borderRight,omitzero"`
	BorderBottom BorderSide `json:"borderBottom,omitzero"`
	BorderLeft   BorderSide `json:"borderLeft,omitzero"`

	// HAlign is "", "left", "center", "right", "justify" or "fill";
	// "" lets the renderer decide.
	HAlign   string `json:"hAlign,omitempty"`
	VAlign   string `json:"vAlign,omitempty"`
	Wrap     bool   `json:"wrap,omitempty"`
	Indent   int    `json:"indent,omitempty"`
	Rotation int    `json:"rotation,omitempty"`

	PaddingLeft  int `json:"paddingLeft,omitempty"`
	PaddingRight int `json:"paddingRight,omitempty"`

	NumFmt string `json:"numFmt,omitempty"`
}

// ResolveStyle resolves every color reference of st. A nil style is the default style.
func ResolveStyle(st *sheetview.Style) Style {
	if st == nil {
		return Style{}
	}
	var rs Style
	if p := st.Fill.Pattern; p != "" && p != "none" {
		rs.Background = Color(st.Fill.Color)
	}
	rs.FontFamily, rs.FontSize = st.Font.Family, st.Font.Size
	rs.Bold, rs.Italic = st.Font.Bold, st.Font.Italic
	rs.Underline, rs.Strike = st.Font.Underline, st.Font.Strike
	if !st.Font.Color.IsZero() {
		rs.Color = FontColor(st.Font.Color, rs.Background)
	}
	rs.BorderTop = borderSide(st.Border.Top)
	rs.BorderRight = borderSide(st.Border.Right)
	rs.BorderBottom = borderSide(st.Border.Bottom)
	rs.BorderLeft = borderSide(st.Border.Left)

	switch h := st.Alignment.Horizontal; h {
	case "", "general":
	case "centerContinuous", "distributed":
		rs.HAlign = "center"
	default:
		rs.HAlign = h
	}
	rs.VAlign = st.Alignment.Vertical
	if rs.VAlign == "center" {
		rs.VAlign = "middle"
	}
	rs.Wrap = st.Alignment.Wrap
	rs.Indent, rs.Rotation = st.Alignment.Indent, st.Alignment.Rotation

	rs.NumFmt = st.NumFmt
	if f := ParseFormat(st.NumFmt); f.Accounting {
		if rs.HAlign == "" {
			rs.HAlign = "right"
		}
		rs.PaddingLeft = f.PadLeft * accountingPadPx
		rs.PaddingRight = f.PadRight * accountingPadPx
	}
	return rs
}

func borderSide(b sheetview.BorderSide) BorderSide {
	if b.Style == "" || b.Style == "none" {
		return BorderSide{}
	}
	c := Color(b.Color)
	if c == "" {
		c = Black
	}
	return BorderSide{Style: b.Style, Color: c}
}

var rxNumericDisplay = regexp.MustCompile(`^[-+(]?\s*[$€£¥₹₽₩₪₫₴₺฿]?\s*(\d{1,3}(,\d{3})+|\d+)?(\.\d+)?\s*[%xX]?\)?$`)

// isNumeric reports whether a cell without explicit alignment should be
// right-aligned.
func isNumeric(v sheetview.Value, display, numFmt string) bool {
	if display == "" {
		return false
	}
	switch v.Kind {
	case sheetview.KindNumber, sheetview.KindDate:
		return true
	case sheetview.KindFormula:
		if v.Result != nil && (v.Result.Kind == sheetview.KindNumber || v.Result.Kind == sheetview.KindDate) {
			return true
		}
	case sheetview.KindBool, sheetview.KindError:
		return false
	}
	if rxNumericDisplay.MatchString(display) && strings.ContainsAny(display, "0123456789") {
		return true
	}
	if strings.IndexFunc(display, unicode.IsLetter) >= 0 {
		return false
	}
	if strings.ContainsAny(numFmt, "0#.") {
		_, err := strconv.ParseFloat(strings.ReplaceAll(display, ",", ""), 64)
		return err == nil
	}
	return false
}
