// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetview

// Color is an unresolved color reference: direct RGB, an indexed palette
// slot or a theme slot with tint. The zero Color means "automatic".
type Color struct {
	// RGB is "RRGGBB" or "AARRGGBB", with or without a leading '#'.
	RGB     string  `json:"rgb,omitempty"`
	Indexed *int    `json:"indexed,omitempty"`
	Theme   *int    `json:"theme,omitempty"`
	Tint    float64 `json:"tint,omitempty"`
}

// IsZero reports whether no color was given.
func (c Color) IsZero() bool { return c.RGB == "" && c.Indexed == nil && c.Theme == nil }

func Indexed(i int) Color { return Color{Indexed: &i} }
func Theme(i int, tint float64) Color { return Color{Theme: &i, Tint: tint} }
func RGB(s string) Color { return Color{RGB: s} }

type Font struct {
	Family    string  `json:"family,omitempty"`
	Size      float64 `json:"size,omitempty"`
	Bold      bool    `json:"bold,omitempty"`
	Italic    bool    `json:"italic,omitempty"`
	Underline bool    `json:"underline,omitempty"`
	Strike    bool    `json:"strike,omitempty"`
	Color     Color   `json:"color,omitzero"`
}

type Fill struct {
	// Pattern is the OOXML pattern type; "" and "none" mean no fill.
	Pattern string `json:"pattern,omitempty"`
	Color   Color  `json:"color,omitzero"`
}

type BorderSide struct {
	// Style is the OOXML border style name ("thin", "medium", "dashed", ...).
	Style string `json:"style,omitempty"`
	Color Color  `json:"color,omitzero"`
}

type Border struct {
	Left   BorderSide `json:"left,omitzero"`
	Right  BorderSide `json:"right,omitzero"`
	Top    BorderSide `json:"top,omitzero"`
	Bottom BorderSide `json:"bottom,omitzero"`
}

type Alignment struct {
	// Horizontal is "", "general", "left", "center", "right", "fill",
	// "justify", "centerContinuous" or "distributed".
	Horizontal string `json:"horizontal,omitempty"`
	Vertical   string `json:"vertical,omitempty"`
	Wrap       bool   `json:"wrap,omitempty"`
	Indent     int    `json:"indent,omitempty"`
	Rotation   int    `json:"rotation,omitempty"`
}

// Style is the raw style of a cell as read from the file.
type Style struct {
	Font      Font      `json:"font,omitzero"`
	Fill      Fill      `json:"fill,omitzero"`
	Border    Border    `json:"border,omitzero"`
	Alignment Alignment `json:"alignment,omitzero"`
	NumFmt    string    `json:"numFmt,omitempty"`
}
