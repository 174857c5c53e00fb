// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/UNO-SOFT/sheetview"
)

// Black is the fallback of every unresolvable color.
const (
	Black = "#000000"
	White = "#FFFFFF"
)

// indexedColors is the legacy 64-entry palette, ARGB.
var indexedColors = [64]string{
	"FF000000", "FFFFFFFF", "FFFF0000", "FF00FF00", "FF0000FF", "FFFFFF00", "FFFF00FF", "FF00FFFF",
	"FF000000", "FFFFFFFF", "FFFF0000", "FF00FF00", "FF0000FF", "FFFFFF00", "FFFF00FF", "FF00FFFF",
	"FF800000", "FF008000", "FF000080", "FF808000", "FF800080", "FF008080", "FFC0C0C0", "FF808080",
	"FF9999FF", "FF993366", "FFFFFFCC", "FFCCFFFF", "FF660066", "FFFF8080", "FF0066CC", "FFCCCCFF",
	"FF000080", "FFFF00FF", "FFFFFF00", "FF00FFFF", "FF800080", "FF800000", "FF008080", "FF0000FF",
	"FF00CCFF", "FFCCFFFF", "FFCCFFCC", "FFFFFF99", "FF99CCFF", "FFFF99CC", "FFCC99FF", "FFFFCC99",
	"FF3366FF", "FF33CCCC", "FF99CC00", "FFFFCC00", "FFFF9900", "FFFF6600", "FF666699", "FF969696",
	"FF003366", "FF339966", "FF003300", "FF333300", "FF993300", "FF993366", "FF333399", "FF333333",
}

// themeColors is the default Office theme: lt1, dk1, lt2, dk2, accent1-6,
// hyperlink and followed hyperlink.
var themeColors = [...]string{
	"FFFFFF", "000000", "E7E6E6", "44546A",
	"4472C4", "ED7D31", "A5A5A5", "FFC000", "5B9BD5", "70AD47",
	"0563C1", "954F72",
}

// IndexedColor returns the palette entry as "#RRGGBB"; unknown indexes are black.
func IndexedColor(i int) string {
	if i < 0 || i >= len(indexedColors) {
		return Black
	}
	return "#" + indexedColors[i][2:]
}

// ThemeColor returns the base color of the theme slot; unknown slots are black.
func ThemeColor(i int) string {
	if i < 0 || i >= len(themeColors) {
		return Black
	}
	return "#" + themeColors[i]
}

// Color resolves c to "#RRGGBB", or "" when c is automatic.
func Color(c sheetview.Color) string {
	var base string
	switch {
	case c.RGB != "":
		base = normalizeRGB(c.RGB)
	case c.Theme != nil:
		base = ThemeColor(*c.Theme)
	case c.Indexed != nil:
		base = IndexedColor(*c.Indexed)
	default:
		return ""
	}
	return Tint(base, c.Tint)
}

// FontColor resolves a font color drawn over background ("" means white).
// Theme slots 0 and 1 are the text/background pair: they resolve to white
// on dark backgrounds and to black on light ones.
func FontColor(c sheetview.Color, background string) string {
	if c.RGB == "" && c.Theme != nil && (*c.Theme == 0 || *c.Theme == 1) {
		return Tint(Contrast(background), c.Tint)
	}
	return Color(c)
}

// Contrast returns white for dark backgrounds and black for light ones.
func Contrast(background string) string {
	if background == "" {
		background = White
	}
	if Luminance(background) < 0.5 {
		return White
	}
	return Black
}

// Tint lightens (tint > 0) or darkens (tint < 0) the "#RRGGBB" color.
func Tint(hex string, tint float64) string {
	if tint == 0 {
		return hex
	}
	r, g, b, ok := parseRGB(hex)
	if !ok {
		return hex
	}
	tint = max(-1, min(1, tint))
	f := func(c uint8) uint8 {
		x := float64(c)
		if tint > 0 {
			x += (255 - x) * tint
		} else {
			x *= 1 + tint
		}
		return uint8(math.Round(max(0, min(255, x))))
	}
	return formatRGB(f(r), f(g), f(b))
}

// Luminance is the relative luminance (0 black .. 1 white) of "#RRGGBB".
func Luminance(hex string) float64 {
	r, g, b, ok := parseRGB(hex)
	if !ok {
		return 1
	}
	lin := func(c uint8) float64 {
		x := float64(c) / 255
		if x <= 0.03928 {
			return x / 12.92
		}
		return math.Pow((x+0.055)/1.055, 2.4)
	}
	return 0.2126*lin(r) + 0.7152*lin(g) + 0.0722*lin(b)
}

func normalizeRGB(s string) string {
	s = strings.TrimPrefix(s, "#")
	if len(s) == 8 {
		s = s[2:]
	}
	if len(s) != 6 {
		return Black
	}
	if _, err := strconv.ParseUint(s, 16, 32); err != nil {
		return Black
	}
	return "#" + strings.ToUpper(s)
}

func parseRGB(hex string) (r, g, b uint8, ok bool) {
	hex = strings.TrimPrefix(hex, "#")
	if len(hex) != 6 {
		return 0, 0, 0, false
	}
	n, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	return uint8(n >> 16), uint8(n >> 8), uint8(n), true
}

func formatRGB(r, g, b uint8) string { return fmt.Sprintf("#%02X%02X%02X", r, g, b) }
