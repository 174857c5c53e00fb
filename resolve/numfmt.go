// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xuri/nfp"

	"github.com/UNO-SOFT/sheetview"
)

// FormatKind classifies a number format by how it renders numbers.
type FormatKind uint8

const (
	FormatGeneral FormatKind = iota
	FormatText
	FormatNumber
	FormatPercent
	FormatCurrency
	FormatMultiplier
	FormatDate
	FormatTime
)

// Format is the interpretation of the positive section of a number format.
type Format struct {
	Raw      string
	Kind     FormatKind
	Decimals int
	Grouping bool
	// Symbol is the currency symbol, for FormatCurrency.
	Symbol string
	// Accounting is set when the format pads with "_x" markers; PadLeft and
	// PadRight count the markers before and after the digits.
	Accounting        bool
	PadLeft, PadRight int
	// Placeholders reports whether the section has any 0 or # digit placeholder.
	Placeholders bool

	hasDate, hasTime, seconds, ampm, elapsed bool
}

var currencySymbols = "$€£¥₹₽₩₪₫₴₺฿"

var formats sync.Map

// ParseFormat interprets the number format string. Results are memoized.
func ParseFormat(s string) Format {
	if f, ok := formats.Load(s); ok {
		return f.(Format)
	}
	f := parseFormat(s)
	formats.Store(s, f)
	return f
}

func parseFormat(s string) Format {
	f := Format{Raw: s}
	pos := strings.TrimSpace(splitSections(s)[0])
	if pos == "" || strings.EqualFold(pos, "General") {
		return f
	}
	if pos == "@" {
		f.Kind = FormatText
		return f
	}
	var items []nfp.Token
	ps := nfp.NumberFormatParser()
	if secs := ps.Parse(pos); len(secs) != 0 {
		items = secs[0].Items
	}

	var percent, multiplier, afterDecimal, lastWasHour, otherDate bool
	var months int
	for _, tok := range items {
		switch tok.TType {
		case nfp.TokenTypePercent:
			percent = true
		case nfp.TokenTypeThousandsSeparator:
			f.Grouping = true
		case nfp.TokenTypeDecimalPoint:
			afterDecimal = true
		case nfp.TokenTypeZeroPlaceHolder, nfp.TokenTypeHashPlaceHolder:
			f.Placeholders = true
			if afterDecimal {
				f.Decimals += len(tok.TValue)
			}
		case nfp.TokenTypeCurrencyLanguage:
			if sym := currencyFromTag(tok.TValue); sym != "" {
				f.Symbol = sym
			}
		case nfp.TokenTypeLiteral:
			if i := strings.IndexAny(tok.TValue, currencySymbols); i >= 0 && f.Symbol == "" {
				f.Symbol = firstRune(tok.TValue[i:])
			}
		case nfp.TokenTypeDateTimes:
			up := strings.ToUpper(tok.TValue)
			switch {
			case up == "AM/PM" || up == "A/P":
				f.ampm = true
			case strings.HasPrefix(up, "H"):
				f.hasTime = true
			case strings.HasPrefix(up, "S"):
				f.hasTime, f.seconds = true, true
			case (up == "M" || up == "MM") && lastWasHour:
				f.hasTime = true
			case up == "M" || up == "MM":
				f.hasDate = true
				months++
			default:
				f.hasDate, otherDate = true, true
			}
			lastWasHour = strings.HasPrefix(up, "H")
			continue
		case nfp.TokenTypeElapsedDateTimes:
			up := strings.ToUpper(tok.TValue)
			f.hasTime, f.elapsed = true, true
			f.seconds = f.seconds || strings.HasPrefix(up, "S")
			lastWasHour = strings.HasPrefix(up, "H")
			continue
		}
		if tok.TType != nfp.TokenTypeLiteral {
			lastWasHour = false
		}
	}
	if f.seconds && months != 0 && !otherDate {
		// "mm:ss" is minutes.
		f.hasDate = false
	}
	if f.hasDate || f.hasTime {
		f.Kind = FormatDate
		if !f.hasDate {
			f.Kind = FormatTime
		}
		return f
	}

	sc := scanSection(pos)
	if f.Symbol == "" {
		f.Symbol = sc.symbol
	}
	multiplier = sc.multiplier
	if sc.pads > 0 {
		f.Accounting = true
		f.PadLeft, f.PadRight = sc.padLeft, sc.pads-sc.padLeft
	}
	switch {
	case percent:
		f.Kind = FormatPercent
		if !f.Placeholders {
			f.Decimals = 1
		}
	case f.Symbol != "":
		f.Kind = FormatCurrency
		f.Grouping = true
		if !f.Placeholders {
			f.Decimals = 2
		}
	case multiplier:
		f.Kind = FormatMultiplier
		if !f.Placeholders {
			f.Decimals = 1
		}
	default:
		f.Kind = FormatNumber
	}
	return f
}

// IsDate reports whether the format shows a date or a time of day.
func (f Format) IsDate() bool { return f.Kind == FormatDate || f.Kind == FormatTime }

// Number renders v.
func (f Format) Number(v float64, date1904 bool) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "#NUM!"
	}
	switch f.Kind {
	case FormatGeneral, FormatText:
		return renderGeneral(v)
	case FormatDate, FormatTime:
		if f.elapsed {
			return f.renderElapsed(v)
		}
		if v < 0 {
			return renderGeneral(v)
		}
		return f.Time(sheetview.SerialToTime(v, date1904))
	}
	abs := math.Abs(v)
	if f.Kind == FormatPercent {
		abs *= 100
	}
	digits := strconv.FormatFloat(roundHalfUp(abs, f.Decimals), 'f', f.Decimals, 64)
	if f.Grouping {
		intPart, frac, _ := strings.Cut(digits, ".")
		digits = insertThousandsSep(intPart)
		if frac != "" {
			digits += "." + frac
		}
	}
	var buf strings.Builder
	if v < 0 && strings.Trim(digits, "0.,") != "" {
		buf.WriteByte('-')
	}
	switch f.Kind {
	case FormatPercent:
		buf.WriteString(digits)
		buf.WriteByte('%')
	case FormatCurrency:
		buf.WriteString(f.Symbol)
		buf.WriteString(digits)
	case FormatMultiplier:
		buf.WriteString(digits)
		buf.WriteByte('x')
	default:
		buf.WriteString(digits)
	}
	return buf.String()
}

// Time renders a date as mm/dd/yyyy, followed by the time of day when the
// format has one. Time-only formats render hh:mm[:ss] [AM/PM].
func (f Format) Time(t time.Time) string {
	if f.Kind == FormatTime {
		return f.clock(t)
	}
	d := fmt.Sprintf("%02d/%02d/%04d", int(t.Month()), t.Day(), t.Year())
	if f.hasTime {
		return d + " " + f.clock(t)
	}
	return d
}

func (f Format) clock(t time.Time) string {
	h := t.Hour()
	if f.ampm {
		h %= 12
		if h == 0 {
			h = 12
		}
	}
	s := fmt.Sprintf("%02d:%02d", h, t.Minute())
	if f.seconds {
		s += fmt.Sprintf(":%02d", t.Second())
	}
	if f.ampm {
		if t.Hour() < 12 {
			s += " AM"
		} else {
			s += " PM"
		}
	}
	return s
}

func (f Format) renderElapsed(serial float64) string {
	secs := int64(math.Round(math.Abs(serial) * 24 * 3600))
	var sign string
	if serial < 0 {
		sign = "-"
	}
	s := fmt.Sprintf("%s%d:%02d", sign, secs/3600, secs/60%60)
	if f.seconds {
		s += fmt.Sprintf(":%02d", secs%60)
	}
	return s
}

// renderGeneral formats v in the "General" style: integers without a
// decimal point, otherwise the shortest representation.
func renderGeneral(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	if a := math.Abs(v); a >= 1e-9 && a < 1e11 {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strconv.FormatFloat(v, 'G', 6, 64)
}

// insertThousandsSep inserts commas every three digits from the right.
func insertThousandsSep(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}
	var b strings.Builder
	b.Grow(n + n/3)
	rem := n % 3
	if rem == 0 {
		rem = 3
	}
	b.WriteString(s[:rem])
	for i := rem; i < n; i += 3 {
		b.WriteByte(',')
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// splitSections splits a format on the ';' outside quotes and brackets.
// The result has at least one element.
func splitSections(s string) []string {
	var sections []string
	var quoted, bracket, escaped bool
	start := 0
	for i, r := range s {
		switch {
		case escaped:
			escaped = false
		case quoted:
			quoted = r != '"'
		case bracket:
			bracket = r != ']'
		case r == '\\':
			escaped = true
		case r == '"':
			quoted = true
		case r == '[':
			bracket = true
		case r == ';':
			sections = append(sections, s[start:i])
			start = i + 1
		}
	}
	return append(sections, s[start:])
}

type sectionScan struct {
	symbol        string
	multiplier    bool
	pads, padLeft int
}

// scanSection finds the currency symbol, the multiplier suffix and the
// accounting padding markers of one section.
func scanSection(s string) sectionScan {
	var sc sectionScan
	var quoted, bracket, seenDigit bool
	var trailing strings.Builder
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		r := rs[i]
		switch {
		case quoted:
			if r == '"' {
				quoted = false
				continue
			}
		case bracket:
			if r == ']' {
				bracket = false
			}
			continue
		case r == '"':
			quoted = true
			continue
		case r == '[':
			bracket = true
			continue
		case r == '_' || r == '*':
			if r == '_' {
				sc.pads++
				if !seenDigit {
					sc.padLeft++
				}
			}
			i++
			continue
		case r == '\\':
			if i+1 < len(rs) {
				i++
				r = rs[i]
			}
		}
		switch {
		case r == '0' || r == '#' || r == '?':
			seenDigit = true
			trailing.Reset()
		case strings.ContainsRune(currencySymbols, r):
			if sc.symbol == "" {
				sc.symbol = string(r)
			}
		default:
			if seenDigit {
				trailing.WriteRune(r)
			}
		}
	}
	t := strings.TrimSpace(trailing.String())
	sc.multiplier = seenDigit && (t == "x" || t == "X")
	return sc
}

// currencyFromTag extracts the symbol from a "[$€-407]" tag.
func currencyFromTag(s string) string {
	s = strings.Trim(s, "[]")
	s = strings.TrimPrefix(s, "$")
	if i := strings.IndexByte(s, '-'); i >= 0 {
		s = s[:i]
	}
	return s
}

func firstRune(s string) string {
	for _, r := range s {
		return string(r)
	}
	return ""
}

// roundHalfUp rounds v >= 0 to d decimals, ties away from zero.
// The scaled value is taken at 15 significant digits first, so 1.005 rounds to 1.01.
func roundHalfUp(v float64, d int) float64 {
	p := math.Pow10(d)
	x := v * p
	if math.IsInf(x, 0) || x >= 1e15 {
		return v
	}
	x, _ = strconv.ParseFloat(strconv.FormatFloat(x, 'g', 15, 64), 64)
	return math.Round(x) / p
}
