// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package sheetview

import (
	"strconv"
	"strings"
	"time"
)

// Kind is the variant tag of a Value.
type Kind uint8

const (
	KindEmpty Kind = iota
	KindString
	KindNumber
	KindBool
	KindDate
	KindFormula
	KindRichText
	KindError
	KindHyperlink
	KindUnknown
)

var kindNames = [...]string{
	KindEmpty:     "empty",
	KindString:    "string",
	KindNumber:    "number",
	KindBool:      "bool",
	KindDate:      "date",
	KindFormula:   "formula",
	KindRichText:  "richtext",
	KindError:     "error",
	KindHyperlink: "hyperlink",
	KindUnknown:   "unknown",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "Kind(" + strconv.Itoa(int(k)) + ")"
}

func (k Kind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *Kind) UnmarshalText(p []byte) error {
	for i, s := range kindNames {
		if s == string(p) {
			*k = Kind(i)
			return nil
		}
	}
	*k = KindUnknown
	return nil
}

// Run is one rich-text run. Only the text is kept.
type Run struct {
	Text string `json:"text"`
}

// Hyperlink is a cell link with its shown text.
type Hyperlink struct {
	Text   string `json:"text"`
	Target string `json:"target,omitempty"`
}

// Value is the tagged union of everything a cell can hold.
//
// Only the fields belonging to Kind are meaningful:
//
//	KindString    Str
//	KindNumber    Num
//	KindBool      Bool
//	KindDate      Time; the zero Time is the invalid-date sentinel, Formula may name its source
//	KindFormula   Formula, Result (nil when no cached result was stored)
//	KindRichText  Runs
//	KindError     Str (the error code, like "#DIV/0!")
//	KindHyperlink Link
//	KindUnknown   Raw
type Value struct {
	Kind    Kind       `json:"kind"`
	Str     string     `json:"str,omitempty"`
	Num     float64    `json:"num,omitempty"`
	Bool    bool       `json:"bool,omitempty"`
	Time    time.Time  `json:"time,omitzero"`
	Formula string     `json:"formula,omitempty"`
	Result  *Value     `json:"result,omitempty"`
	Runs    []Run      `json:"runs,omitempty"`
	Link    *Hyperlink `json:"link,omitempty"`
	Raw     any        `json:"-"`
}

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }
func NumberValue(f float64) Value { return Value{Kind: KindNumber, Num: f} }
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }
func DateValue(t time.Time) Value { return Value{Kind: KindDate, Time: t} }
func ErrorValue(code string) Value { return Value{Kind: KindError, Str: code} }
func UnknownValue(v any) Value { return Value{Kind: KindUnknown, Raw: v} }

// InvalidDate is a date that failed to parse. The formula, if any, is
// used to look the value up elsewhere in the workbook.
func InvalidDate(formula string) Value { return Value{Kind: KindDate, Formula: formula} }

// FormulaValue returns a formula with its cached result; result may be nil.
func FormulaValue(formula string, result *Value) Value {
	return Value{Kind: KindFormula, Formula: formula, Result: result}
}

func RichTextValue(runs ...Run) Value { return Value{Kind: KindRichText, Runs: runs} }

func HyperlinkValue(text, target string) Value {
	return Value{Kind: KindHyperlink, Link: &Hyperlink{Text: text, Target: target}}
}

// IsEmpty reports whether v shows nothing by itself.
// A formula is never empty, even without a cached result.
func (v Value) IsEmpty() bool {
	switch v.Kind {
	case KindEmpty:
		return true
	case KindString:
		return v.Str == ""
	case KindRichText:
		for _, r := range v.Runs {
			if r.Text != "" {
				return false
			}
		}
		return true
	case KindHyperlink:
		return v.Link == nil || v.Link.Text == ""
	case KindUnknown:
		return v.Raw == nil
	}
	return false
}

// Text concatenates the rich-text runs.
func (v Value) Text() string {
	if len(v.Runs) == 1 {
		return v.Runs[0].Text
	}
	var buf strings.Builder
	for _, r := range v.Runs {
		buf.WriteString(r.Text)
	}
	return buf.String()
}

// Primitive reports whether v is a string, number or bool.
func (v Value) Primitive() bool {
	return v.Kind == KindString || v.Kind == KindNumber || v.Kind == KindBool
}
