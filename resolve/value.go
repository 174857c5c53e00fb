// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package resolve

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/xuri/efp"

	"github.com/UNO-SOFT/sheetview"
)

// Value returns the display string and semantic type of v under the
// number format. The first matching variant wins:
// empty, date, formula, rich text, hyperlink, then primitives.
func (r *Resolver) Value(v sheetview.Value, numFmt string) (string, Type) {
	switch v.Kind {
	case sheetview.KindEmpty:
		return "", TypeText

	case sheetview.KindDate:
		if !v.Time.IsZero() {
			return r.date(v, numFmt), TypeDate
		}
		if ref, ok := r.lookup(v.Formula); ok {
			return r.Value(ref, numFmt)
		}
		return "", TypeText

	case sheetview.KindFormula:
		if res := v.Result; res != nil && res.Kind != sheetview.KindEmpty {
			switch res.Kind {
			case sheetview.KindError:
				return errorCode(res.Str), TypeError
			case sheetview.KindString, sheetview.KindNumber, sheetview.KindBool, sheetview.KindDate:
				return r.Value(*res, numFmt)
			}
		}
		if ref, ok := r.lookup(v.Formula); ok {
			return r.Value(ref, numFmt)
		}
		return "", TypeText

	case sheetview.KindRichText:
		return v.Text(), TypeText

	case sheetview.KindHyperlink:
		if v.Link == nil {
			return "", TypeText
		}
		return v.Link.Text, TypeText

	case sheetview.KindString:
		return v.Str, TypeText
	case sheetview.KindNumber:
		f := ParseFormat(numFmt)
		if f.IsDate() {
			return f.Number(v.Num, r.date1904), TypeDate
		}
		return f.Number(v.Num, r.date1904), TypeNumeric
	case sheetview.KindBool:
		if v.Bool {
			return "TRUE", TypeText
		}
		return "FALSE", TypeText
	case sheetview.KindError:
		return errorCode(v.Str), TypeError
	}
	return r.unknown(v.Raw), TypeText
}

func (r *Resolver) date(v sheetview.Value, numFmt string) string {
	f := ParseFormat(numFmt)
	if !f.IsDate() {
		f = Format{Kind: FormatDate}
	}
	return f.Time(v.Time)
}

// unknown extracts a display string from an unrecognized value: the
// "text", "value" or "hyperlink.text" field of a map, the text of a
// Stringer, or the printed form of a scalar. Anything else is "".
func (r *Resolver) unknown(raw any) string {
	switch x := raw.(type) {
	case nil:
		return ""
	case string:
		return x
	case map[string]any:
		for _, k := range []string{"text", "value"} {
			if s, ok := x[k]; ok && s != nil {
				return r.unknown(s)
			}
		}
		if h, ok := x["hyperlink"].(map[string]any); ok {
			return r.unknown(h["text"])
		}
		return ""
	case fmt.Stringer:
		return x.String()
	}
	switch reflect.ValueOf(raw).Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return fmt.Sprint(raw)
	}
	r.logger.Debug("unresolvable value", "type", fmt.Sprintf("%T", raw))
	return ""
}

func errorCode(s string) string {
	if s == "" {
		return "#ERROR!"
	}
	if s[0] != '#' {
		return "#" + s
	}
	return s
}

// lookup resolves a formula that is a single cell reference, like
// "Sheet1!$B$2", to the primitive value stored there. Further formula
// chains are not followed. Both hits and misses are cached.
func (r *Resolver) lookup(formula string) (sheetview.Value, bool) {
	formula = strings.TrimPrefix(strings.TrimSpace(formula), "=")
	if formula == "" || r.wb == nil {
		return sheetview.Value{}, false
	}
	key := formula
	if !strings.ContainsRune(formula, '!') {
		key = r.sheet + "!" + formula
	}
	r.cache.mu.Lock()
	res, ok := r.cache.m[key]
	r.cache.mu.Unlock()
	if ok {
		return res.v, res.ok
	}
	res.v, res.ok = r.lookupRef(formula)
	r.cache.mu.Lock()
	r.cache.m[key] = res
	r.cache.mu.Unlock()
	return res.v, res.ok
}

func (r *Resolver) lookupRef(formula string) (sheetview.Value, bool) {
	var ref string
	ps := efp.ExcelParser()
	for _, tok := range ps.Parse(formula) {
		if tok.TType == efp.TokenTypeWhitespace {
			continue
		}
		if tok.TType == efp.TokenTypeOperand && tok.TSubType == efp.TokenSubTypeRange {
			if ref != "" {
				return sheetview.Value{}, false
			}
			ref = tok.TValue
			continue
		}
		return sheetview.Value{}, false
	}
	if ref == "" || strings.ContainsRune(ref, ':') {
		return sheetview.Value{}, false
	}
	sheet, pos, err := sheetview.ParseRef(ref)
	if err != nil {
		r.logger.Debug("formula reference", "formula", formula, "error", err)
		return sheetview.Value{}, false
	}
	if sheet == "" {
		sheet = r.sheet
	}
	ws := r.wb.SheetByName(sheet)
	if ws == nil {
		return sheetview.Value{}, false
	}
	return primitive(ws.Value(pos.Row, pos.Col))
}

// primitive extracts a displayable value without following formulas.
func primitive(v sheetview.Value) (sheetview.Value, bool) {
	switch v.Kind {
	case sheetview.KindString, sheetview.KindNumber, sheetview.KindBool, sheetview.KindError:
		return v, true
	case sheetview.KindDate:
		return v, !v.Time.IsZero()
	case sheetview.KindRichText:
		return sheetview.StringValue(v.Text()), true
	case sheetview.KindHyperlink:
		if v.Link != nil {
			return sheetview.StringValue(v.Link.Text), true
		}
	case sheetview.KindFormula:
		if v.Result != nil && v.Result.Kind != sheetview.KindFormula && v.Result.Kind != sheetview.KindEmpty {
			return primitive(*v.Result)
		}
	}
	return sheetview.Value{}, false
}
