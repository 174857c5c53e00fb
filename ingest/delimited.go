// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/UNO-SOFT/sheetview"
)

// EncName is the default charset of delimited text, taken from LANG.
var EncName = "utf-8"

func init() {
	EncName = os.Getenv("LANG")
	if i := strings.IndexByte(EncName, '.'); i >= 0 {
		EncName = strings.ToLower(EncName[i+1:])
	} else {
		EncName = ""
	}
	if EncName == "" {
		EncName = "utf-8"
	}
}

// GetEncoding returns the named encoding; nil means UTF-8.
func GetEncoding(encName string) (encoding.Encoding, error) {
	encName = strings.ToLower(encName)
	if encName == "" || encName == "utf-8" || encName == "utf8" {
		return nil, nil
	}
	enc, err := htmlindex.Get(encName)
	if err != nil {
		err = fmt.Errorf("%q: %w", encName, err)
	}
	return enc, err
}

// OpenDelimited returns a CSV reader over r, decoding it from encName and
// using the first separator-looking rune of the input as the separator.
func OpenDelimited(r io.Reader, encName string) (*csv.Reader, error) {
	enc, err := GetEncoding(encName)
	if err != nil {
		return nil, err
	}
	if enc != nil {
		r = enc.NewDecoder().Reader(r)
	}
	br := bufio.NewReaderSize(r, 1<<20)
	b, err := br.Peek(1024)
	if err != nil && len(b) == 0 {
		return nil, err
	}
	cr := csv.NewReader(br)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.Comma = sniffSeparator(b)
	return cr, nil
}

func sniffSeparator(b []byte) rune {
	for len(b) != 0 {
		r, size := utf8.DecodeRune(b)
		b = b[size:]
		switch {
		case r == '"' || r == '_' || r == ' ' || r == '.' || r == '-' || r == '\'' ||
			unicode.IsLetter(r) || unicode.IsNumber(r):
			continue
		case r == '\r' || r == '\n' || r == utf8.RuneError:
			return ','
		}
		return r
	}
	return ','
}

func openDelimited(ctx context.Context, data []byte, opts Options) (*sheetview.Workbook, error) {
	if isZip(data) || bytes.IndexByte(data, 0) >= 0 {
		return nil, fmt.Errorf("binary input: %w", sheetview.ErrUnsupportedFormat)
	}
	encName := opts.Encoding
	if encName == "" {
		encName = EncName
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	cr, err := OpenDelimited(bytes.NewReader(data), encName)
	if err != nil {
		return nil, err
	}
	wb := &sheetview.Workbook{}
	ws := wb.AddSheet("Sheet1", sheetview.SheetVisible)
	for row := 1; ; row++ {
		if row%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%s[%d]: %w", ws.Name, row, err)
		}
		for i, s := range rec {
			if s == "" {
				continue
			}
			if !utf8.ValidString(s) {
				return nil, fmt.Errorf("%s[%s]: not %s text: %w", ws.Name,
					sheetview.CellRef{Row: row, Col: i + 1}, encName, sheetview.ErrUnsupportedFormat)
			}
			v := sheetview.StringValue(s)
			if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
				v = sheetview.NumberValue(f)
			}
			ws.SetCell(&sheetview.Cell{Row: row, Col: i + 1, Value: v})
		}
	}
	if ws.Len() == 0 {
		return nil, fmt.Errorf("no cells: %w", sheetview.ErrUnsupportedFormat)
	}
	return wb, nil
}
