// Copyright 2020, 2023, 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package xlsxfixture builds real .xlsx workbooks in memory for tests.
package xlsxfixture

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/xuri/excelize/v2"
)

// Book collects everything in memory; Bytes serializes it.
//
// Sheets may be filled concurrently.
type Book struct {
	xl     *excelize.File
	styles map[string]int
	sheets []string
	mu     sync.Mutex
}

type Sheet struct {
	book *Book
	Name string
	row  int
	mu   sync.Mutex
}

// Formula is a cell formula, written without a cached result.
type Formula string

// Link is a hyperlinked text cell.
type Link struct{ Text, Target string }

// Rich is a rich-text cell.
type Rich []string

func New() *Book { return &Book{xl: excelize.NewFile()} }

// Bytes returns the serialized workbook.
func (b *Book) Bytes() ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	buf, err := b.xl.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return bytes.Clone(buf.Bytes()), nil
}

// File returns the underlying excelize file.
func (b *Book) File() *excelize.File { return b.xl }

// NewSheet adds a sheet. The first call renames the default sheet.
func (b *Book) NewSheet(name string) (*Sheet, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sheets = append(b.sheets, name)
	if len(b.sheets) == 1 {
		if err := b.xl.SetSheetName("Sheet1", name); err != nil {
			return nil, err
		}
	} else if _, err := b.xl.NewSheet(name); err != nil {
		return nil, err
	}
	return &Sheet{book: b, Name: name}, nil
}

// Style returns the id of st, registering it once per distinct key.
func (b *Book) Style(key string, st *excelize.Style) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.styles[key]; ok {
		return s, nil
	}
	s, err := b.xl.NewStyle(st)
	if err != nil {
		return 0, err
	}
	if b.styles == nil {
		b.styles = make(map[string]int)
	}
	b.styles[key] = s
	return s, nil
}

// AppendRow writes values into the next row, starting at column A.
// nil values leave the cell empty.
func (s *Sheet) AppendRow(values ...any) error {
	s.mu.Lock()
	s.row++
	row := s.row
	s.mu.Unlock()
	for i, v := range values {
		if v == nil {
			continue
		}
		axis, err := excelize.CoordinatesToCellName(i+1, row)
		if err != nil {
			return fmt.Errorf("%d/%d: %w", i, row, err)
		}
		if err = s.Set(axis, v); err != nil {
			return err
		}
	}
	return nil
}

// Set writes one cell.
func (s *Sheet) Set(axis string, v any) error {
	xl := s.book.xl
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	var err error
	switch x := v.(type) {
	case Formula:
		err = xl.SetCellFormula(s.Name, axis, string(x))
	case Link:
		if err = xl.SetCellStr(s.Name, axis, x.Text); err == nil {
			err = xl.SetCellHyperLink(s.Name, axis, x.Target, "External")
		}
	case Rich:
		runs := make([]excelize.RichTextRun, len(x))
		for i, t := range x {
			runs[i] = excelize.RichTextRun{Text: t, Font: &excelize.Font{Bold: i%2 == 1}}
		}
		err = xl.SetCellRichText(s.Name, axis, runs)
	case time.Time:
		err = xl.SetCellValue(s.Name, axis, x)
	case string:
		err = xl.SetCellStr(s.Name, axis, x)
	case fmt.Stringer:
		err = xl.SetCellStr(s.Name, axis, x.String())
	default:
		err = xl.SetCellValue(s.Name, axis, v)
	}
	if err != nil {
		return fmt.Errorf("%s[%s]: %w", s.Name, axis, err)
	}
	return nil
}

// SetStyle applies st to the range; key identifies st for reuse.
func (s *Sheet) SetStyle(from, to, key string, st *excelize.Style) error {
	id, err := s.book.Style(key, st)
	if err != nil {
		return err
	}
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	return s.book.xl.SetCellStyle(s.Name, from, to, id)
}

func (s *Sheet) Merge(from, to string) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	return s.book.xl.MergeCell(s.Name, from, to)
}

// Freeze pins the first cols columns and rows rows.
func (s *Sheet) Freeze(cols, rows int) error {
	topLeft, err := excelize.CoordinatesToCellName(cols+1, rows+1)
	if err != nil {
		return err
	}
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	return s.book.xl.SetPanes(s.Name, &excelize.Panes{
		Freeze: true, XSplit: cols, YSplit: rows,
		TopLeftCell: topLeft, ActivePane: "bottomRight",
	})
}

func (s *Sheet) SetColWidth(col string, width float64) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	return s.book.xl.SetColWidth(s.Name, col, col, width)
}

func (s *Sheet) HideCol(col string) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	return s.book.xl.SetColVisible(s.Name, col, false)
}

func (s *Sheet) SetRowHeight(row int, height float64) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	return s.book.xl.SetRowHeight(s.Name, row, height)
}

func (s *Sheet) HideRow(row int) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	return s.book.xl.SetRowVisible(s.Name, row, false)
}

// Hide hides the sheet tab; veryHidden hides it from the UI too.
func (s *Sheet) Hide(veryHidden bool) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	return s.book.xl.SetSheetVisible(s.Name, false, veryHidden)
}

func (s *Sheet) HideGridLines() error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	return s.book.xl.SetSheetView(s.Name, 0, &excelize.ViewOptions{ShowGridLines: new(bool)})
}

// AddPicture anchors an image (ext like ".png") at the cell.
func (s *Sheet) AddPicture(axis, ext string, data []byte) error {
	s.book.mu.Lock()
	defer s.book.mu.Unlock()
	return s.book.xl.AddPictureFromBytes(s.Name, axis, &excelize.Picture{
		Extension: ext, File: data, Format: &excelize.GraphicOptions{},
	})
}
