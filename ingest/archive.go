// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package ingest

import (
	"bytes"
	"encoding/binary"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"

	"github.com/UNO-SOFT/sheetview"
)

var zipMagic = []byte("PK\x03\x04")

func isZip(data []byte) bool { return bytes.HasPrefix(data, zipMagic) }

// entry is one archive member, decompressed.
type entry struct {
	Name string
	Data []byte
}

type entries []entry

func (es entries) find(name string) *entry {
	for i := range es {
		if es[i].Name == name {
			return &es[i]
		}
	}
	return nil
}

// readEntries reads every member through the central directory.
// Unreadable members are returned as errors beside the readable ones.
func readEntries(data []byte, limit int64) (entries, []error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, []error{err}
	}
	var es entries
	var errs []error
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		b, err := readZipFile(f, limit)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.Name, err))
			continue
		}
		es = append(es, entry{Name: f.Name, Data: b})
	}
	return es, errs
}

func readZipFile(f *zip.File, limit int64) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err == nil && int64(len(b)) > limit {
		err = fmt.Errorf("larger than %d bytes", limit)
	}
	return b, err
}

// scanEntries walks the local file headers, ignoring the central directory.
func scanEntries(data []byte, limit int64) (entries, []error) {
	var es entries
	var errs []error
	for off := 0; off < len(data); {
		i := bytes.Index(data[off:], zipMagic)
		if i < 0 {
			break
		}
		p := off + i
		if p+30 > len(data) {
			break
		}
		h := data[p:]
		flags := binary.LittleEndian.Uint16(h[6:])
		method := binary.LittleEndian.Uint16(h[8:])
		csize := int(binary.LittleEndian.Uint32(h[18:]))
		nameLen := int(binary.LittleEndian.Uint16(h[26:]))
		extraLen := int(binary.LittleEndian.Uint16(h[28:]))
		start := p + 30 + nameLen + extraLen
		if start > len(data) {
			break
		}
		name := string(h[30 : 30+nameLen])
		next := p + 4
		var body []byte
		var err error
		sized := flags&0x8 == 0 && csize > 0 && start+csize <= len(data)
		switch method {
		case zip.Store:
			if !sized {
				err = errors.New("stored entry without size")
				break
			}
			body = data[start : start+csize]
		case zip.Deflate:
			fr := flate.NewReader(bytes.NewReader(data[start:]))
			body, err = io.ReadAll(io.LimitReader(fr, limit+1))
			fr.Close()
			if err == nil && int64(len(body)) > limit {
				err = fmt.Errorf("larger than %d bytes", limit)
			}
		default:
			err = fmt.Errorf("compression method %d", method)
		}
		if sized {
			next = start + csize
		}
		off = next
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		if !strings.HasSuffix(name, "/") {
			es = append(es, entry{Name: name, Data: body})
		}
	}
	if len(es) == 0 && len(errs) == 0 {
		errs = append(errs, errors.New("no zip entries found"))
	}
	return es, errs
}

// normalize cleans the member names and keeps the first of duplicates.
func (es entries) normalize() entries {
	seen := make(map[string]struct{}, len(es))
	out := es[:0]
	for _, e := range es {
		name := strings.TrimLeft(strings.ReplaceAll(e.Name, `\`, "/"), "/")
		name = path.Clean(name)
		if name == "." || name == "" {
			continue
		}
		// Part names are case-insensitive.
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, entry{Name: name, Data: e.Data})
	}
	return out
}

var (
	rxVBAOverride = regexp.MustCompile(`<Override[^>]+PartName="/xl/vbaProject(Signature)?\.bin"[^>]*/>`)
	rxVBADefault  = regexp.MustCompile(`<Default[^>]+ContentType="application/vnd\.ms-office\.vbaProject"[^>]*/>`)
	rxVBARel      = regexp.MustCompile(`<Relationship[^>]+Target="[^"]*vbaProject\.bin"[^>]*/>`)
)

const (
	macroMainType = "application/vnd.ms-excel.sheet.macroEnabled.main+xml"
	sheetMainType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet.main+xml"
)

// stripMacros drops the embedded VBA project and every reference to it.
func (es entries) stripMacros() entries {
	out := es[:0]
	for _, e := range es {
		switch {
		case strings.HasPrefix(e.Name, "xl/vbaProject"):
			continue
		case e.Name == "[Content_Types].xml":
			b := rxVBAOverride.ReplaceAll(e.Data, nil)
			b = rxVBADefault.ReplaceAll(b, nil)
			e.Data = bytes.ReplaceAll(b, []byte(macroMainType), []byte(sheetMainType))
		case e.Name == "xl/_rels/workbook.xml.rels":
			e.Data = rxVBARel.ReplaceAll(e.Data, nil)
		}
		out = append(out, e)
	}
	return out
}

func (es entries) zip() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range es {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: e.Name, Method: zip.Deflate})
		if err != nil {
			return nil, err
		}
		if _, err = w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// media returns the embedded pictures under xl/media.
func (es entries) media() []sheetview.Image {
	var imgs []sheetview.Image
	for _, e := range es {
		if !strings.HasPrefix(e.Name, "xl/media/") {
			continue
		}
		imgs = append(imgs, sheetview.Image{
			Name:      path.Base(e.Name),
			Extension: strings.ToLower(path.Ext(e.Name)),
			Data:      e.Data,
		})
	}
	return imgs
}

type xlsxWorkbook struct {
	WorkbookPr struct {
		Date1904 bool `xml:"date1904,attr"`
	} `xml:"workbookPr"`
	Sheets []struct {
		Name  string `xml:"name,attr"`
		State string `xml:"state,attr"`
	} `xml:"sheets>sheet"`
}

// workbookInfo holds what excelize does not report: very hidden sheets
// and the date system.
type workbookInfo struct {
	States   map[string]sheetview.SheetState
	Date1904 bool
}

func (es entries) workbookInfo() (workbookInfo, error) {
	info := workbookInfo{States: make(map[string]sheetview.SheetState)}
	e := es.find("xl/workbook.xml")
	if e == nil {
		for i := range es {
			if strings.HasSuffix(es[i].Name, "/workbook.xml") {
				e = &es[i]
				break
			}
		}
	}
	if e == nil {
		return info, errors.New("no workbook.xml")
	}
	var wb xlsxWorkbook
	if err := xml.Unmarshal(e.Data, &wb); err != nil {
		return info, fmt.Errorf("%s: %w", e.Name, err)
	}
	info.Date1904 = wb.WorkbookPr.Date1904
	for _, s := range wb.Sheets {
		info.States[s.Name] = sheetState(s.State)
	}
	return info, nil
}

func sheetState(s string) sheetview.SheetState {
	switch s {
	case "hidden":
		return sheetview.SheetHidden
	case "veryHidden":
		return sheetview.SheetVeryHidden
	}
	return sheetview.SheetVisible
}
