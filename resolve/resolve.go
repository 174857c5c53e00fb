// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package resolve turns raw cells into renderer-agnostic descriptors:
// the exact display string, a semantic type and a style with every color
// resolved to "#RRGGBB".
package resolve

import (
	"log/slog"
	"sync"

	"github.com/UNO-SOFT/sheetview"
)

// Type is the semantic type of a resolved cell.
type Type string

const (
	TypeText    Type = "text"
	TypeNumeric Type = "numeric"
	TypeDate    Type = "date"
	TypeError   Type = "error"
)

// Cell is the resolved form of one cell.
type Cell struct {
	Display string `json:"display"`
	Type    Type   `json:"type"`
	Style   Style  `json:"style"`
}

// Options configure a Resolver. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Date1904 selects the 1904 date system for numeric date cells.
	Date1904 bool
}

// Resolver resolves the cells of one workbook.
//
// It keeps a cache of formula-reference lookups keyed by the formula
// text; make a new Resolver (or call ClearCache) when the workbook changes.
// A Resolver is safe for concurrent use.
type Resolver struct {
	wb       *sheetview.Workbook
	sheet    string
	date1904 bool
	logger   *slog.Logger
	cache    *refCache
}

type refCache struct {
	mu sync.Mutex
	m  map[string]refResult
}

type refResult struct {
	v  sheetview.Value
	ok bool
}

// New returns a Resolver for wb, which may be nil.
func New(wb *sheetview.Workbook, opts Options) *Resolver {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if wb != nil && wb.Properties.Date1904 {
		opts.Date1904 = true
	}
	return &Resolver{
		wb: wb, date1904: opts.Date1904, logger: opts.Logger,
		cache: &refCache{m: make(map[string]refResult)},
	}
}

// ForSheet returns a Resolver sharing r's cache that looks up references
// without a sheet prefix in the named sheet.
func (r *Resolver) ForSheet(name string) *Resolver {
	r2 := *r
	r2.sheet = name
	return &r2
}

// ClearCache drops the formula-reference cache.
func (r *Resolver) ClearCache() {
	r.cache.mu.Lock()
	clear(r.cache.m)
	r.cache.mu.Unlock()
}

// CacheLen returns the number of cached formula lookups.
func (r *Resolver) CacheLen() int {
	r.cache.mu.Lock()
	defer r.cache.mu.Unlock()
	return len(r.cache.m)
}

// Resolve resolves c. A nil cell resolves to an empty text cell.
func (r *Resolver) Resolve(c *sheetview.Cell) Cell {
	if c == nil {
		return Cell{Type: TypeText}
	}
	var numFmt string
	if c.Style != nil {
		numFmt = c.Style.NumFmt
	}
	display, typ := r.Value(c.Value, numFmt)
	st := ResolveStyle(c.Style)
	if st.HAlign == "" && isNumeric(c.Value, display, numFmt) {
		st.HAlign = "right"
	}
	return Cell{Display: display, Type: typ, Style: st}
}

// Resolve resolves c without a workbook: formula references never resolve.
func Resolve(c *sheetview.Cell) Cell { return New(nil, Options{}).Resolve(c) }
