// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package worker

import (
	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/grid"
)

// MessageType names a request or a response.
type MessageType string

// Requests.
const (
	LoadWorkbook  MessageType = "LOAD_WORKBOOK"
	ProcessSheet  MessageType = "PROCESS_SHEET"
	GetCellRange  MessageType = "GET_CELL_RANGE"
	SearchInSheet MessageType = "SEARCH_IN_SHEET"
	GetMemoryInfo MessageType = "GET_MEMORY_INFO"
	ClearCache    MessageType = "CLEAR_CACHE"
)

// Responses and advisories.
const (
	WorkbookLoaded   MessageType = "WORKBOOK_LOADED"
	SheetProcessed   MessageType = "SHEET_PROCESSED"
	CellRange        MessageType = "CELL_RANGE"
	SearchResults    MessageType = "SEARCH_RESULTS"
	MemoryUpdate     MessageType = "MEMORY_UPDATE"
	RecycleSuggested MessageType = "RECYCLE_SUGGESTED"
	CacheCleared     MessageType = "CACHE_CLEARED"
	Error            MessageType = "ERROR"
)

// Span is an inclusive, 1-based row or column interval.
type Span struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Request is a message to the worker. Which fields are used depends on Type.
type Request struct {
	ID   string      `json:"id"`
	Type MessageType `json:"type"`

	// Data is the file of LOAD_WORKBOOK.
	Data []byte `json:"data,omitempty"`

	SheetIndex int   `json:"sheetIndex"`
	Rows       *Span `json:"rows,omitempty"`
	Cols       *Span `json:"cols,omitempty"`

	Query         string `json:"query,omitempty"`
	CaseSensitive bool   `json:"caseSensitive,omitempty"`
	ExactMatch    bool   `json:"exactMatch,omitempty"`
}

// Response is a message from the worker.
// Advisories (MEMORY_UPDATE sent by the timer, RECYCLE_SUGGESTED) have an empty ID.
type Response struct {
	ID    string      `json:"id"`
	Type  MessageType `json:"type"`
	Error string      `json:"error,omitempty"`

	Workbook *WorkbookInfo `json:"workbook,omitempty"`
	Sheet    *grid.Sheet   `json:"sheet,omitempty"`
	Cells    []grid.Cell   `json:"cells,omitempty"`
	Matches  []Match       `json:"matches,omitempty"`
	Memory   *MemoryInfo   `json:"memory,omitempty"`
}

// SheetInfo describes one worksheet of a loaded workbook.
type SheetInfo struct {
	Index    int                  `json:"index"`
	Name     string               `json:"name"`
	State    sheetview.SheetState `json:"state"`
	IsHidden bool                 `json:"isHidden"`
	RowCount int                  `json:"rowCount"`
	ColCount int                  `json:"colCount"`
}

// WorkbookInfo is the payload of WORKBOOK_LOADED.
type WorkbookInfo struct {
	Worksheets  []SheetInfo            `json:"worksheets"`
	Properties  sheetview.Properties   `json:"properties"`
	Diagnostics []sheetview.Diagnostic `json:"diagnostics,omitempty"`
}

// Match is one search hit.
type Match struct {
	Row   int    `json:"row"`
	Col   int    `json:"col"`
	Value string `json:"value"`
}

// MemoryInfo is the payload of MEMORY_UPDATE and RECYCLE_SUGGESTED.
type MemoryInfo struct {
	UsedMB      float64 `json:"usedMB"`
	LimitMB     float64 `json:"limitMB"`
	PercentUsed float64 `json:"percentUsed"`
	Tasks       int     `json:"tasks"`
}
