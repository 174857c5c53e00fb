// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Package worker serves a loaded workbook through request/response messages
// from its own goroutines, so that parsing and materializing never block
// the renderer.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/ingest"
)

// Config of a Worker. Zero fields get the defaults noted.
type Config struct {
	Logger *slog.Logger
	Ingest ingest.Options
	Grid   grid.Options

	// MemoryInterval between MEMORY_UPDATE advisories, 5s by default.
	// Negative disables them.
	MemoryInterval time.Duration
	// RecycleMB is the memory use that triggers RECYCLE_SUGGESTED, 512 by default.
	RecycleMB float64
	// MaxTasks is the served request count that triggers RECYCLE_SUGGESTED, 100 by default.
	MaxTasks int
	// LimitMB is reported when GOMEMLIMIT is not set, 2048 by default.
	LimitMB float64
	// Concurrency bounds the requests handled at once, GOMAXPROCS by default.
	Concurrency int64
	// MemUsage returns the bytes in use, HeapInUse by default.
	MemUsage func() uint64
}

func (cfg *Config) setDefaults() {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MemoryInterval == 0 {
		cfg.MemoryInterval = 5 * time.Second
	}
	if cfg.RecycleMB <= 0 {
		cfg.RecycleMB = 512
	}
	if cfg.MaxTasks <= 0 {
		cfg.MaxTasks = 100
	}
	if cfg.LimitMB <= 0 {
		cfg.LimitMB = 2048
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = int64(runtime.GOMAXPROCS(0))
	}
	if cfg.MemUsage == nil {
		cfg.MemUsage = HeapInUse
	}
}

// Worker answers Requests on Responses.
//
// Every request gets exactly one response carrying its ID.
// There is no ordering between the responses of different requests.
type Worker struct {
	cfg       Config
	logger    *slog.Logger
	session   *Session
	requests  chan Request
	responses chan Response
	sem       *semaphore.Weighted
	recycle   atomic.Bool
}

// New returns a Worker; call Run to start serving.
func New(cfg Config) *Worker {
	cfg.setDefaults()
	return &Worker{
		cfg:       cfg,
		logger:    cfg.Logger,
		session:   NewSession(cfg.Logger, cfg.Ingest, cfg.Grid),
		requests:  make(chan Request),
		responses: make(chan Response, 16),
		sem:       semaphore.NewWeighted(cfg.Concurrency),
	}
}

// Requests is where requests are sent. Closing it stops Run.
func (w *Worker) Requests() chan<- Request { return w.requests }

// Responses delivers the responses and the advisories.
// It is closed when Run returns.
func (w *Worker) Responses() <-chan Response { return w.responses }

// Session returns the session holding the workbook.
func (w *Worker) Session() *Session { return w.session }

// Run serves requests until ctx is done or Requests is closed.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	defer func() {
		wg.Wait()
		close(w.responses)
	}()
	var tick <-chan time.Time
	if w.cfg.MemoryInterval > 0 {
		ticker := time.NewTicker(w.cfg.MemoryInterval)
		defer ticker.Stop()
		tick = ticker.C
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-tick:
			mi := w.memoryInfo()
			w.send(ctx, Response{Type: MemoryUpdate, Memory: &mi})
			w.checkPressure(ctx, mi)

		case req, ok := <-w.requests:
			if !ok {
				return nil
			}
			if err := w.sem.Acquire(ctx, 1); err != nil {
				return err
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer w.sem.Release(1)
				w.send(ctx, w.Handle(ctx, req))
				if req.Type != ClearCache {
					w.checkPressure(ctx, w.memoryInfo())
				}
			}()
		}
	}
}

// send delivers resp unless the worker is stopping.
func (w *Worker) send(ctx context.Context, resp Response) {
	select {
	case w.responses <- resp:
	case <-ctx.Done():
		w.logger.Debug("response dropped", "id", resp.ID, "type", resp.Type)
	}
}

// Handle serves one request synchronously.
// Failures, panics included, become an ERROR response.
func (w *Worker) Handle(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	logger := w.logger.With("id", req.ID, "type", req.Type)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("panic", "error", r, "stack", string(debug.Stack()))
			resp = errorResponse(req, fmt.Errorf("panic: %v", r))
		}
		if resp.Type == Error {
			logger.Debug("failed", "error", resp.Error, "dur", time.Since(start).String())
		} else {
			logger.Debug("served", "response", resp.Type, "dur", time.Since(start).String())
		}
	}()

	resp = Response{ID: req.ID}
	var err error
	switch req.Type {
	case LoadWorkbook:
		resp.Type = WorkbookLoaded
		resp.Workbook, err = w.session.Load(ctx, req.Data)

	case ProcessSheet:
		resp.Type = SheetProcessed
		resp.Sheet, err = w.session.Process(req.SheetIndex, req.Rows, req.Cols)

	case GetCellRange:
		resp.Type = CellRange
		if req.Rows == nil || req.Cols == nil {
			err = errors.New("rows and cols are required")
			break
		}
		resp.Cells, err = w.session.CellRange(req.SheetIndex, *req.Rows, *req.Cols)

	case SearchInSheet:
		resp.Type = SearchResults
		resp.Matches, err = w.session.Search(req.SheetIndex, req.Query, req.CaseSensitive, req.ExactMatch)

	case GetMemoryInfo:
		mi := w.memoryInfo()
		resp.Type, resp.Memory = MemoryUpdate, &mi

	case ClearCache:
		w.session.Clear()
		w.recycle.Store(false)
		debug.FreeOSMemory()
		resp.Type = CacheCleared

	default:
		err = fmt.Errorf("%q: %w", req.Type, sheetview.ErrUnknownMessage)
	}
	if req.Type != ClearCache {
		w.session.count()
	}
	if err != nil {
		return errorResponse(req, err)
	}
	return resp
}

func errorResponse(req Request, err error) Response {
	return Response{ID: req.ID, Type: Error, Error: fmt.Sprintf("%s: %v", req.Type, err)}
}
