// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gdamore/tcell/v2"

	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/render"
	"github.com/UNO-SOFT/sheetview/worker"
)

// advisory is posted to the screen to wake the event loop.
type advisory struct {
	gen  int
	resp worker.Response
}

// viewer connects a worker to a terminal.
type viewer struct {
	screen tcell.Screen
	data   []byte
	logger *slog.Logger
	cfg    worker.Config
	term   *render.Terminal

	// gen counts the started workers; advisories of stopped ones are ignored.
	gen    int
	client *worker.Client
	stop   context.CancelFunc
	errc   chan error

	sheets  []worker.SheetInfo
	current int
}

func newViewer(screen tcell.Screen, data []byte, name string, logger *slog.Logger, cfg worker.Config, maxRows int) *viewer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &viewer{
		screen: screen, data: data, logger: logger, cfg: cfg,
		term: render.NewTerminal(screen, render.TermOptions{Logger: logger, MaxRows: maxRows, Title: name}),
	}
}

func (v *viewer) start() {
	v.gen++
	ctx, cancel := context.WithCancel(context.Background())
	w := worker.New(v.cfg)
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	v.client, v.stop, v.errc = worker.NewClient(w, v.logger), cancel, errc

	gen, client, screen := v.gen, v.client, v.screen
	go func() {
		for adv := range client.Advisories() {
			_ = screen.PostEvent(tcell.NewEventInterrupt(advisory{gen: gen, resp: adv}))
		}
	}()
}

// Close stops the worker.
func (v *viewer) Close() {
	if v.stop == nil {
		return
	}
	v.stop()
	if err := <-v.errc; err != nil && !errors.Is(err, context.Canceled) {
		v.logger.Warn("worker", "error", err)
	}
	v.stop = nil
}

// Load loads the workbook into a new worker and shows the current sheet.
// Only the visible sheets are shown, unless all of them are hidden.
func (v *viewer) Load(ctx context.Context) error {
	v.Close()
	v.start()
	resp, err := v.client.Call(ctx, worker.Request{Type: worker.LoadWorkbook, Data: v.data})
	if err != nil {
		return err
	}
	for _, d := range resp.Workbook.Diagnostics {
		v.logger.Warn("load", "diagnostic", d)
	}
	v.sheets = nil
	for _, si := range resp.Workbook.Worksheets {
		if !si.IsHidden {
			v.sheets = append(v.sheets, si)
		}
	}
	if len(v.sheets) == 0 {
		v.sheets = resp.Workbook.Worksheets
	}
	if len(v.sheets) == 0 {
		return fmt.Errorf("no sheets: %w", sheetview.ErrSheetIndex)
	}
	return v.show(ctx, min(v.current, len(v.sheets)-1))
}

// show shows the i-th listed sheet; i wraps around.
func (v *viewer) show(ctx context.Context, i int) error {
	n := len(v.sheets)
	i = (i%n + n) % n
	resp, err := v.client.Call(ctx, worker.Request{Type: worker.ProcessSheet, SheetIndex: v.sheets[i].Index})
	if err != nil {
		return err
	}
	v.current = i
	v.term.SetSheet(resp.Sheet)
	v.term.SetStatus(fmt.Sprintf("sheet %d/%d", i+1, n))
	return nil
}

// recycle replaces the worker, keeping the shown sheet and its scroll position.
func (v *viewer) recycle(ctx context.Context, mi *worker.MemoryInfo) error {
	if mi != nil {
		v.logger.Info("recycle", "usedMB", mi.UsedMB, "limitMB", mi.LimitMB, "tasks", mi.Tasks)
	}
	q := v.term.Focus()
	off := v.term.Scroller().Offset(q)
	if err := v.Load(ctx); err != nil {
		return err
	}
	v.term.Scroller().ScrollTo(q, off.X, off.Y)
	v.term.SetStatus("worker recycled")
	return nil
}

// Handle processes one event and reports whether to quit.
func (v *viewer) Handle(ctx context.Context, ev tcell.Event) (bool, error) {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		var err error
		switch v.term.HandleKey(ev) {
		case render.ActionQuit:
			return true, nil
		case render.ActionNextSheet:
			err = v.show(ctx, v.current+1)
		case render.ActionPrevSheet:
			err = v.show(ctx, v.current-1)
		}
		if err != nil {
			v.logger.Warn("show", "error", err)
			v.term.SetStatus(err.Error())
		}
	case *tcell.EventResize:
		v.term.Resize()
	case *tcell.EventInterrupt:
		adv, ok := ev.Data().(advisory)
		if !ok || adv.gen != v.gen {
			return false, nil
		}
		mi := adv.resp.Memory
		switch adv.resp.Type {
		case worker.MemoryUpdate:
			if mi != nil {
				v.term.SetStatus(fmt.Sprintf("memory %.0f/%.0f MB", mi.UsedMB, mi.LimitMB))
			}
		case worker.RecycleSuggested:
			if err := v.recycle(ctx, mi); err != nil {
				return true, err
			}
		}
	}
	return false, nil
}

// Run shows the workbook until the user quits or ctx is done.
func (v *viewer) Run(ctx context.Context) error {
	if err := v.Load(ctx); err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		_ = v.screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()
	for {
		v.term.Draw()
		ev := v.screen.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return nil
		}
		if quit, err := v.Handle(ctx, ev); quit || err != nil {
			return err
		}
	}
}
