// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

// Command sheetviewd serves the worker message protocol over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UNO-SOFT/zlog/v2"
	"github.com/peterbourgon/ff/v3"
	"github.com/peterbourgon/ff/v3/ffcli"
	"github.com/peterbourgon/ff/v3/ffyaml"

	"github.com/UNO-SOFT/sheetview/grid"
	"github.com/UNO-SOFT/sheetview/ingest"
	"github.com/UNO-SOFT/sheetview/worker"
)

var verbose zlog.VerboseVar
var logger = zlog.NewLogger(zlog.MaybeConsoleHandler(&verbose, os.Stderr)).SLog()

func main() {
	if err := Main(); err != nil {
		logger.Error("MAIN", "error", err)
		os.Exit(1)
	}
}

func Main() error {
	fs := flag.NewFlagSet("sheetviewd", flag.ContinueOnError)
	fs.Var(&verbose, "v", "logging verbosity")
	fs.String("config", "", "config file (YAML)")
	flagAddr := fs.String("addr", ":8080", "address to listen on")
	flagEnc := fs.String("charset", ingest.EncName, "charset of delimited text uploads")
	flagMaxUpload := fs.Int64("max-upload-mb", 64, "upload size limit in MiB")
	flagMaxRows := fs.Int("max-rows", grid.MaxRows, "materialized rows per request")
	flagMaxCols := fs.Int("max-cols", grid.MaxCols, "materialized columns per request")
	flagConcurrency := fs.Int64("concurrency", 0, "requests handled at once (default GOMAXPROCS)")
	flagMemInterval := fs.Duration("memory-interval", 5*time.Second, "memory advisory interval")
	flagRecycleMB := fs.Float64("recycle-mb", 512, "memory use suggesting a recycle, in MiB")
	flagMaxTasks := fs.Int("max-tasks", 100, "served requests suggesting a recycle")

	app := ffcli.Command{Name: "sheetviewd", FlagSet: fs,
		ShortUsage: "sheetviewd [flags]",
		Options: []ff.Option{
			ff.WithEnvVarPrefix("SHEETVIEW"),
			ff.WithConfigFileFlag("config"),
			ff.WithConfigFileParser(ffyaml.Parser),
		},
		Exec: func(ctx context.Context, args []string) error {
			w := worker.New(worker.Config{
				Logger:         logger.WithGroup("worker"),
				Ingest:         ingest.Options{Logger: logger, Encoding: *flagEnc},
				Grid:           grid.Options{Logger: logger, MaxRows: *flagMaxRows, MaxCols: *flagMaxCols},
				MemoryInterval: *flagMemInterval,
				RecycleMB:      *flagRecycleMB,
				MaxTasks:       *flagMaxTasks,
				Concurrency:    *flagConcurrency,
			})
			ctx, cancel := context.WithCancel(ctx)
			defer cancel()
			errc := make(chan error, 1)
			go func() { errc <- w.Run(ctx) }()
			client := worker.NewClient(w, logger)
			go logAdvisories(client)

			e := newServer(client, logger, *flagMaxUpload)
			go func() {
				<-ctx.Done()
				shutCtx, shutCancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer shutCancel()
				if err := e.Shutdown(shutCtx); err != nil {
					logger.Warn("shutdown", "error", err)
				}
			}()
			logger.Info("listening", "addr", *flagAddr)
			if err := e.Start(*flagAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			cancel()
			if err := <-errc; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}

	if err := app.Parse(os.Args[1:]); err != nil {
		return err
	}
	ctx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return app.Run(ctx)
}

// logAdvisories logs the advisories of the worker. Recycling is left to the operator.
func logAdvisories(client *worker.Client) {
	for adv := range client.Advisories() {
		mi := adv.Memory
		if mi == nil {
			continue
		}
		level := slog.LevelDebug
		if adv.Type == worker.RecycleSuggested {
			level = slog.LevelWarn
		}
		logger.Log(context.Background(), level, string(adv.Type),
			"usedMB", mi.UsedMB, "limitMB", mi.LimitMB, "tasks", mi.Tasks)
	}
}
