// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/render"
	"github.com/UNO-SOFT/sheetview/worker"
)

type server struct {
	client *worker.Client
	logger *slog.Logger
}

// newServer returns the HTTP handler of the worker behind client.
//
//	POST /rpc            a JSON worker.Request, answered with a worker.Response
//	POST /upload         a multipart "file" field, loaded as the workbook
//	GET  /sheets/:index  the sheet as an HTML page; ?rows=1-100&cols=1-20 selects a viewport
func newServer(client *worker.Client, logger *slog.Logger, maxUploadMB int64) *echo.Echo {
	s := server{client: client, logger: logger}
	e := echo.New()
	e.HideBanner, e.HidePort = true, true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true, LogURI: true, LogStatus: true, LogLatency: true, LogError: true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				logger.Info("request", "method", v.Method, "uri", v.URI, "status", v.Status, "error", v.Error)
			} else {
				logger.Debug("request", "method", v.Method, "uri", v.URI, "status", v.Status, "dur", v.Latency.String())
			}
			return nil
		},
	}))
	e.Use(middleware.BodyLimit(strconv.FormatInt(maxUploadMB, 10) + "M"))

	e.POST("/rpc", s.rpc)
	e.POST("/upload", s.upload)
	e.GET("/sheets/:index", s.sheet)
	return e
}

// call forwards req. ERROR responses are protocol answers, not HTTP failures.
func (s server) call(c echo.Context, req worker.Request) (worker.Response, error) {
	resp, err := s.client.Call(c.Request().Context(), req)
	var re *worker.ResponseError
	if err != nil && !errors.As(err, &re) {
		return resp, echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return resp, nil
}

func (s server) rpc(c echo.Context) error {
	var req worker.Request
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	resp, err := s.call(c, req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (s server) upload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file: "+err.Error())
	}
	f, err := fh.Open()
	if err != nil {
		return err
	}
	data, err := io.ReadAll(f)
	f.Close()
	if err != nil {
		return err
	}
	s.logger.Info("upload", "name", fh.Filename, "size", len(data))
	resp, err := s.call(c, worker.Request{Type: worker.LoadWorkbook, Data: data})
	if err != nil {
		return err
	}
	status := http.StatusOK
	if resp.Type == worker.Error {
		status = http.StatusUnprocessableEntity
	}
	return c.JSON(status, resp)
}

func (s server) sheet(c echo.Context) error {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "index: "+err.Error())
	}
	req := worker.Request{Type: worker.ProcessSheet, SheetIndex: index}
	if req.Rows, err = parseSpan(c.QueryParam("rows")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "rows: "+err.Error())
	}
	if req.Cols, err = parseSpan(c.QueryParam("cols")); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cols: "+err.Error())
	}
	resp, err := s.call(c, req)
	if err != nil {
		return err
	}
	if resp.Type == worker.Error {
		re := &worker.ResponseError{ID: resp.ID, Message: resp.Error}
		switch {
		case errors.Is(re, sheetview.ErrSheetIndex):
			return echo.NewHTTPError(http.StatusNotFound, resp.Error)
		case errors.Is(re, sheetview.ErrNoWorkbook):
			return echo.NewHTTPError(http.StatusConflict, resp.Error)
		}
		return echo.NewHTTPError(http.StatusInternalServerError, resp.Error)
	}

	l := render.NewLayout(resp.Sheet, render.Options{Logger: s.logger})
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(http.StatusOK)
	return render.WriteHTML(c.Response(), l, render.HTMLOptions{Title: resp.Sheet.Name, Page: true})
}

// parseSpan parses "start-end", or a single number; "" is nil.
func parseSpan(s string) (*worker.Span, error) {
	if s == "" {
		return nil, nil
	}
	first, last, ok := strings.Cut(s, "-")
	if !ok {
		last = first
	}
	start, err := strconv.Atoi(first)
	if err != nil {
		return nil, err
	}
	end, err := strconv.Atoi(last)
	if err != nil {
		return nil, err
	}
	if start < 1 || end < start {
		return nil, fmt.Errorf("bad span %q", s)
	}
	return &worker.Span{Start: start, End: end}, nil
}
