// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNO-SOFT/sheetview/internal/xlsxfixture"
	"github.com/UNO-SOFT/sheetview/worker"
)

func testServer(t *testing.T) *echo.Echo {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	w := worker.New(worker.Config{MemoryInterval: -1})
	errc := make(chan error, 1)
	go func() { errc <- w.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errc
	})
	return newServer(worker.NewClient(w, nil), slog.New(slog.DiscardHandler), 8)
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, e *echo.Echo, field string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, "book.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set(echo.HeaderContentType, mw.FormDataContentType())
	return serve(e, req)
}

func rpc(t *testing.T, e *echo.Echo, body string) (*httptest.ResponseRecorder, worker.Response) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := serve(e, req)
	var resp worker.Response
	if rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	}
	return rec, resp
}

func workbook(t *testing.T) []byte {
	t.Helper()
	b := xlsxfixture.New()
	sh, err := b.NewSheet("Fruits")
	require.NoError(t, err)
	require.NoError(t, sh.AppendRow("Name", "Amount"))
	require.NoError(t, sh.AppendRow("apple <green>", 3))
	require.NoError(t, sh.Freeze(0, 1))
	data, err := b.Bytes()
	require.NoError(t, err)
	return data
}

func TestServer(t *testing.T) {
	e := testServer(t)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/sheets/0", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = upload(t, e, "file", workbook(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp worker.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, worker.WorkbookLoaded, resp.Type)
	require.Len(t, resp.Workbook.Worksheets, 1)
	assert.Equal(t, "Fruits", resp.Workbook.Worksheets[0].Name)

	rec, resp = rpc(t, e, `{"id":"p1","type":"PROCESS_SHEET","sheetIndex":0}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "p1", resp.ID)
	require.Equal(t, worker.SheetProcessed, resp.Type, resp.Error)
	assert.Equal(t, "apple <green>", resp.Sheet.Cell(2, 1).Display)
	assert.Equal(t, 1, resp.Sheet.FrozenRows)

	rec, resp = rpc(t, e, `{"id":"s1","type":"SEARCH_IN_SHEET","query":"APPLE"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []worker.Match{{Row: 2, Col: 1, Value: "apple <green>"}}, resp.Matches)

	rec, resp = rpc(t, e, `{"id":"x","type":"FROBNICATE"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, worker.Error, resp.Type)
	assert.Equal(t, "x", resp.ID)
	assert.Contains(t, resp.Error, "unknown message type")

	rec, _ = rpc(t, e, `{"type":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/sheets/0?rows=1-2", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, echo.MIMETextHTMLCharsetUTF8, rec.Header().Get(echo.HeaderContentType))
	page := rec.Body.String()
	assert.True(t, strings.HasPrefix(page, "<!DOCTYPE html>"))
	assert.Contains(t, page, "<title>Fruits</title>")
	assert.Contains(t, page, "sv-tr")
	assert.Contains(t, page, "apple &lt;green&gt;")

	for path, code := range map[string]int{
		"/sheets/7":          http.StatusNotFound,
		"/sheets/x":          http.StatusBadRequest,
		"/sheets/0?rows=3-1": http.StatusBadRequest,
	} {
		rec = serve(e, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, code, rec.Code, path)
	}
}

func TestUploadFailure(t *testing.T) {
	e := testServer(t)
	rec := upload(t, e, "file", []byte{0, 0, 0})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp worker.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, worker.Error, resp.Type)

	rec = upload(t, e, "other", workbook(t))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseSpan(t *testing.T) {
	for _, tc := range []struct {
		In   string
		Want *worker.Span
		Err  bool
	}{
		{"", nil, false},
		{"5", &worker.Span{Start: 5, End: 5}, false},
		{"2-10", &worker.Span{Start: 2, End: 10}, false},
		{"0-3", nil, true},
		{"a-b", nil, true},
	} {
		got, err := parseSpan(tc.In)
		if tc.Err {
			assert.Error(t, err, tc.In)
			continue
		}
		require.NoError(t, err, tc.In)
		assert.Equal(t, tc.Want, got, tc.In)
	}
}
