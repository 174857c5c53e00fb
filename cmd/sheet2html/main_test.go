// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UNO-SOFT/sheetview/internal/xlsxfixture"
)

func book(t *testing.T) []byte {
	t.Helper()
	b := xlsxfixture.New()
	for _, name := range []string{"Visible", "Secret", "Other"} {
		sh, err := b.NewSheet(name)
		require.NoError(t, err)
		require.NoError(t, sh.AppendRow(name+" cell"))
		if name == "Secret" {
			require.NoError(t, sh.Hide(false))
		}
	}
	data, err := b.Bytes()
	require.NoError(t, err)
	return data
}

func TestConvert(t *testing.T) {
	data := book(t)
	for _, tc := range []struct {
		Sheets string
		Want   []string
		Err    bool
	}{
		{"", []string{"Visible", "Other"}, false},
		{"1", []string{"Secret"}, false},
		{"other, 0", []string{"Other", "Visible"}, false},
		{"7", nil, true},
		{"nope", nil, true},
	} {
		var buf bytes.Buffer
		err := convert(context.Background(), &buf, data, convertOptions{Sheets: tc.Sheets, Title: "book.xlsx"})
		if tc.Err {
			assert.Error(t, err, tc.Sheets)
			continue
		}
		require.NoError(t, err, tc.Sheets)
		out := buf.String()
		assert.Contains(t, out, "<title>book.xlsx</title>", tc.Sheets)
		assert.Equal(t, len(tc.Want), strings.Count(out, `<h3 class="sv-title">`), tc.Sheets)
		last := -1
		for _, name := range tc.Want {
			i := strings.Index(out, `<h3 class="sv-title">`+name+`</h3>`)
			require.Greater(t, i, last, name)
			last = i
			assert.Contains(t, out, name+" cell")
		}
	}
}

func TestConvertDelimited(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, convert(context.Background(), &buf,
		[]byte("name;amount\napple;3\n"), convertOptions{Encoding: "utf-8", Title: "stdin"}))
	out := buf.String()
	assert.Contains(t, out, `<h3 class="sv-title">Sheet1</h3>`)
	assert.Contains(t, out, "apple")
	assert.Contains(t, out, "text-align:right")
}
