// Copyright 2026 Tamás Gulácsi.
//
// SPDX-License-Identifier: Apache-2.0

package grid

import (
	"fmt"
	"log/slog"

	"github.com/UNO-SOFT/sheetview"
	"github.com/UNO-SOFT/sheetview/resolve"
)

// merge applies the merge ranges of ws to the window.
//
// Overlapping ranges are invalid input: the later one is dropped
// with an ErrOverlappingMerge diagnostic.
// A range starting outside the window is clipped, and its top-left
// content is moved to the first visible cell of it.
func (s *Sheet) merge(ws *sheetview.Worksheet, res *resolve.Resolver, diag func(row, col int, err error)) {
	accepted := make([]sheetview.MergeRange, 0, len(ws.Merges))
Outer:
	for _, m := range ws.Merges {
		if m.StartRow < 1 || m.StartCol < 1 || m.EndRow < m.StartRow || m.EndCol < m.StartCol {
			diag(m.StartRow, m.StartCol, fmt.Errorf("invalid merge %s", m))
			continue
		}
		for _, a := range accepted {
			if a.Overlaps(m) {
				diag(m.StartRow, m.StartCol, fmt.Errorf("%s overlaps %s: %w", m, a, sheetview.ErrOverlappingMerge))
				continue Outer
			}
		}
		accepted = append(accepted, m)

		clip, ok := m.Range().Intersect(s.Window)
		if !ok {
			continue
		}
		s.Merges = append(s.Merges, sheetview.MergeRange{
			StartRow: clip.StartRow, StartCol: clip.StartCol, EndRow: clip.EndRow, EndCol: clip.EndCol,
		})
		for row := clip.StartRow; row <= clip.EndRow; row++ {
			for col := clip.StartCol; col <= clip.EndCol; col++ {
				c := s.Cell(row, col)
				c.Suppressed = true
				c.Cell = resolve.Cell{Type: resolve.TypeText}
			}
		}
		top := s.Cell(clip.StartRow, clip.StartCol)
		top.Suppressed = false
		top.RowSpan, top.ColSpan = clip.Rows(), clip.Cols()
		top.Cell = res.Resolve(ws.Cell(m.StartRow, m.StartCol))
	}
}

// placeImages positions the images of ws on the window.
//
// Anchored images are placed at their anchor. Of the images without an anchor
// only the first one is placed: at the top-left of the window, and only
// when that cell shows nothing. Such a placement is marked Approximate.
func (s *Sheet) placeImages(ws *sheetview.Worksheet, logger *slog.Logger) {
	w := s.Window
	unanchored := 0
	for _, img := range ws.Images {
		im := Image{Extension: img.Extension, Data: img.Data}
		if img.Anchor != nil {
			if !w.Contains(img.Anchor.Row, img.Anchor.Col) {
				continue
			}
			im.Row, im.Col = img.Anchor.Row, img.Anchor.Col
		} else {
			if unanchored++; unanchored > 1 {
				logger.Debug("image without anchor skipped", "name", img.Name)
				continue
			}
			if c := s.Cell(w.StartRow, w.StartCol); c == nil || c.Display != "" {
				logger.Debug("top-left cell occupied, image skipped", "name", img.Name)
				continue
			}
			im.Row, im.Col, im.Approximate = w.StartRow, w.StartCol, true
		}
		im.RowSpan = min(ImageRowSpan, w.EndRow-im.Row+1)
		im.ColSpan = min(ImageColSpan, w.EndCol-im.Col+1)
		s.Images = append(s.Images, im)
	}
}
