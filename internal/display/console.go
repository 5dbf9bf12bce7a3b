// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

type textLine struct {
	x, y int
	s    string
}

// Console prints each updated screen as one line of text. It stands in for
// the panel on hosts without one.
type Console struct {
	w     io.Writer
	lines []textLine
	last  string
}

// NewConsole writes screens to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Clear implements Display.
func (c *Console) Clear() { c.lines = c.lines[:0] }

// DrawText implements Display.
func (c *Console) DrawText(x, y int, s string) {
	c.lines = append(c.lines, textLine{x: x, y: y, s: s})
}

// Update implements Display. Unchanged screens are not printed again.
func (c *Console) Update() error {
	sort.SliceStable(c.lines, func(i, j int) bool {
		if c.lines[i].y != c.lines[j].y {
			return c.lines[i].y < c.lines[j].y
		}
		return c.lines[i].x < c.lines[j].x
	})
	parts := make([]string, 0, len(c.lines))
	for _, l := range c.lines {
		parts = append(parts, strings.TrimSpace(l.s))
	}
	screen := strings.Join(parts, " | ")
	if screen == c.last {
		return nil
	}
	c.last = screen
	_, err := fmt.Fprintf(c.w, "[display] %s\n", screen)
	return err
}
