// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package display renders tracker status onto small text displays.
package display

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

// Panel geometry of the SSD1306 modules in use.
const (
	Width  = 128
	Height = 64
)

// Display is a fire-and-forget text surface. Coordinates are pixels from the
// top-left corner; y is the top of the text line.
type Display interface {
	Clear()
	DrawText(x, y int, s string)
	Update() error
}

// Frame is an off-screen 1-bit canvas.
type Frame struct {
	img    *image1bit.VerticalLSB
	drawer *font.Drawer
}

// NewFrame returns a blank Width x Height canvas.
func NewFrame() *Frame {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, Width, Height))
	return &Frame{
		img: img,
		drawer: &font.Drawer{
			Dst:  img,
			Src:  &image.Uniform{image1bit.On},
			Face: basicfont.Face7x13,
		},
	}
}

// Clear blanks the canvas.
func (f *Frame) Clear() {
	clear(f.img.Pix)
}

// DrawText draws s with its top at y.
func (f *Frame) DrawText(x, y int, s string) {
	f.drawer.Dot = fixed.P(x, y+basicfont.Face7x13.Ascent)
	f.drawer.DrawString(s)
}

// Image returns the canvas.
func (f *Frame) Image() image.Image { return f.img }

// Lit counts pixels that are on.
func (f *Frame) Lit() int {
	n := 0
	b := f.img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if f.img.BitAt(x, y) == image1bit.On {
				n++
			}
		}
	}
	return n
}

// Screen is the content of one prediction screen.
type Screen struct {
	Title      string
	Phase      string
	PhaseConf  float32
	Posture    string
	PostureCon float32
	Reps       int
	Good       int
}

// ShowStatus draws the title and a single status line, e.g. "Ready!".
func ShowStatus(d Display, title, status string) error {
	d.Clear()
	d.DrawText(0, 10, title)
	d.DrawText(0, 30, status)
	return d.Update()
}

// ShowPrediction draws the latest phase and posture with the rep count.
func ShowPrediction(d Display, s Screen) error {
	d.Clear()
	d.DrawText(0, 0, fmt.Sprintf("%s  %d/%d", s.Title, s.Good, s.Reps))
	d.DrawText(0, 16, "Ph: "+s.Phase)
	d.DrawText(0, 26, fmt.Sprintf("    %.0f%%", s.PhaseConf*100))
	d.DrawText(0, 40, "Po: "+s.Posture)
	d.DrawText(0, 50, fmt.Sprintf("    %.0f%%", s.PostureCon*100))
	return d.Update()
}
