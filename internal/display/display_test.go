// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package display

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameDrawAndClear(t *testing.T) {
	f := NewFrame()
	assert.Equal(t, 0, f.Lit())

	f.DrawText(0, 0, "GAINS")
	lit := f.Lit()
	assert.Greater(t, lit, 0)

	f.DrawText(0, 30, "Ready!")
	assert.Greater(t, f.Lit(), lit)

	f.Clear()
	assert.Equal(t, 0, f.Lit())
	assert.Equal(t, Width, f.Image().Bounds().Dx())
	assert.Equal(t, Height, f.Image().Bounds().Dy())
}

func TestFrameTextOffScreenIsClipped(t *testing.T) {
	f := NewFrame()
	f.DrawText(Width+10, Height+10, "hidden")
	assert.Equal(t, 0, f.Lit())
}

func TestConsoleOrdersLinesAndSkipsRepeats(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf)

	require.NoError(t, ShowStatus(c, "GAINS", "Ready!"))
	require.NoError(t, ShowStatus(c, "GAINS", "Ready!"))
	assert.Equal(t, "[display] GAINS | Ready!\n", buf.String())

	buf.Reset()
	require.NoError(t, ShowPrediction(c, Screen{
		Title: "GAINS", Phase: "top", PhaseConf: 0.91,
		Posture: "good-form", PostureCon: 0.5, Reps: 3, Good: 2,
	}))
	assert.Equal(t, "[display] GAINS  2/3 | Ph: top | 91% | Po: good-form | 50%\n", buf.String())
}

type recorder struct {
	cleared int
	texts   []string
	updates int
}

func (r *recorder) Clear()                      { r.cleared++; r.texts = nil }
func (r *recorder) DrawText(_, _ int, s string) { r.texts = append(r.texts, s) }
func (r *recorder) Update() error               { r.updates++; return nil }

func TestShowStatusUsesDisplayContract(t *testing.T) {
	r := &recorder{}
	require.NoError(t, ShowStatus(r, "GAINS", "Stopped"))
	assert.Equal(t, 1, r.cleared)
	assert.Equal(t, []string{"GAINS", "Stopped"}, r.texts)
	assert.Equal(t, 1, r.updates)
}
