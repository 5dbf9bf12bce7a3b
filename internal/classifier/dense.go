// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/relabs-tech/pushup_tracker/internal/quant"
)

// DenseHead is one fully connected softmax output.
type DenseHead struct {
	Name    string       `json:"name"`
	Output  quant.Params `json:"output"`
	Weights [][]float32  `json:"weights"` // [class][input]
	Bias    []float32    `json:"bias"`
}

// Dense is a small int8-in, int8-out model with one fully connected softmax
// layer per head. It stands in for the embedded engine on hosts without one.
type Dense struct {
	Input quant.Params `json:"input"`
	Size  int          `json:"input_size"`
	Heads []DenseHead  `json:"heads"`
}

// LoadDense reads a Dense model from a JSON file.
func LoadDense(path string) (*Dense, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model %s: %w", path, err)
	}
	var d Dense
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if err := d.Validate(); err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return &d, nil
}

// Validate checks the shapes and quantization parameters.
func (d *Dense) Validate() error {
	if d.Input.Scale <= 0 {
		return fmt.Errorf("input scale must be > 0, got %v", d.Input.Scale)
	}
	if d.Size <= 0 {
		return fmt.Errorf("input_size must be > 0, got %d", d.Size)
	}
	if len(d.Heads) == 0 {
		return fmt.Errorf("no heads")
	}
	for _, h := range d.Heads {
		if h.Output.Scale <= 0 {
			return fmt.Errorf("head %q: output scale must be > 0", h.Name)
		}
		if len(h.Weights) == 0 || len(h.Bias) != len(h.Weights) {
			return fmt.Errorf("head %q: %d weight rows, %d biases", h.Name, len(h.Weights), len(h.Bias))
		}
		for c, row := range h.Weights {
			if len(row) != d.Size {
				return fmt.Errorf("head %q class %d: %d weights, want %d", h.Name, c, len(row), d.Size)
			}
		}
	}
	return nil
}

// InputParams implements Classifier.
func (d *Dense) InputParams() quant.Params {
	return d.Input
}

// Invoke implements Classifier.
func (d *Dense) Invoke(ctx context.Context, input []int8) ([]Tensor, error) {
	if len(input) != d.Size {
		return nil, fmt.Errorf("%w: input has %d values, want %d", ErrInvocationFailed, len(input), d.Size)
	}

	x := make([]float64, len(input))
	for i, q := range input {
		x[i] = float64(d.Input.Dequantize(q))
	}

	out := make([]Tensor, 0, len(d.Heads))
	for _, h := range d.Heads {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvocationFailed, err)
		}
		logits := make([]float64, len(h.Weights))
		for c, row := range h.Weights {
			sum := float64(h.Bias[c])
			for i, w := range row {
				sum += float64(w) * x[i]
			}
			logits[c] = sum
		}
		probs := softmax(logits)

		data := make([]int8, len(probs))
		for c, p := range probs {
			data[c] = h.Output.Quantize(float32(p))
		}
		out = append(out, Tensor{Data: data, Params: h.Output})
	}
	return out, nil
}

func softmax(logits []float64) []float64 {
	hi := math.Inf(-1)
	for _, v := range logits {
		hi = math.Max(hi, v)
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - hi)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
