// Package model implements the serialized wellness regression model: either a
// linear model or an ensemble of regression trees averaged like a random
// forest. Models are plain JSON so they can be produced by any training
// pipeline and evaluated without native dependencies.
//
// Example (linear):
//
//	{"version":"2025-03","kind":"linear","features":["steps","calories","sleep_hours"],
//	 "intercept":12.5,"coefficients":[0.002,0.01,4.1]}
//
// Trees use flat node arrays with the scikit-learn layout: a node with
// left == right == -1 is a leaf carrying value, any other node sends x to
// left when x[feature] <= threshold and to right otherwise.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

const (
	KindLinear = "linear"
	KindForest = "forest"
)

// Known input names, in the order the training data uses them.
var FeatureNames = []string{"steps", "calories", "sleep_hours"}

type Model struct {
	Version      string    `json:"version"`
	Kind         string    `json:"kind"`
	Features     []string  `json:"features"`
	Intercept    float64   `json:"intercept,omitempty"`
	Coefficients []float64 `json:"coefficients,omitempty"`
	Trees        []Tree    `json:"trees,omitempty"`
}

type Tree struct {
	Nodes []Node `json:"nodes"`
}

type Node struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

func (n Node) leaf() bool { return n.Left == -1 && n.Right == -1 }

// Parse decodes and validates a model document.
func Parse(data []byte) (*Model, error) {
	m := &Model{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks the structure so that Predict can neither index out of
// range nor loop.
func (m *Model) Validate() error {
	if len(m.Features) == 0 {
		return errors.New("model has no features")
	}
	known := make(map[string]bool, len(FeatureNames))
	for _, f := range FeatureNames {
		known[f] = true
	}
	seen := make(map[string]bool, len(m.Features))
	for _, f := range m.Features {
		if !known[f] {
			return fmt.Errorf("unknown feature %q", f)
		}
		if seen[f] {
			return fmt.Errorf("duplicate feature %q", f)
		}
		seen[f] = true
	}

	switch m.Kind {
	case KindLinear:
		if len(m.Coefficients) != len(m.Features) {
			return fmt.Errorf("linear model has %d coefficients for %d features", len(m.Coefficients), len(m.Features))
		}
		for _, c := range append([]float64{m.Intercept}, m.Coefficients...) {
			if !finite(c) {
				return errors.New("linear model has non-finite parameters")
			}
		}
	case KindForest:
		if len(m.Trees) == 0 {
			return errors.New("forest model has no trees")
		}
		for i, t := range m.Trees {
			if err := t.validate(len(m.Features)); err != nil {
				return fmt.Errorf("tree %d: %w", i, err)
			}
		}
	default:
		return fmt.Errorf("unsupported model kind %q", m.Kind)
	}
	return nil
}

func (t Tree) validate(features int) error {
	if len(t.Nodes) == 0 {
		return errors.New("empty tree")
	}
	for i, n := range t.Nodes {
		if n.leaf() {
			if !finite(n.Value) {
				return fmt.Errorf("node %d: non-finite leaf value", i)
			}
			continue
		}
		if n.Feature < 0 || n.Feature >= features {
			return fmt.Errorf("node %d: feature index %d out of range", i, n.Feature)
		}
		// children always follow their parent, which rules out cycles
		if n.Left <= i || n.Left >= len(t.Nodes) || n.Right <= i || n.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: invalid children %d/%d", i, n.Left, n.Right)
		}
		if math.IsNaN(n.Threshold) {
			return fmt.Errorf("node %d: NaN threshold", i)
		}
	}
	return nil
}

// Predict evaluates the model on named inputs. Every feature the model
// declares must be present in input.
func (m *Model) Predict(input map[string]float64) (float64, error) {
	x := make([]float64, len(m.Features))
	for i, name := range m.Features {
		v, ok := input[name]
		if !ok {
			return 0, fmt.Errorf("missing feature %q", name)
		}
		x[i] = v
	}

	switch m.Kind {
	case KindLinear:
		y := m.Intercept
		for i, c := range m.Coefficients {
			y += c * x[i]
		}
		return y, nil
	case KindForest:
		var sum float64
		for _, t := range m.Trees {
			sum += t.eval(x)
		}
		return sum / float64(len(m.Trees)), nil
	default:
		return 0, fmt.Errorf("unsupported model kind %q", m.Kind)
	}
}

func (t Tree) eval(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.leaf() {
			return n.Value
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func finite(f float64) bool { return !math.IsNaN(f) && !math.IsInf(f, 0) }
