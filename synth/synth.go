//
// Copyright 2024 The Private-PGM Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package synth draws synthetic records from a fitted graphical model by
// ancestral sampling over its junction tree.
package synth

import (
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/jnear/private-pgm/dataset"
	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/estimation"
	"github.com/jnear/private-pgm/factor"
	"github.com/jnear/private-pgm/inference"
)

// FromMarginals samples rows records over dom from the model's
// distribution. Each record is drawn by sampling a root clique of the
// junction tree from its marginal, then walking outward, sampling every
// further clique from its marginal conditioned on the separator attributes
// already assigned. Attributes of dom outside every model clique come out
// uniform. dom fixes the attribute order of the result, so callers can
// hand in the domain of the original data.
func FromMarginals(model *estimation.GraphicalModel, dom *domain.Domain, rows int, rng *rand.Rand) (*dataset.Dataset, error) {
	if rows <= 0 {
		return nil, fmt.Errorf("synth: rows is %d, must be positive", rows)
	}
	engine, err := inference.NewEngine(dom, model.Cliques())
	if err != nil {
		return nil, err
	}
	beliefs, err := engine.NodeMarginals(model.Potentials(), model.Total())
	if err != nil {
		return nil, err
	}
	tree := engine.Tree()

	// A root-first visit order per tree component, with each node's
	// separator to its already-visited parent.
	type visit struct {
		node   int
		parent int
	}
	order := make([]visit, 0, tree.Len())
	seen := make([]bool, tree.Len())
	for r := 0; r < tree.Len(); r++ {
		if seen[r] {
			continue
		}
		seen[r] = true
		queue := []visit{{node: r, parent: -1}}
		for len(queue) > 0 {
			v := queue[0]
			queue = queue[1:]
			order = append(order, v)
			for _, n := range tree.Neighbors(v.node) {
				if !seen[n] {
					seen[n] = true
					queue = append(queue, visit{node: n, parent: v.node})
				}
			}
		}
	}

	cols := make(map[string][]int, dom.Len())
	for _, attr := range dom.Attrs() {
		cols[attr] = make([]int, rows)
	}
	for row := 0; row < rows; row++ {
		assign := make(map[string]int, dom.Len())
		for _, v := range order {
			belief := beliefs[v.node]
			if v.parent >= 0 {
				sep := tree.Separator(v.parent, v.node)
				given := make(map[string]int, len(sep))
				for _, attr := range sep {
					given[attr] = assign[attr]
				}
				belief, err = belief.Condition(given)
				if err != nil {
					return nil, err
				}
			}
			if err := sampleInto(belief, assign, rng); err != nil {
				return nil, err
			}
		}
		for attr, val := range assign {
			cols[attr][row] = val
		}
	}
	return dataset.New(dom, cols)
}

// sampleInto draws one joint value from the factor, treated as an
// unnormalized categorical over its cells, and records the per-attribute
// values in assign.
func sampleInto(f *factor.Factor, assign map[string]int, rng *rand.Rand) error {
	vals := f.DataVector()
	var total float64
	for _, v := range vals {
		if v > 0 {
			total += v
		}
	}
	cell := len(vals) - 1
	if total <= 0 {
		cell = rng.IntN(len(vals))
	} else {
		u := rng.Float64() * total
		for i, v := range vals {
			if v <= 0 {
				continue
			}
			u -= v
			if u < 0 {
				cell = i
				break
			}
		}
	}
	return decodeCell(f.Domain(), cell, assign)
}

// decodeCell maps a row-major cell index back to per-attribute values.
func decodeCell(dom *domain.Domain, cell int, assign map[string]int) error {
	shape := dom.Shape()
	attrs := dom.Attrs()
	if len(shape) == 0 {
		return errors.New("synth: cannot decode a scalar factor")
	}
	for i := len(attrs) - 1; i >= 0; i-- {
		assign[attrs[i]] = cell % shape[i]
		cell /= shape[i]
	}
	return nil
}
