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

package factor

import (
	"fmt"
	"math"

	"github.com/jnear/private-pgm/domain"
)

// strides returns the row-major strides for a shape, with the last axis
// varying fastest.
func strides(shape []int) []int {
	s := make([]int, len(shape))
	acc := 1
	for i := len(shape) - 1; i >= 0; i-- {
		s[i] = acc
		acc *= shape[i]
	}
	return s
}

// odometer walks all linear indices of shape while tracking a companion
// index that advances by contrib[axis] whenever the corresponding digit
// increments. visit is called once per cell with the companion index.
func odometer(shape, contrib []int, visit func(cell, companion int)) {
	n := len(shape)
	total := 1
	for _, s := range shape {
		total *= s
	}
	digits := make([]int, n)
	companion := 0
	for cell := 0; cell < total; cell++ {
		visit(cell, companion)
		for ax := n - 1; ax >= 0; ax-- {
			digits[ax]++
			companion += contrib[ax]
			if digits[ax] < shape[ax] {
				break
			}
			digits[ax] = 0
			companion -= contrib[ax] * shape[ax]
		}
	}
}

// outContrib maps each axis of the source domain to its stride contribution
// in the target domain, or 0 for axes the target does not carry.
func outContrib(src, dst *domain.Domain) []int {
	dstAttrs := dst.Attrs()
	dstStride := strides(dst.Shape())
	pos := make(map[string]int, len(dstAttrs))
	for i, a := range dstAttrs {
		pos[a] = i
	}
	contrib := make([]int, src.Len())
	for i, a := range src.Attrs() {
		if j, ok := pos[a]; ok {
			contrib[i] = dstStride[j]
		}
	}
	return contrib
}

// Project marginalizes the factor onto the given clique by summing out all
// other attributes. The clique must be a subset of the factor's attributes.
func (f *Factor) Project(cl domain.Clique) (*Factor, error) {
	if !cl.IsSubsetOf(f.dom.AttrClique()) {
		return nil, fmt.Errorf("factor: cannot project %v onto %v", f.dom, cl)
	}
	outDom, err := f.dom.Project(cl)
	if err != nil {
		return nil, err
	}
	out := Zeros(outDom)
	contrib := outContrib(f.dom, outDom)
	odometer(f.dom.Shape(), contrib, func(cell, outIdx int) {
		out.vals[outIdx] += f.vals[cell]
	})
	return out, nil
}

// LogSumExpProject marginalizes a log-space factor onto the given clique,
// computing log(sum(exp(f))) over the summed-out attributes stably.
func (f *Factor) LogSumExpProject(cl domain.Clique) (*Factor, error) {
	if !cl.IsSubsetOf(f.dom.AttrClique()) {
		return nil, fmt.Errorf("factor: cannot project %v onto %v", f.dom, cl)
	}
	outDom, err := f.dom.Project(cl)
	if err != nil {
		return nil, err
	}
	maxes := constant(outDom, math.Inf(-1))
	contrib := outContrib(f.dom, outDom)
	shape := f.dom.Shape()
	odometer(shape, contrib, func(cell, outIdx int) {
		if f.vals[cell] > maxes.vals[outIdx] {
			maxes.vals[outIdx] = f.vals[cell]
		}
	})
	out := Zeros(outDom)
	odometer(shape, contrib, func(cell, outIdx int) {
		if !math.IsInf(maxes.vals[outIdx], -1) {
			out.vals[outIdx] += math.Exp(f.vals[cell] - maxes.vals[outIdx])
		}
	})
	for i := range out.vals {
		if math.IsInf(maxes.vals[i], -1) {
			out.vals[i] = math.Inf(-1)
		} else {
			out.vals[i] = math.Log(out.vals[i]) + maxes.vals[i]
		}
	}
	return out, nil
}

// Expand broadcasts the factor onto a covering domain. Every attribute of f
// must appear in to with the same cardinality; the broadcast repeats f's
// values along the new attributes.
func (f *Factor) Expand(to *domain.Domain) (*Factor, error) {
	for _, a := range f.dom.Attrs() {
		fc, _ := f.dom.Card(a)
		tc, err := to.Card(a)
		if err != nil {
			return nil, fmt.Errorf("factor: cannot expand onto %v: %w", to, err)
		}
		if fc != tc {
			return nil, fmt.Errorf("factor: attribute %q has conflicting cardinalities %d and %d", a, fc, tc)
		}
	}
	out := Zeros(to)
	contrib := outContrib(to, f.dom)
	odometer(to.Shape(), contrib, func(cell, srcIdx int) {
		out.vals[cell] = f.vals[srcIdx]
	})
	return out, nil
}

// Condition slices the factor at a partial assignment, returning a factor
// over the remaining attributes.
func (f *Factor) Condition(assign map[string]int) (*Factor, error) {
	remaining := make([]string, 0, f.dom.Len())
	offset := 0
	srcStride := strides(f.dom.Shape())
	for i, a := range f.dom.Attrs() {
		v, ok := assign[a]
		if !ok {
			remaining = append(remaining, a)
			continue
		}
		card, _ := f.dom.Card(a)
		if v < 0 || v >= card {
			return nil, fmt.Errorf("factor: assignment %d out of range for attribute %q with cardinality %d", v, a, card)
		}
		offset += v * srcStride[i]
	}
	outDom, err := f.dom.Project(domain.NewClique(remaining...))
	if err != nil {
		return nil, err
	}
	out := Zeros(outDom)
	// Walk the output cells, tracking the source index of the free axes.
	srcContrib := make([]int, outDom.Len())
	outPos := make(map[string]int, outDom.Len())
	for i, a := range outDom.Attrs() {
		outPos[a] = i
	}
	for i, a := range f.dom.Attrs() {
		if j, ok := outPos[a]; ok {
			srcContrib[j] = srcStride[i]
		}
	}
	odometer(outDom.Shape(), srcContrib, func(cell, srcIdx int) {
		out.vals[cell] = f.vals[offset+srcIdx]
	})
	return out, nil
}
