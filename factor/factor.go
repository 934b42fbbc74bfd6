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

// Package factor implements dense functions over the assignments of a
// clique's sub-domain. Factors hold either counts, probabilities or
// log-space potentials; the interpretation is up to the caller.
package factor

import (
	"fmt"
	"math"
	rand "math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/jnear/private-pgm/domain"
)

// Factor is a dense real-valued function over all assignments of its
// domain's attributes. Values are laid out row-major in the domain's
// attribute order: the last attribute varies fastest.
type Factor struct {
	dom  *domain.Domain
	vals []float64
}

// New wraps the given values as a factor over dom. The slice is used
// directly, not copied.
func New(dom *domain.Domain, vals []float64) (*Factor, error) {
	size, err := dom.Size(dom.AttrClique())
	if err != nil {
		return nil, err
	}
	if int64(len(vals)) != size {
		return nil, fmt.Errorf("factor: %d values for domain of size %d", len(vals), size)
	}
	return &Factor{dom: dom, vals: vals}, nil
}

// Zeros returns the all-zero factor over dom.
func Zeros(dom *domain.Domain) *Factor {
	return constant(dom, 0)
}

// Ones returns the all-one factor over dom.
func Ones(dom *domain.Domain) *Factor {
	return constant(dom, 1)
}

// Uniform returns the factor over dom whose values sum to one.
func Uniform(dom *domain.Domain) *Factor {
	f := constant(dom, 0)
	u := 1.0 / float64(len(f.vals))
	for i := range f.vals {
		f.vals[i] = u
	}
	return f
}

// Random returns a factor with values drawn uniformly from [0, 1).
func Random(dom *domain.Domain, rng *rand.Rand) *Factor {
	f := constant(dom, 0)
	for i := range f.vals {
		f.vals[i] = rng.Float64()
	}
	return f
}

// Normal returns a factor with standard normal values.
func Normal(dom *domain.Domain, rng *rand.Rand) *Factor {
	f := constant(dom, 0)
	for i := range f.vals {
		f.vals[i] = rng.NormFloat64()
	}
	return f
}

func constant(dom *domain.Domain, v float64) *Factor {
	size, _ := dom.Size(dom.AttrClique())
	vals := make([]float64, size)
	if v != 0 {
		for i := range vals {
			vals[i] = v
		}
	}
	return &Factor{dom: dom, vals: vals}
}

// Domain returns the factor's domain.
func (f *Factor) Domain() *domain.Domain {
	return f.dom
}

// Clone returns a deep copy of the factor.
func (f *Factor) Clone() *Factor {
	return &Factor{dom: f.dom, vals: slices.Clone(f.vals)}
}

// DataVector returns a copy of the factor's values, flattened row-major in
// the domain's attribute order.
func (f *Factor) DataVector() []float64 {
	return slices.Clone(f.vals)
}

// AddAssign adds other into f in place. The factors must share the same
// domain layout.
func (f *Factor) AddAssign(other *Factor) error {
	if !f.dom.Equal(other.dom) {
		return fmt.Errorf("factor: domain mismatch %v vs %v", f.dom, other.dom)
	}
	floats.Add(f.vals, other.vals)
	return nil
}

// Plus returns f + other elementwise.
func (f *Factor) Plus(other *Factor) (*Factor, error) {
	out := f.Clone()
	if err := out.AddAssign(other); err != nil {
		return nil, err
	}
	return out, nil
}

// Minus returns f - other elementwise.
func (f *Factor) Minus(other *Factor) (*Factor, error) {
	if !f.dom.Equal(other.dom) {
		return nil, fmt.Errorf("factor: domain mismatch %v vs %v", f.dom, other.dom)
	}
	out := f.Clone()
	floats.Sub(out.vals, other.vals)
	return out, nil
}

// Mul returns the elementwise product f * other.
func (f *Factor) Mul(other *Factor) (*Factor, error) {
	if !f.dom.Equal(other.dom) {
		return nil, fmt.Errorf("factor: domain mismatch %v vs %v", f.dom, other.dom)
	}
	out := f.Clone()
	floats.Mul(out.vals, other.vals)
	return out, nil
}

// Div returns the elementwise quotient f / other.
func (f *Factor) Div(other *Factor) (*Factor, error) {
	if !f.dom.Equal(other.dom) {
		return nil, fmt.Errorf("factor: domain mismatch %v vs %v", f.dom, other.dom)
	}
	out := f.Clone()
	floats.Div(out.vals, other.vals)
	return out, nil
}

// Scale returns s * f.
func (f *Factor) Scale(s float64) *Factor {
	out := f.Clone()
	floats.Scale(s, out.vals)
	return out
}

// AddScalar returns f + s elementwise.
func (f *Factor) AddScalar(s float64) *Factor {
	out := f.Clone()
	floats.AddConst(s, out.vals)
	return out
}

// Exp returns exp(f) elementwise.
func (f *Factor) Exp() *Factor {
	out := f.Clone()
	for i, v := range out.vals {
		out.vals[i] = math.Exp(v)
	}
	return out
}

// Log returns log(f) elementwise. Zero values map to -Inf.
func (f *Factor) Log() *Factor {
	out := f.Clone()
	for i, v := range out.vals {
		out.vals[i] = math.Log(v)
	}
	return out
}

// Sum returns the sum of all values.
func (f *Factor) Sum() float64 {
	return floats.Sum(f.vals)
}

// Dot returns the elementwise-product reduction of two factors over the
// same domain.
func (f *Factor) Dot(other *Factor) (float64, error) {
	if !f.dom.Equal(other.dom) {
		return 0, fmt.Errorf("factor: domain mismatch %v vs %v", f.dom, other.dom)
	}
	return floats.Dot(f.vals, other.vals), nil
}

// LogSumExp returns log(sum(exp(f))) computed stably.
func (f *Factor) LogSumExp() float64 {
	return floats.LogSumExp(f.vals)
}

// L1 returns the L1 distance between the value vectors of two factors over
// the same domain.
func (f *Factor) L1(other *Factor) (float64, error) {
	if !f.dom.Equal(other.dom) {
		return 0, fmt.Errorf("factor: domain mismatch %v vs %v", f.dom, other.dom)
	}
	return floats.Distance(f.vals, other.vals, 1), nil
}

// Normalize rescales the factor so its total is the given value. In linear
// space (log=false), values are scaled multiplicatively; in log space
// (log=true), log(total) - logsumexp is added.
func (f *Factor) Normalize(total float64, log bool) *Factor {
	if log {
		return f.AddScalar(math.Log(total) - f.LogSumExp())
	}
	sum := f.Sum()
	if sum == 0 {
		return Uniform(f.dom).Scale(total)
	}
	return f.Scale(total / sum)
}
