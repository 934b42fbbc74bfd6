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

// Package marginal represents a high-dimensional distribution through its
// overlapping low-dimensional projections: the CliqueVector algebra over
// per-clique factors, noisy linear measurements of marginals, and loss
// functions over the marginal polytope.
package marginal

import (
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/factor"
)

// ErrNoCoveringClique is returned by Project when no stored clique is a
// superset of the query.
var ErrNoCoveringClique = errors.New("marginal: no stored clique covers the query")

// CliqueVector maps cliques to factors, representing either the potentials
// or the marginals of one implicit joint distribution through its
// low-dimensional projections. The key set is fixed at construction;
// operations return new vectors, except Combine which accumulates into the
// receiver for warm-starting.
//
// Cliques are held sorted by increasing size then key, so that the covering
// clique chosen by Project and Combine is deterministic: the smallest
// covering clique wins, ties broken lexicographically.
type CliqueVector struct {
	cliques []domain.Clique
	factors map[string]*factor.Factor
}

// build constructs a vector with one factor per clique over the clique's
// sub-domain.
func build(dom *domain.Domain, cliques []domain.Clique, mk func(*domain.Domain) *factor.Factor) (*CliqueVector, error) {
	v := &CliqueVector{
		cliques: make([]domain.Clique, 0, len(cliques)),
		factors: make(map[string]*factor.Factor, len(cliques)),
	}
	for _, cl := range cliques {
		if _, ok := v.factors[cl.Key()]; ok {
			return nil, fmt.Errorf("marginal: duplicate clique %v", cl)
		}
		sub, err := dom.Project(cl)
		if err != nil {
			return nil, err
		}
		v.cliques = append(v.cliques, cl)
		v.factors[cl.Key()] = mk(sub)
	}
	domain.SortCliques(v.cliques)
	return v, nil
}

// Zeros returns the all-zero vector over the given cliques.
func Zeros(dom *domain.Domain, cliques []domain.Clique) (*CliqueVector, error) {
	return build(dom, cliques, factor.Zeros)
}

// Ones returns the all-one vector over the given cliques.
func Ones(dom *domain.Domain, cliques []domain.Clique) (*CliqueVector, error) {
	return build(dom, cliques, factor.Ones)
}

// Uniform returns the vector whose factors each sum to one.
func Uniform(dom *domain.Domain, cliques []domain.Clique) (*CliqueVector, error) {
	return build(dom, cliques, factor.Uniform)
}

// Random returns a vector with uniform [0, 1) factor values.
func Random(dom *domain.Domain, cliques []domain.Clique, rng *rand.Rand) (*CliqueVector, error) {
	return build(dom, cliques, func(sub *domain.Domain) *factor.Factor {
		return factor.Random(sub, rng)
	})
}

// Normal returns a vector with standard normal factor values.
func Normal(dom *domain.Domain, cliques []domain.Clique, rng *rand.Rand) (*CliqueVector, error) {
	return build(dom, cliques, func(sub *domain.Domain) *factor.Factor {
		return factor.Normal(sub, rng)
	})
}

// FromData returns the vector of empirical marginals of the data source
// over the given cliques. The source is anything exposing per-clique
// contingency counts; *dataset.Dataset satisfies it.
func FromData(data interface {
	Project(domain.Clique) (*factor.Factor, error)
}, cliques []domain.Clique) (*CliqueVector, error) {
	v := &CliqueVector{
		cliques: make([]domain.Clique, 0, len(cliques)),
		factors: make(map[string]*factor.Factor, len(cliques)),
	}
	for _, cl := range cliques {
		if _, ok := v.factors[cl.Key()]; ok {
			return nil, fmt.Errorf("marginal: duplicate clique %v", cl)
		}
		mu, err := data.Project(cl)
		if err != nil {
			return nil, err
		}
		v.cliques = append(v.cliques, cl)
		v.factors[cl.Key()] = mu
	}
	domain.SortCliques(v.cliques)
	return v, nil
}

// FromFactors assembles a vector from parallel cliques and factors. Each
// factor must already be defined over its clique's sub-domain.
func FromFactors(cliques []domain.Clique, factors []*factor.Factor) (*CliqueVector, error) {
	if len(cliques) != len(factors) {
		return nil, fmt.Errorf("marginal: %d cliques but %d factors", len(cliques), len(factors))
	}
	v := &CliqueVector{
		cliques: make([]domain.Clique, 0, len(cliques)),
		factors: make(map[string]*factor.Factor, len(cliques)),
	}
	for i, cl := range cliques {
		if _, ok := v.factors[cl.Key()]; ok {
			return nil, fmt.Errorf("marginal: duplicate clique %v", cl)
		}
		if !cl.Equal(factors[i].Domain().AttrClique()) {
			return nil, fmt.Errorf("marginal: factor over %v supplied for clique %v", factors[i].Domain(), cl)
		}
		v.cliques = append(v.cliques, cl)
		v.factors[cl.Key()] = factors[i]
	}
	domain.SortCliques(v.cliques)
	return v, nil
}

// mapFactors applies op to every stored factor, preserving the key set.
func (v *CliqueVector) mapFactors(op func(*factor.Factor) *factor.Factor) *CliqueVector {
	out := &CliqueVector{
		cliques: v.cliques,
		factors: make(map[string]*factor.Factor, len(v.cliques)),
	}
	for _, cl := range v.cliques {
		out.factors[cl.Key()] = op(v.factors[cl.Key()])
	}
	return out
}

// Cliques returns the vector's cliques in canonical order.
func (v *CliqueVector) Cliques() []domain.Clique {
	out := make([]domain.Clique, len(v.cliques))
	copy(out, v.cliques)
	return out
}

// Factor returns the stored factor for an exact clique key.
func (v *CliqueVector) Factor(cl domain.Clique) (*factor.Factor, bool) {
	f, ok := v.factors[cl.Key()]
	return f, ok
}

// Domain returns the merge of all stored factors' domains. Cardinality
// conflicts between factors are an error.
func (v *CliqueVector) Domain() (*domain.Domain, error) {
	var dom *domain.Domain
	for _, cl := range v.cliques {
		fd := v.factors[cl.Key()].Domain()
		if dom == nil {
			dom = fd
			continue
		}
		merged, err := domain.Merge(dom, fd)
		if err != nil {
			return nil, err
		}
		dom = merged
	}
	if dom == nil {
		return nil, errors.New("marginal: empty clique vector has no domain")
	}
	return dom, nil
}

// covering returns the index of the first stored clique (in canonical
// order) that is a superset of cl, or -1.
func (v *CliqueVector) covering(cl domain.Clique) int {
	for i, stored := range v.cliques {
		if cl.IsSubsetOf(stored) {
			return i
		}
	}
	return -1
}

// Project returns the projection of a stored factor onto cl. The smallest
// stored clique covering cl is used; ErrNoCoveringClique is returned when
// none exists.
func (v *CliqueVector) Project(cl domain.Clique) (*factor.Factor, error) {
	i := v.covering(cl)
	if i < 0 {
		return nil, fmt.Errorf("%w: %v", ErrNoCoveringClique, cl)
	}
	return v.factors[v.cliques[i].Key()].Project(cl)
}

// Covers reports whether some stored clique is a superset of cl.
func (v *CliqueVector) Covers(cl domain.Clique) bool {
	return v.covering(cl) >= 0
}

// Combine accumulates other into the receiver for warm-starting: each of
// other's factors is broadcast-added into the smallest stored clique
// covering it. Cliques of other with no covering clique are dropped
// silently; warm-starting a larger potential set from a smaller prior model
// relies on this.
func (v *CliqueVector) Combine(other *CliqueVector) error {
	for _, cl := range other.cliques {
		i := v.covering(cl)
		if i < 0 {
			continue
		}
		target := v.factors[v.cliques[i].Key()]
		expanded, err := other.factors[cl.Key()].Expand(target.Domain())
		if err != nil {
			return err
		}
		if err := target.AddAssign(expanded); err != nil {
			return err
		}
	}
	return nil
}

// Expand returns a zero vector over the given cliques, warm-started with
// the receiver's content via Combine.
func (v *CliqueVector) Expand(cliques []domain.Clique) (*CliqueVector, error) {
	dom, err := v.Domain()
	if err != nil {
		return nil, err
	}
	out, err := Zeros(dom, cliques)
	if err != nil {
		return nil, err
	}
	if err := out.Combine(v); err != nil {
		return nil, err
	}
	return out, nil
}

// sameKeys verifies that two vectors share an identical key set.
func (v *CliqueVector) sameKeys(other *CliqueVector) error {
	if len(v.cliques) != len(other.cliques) {
		return fmt.Errorf("marginal: key sets differ: %d vs %d cliques", len(v.cliques), len(other.cliques))
	}
	for _, cl := range v.cliques {
		if _, ok := other.factors[cl.Key()]; !ok {
			return fmt.Errorf("marginal: key sets differ: %v missing from operand", cl)
		}
	}
	return nil
}

// Plus returns the elementwise sum of two vectors with identical key sets.
func (v *CliqueVector) Plus(other *CliqueVector) (*CliqueVector, error) {
	return v.zipFactors(other, (*factor.Factor).Plus)
}

// Minus returns the elementwise difference of two vectors with identical
// key sets.
func (v *CliqueVector) Minus(other *CliqueVector) (*CliqueVector, error) {
	return v.zipFactors(other, (*factor.Factor).Minus)
}

// Div returns the elementwise quotient of two vectors with identical key
// sets.
func (v *CliqueVector) Div(other *CliqueVector) (*CliqueVector, error) {
	return v.zipFactors(other, (*factor.Factor).Div)
}

func (v *CliqueVector) zipFactors(other *CliqueVector, op func(*factor.Factor, *factor.Factor) (*factor.Factor, error)) (*CliqueVector, error) {
	if err := v.sameKeys(other); err != nil {
		return nil, err
	}
	out := &CliqueVector{
		cliques: v.cliques,
		factors: make(map[string]*factor.Factor, len(v.cliques)),
	}
	for _, cl := range v.cliques {
		f, err := op(v.factors[cl.Key()], other.factors[cl.Key()])
		if err != nil {
			return nil, err
		}
		out.factors[cl.Key()] = f
	}
	return out, nil
}

// Scale returns s * v.
func (v *CliqueVector) Scale(s float64) *CliqueVector {
	return v.mapFactors(func(f *factor.Factor) *factor.Factor { return f.Scale(s) })
}

// AddScalar returns v + s broadcast across all keys.
func (v *CliqueVector) AddScalar(s float64) *CliqueVector {
	return v.mapFactors(func(f *factor.Factor) *factor.Factor { return f.AddScalar(s) })
}

// Exp returns exp(v) elementwise.
func (v *CliqueVector) Exp() *CliqueVector {
	return v.mapFactors((*factor.Factor).Exp)
}

// Log returns log(v) elementwise.
func (v *CliqueVector) Log() *CliqueVector {
	return v.mapFactors((*factor.Factor).Log)
}

// Normalize rescales every factor to the given total, in linear or log
// space.
func (v *CliqueVector) Normalize(total float64, log bool) *CliqueVector {
	return v.mapFactors(func(f *factor.Factor) *factor.Factor { return f.Normalize(total, log) })
}

// Dot returns the sum over shared keys of the elementwise-product
// reduction. The key sets must be identical.
func (v *CliqueVector) Dot(other *CliqueVector) (float64, error) {
	if err := v.sameKeys(other); err != nil {
		return 0, err
	}
	var sum float64
	for _, cl := range v.cliques {
		d, err := v.factors[cl.Key()].Dot(other.factors[cl.Key()])
		if err != nil {
			return 0, err
		}
		sum += d
	}
	return sum, nil
}

// Size returns the sum of per-clique domain sizes, a proxy for the memory
// cost of the vector.
func (v *CliqueVector) Size() int64 {
	var size int64
	for _, cl := range v.cliques {
		dom := v.factors[cl.Key()].Domain()
		s, _ := dom.Size(dom.AttrClique())
		size += s
	}
	return size
}

// Clone returns a deep copy of the vector.
func (v *CliqueVector) Clone() *CliqueVector {
	return v.mapFactors((*factor.Factor).Clone)
}
