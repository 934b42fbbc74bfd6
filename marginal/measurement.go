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

package marginal

import (
	"slices"

	"gonum.org/v1/gonum/floats"

	"github.com/jnear/private-pgm/domain"
)

// Query is a linear operator applied to a clique's flattened count vector
// before it is observed.
type Query interface {
	// Matvec applies the operator to a count vector.
	Matvec(x []float64) []float64
	// MatvecT applies the transposed operator, mapping observation-space
	// residuals back to count space.
	MatvecT(y []float64) []float64
}

// Identity is the query that observes the count vector directly.
type Identity struct{}

// Matvec implements Query.
func (Identity) Matvec(x []float64) []float64 { return slices.Clone(x) }

// MatvecT implements Query.
func (Identity) MatvecT(y []float64) []float64 { return slices.Clone(y) }

// LinearMeasurement is one noisy observation of a linear function of a
// clique's marginal: Values ≈ Query(marginal) + Gaussian(0, Stddev) per
// coordinate. A nil Query means identity.
type LinearMeasurement struct {
	Values []float64
	Clique domain.Clique
	Stddev float64
	Query  Query
}

// NewLinearMeasurement returns an identity-query measurement.
func NewLinearMeasurement(values []float64, cl domain.Clique, stddev float64) LinearMeasurement {
	return LinearMeasurement{Values: values, Clique: cl, Stddev: stddev, Query: Identity{}}
}

// query resolves the measurement's operator, defaulting to identity.
func (m LinearMeasurement) query() Query {
	if m.Query == nil {
		return Identity{}
	}
	return m.Query
}

// ActsAsIdentity reports whether the measurement's query behaves as the
// identity on the measurement's own value vector. Queries that change the
// vector's length or content cannot be checked for identity and report
// false.
func (m LinearMeasurement) ActsAsIdentity() bool {
	out := m.query().Matvec(m.Values)
	if len(out) != len(m.Values) {
		return false
	}
	return floats.EqualApprox(out, m.Values, 1e-9)
}
