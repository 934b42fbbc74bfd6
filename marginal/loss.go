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
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/factor"
)

// LossFn is a differentiable convex function over the marginal polytope.
// ValueAndGrad returns the loss at mu together with its gradient, a
// CliqueVector with mu's key set. Implementations must accumulate each
// sub-gradient onto the covering clique that mu.Project would pick, so the
// gradient composes with the vector algebra.
type LossFn interface {
	// Cliques returns the cliques the loss depends on. A model whose
	// cliques cover these supports the loss.
	Cliques() []domain.Clique
	// ValueAndGrad evaluates the loss and its marginal-space gradient.
	ValueAndGrad(mu *CliqueVector) (float64, *CliqueVector, error)
}

// measurementLoss is the inverse-variance-weighted squared error of a list
// of linear measurements:
//
//	L(mu) = sum_M ||Q_M mu_cl - y_M||^2 / (2 sigma_M^2)
type measurementLoss struct {
	measurements []LinearMeasurement
	cliques      []domain.Clique
}

// FromLinearMeasurements builds the canonical loss function for a list of
// noisy measurements.
func FromLinearMeasurements(measurements []LinearMeasurement) (LossFn, error) {
	if len(measurements) == 0 {
		return nil, errors.New("marginal: no measurements supplied")
	}
	seen := make(map[string]bool)
	var cliques []domain.Clique
	for _, m := range measurements {
		if m.Stddev <= 0 {
			return nil, fmt.Errorf("marginal: measurement on %v has stddev %f, must be strictly positive", m.Clique, m.Stddev)
		}
		if !seen[m.Clique.Key()] {
			seen[m.Clique.Key()] = true
			cliques = append(cliques, m.Clique)
		}
	}
	domain.SortCliques(cliques)
	return &measurementLoss{measurements: measurements, cliques: cliques}, nil
}

// Cliques implements LossFn.
func (l *measurementLoss) Cliques() []domain.Clique {
	out := make([]domain.Clique, len(l.cliques))
	copy(out, l.cliques)
	return out
}

// ValueAndGrad implements LossFn.
func (l *measurementLoss) ValueAndGrad(mu *CliqueVector) (float64, *CliqueVector, error) {
	grad := mu.mapFactors(func(f *factor.Factor) *factor.Factor {
		return factor.Zeros(f.Domain())
	})
	var loss float64
	for _, m := range l.measurements {
		i := mu.covering(m.Clique)
		if i < 0 {
			return 0, nil, fmt.Errorf("%w: measurement on %v", ErrNoCoveringClique, m.Clique)
		}
		coverKey := mu.cliques[i].Key()
		proj, err := mu.factors[coverKey].Project(m.Clique)
		if err != nil {
			return 0, nil, err
		}
		x := proj.DataVector()
		residual := m.query().Matvec(x)
		if len(residual) != len(m.Values) {
			return 0, nil, fmt.Errorf("marginal: query on %v produced %d values, measurement has %d", m.Clique, len(residual), len(m.Values))
		}
		floats.Sub(residual, m.Values)
		w := 1.0 / (m.Stddev * m.Stddev)
		loss += 0.5 * w * floats.Dot(residual, residual)

		g := m.query().MatvecT(residual)
		if len(g) != len(x) {
			return 0, nil, fmt.Errorf("marginal: transposed query on %v produced %d values, want %d", m.Clique, len(g), len(x))
		}
		floats.Scale(w, g)
		gf, err := factor.New(proj.Domain(), g)
		if err != nil {
			return 0, nil, err
		}
		// Gradient of the projection: broadcast back onto the covering
		// clique.
		expanded, err := gf.Expand(grad.factors[coverKey].Domain())
		if err != nil {
			return 0, nil, err
		}
		if err := grad.factors[coverKey].AddAssign(expanded); err != nil {
			return 0, nil, err
		}
	}
	return loss, grad, nil
}
