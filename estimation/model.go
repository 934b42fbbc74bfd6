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

// Package estimation fits graphical models to noisy marginal measurements.
//
// The solvers minimize a convex loss over the marginal polytope by moving
// in the space of log-space potentials and mapping back to marginals with
// the junction-tree oracle from the inference package. All of them accept
// either a list of linear measurements or a custom loss, and return a
// fitted GraphicalModel.
package estimation

import (
	"errors"
	"fmt"

	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/factor"
	"github.com/jnear/private-pgm/inference"
	"github.com/jnear/private-pgm/marginal"
)

// GraphicalModel is a fitted model: log-space potentials theta, the
// marginals mu = oracle(theta, total) they induce, and the total count.
// It is immutable after construction.
type GraphicalModel struct {
	potentials *marginal.CliqueVector
	marginals  *marginal.CliqueVector
	total      float64
}

// NewGraphicalModel wraps potentials and their marginals. The two vectors
// must share a key set.
func NewGraphicalModel(potentials, marginals *marginal.CliqueVector, total float64) (*GraphicalModel, error) {
	if potentials == nil || marginals == nil {
		return nil, errors.New("estimation: nil potentials or marginals")
	}
	if _, err := potentials.Dot(marginals); err != nil {
		return nil, fmt.Errorf("estimation: potentials and marginals disagree: %w", err)
	}
	return &GraphicalModel{potentials: potentials, marginals: marginals, total: total}, nil
}

// Potentials returns the log-space potentials.
func (m *GraphicalModel) Potentials() *marginal.CliqueVector {
	return m.potentials
}

// Marginals returns the clique marginals induced by the potentials.
func (m *GraphicalModel) Marginals() *marginal.CliqueVector {
	return m.marginals
}

// Total returns the total count the marginals are normalized to.
func (m *GraphicalModel) Total() float64 {
	return m.total
}

// Cliques returns the model cliques in canonical order.
func (m *GraphicalModel) Cliques() []domain.Clique {
	return m.marginals.Cliques()
}

// Domain returns the union of the model cliques' domains.
func (m *GraphicalModel) Domain() (*domain.Domain, error) {
	return m.marginals.Domain()
}

// Project answers the marginal query for cl. Cliques covered by a model
// clique are answered from the stored marginals; anything else falls back
// to exact variable elimination over the potentials.
func (m *GraphicalModel) Project(cl domain.Clique) (*factor.Factor, error) {
	out, err := m.marginals.Project(cl)
	if err == nil {
		return out, nil
	}
	if !errors.Is(err, marginal.ErrNoCoveringClique) {
		return nil, err
	}
	return inference.VariableElimination(m.potentials, cl, m.total)
}
