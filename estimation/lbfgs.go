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

package estimation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/jnear/private-pgm/checks"
	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/factor"
	"github.com/jnear/private-pgm/marginal"
)

// flatten concatenates the factor data of v in canonical clique order.
func flatten(v *marginal.CliqueVector) []float64 {
	out := make([]float64, 0, int(v.Size()))
	for _, cl := range v.Cliques() {
		f, _ := v.Factor(cl)
		out = append(out, f.DataVector()...)
	}
	return out
}

// unflatten rebuilds a vector shaped like template from a flat slice.
func unflatten(template *marginal.CliqueVector, x []float64) (*marginal.CliqueVector, error) {
	cliques := template.Cliques()
	factors := make([]*factor.Factor, len(cliques))
	off := 0
	for i, cl := range cliques {
		f, _ := template.Factor(cl)
		n := len(f.DataVector())
		if off+n > len(x) {
			return nil, fmt.Errorf("estimation: flat vector too short: %d < %d", len(x), off+n)
		}
		nf, err := factor.New(f.Domain(), x[off:off+n])
		if err != nil {
			return nil, err
		}
		factors[i] = nf
		off += n
	}
	if off != len(x) {
		return nil, fmt.Errorf("estimation: flat vector too long: %d > %d", len(x), off)
	}
	return marginal.FromFactors(cliques, factors)
}

// LBFGS minimizes the objective with limited-memory BFGS over the
// flattened potentials, differentiating through the marginal oracle.
func LBFGS(dom *domain.Domain, obj Objective, iters int, opts *Options) (*GraphicalModel, error) {
	if err := checks.CheckIterations(iters); err != nil {
		return nil, err
	}
	p, err := newProblem(dom, obj, opts)
	if err != nil {
		return nil, err
	}

	// optimize.Problem closures cannot return errors; the first one wins
	// and poisons subsequent evaluations.
	var innerErr error
	fail := func(err error) {
		if innerErr == nil {
			innerErr = err
		}
	}

	fn := func(x []float64) float64 {
		if innerErr != nil {
			return math.Inf(1)
		}
		theta, err := unflatten(p.theta, x)
		if err != nil {
			fail(err)
			return math.Inf(1)
		}
		mu, err := p.engine.Marginals(theta, p.total)
		if err != nil {
			fail(err)
			return math.Inf(1)
		}
		loss, _, err := p.loss.ValueAndGrad(mu)
		if err != nil {
			fail(err)
			return math.Inf(1)
		}
		p.opts.callback(mu)
		return loss
	}
	grad := func(g, x []float64) {
		if innerErr != nil {
			return
		}
		theta, err := unflatten(p.theta, x)
		if err != nil {
			fail(err)
			return
		}
		mu, pullback, err := p.engine.MarginalsVJP(theta, p.total)
		if err != nil {
			fail(err)
			return
		}
		_, mubar, err := p.loss.ValueAndGrad(mu)
		if err != nil {
			fail(err)
			return
		}
		thetaBar, err := pullback(mubar)
		if err != nil {
			fail(err)
			return
		}
		copy(g, flatten(thetaBar))
	}

	settings := &optimize.Settings{MajorIterations: iters}
	method := &optimize.LBFGS{
		Store:        1,
		Linesearcher: &optimize.Backtracking{},
	}
	result, err := optimize.Minimize(optimize.Problem{Func: fn, Grad: grad}, flatten(p.theta), settings, method)
	if innerErr != nil {
		return nil, innerErr
	}
	if err != nil && (result == nil || result.Status != optimize.IterationLimit) {
		return nil, fmt.Errorf("estimation: lbfgs failed: %w", err)
	}

	theta, err := unflatten(p.theta, result.X)
	if err != nil {
		return nil, err
	}
	return p.model(theta, nil)
}
