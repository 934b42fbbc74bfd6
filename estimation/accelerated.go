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
	"math"

	"github.com/jnear/private-pgm/checks"
	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/marginal"
)

// DualAveraging minimizes the objective with Nesterov's weighted dual
// averaging. lipschitz must bound the loss gradient's Lipschitz constant
// with respect to the marginals. The returned model carries the averaged
// marginal iterate and the last computed potentials.
func DualAveraging(dom *domain.Domain, obj Objective, lipschitz float64, iters int, opts *Options) (*GraphicalModel, error) {
	if err := checks.CheckLipschitz(lipschitz); err != nil {
		return nil, err
	}
	if err := checks.CheckIterations(iters); err != nil {
		return nil, err
	}
	p, err := newProblem(dom, obj, opts)
	if err != nil {
		return nil, err
	}

	theta := p.theta
	w, err := p.engine.Marginals(theta, p.total)
	if err != nil {
		return nil, err
	}
	v := w
	gbar, err := marginal.Zeros(dom, theta.Cliques())
	if err != nil {
		return nil, err
	}
	for t := 1; t <= iters; t++ {
		c := 2.0 / float64(t+1)
		u, err := w.Scale(1 - c).Plus(v.Scale(c))
		if err != nil {
			return nil, err
		}
		_, g, err := p.loss.ValueAndGrad(u)
		if err != nil {
			return nil, err
		}
		gbar, err = gbar.Scale(1 - c).Plus(g.Scale(c))
		if err != nil {
			return nil, err
		}
		tf := float64(t)
		theta = gbar.Scale(-tf * (tf + 1) / (4 * lipschitz) / p.total)
		v, err = p.engine.Marginals(theta, p.total)
		if err != nil {
			return nil, err
		}
		w, err = w.Scale(1 - c).Plus(v.Scale(c))
		if err != nil {
			return nil, err
		}
		p.opts.callback(w)
	}
	return p.model(theta, w)
}

// InteriorGradient minimizes the objective with the accelerated interior
// gradient scheme of Auslender and Teboulle, using the entropic prox. The
// returned model carries the averaged marginal iterate and the last
// computed potentials.
func InteriorGradient(dom *domain.Domain, obj Objective, lipschitz float64, iters int, opts *Options) (*GraphicalModel, error) {
	if err := checks.CheckLipschitz(lipschitz); err != nil {
		return nil, err
	}
	if err := checks.CheckIterations(iters); err != nil {
		return nil, err
	}
	p, err := newProblem(dom, obj, opts)
	if err != nil {
		return nil, err
	}

	theta := p.theta
	x, err := p.engine.Marginals(theta, p.total)
	if err != nil {
		return nil, err
	}
	z := x
	c := 1.0
	l := 1.0 / lipschitz
	for t := 0; t < iters; t++ {
		a := (math.Sqrt((c*l)*(c*l)+4*c*l) - c*l) / 2
		y, err := x.Scale(1 - a).Plus(z.Scale(a))
		if err != nil {
			return nil, err
		}
		c *= 1 - a
		_, g, err := p.loss.ValueAndGrad(y)
		if err != nil {
			return nil, err
		}
		theta, err = theta.Minus(g.Scale(a / c / p.total))
		if err != nil {
			return nil, err
		}
		z, err = p.engine.Marginals(theta, p.total)
		if err != nil {
			return nil, err
		}
		x, err = x.Scale(1 - a).Plus(z.Scale(a))
		if err != nil {
			return nil, err
		}
		p.opts.callback(x)
	}
	return p.model(theta, x)
}
