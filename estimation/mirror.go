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

	"github.com/golang/glog"

	"github.com/jnear/private-pgm/domain"
)

// DefaultIters is a reasonable iteration count for the iterative solvers.
const DefaultIters = 1000

// MirrorDescent minimizes the objective with entropic mirror descent: each
// step moves the potentials against the marginal-space gradient and maps
// back through the oracle. Unless Options.StepSize fixes the step, an
// Armijo test guards each step, halving alpha on rejection; alpha never
// increases, so the loss is non-increasing across iterations. iters may be
// zero, in which case the starting potentials come back unchanged.
func MirrorDescent(dom *domain.Domain, obj Objective, iters int, opts *Options) (*GraphicalModel, error) {
	if iters < 0 {
		return nil, fmt.Errorf("estimation: iters is %d, must be nonnegative", iters)
	}
	p, err := newProblem(dom, obj, opts)
	if err != nil {
		return nil, err
	}

	theta := p.theta
	alpha := 2.0
	fixedStep := p.opts.StepSize > 0
	if fixedStep {
		alpha = p.opts.StepSize
	}

	mu, err := p.engine.Marginals(theta, p.total)
	if err != nil {
		return nil, err
	}
	for t := 0; t < iters; t++ {
		loss, grad, err := p.loss.ValueAndGrad(mu)
		if err != nil {
			return nil, err
		}
		next, err := theta.Minus(grad.Scale(alpha))
		if err != nil {
			return nil, err
		}
		muNext, err := p.engine.Marginals(next, p.total)
		if err != nil {
			return nil, err
		}
		if fixedStep {
			theta, mu = next, muNext
			p.opts.callback(mu)
			continue
		}
		lossNext, _, err := p.loss.ValueAndGrad(muNext)
		if err != nil {
			return nil, err
		}
		diff, err := mu.Minus(muNext)
		if err != nil {
			return nil, err
		}
		decrease, err := grad.Dot(diff)
		if err != nil {
			return nil, err
		}
		if loss-lossNext >= 0.5*alpha*decrease {
			theta, mu = next, muNext
		} else {
			alpha *= 0.5
			glog.V(2).Infof("mirror descent: step rejected at iteration %d, alpha now %g", t, alpha)
		}
		p.opts.callback(mu)
	}
	return p.model(theta, mu)
}
