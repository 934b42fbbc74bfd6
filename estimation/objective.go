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
	"errors"
	"fmt"

	"gonum.org/v1/gonum/floats"

	"github.com/jnear/private-pgm/checks"
	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/inference"
	"github.com/jnear/private-pgm/marginal"
)

// Objective is what a solver minimizes: either a list of noisy linear
// measurements, from which the canonical weighted L2 loss and a total
// estimate are derived, or a custom loss with a caller-supplied total.
type Objective struct {
	measurements []marginal.LinearMeasurement
	custom       marginal.LossFn
}

// Measurements builds an objective from noisy linear measurements.
func Measurements(measurements []marginal.LinearMeasurement) Objective {
	return Objective{measurements: measurements}
}

// Loss builds an objective around a custom loss function. Solvers given a
// custom loss require Options.KnownTotal, since no total can be inferred.
func Loss(fn marginal.LossFn) Objective {
	return Objective{custom: fn}
}

// Options tunes a solver run. The zero value asks for defaults.
type Options struct {
	// KnownTotal overrides the estimated total count when positive.
	KnownTotal float64
	// Potentials warm-starts the solver. Must cover every loss clique.
	// When nil the solver starts from zeros over the loss cliques.
	Potentials *marginal.CliqueVector
	// StepSize fixes the mirror-descent step; 0 enables line search.
	StepSize float64
	// Callback, when set, observes the marginal iterate once per
	// iteration.
	Callback func(mu *marginal.CliqueVector)
}

func (o *Options) callback(mu *marginal.CliqueVector) {
	if o != nil && o.Callback != nil {
		o.Callback(mu)
	}
}

// problem is the resolved solver input: a loss, a total, a starting point
// keyed by cliques covering every loss clique, and an oracle over them.
type problem struct {
	loss   marginal.LossFn
	total  float64
	theta  *marginal.CliqueVector
	engine *inference.Engine
	opts   *Options
}

func newProblem(dom *domain.Domain, obj Objective, opts *Options) (*problem, error) {
	if opts == nil {
		opts = &Options{}
	}
	p := &problem{opts: opts}

	switch {
	case obj.custom != nil:
		p.loss = obj.custom
		if opts.KnownTotal <= 0 {
			return nil, errors.New("estimation: custom loss requires Options.KnownTotal")
		}
	case len(obj.measurements) > 0:
		fn, err := marginal.FromLinearMeasurements(obj.measurements)
		if err != nil {
			return nil, err
		}
		p.loss = fn
	default:
		return nil, errors.New("estimation: empty objective")
	}

	p.total = opts.KnownTotal
	if p.total <= 0 {
		p.total = MinimumVarianceUnbiasedTotal(obj.measurements)
	}
	if err := checks.CheckTotal(p.total); err != nil {
		return nil, err
	}

	if opts.Potentials != nil {
		p.theta = opts.Potentials
		for _, cl := range p.loss.Cliques() {
			if !p.theta.Covers(cl) {
				return nil, fmt.Errorf("estimation: potentials do not cover loss clique %v", cl)
			}
		}
	} else {
		theta, err := marginal.Zeros(dom, p.loss.Cliques())
		if err != nil {
			return nil, err
		}
		p.theta = theta
	}

	engine, err := inference.NewEngine(dom, p.theta.Cliques())
	if err != nil {
		return nil, err
	}
	p.engine = engine
	return p, nil
}

// model finalizes a solver run into a GraphicalModel.
func (p *problem) model(theta, marginals *marginal.CliqueVector) (*GraphicalModel, error) {
	if marginals == nil {
		mu, err := p.engine.Marginals(theta, p.total)
		if err != nil {
			return nil, err
		}
		marginals = mu
	}
	return NewGraphicalModel(theta, marginals, p.total)
}

// MinimumVarianceUnbiasedTotal estimates the total count from the subset
// of measurements whose query acts as the identity: each such measurement
// sums to an unbiased total estimate with variance stddev^2 * len(values),
// and the estimates are combined by inverse-variance weighting. Returns 1
// when no measurement qualifies, and never less than 1.
func MinimumVarianceUnbiasedTotal(measurements []marginal.LinearMeasurement) float64 {
	var invVarSum, weighted float64
	for _, m := range measurements {
		if m.Stddev <= 0 || !m.ActsAsIdentity() {
			continue
		}
		variance := m.Stddev * m.Stddev * float64(len(m.Values))
		invVarSum += 1 / variance
		weighted += floats.Sum(m.Values) / variance
	}
	if invVarSum == 0 {
		return 1
	}
	estimate := weighted / invVarSum
	if estimate < 1 {
		return 1
	}
	return estimate
}
