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

package mechanism

import (
	"errors"
	"fmt"
	rand "math/rand/v2"

	"github.com/golang/glog"

	"github.com/jnear/private-pgm/checks"
	"github.com/jnear/private-pgm/dataset"
	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/estimation"
	"github.com/jnear/private-pgm/factor"
	"github.com/jnear/private-pgm/marginal"
	"github.com/jnear/private-pgm/noise"
	"github.com/jnear/private-pgm/synth"
)

// marginalSensitivity is the L2 sensitivity of a contingency vector under
// add/remove-one-record neighboring.
const marginalSensitivity = 1.0

// AIMOptions configures the mechanism. The zero value asks for defaults.
type AIMOptions struct {
	// Rounds caps the number of adaptive rounds. Defaults to 16 times
	// the number of domain attributes.
	Rounds int
	// MaxModelSize is the model-size budget in megabytes. Defaults to 80.
	MaxModelSize float64
	// MaxIters is the mirror-descent iteration count per refit.
	// Defaults to 1000.
	MaxIters int
}

// AIM is the adaptive iterative mechanism: it alternates privately
// selecting the workload marginal the current model approximates worst
// with measuring it, under a fixed zCDP budget.
type AIM struct {
	rho  float64
	opts AIMOptions
}

// NewAIM derives the zCDP budget from an (epsilon, delta) guarantee.
func NewAIM(epsilon, delta float64, opts *AIMOptions) (*AIM, error) {
	if err := checks.CheckEpsilonStrict(epsilon); err != nil {
		return nil, err
	}
	if err := checks.CheckDeltaStrict(delta); err != nil {
		return nil, err
	}
	a := &AIM{}
	if opts != nil {
		a.opts = *opts
	}
	if a.opts.MaxModelSize == 0 {
		a.opts.MaxModelSize = 80
	}
	if err := checks.CheckModelSize(a.opts.MaxModelSize); err != nil {
		return nil, err
	}
	if a.opts.MaxIters == 0 {
		a.opts.MaxIters = estimation.DefaultIters
	}
	if err := checks.CheckIterations(a.opts.MaxIters); err != nil {
		return nil, err
	}
	rho, err := noise.CdpRho(epsilon, delta)
	if err != nil {
		return nil, err
	}
	a.rho = rho
	return a, nil
}

// Rho returns the total zCDP budget the mechanism will spend.
func (a *AIM) Rho() float64 {
	return a.rho
}

// Result is everything a completed run produces.
type Result struct {
	Model        *estimation.GraphicalModel
	Synthetic    *dataset.Dataset
	Measurements []marginal.LinearMeasurement
	Accountant   *Accountant
}

// Run executes the mechanism against data for the given workload and
// returns the fitted model plus synthRows synthetic records (defaulting
// to the input size). initialCliques override the one-way marginals
// measured in the opening round. Each call spends a fresh budget; the
// returned accountant reports what was used.
func (a *AIM) Run(data *dataset.Dataset, workload []WeightedClique, synthRows int, initialCliques []domain.Clique, rng *rand.Rand) (*Result, error) {
	if len(workload) == 0 {
		return nil, errors.New("mechanism: empty workload")
	}
	acct, err := NewAccountant(a.rho)
	if err != nil {
		return nil, err
	}
	dom := data.Domain()

	initial := initialCliques
	if len(initial) == 0 {
		for _, attr := range dom.Attrs() {
			initial = append(initial, domain.NewClique(attr))
		}
	}

	// Opening round: measure the initial cliques on 5% of the budget.
	rhoOneway := 0.05 * a.rho / float64(len(initial))
	var measurements []marginal.LinearMeasurement
	for _, cl := range initial {
		m, err := a.measure(data, cl, rhoOneway, acct, rng)
		if err != nil {
			return nil, err
		}
		measurements = append(measurements, m)
	}
	glog.V(1).Infof("aim: one-way round measured %d cliques, estimated total %.1f",
		len(initial), estimation.MinimumVarianceUnbiasedTotal(measurements))

	// Each refit re-derives the total estimate from the full measurement
	// list, so it sharpens as identity measurements accumulate.
	model, err := estimation.MirrorDescent(dom, estimation.Measurements(measurements), a.opts.MaxIters, nil)
	if err != nil {
		return nil, err
	}

	candidates := CompileWorkload(workload)
	answers := make(map[string]*factor.Factor, len(candidates))
	for _, cand := range candidates {
		truth, err := data.Project(cand.Clique)
		if err != nil {
			return nil, err
		}
		answers[cand.Clique.Key()] = truth
	}

	rounds := len(workload) / 4
	if rounds < 1 {
		rounds = 1
	}
	maxRounds := a.opts.Rounds
	if maxRounds == 0 {
		maxRounds = 16 * dom.Len()
	}
	if rounds > maxRounds {
		rounds = maxRounds
	}
	rhoRound := 0.95 * a.rho / float64(rounds)

	for t := 1; t <= rounds; t++ {
		sizeLimit := a.opts.MaxModelSize * acct.Used() / a.rho
		filtered, err := FilterCandidates(dom, candidates, model.Cliques(), sizeLimit)
		if err != nil {
			return nil, err
		}
		if len(filtered) == 0 {
			return nil, fmt.Errorf("mechanism: no affordable candidate at round %d, size limit %.2fMB", t, sizeLimit)
		}

		if err := acct.Spend(rhoRound / 2); err != nil {
			return nil, err
		}
		chosen, err := WorstApproximated(filtered, answers, model, rhoRound/2, rng)
		if err != nil {
			return nil, err
		}

		m, err := a.measure(data, chosen, rhoRound/2, acct, rng)
		if err != nil {
			return nil, err
		}
		measurements = append(measurements, m)
		glog.V(1).Infof("aim: round %d/%d selected %v, budget used %.4f of %.4f", t, rounds, chosen, acct.Used(), a.rho)

		theta, err := model.Potentials().Expand(measuredCliques(measurements))
		if err != nil {
			return nil, err
		}
		model, err = estimation.MirrorDescent(dom, estimation.Measurements(measurements), a.opts.MaxIters, &estimation.Options{Potentials: theta})
		if err != nil {
			return nil, err
		}
	}

	// Final refit over the full measurement list, warm-started.
	model, err = estimation.MirrorDescent(dom, estimation.Measurements(measurements), a.opts.MaxIters, &estimation.Options{Potentials: model.Potentials()})
	if err != nil {
		return nil, err
	}

	rows := synthRows
	if rows <= 0 {
		rows = data.Records()
	}
	synthetic, err := synth.FromMarginals(model, dom, rows, rng)
	if err != nil {
		return nil, err
	}
	return &Result{Model: model, Synthetic: synthetic, Measurements: measurements, Accountant: acct}, nil
}

// measure answers the clique's marginal with Gaussian noise calibrated to
// rho and debits the accountant.
func (a *AIM) measure(data *dataset.Dataset, cl domain.Clique, rho float64, acct *Accountant, rng *rand.Rand) (marginal.LinearMeasurement, error) {
	sigma, err := noise.GaussianSigma(marginalSensitivity, rho)
	if err != nil {
		return marginal.LinearMeasurement{}, err
	}
	truth, err := data.Project(cl)
	if err != nil {
		return marginal.LinearMeasurement{}, err
	}
	if err := acct.Spend(rho); err != nil {
		return marginal.LinearMeasurement{}, err
	}
	values := noise.AddGaussian(truth.DataVector(), sigma, rng)
	return marginal.NewLinearMeasurement(values, cl, sigma), nil
}

// measuredCliques returns the distinct measurement cliques in canonical
// order.
func measuredCliques(measurements []marginal.LinearMeasurement) []domain.Clique {
	seen := make(map[string]bool)
	var out []domain.Clique
	for _, m := range measurements {
		if !seen[m.Clique.Key()] {
			seen[m.Clique.Key()] = true
			out = append(out, m.Clique)
		}
	}
	domain.SortCliques(out)
	return out
}
