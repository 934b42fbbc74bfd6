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
	"math"
	rand "math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jnear/private-pgm/checks"
	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/estimation"
	"github.com/jnear/private-pgm/factor"
	"github.com/jnear/private-pgm/junction"
)

// FilterCandidates keeps the candidates the model can afford: those whose
// addition keeps the triangulated model size at or below sizeLimit
// megabytes, plus those already representable inside an existing model
// clique, which cost nothing.
func FilterCandidates(dom *domain.Domain, candidates []Candidate, modelCliques []domain.Clique, sizeLimit float64) ([]Candidate, error) {
	free := make(map[string]bool)
	for _, cl := range domain.DownwardClosure(modelCliques) {
		free[cl.Key()] = true
	}

	var out []Candidate
	for _, cand := range candidates {
		if free[cand.Clique.Key()] {
			out = append(out, cand)
			continue
		}
		hypothetical := make([]domain.Clique, 0, len(modelCliques)+1)
		hypothetical = append(hypothetical, modelCliques...)
		hypothetical = append(hypothetical, cand.Clique)
		cost, err := junction.ModelSizeMB(dom, hypothetical)
		if err != nil {
			return nil, err
		}
		if cost <= sizeLimit {
			out = append(out, cand)
		}
	}
	return out, nil
}

// WorstApproximated privately picks the candidate the model approximates
// worst. Each candidate's utility is its score times the L1 gap between
// the true marginal and the model's estimate, less the noise floor
// sqrt(2/pi)*sigma per cell the measurement itself would incur. One
// candidate is drawn with the exponential mechanism at epsilon =
// sqrt(8*rho), implemented by Gumbel perturbation; when every score is
// zero the utilities carry no signal and the draw is uniform.
func WorstApproximated(candidates []Candidate, answers map[string]*factor.Factor, model *estimation.GraphicalModel, rho float64, rng *rand.Rand) (domain.Clique, error) {
	if len(candidates) == 0 {
		return nil, errors.New("mechanism: no candidates to select from")
	}
	if err := checks.CheckRhoStrict(rho); err != nil {
		return nil, err
	}

	sigma := 1 / math.Sqrt(2*rho)
	var sensitivity float64
	utilities := make([]float64, len(candidates))
	for i, cand := range candidates {
		truth, ok := answers[cand.Clique.Key()]
		if !ok {
			return nil, fmt.Errorf("mechanism: no answer for candidate %v", cand.Clique)
		}
		estimate, err := model.Project(cand.Clique)
		if err != nil {
			return nil, err
		}
		gap, err := truth.L1(estimate)
		if err != nil {
			return nil, err
		}
		bias := math.Sqrt(2/math.Pi) * sigma * float64(len(truth.DataVector()))
		utilities[i] = cand.Score * (gap - bias)
		if w := math.Abs(cand.Score); w > sensitivity {
			sensitivity = w
		}
	}

	if sensitivity == 0 {
		return candidates[rng.IntN(len(candidates))].Clique, nil
	}

	epsilon := math.Sqrt(8 * rho)
	coef := epsilon / (2 * sensitivity)
	gumbel := distuv.GumbelRight{Mu: 0, Beta: 1, Src: rng}
	best, bestKey := 0, math.Inf(-1)
	for i, u := range utilities {
		if key := coef*u + gumbel.Rand(); key > bestKey {
			best, bestKey = i, key
		}
	}
	return candidates[best].Clique, nil
}
