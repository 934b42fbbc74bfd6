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

package noise

import (
	"math"
	rand "math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/jnear/private-pgm/checks"
)

// GaussianSigma returns the standard deviation of Gaussian noise that makes
// a query with the given L2 sensitivity ρ-zCDP: σ = sensitivity / √(2ρ).
func GaussianSigma(sensitivity, rho float64) (float64, error) {
	if err := checks.CheckSensitivity(sensitivity); err != nil {
		return 0, err
	}
	if err := checks.CheckRhoStrict(rho); err != nil {
		return 0, err
	}
	return sensitivity / math.Sqrt(2*rho), nil
}

// AddGaussian returns a copy of values with independent Gaussian noise of
// scale sigma added to every coordinate.
func AddGaussian(values []float64, sigma float64, rng *rand.Rand) []float64 {
	dist := distuv.Normal{Mu: 0, Sigma: sigma, Src: rng}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v + dist.Rand()
	}
	return out
}
