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
	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/marginal"
)

const mleIters = 150

// MLEFromMarginals fits potentials whose induced marginals maximize the
// likelihood of the given target marginals, by minimizing the cross
// entropy -<target, log mu> with LBFGS.
func MLEFromMarginals(target *marginal.CliqueVector, total float64) (*GraphicalModel, error) {
	dom, err := target.Domain()
	if err != nil {
		return nil, err
	}
	return LBFGS(dom, Loss(&mleLoss{target: target}), mleIters, &Options{KnownTotal: total})
}

type mleLoss struct {
	target *marginal.CliqueVector
}

func (l *mleLoss) Cliques() []domain.Clique {
	return l.target.Cliques()
}

func (l *mleLoss) ValueAndGrad(mu *marginal.CliqueVector) (float64, *marginal.CliqueVector, error) {
	value, err := l.target.Dot(mu.Log())
	if err != nil {
		return 0, nil, err
	}
	grad, err := l.target.Div(mu)
	if err != nil {
		return 0, nil, err
	}
	return -value, grad.Scale(-1), nil
}
