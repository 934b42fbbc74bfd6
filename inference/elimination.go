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

package inference

import (
	"fmt"

	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/factor"
	"github.com/jnear/private-pgm/junction"
	"github.com/jnear/private-pgm/marginal"
)

// VariableElimination computes the exact marginal of the log-linear model
// defined by the potentials on an arbitrary target clique, by bucket
// elimination in log space. It is the fallback for projection queries not
// covered by any stored marginal.
func VariableElimination(theta *marginal.CliqueVector, target domain.Clique, total float64) (*factor.Factor, error) {
	dom, err := theta.Domain()
	if err != nil {
		return nil, err
	}
	for _, a := range target {
		if !dom.Has(a) {
			return nil, fmt.Errorf("inference: unknown attribute %q in projection target", a)
		}
	}

	// Reuse the triangulation heuristic for a good elimination order.
	cliques := append(theta.Cliques(), target)
	tree, err := junction.Build(dom, cliques)
	if err != nil {
		return nil, err
	}

	active := make([]*factor.Factor, 0, len(cliques))
	for _, cl := range theta.Cliques() {
		f, _ := theta.Factor(cl)
		active = append(active, f)
	}

	for _, attr := range tree.EliminationOrder() {
		if target.Contains(attr) {
			continue
		}
		var bucket []*factor.Factor
		var rest []*factor.Factor
		scope := domain.NewClique()
		for _, f := range active {
			if f.Domain().Has(attr) {
				bucket = append(bucket, f)
				scope = scope.Union(f.Domain().AttrClique())
			} else {
				rest = append(rest, f)
			}
		}
		if len(bucket) == 0 {
			continue
		}
		scopeDom, err := dom.Project(scope)
		if err != nil {
			return nil, err
		}
		combined := factor.Zeros(scopeDom)
		for _, f := range bucket {
			expanded, err := f.Expand(scopeDom)
			if err != nil {
				return nil, err
			}
			if err := combined.AddAssign(expanded); err != nil {
				return nil, err
			}
		}
		msg, err := combined.LogSumExpProject(complementOf(attr, scope))
		if err != nil {
			return nil, err
		}
		active = append(rest, msg)
	}

	targetDom, err := dom.Project(target)
	if err != nil {
		return nil, err
	}
	belief := factor.Zeros(targetDom)
	for _, f := range active {
		expanded, err := f.Expand(targetDom)
		if err != nil {
			return nil, err
		}
		if err := belief.AddAssign(expanded); err != nil {
			return nil, err
		}
	}
	return belief.Normalize(1, true).Exp().Scale(total), nil
}

// complementOf returns scope minus the single attribute attr.
func complementOf(attr string, scope domain.Clique) domain.Clique {
	out := make(domain.Clique, 0, len(scope))
	for _, a := range scope {
		if a != attr {
			out = append(out, a)
		}
	}
	return out
}
