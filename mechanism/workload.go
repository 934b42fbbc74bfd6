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
	"github.com/jnear/private-pgm/domain"
)

// WeightedClique is one workload entry: a marginal the caller cares about
// and how much.
type WeightedClique struct {
	Clique domain.Clique
	Weight float64
}

// Candidate is a measurable clique with its workload-derived score.
type Candidate struct {
	Clique domain.Clique
	Score  float64
}

// CompileWorkload expands a workload into the candidate pool: the downward
// closure of the workload cliques, each scored by how many attributes it
// shares with each workload clique, weighted. Candidates come back in
// canonical order, smallest first.
func CompileWorkload(workload []WeightedClique) []Candidate {
	cliques := make([]domain.Clique, len(workload))
	for i, w := range workload {
		cliques[i] = w.Clique
	}
	closure := domain.DownwardClosure(cliques)

	out := make([]Candidate, 0, len(closure))
	for _, cand := range closure {
		var score float64
		for _, w := range workload {
			score += w.Weight * float64(len(cand.Intersect(w.Clique)))
		}
		out = append(out, Candidate{Clique: cand, Score: score})
	}
	return out
}
