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
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jnear/private-pgm/domain"
)

func TestCompileWorkloadSingleClique(t *testing.T) {
	got := CompileWorkload([]WeightedClique{
		{Clique: domain.NewClique("a", "b"), Weight: 1.0},
	})
	want := []Candidate{
		{Clique: domain.NewClique("a"), Score: 1},
		{Clique: domain.NewClique("b"), Score: 1},
		{Clique: domain.NewClique("a", "b"), Score: 2},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("CompileWorkload: candidate mismatch (-want +got):\n%s", diff)
	}
}

func TestCompileWorkloadOverlapAndWeights(t *testing.T) {
	got := CompileWorkload([]WeightedClique{
		{Clique: domain.NewClique("a", "b"), Weight: 1.0},
		{Clique: domain.NewClique("b", "c"), Weight: 2.0},
	})
	// b overlaps both workload cliques, so its candidates score higher.
	scores := make(map[string]float64, len(got))
	for _, cand := range got {
		scores[cand.Clique.Key()] = cand.Score
	}
	for _, tc := range []struct {
		clique domain.Clique
		want   float64
	}{
		{domain.NewClique("a"), 1},
		{domain.NewClique("b"), 3},
		{domain.NewClique("c"), 2},
		{domain.NewClique("a", "b"), 4},
		{domain.NewClique("b", "c"), 5},
	} {
		if gotScore, ok := scores[tc.clique.Key()]; !ok || gotScore != tc.want {
			t.Errorf("CompileWorkload: score of %v got %v, want %v", tc.clique, gotScore, tc.want)
		}
	}
}
