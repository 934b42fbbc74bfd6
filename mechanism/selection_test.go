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

	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/estimation"
	"github.com/jnear/private-pgm/factor"
	"github.com/jnear/private-pgm/marginal"
	"github.com/jnear/private-pgm/rand"
)

func binaryDomain(t *testing.T, attrs ...string) *domain.Domain {
	t.Helper()
	shape := make([]int, len(attrs))
	for i := range shape {
		shape[i] = 2
	}
	dom, err := domain.New(attrs, shape)
	if err != nil {
		t.Fatalf("domain.New failed: %v", err)
	}
	return dom
}

func uniformModel(t *testing.T, dom *domain.Domain, cliques []domain.Clique, total float64) *estimation.GraphicalModel {
	t.Helper()
	theta, err := marginal.Zeros(dom, cliques)
	if err != nil {
		t.Fatalf("marginal.Zeros failed: %v", err)
	}
	ms := make([]marginal.LinearMeasurement, len(cliques))
	for i, cl := range cliques {
		size, err := dom.Size(cl)
		if err != nil {
			t.Fatalf("Size failed: %v", err)
		}
		values := make([]float64, size)
		for j := range values {
			values[j] = total / float64(len(values))
		}
		ms[i] = marginal.NewLinearMeasurement(values, cl, 1.0)
	}
	model, err := estimation.MirrorDescent(dom, estimation.Measurements(ms), 0, &estimation.Options{KnownTotal: total, Potentials: theta})
	if err != nil {
		t.Fatalf("MirrorDescent failed: %v", err)
	}
	return model
}

func TestFilterCandidates(t *testing.T) {
	dom := binaryDomain(t, "a", "b", "c")
	modelCliques := []domain.Clique{domain.NewClique("a", "b")}
	candidates := []Candidate{
		{Clique: domain.NewClique("a"), Score: 1},
		{Clique: domain.NewClique("b", "c"), Score: 1},
	}

	// A clique inside an existing model clique passes any limit.
	got, err := FilterCandidates(dom, candidates, modelCliques, 1e-9)
	if err != nil {
		t.Fatalf("FilterCandidates failed: %v", err)
	}
	if len(got) != 1 || got[0].Clique.Key() != domain.NewClique("a").Key() {
		t.Errorf("FilterCandidates: with tight limit got %v, want only [a]", got)
	}

	// Adding (b,c) costs 8 cells of 8 bytes; a loose limit admits it.
	got, err = FilterCandidates(dom, candidates, modelCliques, 1.0)
	if err != nil {
		t.Fatalf("FilterCandidates failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("FilterCandidates: with loose limit got %d candidates, want 2", len(got))
	}
}

func TestWorstApproximatedPicksLargestGap(t *testing.T) {
	dom := binaryDomain(t, "a", "b")
	model := uniformModel(t, dom, []domain.Clique{domain.NewClique("a", "b")}, 100)

	domA, err := dom.Project(domain.NewClique("a"))
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	domB, err := dom.Project(domain.NewClique("b"))
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	skewed, err := factor.New(domA, []float64{90, 10})
	if err != nil {
		t.Fatalf("factor.New failed: %v", err)
	}
	balanced, err := factor.New(domB, []float64{50, 50})
	if err != nil {
		t.Fatalf("factor.New failed: %v", err)
	}

	candidates := []Candidate{
		{Clique: domain.NewClique("a"), Score: 1},
		{Clique: domain.NewClique("b"), Score: 1},
	}
	answers := map[string]*factor.Factor{
		domain.NewClique("a").Key(): skewed,
		domain.NewClique("b").Key(): balanced,
	}

	// At rho=50 the utility gap dwarfs the Gumbel noise, so the skewed
	// marginal wins every time.
	rng := rand.NewSeeded(7)
	for i := 0; i < 20; i++ {
		picked, err := WorstApproximated(candidates, answers, model, 50, rng)
		if err != nil {
			t.Fatalf("WorstApproximated failed: %v", err)
		}
		if picked.Key() != domain.NewClique("a").Key() {
			t.Errorf("WorstApproximated: draw %d picked %v, want [a]", i, picked)
		}
	}
}

func TestWorstApproximatedZeroScores(t *testing.T) {
	dom := binaryDomain(t, "a", "b")
	model := uniformModel(t, dom, []domain.Clique{domain.NewClique("a", "b")}, 100)

	domA, err := dom.Project(domain.NewClique("a"))
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	truth, err := factor.New(domA, []float64{90, 10})
	if err != nil {
		t.Fatalf("factor.New failed: %v", err)
	}

	candidates := []Candidate{{Clique: domain.NewClique("a"), Score: 0}}
	answers := map[string]*factor.Factor{domain.NewClique("a").Key(): truth}

	picked, err := WorstApproximated(candidates, answers, model, 1, rand.NewSeeded(1))
	if err != nil {
		t.Fatalf("WorstApproximated failed: %v", err)
	}
	if picked.Key() != domain.NewClique("a").Key() {
		t.Errorf("WorstApproximated: got %v, want [a]", picked)
	}
}

func TestWorstApproximatedValidation(t *testing.T) {
	dom := binaryDomain(t, "a", "b")
	model := uniformModel(t, dom, []domain.Clique{domain.NewClique("a", "b")}, 100)
	rng := rand.NewSeeded(1)

	if _, err := WorstApproximated(nil, nil, model, 1, rng); err == nil {
		t.Errorf("WorstApproximated: with no candidates got nil error, want error")
	}
	candidates := []Candidate{{Clique: domain.NewClique("a"), Score: 1}}
	if _, err := WorstApproximated(candidates, map[string]*factor.Factor{}, model, 1, rng); err == nil {
		t.Errorf("WorstApproximated: with missing answer got nil error, want error")
	}
	if _, err := WorstApproximated(candidates, nil, model, 0, rng); err == nil {
		t.Errorf("WorstApproximated: with zero rho got nil error, want error")
	}
}
