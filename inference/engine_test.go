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
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/jnear/private-pgm/domain"
	"github.com/jnear/private-pgm/factor"
	"github.com/jnear/private-pgm/marginal"
	"github.com/jnear/private-pgm/rand"
)

func testDomain(t *testing.T) *domain.Domain {
	t.Helper()
	d, err := domain.New([]string{"a", "b", "c"}, []int{2, 3, 2})
	if err != nil {
		t.Fatalf("domain.New failed: %v", err)
	}
	return d
}

// bruteForceMarginals materializes the full joint exp-normalized from the
// summed log potentials and projects it onto the model cliques.
func bruteForceMarginals(t *testing.T, dom *domain.Domain, theta *marginal.CliqueVector, total float64) *marginal.CliqueVector {
	t.Helper()
	logJoint := factor.Zeros(dom)
	for _, cl := range theta.Cliques() {
		f, _ := theta.Factor(cl)
		expanded, err := f.Expand(dom)
		if err != nil {
			t.Fatalf("Expand failed: %v", err)
		}
		if err := logJoint.AddAssign(expanded); err != nil {
			t.Fatalf("AddAssign failed: %v", err)
		}
	}
	joint := logJoint.AddScalar(-logJoint.LogSumExp()).Exp().Scale(total)

	cliques := theta.Cliques()
	factors := make([]*factor.Factor, len(cliques))
	for i, cl := range cliques {
		proj, err := joint.Project(cl)
		if err != nil {
			t.Fatalf("Project failed: %v", err)
		}
		factors[i] = proj
	}
	mu, err := marginal.FromFactors(cliques, factors)
	if err != nil {
		t.Fatalf("FromFactors failed: %v", err)
	}
	return mu
}

func compareVectors(t *testing.T, desc string, want, got *marginal.CliqueVector, tol float64) {
	t.Helper()
	for _, cl := range want.Cliques() {
		w, _ := want.Factor(cl)
		g, ok := got.Factor(cl)
		if !ok {
			t.Errorf("%s: missing clique %v", desc, cl)
			continue
		}
		if diff := cmp.Diff(w.DataVector(), g.DataVector(), cmpopts.EquateApprox(tol, tol)); diff != "" {
			t.Errorf("%s: clique %v mismatch (-want +got):\n%s", desc, cl, diff)
		}
	}
}

func TestMarginalsMatchBruteForce(t *testing.T) {
	dom := testDomain(t)
	cliques := []domain.Clique{domain.NewClique("a", "b"), domain.NewClique("b", "c")}
	rng := rand.NewSeeded(5)
	theta, err := marginal.Normal(dom, cliques, rng)
	if err != nil {
		t.Fatalf("Normal failed: %v", err)
	}

	engine, err := NewEngine(dom, cliques)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	const total = 250.0
	got, err := engine.Marginals(theta, total)
	if err != nil {
		t.Fatalf("Marginals failed: %v", err)
	}
	want := bruteForceMarginals(t, dom, theta, total)
	compareVectors(t, "Marginals", want, got, 1e-9)
}

func TestMarginalsDisconnectedComponents(t *testing.T) {
	dom := testDomain(t)
	cliques := []domain.Clique{domain.NewClique("a"), domain.NewClique("b", "c")}
	rng := rand.NewSeeded(9)
	theta, err := marginal.Normal(dom, cliques, rng)
	if err != nil {
		t.Fatalf("Normal failed: %v", err)
	}

	engine, err := NewEngine(dom, cliques)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	got, err := engine.Marginals(theta, 100)
	if err != nil {
		t.Fatalf("Marginals failed: %v", err)
	}
	want := bruteForceMarginals(t, dom, theta, 100)
	compareVectors(t, "Marginals (disconnected)", want, got, 1e-9)
}

func TestMarginalsSumToTotal(t *testing.T) {
	dom := testDomain(t)
	cliques := []domain.Clique{domain.NewClique("a", "b"), domain.NewClique("b", "c")}
	rng := rand.NewSeeded(13)
	theta, err := marginal.Normal(dom, cliques, rng)
	if err != nil {
		t.Fatalf("Normal failed: %v", err)
	}
	engine, err := NewEngine(dom, cliques)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	mu, err := engine.Marginals(theta, 42)
	if err != nil {
		t.Fatalf("Marginals failed: %v", err)
	}
	for _, cl := range mu.Cliques() {
		f, _ := mu.Factor(cl)
		if got := f.Sum(); math.Abs(got-42) > 1e-9 {
			t.Errorf("marginal on %v sums to %v, want 42", cl, got)
		}
	}
}

func TestNodeMarginalsSumToTotal(t *testing.T) {
	dom := testDomain(t)
	cliques := []domain.Clique{domain.NewClique("a", "b"), domain.NewClique("b", "c")}
	rng := rand.NewSeeded(17)
	theta, err := marginal.Normal(dom, cliques, rng)
	if err != nil {
		t.Fatalf("Normal failed: %v", err)
	}
	engine, err := NewEngine(dom, cliques)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	beliefs, err := engine.NodeMarginals(theta, 10)
	if err != nil {
		t.Fatalf("NodeMarginals failed: %v", err)
	}
	for i, b := range beliefs {
		if got := b.Sum(); math.Abs(got-10) > 1e-9 {
			t.Errorf("node %d belief sums to %v, want 10", i, got)
		}
	}
}

// lossAt evaluates the linear functional L(theta) = <c, oracle(theta, total)>
// used by the finite-difference check.
func lossAt(t *testing.T, engine *Engine, theta, cotangent *marginal.CliqueVector, total float64) float64 {
	t.Helper()
	mu, err := engine.Marginals(theta, total)
	if err != nil {
		t.Fatalf("Marginals failed: %v", err)
	}
	v, err := mu.Dot(cotangent)
	if err != nil {
		t.Fatalf("Dot failed: %v", err)
	}
	return v
}

func TestVJPMatchesFiniteDifferences(t *testing.T) {
	dom, err := domain.New([]string{"a", "b"}, []int{2, 2})
	if err != nil {
		t.Fatalf("domain.New failed: %v", err)
	}
	cliques := []domain.Clique{domain.NewClique("a"), domain.NewClique("a", "b")}
	rng := rand.NewSeeded(23)
	theta, err := marginal.Normal(dom, cliques, rng)
	if err != nil {
		t.Fatalf("Normal failed: %v", err)
	}
	cotangent, err := marginal.Normal(dom, cliques, rng)
	if err != nil {
		t.Fatalf("Normal failed: %v", err)
	}
	engine, err := NewEngine(dom, cliques)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	const total = 3.0

	_, pullback, err := engine.MarginalsVJP(theta, total)
	if err != nil {
		t.Fatalf("MarginalsVJP failed: %v", err)
	}
	grad, err := pullback(cotangent)
	if err != nil {
		t.Fatalf("pullback failed: %v", err)
	}

	const eps = 1e-6
	for _, cl := range cliques {
		base, _ := theta.Factor(cl)
		gradF, _ := grad.Factor(cl)
		gradVals := gradF.DataVector()
		vals := base.DataVector()
		for i := range vals {
			perturbed := func(delta float64) *marginal.CliqueVector {
				out := theta.Clone()
				f, _ := out.Factor(cl)
				bump := make([]float64, len(vals))
				bump[i] = delta
				bumpF, err := factor.New(f.Domain(), bump)
				if err != nil {
					t.Fatalf("factor.New failed: %v", err)
				}
				if err := f.AddAssign(bumpF); err != nil {
					t.Fatalf("AddAssign failed: %v", err)
				}
				return out
			}
			up := lossAt(t, engine, perturbed(eps), cotangent, total)
			down := lossAt(t, engine, perturbed(-eps), cotangent, total)
			fd := (up - down) / (2 * eps)
			if math.Abs(fd-gradVals[i]) > 1e-4 {
				t.Errorf("VJP on %v cell %d: got %v, finite difference %v", cl, i, gradVals[i], fd)
			}
		}
	}
}
