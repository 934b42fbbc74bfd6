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

package factor

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/jnear/private-pgm/domain"
)

func testDomain(t *testing.T, attrs []string, shape []int) *domain.Domain {
	t.Helper()
	d, err := domain.New(attrs, shape)
	if err != nil {
		t.Fatalf("domain.New(%v, %v) failed: %v", attrs, shape, err)
	}
	return d
}

func TestNewValidatesLength(t *testing.T) {
	d := testDomain(t, []string{"a", "b"}, []int{2, 3})
	if _, err := New(d, []float64{1, 2, 3}); err == nil {
		t.Errorf("New with 3 values over a 6-cell domain: got nil error, want error")
	}
	if _, err := New(d, make([]float64, 6)); err != nil {
		t.Errorf("New with 6 values over a 6-cell domain failed: %v", err)
	}
}

func TestArithmetic(t *testing.T) {
	d := testDomain(t, []string{"a"}, []int{3})
	f, err := New(d, []float64{1, 2, 3})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	g, err := New(d, []float64{4, 5, 6})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, tc := range []struct {
		desc string
		got  func() (*Factor, error)
		want []float64
	}{
		{"Plus", func() (*Factor, error) { return f.Plus(g) }, []float64{5, 7, 9}},
		{"Minus", func() (*Factor, error) { return f.Minus(g) }, []float64{-3, -3, -3}},
		{"Mul", func() (*Factor, error) { return f.Mul(g) }, []float64{4, 10, 18}},
		{"Div", func() (*Factor, error) { return f.Div(g) }, []float64{0.25, 0.4, 0.5}},
		{"Scale", func() (*Factor, error) { return f.Scale(2), nil }, []float64{2, 4, 6}},
		{"AddScalar", func() (*Factor, error) { return f.AddScalar(1), nil }, []float64{2, 3, 4}},
	} {
		out, err := tc.got()
		if err != nil {
			t.Errorf("%s failed: %v", tc.desc, err)
			continue
		}
		if diff := cmp.Diff(tc.want, out.DataVector(), cmpopts.EquateApprox(0, 1e-12)); diff != "" {
			t.Errorf("%s: unexpected values (-want +got):\n%s", tc.desc, diff)
		}
	}
}

func TestSumDotLogSumExp(t *testing.T) {
	d := testDomain(t, []string{"a"}, []int{3})
	f, _ := New(d, []float64{1, 2, 3})
	g, _ := New(d, []float64{1, 0, 2})

	if got := f.Sum(); got != 6 {
		t.Errorf("Sum: got %v, want 6", got)
	}
	dot, err := f.Dot(g)
	if err != nil {
		t.Fatalf("Dot failed: %v", err)
	}
	if dot != 7 {
		t.Errorf("Dot: got %v, want 7", dot)
	}
	want := math.Log(math.Exp(1) + math.Exp(2) + math.Exp(3))
	if got := f.LogSumExp(); math.Abs(got-want) > 1e-12 {
		t.Errorf("LogSumExp: got %v, want %v", got, want)
	}
}

func TestNormalize(t *testing.T) {
	d := testDomain(t, []string{"a"}, []int{2})
	f, _ := New(d, []float64{1, 3})
	got := f.Normalize(8, false).DataVector()
	if diff := cmp.Diff([]float64{2, 6}, got, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Normalize: unexpected values (-want +got):\n%s", diff)
	}

	logF, _ := New(d, []float64{math.Log(1), math.Log(3)})
	gotLog := logF.Normalize(8, true).DataVector()
	wantLog := []float64{math.Log(2), math.Log(6)}
	if diff := cmp.Diff(wantLog, gotLog, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("Normalize(log): unexpected values (-want +got):\n%s", diff)
	}
}

func TestProject(t *testing.T) {
	d := testDomain(t, []string{"a", "b"}, []int{2, 3})
	// Layout: index = a*3 + b.
	f, _ := New(d, []float64{1, 2, 3, 4, 5, 6})

	onA, err := f.Project(domain.NewClique("a"))
	if err != nil {
		t.Fatalf("Project onto (a) failed: %v", err)
	}
	if diff := cmp.Diff([]float64{6, 15}, onA.DataVector()); diff != "" {
		t.Errorf("Project onto (a): unexpected values (-want +got):\n%s", diff)
	}

	onB, err := f.Project(domain.NewClique("b"))
	if err != nil {
		t.Fatalf("Project onto (b) failed: %v", err)
	}
	if diff := cmp.Diff([]float64{5, 7, 9}, onB.DataVector()); diff != "" {
		t.Errorf("Project onto (b): unexpected values (-want +got):\n%s", diff)
	}

	if _, err := f.Project(domain.NewClique("z")); err == nil {
		t.Errorf("Project onto unknown attribute: got nil error, want error")
	}
}

func TestLogSumExpProjectMatchesLogOfSum(t *testing.T) {
	d := testDomain(t, []string{"a", "b"}, []int{2, 3})
	vals := []float64{0.5, -1, 2, 0, 1.5, -0.25}
	logF, _ := New(d, vals)

	got, err := logF.LogSumExpProject(domain.NewClique("a"))
	if err != nil {
		t.Fatalf("LogSumExpProject failed: %v", err)
	}
	expSum, err := logF.Exp().Project(domain.NewClique("a"))
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	want := expSum.Log().DataVector()
	if diff := cmp.Diff(want, got.DataVector(), cmpopts.EquateApprox(1e-12, 1e-12)); diff != "" {
		t.Errorf("LogSumExpProject: unexpected values (-want +got):\n%s", diff)
	}
}

func TestExpand(t *testing.T) {
	d := testDomain(t, []string{"a", "b"}, []int{2, 3})
	sub := testDomain(t, []string{"a"}, []int{2})
	f, _ := New(sub, []float64{1, 2})

	got, err := f.Expand(d)
	if err != nil {
		t.Fatalf("Expand failed: %v", err)
	}
	want := []float64{1, 1, 1, 2, 2, 2}
	if diff := cmp.Diff(want, got.DataVector()); diff != "" {
		t.Errorf("Expand: unexpected values (-want +got):\n%s", diff)
	}

	conflict := testDomain(t, []string{"a", "b"}, []int{4, 3})
	if _, err := f.Expand(conflict); err == nil {
		t.Errorf("Expand onto conflicting cardinality: got nil error, want error")
	}
}

func TestCondition(t *testing.T) {
	d := testDomain(t, []string{"a", "b"}, []int{2, 3})
	f, _ := New(d, []float64{1, 2, 3, 4, 5, 6})

	got, err := f.Condition(map[string]int{"a": 1})
	if err != nil {
		t.Fatalf("Condition failed: %v", err)
	}
	if diff := cmp.Diff([]float64{4, 5, 6}, got.DataVector()); diff != "" {
		t.Errorf("Condition on a=1: unexpected values (-want +got):\n%s", diff)
	}

	gotB, err := f.Condition(map[string]int{"b": 2})
	if err != nil {
		t.Fatalf("Condition failed: %v", err)
	}
	if diff := cmp.Diff([]float64{3, 6}, gotB.DataVector()); diff != "" {
		t.Errorf("Condition on b=2: unexpected values (-want +got):\n%s", diff)
	}

	if _, err := f.Condition(map[string]int{"a": 5}); err == nil {
		t.Errorf("Condition with out-of-range value: got nil error, want error")
	}
}
