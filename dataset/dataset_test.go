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

package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jnear/private-pgm/domain"
)

func testDomain(t *testing.T) *domain.Domain {
	t.Helper()
	d, err := domain.New([]string{"a", "b"}, []int{2, 3})
	if err != nil {
		t.Fatalf("domain.New failed: %v", err)
	}
	return d
}

func TestNewValidation(t *testing.T) {
	dom := testDomain(t)
	for _, tc := range []struct {
		desc string
		cols map[string][]int
	}{
		{"missing column", map[string][]int{"a": {0, 1}}},
		{"ragged columns", map[string][]int{"a": {0, 1}, "b": {0}}},
		{"out of range value", map[string][]int{"a": {0, 2}, "b": {0, 1}}},
		{"negative value", map[string][]int{"a": {0, -1}, "b": {0, 1}}},
	} {
		if _, err := New(dom, tc.cols); err == nil {
			t.Errorf("New: when %s got nil error, want error", tc.desc)
		}
	}

	ds, err := New(dom, map[string][]int{"a": {0, 1, 1}, "b": {2, 0, 1}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if ds.Records() != 3 {
		t.Errorf("Records: got %d, want 3", ds.Records())
	}
}

func TestProjectCounts(t *testing.T) {
	dom := testDomain(t)
	ds, err := New(dom, map[string][]int{
		"a": {0, 0, 1, 1, 1},
		"b": {0, 2, 1, 1, 2},
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	onA, err := ds.Project(domain.NewClique("a"))
	if err != nil {
		t.Fatalf("Project onto (a) failed: %v", err)
	}
	if diff := cmp.Diff([]float64{2, 3}, onA.DataVector()); diff != "" {
		t.Errorf("Project onto (a): unexpected counts (-want +got):\n%s", diff)
	}

	joint, err := ds.Project(domain.NewClique("a", "b"))
	if err != nil {
		t.Fatalf("Project onto (a,b) failed: %v", err)
	}
	// Layout: index = a*3 + b.
	want := []float64{1, 0, 1, 0, 2, 1}
	if diff := cmp.Diff(want, joint.DataVector()); diff != "" {
		t.Errorf("Project onto (a,b): unexpected counts (-want +got):\n%s", diff)
	}
	if got := joint.Sum(); got != float64(ds.Records()) {
		t.Errorf("Project total: got %v, want %d", got, ds.Records())
	}
}

func TestLoadRejectsMalformedRow(t *testing.T) {
	dir := t.TempDir()
	domainPath := filepath.Join(dir, "domain.json")
	csvPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(domainPath, []byte(`{"a": 2, "b": 3}`), 0o600); err != nil {
		t.Fatalf("writing domain file failed: %v", err)
	}
	// The third data row has too few fields; it and the rows after it must
	// not be dropped silently.
	csvData := "a,b\n0,1\n1\n1,0\n0,0\n"
	if err := os.WriteFile(csvPath, []byte(csvData), 0o600); err != nil {
		t.Fatalf("writing csv file failed: %v", err)
	}
	if _, err := Load(csvPath, domainPath); err == nil {
		t.Errorf("Load: with a short row got nil error, want error")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	domainPath := filepath.Join(dir, "domain.json")
	csvPath := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(domainPath, []byte(`{"a": 2, "b": 3}`), 0o600); err != nil {
		t.Fatalf("writing domain file failed: %v", err)
	}

	dom := testDomain(t)
	ds, err := New(dom, map[string][]int{"a": {0, 1, 0}, "b": {2, 1, 0}})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := ds.Save(csvPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(csvPath, domainPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !loaded.Domain().Equal(dom) {
		t.Errorf("Load: domain %v, want %v", loaded.Domain(), dom)
	}
	for _, attr := range []string{"a", "b"} {
		wantCol, _ := ds.Column(attr)
		gotCol, err := loaded.Column(attr)
		if err != nil {
			t.Fatalf("Column(%q) failed: %v", attr, err)
		}
		if diff := cmp.Diff(wantCol, gotCol); diff != "" {
			t.Errorf("column %q: round trip mismatch (-want +got):\n%s", attr, diff)
		}
	}
}
