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

package domain

import (
	"slices"
	"sort"
	"strings"
)

// Clique is a set of attribute names treated as one joint query unit. A
// Clique is always kept in canonical form: attribute names sorted
// lexicographically with duplicates removed. Construct cliques through
// NewClique so that two cliques over the same attributes compare equal and
// produce the same Key.
type Clique []string

// NewClique returns the canonical clique over the given attributes.
func NewClique(attrs ...string) Clique {
	c := slices.Clone(attrs)
	sort.Strings(c)
	return slices.Compact(c)
}

// Key returns a string that uniquely identifies the clique's attribute set.
// It is suitable for use as a map key.
func (c Clique) Key() string {
	return strings.Join(c, "\x1f")
}

// Len returns the number of attributes in the clique.
func (c Clique) Len() int {
	return len(c)
}

// Contains reports whether the clique includes the given attribute.
func (c Clique) Contains(attr string) bool {
	_, found := slices.BinarySearch(c, attr)
	return found
}

// IsSubsetOf reports whether every attribute of c appears in other.
func (c Clique) IsSubsetOf(other Clique) bool {
	for _, a := range c {
		if !other.Contains(a) {
			return false
		}
	}
	return true
}

// Equal reports whether two cliques cover the same attribute set.
func (c Clique) Equal(other Clique) bool {
	return slices.Equal(c, other)
}

// Intersect returns the canonical clique of attributes present in both c and
// other.
func (c Clique) Intersect(other Clique) Clique {
	out := make(Clique, 0, min(len(c), len(other)))
	for _, a := range c {
		if other.Contains(a) {
			out = append(out, a)
		}
	}
	return out
}

// Union returns the canonical clique of attributes present in either c or
// other.
func (c Clique) Union(other Clique) Clique {
	out := make(Clique, 0, len(c)+len(other))
	out = append(out, c...)
	out = append(out, other...)
	sort.Strings(out)
	return slices.Compact(out)
}

// String implements fmt.Stringer.
func (c Clique) String() string {
	return "(" + strings.Join(c, ",") + ")"
}

// SortCliques orders cliques by increasing size, breaking ties by Key. All
// clique collections in this library are held in this order so that
// iteration-dependent operations are deterministic.
func SortCliques(cliques []Clique) {
	sort.SliceStable(cliques, func(i, j int) bool {
		if len(cliques[i]) != len(cliques[j]) {
			return len(cliques[i]) < len(cliques[j])
		}
		return cliques[i].Key() < cliques[j].Key()
	})
}

// DownwardClosure returns every non-empty subset of the given cliques,
// deduplicated and ordered by increasing size then Key.
func DownwardClosure(cliques []Clique) []Clique {
	seen := make(map[string]Clique)
	for _, cl := range cliques {
		for _, sub := range powerset(cl) {
			seen[sub.Key()] = sub
		}
	}
	out := make([]Clique, 0, len(seen))
	for _, cl := range seen {
		out = append(out, cl)
	}
	SortCliques(out)
	return out
}

// powerset enumerates the non-empty subsets of a canonical clique. Cliques
// are small (a handful of attributes), so the 2^n enumeration is fine.
func powerset(cl Clique) []Clique {
	n := len(cl)
	out := make([]Clique, 0, 1<<n)
	for mask := 1; mask < 1<<n; mask++ {
		sub := make(Clique, 0, n)
		for i := 0; i < n; i++ {
			if mask&(1<<i) != 0 {
				sub = append(sub, cl[i])
			}
		}
		out = append(out, sub)
	}
	return out
}
